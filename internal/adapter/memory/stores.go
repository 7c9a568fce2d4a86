package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"sitegen/internal/domain"
)

// ProgressStore keeps a single progress record in memory.
type ProgressStore struct {
	mu     sync.Mutex
	record *domain.GenerationProgress
	saves  int
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{}
}

func (s *ProgressStore) Save(_ context.Context, progress domain.GenerationProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := progress.Clone()
	s.record = &c
	s.saves++
	return nil
}

func (s *ProgressStore) Load(context.Context) (*domain.GenerationProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return nil, nil
	}
	c := s.record.Clone()
	return &c, nil
}

func (s *ProgressStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = nil
	return nil
}

// Saves counts Save calls.
func (s *ProgressStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// ProjectStore records created projects. With a non-empty Dir every project
// document is also written there as <id>.json.
type ProjectStore struct {
	Dir string

	mu       sync.Mutex
	projects map[string]domain.ProjectDraft
	order    []string
}

func NewProjectStore(dir string) *ProjectStore {
	return &ProjectStore{Dir: dir, projects: map[string]domain.ProjectDraft{}}
}

func (s *ProjectStore) Create(_ context.Context, draft domain.ProjectDraft) (string, error) {
	id := uuid.NewString()
	if s.Dir != "" {
		if err := os.MkdirAll(s.Dir, 0o755); err != nil {
			return "", fmt.Errorf("create project dir: %w", err)
		}
		payload, err := json.MarshalIndent(draft, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode project: %w", err)
		}
		if err := os.WriteFile(filepath.Join(s.Dir, id+".json"), payload, 0o644); err != nil {
			return "", fmt.Errorf("write project: %w", err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[id] = draft
	s.order = append(s.order, id)
	return id, nil
}

// Last returns the most recently created project.
func (s *ProjectStore) Last() (string, domain.ProjectDraft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return "", domain.ProjectDraft{}, false
	}
	id := s.order[len(s.order)-1]
	return id, s.projects[id], true
}

// StoreProvisioner records provisioned categories per project.
type StoreProvisioner struct {
	mu         sync.Mutex
	categories map[string][]domain.Category
}

func NewStoreProvisioner() *StoreProvisioner {
	return &StoreProvisioner{categories: map[string][]domain.Category{}}
}

func (p *StoreProvisioner) Provision(_ context.Context, projectID string, categories []domain.Category) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.categories[projectID] = append([]domain.Category(nil), categories...)
	return nil
}

// Categories returns what was provisioned for projectID.
func (p *StoreProvisioner) Categories(projectID string) []domain.Category {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Category(nil), p.categories[projectID]...)
}

var (
	_ domain.ProgressStore    = (*ProgressStore)(nil)
	_ domain.ProjectCreator   = (*ProjectStore)(nil)
	_ domain.StoreProvisioner = (*StoreProvisioner)(nil)
)
