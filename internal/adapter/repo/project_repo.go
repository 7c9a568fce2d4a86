package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"sitegen/internal/domain"
	"sitegen/internal/infra"
	"sitegen/internal/sqlinline"
)

// ProjectRepositoryPG stores merged documents in the projects table.
type ProjectRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewProjectRepository(sql infra.SQLExecutor) *ProjectRepositoryPG {
	return &ProjectRepositoryPG{sql: sql}
}

// Create inserts the draft and returns the new project id.
func (r *ProjectRepositoryPG) Create(ctx context.Context, draft domain.ProjectDraft) (string, error) {
	doc, err := json.Marshal(draft.Document)
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	var id string
	row := r.sql.QueryRow(ctx, sqlinline.QInsertProject,
		draft.OwnerID,
		draft.RunID,
		draft.Name,
		draft.Document.TemplateID,
		draft.Document.Locale,
		doc,
	)
	if err := row.Scan(&id); err != nil {
		return "", fmt.Errorf("insert project: %w", err)
	}
	return id, nil
}

// StoreRepositoryPG provisions the e-commerce categories of a project.
type StoreRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewStoreRepository(sql infra.SQLExecutor) *StoreRepositoryPG {
	return &StoreRepositoryPG{sql: sql}
}

// Provision inserts categories in order. Blank names are skipped and
// duplicates are ignored by the table constraint.
func (r *StoreRepositoryPG) Provision(ctx context.Context, projectID string, categories []domain.Category) error {
	position := 0
	for _, c := range categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		if _, err := r.sql.Exec(ctx, sqlinline.QInsertStoreCategory, projectID, position, name, strings.TrimSpace(c.Description)); err != nil {
			return fmt.Errorf("insert category %q: %w", name, err)
		}
		position++
	}
	return nil
}

var (
	_ domain.ProjectCreator   = (*ProjectRepositoryPG)(nil)
	_ domain.StoreProvisioner = (*StoreRepositoryPG)(nil)
)
