package pipeline

import (
	"context"
	"sync"

	"sitegen/internal/domain"
	"sitegen/internal/infra"
)

// Factory builds the orchestrator of one owner.
type Factory func(ownerID string) *Orchestrator

// Registry keeps one orchestrator per owner for the lifetime of the process.
type Registry struct {
	mu      sync.Mutex
	build   Factory
	entries map[string]*Orchestrator
	logger  *infra.Logger
}

func NewRegistry(build Factory, logger *infra.Logger) *Registry {
	return &Registry{build: build, entries: map[string]*Orchestrator{}, logger: logger}
}

// Get returns the owner's orchestrator, creating it and restoring its
// persisted progress on first use.
func (r *Registry) Get(ctx context.Context, ownerID string) (*Orchestrator, error) {
	if ownerID == "" {
		return nil, domain.ErrMissingOwner
	}
	r.mu.Lock()
	o, ok := r.entries[ownerID]
	if !ok {
		o = r.build(ownerID)
		r.entries[ownerID] = o
	}
	r.mu.Unlock()

	if !ok {
		if _, err := o.Load(ctx); err != nil && r.logger != nil {
			r.logger.Warn().Err(err).Str("owner_id", ownerID).Msg("restore progress failed")
		}
	}
	return o, nil
}

// ActiveRuns counts the owners whose run currently holds the guard.
func (r *Registry) ActiveRuns() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, o := range r.entries {
		if o.Active() {
			n++
		}
	}
	return n
}

// Shutdown stops every active run without clearing persisted progress, so
// the next process reports those runs as interrupted.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.entries {
		o.Stop()
	}
}
