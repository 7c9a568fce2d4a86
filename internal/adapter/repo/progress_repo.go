package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"sitegen/internal/domain"
	"sitegen/internal/infra"
	"sitegen/internal/sqlinline"
)

// ProgressRepositoryPG keeps one progress row per owner in generation_progress.
type ProgressRepositoryPG struct {
	sql     infra.SQLExecutor
	ownerID string
}

// NewProgressRepository returns the progress store of ownerID.
func NewProgressRepository(sql infra.SQLExecutor, ownerID string) *ProgressRepositoryPG {
	return &ProgressRepositoryPG{sql: sql, ownerID: ownerID}
}

// Save upserts the full progress record.
func (r *ProgressRepositoryPG) Save(ctx context.Context, progress domain.GenerationProgress) error {
	if progress.AllImages == nil {
		progress.AllImages = []domain.ImageTask{}
	}
	payload, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	_, err = r.sql.Exec(ctx, sqlinline.QUpsertProgress, r.ownerID, progress.RunID, string(progress.Phase), payload)
	return err
}

// Load returns the stored record, nil when the owner has none.
func (r *ProgressRepositoryPG) Load(ctx context.Context) (*domain.GenerationProgress, error) {
	var payload []byte
	if err := r.sql.QueryRow(ctx, sqlinline.QSelectProgress, r.ownerID).Scan(&payload); err != nil {
		if infra.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	progress := domain.NewProgress()
	if err := json.Unmarshal(payload, &progress); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	if progress.AllImages == nil {
		progress.AllImages = []domain.ImageTask{}
	}
	return &progress, nil
}

// Clear removes the owner's record.
func (r *ProgressRepositoryPG) Clear(ctx context.Context) error {
	_, err := r.sql.Exec(ctx, sqlinline.QDeleteProgress, r.ownerID)
	return err
}

var _ domain.ProgressStore = (*ProgressRepositoryPG)(nil)
