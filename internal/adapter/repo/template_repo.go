package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"sitegen/internal/domain"
	"sitegen/internal/infra"
	"sitegen/internal/sqlinline"
)

// TemplateRepositoryPG reads site templates from site_templates.
type TemplateRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewTemplateRepository(sql infra.SQLExecutor) *TemplateRepositoryPG {
	return &TemplateRepositoryPG{sql: sql}
}

// Get returns the template or domain.ErrTemplateNotFound.
func (r *TemplateRepositoryPG) Get(ctx context.Context, id string) (domain.Template, error) {
	var (
		tpl      domain.Template
		sections []byte
		data     []byte
	)
	row := r.sql.QueryRow(ctx, sqlinline.QSelectTemplate, id)
	if err := row.Scan(&tpl.ID, &tpl.Name, &tpl.Industry, &tpl.Theme, &tpl.SchemaVersion, &sections, &data); err != nil {
		if infra.IsNoRows(err) {
			return domain.Template{}, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, id)
		}
		return domain.Template{}, err
	}
	if err := json.Unmarshal(sections, &tpl.Sections); err != nil {
		return domain.Template{}, fmt.Errorf("decode template sections: %w", err)
	}
	if err := json.Unmarshal(data, &tpl.Data); err != nil {
		return domain.Template{}, fmt.Errorf("decode template data: %w", err)
	}
	return tpl, nil
}

// List returns the active template summaries ordered by name.
func (r *TemplateRepositoryPG) List(ctx context.Context) ([]domain.TemplateSummary, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QListTemplates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []domain.TemplateSummary{}
	for rows.Next() {
		var (
			s        domain.TemplateSummary
			sections []byte
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.Industry, &sections); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(sections, &s.Sections); err != nil {
			return nil, fmt.Errorf("decode template sections: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// Seed inserts tpl unless a row with its id already exists.
func (r *TemplateRepositoryPG) Seed(ctx context.Context, tpl domain.Template) error {
	sections, err := json.Marshal(tpl.Sections)
	if err != nil {
		return fmt.Errorf("encode template sections: %w", err)
	}
	data, err := json.Marshal(tpl.Data)
	if err != nil {
		return fmt.Errorf("encode template data: %w", err)
	}
	if _, err := r.sql.Exec(ctx, sqlinline.QSeedTemplate, tpl.ID, tpl.Name, tpl.Industry, tpl.Theme, tpl.SchemaVersion, sections, data); err != nil {
		return fmt.Errorf("seed template %s: %w", tpl.ID, err)
	}
	return nil
}

var _ domain.TemplateStore = (*TemplateRepositoryPG)(nil)
