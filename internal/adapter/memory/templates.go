package memory

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"sync"

	"sitegen/internal/domain"
)

//go:embed templates/*.json
var builtinFS embed.FS

// TemplateCatalog serves templates from memory.
type TemplateCatalog struct {
	mu        sync.RWMutex
	templates map[string]domain.Template
}

func NewTemplateCatalog(templates ...domain.Template) *TemplateCatalog {
	c := &TemplateCatalog{templates: map[string]domain.Template{}}
	for _, t := range templates {
		c.templates[t.ID] = t
	}
	return c
}

// BuiltinTemplates loads the templates shipped with the binary.
func BuiltinTemplates() (*TemplateCatalog, error) {
	files, err := fs.Glob(builtinFS, "templates/*.json")
	if err != nil {
		return nil, err
	}
	c := NewTemplateCatalog()
	for _, name := range files {
		raw, err := builtinFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		var tpl domain.Template
		if err := json.Unmarshal(raw, &tpl); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		c.templates[tpl.ID] = tpl
	}
	return c, nil
}

func (c *TemplateCatalog) Get(_ context.Context, id string) (domain.Template, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tpl, ok := c.templates[id]
	if !ok {
		return domain.Template{}, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, id)
	}
	return tpl, nil
}

func (c *TemplateCatalog) List(context.Context) ([]domain.TemplateSummary, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.TemplateSummary, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, t.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Templates returns every template, sorted by id.
func (c *TemplateCatalog) Templates() []domain.Template {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.Template, 0, len(c.templates))
	for _, t := range c.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var _ domain.TemplateStore = (*TemplateCatalog)(nil)
