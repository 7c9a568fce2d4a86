package prompt

import (
	"context"
	"regexp"
	"strings"

	"sitegen/internal/domain"
)

// Static serves templates from an in-memory map.
type Static map[string]string

func (s Static) Lookup(_ context.Context, key string) (domain.PromptTemplate, bool) {
	tpl, ok := s[key]
	if !ok || strings.TrimSpace(tpl) == "" {
		return domain.PromptTemplate{}, false
	}
	return domain.PromptTemplate{Key: key, Template: tpl}, true
}

// Chain consults catalogs in order and returns the first hit.
type Chain []domain.PromptCatalog

func (c Chain) Lookup(ctx context.Context, key string) (domain.PromptTemplate, bool) {
	for _, catalog := range c {
		if catalog == nil {
			continue
		}
		if tpl, ok := catalog.Lookup(ctx, key); ok {
			return tpl, true
		}
	}
	return domain.PromptTemplate{}, false
}

// WithDefaults puts the built-in templates behind catalogs.
func WithDefaults(catalogs ...domain.PromptCatalog) Chain {
	return append(Chain(catalogs), Static(Defaults))
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

// Render substitutes {{key}} tokens with vars. Unknown tokens become empty
// strings so no placeholder leaks into a prompt.
func Render(template string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(token string) string {
		name := placeholderPattern.FindStringSubmatch(token)[1]
		return vars[name]
	})
}

// Resolve looks up key, falling back to the next keys in order, and renders it.
// The returned model id is empty when the stored template does not pin one.
func Resolve(ctx context.Context, catalog domain.PromptCatalog, vars map[string]string, keys ...string) (text, modelID string, ok bool) {
	if catalog == nil {
		return "", "", false
	}
	for _, key := range keys {
		tpl, found := catalog.Lookup(ctx, key)
		if !found {
			continue
		}
		return Render(tpl.Template, vars), strings.TrimSpace(tpl.ModelID), true
	}
	return "", "", false
}
