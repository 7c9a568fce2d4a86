package merge

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"sitegen/internal/domain"
)

// HardCaps bounds the entries of every list section.
var HardCaps = map[string]int{
	domain.SectionFeatures:     6,
	domain.SectionTestimonials: 6,
	domain.SectionTeam:         8,
	domain.SectionPortfolio:    6,
	domain.SectionPricing:      4,
	domain.SectionFAQ:          10,
	domain.SectionMenu:         12,
	domain.SectionGallery:      12,
}

type settings struct {
	coordinates *domain.Coordinates
}

// Option tweaks a single Merge call.
type Option func(*settings)

// WithCoordinates fills the contact section's coordinates node.
func WithCoordinates(c domain.Coordinates) Option {
	return func(s *settings) {
		s.coordinates = &c
	}
}

// Merge applies profile text, generated lists and image URLs onto a deep copy
// of the template data. tpl is never modified. images maps field paths such
// as "menu.items.2.imageUrl" to URLs; missing paths keep the template value.
func Merge(tpl domain.Template, profile domain.GenerationProfile, images map[string]string, bundle domain.ContentBundle, opts ...Option) domain.MergedDocument {
	var cfg settings
	for _, opt := range opts {
		opt(&cfg)
	}
	locale := ResolveLocale(profile.Language)
	data, _ := deepCopy(tpl.Data).(map[string]any)
	if data == nil {
		data = map[string]any{}
	}

	for key, raw := range data {
		node, ok := raw.(map[string]any)
		if !ok || !profile.SectionEnabled(key) {
			continue
		}
		applyText(key, node, profile, bundle, locale, cfg)
		if domain.IsListSection(key) {
			applyList(key, node, bundle.SectionRecords(key))
		}
	}

	for path, url := range images {
		if strings.TrimSpace(url) == "" {
			continue
		}
		section, _, _ := strings.Cut(path, ".")
		if !profile.SectionEnabled(section) {
			continue
		}
		setPath(data, path, url)
	}

	return domain.MergedDocument{
		TemplateID: tpl.ID,
		Locale:     locale.String(),
		Theme:      tpl.Theme,
		Data:       data,
		Visibility: visibility(tpl, profile),
		Navigation: Navigation(tpl, profile),
	}
}

// Navigation lists the enabled sections in template order.
func Navigation(tpl domain.Template, profile domain.GenerationProfile) []domain.NavItem {
	locale := ResolveLocale(profile.Language)
	out := []domain.NavItem{}
	for _, key := range sectionOrder(tpl) {
		if !profile.SectionEnabled(key) {
			continue
		}
		text := label(locale, key)
		if text == "" {
			text = key
		}
		out = append(out, domain.NavItem{Label: text, Anchor: "#" + key})
	}
	return out
}

func sectionOrder(tpl domain.Template) []string {
	if len(tpl.Sections) > 0 {
		return tpl.Sections
	}
	keys := make([]string, 0, len(tpl.Data))
	for k := range tpl.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func visibility(tpl domain.Template, profile domain.GenerationProfile) map[string]bool {
	out := map[string]bool{}
	for _, key := range sectionOrder(tpl) {
		out[key] = profile.SectionEnabled(key)
	}
	return out
}

func applyText(key string, node map[string]any, profile domain.GenerationProfile, bundle domain.ContentBundle, locale language.Tag, cfg settings) {
	description := firstNonEmpty(bundle.Description, profile.Description)
	tagline := firstNonEmpty(bundle.Tagline, profile.Tagline)

	setIfPresent(node, "title", label(locale, key))
	switch key {
	case domain.SectionHero:
		setIfPresent(node, "headline", profile.BusinessName)
		setIfPresent(node, "subheadline", tagline)
		setIfPresent(node, "buttonLabel", label(locale, "heroButton"))
	case domain.SectionSplitHero:
		setIfPresent(node, "headline", tagline)
		setIfPresent(node, "subheadline", profile.BusinessName)
		setIfPresent(node, "body", description)
	case domain.SectionBanner:
		setIfPresent(node, "headline", tagline)
	case domain.SectionAbout:
		setIfPresent(node, "headline", profile.BusinessName)
		setIfPresent(node, "body", description)
	case domain.SectionCTA:
		setIfPresent(node, "headline", fmt.Sprintf(label(locale, "ctaHeadline"), profile.BusinessName))
		setIfPresent(node, "subheadline", tagline)
		setIfPresent(node, "buttonLabel", label(locale, "ctaButton"))
	case domain.SectionContact:
		setIfPresent(node, "address", profile.Contact.Address)
		setIfPresent(node, "email", profile.Contact.Email)
		setIfPresent(node, "phone", profile.Contact.Phone)
		if cfg.coordinates != nil {
			if _, ok := node["coordinates"]; ok {
				node["coordinates"] = map[string]any{"lat": cfg.coordinates.Lat, "lng": cfg.coordinates.Lng}
			}
		}
	}
}

// applyList overlays records on the template items at the same index and
// truncates to min(records, template slots, hard cap).
func applyList(key string, node map[string]any, records []domain.Record) {
	if len(records) == 0 {
		return
	}
	template := domain.Items(node)
	limit := min(len(records), len(template))
	if hard, ok := HardCaps[key]; ok {
		limit = min(limit, hard)
	}
	items := make([]any, 0, limit)
	for i := 0; i < limit; i++ {
		item, ok := template[i].(map[string]any)
		if !ok {
			item = map[string]any{}
		}
		for field, value := range records[i] {
			item[field] = value
		}
		items = append(items, item)
	}
	node["items"] = items
}

// setPath writes value at a dotted path. Numeric segments index arrays. The
// write happens only when every container on the path already exists.
func setPath(root map[string]any, path string, value any) bool {
	parts := strings.Split(path, ".")
	var cur any = root
	for i, part := range parts {
		last := i == len(parts)-1
		switch node := cur.(type) {
		case map[string]any:
			if last {
				node[part] = value
				return true
			}
			next, ok := node[part]
			if !ok {
				return false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(part)
			if err != nil || idx < 0 || idx >= len(node) {
				return false
			}
			if last {
				node[idx] = value
				return true
			}
			cur = node[idx]
		default:
			return false
		}
	}
	return false
}

func setIfPresent(node map[string]any, key, value string) {
	if strings.TrimSpace(value) == "" {
		return
	}
	if _, ok := node[key]; ok {
		node[key] = value
	}
}

func deepCopy(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, val := range typed {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, val := range typed {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return typed
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
