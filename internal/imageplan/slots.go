package imageplan

import (
	"strconv"
	"strings"

	"sitegen/internal/domain"
)

// Slot is one concrete image-bearing field of the template.
type Slot struct {
	Section     string `json:"section"`
	FieldPath   string `json:"field_path"`
	AspectRatio string `json:"aspect_ratio"`
	// Subject names the entity the image is about, e.g. a dish, when known.
	Subject string `json:"subject,omitempty"`
	Detail  string `json:"detail,omitempty"`
	Index   int    `json:"-"`
}

type rule struct {
	section string
	field   string
	aspect  string
	list    bool
	cap     int
}

// rules lists every image slot the planner knows, in planning order.
var rules = []rule{
	{section: domain.SectionHero, field: "imageUrl", aspect: "16:9"},
	{section: domain.SectionSplitHero, field: "imageUrl", aspect: "3:4"},
	{section: domain.SectionBanner, field: "imageUrl", aspect: "21:9"},
	{section: domain.SectionCTA, field: "backgroundImageUrl", aspect: "21:9"},
	{section: domain.SectionFeatures, field: "imageUrl", aspect: "1:1", list: true, cap: 6},
	{section: domain.SectionPortfolio, field: "imageUrl", aspect: "4:3", list: true, cap: 6},
	{section: domain.SectionMenu, field: "imageUrl", aspect: "1:1", list: true, cap: 3},
	{section: domain.SectionGallery, field: "imageUrl", aspect: "4:3", list: true, cap: 1},
}

// Caps returns the per-section image cap of list sections.
func Caps() map[string]int {
	out := map[string]int{}
	for _, r := range rules {
		if r.list {
			out[r.section] = r.cap
		}
	}
	return out
}

// Slots enumerates the image slots of the enabled sections of tpl.
func Slots(tpl domain.Template, profile domain.GenerationProfile, bundle domain.ContentBundle) []Slot {
	var out []Slot
	for _, r := range rules {
		if !profile.SectionEnabled(r.section) {
			continue
		}
		node := tpl.Section(r.section)
		if node == nil {
			continue
		}
		if !r.list {
			if _, ok := node[r.field]; ok {
				out = append(out, Slot{Section: r.section, FieldPath: r.section + "." + r.field, AspectRatio: r.aspect})
			}
			continue
		}
		items := domain.Items(node)
		limit := min(len(items), r.cap)
		if records := bundle.SectionRecords(r.section); len(records) > 0 {
			limit = min(limit, len(records))
		}
		for i := 0; i < limit; i++ {
			item, ok := items[i].(map[string]any)
			if !ok {
				continue
			}
			if _, ok := item[r.field]; !ok {
				continue
			}
			subject, detail := subjectOf(r.section, i, item, bundle)
			out = append(out, Slot{
				Section:     r.section,
				FieldPath:   r.section + ".items." + strconv.Itoa(i) + "." + r.field,
				AspectRatio: r.aspect,
				Subject:     subject,
				Detail:      detail,
				Index:       i,
			})
		}
	}
	return out
}

// GenericHero is the single draft planned when no section yields a slot.
func GenericHero() Slot {
	return Slot{Section: domain.SectionHero, FieldPath: domain.SectionHero + ".imageUrl", AspectRatio: "16:9"}
}

// subjectOf picks the entity an item image should show: the generated record
// first, then the template item text.
func subjectOf(section string, i int, item map[string]any, bundle domain.ContentBundle) (string, string) {
	if records := bundle.SectionRecords(section); i < len(records) {
		rec := records[i]
		if s := firstNonEmpty(rec["name"], rec["title"]); s != "" {
			return s, firstNonEmpty(rec["description"], rec["caption"])
		}
	}
	name, _ := item["name"].(string)
	title, _ := item["title"].(string)
	desc, _ := item["description"].(string)
	return firstNonEmpty(name, title), strings.TrimSpace(desc)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
