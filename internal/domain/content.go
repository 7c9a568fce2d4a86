package domain

// Record is one generated entry of a list section, e.g. a dish or a FAQ pair.
type Record map[string]string

// Section keys used across planning and merging.
const (
	SectionHero         = "hero"
	SectionSplitHero    = "splitHero"
	SectionBanner       = "banner"
	SectionCTA          = "cta"
	SectionAbout        = "about"
	SectionFeatures     = "features"
	SectionPortfolio    = "portfolio"
	SectionMenu         = "menu"
	SectionGallery      = "gallery"
	SectionTestimonials = "testimonials"
	SectionTeam         = "team"
	SectionPricing      = "pricing"
	SectionFAQ          = "faq"
	SectionContact      = "contact"
)

// ListSections are the sections whose entries come from the content bundle.
var ListSections = []string{
	SectionFeatures,
	SectionTestimonials,
	SectionTeam,
	SectionPortfolio,
	SectionPricing,
	SectionFAQ,
	SectionMenu,
	SectionGallery,
}

// IsListSection reports whether key is one of ListSections.
func IsListSection(key string) bool {
	for _, s := range ListSections {
		if s == key {
			return true
		}
	}
	return false
}

// ContentBundle is the AI-generated content of one run. It is produced once by
// the content phase and read by the planner and the merger.
type ContentBundle struct {
	Description string              `json:"description"`
	Tagline     string              `json:"tagline"`
	Services    []Service           `json:"services"`
	Categories  []Category          `json:"categories"`
	Sections    map[string][]Record `json:"sections"`
}

// NewContentBundle returns an empty bundle with an initialized section map.
func NewContentBundle() ContentBundle {
	return ContentBundle{Sections: map[string][]Record{}}
}

// Records returns the generated records for a section, nil when absent.
func (b ContentBundle) Records(section string) []Record {
	if b.Sections == nil {
		return nil
	}
	return b.Sections[section]
}

// SectionRecords returns the entries a list section is filled with: the
// generated records, or for features the generated services when no feature
// records exist.
func (b ContentBundle) SectionRecords(section string) []Record {
	if records := b.Records(section); len(records) > 0 {
		return records
	}
	if section == SectionFeatures && len(b.Services) > 0 {
		out := make([]Record, 0, len(b.Services))
		for _, s := range b.Services {
			out = append(out, Record{"title": s.Name, "description": s.Description})
		}
		return out
	}
	return nil
}
