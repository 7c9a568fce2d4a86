package domain

import "strings"

// SectionToggle records whether a template section is part of the site.
type SectionToggle struct {
	Key     string `json:"key"`
	Enabled bool   `json:"enabled"`
}

// Service is a single offering of the business.
type Service struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Category is an e-commerce store category.
type Category struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Contact holds the optional contact block of the profile.
type Contact struct {
	Address string `json:"address"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

// GenerationProfile is the immutable input snapshot of one generation run.
type GenerationProfile struct {
	OwnerID      string          `json:"owner_id"`
	BusinessName string          `json:"business_name"`
	Industry     string          `json:"industry"`
	Description  string          `json:"description"`
	Tagline      string          `json:"tagline"`
	TemplateID   string          `json:"template_id"`
	Sections     []SectionToggle `json:"sections"`
	Language     string          `json:"language"`
	Services     []Service       `json:"services"`
	Categories   []Category      `json:"categories"`
	Ecommerce    bool            `json:"ecommerce"`
	Contact      Contact         `json:"contact"`
}

// EnabledSections returns the keys of enabled sections in profile order.
func (p GenerationProfile) EnabledSections() []string {
	out := make([]string, 0, len(p.Sections))
	for _, s := range p.Sections {
		if s.Enabled {
			out = append(out, s.Key)
		}
	}
	return out
}

// SectionEnabled reports whether key is toggled on. Sections the profile does
// not mention are treated as disabled.
func (p GenerationProfile) SectionEnabled(key string) bool {
	for _, s := range p.Sections {
		if strings.EqualFold(s.Key, key) {
			return s.Enabled
		}
	}
	return false
}

// Clone returns a copy that shares no slices with p.
func (p GenerationProfile) Clone() GenerationProfile {
	out := p
	out.Sections = append([]SectionToggle(nil), p.Sections...)
	out.Services = append([]Service(nil), p.Services...)
	out.Categories = append([]Category(nil), p.Categories...)
	return out
}
