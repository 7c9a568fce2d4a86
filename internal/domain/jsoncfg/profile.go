package jsoncfg

import (
	"encoding/json"
	"fmt"
	"strings"

	"sitegen/internal/domain"
)

type SectionJSON struct {
	Key     string `json:"key"`
	Enabled bool   `json:"enabled"`
}

type ServiceJSON struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ContactJSON struct {
	Address string `json:"address"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

// ProfileJSON is the wire form of the onboarding profile submitted by the UI
// when the user confirms the final onboarding step.
type ProfileJSON struct {
	Version      string        `json:"version"`
	BusinessName string        `json:"business_name"`
	Industry     string        `json:"industry"`
	Description  string        `json:"description"`
	Tagline      string        `json:"tagline"`
	TemplateID   string        `json:"template_id"`
	Sections     []SectionJSON `json:"sections"`
	Language     string        `json:"language"`
	Services     []ServiceJSON `json:"services"`
	Categories   []string      `json:"categories"`
	Ecommerce    bool          `json:"ecommerce"`
	Contact      ContactJSON   `json:"contact"`
}

const (
	// DefaultProfileVersion represents the schema version persisted for profiles.
	DefaultProfileVersion = "2024-06"
	// DefaultLanguage is applied when no language preference is provided.
	DefaultLanguage = "en"
	// MaxServices caps the services a profile may carry into prompts.
	MaxServices = 12
	// MaxCategories caps the store categories provisioned for a profile.
	MaxCategories = 10
	// MaxBusinessNameLength bounds the business name.
	MaxBusinessNameLength = 120
)

var supportedLanguages = map[string]struct{}{
	"en": {},
	"id": {},
}

// Normalize trims free text, applies defaults and drops empty entries.
func (p *ProfileJSON) Normalize(preferredLanguage string) {
	if p == nil {
		return
	}
	if p.Version == "" {
		p.Version = DefaultProfileVersion
	}
	p.BusinessName = strings.TrimSpace(p.BusinessName)
	p.Industry = strings.ToLower(strings.TrimSpace(p.Industry))
	p.Description = strings.TrimSpace(p.Description)
	p.Tagline = strings.TrimSpace(p.Tagline)
	p.TemplateID = strings.TrimSpace(p.TemplateID)

	lang := strings.ToLower(strings.TrimSpace(p.Language))
	if lang == "" {
		lang = strings.ToLower(strings.TrimSpace(preferredLanguage))
	}
	if _, ok := supportedLanguages[lang]; !ok {
		lang = DefaultLanguage
	}
	p.Language = lang

	sections := p.Sections[:0]
	seen := map[string]struct{}{}
	for _, s := range p.Sections {
		s.Key = strings.TrimSpace(s.Key)
		if s.Key == "" {
			continue
		}
		if _, dup := seen[s.Key]; dup {
			continue
		}
		seen[s.Key] = struct{}{}
		sections = append(sections, s)
	}
	p.Sections = sections

	services := p.Services[:0]
	for _, s := range p.Services {
		s.Name = strings.TrimSpace(s.Name)
		s.Description = strings.TrimSpace(s.Description)
		if s.Name == "" {
			continue
		}
		services = append(services, s)
	}
	if len(services) > MaxServices {
		services = services[:MaxServices]
	}
	p.Services = services

	categories := p.Categories[:0]
	for _, c := range p.Categories {
		c = strings.TrimSpace(c)
		if c != "" {
			categories = append(categories, c)
		}
	}
	if len(categories) > MaxCategories {
		categories = categories[:MaxCategories]
	}
	p.Categories = categories
}

// Validate ensures the profile satisfies the contract required to start a run.
func (p ProfileJSON) Validate() error {
	if strings.TrimSpace(p.BusinessName) == "" {
		return fmt.Errorf("business_name is required")
	}
	if len(p.BusinessName) > MaxBusinessNameLength {
		return fmt.Errorf("business_name must be at most %d characters", MaxBusinessNameLength)
	}
	if strings.TrimSpace(p.Industry) == "" {
		return fmt.Errorf("industry is required")
	}
	if strings.TrimSpace(p.TemplateID) == "" {
		return fmt.Errorf("template_id is required")
	}
	enabled := 0
	for _, s := range p.Sections {
		if s.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one section must be enabled")
	}
	return nil
}

// ToProfile converts the wire form into the immutable domain snapshot.
func (p ProfileJSON) ToProfile(ownerID string) domain.GenerationProfile {
	out := domain.GenerationProfile{
		OwnerID:      ownerID,
		BusinessName: p.BusinessName,
		Industry:     p.Industry,
		Description:  p.Description,
		Tagline:      p.Tagline,
		TemplateID:   p.TemplateID,
		Language:     p.Language,
		Ecommerce:    p.Ecommerce,
		Contact: domain.Contact{
			Address: strings.TrimSpace(p.Contact.Address),
			Email:   strings.TrimSpace(p.Contact.Email),
			Phone:   strings.TrimSpace(p.Contact.Phone),
		},
	}
	for _, s := range p.Sections {
		out.Sections = append(out.Sections, domain.SectionToggle{Key: s.Key, Enabled: s.Enabled})
	}
	for _, s := range p.Services {
		out.Services = append(out.Services, domain.Service{Name: s.Name, Description: s.Description})
	}
	for _, c := range p.Categories {
		out.Categories = append(out.Categories, domain.Category{Name: c})
	}
	return out
}

func MustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("json marshal: %w", err))
	}
	return b
}
