package content

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"sitegen/internal/domain"
	"sitegen/internal/lenient"
	"sitegen/internal/providers/prompt"
)

// Feature tags recorded with every call outcome.
const (
	FeatureDescription    = "description"
	FeatureTagline        = "tagline"
	FeatureServices       = "services"
	FeatureCategories     = "categories"
	FeatureRecommendation = "template_recommendation"
	featureSectionPrefix  = "section_"
)

const (
	serviceCount  = 4
	categoryCount = 5
)

// SectionFields lists the record fields requested for every list section.
var SectionFields = map[string][]string{
	domain.SectionFeatures:     {"title", "description"},
	domain.SectionTestimonials: {"name", "role", "quote"},
	domain.SectionTeam:         {"name", "role", "bio"},
	domain.SectionPortfolio:    {"title", "description"},
	domain.SectionPricing:      {"name", "price", "description"},
	domain.SectionFAQ:          {"question", "answer"},
	domain.SectionMenu:         {"name", "description", "price"},
	domain.SectionGallery:      {"title", "caption"},
}

// Generator produces the content bundle of a run, one model call per phase.
// Every method returns usable content; failures degrade to fallbacks.
type Generator struct {
	caller *Caller
}

func NewGenerator(caller *Caller) *Generator {
	return &Generator{caller: caller}
}

// Description returns the "about" copy of the business.
func (g *Generator) Description(ctx context.Context, profile domain.GenerationProfile) string {
	raw, err := g.caller.Do(ctx, Call{
		Feature:  FeatureDescription,
		CallerID: profile.OwnerID,
		Keys:     []string{prompt.KeyDescription},
		Vars:     Vars(profile, nil),
		Options:  domain.GenerationOptions{Temperature: 0.7, MaxTokens: 512, JSON: true},
	})
	if err == nil {
		if text := textField(raw, "description"); text != "" {
			return text
		}
	}
	return fallbackDescription(profile)
}

// Tagline returns a short slogan. description is the already generated copy.
func (g *Generator) Tagline(ctx context.Context, profile domain.GenerationProfile, description string) string {
	bundle := domain.ContentBundle{Description: description}
	raw, err := g.caller.Do(ctx, Call{
		Feature:  FeatureTagline,
		CallerID: profile.OwnerID,
		Keys:     []string{prompt.KeyTagline},
		Vars:     Vars(profile, &bundle),
		Options:  domain.GenerationOptions{Temperature: 0.8, MaxTokens: 128, JSON: true},
	})
	if err == nil {
		if text := textField(raw, "tagline"); text != "" {
			return text
		}
	}
	return fallbackTagline(profile)
}

// Services returns the offerings shown on the site.
func (g *Generator) Services(ctx context.Context, profile domain.GenerationProfile, description string) []domain.Service {
	bundle := domain.ContentBundle{Description: description}
	vars := Vars(profile, &bundle)
	vars["count"] = strconv.Itoa(max(serviceCount, len(profile.Services)))
	raw, err := g.caller.Do(ctx, Call{
		Feature:  FeatureServices,
		CallerID: profile.OwnerID,
		Keys:     []string{prompt.KeyServices},
		Vars:     vars,
		Options:  domain.GenerationOptions{Temperature: 0.6, MaxTokens: 1024, JSON: true},
	})
	if err == nil {
		if items := namedItems(raw, "services", "items"); len(items) > 0 {
			out := make([]domain.Service, 0, len(items))
			for _, it := range items {
				out = append(out, domain.Service{Name: it.Name, Description: it.Description})
			}
			return out
		}
	}
	return fallbackServices(profile)
}

// Categories returns the store categories of an e-commerce site.
func (g *Generator) Categories(ctx context.Context, profile domain.GenerationProfile, description string) []domain.Category {
	bundle := domain.ContentBundle{Description: description}
	vars := Vars(profile, &bundle)
	vars["count"] = strconv.Itoa(max(categoryCount, len(profile.Categories)))
	raw, err := g.caller.Do(ctx, Call{
		Feature:  FeatureCategories,
		CallerID: profile.OwnerID,
		Keys:     []string{prompt.KeyCategories},
		Vars:     vars,
		Options:  domain.GenerationOptions{Temperature: 0.5, MaxTokens: 768, JSON: true},
	})
	if err == nil {
		if items := namedItems(raw, "categories", "items"); len(items) > 0 {
			out := make([]domain.Category, 0, len(items))
			for _, it := range items {
				out = append(out, domain.Category{Name: it.Name, Description: it.Description})
			}
			return out
		}
	}
	return append([]domain.Category{}, profile.Categories...)
}

// RecommendTemplate picks a template id out of templates. The answer is only
// accepted when it names one of them.
func (g *Generator) RecommendTemplate(ctx context.Context, profile domain.GenerationProfile, templates []domain.TemplateSummary) string {
	if len(templates) == 0 {
		return profile.TemplateID
	}
	vars := Vars(profile, nil)
	catalog, _ := json.Marshal(templates)
	vars["templates"] = string(catalog)
	raw, err := g.caller.Do(ctx, Call{
		Feature:  FeatureRecommendation,
		CallerID: profile.OwnerID,
		Keys:     []string{prompt.KeyRecommendation},
		Vars:     vars,
		Options:  domain.GenerationOptions{Temperature: 0.2, MaxTokens: 256, JSON: true},
	})
	if err == nil {
		if id := textField(raw, "template_id"); id != "" {
			for _, t := range templates {
				if strings.EqualFold(t.ID, id) {
					return t.ID
				}
			}
		}
	}
	return fallbackTemplate(profile, templates)
}

// Section generates up to count records for a list section. It returns nil
// when the call fails or the answer holds no usable record.
func (g *Generator) Section(ctx context.Context, profile domain.GenerationProfile, bundle domain.ContentBundle, section string, count int) []domain.Record {
	fields, ok := SectionFields[section]
	if !ok || count <= 0 {
		return nil
	}
	vars := Vars(profile, &bundle)
	vars["section"] = section
	vars["count"] = strconv.Itoa(count)
	vars["fields"] = strings.Join(fields, ", ")
	raw, err := g.caller.Do(ctx, Call{
		Feature:  featureSectionPrefix + section,
		CallerID: profile.OwnerID,
		Keys:     []string{prompt.SectionKey(section), prompt.KeySection},
		Vars:     vars,
		Options:  domain.GenerationOptions{Temperature: 0.7, MaxTokens: 2048, JSON: true},
	})
	if err != nil {
		return nil
	}
	res := lenient.Normalize(raw, nil)
	items := lenient.List(res.Value, "items", section)
	out := make([]domain.Record, 0, min(len(items), count))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rec := domain.Record{}
		for _, f := range fields {
			if v := scalarString(obj[f]); v != "" {
				rec[f] = v
			}
		}
		if len(rec) == 0 {
			continue
		}
		out = append(out, rec)
		if len(out) == count {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Vars builds the placeholder values of a prompt. bundle supplies generated
// values that take precedence over the profile's own.
func Vars(profile domain.GenerationProfile, bundle *domain.ContentBundle) map[string]string {
	description, tagline := profile.Description, profile.Tagline
	services := profile.Services
	categories := profile.Categories
	if bundle != nil {
		description = firstNonEmpty(bundle.Description, description)
		tagline = firstNonEmpty(bundle.Tagline, tagline)
		if len(bundle.Services) > 0 {
			services = bundle.Services
		}
		if len(bundle.Categories) > 0 {
			categories = bundle.Categories
		}
	}
	serviceNames := make([]string, 0, len(services))
	for _, s := range services {
		serviceNames = append(serviceNames, s.Name)
	}
	categoryNames := make([]string, 0, len(categories))
	for _, c := range categories {
		categoryNames = append(categoryNames, c.Name)
	}
	return map[string]string{
		"businessName": profile.BusinessName,
		"industry":     profile.Industry,
		"description":  firstNonEmpty(description, "(none)"),
		"tagline":      firstNonEmpty(tagline, "(none)"),
		"language":     languageName(profile.Language),
		"services":     joinOrNone(serviceNames),
		"categories":   joinOrNone(categoryNames),
		"sections":     joinOrNone(profile.EnabledSections()),
	}
}

func languageName(code string) string {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		tag = language.English
	}
	return fmt.Sprintf("%s (%s)", display.English.Tags().Name(tag), tag.String())
}

// textField extracts a string answer. Bare prose is accepted as is.
func textField(raw, key string) string {
	res := lenient.Normalize(raw, nil)
	switch v := res.Value.(type) {
	case map[string]any:
		return strings.TrimSpace(scalarString(v[key]))
	case string:
		return strings.TrimSpace(v)
	}
	if !res.OK() {
		text := strings.TrimSpace(raw)
		if text != "" && !strings.ContainsAny(text[:1], "{[`") {
			return text
		}
	}
	return ""
}

type namedItem struct {
	Name        string
	Description string
}

func namedItems(raw string, keys ...string) []namedItem {
	res := lenient.Normalize(raw, nil)
	var out []namedItem
	for _, item := range lenient.List(res.Value, keys...) {
		switch v := item.(type) {
		case map[string]any:
			name := strings.TrimSpace(scalarString(v["name"]))
			if name == "" {
				continue
			}
			out = append(out, namedItem{Name: name, Description: strings.TrimSpace(scalarString(v["description"]))})
		case string:
			if name := strings.TrimSpace(v); name != "" {
				out = append(out, namedItem{Name: name})
			}
		}
	}
	return out
}

func scalarString(v any) string {
	switch typed := v.(type) {
	case string:
		return strings.TrimSpace(typed)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(typed)
	}
	return ""
}

func fallbackDescription(profile domain.GenerationProfile) string {
	if d := strings.TrimSpace(profile.Description); d != "" {
		return d
	}
	name := firstNonEmpty(profile.BusinessName, "Our business")
	industry := firstNonEmpty(profile.Industry, "local")
	if isIndonesian(profile.Language) {
		return fmt.Sprintf("%s adalah usaha %s yang mengutamakan kualitas dan pelayanan yang ramah.", name, industry)
	}
	return fmt.Sprintf("%s is a %s business dedicated to quality and friendly service.", name, industry)
}

func fallbackTagline(profile domain.GenerationProfile) string {
	if t := strings.TrimSpace(profile.Tagline); t != "" {
		return t
	}
	industry := firstNonEmpty(profile.Industry, "service")
	if isIndonesian(profile.Language) {
		return cases.Title(language.Indonesian).String(industry) + " berkualitas untuk Anda"
	}
	return "Quality " + industry + " you can trust"
}

func fallbackServices(profile domain.GenerationProfile) []domain.Service {
	if len(profile.Services) > 0 {
		return append([]domain.Service{}, profile.Services...)
	}
	if isIndonesian(profile.Language) {
		return []domain.Service{
			{Name: "Konsultasi", Description: "Ceritakan kebutuhan Anda dan kami bantu mencari solusi terbaik."},
			{Name: "Pesanan khusus", Description: "Layanan yang disesuaikan dengan keinginan Anda."},
		}
	}
	return []domain.Service{
		{Name: "Consultation", Description: "Tell us what you need and we will find the best fit."},
		{Name: "Custom orders", Description: "Service tailored to what you have in mind."},
	}
}

func fallbackTemplate(profile domain.GenerationProfile, templates []domain.TemplateSummary) string {
	if profile.TemplateID != "" {
		return profile.TemplateID
	}
	for _, t := range templates {
		if strings.EqualFold(t.Industry, profile.Industry) {
			return t.ID
		}
	}
	return templates[0].ID
}

func isIndonesian(code string) bool {
	return strings.EqualFold(strings.TrimSpace(code), "id")
}

func joinOrNone(values []string) string {
	if len(values) == 0 {
		return "(none)"
	}
	return strings.Join(values, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
