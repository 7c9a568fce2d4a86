package imageplan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sitegen/internal/content"
	"sitegen/internal/domain"
	"sitegen/internal/infra"
	"sitegen/internal/lenient"
	"sitegen/internal/providers/prompt"
)

// FeatureImagePrompts is the call-log feature tag of the planning call.
const FeatureImagePrompts = "image_prompts"

// DefaultStyle is attached to every draft.
const DefaultStyle = "photographic"

var sectionPriority = map[string]int{
	domain.SectionHero:      0,
	domain.SectionSplitHero: 1,
	domain.SectionBanner:    2,
	domain.SectionCTA:       3,
}

const listPriority = 10

type Options struct {
	// Caller issues the planning call. A nil caller plans deterministically.
	Caller *content.Caller
	Style  string
	Logger *infra.Logger
}

// Planner turns template slots into image drafts. It never generates images
// and never touches run progress.
type Planner struct {
	caller *content.Caller
	style  string
	logger *infra.Logger
}

type plannedPrompt struct {
	FieldPath string `json:"field_path"`
	Prompt    string `json:"prompt"`
}

func New(opts Options) *Planner {
	style := strings.TrimSpace(opts.Style)
	if style == "" {
		style = DefaultStyle
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Planner{caller: opts.Caller, style: style, logger: logger}
}

// Plan returns the ordered drafts for tpl. The result is never empty.
func (p *Planner) Plan(ctx context.Context, tpl domain.Template, profile domain.GenerationProfile, bundle domain.ContentBundle) []domain.ImageTask {
	slots := Slots(tpl, profile, bundle)
	if len(slots) == 0 {
		slots = []Slot{GenericHero()}
	}

	prompts := p.modelPrompts(ctx, slots, profile, bundle)
	fromModel := 0
	tasks := make([]domain.ImageTask, 0, len(slots))
	for i, slot := range slots {
		text, ok := prompts[slot.FieldPath]
		if ok {
			fromModel++
		} else {
			text = FallbackPrompt(slot, profile, bundle)
		}
		priority, ok := sectionPriority[slot.Section]
		if !ok {
			priority = listPriority + i
		}
		tasks = append(tasks, domain.ImageTask{
			ID:          uuid.NewString(),
			Section:     slot.Section,
			FieldPath:   slot.FieldPath,
			Prompt:      text,
			AspectRatio: slot.AspectRatio,
			Style:       p.style,
			Priority:    priority,
			Status:      domain.ImageStatusPending,
		})
	}
	p.logger.Info().
		Int("drafts", len(tasks)).
		Int("model_prompts", fromModel).
		Msg("image drafts planned")
	return tasks
}

func (p *Planner) modelPrompts(ctx context.Context, slots []Slot, profile domain.GenerationProfile, bundle domain.ContentBundle) map[string]string {
	if p.caller == nil {
		return nil
	}
	vars := content.Vars(profile, &bundle)
	slotJSON, _ := json.Marshal(slots)
	contentJSON, _ := json.Marshal(bundle.Sections)
	vars["slots"] = string(slotJSON)
	vars["content"] = string(contentJSON)

	raw, err := p.caller.Do(ctx, content.Call{
		Feature:  FeatureImagePrompts,
		CallerID: profile.OwnerID,
		Keys:     []string{prompt.KeyImagePrompts},
		Vars:     vars,
		Options:  domain.GenerationOptions{Temperature: 0.6, MaxTokens: 2048, JSON: true},
	})
	if err != nil {
		return nil
	}
	res := lenient.Normalize(raw, nil)
	if !res.OK() {
		p.logger.Warn().Str("feature", FeatureImagePrompts).Msg("unparseable image prompts, using fallback")
		return nil
	}
	entries, _ := lenient.Convert[[]plannedPrompt](lenient.List(res.Value, "prompts", "items"))
	known := make(map[string]struct{}, len(slots))
	for _, s := range slots {
		known[s.FieldPath] = struct{}{}
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		path := strings.TrimSpace(e.FieldPath)
		text := strings.TrimSpace(e.Prompt)
		if text == "" {
			continue
		}
		if _, ok := known[path]; ok {
			out[path] = text
		}
	}
	return out
}

// FallbackPrompt builds a prompt from the slot and profile without any call.
func FallbackPrompt(slot Slot, profile domain.GenerationProfile, bundle domain.ContentBundle) string {
	name := firstNonEmpty(profile.BusinessName, "a local business")
	industry := firstNonEmpty(profile.Industry, "small business")
	mood := firstNonEmpty(bundle.Tagline, profile.Tagline)
	subject := slot.Subject
	if slot.Detail != "" {
		subject = fmt.Sprintf("%s (%s)", slot.Subject, slot.Detail)
	}

	var b strings.Builder
	switch slot.Section {
	case domain.SectionHero, domain.SectionSplitHero:
		fmt.Fprintf(&b, "Inviting hero photograph for %s, a %s business, showing its space and signature offering", name, industry)
	case domain.SectionBanner, domain.SectionCTA:
		fmt.Fprintf(&b, "Ultra-wide atmospheric banner photograph for %s, a %s business, with calm negative space", name, industry)
	case domain.SectionMenu:
		if subject == "" {
			subject = "a signature dish"
		}
		fmt.Fprintf(&b, "Appetizing close-up food photograph of %s served at %s", subject, name)
	case domain.SectionFeatures:
		if subject == "" {
			subject = "a key offering"
		}
		fmt.Fprintf(&b, "Clean square photograph illustrating %s at %s, a %s business", subject, name, industry)
	case domain.SectionPortfolio, domain.SectionGallery:
		if subject == "" {
			subject = "recent work"
		}
		fmt.Fprintf(&b, "Showcase photograph of %s by %s, a %s business", subject, name, industry)
	default:
		fmt.Fprintf(&b, "Photograph for the %s section of %s, a %s business", slot.Section, name, industry)
	}
	if mood != "" {
		fmt.Fprintf(&b, ". Mood: %s", mood)
	}
	b.WriteString(". Natural light, realistic detail, no text or logos.")
	return b.String()
}
