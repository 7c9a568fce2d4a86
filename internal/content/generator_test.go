package content

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"sitegen/internal/domain"
)

type fakeText struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	requests  []domain.TextRequest
}

func (f *fakeText) Generate(_ context.Context, req domain.TextRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if err := f.errs[req.Feature]; err != nil {
		return "", err
	}
	return f.responses[req.Feature], nil
}

type recordingCalls struct {
	mu       sync.Mutex
	outcomes []domain.CallOutcome
}

func (r *recordingCalls) Record(_ context.Context, o domain.CallOutcome) {
	r.mu.Lock()
	r.outcomes = append(r.outcomes, o)
	r.mu.Unlock()
}

func newTestGenerator(text domain.TextGenerator, calls domain.CallLogger) *Generator {
	return NewGenerator(NewCaller(CallerOptions{Text: text, Calls: calls, Model: "test-model"}))
}

func restaurantProfile() domain.GenerationProfile {
	return domain.GenerationProfile{
		OwnerID:      "owner-1",
		BusinessName: "Warung Sari",
		Industry:     "restaurant",
		Language:     "en",
		Sections:     []domain.SectionToggle{{Key: "hero", Enabled: true}, {Key: "menu", Enabled: true}},
	}
}

func TestDescriptionFallsBackOnEndpointFailure(t *testing.T) {
	text := &fakeText{errs: map[string]error{FeatureDescription: errors.New("upstream 500")}}
	calls := &recordingCalls{}
	g := newTestGenerator(text, calls)

	got := g.Description(context.Background(), restaurantProfile())
	if strings.TrimSpace(got) == "" {
		t.Fatal("expected a non-empty fallback description")
	}
	if !strings.Contains(got, "Warung Sari") {
		t.Fatalf("fallback should mention the business: %q", got)
	}
	if len(text.requests) != 1 {
		t.Fatalf("expected exactly one call, got %d", len(text.requests))
	}
	if len(calls.outcomes) != 1 || calls.outcomes[0].Success || calls.outcomes[0].Error != "upstream 500" {
		t.Fatalf("unexpected call outcomes: %#v", calls.outcomes)
	}
	if calls.outcomes[0].ModelID != "test-model" || calls.outcomes[0].CallerID != "owner-1" {
		t.Fatalf("outcome identity = %#v", calls.outcomes[0])
	}
}

func TestDescriptionParsesFencedJSON(t *testing.T) {
	text := &fakeText{responses: map[string]string{
		FeatureDescription: "Sure!\n```json\n{\"description\": \"Home-style Javanese cooking.\",}\n```",
	}}
	got := newTestGenerator(text, nil).Description(context.Background(), restaurantProfile())
	if got != "Home-style Javanese cooking." {
		t.Fatalf("description = %q", got)
	}
	if !strings.Contains(text.requests[0].Prompt, "Business name: Warung Sari") || !text.requests[0].Options.JSON {
		t.Fatalf("unexpected request: %#v", text.requests[0])
	}
}

func TestTaglineAcceptsBareProse(t *testing.T) {
	text := &fakeText{responses: map[string]string{FeatureTagline: "  Taste of home  "}}
	if got := newTestGenerator(text, nil).Tagline(context.Background(), restaurantProfile(), "desc"); got != "Taste of home" {
		t.Fatalf("tagline = %q", got)
	}
}

func TestServicesFallbackIsTwoGenericEntries(t *testing.T) {
	text := &fakeText{responses: map[string]string{FeatureServices: "I cannot help with that."}}
	got := newTestGenerator(text, nil).Services(context.Background(), restaurantProfile(), "")
	if len(got) != 2 || got[0].Name == "" || got[1].Name == "" {
		t.Fatalf("expected two generic services, got %#v", got)
	}
}

func TestServicesUsesFieldExtraction(t *testing.T) {
	text := &fakeText{responses: map[string]string{
		FeatureServices: `[{"name": "Catering", "description": "Events"}, {"name": "Delivery", "descr`,
	}}
	got := newTestGenerator(text, nil).Services(context.Background(), restaurantProfile(), "")
	if len(got) != 2 || got[0].Name != "Catering" || got[1].Name != "Delivery" {
		t.Fatalf("services = %#v", got)
	}
}

func TestCategoriesFallbackKeepsProfileCategories(t *testing.T) {
	profile := restaurantProfile()
	profile.Categories = []domain.Category{{Name: "Drinks"}}
	text := &fakeText{errs: map[string]error{FeatureCategories: errors.New("boom")}}
	got := newTestGenerator(text, nil).Categories(context.Background(), profile, "")
	if len(got) != 1 || got[0].Name != "Drinks" {
		t.Fatalf("categories = %#v", got)
	}
}

func TestRecommendTemplateRejectsUnknownID(t *testing.T) {
	templates := []domain.TemplateSummary{
		{ID: "bold-shop", Industry: "retail"},
		{ID: "warm-bistro", Industry: "restaurant"},
	}
	profile := restaurantProfile()

	text := &fakeText{responses: map[string]string{FeatureRecommendation: `{"template_id":"made-up"}`}}
	if got := newTestGenerator(text, nil).RecommendTemplate(context.Background(), profile, templates); got != "warm-bistro" {
		t.Fatalf("expected industry fallback, got %q", got)
	}

	text = &fakeText{responses: map[string]string{FeatureRecommendation: `{"template_id":"BOLD-SHOP","reason":"x"}`}}
	if got := newTestGenerator(text, nil).RecommendTemplate(context.Background(), profile, templates); got != "bold-shop" {
		t.Fatalf("expected model pick, got %q", got)
	}
}

func TestSectionKeepsKnownFieldsAndCount(t *testing.T) {
	text := &fakeText{responses: map[string]string{
		"section_faq": `{"items":[{"question":"Open?","answer":"Daily","extra":"x"},{"question":"Parking?","answer":"Yes"},{"question":"Halal?","answer":"Yes"}]}`,
	}}
	got := newTestGenerator(text, nil).Section(context.Background(), restaurantProfile(), domain.NewContentBundle(), domain.SectionFAQ, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if _, ok := got[0]["extra"]; ok || got[0]["question"] != "Open?" {
		t.Fatalf("unexpected record: %#v", got[0])
	}
	if !strings.Contains(text.requests[0].Prompt, "question, answer") {
		t.Fatalf("prompt should list fields: %q", text.requests[0].Prompt)
	}
}

func TestSectionFailureYieldsNil(t *testing.T) {
	text := &fakeText{errs: map[string]error{"section_menu": errors.New("boom")}}
	if got := newTestGenerator(text, nil).Section(context.Background(), restaurantProfile(), domain.NewContentBundle(), domain.SectionMenu, 3); got != nil {
		t.Fatalf("expected nil, got %#v", got)
	}
}

func TestVarsPreferBundleValues(t *testing.T) {
	profile := restaurantProfile()
	profile.Language = "id"
	vars := Vars(profile, &domain.ContentBundle{Description: "generated", Services: []domain.Service{{Name: "Catering"}}})
	if vars["description"] != "generated" || vars["services"] != "Catering" {
		t.Fatalf("vars = %#v", vars)
	}
	if vars["language"] != "Indonesian (id)" {
		t.Fatalf("language = %q", vars["language"])
	}
	if vars["sections"] != "hero, menu" {
		t.Fatalf("sections = %q", vars["sections"])
	}
}
