package merge

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"sitegen/internal/domain"
)

const templateJSON = `{
  "hero": {"headline": "Your headline", "subheadline": "Sub", "imageUrl": "/static/hero.jpg"},
  "about": {"title": "About", "body": "Lorem ipsum"},
  "faq": {"title": "FAQ", "items": [
    {"question": "Q1", "answer": "A1"},
    {"question": "Q2", "answer": "A2"},
    {"question": "Q3", "answer": "A3"}
  ]},
  "menu": {"title": "Menu", "items": [
    {"name": "Dish 1", "price": "0", "imageUrl": "/static/d1.jpg"},
    {"name": "Dish 2", "price": "0", "imageUrl": "/static/d2.jpg"}
  ]},
  "team": {"title": "Team", "items": [{"name": "Person", "role": "Role", "photoUrl": "/static/p.jpg"}]},
  "contact": {"title": "Contact", "address": "", "email": "", "coordinates": null},
  "gallery": {"title": "Gallery", "items": [{"imageUrl": "/static/g1.jpg"}]}
}`

func loadTemplate(t *testing.T) domain.Template {
	t.Helper()
	var data map[string]any
	if err := json.Unmarshal([]byte(templateJSON), &data); err != nil {
		t.Fatalf("decode template: %v", err)
	}
	return domain.Template{
		ID:            "warm-bistro",
		Theme:         "terracotta",
		SchemaVersion: "1.2.0",
		Sections:      []string{"hero", "about", "menu", "team", "faq", "gallery", "contact"},
		Data:          data,
	}
}

func profile(enabled ...string) domain.GenerationProfile {
	p := domain.GenerationProfile{BusinessName: "Warung Sari", Language: "id", Contact: domain.Contact{Address: "Jl. Melati 3"}}
	on := map[string]bool{}
	for _, k := range enabled {
		on[k] = true
	}
	for _, k := range []string{"hero", "about", "menu", "team", "faq", "gallery", "contact"} {
		p.Sections = append(p.Sections, domain.SectionToggle{Key: k, Enabled: on[k]})
	}
	return p
}

func faqRecords(n int) []domain.Record {
	out := make([]domain.Record, n)
	for i := range out {
		out[i] = domain.Record{"question": string(rune('a' + i)), "answer": "x"}
	}
	return out
}

func TestMergeCapsListToTemplateSlots(t *testing.T) {
	tpl := loadTemplate(t)
	bundle := domain.NewContentBundle()
	bundle.Sections["faq"] = faqRecords(8)

	doc := Merge(tpl, profile("faq"), nil, bundle)
	items := doc.Data["faq"].(map[string]any)["items"].([]any)
	if len(items) != 3 {
		t.Fatalf("expected 3 faq entries, got %d", len(items))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got := items[i].(map[string]any)["question"]; got != want {
			t.Fatalf("item %d question = %v, want %s", i, got, want)
		}
	}
}

func TestMergeHardCap(t *testing.T) {
	tpl := loadTemplate(t)
	many := make([]any, 20)
	for i := range many {
		many[i] = map[string]any{"question": "q"}
	}
	tpl.Data["faq"].(map[string]any)["items"] = many
	bundle := domain.NewContentBundle()
	bundle.Sections["faq"] = faqRecords(15)

	doc := Merge(tpl, profile("faq"), nil, bundle)
	if n := len(doc.Data["faq"].(map[string]any)["items"].([]any)); n != HardCaps["faq"] {
		t.Fatalf("expected hard cap %d, got %d", HardCaps["faq"], n)
	}
}

func TestMergeLeavesTemplateUntouched(t *testing.T) {
	tpl := loadTemplate(t)
	before := loadTemplate(t)
	bundle := domain.NewContentBundle()
	bundle.Sections["menu"] = []domain.Record{{"name": "Rendang", "price": "45000"}}
	bundle.Description = "Generated"

	Merge(tpl, profile("hero", "about", "menu"), map[string]string{"hero.imageUrl": "https://cdn/h.png"}, bundle)
	if !reflect.DeepEqual(tpl.Data, before.Data) {
		t.Fatal("Merge mutated the input template")
	}
}

func TestMergeSectionWithoutContentKeepsTemplateExceptImages(t *testing.T) {
	tpl := loadTemplate(t)
	images := map[string]string{"menu.items.1.imageUrl": "https://cdn/d2.png"}
	doc := Merge(tpl, profile("menu"), images, domain.NewContentBundle())

	menu := doc.Data["menu"].(map[string]any)
	items := menu["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("menu items = %d", len(items))
	}
	first := items[0].(map[string]any)
	second := items[1].(map[string]any)
	if first["name"] != "Dish 1" || first["imageUrl"] != "/static/d1.jpg" {
		t.Fatalf("untouched item changed: %#v", first)
	}
	if second["imageUrl"] != "https://cdn/d2.png" || second["name"] != "Dish 2" {
		t.Fatalf("image not applied: %#v", second)
	}
	if menu["title"] != "Menu Kami" {
		t.Fatalf("title label = %v", menu["title"])
	}
}

func TestMergeOverlaysRecordsOnTemplateItems(t *testing.T) {
	tpl := loadTemplate(t)
	bundle := domain.NewContentBundle()
	bundle.Sections["menu"] = []domain.Record{{"name": "Rendang"}, {"name": "Sate"}, {"name": "Soto"}}
	images := map[string]string{"menu.items.0.imageUrl": "https://cdn/r.png", "menu.items.5.imageUrl": "https://cdn/none.png"}

	doc := Merge(tpl, profile("menu"), images, bundle)
	items := doc.Data["menu"].(map[string]any)["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("expected min(3 generated, 2 slots) entries, got %d", len(items))
	}
	first := items[0].(map[string]any)
	if first["name"] != "Rendang" || first["imageUrl"] != "https://cdn/r.png" || first["price"] != "0" {
		t.Fatalf("unexpected first item: %#v", first)
	}
}

func TestMergeSkipsDisabledSections(t *testing.T) {
	tpl := loadTemplate(t)
	bundle := domain.NewContentBundle()
	bundle.Sections["team"] = []domain.Record{{"name": "Sari", "role": "Chef"}}
	doc := Merge(tpl, profile("hero"), map[string]string{"gallery.items.0.imageUrl": "https://cdn/g.png"}, bundle)

	team := doc.Data["team"].(map[string]any)
	if team["items"].([]any)[0].(map[string]any)["name"] != "Person" {
		t.Fatal("disabled section received content")
	}
	if doc.Data["gallery"].(map[string]any)["items"].([]any)[0].(map[string]any)["imageUrl"] != "/static/g1.jpg" {
		t.Fatal("disabled section received an image")
	}
	if doc.Visibility["team"] || !doc.Visibility["hero"] {
		t.Fatalf("visibility = %#v", doc.Visibility)
	}
}

func TestMergeTextAndNavigation(t *testing.T) {
	tpl := loadTemplate(t)
	bundle := domain.NewContentBundle()
	bundle.Description = "Masakan rumahan."
	bundle.Tagline = "Rasa rumah"
	doc := Merge(tpl, profile("hero", "about", "contact"), nil, bundle, WithCoordinates(domain.Coordinates{Lat: -6.2, Lng: 106.8}))

	hero := doc.Data["hero"].(map[string]any)
	if hero["headline"] != "Warung Sari" || hero["subheadline"] != "Rasa rumah" {
		t.Fatalf("hero = %#v", hero)
	}
	if doc.Data["about"].(map[string]any)["body"] != "Masakan rumahan." {
		t.Fatalf("about = %#v", doc.Data["about"])
	}
	contact := doc.Data["contact"].(map[string]any)
	if contact["address"] != "Jl. Melati 3" || contact["email"] != "" {
		t.Fatalf("contact = %#v", contact)
	}
	if coords, ok := contact["coordinates"].(map[string]any); !ok || coords["lat"] != -6.2 {
		t.Fatalf("coordinates = %#v", contact["coordinates"])
	}
	if doc.Locale != "id" || doc.Theme != "terracotta" {
		t.Fatalf("locale/theme = %s/%s", doc.Locale, doc.Theme)
	}
	want := []domain.NavItem{{Label: "Beranda", Anchor: "#hero"}, {Label: "Tentang Kami", Anchor: "#about"}, {Label: "Hubungi Kami", Anchor: "#contact"}}
	if !reflect.DeepEqual(doc.Navigation, want) {
		t.Fatalf("navigation = %#v", doc.Navigation)
	}
}

func TestMergeIsDeterministic(t *testing.T) {
	tpl := loadTemplate(t)
	bundle := domain.NewContentBundle()
	bundle.Sections["faq"] = faqRecords(2)
	images := map[string]string{"hero.imageUrl": "a", "menu.items.0.imageUrl": "b"}
	a := Merge(tpl, profile("hero", "faq", "menu"), images, bundle)
	b := Merge(tpl, profile("hero", "faq", "menu"), images, bundle)
	if !reflect.DeepEqual(a, b) {
		t.Fatal("identical inputs produced different documents")
	}
}

func TestResolveLocale(t *testing.T) {
	cases := map[string]string{"id": "id", "en-US": "en", "fr": "en", "": "en", "id-ID": "id"}
	for in, want := range cases {
		if got := ResolveLocale(in).String(); got != want {
			t.Fatalf("ResolveLocale(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestCheckCompatible(t *testing.T) {
	if err := CheckCompatible(domain.Template{ID: "a", SchemaVersion: "1.4.2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := CheckCompatible(domain.Template{ID: "b"}); err != nil {
		t.Fatalf("empty version should be accepted: %v", err)
	}
	for _, v := range []string{"2.0.0", "0.9.0", "not-a-version"} {
		if err := CheckCompatible(domain.Template{ID: "c", SchemaVersion: v}); !errors.Is(err, domain.ErrIncompatible) {
			t.Fatalf("version %s: expected ErrIncompatible, got %v", v, err)
		}
	}
}
