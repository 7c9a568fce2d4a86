package pipeline

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"sitegen/internal/adapter/memory"
	"sitegen/internal/content"
	"sitegen/internal/domain"
	"sitegen/internal/imagegen"
	"sitegen/internal/imageplan"
)

type fakeText struct {
	mu   sync.Mutex
	fail map[string]bool
	seen []string
}

func (f *fakeText) Generate(_ context.Context, req domain.TextRequest) (string, error) {
	f.mu.Lock()
	f.seen = append(f.seen, req.Feature)
	failing := f.fail[req.Feature]
	f.mu.Unlock()
	if failing {
		return "", errors.New("upstream unavailable")
	}
	switch {
	case req.Feature == content.FeatureDescription:
		return `{"description":"Home-style cooking since 1998."}`, nil
	case req.Feature == content.FeatureTagline:
		return `{"tagline":"Taste of home"}`, nil
	case req.Feature == content.FeatureServices:
		return `[{"name":"Catering","description":"Events"},{"name":"Delivery","description":"Fast"}]`, nil
	case req.Feature == content.FeatureCategories:
		return `[{"name":"Mains"},{"name":"Drinks"}]`, nil
	case strings.HasPrefix(req.Feature, "section_"):
		return `[{"name":"Rendang","question":"Open?","answer":"Daily","quote":"Great","role":"Guest"},{"name":"Sate","question":"Parking?","answer":"Yes","quote":"Nice","role":"Guest"}]`, nil
	}
	return "", errors.New("unexpected feature " + req.Feature)
}

type fakeImages struct {
	mu      sync.Mutex
	calls   int
	gate    chan struct{}
	entered chan struct{}
	failOn  string
}

func (f *fakeImages) Generate(ctx context.Context, req domain.ImageRequest) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.entered != nil {
		select {
		case f.entered <- struct{}{}:
		default:
		}
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.failOn != "" && req.Target == f.failOn {
		return "", errors.New("safety filter")
	}
	return "https://cdn.test/" + req.Target, nil
}

type recordingStore struct {
	*memory.ProgressStore
	mu    sync.Mutex
	saved []domain.GenerationProgress
}

func (r *recordingStore) Save(ctx context.Context, p domain.GenerationProgress) error {
	r.mu.Lock()
	r.saved = append(r.saved, p.Clone())
	r.mu.Unlock()
	return r.ProgressStore.Save(ctx, p)
}

func (r *recordingStore) snapshots() []domain.GenerationProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.GenerationProgress(nil), r.saved...)
}

type harness struct {
	orch     *Orchestrator
	text     *fakeText
	images   *fakeImages
	progress *recordingStore
	projects *memory.ProjectStore
	shop     *memory.StoreProvisioner
}

func newHarness(t *testing.T, text *fakeText, images *fakeImages) *harness {
	t.Helper()
	templates, err := memory.BuiltinTemplates()
	if err != nil {
		t.Fatalf("load templates: %v", err)
	}
	caller := content.NewCaller(content.CallerOptions{Text: text, Model: "test"})
	h := &harness{
		text:     text,
		images:   images,
		progress: &recordingStore{ProgressStore: memory.NewProgressStore()},
		projects: memory.NewProjectStore(""),
		shop:     memory.NewStoreProvisioner(),
	}
	h.orch = New(Options{
		Content:   content.NewGenerator(caller),
		Planner:   imageplan.New(imageplan.Options{Caller: caller}),
		Sequencer: imagegen.New(imagegen.Options{Generator: images}),
		Templates: templates,
		Progress:  h.progress,
		Projects:  h.projects,
		Store:     h.shop,
	})
	return h
}

func bistroProfile() domain.GenerationProfile {
	return domain.GenerationProfile{
		OwnerID:      "owner-1",
		BusinessName: "Warung Sari",
		Industry:     "restaurant",
		TemplateID:   "warm-bistro",
		Language:     "en",
		Ecommerce:    true,
		Sections: []domain.SectionToggle{
			{Key: "hero", Enabled: true},
			{Key: "about", Enabled: true},
			{Key: "menu", Enabled: true},
			{Key: "faq", Enabled: true},
			{Key: "gallery", Enabled: false},
		},
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRunCompletes(t *testing.T) {
	h := newHarness(t, &fakeText{}, &fakeImages{})
	final, err := h.orch.Run(context.Background(), bistroProfile())
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if final.Phase != domain.PhaseCompleted || final.ProjectID == "" || final.CompletedAt == nil {
		t.Fatalf("unexpected final progress: %#v", final)
	}
	if final.ContentProgress != 100 || final.ImagesCompleted != final.ImagesTotal || final.ImagesTotal == 0 {
		t.Fatalf("counters = %d%% %d/%d", final.ContentProgress, final.ImagesCompleted, final.ImagesTotal)
	}
	id, draft, ok := h.projects.Last()
	if !ok || id != final.ProjectID {
		t.Fatalf("project not created")
	}
	menu := draft.Document.Data["menu"].(map[string]any)["items"].([]any)
	if len(menu) != 2 || menu[0].(map[string]any)["name"] != "Rendang" {
		t.Fatalf("menu = %#v", menu)
	}
	if menu[0].(map[string]any)["imageUrl"] != "https://cdn.test/menu.items.0.imageUrl" {
		t.Fatalf("menu image = %v", menu[0].(map[string]any)["imageUrl"])
	}
	if draft.Document.Data["gallery"].(map[string]any)["items"].([]any)[0].(map[string]any)["imageUrl"] != "/static/templates/warm-bistro/gallery-1.jpg" {
		t.Fatal("disabled gallery must keep its template image")
	}
	if cats := h.shop.Categories(final.ProjectID); len(cats) != 2 {
		t.Fatalf("provisioned categories = %#v", cats)
	}
	if p, _ := h.progress.Load(context.Background()); p != nil {
		t.Fatal("progress must be cleared after completion")
	}
}

func TestDescriptionFailureStillReachesImages(t *testing.T) {
	h := newHarness(t, &fakeText{fail: map[string]bool{content.FeatureDescription: true}}, &fakeImages{})
	profile := bistroProfile()
	profile.Description = ""
	final, err := h.orch.Run(context.Background(), profile)
	if err != nil || final.Phase != domain.PhaseCompleted {
		t.Fatalf("run should complete: %v %s", err, final.Phase)
	}
	_, draft, _ := h.projects.Last()
	body, _ := draft.Document.Data["about"].(map[string]any)["body"].(string)
	if strings.TrimSpace(body) == "" || body == "Tell guests how it all started." {
		t.Fatalf("expected fallback description in about body, got %q", body)
	}
	reachedImages := false
	for _, snap := range h.progress.snapshots() {
		if snap.Phase == domain.PhaseImages {
			reachedImages = true
		}
	}
	if !reachedImages {
		t.Fatal("run never entered images")
	}
}

func TestPartialImageFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, &fakeText{}, &fakeImages{failOn: "hero.imageUrl"})
	final, err := h.orch.Run(context.Background(), bistroProfile())
	if err != nil || final.Phase != domain.PhaseCompleted {
		t.Fatalf("run should complete: %v", err)
	}
	_, draft, _ := h.projects.Last()
	if draft.Document.Data["hero"].(map[string]any)["imageUrl"] != "/static/templates/warm-bistro/hero.jpg" {
		t.Fatal("failed image should leave the template default")
	}
	if final.AllImages[0].Status != domain.ImageStatusFailed || final.AllImages[0].Error != "safety filter" {
		t.Fatalf("hero task = %#v", final.AllImages[0])
	}
}

func TestDuplicateStartIsNoOp(t *testing.T) {
	images := &fakeImages{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	h := newHarness(t, &fakeText{}, images)
	ctx := context.Background()

	runID, err := h.orch.Start(ctx, bistroProfile())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-images.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("image phase never started")
	}
	before := h.orch.Progress()
	if before.Phase != domain.PhaseImages {
		t.Fatalf("phase = %s, want images", before.Phase)
	}

	if _, err := h.orch.Start(ctx, bistroProfile()); !errors.Is(err, domain.ErrAlreadyRunning) {
		t.Fatalf("second Start = %v, want ErrAlreadyRunning", err)
	}
	after := h.orch.Progress()
	if after.RunID != runID || after.Phase != before.Phase || after.ImagesCompleted != before.ImagesCompleted {
		t.Fatalf("duplicate start changed state: %#v", after)
	}

	close(images.gate)
	if err := h.orch.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if h.orch.Progress().Phase != domain.PhaseCompleted {
		t.Fatalf("final phase = %s", h.orch.Progress().Phase)
	}
}

func TestProgressIsMonotonic(t *testing.T) {
	h := newHarness(t, &fakeText{}, &fakeImages{failOn: "menu.items.1.imageUrl"})
	if _, err := h.orch.Run(context.Background(), bistroProfile()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	rank := map[domain.Phase]int{domain.PhaseContent: 1, domain.PhaseImages: 2, domain.PhaseFinalizing: 3, domain.PhaseCompleted: 4}
	snaps := h.progress.snapshots()
	if len(snaps) < 5 {
		t.Fatalf("expected many saves, got %d", len(snaps))
	}
	prev := snaps[0]
	for i, snap := range snaps[1:] {
		if rank[snap.Phase] < rank[prev.Phase] {
			t.Fatalf("snapshot %d: phase went %s -> %s", i+1, prev.Phase, snap.Phase)
		}
		if snap.ImagesCompleted < prev.ImagesCompleted {
			t.Fatalf("snapshot %d: images completed went %d -> %d", i+1, prev.ImagesCompleted, snap.ImagesCompleted)
		}
		if snap.Phase == domain.PhaseContent && snap.ContentProgress < prev.ContentProgress {
			t.Fatalf("snapshot %d: content progress decreased", i+1)
		}
		if snap.ImagesCompleted > snap.ImagesTotal {
			t.Fatalf("snapshot %d: %d completed of %d", i+1, snap.ImagesCompleted, snap.ImagesTotal)
		}
		if snap.CurrentImage != nil {
			found := false
			for _, task := range snap.AllImages {
				if task.ID == snap.CurrentImage.ID {
					found = true
				}
			}
			if !found {
				t.Fatalf("snapshot %d: current image not in allImages", i+1)
			}
		}
		if snap.Error != "" && snap.Phase != domain.PhaseError {
			t.Fatalf("snapshot %d: error set outside error phase", i+1)
		}
		prev = snap
	}
}

func TestMissingTemplateFails(t *testing.T) {
	h := newHarness(t, &fakeText{}, &fakeImages{})
	profile := bistroProfile()
	profile.TemplateID = "nope"
	final, err := h.orch.Run(context.Background(), profile)
	if !errors.Is(err, domain.ErrTemplateNotFound) || final.Phase != domain.PhaseError || !strings.Contains(final.Error, "template not found") {
		t.Fatalf("expected template error, got %v / %#v", err, final)
	}
	if p, _ := h.progress.Load(context.Background()); p == nil || p.Phase != domain.PhaseError {
		t.Fatal("failed run must stay persisted")
	}
	if _, err := h.orch.Run(context.Background(), bistroProfile()); err != nil {
		t.Fatalf("guard not released after error: %v", err)
	}
}

func TestCancelReleasesGuardAndDiscardsStaleRun(t *testing.T) {
	images := &fakeImages{gate: make(chan struct{}), entered: make(chan struct{}, 1)}
	h := newHarness(t, &fakeText{}, images)
	ctx := context.Background()

	first, err := h.orch.Start(ctx, bistroProfile())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-images.entered
	if err := h.orch.Cancel(ctx); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if p := h.orch.Progress(); p.Phase != domain.PhaseIdle {
		t.Fatalf("phase after cancel = %s", p.Phase)
	}
	if err := h.orch.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if p := h.orch.Progress(); p.Phase != domain.PhaseIdle || p.RunID != "" {
		t.Fatalf("stale run mutated state: %#v", p)
	}
	if p, _ := h.progress.Load(ctx); p != nil {
		t.Fatalf("cancel must clear persisted progress, found %s", p.Phase)
	}

	close(images.gate)
	second, err := h.orch.Start(ctx, bistroProfile())
	if err != nil || second == first {
		t.Fatalf("restart = %q, %v", second, err)
	}
	_ = h.orch.Wait(ctx)
	if p := h.orch.Progress(); p.Phase != domain.PhaseCompleted || p.RunID != second {
		t.Fatalf("second run = %#v", p)
	}
}

func TestRestartBeforeCancelledRunIsScheduled(t *testing.T) {
	defer runtime.GOMAXPROCS(runtime.GOMAXPROCS(1))
	images := &fakeImages{gate: make(chan struct{})}
	h := newHarness(t, &fakeText{}, images)
	ctx := context.Background()

	first, err := h.orch.Start(ctx, bistroProfile())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.orch.Cancel(ctx); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	second, err := h.orch.Start(ctx, bistroProfile())
	if err != nil || second == first {
		t.Fatalf("restart = %q, %v", second, err)
	}
	close(images.gate)
	if err := h.orch.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	waitFor(t, "second run to complete", func() bool {
		p := h.orch.Progress()
		return p.Phase == domain.PhaseCompleted && p.RunID == second
	})
	// The cancelled run returns on its own; give it time to close its channel.
	time.Sleep(50 * time.Millisecond)
	if p := h.orch.Progress(); p.RunID != second {
		t.Fatalf("cancelled run replaced the record: %#v", p)
	}
}

func TestLoadMarksInterruptedRun(t *testing.T) {
	h := newHarness(t, &fakeText{}, &fakeImages{})
	stored := domain.NewProgress()
	stored.RunID = "old"
	stored.Phase = domain.PhaseImages
	stored.ImagesTotal = 2
	_ = h.progress.ProgressStore.Save(context.Background(), stored)

	p, err := h.orch.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Phase != domain.PhaseError || p.Error == "" || p.RunID != "old" {
		t.Fatalf("restored progress = %#v", p)
	}
	if h.orch.Active() {
		t.Fatal("restored record must not hold the guard")
	}
	if err := h.orch.Reset(context.Background()); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if h.orch.Progress().Phase != domain.PhaseIdle {
		t.Fatal("Reset did not return to idle")
	}
}

type panicTemplates struct{}

func (panicTemplates) Get(context.Context, string) (domain.Template, error) {
	panic("boom")
}

func (panicTemplates) List(context.Context) ([]domain.TemplateSummary, error) {
	return nil, nil
}

func TestPanicBecomesError(t *testing.T) {
	orch := New(Options{Templates: panicTemplates{}, Progress: memory.NewProgressStore()})
	final, err := orch.Run(context.Background(), bistroProfile())
	if err == nil || final.Phase != domain.PhaseError || !strings.Contains(final.Error, "boom") {
		t.Fatalf("expected recovered panic, got %v %#v", err, final)
	}
}

func TestRegistryKeepsOneOrchestratorPerOwner(t *testing.T) {
	built := 0
	reg := NewRegistry(func(owner string) *Orchestrator {
		built++
		return New(Options{Progress: memory.NewProgressStore()})
	}, nil)
	a, _ := reg.Get(context.Background(), "a")
	b, _ := reg.Get(context.Background(), "a")
	c, _ := reg.Get(context.Background(), "c")
	if a != b || a == c || built != 2 {
		t.Fatalf("registry built %d orchestrators", built)
	}
	if _, err := reg.Get(context.Background(), ""); !errors.Is(err, domain.ErrMissingOwner) {
		t.Fatalf("expected ErrMissingOwner, got %v", err)
	}
	reg.Shutdown()
}
