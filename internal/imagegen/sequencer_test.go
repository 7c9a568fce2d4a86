package imagegen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"sitegen/internal/domain"
)

type scriptedGenerator struct {
	mu     sync.Mutex
	calls  []domain.ImageRequest
	active int
	peak   int
	fail   func(req domain.ImageRequest, attempt int) error
	hook   func(n int)
}

func (g *scriptedGenerator) Generate(_ context.Context, req domain.ImageRequest) (string, error) {
	g.mu.Lock()
	g.active++
	g.peak = max(g.peak, g.active)
	g.calls = append(g.calls, req)
	attempt := 0
	for _, c := range g.calls {
		if c.Target == req.Target {
			attempt++
		}
	}
	n := len(g.calls)
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.active--
		g.mu.Unlock()
	}()
	if g.hook != nil {
		g.hook(n)
	}
	if g.fail != nil {
		if err := g.fail(req, attempt); err != nil {
			return "", err
		}
	}
	return "https://cdn.test/" + req.RequestID + "/" + req.Target + ".png", nil
}

type sleepLog struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	s.mu.Unlock()
	return ctx.Err()
}

func drafts(sections ...string) []domain.ImageTask {
	out := make([]domain.ImageTask, len(sections))
	for i, s := range sections {
		out[i] = domain.ImageTask{
			ID:        fmt.Sprintf("t%d", i),
			Section:   s,
			FieldPath: fmt.Sprintf("%s.items.%d.imageUrl", s, i),
			Prompt:    "prompt " + s,
			Status:    domain.ImageStatusPending,
		}
	}
	return out
}

func TestOrderPutsLeadSectionsFirst(t *testing.T) {
	in := drafts("menu", "cta", "features", "hero", "banner", "splitHero", "gallery")
	out := Order(in)
	want := []string{"hero", "splitHero", "banner", "cta", "menu", "features", "gallery"}
	for i, w := range want {
		if out[i].Section != w {
			t.Fatalf("position %d = %s, want %s", i, out[i].Section, w)
		}
	}
	if in[0].Section != "menu" {
		t.Fatal("Order must not reorder its input")
	}
}

func TestRunPartialFailureContinuesBatch(t *testing.T) {
	in := drafts("features", "features", "features", "features", "features", "features")
	gen := &scriptedGenerator{fail: func(req domain.ImageRequest, _ int) error {
		if req.Target == in[5].FieldPath {
			return errors.New("content policy violation")
		}
		return nil
	}}
	sleeps := &sleepLog{}
	seq := New(Options{Generator: gen, Delay: time.Second, Sleep: sleeps.sleep})

	var updates []Update
	results := seq.Run(context.Background(), "run-1", in, func(u Update) { updates = append(updates, u) })

	if len(results) != 5 {
		t.Fatalf("expected 5 urls, got %d", len(results))
	}
	last := updates[len(updates)-1]
	if last.Completed != 6 {
		t.Fatalf("completed = %d, want 6", last.Completed)
	}
	failed := last.Tasks[5]
	if failed.Status != domain.ImageStatusFailed || failed.Error != "content policy violation" || failed.Attempts != 1 {
		t.Fatalf("unexpected failed task: %#v", failed)
	}
	if len(gen.calls) != 6 {
		t.Fatalf("non rate-limit errors must not retry, got %d calls", len(gen.calls))
	}
	if len(sleeps.sleeps) != 5 {
		t.Fatalf("expected a delay before every draft but the first, got %v", sleeps.sleeps)
	}
	if gen.calls[0].RequestID != "run-1" {
		t.Fatalf("request id = %q", gen.calls[0].RequestID)
	}
}

func TestRunRetriesOnceAfterRateLimit(t *testing.T) {
	in := drafts("hero", "menu")
	gen := &scriptedGenerator{fail: func(req domain.ImageRequest, attempt int) error {
		if req.Target == in[0].FieldPath && attempt == 1 {
			return &domain.ProviderError{Provider: "gemini", StatusCode: 429, Code: "RESOURCE_EXHAUSTED"}
		}
		if req.Target == in[1].FieldPath {
			return errors.New("daily quota exceeded")
		}
		return nil
	}}
	sleeps := &sleepLog{}
	seq := New(Options{Generator: gen, Delay: time.Second, Sleep: sleeps.sleep})

	var last Update
	results := seq.Run(context.Background(), "run", in, func(u Update) { last = u })

	if _, ok := results[in[0].FieldPath]; !ok || len(results) != 1 {
		t.Fatalf("results = %#v", results)
	}
	if len(gen.calls) != 4 || len(gen.calls) > 2*len(in) {
		t.Fatalf("expected 4 calls, got %d", len(gen.calls))
	}
	want := []time.Duration{5 * time.Second, time.Second, 5 * time.Second}
	if fmt.Sprint(sleeps.sleeps) != fmt.Sprint(want) {
		t.Fatalf("sleeps = %v, want %v", sleeps.sleeps, want)
	}
	if last.Tasks[0].Attempts != 2 || last.Tasks[1].Status != domain.ImageStatusFailed || last.Tasks[1].Attempts != 2 {
		t.Fatalf("unexpected tasks: %#v", last.Tasks)
	}
}

func TestRunIsSequentialAndOrdered(t *testing.T) {
	in := drafts("gallery", "hero", "menu", "cta")
	gen := &scriptedGenerator{}
	var generating []string
	seq := New(Options{Generator: gen})
	seq.Run(context.Background(), "run", in, func(u Update) {
		if u.Current != nil {
			generating = append(generating, u.Current.Section)
			if u.Current.Status != domain.ImageStatusGenerating || u.Current.StartedAt == nil {
				t.Fatalf("current image not marked generating: %#v", u.Current)
			}
		}
	})
	if gen.peak != 1 {
		t.Fatalf("expected strictly sequential calls, peak concurrency %d", gen.peak)
	}
	if fmt.Sprint(generating) != "[hero cta gallery menu]" {
		t.Fatalf("generation order = %v", generating)
	}
}

func TestRunCompletedCountIncreasesByOne(t *testing.T) {
	in := drafts("features", "features", "features")
	prev := 0
	New(Options{Generator: &scriptedGenerator{}}).Run(context.Background(), "run", in, func(u Update) {
		if u.Completed < prev || u.Completed > prev+1 {
			t.Fatalf("completed jumped from %d to %d", prev, u.Completed)
		}
		if u.Completed > len(u.Tasks) {
			t.Fatalf("completed %d exceeds total %d", u.Completed, len(u.Tasks))
		}
		prev = u.Completed
	})
	if prev != 3 {
		t.Fatalf("final completed = %d", prev)
	}
}

func TestRunCancellationResolvesEveryDraft(t *testing.T) {
	in := drafts("hero", "menu", "menu", "menu")
	ctx, cancel := context.WithCancel(context.Background())
	gen := &scriptedGenerator{hook: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	var last Update
	results := New(Options{Generator: gen}).Run(ctx, "run", in, func(u Update) { last = u })

	if len(results) != 2 {
		t.Fatalf("expected the two issued calls to resolve, got %d", len(results))
	}
	if last.Completed != len(in) {
		t.Fatalf("completed = %d", last.Completed)
	}
	for i, task := range last.Tasks {
		if !task.Resolved() {
			t.Fatalf("task %d left %s", i, task.Status)
		}
	}
	if last.Tasks[3].Error != cancelledMessage {
		t.Fatalf("expected cancelled error, got %q", last.Tasks[3].Error)
	}
}

func TestIsRateLimited(t *testing.T) {
	cases := map[error]bool{
		&domain.ProviderError{StatusCode: 429}:               true,
		errors.New("RESOURCE_EXHAUSTED: try later"):          true,
		errors.New("Throttling.RateQuota"):                   true,
		errors.New("request rate exceeded"):                  true,
		errors.New("failed to generate image"):               false,
		&domain.ProviderError{StatusCode: 500, Code: "oops"}: false,
		nil: false,
	}
	for err, want := range cases {
		if got := IsRateLimited(err); got != want {
			t.Fatalf("IsRateLimited(%v) = %v, want %v", err, got, want)
		}
	}
}

func TestRunDelaysOnlyWhenConfigured(t *testing.T) {
	in := drafts("hero", "menu", "menu")

	none := &sleepLog{}
	New(Options{Generator: &scriptedGenerator{}, Sleep: none.sleep}).Run(context.Background(), "run", in, nil)
	if len(none.sleeps) != 0 {
		t.Fatalf("zero delay slept %v", none.sleeps)
	}

	spaced := &sleepLog{}
	New(Options{Generator: &scriptedGenerator{}, Delay: 2 * time.Second, Sleep: spaced.sleep}).Run(context.Background(), "run", in, nil)
	if fmt.Sprint(spaced.sleeps) != "[2s 2s]" {
		t.Fatalf("sleeps = %v, want one delay between each pair of drafts", spaced.sleeps)
	}
}
