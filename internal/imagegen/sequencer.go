package imagegen

import (
	"context"
	"errors"
	"io"
	"regexp"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"sitegen/internal/domain"
	"sitegen/internal/infra"
)

const (
	DefaultCallTimeout = 90 * time.Second
	// DefaultMaxAttempts is the per-draft attempt cap.
	DefaultMaxAttempts = 2
)

const cancelledMessage = "generation cancelled"

// leadSections run before every other section, in this order.
var leadSections = []string{
	domain.SectionHero,
	domain.SectionSplitHero,
	domain.SectionBanner,
	domain.SectionCTA,
}

var rateLimitPattern = regexp.MustCompile(`(?i)\b429\b|\brate\b|rate[ _-]?limit|quota|resource_exhausted|too many requests`)

// Update is handed to the emitter whenever a draft changes state. Tasks is a
// copy of the whole list; Current is the draft being generated, if any.
type Update struct {
	Completed int
	Tasks     []domain.ImageTask
	Current   *domain.ImageTask
}

// Emitter receives progress updates. It runs on the sequencer goroutine.
type Emitter func(Update)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

type Options struct {
	Generator domain.ImageGenerator
	// Delay is inserted before every draft but the first. Zero runs the drafts
	// back to back; IMAGE_REQUEST_DELAY supplies the service default.
	Delay time.Duration
	// Backoff is waited after a rate-limited attempt. Defaults to 5x Delay.
	Backoff     time.Duration
	CallTimeout time.Duration
	MaxAttempts int
	Resolution  string
	Model       string
	// PersonPolicy is forwarded to the image endpoint unchanged.
	PersonPolicy string
	Sleep        SleepFunc
	Now          func() time.Time
	Logger       *infra.Logger
}

// Sequencer executes image drafts strictly one at a time.
type Sequencer struct {
	gen          domain.ImageGenerator
	delay        time.Duration
	backoff      time.Duration
	callTimeout  time.Duration
	maxAttempts  int
	resolution   string
	model        string
	personPolicy string
	sleep        SleepFunc
	now          func() time.Time
	logger       *infra.Logger
}

func New(opts Options) *Sequencer {
	delay := opts.Delay
	if delay < 0 {
		delay = 0
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 5 * delay
	}
	callTimeout := opts.CallTimeout
	if callTimeout <= 0 {
		callTimeout = DefaultCallTimeout
	}
	attempts := opts.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Sequencer{
		gen:          opts.Generator,
		delay:        delay,
		backoff:      backoff,
		callTimeout:  callTimeout,
		maxAttempts:  attempts,
		resolution:   opts.Resolution,
		model:        opts.Model,
		personPolicy: opts.PersonPolicy,
		sleep:        sleep,
		now:          now,
		logger:       logger,
	}
}

// Order returns a copy of drafts with the lead sections first. Everything else
// keeps its planned order.
func Order(drafts []domain.ImageTask) []domain.ImageTask {
	out := make([]domain.ImageTask, len(drafts))
	copy(out, drafts)
	rank := func(section string) int {
		for i, s := range leadSections {
			if s == section {
				return i
			}
		}
		return len(leadSections)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return rank(out[i].Section) < rank(out[j].Section)
	})
	return out
}

// Run generates every draft in Order and returns the URLs of the drafts that
// succeeded, keyed by field path. runID only shapes stored object keys.
// Every draft ends completed or failed; on cancellation the drafts not yet
// generated are failed.
func (s *Sequencer) Run(ctx context.Context, runID string, drafts []domain.ImageTask, emit Emitter) map[string]string {
	if emit == nil {
		emit = func(Update) {}
	}
	tasks := Order(drafts)
	results := make(map[string]string, len(tasks))
	completed := 0

	for i := range tasks {
		if i > 0 && s.delay > 0 {
			if err := s.sleep(ctx, s.delay); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}

		task := &tasks[i]
		started := s.now()
		task.Status = domain.ImageStatusGenerating
		task.StartedAt = &started
		emit(snapshot(completed, tasks, task))

		url, err := s.generate(ctx, runID, task)
		finished := s.now()
		task.CompletedAt = &finished
		if err != nil {
			task.Status = domain.ImageStatusFailed
			task.Error = err.Error()
			s.logger.Warn().Err(err).
				Str("run_id", runID).
				Str("field_path", task.FieldPath).
				Int("attempts", task.Attempts).
				Msg("image draft failed")
		} else {
			task.Status = domain.ImageStatusCompleted
			task.URL = url
			task.Error = ""
			results[task.FieldPath] = url
			s.logger.Info().
				Str("run_id", runID).
				Str("field_path", task.FieldPath).
				Dur("elapsed", finished.Sub(started)).
				Msg("image draft completed")
		}
		completed++
		emit(snapshot(completed, tasks, nil))
	}

	if completed < len(tasks) {
		finished := s.now()
		for i := range tasks {
			if tasks[i].Resolved() {
				continue
			}
			tasks[i].Status = domain.ImageStatusFailed
			tasks[i].Error = cancelledMessage
			tasks[i].CompletedAt = &finished
			completed++
		}
		s.logger.Info().Str("run_id", runID).Int("succeeded", len(results)).Msg("image sequence cancelled")
		emit(snapshot(completed, tasks, nil))
	}
	return results
}

func (s *Sequencer) generate(ctx context.Context, runID string, task *domain.ImageTask) (string, error) {
	if s.gen == nil {
		return "", errors.New("image endpoint not configured")
	}
	req := domain.ImageRequest{
		Prompt:       task.Prompt,
		AspectRatio:  task.AspectRatio,
		Style:        task.Style,
		Resolution:   s.resolution,
		Model:        s.model,
		PersonPolicy: s.personPolicy,
		RequestID:    runID,
		Target:       task.FieldPath,
	}
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		task.Attempts = attempt
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		url, err := s.gen.Generate(callCtx, req)
		cancel()
		if err == nil {
			return url, nil
		}
		lastErr = err
		if ctx.Err() != nil || attempt == s.maxAttempts || !IsRateLimited(err) {
			break
		}
		s.logger.Warn().Err(err).
			Str("field_path", task.FieldPath).
			Dur("backoff", s.backoff).
			Msg("image endpoint rate limited, backing off")
		if err := s.sleep(ctx, s.backoff); err != nil {
			break
		}
	}
	return "", lastErr
}

// IsRateLimited reports whether err signals upstream throttling: an HTTP 429
// or a quota or rate keyword in the message.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrRateLimited) {
		return true
	}
	var status interface{ HTTPStatus() int }
	if errors.As(err, &status) && status.HTTPStatus() == 429 {
		return true
	}
	return rateLimitPattern.MatchString(err.Error())
}

func snapshot(completed int, tasks []domain.ImageTask, current *domain.ImageTask) Update {
	p := domain.GenerationProgress{AllImages: tasks, CurrentImage: current}.Clone()
	return Update{Completed: completed, Tasks: p.AllImages, Current: p.CurrentImage}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
