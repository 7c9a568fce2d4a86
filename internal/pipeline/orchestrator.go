package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sitegen/internal/content"
	"sitegen/internal/domain"
	"sitegen/internal/imagegen"
	"sitegen/internal/imageplan"
	"sitegen/internal/infra"
)

const (
	geocodeTimeout     = 10 * time.Second
	interruptedMessage = "generation interrupted before completion"
)

type Options struct {
	Content   *content.Generator
	Planner   *imageplan.Planner
	Sequencer *imagegen.Sequencer
	Templates domain.TemplateStore
	Progress  domain.ProgressStore
	Projects  domain.ProjectCreator
	// Store and Geocoder are optional.
	Store    domain.StoreProvisioner
	Geocoder domain.Geocoder
	Now      func() time.Time
	NewRunID func() string
	Logger   *infra.Logger
}

// Orchestrator drives one owner's generation runs through the phases
// content, images, finalizing and a terminal completed or error. It owns the
// progress record; every mutation goes through mutate and is tagged with the
// run id, so work left over from a cancelled run cannot touch a newer one.
type Orchestrator struct {
	content   *content.Generator
	planner   *imageplan.Planner
	sequencer *imagegen.Sequencer
	templates domain.TemplateStore
	store     domain.ProgressStore
	projects  domain.ProjectCreator
	shop      domain.StoreProvisioner
	geocoder  domain.Geocoder
	now       func() time.Time
	newRunID  func() string
	logger    *infra.Logger

	mu       sync.Mutex
	progress domain.GenerationProgress
	runID    string
	cancel   context.CancelFunc
	done     chan struct{}

	// saveMu orders persistence against Cancel and Reset.
	saveMu sync.Mutex
}

func New(opts Options) *Orchestrator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newRunID := opts.NewRunID
	if newRunID == nil {
		newRunID = uuid.NewString
	}
	planner := opts.Planner
	if planner == nil {
		planner = imageplan.New(imageplan.Options{Logger: opts.Logger})
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Orchestrator{
		content:   opts.Content,
		planner:   planner,
		sequencer: opts.Sequencer,
		templates: opts.Templates,
		store:     opts.Progress,
		projects:  opts.Projects,
		shop:      opts.Store,
		geocoder:  opts.Geocoder,
		now:       now,
		newRunID:  newRunID,
		logger:    logger,
		progress:  domain.NewProgress(),
	}
}

// Progress returns a snapshot of the current record.
func (o *Orchestrator) Progress() domain.GenerationProgress {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.progress.Clone()
}

// Active reports whether a run holds the guard.
func (o *Orchestrator) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeLocked()
}

func (o *Orchestrator) activeLocked() bool {
	return o.runID != "" && !o.progress.Phase.Terminal() && o.progress.Phase != domain.PhaseIdle
}

// Start begins a run in the background and returns its id. A call while a run
// is active returns ErrAlreadyRunning and changes nothing.
func (o *Orchestrator) Start(ctx context.Context, profile domain.GenerationProfile) (string, error) {
	runCtx, runID, done, err := o.begin(ctx, profile)
	if err != nil {
		return "", err
	}
	go o.execute(runCtx, runID, done, profile.Clone())
	return runID, nil
}

// Run executes a whole run on the calling goroutine and returns the final
// record together with the error that ended the run, if any.
func (o *Orchestrator) Run(ctx context.Context, profile domain.GenerationProfile) (domain.GenerationProgress, error) {
	runCtx, runID, done, err := o.begin(ctx, profile)
	if err != nil {
		return o.Progress(), err
	}
	err = o.execute(runCtx, runID, done, profile.Clone())
	return o.Progress(), err
}

// Wait blocks until the latest run has returned or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel stops the active run, returns to idle and clears persisted progress.
// Calls already issued to the endpoints are abandoned, not awaited.
func (o *Orchestrator) Cancel(ctx context.Context) error {
	o.mu.Lock()
	runID := o.runID
	if o.cancel != nil {
		o.cancel()
	}
	o.runID = ""
	o.cancel = nil
	o.progress = domain.NewProgress()
	o.mu.Unlock()

	if runID != "" {
		o.logger.Info().Str("run_id", runID).Msg("generation cancelled")
	}
	return o.clearStore(ctx)
}

// Stop cancels the active run and keeps its record as it is.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
}

// Reset discards a finished or failed run so a fresh one can start.
func (o *Orchestrator) Reset(ctx context.Context) error {
	o.mu.Lock()
	if o.activeLocked() {
		o.mu.Unlock()
		return domain.ErrAlreadyRunning
	}
	o.runID = ""
	o.progress = domain.NewProgress()
	o.mu.Unlock()
	return o.clearStore(ctx)
}

// Load restores the persisted record when nothing is running. A record left in
// a working phase by a previous process is moved to error; execution is never
// resumed mid-phase.
func (o *Orchestrator) Load(ctx context.Context) (domain.GenerationProgress, error) {
	if o.store == nil {
		return o.Progress(), nil
	}
	stored, err := o.store.Load(ctx)
	if err != nil {
		return o.Progress(), fmt.Errorf("load progress: %w", err)
	}
	if stored == nil {
		return o.Progress(), nil
	}

	o.mu.Lock()
	if o.runID != "" || o.progress.Phase != domain.PhaseIdle {
		snap := o.progress.Clone()
		o.mu.Unlock()
		return snap, nil
	}
	restored := stored.Clone()
	interrupted := !restored.Phase.Terminal() && restored.Phase != domain.PhaseIdle
	if interrupted {
		now := o.now()
		restored.Phase = domain.PhaseError
		restored.Error = interruptedMessage
		restored.CurrentImage = nil
		restored.CompletedAt = &now
	}
	o.progress = restored
	snap := o.progress.Clone()
	o.mu.Unlock()

	if interrupted {
		o.save(ctx, "", snap)
	}
	return snap, nil
}

func (o *Orchestrator) begin(ctx context.Context, profile domain.GenerationProfile) (context.Context, string, chan struct{}, error) {
	if profile.TemplateID == "" {
		return nil, "", nil, fmt.Errorf("%w: template id is required", domain.ErrInvalidProfile)
	}

	o.mu.Lock()
	if o.activeLocked() {
		o.mu.Unlock()
		return nil, "", nil, domain.ErrAlreadyRunning
	}
	runID := o.newRunID()
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	started := o.now()
	next := domain.NewProgress()
	next.RunID = runID
	next.Phase = domain.PhaseContent
	next.StartedAt = &started
	o.progress = next
	o.runID = runID
	o.cancel = cancel
	done := make(chan struct{})
	o.done = done
	snap := o.progress.Clone()
	o.mu.Unlock()

	o.logger.Info().
		Str("run_id", runID).
		Str("owner_id", profile.OwnerID).
		Str("template_id", profile.TemplateID).
		Msg("generation started")
	o.save(runCtx, runID, snap)
	return runCtx, runID, done, nil
}

// mutate applies fn to the live record when runID is still current, then
// persists the result. Stale runs get ErrStaleRun.
func (o *Orchestrator) mutate(ctx context.Context, runID string, fn func(p *domain.GenerationProgress) error) error {
	o.mu.Lock()
	if runID == "" || runID != o.runID {
		o.mu.Unlock()
		return domain.ErrStaleRun
	}
	work := o.progress.Clone()
	if err := fn(&work); err != nil {
		o.mu.Unlock()
		return err
	}
	o.progress = work
	snap := work.Clone()
	o.mu.Unlock()

	o.save(ctx, runID, snap)
	return nil
}

func (o *Orchestrator) transition(ctx context.Context, runID string, to domain.Phase, fn func(p *domain.GenerationProgress)) error {
	err := o.mutate(ctx, runID, func(p *domain.GenerationProgress) error {
		if !domain.CanTransition(p.Phase, to) {
			return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, p.Phase, to)
		}
		p.Phase = to
		if fn != nil {
			fn(p)
		}
		return nil
	})
	if err == nil {
		o.logger.Info().Str("run_id", runID).Str("phase", string(to)).Msg("phase entered")
	}
	return err
}

func (o *Orchestrator) fail(ctx context.Context, runID string, cause error) {
	err := o.transition(ctx, runID, domain.PhaseError, func(p *domain.GenerationProgress) {
		now := o.now()
		p.Error = cause.Error()
		p.CurrentImage = nil
		p.CompletedAt = &now
	})
	if err != nil && !errors.Is(err, domain.ErrStaleRun) {
		o.logger.Error().Err(err).Str("run_id", runID).Msg("could not record failure")
		return
	}
	if err == nil {
		o.logger.Error().Err(cause).Str("run_id", runID).Msg("generation failed")
	}
}

// save persists snap unless the run it belongs to has been replaced. An empty
// runID saves unconditionally. Failures are logged, never returned.
func (o *Orchestrator) save(ctx context.Context, runID string, snap domain.GenerationProgress) {
	if o.store == nil {
		return
	}
	o.saveMu.Lock()
	defer o.saveMu.Unlock()
	if runID != "" {
		o.mu.Lock()
		current := o.runID == runID
		o.mu.Unlock()
		if !current {
			return
		}
	}
	if err := o.store.Save(context.WithoutCancel(ctx), snap); err != nil {
		o.logger.Warn().Err(err).Str("run_id", snap.RunID).Str("phase", string(snap.Phase)).Msg("progress save failed")
	}
}

func (o *Orchestrator) clearStore(ctx context.Context) error {
	if o.store == nil {
		return nil
	}
	o.saveMu.Lock()
	defer o.saveMu.Unlock()
	if err := o.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	return nil
}
