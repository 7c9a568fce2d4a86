package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"sitegen/internal/domain"
	"sitegen/internal/imagegen"
	"sitegen/internal/merge"
)

// execute runs the phases of runID and closes done when it returns. done is
// the channel begin created for this run, never a later one.
func (o *Orchestrator) execute(ctx context.Context, runID string, done chan struct{}, profile domain.GenerationProfile) (err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().Str("run_id", runID).Bytes("stack", debug.Stack()).Msgf("generation panic: %v", r)
			err = fmt.Errorf("internal error: %v", r)
			o.fail(ctx, runID, err)
		}
		o.release(runID)
		close(done)
	}()

	err = o.runPhases(ctx, runID, profile)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrStaleRun), ctx.Err() != nil:
		o.logger.Info().Str("run_id", runID).Msg("generation stopped")
	default:
		o.fail(ctx, runID, err)
	}
	return err
}

func (o *Orchestrator) runPhases(ctx context.Context, runID string, profile domain.GenerationProfile) error {
	if o.templates == nil {
		return errors.New("template store not configured")
	}
	tpl, err := o.templates.Get(ctx, profile.TemplateID)
	if err != nil {
		return fmt.Errorf("load template %s: %w", profile.TemplateID, err)
	}
	if err := merge.CheckCompatible(tpl); err != nil {
		return err
	}

	bundle, err := o.contentPhase(ctx, runID, profile, tpl)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	images, err := o.imagesPhase(ctx, runID, profile, tpl, bundle)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return o.finalizePhase(ctx, runID, profile, tpl, bundle, images)
}

func (o *Orchestrator) contentPhase(ctx context.Context, runID string, profile domain.GenerationProfile, tpl domain.Template) (domain.ContentBundle, error) {
	bundle := domain.NewContentBundle()
	if o.content == nil {
		return bundle, errors.New("content generator not configured")
	}

	type sectionJob struct {
		key   string
		count int
	}
	var sections []sectionJob
	for _, key := range domain.ListSections {
		if !profile.SectionEnabled(key) {
			continue
		}
		slots := len(domain.Items(tpl.Section(key)))
		if hard, ok := merge.HardCaps[key]; ok {
			slots = min(slots, hard)
		}
		if slots > 0 {
			sections = append(sections, sectionJob{key: key, count: slots})
		}
	}
	total := 3 + len(sections)
	if profile.Ecommerce {
		total++
	}
	step := 0
	advance := func() error {
		step++
		pct := min(100, step*100/total)
		if err := ctx.Err(); err != nil {
			return err
		}
		return o.mutate(ctx, runID, func(p *domain.GenerationProgress) error {
			p.ContentProgress = max(p.ContentProgress, pct)
			return nil
		})
	}

	bundle.Description = o.content.Description(ctx, profile)
	if err := advance(); err != nil {
		return bundle, err
	}
	bundle.Tagline = o.content.Tagline(ctx, profile, bundle.Description)
	if err := advance(); err != nil {
		return bundle, err
	}
	bundle.Services = o.content.Services(ctx, profile, bundle.Description)
	if err := advance(); err != nil {
		return bundle, err
	}
	if profile.Ecommerce {
		bundle.Categories = o.content.Categories(ctx, profile, bundle.Description)
		if err := advance(); err != nil {
			return bundle, err
		}
	}
	for _, job := range sections {
		if records := o.content.Section(ctx, profile, bundle, job.key, job.count); len(records) > 0 {
			bundle.Sections[job.key] = records
		}
		if err := advance(); err != nil {
			return bundle, err
		}
	}
	o.logger.Info().
		Str("run_id", runID).
		Int("sections", len(bundle.Sections)).
		Int("services", len(bundle.Services)).
		Msg("content generated")
	return bundle, nil
}

func (o *Orchestrator) imagesPhase(ctx context.Context, runID string, profile domain.GenerationProfile, tpl domain.Template, bundle domain.ContentBundle) (map[string]string, error) {
	if err := o.transition(ctx, runID, domain.PhaseImages, func(p *domain.GenerationProgress) {
		p.ContentProgress = 100
	}); err != nil {
		return nil, err
	}

	drafts := imagegen.Order(o.planner.Plan(ctx, tpl, profile, bundle))
	if err := o.mutate(ctx, runID, func(p *domain.GenerationProgress) error {
		p.AllImages = drafts
		p.ImagesTotal = len(drafts)
		p.ImagesCompleted = 0
		return nil
	}); err != nil {
		return nil, err
	}
	if o.sequencer == nil {
		return nil, errors.New("image sequencer not configured")
	}

	images := o.sequencer.Run(ctx, runID, drafts, func(u imagegen.Update) {
		_ = o.mutate(ctx, runID, func(p *domain.GenerationProgress) error {
			p.AllImages = u.Tasks
			p.ImagesCompleted = max(p.ImagesCompleted, min(u.Completed, p.ImagesTotal))
			p.CurrentImage = nil
			if u.Current != nil {
				for i := range p.AllImages {
					if p.AllImages[i].ID == u.Current.ID {
						p.CurrentImage = &p.AllImages[i]
						break
					}
				}
			}
			return nil
		})
	})
	return images, nil
}

func (o *Orchestrator) finalizePhase(ctx context.Context, runID string, profile domain.GenerationProfile, tpl domain.Template, bundle domain.ContentBundle, images map[string]string) error {
	if err := o.transition(ctx, runID, domain.PhaseFinalizing, func(p *domain.GenerationProgress) {
		p.CurrentImage = nil
	}); err != nil {
		return err
	}

	var opts []merge.Option
	if coords, ok := o.geocode(ctx, runID, profile.Contact.Address); ok {
		opts = append(opts, merge.WithCoordinates(coords))
	}
	doc := merge.Merge(tpl, profile, images, bundle, opts...)

	if o.projects == nil {
		return errors.New("project creator not configured")
	}
	projectID, err := o.projects.Create(ctx, domain.ProjectDraft{
		OwnerID:    profile.OwnerID,
		RunID:      runID,
		Name:       profile.BusinessName,
		Document:   doc,
		Categories: bundle.Categories,
	})
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	if profile.Ecommerce && o.shop != nil && len(bundle.Categories) > 0 {
		if err := o.shop.Provision(ctx, projectID, bundle.Categories); err != nil {
			return fmt.Errorf("provision store: %w", err)
		}
	}

	if err := o.transition(ctx, runID, domain.PhaseCompleted, func(p *domain.GenerationProgress) {
		now := o.now()
		p.ProjectID = projectID
		p.CompletedAt = &now
	}); err != nil {
		return err
	}
	o.logger.Info().
		Str("run_id", runID).
		Str("project_id", projectID).
		Int("images", len(images)).
		Msg("generation completed")
	if err := o.clearStore(ctx); err != nil {
		o.logger.Warn().Err(err).Str("run_id", runID).Msg("clear progress after completion failed")
	}
	return nil
}

func (o *Orchestrator) geocode(ctx context.Context, runID, address string) (domain.Coordinates, bool) {
	if o.geocoder == nil || address == "" {
		return domain.Coordinates{}, false
	}
	lookupCtx, cancel := context.WithTimeout(ctx, geocodeTimeout)
	defer cancel()
	coords, ok, err := o.geocoder.Lookup(lookupCtx, address)
	if err != nil {
		o.logger.Warn().Err(err).Str("run_id", runID).Msg("geocode failed")
		return domain.Coordinates{}, false
	}
	return coords, ok
}

// release drops the cancel func of a finished run. The phase itself already
// frees the guard once it is terminal.
func (o *Orchestrator) release(runID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runID == runID && o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}
