// Command generate runs one storefront generation from a profile JSON file
// and writes the merged site document.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sitegen/internal/adapter/memory"
	"sitegen/internal/content"
	"sitegen/internal/domain"
	"sitegen/internal/domain/jsoncfg"
	"sitegen/internal/imagegen"
	"sitegen/internal/imageplan"
	"sitegen/internal/infra"
	"sitegen/internal/pipeline"
	"sitegen/internal/providers"
	"sitegen/internal/providers/geocode"
	"sitegen/internal/storage"
)

func main() {
	var (
		profileFlag  string
		outFlag      string
		projectsFlag string
		ownerFlag    string
		geocodeFlag  bool
	)
	flag.StringVar(&profileFlag, "profile", "", "path to the onboarding profile JSON")
	flag.StringVar(&outFlag, "out", "", "write the merged document here instead of stdout")
	flag.StringVar(&projectsFlag, "projects", "", "directory that receives one JSON file per created project")
	flag.StringVar(&ownerFlag, "owner", "cli", "owner id recorded on the project")
	flag.BoolVar(&geocodeFlag, "geocode", false, "geocode the contact address")
	flag.Parse()

	if profileFlag == "" {
		exitWithError(fmt.Errorf("-profile is required"))
	}
	cfg := infra.LoadPipelineConfig()
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel).With().Str("cmd", "generate").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	profile, err := readProfile(profileFlag, ownerFlag)
	if err != nil {
		exitWithError(err)
	}

	templates, err := memory.BuiltinTemplates()
	if err != nil {
		exitWithError(fmt.Errorf("load templates: %w", err))
	}
	store, err := storage.New(ctx, cfg)
	if err != nil {
		exitWithError(fmt.Errorf("configure storage: %w", err))
	}

	httpClient := &http.Client{Timeout: 2 * time.Minute}
	keys := providers.ResolveKeys(ctx, cfg, nil, &logger)
	text, textModel, err := providers.Text(cfg, keys, httpClient, &logger)
	if err != nil {
		exitWithError(err)
	}
	images, imageModel, err := providers.Image(cfg, keys, store, httpClient, &logger)
	if err != nil {
		exitWithError(err)
	}

	caller := content.NewCaller(content.CallerOptions{
		Text:    text,
		Model:   textModel,
		Timeout: cfg.ContentCallTimeout,
		Logger:  &logger,
	})
	projects := memory.NewProjectStore(projectsFlag)
	opts := pipeline.Options{
		Content: content.NewGenerator(caller),
		Planner: imageplan.New(imageplan.Options{Caller: caller, Logger: &logger}),
		Sequencer: imagegen.New(imagegen.Options{
			Generator:   images,
			Delay:       cfg.ImageRequestDelay,
			Backoff:     cfg.ImageRateLimitBackoff,
			CallTimeout: cfg.ImageCallTimeout,
			Model:       imageModel,
			Logger:      &logger,
		}),
		Templates: templates,
		Progress:  memory.NewProgressStore(),
		Projects:  projects,
		Store:     memory.NewStoreProvisioner(),
		Logger:    &logger,
	}
	if geocodeFlag {
		opts.Geocoder = geocode.NewNominatim(geocode.Options{BaseURL: cfg.GeocoderURL, Logger: &logger})
	}

	final, err := pipeline.New(opts).Run(ctx, profile)
	if err != nil {
		exitWithError(fmt.Errorf("generation failed: %w", err))
	}
	failed := 0
	for _, task := range final.AllImages {
		if task.Status == domain.ImageStatusFailed {
			failed++
		}
	}
	logger.Info().
		Str("run_id", final.RunID).
		Str("project_id", final.ProjectID).
		Int("images", final.ImagesTotal).
		Int("images_failed", failed).
		Msg("generation completed")

	_, draft, ok := projects.Last()
	if !ok {
		exitWithError(fmt.Errorf("no project was created"))
	}
	if err := writeDocument(outFlag, draft.Document); err != nil {
		exitWithError(err)
	}
}

func readProfile(path, owner string) (domain.GenerationProfile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.GenerationProfile{}, fmt.Errorf("read profile: %w", err)
	}
	var req jsoncfg.ProfileJSON
	if err := json.Unmarshal(raw, &req); err != nil {
		return domain.GenerationProfile{}, fmt.Errorf("decode profile: %w", err)
	}
	req.Normalize("")
	if err := req.Validate(); err != nil {
		return domain.GenerationProfile{}, fmt.Errorf("invalid profile: %w", err)
	}
	return req.ToProfile(owner), nil
}

func writeDocument(path string, doc domain.MergedDocument) error {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	out = append(out, '\n')
	if path == "" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
