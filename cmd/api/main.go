package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"sitegen/internal/adapter/memory"
	"sitegen/internal/adapter/repo"
	"sitegen/internal/content"
	"sitegen/internal/http/handlers"
	httpapi "sitegen/internal/http/httpapi"
	"sitegen/internal/imagegen"
	"sitegen/internal/imageplan"
	"sitegen/internal/infra"
	"sitegen/internal/infra/credentials"
	"sitegen/internal/infra/geoip"
	"sitegen/internal/middleware"
	"sitegen/internal/pipeline"
	"sitegen/internal/providers"
	"sitegen/internal/providers/geocode"
	"sitegen/internal/providers/prompt"
	"sitegen/internal/sqlinline"
	"sitegen/internal/storage"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	runner := infra.NewSQLRunner(dbpool, logger)
	if _, err := runner.Exec(ctx, sqlinline.QEnsureSchema); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure schema")
	}

	templates := repo.NewTemplateRepository(runner)
	builtin, err := memory.BuiltinTemplates()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load built-in templates")
	}
	for _, tpl := range builtin.Templates() {
		if err := templates.Seed(ctx, tpl); err != nil {
			logger.Warn().Err(err).Str("template_id", tpl.ID).Msg("seed template failed")
		}
	}

	store, err := storage.New(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	httpClient := &http.Client{Timeout: 2 * time.Minute}
	keys := providers.ResolveKeys(ctx, cfg, credentials.NewStore(runner), &logger)
	text, textModel, err := providers.Text(cfg, keys, httpClient, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure content provider")
	}
	images, imageModel, err := providers.Image(cfg, keys, store, httpClient, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure image provider")
	}
	logger.Info().Str("content_model", textModel).Str("image_model", imageModel).Msg("providers configured")

	caller := content.NewCaller(content.CallerOptions{
		Text:    text,
		Prompts: prompt.WithDefaults(repo.NewPromptRepository(runner, logger)),
		Calls:   repo.NewCallLogRepository(runner, logger),
		Model:   textModel,
		Timeout: cfg.ContentCallTimeout,
		Logger:  &logger,
	})
	generator := content.NewGenerator(caller)
	planner := imageplan.New(imageplan.Options{Caller: caller, Logger: &logger})
	sequencer := imagegen.New(imagegen.Options{
		Generator:   images,
		Delay:       cfg.ImageRequestDelay,
		Backoff:     cfg.ImageRateLimitBackoff,
		CallTimeout: cfg.ImageCallTimeout,
		Model:       imageModel,
		Logger:      &logger,
	})
	var geocoder *geocode.Nominatim
	if cfg.GeocoderURL != "" {
		geocoder = geocode.NewNominatim(geocode.Options{BaseURL: cfg.GeocoderURL, Logger: &logger})
	}
	projects := repo.NewProjectRepository(runner)
	shop := repo.NewStoreRepository(runner)

	registry := pipeline.NewRegistry(func(ownerID string) *pipeline.Orchestrator {
		opts := pipeline.Options{
			Content:   generator,
			Planner:   planner,
			Sequencer: sequencer,
			Templates: templates,
			Progress:  repo.NewProgressRepository(runner, ownerID),
			Projects:  projects,
			Store:     shop,
			Logger:    &logger,
		}
		if geocoder != nil {
			opts.Geocoder = geocoder
		}
		return pipeline.New(opts)
	}, &logger)

	var lookup middleware.CountryLookup
	resolver, err := geoip.NewResolver(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	} else if resolver != nil {
		lookup = resolver.CountryCode
		defer resolver.Close()
	}

	var staticDir string
	if fs, ok := store.(*storage.FileStore); ok {
		staticDir = fs.BasePath()
	}
	app := handlers.NewApp(registry, templates, generator, &logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		CORSOrigins:     cfg.CORSAllowedOrigins,
		DefaultLocale:   "en",
		CountryLookup:   lookup,
		StartsPerMinute: cfg.RateLimitPerMin,
		StaticDir:       staticDir,
	})
	server := infra.NewHTTPServer(cfg, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr()).Msg("API listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		registry.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}
