package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"sitegen/internal/http/handlers"
	"sitegen/internal/middleware"
)

type Options struct {
	Logger        zerolog.Logger
	CORSOrigins   []string
	DefaultLocale string
	CountryLookup middleware.CountryLookup
	// StartsPerMinute limits generation starts per client IP; zero disables it.
	StartsPerMinute int
	// StaticDir, when set, is served under /static/ for filesystem-hosted images.
	StaticDir string
}

func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.CORS(opts.CORSOrigins),
		middleware.I18N(opts.DefaultLocale, opts.CountryLookup),
		middleware.Owner,
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)
	r.Get("/v1/templates", app.ListTemplates)
	if opts.StaticDir != "" {
		r.Handle("/static/*", stdhttp.StripPrefix("/static/", stdhttp.FileServer(stdhttp.Dir(opts.StaticDir))))
	}

	r.Route("/v1/onboarding", func(r chi.Router) {
		r.Post("/template-recommendation", app.RecommendTemplate)
		r.Route("/generations", func(r chi.Router) {
			r.With(middleware.RateLimit(opts.StartsPerMinute, time.Minute)).Post("/", app.StartGeneration)
			r.Get("/current", app.CurrentGeneration)
			r.Post("/cancel", app.CancelGeneration)
			r.Post("/reset", app.ResetGeneration)
		})
	})

	return r
}
