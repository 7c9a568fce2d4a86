package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"sitegen/internal/domain"
	"sitegen/internal/infra"
	"sitegen/internal/pipeline"
)

// Recommender picks a template id for a profile from the catalog.
type Recommender interface {
	RecommendTemplate(ctx context.Context, profile domain.GenerationProfile, templates []domain.TemplateSummary) string
}

// App carries the collaborators shared by the onboarding handlers.
type App struct {
	Registry    *pipeline.Registry
	Templates   domain.TemplateStore
	Recommender Recommender
	Logger      *infra.Logger
}

func NewApp(registry *pipeline.Registry, templates domain.TemplateStore, recommender Recommender, logger *infra.Logger) *App {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &App{Registry: registry, Templates: templates, Recommender: recommender, Logger: logger}
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}
