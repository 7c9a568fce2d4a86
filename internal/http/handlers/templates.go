package handlers

import (
	"errors"
	"net/http"
	"strings"

	"sitegen/internal/domain"
	"sitegen/internal/domain/jsoncfg"
	"sitegen/internal/middleware"
)

type templateListResponse struct {
	Templates []domain.TemplateSummary `json:"templates"`
}

type recommendationResponse struct {
	TemplateID string                  `json:"template_id"`
	Template   *domain.TemplateSummary `json:"template,omitempty"`
}

func (a *App) ListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := a.Templates.List(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("list templates failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list templates")
		return
	}
	if list == nil {
		list = []domain.TemplateSummary{}
	}
	a.json(w, http.StatusOK, templateListResponse{Templates: list})
}

// RecommendTemplate asks the content model for the best-fitting template.
// Only the business name and industry are required at this onboarding step.
func (a *App) RecommendTemplate(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeProfile(w, r)
	if !ok {
		return
	}
	if strings.TrimSpace(req.BusinessName) == "" || strings.TrimSpace(req.Industry) == "" {
		a.error(w, http.StatusBadRequest, "invalid_profile", "business_name and industry are required")
		return
	}
	list, err := a.Templates.List(r.Context())
	if err != nil {
		a.Logger.Error().Err(err).Msg("list templates failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list templates")
		return
	}
	if len(list) == 0 {
		a.error(w, http.StatusNotFound, "not_found", "no templates available")
		return
	}
	profile := req.ToProfile(middleware.OwnerIDFromContext(r.Context()))
	id := a.Recommender.RecommendTemplate(r.Context(), profile, list)
	resp := recommendationResponse{TemplateID: id}
	for i := range list {
		if list[i].ID == id {
			resp.Template = &list[i]
			break
		}
	}
	a.json(w, http.StatusOK, resp)
}

func (a *App) decodeProfile(w http.ResponseWriter, r *http.Request) (jsoncfg.ProfileJSON, bool) {
	var req jsoncfg.ProfileJSON
	r.Body = http.MaxBytesReader(w, r.Body, maxProfileBytes)
	if err := decodeJSON(r, &req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "bad_request", "payload too large")
			return req, false
		}
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return req, false
	}
	req.Normalize(middleware.LocaleFromContext(r.Context()))
	return req, true
}
