package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"sitegen/internal/domain"
	"sitegen/internal/middleware"
	"sitegen/internal/pipeline"
)

const maxProfileBytes = 64 << 10

type startResponse struct {
	RunID string       `json:"run_id"`
	Phase domain.Phase `json:"phase"`
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// orchestrator resolves the caller's orchestrator, writing the error response
// itself when that fails.
func (a *App) orchestrator(w http.ResponseWriter, r *http.Request) (*pipeline.Orchestrator, bool) {
	owner := middleware.OwnerIDFromContext(r.Context())
	orch, err := a.Registry.Get(r.Context(), owner)
	if err != nil {
		if errors.Is(err, domain.ErrMissingOwner) {
			a.error(w, http.StatusUnauthorized, "unauthorized", "X-Owner-ID header required")
			return nil, false
		}
		a.Logger.Error().Err(err).Str("owner_id", owner).Msg("resolve orchestrator failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load generation state")
		return nil, false
	}
	return orch, true
}

// StartGeneration validates the confirmed onboarding profile and starts a
// background run. The response carries the run id; progress is polled.
func (a *App) StartGeneration(w http.ResponseWriter, r *http.Request) {
	orch, ok := a.orchestrator(w, r)
	if !ok {
		return
	}
	req, ok := a.decodeProfile(w, r)
	if !ok {
		return
	}
	if err := req.Validate(); err != nil {
		a.error(w, http.StatusBadRequest, "invalid_profile", err.Error())
		return
	}
	if _, err := a.Templates.Get(r.Context(), req.TemplateID); err != nil {
		if errors.Is(err, domain.ErrTemplateNotFound) {
			a.error(w, http.StatusUnprocessableEntity, "unknown_template", "template_id does not exist")
			return
		}
		a.Logger.Error().Err(err).Str("template_id", req.TemplateID).Msg("load template failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load template")
		return
	}

	profile := req.ToProfile(middleware.OwnerIDFromContext(r.Context()))
	runID, err := orch.Start(r.Context(), profile)
	switch {
	case errors.Is(err, domain.ErrAlreadyRunning):
		a.error(w, http.StatusConflict, "already_running", "a generation is already in progress")
		return
	case errors.Is(err, domain.ErrInvalidProfile):
		a.error(w, http.StatusBadRequest, "invalid_profile", err.Error())
		return
	case err != nil:
		a.Logger.Error().Err(err).Msg("start generation failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to start generation")
		return
	}
	a.Logger.Info().
		Str("run_id", runID).
		Str("owner_id", profile.OwnerID).
		Str("template_id", profile.TemplateID).
		Msg("generation started")
	a.json(w, http.StatusAccepted, startResponse{RunID: runID, Phase: orch.Progress().Phase})
}

func (a *App) CurrentGeneration(w http.ResponseWriter, r *http.Request) {
	orch, ok := a.orchestrator(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, orch.Progress())
}

// CancelGeneration aborts the active run, if any, and returns the idle record.
func (a *App) CancelGeneration(w http.ResponseWriter, r *http.Request) {
	orch, ok := a.orchestrator(w, r)
	if !ok {
		return
	}
	if err := orch.Cancel(r.Context()); err != nil {
		a.Logger.Warn().Err(err).Msg("cancel generation: clear progress failed")
	}
	a.json(w, http.StatusOK, orch.Progress())
}

// ResetGeneration clears a terminal record so onboarding can start over.
func (a *App) ResetGeneration(w http.ResponseWriter, r *http.Request) {
	orch, ok := a.orchestrator(w, r)
	if !ok {
		return
	}
	if err := orch.Reset(r.Context()); err != nil {
		if errors.Is(err, domain.ErrAlreadyRunning) {
			a.error(w, http.StatusConflict, "already_running", "cancel the running generation first")
			return
		}
		a.Logger.Warn().Err(err).Msg("reset generation: clear progress failed")
	}
	a.json(w, http.StatusOK, orch.Progress())
}
