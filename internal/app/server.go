package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"investwizard/internal/domain"
	"investwizard/internal/usecase"
)

type triggerResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message,omitempty"`
	Sources map[string]string `json:"sources,omitempty"`
}

func (a *Application) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/scrape/{$}", a.handleTrigger)
	mux.HandleFunc("GET /api/health/{$}", a.handleHealth)
	return mux
}

// handleTrigger starts scrape cycles in the background and answers
// immediately: 202 when at least one cycle was accepted, 409 when every
// requested source was already busy.
func (a *Application) handleTrigger(w http.ResponseWriter, r *http.Request) {
	sources, err := a.requestedSources(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, triggerResponse{Status: "error", Message: err.Error()})
		return
	}

	accepted := map[string]string{}
	busy := 0
	for _, source := range sources {
		// Cycles run on the process context so they survive this request.
		switch err := a.orchestrator.Trigger(a.baseCtx, source); {
		case err == nil:
			accepted[string(source)] = "accepted"
		case errors.Is(err, usecase.ErrBusy):
			accepted[string(source)] = "busy"
			busy++
		default:
			writeJSON(w, http.StatusInternalServerError, triggerResponse{Status: "error", Message: err.Error()})
			return
		}
	}

	if busy == len(sources) {
		writeJSON(w, http.StatusConflict, triggerResponse{
			Status:  "busy",
			Message: "scrape already in progress",
			Sources: accepted,
		})
		return
	}
	writeJSON(w, http.StatusAccepted, triggerResponse{
		Status:  "accepted",
		Message: "scrape cycle started",
		Sources: accepted,
	})
}

func (a *Application) handleHealth(w http.ResponseWriter, _ *http.Request) {
	states := map[string]string{}
	for source, state := range a.orchestrator.States() {
		states[string(source)] = string(state)
	}
	writeJSON(w, http.StatusOK, triggerResponse{Status: "ok", Sources: states})
}

func (a *Application) requestedSources(r *http.Request) ([]domain.Source, error) {
	raw := r.URL.Query().Get("source")
	if raw == "" {
		return domain.KnownSources(), nil
	}
	for _, known := range domain.KnownSources() {
		if strings.EqualFold(raw, string(known)) {
			return []domain.Source{known}, nil
		}
	}
	return nil, errors.New("unknown source: " + raw)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
