// Package handler exposes the tournament and match endpoints. Reads are
// public; mutations require an authenticated session and a role check.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pitchside/internal/platform/middleware"
	"pitchside/internal/tournament/models"
	tournamentservice "pitchside/internal/tournament/service"
	"pitchside/internal/transport/shared"
	"pitchside/pkg/domain"
	dErrors "pitchside/pkg/domain-errors"
	"pitchside/pkg/requestcontext"
)

// Handler handles tournament endpoints.
type Handler struct {
	tournaments *tournamentservice.Service
	logger      *slog.Logger
	requireAuth func(http.Handler) http.Handler
}

func New(tournaments *tournamentservice.Service, requireAuth func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	return &Handler{
		tournaments: tournaments,
		logger:      logger.With("component", "tournament.handler"),
		requireAuth: requireAuth,
	}
}

// Register mounts the tournament routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/tournaments/{tournamentID}", h.handleGetTournament)
	r.Get("/tournaments/{tournamentID}/matches", h.handleListMatches)
	r.Get("/matches/{matchID}", h.handleGetMatch)
	r.Get("/matches/{matchID}/snapshot", h.handleSnapshot)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Use(middleware.RequireRole(domain.RoleAdmin))
		r.Post("/tournaments", h.handleCreateTournament)
		r.Post("/tournaments/{tournamentID}/matches", h.handleAddMatch)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Use(middleware.RequireRole(domain.RoleAdmin, domain.RoleCaptain))
		r.Put("/matches/{matchID}/score", h.handleUpdateScore)
		r.Put("/matches/{matchID}/status", h.handleUpdateStatus)
		r.Put("/matches/{matchID}/stats", h.handleRecordStat)
	})
}

func (h *Handler) handleCreateTournament(w http.ResponseWriter, r *http.Request) {
	var req tournamentservice.CreateTournamentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	t, err := h.tournaments.CreateTournament(r.Context(), req)
	if err != nil {
		h.logWarn(r, "tournament creation failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, t)
}

func (h *Handler) handleGetTournament(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "tournamentID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid tournament id"))
		return
	}

	t, err := h.tournaments.GetTournament(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) handleAddMatch(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := uuid.Parse(chi.URLParam(r, "tournamentID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid tournament id"))
		return
	}

	var req tournamentservice.AddMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	m, err := h.tournaments.AddMatch(r.Context(), tournamentID, req)
	if err != nil {
		h.logWarn(r, "match creation failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, m)
}

func (h *Handler) handleListMatches(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := uuid.Parse(chi.URLParam(r, "tournamentID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid tournament id"))
		return
	}

	matches, err := h.tournaments.ListMatches(r.Context(), tournamentID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

func (h *Handler) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, ok := h.matchID(w, r)
	if !ok {
		return
	}

	m, err := h.tournaments.GetMatch(r.Context(), matchID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	matchID, ok := h.matchID(w, r)
	if !ok {
		return
	}

	snapshot, err := h.tournaments.Snapshot(r.Context(), matchID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, snapshot)
}

func (h *Handler) handleUpdateScore(w http.ResponseWriter, r *http.Request) {
	matchID, ok := h.matchID(w, r)
	if !ok {
		return
	}

	var req tournamentservice.UpdateScoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	m, err := h.tournaments.UpdateScore(r.Context(), matchID, req)
	if err != nil {
		h.logWarn(r, "score update failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, m)
}

type updateStatusRequest struct {
	Status models.MatchStatus `json:"status"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	matchID, ok := h.matchID(w, r)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	m, err := h.tournaments.UpdateStatus(r.Context(), matchID, req.Status)
	if err != nil {
		h.logWarn(r, "status update failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) handleRecordStat(w http.ResponseWriter, r *http.Request) {
	matchID, ok := h.matchID(w, r)
	if !ok {
		return
	}

	var stat models.PlayerStat
	if err := json.NewDecoder(r.Body).Decode(&stat); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	m, err := h.tournaments.RecordPlayerStat(r.Context(), matchID, stat)
	if err != nil {
		h.logWarn(r, "stat update failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, m)
}

func (h *Handler) matchID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "matchID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid match id"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) logWarn(r *http.Request, msg string, err error) {
	h.logger.WarnContext(r.Context(), msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(r.Context()),
	)
}
