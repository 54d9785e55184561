// Package handler exposes the identity endpoints: registration, login,
// refresh, and the authenticated profile and role-management routes.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	identityservice "pitchside/internal/identity/service"
	"pitchside/internal/platform/middleware"
	"pitchside/internal/transport/shared"
	"pitchside/pkg/domain"
	dErrors "pitchside/pkg/domain-errors"
	"pitchside/pkg/requestcontext"
)

// Handler handles identity endpoints.
type Handler struct {
	identities  *identityservice.Service
	logger      *slog.Logger
	requireAuth func(http.Handler) http.Handler
}

// New creates the identity handler. requireAuth is the session gate applied
// to the authenticated routes.
func New(identities *identityservice.Service, requireAuth func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	return &Handler{
		identities:  identities,
		logger:      logger.With("component", "identity.handler"),
		requireAuth: requireAuth,
	}
}

// Register mounts the identity routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/refresh", h.handleRefresh)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Get("/auth/me", h.handleMe)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)
		r.Use(middleware.RequireRole(domain.RoleAdmin))
		r.Patch("/auth/users/{userID}/role", h.handleChangeRole)
	})
}

type authResponse struct {
	User  any `json:"user"`
	Token any `json:"token"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req identityservice.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	user, pair, err := h.identities.Register(r.Context(), req)
	if err != nil {
		h.logWarn(r, "registration failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, authResponse{User: user, Token: pair})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	user, pair, err := h.identities.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logWarn(r, "login failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, authResponse{User: user, Token: pair})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "refresh_token is required"))
		return
	}

	pair, err := h.identities.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.logWarn(r, "token refresh failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"token": pair})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ident, ok := requestcontext.Identity(r.Context())
	if !ok {
		// Unreachable when the session gate is wired correctly.
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"id":    ident.ID,
		"email": ident.Email,
		"role":  ident.Role,
	})
}

type changeRoleRequest struct {
	Role domain.Role `json:"role"`
}

func (h *Handler) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}

	var req changeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	user, err := h.identities.ChangeRole(r.Context(), userID, req.Role)
	if err != nil {
		h.logWarn(r, "role change failed", err)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) logWarn(r *http.Request, msg string, err error) {
	h.logger.WarnContext(r.Context(), msg,
		"error", err.Error(),
		"request_id", requestcontext.RequestID(r.Context()),
	)
}
