package live

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"pitchside/internal/transport/shared"
	"pitchside/pkg/domain"
	dErrors "pitchside/pkg/domain-errors"
	"pitchside/pkg/requestcontext"
)

// Handler exposes the live transport: the SSE stream plus the join/leave
// endpoints the client drives after its handshake.
type Handler struct {
	registry *Registry
	logger   *slog.Logger

	optionalAuth func(http.Handler) http.Handler
}

// NewHandler builds the live transport handler. optionalAuth is the
// optional-variant session gate: the stream personalizes when a token is
// presented but never rejects an anonymous client.
func NewHandler(registry *Registry, optionalAuth func(http.Handler) http.Handler, logger *slog.Logger) *Handler {
	return &Handler{
		registry:     registry,
		logger:       logger.With("component", "live.handler"),
		optionalAuth: optionalAuth,
	}
}

// Register mounts the live routes. The SSE route deliberately skips the
// request timeout middleware.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.optionalAuth)
		r.Get("/live/events", h.handleStream)
		r.Post("/live/connections/{connectionID}/join", h.handleJoin)
		r.Post("/live/connections/{connectionID}/leave", h.handleLeave)
	})
}

// handleStream is the connection handshake. Initial subscriptions can be
// passed as ?topics=match:42,tournament:7; later joins go through the join
// endpoint using the connection id from the connected event.
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	var identity *requestcontext.AuthIdentity
	if ident, ok := requestcontext.Identity(r.Context()); ok {
		identity = &ident
	}

	conn := h.registry.Register(identity)

	if raw := r.URL.Query().Get("topics"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			topic, err := domain.ParseTopic(strings.TrimSpace(s))
			if err != nil {
				h.registry.DropConnection(conn.ID())
				writeError(w, dErrors.New(dErrors.CodeBadRequest, err.Error()))
				return
			}
			_ = h.registry.Join(conn.ID(), topic)
		}
	}

	ServeSSE(w, r, h.registry, conn, h.logger)
}

type subscriptionRequest struct {
	Topic string `json:"topic"`
}

func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	h.handleSubscription(w, r, h.registry.Join)
}

func (h *Handler) handleLeave(w http.ResponseWriter, r *http.Request) {
	h.handleSubscription(w, r, h.registry.Leave)
}

func (h *Handler) handleSubscription(w http.ResponseWriter, r *http.Request, apply func(string, domain.Topic) error) {
	connID := chi.URLParam(r, "connectionID")

	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	topic, err := domain.ParseTopic(req.Topic)
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, err.Error()))
		return
	}

	if err := apply(connID, topic); err != nil {
		if errors.Is(err, ErrUnknownConnection) {
			writeError(w, dErrors.New(dErrors.CodeNotFound, "unknown connection"))
			return
		}
		h.logger.ErrorContext(r.Context(), "subscription change failed",
			"connection_id", connID,
			"topic", topic,
			"error", err,
			"request_id", requestcontext.RequestID(r.Context()),
		)
		writeError(w, dErrors.New(dErrors.CodeInternal, "subscription change failed"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeError translates a domain error into the shared JSON envelope.
func writeError(w http.ResponseWriter, err error) {
	shared.WriteError(w, err)
}
