package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"pitchside/internal/identity/models"
	"pitchside/internal/storage"
	"pitchside/internal/token"
	"pitchside/pkg/domain"
	"pitchside/pkg/requestcontext"
)

// TokenVerifier verifies access tokens presented by clients.
type TokenVerifier interface {
	VerifyAccess(tokenString string) (*token.Claims, error)
}

// IdentityResolver resolves the current identity record for verified claims.
// The resolver is expected to retry transient storage failures internally.
type IdentityResolver interface {
	Lookup(ctx context.Context, id uuid.UUID) (models.User, error)
}

const bearerPrefix = "Bearer "

// RequireAuth is the session gate. It extracts a bearer token, verifies it,
// re-resolves the identity record, and attaches the typed identity to the
// request context. A valid token whose identity no longer exists is rejected:
// deleting a user is the only form of revocation in this stateless design.
func RequireAuth(verifier TokenVerifier, identities IdentityResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, err := authenticate(r, verifier, identities)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized request",
					"error", err,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", err.Error())
				return
			}
			ctx := requestcontext.WithIdentity(r.Context(), ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalAuth attaches an identity when a valid token is presented and
// proceeds anonymously otherwise. Used on paths that personalize but do not
// gate, e.g. the live event stream handshake.
func OptionalAuth(verifier TokenVerifier, identities IdentityResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, err := authenticate(r, verifier, identities)
			if err != nil {
				logger.DebugContext(r.Context(), "anonymous request", "reason", err)
				next.ServeHTTP(w, r)
				return
			}
			ctx := requestcontext.WithIdentity(r.Context(), ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route to the given roles. Must run after RequireAuth;
// a request with no attached identity is a 401, a wrong role is a 403.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, ok := requestcontext.Identity(r.Context())
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "no identity attached")
				return
			}
			if _, ok := allowed[ident.Role]; !ok {
				writeJSONError(w, http.StatusForbidden, "forbidden", "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var (
	errNoToken      = errors.New("no token provided")
	errInvalidToken = errors.New("invalid or expired token")
	errUserNotFound = errors.New("user not found")
)

func authenticate(r *http.Request, verifier TokenVerifier, identities IdentityResolver) (requestcontext.AuthIdentity, error) {
	authHeader := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(authHeader, bearerPrefix)
	if !ok || raw == "" {
		return requestcontext.AuthIdentity{}, errNoToken
	}

	claims, err := verifier.VerifyAccess(raw)
	if err != nil {
		return requestcontext.AuthIdentity{}, errInvalidToken
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return requestcontext.AuthIdentity{}, errInvalidToken
	}

	user, err := identities.Lookup(r.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return requestcontext.AuthIdentity{}, errUserNotFound
		}
		return requestcontext.AuthIdentity{}, err
	}

	return requestcontext.AuthIdentity{ID: user.ID, Email: user.Email, Role: user.Role}, nil
}
