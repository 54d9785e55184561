// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values.
//
// Context keys and getter/setter functions live here so that services can read
// values set by middleware without importing net/http. The authenticated
// identity is carried as a typed struct rather than loose values attached to a
// generic request object.
//
// Usage in services (read values):
//
//	ident, ok := requestcontext.Identity(ctx)
//	requestID := requestcontext.RequestID(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithIdentity(ctx, ident)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
package requestcontext

import (
	"context"

	"github.com/google/uuid"

	"pitchside/pkg/domain"
)

// AuthIdentity is the resolved identity attached to a request or live
// connection after the session gate has verified its token.
type AuthIdentity struct {
	ID    uuid.UUID
	Email string
	Role  domain.Role
}

// Context key types (unexported for encapsulation).
type (
	identityKey  struct{}
	requestIDKey struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyIdentity  = identityKey{}
	ContextKeyRequestID = requestIDKey{}
)

// Identity retrieves the authenticated identity from the context. The second
// return is false when the request is anonymous.
func Identity(ctx context.Context) (AuthIdentity, bool) {
	ident, ok := ctx.Value(ContextKeyIdentity).(AuthIdentity)
	return ident, ok
}

// WithIdentity injects an authenticated identity into the context.
func WithIdentity(ctx context.Context, ident AuthIdentity) context.Context {
	return context.WithValue(ctx, ContextKeyIdentity, ident)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}
