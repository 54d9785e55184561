// Package middleware provides the HTTP middleware chain: request IDs,
// logging, panic recovery, timeouts, and the authentication session gate.
package middleware

import (
	"fmt"
	"net/http"
)

// writeJSONError writes a JSON error response with the given status code and
// error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}
