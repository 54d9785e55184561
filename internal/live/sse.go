package live

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mssola/useragent"
)

// pingPeriod is the keepalive interval; proxies tend to kill idle streams
// after 60s.
const pingPeriod = 30 * time.Second

// formatEvent renders an event as an SSE frame. The data line is a single
// JSON document, so no multi-line escaping is needed.
func formatEvent(event Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return fmt.Appendf(nil, "event: %s\ndata: %s\n\n", event.Name, data), nil
}

// ServeSSE runs the send loop for one registered connection. It blocks until
// the client disconnects or the registry closes the connection's channel,
// then drops the connection, releasing all its subscriptions synchronously.
func ServeSSE(w http.ResponseWriter, r *http.Request, registry *Registry, conn *Connection, logger *slog.Logger) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		registry.DropConnection(conn.ID())
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	logConnect(logger, r, conn)

	defer registry.DropConnection(conn.ID())

	// Tell the client its connection id so it can join and leave topics.
	connected := Event{
		Name:      eventConnected,
		Timestamp: time.Now().UTC(),
		Data:      map[string]string{"connectionId": conn.ID()},
	}
	if !writeEvent(w, flusher, connected) {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-conn.Events():
			if !ok {
				return
			}
			if !writeEvent(w, flusher, event) {
				return
			}

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, event Event) bool {
	frame, err := formatEvent(event)
	if err != nil {
		return true // unserializable payload; skip the event, keep the stream
	}
	if _, err := w.Write(frame); err != nil {
		return false
	}
	flusher.Flush()
	return true
}

func logConnect(logger *slog.Logger, r *http.Request, conn *Connection) {
	ua := useragent.New(r.UserAgent())
	browser, version := ua.Browser()
	attrs := []any{
		"connection_id", conn.ID(),
		"browser", browser,
		"browser_version", version,
		"os", ua.OS(),
	}
	if ident := conn.Identity(); ident != nil {
		attrs = append(attrs, "user_id", ident.ID)
	}
	logger.Info("sse client connected", attrs...)
}
