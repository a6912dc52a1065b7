package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// newUpgrader accepts WebSocket handshakes from the listed origins. An empty
// list or "*" accepts any origin; requests without an Origin header are
// non-browser clients and always pass.
func newUpgrader(origins []string) *websocket.Upgrader {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			allowed = nil
			break
		}
		if o != "" {
			allowed[o] = true
		}
	}
	if len(allowed) == 0 {
		return &websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	}
	return &websocket.Upgrader{CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}}
}
