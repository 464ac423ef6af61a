// Package server exposes HTTP handlers, including WebSocket upgrades, health
// checks, and the bundled chat page.
package server

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
)

//go:embed static/index.html
var chatPage []byte

// WebSocketHandler upgrades GET requests to WebSocket connections and hands
// each new connection to hub as a session.
func WebSocketHandler(hub *Hub, cfg *Config, logger *slog.Logger) http.HandlerFunc {
	policy := newOriginPolicy(cfg.AllowedOrigins, logger)
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     policy.checkOrigin,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("WebSocket upgrade failed", "addr", r.RemoteAddr, "error", err)
			return
		}

		hub.Serve(NewClient(conn, r.RemoteAddr, cfg, logger))
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "relaychat server is running!")
}

// StatsHandler reports the number of connected clients as JSON.
func StatsHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]int{"clients": hub.ClientCount()})
	}
}

// ChatPageHandler serves the bundled single-page chat client.
func ChatPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(chatPage)
}
