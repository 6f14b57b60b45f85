package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
)

// newUpgrader accepts connections without an Origin header, from the
// request's own host, or from one of extra.
func newUpgrader(extra []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 8192,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			host := r.Host
			if origin == "http://"+host || origin == "https://"+host || slices.Contains(extra, origin) {
				return true
			}

			slog.Warn("Rejected WebSocket connection from unauthorized origin", "origin", origin, "host", host)
			return false
		},
	}
}

// handleWS streams decoded chunks to the client as JSON text frames, starting
// with the hub's history. Client frames are read and discarded.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade to WebSocket", "error", err)
		return
	}
	defer func() {
		if err := conn.Close(); err != nil {
			slog.Debug("Failed to close WebSocket connection", "error", err)
		}
	}()

	clientID := fmt.Sprintf("%s-%d", r.RemoteAddr, time.Now().UnixNano())
	client := s.hub.Subscribe(clientID)
	defer s.hub.Unsubscribe(clientID)

	go func() {
		defer s.hub.Unsubscribe(clientID)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Warn("WebSocket read error", "clientID", clientID, "error", err)
				}
				return
			}
		}
	}()

	for msg := range client.Messages {
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(msg); err != nil {
			slog.Error("Failed to write WebSocket message", "clientID", clientID, "error", err)
			return
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
		time.Now().Add(time.Second))
}
