package chatserver

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"matri-go/internal/auth"
	"matri-go/internal/config"
	ws "matri-go/internal/websocket"
)

// WebSocketHandler upgrades HTTP requests to websocket sessions and hands
// them to the hub.
type WebSocketHandler struct {
	hub      *ws.Hub
	cfg      config.Config
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(hub *ws.Hub, cfg config.Config) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Mobile and web clients connect from their own origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS handles GET /ws. A JWT may arrive as a token query parameter; a
// session without one must authenticate with an auth frame before it
// receives events.
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	var userID string
	if token := r.URL.Query().Get("token"); token != "" {
		claims, err := auth.ValidateToken(token, h.cfg.Auth.JWTSecretKey)
		if err != nil {
			log.Printf("WebSocket connection refused, invalid token: %v", err)
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		userID = claims.UserID
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn, userID)
	client.Start(h.cfg.WebSocket)
}
