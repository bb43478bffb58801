package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/kylerivers/motorev-sub004/internal/api/middleware"
	"github.com/kylerivers/motorev-sub004/internal/realtime"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Clients are native mobile apps presenting a signed token; the
		// token check is the gate, not the Origin header.
		return true
	},
}

type WSHandler struct {
	hub *realtime.Hub
}

func NewWSHandler(hub *realtime.Hub) *WSHandler {
	return &WSHandler{hub: hub}
}

// HandleWebSocket upgrades an authenticated request and hands the
// connection to the hub. WSAuth must run before this handler.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	ident, ok := middleware.IdentityFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "userID", ident.UserID, "error", err)
		return
	}

	client := realtime.NewClient(h.hub, conn, ident)
	client.Serve()
}
