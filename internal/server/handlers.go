// Package server exposes HTTP handlers, including the WebSocket upgrade and
// health check, through the Gateway type.
package server

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/trailhub/trailhub/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// Gateway bundles the hub, presence coordinator, and durable store behind
// the HTTP surface: the WebSocket upgrade endpoint and the read-only query
// facade.
type Gateway struct {
	hub      *Hub
	presence *Presence
	store    store.Store
}

// NewGateway creates a Gateway over the given hub, presence coordinator, and
// store.
func NewGateway(hub *Hub, presence *Presence, st store.Store) *Gateway {
	return &Gateway{hub: hub, presence: presence, store: st}
}

// WebSocketHandler upgrades the HTTP connection to WebSocket, creates a
// Client with a fresh connection id, and attaches it to the hub, which
// launches the read/write pumps.
func (g *Gateway) WebSocketHandler(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := NewClient(conn, g.hub, g.presence, c.Request.RemoteAddr)
	g.hub.register <- client
}

// HealthHandler provides a simple health check endpoint that returns service
// status.
func (g *Gateway) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "TrailHub server is running"})
}
