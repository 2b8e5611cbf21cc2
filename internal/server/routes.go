// Package server wires the Gateway handlers into a gin router.
package server

import "github.com/gin-gonic/gin"

// SetupRoutes configures and returns the gin engine with all application
// routes: health check, WebSocket endpoint, and the query facade.
func SetupRoutes(g *Gateway) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", g.HealthHandler)
	router.GET("/ws", g.WebSocketHandler)

	api := router.Group("/api")
	api.GET("/locations/:userId", g.RecentLocationsHandler)
	api.GET("/nearby/:userId", g.NearbyUsersHandler)
	api.GET("/users/locations", g.UsersWithLocationsHandler)

	return router
}
