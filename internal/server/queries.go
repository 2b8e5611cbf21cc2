// Package server implements the read-only query facade: thin pass-throughs
// from the REST surface to the durable store.
package server

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/trailhub/trailhub/internal/store"
)

const (
	// recentLocationsLimit caps the history returned per user.
	recentLocationsLimit = 100

	// nearbyRadiusMeters is the fixed proximity-search radius.
	nearbyRadiusMeters = 5000
)

// RecentLocationsHandler returns up to 100 of a user's samples, newest first.
func (g *Gateway) RecentLocationsHandler(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	locations, err := g.store.RecentLocationsFor(c.Request.Context(), userID, recentLocationsLimit)
	if err != nil {
		log.Printf("Error fetching locations for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching locations"})
		return
	}
	c.JSON(http.StatusOK, locations)
}

// NearbyUsersHandler returns every other user whose most recent sample lies
// within the fixed radius of the given user's latest known position. A user
// with no samples yet gets an empty list.
func (g *Gateway) NearbyUsersHandler(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	latest, err := g.store.LatestLocationFor(c.Request.Context(), userID)
	if err != nil {
		log.Printf("Error fetching nearby users for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching nearby users"})
		return
	}
	if latest == nil {
		c.JSON(http.StatusOK, []any{})
		return
	}

	ref := pointFromSample(latest)
	nearby, err := g.store.NearbyUsers(c.Request.Context(), ref, userID, nearbyRadiusMeters)
	if err != nil {
		log.Printf("Error fetching nearby users for user %d: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching nearby users"})
		return
	}
	c.JSON(http.StatusOK, nearby)
}

// UsersWithLocationsHandler returns all users with their full location
// history.
func (g *Gateway) UsersWithLocationsHandler(c *gin.Context) {
	users, err := g.store.ListUsersWithLocations(c.Request.Context())
	if err != nil {
		log.Printf("Error fetching users locations: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching users locations"})
		return
	}
	c.JSON(http.StatusOK, users)
}

func pointFromSample(s *store.LocationSample) store.Point {
	return store.Point{Latitude: s.Latitude, Longitude: s.Longitude}
}

func parseUserID(c *gin.Context) (int64, bool) {
	userID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return 0, false
	}
	return userID, true
}
