// Package server drives the register / location-update / disconnect protocol
// through the Presence coordinator.
package server

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/trailhub/trailhub/internal/store"
)

// Broadcaster is the transport surface the presence coordinator needs: a
// targeted emit to one connection and a best-effort fan-out to all others.
// The Hub implements it.
type Broadcaster interface {
	Emit(connID, event string, data any) bool
	BroadcastExcept(excludeConnID, event string, data any)
}

// Presence orchestrates the per-connection lifecycle: it validates inbound
// events, mutates the session registry, persists durable facts, and triggers
// broadcasts to every other connection.
//
// Per connection the protocol is a small state machine: unregistered until a
// register succeeds, registered until disconnect, then terminal. A location
// update is only valid while registered; re-registering simply replaces the
// session.
type Presence struct {
	registry *SessionRegistry
	store    store.Store
	bus      Broadcaster

	// resendLastLocation enriches the user_connected broadcast with the
	// user's last persisted sample when the registering client supplies no
	// coordinates of its own.
	resendLastLocation bool
}

// NewPresence creates a Presence coordinator over the given registry, durable
// store, and broadcast transport.
func NewPresence(registry *SessionRegistry, st store.Store, bus Broadcaster, resendLastLocation bool) *Presence {
	return &Presence{
		registry:           registry,
		store:              st,
		bus:                bus,
		resendLastLocation: resendLastLocation,
	}
}

// Register resolves the username to a durable identity, stores the session,
// acknowledges the registering connection, and announces it to everyone else.
// Any persistence failure aborts before the session is stored, so the
// connection stays unregistered and later updates are rejected.
func (p *Presence) Register(ctx context.Context, connID string, req RegisterRequest) error {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" {
		p.bus.Emit(connID, EventError, ErrorPayload{Message: "Invalid username"})
		return ErrInvalidIdentity
	}

	userID, err := p.store.UpsertUserOnline(ctx, username)
	if err != nil {
		log.Printf("Registration error for %s: %v", connID, err)
		p.bus.Emit(connID, EventError, ErrorPayload{Message: "Registration failed"})
		return fmt.Errorf("upsert user %q: %w", username, err)
	}

	lat, lon := req.Latitude, req.Longitude
	if lat != nil && lon != nil && !validCoordinates(*lat, *lon) {
		log.Printf("Discarding invalid initial coordinates (%v, %v) from %s", *lat, *lon, connID)
		lat, lon = nil, nil
	}

	now := time.Now().UTC()
	if lat != nil && lon != nil {
		if err := p.store.InsertLocationSample(ctx, userID, *lat, *lon, now); err != nil {
			log.Printf("Registration error for %s: %v", connID, err)
			p.bus.Emit(connID, EventError, ErrorPayload{Message: "Registration failed"})
			return fmt.Errorf("insert initial sample for user %d: %w", userID, err)
		}
	} else if p.resendLastLocation {
		if last, err := p.store.LatestLocationFor(ctx, userID); err != nil {
			log.Printf("Could not load last location for user %d: %v", userID, err)
		} else if last != nil {
			lat, lon = &last.Latitude, &last.Longitude
		}
	}

	p.registry.Put(&Session{ConnID: connID, UserID: userID, Username: username})

	p.bus.Emit(connID, EventRegistered, RegisteredPayload{UserID: userID})
	log.Printf("User registered: %s (ID: %d) on connection %s", username, userID, connID)

	p.bus.BroadcastExcept(connID, EventUserConnected, UserConnectedPayload{
		UserID:    userID,
		Username:  username,
		Latitude:  lat,
		Longitude: lon,
		Timestamp: now,
	})
	return nil
}

// LocationUpdate appends a position sample for the connection's user and
// broadcasts it to everyone else. A persistence failure is logged and the
// update dropped without notifying the sender; location ticks are frequent
// and a flaky store must not flood the client with error events.
func (p *Presence) LocationUpdate(ctx context.Context, connID string, req LocationUpdateRequest) error {
	sess, ok := p.registry.Get(connID)
	if !ok {
		p.bus.Emit(connID, EventError, ErrorPayload{Message: "User not registered"})
		return ErrNotRegistered
	}

	if req.Latitude == nil || req.Longitude == nil || !validCoordinates(*req.Latitude, *req.Longitude) {
		log.Printf("Discarding malformed location update from %s", connID)
		return fmt.Errorf("malformed location update on %s", connID)
	}
	lat, lon := *req.Latitude, *req.Longitude

	now := time.Now().UTC()
	if err := p.store.InsertLocationSample(ctx, sess.UserID, lat, lon, now); err != nil {
		log.Printf("Location update error for user %d: %v", sess.UserID, err)
		return fmt.Errorf("insert sample for user %d: %w", sess.UserID, err)
	}

	p.bus.BroadcastExcept(connID, EventUserLocation, UserLocationPayload{
		UserID:    sess.UserID,
		Username:  sess.Username,
		Latitude:  lat,
		Longitude: lon,
		Timestamp: now,
	})
	return nil
}

// Disconnect marks the user offline, announces the departure to the
// remaining connections, and removes the session. The session is removed
// only after the broadcast so the disconnecting connection stays a valid
// lookup target until cleanup finishes, while the fan-out exclusion keeps it
// from receiving its own disconnect event. A store failure never blocks the
// in-memory cleanup.
func (p *Presence) Disconnect(ctx context.Context, connID string) {
	sess, ok := p.registry.Get(connID)
	if !ok {
		return
	}
	// The transport can redeliver disconnects; only the first claim proceeds.
	if !sess.beginDisconnect() {
		return
	}

	if err := p.store.SetUserOffline(ctx, sess.UserID); err != nil {
		log.Printf("Error marking user %d offline: %v", sess.UserID, err)
	}

	p.bus.BroadcastExcept(connID, EventUserDisconnected, UserDisconnectedPayload{
		UserID:   sess.UserID,
		Username: sess.Username,
	})

	p.registry.Remove(connID)
	log.Printf("User disconnected: %s (ID: %d) on connection %s", sess.Username, sess.UserID, connID)
}

// validCoordinates reports whether a latitude/longitude pair is finite and
// within range.
func validCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
