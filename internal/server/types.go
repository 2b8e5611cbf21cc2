// Package server defines the wire-level event envelope and payload types
// shared by the client, hub, and presence logic.
package server

import (
	"encoding/json"
	"strings"
	"time"
)

// Event names exchanged over the WebSocket channel. The payload field names
// are fixed for compatibility with existing mobile and web clients.
const (
	EventRegister         = "register"
	EventRegistered       = "registered"
	EventLocationUpdate   = "location_update"
	EventUserConnected    = "user_connected"
	EventUserLocation     = "user_location"
	EventUserDisconnected = "user_disconnected"
	EventError            = "error"
)

// Envelope frames every message on the channel: an event name plus an
// event-specific JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RegisterRequest is the client payload for the register event. The initial
// coordinates are optional; pointers distinguish absent from zero.
type RegisterRequest struct {
	Username  string   `json:"username"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// LocationUpdateRequest is the client payload for the location_update event.
type LocationUpdateRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// RegisteredPayload acknowledges a successful registration.
type RegisteredPayload struct {
	UserID int64 `json:"userId"`
}

// UserConnectedPayload announces a newly registered user to everyone else.
// Coordinates are present only when known at registration time.
type UserConnectedPayload struct {
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// UserLocationPayload carries one live position update to everyone else.
type UserLocationPayload struct {
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// UserDisconnectedPayload announces that a user's connection closed.
type UserDisconnectedPayload struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// ErrorPayload is sent only to the connection that triggered a failure.
type ErrorPayload struct {
	Message string `json:"message"`
}

// encodeEvent marshals an event name and payload into the wire envelope.
func encodeEvent(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
