// Package store defines the persistence collaborator for TrailHub: durable
// user identities, append-only location samples, and the geospatial queries
// backing the REST query surface. Implementations live in the postgres and
// memory subpackages.
package store

import (
	"context"
	"time"
)

// User is a durable identity record. A user's id is assigned once, on first
// registration of their username, and never changes.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	IsOnline bool   `json:"is_online"`
}

// LocationSample is one durable position observation for a user.
type LocationSample struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// Point is a geographic reference point for proximity queries.
type Point struct {
	Latitude  float64
	Longitude float64
}

// NearbyUser is one proximity-search result: a user's most recent sample and
// its distance from the reference point.
type NearbyUser struct {
	UserID     int64   `json:"id"`
	Username   string  `json:"username"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	DistanceKm float64 `json:"distance_km"`
}

// UserWithLocations is a user together with their full location history,
// newest sample first.
type UserWithLocations struct {
	User
	Locations []LocationSample `json:"locations"`
}

// Store is the durable-store contract consumed by the presence coordinator
// and the query facade. All methods are safe for concurrent use.
type Store interface {
	// UpsertUserOnline atomically inserts the username or, if it already
	// exists, reuses its identity; either way the user is marked online and
	// the stable user id is returned.
	UpsertUserOnline(ctx context.Context, username string) (int64, error)

	// SetUserOffline marks the user offline. Unknown ids are a no-op.
	SetUserOffline(ctx context.Context, userID int64) error

	// InsertLocationSample appends a position observation for the user.
	InsertLocationSample(ctx context.Context, userID int64, latitude, longitude float64, timestamp time.Time) error

	// LatestLocationFor returns the user's most recent sample, or nil when
	// the user has no samples yet.
	LatestLocationFor(ctx context.Context, userID int64) (*LocationSample, error)

	// RecentLocationsFor returns up to limit samples for the user, newest
	// first.
	RecentLocationsFor(ctx context.Context, userID int64, limit int) ([]LocationSample, error)

	// NearbyUsers returns every user other than excludeUserID whose most
	// recent sample lies within radiusMeters of ref, one row per user,
	// ordered by user id.
	NearbyUsers(ctx context.Context, ref Point, excludeUserID int64, radiusMeters float64) ([]NearbyUser, error)

	// ListUsersWithLocations returns all users with their full location
	// history, ordered by user id.
	ListUsersWithLocations(ctx context.Context) ([]UserWithLocations, error)
}
