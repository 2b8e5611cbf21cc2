// Package memory implements an in-memory store for development and testing.
// Proximity search uses a haversine great-circle distance instead of PostGIS.
package memory

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trailhub/trailhub/internal/store"
)

// DB implements store.Store entirely in memory.
type DB struct {
	mu            sync.Mutex
	users         []*store.User
	samples       map[int64][]store.LocationSample
	userIDCounter int64
}

var _ store.Store = (*DB)(nil)

// New creates an empty in-memory store.
func New() *DB {
	return &DB{samples: make(map[int64][]store.LocationSample)}
}

// UpsertUserOnline inserts the username or revives an existing identity,
// marking it online either way.
func (db *DB) UpsertUserOnline(ctx context.Context, username string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Username == username {
			u.IsOnline = true
			return u.ID, nil
		}
	}

	db.userIDCounter++
	db.users = append(db.users, &store.User{
		ID:       db.userIDCounter,
		Username: username,
		IsOnline: true,
	})
	return db.userIDCounter, nil
}

// SetUserOffline marks the user offline. Unknown ids are a no-op.
func (db *DB) SetUserOffline(ctx context.Context, userID int64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == userID {
			u.IsOnline = false
			break
		}
	}
	return nil
}

// InsertLocationSample appends a position observation for the user.
func (db *DB) InsertLocationSample(ctx context.Context, userID int64, latitude, longitude float64, timestamp time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.samples[userID] = append(db.samples[userID], store.LocationSample{
		Latitude:  latitude,
		Longitude: longitude,
		Timestamp: timestamp.UTC(),
	})
	return nil
}

// LatestLocationFor returns the user's most recent sample, or nil when the
// user has no samples yet.
func (db *DB) LatestLocationFor(ctx context.Context, userID int64) (*store.LocationSample, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	latest := db.latestLocked(userID)
	if latest == nil {
		return nil, nil
	}
	s := *latest
	return &s, nil
}

// RecentLocationsFor returns up to limit samples for the user, newest first.
func (db *DB) RecentLocationsFor(ctx context.Context, userID int64, limit int) ([]store.LocationSample, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := db.sortedDescLocked(userID)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// NearbyUsers returns each user other than excludeUserID whose most recent
// sample lies within radiusMeters of ref, ordered by user id.
func (db *DB) NearbyUsers(ctx context.Context, ref store.Point, excludeUserID int64, radiusMeters float64) ([]store.NearbyUser, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := []store.NearbyUser{}
	for _, u := range db.users {
		if u.ID == excludeUserID {
			continue
		}
		latest := db.latestLocked(u.ID)
		if latest == nil {
			continue
		}
		meters := haversineMeters(ref.Latitude, ref.Longitude, latest.Latitude, latest.Longitude)
		if meters > radiusMeters {
			continue
		}
		out = append(out, store.NearbyUser{
			UserID:     u.ID,
			Username:   u.Username,
			Latitude:   latest.Latitude,
			Longitude:  latest.Longitude,
			DistanceKm: meters / 1000,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// ListUsersWithLocations returns all users with their full location history,
// newest sample first, ordered by user id.
func (db *DB) ListUsersWithLocations(ctx context.Context) ([]store.UserWithLocations, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]store.UserWithLocations, 0, len(db.users))
	for _, u := range db.users {
		out = append(out, store.UserWithLocations{
			User:      *u,
			Locations: db.sortedDescLocked(u.ID),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindUserID resolves a username to its id, for tests that need to inspect
// state seeded through the public interface. Returns 0 when absent.
func (db *DB) FindUserID(username string) int64 {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if strings.EqualFold(u.Username, username) {
			return u.ID
		}
	}
	return 0
}

func (db *DB) latestLocked(userID int64) *store.LocationSample {
	samples := db.samples[userID]
	if len(samples) == 0 {
		return nil
	}
	latest := &samples[0]
	for i := range samples {
		if samples[i].Timestamp.After(latest.Timestamp) {
			latest = &samples[i]
		}
	}
	return latest
}

func (db *DB) sortedDescLocked(userID int64) []store.LocationSample {
	out := append([]store.LocationSample(nil), db.samples[userID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

const earthRadiusMeters = 6371000

func haversineMeters(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
