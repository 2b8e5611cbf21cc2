package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/trailhub/trailhub/internal/store"
)

// InsertLocationSample appends a position observation, materializing the
// PostGIS geography point alongside the raw coordinates.
func (d *DB) InsertLocationSample(ctx context.Context, userID int64, latitude, longitude float64, timestamp time.Time) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO locations (user_id, latitude, longitude, location, timestamp)
		 VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($3, $2), 4326), $4);`,
		userID, latitude, longitude, timestamp.UTC(),
	)
	return err
}

// LatestLocationFor returns the user's most recent sample, or nil when the
// user has no samples yet.
func (d *DB) LatestLocationFor(ctx context.Context, userID int64) (*store.LocationSample, error) {
	row := d.sql.QueryRowContext(ctx,
		"SELECT latitude, longitude, timestamp FROM locations WHERE user_id = $1 ORDER BY timestamp DESC LIMIT 1;",
		userID,
	)
	var s store.LocationSample
	if err := row.Scan(&s.Latitude, &s.Longitude, &s.Timestamp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// RecentLocationsFor returns up to limit samples for the user, newest first.
func (d *DB) RecentLocationsFor(ctx context.Context, userID int64, limit int) ([]store.LocationSample, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT latitude, longitude, timestamp FROM locations WHERE user_id = $1 ORDER BY timestamp DESC LIMIT $2;",
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSamples(rows, limit)
}

// NearbyUsers returns each user other than excludeUserID whose most recent
// sample lies within radiusMeters of ref. The inner DISTINCT ON picks the
// latest sample per user before the radius filter, so a user whose current
// position is far away never matches on a stale sample.
func (d *DB) NearbyUsers(ctx context.Context, ref store.Point, excludeUserID int64, radiusMeters float64) ([]store.NearbyUser, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT u.id, u.username, latest.latitude, latest.longitude,
		        ST_Distance(ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, latest.location) / 1000 AS distance_km
		 FROM (
		     SELECT DISTINCT ON (user_id) user_id, latitude, longitude, location
		     FROM locations
		     ORDER BY user_id, timestamp DESC
		 ) latest
		 JOIN users u ON latest.user_id = u.id
		 WHERE latest.user_id != $3
		   AND ST_DWithin(ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, latest.location, $4)
		 ORDER BY u.id;`,
		ref.Longitude, ref.Latitude, excludeUserID, radiusMeters,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []store.NearbyUser{}
	for rows.Next() {
		var n store.NearbyUser
		if err := rows.Scan(&n.UserID, &n.Username, &n.Latitude, &n.Longitude, &n.DistanceKm); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (d *DB) allLocationsFor(ctx context.Context, userID int64) ([]store.LocationSample, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT latitude, longitude, timestamp FROM locations WHERE user_id = $1 ORDER BY timestamp DESC;",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSamples(rows, 0)
}

func scanSamples(rows *sql.Rows, capHint int) ([]store.LocationSample, error) {
	out := make([]store.LocationSample, 0, capHint)
	for rows.Next() {
		var s store.LocationSample
		if err := rows.Scan(&s.Latitude, &s.Longitude, &s.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
