package postgres

import (
	"context"

	"github.com/trailhub/trailhub/internal/store"
)

// UpsertUserOnline inserts the username or revives an existing identity,
// marking it online either way. The ON CONFLICT clause keeps concurrent
// registrations of the same name from creating duplicate identities.
func (d *DB) UpsertUserOnline(ctx context.Context, username string) (int64, error) {
	var id int64
	err := d.sql.QueryRowContext(ctx,
		"INSERT INTO users (username, is_online) VALUES ($1, true) ON CONFLICT (username) DO UPDATE SET is_online = true RETURNING id;",
		username,
	).Scan(&id)
	return id, err
}

// SetUserOffline marks the user offline. Unknown ids affect no rows.
func (d *DB) SetUserOffline(ctx context.Context, userID int64) error {
	_, err := d.sql.ExecContext(ctx, "UPDATE users SET is_online = false WHERE id = $1;", userID)
	return err
}

// ListUsersWithLocations returns every user with their full location history,
// newest sample first.
func (d *DB) ListUsersWithLocations(ctx context.Context) ([]store.UserWithLocations, error) {
	rows, err := d.sql.QueryContext(ctx, "SELECT id, username, is_online FROM users ORDER BY id;")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []store.UserWithLocations{}
	for rows.Next() {
		var u store.UserWithLocations
		if err := rows.Scan(&u.ID, &u.Username, &u.IsOnline); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		locs, err := d.allLocationsFor(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Locations = locs
	}
	return out, nil
}
