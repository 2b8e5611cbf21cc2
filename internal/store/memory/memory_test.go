package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailhub/trailhub/internal/store"
	"github.com/trailhub/trailhub/internal/store/memory"
)

func TestUpsertUserOnline(t *testing.T) {
	db := memory.New()
	ctx := context.Background()

	id1, err := db.UpsertUserOnline(ctx, "alice")
	require.NoError(t, err)
	id2, err := db.UpsertUserOnline(ctx, "bob")
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	// Registering an existing username reuses its id and flips it online.
	require.NoError(t, db.SetUserOffline(ctx, id1))
	again, err := db.UpsertUserOnline(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, id1, again)

	users, err := db.ListUsersWithLocations(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.True(t, users[0].IsOnline)
}

func TestSetUserOffline(t *testing.T) {
	db := memory.New()
	ctx := context.Background()

	id, err := db.UpsertUserOnline(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, db.SetUserOffline(ctx, id))

	users, err := db.ListUsersWithLocations(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.False(t, users[0].IsOnline)

	// Unknown ids are a no-op.
	assert.NoError(t, db.SetUserOffline(ctx, 999))
}

func TestLocationSamplesAreAppendOnlyAndOrdered(t *testing.T) {
	db := memory.New()
	ctx := context.Background()
	id, err := db.UpsertUserOnline(ctx, "alice")
	require.NoError(t, err)

	base := time.Now()
	require.NoError(t, db.InsertLocationSample(ctx, id, 1, 1, base))
	require.NoError(t, db.InsertLocationSample(ctx, id, 2, 2, base.Add(time.Minute)))
	require.NoError(t, db.InsertLocationSample(ctx, id, 3, 3, base.Add(2*time.Minute)))

	latest, err := db.LatestLocationFor(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 3.0, latest.Latitude)

	recent, err := db.RecentLocationsFor(ctx, id, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 3.0, recent[0].Latitude)
	assert.Equal(t, 2.0, recent[1].Latitude)
}

func TestLatestLocationForUserWithoutSamples(t *testing.T) {
	db := memory.New()
	ctx := context.Background()
	id, err := db.UpsertUserOnline(ctx, "alice")
	require.NoError(t, err)

	latest, err := db.LatestLocationFor(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestNearbyUsers(t *testing.T) {
	db := memory.New()
	ctx := context.Background()

	aliceID, _ := db.UpsertUserOnline(ctx, "alice")
	benID, _ := db.UpsertUserOnline(ctx, "ben")
	cleoID, _ := db.UpsertUserOnline(ctx, "cleo")

	now := time.Now()
	require.NoError(t, db.InsertLocationSample(ctx, aliceID, 40.0, -3.70, now))
	// ben has an old far sample and a recent near one; only the most recent
	// sample counts.
	require.NoError(t, db.InsertLocationSample(ctx, benID, 10.0, 10.0, now.Add(-time.Hour)))
	require.NoError(t, db.InsertLocationSample(ctx, benID, 40.0, -3.69, now))
	require.NoError(t, db.InsertLocationSample(ctx, cleoID, 41.0, -3.70, now))

	nearby, err := db.NearbyUsers(ctx, store.Point{Latitude: 40.0, Longitude: -3.70}, aliceID, 5000)
	require.NoError(t, err)

	require.Len(t, nearby, 1)
	assert.Equal(t, benID, nearby[0].UserID)
	assert.Greater(t, nearby[0].DistanceKm, 0.0)
	assert.Less(t, nearby[0].DistanceKm, 5.0)
}

func TestNearbyUsersExcludesReferenceUser(t *testing.T) {
	db := memory.New()
	ctx := context.Background()

	aliceID, _ := db.UpsertUserOnline(ctx, "alice")
	require.NoError(t, db.InsertLocationSample(ctx, aliceID, 40.0, -3.70, time.Now()))

	nearby, err := db.NearbyUsers(ctx, store.Point{Latitude: 40.0, Longitude: -3.70}, aliceID, 5000)
	require.NoError(t, err)
	assert.Empty(t, nearby)
}

func TestFindUserID(t *testing.T) {
	db := memory.New()
	ctx := context.Background()

	id, _ := db.UpsertUserOnline(ctx, "alice")
	assert.Equal(t, id, db.FindUserID("alice"))
	assert.Equal(t, id, db.FindUserID("ALICE"))
	assert.Zero(t, db.FindUserID("ghost"))
}
