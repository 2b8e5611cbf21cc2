package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailhub/trailhub/internal/server"
	"github.com/trailhub/trailhub/internal/store"
	"github.com/trailhub/trailhub/internal/store/memory"
)

func newQueryServer(t *testing.T) (*memory.DB, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memory.New()
	hub := server.NewHub()
	registry := server.NewSessionRegistry()
	presence := server.NewPresence(registry, st, hub, false)
	gateway := server.NewGateway(hub, presence, st)

	srv := httptest.NewServer(server.SetupRoutes(gateway))
	t.Cleanup(srv.Close)
	return st, srv
}

func getJSON(t *testing.T, srv *httptest.Server, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func seedUser(t *testing.T, st *memory.DB, username string, coords ...[2]float64) int64 {
	t.Helper()
	ctx := context.Background()
	id, err := st.UpsertUserOnline(ctx, username)
	require.NoError(t, err)
	base := time.Now().Add(-time.Hour)
	for i, c := range coords {
		require.NoError(t, st.InsertLocationSample(ctx, id, c[0], c[1], base.Add(time.Duration(i)*time.Minute)))
	}
	return id
}

func TestRecentLocationsEndpoint(t *testing.T) {
	st, srv := newQueryServer(t)
	id := seedUser(t, st, "alice", [2]float64{10, 20}, [2]float64{11, 21}, [2]float64{12, 22})

	var locations []store.LocationSample
	resp := getJSON(t, srv, fmt.Sprintf("/api/locations/%d", id), &locations)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, locations, 3)
	// Newest first.
	assert.Equal(t, 12.0, locations[0].Latitude)
	assert.Equal(t, 10.0, locations[2].Latitude)
}

func TestRecentLocationsUnknownUser(t *testing.T) {
	_, srv := newQueryServer(t)

	var locations []store.LocationSample
	resp := getJSON(t, srv, "/api/locations/42", &locations)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, locations)
}

func TestRecentLocationsInvalidUserID(t *testing.T) {
	_, srv := newQueryServer(t)
	resp := getJSON(t, srv, "/api/locations/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNearbyUsersEndpoint(t *testing.T) {
	st, srv := newQueryServer(t)

	// alice at the reference point; ben roughly 1.1km east; cleo far away.
	aliceID := seedUser(t, st, "alice", [2]float64{40.0, -3.70})
	seedUser(t, st, "ben", [2]float64{40.0, -3.687})
	seedUser(t, st, "cleo", [2]float64{41.0, -3.70})

	var nearby []store.NearbyUser
	resp := getJSON(t, srv, fmt.Sprintf("/api/nearby/%d", aliceID), &nearby)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, nearby, 1)
	assert.Equal(t, "ben", nearby[0].Username)
	assert.InDelta(t, 1.1, nearby[0].DistanceKm, 0.3)
}

func TestNearbyUsersWithoutOwnLocation(t *testing.T) {
	st, srv := newQueryServer(t)
	id := seedUser(t, st, "alice") // no samples
	seedUser(t, st, "ben", [2]float64{40.0, -3.70})

	var nearby []store.NearbyUser
	resp := getJSON(t, srv, fmt.Sprintf("/api/nearby/%d", id), &nearby)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, nearby)
}

func TestUsersWithLocationsEndpoint(t *testing.T) {
	st, srv := newQueryServer(t)
	seedUser(t, st, "alice", [2]float64{1, 2}, [2]float64{3, 4})
	seedUser(t, st, "ben")

	var users []store.UserWithLocations
	resp := getJSON(t, srv, "/api/users/locations", &users)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Len(t, users[0].Locations, 2)
	assert.Equal(t, 3.0, users[0].Locations[0].Latitude, "history must be newest first")
	assert.Empty(t, users[1].Locations)
}

func TestHealthEndpoint(t *testing.T) {
	_, srv := newQueryServer(t)

	var body map[string]string
	resp := getJSON(t, srv, "/health", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}
