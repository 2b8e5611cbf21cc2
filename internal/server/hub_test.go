package server

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// attach inserts a client into the hub membership map directly, bypassing
// the Run loop so fan-out can be exercised synchronously.
func attach(h *Hub, c *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[c.id] = c
}

func newTestClient(h *Hub) *Client {
	return NewClient(nil, h, nil, "127.0.0.1:12345")
}

func receivedPayload(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("expected a payload on connection %s", c.id)
		return nil
	}
}

func assertNothingReceived(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("expected no payload on connection %s, got %s", c.id, msg)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()
	require.NotNil(t, hub)
	require.NotNil(t, hub.GetRegisterChan())
	require.NotNil(t, hub.GetUnregisterChan())
	assert.Empty(t, hub.clients)
}

func TestHandleBroadcastExcludesSender(t *testing.T) {
	hub := NewHub()
	sender := newTestClient(hub)
	other1 := newTestClient(hub)
	other2 := newTestClient(hub)
	attach(hub, sender)
	attach(hub, other1)
	attach(hub, other2)

	payload := []byte(`{"event":"user_location","data":{}}`)
	hub.handleBroadcast(BroadcastMessage{ExcludeID: sender.id, Payload: payload})

	assert.Equal(t, payload, receivedPayload(t, other1))
	assert.Equal(t, payload, receivedPayload(t, other2))
	assertNothingReceived(t, sender)
}

func TestHandleBroadcastWithoutExclusionReachesEveryone(t *testing.T) {
	hub := NewHub()
	a := newTestClient(hub)
	b := newTestClient(hub)
	attach(hub, a)
	attach(hub, b)

	hub.handleBroadcast(BroadcastMessage{Payload: []byte("x")})

	receivedPayload(t, a)
	receivedPayload(t, b)
}

func TestHandleBroadcastIsolatesFailedRecipient(t *testing.T) {
	hub := NewHub()
	healthy1 := newTestClient(hub)
	stuck := newTestClient(hub)
	healthy2 := newTestClient(hub)
	attach(hub, healthy1)
	attach(hub, stuck)
	attach(hub, healthy2)

	// Saturate the stuck client's send buffer so delivery to it fails.
	for i := 0; i < cap(stuck.send); i++ {
		stuck.send <- []byte("backlog")
	}

	hub.handleBroadcast(BroadcastMessage{Payload: []byte("event")})

	// The failed recipient never blocks the others.
	assert.Equal(t, []byte("event"), receivedPayload(t, healthy1))
	assert.Equal(t, []byte("event"), receivedPayload(t, healthy2))

	// The stuck connection is pruned and its channel closed.
	hub.mutex.RLock()
	_, exists := hub.clients[stuck.id]
	hub.mutex.RUnlock()
	assert.False(t, exists)
	assert.True(t, stuck.closed)
}

func TestEmitDeliversEnvelopeToOneConnection(t *testing.T) {
	hub := NewHub()
	target := newTestClient(hub)
	bystander := newTestClient(hub)
	attach(hub, target)
	attach(hub, bystander)

	ok := hub.Emit(target.id, EventError, ErrorPayload{Message: "User not registered"})
	require.True(t, ok)

	var env Envelope
	require.NoError(t, json.Unmarshal(receivedPayload(t, target), &env))
	assert.Equal(t, EventError, env.Event)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "User not registered", payload.Message)

	assertNothingReceived(t, bystander)
}

func TestEmitToUnknownConnection(t *testing.T) {
	hub := NewHub()
	assert.False(t, hub.Emit("ghost", EventRegistered, RegisteredPayload{UserID: 1}))
}

func TestSafeSendSkipsClosedClient(t *testing.T) {
	hub := NewHub()
	client := newTestClient(hub)
	attach(hub, client)
	client.closed = true

	assert.False(t, hub.safeSend(client, []byte("x")))
	assertNothingReceived(t, client)
}

func TestHubRunAttachesAndDetaches(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer func() {
		_ = hub.Shutdown(time.Second)
	}()

	// A nil registration is skipped without panicking.
	hub.register <- nil

	client := newTestClient(hub)
	client.conn = nil
	// Attach via the map directly; a registration through the channel would
	// start pumps on the nil connection.
	attach(hub, client)

	hub.unregister <- client

	require.Eventually(t, func() bool {
		hub.mutex.RLock()
		defer hub.mutex.RUnlock()
		return len(hub.clients) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestBroadcastExceptThroughRunLoop(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer func() {
		_ = hub.Shutdown(time.Second)
	}()

	sender := newTestClient(hub)
	receiver := newTestClient(hub)
	attach(hub, sender)
	attach(hub, receiver)

	hub.BroadcastExcept(sender.id, EventUserDisconnected, UserDisconnectedPayload{UserID: 1, Username: "alice"})

	var env Envelope
	require.NoError(t, json.Unmarshal(receivedPayload(t, receiver), &env))
	assert.Equal(t, EventUserDisconnected, env.Event)
	assertNothingReceived(t, sender)
}
