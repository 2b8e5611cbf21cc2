package server_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailhub/trailhub/internal/server"
)

func TestRegistryPutGetRemove(t *testing.T) {
	registry := server.NewSessionRegistry()

	_, ok := registry.Get("c1")
	assert.False(t, ok, "lookup on an empty registry must report absence")

	registry.Put(&server.Session{ConnID: "c1", UserID: 1, Username: "alice"})

	sess, ok := registry.Get("c1")
	require.True(t, ok)
	assert.Equal(t, int64(1), sess.UserID)
	assert.Equal(t, "alice", sess.Username)

	registry.Remove("c1")
	_, ok = registry.Get("c1")
	assert.False(t, ok)

	// Removing an absent session is a no-op.
	registry.Remove("c1")
	assert.Equal(t, 0, registry.Len())
}

func TestRegistryPutOverwrites(t *testing.T) {
	registry := server.NewSessionRegistry()

	registry.Put(&server.Session{ConnID: "c1", UserID: 1, Username: "alice"})
	registry.Put(&server.Session{ConnID: "c1", UserID: 2, Username: "bob"})

	sess, ok := registry.Get("c1")
	require.True(t, ok)
	assert.Equal(t, int64(2), sess.UserID)
	assert.Equal(t, 1, registry.Len())
}

func TestRegistryAllExcept(t *testing.T) {
	registry := server.NewSessionRegistry()
	for i := 1; i <= 4; i++ {
		id := fmt.Sprintf("c%d", i)
		registry.Put(&server.Session{ConnID: id, UserID: int64(i), Username: id})
	}

	others := registry.AllExcept("c2")
	assert.Len(t, others, 3)
	for _, s := range others {
		assert.NotEqual(t, "c2", s.ConnID)
	}

	// An unknown exclusion id returns everyone.
	assert.Len(t, registry.AllExcept("ghost"), 4)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	registry := server.NewSessionRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("c%d", n)
			registry.Put(&server.Session{ConnID: id, UserID: int64(n), Username: id})
			registry.Get(id)
			registry.AllExcept(id)
			if n%2 == 0 {
				registry.Remove(id)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 25, registry.Len())
}
