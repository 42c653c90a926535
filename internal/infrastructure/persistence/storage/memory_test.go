package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGet(t *testing.T) {
	store := NewMemoryStore()

	value, found, err := store.Get("session-1", "auth:snapshot")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, value)

	require.NoError(t, store.Set("session-1", "auth:snapshot", `{"isLoggedIn":true}`))

	value, found, err = store.Get("session-1", "auth:snapshot")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"isLoggedIn":true}`, value)
}

func TestMemoryStoreSlotsAreIndependent(t *testing.T) {
	store := NewMemoryStore()

	require.NoError(t, store.Set("session-1", "auth:snapshot", "a"))
	require.NoError(t, store.Set("session-1", "auth:hasAccount", "true"))

	require.NoError(t, store.Delete("session-1", "auth:snapshot"))

	_, found, err := store.Get("session-1", "auth:snapshot")
	require.NoError(t, err)
	assert.False(t, found)

	value, found, err := store.Get("session-1", "auth:hasAccount")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "true", value)
}

func TestMemoryStoreSessionsAreIsolated(t *testing.T) {
	store := NewMemoryStore()

	require.NoError(t, store.Set("session-1", "auth:snapshot", "one"))
	require.NoError(t, store.Set("session-2", "auth:snapshot", "two"))

	value, found, err := store.Get("session-2", "auth:snapshot")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "two", value)
}

func TestMemoryStoreDeleteMissingIsNoop(t *testing.T) {
	store := NewMemoryStore()
	assert.NoError(t, store.Delete("session-1", "auth:snapshot"))
}

func TestMemoryStoreOverwrite(t *testing.T) {
	store := NewMemoryStore()

	require.NoError(t, store.Set("session-1", "auth:hasAccount", "true"))
	require.NoError(t, store.Set("session-1", "auth:hasAccount", "false"))

	value, found, err := store.Get("session-1", "auth:hasAccount")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "false", value)
}
