package stores

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/AtRiskMedia/glimpse-go/internal/domain/entities/identity"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/persistence/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToFile:    false,
		OutputToConsole: false,
		JSONFormat:      true,
		DefaultLevel:    slog.LevelError,
	})
	require.NoError(t, err)
	return logger
}

func newTestStore(t *testing.T) (*SnapshotStore, storage.KeyValueStore) {
	t.Helper()
	kv := storage.NewMemoryStore()
	return NewSnapshotStore(kv, 24*time.Hour, quietLogger(t)), kv
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestWriteThenRead(t *testing.T) {
	store, _ := newTestStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return now })

	store.Write("session-1", identity.Partial{
		IsLoggedIn: boolPtr(true),
		UserID:     strPtr("user_abc123"),
		UserName:   strPtr("Ada"),
	})

	snapshot, found := store.Read("session-1")
	require.True(t, found)
	assert.True(t, snapshot.IsLoggedIn)
	require.NotNil(t, snapshot.UserID)
	assert.Equal(t, "user_abc123", *snapshot.UserID)
	assert.Equal(t, "Ada", snapshot.UserName)
	assert.Nil(t, snapshot.UserImage)
	assert.Equal(t, now.UnixMilli(), snapshot.LastSync.UnixMilli())
}

func TestWriteStartsFromDefaults(t *testing.T) {
	store, _ := newTestStore(t)

	store.Write("session-1", identity.Partial{
		IsLoggedIn: boolPtr(true),
		UserID:     strPtr("user_abc123"),
		UserName:   strPtr("Ada"),
		UserImage:  strPtr("https://img.example.com/ada.png"),
	})

	// A later write supplying only one field must not inherit the rest
	// from the previous record.
	store.Write("session-1", identity.Partial{
		IsLoggedIn: boolPtr(false),
	})

	snapshot, found := store.Read("session-1")
	require.True(t, found)
	assert.False(t, snapshot.IsLoggedIn)
	assert.Nil(t, snapshot.UserID)
	assert.Equal(t, "", snapshot.UserName)
	assert.Nil(t, snapshot.UserImage)
}

func TestWriteStampsLastSyncOnEveryWrite(t *testing.T) {
	store, _ := newTestStore(t)

	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return first })
	store.Write("session-1", identity.Partial{IsLoggedIn: boolPtr(false)})

	second := first.Add(2 * time.Hour)
	store.SetClock(func() time.Time { return second })
	store.Write("session-1", identity.Partial{UserName: strPtr("Ada")})

	snapshot, found := store.Read("session-1")
	require.True(t, found)
	assert.Equal(t, second.UnixMilli(), snapshot.LastSync.UnixMilli())
}

func TestExpiredSnapshotReadsAsMissAndPurges(t *testing.T) {
	store, kv := newTestStore(t)

	written := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return written })
	store.Write("session-1", identity.Partial{IsLoggedIn: boolPtr(true), UserID: strPtr("user_abc123"), UserName: strPtr("Ada")})

	store.SetClock(func() time.Time { return written.Add(25 * time.Hour) })

	_, found := store.Read("session-1")
	assert.False(t, found)

	// The stale slot must be gone from storage, not merely skipped.
	_, rawFound, err := kv.Get("session-1", interfaces.SlotSnapshot)
	require.NoError(t, err)
	assert.False(t, rawFound)
}

func TestSnapshotAtExactTTLStillFresh(t *testing.T) {
	store, _ := newTestStore(t)

	written := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return written })
	store.Write("session-1", identity.Partial{IsLoggedIn: boolPtr(true), UserName: strPtr("Ada")})

	store.SetClock(func() time.Time { return written.Add(24 * time.Hour) })

	_, found := store.Read("session-1")
	assert.True(t, found)
}

func TestCorruptSnapshotSelfHeals(t *testing.T) {
	store, kv := newTestStore(t)

	require.NoError(t, kv.Set("session-1", interfaces.SlotSnapshot, "{not json"))

	_, found := store.Read("session-1")
	assert.False(t, found)

	_, rawFound, err := kv.Get("session-1", interfaces.SlotSnapshot)
	require.NoError(t, err)
	assert.False(t, rawFound)
}

func TestEraseLeavesAccountFlag(t *testing.T) {
	store, _ := newTestStore(t)

	store.Write("session-1", identity.Partial{IsLoggedIn: boolPtr(true), UserName: strPtr("Ada")})
	store.MarkHasAccount("session-1")

	store.Erase("session-1")

	_, found := store.Read("session-1")
	assert.False(t, found)
	assert.True(t, store.HasAccount("session-1"))
}

func TestHasAccountDefaultsFalse(t *testing.T) {
	store, _ := newTestStore(t)
	assert.False(t, store.HasAccount("session-1"))
}

func TestReconcileWithIdentity(t *testing.T) {
	store, _ := newTestStore(t)

	snapshot, loggedIn := store.Reconcile("session-1", &identity.ExternalIdentity{
		UserID:    "user_abc123",
		UserName:  "Ada",
		UserImage: "https://img.example.com/ada.png",
	})

	require.True(t, loggedIn)
	require.NotNil(t, snapshot)
	assert.True(t, snapshot.IsLoggedIn)
	require.NotNil(t, snapshot.UserID)
	assert.Equal(t, "user_abc123", *snapshot.UserID)
	assert.Equal(t, "Ada", snapshot.UserName)
	require.NotNil(t, snapshot.UserImage)
	assert.Equal(t, "https://img.example.com/ada.png", *snapshot.UserImage)
	assert.True(t, store.HasAccount("session-1"))
}

func TestReconcileReplacesStaleFields(t *testing.T) {
	store, _ := newTestStore(t)

	store.Write("session-1", identity.Partial{
		IsLoggedIn: boolPtr(true),
		UserID:     strPtr("user_old"),
		UserName:   strPtr("Old Name"),
		UserImage:  strPtr("https://img.example.com/old.png"),
	})

	// The reconciled identity has no image; none may survive from the
	// previous snapshot.
	snapshot, loggedIn := store.Reconcile("session-1", &identity.ExternalIdentity{
		UserID:   "user_new99",
		UserName: "New Name",
	})

	require.True(t, loggedIn)
	require.NotNil(t, snapshot)
	assert.Equal(t, "user_new99", *snapshot.UserID)
	assert.Equal(t, "New Name", snapshot.UserName)
	assert.Nil(t, snapshot.UserImage)
}

func TestReconcileSignedOut(t *testing.T) {
	store, _ := newTestStore(t)

	store.Write("session-1", identity.Partial{IsLoggedIn: boolPtr(true), UserName: strPtr("Ada")})
	store.MarkHasAccount("session-1")

	snapshot, loggedIn := store.Reconcile("session-1", nil)

	assert.False(t, loggedIn)
	assert.Nil(t, snapshot)

	_, found := store.Read("session-1")
	assert.False(t, found)

	// Signed out does not mean no account: the sticky flag survives.
	assert.True(t, store.HasAccount("session-1"))
}

func TestReconcileSignedOutWithoutPriorFlag(t *testing.T) {
	store, _ := newTestStore(t)

	_, loggedIn := store.Reconcile("session-1", nil)
	assert.False(t, loggedIn)
	assert.False(t, store.HasAccount("session-1"))
}

type failingStore struct{ err error }

func (f *failingStore) Get(sessionID, slot string) (string, bool, error) { return "", false, f.err }
func (f *failingStore) Set(sessionID, slot, value string) error          { return f.err }
func (f *failingStore) Delete(sessionID, slot string) error              { return f.err }
func (f *failingStore) Close() error                                     { return nil }

func TestStorageFailuresCollapseToMiss(t *testing.T) {
	store := NewSnapshotStore(&failingStore{err: errors.New("backend down")}, time.Hour, quietLogger(t))

	_, found := store.Read("session-1")
	assert.False(t, found)
	assert.False(t, store.HasAccount("session-1"))

	// Writes are swallowed, not propagated.
	store.Write("session-1", identity.Partial{IsLoggedIn: boolPtr(true)})
	store.Erase("session-1")
	store.MarkHasAccount("session-1")
}
