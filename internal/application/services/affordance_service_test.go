package services

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/AtRiskMedia/glimpse-go/internal/domain/entities/affordance"
	"github.com/AtRiskMedia/glimpse-go/internal/domain/entities/identity"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/performance"
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

type stubAvatarURLs struct {
	url string
	err error
}

func (s *stubAvatarURLs) ProxyURL(sourceURL string) (string, error) {
	return s.url, s.err
}

func newAffordanceFixture(t *testing.T) (*AffordanceService, *stores.SnapshotStore) {
	t.Helper()
	logger := quietLogger(t)
	cache := stores.NewSnapshotStore(storage.NewMemoryStore(), 24*time.Hour, logger)
	svc := NewAffordanceService(cache, &stubAvatarURLs{url: "/api/v1/avatar/tok123"}, nil, logger, performance.NewTracker(nil))
	return svc, cache
}

func TestDecideUnknownFirstVisit(t *testing.T) {
	svc, _ := newAffordanceFixture(t)

	instruction := svc.Decide("session-1")
	require.NotNil(t, instruction)
	assert.Equal(t, affordance.KindLoading, instruction.Kind)
	assert.Equal(t, affordance.Unknown, instruction.State)
	assert.Equal(t, "Sign Up", instruction.Label)
	assert.Empty(t, instruction.Action)
	assert.Empty(t, instruction.Href)
}

func TestDecideUnknownWithAccountFlag(t *testing.T) {
	svc, cache := newAffordanceFixture(t)
	cache.MarkHasAccount("session-1")

	instruction := svc.Decide("session-1")
	assert.Equal(t, affordance.KindLoading, instruction.Kind)
	assert.Equal(t, affordance.Unknown, instruction.State)
	assert.Equal(t, "Sign In", instruction.Label)
}

func TestDecideCachedLoggedIn(t *testing.T) {
	svc, cache := newAffordanceFixture(t)

	cache.Reconcile("session-1", &identity.ExternalIdentity{
		UserID:    "user_abc123",
		UserName:  "Ada",
		UserImage: "https://img.example.com/ada.png",
	})

	instruction := svc.Decide("session-1")
	assert.Equal(t, affordance.KindAvatar, instruction.Kind)
	assert.Equal(t, affordance.CachedLoggedIn, instruction.State)
	assert.Equal(t, "Ada", instruction.Label)
	assert.Equal(t, "/api/v1/avatar/tok123", instruction.ImageURL)
	assert.NotEmpty(t, instruction.Href)
}

func TestDecideCachedLoggedInWithoutImage(t *testing.T) {
	svc, cache := newAffordanceFixture(t)

	cache.Reconcile("session-1", &identity.ExternalIdentity{
		UserID:   "user_abc123",
		UserName: "Ada",
	})

	instruction := svc.Decide("session-1")
	assert.Equal(t, affordance.KindAvatar, instruction.Kind)
	assert.Empty(t, instruction.ImageURL)
}

func TestDecideAvatarProxyFailureFallsBackToGlyph(t *testing.T) {
	logger := quietLogger(t)
	cache := stores.NewSnapshotStore(storage.NewMemoryStore(), 24*time.Hour, logger)
	svc := NewAffordanceService(cache, &stubAvatarURLs{err: errors.New("no key")}, nil, logger, performance.NewTracker(nil))

	cache.Reconcile("session-1", &identity.ExternalIdentity{
		UserID:    "user_abc123",
		UserName:  "Ada",
		UserImage: "https://img.example.com/ada.png",
	})

	instruction := svc.Decide("session-1")
	assert.Equal(t, affordance.KindAvatar, instruction.Kind)
	assert.Empty(t, instruction.ImageURL)
}

func TestDecideCachedLoggedOut(t *testing.T) {
	svc, cache := newAffordanceFixture(t)

	// A signed-out reconcile after a signed-in one leaves the account flag.
	cache.Reconcile("session-1", &identity.ExternalIdentity{UserID: "user_abc123", UserName: "Ada"})
	cache.Reconcile("session-1", nil)

	// The snapshot is gone, so the state is Unknown, but the sticky flag
	// steers the label toward Sign In.
	instruction := svc.Decide("session-1")
	assert.Equal(t, affordance.Unknown, instruction.State)
	assert.Equal(t, "Sign In", instruction.Label)
}

func TestDecideLoggedOutSnapshot(t *testing.T) {
	svc, cache := newAffordanceFixture(t)

	loggedOut := false
	cache.Write("session-1", identity.Partial{IsLoggedIn: &loggedOut})

	instruction := svc.Decide("session-1")
	assert.Equal(t, affordance.KindAction, instruction.Kind)
	assert.Equal(t, affordance.CachedLoggedOut, instruction.State)
	assert.Equal(t, "Sign Up", instruction.Label)
	assert.Equal(t, affordance.ActionSignUp, instruction.Action)
}

func TestDecideLoggedOutSnapshotWithAccount(t *testing.T) {
	svc, cache := newAffordanceFixture(t)

	loggedOut := false
	cache.Write("session-1", identity.Partial{IsLoggedIn: &loggedOut})
	cache.MarkHasAccount("session-1")

	instruction := svc.Decide("session-1")
	assert.Equal(t, affordance.CachedLoggedOut, instruction.State)
	assert.Equal(t, "Sign In", instruction.Label)
	assert.Equal(t, affordance.ActionSignIn, instruction.Action)
}
