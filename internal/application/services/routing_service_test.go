package services

import (
	"testing"
	"time"

	"github.com/AtRiskMedia/glimpse-go/internal/domain/entities/affordance"
	"github.com/AtRiskMedia/glimpse-go/internal/domain/entities/identity"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/detect"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/persistence/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	uaInstagram = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Instagram 300.0.0.0"
	uaDesktop   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

type stubGateway struct {
	signIn bool
	signUp bool
}

func (g stubGateway) SignInAvailable() bool { return g.signIn }
func (g stubGateway) SignUpAvailable() bool { return g.signUp }

func newRoutingFixture(t *testing.T, gateway SDKGateway) *RoutingService {
	t.Helper()
	logger := quietLogger(t)
	detector := detect.NewDetector(nil, logger)
	return NewRoutingService(detector, gateway, nil, logger, performance.NewTracker(nil))
}

func TestRouteOpenEnvironmentUsesInPage(t *testing.T) {
	svc := newRoutingFixture(t, stubGateway{signIn: true, signUp: true})

	decision := svc.Route("session-1", uaDesktop, affordance.ActionSignIn, "/pricing")
	assert.Equal(t, RouteInPage, decision.Mode)
	assert.Equal(t, "openSignIn", decision.EntryPoint)
	assert.Empty(t, decision.RedirectURL)
	assert.False(t, decision.Restrictive)
}

func TestRouteSignUpEntryPoint(t *testing.T) {
	svc := newRoutingFixture(t, stubGateway{signIn: true, signUp: true})

	decision := svc.Route("session-1", uaDesktop, affordance.ActionSignUp, "")
	assert.Equal(t, RouteInPage, decision.Mode)
	assert.Equal(t, "openSignUp", decision.EntryPoint)
}

func TestRouteRestrictiveEnvironmentForcesRedirect(t *testing.T) {
	svc := newRoutingFixture(t, stubGateway{signIn: true, signUp: true})

	decision := svc.Route("session-1", uaInstagram, affordance.ActionSignIn, "/pricing")
	assert.Equal(t, RouteRedirect, decision.Mode)
	assert.Empty(t, decision.EntryPoint)
	assert.Equal(t, "/sign-in?redirect_url=%2Fpricing", decision.RedirectURL)
	assert.True(t, decision.Restrictive)
}

func TestRouteUnavailableSDKForcesRedirect(t *testing.T) {
	svc := newRoutingFixture(t, stubGateway{signIn: false, signUp: false})

	decision := svc.Route("session-1", uaDesktop, affordance.ActionSignUp, "")
	assert.Equal(t, RouteRedirect, decision.Mode)
	assert.Equal(t, "/sign-up", decision.RedirectURL)
	assert.False(t, decision.Restrictive)
}

func TestRouteRedirectWithoutReturnOmitsParam(t *testing.T) {
	svc := newRoutingFixture(t, stubGateway{})

	decision := svc.Route("session-1", uaInstagram, affordance.ActionSignIn, "")
	assert.Equal(t, "/sign-in", decision.RedirectURL)
}

func TestRouteReturnDestinationIsEscaped(t *testing.T) {
	svc := newRoutingFixture(t, stubGateway{})

	decision := svc.Route("session-1", uaInstagram, affordance.ActionSignUp, "/docs?page=2&lang=en")
	assert.Equal(t, "/sign-up?redirect_url=%2Fdocs%3Fpage%3D2%26lang%3Den", decision.RedirectURL)
}

func TestRouteDecisionIsNeverANoop(t *testing.T) {
	for _, gateway := range []stubGateway{{true, true}, {false, false}} {
		for _, ua := range []string{uaDesktop, uaInstagram} {
			svc := newRoutingFixture(t, gateway)
			decision := svc.Route("session-1", ua, affordance.ActionSignIn, "")
			assert.True(t, decision.EntryPoint != "" || decision.RedirectURL != "")
		}
	}
}

func TestReconcileServiceInvalidIdentity(t *testing.T) {
	logger := quietLogger(t)
	cache := stores.NewSnapshotStore(storage.NewMemoryStore(), 24*time.Hour, logger)
	tracker := performance.NewTracker(nil)
	affordances := NewAffordanceService(cache, nil, nil, logger, tracker)
	broadcaster := messaging.NewSSEBroadcaster(logger)
	svc := NewReconcileService(cache, affordances, broadcaster, nil, logger, tracker)

	_, err := svc.Reconcile("session-1", &identity.ExternalIdentity{UserID: "not-a-user-id"})
	require.Error(t, err)

	// The malformed push must not have touched the cache.
	_, found := cache.Read("session-1")
	assert.False(t, found)
	assert.False(t, cache.HasAccount("session-1"))
}

func TestReconcileServiceAppliesIdentity(t *testing.T) {
	logger := quietLogger(t)
	cache := stores.NewSnapshotStore(storage.NewMemoryStore(), 24*time.Hour, logger)
	tracker := performance.NewTracker(nil)
	affordances := NewAffordanceService(cache, nil, nil, logger, tracker)
	broadcaster := messaging.NewSSEBroadcaster(logger)
	svc := NewReconcileService(cache, affordances, broadcaster, nil, logger, tracker)

	ch := broadcaster.AddClient("session-1")
	defer broadcaster.RemoveClient(ch, "session-1")

	result, err := svc.Reconcile("session-1", &identity.ExternalIdentity{
		UserID:   "user_abc123",
		UserName: "Ada",
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.LoggedIn)
	require.NotNil(t, result.Instruction)
	assert.Equal(t, affordance.CachedLoggedIn, result.Instruction.State)

	// The session's open stream got the corrected affordance.
	select {
	case msg := <-ch:
		assert.Contains(t, msg, "event: auth_changed")
		assert.Contains(t, msg, "cached_logged_in")
	default:
		t.Fatal("expected an auth_changed event on the session stream")
	}
}
