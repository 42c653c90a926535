package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AtRiskMedia/glimpse-go/internal/application/services"
	"github.com/AtRiskMedia/glimpse-go/internal/domain/entities/affordance"
	"github.com/AtRiskMedia/glimpse-go/internal/domain/entities/identity"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/caching/stores"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/detect"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/persistence/storage"
	"github.com/AtRiskMedia/glimpse-go/internal/presentation/http/middleware"
	"github.com/AtRiskMedia/glimpse-go/internal/presentation/templates"
	"github.com/gin-gonic/gin"
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

type openGateway struct{}

func (openGateway) SignInAvailable() bool { return true }
func (openGateway) SignUpAvailable() bool { return true }

func newTestRouter(t *testing.T) (*gin.Engine, *stores.SnapshotStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := quietLogger(t)
	tracker := performance.NewTracker(nil)
	cache := stores.NewSnapshotStore(storage.NewMemoryStore(), 24*time.Hour, logger)
	affordanceService := services.NewAffordanceService(cache, nil, nil, logger, tracker)
	routingService := services.NewRoutingService(detect.NewDetector(nil, logger), openGateway{}, nil, logger, tracker)
	h := NewAffordanceHandlers(affordanceService, routingService, templates.NewAffordanceRenderer(), logger, tracker)

	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(middleware.SessionMiddleware())
	api.GET("/auth/affordance", h.GetAffordance)
	api.GET("/auth/route", h.GetRoute)
	return r, cache
}

func TestGetAffordanceJSON(t *testing.T) {
	router, cache := newTestRouter(t)
	cache.Reconcile("sess-json-1", &identity.ExternalIdentity{UserID: "user_abc123", UserName: "Ada"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/affordance", nil)
	req.Header.Set("X-Glimpse-Session-ID", "sess-json-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var instruction affordance.RenderInstruction
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &instruction))
	assert.Equal(t, affordance.KindAvatar, instruction.Kind)
	assert.Equal(t, affordance.CachedLoggedIn, instruction.State)
	assert.Equal(t, "Ada", instruction.Label)
}

func TestGetAffordanceHTMLFragment(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/affordance?format=html", nil)
	req.Header.Set("X-Glimpse-Session-ID", "sess-html-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "auth-affordance--loading")
}

func TestGetAffordanceMintsSessionWhenAbsent(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/affordance", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Glimpse-Session-ID"))

	cookies := w.Result().Cookies()
	var sessionCookie *http.Cookie
	for _, c := range cookies {
		if c.Name == middleware.SessionCookie {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	assert.NotEmpty(t, sessionCookie.Value)
}

func TestGetRouteRejectsUnknownAction(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/route?action=delete", nil)
	req.Header.Set("X-Glimpse-Session-ID", "sess-route-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRouteDefaultsReturnToReferer(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/route?action=signin", nil)
	req.Header.Set("X-Glimpse-Session-ID", "sess-route-3")
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone) AppleWebKit/605.1.15 Instagram 300.0")
	req.Header.Set("Referer", "/pricing")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var decision services.RouteDecision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	assert.Equal(t, services.RouteRedirect, decision.Mode)
	assert.Contains(t, decision.RedirectURL, "redirect_url=%2Fpricing")
}

func TestGetRouteRestrictiveEnvironment(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/route?action=signin&return=/pricing", nil)
	req.Header.Set("X-Glimpse-Session-ID", "sess-route-2")
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone) AppleWebKit/605.1.15 Instagram 300.0")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var decision services.RouteDecision
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
	assert.Equal(t, services.RouteRedirect, decision.Mode)
	assert.True(t, decision.Restrictive)
	assert.Contains(t, decision.RedirectURL, "redirect_url=%2Fpricing")
}
