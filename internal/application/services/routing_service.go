// Package services provides application-level orchestration services
package services

import (
	"net/url"
	"time"

	"github.com/AtRiskMedia/glimpse-go/internal/domain/entities/affordance"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/detect"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/glimpse-go/pkg/config"
)

// SDKGateway reports per-entry-point availability of the identity provider's
// in-page SDK.
type SDKGateway interface {
	SignInAvailable() bool
	SignUpAvailable() bool
}

// ConfigSDKGateway is the config-backed SDK gateway.
type ConfigSDKGateway struct{}

func (ConfigSDKGateway) SignInAvailable() bool { return config.SDKSignInEnabled }
func (ConfigSDKGateway) SignUpAvailable() bool { return config.SDKSignUpEnabled }

// RouteMode says how the deferred action should run.
type RouteMode string

const (
	RouteInPage   RouteMode = "inpage"
	RouteRedirect RouteMode = "redirect"
)

// RouteDecision is the flow router's answer for a deferred action. It is
// never a no-op: one of EntryPoint or RedirectURL is always set.
type RouteDecision struct {
	Mode        RouteMode `json:"mode"`
	EntryPoint  string    `json:"entryPoint,omitempty"`  // in-page SDK entry point to invoke
	RedirectURL string    `json:"redirectUrl,omitempty"` // full-page navigation target
	Restrictive bool      `json:"restrictive"`           // detector verdict, echoed for diagnostics
}

// RoutingService chooses between the in-page SDK flow and a full-page
// redirect, based on the browsing environment and SDK availability.
type RoutingService struct {
	detector    *detect.Detector
	gateway     SDKGateway
	monitor     *messaging.MonitorBroadcaster
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewRoutingService creates a new flow routing service.
func NewRoutingService(detector *detect.Detector, gateway SDKGateway, monitor *messaging.MonitorBroadcaster, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *RoutingService {
	return &RoutingService{
		detector:    detector,
		gateway:     gateway,
		monitor:     monitor,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// Route decides how the deferred action should run. Restrictive environments
// and unavailable SDK entry points both force the redirect flow.
func (s *RoutingService) Route(sessionID, userAgent string, action affordance.Action, returnTo string) RouteDecision {
	marker := s.perfTracker.StartOperation("route:decide", sessionID)
	defer s.perfTracker.CompleteOperation(marker)

	classification := s.detector.Classify(userAgent)

	var available bool
	var entryPoint, redirectPath string
	switch action {
	case affordance.ActionSignUp:
		available = s.gateway.SignUpAvailable()
		entryPoint = "openSignUp"
		redirectPath = config.SignUpPath
	default:
		available = s.gateway.SignInAvailable()
		entryPoint = "openSignIn"
		redirectPath = config.SignInPath
	}

	var decision RouteDecision
	if classification.Restrictive || !available {
		decision = RouteDecision{
			Mode:        RouteRedirect,
			RedirectURL: buildRedirectURL(redirectPath, returnTo),
			Restrictive: classification.Restrictive,
		}
	} else {
		decision = RouteDecision{
			Mode:        RouteInPage,
			EntryPoint:  entryPoint,
			Restrictive: false,
		}
	}

	marker.AddMetadata("mode", string(decision.Mode))
	s.publishRoute(sessionID, action, classification, decision)

	s.logger.Route().Debug("Flow routed",
		"sessionId", logging.SanitizeSessionID(sessionID),
		"action", string(action),
		"mode", string(decision.Mode),
		"restrictive", classification.Restrictive,
		"method", string(classification.Method),
	)
	return decision
}

// buildRedirectURL appends the URL-encoded return destination when present.
func buildRedirectURL(path, returnTo string) string {
	if returnTo == "" {
		return path
	}
	return path + "?" + config.ReturnParam + "=" + url.QueryEscape(returnTo)
}

// publishRoute streams the routing decision and detector diagnostics to the
// operations monitor.
func (s *RoutingService) publishRoute(sessionID string, action affordance.Action, classification detect.Classification, decision RouteDecision) {
	if s.monitor == nil {
		return
	}
	s.monitor.Publish(messaging.MonitorEvent{
		Type:      "detect",
		Timestamp: time.Now().UTC(),
		SessionID: logging.SanitizeSessionID(sessionID),
		Data: map[string]any{
			"action":      string(action),
			"mode":        string(decision.Mode),
			"restrictive": classification.Restrictive,
			"signature":   classification.Signature,
			"method":      string(classification.Method),
		},
	})
}
