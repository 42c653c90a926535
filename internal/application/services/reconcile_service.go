// Package services provides application-level orchestration services
package services

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/glimpse-go/internal/domain/entities/affordance"
	"github.com/AtRiskMedia/glimpse-go/internal/domain/entities/identity"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/glimpse-go/pkg/config"
)

// ReconcileResult holds the outcome of an identity reconcile push.
type ReconcileResult struct {
	Instruction  *affordance.RenderInstruction `json:"instruction"`
	ProfileToken string                        `json:"profileToken,omitempty"`
	LoggedIn     bool                          `json:"loggedIn"`
}

// ReconcileService applies the identity provider's resolved identity to the
// snapshot cache and pushes the corrected affordance to the session's open
// streams.
type ReconcileService struct {
	cache       interfaces.SnapshotCache
	affordances *AffordanceService
	broadcaster messaging.Broadcaster
	monitor     *messaging.MonitorBroadcaster
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewReconcileService creates a new reconcile service.
func NewReconcileService(cache interfaces.SnapshotCache, affordances *AffordanceService, broadcaster messaging.Broadcaster, monitor *messaging.MonitorBroadcaster, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *ReconcileService {
	return &ReconcileService{
		cache:       cache,
		affordances: affordances,
		broadcaster: broadcaster,
		monitor:     monitor,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// Reconcile applies the resolved identity for a session. A nil identity means
// the provider confirmed a signed-out visitor. The fresh render instruction
// is broadcast to the session before being returned.
func (s *ReconcileService) Reconcile(sessionID string, ident *identity.ExternalIdentity) (*ReconcileResult, error) {
	marker := s.perfTracker.StartOperation("reconcile:apply", sessionID)
	defer s.perfTracker.CompleteOperation(marker)

	if ident != nil {
		if err := ident.Validate(); err != nil {
			marker.SetError(err)
			s.logger.LogError(logging.ChannelAuth, "reconcile", err, map[string]any{
				"sessionId": logging.SanitizeSessionID(sessionID),
			})
			return nil, fmt.Errorf("invalid identity payload: %w", err)
		}
	}

	_, loggedIn := s.cache.Reconcile(sessionID, ident)

	instruction := s.affordances.Decide(sessionID)
	s.broadcaster.BroadcastAuthChanged(sessionID, instruction)

	result := &ReconcileResult{
		Instruction: instruction,
		LoggedIn:    loggedIn,
	}

	if ident != nil && config.ReconcileJWTSecret != "" {
		token, err := security.GenerateProfileToken(ident, sessionID, config.ReconcileJWTSecret)
		if err != nil {
			// Token issuance is a convenience; the reconcile itself stands.
			s.logger.Auth().Warn("Profile token issuance failed",
				"sessionId", logging.SanitizeSessionID(sessionID),
				"error", err.Error(),
			)
		} else {
			result.ProfileToken = token
		}
	}

	s.publishReconcile(sessionID, ident != nil)
	return result, nil
}

// publishReconcile streams the reconcile outcome to the operations monitor.
func (s *ReconcileService) publishReconcile(sessionID string, identityPresent bool) {
	if s.monitor == nil {
		return
	}
	s.monitor.Publish(messaging.MonitorEvent{
		Type:      "reconcile",
		Timestamp: time.Now().UTC(),
		SessionID: logging.SanitizeSessionID(sessionID),
		Data: map[string]any{
			"identityPresent": identityPresent,
		},
	})
}
