// Package services provides application-level orchestration services
package services

import (
	"time"

	"github.com/AtRiskMedia/glimpse-go/internal/domain/entities/affordance"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/glimpse-go/pkg/config"
)

// AvatarURLBuilder turns a snapshot's raw image URL into a proxied URL the
// page can safely embed.
type AvatarURLBuilder interface {
	ProxyURL(sourceURL string) (string, error)
}

// AffordanceService is the decision engine: it reads the snapshot cache and
// produces the render instruction for the optimistic auth control.
type AffordanceService struct {
	cache       interfaces.SnapshotCache
	avatarURLs  AvatarURLBuilder
	monitor     *messaging.MonitorBroadcaster
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewAffordanceService creates a new affordance decision service.
func NewAffordanceService(cache interfaces.SnapshotCache, avatarURLs AvatarURLBuilder, monitor *messaging.MonitorBroadcaster, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AffordanceService {
	return &AffordanceService{
		cache:       cache,
		avatarURLs:  avatarURLs,
		monitor:     monitor,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// Decide computes the render instruction for a session. It is synchronous
// and never fails outward: every cache failure mode collapses to the
// neutral Unknown state.
func (s *AffordanceService) Decide(sessionID string) *affordance.RenderInstruction {
	marker := s.perfTracker.StartOperation("affordance:decide", sessionID)
	defer s.perfTracker.CompleteOperation(marker)

	snapshot, found := s.cache.Read(sessionID)
	hasAccount := s.cache.HasAccount(sessionID)

	if found {
		marker.AddCacheHit()
	} else {
		marker.AddCacheMiss()
	}

	var instruction *affordance.RenderInstruction
	switch {
	case found && snapshot.IsLoggedIn:
		instruction = s.avatarInstruction(sessionID, snapshot.UserName, snapshot.UserImage)
	case found:
		instruction = actionInstruction(hasAccount)
	default:
		instruction = loadingInstruction(hasAccount)
	}

	marker.AddMetadata("state", string(instruction.State))
	s.publishDecision(sessionID, instruction)

	s.logger.Auth().Debug("Affordance decided",
		"sessionId", logging.SanitizeSessionID(sessionID),
		"state", string(instruction.State),
		"kind", string(instruction.Kind),
	)
	return instruction
}

// avatarInstruction builds the signed-in affordance. The raw image URL never
// reaches the page; it travels through the avatar proxy or falls back to the
// generic glyph.
func (s *AffordanceService) avatarInstruction(sessionID, userName string, userImage *string) *affordance.RenderInstruction {
	instruction := &affordance.RenderInstruction{
		Kind:  affordance.KindAvatar,
		State: affordance.CachedLoggedIn,
		Label: userName,
		Href:  config.AccountAreaPath,
	}

	if userImage != nil && *userImage != "" && s.avatarURLs != nil {
		proxied, err := s.avatarURLs.ProxyURL(*userImage)
		if err != nil {
			s.logger.Avatar().Warn("Falling back to generic avatar glyph",
				"sessionId", logging.SanitizeSessionID(sessionID),
				"error", err.Error(),
			)
		} else {
			instruction.ImageURL = proxied
		}
	}

	return instruction
}

// actionInstruction builds the actionable control for a cached-logged-out
// visitor. The label and the bound action follow the sticky account flag.
func actionInstruction(hasAccount bool) *affordance.RenderInstruction {
	if hasAccount {
		return &affordance.RenderInstruction{
			Kind:   affordance.KindAction,
			State:  affordance.CachedLoggedOut,
			Label:  "Sign In",
			Action: affordance.ActionSignIn,
		}
	}
	return &affordance.RenderInstruction{
		Kind:   affordance.KindAction,
		State:  affordance.CachedLoggedOut,
		Label:  "Sign Up",
		Action: affordance.ActionSignUp,
	}
}

// loadingInstruction builds the neutral disabled control for the Unknown
// state. Label follows the account flag, but nothing is clickable yet.
func loadingInstruction(hasAccount bool) *affordance.RenderInstruction {
	label := "Sign Up"
	if hasAccount {
		label = "Sign In"
	}
	return &affordance.RenderInstruction{
		Kind:  affordance.KindLoading,
		State: affordance.Unknown,
		Label: label,
	}
}

// publishDecision streams the decision to the operations monitor.
func (s *AffordanceService) publishDecision(sessionID string, instruction *affordance.RenderInstruction) {
	if s.monitor == nil {
		return
	}
	s.monitor.Publish(messaging.MonitorEvent{
		Type:      "decision",
		Timestamp: time.Now().UTC(),
		SessionID: logging.SanitizeSessionID(sessionID),
		Data: map[string]any{
			"state": string(instruction.State),
			"kind":  string(instruction.Kind),
		},
	})
}
