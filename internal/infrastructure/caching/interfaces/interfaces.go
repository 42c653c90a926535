// Package interfaces defines the snapshot cache contracts.
package interfaces

import (
	"time"

	"github.com/AtRiskMedia/glimpse-go/internal/domain/entities/identity"
)

// Storage slot names. Each visitor session owns both slots independently.
const (
	SlotSnapshot   = "auth:snapshot"   // JSON identity snapshot
	SlotHasAccount = "auth:hasAccount" // sticky account flag, string bool
)

// DefaultSnapshotTTL bounds how long a snapshot is considered fresh.
const DefaultSnapshotTTL = 24 * time.Hour

// SnapshotCache is the optimistic identity snapshot cache. Reads never fail
// outward: any invalid, corrupt, or expired entry collapses to a miss and is
// purged. Write failures are logged and swallowed.
type SnapshotCache interface {
	// Read returns the current snapshot, with found=false when no valid
	// fresh snapshot exists.
	Read(sessionID string) (*identity.Snapshot, bool)

	// Write overlays the supplied fields onto the documented defaults and
	// stamps LastSync. Omitted fields never survive from a prior record.
	Write(sessionID string, partial identity.Partial)

	// Erase removes the snapshot. The account flag is untouched.
	Erase(sessionID string)

	// MarkHasAccount sets the sticky account flag. It is never cleared.
	MarkHasAccount(sessionID string)

	// HasAccount reports whether this session has ever confirmed an account.
	HasAccount(sessionID string) bool

	// Reconcile applies the provider's resolved identity: a present identity
	// marks the account flag and rewrites the snapshot; a nil identity
	// erases the snapshot and leaves the flag alone.
	Reconcile(sessionID string, ident *identity.ExternalIdentity) (*identity.Snapshot, bool)
}
