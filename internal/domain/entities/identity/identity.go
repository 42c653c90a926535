// Package identity provides domain entities for the optimistic identity
// snapshot and the resolved identity pushed by the provider. The snapshot
// carries UI-relevant facts only, never credentials.
package identity

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// userIDPattern matches provider user identifiers of the form user_<alnum>.
var userIDPattern = regexp.MustCompile(`^user_[a-zA-Z0-9]+$`)

// Snapshot is the cached, TTL-bounded guess at who the visitor probably is.
// LastSync is stamped exclusively by the snapshot store's own write path.
type Snapshot struct {
	IsLoggedIn bool
	UserID     *string
	UserName   string
	UserImage  *string
	LastSync   time.Time
}

// snapshotWire is the persisted JSON shape. LastSync travels as integer
// milliseconds since the Unix epoch.
type snapshotWire struct {
	IsLoggedIn bool    `json:"isLoggedIn"`
	UserID     *string `json:"userId"`
	UserName   string  `json:"userName"`
	UserImage  *string `json:"userImage"`
	LastSync   int64   `json:"lastSync"`
}

// MarshalJSON encodes the snapshot in its persisted wire shape.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(snapshotWire{
		IsLoggedIn: s.IsLoggedIn,
		UserID:     s.UserID,
		UserName:   s.UserName,
		UserImage:  s.UserImage,
		LastSync:   s.LastSync.UnixMilli(),
	})
}

// UnmarshalJSON decodes the persisted wire shape.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var wire snapshotWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	s.IsLoggedIn = wire.IsLoggedIn
	s.UserID = wire.UserID
	s.UserName = wire.UserName
	s.UserImage = wire.UserImage
	s.LastSync = time.UnixMilli(wire.LastSync)
	return nil
}

// IsExpired reports whether the snapshot has outlived the given TTL as of now.
func (s *Snapshot) IsExpired(ttl time.Duration, now time.Time) bool {
	return now.Sub(s.LastSync) > ttl
}

// Partial is a partial update written as a snapshot. Nil fields take the
// documented defaults (logged out, no user); they never inherit values from
// a previously stored record.
type Partial struct {
	IsLoggedIn *bool
	UserID     *string
	UserName   *string
	UserImage  *string
}

// ExternalIdentity is the resolved identity pushed by the provider once its
// SDK has initialized. A nil ExternalIdentity means "definitely signed out".
type ExternalIdentity struct {
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	UserImage string `json:"userImage,omitempty"`
}

// Validate checks the provider identity for the expected shapes.
func (e *ExternalIdentity) Validate() error {
	if !userIDPattern.MatchString(e.UserID) {
		return fmt.Errorf("invalid user id format: %s", e.UserID)
	}
	if e.UserImage != "" {
		if err := ValidateImageURL(e.UserImage); err != nil {
			return err
		}
	}
	return nil
}

// ValidateImageURL accepts http(s) profile image URLs only.
func ValidateImageURL(raw string) error {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return nil
	}
	return fmt.Errorf("profile image URL must be http(s)")
}
