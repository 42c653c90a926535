package identity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotWireFormat(t *testing.T) {
	userID := "user_abc123"
	snapshot := Snapshot{
		IsLoggedIn: true,
		UserID:     &userID,
		UserName:   "Ada",
		LastSync:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(snapshot)
	require.NoError(t, err)

	// LastSync travels as integer milliseconds, not RFC 3339.
	var wire map[string]any
	require.NoError(t, json.Unmarshal(data, &wire))
	assert.EqualValues(t, 1772366400000, wire["lastSync"])
	assert.Equal(t, true, wire["isLoggedIn"])
	assert.Equal(t, "user_abc123", wire["userId"])
	assert.Nil(t, wire["userImage"])

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, snapshot.LastSync.UnixMilli(), decoded.LastSync.UnixMilli())
	assert.Equal(t, "Ada", decoded.UserName)
	require.NotNil(t, decoded.UserID)
	assert.Equal(t, userID, *decoded.UserID)
}

func TestSnapshotIsExpired(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snapshot := Snapshot{LastSync: base}

	assert.False(t, snapshot.IsExpired(24*time.Hour, base.Add(23*time.Hour)))
	assert.False(t, snapshot.IsExpired(24*time.Hour, base.Add(24*time.Hour)))
	assert.True(t, snapshot.IsExpired(24*time.Hour, base.Add(24*time.Hour+time.Millisecond)))
}

func TestExternalIdentityValidate(t *testing.T) {
	valid := &ExternalIdentity{UserID: "user_abc123", UserName: "Ada"}
	assert.NoError(t, valid.Validate())

	withImage := &ExternalIdentity{UserID: "user_abc123", UserImage: "https://img.example.com/a.png"}
	assert.NoError(t, withImage.Validate())

	for _, id := range []string{"", "abc123", "user_", "user_abc!23", "admin_abc123"} {
		bad := &ExternalIdentity{UserID: id}
		assert.Error(t, bad.Validate(), "user id %q", id)
	}

	badImage := &ExternalIdentity{UserID: "user_abc123", UserImage: "javascript:alert(1)"}
	assert.Error(t, badImage.Validate())
}

func TestValidateImageURL(t *testing.T) {
	assert.NoError(t, ValidateImageURL("https://img.example.com/a.png"))
	assert.NoError(t, ValidateImageURL("http://img.example.com/a.png"))
	assert.Error(t, ValidateImageURL("ftp://img.example.com/a.png"))
	assert.Error(t, ValidateImageURL("data:image/png;base64,AAAA"))
	assert.Error(t, ValidateImageURL(""))
}
