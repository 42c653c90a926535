package detect

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/logging"
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

const (
	uaInstagram     = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Instagram 300.0.0.0"
	uaFacebook      = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 [FBAN/FBIOS;FBAV/450.0.0.0]"
	uaTikTok        = "Mozilla/5.0 (Linux; Android 13) AppleWebKit/537.36 musical_ly_2022 BytedanceWebview"
	uaAndroidWV     = "Mozilla/5.0 (Linux; Android 13; Pixel 7; wv) AppleWebKit/537.36 (KHTML, like Gecko) Version/4.0 Chrome/120.0 Mobile Safari/537.36"
	uaIOSWebview    = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148"
	uaMobileSafari  = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	uaDesktopChrome = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

func TestClassifySignatureMatches(t *testing.T) {
	detector := NewDetector(nil, quietLogger(t))

	tests := []struct {
		name      string
		userAgent string
		signature string
	}{
		{"instagram", uaInstagram, "Instagram"},
		{"facebook", uaFacebook, "Facebook"},
		{"tiktok", uaTikTok, "TikTok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := detector.Classify(tt.userAgent)
			assert.True(t, result.Restrictive)
			assert.True(t, result.Embedded)
			assert.Equal(t, tt.signature, result.Signature)
			assert.Equal(t, MethodSignature, result.Method)
		})
	}
}

func TestClassifyAndroidWebviewHeuristic(t *testing.T) {
	detector := NewDetector(nil, quietLogger(t))

	result := detector.Classify(uaAndroidWV)
	assert.True(t, result.Restrictive)
	assert.True(t, result.Embedded)
	assert.Equal(t, MethodAndroidWebview, result.Method)
	assert.Empty(t, result.Signature)
}

func TestClassifyIOSWebviewHeuristic(t *testing.T) {
	detector := NewDetector(nil, quietLogger(t))

	result := detector.Classify(uaIOSWebview)
	assert.True(t, result.Restrictive)
	assert.True(t, result.Embedded)
	assert.Equal(t, MethodIOSWebview, result.Method)
}

func TestClassifyRegularBrowsersAreOpen(t *testing.T) {
	detector := NewDetector(nil, quietLogger(t))

	for _, ua := range []string{uaMobileSafari, uaDesktopChrome} {
		result := detector.Classify(ua)
		assert.False(t, result.Restrictive, "user agent: %s", ua)
		assert.False(t, result.Embedded)
		assert.Equal(t, MethodNone, result.Method)
	}
}

func TestClassifyProbeRestrictive(t *testing.T) {
	probe := func() (bool, error) { return true, nil }
	detector := NewDetector(probe, quietLogger(t))

	result := detector.Classify(uaDesktopChrome)
	assert.True(t, result.Restrictive)
	assert.False(t, result.Embedded)
	assert.Equal(t, MethodProbe, result.Method)
}

func TestClassifyProbeErrorFailsOpen(t *testing.T) {
	probe := func() (bool, error) { return true, errors.New("probe unavailable") }
	detector := NewDetector(probe, quietLogger(t))

	result := detector.Classify(uaDesktopChrome)
	assert.False(t, result.Restrictive)
	assert.Equal(t, MethodNone, result.Method)
}

func TestClassifyProbePanicFailsOpen(t *testing.T) {
	probe := func() (bool, error) { panic("broken probe") }
	detector := NewDetector(probe, quietLogger(t))

	assert.NotPanics(t, func() {
		result := detector.Classify(uaDesktopChrome)
		assert.False(t, result.Restrictive)
	})
}

func TestSignatureWinsOverProbe(t *testing.T) {
	// A probe that says open must not override a signature match.
	probe := func() (bool, error) { return false, nil }
	detector := NewDetector(probe, quietLogger(t))

	result := detector.Classify(uaInstagram)
	assert.True(t, result.Restrictive)
	assert.Equal(t, MethodSignature, result.Method)
}

func TestMatchSignatureCatalog(t *testing.T) {
	tests := []struct {
		token string
		name  string
	}{
		{"Snapchat", "Snapchat"},
		{"LinkedInApp", "LinkedIn"},
		{"Line/12.0", "Line"},
		{"KAKAOTALK", "KakaoTalk"},
		{"MicroMessenger", "WeChat"},
		{"QQ/8.9", "QQ"},
		{"GSA/290.0", "GoogleApp"},
	}

	for _, tt := range tests {
		sig, ok := MatchSignature("Mozilla/5.0 " + tt.token)
		require.True(t, ok, "token %s", tt.token)
		assert.Equal(t, tt.name, sig.Name)
	}

	_, ok := MatchSignature(uaDesktopChrome)
	assert.False(t, ok)
}
