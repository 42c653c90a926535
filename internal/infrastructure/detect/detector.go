package detect

import (
	"strings"

	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/logging"
)

// Method names how a classification was reached.
type Method string

const (
	MethodSignature      Method = "signature"       // known in-app browser token
	MethodAndroidWebview Method = "android_webview" // generic Android webview heuristic
	MethodIOSWebview     Method = "ios_webview"     // generic iOS webview heuristic
	MethodProbe          Method = "probe"           // weak capability probe
	MethodNone           Method = "none"            // nothing matched
)

// Classification is the detector's verdict on the browsing environment.
type Classification struct {
	Restrictive bool   `json:"restrictive"`
	Embedded    bool   `json:"embedded"`
	Signature   string `json:"signature,omitempty"` // matched host app, diagnostics only
	Method      Method `json:"method"`
}

// Probe is an optional weak capability check supplied by the host
// integration. A true result means the environment looks restrictive.
// Errors and panics are swallowed and resolve to not-restrictive.
type Probe func() (bool, error)

// Detector classifies browsing environments from user agent strings.
type Detector struct {
	probe  Probe
	logger *logging.ChanneledLogger
}

// NewDetector creates a new environment detector. The probe may be nil.
func NewDetector(probe Probe, logger *logging.ChanneledLogger) *Detector {
	return &Detector{
		probe:  probe,
		logger: logger,
	}
}

// Classify determines whether the environment is a restrictive embedded
// webview. Signature matches and webview heuristics are decisive; otherwise
// the weak probe gets a say, failing open.
func (d *Detector) Classify(userAgent string) Classification {
	if sig, ok := MatchSignature(userAgent); ok {
		result := Classification{
			Restrictive: true,
			Embedded:    true,
			Signature:   sig.Name,
			Method:      MethodSignature,
		}
		d.log(userAgent, result)
		return result
	}

	if isAndroidWebview(userAgent) {
		result := Classification{
			Restrictive: true,
			Embedded:    true,
			Method:      MethodAndroidWebview,
		}
		d.log(userAgent, result)
		return result
	}

	if isIOSWebview(userAgent) {
		result := Classification{
			Restrictive: true,
			Embedded:    true,
			Method:      MethodIOSWebview,
		}
		d.log(userAgent, result)
		return result
	}

	if restrictive := d.runProbe(); restrictive {
		result := Classification{
			Restrictive: true,
			Method:      MethodProbe,
		}
		d.log(userAgent, result)
		return result
	}

	result := Classification{Method: MethodNone}
	d.log(userAgent, result)
	return result
}

// runProbe executes the weak capability probe, containing any panic and
// resolving every failure to not-restrictive.
func (d *Detector) runProbe() (restrictive bool) {
	if d.probe == nil {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			if d.logger != nil {
				d.logger.Detect().Warn("Capability probe panicked, resolving as open", "panic", r)
			}
			restrictive = false
		}
	}()

	result, err := d.probe()
	if err != nil {
		if d.logger != nil {
			d.logger.Detect().Debug("Capability probe failed, resolving as open", "error", err.Error())
		}
		return false
	}
	return result
}

func (d *Detector) log(userAgent string, result Classification) {
	if d.logger == nil {
		return
	}
	d.logger.Detect().Debug("Environment classified",
		"restrictive", result.Restrictive,
		"embedded", result.Embedded,
		"signature", result.Signature,
		"method", string(result.Method),
		"userAgent", userAgent,
	)
}

// isAndroidWebview matches the generic Android webview marker.
func isAndroidWebview(userAgent string) bool {
	return strings.Contains(userAgent, "Android") && strings.Contains(userAgent, "; wv")
}

// isIOSWebview matches iOS webviews: an Apple mobile device running WebKit
// without the Safari token.
func isIOSWebview(userAgent string) bool {
	isAppleDevice := strings.Contains(userAgent, "iPhone") ||
		strings.Contains(userAgent, "iPad") ||
		strings.Contains(userAgent, "iPod")
	return isAppleDevice &&
		strings.Contains(userAgent, "AppleWebKit") &&
		!strings.Contains(userAgent, "Safari")
}
