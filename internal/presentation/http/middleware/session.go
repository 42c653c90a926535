// Package middleware provides HTTP middleware for the presentation layer.
package middleware

import (
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/security"
	"github.com/gin-gonic/gin"
)

const (
	// SessionHeader carries the session ID on API requests.
	SessionHeader = "X-Glimpse-Session-ID"

	// SessionCookie persists the session ID across page loads.
	SessionCookie = "glimpse_session"

	sessionContextKey = "session"

	// Cookie lifetime in seconds (30 days).
	sessionCookieMaxAge = 30 * 24 * 60 * 60
)

// SessionMiddleware resolves the session ID for a request. Resolution order:
// the X-Glimpse-Session-ID header, the sessionId query parameter (EventSource
// cannot set custom headers), the session cookie, and finally a freshly
// minted ULID which is also written back as a cookie.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.GetHeader(SessionHeader)

		if sessionID == "" {
			sessionID = c.Query("sessionId")
		}

		if sessionID == "" {
			if cookie, err := c.Cookie(SessionCookie); err == nil {
				sessionID = cookie
			}
		}

		if sessionID == "" {
			sessionID = security.GenerateULID()
			c.SetCookie(SessionCookie, sessionID, sessionCookieMaxAge, "/", "", false, true)
		}

		c.Set(sessionContextKey, sessionID)
		c.Header(SessionHeader, sessionID)

		c.Next()
	}
}

// GetSessionID retrieves the resolved session ID from gin context.
func GetSessionID(c *gin.Context) (string, bool) {
	value, exists := c.Get(sessionContextKey)
	if !exists {
		return "", false
	}

	sessionID, ok := value.(string)
	return sessionID, ok && sessionID != ""
}
