// Package security provides JWT token utilities
package security

import (
	"errors"
	"log"
	"time"

	"github.com/AtRiskMedia/glimpse-go/internal/domain/entities/identity"
	"github.com/golang-jwt/jwt/v4"
)

// ValidateJWT validates a JWT token and returns the claims
func ValidateJWT(tokenString, jwtSecret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// GetIdentityFromClaims extracts the resolved identity from reconcile claims.
// A nil return means the provider reported a signed-out visitor.
func GetIdentityFromClaims(claims jwt.MapClaims) *identity.ExternalIdentity {
	identityData, ok := claims["identity"].(map[string]any)
	if !ok {
		return nil
	}

	userID, _ := identityData["userId"].(string)
	userName, _ := identityData["userName"].(string)
	userImage, _ := identityData["userImage"].(string)
	if userID == "" {
		return nil
	}

	return &identity.ExternalIdentity{
		UserID:    userID,
		UserName:  userName,
		UserImage: userImage,
	}
}

// GenerateProfileToken creates a JWT restating the UI-safe identity facts
// for the host page to carry on later requests. Nothing in it grants access.
func GenerateProfileToken(ident *identity.ExternalIdentity, sessionID, jwtSecret string) (string, error) {
	claims := jwt.MapClaims{
		"sessionId": sessionID,
		"identity": map[string]string{
			"userId":    ident.UserID,
			"userName":  ident.UserName,
			"userImage": ident.UserImage,
		},
		"iat": time.Now().UTC().Unix(),
		"exp": time.Now().UTC().Add(30 * 24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	result, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		log.Printf("ERROR: Failed to sign JWT token: %v", err)
		return "", err
	}

	return result, nil
}

// GenerateMonitorToken creates a short-lived JWT for the operations monitor.
func GenerateMonitorToken(jwtSecret string) (string, error) {
	claims := jwt.MapClaims{
		"role": "monitor",
		"iat":  time.Now().UTC().Unix(),
		"exp":  time.Now().UTC().Add(12 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}
