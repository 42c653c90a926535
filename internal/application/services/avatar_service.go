// Package services provides application-level orchestration services
package services

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AtRiskMedia/glimpse-go/internal/domain/entities/identity"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/media"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/security"
)

// AvatarService runs the avatar proxy: it hands out opaque tokens for
// snapshot image URLs and resolves them back into processed WebP bytes.
// The token is the AES-GCM encrypted source URL, so the proxy cannot be
// aimed at arbitrary origins.
type AvatarService struct {
	processor   *media.AvatarProcessor
	client      *http.Client
	aesKey      string
	fetchLimit  int64
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewAvatarService creates a new avatar proxy service.
func NewAvatarService(processor *media.AvatarProcessor, aesKey string, fetchLimit int64, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AvatarService {
	return &AvatarService{
		processor:   processor,
		client:      &http.Client{Timeout: 10 * time.Second},
		aesKey:      aesKey,
		fetchLimit:  fetchLimit,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// ProxyURL returns the proxied URL for a source image URL.
func (s *AvatarService) ProxyURL(sourceURL string) (string, error) {
	if err := identity.ValidateImageURL(sourceURL); err != nil {
		return "", err
	}

	encrypted, err := security.Encrypt(sourceURL, s.aesKey)
	if err != nil {
		return "", fmt.Errorf("failed to build avatar token: %w", err)
	}

	token, err := toURLSafeToken(encrypted)
	if err != nil {
		return "", fmt.Errorf("failed to encode avatar token: %w", err)
	}
	return "/api/v1/avatar/" + token, nil
}

// Resolve decrypts an avatar token, fetches and processes the source image,
// and returns the WebP bytes. Cached results are served from disk.
func (s *AvatarService) Resolve(token string) ([]byte, error) {
	marker := s.perfTracker.StartOperation("avatar:process", "system")
	defer s.perfTracker.CompleteOperation(marker)

	encrypted, err := fromURLSafeToken(token)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("malformed avatar token: %w", err)
	}

	sourceURL, err := security.Decrypt(encrypted, s.aesKey)
	if err != nil {
		marker.SetError(err)
		return nil, fmt.Errorf("invalid avatar token: %w", err)
	}
	if err := identity.ValidateImageURL(sourceURL); err != nil {
		marker.SetError(err)
		return nil, err
	}

	key := s.processor.CacheKey(sourceURL)
	if data, ok := s.processor.LoadCached(key); ok {
		marker.AddCacheHit()
		s.logger.Avatar().Debug("Avatar served from disk cache", "key", key)
		return data, nil
	}
	marker.AddCacheMiss()

	data, err := s.fetchAndProcess(sourceURL, key)
	if err != nil {
		marker.SetError(err)
		return nil, err
	}
	return data, nil
}

// fetchAndProcess downloads the source image (bounded by the fetch limit)
// and runs it through the processor.
func (s *AvatarService) fetchAndProcess(sourceURL, key string) ([]byte, error) {
	start := time.Now()
	s.logger.Avatar().Debug("Fetching avatar source", "url", sourceURL)

	resp, err := s.client.Get(sourceURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch avatar source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("avatar source returned status %d", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, s.fetchLimit)
	data, err := s.processor.ProcessAndStore(limited, key)
	if err != nil {
		return nil, err
	}

	s.logger.Avatar().Info("Avatar processed and cached", "key", key, "bytes", len(data), "duration", time.Since(start))
	return data, nil
}

// toURLSafeToken converts the standard-base64 ciphertext into a URL path
// safe token.
func toURLSafeToken(encrypted string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// fromURLSafeToken reverses toURLSafeToken.
func fromURLSafeToken(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
