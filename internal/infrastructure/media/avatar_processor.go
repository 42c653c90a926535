// Package media provides image processing utilities for the avatar proxy.
package media

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// AvatarProcessor normalizes fetched profile images: square crop, resize,
// WebP re-encode, disk cache.
type AvatarProcessor struct {
	cacheDir string
	size     int
}

// NewAvatarProcessor creates a new AvatarProcessor instance.
func NewAvatarProcessor(cacheDir string, size int) *AvatarProcessor {
	return &AvatarProcessor{
		cacheDir: cacheDir,
		size:     size,
	}
}

// CacheKey derives the stable disk cache filename for a source URL.
func (p *AvatarProcessor) CacheKey(sourceURL string) string {
	sum := sha256.Sum256([]byte(sourceURL))
	return fmt.Sprintf("%s_%d.webp", hex.EncodeToString(sum[:16]), p.size)
}

// LoadCached returns the cached WebP bytes for a key, if present.
func (p *AvatarProcessor) LoadCached(key string) ([]byte, bool) {
	data, err := os.ReadFile(filepath.Join(p.cacheDir, key))
	if err != nil {
		return nil, false
	}
	return data, true
}

// ProcessAndStore decodes a fetched image, square-crops and resizes it,
// re-encodes it as WebP, and writes it to the disk cache. The encoded bytes
// are returned for immediate serving.
func (p *AvatarProcessor) ProcessAndStore(source io.Reader, key string) ([]byte, error) {
	img, err := imaging.Decode(source, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode avatar image: %w", err)
	}

	// Center-fill to a square of the configured size.
	square := imaging.Fill(img, p.size, p.size, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, square, &webp.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode avatar as WebP: %w", err)
	}

	if err := os.MkdirAll(p.cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create avatar cache directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(p.cacheDir, key), buf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("failed to write avatar cache file: %w", err)
	}

	return buf.Bytes(), nil
}

// Evict removes a cached avatar. Missing files are not an error.
func (p *AvatarProcessor) Evict(key string) error {
	err := os.Remove(filepath.Join(p.cacheDir, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to evict cached avatar: %w", err)
	}
	return nil
}
