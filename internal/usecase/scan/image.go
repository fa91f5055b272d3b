package scan

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image"
	"strings"

	// Registered decoders for validation and metadata.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/kiosklabs/shelfscan/internal/domain"
)

const (
	minPayloadLen = 100
	// fingerprintPrefix bounds how many image bytes feed the cache key:
	// identical frames collide, and hashing stays cheap for large photos.
	fingerprintPrefix = 64 * 1024

	lowResolutionEdge = 200
	largeImageBytes   = 5 * 1024 * 1024
)

// ImageInfo is metadata extracted while validating the submitted image.
type ImageInfo struct {
	Format    string `json:"format"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	SizeBytes int    `json:"file_size_bytes"`
	Warning   string `json:"warning,omitempty"`
}

// decodeImage validates a (possibly data-URL prefixed) base64 image payload.
// Returns the cleaned base64 string, the decoded bytes and metadata.
func decodeImage(payload string) (string, []byte, ImageInfo, error) {
	// Strip "data:image/...;base64," prefixes.
	if _, after, found := strings.Cut(payload, ","); found {
		payload = after
	}
	if len(payload) < minPayloadLen {
		return "", nil, ImageInfo{}, fmt.Errorf("%w: image data too short or empty", domain.ErrInvalidImage)
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, ImageInfo{}, fmt.Errorf("%w: bad base64 encoding: %v", domain.ErrInvalidImage, err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return "", nil, ImageInfo{}, fmt.Errorf("%w: undecodable image: %v", domain.ErrInvalidImage, err)
	}

	info := ImageInfo{
		Format:    format,
		Width:     cfg.Width,
		Height:    cfg.Height,
		SizeBytes: len(raw),
	}
	switch {
	case cfg.Width < lowResolutionEdge || cfg.Height < lowResolutionEdge:
		info.Warning = "low resolution image may affect accuracy"
	case len(raw) > largeImageBytes:
		info.Warning = "large image size may slow processing"
	}

	return payload, raw, info, nil
}

// fingerprint derives the cache key from image content: a sha256 over a
// bounded prefix of the decoded bytes. Byte-identical images always
// collide; the algorithm is an implementation detail of this caller.
func fingerprint(raw []byte) string {
	if len(raw) > fingerprintPrefix {
		raw = raw[:fingerprintPrefix]
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
