package validation

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MaxNameLength    = 64
	MaxBatchSize     = 10_000
	MaxSampleLatency = 60_000
)

var (
	// NodeNameRegex allows letters, digits, spaces, dots, underscores and dashes other
	// than the pair separator at either end.
	NodeNameRegex = regexp.MustCompile(`^[\p{L}\p{N}][\p{L}\p{N} ._]*$`)

	ProbeIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ValidateNodeName rejects names that could not round-trip through an "A-B" pair.
func ValidateNodeName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("node name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("node name is too long (max %d characters)", MaxNameLength)
	}
	if !NodeNameRegex.MatchString(name) {
		return fmt.Errorf("node name %q contains invalid characters", name)
	}
	return nil
}

// ValidateCoordinates checks a WGS84 latitude and longitude.
func ValidateCoordinates(lat, lng float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", lat)
	}
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", lng)
	}
	return nil
}

// ValidateLatency checks a pushed latency value in milliseconds.
func ValidateLatency(ms int) error {
	if ms < 0 {
		return fmt.Errorf("latency must be >= 0")
	}
	if ms > MaxSampleLatency {
		return fmt.Errorf("latency is too high (max %d ms)", MaxSampleLatency)
	}
	return nil
}

// ValidateBatchSize bounds the number of samples accepted in one push.
func ValidateBatchSize(n int) error {
	if n == 0 {
		return fmt.Errorf("batch must contain at least one sample")
	}
	if n > MaxBatchSize {
		return fmt.Errorf("batch is too large (max %d samples)", MaxBatchSize)
	}
	return nil
}

// ValidateProbeID validates probe ID
func ValidateProbeID(probeID string) error {
	if probeID == "" {
		return fmt.Errorf("probe ID is required")
	}
	if len(probeID) > 100 {
		return fmt.Errorf("probe ID is too long (max 100 characters)")
	}
	if !ProbeIDRegex.MatchString(probeID) {
		return fmt.Errorf("invalid probe ID format")
	}
	return nil
}

// ValidateURL validates URL format
func ValidateURL(urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("URL is required")
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme (must be http or https)")
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
