package utils

import (
	"strings"

	"github.com/google/uuid"
)

// PrefixedID returns prefix_ followed by 16 hex characters from a random UUID.
func PrefixedID(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "_" + raw[:16]
}

// NewRequestID tags an inbound HTTP request that arrived without X-Request-ID.
func NewRequestID() string { return PrefixedID("req") }

// NewProbeID names a probe that did not pick its own ID.
func NewProbeID() string { return PrefixedID("probe") }
