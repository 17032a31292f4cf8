package utils

import (
	"fmt"
	"time"
)

// FormatAge renders how long ago something happened, coarsest useful unit first.
func FormatAge(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// FormatUnixMilli renders a millisecond timestamp as RFC 3339 in UTC.
func FormatUnixMilli(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

// IsStale reports whether t is unset or older than maxAge relative to now.
func IsStale(t, now time.Time, maxAge time.Duration) bool {
	return t.IsZero() || now.Sub(t) > maxAge
}
