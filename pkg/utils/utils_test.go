package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrefixedID(t *testing.T) {
	id1 := PrefixedID("sub")
	id2 := PrefixedID("sub")

	assert.True(t, strings.HasPrefix(id1, "sub_"))
	assert.Len(t, id1, len("sub_")+16)
	assert.NotEqual(t, id1, id2)
	assert.True(t, strings.HasPrefix(NewProbeID(), "probe_"))
	assert.True(t, strings.HasPrefix(NewRequestID(), "req_"))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "probe-1", SanitizeString("  probe-1\n"))
	assert.Equal(t, "ab", SanitizeString("a\x00b"))
	assert.Equal(t, "", SanitizeString("\t \r"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", TruncateString("short", 10))
	assert.Equal(t, "abcd...", TruncateString("abcdefghij", 7))
	assert.Equal(t, "ab", TruncateString("abcdef", 2))
}

func TestFormatAge(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Millisecond, "500ms"},
		{1500 * time.Millisecond, "1.50s"},
		{90 * time.Second, "1m30s"},
		{2*time.Hour + 5*time.Minute, "2h5m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAge(tt.d))
	}
}

func TestFormatUnixMilli(t *testing.T) {
	assert.Equal(t, "2023-11-14T22:13:20Z", FormatUnixMilli(1_700_000_000_000))
}

func TestIsStale(t *testing.T) {
	now := time.Unix(1000, 0)
	assert.True(t, IsStale(time.Time{}, now, time.Minute))
	assert.True(t, IsStale(now.Add(-2*time.Minute), now, time.Minute))
	assert.False(t, IsStale(now.Add(-30*time.Second), now, time.Minute))
}
