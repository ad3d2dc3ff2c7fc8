package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "exactly ten", truncateString("exactly ten", 11))
	assert.Equal(t, "a very ...", truncateString("a very long track title", 10))
	assert.Equal(t, "ab", truncateString("abcdef", 2))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0:00", formatDuration(0))
	assert.Equal(t, "0:42", formatDuration(42_000))
	assert.Equal(t, "3:05", formatDuration(185_000))
	assert.Equal(t, "1:00:01", formatDuration(3_601_000))
	assert.Equal(t, "2:30:00", formatDuration(9_000_000))
}
