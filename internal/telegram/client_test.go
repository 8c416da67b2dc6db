package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitByBytesKeepsRunesWhole(t *testing.T) {
	text := strings.Repeat("가", 10) // 3 bytes each
	parts := splitByBytes(text, 7)

	require.Len(t, parts, 5)
	for _, p := range parts {
		assert.LessOrEqual(t, len(p), 7)
		assert.Equal(t, "가가", p)
	}
	assert.Equal(t, text, strings.Join(parts, ""))
}

func TestSplitByBytesShortText(t *testing.T) {
	assert.Equal(t, []string{"hello"}, splitByBytes("hello", 4096))
	assert.Equal(t, []string{"hello"}, splitByBytes("hello", 0))
}

func TestTruncateByBytes(t *testing.T) {
	assert.Equal(t, "가", truncateByBytes("가나다", 5))
	assert.Equal(t, "abc", truncateByBytes("abc", 10))
	assert.Equal(t, "", truncateByBytes("가", 2))
}

func TestDetectMime(t *testing.T) {
	assert.Equal(t, "image/webp", detectMime("image/webp; charset=binary", nil))

	png := []byte("\x89PNG\r\n\x1a\n0000000000")
	assert.Equal(t, "image/png", detectMime("application/octet-stream", png))
	assert.Equal(t, "image/jpeg", detectMime("", []byte{0x01, 0x02}))
}
