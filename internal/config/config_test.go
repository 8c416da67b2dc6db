package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signature-card-studio/internal/card"
)

func TestLoadRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "  ")
	_, err := Load()
	assert.EqualError(t, err, "GEMINI_API_KEY is required")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.WebAddr)
	assert.Equal(t, 10*time.Second, cfg.VideoPollInterval)
	assert.Equal(t, 600*time.Second, cfg.VideoTimeout)
	assert.Equal(t, time.Hour, cfg.SessionIdleTimeout)
	assert.Equal(t, card.RatioSquare, cfg.DefaultRatio)
	assert.True(t, cfg.PreferIPv4)
	assert.Equal(t, 4, cfg.MaxConcurrent)
	assert.False(t, cfg.ShareEnabled())
	assert.Error(t, cfg.RequireBot())
}

func TestLoadOverridesAndClamps(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("TELEGRAM_BOT_TOKEN", "t")
	t.Setenv("SHARE_CHAT_ID", "-100123")
	t.Setenv("VIDEO_POLL_SECONDS", "0")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "abc")
	t.Setenv("DEFAULT_RATIO", "16:9")
	t.Setenv("PREFER_IPV4", "false")
	t.Setenv("MAX_CONCURRENT", "-3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(-100123), cfg.ShareChatID)
	assert.True(t, cfg.ShareEnabled())
	assert.NoError(t, cfg.RequireBot())
	assert.Equal(t, 10*time.Second, cfg.VideoPollInterval)
	assert.Equal(t, 180*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, card.RatioWide, cfg.DefaultRatio)
	assert.False(t, cfg.PreferIPv4)
	assert.Equal(t, 4, cfg.MaxConcurrent)
}

func TestLoadFont(t *testing.T) {
	saved := systemFontPaths
	systemFontPaths = nil
	t.Cleanup(func() { systemFontPaths = saved })

	cfg := Config{}
	data, err := cfg.LoadFont()
	require.NoError(t, err)
	assert.Nil(t, data)

	path := filepath.Join(t.TempDir(), "font.ttf")
	require.NoError(t, os.WriteFile(path, []byte("fake"), 0o600))
	cfg.FontPath = path
	data, err = cfg.LoadFont()
	require.NoError(t, err)
	assert.Equal(t, []byte("fake"), data)
}

func TestLoadFontFallsBackToSystemFont(t *testing.T) {
	dir := t.TempDir()
	installed := filepath.Join(dir, "NanumGothic.ttf")
	require.NoError(t, os.WriteFile(installed, []byte("nanum"), 0o600))

	saved := systemFontPaths
	systemFontPaths = []string{filepath.Join(dir, "missing.ttf"), dir, installed}
	t.Cleanup(func() { systemFontPaths = saved })

	cfg := Config{}
	assert.Equal(t, installed, cfg.ResolveFontPath())
	data, err := cfg.LoadFont()
	require.NoError(t, err)
	assert.Equal(t, []byte("nanum"), data)

	cfg.FontPath = "/explicit.ttf"
	assert.Equal(t, "/explicit.ttf", cfg.ResolveFontPath())
}

func TestLoadRequireHangulFont(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("REQUIRE_HANGUL_FONT", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.RequireHangulFont)
}
