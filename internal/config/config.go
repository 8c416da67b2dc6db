package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"signature-card-studio/internal/card"
)

type Config struct {
	GeminiAPIKey  string
	TelegramToken string

	LogLevel string
	Debug    bool

	PreferIPv4 bool
	UserAgent  string

	WebAddr            string
	RequestTimeout     time.Duration
	HTTPTimeout        time.Duration
	SessionIdleTimeout time.Duration
	VideoPollInterval  time.Duration
	VideoTimeout       time.Duration
	MediaGroupDebounce time.Duration
	MaxConcurrent      int

	GeminiBaseURL    string
	GeminiAPIVersion string
	TextModel        string
	ImageModel       string
	VideoModel       string

	// ShareChatID is the Telegram chat that receives shared cards. Zero
	// disables sharing.
	ShareChatID  int64
	CallLogPath  string
	FontPath     string
	DefaultRatio card.AspectRatio

	// RequireHangulFont refuses to start when the export font cannot set
	// Korean text.
	RequireHangulFont bool
}

// Load reads the environment. Only GEMINI_API_KEY is required; front ends
// check what else they need.
func Load() (Config, error) {
	cfg := Config{
		LogLevel:           strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info"))),
		Debug:              getEnvBool("DEBUG", false),
		PreferIPv4:         getEnvBool("PREFER_IPV4", true),
		UserAgent:          getEnv("HTTP_USER_AGENT", "signature-card-studio/1.0"),
		WebAddr:            getEnv("WEB_ADDR", ":8080"),
		RequestTimeout:     time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 180)) * time.Second,
		HTTPTimeout:        time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second,
		SessionIdleTimeout: time.Duration(getEnvInt("SESSION_IDLE_MINUTES", 60)) * time.Minute,
		VideoPollInterval:  time.Duration(getEnvInt("VIDEO_POLL_SECONDS", 10)) * time.Second,
		VideoTimeout:       time.Duration(getEnvInt("VIDEO_TIMEOUT_SECONDS", 600)) * time.Second,
		MediaGroupDebounce: time.Duration(getEnvInt("MEDIA_GROUP_DEBOUNCE_MS", 1200)) * time.Millisecond,
		MaxConcurrent:      getEnvInt("MAX_CONCURRENT", 4),
		GeminiBaseURL:      strings.TrimSpace(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")),
		GeminiAPIVersion:   strings.TrimSpace(getEnv("GEMINI_API_VERSION", "v1beta")),
		TextModel:          getEnv("GEMINI_TEXT_MODEL", ""),
		ImageModel:         getEnv("GEMINI_IMAGE_MODEL", ""),
		VideoModel:         getEnv("GEMINI_VIDEO_MODEL", ""),
		ShareChatID:        getEnvInt64("SHARE_CHAT_ID", 0),
		CallLogPath:        getEnv("CALL_LOG_PATH", ""),
		FontPath:           getEnv("CARD_FONT_PATH", ""),
		RequireHangulFont:  getEnvBool("REQUIRE_HANGUL_FONT", false),
	}

	cfg.TelegramToken = strings.TrimSpace(os.Getenv("TELEGRAM_BOT_TOKEN"))
	cfg.GeminiAPIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if cfg.GeminiAPIKey == "" {
		return Config{}, errors.New("GEMINI_API_KEY is required")
	}

	ratio, err := card.ParseAspectRatio(getEnv("DEFAULT_RATIO", string(card.RatioSquare)))
	if err != nil {
		ratio = card.RatioSquare
	}
	cfg.DefaultRatio = ratio

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 180 * time.Second
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 180 * time.Second
	}
	if cfg.SessionIdleTimeout < 0 {
		cfg.SessionIdleTimeout = 0
	}
	if cfg.VideoPollInterval <= 0 {
		cfg.VideoPollInterval = 10 * time.Second
	}
	if cfg.VideoTimeout < cfg.VideoPollInterval {
		cfg.VideoTimeout = 600 * time.Second
	}
	if cfg.MediaGroupDebounce <= 0 {
		cfg.MediaGroupDebounce = 1200 * time.Millisecond
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}

	return cfg, nil
}

// RequireBot checks the settings only the Telegram bot needs.
func (c Config) RequireBot() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

// ShareEnabled reports whether cards can be shared to Telegram.
func (c Config) ShareEnabled() bool {
	return c.TelegramToken != "" && c.ShareChatID != 0
}

// systemFontPaths are Korean-capable fonts tried when CARD_FONT_PATH is unset.
var systemFontPaths = []string{
	"/usr/share/fonts/truetype/nanum/NanumGothic.ttf",
	"/usr/share/fonts/truetype/noto/NotoSansKR-Regular.ttf",
	"/usr/share/fonts/opentype/noto/NotoSansKR-Regular.otf",
	"/System/Library/Fonts/Supplemental/AppleGothic.ttf",
}

// SystemFont returns the first installed font from systemFontPaths, or "".
func SystemFont() string {
	for _, path := range systemFontPaths {
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// ResolveFontPath is CARD_FONT_PATH, or an installed system font when unset.
func (c Config) ResolveFontPath() string {
	if c.FontPath != "" {
		return c.FontPath
	}
	return SystemFont()
}

// LoadFont reads the export font. It returns nil when no font is configured
// or installed, and the renderer falls back to the Go fonts.
func (c Config) LoadFont() ([]byte, error) {
	path := c.ResolveFontPath()
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt64(key string, fallback int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
