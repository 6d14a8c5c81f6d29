package tts

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config contains all TTS configuration options.
type Config struct {
	// Engine selects the speech backend.
	Engine string `yaml:"engine" env:"READALONG_ENGINE"`

	// Fallback is the backend used once Engine keeps failing. Empty
	// disables it.
	Fallback string `yaml:"fallback" env:"READALONG_FALLBACK_ENGINE"`

	// Settings are the per-session playback settings.
	Settings Settings `yaml:",inline"`

	// Highlight refresh
	FrameRate    int `yaml:"frame_rate" env:"READALONG_FRAME_RATE"`
	ScrollMargin int `yaml:"scroll_margin" env:"READALONG_SCROLL_MARGIN"`

	// CacheSize is the number of prepared texts kept for reuse.
	CacheSize int `yaml:"cache_size" env:"READALONG_CACHE_SIZE"`

	// Engine-specific configurations
	Mock MockConfig `yaml:"mock"`
}

// Settings are the playback settings of a session.
type Settings struct {
	Voice          string  `yaml:"voice" env:"READALONG_VOICE"`
	Rate           float64 `yaml:"rate" env:"READALONG_RATE"`
	Pitch          float64 `yaml:"pitch" env:"READALONG_PITCH"`
	Volume         float64 `yaml:"volume" env:"READALONG_VOLUME"`
	HighlightColor string  `yaml:"highlight_color" env:"READALONG_HIGHLIGHT_COLOR"`
	AutoScroll     bool    `yaml:"auto_scroll" env:"READALONG_AUTO_SCROLL"`
	ChunkSize      int     `yaml:"chunk_size" env:"READALONG_CHUNK_SIZE"`
}

// Mock backend cancel behaviours.
const (
	CancelFiresError = "error"
	CancelFiresEnd   = "end"
	CancelSilent     = "silent"
)

// MockConfig contains Mock backend specific settings.
type MockConfig struct {
	WordsPerMinute int    `yaml:"words_per_minute" env:"READALONG_MOCK_WORDS_PER_MINUTE"`
	CancelBehavior string `yaml:"cancel_behavior" env:"READALONG_MOCK_CANCEL_BEHAVIOR"`
	OmitCharLength bool   `yaml:"omit_char_length" env:"READALONG_MOCK_OMIT_CHAR_LENGTH"`
	DuplicateEnd   bool   `yaml:"duplicate_end" env:"READALONG_MOCK_DUPLICATE_END"`
}

// Chunk size limits.
const (
	MinChunkSize     = 20
	MaxChunkSize     = 5000
	DefaultChunkSize = 250
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Engine:       "mock",
		Settings:     DefaultSettings(),
		FrameRate:    60,
		ScrollMargin: 3,
		CacheSize:    16,
		Mock:         DefaultMockConfig(),
	}
}

// DefaultSettings returns the default playback settings.
func DefaultSettings() Settings {
	return Settings{
		Rate:           1.0,
		Pitch:          1.0,
		Volume:         1.0,
		HighlightColor: "yellow",
		AutoScroll:     true,
		ChunkSize:      DefaultChunkSize,
	}
}

// DefaultMockConfig returns default Mock configuration.
func DefaultMockConfig() MockConfig {
	return MockConfig{
		WordsPerMinute: 150,
		CancelBehavior: CancelFiresError,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	validEngines := []string{"mock"}
	engineValid := false
	for _, e := range validEngines {
		if strings.EqualFold(c.Engine, e) {
			engineValid = true
			c.Engine = strings.ToLower(c.Engine)
			break
		}
	}
	if !engineValid {
		return fmt.Errorf("%w: invalid TTS engine '%s': must be one of %v", ErrInvalidConfig, c.Engine, validEngines)
	}

	if c.Fallback != "" {
		fallbackValid := false
		for _, e := range validEngines {
			if strings.EqualFold(c.Fallback, e) {
				fallbackValid = true
				c.Fallback = strings.ToLower(c.Fallback)
				break
			}
		}
		if !fallbackValid {
			return fmt.Errorf("%w: invalid fallback engine '%s': must be one of %v", ErrInvalidConfig, c.Fallback, validEngines)
		}
	}

	if err := c.Settings.Validate(); err != nil {
		return err
	}

	if c.FrameRate < 1 || c.FrameRate > 240 {
		return fmt.Errorf("%w: frame_rate must be between 1 and 240, got %d", ErrInvalidConfig, c.FrameRate)
	}

	if c.ScrollMargin < 0 {
		return fmt.Errorf("%w: scroll_margin cannot be negative, got %d", ErrInvalidConfig, c.ScrollMargin)
	}

	if c.CacheSize < 0 {
		return fmt.Errorf("%w: cache_size cannot be negative, got %d", ErrInvalidConfig, c.CacheSize)
	}

	switch c.Engine {
	case "mock":
		if err := c.Mock.Validate(); err != nil {
			return fmt.Errorf("mock config: %w", err)
		}
	}

	return nil
}

var hexColorRe = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Validate checks if the settings are within range.
func (s *Settings) Validate() error {
	if s.Rate < 0.5 || s.Rate > 2.0 {
		return fmt.Errorf("%w: rate must be between 0.5 and 2.0, got %g", ErrInvalidConfig, s.Rate)
	}

	if s.Pitch < 0.5 || s.Pitch > 2.0 {
		return fmt.Errorf("%w: pitch must be between 0.5 and 2.0, got %g", ErrInvalidConfig, s.Pitch)
	}

	if s.Volume < 0.0 || s.Volume > 1.0 {
		return fmt.Errorf("%w: volume must be between 0.0 and 1.0, got %g", ErrInvalidConfig, s.Volume)
	}

	if s.ChunkSize < MinChunkSize || s.ChunkSize > MaxChunkSize {
		return fmt.Errorf("%w: chunk_size must be between %d and %d, got %d", ErrInvalidConfig, MinChunkSize, MaxChunkSize, s.ChunkSize)
	}

	// Named colors, hex colors and ANSI color numbers are accepted
	validColors := []string{"black", "red", "green", "yellow", "blue", "magenta", "cyan", "white", "none"}
	color := strings.ToLower(strings.TrimSpace(s.HighlightColor))
	switch {
	case hexColorRe.MatchString(color):
	case isANSIColor(color):
	default:
		colorValid := false
		for _, c := range validColors {
			if color == c {
				colorValid = true
				break
			}
		}
		if !colorValid {
			return fmt.Errorf("%w: invalid highlight color '%s': must be a hex color, an ANSI color number or one of %v", ErrInvalidConfig, s.HighlightColor, validColors)
		}
	}
	s.HighlightColor = color

	return nil
}

func isANSIColor(s string) bool {
	n, err := strconv.Atoi(s)
	return err == nil && n >= 0 && n <= 255
}

// VoiceParams converts the settings into utterance parameters.
func (s Settings) VoiceParams() VoiceParams {
	return VoiceParams{
		Voice:  s.Voice,
		Rate:   s.Rate,
		Pitch:  s.Pitch,
		Volume: s.Volume,
	}
}

// Validate checks if the Mock configuration is valid.
func (c *MockConfig) Validate() error {
	if c.WordsPerMinute < 50 || c.WordsPerMinute > 500 {
		return fmt.Errorf("%w: words_per_minute must be between 50 and 500, got %d", ErrInvalidConfig, c.WordsPerMinute)
	}

	switch strings.ToLower(c.CancelBehavior) {
	case CancelFiresError, CancelFiresEnd, CancelSilent:
		c.CancelBehavior = strings.ToLower(c.CancelBehavior)
	default:
		return fmt.Errorf("%w: cancel_behavior must be one of %q, %q or %q, got %q",
			ErrInvalidConfig, CancelFiresError, CancelFiresEnd, CancelSilent, c.CancelBehavior)
	}

	return nil
}

// ApplyEnv overrides configuration values with READALONG_ environment
// variables.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	return nil
}
