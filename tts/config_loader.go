package tts

import (
	"fmt"

	"github.com/spf13/viper"
)

// LoadConfigFromViper loads TTS configuration from Viper and applies
// environment overrides.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("tts.engine") {
		cfg.Engine = viper.GetString("tts.engine")
	}
	if viper.IsSet("tts.fallback") {
		cfg.Fallback = viper.GetString("tts.fallback")
	}

	cfg.Settings = loadSettings()

	// Highlight refresh
	if viper.IsSet("tts.frame_rate") {
		cfg.FrameRate = viper.GetInt("tts.frame_rate")
	}
	if viper.IsSet("tts.scroll_margin") {
		cfg.ScrollMargin = viper.GetInt("tts.scroll_margin")
	}
	if viper.IsSet("tts.cache_size") {
		cfg.CacheSize = viper.GetInt("tts.cache_size")
	}

	cfg.Mock = loadMockConfig()

	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid TTS configuration: %w", err)
	}

	return cfg, nil
}

// loadSettings loads playback settings from Viper.
func loadSettings() Settings {
	s := DefaultSettings()

	if viper.IsSet("tts.voice") {
		s.Voice = viper.GetString("tts.voice")
	}
	if viper.IsSet("tts.rate") {
		s.Rate = viper.GetFloat64("tts.rate")
	}
	if viper.IsSet("tts.pitch") {
		s.Pitch = viper.GetFloat64("tts.pitch")
	}
	if viper.IsSet("tts.volume") {
		s.Volume = viper.GetFloat64("tts.volume")
	}
	if viper.IsSet("tts.highlight_color") {
		s.HighlightColor = viper.GetString("tts.highlight_color")
	}
	if viper.IsSet("tts.auto_scroll") {
		s.AutoScroll = viper.GetBool("tts.auto_scroll")
	}
	if viper.IsSet("tts.chunk_size") {
		s.ChunkSize = viper.GetInt("tts.chunk_size")
	}

	return s
}

// loadMockConfig loads Mock-specific configuration from Viper.
func loadMockConfig() MockConfig {
	cfg := DefaultMockConfig()

	if viper.IsSet("tts.mock.words_per_minute") {
		cfg.WordsPerMinute = viper.GetInt("tts.mock.words_per_minute")
	}
	if viper.IsSet("tts.mock.cancel_behavior") {
		cfg.CancelBehavior = viper.GetString("tts.mock.cancel_behavior")
	}
	if viper.IsSet("tts.mock.omit_char_length") {
		cfg.OmitCharLength = viper.GetBool("tts.mock.omit_char_length")
	}
	if viper.IsSet("tts.mock.duplicate_end") {
		cfg.DuplicateEnd = viper.GetBool("tts.mock.duplicate_end")
	}

	return cfg
}

// SetDefaults sets default values in Viper for TTS configuration.
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("tts.engine", defaults.Engine)
	viper.SetDefault("tts.fallback", defaults.Fallback)

	// Playback settings
	viper.SetDefault("tts.voice", defaults.Settings.Voice)
	viper.SetDefault("tts.rate", defaults.Settings.Rate)
	viper.SetDefault("tts.pitch", defaults.Settings.Pitch)
	viper.SetDefault("tts.volume", defaults.Settings.Volume)
	viper.SetDefault("tts.highlight_color", defaults.Settings.HighlightColor)
	viper.SetDefault("tts.auto_scroll", defaults.Settings.AutoScroll)
	viper.SetDefault("tts.chunk_size", defaults.Settings.ChunkSize)

	// Highlight refresh
	viper.SetDefault("tts.frame_rate", defaults.FrameRate)
	viper.SetDefault("tts.scroll_margin", defaults.ScrollMargin)
	viper.SetDefault("tts.cache_size", defaults.CacheSize)

	// Mock defaults
	viper.SetDefault("tts.mock.words_per_minute", defaults.Mock.WordsPerMinute)
	viper.SetDefault("tts.mock.cancel_behavior", defaults.Mock.CancelBehavior)
	viper.SetDefault("tts.mock.omit_char_length", defaults.Mock.OmitCharLength)
	viper.SetDefault("tts.mock.duplicate_end", defaults.Mock.DuplicateEnd)
}
