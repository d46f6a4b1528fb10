package tui

import (
	"time"

	"github.com/Veraticus/fraudwatch/internal/service"
	"github.com/Veraticus/fraudwatch/internal/tui/themes"
)

// Config holds TUI configuration.
type Config struct {
	Theme    themes.Theme
	Source   service.StatusSource
	Scorer   service.Scorer
	Interval time.Duration
	Width    int
	Height   int
	// History is how many status changes the view keeps.
	History int
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Theme:    themes.Default,
		Interval: 30 * time.Second,
		Width:    80,
		Height:   24,
		History:  8,
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithInterval sets how often the service is re-probed.
func WithInterval(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Interval = d
		}
	}
}

// WithScorer enables the model health panel.
func WithScorer(scorer service.Scorer) Option {
	return func(c *Config) {
		c.Scorer = scorer
	}
}
