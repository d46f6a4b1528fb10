package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/Veraticus/fraudwatch/internal/service"
	tea "github.com/charmbracelet/bubbletea"
)

// Run shows the status watch until the user quits or ctx ends.
func Run(ctx context.Context, source service.StatusSource, opts ...Option) error {
	if source == nil {
		return fmt.Errorf("status source is required")
	}

	cfg := defaultConfig()
	cfg.Source = source
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	updates, unsubscribe := subscribe(ctx, source)
	defer unsubscribe()

	program := tea.NewProgram(
		newModel(ctx, cfg, updates),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
	)
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("status watch failed: %w", err)
	}
	return nil
}
