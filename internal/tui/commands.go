package tui

import (
	"context"
	"time"

	"github.com/Veraticus/fraudwatch/internal/availability"
	"github.com/Veraticus/fraudwatch/internal/service"
	tea "github.com/charmbracelet/bubbletea"
)

// probe runs a liveness probe. The monitor applies its own timeout.
func (m Model) probe() tea.Cmd {
	source := m.config.Source
	ctx := m.ctx
	return func() tea.Msg {
		status := source.Probe(ctx)
		return probeDoneMsg{status: status, at: time.Now()}
	}
}

// loadHealth fetches the model health report.
func (m Model) loadHealth() tea.Cmd {
	scorer := m.config.Scorer
	if scorer == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		report, err := scorer.FetchHealth(ctx)
		return healthLoadedMsg{report: report, err: err}
	}
}

// waitForStatus delivers the next status published by the monitor.
func waitForStatus(updates <-chan availability.Status) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		status, ok := <-updates
		if !ok {
			return nil
		}
		return statusChangedMsg{status: status}
	}
}

// scheduleProbe fires a tick after interval.
func scheduleProbe(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// subscribe bridges monitor notifications into a channel the program can read.
// Notifications are dropped when the channel is full; the view reads the
// current status on every change anyway.
func subscribe(ctx context.Context, source service.StatusSource) (<-chan availability.Status, func()) {
	updates := make(chan availability.Status, 16)
	unsubscribe := source.Subscribe(func(s availability.Status) {
		select {
		case updates <- s:
		case <-ctx.Done():
		default:
		}
	})
	return updates, unsubscribe
}
