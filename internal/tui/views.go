package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/fraudwatch/internal/availability"
	"github.com/charmbracelet/lipgloss"
)

// View renders the status watch.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	theme := m.config.Theme
	sections := []string{
		theme.Title.Render("fraudwatch · scoring service status"),
		m.renderStatus(),
	}
	if health := m.renderHealth(); health != "" {
		sections = append(sections, "", health)
	}
	sections = append(sections, "", m.renderHistory(), m.renderHelp())

	box := theme.BorderedBox
	if m.width > 4 {
		box = box.Width(min(m.width-4, 72))
	}
	return box.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) renderStatus() string {
	theme := m.config.Theme

	var label string
	switch m.status {
	case availability.StatusAwake:
		label = theme.StatusSuccess.Render("● System Active")
	case availability.StatusSleeping:
		label = theme.StatusWarning.Render("💤 Waking up server...")
	default:
		label = theme.StatusPending.Render("● Checking status...")
	}

	line := label
	if m.probing {
		line += "  " + m.spinner.View() + theme.Subtitle.Render("probing")
	}
	if !m.lastProbe.IsZero() {
		line += "\n" + theme.Subtitle.Render(fmt.Sprintf("Last probe %s · %d probe(s) · every %s",
			m.lastProbe.Format("15:04:05"), m.probes, m.config.Interval))
	}
	return line
}

func (m Model) renderHealth() string {
	theme := m.config.Theme
	switch {
	case m.healthErr != nil:
		return theme.StatusError.Render("Model health: " + m.healthErr.Error())
	case m.health == nil:
		return ""
	case m.health.Healthy():
		return theme.Normal.Render(fmt.Sprintf("Model health: %s (version %s, model loaded)", m.health.Status, m.health.Version))
	default:
		return theme.StatusWarning.Render(fmt.Sprintf("Model health: %s (model loaded: %t)", m.health.Status, m.health.ModelLoaded))
	}
}

func (m Model) renderHistory() string {
	theme := m.config.Theme
	lines := []string{theme.Bold.Render("History")}
	for i := len(m.history) - 1; i >= 0; i-- {
		e := m.history[i]
		lines = append(lines, fmt.Sprintf("  %s  %s", e.at.Format(time.TimeOnly), e.status))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHelp() string {
	bindings := m.keymap.ShortHelp()
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return m.config.Theme.Help.Render(strings.Join(parts, " · "))
}
