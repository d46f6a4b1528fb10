// Package tui provides a live view of the scoring service's availability.
package tui

import (
	"context"
	"time"

	"github.com/Veraticus/fraudwatch/internal/availability"
	"github.com/Veraticus/fraudwatch/internal/model"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Model holds the status watch state.
type Model struct {
	ctx       context.Context
	lastProbe time.Time
	healthErr error
	health    *model.HealthReport
	updates   <-chan availability.Status
	config    Config
	keymap    KeyMap
	history   []statusEvent
	spinner   spinner.Model
	status    availability.Status
	probes    int
	width     int
	height    int
	probing   bool
	quitting  bool
}

// newModel creates a model reading status changes from updates.
func newModel(ctx context.Context, cfg Config, updates <-chan availability.Status) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = cfg.Theme.StatusPending

	status := cfg.Source.Status()
	return Model{
		ctx:     ctx,
		config:  cfg,
		keymap:  DefaultKeyMap(),
		spinner: s,
		status:  status,
		history: []statusEvent{{status: status, at: time.Now()}},
		updates: updates,
		width:   cfg.Width,
		height:  cfg.Height,
		probing: true,
	}
}

// Init starts the first probe.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.probe(),
		waitForStatus(m.updates),
	)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.Refresh):
			if m.probing {
				return m, nil
			}
			m.probing = true
			return m, m.probe()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case statusChangedMsg:
		m.record(msg.status)
		return m, waitForStatus(m.updates)

	case probeDoneMsg:
		m.probing = false
		m.probes++
		m.lastProbe = msg.at
		m.record(msg.status)
		cmds := []tea.Cmd{scheduleProbe(m.config.Interval)}
		if msg.status == availability.StatusAwake {
			cmds = append(cmds, m.loadHealth())
		}
		return m, tea.Batch(cmds...)

	case healthLoadedMsg:
		m.health = msg.report
		m.healthErr = msg.err

	case tickMsg:
		if m.probing {
			return m, nil
		}
		m.probing = true
		return m, m.probe()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// record applies a status and appends it to the history when it changed.
func (m *Model) record(status availability.Status) {
	if status == m.status {
		return
	}
	m.status = status
	m.history = append(m.history, statusEvent{status: status, at: time.Now()})
	if limit := m.config.History; limit > 0 && len(m.history) > limit {
		m.history = m.history[len(m.history)-limit:]
	}
}
