package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/fraudwatch/internal/availability"
	"github.com/Veraticus/fraudwatch/internal/model"
	"github.com/Veraticus/fraudwatch/internal/service"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModel(t *testing.T, source *service.MockStatusSource, opts ...Option) Model {
	t.Helper()
	cfg := defaultConfig()
	cfg.Source = source
	for _, opt := range opts {
		opt(&cfg)
	}
	return newModel(context.Background(), cfg, nil)
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func TestModel_InitialView(t *testing.T) {
	m := testModel(t, service.NewMockStatusSource(availability.StatusChecking))

	view := m.View()
	assert.Contains(t, view, "Checking status...")
	assert.Contains(t, view, "probing")
	assert.Contains(t, view, "r probe now")
	assert.Contains(t, view, "q quit")
}

func TestModel_ProbeDone(t *testing.T) {
	health := &model.HealthReport{Status: "healthy", ModelLoaded: true, Version: "1.0.0"}
	scorer := &service.MockScorer{
		FetchHealthFn: func(context.Context) (*model.HealthReport, error) { return health, nil },
	}
	m := testModel(t, service.NewMockStatusSource(availability.StatusChecking), WithScorer(scorer))

	m, cmd := update(t, m, probeDoneMsg{status: availability.StatusAwake, at: time.Now()})
	require.NotNil(t, cmd)
	assert.False(t, m.probing)
	assert.Equal(t, 1, m.probes)
	assert.Equal(t, availability.StatusAwake, m.status)
	assert.Contains(t, m.View(), "System Active")
	assert.NotContains(t, m.View(), "probing")

	m, _ = update(t, m, m.loadHealth()())
	assert.Contains(t, m.View(), "Model health: healthy (version 1.0.0, model loaded)")
}

func TestModel_SleepingSkipsHealth(t *testing.T) {
	called := false
	scorer := &service.MockScorer{
		FetchHealthFn: func(context.Context) (*model.HealthReport, error) {
			called = true
			return nil, errors.New("unreachable")
		},
	}
	m := testModel(t, service.NewMockStatusSource(availability.StatusChecking), WithScorer(scorer))

	m, _ = update(t, m, probeDoneMsg{status: availability.StatusSleeping, at: time.Now()})
	assert.Contains(t, m.View(), "Waking up server...")
	assert.False(t, called)
}

func TestModel_HealthError(t *testing.T) {
	m := testModel(t, service.NewMockStatusSource(availability.StatusAwake))
	m, _ = update(t, m, healthLoadedMsg{err: errors.New("Health check failed")})

	assert.Contains(t, m.View(), "Model health: Health check failed")
}

func TestModel_StatusChangesBuildHistory(t *testing.T) {
	m := testModel(t, service.NewMockStatusSource(availability.StatusChecking))

	m, _ = update(t, m, statusChangedMsg{status: availability.StatusSleeping})
	m, _ = update(t, m, statusChangedMsg{status: availability.StatusSleeping})
	m, _ = update(t, m, statusChangedMsg{status: availability.StatusAwake})

	require.Len(t, m.history, 3)
	assert.Equal(t, availability.StatusChecking, m.history[0].status)
	assert.Equal(t, availability.StatusSleeping, m.history[1].status)
	assert.Equal(t, availability.StatusAwake, m.history[2].status)
}

func TestModel_HistoryIsBounded(t *testing.T) {
	m := testModel(t, service.NewMockStatusSource(availability.StatusChecking))
	m.config.History = 3

	statuses := []availability.Status{
		availability.StatusSleeping, availability.StatusAwake,
		availability.StatusSleeping, availability.StatusAwake,
	}
	for _, s := range statuses {
		m, _ = update(t, m, statusChangedMsg{status: s})
	}

	assert.Len(t, m.history, 3)
	assert.Equal(t, availability.StatusAwake, m.history[2].status)
}

func TestModel_TickProbesWhenIdle(t *testing.T) {
	source := service.NewMockStatusSource(availability.StatusChecking)
	source.ProbeFn = func(context.Context) availability.Status { return availability.StatusAwake }
	m := testModel(t, source)

	// The initial probe is still in flight.
	_, cmd := update(t, m, tickMsg(time.Now()))
	assert.Nil(t, cmd)

	m.probing = false
	m, cmd = update(t, m, tickMsg(time.Now()))
	require.NotNil(t, cmd)
	assert.True(t, m.probing)

	msg := cmd()
	done, ok := msg.(probeDoneMsg)
	require.True(t, ok)
	assert.Equal(t, availability.StatusAwake, done.status)
}

func TestModel_Keys(t *testing.T) {
	m := testModel(t, service.NewMockStatusSource(availability.StatusAwake))
	m.probing = false

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.NotNil(t, cmd)
	assert.True(t, m.probing)

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Empty(t, m.View())
}

func TestSubscribeBridgesNotifications(t *testing.T) {
	source := service.NewMockStatusSource(availability.StatusChecking)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, unsubscribe := subscribe(ctx, source)
	defer unsubscribe()

	source.Set(availability.StatusAwake)

	msg := waitForStatus(updates)()
	changed, ok := msg.(statusChangedMsg)
	require.True(t, ok)
	assert.Equal(t, availability.StatusAwake, changed.status)
}

func TestRun_RequiresSource(t *testing.T) {
	assert.Error(t, Run(context.Background(), nil))
}
