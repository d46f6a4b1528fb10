package tui

import (
	"time"

	"github.com/Veraticus/fraudwatch/internal/availability"
	"github.com/Veraticus/fraudwatch/internal/model"
)

// statusChangedMsg carries a status published by the monitor.
type statusChangedMsg struct {
	status availability.Status
}

// probeDoneMsg reports a finished liveness probe.
type probeDoneMsg struct {
	at     time.Time
	status availability.Status
}

// healthLoadedMsg carries the model health report.
type healthLoadedMsg struct {
	err    error
	report *model.HealthReport
}

// tickMsg schedules the next probe.
type tickMsg time.Time

// statusEvent is one entry of the status history.
type statusEvent struct {
	at     time.Time
	status availability.Status
}
