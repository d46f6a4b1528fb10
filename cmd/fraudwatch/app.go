package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/Veraticus/fraudwatch/internal/availability"
	"github.com/Veraticus/fraudwatch/internal/cli"
	"github.com/Veraticus/fraudwatch/internal/config"
	"github.com/Veraticus/fraudwatch/internal/metrics"
	"github.com/Veraticus/fraudwatch/internal/scoring"
	"github.com/Veraticus/fraudwatch/internal/service"
	"github.com/Veraticus/fraudwatch/internal/transport"
	"github.com/spf13/viper"
)

var (
	_ service.Scorer       = (*scoring.Client)(nil)
	_ service.StatusSource = (*availability.Monitor)(nil)
)

// app holds the wiring shared by every command.
type app struct {
	in        io.Reader
	out       io.Writer
	errOut    io.Writer
	v         *viper.Viper
	collector *metrics.Collector
	monitor   *availability.Monitor
	scorer    *scoring.Client
	cfgFile   string
	cfg       config.Config
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{
		in:     in,
		out:    out,
		errOut: errOut,
		v:      viper.New(),
	}
}

// connect builds the transport, monitor and scoring client from the loaded
// configuration.
func (a *app) connect() {
	a.collector = metrics.NewCollector()
	doer := transport.New(a.cfg.API.BaseURL)
	a.monitor = availability.NewMonitor(doer,
		availability.WithProbeTimeout(a.cfg.Timeouts.Probe),
		availability.WithRecorder(a.collector),
	)
	a.scorer = scoring.New(doer, a.monitor, a.cfg, scoring.WithRecorder(a.collector))

	slog.Debug("Configured scoring client",
		"url", a.cfg.API.BaseURL,
		"prefix", a.cfg.API.Prefix,
		"predict_timeout", a.cfg.Timeouts.Predict)
}

// wakeUp probes the service in the background while the caller does its
// real work. The returned function stops the probe and waits for it.
func (a *app) wakeUp(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		status := a.monitor.Probe(ctx)
		slog.Debug("Startup probe finished", "status", status)
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}

// coldStartHint replaces progress labels once the service is known to be asleep.
var coldStartHint = cli.StatusLabel(availability.StatusSleeping) + " this can take up to 2 minutes"

// waitFor shows a spinner while fn runs. The label switches to the cold-start
// hint as soon as the service is known to be asleep.
func (a *app) waitFor(description string, fn func() error) error {
	wait := cli.StartWait(a.errOut, description)
	defer wait.Stop()

	unsubscribe := a.monitor.Subscribe(func(s availability.Status) {
		if s == availability.StatusSleeping {
			wait.Describe(coldStartHint)
		}
	})
	defer unsubscribe()

	return fn()
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}

func (a *app) println(s string) {
	fmt.Fprintln(a.out, s)
}
