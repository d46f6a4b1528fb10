// Package main runs the status watch against a simulated scoring service.
package main

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/Veraticus/fraudwatch/internal/availability"
	"github.com/Veraticus/fraudwatch/internal/model"
	"github.com/Veraticus/fraudwatch/internal/service"
	"github.com/Veraticus/fraudwatch/internal/tui"
)

func main() {
	ctx := context.Background()

	// The simulated service sleeps for two probes, then wakes up.
	var probes atomic.Int32
	source := service.NewMockStatusSource(availability.StatusChecking)
	source.ProbeFn = func(ctx context.Context) availability.Status {
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			return availability.StatusSleeping
		}
		if probes.Add(1) > 2 {
			return availability.StatusAwake
		}
		return availability.StatusSleeping
	}

	scorer := &service.MockScorer{
		FetchHealthFn: func(context.Context) (*model.HealthReport, error) {
			return &model.HealthReport{Status: "healthy", Version: "demo", ModelLoaded: true}, nil
		},
	}

	err := tui.Run(ctx, source,
		tui.WithInterval(3*time.Second),
		tui.WithScorer(scorer),
		tui.WithSize(100, 30),
	)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
