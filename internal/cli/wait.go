package cli

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

const spinnerInterval = 100 * time.Millisecond

// WaitIndicator shows a spinner with the elapsed time while a slow call is in
// flight. A cold service can take minutes to answer, so silence would look
// like a hang.
type WaitIndicator struct {
	bar  *progressbar.ProgressBar
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// StartWait starts a spinner on w labeled with description.
func StartWait(w io.Writer, description string) *WaitIndicator {
	wi := &WaitIndicator{
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(description),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetElapsedTime(true),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionThrottle(spinnerInterval),
		),
		done: make(chan struct{}),
	}

	wi.wg.Add(1)
	go wi.spin()
	return wi
}

// Describe replaces the spinner's label.
func (wi *WaitIndicator) Describe(description string) {
	wi.bar.Describe(description)
}

// Stop halts and clears the spinner. It is safe to call more than once.
func (wi *WaitIndicator) Stop() {
	wi.once.Do(func() {
		close(wi.done)
		wi.wg.Wait()
		if err := wi.bar.Finish(); err != nil {
			slog.Debug("Failed to clear wait indicator", "error", err)
		}
	})
}

func (wi *WaitIndicator) spin() {
	defer wi.wg.Done()

	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-wi.done:
			return
		case <-ticker.C:
			if err := wi.bar.Add(1); err != nil {
				slog.Debug("Failed to advance wait indicator", "error", err)
			}
		}
	}
}
