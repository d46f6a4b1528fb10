package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Prompter asks the operator yes/no questions and tracks batch progress.
type Prompter struct {
	reader      *NonBlockingReader
	writer      io.Writer
	progressBar *progressbar.ProgressBar
	total       int
	processed   int
	// mu guards the progress state; labels may change from other goroutines.
	mu sync.Mutex
}

// NewPrompter creates a prompter reading answers from reader.
func NewPrompter(reader io.Reader, writer io.Writer) *Prompter {
	return &Prompter{
		reader: NewNonBlockingReader(reader),
		writer: writer,
	}
}

// Confirm asks question and returns the answer. An empty answer or end of
// input selects defaultYes.
func (p *Prompter) Confirm(ctx context.Context, question string, defaultYes bool) (bool, error) {
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}

	for {
		if _, err := fmt.Fprint(p.writer, FormatPrompt(question+" "+hint)); err != nil {
			return false, fmt.Errorf("failed to write prompt: %w", err)
		}

		answer, err := p.reader.ReadLine(ctx)
		if errors.Is(err, io.EOF) {
			return defaultYes, nil
		}
		if err != nil {
			return false, err
		}

		switch strings.ToLower(answer) {
		case "":
			return defaultYes, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}

		if _, err := fmt.Fprintln(p.writer, FormatWarning("Please answer y or n")); err != nil {
			slog.Warn("Failed to write prompt hint", "error", err)
		}
	}
}

// StartProgress shows a progress bar for scoring total transactions.
func (p *Prompter) StartProgress(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.total = total
	p.processed = 0
	p.progressBar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Scoring transactions...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(p.writer); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
}

// Advance records n more scored transactions.
func (p *Prompter) Advance(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed += n
	if p.progressBar != nil {
		if err := p.progressBar.Add(n); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}
}

// DescribeProgress replaces the progress bar's label.
func (p *Prompter) DescribeProgress(description string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.progressBar != nil {
		p.progressBar.Describe(description)
	}
}

// FinishProgress closes the progress bar. A bar that never reached its total
// is left showing how far it got.
func (p *Prompter) FinishProgress() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.progressBar == nil {
		return
	}
	var err error
	if p.processed >= p.total {
		err = p.progressBar.Finish()
	} else {
		err = p.progressBar.Exit()
	}
	if err != nil {
		slog.Warn("Failed to close progress bar", "error", err)
	}
	p.progressBar = nil
}

// Processed returns how many transactions have been recorded so far.
func (p *Prompter) Processed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed
}
