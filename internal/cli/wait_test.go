package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWaitIndicator(t *testing.T) {
	output := &syncBuffer{}

	wi := StartWait(output, "Scoring transaction")
	time.Sleep(3 * spinnerInterval)
	wi.Describe("Retrying")
	time.Sleep(2 * spinnerInterval)
	wi.Stop()

	out := output.String()
	assert.Contains(t, out, "Scoring transaction")
	assert.Contains(t, out, "Retrying")

	// A second Stop must not panic on the closed channel.
	assert.NotPanics(t, wi.Stop)
}
