// Package latency simulates backend round trips for the mock adapters and the
// payment step.
package latency

import (
	"context"
	"time"
)

// Simulator scales every simulated delay by Factor. A zero Factor disables delays.
type Simulator struct {
	Factor float64
}

// Realistic uses the delays exactly as declared.
var Realistic = Simulator{Factor: 1}

// None skips every delay; tests use it.
var None = Simulator{}

func (s Simulator) Scale(d time.Duration) time.Duration {
	if s.Factor <= 0 || d <= 0 {
		return 0
	}
	return time.Duration(float64(d) * s.Factor)
}

// Wait sleeps for the scaled duration or until ctx is done.
func (s Simulator) Wait(ctx context.Context, d time.Duration) error {
	return SleepOrDone(ctx, s.Scale(d))
}

// SleepOrDone waits for the duration or returns early on context cancellation.
func SleepOrDone(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
