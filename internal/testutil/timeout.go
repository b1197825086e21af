package testutil

import (
	"context"
	"testing"
	"time"
)

const (
	// DefaultRunTimeout bounds a whole scripted loop run in tests.
	DefaultRunTimeout = 30 * time.Second

	// ShortCommandTimeout is a per-command limit small enough to hit on purpose.
	ShortCommandTimeout = 200 * time.Millisecond

	// DefaultTestBuffer is kept free before the test deadline for cleanup.
	DefaultTestBuffer = 5 * time.Second
)

// ContextWithTestDeadline returns a context that ends DefaultTestBuffer
// before the test deadline, or after fallback when the test has none.
func ContextWithTestDeadline(t *testing.T, fallback time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()
	return ContextWithTestDeadlineBuffer(t, fallback, DefaultTestBuffer)
}

// ContextWithTestDeadlineBuffer is ContextWithTestDeadline with a custom
// buffer. A deadline already inside the buffer falls back too.
func ContextWithTestDeadlineBuffer(t *testing.T, fallback, buffer time.Duration) (context.Context, context.CancelFunc) {
	t.Helper()

	if deadline, ok := t.Deadline(); ok {
		adjusted := deadline.Add(-buffer)
		if time.Until(adjusted) > 0 {
			return context.WithDeadline(context.Background(), adjusted)
		}
	}
	return context.WithTimeout(context.Background(), fallback)
}

// RunContext returns a context suitable for a full loop run.
func RunContext(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return ContextWithTestDeadline(t, DefaultRunTimeout)
}
