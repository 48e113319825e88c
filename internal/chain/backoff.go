// File: internal/chain/backoff.go
package chain

import (
	"context"
	"time"
)

// Backoff produces capped exponential delays for transient RPC failures.
// The zero value is not usable; construct with NewBackoff.
type Backoff struct {
	base    time.Duration
	max     time.Duration
	current time.Duration
}

// NewBackoff creates a backoff starting at base and doubling up to max
func NewBackoff(base, max time.Duration) *Backoff {
	return &Backoff{base: base, max: max, current: base}
}

// Next returns the delay to wait before the next retry
func (b *Backoff) Next() time.Duration {
	d := b.current
	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return d
}

// Reset returns the backoff to its base delay after a success
func (b *Backoff) Reset() {
	b.current = b.base
}

// Wait sleeps for the next delay, returning early if the context is cancelled
func (b *Backoff) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(b.Next()):
		return nil
	}
}
