// File: internal/chain/backoff_test.go
package chain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffDoublesAndCaps(t *testing.T) {
	b := NewBackoff(time.Second, 5*time.Second)

	assert.Equal(t, time.Second, b.Next())
	assert.Equal(t, 2*time.Second, b.Next())
	assert.Equal(t, 4*time.Second, b.Next())
	assert.Equal(t, 5*time.Second, b.Next())
	assert.Equal(t, 5*time.Second, b.Next())
}

func TestBackoffReset(t *testing.T) {
	b := NewBackoff(time.Second, 30*time.Second)
	b.Next()
	b.Next()

	b.Reset()
	assert.Equal(t, time.Second, b.Next())
}

func TestBackoffWaitHonorsCancellation(t *testing.T) {
	b := NewBackoff(time.Minute, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBackoffWaitCompletes(t *testing.T) {
	b := NewBackoff(time.Millisecond, time.Millisecond)
	assert.NoError(t, b.Wait(context.Background()))
}
