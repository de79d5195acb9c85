package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExpirer struct {
	calls atomic.Int32
}

func (f *fakeExpirer) ExpireTrades(ctx context.Context) (int, error) {
	f.calls.Add(1)
	return 2, nil
}

func TestTradeExpiryScheduler_RunNow(t *testing.T) {
	exp := &fakeExpirer{}
	s := NewTradeExpiryScheduler(exp, ExpiryConfig{})

	n, err := s.RunNow()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int32(1), exp.calls.Load())
}

func TestTradeExpiryScheduler_SweepsOnStartAndStops(t *testing.T) {
	exp := &fakeExpirer{}
	s := NewTradeExpiryScheduler(exp, ExpiryConfig{Interval: 10 * time.Millisecond})
	s.Start()
	s.Start()

	assert.Eventually(t, func() bool { return exp.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()
}
