package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStartupRefresh(t *testing.T) {
	var calls atomic.Int32
	s, err := New("5 0 * * *", 10*time.Millisecond, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, zap.NewNop())
	require.NoError(t, err)

	s.Start()
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	s.Stop()
}

func TestStopCancelsPendingStartupRun(t *testing.T) {
	var calls atomic.Int32
	s, err := New("5 0 * * *", time.Hour, func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}, zap.NewNop())
	require.NoError(t, err)

	s.Start()
	s.Stop()
	assert.Zero(t, calls.Load())
}

func TestRefreshErrorIsLogged(t *testing.T) {
	done := make(chan struct{})
	s, err := New("@daily", time.Millisecond, func(ctx context.Context) error {
		defer close(done)
		return errors.New("database is locked")
	}, zap.NewNop())
	require.NoError(t, err)

	s.Start()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresh was not called")
	}
	s.Stop()
}

func TestInvalidSchedule(t *testing.T) {
	_, err := New("not a cron line", time.Second, func(context.Context) error { return nil }, zap.NewNop())
	assert.Error(t, err)
}
