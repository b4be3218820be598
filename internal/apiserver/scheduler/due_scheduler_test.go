package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStarter struct {
	mu     sync.Mutex
	calls  int
	limits []int
	result int
	err    error
}

func (f *fakeStarter) StartDue(_ context.Context, limit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.limits = append(f.limits, limit)
	return f.result, f.err
}

func (f *fakeStarter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestDueScheduler_Tick(t *testing.T) {
	starter := &fakeStarter{result: 2}
	s := NewDueScheduler(Config{Starter: starter, Logger: zap.NewNop(), Interval: time.Minute, BatchSize: 5})

	assert.Equal(t, time.Minute, s.Tick(context.Background()))
	st := s.GetStatus()
	assert.Equal(t, 2, st.LastStarted)
	assert.Equal(t, 2, st.TotalStarted)
	assert.NotNil(t, st.LastRun)
	assert.False(t, st.Running)
	assert.Equal(t, []int{5}, starter.limits)

	starter.err = errors.New("database is locked")
	starter.result = 0
	assert.Equal(t, time.Minute, s.Tick(context.Background()))
	assert.Equal(t, 2*time.Minute, s.Tick(context.Background()))
	assert.Equal(t, 4*time.Minute, s.Tick(context.Background()))
	st = s.GetStatus()
	assert.Equal(t, 3, st.ConsecutiveFails)
	assert.Equal(t, "database is locked", st.LastError)

	starter.err = nil
	assert.Equal(t, time.Minute, s.Tick(context.Background()))
	st = s.GetStatus()
	assert.Zero(t, st.ConsecutiveFails)
	assert.Empty(t, st.LastError)
}

func TestDueScheduler_BackoffCapped(t *testing.T) {
	s := NewDueScheduler(Config{Starter: &fakeStarter{}, Logger: zap.NewNop(), Interval: time.Minute})
	assert.Equal(t, 10*time.Minute, s.calculateBackoffDelay(20))
}

func TestDueScheduler_StartStop(t *testing.T) {
	starter := &fakeStarter{}
	s := NewDueScheduler(Config{Starter: starter, Logger: zap.NewNop(), Interval: 10 * time.Millisecond})

	require.NoError(t, s.Start())
	assert.Error(t, s.Start())
	assert.True(t, s.GetStatus().Running)

	assert.Eventually(t, func() bool { return starter.Calls() >= 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	assert.False(t, s.GetStatus().Running)

	calls := starter.Calls()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, starter.Calls())
}
