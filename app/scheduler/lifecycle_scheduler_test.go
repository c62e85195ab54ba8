package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amirphl/business-registry/app/services"
	businessflow "github.com/amirphl/business-registry/business_flow"
	"github.com/amirphl/business-registry/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCleaner struct {
	calls atomic.Int32
	err   error
}

func (f *fakeCleaner) CleanupExpired(context.Context) (*businessflow.CleanupResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &businessflow.CleanupResult{Sessions: 2}, nil
}

type fakeSweeper struct {
	expired   atomic.Int32
	reminders atomic.Int32
}

func (f *fakeSweeper) ExpireOverdue(context.Context) (int, error) {
	f.expired.Add(1)
	return 1, nil
}

func (f *fakeSweeper) SendExpiryReminders(context.Context) (int, error) {
	f.reminders.Add(1)
	return 0, nil
}

type fakeDispatcher struct {
	calls atomic.Int32
}

func (f *fakeDispatcher) DispatchDueCampaigns(context.Context) (int, error) {
	f.calls.Add(1)
	return 3, nil
}

func TestWithSeconds(t *testing.T) {
	assert.Equal(t, "0 */5 * * * *", withSeconds("*/5 * * * *"))
	assert.Equal(t, "30 0 * * * *", withSeconds("30 0 * * * *"))
}

func TestRunAll(t *testing.T) {
	cleaner := &fakeCleaner{}
	sweeper := &fakeSweeper{}
	dispatcher := &fakeDispatcher{}
	s := NewLifecycleScheduler(cleaner, sweeper, dispatcher, services.NewMemoryLocker(), Config{}, utils.NopLogger())

	s.RunAll(context.Background())

	assert.EqualValues(t, 1, cleaner.calls.Load())
	assert.EqualValues(t, 1, sweeper.expired.Load())
	assert.EqualValues(t, 1, sweeper.reminders.Load())
	assert.EqualValues(t, 1, dispatcher.calls.Load())
}

func TestRunAll_FailingJobDoesNotStopOthers(t *testing.T) {
	cleaner := &fakeCleaner{err: errors.New("db down")}
	sweeper := &fakeSweeper{}
	dispatcher := &fakeDispatcher{}
	s := NewLifecycleScheduler(cleaner, sweeper, dispatcher, nil, Config{}, utils.NopLogger())

	s.RunAll(context.Background())

	assert.EqualValues(t, 1, cleaner.calls.Load())
	assert.EqualValues(t, 1, sweeper.expired.Load())
	assert.EqualValues(t, 1, dispatcher.calls.Load())
}

func TestRunJob_SkipsWhenLockHeld(t *testing.T) {
	locker := services.NewMemoryLocker()
	release, err := locker.Acquire(context.Background(), "scheduler:newsletter_dispatch", time.Minute, time.Second)
	require.NoError(t, err)
	defer release()

	dispatcher := &fakeDispatcher{}
	s := NewLifecycleScheduler(nil, nil, dispatcher, locker, Config{}, utils.NopLogger())

	s.runJob(context.Background(), "newsletter_dispatch", s.dispatchCampaigns)
	assert.EqualValues(t, 0, dispatcher.calls.Load())
}

func TestRunJob_CancelledParent(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	s := NewLifecycleScheduler(nil, nil, dispatcher, nil, Config{}, utils.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.runJob(ctx, "newsletter_dispatch", s.dispatchCampaigns)
	assert.EqualValues(t, 0, dispatcher.calls.Load())
}

func TestStartStop(t *testing.T) {
	t.Run("disabled is a no-op", func(t *testing.T) {
		s := NewLifecycleScheduler(nil, nil, nil, nil, Config{}, utils.NopLogger())
		stop, err := s.Start(context.Background())
		require.NoError(t, err)
		stop()
		assert.False(t, s.IsRunning())
	})

	t.Run("enabled runs until stopped", func(t *testing.T) {
		s := NewLifecycleScheduler(&fakeCleaner{}, &fakeSweeper{}, &fakeDispatcher{}, nil, Config{Enabled: true}, utils.NopLogger())
		stop, err := s.Start(context.Background())
		require.NoError(t, err)
		assert.True(t, s.IsRunning())
		stop()
		assert.False(t, s.IsRunning())
	})

	t.Run("invalid schedule", func(t *testing.T) {
		s := NewLifecycleScheduler(nil, nil, nil, nil, Config{Enabled: true, DispatchSchedule: "not a cron"}, utils.NopLogger())
		_, err := s.Start(context.Background())
		assert.Error(t, err)
		assert.False(t, s.IsRunning())
	})
}
