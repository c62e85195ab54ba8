package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_SerializesSameKey(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(ctx, "business:1", time.Second, 5*time.Second)
			require.NoError(t, err)
			defer release()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(2 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
}

func TestMemoryLocker_BusyAfterWait(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "k", time.Second, time.Second)
	require.NoError(t, err)
	defer release()

	_, err = locker.Acquire(ctx, "k", time.Second, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockBusy)

	other, err := locker.Acquire(ctx, "other", time.Second, 20*time.Millisecond)
	require.NoError(t, err)
	other()
}

func TestMemoryLocker_ReleaseIsIdempotent(t *testing.T) {
	locker := NewMemoryLocker()
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "k", time.Second, time.Second)
	require.NoError(t, err)
	release()
	release()

	again, err := locker.Acquire(ctx, "k", time.Second, 20*time.Millisecond)
	require.NoError(t, err)
	again()
}

func TestMemoryChallengeStore_TakeConsumes(t *testing.T) {
	store := NewMemoryChallengeStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "c1", 90, time.Minute))

	angle, ok, err := store.Take(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 90, angle)

	_, ok, err = store.Take(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryChallengeStore_Expired(t *testing.T) {
	store := NewMemoryChallengeStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "c1", 45, -time.Second))

	_, ok, err := store.Take(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, ok)
}
