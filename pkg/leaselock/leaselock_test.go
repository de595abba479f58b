package leaselock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentKey(t *testing.T) {
	assert.Equal(t, "document:doc-1", DocumentKey("doc-1"))
}

func TestAcquireBusyAndRelease(t *testing.T) {
	c := NewLocal()
	ctx := context.Background()

	first, err := c.Acquire(ctx, "document:a", Options{TTL: time.Minute})
	require.NoError(t, err)

	_, err = c.Acquire(ctx, "document:a", Options{TTL: time.Minute})
	assert.ErrorIs(t, err, ErrBusy)

	other, err := c.Acquire(ctx, "document:b", Options{TTL: time.Minute})
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))

	require.NoError(t, first.Release(ctx))
	assert.Error(t, first.Context.Err())

	again, err := c.Acquire(ctx, "document:a", Options{TTL: time.Minute})
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestAcquireEmptyKey(t *testing.T) {
	_, err := NewLocal().Acquire(context.Background(), "", Options{})
	assert.Error(t, err)
}

func TestAcquireTakesOverExpiredLease(t *testing.T) {
	c := NewLocal()
	b := c.b.(*localBackend)
	now := time.Now()
	b.now = func() time.Time { return now }

	ok, err := b.tryAcquire(context.Background(), "k", "stale-holder", "run-1", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	lease, err := c.Acquire(context.Background(), "k", Options{TTL: time.Minute})
	require.NoError(t, err)
	defer lease.Release(context.Background())
	assert.NotEqual(t, "stale-holder", lease.Holder)
}

func TestAcquireWaitsForRelease(t *testing.T) {
	c := NewLocal()
	ctx := context.Background()

	held, err := c.Acquire(ctx, "k", Options{TTL: time.Minute})
	require.NoError(t, err)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = held.Release(ctx)
	}()

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	lease, err := c.Acquire(waitCtx, "k", Options{TTL: time.Minute, Wait: true, WaitInterval: 5 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, lease.Release(ctx))
}

func TestAcquireWaitHonoursContext(t *testing.T) {
	c := NewLocal()
	held, err := c.Acquire(context.Background(), "k", Options{TTL: time.Minute})
	require.NoError(t, err)
	defer held.Release(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = c.Acquire(ctx, "k", Options{Wait: true, WaitInterval: 5 * time.Millisecond})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithLeaseSerializesRuns(t *testing.T) {
	c := NewLocal()
	var inside, peak atomic.Int32
	var wg sync.WaitGroup

	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.WithLease(context.Background(), DocumentKey("doc-1"), Options{
				TTL:          time.Minute,
				Wait:         true,
				WaitInterval: time.Millisecond,
			}, func(ctx context.Context) error {
				n := inside.Add(1)
				defer inside.Add(-1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak.Load())
}

func TestLeaseLostCancelsContext(t *testing.T) {
	c := NewLocal()
	b := c.b.(*localBackend)

	err := c.WithLease(context.Background(), "k", Options{TTL: 40 * time.Millisecond, RenewEvery: 10 * time.Millisecond}, func(ctx context.Context) error {
		b.mu.Lock()
		b.leases["k"] = localEntry{holder: "thief", expires: time.Now().Add(time.Minute)}
		b.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return errors.New("lease was not lost")
		}
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLost)

	b.mu.Lock()
	defer b.mu.Unlock()
	assert.Equal(t, "thief", b.leases["k"].holder)
}
