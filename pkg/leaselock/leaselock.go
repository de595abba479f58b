// Package leaselock hands out expiring, renewable leases. The worker holds
// one lease per document while a construction run for it is in flight, so
// two runs never write the same document's graph concurrently.
package leaselock

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/OFFIS-RIT/lexgraph/pkg/logger"
)

var (
	ErrBusy = errors.New("lease busy")
	ErrLost = errors.New("lease lost")
)

// backend stores leases. tryAcquire succeeds when the key is free, expired
// or already held by holder; renew fails with ok=false once the lease
// belongs to someone else.
type backend interface {
	tryAcquire(ctx context.Context, key, holder, runID string, ttl time.Duration) (bool, error)
	renew(ctx context.Context, key, holder string, ttl time.Duration) (bool, error)
	release(ctx context.Context, key, holder string) error
}

type Client struct {
	b backend
}

type Options struct {
	TTL        time.Duration
	RenewEvery time.Duration

	Wait         bool
	WaitInterval time.Duration
	WaitJitter   time.Duration

	HolderPrefix string
	// RunID is recorded with the lease for operators inspecting who holds
	// a document.
	RunID string
}

type Lease struct {
	Key    string
	Holder string

	// Context is cancelled when the lease is released or lost. The cause
	// is ErrLost when renewal failed.
	Context context.Context

	client *Client
	cancel context.CancelCauseFunc

	stopOnce sync.Once
	stopCh   chan struct{}
}

// DocumentKey is the lease key guarding runs of one document.
func DocumentKey(documentID string) string {
	return "document:" + documentID
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = 5 * time.Minute
	}
	if o.RenewEvery <= 0 || o.RenewEvery >= o.TTL {
		o.RenewEvery = max(o.TTL/2, 10*time.Millisecond)
	}
	if o.WaitInterval <= 0 {
		o.WaitInterval = 250 * time.Millisecond
	}
	if o.WaitJitter < 0 {
		o.WaitJitter = 0
	}
	return o
}

// WithLease runs fn while holding key. fn receives the lease context, which
// is cancelled if the lease is lost mid-run.
func (c *Client) WithLease(ctx context.Context, key string, opts Options, fn func(ctx context.Context) error) error {
	lease, err := c.Acquire(ctx, key, opts)
	if err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lease.Release(releaseCtx); err != nil {
			logger.Warn("[Lease] Failed to release lease", "key", key, "err", err)
		}
	}()

	err = fn(lease.Context)
	if cause := context.Cause(lease.Context); errors.Is(cause, ErrLost) && err != nil {
		return errors.Join(ErrLost, err)
	}
	return err
}

// Acquire takes the lease on key. Without opts.Wait a held key returns
// ErrBusy immediately; with it Acquire polls until ctx is done.
func (c *Client) Acquire(ctx context.Context, key string, opts Options) (*Lease, error) {
	if key == "" {
		return nil, errors.New("lease key is empty")
	}
	opts = opts.withDefaults()

	tok, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	holder := opts.HolderPrefix + tok

	for {
		ok, err := c.b.tryAcquire(ctx, key, holder, opts.RunID, opts.TTL)
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if !opts.Wait {
			return nil, ErrBusy
		}
		if err := sleepWithJitter(ctx, opts.WaitInterval, opts.WaitJitter); err != nil {
			return nil, err
		}
	}

	leaseCtx, cancel := context.WithCancelCause(ctx)
	l := &Lease{
		Key:     key,
		Holder:  holder,
		Context: leaseCtx,
		client:  c,
		cancel:  cancel,
		stopCh:  make(chan struct{}),
	}
	logger.Debug("[Lease] Acquired", "key", key, "holder", holder, "run_id", opts.RunID)

	go l.renewLoop(opts)

	return l, nil
}

func (l *Lease) Release(ctx context.Context) error {
	l.stopOnce.Do(func() {
		close(l.stopCh)
		l.cancel(context.Canceled)
	})
	return l.client.b.release(ctx, l.Key, l.Holder)
}

func (l *Lease) renewLoop(opts Options) {
	t := time.NewTicker(opts.RenewEvery)
	defer t.Stop()

	for {
		select {
		case <-l.stopCh:
			return
		case <-l.Context.Done():
			return
		case <-t.C:
			if err := l.renewOnce(opts.TTL); err != nil {
				logger.Warn("[Lease] Lost lease", "key", l.Key, "err", err)
				l.cancel(ErrLost)
				return
			}
		}
	}
}

func (l *Lease) renewOnce(ttl time.Duration) error {
	for attempt := range 3 {
		renewCtx, cancel := context.WithTimeout(l.Context, 15*time.Second)
		ok, err := l.client.b.renew(renewCtx, l.Key, l.Holder, ttl)
		cancel()
		if err == nil {
			if !ok {
				return ErrLost
			}
			return nil
		}
		if attempt == 2 {
			return err
		}
		if err := sleepWithJitter(l.Context, 200*time.Millisecond, 0); err != nil {
			return err
		}
	}
	return ErrLost
}

func sleepWithJitter(ctx context.Context, base, jitter time.Duration) error {
	d := base
	if jitter > 0 {
		d += time.Duration(rand.Int64N(int64(jitter) + 1))
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
