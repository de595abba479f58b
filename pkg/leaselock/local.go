package leaselock

import (
	"context"
	"sync"
	"time"
)

type localEntry struct {
	holder  string
	runID   string
	expires time.Time
}

// localBackend serializes runs inside one process. It is used when the
// graph lives in sqlite, neo4j or memory and no shared database exists.
type localBackend struct {
	mu     sync.Mutex
	leases map[string]localEntry
	now    func() time.Time
}

// NewLocal returns a client whose leases only exclude holders in the same
// process.
func NewLocal() *Client {
	return &Client{b: &localBackend{leases: map[string]localEntry{}, now: time.Now}}
}

func (l *localBackend) tryAcquire(ctx context.Context, key, holder, runID string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, ok := l.leases[key]; ok && cur.holder != holder && cur.expires.After(now) {
		return false, nil
	}
	l.leases[key] = localEntry{holder: holder, runID: runID, expires: now.Add(ttl)}
	return true, nil
}

func (l *localBackend) renew(ctx context.Context, key, holder string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	cur, ok := l.leases[key]
	if !ok || cur.holder != holder {
		return false, nil
	}
	cur.expires = l.now().Add(ttl)
	l.leases[key] = cur
	return true, nil
}

func (l *localBackend) release(_ context.Context, key, holder string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.leases[key]; ok && cur.holder == holder {
		delete(l.leases, key)
	}
	return nil
}
