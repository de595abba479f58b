package leaselock

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type dbConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgBackend keeps leases in the run_leases table created by the pgx store
// migrations. Expiry is judged by the database clock.
type pgBackend struct {
	db dbConn
}

// New returns a client backed by Postgres.
func New(pool *pgxpool.Pool) *Client {
	return &Client{b: pgBackend{db: pool}}
}

func (p pgBackend) tryAcquire(ctx context.Context, key, holder, runID string, ttl time.Duration) (bool, error) {
	var returnedKey string
	err := p.db.QueryRow(ctx, tryAcquireSQL, key, holder, runID, ttl.Milliseconds()).Scan(&returnedKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return returnedKey != "", nil
}

func (p pgBackend) renew(ctx context.Context, key, holder string, ttl time.Duration) (bool, error) {
	var returnedKey string
	err := p.db.QueryRow(ctx, renewSQL, key, holder, ttl.Milliseconds()).Scan(&returnedKey)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (p pgBackend) release(ctx context.Context, key, holder string) error {
	_, err := p.db.Exec(ctx, releaseSQL, key, holder)
	return err
}

const tryAcquireSQL = `
INSERT INTO run_leases (lease_key, holder, run_id, acquired_at, expires_at)
VALUES ($1, $2, $3, now(), now() + ($4::bigint * interval '1 millisecond'))
ON CONFLICT (lease_key) DO UPDATE
SET holder      = EXCLUDED.holder,
    run_id      = EXCLUDED.run_id,
    acquired_at = EXCLUDED.acquired_at,
    expires_at  = EXCLUDED.expires_at
WHERE run_leases.expires_at < now()
   OR run_leases.holder = EXCLUDED.holder
RETURNING lease_key;
`

const renewSQL = `
UPDATE run_leases
SET expires_at = now() + ($3::bigint * interval '1 millisecond')
WHERE lease_key = $1 AND holder = $2
RETURNING lease_key;
`

const releaseSQL = `
DELETE FROM run_leases
WHERE lease_key = $1 AND holder = $2;
`
