// Package leaselock implements a distributed mutex on a single Postgres row.
// Workers coordinate only through this table; there is no external lock
// service. A crashed holder's lease self-expires after its TTL.
package leaselock

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Lease mirrors one row of radar.leases.
type Lease struct {
	Name       string    `json:"name"`
	Holder     string    `json:"holder"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Lock acquires and renews named leases.
type Lock struct {
	db *pgxpool.Pool
}

// New creates a lease lock backed by the given pool.
func New(db *pgxpool.Pool) *Lock {
	return &Lock{db: db}
}

// TryAcquireOrRenew atomically inserts the lease row, or updates it only when
// the existing lease is expired or already held by holder. This is a single
// conditional write; a read-then-write here would race between workers.
// Returns false with no side effect when another live holder exists.
func (l *Lock) TryAcquireOrRenew(ctx context.Context, name, holder string, ttl time.Duration) (bool, error) {
	query := `
		INSERT INTO radar.leases (name, holder, acquired_at, expires_at)
		VALUES ($1, $2, NOW(), NOW() + make_interval(secs => $3))
		ON CONFLICT (name) DO UPDATE SET
			holder = EXCLUDED.holder,
			acquired_at = CASE
				WHEN radar.leases.holder = EXCLUDED.holder THEN radar.leases.acquired_at
				ELSE NOW()
			END,
			expires_at = EXCLUDED.expires_at
		WHERE radar.leases.expires_at < NOW()
		   OR radar.leases.holder = EXCLUDED.holder
	`

	tag, err := l.db.Exec(ctx, query, name, holder, ttl.Seconds())
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", name, err)
	}

	return tag.RowsAffected() == 1, nil
}

// Release drops the lease if the caller still holds it. Best effort: a lease
// left behind expires on its own.
func (l *Lock) Release(ctx context.Context, name, holder string) error {
	_, err := l.db.Exec(ctx,
		`DELETE FROM radar.leases WHERE name = $1 AND holder = $2`,
		name, holder,
	)
	if err != nil {
		return fmt.Errorf("release lease %s: %w", name, err)
	}
	return nil
}

// Status returns all current lease rows for the operator surface.
func (l *Lock) Status(ctx context.Context) ([]Lease, error) {
	rows, err := l.db.Query(ctx,
		`SELECT name, holder, acquired_at, expires_at FROM radar.leases ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query leases: %w", err)
	}
	defer rows.Close()

	var leases []Lease
	for rows.Next() {
		var le Lease
		if err := rows.Scan(&le.Name, &le.Holder, &le.AcquiredAt, &le.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scan lease: %w", err)
		}
		leases = append(leases, le)
	}

	return leases, rows.Err()
}
