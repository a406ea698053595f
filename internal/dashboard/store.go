package dashboard

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventdesk/eventdesk/internal/platform/db"
	"github.com/eventdesk/eventdesk/internal/platform/httpx"
)

// PGEventStore applies confirmed actions against PostgreSQL.
type PGEventStore struct {
	pool *pgxpool.Pool
}

// NewPGEventStore constructs a PGEventStore.
func NewPGEventStore(pool *pgxpool.Pool) *PGEventStore {
	return &PGEventStore{pool: pool}
}

// DeleteEvent removes an event and its unsold tickets.
func (s *PGEventStore) DeleteEvent(ctx context.Context, id string) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE events SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return httpx.ErrNotFound
		}
		_, err = tx.Exec(ctx, `DELETE FROM tickets WHERE event_id = $1 AND sold_at IS NULL`, id)
		return err
	})
}

// RevokeLicense marks an active license revoked.
func (s *PGEventStore) RevokeLicense(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE licenses SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return httpx.ErrNotFound
	}
	return nil
}
