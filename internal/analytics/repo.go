package analytics

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGRepository runs the aggregate queries against PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const monthStart = `date_trunc('month', now())`

// CountEvents counts events starting this month.
func (r *PGRepository) CountEvents(ctx context.Context, scope Scope) (int64, error) {
	query := `SELECT COUNT(*) FROM events WHERE deleted_at IS NULL AND starts_at >= ` + monthStart
	args := []any{}
	switch {
	case scope.Scoped() && scope.Role == "organizer":
		query += ` AND organizer_id = $1`
		args = append(args, scope.UserID)
	case scope.Scoped():
		query += ` AND id IN (SELECT event_id FROM tickets WHERE holder_id = $1)`
		args = append(args, scope.UserID)
	}
	return r.count(ctx, query, args...)
}

// CountTicketsSold counts tickets sold this month.
func (r *PGRepository) CountTicketsSold(ctx context.Context, scope Scope) (int64, error) {
	query, args := ticketQuery(`SELECT COUNT(*)`, scope)
	return r.count(ctx, query, args...)
}

// SumRevenue totals ticket revenue this month.
func (r *PGRepository) SumRevenue(ctx context.Context, scope Scope) (float64, error) {
	query, args := ticketQuery(`SELECT COALESCE(SUM(t.price), 0)::float8`, scope)
	var total float64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// CountAttendees counts distinct ticket holders this month.
func (r *PGRepository) CountAttendees(ctx context.Context, scope Scope) (int64, error) {
	query, args := ticketQuery(`SELECT COUNT(DISTINCT t.holder_id)`, scope)
	return r.count(ctx, query, args...)
}

func ticketQuery(selectClause string, scope Scope) (string, []any) {
	query := selectClause + ` FROM tickets t JOIN events e ON e.id = t.event_id WHERE e.deleted_at IS NULL AND t.sold_at >= ` + monthStart
	if !scope.Scoped() {
		return query, nil
	}
	if scope.Role == "organizer" {
		return query + ` AND e.organizer_id = $1`, []any{scope.UserID}
	}
	return query + ` AND t.holder_id = $1`, []any{scope.UserID}
}

func (r *PGRepository) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
