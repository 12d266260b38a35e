package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bch-paywall/internal/core/domain"
	"bch-paywall/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SessionRepo implements ports.SessionRepository.
type SessionRepo struct {
	pool Pool
}

// NewSessionRepo creates a new SessionRepo.
func NewSessionRepo(pool Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

// Create inserts a new pending payment session.
func (r *SessionRepo) Create(ctx context.Context, s *domain.PaymentSession) error {
	query := `INSERT INTO payment_sessions (id, payment_address, amount_required, paid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, query,
		s.ID, s.PaymentAddress, s.AmountRequired, s.Paid, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment session: %w", err)
	}
	return nil
}

// GetByID fetches a session by UUID. Returns nil, nil if not found.
func (r *SessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentSession, error) {
	query := `SELECT id, payment_address, amount_required, paid, created_at, updated_at
		FROM payment_sessions WHERE id = $1`

	return r.scanSession(r.pool.QueryRow(ctx, query, id))
}

// GetByAddress fetches a session by its payment address. Returns nil, nil if
// not found. An address can carry paid rows from earlier sessions alongside at
// most one pending row; the pending one wins, newest first among paid rows.
func (r *SessionRepo) GetByAddress(ctx context.Context, address string) (*domain.PaymentSession, error) {
	query := `SELECT id, payment_address, amount_required, paid, created_at, updated_at
		FROM payment_sessions WHERE payment_address = $1
		ORDER BY paid ASC, created_at DESC LIMIT 1`

	return r.scanSession(r.pool.QueryRow(ctx, query, address))
}

// AddressInUse reports whether an unpaid session currently holds the address.
func (r *SessionRepo) AddressInUse(ctx context.Context, address string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM payment_sessions WHERE payment_address = $1 AND paid = FALSE)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, address).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check address in use: %w", err)
	}
	return exists, nil
}

// MarkPaid transitions a session to paid. The WHERE clause makes the update
// conditional on paid still being false: a concurrent poll that lost the race
// affects zero rows, which is success, not an error. The returned bool reports
// whether this call performed the transition.
func (r *SessionRepo) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time) (bool, error) {
	query := `UPDATE payment_sessions SET paid = TRUE, updated_at = $2 WHERE id = $1 AND paid = FALSE`

	tag, err := r.pool.Exec(ctx, query, id, paidAt)
	if err != nil {
		return false, fmt.Errorf("mark session paid: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// List fetches sessions with filtering and pagination, newest first.
func (r *SessionRepo) List(ctx context.Context, params ports.SessionListParams) ([]domain.PaymentSession, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.Paid != nil {
		conditions = append(conditions, fmt.Sprintf("paid = $%d", argIdx))
		args = append(args, *params.Paid)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= to_timestamp($%d)", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= to_timestamp($%d)", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Count total
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM payment_sessions %s", where)
	var total int64
	err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	// Fetch page
	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT id, payment_address, amount_required, paid, created_at, updated_at
		FROM payment_sessions %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.PaymentSession
	for rows.Next() {
		s := domain.PaymentSession{}
		err := rows.Scan(&s.ID, &s.PaymentAddress, &s.AmountRequired, &s.Paid, &s.CreatedAt, &s.UpdatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate session rows: %w", err)
	}
	return sessions, total, nil
}

// GetStats retrieves aggregated session statistics.
func (r *SessionRepo) GetStats(ctx context.Context, periodStart *int64) (*ports.SessionStats, error) {
	var args []any
	condition := "TRUE"
	if periodStart != nil {
		condition = "created_at >= to_timestamp($1)"
		args = append(args, *periodStart)
	}

	query := fmt.Sprintf(`SELECT
		COUNT(*) AS total,
		COUNT(*) FILTER (WHERE paid) AS paid_sessions,
		COUNT(*) FILTER (WHERE NOT paid) AS pending_sessions,
		COALESCE(SUM(amount_required) FILTER (WHERE paid), 0) AS revenue
		FROM payment_sessions WHERE %s`, condition)

	stats := &ports.SessionStats{}
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&stats.TotalSessions, &stats.PaidSessions, &stats.PendingSessions, &stats.TotalRevenue,
	)
	if err != nil {
		return nil, fmt.Errorf("get session stats: %w", err)
	}
	return stats, nil
}

// scanSession is a helper to scan a single row into a PaymentSession.
func (r *SessionRepo) scanSession(row pgx.Row) (*domain.PaymentSession, error) {
	s := &domain.PaymentSession{}
	err := row.Scan(&s.ID, &s.PaymentAddress, &s.AmountRequired, &s.Paid, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return s, nil
}
