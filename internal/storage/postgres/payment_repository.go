package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/SviatoslavBeiar/Event-Planer/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const sessionColumns = `id, event_id, buyer_id, status, COALESCE(ticket_id::text, ''), payment_intent_id, refund_required, created_at, updated_at`

func scanSession(row pgx.Row) (domain.PaymentSession, error) {
	var s domain.PaymentSession
	err := row.Scan(
		&s.ID,
		&s.EventID,
		&s.BuyerID,
		&s.Status,
		&s.TicketID,
		&s.PaymentIntentID,
		&s.RefundRequired,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	return s, err
}

// PaymentRepository stores checkout sessions and the reads the reconciler
// needs around them. Ticket lookups delegate to the same tables as
// TicketRepository so both join one transaction via the context.
type PaymentRepository struct {
	pool    *pgxpool.Pool
	tickets *TicketRepository
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{
		pool:    pool,
		tickets: NewTicketRepository(pool),
	}
}

func (r *PaymentRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *PaymentRepository) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	return r.tickets.GetEvent(ctx, eventID)
}

func (r *PaymentRepository) FindTicket(ctx context.Context, eventID, ownerID string) (*domain.Ticket, error) {
	return r.tickets.FindTicket(ctx, eventID, ownerID)
}

func (r *PaymentRepository) GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error) {
	return r.tickets.GetTicket(ctx, ticketID)
}

func (r *PaymentRepository) CountSeats(ctx context.Context, eventID string) (int, error) {
	return r.tickets.CountSeats(ctx, eventID)
}

func (r *PaymentRepository) CreateSession(ctx context.Context, session domain.PaymentSession) error {
	const stmt = `
INSERT INTO payment_sessions (id, event_id, buyer_id, status, ticket_id, payment_intent_id, refund_required, created_at, updated_at)
VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, $6, $7, $8, $9)`

	_, err := r.exec(ctx, stmt,
		session.ID,
		session.EventID,
		session.BuyerID,
		session.Status,
		session.TicketID,
		session.PaymentIntentID,
		session.RefundRequired,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSessionForUpdate locks the session row so concurrent confirmations of
// the same session (webhook vs. polling) serialize on it.
func (r *PaymentRepository) GetSessionForUpdate(ctx context.Context, sessionID string) (domain.PaymentSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM payment_sessions WHERE id = $1 FOR UPDATE`
	s, err := scanSession(r.queryRow(ctx, query, sessionID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.PaymentSession{}, domain.ErrSessionNotFound
		}
		return domain.PaymentSession{}, fmt.Errorf("get session for update: %w", err)
	}
	return s, nil
}

func (r *PaymentRepository) GetSession(ctx context.Context, sessionID string) (domain.PaymentSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM payment_sessions WHERE id = $1`
	s, err := scanSession(r.queryRow(ctx, query, sessionID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.PaymentSession{}, domain.ErrSessionNotFound
		}
		return domain.PaymentSession{}, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (r *PaymentRepository) UpdateSession(ctx context.Context, session domain.PaymentSession) error {
	const stmt = `
UPDATE payment_sessions
SET status = $2, ticket_id = NULLIF($3, '')::uuid, payment_intent_id = $4, refund_required = $5, updated_at = $6
WHERE id = $1`

	tag, err := r.exec(ctx, stmt,
		session.ID,
		session.Status,
		session.TicketID,
		session.PaymentIntentID,
		session.RefundRequired,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// ExpireStaleSessions sweeps PENDING sessions older than the cutoff. No
// seat release is involved: pending sessions hold no reservation.
func (r *PaymentRepository) ExpireStaleSessions(ctx context.Context, before time.Time) (int64, error) {
	const stmt = `
UPDATE payment_sessions
SET status = 'EXPIRED', updated_at = NOW()
WHERE status = 'PENDING' AND created_at < $1`

	tag, err := r.exec(ctx, stmt, before)
	if err != nil {
		return 0, fmt.Errorf("expire sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PaymentRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *PaymentRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
