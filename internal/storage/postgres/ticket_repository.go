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

const eventColumns = `id, organizer_id, title, capacity, paid, price_cents, currency, status, sales_start_at, sales_end_at`

func scanEvent(row pgx.Row) (domain.Event, error) {
	var e domain.Event
	err := row.Scan(
		&e.ID,
		&e.OrganizerID,
		&e.Title,
		&e.Capacity,
		&e.Paid,
		&e.PriceCents,
		&e.Currency,
		&e.Status,
		&e.SalesStartAt,
		&e.SalesEndAt,
	)
	return e, err
}

const ticketColumns = `id, code, event_id, owner_id, status, payment_intent_id, checkout_session_id, created_at, used_at`

func scanTicket(row pgx.Row) (domain.Ticket, error) {
	var t domain.Ticket
	err := row.Scan(
		&t.ID,
		&t.Code,
		&t.EventID,
		&t.OwnerID,
		&t.Status,
		&t.PaymentIntentID,
		&t.CheckoutSessionID,
		&t.CreatedAt,
		&t.UsedAt,
	)
	return t, err
}

// TicketRepository is the source of truth for tickets. It also reads the
// event catalog and user directory rows the ticket flows depend on.
type TicketRepository struct {
	pool *pgxpool.Pool
}

func NewTicketRepository(pool *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{pool: pool}
}

func (r *TicketRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *TicketRepository) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.queryRow(ctx, query, eventID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Event{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// GetEventForUpdate locks the event row for the duration of the enclosing
// transaction. Capacity check-and-insert runs under this lock, so admission
// control serializes per event and never across events.
func (r *TicketRepository) GetEventForUpdate(ctx context.Context, eventID string) (domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 FOR UPDATE`
	e, err := scanEvent(r.queryRow(ctx, query, eventID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Event{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("get event for update: %w", err)
	}
	return e, nil
}

func (r *TicketRepository) GetUser(ctx context.Context, userID string) (domain.User, error) {
	const query = `SELECT id, email, name FROM users WHERE id = $1`
	var u domain.User
	err := r.queryRow(ctx, query, userID).Scan(&u.ID, &u.Email, &u.Name)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.User{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// FindTicket returns the owner's non-cancelled ticket for the event, nil
// when none exists.
func (r *TicketRepository) FindTicket(ctx context.Context, eventID, ownerID string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
WHERE event_id = $1 AND owner_id = $2 AND status <> 'CANCELLED'`
	t, err := scanTicket(r.queryRow(ctx, query, eventID, ownerID))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find ticket: %w", err)
	}
	return &t, nil
}

// FindTicketByCode looks up a ticket by code regardless of event, so the
// caller can tell a foreign-event code apart from a non-existent one.
// Comparison is case-insensitive; codes are stored uppercase.
func (r *TicketRepository) FindTicketByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE code = UPPER($1)`
	t, err := scanTicket(r.queryRow(ctx, query, code))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find ticket by code: %w", err)
	}
	return &t, nil
}

func (r *TicketRepository) ListTicketsByOwner(ctx context.Context, ownerID string) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
WHERE owner_id = $1
ORDER BY created_at DESC`
	rows, err := r.query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate tickets: %w", rows.Err())
	}
	return tickets, nil
}

func (r *TicketRepository) GetTicket(ctx context.Context, ticketID string) (domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	t, err := scanTicket(r.queryRow(ctx, query, ticketID))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Ticket{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Ticket{}, domain.ErrTicketNotFound
		}
		return domain.Ticket{}, fmt.Errorf("get ticket: %w", err)
	}
	return t, nil
}

// CountSeats counts tickets holding a seat, i.e. ACTIVE or USED.
func (r *TicketRepository) CountSeats(ctx context.Context, eventID string) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE event_id = $1 AND status IN ('ACTIVE', 'USED')`
	var count int
	if err := r.queryRow(ctx, query, eventID).Scan(&count); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("count seats: %w", err)
	}
	return count, nil
}

func (r *TicketRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM tickets WHERE code = UPPER($1))`
	var exists bool
	if err := r.queryRow(ctx, query, code).Scan(&exists); err != nil {
		return false, fmt.Errorf("check code: %w", err)
	}
	return exists, nil
}

func (r *TicketRepository) CreateTicket(ctx context.Context, ticket domain.Ticket) error {
	const stmt = `
INSERT INTO tickets (id, code, event_id, owner_id, status, payment_intent_id, checkout_session_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.exec(ctx, stmt,
		ticket.ID,
		ticket.Code,
		ticket.EventID,
		ticket.OwnerID,
		ticket.Status,
		ticket.PaymentIntentID,
		ticket.CheckoutSessionID,
		ticket.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// The partial unique index on (event_id, owner_id) fires when a
			// concurrent request registered the same owner first.
			return domain.ErrAlreadyRegistered
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

// MarkUsed flips ACTIVE -> USED with a compare-and-set on status. Exactly
// one of any number of concurrent calls for the same ticket returns true.
func (r *TicketRepository) MarkUsed(ctx context.Context, ticketID string, usedAt time.Time) (bool, error) {
	const stmt = `UPDATE tickets SET status = 'USED', used_at = $2 WHERE id = $1 AND status = 'ACTIVE'`
	tag, err := r.exec(ctx, stmt, ticketID, usedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("mark used: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CancelTicket flips ACTIVE -> CANCELLED; the seat count excludes cancelled
// tickets, so the seat is released by the same statement.
func (r *TicketRepository) CancelTicket(ctx context.Context, ticketID string) (bool, error) {
	const stmt = `UPDATE tickets SET status = 'CANCELLED' WHERE id = $1 AND status = 'ACTIVE'`
	tag, err := r.exec(ctx, stmt, ticketID)
	if err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("cancel ticket: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// IsChecker reports whether the user holds a gate-verification grant.
func (r *TicketRepository) IsChecker(ctx context.Context, eventID, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM event_checkers WHERE event_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.queryRow(ctx, query, eventID, userID).Scan(&exists); err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("check checker: %w", err)
	}
	return exists, nil
}

func (r *TicketRepository) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *TicketRepository) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}

func (r *TicketRepository) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}
