package postgres

import (
	"context"
	"fmt"

	"github.com/SviatoslavBeiar/Event-Planer/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CheckerRepository stores gate-verification grants.
type CheckerRepository struct {
	pool *pgxpool.Pool
}

func NewCheckerRepository(pool *pgxpool.Pool) *CheckerRepository {
	return &CheckerRepository{pool: pool}
}

func (r *CheckerRepository) GetEvent(ctx context.Context, eventID string) (domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.pool.QueryRow(ctx, query, eventID))
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

func (r *CheckerRepository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	const query = `SELECT id, email, name FROM users WHERE LOWER(email) = LOWER($1)`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, email).Scan(&u.ID, &u.Email, &u.Name)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// CreateGrant inserts a grant; granting twice is a no-op.
func (r *CheckerRepository) CreateGrant(ctx context.Context, grant domain.CheckerGrant) error {
	const stmt = `
INSERT INTO event_checkers (event_id, user_id, granted_at)
VALUES ($1, $2, $3)
ON CONFLICT (event_id, user_id) DO NOTHING`

	_, err := r.pool.Exec(ctx, stmt, grant.EventID, grant.UserID, grant.GrantedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrEventNotFound
		}
		return fmt.Errorf("create grant: %w", err)
	}
	return nil
}

// DeleteGrant removes a grant; revoking a non-existent grant is a no-op.
func (r *CheckerRepository) DeleteGrant(ctx context.Context, eventID, userID string) error {
	const stmt = `DELETE FROM event_checkers WHERE event_id = $1 AND user_id = $2`
	if _, err := r.pool.Exec(ctx, stmt, eventID, userID); err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete grant: %w", err)
	}
	return nil
}

func (r *CheckerRepository) IsChecker(ctx context.Context, eventID, userID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM event_checkers WHERE event_id = $1 AND user_id = $2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, eventID, userID).Scan(&exists); err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("check checker: %w", err)
	}
	return exists, nil
}

const grantColumns = `c.event_id, c.user_id, u.email, e.title, c.granted_at`

func (r *CheckerRepository) ListGrantsByEvent(ctx context.Context, eventID string) ([]domain.CheckerGrant, error) {
	query := `
SELECT ` + grantColumns + `
FROM event_checkers c
JOIN users u ON u.id = c.user_id
JOIN events e ON e.id = c.event_id
WHERE c.event_id = $1
ORDER BY c.granted_at DESC`
	return r.listGrants(ctx, query, eventID)
}

func (r *CheckerRepository) ListGrantsByUser(ctx context.Context, userID string) ([]domain.CheckerGrant, error) {
	query := `
SELECT ` + grantColumns + `
FROM event_checkers c
JOIN users u ON u.id = c.user_id
JOIN events e ON e.id = c.event_id
WHERE c.user_id = $1
ORDER BY c.granted_at DESC`
	return r.listGrants(ctx, query, userID)
}

func (r *CheckerRepository) listGrants(ctx context.Context, query string, arg any) ([]domain.CheckerGrant, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	var grants []domain.CheckerGrant
	for rows.Next() {
		var g domain.CheckerGrant
		if err := rows.Scan(&g.EventID, &g.UserID, &g.UserEmail, &g.EventTitle, &g.GrantedAt); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		grants = append(grants, g)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate grants: %w", rows.Err())
	}
	return grants, nil
}
