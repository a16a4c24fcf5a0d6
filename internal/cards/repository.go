package cards

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/vcards/internal/platform/db"
)

const cardColumns = `id, number, carrier_name, expires_on, payment_system, cvv_hash, frozen, carrier_id, created_at`

// AnyOwner widens owner-scoped operations to every card.
const AnyOwner int64 = 0

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts c and returns its id and creation time.
func (r *Repository) Create(ctx context.Context, c Card) (int64, time.Time, error) {
	query := `
		INSERT INTO cards (number, carrier_name, expires_on, payment_system, cvv_hash, frozen, carrier_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	var (
		id        int64
		createdAt time.Time
	)
	err := r.pool.QueryRow(ctx, query,
		c.Number, c.CarrierName, c.ExpiresOn, string(c.PaymentSystem), c.CVVHash, c.Frozen, c.CarrierID,
	).Scan(&id, &createdAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return 0, time.Time{}, errNumberTaken
		}
		return 0, time.Time{}, fmt.Errorf("cards: create: %w", err)
	}
	return id, createdAt, nil
}

// Get loads card id; ownerID other than AnyOwner restricts the lookup to
// that carrier.
func (r *Repository) Get(ctx context.Context, id, ownerID int64) (*Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1 AND ($2::bigint = 0 OR carrier_id = $2)`
	return scanCard(r.pool.QueryRow(ctx, query, id, ownerID))
}

// List returns cards of ownerID, or every card for AnyOwner.
func (r *Repository) List(ctx context.Context, ownerID int64) ([]Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE ($1::bigint = 0 OR carrier_id = $1) ORDER BY id`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("cards: list: %w", err)
	}
	defer rows.Close()

	var out []Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cards: list: %w", err)
	}
	return out, nil
}

// Delete removes card id within the owner scope.
func (r *Repository) Delete(ctx context.Context, id, ownerID int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cards WHERE id = $1 AND ($2::bigint = 0 OR carrier_id = $2)`, id, ownerID)
	if err != nil {
		return fmt.Errorf("cards: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Modify locks card id, lets fn change it and persists expiry and frozen
// state in one transaction.
func (r *Repository) Modify(ctx context.Context, id, ownerID int64, fn func(*Card) error) (*Card, error) {
	var out *Card
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		query := `SELECT ` + cardColumns + ` FROM cards WHERE id = $1 AND ($2::bigint = 0 OR carrier_id = $2) FOR UPDATE`
		card, err := scanCard(tx.QueryRow(ctx, query, id, ownerID))
		if err != nil {
			return err
		}
		if err := fn(card); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE cards SET expires_on = $1, frozen = $2 WHERE id = $3`,
			card.ExpiresOn, card.Frozen, card.ID); err != nil {
			return fmt.Errorf("cards: update: %w", err)
		}
		out = card
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FreezeExpired freezes every unfrozen card whose expiry is before today.
func (r *Repository) FreezeExpired(ctx context.Context, today time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE cards SET frozen = TRUE WHERE NOT frozen AND expires_on < $1`, today)
	if err != nil {
		return 0, fmt.Errorf("cards: freeze expired: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanCard(row pgx.Row) (*Card, error) {
	var (
		c  Card
		ps string
	)
	err := row.Scan(&c.ID, &c.Number, &c.CarrierName, &c.ExpiresOn, &ps, &c.CVVHash, &c.Frozen, &c.CarrierID, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("cards: scan: %w", err)
	}
	c.PaymentSystem = PaymentSystem(ps)
	c.ExpiresOn = Day(c.ExpiresOn)
	return &c, nil
}
