package transactions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionColumns = `id, card_id, amount, merchant, status, created_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts t and returns the stored row.
func (r *Repository) Create(ctx context.Context, t Transaction) (*Transaction, error) {
	query := `
		INSERT INTO transactions (card_id, amount, merchant, status)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + transactionColumns
	out, err := scanTransaction(r.pool.QueryRow(ctx, query, t.CardID, t.Amount, t.Merchant, string(t.Status)))
	if err != nil {
		return nil, fmt.Errorf("transactions: create: %w", err)
	}
	return out, nil
}

// ListByCard returns transactions of cardID, newest first.
func (r *Repository) ListByCard(ctx context.Context, cardID int64) ([]Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE card_id = $1 ORDER BY created_at DESC, id DESC`, cardID)
}

// ListAll returns every transaction, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY created_at DESC, id DESC`)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("transactions: list: %w", err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transactions: list: %w", err)
	}
	return out, nil
}

// Delete removes transaction id.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("transactions: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeBefore deletes transactions created before cutoff.
func (r *Repository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("transactions: purge: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanTransaction(row pgx.Row) (*Transaction, error) {
	var (
		t      Transaction
		status string
	)
	if err := row.Scan(&t.ID, &t.CardID, &t.Amount, &t.Merchant, &status, &t.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("transactions: scan: %w", err)
	}
	t.Status = Status(status)
	return &t, nil
}
