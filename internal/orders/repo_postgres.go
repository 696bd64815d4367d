package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct{ DB *pgxpool.Pool }

func (r *PostgresRepository) Insert(ctx context.Context, o Order) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, status, total_cents, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, 1)`,
		o.ID, o.UserID, string(o.Status), o.TotalCents(), o.CreatedAt, o.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, o.ID)
	}
	if err != nil {
		return err
	}
	if err := insertLines(ctx, tx, o); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertLines(ctx context.Context, tx pgx.Tx, o Order) error {
	for i, l := range o.Lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items(order_id, position, product_id, qty, price_cents)
			VALUES ($1, $2, $3, $4, $5)`,
			o.ID, i, l.ProductID, l.Qty, l.UnitPriceCents); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (Order, error) {
	return r.load(ctx, `SELECT id, user_id, status, created_at, updated_at, version FROM orders WHERE id=$1`, id)
}

func (r *PostgresRepository) LatestForUser(ctx context.Context, userID string) (Order, error) {
	return r.load(ctx, `
		SELECT id, user_id, status, created_at, updated_at, version FROM orders
		WHERE user_id=$1 ORDER BY created_at DESC LIMIT 1`, userID)
}

func (r *PostgresRepository) ListForUser(ctx context.Context, userID string, limit int) ([]Order, error) {
	var lim any // LIMIT NULL is unbounded
	if limit > 0 {
		lim = limit
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id FROM orders WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, lim)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	out := make([]Order, 0, len(ids))
	for _, id := range ids {
		o, err := r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (r *PostgresRepository) load(ctx context.Context, q string, arg string) (Order, error) {
	var (
		o      Order
		status string
	)
	err := r.DB.QueryRow(ctx, q, arg).Scan(&o.ID, &o.UserID, &status, &o.CreatedAt, &o.UpdatedAt, &o.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: %s", ErrNotFound, arg)
	}
	if err != nil {
		return Order{}, err
	}
	o.Status = Status(status)

	rows, err := r.DB.Query(ctx, `
		SELECT product_id, qty, price_cents FROM order_items
		WHERE order_id=$1 ORDER BY position`, o.ID)
	if err != nil {
		return Order{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.Qty, &l.UnitPriceCents); err != nil {
			return Order{}, err
		}
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return Order{}, err
	}

	crow, err := r.DB.Query(ctx, `SELECT changed_at, items FROM order_changes WHERE order_id=$1 ORDER BY id`, o.ID)
	if err != nil {
		return Order{}, err
	}
	defer crow.Close()
	for crow.Next() {
		var (
			c   Change
			raw []byte
		)
		if err := crow.Scan(&c.At, &raw); err != nil {
			return Order{}, err
		}
		if err := json.Unmarshal(raw, &c.Items); err != nil {
			return Order{}, fmt.Errorf("decode change for %s: %w", o.ID, err)
		}
		o.Changes = append(o.Changes, c)
	}
	return o, crow.Err()
}

// Update rewrites lines and appends any new change records when the stored
// version still equals o.Version.
func (r *PostgresRepository) Update(ctx context.Context, o Order) (Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ct, err := tx.Exec(ctx, `
		UPDATE orders SET status=$3, total_cents=$4, updated_at=$5, version=version+1
		WHERE id=$1 AND version=$2`,
		o.ID, o.Version, string(o.Status), o.TotalCents(), o.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	if ct.RowsAffected() != 1 {
		return Order{}, fmt.Errorf("%w: %s", ErrConflict, o.ID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id=$1`, o.ID); err != nil {
		return Order{}, err
	}
	if err := insertLines(ctx, tx, o); err != nil {
		return Order{}, err
	}

	var stored int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM order_changes WHERE order_id=$1`, o.ID).Scan(&stored); err != nil {
		return Order{}, err
	}
	for _, c := range o.Changes[min(stored, len(o.Changes)):] {
		items, err := json.Marshal(c.Items)
		if err != nil {
			return Order{}, err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO order_changes(order_id, changed_at, items) VALUES ($1, $2, $3)`,
			o.ID, c.At, items); err != nil {
			return Order{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, err
	}
	o.Version++
	return o, nil
}

var _ Repository = (*PostgresRepository)(nil)
