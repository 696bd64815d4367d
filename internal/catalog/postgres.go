package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-chat-orders/internal/lexicon"
)

// PostgresStore keeps products in the products table. Stock changes run in a
// transaction that locks the touched rows FOR UPDATE in id order.
type PostgresStore struct{ DB *pgxpool.Pool }

const productColumns = `id, name, type, color, size, category, description, price_tiers, stock, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var (
		p     Product
		tiers []byte
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Type, &p.Color, &p.Size, &p.Category, &p.Description,
		&tiers, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Product{}, err
	}
	if err := json.Unmarshal(tiers, &p.Tiers); err != nil {
		return Product{}, fmt.Errorf("decode price tiers for %s: %w", p.ID, err)
	}
	return p, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(s.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return p, err
}

// Query narrows by the stored color/size keys in SQL and applies the type
// match in Go, where the word-boundary rule lives.
func (s *PostgresStore) Query(ctx context.Context, f Filter) ([]Product, error) {
	var (
		where []string
		args  []any
	)
	if f.Color != "" {
		args = append(args, lexicon.ColorKey(f.Color))
		where = append(where, fmt.Sprintf("color_key=$%d", len(args)))
	}
	if f.Size != "" {
		args = append(args, lexicon.SizeKey(f.Size))
		where = append(where, fmt.Sprintf("size_key=$%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, containsPattern(lexicon.TypeKey(f.Type)))
		where = append(where, fmt.Sprintf(`type_key LIKE $%d ESCAPE '\'`, len(args)))
	}
	q := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	return s.list(ctx, q, args, f.Matches)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching s literally anywhere.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func (s *PostgresStore) LowStock(ctx context.Context, threshold int) ([]Product, error) {
	q := `SELECT ` + productColumns + ` FROM products WHERE stock > 0 AND stock <= $1`
	return s.list(ctx, q, []any{threshold}, nil)
}

func (s *PostgresStore) list(ctx context.Context, q string, args []any, keep func(Product) bool) ([]Product, error) {
	rows, err := s.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		if keep == nil || keep(p) {
			out = append(out, p)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortProducts(out)
	return out, nil
}

func (s *PostgresStore) AdjustStock(ctx context.Context, productID string, delta int) (int, error) {
	if delta == 0 {
		p, err := s.Get(ctx, productID)
		return p.Stock, err
	}
	levels, err := s.Apply(ctx, []Adjustment{{ProductID: productID, Delta: delta}})
	if err != nil {
		return 0, err
	}
	return levels[productID], nil
}

// Apply locks every touched row, checks all of them, then updates. Any shortfall
// rolls the whole transaction back.
func (s *PostgresStore) Apply(ctx context.Context, adjs []Adjustment) (map[string]int, error) {
	adjs = normalize(adjs)
	if len(adjs) == 0 {
		return map[string]int{}, nil
	}
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	current := make([]int, len(adjs))
	for i, a := range adjs {
		err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1 FOR UPDATE`, a.ProductID).Scan(&current[i])
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, a.ProductID)
		}
		if err != nil {
			return nil, err
		}
	}
	for i, a := range adjs {
		if current[i]+a.Delta < 0 {
			return nil, &InsufficientStockError{ProductID: a.ProductID, Requested: -a.Delta, Available: current[i]}
		}
	}

	levels := make(map[string]int, len(adjs))
	for _, a := range adjs {
		var stock int
		if err := tx.QueryRow(ctx, `
			UPDATE products SET stock = stock + $2, updated_at = now()
			WHERE id=$1 RETURNING stock`, a.ProductID, a.Delta).Scan(&stock); err != nil {
			return nil, err
		}
		levels[a.ProductID] = stock
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return levels, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, p Product) error {
	if err := prepare(&p); err != nil {
		return err
	}
	tiers, err := json.Marshal(p.Tiers)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
		INSERT INTO products(id, name, type, type_key, color, color_key, size, size_key,
			category, description, price_tiers, stock)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (id) DO UPDATE SET
			name=EXCLUDED.name, type=EXCLUDED.type, type_key=EXCLUDED.type_key,
			color=EXCLUDED.color, color_key=EXCLUDED.color_key,
			size=EXCLUDED.size, size_key=EXCLUDED.size_key,
			category=EXCLUDED.category, description=EXCLUDED.description,
			price_tiers=EXCLUDED.price_tiers, stock=EXCLUDED.stock, updated_at=now()`,
		p.ID, p.Name, p.Type, lexicon.TypeKey(p.Type), p.Color, lexicon.ColorKey(p.Color),
		p.Size, lexicon.SizeKey(p.Size), p.Category, p.Description, tiers, p.Stock)
	return err
}

var _ Store = (*PostgresStore)(nil)
