package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	invshared "github.com/ledgerbook/ledgerbook/internal/invoicing/shared"
	"github.com/ledgerbook/ledgerbook/internal/platform/db"
)

// Repository persists products.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	Insert(ctx context.Context, p Product) (Product, error)
	Update(ctx context.Context, p Product) (Product, error)
	Delete(ctx context.Context, id int64) error
	HasInvoiceLines(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the pgx backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productColumns = `id, code, name, description, kind, unit_price, taxable, tax_rate, is_active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Description, &p.Kind, &p.UnitPrice, &p.Taxable, &p.TaxRate,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func mapWriteError(err error) error {
	if _, ok := db.UniqueViolation(err); ok {
		return invshared.ErrDuplicateCode
	}
	return err
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Product, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if s := strings.TrimSpace(filters.Search); s != "" {
		add("(code ILIKE $%[1]d OR name ILIKE $%[1]d)", "%"+s+"%")
	}
	if filters.Kind != "" {
		add("kind = $%d", filters.Kind)
	}
	if filters.Active != nil {
		add("is_active = $%d", *filters.Active)
	}
	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := r.pool.Query(ctx, query+" ORDER BY code", args...)
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
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(db.Querier(ctx, r.pool).QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return Product{}, fmt.Errorf("%w: id %d", invshared.ErrProductNotFound, id)
	}
	return p, err
}

func (r *repository) Insert(ctx context.Context, p Product) (Product, error) {
	out, err := scanProduct(r.pool.QueryRow(ctx, `INSERT INTO products
(code, name, description, kind, unit_price, taxable, tax_rate, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING `+productColumns,
		p.Code, p.Name, p.Description, p.Kind, p.UnitPrice, p.Taxable, p.TaxRate, p.IsActive))
	return out, mapWriteError(err)
}

func (r *repository) Update(ctx context.Context, p Product) (Product, error) {
	out, err := scanProduct(r.pool.QueryRow(ctx, `UPDATE products SET code = $2, name = $3, description = $4, kind = $5,
unit_price = $6, taxable = $7, tax_rate = $8, is_active = $9, updated_at = NOW()
WHERE id = $1 RETURNING `+productColumns,
		p.ID, p.Code, p.Name, p.Description, p.Kind, p.UnitPrice, p.Taxable, p.TaxRate, p.IsActive))
	if db.IsNoRows(err) {
		return Product{}, fmt.Errorf("%w: id %d", invshared.ErrProductNotFound, p.ID)
	}
	return out, mapWriteError(err)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if _, ok := db.ForeignKeyViolation(err); ok {
			return invshared.ErrInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", invshared.ErrProductNotFound, id)
	}
	return nil
}

func (r *repository) HasInvoiceLines(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoice_lines WHERE product_id = $1)`, id).Scan(&exists)
	return exists, err
}
