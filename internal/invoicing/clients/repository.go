package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	invshared "github.com/ledgerbook/ledgerbook/internal/invoicing/shared"
	"github.com/ledgerbook/ledgerbook/internal/platform/db"
)

// Repository persists clients.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Client, error)
	Get(ctx context.Context, id int64) (Client, error)
	Insert(ctx context.Context, c Client) (Client, error)
	Update(ctx context.Context, c Client) (Client, error)
	Delete(ctx context.Context, id int64) error
	HasInvoices(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the pgx backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const clientColumns = `id, code, name, kind, tax_id, email, phone, address, credit_limit, credit_days, is_active, notes, created_at, updated_at`

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Kind, &c.TaxID, &c.Email, &c.Phone, &c.Address,
		&c.CreditLimit, &c.CreditDays, &c.IsActive, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func mapWriteError(err error) error {
	if _, ok := db.UniqueViolation(err); ok {
		return invshared.ErrDuplicateCode
	}
	return err
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Client, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if s := strings.TrimSpace(filters.Search); s != "" {
		add("(code ILIKE $%[1]d OR name ILIKE $%[1]d OR tax_id ILIKE $%[1]d)", "%"+s+"%")
	}
	if filters.Active != nil {
		add("is_active = $%d", *filters.Active)
	}
	query := `SELECT ` + clientColumns + ` FROM clients`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	rows, err := r.pool.Query(ctx, query+" ORDER BY code", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Client, error) {
	c, err := scanClient(db.Querier(ctx, r.pool).QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return Client{}, fmt.Errorf("%w: id %d", invshared.ErrClientNotFound, id)
	}
	return c, err
}

func (r *repository) Insert(ctx context.Context, c Client) (Client, error) {
	out, err := scanClient(r.pool.QueryRow(ctx, `INSERT INTO clients
(code, name, kind, tax_id, email, phone, address, credit_limit, credit_days, is_active, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING `+clientColumns,
		c.Code, c.Name, c.Kind, c.TaxID, c.Email, c.Phone, c.Address, c.CreditLimit, c.CreditDays, c.IsActive, c.Notes))
	return out, mapWriteError(err)
}

func (r *repository) Update(ctx context.Context, c Client) (Client, error) {
	out, err := scanClient(r.pool.QueryRow(ctx, `UPDATE clients SET code = $2, name = $3, kind = $4, tax_id = $5,
email = $6, phone = $7, address = $8, credit_limit = $9, credit_days = $10, is_active = $11, notes = $12, updated_at = NOW()
WHERE id = $1 RETURNING `+clientColumns,
		c.ID, c.Code, c.Name, c.Kind, c.TaxID, c.Email, c.Phone, c.Address, c.CreditLimit, c.CreditDays, c.IsActive, c.Notes))
	if db.IsNoRows(err) {
		return Client{}, fmt.Errorf("%w: id %d", invshared.ErrClientNotFound, c.ID)
	}
	return out, mapWriteError(err)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		if _, ok := db.ForeignKeyViolation(err); ok {
			return invshared.ErrInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", invshared.ErrClientNotFound, id)
	}
	return nil
}

func (r *repository) HasInvoices(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE client_id = $1)`, id).Scan(&exists)
	return exists, err
}
