package periods

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/platform/db"
)

// Repository exposes period persistence.
type Repository interface {
	List(ctx context.Context) ([]Period, error)
	Get(ctx context.Context, id int64) (Period, error)
	FindOpenPeriodByDate(ctx context.Context, date time.Time) (Period, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository contains the statements run inside a transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Period, error)
	Overlapping(ctx context.Context, start, end time.Time, excludeID int64) (*Period, error)
	Insert(ctx context.Context, p Period) (Period, error)
	Update(ctx context.Context, p Period) (Period, error)
	Close(ctx context.Context, id int64, by string, at time.Time) (Period, error)
	HasTransactions(ctx context.Context, id int64) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the pgx backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

const periodColumns = `id, name, type, start_date, end_date, status, closed_at, closed_by, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	err := row.Scan(&p.ID, &p.Name, &p.Type, &p.StartDate, &p.EndDate, &p.Status, &p.ClosedAt, &p.ClosedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func notFound(err error, id int64) error {
	if db.IsNoRows(err) {
		return fmt.Errorf("%w: id %d", shared.ErrPeriodNotFound, id)
	}
	return err
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *repository) List(ctx context.Context) ([]Period, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+periodColumns+` FROM periods ORDER BY start_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Period, error) {
	p, err := scanPeriod(r.pool.QueryRow(ctx, `SELECT `+periodColumns+` FROM periods WHERE id = $1`, id))
	return p, notFound(err, id)
}

// FindOpenPeriodByDate returns the open period covering the supplied date.
func (r *repository) FindOpenPeriodByDate(ctx context.Context, date time.Time) (Period, error) {
	p, err := scanPeriod(r.pool.QueryRow(ctx, `SELECT `+periodColumns+`
FROM periods WHERE status = 'OPEN' AND $1::date BETWEEN start_date AND end_date ORDER BY start_date LIMIT 1`, date))
	if db.IsNoRows(err) {
		return Period{}, fmt.Errorf("%w: %s", shared.ErrNoOpenPeriod, date.Format(shared.DateLayout))
	}
	return p, err
}

func (t *txRepository) GetForUpdate(ctx context.Context, id int64) (Period, error) {
	p, err := scanPeriod(t.tx.QueryRow(ctx, `SELECT `+periodColumns+` FROM periods WHERE id = $1 FOR UPDATE`, id))
	return p, notFound(err, id)
}

func (t *txRepository) Overlapping(ctx context.Context, start, end time.Time, excludeID int64) (*Period, error) {
	p, err := scanPeriod(t.tx.QueryRow(ctx, `SELECT `+periodColumns+`
FROM periods WHERE id <> $3 AND daterange(start_date, end_date, '[]') && daterange($1::date, $2::date, '[]')
ORDER BY start_date LIMIT 1`, start, end, excludeID))
	if db.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *txRepository) Insert(ctx context.Context, p Period) (Period, error) {
	out, err := scanPeriod(t.tx.QueryRow(ctx, `INSERT INTO periods (name, type, start_date, end_date, status)
VALUES ($1, $2, $3, $4, 'OPEN') RETURNING `+periodColumns, p.Name, p.Type, p.StartDate, p.EndDate))
	if _, ok := db.ExclusionViolation(err); ok {
		return Period{}, fmt.Errorf("%w: %s", shared.ErrPeriodOverlap, p.Name)
	}
	return out, err
}

func (t *txRepository) Update(ctx context.Context, p Period) (Period, error) {
	out, err := scanPeriod(t.tx.QueryRow(ctx, `UPDATE periods SET name = $2, start_date = $3, end_date = $4, updated_at = NOW()
WHERE id = $1 RETURNING `+periodColumns, p.ID, p.Name, p.StartDate, p.EndDate))
	if _, ok := db.ExclusionViolation(err); ok {
		return Period{}, fmt.Errorf("%w: %s", shared.ErrPeriodOverlap, p.Name)
	}
	return out, notFound(err, p.ID)
}

func (t *txRepository) Close(ctx context.Context, id int64, by string, at time.Time) (Period, error) {
	p, err := scanPeriod(t.tx.QueryRow(ctx, `UPDATE periods SET status = 'CLOSED', closed_by = $2, closed_at = $3, updated_at = NOW()
WHERE id = $1 RETURNING `+periodColumns, id, by, at))
	return p, notFound(err, id)
}

func (t *txRepository) HasTransactions(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transactions WHERE period_id = $1)`, id).Scan(&exists)
	return exists, err
}
