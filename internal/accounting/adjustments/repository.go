package adjustments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/platform/db"
)

// Repository exposes adjustment persistence.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Adjustment, error)
	Get(ctx context.Context, id int64) (Adjustment, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository contains the statements run inside a transaction.
type TxRepository interface {
	NextNumber(ctx context.Context) (string, error)
	Insert(ctx context.Context, a Adjustment) (Adjustment, error)
	GetForUpdate(ctx context.Context, id int64) (Adjustment, error)
	Annul(ctx context.Context, id int64, reason string, at time.Time) error
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

const adjustmentColumns = `id, number, period_id, date, type, reason, status, transaction_id, created_by, annulled_at, annul_reason, created_at`

func scanAdjustment(row pgx.Row) (Adjustment, error) {
	var a Adjustment
	err := row.Scan(&a.ID, &a.Number, &a.PeriodID, &a.Date, &a.Type, &a.Reason, &a.Status, &a.TransactionID, &a.CreatedBy, &a.AnnulledAt, &a.AnnulReason, &a.CreatedAt)
	return a, err
}

func notFound(err error, id int64) error {
	if db.IsNoRows(err) {
		return fmt.Errorf("%w: id %d", acctshared.ErrAdjustmentNotFound, id)
	}
	return err
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Adjustment, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filters.PeriodID != nil {
		add("period_id = $%d", *filters.PeriodID)
	}
	if filters.Type != "" {
		add("type = $%d", filters.Type)
	}
	if filters.Status != "" {
		add("status = $%d", filters.Status)
	}
	query := `SELECT ` + adjustmentColumns + ` FROM adjustments`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, id DESC"
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Adjustment
	for rows.Next() {
		a, err := scanAdjustment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Adjustment, error) {
	a, err := scanAdjustment(r.pool.QueryRow(ctx, `SELECT `+adjustmentColumns+` FROM adjustments WHERE id = $1`, id))
	return a, notFound(err, id)
}

func (t *txRepository) NextNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, `SELECT nextval('adjustment_number_seq')`).Scan(&seq); err != nil {
		return "", err
	}
	return FormatNumber(seq), nil
}

func (t *txRepository) Insert(ctx context.Context, a Adjustment) (Adjustment, error) {
	return scanAdjustment(t.tx.QueryRow(ctx, `INSERT INTO adjustments (number, period_id, date, type, reason, status, transaction_id, created_by)
VALUES ($1, $2, $3, $4, $5, 'ACTIVE', $6, $7) RETURNING `+adjustmentColumns,
		a.Number, a.PeriodID, a.Date, a.Type, a.Reason, a.TransactionID, a.CreatedBy))
}

func (t *txRepository) GetForUpdate(ctx context.Context, id int64) (Adjustment, error) {
	a, err := scanAdjustment(t.tx.QueryRow(ctx, `SELECT `+adjustmentColumns+` FROM adjustments WHERE id = $1 FOR UPDATE`, id))
	return a, notFound(err, id)
}

func (t *txRepository) Annul(ctx context.Context, id int64, reason string, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE adjustments SET status = 'ANNULLED', annul_reason = $2, annulled_at = $3 WHERE id = $1`, id, reason, at)
	return err
}
