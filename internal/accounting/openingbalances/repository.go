package openingbalances

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/platform/db"
)

// Repository exposes opening balance persistence.
type Repository interface {
	List(ctx context.Context, periodID int64) ([]OpeningBalance, error)
	Get(ctx context.Context, id int64) (OpeningBalance, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository contains the statements run inside a transaction.
type TxRepository interface {
	Period(ctx context.Context, id int64) (PeriodRef, error)
	Account(ctx context.Context, id int64) (AccountRef, error)
	GetForUpdate(ctx context.Context, id int64) (OpeningBalance, error)
	Insert(ctx context.Context, o OpeningBalance) (OpeningBalance, error)
	Update(ctx context.Context, o OpeningBalance) (OpeningBalance, error)
	Annul(ctx context.Context, id int64) error
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

const selectOpening = `SELECT o.id, o.period_id, o.account_id, a.code, a.name, a.type, o.amount, o.status, o.notes, o.created_by, o.created_at, o.updated_at
FROM opening_balances o JOIN accounts a ON a.id = o.account_id`

func scanOpening(row pgx.Row) (OpeningBalance, error) {
	var o OpeningBalance
	err := row.Scan(&o.ID, &o.PeriodID, &o.AccountID, &o.AccountCode, &o.AccountName, &o.AccountType, &o.Amount, &o.Status, &o.Notes, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

func notFound(err error, id int64) error {
	if db.IsNoRows(err) {
		return fmt.Errorf("%w: id %d", acctshared.ErrOpeningBalanceNotFound, id)
	}
	return err
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *repository) List(ctx context.Context, periodID int64) ([]OpeningBalance, error) {
	rows, err := r.pool.Query(ctx, selectOpening+` WHERE o.period_id = $1 ORDER BY a.code, o.id`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []OpeningBalance
	for rows.Next() {
		o, err := scanOpening(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (OpeningBalance, error) {
	o, err := scanOpening(r.pool.QueryRow(ctx, selectOpening+` WHERE o.id = $1`, id))
	return o, notFound(err, id)
}

func (t *txRepository) Period(ctx context.Context, id int64) (PeriodRef, error) {
	var p PeriodRef
	err := t.tx.QueryRow(ctx, `SELECT id, name, status = 'OPEN' FROM periods WHERE id = $1 FOR SHARE`, id).Scan(&p.ID, &p.Name, &p.Open)
	if db.IsNoRows(err) {
		return PeriodRef{}, fmt.Errorf("%w: id %d", acctshared.ErrPeriodNotFound, id)
	}
	return p, err
}

func (t *txRepository) Account(ctx context.Context, id int64) (AccountRef, error) {
	var a AccountRef
	err := t.tx.QueryRow(ctx, `SELECT id, code, name, type, accepts_postings, is_active FROM accounts WHERE id = $1`, id).
		Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.AcceptsPostings, &a.IsActive)
	if db.IsNoRows(err) {
		return AccountRef{}, fmt.Errorf("%w: account %d does not exist", acctshared.ErrInvalidAccount, id)
	}
	return a, err
}

func (t *txRepository) GetForUpdate(ctx context.Context, id int64) (OpeningBalance, error) {
	o, err := scanOpening(t.tx.QueryRow(ctx, selectOpening+` WHERE o.id = $1 FOR UPDATE OF o`, id))
	return o, notFound(err, id)
}

func (t *txRepository) Insert(ctx context.Context, o OpeningBalance) (OpeningBalance, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO opening_balances (period_id, account_id, amount, status, notes, created_by)
VALUES ($1, $2, $3, 'ACTIVE', $4, $5) RETURNING id, status, created_at, updated_at`,
		o.PeriodID, o.AccountID, o.Amount, o.Notes, o.CreatedBy).Scan(&o.ID, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if _, ok := db.UniqueViolation(err); ok {
		return OpeningBalance{}, fmt.Errorf("%w: %s", acctshared.ErrDuplicateOpeningBalance, o.AccountCode)
	}
	return o, err
}

func (t *txRepository) Update(ctx context.Context, o OpeningBalance) (OpeningBalance, error) {
	err := t.tx.QueryRow(ctx, `UPDATE opening_balances SET amount = $2, notes = $3, updated_at = NOW()
WHERE id = $1 RETURNING updated_at`, o.ID, o.Amount, o.Notes).Scan(&o.UpdatedAt)
	return o, notFound(err, o.ID)
}

func (t *txRepository) Annul(ctx context.Context, id int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE opening_balances SET status = 'ANNULLED', updated_at = NOW() WHERE id = $1`, id)
	return err
}
