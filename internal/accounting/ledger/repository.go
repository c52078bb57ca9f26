package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/platform/db"
)

// Repository sums posted entries. It never applies accounting rules.
type Repository interface {
	PeriodExists(ctx context.Context, periodID int64) error
	Totals(ctx context.Context, periodID int64) ([]Totals, error)
	AccountTotals(ctx context.Context, accountID, periodID int64) (Totals, error)
	Movements(ctx context.Context, accountID, periodID int64) ([]Movement, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the pgx backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) PeriodExists(ctx context.Context, periodID int64) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM periods WHERE id = $1)`, periodID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: id %d", acctshared.ErrPeriodNotFound, periodID)
	}
	return nil
}

const totalsQuery = `SELECT a.id, a.code, a.name, a.type,
	COALESCE(ob.amount, 0), COALESCE(m.debit, 0), COALESCE(m.credit, 0)
FROM accounts a
LEFT JOIN opening_balances ob ON ob.account_id = a.id AND ob.period_id = $1 AND ob.status = 'ACTIVE'
LEFT JOIN (
	SELECT e.account_id, SUM(e.debit) AS debit, SUM(e.credit) AS credit
	FROM journal_entries e
	JOIN transactions t ON t.id = e.transaction_id
	WHERE t.period_id = $1 AND t.status = 'POSTED'
	GROUP BY e.account_id
) m ON m.account_id = a.id`

func scanTotals(row pgx.Row) (Totals, error) {
	var t Totals
	err := row.Scan(&t.AccountID, &t.Code, &t.Name, &t.Type, &t.Opening, &t.Debit, &t.Credit)
	return t, err
}

func (r *repository) Totals(ctx context.Context, periodID int64) ([]Totals, error) {
	rows, err := r.pool.Query(ctx, totalsQuery+`
WHERE ob.id IS NOT NULL OR m.account_id IS NOT NULL
ORDER BY a.code`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Totals
	for rows.Next() {
		t, err := scanTotals(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *repository) AccountTotals(ctx context.Context, accountID, periodID int64) (Totals, error) {
	t, err := scanTotals(r.pool.QueryRow(ctx, totalsQuery+` WHERE a.id = $2`, periodID, accountID))
	if db.IsNoRows(err) {
		return Totals{}, fmt.Errorf("%w: id %d", acctshared.ErrAccountNotFound, accountID)
	}
	return t, err
}

func (r *repository) Movements(ctx context.Context, accountID, periodID int64) ([]Movement, error) {
	rows, err := r.pool.Query(ctx, `SELECT t.id, e.id, t.date, t.description, t.reference, e.memo, e.debit, e.credit
FROM journal_entries e
JOIN transactions t ON t.id = e.transaction_id
WHERE e.account_id = $1 AND t.period_id = $2 AND t.status = 'POSTED'
ORDER BY t.date, t.id, e.id`, accountID, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.TransactionID, &m.EntryID, &m.Date, &m.Description, &m.Reference, &m.Memo, &m.Debit, &m.Credit); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
