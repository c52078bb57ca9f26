package accounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/platform/db"
)

// Repository exposes account persistence.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Account, error)
	Get(ctx context.Context, id int64) (Account, error)
	GetManual(ctx context.Context, id int64) (Manual, error)
	ListManuals(ctx context.Context) ([]ManualView, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository contains the statements run inside a transaction.
type TxRepository interface {
	LockCatalog(ctx context.Context) ([]Account, error)
	CodeTaken(ctx context.Context, code string, excludeID int64) (bool, error)
	Insert(ctx context.Context, a Account) (Account, error)
	Update(ctx context.Context, a Account) (Account, error)
	SetLevels(ctx context.Context, levels map[int64]int) error
	SetActive(ctx context.Context, id int64, active bool) error
	Delete(ctx context.Context, id int64) error
	HasOpenPeriodEntries(ctx context.Context, id int64) (bool, error)
	HasReferences(ctx context.Context, id int64) (bool, error)
	UpsertManual(ctx context.Context, m Manual) (Manual, error)
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

const accountColumns = `id, code, name, type, parent_id, level, accepts_postings, is_active, description, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.Level, &a.AcceptsPostings, &a.IsActive, &a.Description, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func collectAccounts(rows pgx.Rows) ([]Account, error) {
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Account, error) {
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
	if filters.Type != "" {
		add("type = $%d", filters.Type)
	}
	if filters.Active != nil {
		add("is_active = $%d", *filters.Active)
	}
	if filters.Postable != nil {
		add("accepts_postings = $%d", *filters.Postable)
	}
	query := `SELECT ` + accountColumns + ` FROM accounts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY code"
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

func (r *repository) Get(ctx context.Context, id int64) (Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return Account{}, fmt.Errorf("%w: id %d", acctshared.ErrAccountNotFound, id)
	}
	return a, err
}

func (r *repository) GetManual(ctx context.Context, id int64) (Manual, error) {
	m := Manual{AccountID: id}
	err := r.pool.QueryRow(ctx, `SELECT description, instructions, examples, classification, updated_at
FROM account_manuals WHERE account_id = $1`, id).Scan(&m.Description, &m.Instructions, &m.Examples, &m.Classification, &m.UpdatedAt)
	if db.IsNoRows(err) {
		return m, nil
	}
	return m, err
}

func (r *repository) ListManuals(ctx context.Context) ([]ManualView, error) {
	rows, err := r.pool.Query(ctx, `SELECT a.id, a.code, a.name, a.type, a.parent_id, a.level, a.accepts_postings, a.is_active, a.description, a.created_at, a.updated_at,
	COALESCE(m.description, ''), COALESCE(m.instructions, ''), COALESCE(m.examples, ''), COALESCE(m.classification, ''), COALESCE(m.updated_at, a.updated_at)
FROM accounts a LEFT JOIN account_manuals m ON m.account_id = a.id
WHERE a.is_active
ORDER BY a.code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ManualView
	for rows.Next() {
		var (
			a Account
			m Manual
		)
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.ParentID, &a.Level, &a.AcceptsPostings, &a.IsActive, &a.Description, &a.CreatedAt, &a.UpdatedAt,
			&m.Description, &m.Instructions, &m.Examples, &m.Classification, &m.UpdatedAt); err != nil {
			return nil, err
		}
		m.AccountID = a.ID
		out = append(out, ManualView{Account: a, Nature: a.Type.NaturalSide(), Manual: m})
	}
	return out, rows.Err()
}

// LockCatalog loads every account with row locks so hierarchy checks see a
// stable tree.
func (t *txRepository) LockCatalog(ctx context.Context) ([]Account, error) {
	rows, err := t.tx.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY code FOR UPDATE`)
	if err != nil {
		return nil, err
	}
	return collectAccounts(rows)
}

func (t *txRepository) CodeTaken(ctx context.Context, code string, excludeID int64) (bool, error) {
	var taken bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE code = $1 AND id <> $2)`, code, excludeID).Scan(&taken)
	return taken, err
}

func (t *txRepository) Insert(ctx context.Context, a Account) (Account, error) {
	out, err := scanAccount(t.tx.QueryRow(ctx, `INSERT INTO accounts (code, name, type, parent_id, level, accepts_postings, is_active, description)
VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7)
RETURNING `+accountColumns, a.Code, a.Name, a.Type, a.ParentID, a.Level, a.AcceptsPostings, a.Description))
	if _, ok := db.UniqueViolation(err); ok {
		return Account{}, fmt.Errorf("%w: %s", acctshared.ErrDuplicateCode, a.Code)
	}
	return out, err
}

func (t *txRepository) Update(ctx context.Context, a Account) (Account, error) {
	out, err := scanAccount(t.tx.QueryRow(ctx, `UPDATE accounts SET code = $2, name = $3, type = $4, parent_id = $5, level = $6,
	accepts_postings = $7, description = $8, updated_at = NOW()
WHERE id = $1
RETURNING `+accountColumns, a.ID, a.Code, a.Name, a.Type, a.ParentID, a.Level, a.AcceptsPostings, a.Description))
	if _, ok := db.UniqueViolation(err); ok {
		return Account{}, fmt.Errorf("%w: %s", acctshared.ErrDuplicateCode, a.Code)
	}
	if db.IsNoRows(err) {
		return Account{}, fmt.Errorf("%w: id %d", acctshared.ErrAccountNotFound, a.ID)
	}
	return out, err
}

func (t *txRepository) SetLevels(ctx context.Context, levels map[int64]int) error {
	batch := &pgx.Batch{}
	for id, level := range levels {
		batch.Queue(`UPDATE accounts SET level = $2, updated_at = NOW() WHERE id = $1`, id, level)
	}
	if batch.Len() == 0 {
		return nil
	}
	return t.tx.SendBatch(ctx, batch).Close()
}

func (t *txRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := t.tx.Exec(ctx, `UPDATE accounts SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", acctshared.ErrAccountNotFound, id)
	}
	return nil
}

func (t *txRepository) Delete(ctx context.Context, id int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if _, ok := db.ForeignKeyViolation(err); ok {
		return fmt.Errorf("%w: id %d", acctshared.ErrAccountInUse, id)
	}
	return err
}

func (t *txRepository) HasOpenPeriodEntries(ctx context.Context, id int64) (bool, error) {
	var used bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (
	SELECT 1 FROM journal_entries e
	JOIN transactions tr ON tr.id = e.transaction_id
	JOIN periods p ON p.id = tr.period_id
	WHERE e.account_id = $1 AND tr.status IN ('DRAFT', 'POSTED') AND p.status = 'OPEN'
)`, id).Scan(&used)
	return used, err
}

func (t *txRepository) HasReferences(ctx context.Context, id int64) (bool, error) {
	var used bool
	err := t.tx.QueryRow(ctx, `SELECT
	EXISTS (SELECT 1 FROM accounts WHERE parent_id = $1)
	OR EXISTS (SELECT 1 FROM journal_entries WHERE account_id = $1)
	OR EXISTS (SELECT 1 FROM opening_balances WHERE account_id = $1)
	OR EXISTS (SELECT 1 FROM account_mappings WHERE account_id = $1)`, id).Scan(&used)
	return used, err
}

func (t *txRepository) UpsertManual(ctx context.Context, m Manual) (Manual, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO account_manuals (account_id, description, instructions, examples, classification)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (account_id) DO UPDATE SET description = EXCLUDED.description, instructions = EXCLUDED.instructions,
	examples = EXCLUDED.examples, classification = EXCLUDED.classification, updated_at = NOW()
RETURNING updated_at`, m.AccountID, m.Description, m.Instructions, m.Examples, m.Classification).Scan(&m.UpdatedAt)
	return m, err
}
