package journals

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

// Repository exposes transaction persistence.
type Repository interface {
	Get(ctx context.Context, id int64) (Transaction, error)
	List(ctx context.Context, filters ListFilters) ([]Transaction, int, error)
	Summary(ctx context.Context, periodID *int64) (Summary, error)
	FindBySourceRef(ctx context.Context, ref string) (Transaction, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository contains the statements run inside a transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Transaction, error)
	GetEntryForUpdate(ctx context.Context, entryID int64) (Entry, error)
	EntryOwner(ctx context.Context, entryID int64) (int64, error)
	Touch(ctx context.Context, id int64) error
	Entries(ctx context.Context, txID int64) ([]Entry, error)
	Period(ctx context.Context, id int64) (PeriodRef, error)
	Account(ctx context.Context, id int64) (AccountRef, error)
	Insert(ctx context.Context, t Transaction) (Transaction, error)
	UpdateHeader(ctx context.Context, t Transaction) (Transaction, error)
	InsertEntry(ctx context.Context, e Entry) (Entry, error)
	UpdateEntry(ctx context.Context, e Entry) (Entry, error)
	DeleteEntry(ctx context.Context, entryID int64) error
	MarkPosted(ctx context.Context, id int64, by string, at time.Time) error
	MarkVoid(ctx context.Context, id int64, reason string, at time.Time) error
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

const transactionColumns = `id, period_id, date, description, type, category, currency, reference, notes, kind, source_ref,
	status, created_by, posted_by, posted_at, voided_at, void_reason, created_at, updated_at`

const entryColumns = `e.id, e.transaction_id, e.account_id, a.code, a.name, e.debit, e.credit, e.memo, e.created_at, e.updated_at`

func scanTransaction(row pgx.Row) (Transaction, error) {
	var t Transaction
	err := row.Scan(&t.ID, &t.PeriodID, &t.Date, &t.Description, &t.Type, &t.Category, &t.Currency, &t.Reference, &t.Notes,
		&t.Kind, &t.SourceRef, &t.Status, &t.CreatedBy, &t.PostedBy, &t.PostedAt, &t.VoidedAt, &t.VoidReason, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.TransactionID, &e.AccountID, &e.AccountCode, &e.AccountName, &e.Debit, &e.Credit, &e.Memo, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadEntries(ctx context.Context, q querier, txID int64) ([]Entry, error) {
	rows, err := q.Query(ctx, `SELECT `+entryColumns+`
FROM journal_entries e JOIN accounts a ON a.id = e.account_id
WHERE e.transaction_id = $1 ORDER BY e.id`, txID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func txNotFound(err error, id int64) error {
	if db.IsNoRows(err) {
		return fmt.Errorf("%w: id %d", acctshared.ErrTransactionNotFound, id)
	}
	return err
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *repository) Get(ctx context.Context, id int64) (Transaction, error) {
	t, err := scanTransaction(r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		return Transaction{}, txNotFound(err, id)
	}
	t.Entries, err = loadEntries(ctx, r.pool, id)
	return t, err
}

func (r *repository) FindBySourceRef(ctx context.Context, ref string) (Transaction, error) {
	t, err := scanTransaction(r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE source_ref = $1`, ref))
	if db.IsNoRows(err) {
		return Transaction{}, fmt.Errorf("%w: source %s", acctshared.ErrTransactionNotFound, ref)
	}
	return t, err
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Transaction, int, error) {
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
	if filters.Status != "" {
		add("status = $%d", filters.Status)
	}
	if filters.Kind != "" {
		add("kind = $%d", filters.Kind)
	}
	if filters.From != nil {
		add("date >= $%d", *filters.From)
	}
	if filters.To != nil {
		add("date <= $%d", *filters.To)
	}
	if s := strings.TrimSpace(filters.Search); s != "" {
		add("(description ILIKE $%[1]d OR reference ILIKE $%[1]d OR category ILIKE $%[1]d)", "%"+s+"%")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filters.PerPage
	offset := (filters.Page - 1) * filters.PerPage
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s FROM transactions%s ORDER BY date DESC, id DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, clause, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

func (r *repository) Summary(ctx context.Context, periodID *int64) (Summary, error) {
	var s Summary
	err := r.pool.QueryRow(ctx, `SELECT
	COUNT(*) FILTER (WHERE status = 'DRAFT'),
	COUNT(*) FILTER (WHERE status = 'POSTED'),
	COUNT(*) FILTER (WHERE status = 'VOID')
FROM transactions WHERE $1::bigint IS NULL OR period_id = $1`, periodID).Scan(&s.Drafts, &s.Posted, &s.Voided)
	return s, err
}

func (t *txRepository) GetForUpdate(ctx context.Context, id int64) (Transaction, error) {
	out, err := scanTransaction(t.tx.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id))
	return out, txNotFound(err, id)
}

func (t *txRepository) GetEntryForUpdate(ctx context.Context, entryID int64) (Entry, error) {
	e, err := scanEntry(t.tx.QueryRow(ctx, `SELECT `+entryColumns+`
FROM journal_entries e JOIN accounts a ON a.id = e.account_id
WHERE e.id = $1 FOR UPDATE OF e`, entryID))
	if db.IsNoRows(err) {
		return Entry{}, fmt.Errorf("%w: id %d", acctshared.ErrEntryNotFound, entryID)
	}
	return e, err
}

func (t *txRepository) EntryOwner(ctx context.Context, entryID int64) (int64, error) {
	var txID int64
	err := t.tx.QueryRow(ctx, `SELECT transaction_id FROM journal_entries WHERE id = $1`, entryID).Scan(&txID)
	if db.IsNoRows(err) {
		return 0, fmt.Errorf("%w: id %d", acctshared.ErrEntryNotFound, entryID)
	}
	return txID, err
}

// Touch writes the header row so a concurrent poster holding an older
// snapshot fails with a serialization error instead of posting stale lines.
func (t *txRepository) Touch(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE transactions SET updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", acctshared.ErrTransactionNotFound, id)
	}
	return nil
}

func (t *txRepository) Entries(ctx context.Context, txID int64) ([]Entry, error) {
	return loadEntries(ctx, t.tx, txID)
}

func (t *txRepository) Period(ctx context.Context, id int64) (PeriodRef, error) {
	var p PeriodRef
	err := t.tx.QueryRow(ctx, `SELECT id, name, start_date, end_date, status = 'OPEN' FROM periods WHERE id = $1 FOR SHARE`, id).
		Scan(&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Open)
	if db.IsNoRows(err) {
		return PeriodRef{}, fmt.Errorf("%w: id %d", acctshared.ErrPeriodNotFound, id)
	}
	return p, err
}

func (t *txRepository) Account(ctx context.Context, id int64) (AccountRef, error) {
	var a AccountRef
	err := t.tx.QueryRow(ctx, `SELECT id, code, name, accepts_postings, is_active FROM accounts WHERE id = $1`, id).
		Scan(&a.ID, &a.Code, &a.Name, &a.AcceptsPostings, &a.IsActive)
	if db.IsNoRows(err) {
		return AccountRef{}, fmt.Errorf("%w: account %d does not exist", acctshared.ErrInvalidAccount, id)
	}
	return a, err
}

func (t *txRepository) Insert(ctx context.Context, in Transaction) (Transaction, error) {
	out, err := scanTransaction(t.tx.QueryRow(ctx, `INSERT INTO transactions
	(period_id, date, description, type, category, currency, reference, notes, kind, source_ref, status, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'DRAFT', $11)
RETURNING `+transactionColumns,
		in.PeriodID, in.Date, in.Description, in.Type, in.Category, in.Currency, in.Reference, in.Notes, in.Kind, in.SourceRef, in.CreatedBy))
	if name, ok := db.UniqueViolation(err); ok && name == "uq_transactions_source_ref" {
		ref := ""
		if in.SourceRef != nil {
			ref = *in.SourceRef
		}
		return Transaction{}, fmt.Errorf("%w: %s", acctshared.ErrSourceAlreadyLinked, ref)
	}
	return out, err
}

func (t *txRepository) UpdateHeader(ctx context.Context, in Transaction) (Transaction, error) {
	out, err := scanTransaction(t.tx.QueryRow(ctx, `UPDATE transactions SET date = $2, description = $3, type = $4, category = $5,
	currency = $6, reference = $7, notes = $8, updated_at = NOW()
WHERE id = $1 RETURNING `+transactionColumns,
		in.ID, in.Date, in.Description, in.Type, in.Category, in.Currency, in.Reference, in.Notes))
	return out, txNotFound(err, in.ID)
}

func (t *txRepository) InsertEntry(ctx context.Context, e Entry) (Entry, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO journal_entries (transaction_id, account_id, debit, credit, memo)
VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`,
		e.TransactionID, e.AccountID, e.Debit, e.Credit, e.Memo).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if _, ok := db.CheckViolation(err); ok {
		return Entry{}, acctshared.ErrInvalidEntrySide
	}
	return e, err
}

func (t *txRepository) UpdateEntry(ctx context.Context, e Entry) (Entry, error) {
	err := t.tx.QueryRow(ctx, `UPDATE journal_entries SET account_id = $2, debit = $3, credit = $4, memo = $5, updated_at = NOW()
WHERE id = $1 RETURNING created_at, updated_at`, e.ID, e.AccountID, e.Debit, e.Credit, e.Memo).Scan(&e.CreatedAt, &e.UpdatedAt)
	if _, ok := db.CheckViolation(err); ok {
		return Entry{}, acctshared.ErrInvalidEntrySide
	}
	if db.IsNoRows(err) {
		return Entry{}, fmt.Errorf("%w: id %d", acctshared.ErrEntryNotFound, e.ID)
	}
	return e, err
}

func (t *txRepository) DeleteEntry(ctx context.Context, entryID int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM journal_entries WHERE id = $1`, entryID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", acctshared.ErrEntryNotFound, entryID)
	}
	return nil
}

func (t *txRepository) MarkPosted(ctx context.Context, id int64, by string, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE transactions SET status = 'POSTED', posted_by = $2, posted_at = $3, updated_at = NOW() WHERE id = $1`, id, by, at)
	return err
}

func (t *txRepository) MarkVoid(ctx context.Context, id int64, reason string, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE transactions SET status = 'VOID', void_reason = $2, voided_at = $3, updated_at = NOW() WHERE id = $1`, id, reason, at)
	return err
}
