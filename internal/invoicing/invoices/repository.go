package invoices

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	invshared "github.com/ledgerbook/ledgerbook/internal/invoicing/shared"
	"github.com/ledgerbook/ledgerbook/internal/platform/db"
)

// Repository reads invoices and opens write transactions.
type Repository interface {
	Get(ctx context.Context, id int64) (Invoice, error)
	List(ctx context.Context, filters ListFilters) ([]Invoice, int, error)
	ListWithLines(ctx context.Context, from, to time.Time, clientID int64) ([]Invoice, error)
	ListCollectible(ctx context.Context) ([]Invoice, error)
	Outstanding(ctx context.Context, clientID int64) (decimal.Decimal, error)
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository contains the statements run inside a transaction.
type TxRepository interface {
	NextNumber(ctx context.Context) (string, error)
	Insert(ctx context.Context, inv Invoice) (Invoice, error)
	InsertLine(ctx context.Context, line Line) (Line, error)
	GetForUpdate(ctx context.Context, id int64) (Invoice, error)
	MarkIssued(ctx context.Context, id, transactionID int64, at time.Time) error
	MarkPaid(ctx context.Context, id, transactionID int64, method string, at time.Time) error
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

const invoiceColumns = `i.id, i.number, i.client_id, c.code, c.name, i.issue_date, i.due_date, i.status,
i.subtotal, i.discount, i.tax, i.total, i.notes, i.payment_method, i.transaction_id, i.payment_transaction_id,
i.created_by, i.issued_at, i.paid_at, i.voided_at, i.void_reason, i.created_at, i.updated_at`

const invoiceFrom = ` FROM invoices i JOIN clients c ON c.id = i.client_id`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.ClientID, &inv.ClientCode, &inv.ClientName, &inv.IssueDate, &inv.DueDate,
		&inv.Status, &inv.Subtotal, &inv.Discount, &inv.Tax, &inv.Total, &inv.Notes, &inv.PaymentMethod,
		&inv.TransactionID, &inv.PaymentTransactionID, &inv.CreatedBy, &inv.IssuedAt, &inv.PaidAt, &inv.VoidedAt,
		&inv.VoidReason, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

func collectInvoices(rows pgx.Rows) ([]Invoice, error) {
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

const lineColumns = `l.id, l.invoice_id, l.product_id, p.code, l.description, l.quantity, l.unit_price,
l.discount_pct, l.tax_rate, l.subtotal, l.discount, l.tax, l.total`

func scanLine(row pgx.Row) (Line, error) {
	var l Line
	err := row.Scan(&l.ID, &l.InvoiceID, &l.ProductID, &l.ProductCode, &l.Description, &l.Quantity, &l.UnitPrice,
		&l.DiscountPct, &l.TaxRate, &l.Subtotal, &l.Discount, &l.Tax, &l.Total)
	return l, err
}

func loadLines(ctx context.Context, q db.Queryer, ids []int64) (map[int64][]Line, error) {
	out := make(map[int64][]Line, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := q.Query(ctx, `SELECT `+lineColumns+` FROM invoice_lines l JOIN products p ON p.id = l.product_id
WHERE l.invoice_id = ANY($1) ORDER BY l.invoice_id, l.id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		out[l.InvoiceID] = append(out[l.InvoiceID], l)
	}
	return out, rows.Err()
}

func attachLines(ctx context.Context, q db.Queryer, invoices []Invoice) ([]Invoice, error) {
	ids := make([]int64, len(invoices))
	for i, inv := range invoices {
		ids[i] = inv.ID
	}
	lines, err := loadLines(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for i := range invoices {
		invoices[i].Lines = lines[invoices[i].ID]
	}
	return invoices, nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *repository) Get(ctx context.Context, id int64) (Invoice, error) {
	q := db.Querier(ctx, r.pool)
	inv, err := scanInvoice(q.QueryRow(ctx, `SELECT `+invoiceColumns+invoiceFrom+` WHERE i.id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Invoice{}, fmt.Errorf("%w: id %d", invshared.ErrInvoiceNotFound, id)
		}
		return Invoice{}, err
	}
	withLines, err := attachLines(ctx, q, []Invoice{inv})
	if err != nil {
		return Invoice{}, err
	}
	return withLines[0], nil
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Invoice, int, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filters.Status != "" {
		add("i.status = $%d", filters.Status)
	}
	if filters.ClientID > 0 {
		add("i.client_id = $%d", filters.ClientID)
	}
	if filters.From != nil {
		add("i.issue_date >= $%d", *filters.From)
	}
	if filters.To != nil {
		add("i.issue_date <= $%d", *filters.To)
	}
	if s := strings.TrimSpace(filters.Search); s != "" {
		add("(i.number ILIKE $%[1]d OR c.name ILIKE $%[1]d OR c.code ILIKE $%[1]d)", "%"+s+"%")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+invoiceFrom+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	offset := (filters.Page - 1) * filters.PerPage
	if offset < 0 {
		offset = 0
	}
	args = append(args, filters.PerPage, offset)
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+invoiceFrom+clause+
		fmt.Sprintf(" ORDER BY i.issue_date DESC, i.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectInvoices(rows)
	return items, total, err
}

func (r *repository) ListWithLines(ctx context.Context, from, to time.Time, clientID int64) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+invoiceFrom+`
WHERE i.status IN ('ISSUED','PAID','OVERDUE') AND i.issue_date BETWEEN $1 AND $2 AND ($3 = 0 OR i.client_id = $3)
ORDER BY i.issue_date, i.id`, from, to, clientID)
	if err != nil {
		return nil, err
	}
	items, err := collectInvoices(rows)
	if err != nil {
		return nil, err
	}
	return attachLines(ctx, r.pool, items)
}

func (r *repository) ListCollectible(ctx context.Context) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+invoiceFrom+`
WHERE i.status IN ('ISSUED','OVERDUE') ORDER BY i.due_date, i.id`)
	if err != nil {
		return nil, err
	}
	return collectInvoices(rows)
}

func (r *repository) Outstanding(ctx context.Context, clientID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(total), 0) FROM invoices
WHERE client_id = $1 AND status IN ('ISSUED','OVERDUE')`, clientID).Scan(&total)
	return total, err
}

func (r *repository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE invoices SET status = 'OVERDUE', updated_at = NOW()
WHERE status = 'ISSUED' AND due_date < $1`, asOf)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *txRepository) NextNumber(ctx context.Context) (string, error) {
	var n int64
	if err := t.tx.QueryRow(ctx, `SELECT nextval('invoice_number_seq')`).Scan(&n); err != nil {
		return "", err
	}
	return FormatNumber(n), nil
}

func (t *txRepository) Insert(ctx context.Context, inv Invoice) (Invoice, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO invoices
(number, client_id, issue_date, due_date, status, subtotal, discount, tax, total, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id, created_at, updated_at`,
		inv.Number, inv.ClientID, inv.IssueDate, inv.DueDate, inv.Status, inv.Subtotal, inv.Discount, inv.Tax,
		inv.Total, inv.Notes, inv.CreatedBy).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

func (t *txRepository) InsertLine(ctx context.Context, l Line) (Line, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO invoice_lines
(invoice_id, product_id, description, quantity, unit_price, discount_pct, tax_rate, subtotal, discount, tax, total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		l.InvoiceID, l.ProductID, l.Description, l.Quantity, l.UnitPrice, l.DiscountPct, l.TaxRate,
		l.Subtotal, l.Discount, l.Tax, l.Total).Scan(&l.ID)
	return l, err
}

func (t *txRepository) GetForUpdate(ctx context.Context, id int64) (Invoice, error) {
	inv, err := scanInvoice(t.tx.QueryRow(ctx, `SELECT `+invoiceColumns+invoiceFrom+` WHERE i.id = $1 FOR UPDATE OF i`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return Invoice{}, fmt.Errorf("%w: id %d", invshared.ErrInvoiceNotFound, id)
		}
		return Invoice{}, err
	}
	withLines, err := attachLines(ctx, t.tx, []Invoice{inv})
	if err != nil {
		return Invoice{}, err
	}
	return withLines[0], nil
}

func (t *txRepository) MarkIssued(ctx context.Context, id, transactionID int64, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE invoices SET status = 'ISSUED', transaction_id = $2, issued_at = $3, updated_at = NOW()
WHERE id = $1`, id, transactionID, at)
	return err
}

func (t *txRepository) MarkPaid(ctx context.Context, id, transactionID int64, method string, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE invoices SET status = 'PAID', payment_transaction_id = $2, payment_method = $3,
paid_at = $4, updated_at = NOW() WHERE id = $1`, id, transactionID, method, at)
	return err
}

func (t *txRepository) MarkVoid(ctx context.Context, id int64, reason string, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE invoices SET status = 'VOID', void_reason = $2, voided_at = $3, updated_at = NOW()
WHERE id = $1`, id, reason, at)
	return err
}
