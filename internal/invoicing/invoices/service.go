package invoices

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/invoicing/clients"
	"github.com/ledgerbook/ledgerbook/internal/invoicing/products"
	invshared "github.com/ledgerbook/ledgerbook/internal/invoicing/shared"
	"github.com/ledgerbook/ledgerbook/internal/platform/db"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

// Ledger posts the accounting side of invoice events. Implementations must
// be idempotent per invoice.
type Ledger interface {
	ConfirmInvoice(ctx context.Context, inv Invoice) (int64, error)
	RecordPayment(ctx context.Context, inv Invoice, date time.Time, method string) (int64, error)
	AnnulInvoice(ctx context.Context, inv Invoice, reason string) error
}

// ClientGetter resolves invoice clients.
type ClientGetter interface {
	Get(ctx context.Context, id int64) (clients.Client, error)
}

// ProductGetter resolves invoice products.
type ProductGetter interface {
	Get(ctx context.Context, id int64) (products.Product, error)
}

// AuditPort records state changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service runs the invoice lifecycle.
type Service struct {
	repo     Repository
	clients  ClientGetter
	products ProductGetter
	ledger   Ledger
	audit    AuditPort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the invoice service.
func NewService(repo Repository, clients ClientGetter, products ProductGetter, ledger Ledger, audit AuditPort, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, clients: clients, products: products, ledger: ledger, audit: audit, logger: logger, now: time.Now}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Get returns an invoice with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Invoice, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of invoices, newest first.
func (s *Service) List(ctx context.Context, filters ListFilters) (shared.Page[Invoice], error) {
	filters.Page, filters.PerPage = shared.NormalizePage(filters.Page, filters.PerPage)
	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return shared.Page[Invoice]{}, err
	}
	return shared.NewPage(items, filters.Page, filters.PerPage, total), nil
}

// BuildLine derives the amounts of one line from its product.
func BuildLine(p products.Product, in LineInput) (Line, error) {
	verr := &shared.ValidationError{}
	switch {
	case !in.Quantity.IsPositive():
		verr.Add("quantity", "must be positive")
	case !acctshared.HasCents(in.Quantity) || !acctshared.InRange(in.Quantity):
		verr.Add("quantity", "must have at most 2 decimals and fewer than 16 integer digits")
	}
	price := p.UnitPrice
	if in.UnitPrice != nil {
		price = *in.UnitPrice
	}
	if price.IsNegative() || !acctshared.HasCents(price) || !acctshared.InRange(price) {
		verr.Add("unit_price", "must be a non-negative amount with at most 2 decimals")
	}
	switch {
	case in.DiscountPct.IsNegative() || in.DiscountPct.GreaterThan(decimal.NewFromInt(100)):
		verr.Add("discount_pct", "must be between 0 and 100")
	case !acctshared.HasCents(in.DiscountPct):
		verr.Add("discount_pct", "must have at most 2 decimals")
	}
	if err := verr.Err(); err != nil {
		return Line{}, err
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		desc = p.Name
	}
	amounts := invshared.CalculateLineTotals(in.Quantity, price, in.DiscountPct, p.EffectiveTaxRate())
	if !acctshared.InRange(amounts.Total) {
		return Line{}, shared.NewValidationError("quantity", "line total is too large")
	}
	return Line{
		ProductID:   p.ID,
		ProductCode: p.Code,
		Description: desc,
		Quantity:    in.Quantity,
		UnitPrice:   price,
		DiscountPct: in.DiscountPct,
		TaxRate:     p.EffectiveTaxRate(),
		Subtotal:    amounts.Subtotal,
		Discount:    amounts.Discount,
		Tax:         amounts.Tax,
		Total:       amounts.Total,
	}, nil
}

// ApplyTotals sets the invoice totals from its lines.
func ApplyTotals(inv *Invoice) {
	amounts := make([]invshared.LineAmounts, len(inv.Lines))
	for i, l := range inv.Lines {
		amounts[i] = invshared.LineAmounts{Subtotal: l.Subtotal, Discount: l.Discount, Tax: l.Tax, Total: l.Total}
	}
	sum := invshared.Sum(amounts)
	inv.Subtotal, inv.Discount, inv.Tax, inv.Total = sum.Subtotal, sum.Discount, sum.Tax, sum.Total
}

// Create stores a draft invoice. The due date defaults to the issue date
// plus the client's credit days.
func (s *Service) Create(ctx context.Context, in Input) (Invoice, error) {
	issue, err := acctshared.ParseDate(in.IssueDate)
	if err != nil {
		return Invoice{}, shared.NewValidationError("issue_date", "must be a date (YYYY-MM-DD)")
	}
	client, err := s.clients.Get(ctx, in.ClientID)
	if err != nil {
		return Invoice{}, err
	}
	if !client.IsActive {
		return Invoice{}, fmt.Errorf("%w: client %s", invshared.ErrInactive, client.Code)
	}
	due := issue.AddDate(0, 0, client.CreditDays)
	if in.DueDate != "" {
		due, err = acctshared.ParseDate(in.DueDate)
		if err != nil {
			return Invoice{}, shared.NewValidationError("due_date", "must be a date (YYYY-MM-DD)")
		}
		if due.Before(issue) {
			return Invoice{}, shared.NewValidationError("due_date", "must not be before the issue date")
		}
	}
	if len(in.Lines) == 0 {
		return Invoice{}, shared.NewValidationError("lines", "at least one line is required")
	}

	inv := Invoice{
		ClientID:   client.ID,
		ClientCode: client.Code,
		ClientName: client.Name,
		IssueDate:  issue,
		DueDate:    due,
		Status:     StatusDraft,
		Notes:      strings.TrimSpace(in.Notes),
		CreatedBy:  shared.ActorFromContext(ctx).Label(),
	}
	for i, li := range in.Lines {
		p, err := s.products.Get(ctx, li.ProductID)
		if err != nil {
			return Invoice{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		if !p.IsActive {
			return Invoice{}, fmt.Errorf("line %d: %w: product %s", i+1, invshared.ErrInactive, p.Code)
		}
		line, err := BuildLine(p, li)
		if err != nil {
			return Invoice{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		inv.Lines = append(inv.Lines, line)
	}
	ApplyTotals(&inv)
	if !acctshared.InRange(inv.Total) {
		return Invoice{}, shared.NewValidationError("lines", "invoice total is too large")
	}

	if client.CreditLimit.IsPositive() {
		outstanding, err := s.repo.Outstanding(ctx, client.ID)
		if err != nil {
			return Invoice{}, err
		}
		if outstanding.Add(inv.Total).GreaterThan(client.CreditLimit) {
			return Invoice{}, fmt.Errorf("%w: outstanding %s + %s > %s", invshared.ErrCreditLimit,
				outstanding.StringFixed(2), inv.Total.StringFixed(2), client.CreditLimit.StringFixed(2))
		}
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextNumber(ctx)
		if err != nil {
			return err
		}
		inv.Number = number
		lines := inv.Lines
		created, err := tx.Insert(ctx, inv)
		if err != nil {
			return err
		}
		created.Lines = nil
		for _, l := range lines {
			l.InvoiceID = created.ID
			saved, err := tx.InsertLine(ctx, l)
			if err != nil {
				return err
			}
			created.Lines = append(created.Lines, saved)
		}
		inv = created
		s.record(ctx, "invoice.create", inv.ID, map[string]any{"number": inv.Number, "total": inv.Total.StringFixed(2)})
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

// Confirm issues a draft invoice and posts it to the ledger in the same
// database transaction.
func (s *Service) Confirm(ctx context.Context, id int64) (Invoice, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status != StatusDraft {
			return fmt.Errorf("%w: invoice %s is %s", invshared.ErrInvalidStatus, inv.Number, inv.Status)
		}
		txID, err := s.ledger.ConfirmInvoice(ctx, inv)
		if err != nil {
			return err
		}
		if err := tx.MarkIssued(ctx, id, txID, s.now()); err != nil {
			return err
		}
		s.record(ctx, "invoice.confirm", id, map[string]any{"transaction_id": txID})
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	return s.repo.Get(ctx, id)
}

// Pay settles an issued or overdue invoice in full.
func (s *Service) Pay(ctx context.Context, id int64, in PayInput) (Invoice, error) {
	date := acctshared.DateOnly(s.now())
	if in.Date != "" {
		parsed, err := acctshared.ParseDate(in.Date)
		if err != nil {
			return Invoice{}, shared.NewValidationError("date", "must be a date (YYYY-MM-DD)")
		}
		date = parsed
	}
	method := strings.ToUpper(strings.TrimSpace(in.Method))
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !inv.Status.Collectible() {
			return fmt.Errorf("%w: invoice %s is %s", invshared.ErrInvalidStatus, inv.Number, inv.Status)
		}
		if date.Before(inv.IssueDate) {
			return shared.NewValidationError("date", "must not be before the issue date")
		}
		txID, err := s.ledger.RecordPayment(ctx, inv, date, method)
		if err != nil {
			return err
		}
		if err := tx.MarkPaid(ctx, id, txID, method, date); err != nil {
			return err
		}
		s.record(ctx, "invoice.pay", id, map[string]any{"transaction_id": txID, "method": method})
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	return s.repo.Get(ctx, id)
}

// Annul voids an invoice and every ledger transaction linked to it.
func (s *Service) Annul(ctx context.Context, id int64, reason string) (Invoice, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Invoice{}, shared.NewValidationError("reason", "is required")
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inv, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if inv.Status == StatusVoid {
			return fmt.Errorf("%w: invoice %s is already void", invshared.ErrInvalidStatus, inv.Number)
		}
		if inv.Status != StatusDraft {
			if err := s.ledger.AnnulInvoice(ctx, inv, reason); err != nil {
				return err
			}
		}
		if err := tx.MarkVoid(ctx, id, reason, s.now()); err != nil {
			return err
		}
		s.record(ctx, "invoice.annul", id, map[string]any{"reason": reason})
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}
	return s.repo.Get(ctx, id)
}

// MarkOverdue flags issued invoices whose due date passed before asOf.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	n, err := s.repo.MarkOverdue(ctx, acctshared.DateOnly(asOf))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("invoices marked overdue", slog.Int64("count", n), slog.Time("as_of", asOf))
	}
	return n, nil
}

// SalesReport aggregates counted invoices issued between from and to.
// A zero clientID covers every client.
func (s *Service) SalesReport(ctx context.Context, from, to time.Time, clientID int64) (SalesReport, error) {
	if to.Before(from) {
		return SalesReport{}, shared.NewValidationError("to", "must not be before from")
	}
	items, err := s.repo.ListWithLines(ctx, from, to, clientID)
	if err != nil {
		return SalesReport{}, err
	}
	return BuildSalesReport(from, to, items), nil
}

// Receivables ages the collectible invoices as of a date.
func (s *Service) Receivables(ctx context.Context, asOf time.Time) (ReceivablesReport, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	items, err := s.repo.ListCollectible(ctx)
	if err != nil {
		return ReceivablesReport{}, err
	}
	return BuildReceivables(acctshared.DateOnly(asOf), items), nil
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	actor := shared.ActorFromContext(ctx)
	db.AfterCommit(ctx, func() {
		if err := s.audit.Record(context.WithoutCancel(ctx), shared.AuditLog{
			Actor:    actor,
			Action:   action,
			Entity:   "invoice",
			EntityID: strconv.FormatInt(id, 10),
			Meta:     meta,
			At:       s.now(),
		}); err != nil {
			s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
		}
	})
}
