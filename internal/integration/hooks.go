package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ledgerbook/ledgerbook/internal/accounting/journals"
	"github.com/ledgerbook/ledgerbook/internal/accounting/mappings"
	"github.com/ledgerbook/ledgerbook/internal/accounting/periods"
	"github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/invoicing/invoices"
	appshared "github.com/ledgerbook/ledgerbook/internal/shared"
)

// Ledger exposes journal posting operations required by integrations.
type Ledger interface {
	PostBalanced(ctx context.Context, input journals.PostingInput) (journals.Transaction, error)
	FindBySourceRef(ctx context.Context, ref string) (journals.Transaction, error)
	Get(ctx context.Context, id int64) (journals.Transaction, error)
	VoidGenerated(ctx context.Context, id int64, reason string) (journals.Transaction, error)
}

// PeriodRepository provides period lookups.
type PeriodRepository interface {
	FindOpenPeriodByDate(ctx context.Context, date time.Time) (periods.Period, error)
}

// AccountMappingRepository provides mapping lookups.
type AccountMappingRepository interface {
	Get(ctx context.Context, module, key string) (mappings.AccountMapping, error)
}

// Hooks turns invoice lifecycle events into ledger transactions.
type Hooks struct {
	ledger      Ledger
	periodRepo  PeriodRepository
	mappingRepo AccountMappingRepository
	logger      *slog.Logger
}

// NewHooks constructs integration hooks.
func NewHooks(ledger Ledger, periodRepo PeriodRepository, mappingRepo AccountMappingRepository, logger *slog.Logger) *Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hooks{ledger: ledger, periodRepo: periodRepo, mappingRepo: mappingRepo, logger: logger}
}

func (h *Hooks) resolveAccount(ctx context.Context, key string) (int64, error) {
	mapping, err := h.mappingRepo.Get(ctx, mappings.ModuleInvoicing, key)
	if err != nil {
		return 0, err
	}
	return mapping.AccountID, nil
}

// post submits input and treats an already linked source as success,
// returning the transaction that holds the source.
func (h *Hooks) post(ctx context.Context, input journals.PostingInput) (int64, error) {
	if input.SourceRef == "" {
		return 0, errors.New("integration: source ref required")
	}
	t, err := h.ledger.PostBalanced(ctx, input)
	if err == nil {
		return t.ID, nil
	}
	if !errors.Is(err, shared.ErrSourceAlreadyLinked) {
		return 0, err
	}
	existing, err := h.ledger.FindBySourceRef(ctx, input.SourceRef)
	if err != nil {
		return 0, err
	}
	h.logger.Info("source already posted", slog.String("source_ref", input.SourceRef), slog.Int64("transaction_id", existing.ID))
	return existing.ID, nil
}

// BuildSaleLines derives the sale posting: receivable for the total against
// sales for the net amount and tax payable for the tax. The tax line is
// omitted when there is no tax.
func BuildSaleLines(inv invoices.Invoice, receivable, sales, taxPayable int64) []journals.EntryInput {
	lines := []journals.EntryInput{
		{AccountID: receivable, Debit: inv.Total, Memo: "Invoice " + inv.Number},
		{AccountID: sales, Credit: inv.Net(), Memo: "Sales " + inv.Number},
	}
	if inv.Tax.IsPositive() {
		lines = append(lines, journals.EntryInput{AccountID: taxPayable, Credit: inv.Tax, Memo: "Tax " + inv.Number})
	}
	return lines
}

// ConfirmInvoice posts the sale of an issued invoice.
func (h *Hooks) ConfirmInvoice(ctx context.Context, inv invoices.Invoice) (int64, error) {
	if !inv.Total.IsPositive() {
		return 0, appshared.NewValidationError("total", "invoice total must be positive to post")
	}
	period, err := h.periodRepo.FindOpenPeriodByDate(ctx, inv.IssueDate)
	if err != nil {
		return 0, err
	}
	receivable, err := h.resolveAccount(ctx, mappings.KeyReceivable)
	if err != nil {
		return 0, err
	}
	sales, err := h.resolveAccount(ctx, mappings.KeySales)
	if err != nil {
		return 0, err
	}
	taxPayable, err := h.resolveAccount(ctx, mappings.KeyTaxPayable)
	if err != nil {
		return 0, err
	}
	ref := InvoiceSourceRef(inv.ID)
	return h.post(ctx, journals.PostingInput{
		PeriodID:    period.ID,
		Date:        inv.IssueDate,
		Description: fmt.Sprintf("Invoice %s - %s", inv.Number, inv.ClientName),
		Type:        journals.TypeIncome,
		Category:    "Sales",
		Reference:   inv.Number,
		Notes:       "source " + SourceID(ref).String(),
		Kind:        journals.KindInvoice,
		SourceRef:   ref,
		Lines:       BuildSaleLines(inv, receivable, sales, taxPayable),
	})
}

// RecordPayment posts the cash receipt settling an invoice.
func (h *Hooks) RecordPayment(ctx context.Context, inv invoices.Invoice, date time.Time, method string) (int64, error) {
	period, err := h.periodRepo.FindOpenPeriodByDate(ctx, date)
	if err != nil {
		return 0, err
	}
	cash, err := h.resolveAccount(ctx, mappings.KeyCash)
	if err != nil {
		return 0, err
	}
	receivable, err := h.resolveAccount(ctx, mappings.KeyReceivable)
	if err != nil {
		return 0, err
	}
	ref := PaymentSourceRef(inv.ID)
	return h.post(ctx, journals.PostingInput{
		PeriodID:    period.ID,
		Date:        date,
		Description: fmt.Sprintf("Payment of invoice %s (%s)", inv.Number, method),
		Type:        journals.TypeIncome,
		Category:    "Collections",
		Reference:   inv.Number,
		Notes:       "source " + SourceID(ref).String(),
		Kind:        journals.KindPayment,
		SourceRef:   ref,
		Lines: []journals.EntryInput{
			{AccountID: cash, Debit: inv.Total, Memo: "Collection " + inv.Number},
			{AccountID: receivable, Credit: inv.Total, Memo: "Invoice " + inv.Number},
		},
	})
}

// AnnulInvoice voids every transaction linked to the invoice. Transactions
// already void are skipped.
func (h *Hooks) AnnulInvoice(ctx context.Context, inv invoices.Invoice, reason string) error {
	for _, id := range []*int64{inv.PaymentTransactionID, inv.TransactionID} {
		if id == nil {
			continue
		}
		t, err := h.ledger.Get(ctx, *id)
		if err != nil {
			return err
		}
		if t.Status == journals.StatusVoid {
			continue
		}
		if _, err := h.ledger.VoidGenerated(ctx, *id, fmt.Sprintf("Invoice %s annulled: %s", inv.Number, reason)); err != nil {
			return err
		}
	}
	return nil
}

var _ invoices.Ledger = (*Hooks)(nil)
