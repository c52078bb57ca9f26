package journals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/platform/db"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

// AuditPort records state changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Invalidator drops cached ledger figures of a period.
type Invalidator interface {
	Invalidate(ctx context.Context, periodID int64) error
}

// Service enforces the double-entry rules for transactions and their entries.
type Service struct {
	repo        Repository
	audit       AuditPort
	invalidator Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs the journal service.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// WithInvalidator wires the ledger cache.
func (s *Service) WithInvalidator(inv Invalidator) *Service {
	s.invalidator = inv
	return s
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Get returns a transaction with its entries.
func (s *Service) Get(ctx context.Context, id int64) (Transaction, error) {
	return s.repo.Get(ctx, id)
}

// FindBySourceRef returns the transaction generated for ref.
func (s *Service) FindBySourceRef(ctx context.Context, ref string) (Transaction, error) {
	return s.repo.FindBySourceRef(ctx, ref)
}

// List returns a page of transactions without entries.
func (s *Service) List(ctx context.Context, filters ListFilters) (shared.Page[Transaction], error) {
	filters.Page, filters.PerPage = shared.NormalizePage(filters.Page, filters.PerPage)
	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return shared.Page[Transaction]{}, err
	}
	return shared.NewPage(items, filters.Page, filters.PerPage, total), nil
}

// Summary counts transactions by status.
func (s *Service) Summary(ctx context.Context, periodID *int64) (Summary, error) {
	return s.repo.Summary(ctx, periodID)
}

// CreateTransaction opens a DRAFT transaction inside an open period.
func (s *Service) CreateTransaction(ctx context.Context, in TransactionInput) (Transaction, error) {
	h, err := in.header()
	if err != nil {
		return Transaction{}, err
	}
	actor := shared.ActorFromContext(ctx)
	var created Transaction
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.Period(ctx, in.PeriodID)
		if err != nil {
			return err
		}
		if err := checkPeriod(period, h.date); err != nil {
			return err
		}
		created, err = tx.Insert(ctx, Transaction{
			PeriodID:    period.ID,
			Date:        h.date,
			Description: h.description,
			Type:        h.kind,
			Category:    h.category,
			Currency:    h.currency,
			Reference:   h.reference,
			Notes:       h.notes,
			Kind:        KindManual,
			CreatedBy:   actor.Label(),
		})
		return err
	})
	if err != nil {
		return Transaction{}, err
	}
	s.record(ctx, "transaction.create", created.ID, map[string]any{"period_id": created.PeriodID})
	return created, nil
}

// UpdateTransaction edits the header of a DRAFT transaction. The period never changes.
func (s *Service) UpdateTransaction(ctx context.Context, id int64, in TransactionUpdate) (Transaction, error) {
	h, err := in.header()
	if err != nil {
		return Transaction{}, err
	}
	var updated Transaction
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !current.Editable() {
			return fmt.Errorf("%w: transaction %d is %s", acctshared.ErrTransactionLocked, id, current.Status)
		}
		period, err := tx.Period(ctx, current.PeriodID)
		if err != nil {
			return err
		}
		if err := checkPeriod(period, h.date); err != nil {
			return err
		}
		current.Date = h.date
		current.Description = h.description
		current.Type = h.kind
		current.Category = h.category
		current.Currency = h.currency
		current.Reference = h.reference
		current.Notes = h.notes
		if updated, err = tx.UpdateHeader(ctx, current); err != nil {
			return err
		}
		updated.Entries, err = tx.Entries(ctx, id)
		return err
	})
	if err != nil {
		return Transaction{}, err
	}
	return updated, nil
}

// DeleteTransaction voids a manual transaction. Generated transactions are
// voided through the document that produced them.
func (s *Service) DeleteTransaction(ctx context.Context, id int64, reason string) (Transaction, error) {
	return s.void(ctx, id, reason, true)
}

// VoidGenerated voids a transaction regardless of its kind. Used when the
// source document is annulled.
func (s *Service) VoidGenerated(ctx context.Context, id int64, reason string) (Transaction, error) {
	return s.void(ctx, id, reason, false)
}

func (s *Service) void(ctx context.Context, id int64, reason string, manualOnly bool) (Transaction, error) {
	reason = strings.TrimSpace(reason)
	var voided Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if current.Status == StatusVoid {
			return fmt.Errorf("%w: transaction %d is already void", acctshared.ErrInvalidStatus, id)
		}
		if manualOnly && current.Kind != KindManual {
			return fmt.Errorf("%w: %s transactions are voided through their source", acctshared.ErrInvalidStatus, strings.ToLower(string(current.Kind)))
		}
		period, err := tx.Period(ctx, current.PeriodID)
		if err != nil {
			return err
		}
		if !period.Open {
			return fmt.Errorf("%w: %s", acctshared.ErrPeriodClosed, period.Name)
		}
		at := s.now()
		if err := tx.MarkVoid(ctx, id, reason, at); err != nil {
			return err
		}
		wasPosted := current.Status == StatusPosted
		current.Status = StatusVoid
		current.VoidedAt = &at
		current.VoidReason = reason
		voided = current
		if wasPosted {
			s.invalidateAfterCommit(ctx, current.PeriodID)
		}
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}
	s.record(ctx, "transaction.void", id, map[string]any{"reason": reason})
	return voided, nil
}

// AddEntry appends a line to a DRAFT transaction.
func (s *Service) AddEntry(ctx context.Context, txID int64, in EntryInput) (Entry, error) {
	if err := ValidateEntry(in); err != nil {
		return Entry{}, err
	}
	var created Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, txID)
		if err != nil {
			return err
		}
		if !current.Editable() {
			return fmt.Errorf("%w: transaction %d is %s", acctshared.ErrTransactionLocked, txID, current.Status)
		}
		account, err := tx.Account(ctx, in.AccountID)
		if err != nil {
			return err
		}
		if err := checkAccount(account); err != nil {
			return err
		}
		created, err = tx.InsertEntry(ctx, Entry{
			TransactionID: txID,
			AccountID:     account.ID,
			Debit:         in.Debit,
			Credit:        in.Credit,
			Memo:          strings.TrimSpace(in.Memo),
		})
		if err != nil {
			return err
		}
		created.AccountCode, created.AccountName = account.Code, account.Name
		return tx.Touch(ctx, txID)
	})
	if err != nil {
		return Entry{}, err
	}
	return created, nil
}

// UpdateEntry changes the account, side, amount or memo of a draft line.
func (s *Service) UpdateEntry(ctx context.Context, entryID int64, in EntryInput) (Entry, error) {
	if err := ValidateEntry(in); err != nil {
		return Entry{}, err
	}
	var updated Entry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := lockEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}
		account, err := tx.Account(ctx, in.AccountID)
		if err != nil {
			return err
		}
		if err := checkAccount(account); err != nil {
			return err
		}
		entry.AccountID = account.ID
		entry.AccountCode, entry.AccountName = account.Code, account.Name
		entry.Debit, entry.Credit = in.Debit, in.Credit
		entry.Memo = strings.TrimSpace(in.Memo)
		updated, err = tx.UpdateEntry(ctx, entry)
		if err != nil {
			return err
		}
		return tx.Touch(ctx, entry.TransactionID)
	})
	if err != nil {
		return Entry{}, err
	}
	return updated, nil
}

// DeleteEntry removes a line from a DRAFT transaction.
func (s *Service) DeleteEntry(ctx context.Context, entryID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := lockEntry(ctx, tx, entryID)
		if err != nil {
			return err
		}
		if err := tx.DeleteEntry(ctx, entryID); err != nil {
			return err
		}
		return tx.Touch(ctx, entry.TransactionID)
	})
}

// lockEntry locks the owning transaction before the line, the same order
// AddEntry and PostTransaction use, and requires the transaction be DRAFT.
func lockEntry(ctx context.Context, tx TxRepository, entryID int64) (Entry, error) {
	owner, err := tx.EntryOwner(ctx, entryID)
	if err != nil {
		return Entry{}, err
	}
	current, err := tx.GetForUpdate(ctx, owner)
	if err != nil {
		return Entry{}, err
	}
	if !current.Editable() {
		return Entry{}, fmt.Errorf("%w: transaction %d is %s", acctshared.ErrTransactionLocked, current.ID, current.Status)
	}
	entry, err := tx.GetEntryForUpdate(ctx, entryID)
	if err != nil {
		return Entry{}, err
	}
	if entry.TransactionID != owner {
		return Entry{}, fmt.Errorf("%w: id %d", acctshared.ErrEntryNotFound, entryID)
	}
	return entry, nil
}

// PostTransaction moves a balanced DRAFT to POSTED. On failure the
// transaction stays DRAFT.
func (s *Service) PostTransaction(ctx context.Context, id int64) (Transaction, error) {
	var posted Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		posted, err = s.post(ctx, tx, id)
		return err
	})
	if err != nil {
		return Transaction{}, err
	}
	debit, _ := posted.Totals()
	s.record(ctx, "transaction.post", id, map[string]any{"amount": debit.StringFixed(2)})
	return posted, nil
}

func (s *Service) post(ctx context.Context, tx TxRepository, id int64) (Transaction, error) {
	current, err := tx.GetForUpdate(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if current.Status != StatusDraft {
		return Transaction{}, fmt.Errorf("%w: transaction %d is %s", acctshared.ErrTransactionLocked, id, current.Status)
	}
	period, err := tx.Period(ctx, current.PeriodID)
	if err != nil {
		return Transaction{}, err
	}
	if err := checkPeriod(period, current.Date); err != nil {
		return Transaction{}, err
	}
	entries, err := tx.Entries(ctx, id)
	if err != nil {
		return Transaction{}, err
	}
	if err := ValidatePostable(entries); err != nil {
		return Transaction{}, err
	}
	at := s.now()
	by := shared.ActorFromContext(ctx).Label()
	if err := tx.MarkPosted(ctx, id, by, at); err != nil {
		return Transaction{}, err
	}
	current.Status = StatusPosted
	current.PostedBy = &by
	current.PostedAt = &at
	current.Entries = entries
	s.invalidateAfterCommit(ctx, current.PeriodID)
	return current, nil
}

// PostBalanced creates, fills and posts a transaction in one database
// transaction. A reused SourceRef fails with ErrSourceAlreadyLinked.
func (s *Service) PostBalanced(ctx context.Context, in PostingInput) (Transaction, error) {
	if strings.TrimSpace(in.Description) == "" {
		return Transaction{}, shared.NewValidationError("description", "is required")
	}
	if err := ValidateLines(in.Lines); err != nil {
		return Transaction{}, err
	}
	kind := in.Kind
	if kind == "" {
		kind = KindManual
	}
	typ := in.Type
	if typ == "" {
		typ = TypeIncome
	}
	var sourceRef *string
	if ref := strings.TrimSpace(in.SourceRef); ref != "" {
		sourceRef = &ref
	}
	actor := shared.ActorFromContext(ctx)

	var posted Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.Period(ctx, in.PeriodID)
		if err != nil {
			return err
		}
		date := acctshared.DateOnly(in.Date)
		if err := checkPeriod(period, date); err != nil {
			return err
		}
		created, err := tx.Insert(ctx, Transaction{
			PeriodID:    period.ID,
			Date:        date,
			Description: strings.TrimSpace(in.Description),
			Type:        typ,
			Category:    in.Category,
			Currency:    "USD",
			Reference:   in.Reference,
			Notes:       in.Notes,
			Kind:        kind,
			SourceRef:   sourceRef,
			CreatedBy:   actor.Label(),
		})
		if err != nil {
			return err
		}
		for i, line := range in.Lines {
			account, err := tx.Account(ctx, line.AccountID)
			if err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
			if err := checkAccount(account); err != nil {
				return fmt.Errorf("line %d: %w", i+1, err)
			}
			if _, err := tx.InsertEntry(ctx, Entry{
				TransactionID: created.ID,
				AccountID:     account.ID,
				Debit:         line.Debit,
				Credit:        line.Credit,
				Memo:          strings.TrimSpace(line.Memo),
			}); err != nil {
				return err
			}
		}
		posted, err = s.post(ctx, tx, created.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, acctshared.ErrSourceAlreadyLinked) {
			s.logger.Info("posting already linked", slog.String("source_ref", in.SourceRef))
		}
		return Transaction{}, err
	}
	meta := map[string]any{"kind": string(kind)}
	if sourceRef != nil {
		meta["source_ref"] = *sourceRef
	}
	s.record(ctx, "transaction.create", posted.ID, meta)
	s.record(ctx, "transaction.post", posted.ID, meta)
	return posted, nil
}

func (s *Service) invalidateAfterCommit(ctx context.Context, periodID int64) {
	if s.invalidator == nil {
		return
	}
	db.AfterCommit(ctx, func() {
		if err := s.invalidator.Invalidate(context.WithoutCancel(ctx), periodID); err != nil {
			s.logger.Warn("ledger invalidate failed", slog.Int64("period_id", periodID), slog.Any("error", err))
		}
	})
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	log := shared.AuditLog{
		Actor:    shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "transaction",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       s.now(),
	}
	db.AfterCommit(ctx, func() {
		if err := s.audit.Record(context.WithoutCancel(ctx), log); err != nil {
			s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
		}
	})
}
