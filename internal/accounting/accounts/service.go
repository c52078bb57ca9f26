package accounts

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

// AuditPort records state changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service maintains the chart of accounts.
type Service struct {
	repo   Repository
	audit  AuditPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs the catalog service.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger, now: time.Now}
}

// List returns accounts ordered by code.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Account, error) {
	return s.repo.List(ctx, filters)
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.Get(ctx, id)
}

// Tree returns every account depth first for display.
func (s *Service) Tree(ctx context.Context) ([]TreeNode, error) {
	all, err := s.repo.List(ctx, ListFilters{})
	if err != nil {
		return nil, err
	}
	return NewCatalog(all).Tree(), nil
}

func normalize(in AccountInput) AccountInput {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	return in
}

// Create adds an account under an optional parent.
func (s *Service) Create(ctx context.Context, in AccountInput) (Account, error) {
	in = normalize(in)
	if !in.Type.Valid() {
		return Account{}, shared.NewValidationError("type", "must be one of ASSET LIABILITY EQUITY REVENUE EXPENSE")
	}
	var created Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		all, err := tx.LockCatalog(ctx)
		if err != nil {
			return err
		}
		catalog := NewCatalog(all)
		taken, err := tx.CodeTaken(ctx, in.Code, 0)
		if err != nil {
			return err
		}
		if taken {
			return fmt.Errorf("%w: %s", acctshared.ErrDuplicateCode, in.Code)
		}
		level := 1
		if in.ParentID != nil {
			parent, err := validParent(catalog, *in.ParentID)
			if err != nil {
				return err
			}
			level = parent.Level + 1
		}
		created, err = tx.Insert(ctx, Account{
			Code:            in.Code,
			Name:            in.Name,
			Type:            in.Type,
			ParentID:        in.ParentID,
			Level:           level,
			AcceptsPostings: in.AcceptsPostings,
			Description:     in.Description,
		})
		return err
	})
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, "account.create", created.ID, map[string]any{"code": created.Code, "level": created.Level})
	return created, nil
}

func validParent(catalog *Catalog, parentID int64) (Account, error) {
	parent, ok := catalog.Get(parentID)
	if !ok {
		return Account{}, fmt.Errorf("%w: parent %d", acctshared.ErrAccountNotFound, parentID)
	}
	if !parent.IsActive || parent.AcceptsPostings {
		return Account{}, fmt.Errorf("%w: %s", acctshared.ErrInvalidParentState, parent.Code)
	}
	return parent, nil
}

// Update changes an account, moving its subtree when the parent changes.
func (s *Service) Update(ctx context.Context, id int64, in AccountInput) (Account, error) {
	in = normalize(in)
	if !in.Type.Valid() {
		return Account{}, shared.NewValidationError("type", "must be one of ASSET LIABILITY EQUITY REVENUE EXPENSE")
	}
	var updated Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		all, err := tx.LockCatalog(ctx)
		if err != nil {
			return err
		}
		catalog := NewCatalog(all)
		current, ok := catalog.Get(id)
		if !ok {
			return fmt.Errorf("%w: id %d", acctshared.ErrAccountNotFound, id)
		}
		if in.Code != current.Code {
			taken, err := tx.CodeTaken(ctx, in.Code, id)
			if err != nil {
				return err
			}
			if taken {
				return fmt.Errorf("%w: %s", acctshared.ErrDuplicateCode, in.Code)
			}
		}
		if in.AcceptsPostings && len(catalog.Children(id)) > 0 {
			return fmt.Errorf("%w: %s has children", acctshared.ErrInvalidParentState, current.Code)
		}

		level := 1
		if in.ParentID != nil {
			if catalog.WouldCycle(id, *in.ParentID) {
				return fmt.Errorf("%w: %s under %d", acctshared.ErrCyclicParent, current.Code, *in.ParentID)
			}
			parent, err := validParent(catalog, *in.ParentID)
			if err != nil {
				return err
			}
			level = parent.Level + 1
		}

		next := current
		next.Code = in.Code
		next.Name = in.Name
		next.Type = in.Type
		next.ParentID = in.ParentID
		next.Level = level
		next.AcceptsPostings = in.AcceptsPostings
		next.Description = in.Description
		updated, err = tx.Update(ctx, next)
		if err != nil {
			return err
		}
		levels := catalog.Relevel(id, level)
		delete(levels, id)
		return tx.SetLevels(ctx, levels)
	})
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, "account.update", id, map[string]any{"code": updated.Code, "parent_id": updated.ParentID})
	return updated, nil
}

// Deactivate hides the account from new postings. Accounts with active
// children or with live entries in an open period stay active.
func (s *Service) Deactivate(ctx context.Context, id int64) (Account, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		all, err := tx.LockCatalog(ctx)
		if err != nil {
			return err
		}
		catalog := NewCatalog(all)
		if _, ok := catalog.Get(id); !ok {
			return fmt.Errorf("%w: id %d", acctshared.ErrAccountNotFound, id)
		}
		if catalog.HasActiveChildren(id) {
			return fmt.Errorf("%w: account has active children", acctshared.ErrAccountInUse)
		}
		used, err := tx.HasOpenPeriodEntries(ctx, id)
		if err != nil {
			return err
		}
		if used {
			return fmt.Errorf("%w: account has entries in an open period", acctshared.ErrAccountInUse)
		}
		return tx.SetActive(ctx, id, false)
	})
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, "account.deactivate", id, nil)
	return s.repo.Get(ctx, id)
}

// Activate re-enables an account whose parent is active.
func (s *Service) Activate(ctx context.Context, id int64) (Account, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		all, err := tx.LockCatalog(ctx)
		if err != nil {
			return err
		}
		catalog := NewCatalog(all)
		account, ok := catalog.Get(id)
		if !ok {
			return fmt.Errorf("%w: id %d", acctshared.ErrAccountNotFound, id)
		}
		if account.ParentID != nil {
			if parent, ok := catalog.Get(*account.ParentID); ok && !parent.IsActive {
				return fmt.Errorf("%w: parent %s is inactive", acctshared.ErrInvalidParentState, parent.Code)
			}
		}
		return tx.SetActive(ctx, id, true)
	})
	if err != nil {
		return Account{}, err
	}
	s.record(ctx, "account.activate", id, nil)
	return s.repo.Get(ctx, id)
}

// Delete removes an account that nothing references.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		all, err := tx.LockCatalog(ctx)
		if err != nil {
			return err
		}
		if _, ok := NewCatalog(all).Get(id); !ok {
			return fmt.Errorf("%w: id %d", acctshared.ErrAccountNotFound, id)
		}
		used, err := tx.HasReferences(ctx, id)
		if err != nil {
			return err
		}
		if used {
			return fmt.Errorf("%w: id %d", acctshared.ErrAccountInUse, id)
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "account.delete", id, nil)
	return nil
}

// GetManual returns the usage guide of an account.
func (s *Service) GetManual(ctx context.Context, id int64) (ManualView, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return ManualView{}, err
	}
	manual, err := s.repo.GetManual(ctx, id)
	if err != nil {
		return ManualView{}, err
	}
	return ManualView{Account: account, Nature: account.Type.NaturalSide(), Manual: manual}, nil
}

// SaveManual creates or replaces the usage guide of an account.
func (s *Service) SaveManual(ctx context.Context, id int64, in ManualInput) (ManualView, error) {
	account, err := s.repo.Get(ctx, id)
	if err != nil {
		return ManualView{}, err
	}
	var saved Manual
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		saved, err = tx.UpsertManual(ctx, Manual{
			AccountID:      id,
			Description:    strings.TrimSpace(in.Description),
			Instructions:   strings.TrimSpace(in.Instructions),
			Examples:       strings.TrimSpace(in.Examples),
			Classification: strings.TrimSpace(in.Classification),
		})
		return err
	})
	if err != nil {
		return ManualView{}, err
	}
	s.record(ctx, "account.manual", id, nil)
	return ManualView{Account: account, Nature: account.Type.NaturalSide(), Manual: saved}, nil
}

// ListManual returns the manual of every active account.
func (s *Service) ListManual(ctx context.Context) ([]ManualView, error) {
	return s.repo.ListManuals(ctx)
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "account",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
