package mappings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ledgerbook/ledgerbook/internal/accounting/accounts"
	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

// RequiredKeys lists, per module, the keys that must resolve before the module
// can post to the ledger.
var RequiredKeys = map[string][]string{
	ModuleInvoicing: {KeyCash, KeyReceivable, KeySales, KeyTaxPayable},
}

// AccountLookup resolves mapped accounts.
type AccountLookup interface {
	Get(ctx context.Context, id int64) (accounts.Account, error)
}

// AuditPort records state changes.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Input is the body of a mapping update.
type Input struct {
	AccountID int64 `json:"account_id" validate:"required,gt=0"`
}

// Issue describes one mapping that blocks posting.
type Issue struct {
	Module string `json:"module"`
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// Report is the outcome of a setup check.
type Report struct {
	OK     bool    `json:"ok"`
	Issues []Issue `json:"issues"`
}

// Service validates and maintains account mappings.
type Service struct {
	repo     Repository
	accounts AccountLookup
	audit    AuditPort
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the mapping service.
func NewService(repo Repository, lookup AccountLookup, audit AuditPort, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, accounts: lookup, audit: audit, logger: logger, now: time.Now}
}

// Get resolves one mapping.
func (s *Service) Get(ctx context.Context, module, key string) (AccountMapping, error) {
	return s.repo.Get(ctx, strings.ToUpper(module), key)
}

// List returns the mappings of module, or all of them when module is empty.
func (s *Service) List(ctx context.Context, module string) ([]AccountMapping, error) {
	items, err := s.repo.List(ctx, strings.ToUpper(strings.TrimSpace(module)))
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []AccountMapping{}
	}
	return items, nil
}

// Upsert points module/key at accountID after checking the key is known and
// the account accepts postings.
func (s *Service) Upsert(ctx context.Context, module, key string, accountID int64) (AccountMapping, error) {
	module = strings.ToUpper(strings.TrimSpace(module))
	key = strings.ToLower(strings.TrimSpace(key))
	if err := knownKey(module, key); err != nil {
		return AccountMapping{}, err
	}
	if accountID <= 0 {
		return AccountMapping{}, shared.NewValidationError("account_id", "is required")
	}
	account, err := s.accounts.Get(ctx, accountID)
	if errors.Is(err, acctshared.ErrAccountNotFound) {
		return AccountMapping{}, fmt.Errorf("%w: id %d", acctshared.ErrInvalidAccount, accountID)
	}
	if err != nil {
		return AccountMapping{}, err
	}
	if !account.Postable() {
		return AccountMapping{}, fmt.Errorf("%w: %s", acctshared.ErrInvalidAccount, account.Code)
	}
	m, err := s.repo.Upsert(ctx, module, key, accountID)
	if err != nil {
		return AccountMapping{}, err
	}
	s.record(ctx, module+"/"+key, map[string]any{"account_id": accountID, "account_code": account.Code})
	return m, nil
}

// Validate reports required keys that are unmapped or point at accounts that
// no longer accept postings.
func (s *Service) Validate(ctx context.Context) (Report, error) {
	current, err := s.repo.List(ctx, "")
	if err != nil {
		return Report{}, err
	}
	byKey := make(map[string]AccountMapping, len(current))
	for _, m := range current {
		byKey[m.Module+"/"+m.Key] = m
	}

	modules := make([]string, 0, len(RequiredKeys))
	for module := range RequiredKeys {
		modules = append(modules, module)
	}
	sort.Strings(modules)

	report := Report{Issues: []Issue{}}
	for _, module := range modules {
		for _, key := range RequiredKeys[module] {
			m, ok := byKey[module+"/"+key]
			if !ok {
				report.Issues = append(report.Issues, Issue{Module: module, Key: key, Reason: "not mapped"})
				continue
			}
			account, err := s.accounts.Get(ctx, m.AccountID)
			switch {
			case errors.Is(err, acctshared.ErrAccountNotFound):
				report.Issues = append(report.Issues, Issue{Module: module, Key: key, Reason: "account not found"})
			case err != nil:
				return Report{}, err
			case !account.Postable():
				report.Issues = append(report.Issues, Issue{Module: module, Key: key,
					Reason: fmt.Sprintf("account %s is inactive or does not accept postings", account.Code)})
			}
		}
	}
	report.OK = len(report.Issues) == 0
	return report, nil
}

func knownKey(module, key string) error {
	keys, ok := RequiredKeys[module]
	if !ok {
		return shared.NewValidationError("module", "is not a known module")
	}
	for _, k := range keys {
		if k == key {
			return nil
		}
	}
	return shared.NewValidationError("key", "must be one of "+strings.Join(keys, " "))
}

func (s *Service) record(ctx context.Context, id string, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{
		Actor:    shared.ActorFromContext(ctx),
		Action:   "mapping.update",
		Entity:   "account_mapping",
		EntityID: id,
		Meta:     meta,
		At:       s.now(),
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("mapping", id), slog.Any("error", err))
	}
}
