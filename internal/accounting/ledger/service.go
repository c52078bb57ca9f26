package ledger

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/ledgerbook/ledgerbook/internal/platform/cache"
)

// Service aggregates posted entries into balances. Period balances are
// memoised in the versioned cache until Invalidate bumps the period.
type Service struct {
	repo   Repository
	cache  *cache.Versioned
	logger *slog.Logger
}

// NewService constructs the ledger service. A nil cache computes every read.
func NewService(repo Repository, c *cache.Versioned, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: c, logger: logger}
}

func scope(periodID int64) string {
	return "period:" + strconv.FormatInt(periodID, 10)
}

// Balances returns every account with an opening balance or posted activity in the period.
func (s *Service) Balances(ctx context.Context, periodID int64) ([]Balance, error) {
	if err := s.repo.PeriodExists(ctx, periodID); err != nil {
		return nil, err
	}
	load := func(ctx context.Context) (any, error) {
		totals, err := s.repo.Totals(ctx, periodID)
		if err != nil {
			return nil, err
		}
		out := make([]Balance, 0, len(totals))
		for _, t := range totals {
			out = append(out, FromTotals(t))
		}
		return out, nil
	}

	key, err := s.cache.Key(ctx, scope(periodID), "balances")
	if err != nil {
		s.logger.Warn("ledger cache unavailable", slog.Int64("period_id", periodID), slog.Any("error", err))
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return v.([]Balance), nil
	}
	var out []Balance
	if err := s.cache.FetchJSON(ctx, key, &out, load); err != nil {
		return nil, err
	}
	return out, nil
}

// Balance returns one account's position in the period.
func (s *Service) Balance(ctx context.Context, accountID, periodID int64) (Balance, error) {
	balances, err := s.Balances(ctx, periodID)
	if err != nil {
		return Balance{}, err
	}
	for _, b := range balances {
		if b.AccountID == accountID {
			return b, nil
		}
	}
	t, err := s.repo.AccountTotals(ctx, accountID, periodID)
	if err != nil {
		return Balance{}, err
	}
	return FromTotals(t), nil
}

// Book returns the account's posted movements with a running balance.
func (s *Service) Book(ctx context.Context, accountID, periodID int64) (Book, error) {
	if err := s.repo.PeriodExists(ctx, periodID); err != nil {
		return Book{}, err
	}
	t, err := s.repo.AccountTotals(ctx, accountID, periodID)
	if err != nil {
		return Book{}, err
	}
	movements, err := s.repo.Movements(ctx, accountID, periodID)
	if err != nil {
		return Book{}, err
	}
	return Book{
		Account:   FromTotals(t),
		PeriodID:  periodID,
		Movements: RunBook(t.Type, t.Opening, movements),
	}, nil
}

// Invalidate drops the cached figures of a period.
func (s *Service) Invalidate(ctx context.Context, periodID int64) error {
	return s.cache.Bump(ctx, scope(periodID))
}
