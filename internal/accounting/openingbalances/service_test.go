package openingbalances

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerbook/ledgerbook/internal/accounting/accounts"
	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

type memRepo struct {
	items    map[int64]OpeningBalance
	periods  map[int64]PeriodRef
	accounts map[int64]AccountRef
	nextID   int64
}

func newMemRepo() *memRepo {
	return &memRepo{
		items: map[int64]OpeningBalance{},
		periods: map[int64]PeriodRef{
			1: {ID: 1, Name: "January", Open: true},
			2: {ID: 2, Name: "December", Open: false},
		},
		accounts: map[int64]AccountRef{
			10: {ID: 10, Code: "1101", Name: "Caja", Type: accounts.AccountTypeAsset, AcceptsPostings: true, IsActive: true},
			20: {ID: 20, Code: "3101", Name: "Capital", Type: accounts.AccountTypeEquity, AcceptsPostings: true, IsActive: true},
		},
	}
}

func (m *memRepo) List(_ context.Context, periodID int64) ([]OpeningBalance, error) {
	var out []OpeningBalance
	for _, o := range m.items {
		if o.PeriodID == periodID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (OpeningBalance, error) { return m.GetForUpdate(ctx, id) }

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memRepo) Period(_ context.Context, id int64) (PeriodRef, error) {
	p, ok := m.periods[id]
	if !ok {
		return PeriodRef{}, acctshared.ErrPeriodNotFound
	}
	return p, nil
}

func (m *memRepo) Account(_ context.Context, id int64) (AccountRef, error) {
	a, ok := m.accounts[id]
	if !ok {
		return AccountRef{}, acctshared.ErrInvalidAccount
	}
	return a, nil
}

func (m *memRepo) GetForUpdate(_ context.Context, id int64) (OpeningBalance, error) {
	o, ok := m.items[id]
	if !ok {
		return OpeningBalance{}, acctshared.ErrOpeningBalanceNotFound
	}
	return o, nil
}

func (m *memRepo) Insert(_ context.Context, o OpeningBalance) (OpeningBalance, error) {
	for _, existing := range m.items {
		if existing.PeriodID == o.PeriodID && existing.AccountID == o.AccountID && existing.Status == StatusActive {
			return OpeningBalance{}, acctshared.ErrDuplicateOpeningBalance
		}
	}
	m.nextID++
	o.ID = m.nextID
	o.Status = StatusActive
	m.items[o.ID] = o
	return o, nil
}

func (m *memRepo) Update(_ context.Context, o OpeningBalance) (OpeningBalance, error) {
	m.items[o.ID] = o
	return o, nil
}

func (m *memRepo) Annul(_ context.Context, id int64) error {
	o := m.items[id]
	o.Status = StatusAnnulled
	m.items[id] = o
	return nil
}

type bumps []int64

func (b *bumps) Invalidate(_ context.Context, periodID int64) error {
	*b = append(*b, periodID)
	return nil
}

func TestNegativeOpeningOnlyForCreditNatured(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, 1, Input{AccountID: 10, Amount: decimal.NewFromInt(-5)})
	assert.ErrorIs(t, err, acctshared.ErrNegativeOpening)

	equity, err := svc.Create(ctx, 1, Input{AccountID: 20, Amount: decimal.NewFromInt(-5)})
	require.NoError(t, err)
	assert.Equal(t, accounts.SideDebit, equity.Side())
}

func TestOpeningBalanceLifecycle(t *testing.T) {
	var b bumps
	svc := NewService(newMemRepo(), nil, nil).WithInvalidator(&b)
	ctx := context.Background()

	first, err := svc.Create(ctx, 1, Input{AccountID: 10, Amount: decimal.NewFromInt(500)})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 1, Input{AccountID: 10, Amount: decimal.NewFromInt(100)})
	assert.ErrorIs(t, err, acctshared.ErrDuplicateOpeningBalance)

	updated, err := svc.Update(ctx, first.ID, UpdateInput{Amount: decimal.RequireFromString("750.25")})
	require.NoError(t, err)
	assert.Equal(t, "750.25", updated.Amount.StringFixed(2))

	_, err = svc.Annul(ctx, first.ID)
	require.NoError(t, err)
	_, err = svc.Annul(ctx, first.ID)
	assert.ErrorIs(t, err, acctshared.ErrInvalidStatus)

	_, err = svc.Create(ctx, 1, Input{AccountID: 10, Amount: decimal.NewFromInt(100)})
	assert.NoError(t, err, "an annulled opening frees the account")
	assert.Equal(t, bumps{1, 1, 1, 1}, b)
}

func TestClosedPeriodRejectsOpenings(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)
	_, err := svc.Create(context.Background(), 2, Input{AccountID: 10, Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, acctshared.ErrPeriodClosed)
}

func TestCheckAmountBounds(t *testing.T) {
	big, err := decimal.NewFromString("10000000000000000")
	require.NoError(t, err)
	err = CheckAmount(accounts.AccountTypeAsset, big)
	require.ErrorIs(t, err, shared.ErrValidation)
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "amount")

	assert.ErrorIs(t, CheckAmount(accounts.AccountTypeLiability, big.Neg()), shared.ErrValidation)
	assert.NoError(t, CheckAmount(accounts.AccountTypeAsset, decimal.RequireFromString("9999999999999999.99")))
}
