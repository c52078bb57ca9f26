package products

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	invshared "github.com/ledgerbook/ledgerbook/internal/invoicing/shared"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

type memRepo struct {
	items map[int64]Product
	sold  map[int64]bool
}

func (m *memRepo) List(context.Context, ListFilters) ([]Product, error) { return nil, nil }

func (m *memRepo) Get(_ context.Context, id int64) (Product, error) {
	p, ok := m.items[id]
	if !ok {
		return Product{}, invshared.ErrProductNotFound
	}
	return p, nil
}

func (m *memRepo) Insert(_ context.Context, p Product) (Product, error) {
	p.ID = int64(len(m.items) + 1)
	m.items[p.ID] = p
	return p, nil
}

func (m *memRepo) Update(_ context.Context, p Product) (Product, error) {
	m.items[p.ID] = p
	return p, nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	delete(m.items, id)
	return nil
}

func (m *memRepo) HasInvoiceLines(_ context.Context, id int64) (bool, error) { return m.sold[id], nil }

func newService() (*Service, *memRepo) {
	repo := &memRepo{items: map[int64]Product{}, sold: map[int64]bool{}}
	return NewService(repo, nil, nil), repo
}

func TestCreateDefaultsTaxRate(t *testing.T) {
	svc, _ := newService()
	p, err := svc.Create(context.Background(), Input{Code: "p-01", Name: "Martillo", UnitPrice: decimal.RequireFromString("12.50")})
	require.NoError(t, err)
	require.Equal(t, "P-01", p.Code)
	require.Equal(t, KindProduct, p.Kind)
	require.True(t, p.EffectiveTaxRate().Equal(decimal.NewFromInt(13)))
}

func TestUntaxedServiceHasZeroRate(t *testing.T) {
	svc, _ := newService()
	taxable := false
	p, err := svc.Create(context.Background(), Input{Code: "S-01", Name: "Consultoría", Kind: KindService,
		UnitPrice: decimal.NewFromInt(80), Taxable: &taxable})
	require.NoError(t, err)
	require.True(t, p.EffectiveTaxRate().IsZero())
}

func TestCreateValidatesPrices(t *testing.T) {
	svc, _ := newService()
	rate := decimal.NewFromInt(150)
	cases := []Input{
		{Code: "X", Name: "x", UnitPrice: decimal.NewFromInt(-1)},
		{Code: "X", Name: "x", UnitPrice: decimal.RequireFromString("1.005")},
		{Code: "X", Name: "x", UnitPrice: decimal.NewFromInt(1), TaxRate: &rate},
	}
	for _, in := range cases {
		_, err := svc.Create(context.Background(), in)
		require.ErrorIs(t, err, shared.ErrValidation)
	}
}

func TestDeleteRefusesSoldProduct(t *testing.T) {
	svc, repo := newService()
	p, err := svc.Create(context.Background(), Input{Code: "P", Name: "p", UnitPrice: decimal.NewFromInt(1)})
	require.NoError(t, err)
	repo.sold[p.ID] = true
	require.ErrorIs(t, svc.Delete(context.Background(), p.ID), invshared.ErrInUse)
}
