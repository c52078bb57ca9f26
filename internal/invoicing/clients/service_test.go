package clients

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	invshared "github.com/ledgerbook/ledgerbook/internal/invoicing/shared"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

type memRepo struct {
	items    map[int64]Client
	invoiced map[int64]bool
	nextID   int64
}

func newMemRepo() *memRepo {
	return &memRepo{items: map[int64]Client{}, invoiced: map[int64]bool{}}
}

func (m *memRepo) List(context.Context, ListFilters) ([]Client, error) {
	var out []Client
	for _, c := range m.items {
		out = append(out, c)
	}
	return out, nil
}

func (m *memRepo) Get(_ context.Context, id int64) (Client, error) {
	c, ok := m.items[id]
	if !ok {
		return Client{}, fmt.Errorf("%w: id %d", invshared.ErrClientNotFound, id)
	}
	return c, nil
}

func (m *memRepo) Insert(_ context.Context, c Client) (Client, error) {
	for _, existing := range m.items {
		if existing.Code == c.Code {
			return Client{}, invshared.ErrDuplicateCode
		}
	}
	m.nextID++
	c.ID = m.nextID
	m.items[c.ID] = c
	return c, nil
}

func (m *memRepo) Update(_ context.Context, c Client) (Client, error) {
	m.items[c.ID] = c
	return c, nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	delete(m.items, id)
	return nil
}

func (m *memRepo) HasInvoices(_ context.Context, id int64) (bool, error) {
	return m.invoiced[id], nil
}

func TestCreateNormalizesAndDefaults(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)
	c, err := svc.Create(context.Background(), Input{Code: " cli-001 ", Name: " Ferretería Central "})
	require.NoError(t, err)
	require.Equal(t, "CLI-001", c.Code)
	require.Equal(t, "Ferretería Central", c.Name)
	require.Equal(t, KindCompany, c.Kind)
	require.Equal(t, DefaultCreditDays, c.CreditDays)
	require.True(t, c.IsActive)

	_, err = svc.Create(context.Background(), Input{Code: "CLI-001", Name: "Other"})
	require.ErrorIs(t, err, invshared.ErrDuplicateCode)
}

func TestCreateRejectsNegativeCreditLimit(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)
	_, err := svc.Create(context.Background(), Input{Code: "C1", Name: "Ana", CreditLimit: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestDeleteRefusesInvoicedClient(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil)
	c, err := svc.Create(context.Background(), Input{Code: "C1", Name: "Ana", Kind: KindPerson})
	require.NoError(t, err)

	repo.invoiced[c.ID] = true
	require.ErrorIs(t, svc.Delete(context.Background(), c.ID), invshared.ErrInUse)

	repo.invoiced[c.ID] = false
	require.NoError(t, svc.Delete(context.Background(), c.ID))
	_, err = svc.Get(context.Background(), c.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
