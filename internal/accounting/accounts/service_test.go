package accounts

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
)

type memRepo struct {
	accounts   map[int64]Account
	manuals    map[int64]Manual
	nextID     int64
	openUsage  map[int64]bool
	referenced map[int64]bool
}

func newMemRepo(seed ...Account) *memRepo {
	m := &memRepo{accounts: map[int64]Account{}, manuals: map[int64]Manual{}, openUsage: map[int64]bool{}, referenced: map[int64]bool{}}
	for _, a := range seed {
		m.accounts[a.ID] = a
		if a.ID > m.nextID {
			m.nextID = a.ID
		}
	}
	return m
}

func (m *memRepo) sorted() []Account {
	out := make([]Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func (m *memRepo) List(context.Context, ListFilters) ([]Account, error) { return m.sorted(), nil }

func (m *memRepo) Get(_ context.Context, id int64) (Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return Account{}, acctshared.ErrAccountNotFound
	}
	return a, nil
}

func (m *memRepo) GetManual(_ context.Context, id int64) (Manual, error) {
	return m.manuals[id], nil
}

func (m *memRepo) ListManuals(context.Context) ([]ManualView, error) { return nil, nil }

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memRepo) LockCatalog(context.Context) ([]Account, error) { return m.sorted(), nil }

func (m *memRepo) CodeTaken(_ context.Context, code string, excludeID int64) (bool, error) {
	for _, a := range m.accounts {
		if a.Code == code && a.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) Insert(_ context.Context, a Account) (Account, error) {
	m.nextID++
	a.ID = m.nextID
	a.IsActive = true
	m.accounts[a.ID] = a
	return a, nil
}

func (m *memRepo) Update(_ context.Context, a Account) (Account, error) {
	m.accounts[a.ID] = a
	return a, nil
}

func (m *memRepo) SetLevels(_ context.Context, levels map[int64]int) error {
	for id, lvl := range levels {
		a := m.accounts[id]
		a.Level = lvl
		m.accounts[id] = a
	}
	return nil
}

func (m *memRepo) SetActive(_ context.Context, id int64, active bool) error {
	a := m.accounts[id]
	a.IsActive = active
	m.accounts[id] = a
	return nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	delete(m.accounts, id)
	return nil
}

func (m *memRepo) HasOpenPeriodEntries(_ context.Context, id int64) (bool, error) {
	return m.openUsage[id], nil
}

func (m *memRepo) HasReferences(_ context.Context, id int64) (bool, error) {
	for _, a := range m.accounts {
		if a.ParentID != nil && *a.ParentID == id {
			return true, nil
		}
	}
	return m.referenced[id], nil
}

func (m *memRepo) UpsertManual(_ context.Context, man Manual) (Manual, error) {
	m.manuals[man.AccountID] = man
	return man, nil
}

func seededService() (*Service, *memRepo) {
	repo := newMemRepo(
		Account{ID: 1, Code: "1", Name: "Assets", Type: AccountTypeAsset, Level: 1, IsActive: true},
		Account{ID: 2, Code: "11", Name: "Current assets", Type: AccountTypeAsset, ParentID: ptr(1), Level: 2, IsActive: true},
		Account{ID: 3, Code: "1101", Name: "Cash", Type: AccountTypeAsset, ParentID: ptr(2), Level: 3, AcceptsPostings: true, IsActive: true},
		Account{ID: 4, Code: "4", Name: "Revenue", Type: AccountTypeRevenue, Level: 1, IsActive: true},
	)
	return NewService(repo, nil, nil), repo
}

func TestCreateComputesLevelFromParent(t *testing.T) {
	svc, _ := seededService()

	created, err := svc.Create(context.Background(), AccountInput{Code: "1102", Name: "Bank", Type: AccountTypeAsset, ParentID: ptr(2), AcceptsPostings: true})
	require.NoError(t, err)
	assert.Equal(t, 3, created.Level)

	root, err := svc.Create(context.Background(), AccountInput{Code: "5", Name: "Expenses", Type: AccountTypeExpense})
	require.NoError(t, err)
	assert.Equal(t, 1, root.Level)
}

func TestCreateRejectsDuplicateCodeAndPostableParent(t *testing.T) {
	svc, _ := seededService()

	_, err := svc.Create(context.Background(), AccountInput{Code: "1101", Name: "Dup", Type: AccountTypeAsset})
	assert.ErrorIs(t, err, acctshared.ErrDuplicateCode)

	_, err = svc.Create(context.Background(), AccountInput{Code: "110101", Name: "Petty cash", Type: AccountTypeAsset, ParentID: ptr(3)})
	assert.ErrorIs(t, err, acctshared.ErrInvalidParentState)

	_, err = svc.Create(context.Background(), AccountInput{Code: "9", Name: "Orphan", Type: AccountTypeAsset, ParentID: ptr(99)})
	assert.ErrorIs(t, err, acctshared.ErrAccountNotFound)
}

func TestUpdateRejectsCycleAndRelevelsSubtree(t *testing.T) {
	svc, repo := seededService()

	_, err := svc.Update(context.Background(), 1, AccountInput{Code: "1", Name: "Assets", Type: AccountTypeAsset, ParentID: ptr(2)})
	assert.ErrorIs(t, err, acctshared.ErrCyclicParent)

	// detaching "11" makes it a root and pulls its children up one level
	updated, err := svc.Update(context.Background(), 2, AccountInput{Code: "11", Name: "Current assets", Type: AccountTypeAsset})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Level)
	assert.Equal(t, 2, repo.accounts[3].Level)
}

func TestUpdateCannotMakeParentPostable(t *testing.T) {
	svc, _ := seededService()
	_, err := svc.Update(context.Background(), 2, AccountInput{Code: "11", Name: "Current assets", Type: AccountTypeAsset, ParentID: ptr(1), AcceptsPostings: true})
	assert.ErrorIs(t, err, acctshared.ErrInvalidParentState)
}

func TestDeactivatePolicy(t *testing.T) {
	svc, repo := seededService()

	_, err := svc.Deactivate(context.Background(), 2)
	assert.ErrorIs(t, err, acctshared.ErrAccountInUse, "active children block deactivation")

	repo.openUsage[3] = true
	_, err = svc.Deactivate(context.Background(), 3)
	assert.ErrorIs(t, err, acctshared.ErrAccountInUse, "entries in an open period block deactivation")

	repo.openUsage[3] = false
	account, err := svc.Deactivate(context.Background(), 3)
	require.NoError(t, err)
	assert.False(t, account.IsActive)

	account, err = svc.Activate(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, account.IsActive)
}

func TestDeleteRequiresUnreferencedAccount(t *testing.T) {
	svc, repo := seededService()

	assert.ErrorIs(t, svc.Delete(context.Background(), 2), acctshared.ErrAccountInUse)

	repo.referenced[4] = true
	assert.ErrorIs(t, svc.Delete(context.Background(), 4), acctshared.ErrAccountInUse)

	repo.referenced[4] = false
	require.NoError(t, svc.Delete(context.Background(), 4))
	_, ok := repo.accounts[4]
	assert.False(t, ok)
}

func TestManualNatureDerivedFromType(t *testing.T) {
	svc, _ := seededService()
	view, err := svc.SaveManual(context.Background(), 4, ManualInput{Description: " Sales of goods "})
	require.NoError(t, err)
	assert.Equal(t, SideCredit, view.Nature)
	assert.Equal(t, "Sales of goods", view.Manual.Description)
}
