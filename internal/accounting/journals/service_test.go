package journals

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

type memRepo struct {
	txs      map[int64]Transaction
	entries  map[int64]Entry
	periods  map[int64]PeriodRef
	accounts map[int64]AccountRef
	nextTx   int64
	nextLine int64
	trace    []string
}

func newMemRepo() *memRepo {
	return &memRepo{
		txs:     map[int64]Transaction{},
		entries: map[int64]Entry{},
		periods: map[int64]PeriodRef{
			1: {ID: 1, Name: "January", StartDate: date("2025-01-01"), EndDate: date("2025-01-31"), Open: true},
			2: {ID: 2, Name: "December", StartDate: date("2024-12-01"), EndDate: date("2024-12-31"), Open: false},
		},
		accounts: map[int64]AccountRef{
			1000: {ID: 1000, Code: "1000", Name: "Caja", AcceptsPostings: true, IsActive: true},
			4000: {ID: 4000, Code: "4000", Name: "Ventas", AcceptsPostings: true, IsActive: true},
			1:    {ID: 1, Code: "1", Name: "Activo", AcceptsPostings: false, IsActive: true},
			9999: {ID: 9999, Code: "9999", Name: "Old", AcceptsPostings: true, IsActive: false},
		},
	}
}

func date(s string) time.Time {
	d, err := acctshared.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// WithTx restores the previous state when fn fails, like a rollback.
func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	txs := make(map[int64]Transaction, len(m.txs))
	for k, v := range m.txs {
		txs[k] = v
	}
	entries := make(map[int64]Entry, len(m.entries))
	for k, v := range m.entries {
		entries[k] = v
	}
	if err := fn(ctx, m); err != nil {
		m.txs, m.entries = txs, entries
		return err
	}
	return nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (Transaction, error) {
	t, ok := m.txs[id]
	if !ok {
		return Transaction{}, acctshared.ErrTransactionNotFound
	}
	t.Entries, _ = m.Entries(ctx, id)
	return t, nil
}

func (m *memRepo) List(context.Context, ListFilters) ([]Transaction, int, error) {
	var out []Transaction
	for _, t := range m.txs {
		out = append(out, t)
	}
	return out, len(out), nil
}

func (m *memRepo) Summary(context.Context, *int64) (Summary, error) { return Summary{}, nil }

func (m *memRepo) FindBySourceRef(_ context.Context, ref string) (Transaction, error) {
	for _, t := range m.txs {
		if t.SourceRef != nil && *t.SourceRef == ref {
			return t, nil
		}
	}
	return Transaction{}, acctshared.ErrTransactionNotFound
}

func (m *memRepo) GetForUpdate(ctx context.Context, id int64) (Transaction, error) {
	m.trace = append(m.trace, fmt.Sprintf("lock tx %d", id))
	t, ok := m.txs[id]
	if !ok {
		return Transaction{}, acctshared.ErrTransactionNotFound
	}
	return t, nil
}

func (m *memRepo) GetEntryForUpdate(_ context.Context, id int64) (Entry, error) {
	m.trace = append(m.trace, fmt.Sprintf("lock entry %d", id))
	e, ok := m.entries[id]
	if !ok {
		return Entry{}, acctshared.ErrEntryNotFound
	}
	return e, nil
}

func (m *memRepo) EntryOwner(_ context.Context, id int64) (int64, error) {
	e, ok := m.entries[id]
	if !ok {
		return 0, acctshared.ErrEntryNotFound
	}
	return e.TransactionID, nil
}

func (m *memRepo) Touch(_ context.Context, id int64) error {
	m.trace = append(m.trace, fmt.Sprintf("touch tx %d", id))
	if _, ok := m.txs[id]; !ok {
		return acctshared.ErrTransactionNotFound
	}
	return nil
}

func (m *memRepo) Entries(_ context.Context, txID int64) ([]Entry, error) {
	var out []Entry
	for _, e := range m.entries {
		if e.TransactionID == txID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
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

func (m *memRepo) Insert(_ context.Context, t Transaction) (Transaction, error) {
	if t.SourceRef != nil {
		for _, existing := range m.txs {
			if existing.SourceRef != nil && *existing.SourceRef == *t.SourceRef {
				return Transaction{}, acctshared.ErrSourceAlreadyLinked
			}
		}
	}
	m.nextTx++
	t.ID = m.nextTx
	t.Status = StatusDraft
	m.txs[t.ID] = t
	return t, nil
}

func (m *memRepo) UpdateHeader(_ context.Context, t Transaction) (Transaction, error) {
	m.txs[t.ID] = t
	return t, nil
}

func (m *memRepo) InsertEntry(_ context.Context, e Entry) (Entry, error) {
	m.nextLine++
	e.ID = m.nextLine
	m.entries[e.ID] = e
	return e, nil
}

func (m *memRepo) UpdateEntry(_ context.Context, e Entry) (Entry, error) {
	m.entries[e.ID] = e
	return e, nil
}

func (m *memRepo) DeleteEntry(_ context.Context, id int64) error {
	delete(m.entries, id)
	return nil
}

func (m *memRepo) MarkPosted(_ context.Context, id int64, by string, at time.Time) error {
	t := m.txs[id]
	t.Status = StatusPosted
	t.PostedBy = &by
	t.PostedAt = &at
	m.txs[id] = t
	return nil
}

func (m *memRepo) MarkVoid(_ context.Context, id int64, reason string, at time.Time) error {
	t := m.txs[id]
	t.Status = StatusVoid
	t.VoidReason = reason
	t.VoidedAt = &at
	m.txs[id] = t
	return nil
}

type invalidations struct {
	periods []int64
}

func (i *invalidations) Invalidate(_ context.Context, periodID int64) error {
	i.periods = append(i.periods, periodID)
	return nil
}

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newDraft(t *testing.T, svc *Service) Transaction {
	t.Helper()
	tx, err := svc.CreateTransaction(context.Background(), TransactionInput{
		PeriodID:    1,
		Date:        "2025-01-15",
		Description: "Venta de contado",
		Type:        TypeIncome,
	})
	require.NoError(t, err)
	return tx
}

func TestCreateTransactionChecksPeriod(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)
	ctx := context.Background()

	tx := newDraft(t, svc)
	assert.Equal(t, StatusDraft, tx.Status)
	assert.Equal(t, "USD", tx.Currency)
	assert.Equal(t, KindManual, tx.Kind)

	_, err := svc.CreateTransaction(ctx, TransactionInput{PeriodID: 1, Date: "2025-02-01", Description: "late", Type: TypeExpense})
	assert.ErrorIs(t, err, acctshared.ErrDateOutOfRange)

	_, err = svc.CreateTransaction(ctx, TransactionInput{PeriodID: 2, Date: "2024-12-10", Description: "closed", Type: TypeExpense})
	assert.ErrorIs(t, err, acctshared.ErrPeriodClosed)

	_, err = svc.CreateTransaction(ctx, TransactionInput{PeriodID: 1, Date: "15/01/2025", Description: "bad", Type: TypeExpense})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestEntrySideRules(t *testing.T) {
	cases := []struct {
		name   string
		debit  string
		credit string
		want   error
	}{
		{"both sides", "10", "10", acctshared.ErrInvalidEntrySide},
		{"no side", "0", "0", acctshared.ErrInvalidEntrySide},
		{"negative", "-5", "0", acctshared.ErrNonPositiveAmount},
		{"debit only", "10.50", "0", nil},
		{"credit only", "0", "3", nil},
		{"fractions of cents", "1.001", "0", shared.ErrValidation},
		{"too large", "10000000000000000", "0", shared.ErrValidation},
		{"largest storable", "9999999999999999.99", "0", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateEntry(EntryInput{AccountID: 1000, Debit: amount(tc.debit), Credit: amount(tc.credit)})
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAddEntryRejectsNonPostableAccounts(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)
	ctx := context.Background()
	tx := newDraft(t, svc)

	for _, id := range []int64{1, 9999, 12345} {
		_, err := svc.AddEntry(ctx, tx.ID, EntryInput{AccountID: id, Debit: amount("1")})
		assert.ErrorIs(t, err, acctshared.ErrInvalidAccount, "account %d", id)
	}
}

func TestUnbalancedPostLeavesDraft(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()
	tx := newDraft(t, svc)

	_, err := svc.AddEntry(ctx, tx.ID, EntryInput{AccountID: 1000, Debit: amount("100")})
	require.NoError(t, err)
	_, err = svc.AddEntry(ctx, tx.ID, EntryInput{AccountID: 4000, Credit: amount("90")})
	require.NoError(t, err)

	_, err = svc.PostTransaction(ctx, tx.ID)
	require.ErrorIs(t, err, acctshared.ErrUnbalanced)
	var unbalanced *acctshared.UnbalancedError
	require.True(t, errors.As(err, &unbalanced))
	assert.True(t, unbalanced.Delta().Equal(amount("10")), "delta %s", unbalanced.Delta())

	got, err := svc.Get(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, got.Status)
	assert.Nil(t, got.PostedAt)

	// The lines stay editable, so the draft can be fixed and posted.
	require.Len(t, got.Entries, 2)
	_, err = svc.UpdateEntry(ctx, got.Entries[1].ID, EntryInput{AccountID: 4000, Credit: amount("100")})
	require.NoError(t, err)
	posted, err := svc.PostTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, posted.Status)
}

func TestEntryWritesLockTransactionFirstAndTouchIt(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()
	tx := newDraft(t, svc)

	repo.trace = nil
	line, err := svc.AddEntry(ctx, tx.ID, EntryInput{AccountID: 1000, Debit: amount("100")})
	require.NoError(t, err)
	want := []string{fmt.Sprintf("lock tx %d", tx.ID), fmt.Sprintf("touch tx %d", tx.ID)}
	assert.Equal(t, want, repo.trace)

	repo.trace = nil
	_, err = svc.UpdateEntry(ctx, line.ID, EntryInput{AccountID: 1000, Debit: amount("120")})
	require.NoError(t, err)
	want = []string{
		fmt.Sprintf("lock tx %d", tx.ID),
		fmt.Sprintf("lock entry %d", line.ID),
		fmt.Sprintf("touch tx %d", tx.ID),
	}
	assert.Equal(t, want, repo.trace)

	repo.trace = nil
	require.NoError(t, svc.DeleteEntry(ctx, line.ID))
	assert.Equal(t, want, repo.trace)
}

func TestPostRequiresTwoEntries(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)
	ctx := context.Background()
	tx := newDraft(t, svc)
	_, err := svc.AddEntry(ctx, tx.ID, EntryInput{AccountID: 1000, Debit: amount("100")})
	require.NoError(t, err)

	_, err = svc.PostTransaction(ctx, tx.ID)
	assert.ErrorIs(t, err, acctshared.ErrTooFewLines)
}

func TestPostedTransactionIsLocked(t *testing.T) {
	inv := &invalidations{}
	svc := NewService(newMemRepo(), nil, nil).WithInvalidator(inv)
	ctx := shared.ContextWithActor(context.Background(), shared.Actor{ID: 7, Name: "ana"})
	tx := newDraft(t, svc)

	debit, err := svc.AddEntry(ctx, tx.ID, EntryInput{AccountID: 1000, Debit: amount("100")})
	require.NoError(t, err)
	_, err = svc.AddEntry(ctx, tx.ID, EntryInput{AccountID: 4000, Credit: amount("100")})
	require.NoError(t, err)

	posted, err := svc.PostTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, posted.Status)
	require.NotNil(t, posted.PostedBy)
	assert.Equal(t, "ana", *posted.PostedBy)
	assert.Equal(t, []int64{1}, inv.periods)

	_, err = svc.AddEntry(ctx, tx.ID, EntryInput{AccountID: 1000, Debit: amount("1")})
	assert.ErrorIs(t, err, acctshared.ErrTransactionLocked)
	_, err = svc.UpdateEntry(ctx, debit.ID, EntryInput{AccountID: 1000, Debit: amount("50")})
	assert.ErrorIs(t, err, acctshared.ErrTransactionLocked)
	assert.ErrorIs(t, svc.DeleteEntry(ctx, debit.ID), acctshared.ErrTransactionLocked)
	_, err = svc.UpdateTransaction(ctx, tx.ID, TransactionUpdate{Date: "2025-01-16", Description: "x", Type: TypeIncome})
	assert.ErrorIs(t, err, acctshared.ErrTransactionLocked)
	_, err = svc.PostTransaction(ctx, tx.ID)
	assert.ErrorIs(t, err, acctshared.ErrTransactionLocked)
}

func TestVoidExcludesAndInvalidates(t *testing.T) {
	inv := &invalidations{}
	svc := NewService(newMemRepo(), nil, nil).WithInvalidator(inv)
	ctx := context.Background()

	posted, err := svc.PostBalanced(ctx, PostingInput{
		PeriodID:    1,
		Date:        date("2025-01-10"),
		Description: "Venta",
		Lines: []EntryInput{
			{AccountID: 1000, Debit: amount("100")},
			{AccountID: 4000, Credit: amount("100")},
		},
	})
	require.NoError(t, err)

	voided, err := svc.DeleteTransaction(ctx, posted.ID, "typo")
	require.NoError(t, err)
	assert.Equal(t, StatusVoid, voided.Status)
	assert.Equal(t, []int64{1, 1}, inv.periods)

	_, err = svc.DeleteTransaction(ctx, posted.ID, "again")
	assert.ErrorIs(t, err, acctshared.ErrInvalidStatus)
}

func TestPostBalancedIsIdempotentOnSource(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()
	in := PostingInput{
		PeriodID:    1,
		Date:        date("2025-01-20"),
		Description: "Factura F-000001",
		Kind:        KindInvoice,
		SourceRef:   "INVOICE:1",
		Lines: []EntryInput{
			{AccountID: 1000, Debit: amount("113")},
			{AccountID: 4000, Credit: amount("113")},
		},
	}
	first, err := svc.PostBalanced(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, first.Status)
	assert.Len(t, first.Entries, 2)

	_, err = svc.PostBalanced(ctx, in)
	assert.ErrorIs(t, err, acctshared.ErrSourceAlreadyLinked)
	assert.Len(t, repo.txs, 1)

	_, err = svc.DeleteTransaction(ctx, first.ID, "manual void")
	assert.ErrorIs(t, err, acctshared.ErrInvalidStatus, "generated postings are voided through their source")
	_, err = svc.VoidGenerated(ctx, first.ID, "invoice annulled")
	assert.NoError(t, err)
}

func TestPostBalancedRollsBackOnBadLine(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil)
	_, err := svc.PostBalanced(context.Background(), PostingInput{
		PeriodID:    1,
		Date:        date("2025-01-20"),
		Description: "bad account",
		Lines: []EntryInput{
			{AccountID: 1000, Debit: amount("5")},
			{AccountID: 1, Credit: amount("5")},
		},
	})
	assert.ErrorIs(t, err, acctshared.ErrInvalidAccount)
	assert.Empty(t, repo.txs)
	assert.Empty(t, repo.entries)
}
