package invoices

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerbook/ledgerbook/internal/invoicing/clients"
	"github.com/ledgerbook/ledgerbook/internal/invoicing/products"
	invshared "github.com/ledgerbook/ledgerbook/internal/invoicing/shared"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

type memRepo struct {
	invoices map[int64]Invoice
	seq      int64
}

func newMemRepo() *memRepo {
	return &memRepo{invoices: map[int64]Invoice{}}
}

func (m *memRepo) Get(_ context.Context, id int64) (Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return Invoice{}, fmt.Errorf("%w: id %d", invshared.ErrInvoiceNotFound, id)
	}
	return inv, nil
}

func (m *memRepo) List(context.Context, ListFilters) ([]Invoice, int, error) { return nil, 0, nil }

func (m *memRepo) ListWithLines(context.Context, time.Time, time.Time, int64) ([]Invoice, error) {
	return nil, nil
}

func (m *memRepo) ListCollectible(context.Context) ([]Invoice, error) { return nil, nil }

func (m *memRepo) Outstanding(_ context.Context, clientID int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, inv := range m.invoices {
		if inv.ClientID == clientID && inv.Status.Collectible() {
			total = total.Add(inv.Total)
		}
	}
	return total, nil
}

func (m *memRepo) MarkOverdue(_ context.Context, asOf time.Time) (int64, error) {
	var n int64
	for id, inv := range m.invoices {
		if inv.Status == StatusIssued && inv.DueDate.Before(asOf) {
			inv.Status = StatusOverdue
			m.invoices[id] = inv
			n++
		}
	}
	return n, nil
}

// WithTx snapshots the store and restores it when fn fails.
func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	saved := make(map[int64]Invoice, len(m.invoices))
	for k, v := range m.invoices {
		saved[k] = v
	}
	seq := m.seq
	if err := fn(ctx, m); err != nil {
		m.invoices, m.seq = saved, seq
		return err
	}
	return nil
}

func (m *memRepo) NextNumber(context.Context) (string, error) {
	m.seq++
	return FormatNumber(m.seq), nil
}

func (m *memRepo) Insert(_ context.Context, inv Invoice) (Invoice, error) {
	inv.ID = int64(len(m.invoices) + 1)
	inv.Lines = nil
	m.invoices[inv.ID] = inv
	return inv, nil
}

func (m *memRepo) InsertLine(_ context.Context, l Line) (Line, error) {
	inv := m.invoices[l.InvoiceID]
	l.ID = int64(len(inv.Lines) + 1)
	inv.Lines = append(inv.Lines, l)
	m.invoices[l.InvoiceID] = inv
	return l, nil
}

func (m *memRepo) GetForUpdate(ctx context.Context, id int64) (Invoice, error) {
	return m.Get(ctx, id)
}

func (m *memRepo) MarkIssued(_ context.Context, id, txID int64, at time.Time) error {
	inv := m.invoices[id]
	inv.Status, inv.TransactionID, inv.IssuedAt = StatusIssued, &txID, &at
	m.invoices[id] = inv
	return nil
}

func (m *memRepo) MarkPaid(_ context.Context, id, txID int64, method string, at time.Time) error {
	inv := m.invoices[id]
	inv.Status, inv.PaymentTransactionID, inv.PaymentMethod, inv.PaidAt = StatusPaid, &txID, method, &at
	m.invoices[id] = inv
	return nil
}

func (m *memRepo) MarkVoid(_ context.Context, id int64, reason string, at time.Time) error {
	inv := m.invoices[id]
	inv.Status, inv.VoidReason, inv.VoidedAt = StatusVoid, reason, &at
	m.invoices[id] = inv
	return nil
}

type stubClients map[int64]clients.Client

func (s stubClients) Get(_ context.Context, id int64) (clients.Client, error) {
	c, ok := s[id]
	if !ok {
		return clients.Client{}, invshared.ErrClientNotFound
	}
	return c, nil
}

type stubProducts map[int64]products.Product

func (s stubProducts) Get(_ context.Context, id int64) (products.Product, error) {
	p, ok := s[id]
	if !ok {
		return products.Product{}, invshared.ErrProductNotFound
	}
	return p, nil
}

type fakeLedger struct {
	confirmed []int64
	payments  []int64
	annulled  []int64
	fail      error
}

func (f *fakeLedger) ConfirmInvoice(_ context.Context, inv Invoice) (int64, error) {
	if f.fail != nil {
		return 0, f.fail
	}
	f.confirmed = append(f.confirmed, inv.ID)
	return 100 + inv.ID, nil
}

func (f *fakeLedger) RecordPayment(_ context.Context, inv Invoice, _ time.Time, _ string) (int64, error) {
	f.payments = append(f.payments, inv.ID)
	return 200 + inv.ID, nil
}

func (f *fakeLedger) AnnulInvoice(_ context.Context, inv Invoice, _ string) error {
	f.annulled = append(f.annulled, inv.ID)
	return nil
}

func fixture() (*Service, *memRepo, *fakeLedger) {
	repo := newMemRepo()
	ledger := &fakeLedger{}
	cs := stubClients{
		1: {ID: 1, Code: "CLI-001", Name: "Ferretería Central", CreditDays: 30, IsActive: true},
		2: {ID: 2, Code: "CLI-002", Name: "Baja", CreditDays: 30, IsActive: false},
		3: {ID: 3, Code: "CLI-003", Name: "Limitado", CreditDays: 15, CreditLimit: dec("200"), IsActive: true},
	}
	ps := stubProducts{
		1: {ID: 1, Code: "P-001", Name: "Martillo", UnitPrice: dec("50"), Taxable: true, TaxRate: dec("13"), IsActive: true},
		2: {ID: 2, Code: "S-001", Name: "Instalación", UnitPrice: dec("80"), Taxable: false, TaxRate: dec("13"), IsActive: true},
	}
	now := func() time.Time { return day("2025-01-20") }
	svc := NewService(repo, cs, ps, ledger, nil, nil).WithNow(now)
	return svc, repo, ledger
}

func draft(t *testing.T, svc *Service) Invoice {
	t.Helper()
	inv, err := svc.Create(context.Background(), Input{
		ClientID:  1,
		IssueDate: "2025-01-10",
		Lines: []LineInput{
			{ProductID: 1, Quantity: dec("2"), DiscountPct: dec("10")},
			{ProductID: 2, Quantity: dec("1")},
		},
	})
	require.NoError(t, err)
	return inv
}

func TestCreateDerivesTotals(t *testing.T) {
	svc, _, _ := fixture()
	inv := draft(t, svc)

	require.Equal(t, "F-000001", inv.Number)
	require.Equal(t, StatusDraft, inv.Status)
	require.Equal(t, day("2025-02-09"), inv.DueDate)
	require.Len(t, inv.Lines, 2)
	require.Equal(t, "Martillo", inv.Lines[0].Description)

	// 2 x 50 = 100, 10% off = 90, 13% tax = 11.70; service 80 untaxed
	require.True(t, inv.Subtotal.Equal(dec("180")), inv.Subtotal.String())
	require.True(t, inv.Discount.Equal(dec("10")), inv.Discount.String())
	require.True(t, inv.Tax.Equal(dec("11.70")), inv.Tax.String())
	require.True(t, inv.Total.Equal(dec("181.70")), inv.Total.String())
	require.True(t, inv.Net().Add(inv.Tax).Equal(inv.Total))
}

func TestCreateRejections(t *testing.T) {
	svc, _, _ := fixture()
	ctx := context.Background()

	_, err := svc.Create(ctx, Input{ClientID: 2, IssueDate: "2025-01-10", Lines: []LineInput{{ProductID: 1, Quantity: dec("1")}}})
	require.ErrorIs(t, err, invshared.ErrInactive)

	_, err = svc.Create(ctx, Input{ClientID: 1, IssueDate: "2025-01-10", Lines: []LineInput{{ProductID: 1, Quantity: dec("0")}}})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, Input{ClientID: 1, IssueDate: "2025-01-10", DueDate: "2025-01-01", Lines: []LineInput{{ProductID: 1, Quantity: dec("1")}}})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, Input{ClientID: 1, IssueDate: "2025-01-10", Lines: []LineInput{{ProductID: 9, Quantity: dec("1")}}})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestBuildLineRejectsUnstorablePrecision(t *testing.T) {
	product := products.Product{ID: 1, Code: "P-1", Name: "Martillo", UnitPrice: dec("100"), Taxable: true, TaxRate: dec("13")}

	cases := []struct {
		name  string
		in    LineInput
		field string
	}{
		{"quantity with three decimals", LineInput{ProductID: 1, Quantity: dec("1.005")}, "quantity"},
		{"quantity rounding to zero", LineInput{ProductID: 1, Quantity: dec("0.001")}, "quantity"},
		{"discount with three decimals", LineInput{ProductID: 1, Quantity: dec("1"), DiscountPct: dec("12.345")}, "discount_pct"},
		{"quantity out of range", LineInput{ProductID: 1, Quantity: dec("10000000000000000")}, "quantity"},
		{"total out of range", LineInput{ProductID: 1, Quantity: dec("1000000000000000")}, "quantity"},
	}
	for _, tc := range cases {
		_, err := BuildLine(product, tc.in)
		require.ErrorIs(t, err, shared.ErrValidation, tc.name)
		var verr *shared.ValidationError
		require.True(t, errors.As(err, &verr), tc.name)
		require.Contains(t, verr.Fields, tc.field, tc.name)
	}

	line, err := BuildLine(product, LineInput{ProductID: 1, Quantity: dec("1.25"), DiscountPct: dec("12.5")})
	require.NoError(t, err)
	require.True(t, line.Subtotal.Equal(line.Quantity.Mul(line.UnitPrice)), line.Subtotal.String())
}

func TestCreditLimitCountsOutstandingInvoices(t *testing.T) {
	svc, _, _ := fixture()
	ctx := context.Background()
	in := Input{ClientID: 3, IssueDate: "2025-01-10", Lines: []LineInput{{ProductID: 2, Quantity: dec("2")}}}

	first, err := svc.Create(ctx, in)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, first.ID)
	require.NoError(t, err)

	_, err = svc.Create(ctx, in)
	require.ErrorIs(t, err, invshared.ErrCreditLimit)
}

func TestConfirmPostsOnce(t *testing.T) {
	svc, _, ledger := fixture()
	inv := draft(t, svc)

	issued, err := svc.Confirm(context.Background(), inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusIssued, issued.Status)
	require.NotNil(t, issued.TransactionID)
	require.Equal(t, int64(101), *issued.TransactionID)

	_, err = svc.Confirm(context.Background(), inv.ID)
	require.ErrorIs(t, err, invshared.ErrInvalidStatus)
	require.Equal(t, []int64{inv.ID}, ledger.confirmed)
}

func TestConfirmLedgerFailureKeepsDraft(t *testing.T) {
	svc, repo, ledger := fixture()
	inv := draft(t, svc)
	ledger.fail = errors.New("no open period")

	_, err := svc.Confirm(context.Background(), inv.ID)
	require.Error(t, err)
	require.Equal(t, StatusDraft, repo.invoices[inv.ID].Status)
}

func TestPayAndAnnul(t *testing.T) {
	svc, _, ledger := fixture()
	ctx := context.Background()
	inv := draft(t, svc)

	_, err := svc.Pay(ctx, inv.ID, PayInput{Method: "CASH"})
	require.ErrorIs(t, err, invshared.ErrInvalidStatus)

	_, err = svc.Confirm(ctx, inv.ID)
	require.NoError(t, err)
	_, err = svc.Pay(ctx, inv.ID, PayInput{Date: "2025-01-05", Method: "CASH"})
	require.ErrorIs(t, err, shared.ErrValidation)

	paid, err := svc.Pay(ctx, inv.ID, PayInput{Method: "transfer"})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, paid.Status)
	require.Equal(t, "TRANSFER", paid.PaymentMethod)
	require.Equal(t, []int64{inv.ID}, ledger.payments)

	_, err = svc.Annul(ctx, inv.ID, "")
	require.ErrorIs(t, err, shared.ErrValidation)
	void, err := svc.Annul(ctx, inv.ID, "wrong client")
	require.NoError(t, err)
	require.Equal(t, StatusVoid, void.Status)
	require.Equal(t, []int64{inv.ID}, ledger.annulled)

	_, err = svc.Annul(ctx, inv.ID, "again")
	require.ErrorIs(t, err, invshared.ErrInvalidStatus)
}

func TestAnnulDraftSkipsLedger(t *testing.T) {
	svc, _, ledger := fixture()
	inv := draft(t, svc)
	_, err := svc.Annul(context.Background(), inv.ID, "typo")
	require.NoError(t, err)
	require.Empty(t, ledger.annulled)
}

func TestMarkOverdue(t *testing.T) {
	svc, repo, _ := fixture()
	ctx := context.Background()
	inv := draft(t, svc)
	_, err := svc.Confirm(ctx, inv.ID)
	require.NoError(t, err)

	n, err := svc.MarkOverdue(ctx, day("2025-02-09"))
	require.NoError(t, err)
	require.Zero(t, n)

	n, err = svc.MarkOverdue(ctx, day("2025-02-10"))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
	require.Equal(t, StatusOverdue, repo.invoices[inv.ID].Status)

	_, err = svc.Pay(ctx, inv.ID, PayInput{Method: "CASH"})
	require.NoError(t, err)
}

func TestBuildReceivablesBuckets(t *testing.T) {
	asOf := day("2025-06-30")
	mk := func(id int64, due string, total string, status Status) Invoice {
		return Invoice{ID: id, Number: FormatNumber(id), DueDate: day(due), Total: dec(total), Status: status}
	}
	report := BuildReceivables(asOf, []Invoice{
		mk(1, "2025-07-15", "100", StatusIssued),
		mk(2, "2025-06-10", "200", StatusOverdue),
		mk(3, "2025-05-10", "300", StatusOverdue),
		mk(4, "2025-04-15", "400", StatusOverdue),
		mk(5, "2025-01-01", "500", StatusOverdue),
		mk(6, "2025-01-01", "999", StatusPaid),
	})
	require.True(t, report.Buckets.Current.Equal(dec("100")))
	require.True(t, report.Buckets.Days30.Equal(dec("200")))
	require.True(t, report.Buckets.Days60.Equal(dec("300")))
	require.True(t, report.Buckets.Days90.Equal(dec("400")))
	require.True(t, report.Buckets.Over90.Equal(dec("500")))
	require.True(t, report.Total.Equal(dec("1500")))
	require.Len(t, report.Items, 5)
	require.Equal(t, BucketOver90, report.Items[0].Bucket)
	require.Equal(t, 0, report.Items[4].DaysOverdue)
}

func TestBuildSalesReport(t *testing.T) {
	invoices := []Invoice{
		{ID: 1, ClientID: 1, ClientCode: "A", Status: StatusPaid, Subtotal: dec("100"), Tax: dec("13"), Total: dec("113"),
			Lines: []Line{{ProductID: 1, ProductCode: "P1", Quantity: dec("2"), Total: dec("113")}}},
		{ID: 2, ClientID: 2, ClientCode: "B", Status: StatusIssued, Subtotal: dec("200"), Total: dec("200"),
			Lines: []Line{{ProductID: 2, ProductCode: "P2", Quantity: dec("1"), Total: dec("200")}}},
		{ID: 3, ClientID: 1, ClientCode: "A", Status: StatusVoid, Subtotal: dec("999"), Total: dec("999")},
	}
	report := BuildSalesReport(day("2025-01-01"), day("2025-01-31"), invoices)
	require.Equal(t, 2, report.Invoices)
	require.True(t, report.Total.Equal(dec("313")))
	require.True(t, report.Average.Equal(dec("156.5")))
	require.Equal(t, "B", report.ByClient[0].ClientCode)
	require.Equal(t, "P2", report.TopProducts[0].ProductCode)
}
