package periods

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

type memRepo struct {
	periods map[int64]Period
	nextID  int64
	used    map[int64]bool
}

func newMemRepo() *memRepo {
	return &memRepo{periods: map[int64]Period{}, used: map[int64]bool{}}
}

func (m *memRepo) List(context.Context) ([]Period, error) {
	var out []Period
	for _, p := range m.periods {
		out = append(out, p)
	}
	return out, nil
}

func (m *memRepo) Get(_ context.Context, id int64) (Period, error) {
	p, ok := m.periods[id]
	if !ok {
		return Period{}, acctshared.ErrPeriodNotFound
	}
	return p, nil
}

func (m *memRepo) FindOpenPeriodByDate(_ context.Context, date time.Time) (Period, error) {
	for _, p := range m.periods {
		if p.IsOpen() && p.Contains(date) {
			return p, nil
		}
	}
	return Period{}, acctshared.ErrNoOpenPeriod
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memRepo) GetForUpdate(ctx context.Context, id int64) (Period, error) { return m.Get(ctx, id) }

func (m *memRepo) Overlapping(_ context.Context, start, end time.Time, excludeID int64) (*Period, error) {
	for _, p := range m.periods {
		if p.ID == excludeID {
			continue
		}
		if !start.After(p.EndDate) && !end.Before(p.StartDate) {
			return &p, nil
		}
	}
	return nil, nil
}

func (m *memRepo) Insert(_ context.Context, p Period) (Period, error) {
	m.nextID++
	p.ID = m.nextID
	m.periods[p.ID] = p
	return p, nil
}

func (m *memRepo) Update(_ context.Context, p Period) (Period, error) {
	m.periods[p.ID] = p
	return p, nil
}

func (m *memRepo) Close(_ context.Context, id int64, by string, at time.Time) (Period, error) {
	p := m.periods[id]
	p.Status = PeriodStatusClosed
	p.ClosedBy = &by
	p.ClosedAt = &at
	m.periods[id] = p
	return p, nil
}

func (m *memRepo) HasTransactions(_ context.Context, id int64) (bool, error) { return m.used[id], nil }

func TestCreateRejectsOverlapAndBadRange(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)
	ctx := context.Background()

	jan, err := svc.Create(ctx, PeriodInput{Name: "January", Type: PeriodTypeMonthly, StartDate: "2025-01-01", EndDate: "2025-01-31"})
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusOpen, jan.Status)

	_, err = svc.Create(ctx, PeriodInput{Name: "Q1", Type: PeriodTypeQuarterly, StartDate: "2025-01-31", EndDate: "2025-03-31"})
	assert.ErrorIs(t, err, acctshared.ErrPeriodOverlap, "shared boundary day overlaps")

	_, err = svc.Create(ctx, PeriodInput{Name: "Bad", Type: PeriodTypeMonthly, StartDate: "2025-03-01", EndDate: "2025-03-01"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(ctx, PeriodInput{Name: "February", Type: PeriodTypeMonthly, StartDate: "2025-02-01", EndDate: "2025-02-28"})
	require.NoError(t, err)
}

func TestCloseIsTerminal(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)
	ctx := shared.ContextWithActor(context.Background(), shared.Actor{ID: 1, Name: "ana"})

	p, err := svc.Create(ctx, PeriodInput{Name: "January", Type: PeriodTypeMonthly, StartDate: "2025-01-01", EndDate: "2025-01-31"})
	require.NoError(t, err)

	closed, err := svc.Close(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, PeriodStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedBy)
	assert.Equal(t, "ana", *closed.ClosedBy)

	_, err = svc.Close(ctx, p.ID)
	assert.ErrorIs(t, err, acctshared.ErrInvalidStatus)

	_, err = svc.Update(ctx, p.ID, UpdateInput{Name: "Renamed"})
	assert.ErrorIs(t, err, acctshared.ErrPeriodClosed)
}

func TestUpdateDatesOnlyWhileEmpty(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	p, err := svc.Create(ctx, PeriodInput{Name: "January", Type: PeriodTypeMonthly, StartDate: "2025-01-01", EndDate: "2025-01-31"})
	require.NoError(t, err)

	renamed, err := svc.Update(ctx, p.ID, UpdateInput{Name: "Jan 2025", StartDate: "2025-01-01", EndDate: "2025-01-31"})
	require.NoError(t, err)
	assert.Equal(t, "Jan 2025", renamed.Name)

	repo.used[p.ID] = true
	_, err = svc.Update(ctx, p.ID, UpdateInput{Name: "Jan 2025", EndDate: "2025-02-15"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCurrentUsesClock(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil).WithNow(func() time.Time {
		return time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	})
	ctx := context.Background()
	_, err := svc.Current(ctx)
	assert.ErrorIs(t, err, acctshared.ErrNoOpenPeriod)

	_, err = svc.Create(ctx, PeriodInput{Name: "January", Type: PeriodTypeMonthly, StartDate: "2025-01-01", EndDate: "2025-01-31"})
	require.NoError(t, err)
	current, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "January", current.Name)
}
