package reports

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	acctshared "github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/platform/db"
)

// SnapshotStore persists generated statements.
type SnapshotStore interface {
	Insert(ctx context.Context, s Snapshot) (Snapshot, error)
	List(ctx context.Context, periodID int64, kind Kind) ([]Snapshot, error)
	Get(ctx context.Context, id int64) (Snapshot, error)
}

type snapshotStore struct {
	pool *pgxpool.Pool
}

// NewSnapshotStore constructs the pgx backed store.
func NewSnapshotStore(pool *pgxpool.Pool) SnapshotStore {
	return &snapshotStore{pool: pool}
}

const snapshotColumns = `id, period_id, kind, payload, balanced, created_by, created_at`

func scanSnapshot(row pgx.Row) (Snapshot, error) {
	var s Snapshot
	var payload []byte
	err := row.Scan(&s.ID, &s.PeriodID, &s.Kind, &payload, &s.Balanced, &s.CreatedBy, &s.CreatedAt)
	s.Payload = payload
	return s, err
}

func (r *snapshotStore) Insert(ctx context.Context, s Snapshot) (Snapshot, error) {
	return scanSnapshot(r.pool.QueryRow(ctx, `INSERT INTO financial_statements (period_id, kind, payload, balanced, created_by)
VALUES ($1, $2, $3, $4, $5) RETURNING `+snapshotColumns, s.PeriodID, s.Kind, []byte(s.Payload), s.Balanced, s.CreatedBy))
}

func (r *snapshotStore) List(ctx context.Context, periodID int64, kind Kind) ([]Snapshot, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+snapshotColumns+` FROM financial_statements
WHERE period_id = $1 AND ($2 = '' OR kind = $2) ORDER BY created_at DESC, id DESC`, periodID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *snapshotStore) Get(ctx context.Context, id int64) (Snapshot, error) {
	s, err := scanSnapshot(r.pool.QueryRow(ctx, `SELECT `+snapshotColumns+` FROM financial_statements WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return Snapshot{}, fmt.Errorf("%w: id %d", acctshared.ErrSnapshotNotFound, id)
	}
	return s, err
}
