package mappings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerbook/ledgerbook/internal/accounting/shared"
	"github.com/ledgerbook/ledgerbook/internal/platform/db"
)

// Repository reads and writes account mappings.
type Repository interface {
	Get(ctx context.Context, module, key string) (AccountMapping, error)
	List(ctx context.Context, module string) ([]AccountMapping, error)
	Upsert(ctx context.Context, module, key string, accountID int64) (AccountMapping, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the pgx backed mapping repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectMapping = `SELECT m.module, m.key, m.account_id, a.code, a.name, m.updated_at
FROM account_mappings m JOIN accounts a ON a.id = m.account_id`

func scanMapping(row pgx.Row) (AccountMapping, error) {
	var m AccountMapping
	err := row.Scan(&m.Module, &m.Key, &m.AccountID, &m.AccountCode, &m.AccountName, &m.UpdatedAt)
	return m, err
}

// Get resolves an account mapping for the specified key.
func (r *repository) Get(ctx context.Context, module, key string) (AccountMapping, error) {
	if module == "" || key == "" {
		return AccountMapping{}, errors.New("accounting: module and key required")
	}
	m, err := scanMapping(db.Querier(ctx, r.pool).QueryRow(ctx, selectMapping+` WHERE m.module = $1 AND m.key = $2`,
		strings.ToUpper(module), key))
	if err != nil {
		if db.IsNoRows(err) {
			return AccountMapping{}, fmt.Errorf("%w: %s/%s", shared.ErrMappingNotFound, module, key)
		}
		return AccountMapping{}, err
	}
	return m, nil
}

// List returns the mappings of a module, or every mapping when module is empty.
func (r *repository) List(ctx context.Context, module string) ([]AccountMapping, error) {
	rows, err := r.pool.Query(ctx, selectMapping+` WHERE ($1 = '' OR m.module = $1) ORDER BY m.module, m.key`,
		strings.ToUpper(module))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountMapping
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Upsert points module/key at accountID.
func (r *repository) Upsert(ctx context.Context, module, key string, accountID int64) (AccountMapping, error) {
	module = strings.ToUpper(module)
	_, err := db.Querier(ctx, r.pool).Exec(ctx, `INSERT INTO account_mappings (module, key, account_id)
VALUES ($1, $2, $3)
ON CONFLICT (module, key) DO UPDATE SET account_id = EXCLUDED.account_id, updated_at = NOW()`, module, key, accountID)
	if err != nil {
		return AccountMapping{}, err
	}
	return r.Get(ctx, module, key)
}
