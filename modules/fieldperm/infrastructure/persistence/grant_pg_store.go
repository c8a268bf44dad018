package persistence

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
)

type pgBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// GrantPGStore answers static-grant lookups from the fieldperm.grants
// table. Rows are tenant-scoped via the app.current_tenant GUC.
type GrantPGStore struct {
	pool     pgBeginner
	tenantID string
}

func NewGrantPGStore(pool pgBeginner, tenantID string) *GrantPGStore {
	return &GrantPGStore{pool: pool, tenantID: strings.TrimSpace(tenantID)}
}

func (s *GrantPGStore) Holds(ctx context.Context, subjectID string, label string) (bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_tenant', $1, true);`, s.tenantID); err != nil {
		return false, err
	}

	var held bool
	if err := tx.QueryRow(ctx, `
SELECT EXISTS (
  SELECT 1
  FROM fieldperm.grants
  WHERE subject_id = $1
    AND label = $2
)
`, strings.TrimSpace(subjectID), strings.TrimSpace(label)).Scan(&held); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return held, nil
}

// ListLabels returns every grant label the subject holds, for capability
// reporting. Order is stable.
func (s *GrantPGStore) ListLabels(ctx context.Context, subjectID string) ([]string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_tenant', $1, true);`, s.tenantID); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
SELECT label
FROM fieldperm.grants
WHERE subject_id = $1
ORDER BY label
`, strings.TrimSpace(subjectID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		out = append(out, label)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}
