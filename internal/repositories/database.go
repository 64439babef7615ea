package repositories

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a row lookup matches nothing.
var ErrNotFound = errors.New("record not found")

// Database is the subset of pgxpool.Pool the repositories use. pgxmock pools
// satisfy it as well.
type Database interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func translateErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// mergeMetadata is the SQL expression folding the ProviderMetadata in param
// into the stored metadata column. Nested raw keys are merged, not replaced.
func mergeMetadata(param string) string {
	return `(metadata || (` + param + `::jsonb - 'raw')) || jsonb_build_object('raw', COALESCE(metadata->'raw', '{}'::jsonb) || COALESCE(` + param + `::jsonb->'raw', '{}'::jsonb))`
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
