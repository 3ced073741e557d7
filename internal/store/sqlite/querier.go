// Package sqlite is the SQLite-backed data-store collaborator. It turns
// a FilterSpec into one SELECT and materialises the rows by column name.
package sqlite

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"research-corev1/internal/model"
)

// Querier answers FilterSpec requests against one SQLite database.
type Querier struct {
	db *sqlx.DB
}

var _ model.Querier = (*Querier)(nil)

// Open opens a SQLite database for querying.
func Open(dbPath string) (*Querier, error) {
	db, err := sqlx.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	log.Printf("[sqlite-querier] opened %s", dbPath)
	return &Querier{db: db}, nil
}

// DB returns the underlying handle for health checks and seeding.
func (q *Querier) DB() *sqlx.DB { return q.db }

// Ping checks the connection.
func (q *Querier) Ping(ctx context.Context) error {
	return q.db.PingContext(ctx)
}

// Query runs spec against source and returns the ordered rows.
func (q *Querier) Query(ctx context.Context, source string, spec model.FilterSpec) (model.Table, error) {
	stmt, args, err := buildSelect(source, spec)
	if err != nil {
		return model.Table{}, err
	}
	rows, err := q.db.QueryxContext(ctx, stmt, args...)
	if err != nil {
		return model.Table{}, fmt.Errorf("sqlite query %s: %w", source, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return model.Table{}, fmt.Errorf("sqlite columns %s: %w", source, err)
	}
	tbl := model.Table{Columns: cols}
	for rows.Next() {
		r := make(map[string]any, len(cols))
		if err := rows.MapScan(r); err != nil {
			return model.Table{}, fmt.Errorf("sqlite scan %s: %w", source, err)
		}
		tbl.Rows = append(tbl.Rows, model.Row(r))
	}
	return tbl, rows.Err()
}

// Close closes the database.
func (q *Querier) Close() error {
	return q.db.Close()
}
