package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"NewsDigest/internal/ports"
)

const (
	seenTable = "seen_items"
	idChunk   = 500
)

var schemas = map[string]string{
	"sqlite": `CREATE TABLE IF NOT EXISTS seen_items (
		id      TEXT PRIMARY KEY,
		seen_at TIMESTAMP NOT NULL
	)`,
	"postgres": `CREATE TABLE IF NOT EXISTS seen_items (
		id      TEXT PRIMARY KEY,
		seen_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// SQLLedger records delivered item ids in SQLite or Postgres.
type SQLLedger struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.Ledger = (*SQLLedger)(nil)

// Open connects with driver ("sqlite" or "postgres") and creates the table.
func Open(ctx context.Context, driver, dsn string) (*SQLLedger, error) {
	if _, ok := schemas[driver]; !ok {
		return nil, fmt.Errorf("unsupported ledger driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	l, err := NewSQLLedger(ctx, db, driver)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// NewSQLLedger wires an existing sql.DB and ensures the schema exists.
func NewSQLLedger(ctx context.Context, db *sql.DB, driver string) (*SQLLedger, error) {
	schema, ok := schemas[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported ledger driver %q", driver)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("create %s: %w", seenTable, err)
	}
	return &SQLLedger{db: db, builder: sq.StatementBuilder.PlaceholderFormat(placeholderFor(driver))}, nil
}

func placeholderFor(driver string) sq.PlaceholderFormat {
	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == "postgres" {
		placeholder = sq.Dollar
	}
	return placeholder
}

// AlreadySeen returns a map with IDs that already exist in storage.
func (l *SQLLedger) AlreadySeen(ctx context.Context, ids []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if l == nil || l.db == nil || len(ids) == 0 {
		return result, nil
	}

	for start := 0; start < len(ids); start += idChunk {
		part := ids[start:min(start+idChunk, len(ids))]
		query, args, err := l.builder.Select("id").From(seenTable).Where(sq.Eq{"id": part}).ToSql()
		if err != nil {
			return nil, fmt.Errorf("build seen query: %w", err)
		}
		if err := l.collect(ctx, query, args, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (l *SQLLedger) collect(ctx context.Context, query string, args []any, into map[string]bool) error {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query seen: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan id: %w", err)
		}
		into[id] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows iteration: %w", err)
	}
	return nil
}

// MarkSeen stores ids as delivered at the given time. Known ids are kept
// with their original timestamp.
func (l *SQLLedger) MarkSeen(ctx context.Context, ids []string, at time.Time) error {
	if l == nil || l.db == nil || len(ids) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mark seen: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for start := 0; start < len(ids); start += idChunk {
		insert := l.builder.Insert(seenTable).Columns("id", "seen_at")
		for _, id := range ids[start:min(start+idChunk, len(ids))] {
			insert = insert.Values(id, at.UTC())
		}
		query, args, err := insert.Suffix("ON CONFLICT (id) DO NOTHING").ToSql()
		if err != nil {
			return fmt.Errorf("build mark seen: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert seen: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mark seen: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (l *SQLLedger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}
