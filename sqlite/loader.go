// Package sqlite loads query sources from SQL databases. Result sets are read
// eagerly into rows that keep the column order of the SELECT.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/asaidimu/rowql/core/row"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Querier abstracts the query method shared by *sql.DB, *sql.Conn and
// *sql.Tx so that rows can be loaded inside or outside a transaction.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Loader runs SELECT statements and returns their results as rows.
type Loader struct {
	db     Querier
	logger *zap.Logger
}

// NewLoader creates a Loader. A nil logger disables logging.
func NewLoader(db Querier, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{db: db, logger: logger}
}

// Open opens the SQLite database at path, or an in-memory database for
// ":memory:". An in-memory database lives on a single connection, so the pool
// is capped at one.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %q: %w", path, err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite database %q: %w", path, err)
	}
	return db, nil
}

// LoadRows runs query against db and returns every result row.
func LoadRows(ctx context.Context, db Querier, query string, args ...any) ([]row.Row, error) {
	return NewLoader(db, nil).Load(ctx, query, args...)
}

// Load runs query and returns every result row.
func (l *Loader) Load(ctx context.Context, query string, args ...any) ([]row.Row, error) {
	l.logger.Debug("Loading rows", zap.String("query", query), zap.Any("args", args))
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	results, err := readRows(l.logger, rows)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("Rows loaded", zap.Int("count", len(results)))
	return results, nil
}

// readRows reads all rows from a *sql.Rows object into ordered rows, keyed by
// column name. Text returned as bytes becomes a string and integer columns
// declared BOOLEAN become bools.
func readRows(logger *zap.Logger, rows *sql.Rows) ([]row.Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	declared := make([]string, len(columns))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			declared[i] = strings.ToUpper(ct.DatabaseTypeName())
		}
	} else {
		logger.Warn("Column types unavailable, using raw values", zap.Error(err))
	}

	results := []row.Row{}
	for rows.Next() {
		values := make([]any, len(columns))
		scanArgs := make([]any, len(columns))
		for i := range values {
			scanArgs[i] = &values[i]
		}

		if err := rows.Scan(scanArgs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		b := row.NewBuilder(len(columns))
		for i, col := range columns {
			b.Set(col, convertValue(declared[i], values[i]))
		}
		results = append(results, b.Row())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return results, nil
}

func convertValue(declared string, val any) any {
	switch v := val.(type) {
	case []byte:
		if declared == "BLOB" {
			return append([]byte(nil), v...)
		}
		return string(v)
	case int64:
		if declared == "BOOLEAN" || declared == "BOOL" {
			return v != 0
		}
	}
	return val
}
