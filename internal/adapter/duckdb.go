package adapter

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/driverstack-labs/drivertree/internal/binding"
)

func init() {
	Register("duckdb", func() Adapter { return NewDuckDBAdapter() })
}

// DuckDBAdapter serves sheet data from a DuckDB database.
type DuckDBAdapter struct {
	db *sql.DB
}

// NewDuckDBAdapter creates a new DuckDB adapter instance.
func NewDuckDBAdapter() *DuckDBAdapter {
	return &DuckDBAdapter{}
}

// Connect opens the DuckDB database. An empty path means in-memory.
func (a *DuckDBAdapter) Connect(ctx context.Context, cfg Config) error {
	path := cfg.Path
	if path == ":memory:" {
		path = ""
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	a.db = db
	return nil
}

// Close closes the DuckDB connection.
func (a *DuckDBAdapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Exec executes a statement that returns no rows.
func (a *DuckDBAdapter) Exec(ctx context.Context, sqlStr string) error {
	if a.db == nil {
		return fmt.Errorf("database connection not established")
	}
	if _, err := a.db.ExecContext(ctx, sqlStr); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// FetchColumn returns the named column of a source table with its row
// keys, ordered by row key.
func (a *DuckDBAdapter) FetchColumn(ctx context.Context, sourceID, columnID string) ([]binding.Row, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	return fetchColumn(ctx, a.db, "", sourceID, columnID)
}

// Name returns the backend name.
func (a *DuckDBAdapter) Name() string { return "duckdb" }
