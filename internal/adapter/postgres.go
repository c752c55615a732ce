package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver

	"github.com/driverstack-labs/drivertree/internal/binding"
)

func init() {
	Register("postgres", func() Adapter { return NewPostgresAdapter() })
}

// PostgresAdapter serves sheet data from a PostgreSQL database.
type PostgresAdapter struct {
	db     *sql.DB
	schema string
}

// NewPostgresAdapter creates a new Postgres adapter instance.
func NewPostgresAdapter() *PostgresAdapter {
	return &PostgresAdapter{}
}

// Connect establishes a connection to PostgreSQL.
func (a *PostgresAdapter) Connect(ctx context.Context, cfg Config) error {
	dsn := buildPostgresDSN(cfg)

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.db = db
	a.schema = cfg.Schema
	return nil
}

// Close closes the Postgres connection.
func (a *PostgresAdapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Exec executes a statement that returns no rows.
func (a *PostgresAdapter) Exec(ctx context.Context, sqlStr string) error {
	if a.db == nil {
		return fmt.Errorf("database connection not established")
	}
	if _, err := a.db.ExecContext(ctx, sqlStr); err != nil {
		return fmt.Errorf("failed to execute SQL: %w", err)
	}
	return nil
}

// FetchColumn returns the named column of a source table with its row
// keys, ordered by row key. Tables are schema-qualified when the target
// config names a schema.
func (a *PostgresAdapter) FetchColumn(ctx context.Context, sourceID, columnID string) ([]binding.Row, error) {
	if a.db == nil {
		return nil, fmt.Errorf("database connection not established")
	}
	return fetchColumn(ctx, a.db, a.schema, sourceID, columnID)
}

// Name returns the backend name.
func (a *PostgresAdapter) Name() string { return "postgres" }

// buildPostgresDSN assembles a keyword/value DSN from the config.
func buildPostgresDSN(cfg Config) string {
	var parts []string
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, fmt.Sprintf("%s=%s", k, v))
		}
	}
	add("host", cfg.Host)
	if cfg.Port != 0 {
		parts = append(parts, fmt.Sprintf("port=%d", cfg.Port))
	}
	add("dbname", cfg.Database)
	add("user", cfg.Username)
	add("password", cfg.Password)
	keys := make([]string, 0, len(cfg.Options))
	for k := range cfg.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		add(k, cfg.Options[k])
	}
	return strings.Join(parts, " ")
}
