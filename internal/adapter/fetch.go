package adapter

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/driverstack-labs/drivertree/internal/binding"
)

// fetchColumn runs the shared column query against a database/sql
// connection. Identifiers are validated, not quoted; schema may be empty.
func fetchColumn(ctx context.Context, db *sql.DB, schema, sourceID, columnID string) ([]binding.Row, error) {
	if err := validIdent(sourceID); err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	if err := validIdent(columnID); err != nil {
		return nil, fmt.Errorf("column: %w", err)
	}

	table := sourceID
	if schema != "" {
		if err := validIdent(schema); err != nil {
			return nil, fmt.Errorf("schema: %w", err)
		}
		table = schema + "." + sourceID
	}

	query := fmt.Sprintf("SELECT %s, %s FROM %s ORDER BY %s",
		rowKeyColumn, columnID, table, rowKeyColumn)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query column: %w", err)
	}
	defer rows.Close()

	var out []binding.Row
	for rows.Next() {
		var key string
		var value sql.NullFloat64
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		// NULL cells contribute nothing rather than poisoning aggregates.
		if !value.Valid {
			continue
		}
		out = append(out, binding.Row{Key: key, Value: value.Float64})
	}
	return out, rows.Err()
}
