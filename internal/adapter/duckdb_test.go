package adapter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driverstack-labs/drivertree/internal/binding"
)

func setupDuckDB(t *testing.T) *DuckDBAdapter {
	t.Helper()
	a := NewDuckDBAdapter()
	require.NoError(t, a.Connect(context.Background(), Config{Type: "duckdb", Path: ":memory:"}))
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestDuckDBAdapter_FetchColumn(t *testing.T) {
	a := setupDuckDB(t)
	ctx := context.Background()

	require.NoError(t, a.Exec(ctx, `CREATE TABLE sheet_sales (row_key VARCHAR, revenue DOUBLE, units DOUBLE)`))
	require.NoError(t, a.Exec(ctx, `INSERT INTO sheet_sales VALUES
		('2026-02', 200, 4),
		('2026-01', 100, 2),
		('2026-03', NULL, 6)`))

	rows, err := a.FetchColumn(ctx, "sheet_sales", "revenue")
	require.NoError(t, err)
	assert.Equal(t, []binding.Row{
		{Key: "2026-01", Value: 100},
		{Key: "2026-02", Value: 200},
	}, rows, "rows ordered by row_key, NULLs skipped")

	units, err := a.FetchColumn(ctx, "sheet_sales", "units")
	require.NoError(t, err)
	assert.Len(t, units, 3)
}

func TestDuckDBAdapter_FetchColumn_MissingSource(t *testing.T) {
	a := setupDuckDB(t)

	_, err := a.FetchColumn(context.Background(), "no_such_sheet", "revenue")
	assert.Error(t, err)
}

func TestDuckDBAdapter_NotConnected(t *testing.T) {
	a := NewDuckDBAdapter()
	_, err := a.FetchColumn(context.Background(), "s", "c")
	assert.Error(t, err)
	assert.NoError(t, a.Close(), "closing an unconnected adapter is a no-op")
}
