package adapter

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driverstack-labs/drivertree/internal/binding"
)

func TestFetchColumn_SQLMock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT row_key, revenue FROM analytics\.sheet_sales ORDER BY row_key`).
		WillReturnRows(sqlmock.NewRows([]string{"row_key", "revenue"}).
			AddRow("2026-01", 100.5).
			AddRow("2026-02", nil).
			AddRow("2026-03", 200.0))

	rows, err := fetchColumn(context.Background(), db, "analytics", "sheet_sales", "revenue")
	require.NoError(t, err)

	// The NULL cell is skipped.
	assert.Equal(t, []binding.Row{
		{Key: "2026-01", Value: 100.5},
		{Key: "2026-03", Value: 200.0},
	}, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFetchColumn_RejectsUnsafeIdentifiers(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = fetchColumn(context.Background(), db, "", "sales; --", "revenue")
	assert.Error(t, err)

	_, err = fetchColumn(context.Background(), db, "", "sales", `rev" FROM x`)
	assert.Error(t, err)
}

func TestBuildPostgresDSN(t *testing.T) {
	dsn := buildPostgresDSN(Config{
		Host:     "db.internal",
		Port:     5432,
		Database: "analytics",
		Username: "svc",
		Password: "secret",
	})
	assert.Contains(t, dsn, "host=db.internal")
	assert.Contains(t, dsn, "port=5432")
	assert.Contains(t, dsn, "dbname=analytics")
	assert.Contains(t, dsn, "user=svc")
	assert.Contains(t, dsn, "password=secret")
}

func TestBuildPostgresDSN_OptionsDeterministic(t *testing.T) {
	cfg := Config{
		Host:     "db.internal",
		Database: "analytics",
		Options: map[string]string{
			"sslmode":          "require",
			"connect_timeout":  "5",
			"application_name": "drivertree",
		},
	}

	want := "host=db.internal dbname=analytics application_name=drivertree connect_timeout=5 sslmode=require"
	for i := 0; i < 20; i++ {
		assert.Equal(t, want, buildPostgresDSN(cfg))
	}
}
