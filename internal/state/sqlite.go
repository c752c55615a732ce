package state

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // sqlite driver
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite state store instance.
func NewSQLiteStore(logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{logger: logger}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	// Foreign keys drive the cascade deletes; WAL for better concurrency.
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL", path)
	} else {
		dsn = ":memory:?_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// --- Tree operations ---

// CreateTree registers a new empty tree.
func (s *SQLiteStore) CreateTree(projectID, name string, isTemplate bool) (*TreeRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	now := time.Now().UTC()
	rec := &TreeRecord{
		ID:         generateID(),
		ProjectID:  projectID,
		Name:       name,
		IsTemplate: isTemplate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err := s.db.Exec(
		`INSERT INTO trees (id, project_id, name, is_template, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ProjectID, rec.Name, rec.IsTemplate, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tree: %w", err)
	}

	s.logger.Debug("created tree", "tree_id", rec.ID, "name", name)
	return rec, nil
}

// GetTree retrieves tree metadata by id.
func (s *SQLiteStore) GetTree(id string) (*TreeRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rec := &TreeRecord{}
	err := s.db.QueryRow(
		`SELECT id, project_id, name, is_template, created_at, updated_at FROM trees WHERE id = ?`,
		id,
	).Scan(&rec.ID, &rec.ProjectID, &rec.Name, &rec.IsTemplate, &rec.CreatedAt, &rec.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tree not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tree: %w", err)
	}
	return rec, nil
}

// ListTrees retrieves all tree records ordered by creation time.
func (s *SQLiteStore) ListTrees() ([]*TreeRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	rows, err := s.db.Query(
		`SELECT id, project_id, name, is_template, created_at, updated_at FROM trees ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list trees: %w", err)
	}
	defer rows.Close()

	var out []*TreeRecord
	for rows.Next() {
		rec := &TreeRecord{}
		if err := rows.Scan(&rec.ID, &rec.ProjectID, &rec.Name, &rec.IsTemplate, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tree: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteTree deletes a tree; foreign keys cascade to nodes,
// relationships and policies.
func (s *SQLiteStore) DeleteTree(id string) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	result, err := s.db.Exec(`DELETE FROM trees WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tree: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("tree not found: %s", id)
	}
	return nil
}

// touchTree bumps a tree's updated_at inside a transaction.
func touchTree(tx *sql.Tx, treeID string) error {
	_, err := tx.Exec(`UPDATE trees SET updated_at = ? WHERE id = ?`, time.Now().UTC(), treeID)
	return err
}

// nextPosition returns the next creation-order position for a table
// scoped to one tree.
func nextPosition(tx *sql.Tx, table, treeID string) (int, error) {
	var pos int
	err := tx.QueryRow(
		`SELECT COALESCE(MAX(position) + 1, 0) FROM `+table+` WHERE tree_id = ?`, treeID,
	).Scan(&pos)
	return pos, err
}
