// Package adapter provides the tabular-data collaborators the binding
// resolver fetches external columns from. Sources are database tables
// carrying a row_key ordering column; each adapter implements the
// column-fetch contract for one backend.
package adapter

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/driverstack-labs/drivertree/internal/binding"
)

// Config holds the configuration for connecting to a tabular source.
type Config struct {
	// Type specifies the backend type (e.g., "duckdb", "postgres")
	Type string

	// Path is the file path for file-based backends.
	// Use ":memory:" for in-memory databases.
	Path string

	// Host is the hostname for network-based backends
	Host string

	// Port is the port number for network-based backends
	Port int

	// Database is the database name
	Database string

	// Username for authentication
	Username string

	// Password for authentication
	Password string

	// Schema is the default schema sources live in
	Schema string

	// Options contains additional driver-specific options
	Options map[string]string
}

// Adapter is a connectable tabular source. FetchColumn satisfies
// binding.ColumnFetcher once connected.
type Adapter interface {
	binding.ColumnFetcher

	// Connect establishes a connection using the provided config.
	Connect(ctx context.Context, cfg Config) error

	// Close closes the connection and releases resources.
	Close() error

	// Exec executes a statement that returns no rows. Used for seeding
	// source tables.
	Exec(ctx context.Context, sql string) error

	// Name returns the backend name (e.g., "duckdb", "postgres").
	Name() string
}

// rowKeyColumn is the ordering column every source table must carry. It
// defines "latest" for binding aggregation.
const rowKeyColumn = "row_key"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validIdent guards identifiers interpolated into SQL. Source and column
// ids come from user data; anything outside the safe set is rejected
// rather than quoted.
func validIdent(s string) error {
	if !identPattern.MatchString(s) {
		return fmt.Errorf("invalid identifier %q", s)
	}
	return nil
}

// --- Registry ---

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func() Adapter)
)

// Register makes an adapter constructor available by type name. Called
// from adapter init functions.
func Register(name string, factory func() Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// New returns an unconnected adapter for the given backend type.
func New(typ string) (Adapter, error) {
	registryMu.RLock()
	factory, ok := registry[typ]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown adapter type %q (registered: %v)", typ, registeredNames())
	}
	return factory(), nil
}

// Connect creates and connects an adapter in one step.
func Connect(ctx context.Context, cfg Config) (Adapter, error) {
	a, err := New(cfg.Type)
	if err != nil {
		return nil, err
	}
	if err := a.Connect(ctx, cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// IsRegistered reports whether an adapter type is available.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}

func registeredNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
