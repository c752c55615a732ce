// Package binding resolves node data bindings against an external tabular
// source: it fetches the referenced column and reduces it to a single
// value with the binding's aggregation rule.
package binding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/driverstack-labs/drivertree/internal/tree"
)

// Binding errors. These are non-fatal to an evaluation: the evaluator
// substitutes zero and flags the node as unresolved.
var (
	// ErrEmptyDataset is returned when the referenced column has no rows.
	ErrEmptyDataset = errors.New("binding column has no rows")
)

// Row is one cell of an external column together with its ordering key.
// The key ordering is defined by the external source; "latest" picks the
// row with the greatest key.
type Row struct {
	Key   string
	Value float64
}

// ColumnFetcher fetches the values of an external sheet column. It is the
// boundary to the tabular-data collaborator; implementations may perform
// blocking I/O.
type ColumnFetcher interface {
	FetchColumn(ctx context.Context, sourceID, columnID string) ([]Row, error)
}

type memoKey struct {
	sourceID string
	columnID string
}

type fetchResult struct {
	rows []Row
	err  error
}

// Resolver resolves data bindings for a single evaluation pass. Fetches
// are memoized per (source, column) so that two nodes bound to the same
// column cost one fetch, but a Resolver must not outlive one evaluation:
// refreshed external data has to be reflected on the next request.
type Resolver struct {
	fetcher ColumnFetcher
	logger  *slog.Logger

	mu   sync.Mutex
	memo map[memoKey]fetchResult
}

// NewResolver creates a resolver for one evaluation pass.
func NewResolver(fetcher ColumnFetcher, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Resolver{
		fetcher: fetcher,
		logger:  logger,
		memo:    make(map[memoKey]fetchResult),
	}
}

// Resolve fetches the bound column and applies the binding's aggregation.
// Safe for concurrent use; concurrent leaf bindings may be resolved in
// parallel.
func (r *Resolver) Resolve(ctx context.Context, b *tree.DataBinding) (float64, error) {
	if b == nil {
		return 0, errors.New("nil binding")
	}
	rows, err := r.fetch(ctx, b.SourceID, b.ColumnID)
	if err != nil {
		return 0, fmt.Errorf("fetch column %s.%s: %w", b.SourceID, b.ColumnID, err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("column %s.%s: %w", b.SourceID, b.ColumnID, ErrEmptyDataset)
	}
	return aggregate(rows, b.Aggregation)
}

func (r *Resolver) fetch(ctx context.Context, sourceID, columnID string) ([]Row, error) {
	if r.fetcher == nil {
		return nil, errors.New("no column fetcher configured")
	}
	key := memoKey{sourceID, columnID}

	r.mu.Lock()
	if res, ok := r.memo[key]; ok {
		r.mu.Unlock()
		return res.rows, res.err
	}
	r.mu.Unlock()

	rows, err := r.fetcher.FetchColumn(ctx, sourceID, columnID)
	if err != nil {
		r.logger.Warn("binding fetch failed", "source", sourceID, "column", columnID, "error", err)
	}

	r.mu.Lock()
	// Another goroutine may have raced us here; keep the first outcome so
	// every node bound to this column sees the same result.
	if res, ok := r.memo[key]; ok {
		r.mu.Unlock()
		return res.rows, res.err
	}
	r.memo[key] = fetchResult{rows: rows, err: err}
	r.mu.Unlock()

	return rows, err
}

// aggregate reduces rows to a single value. Rows are sorted by key first
// so the result never depends on fetcher row order.
func aggregate(rows []Row, agg tree.Aggregation) (float64, error) {
	switch agg {
	case tree.AggSum:
		var total float64
		for _, row := range rows {
			total += row.Value
		}
		return total, nil
	case tree.AggAverage:
		var total float64
		for _, row := range rows {
			total += row.Value
		}
		return total / float64(len(rows)), nil
	case tree.AggLatest:
		sorted := make([]Row, len(rows))
		copy(sorted, rows)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
		return sorted[len(sorted)-1].Value, nil
	default:
		return 0, fmt.Errorf("%w: aggregation %q", tree.ErrInvalidEnum, agg)
	}
}
