// Package sqlwrap executes SQL lookups with parameter binding, short-lived
// result caching and tracing.
//
// The wrapper keeps two caches, one for single-row lookups and one for list
// lookups, so a burst of identical lookups within the time-to-live hits the
// database once. Results are cached per query text plus serialized
// parameters; a changed parameter is a different cache entry.
package sqlwrap

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mdecl/querycache/internal/cache"
	"github.com/mdecl/querycache/internal/logging"
	"github.com/mdecl/querycache/internal/param"
	"github.com/mdecl/querycache/internal/querytext"
)

var (
	// ErrInvalidQuery reports an empty query string.
	ErrInvalidQuery = errors.New("sqlwrap: query must not be empty")
	// ErrInvalidParams reports a parameter list containing an unnamed
	// parameter.
	ErrInvalidParams = errors.New("sqlwrap: parameters must be named")
)

// DBTX is the database surface the wrapper runs against. *sql.DB and
// *sql.Tx both satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Row is one result row keyed by column name.
type Row map[string]any

// Options configures a Wrapper. Zero-value TTLs fall back to two minutes.
type Options struct {
	Logger        logging.Logger
	Dialect       querytext.Dialect
	TracePrefix   string
	FirstCacheTTL time.Duration
	ListCacheTTL  time.Duration
}

// Wrapper runs parameterized queries against a database with result
// caching and tracing. One wrapper is meant to live for the whole process.
type Wrapper struct {
	db          DBTX
	logger      logging.Logger
	dialect     querytext.Dialect
	tracePrefix string
	firstCache  *cache.TTLCache[querytext.Key, Row]
	listCache   *cache.TTLCache[querytext.Key, []Row]
}

// New creates a Wrapper over db. It fails when a configured cache TTL is
// negative.
func New(db DBTX, opts Options) (*Wrapper, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	dialect := opts.Dialect
	if dialect == "" {
		dialect = querytext.DialectSQLite
	}

	firstTTL := opts.FirstCacheTTL
	if firstTTL == 0 {
		firstTTL = 2 * time.Minute
	}
	listTTL := opts.ListCacheTTL
	if listTTL == 0 {
		listTTL = 2 * time.Minute
	}

	firstCache, err := cache.NewTTL[querytext.Key, Row](firstTTL)
	if err != nil {
		return nil, fmt.Errorf("sqlwrap: first cache: %w", err)
	}
	listCache, err := cache.NewTTL[querytext.Key, []Row](listTTL)
	if err != nil {
		return nil, fmt.Errorf("sqlwrap: list cache: %w", err)
	}

	return &Wrapper{
		db:          db,
		logger:      logger,
		dialect:     dialect,
		tracePrefix: opts.TracePrefix,
		firstCache:  firstCache,
		listCache:   listCache,
	}, nil
}

// FirstCache returns the single-row lookup cache, for diagnostics and
// tests.
func (w *Wrapper) FirstCache() *cache.TTLCache[querytext.Key, Row] {
	return w.firstCache
}

// ListCache returns the list lookup cache, for diagnostics and tests.
func (w *Wrapper) ListCache() *cache.TTLCache[querytext.Key, []Row] {
	return w.listCache
}

// GetFirst returns the first row of the query result, serving repeated
// lookups from cache until the time-to-live passes. The query is rewritten
// to fetch at most one row. A query with no matching row returns a nil Row
// without error, and the empty result is cached like any other.
func (w *Wrapper) GetFirst(ctx context.Context, query string, params ...param.Param) (Row, error) {
	if err := w.validate(query, params); err != nil {
		return nil, err
	}

	query = querytext.EnsureFirstRowLimit(query, w.dialect)
	key := querytext.NewKey(query, params...)
	if row, err := w.firstCache.Get(key); err == nil {
		w.trace("GetFirst", query, params, row, true)
		return row, nil
	}

	rows, err := w.queryRows(ctx, query, params)
	if err != nil {
		return nil, err
	}
	var row Row
	if len(rows) > 0 {
		row = rows[0]
	}
	w.firstCache.Set(key, row)
	w.trace("GetFirst", query, params, row, false)
	return row, nil
}

// GetList returns all rows of the query result, serving repeated lookups
// from cache until the time-to-live passes.
func (w *Wrapper) GetList(ctx context.Context, query string, params ...param.Param) ([]Row, error) {
	if err := w.validate(query, params); err != nil {
		return nil, err
	}

	key := querytext.NewKey(query, params...)
	if rows, err := w.listCache.Get(key); err == nil {
		w.trace("GetList", query, params, rows, true)
		return rows, nil
	}

	rows, err := w.queryRows(ctx, query, params)
	if err != nil {
		return nil, err
	}
	w.listCache.Set(key, rows)
	w.trace("GetList", query, params, rows, false)
	return rows, nil
}

// GetFirstDirect behaves like GetFirst but always queries the database,
// bypassing the cache in both directions.
func (w *Wrapper) GetFirstDirect(ctx context.Context, query string, params ...param.Param) (Row, error) {
	if err := w.validate(query, params); err != nil {
		return nil, err
	}

	query = querytext.EnsureFirstRowLimit(query, w.dialect)
	rows, err := w.queryRows(ctx, query, params)
	if err != nil {
		return nil, err
	}
	var row Row
	if len(rows) > 0 {
		row = rows[0]
	}
	w.trace("GetFirstDirect", query, params, row, false)
	return row, nil
}

// GetListDirect behaves like GetList but always queries the database,
// bypassing the cache in both directions.
func (w *Wrapper) GetListDirect(ctx context.Context, query string, params ...param.Param) ([]Row, error) {
	if err := w.validate(query, params); err != nil {
		return nil, err
	}

	rows, err := w.queryRows(ctx, query, params)
	if err != nil {
		return nil, err
	}
	w.trace("GetListDirect", query, params, rows, false)
	return rows, nil
}

// Exec runs a statement that returns no rows. Statements are never cached.
func (w *Wrapper) Exec(ctx context.Context, query string, params ...param.Param) (sql.Result, error) {
	if err := w.validate(query, params); err != nil {
		return nil, err
	}
	return w.db.ExecContext(ctx, query, w.args(params)...)
}

func (w *Wrapper) validate(query string, params []param.Param) error {
	if query == "" {
		w.logger.Error(w.tracePrefix+"invalid query", "query", query)
		return ErrInvalidQuery
	}
	if param.AnyInvalid(params...) {
		w.logger.Error(w.tracePrefix+"invalid params", "query", query, "params", fmt.Sprintf("%v", params))
		return ErrInvalidParams
	}
	return nil
}

// args binds parameters for the configured dialect. Postgres placeholders
// are positional, everything else binds by name.
func (w *Wrapper) args(params []param.Param) []any {
	if w.dialect == querytext.DialectPostgres {
		return param.Values(params...)
	}
	return param.Args(params...)
}

func (w *Wrapper) queryRows(ctx context.Context, query string, params []param.Param) ([]Row, error) {
	rows, err := w.db.QueryContext(ctx, query, w.args(params)...)
	if err != nil {
		return nil, fmt.Errorf("sqlwrap: query: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// scanRows reads every row into a column-keyed map. Byte slices become
// strings so cached rows stay immutable after the driver reuses its
// buffers.
func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("sqlwrap: columns: %w", err)
	}

	out := make([]Row, 0)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("sqlwrap: scan: %w", err)
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlwrap: rows: %w", err)
	}
	return out, nil
}

// trace records the query, its parameters and the result at debug level.
// Cache hits are marked so redundant lookups are visible in the trace.
func (w *Wrapper) trace(op, query string, params []param.Param, result any, fromCache bool) {
	msg := w.tracePrefix + op
	if fromCache {
		msg = w.tracePrefix + "using cached result for " + op
	}
	w.logger.Debug(msg,
		"trace_id", uuid.NewString(),
		"query", query,
		"params", param.Serialize(params...),
		"result", serialize(result),
	)
}

func serialize(result any) string {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(data)
}
