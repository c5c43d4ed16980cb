package sqlite

import (
	"context"
	"database/sql"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/myrjola/fittracker/internal/errors"
)

// ErrRestrictedQuery is returned for queries that could escape the read-only connection.
var ErrRestrictedQuery = errors.NewSentinel("query contains restricted operations")

const (
	queryTimeout   = 5 * time.Second
	defaultMaxRows = 500
)

//nolint:gochecknoglobals // compiled once.
var restrictedStatements = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bATTACH\b`),
	regexp.MustCompile(`(?i)\bDETACH\b`),
	regexp.MustCompile(`(?i)\bPRAGMA\b`),
	regexp.MustCompile(`(?i)\bload_extension\b`),
}

// QueryResult is a generic result set. Text columns are returned as strings.
type QueryResult struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	Truncated bool     `json:"truncated"`
}

// Query runs an ad hoc SELECT on the read-only pool and returns at most maxRows rows.
// A non-positive maxRows uses the default limit.
func (db *Database) Query(ctx context.Context, query string, maxRows int) (_ *QueryResult, err error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.Wrap(ErrRestrictedQuery, "empty query")
	}
	for _, pattern := range restrictedStatements {
		if pattern.MatchString(query) {
			return nil, errors.Wrap(ErrRestrictedQuery, "validate query", slog.String("pattern", pattern.String()))
		}
	}
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := db.ReadOnly.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "execute query")
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			err = errors.Join(err, errors.Wrap(closeErr, "close rows"))
		}
	}()
	return collect(rows, maxRows)
}

func collect(rows *sql.Rows, maxRows int) (*QueryResult, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "read columns")
	}
	result := &QueryResult{Columns: columns, Rows: [][]any{}, Truncated: false}
	for rows.Next() {
		if len(result.Rows) == maxRows {
			result.Truncated = true
			break
		}
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err = rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, "scan row")
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate rows")
	}
	return result, nil
}
