package sqlite_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/myrjola/fittracker/internal/sqlite"
	"github.com/myrjola/fittracker/internal/testhelpers"
)

func TestDatabase_Query(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	db, err := sqlite.NewDatabase(ctx, ":memory:", testhelpers.NewLogger(testhelpers.NewWriter(t)))
	if err != nil {
		t.Fatalf("NewDatabase() error = %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})

	got, err := db.Query(ctx, "SELECT id, name FROM exercises WHERE category = 'Chest' ORDER BY LENGTH(id), id", 2)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	want := &sqlite.QueryResult{
		Columns:   []string{"id", "name"},
		Rows:      [][]any{{"1", "機械胸部推舉"}, {"2", "上斜啞鈴臥推"}},
		Truncated: true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Query() mismatch (-want +got):\n%s", diff)
	}

	got, err = db.Query(ctx, "SELECT COUNT(*) AS n FROM exercises", 0)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got.Rows) != 1 || got.Rows[0][0] != int64(50) || got.Truncated {
		t.Errorf("unexpected count result %+v", got)
	}

	tests := []struct {
		name       string
		query      string
		restricted bool
	}{
		{name: "empty", query: "  ", restricted: true},
		{name: "pragma", query: "PRAGMA query_only = false", restricted: true},
		{name: "attach", query: "attach database 'x.db' AS x", restricted: true},
		{name: "write", query: "DELETE FROM exercises", restricted: false},
		{name: "syntax", query: "SELEC 1", restricted: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, qErr := db.Query(t.Context(), tt.query, 0)
			if qErr == nil {
				t.Fatal("expected an error")
			}
			if got := errors.Is(qErr, sqlite.ErrRestrictedQuery); got != tt.restricted {
				t.Errorf("errors.Is(ErrRestrictedQuery) = %v, want %v: %v", got, tt.restricted, qErr)
			}
		})
	}
}
