package assistant

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/myrjola/fittracker/internal/periodization"
	"github.com/myrjola/fittracker/internal/sqlite"
	"github.com/myrjola/fittracker/internal/testhelpers"
	"github.com/myrjola/fittracker/internal/workout"
)

func newHandlers(t *testing.T) (*handlers, *workout.Service) {
	t.Helper()
	logger := testhelpers.NewLogger(testhelpers.NewWriter(t))
	db, err := sqlite.NewDatabase(t.Context(), ":memory:", logger)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	engine, err := periodization.New(periodization.DefaultPlan())
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	svc := workout.NewService(db, logger, engine)
	now := func() time.Time { return time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC) }
	return &handlers{svc: svc, logger: logger, now: now, tracer: nil, slowThreshold: 0, querier: db}, svc
}

func call(
	t *testing.T,
	handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error),
	args map[string]any,
) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	result, err := handler(t.Context(), req)
	if err != nil {
		t.Fatalf("tool returned a protocol error: %v", err)
	}
	if len(result.Content) == 0 {
		t.Fatal("tool returned no content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	return text.Text, result.IsError
}

func TestListExercises(t *testing.T) {
	t.Parallel()
	h, _ := newHandlers(t)

	text, isError := call(t, h.listExercises, map[string]any{"category": "Legs"})
	if isError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	var exercises []workout.Exercise
	if err := json.Unmarshal([]byte(text), &exercises); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(exercises) == 0 {
		t.Fatal("expected leg exercises")
	}
	for _, ex := range exercises {
		if ex.Category != workout.CategoryLegs {
			t.Errorf("exercise %s has category %s", ex.ID, ex.Category)
		}
	}

	if _, isError = call(t, h.listExercises, map[string]any{"category": "Cardio"}); !isError {
		t.Error("expected a tool error for an unknown category")
	}
}

func TestGetRecommendation(t *testing.T) {
	t.Parallel()
	h, svc := newHandlers(t)
	ctx := t.Context()

	text, isError := call(t, h.getRecommendation, map[string]any{"exercise_id": "1"})
	if isError || !strings.Contains(text, "not enabled") {
		t.Errorf("expected a not-enabled message, got %q (error=%v)", text, isError)
	}

	if _, err := svc.ConfigurePeriodization(ctx, "1", 40, periodization.EquipmentMachine, "2024-01-01"); err != nil {
		t.Fatalf("ConfigurePeriodization() error = %v", err)
	}
	text, isError = call(t, h.getRecommendation, map[string]any{"exercise_id": "1"})
	if isError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	var got recommendationResult
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.Date != "2024-01-08" || got.Recommendation == nil || got.Summary != "30kg × 8-12 下 × 4 組" {
		t.Errorf("unexpected recommendation %+v", got)
	}

	if text, isError = call(t, h.getRecommendation, map[string]any{"exercise_id": "missing"}); !isError {
		t.Errorf("expected a tool error for a missing exercise, got %q", text)
	}
	if _, isError = call(t, h.getRecommendation, map[string]any{}); !isError {
		t.Error("expected a tool error without exercise_id")
	}
}

func TestGetExerciseHistory(t *testing.T) {
	t.Parallel()
	h, svc := newHandlers(t)
	ctx := t.Context()

	at := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)
	for _, date := range []string{"2024-01-01", "2024-01-03", "2024-01-05"} {
		if err := svc.LogSet(ctx, "1", date, 40, 8, nil, at); err != nil {
			t.Fatalf("LogSet() error = %v", err)
		}
	}

	text, isError := call(t, h.getExerciseHistory, map[string]any{"exercise_id": "1", "limit": 2.0})
	if isError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	var sessions []workout.WeightSession
	if err := json.Unmarshal([]byte(text), &sessions); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(sessions) != 2 || sessions[0].Date != "2024-01-05" || sessions[1].Date != "2024-01-03" {
		t.Errorf("unexpected history %+v", sessions)
	}

	if _, isError = call(t, h.getExerciseHistory, map[string]any{"exercise_id": "1", "limit": 0.0}); !isError {
		t.Error("expected a tool error for a zero limit")
	}
	if _, isError = call(t, h.getExerciseHistory, map[string]any{"exercise_id": "missing"}); !isError {
		t.Error("expected a tool error for a missing exercise")
	}
}

func TestGetDailyStats(t *testing.T) {
	t.Parallel()
	h, _ := newHandlers(t)

	text, isError := call(t, h.getDailyStats, map[string]any{"date": "2024-01-01"})
	if isError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	var stats workout.DailySummary
	if err := json.Unmarshal([]byte(text), &stats); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if stats != (workout.DailySummary{}) {
		t.Errorf("expected an empty day, got %+v", stats)
	}

	if _, isError = call(t, h.getDailyStats, map[string]any{"date": "yesterday"}); !isError {
		t.Error("expected a tool error for a malformed date")
	}
}

func TestNew_RegistersTools(t *testing.T) {
	t.Parallel()
	h, svc := newHandlers(t)
	listTools := func(opts ...Option) string {
		s := New(svc, "test", h.logger, h.now, opts...)
		resp := s.HandleMessage(t.Context(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
		body, err := json.Marshal(resp)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		return string(body)
	}

	body := listTools()
	for _, name := range []string{"list_exercises", "get_recommendation", "get_exercise_history", "get_daily_stats"} {
		if !strings.Contains(body, `"name":"`+name+`"`) {
			t.Errorf("tool %s is not listed in %s", name, body)
		}
	}
	if strings.Contains(body, "query_training_log") {
		t.Error("query_training_log must only be registered with WithSQL")
	}
	if body = listTools(WithSQL(h.querier)); !strings.Contains(body, `"name":"query_training_log"`) {
		t.Errorf("query_training_log is not listed in %s", body)
	}
}

func TestQueryTrainingLog(t *testing.T) {
	t.Parallel()
	h, _ := newHandlers(t)

	text, isError := call(t, h.queryTrainingLog, map[string]any{
		"query":    "SELECT name FROM exercises WHERE id = '5'",
		"max_rows": 1.0,
	})
	if isError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	var got sqlite.QueryResult
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(got.Rows) != 1 || got.Rows[0][0] != "槓鈴臥推" {
		t.Errorf("unexpected result %+v", got)
	}

	for _, query := range []string{"PRAGMA user_version", "DELETE FROM exercises"} {
		if text, isError = call(t, h.queryTrainingLog, map[string]any{"query": query}); !isError {
			t.Errorf("expected a tool error for %q, got %s", query, text)
		}
	}
	if _, isError = call(t, h.queryTrainingLog, map[string]any{}); !isError {
		t.Error("expected a tool error without query")
	}
}

type recordingTracer struct {
	reasons []string
}

func (r *recordingTracer) Capture(_ context.Context, reason string) string {
	r.reasons = append(r.reasons, reason)
	return reason + ".trace"
}

func TestWithTracer(t *testing.T) {
	t.Parallel()
	h, svc := newHandlers(t)

	tracer := &recordingTracer{reasons: nil}
	slow := &handlers{svc: svc, logger: h.logger, now: h.now, tracer: nil, slowThreshold: 0}
	WithTracer(tracer, -time.Nanosecond)(slow)
	if _, isError := call(t, slow.tool(toolGetDailyStats, slow.getDailyStats).Handler, map[string]any{}); isError {
		t.Fatal("unexpected tool error")
	}
	if len(tracer.reasons) != 1 || tracer.reasons[0] != "get_daily_stats" {
		t.Errorf("expected one capture for get_daily_stats, got %v", tracer.reasons)
	}

	fast := &handlers{svc: svc, logger: h.logger, now: h.now, tracer: tracer, slowThreshold: time.Hour}
	call(t, fast.tool(toolGetDailyStats, fast.getDailyStats).Handler, map[string]any{})
	if len(tracer.reasons) != 1 {
		t.Errorf("expected no capture for a fast call, got %v", tracer.reasons)
	}
}
