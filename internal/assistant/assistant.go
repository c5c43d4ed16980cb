// Package assistant exposes the training log and its recommendations as MCP tools for AI assistants.
package assistant

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/myrjola/fittracker/internal/errors"
	"github.com/myrjola/fittracker/internal/periodization"
	"github.com/myrjola/fittracker/internal/sqlite"
	"github.com/myrjola/fittracker/internal/workout"
)

// Service is the part of the workout service the tools read from.
type Service interface {
	ListExercises(ctx context.Context, category workout.Category) ([]workout.Exercise, error)
	GetExercise(ctx context.Context, id string) (workout.Exercise, error)
	Recommend(ctx context.Context, exerciseID, today string) (*periodization.Recommendation, error)
	RecentSessions(ctx context.Context, exerciseID string, n int) ([]workout.WeightSession, error)
	DailyStats(ctx context.Context, date string) (workout.DailySummary, error)
}

// Tracer captures a trace of a slow tool call.
type Tracer interface {
	Capture(ctx context.Context, reason string) string
}

// Option configures the server.
type Option func(*handlers)

// WithTracer captures a trace with tracer whenever a tool call takes longer than threshold.
func WithTracer(tracer Tracer, threshold time.Duration) Option {
	return func(h *handlers) {
		h.tracer = tracer
		h.slowThreshold = threshold
	}
}

// Querier runs read-only SQL against the training log.
type Querier interface {
	Query(ctx context.Context, query string, maxRows int) (*sqlite.QueryResult, error)
}

// WithSQL registers the query_training_log tool for ad hoc read-only SQL.
func WithSQL(q Querier) Option {
	return func(h *handlers) {
		h.querier = q
	}
}

const defaultHistoryLimit = 5

// New creates an MCP server with the training tools registered. now supplies today's date.
func New(svc Service, version string, logger *slog.Logger, now func() time.Time, opts ...Option) *server.MCPServer {
	s := server.NewMCPServer("fittracker", version,
		server.WithToolCapabilities(false),
		server.WithInstructions("Personal weight training log with periodized coaching. "+
			"Weights are in kilograms and dates are YYYY-MM-DD."),
	)

	h := &handlers{svc: svc, logger: logger, now: now, tracer: nil, slowThreshold: 0, querier: nil}
	for _, opt := range opts {
		opt(h)
	}
	s.AddTools(
		h.tool(toolListExercises, h.listExercises),
		h.tool(toolGetRecommendation, h.getRecommendation),
		h.tool(toolGetExerciseHistory, h.getExerciseHistory),
		h.tool(toolGetDailyStats, h.getDailyStats),
	)
	if h.querier != nil {
		s.AddTools(h.tool(toolQueryTrainingLog, h.queryTrainingLog))
	}
	return s
}

type handlers struct {
	svc           Service
	logger        *slog.Logger
	now           func() time.Time
	tracer        Tracer
	slowThreshold time.Duration
	querier       Querier
}

// tool times every call of handler and captures a trace when it runs slow.
func (h *handlers) tool(tool mcp.Tool, handler server.ToolHandlerFunc) server.ServerTool {
	timed := func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := handler(ctx, req)
		elapsed := time.Since(start)
		h.logger.LogAttrs(ctx, slog.LevelDebug, "tool called",
			slog.String("tool", tool.Name), slog.Duration("elapsed", elapsed))
		if h.tracer != nil && elapsed > h.slowThreshold {
			h.tracer.Capture(ctx, tool.Name)
		}
		return result, err
	}
	return server.ServerTool{Tool: tool, Handler: timed}
}

func (h *handlers) today() string {
	return h.now().Format(time.DateOnly)
}

var toolListExercises = mcp.NewTool("list_exercises",
	mcp.WithDescription("List exercises, most used first, with their periodization setup."),
	mcp.WithString("category", mcp.Description("Only list exercises of this muscle group."),
		mcp.Enum("Chest", "Back", "Shoulder", "Legs", "Arms", "Custom")),
)

var toolGetRecommendation = mcp.NewTool("get_recommendation",
	mcp.WithDescription("Recommended weight, reps and sets for the next session of an exercise "+
		"according to its periodization cycle."),
	mcp.WithString("exercise_id", mcp.Required(), mcp.Description("Exercise ID from list_exercises")),
	mcp.WithString("date", mcp.Description("Date of the session (YYYY-MM-DD). Defaults to today.")),
)

var toolGetExerciseHistory = mcp.NewTool("get_exercise_history",
	mcp.WithDescription("Recent sessions of an exercise, newest first, with every set's weight, reps and RPE."),
	mcp.WithString("exercise_id", mcp.Required(), mcp.Description("Exercise ID from list_exercises")),
	mcp.WithNumber("limit", mcp.Description("Number of sessions to return. Defaults to 5.")),
)

var toolGetDailyStats = mcp.NewTool("get_daily_stats",
	mcp.WithDescription("Energy expenditure, training time and volume of a day."),
	mcp.WithString("date", mcp.Description("Date (YYYY-MM-DD). Defaults to today.")),
)

var toolQueryTrainingLog = mcp.NewTool("query_training_log",
	mcp.WithDescription("Run a read-only SQLite SELECT against the training log. Tables: "+
		"exercises(id, name, category, usage_count, base_weight, equipment_type, cycle_start_date), "+
		"weight_sessions(id, exercise_id, date, position), "+
		"sets(session_id, set_number, weight_kg, reps, rpe, completed_at), "+
		"cardio_records(id, date, machine, duration, distance, kcal, heart_rate, speed, incline), "+
		"body_data(weight_kg, height_cm, age)."),
	mcp.WithString("query", mcp.Required(), mcp.Description("A single SELECT statement")),
	mcp.WithNumber("max_rows", mcp.Description("Maximum number of rows to return. Defaults to 500.")),
)

// failure reports err to the assistant as a tool error.
func (h *handlers) failure(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, workout.ErrNotFound):
		return mcp.NewToolResultError("exercise not found")
	case errors.Is(err, workout.ErrInvalidInput):
		return mcp.NewToolResultError(err.Error())
	default:
		h.logger.LogAttrs(ctx, slog.LevelError, "tool failed",
			slog.String("tool", tool), errors.SlogError(err))
		return mcp.NewToolResultError("query failed: " + err.Error())
	}
}

func jsonResult(data any) *mcp.CallToolResult {
	result, err := mcp.NewToolResultJSON(data)
	if err != nil {
		return mcp.NewToolResultError("serialization failed")
	}
	return result
}

func (h *handlers) listExercises(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := workout.Category(req.GetString("category", ""))
	exercises, err := h.svc.ListExercises(ctx, category)
	if err != nil {
		return h.failure(ctx, "list_exercises", err), nil
	}
	if exercises == nil {
		exercises = []workout.Exercise{}
	}
	return jsonResult(exercises), nil
}

type recommendationResult struct {
	Exercise       workout.Exercise               `json:"exercise"`
	Date           string                         `json:"date"`
	Recommendation *periodization.Recommendation `json:"recommendation"`
	Summary        string                         `json:"summary,omitempty"`
}

func (h *handlers) getRecommendation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("exercise_id")
	if err != nil {
		return mcp.NewToolResultError("exercise_id parameter is required"), nil
	}
	date := req.GetString("date", h.today())

	ex, err := h.svc.GetExercise(ctx, id)
	if err != nil {
		return h.failure(ctx, "get_recommendation", err), nil
	}
	rec, err := h.svc.Recommend(ctx, id, date)
	if err != nil {
		return h.failure(ctx, "get_recommendation", err), nil
	}
	if rec == nil {
		return mcp.NewToolResultText("Periodization is not enabled for " + ex.Name + "."), nil
	}
	return jsonResult(recommendationResult{
		Exercise:       ex,
		Date:           date,
		Recommendation: rec,
		Summary:        periodization.Summary(*rec),
	}), nil
}

func (h *handlers) getExerciseHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("exercise_id")
	if err != nil {
		return mcp.NewToolResultError("exercise_id parameter is required"), nil
	}
	limit := req.GetInt("limit", defaultHistoryLimit)
	if limit <= 0 {
		return mcp.NewToolResultError("limit must be positive"), nil
	}

	if _, err = h.svc.GetExercise(ctx, id); err != nil {
		return h.failure(ctx, "get_exercise_history", err), nil
	}
	sessions, err := h.svc.RecentSessions(ctx, id, limit)
	if err != nil {
		return h.failure(ctx, "get_exercise_history", err), nil
	}
	if sessions == nil {
		sessions = []workout.WeightSession{}
	}
	return jsonResult(sessions), nil
}

func (h *handlers) getDailyStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.svc.DailyStats(ctx, req.GetString("date", h.today()))
	if err != nil {
		return h.failure(ctx, "get_daily_stats", err), nil
	}
	return jsonResult(stats), nil
}

func (h *handlers) queryTrainingLog(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query parameter is required"), nil
	}
	result, err := h.querier.Query(ctx, query, req.GetInt("max_rows", 0))
	if errors.Is(err, sqlite.ErrRestrictedQuery) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		h.logger.LogAttrs(ctx, slog.LevelDebug, "query failed", errors.SlogError(err))
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(result), nil
}
