package mcp

import (
	"context"
	"strings"
	"time"

	"github.com/claude/recoverycoach/internal/models"
	"github.com/mark3labs/mcp-go/mcp"
)

func parseFlexTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, err
}

// splitMuscles splits "chest, triceps" into its trimmed, non-empty parts.
func splitMuscles(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// resolveUID prefers the explicit uid argument over the transport default.
func resolveUID(ctx context.Context, req mcp.CallToolRequest) (string, bool) {
	uid := strings.TrimSpace(req.GetString("uid", ""))
	if uid == "" {
		uid = UserIDFromContext(ctx)
	}
	return uid, uid != ""
}

// --- Tool definitions ---

var toolGetRecovery = mcp.NewTool("get_recovery",
	mcp.WithDescription("Per-muscle recovery scores (0-100, higher is more rested), when each muscle was last trained, and which muscles are ready to train. Returns [\"Rest / Mobility\"] as the recommendation when nothing is ready."),
	mcp.WithString("uid", mcp.Description("User ID. Defaults to the X-User-ID header.")),
)

var toolLogWorkout = mcp.NewTool("log_workout",
	mcp.WithDescription("Record a completed workout for a user. Muscles must come from the muscle catalog resource."),
	mcp.WithString("uid", mcp.Description("User ID. Defaults to the X-User-ID header.")),
	mcp.WithString("muscles", mcp.Required(), mcp.Description("Comma-separated muscle groups (e.g. 'chest, triceps')")),
	mcp.WithNumber("effort", mcp.Required(), mcp.Description("Perceived effort, 1-10")),
	mcp.WithNumber("soreness", mcp.Required(), mcp.Description("Soreness, 0-10")),
	mcp.WithNumber("duration_min", mcp.Description("Duration in minutes. Defaults to 0.")),
	mcp.WithString("ts", mcp.Description("When the workout happened (ISO 8601 or YYYY-MM-DD). Defaults to now.")),
)

var toolGetWorkouts = mcp.NewTool("get_workouts",
	mcp.WithDescription("All workouts recorded for a user this session, oldest first."),
	mcp.WithString("uid", mcp.Description("User ID. Defaults to the X-User-ID header.")),
)

var toolGetChatHistory = mcp.NewTool("get_chat_history",
	mcp.WithDescription("The user's most recent coach chat turns (up to 40), oldest first."),
	mcp.WithString("uid", mcp.Description("User ID. Defaults to the X-User-ID header.")),
)

// --- Tool handlers ---

func (h *handlers) getRecovery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, ok := resolveUID(ctx, req)
	if !ok {
		return mcp.NewToolResultError("uid parameter is required"), nil
	}

	report, err := h.ds.Recovery(ctx, uid)
	if err != nil {
		h.log.Error("mcp get_recovery", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(report)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) logWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, ok := resolveUID(ctx, req)
	if !ok {
		return mcp.NewToolResultError("uid parameter is required"), nil
	}
	muscles, err := req.RequireString("muscles")
	if err != nil {
		return mcp.NewToolResultError("muscles parameter is required"), nil
	}
	effort, err := req.RequireInt("effort")
	if err != nil {
		return mcp.NewToolResultError("effort parameter is required"), nil
	}
	soreness, err := req.RequireInt("soreness")
	if err != nil {
		return mcp.NewToolResultError("soreness parameter is required"), nil
	}

	in := models.WorkoutInput{
		UID:         uid,
		Muscles:     splitMuscles(muscles),
		Effort:      &effort,
		Soreness:    &soreness,
		DurationMin: req.GetInt("duration_min", 0),
	}
	if ts := req.GetString("ts", ""); ts != "" {
		in.TS, err = parseFlexTime(ts)
		if err != nil {
			return mcp.NewToolResultError("invalid date format: " + err.Error()), nil
		}
	}

	entry, err := h.ds.RecordWorkout(ctx, in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(entry)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, ok := resolveUID(ctx, req)
	if !ok {
		return mcp.NewToolResultError("uid parameter is required"), nil
	}

	entries, err := h.ds.Workouts(ctx, uid)
	if err != nil {
		h.log.Error("mcp get_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(entries)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}

func (h *handlers) getChatHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uid, ok := resolveUID(ctx, req)
	if !ok {
		return mcp.NewToolResultError("uid parameter is required"), nil
	}

	turns, err := h.ds.ChatHistory(ctx, uid)
	if err != nil {
		h.log.Error("mcp get_chat_history", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	result, err := mcp.NewToolResultJSON(turns)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
