package mcp

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/server"
)

// UserHeader carries the default uid for MCP calls made over HTTP.
const UserHeader = "X-User-ID"

type contextKey int

const userIDKey contextKey = iota

// UserIDFromContext extracts the uid injected by the transport layer, or ""
// when none was set.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// WithUserID returns a context carrying uid as the default tool caller.
func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, userIDKey, uid)
}

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("RecoveryCoach", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("Recovery coach server. Log strength workouts per muscle group, read per-muscle recovery scores and training recommendations, and review a user's recent coach chat. Every tool takes a uid; over HTTP the X-User-ID header supplies a default."),
	)

	h := &handlers{ds: ds, log: log}

	s.AddTools(
		server.ServerTool{Tool: toolGetRecovery, Handler: h.getRecovery},
		server.ServerTool{Tool: toolLogWorkout, Handler: h.logWorkout},
		server.ServerTool{Tool: toolGetWorkouts, Handler: h.getWorkouts},
		server.ServerTool{Tool: toolGetChatHistory, Handler: h.getChatHistory},
	)

	s.AddResources(
		server.ServerResource{Resource: resMuscleCatalog, Handler: h.muscleCatalog},
	)

	return s
}

// NewHTTPHandler serves s over streamable HTTP. The X-User-ID request
// header becomes the default uid for tool calls.
func NewHTTPHandler(s *server.MCPServer) http.Handler {
	return server.NewStreamableHTTPServer(s,
		server.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			if uid := strings.TrimSpace(r.Header.Get(UserHeader)); uid != "" {
				return WithUserID(ctx, uid)
			}
			return ctx
		}),
	)
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}
