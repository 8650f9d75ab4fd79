// Command coach-mcp serves the coach MCP tools over stdio against a remote
// coachd instance.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/recoverycoach/internal/mcp"
	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	_ = godotenv.Load()

	serverURL := flag.String("server", os.Getenv("COACH_SERVER_URL"), "coachd server URL")
	uid := flag.String("uid", os.Getenv("COACH_UID"), "default user for tool calls")
	flag.Parse()

	// stdout carries the protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: coach-mcp -server <URL> [-uid <user>]\n")
		os.Exit(1)
	}

	s := mcp.New(mcp.NewHTTPClient(*serverURL), Version, log)

	var opts []server.StdioOption
	if *uid != "" {
		opts = append(opts, server.WithStdioContextFunc(func(ctx context.Context) context.Context {
			return mcp.WithUserID(ctx, *uid)
		}))
	}

	log.Info("coach-mcp serving stdio", "server", *serverURL, "version", Version)
	if err := server.ServeStdio(s, opts...); err != nil {
		log.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}
