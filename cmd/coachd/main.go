package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/recoverycoach/internal/coach"
	"github.com/claude/recoverycoach/internal/config"
	"github.com/claude/recoverycoach/internal/ingest/alpha"
	"github.com/claude/recoverycoach/internal/mcp"
	"github.com/claude/recoverycoach/internal/server"
	"github.com/claude/recoverycoach/internal/session"
	"tailscale.com/tsnet"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	log.Info("coachd starting", "version", Version)

	store := session.New(
		session.WithHistoryLimit(cfg.Session.HistoryLimit),
		session.WithRateLimit(cfg.Session.RateLimit, cfg.Session.RateWindow),
		session.WithShards(cfg.Session.Shards),
	)

	opts := []coach.Option{
		coach.WithSystemPrompt(cfg.Coach.SystemPrompt),
		coach.WithContextTurns(cfg.Session.ContextTurns),
	}
	if cfg.Coach.Enabled() {
		responder, err := coach.NewOpenAIResponder(coach.OpenAIConfig{
			APIKey:          cfg.Coach.OpenAIAPIKey,
			BaseURL:         cfg.Coach.BaseURL,
			Model:           cfg.Coach.Model,
			Temperature:     cfg.Coach.Temperature,
			AzureDeployment: cfg.Coach.AzureDeployment,
			APIVersion:      cfg.Coach.APIVersion,
		})
		if err != nil {
			log.Error("failed to configure chat model", "error", err)
			os.Exit(1)
		}
		opts = append(opts, coach.WithResponder(responder))
		log.Info("coach chat enabled", "azure", cfg.Coach.AzureDeployment != "")
	} else {
		log.Warn("no chat model configured: /api/v1/chat/stream will return 503")
	}
	svc := coach.New(store, log, opts...)

	alphaProvider := alpha.NewProvider(svc, log)
	mcpServer := mcp.New(mcp.NewServiceSource(svc), Version, log)
	srv := server.New(svc, alphaProvider, mcp.NewHTTPHandler(mcpServer), cfg.Server.APIKey, log)

	// Listen on the tailnet when enabled, plain TCP otherwise.
	var listener net.Listener

	if cfg.Tailscale.Enabled {
		tsServer := &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "plain http")
	}

	httpSrv := &http.Server{
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig, "users", store.Users())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}
