package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/claude/recoverycoach/internal/upload"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	_ = godotenv.Load()

	serverURL := flag.String("server", os.Getenv("COACH_SERVER_URL"), "coachd server URL (e.g. https://coach.tail1234.ts.net)")
	apiKey := flag.String("api-key", os.Getenv("COACH_API_KEY"), "ingest API key")
	dir := flag.String("path", "", "directory of Alpha Progression CSV exports")
	uid := flag.String("uid", "", "user the workouts belong to")
	dryRun := flag.Bool("dry-run", false, "list pending files without sending them")
	concurrency := flag.Int("concurrency", upload.DefaultConcurrency, "files uploaded at once")
	stateDir := flag.String("state-dir", "", "state database directory (default ~/.coach-upload)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("coach-upload", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *dir == "" || *uid == "" {
		fmt.Fprintf(os.Stderr, "Usage: coach-upload -server <URL> -uid <user> -path <exports dir> [-dry-run] [-concurrency N]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *serverURL == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -server is required (or use -dry-run)\n")
		os.Exit(1)
	}
	if info, err := os.Stat(*dir); err != nil || !info.IsDir() {
		log.Error("export directory not found", "path", *dir)
		os.Exit(1)
	}

	if *stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			log.Error("failed to get home directory", "error", err)
			os.Exit(1)
		}
		*stateDir = filepath.Join(homeDir, ".coach-upload")
	}
	state, err := upload.OpenStateDB(*stateDir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	if *dryRun {
		log.Info("DRY RUN mode: files will be listed but not sent")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	uploader := upload.New(upload.NewClient(*serverURL, *apiKey), state, upload.Options{
		Dir:         *dir,
		UID:         *uid,
		DryRun:      *dryRun,
		Concurrency: *concurrency,
	}, log)
	stats, err := uploader.Run(ctx)
	printStats(stats)
	if err != nil {
		log.Error("upload failed", "error", err)
		os.Exit(1)
	}
	log.Info("upload complete")
}

func printStats(stats *upload.Stats) {
	fmt.Println()
	fmt.Println("=== Upload Summary ===")
	fmt.Printf("  Files total:      %d\n", stats.FilesTotal)
	fmt.Printf("  Files uploaded:   %d\n", stats.FilesUploaded)
	fmt.Printf("  Files skipped:    %d (already imported)\n", stats.FilesSkipped)
	fmt.Printf("  Files errored:    %d\n", stats.FilesErrored)
	fmt.Println()
	fmt.Printf("  Sessions sent:    %d\n", stats.SessionsSent)
	fmt.Printf("  Workouts logged:  %d\n", stats.WorkoutsRecorded)

	if len(stats.UnmappedExercises) > 0 {
		fmt.Printf("\n  Exercises with no muscle mapping:\n")
		for _, name := range stats.UnmappedExercises {
			fmt.Printf("    - %s\n", name)
		}
	}
	fmt.Println()
}
