package upload

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/claude/recoverycoach/internal/ingest"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestUploaderSkipsImportedFiles verifies that a second run only sends
// new or changed exports.
func TestUploaderSkipsImportedFiles(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		json.NewEncoder(w).Encode(ingest.Result{
			SessionsReceived:  1,
			WorkoutsRecorded:  1,
			UnmappedExercises: []string{"Cat Cow"},
		})
	}))
	defer ts.Close()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.csv"), "a")
	writeFile(t, filepath.Join(dir, "nested", "b.CSV"), "b")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	run := func() *Stats {
		t.Helper()
		stats, err := New(newTestClient(ts.URL), state, Options{Dir: dir, UID: "u1", Concurrency: 2}, discardLogger()).Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return stats
	}

	first := run()
	if first.FilesTotal != 2 || first.FilesUploaded != 2 || first.WorkoutsRecorded != 2 {
		t.Errorf("first run = %+v", first)
	}
	if len(first.UnmappedExercises) != 1 {
		t.Errorf("unmapped = %v, want one name", first.UnmappedExercises)
	}

	second := run()
	if second.FilesSkipped != 2 || second.FilesUploaded != 0 {
		t.Errorf("second run = %+v", second)
	}

	writeFile(t, filepath.Join(dir, "a.csv"), "a changed")
	third := run()
	if third.FilesUploaded != 1 || third.FilesSkipped != 1 {
		t.Errorf("third run = %+v", third)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server calls = %d, want 3", got)
	}

	if n, err := state.Imported("u1"); err != nil || n != 2 {
		t.Errorf("Imported = %d, %v; want 2", n, err)
	}
	if n, _ := state.Imported("u2"); n != 0 {
		t.Errorf("Imported(u2) = %d, want 0", n)
	}
}

// TestUploaderReportsFailures verifies failed files are counted and not marked.
func TestUploaderReportsFailures(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad", http.StatusBadRequest)
	}))
	defer ts.Close()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.csv"), "a")

	state, err := OpenStateDB(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer state.Close()

	stats, err := New(newTestClient(ts.URL), state, Options{Dir: dir, UID: "u1"}, discardLogger()).Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if stats.FilesErrored != 1 {
		t.Errorf("stats = %+v", stats)
	}
	if n, _ := state.Imported("u1"); n != 0 {
		t.Errorf("Imported = %d, want 0", n)
	}
}

// TestUploaderDryRun verifies nothing is sent in dry-run mode.
func TestUploaderDryRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.csv"), "a")

	stats, err := New(NewClient("http://127.0.0.1:0", ""), nil, Options{Dir: dir, UID: "u1", DryRun: true}, discardLogger()).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.FilesTotal != 1 || stats.FilesUploaded != 0 {
		t.Errorf("stats = %+v", stats)
	}
}
