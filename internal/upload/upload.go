package upload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/pool"
)

// DefaultConcurrency is the number of files uploaded at once.
const DefaultConcurrency = 4

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	SessionsSent      int
	WorkoutsRecorded  int
	UnmappedExercises []string
}

// Options configures an Uploader.
type Options struct {
	// Dir is searched recursively for *.csv exports.
	Dir         string
	UID         string
	DryRun      bool
	Concurrency int
}

// Uploader walks a directory of Alpha Progression exports and sends each
// new or changed file to the coachd ingest endpoint.
type Uploader struct {
	client *Client
	state  *StateDB
	opts   Options
	log    *slog.Logger

	mu       sync.Mutex
	stats    Stats
	unmapped map[string]bool
}

// New creates a new Uploader.
func New(client *Client, state *StateDB, opts Options, log *slog.Logger) *Uploader {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Uploader{
		client:   client,
		state:    state,
		opts:     opts,
		log:      log,
		unmapped: make(map[string]bool),
	}
}

// fileInfo tracks a file's metadata for state DB operations.
type fileInfo struct {
	path    string
	relPath string
	size    int64
	hash    string
}

// Run uploads every pending export. A failed file does not stop the others;
// all failures are joined into the returned error.
func (u *Uploader) Run(ctx context.Context) (*Stats, error) {
	files, err := u.collect()
	if err != nil {
		return &u.stats, err
	}

	p := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(u.opts.Concurrency)
	for _, f := range files {
		p.Go(func(ctx context.Context) error {
			if err := u.uploadFile(ctx, f); err != nil {
				u.mu.Lock()
				u.stats.FilesErrored++
				u.mu.Unlock()
				u.log.Error("upload failed", "file", f.relPath, "error", err)
				return fmt.Errorf("%s: %w", f.relPath, err)
			}
			return nil
		})
	}
	err = p.Wait()

	sort.Strings(u.stats.UnmappedExercises)
	return &u.stats, err
}

// collect finds *.csv files and drops those already imported unchanged.
func (u *Uploader) collect() ([]fileInfo, error) {
	var files []fileInfo
	err := filepath.WalkDir(u.opts.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".csv") {
			return nil
		}
		u.stats.FilesTotal++

		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(u.opts.Dir, path)
		if err != nil {
			return err
		}
		hash, err := HashFile(path)
		if err != nil {
			return fmt.Errorf("hashing %s: %w", rel, err)
		}

		if u.state != nil {
			done, err := u.state.IsImported(u.opts.UID, rel, info.Size(), hash)
			if err != nil {
				return fmt.Errorf("checking state for %s: %w", rel, err)
			}
			if done {
				u.stats.FilesSkipped++
				return nil
			}
		}
		files = append(files, fileInfo{path: path, relPath: rel, size: info.Size(), hash: hash})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", u.opts.Dir, err)
	}
	return files, nil
}

func (u *Uploader) uploadFile(ctx context.Context, f fileInfo) error {
	if u.opts.DryRun {
		u.log.Info("dry run: would upload", "file", f.relPath, "size", f.size)
		return nil
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return err
	}
	result, err := u.client.SendAlphaCSV(ctx, u.opts.UID, data)
	if err != nil {
		return err
	}
	if u.state != nil {
		if err := u.state.MarkImported(u.opts.UID, f.relPath, f.size, f.hash, result.WorkoutsRecorded); err != nil {
			return errors.Join(errors.New("uploaded but not recorded in state db"), err)
		}
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	u.stats.FilesUploaded++
	u.stats.SessionsSent += result.SessionsReceived
	u.stats.WorkoutsRecorded += result.WorkoutsRecorded
	for _, name := range result.UnmappedExercises {
		if !u.unmapped[name] {
			u.unmapped[name] = true
			u.stats.UnmappedExercises = append(u.stats.UnmappedExercises, name)
		}
	}
	u.log.Info("uploaded", "file", f.relPath, "workouts", result.WorkoutsRecorded, "skipped", result.SessionsSkipped)
	return nil
}
