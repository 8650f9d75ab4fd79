package alpha

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/claude/recoverycoach/internal/ingest"
	"github.com/claude/recoverycoach/internal/models"
)

// DefaultEffort is used for sessions with no tracked RIR.
const DefaultEffort = 7

// Recorder accepts validated workouts into a user's ledger and lists what
// is already there.
type Recorder interface {
	RecordWorkout(in models.WorkoutInput) (models.WorkoutEntry, error)
	Workouts(uid string) ([]models.WorkoutEntry, error)
}

// Provider turns Alpha Progression CSV exports into workout entries.
type Provider struct {
	rec Recorder
	log *slog.Logger
}

// NewProvider creates a new Alpha Progression ingest provider.
func NewProvider(rec Recorder, log *slog.Logger) *Provider {
	return &Provider{rec: rec, log: log}
}

// Ingest parses a CSV export and records one workout per session for uid.
// Sessions whose exercises map to no muscle group are skipped; validation
// failures are reported per session rather than aborting the import.
// Exports are cumulative, so a session whose start time already has a
// ledger entry is skipped as well.
func (p *Provider) Ingest(ctx context.Context, r io.Reader, uid string) (*ingest.Result, error) {
	sessions, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	recorded, err := p.recordedStarts(uid)
	if err != nil {
		return nil, err
	}

	result := &ingest.Result{SessionsReceived: len(sessions)}
	unmapped := make(map[string]bool)
	duplicates := 0

	for _, s := range sessions {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		in, missing := ToWorkout(uid, s)
		for _, name := range missing {
			if !unmapped[name] {
				unmapped[name] = true
				result.UnmappedExercises = append(result.UnmappedExercises, name)
			}
		}
		if len(in.Muscles) == 0 {
			result.SessionsSkipped++
			continue
		}
		if !s.Date.IsZero() && recorded[s.Date.Unix()] {
			result.SessionsSkipped++
			duplicates++
			continue
		}

		if _, err := p.rec.RecordWorkout(in); err != nil {
			result.SessionsSkipped++
			result.Rejected = append(result.Rejected, fmt.Sprintf("%s (%s): %v", s.Name, s.Date.Format("2006-01-02"), err))
			continue
		}
		if !s.Date.IsZero() {
			recorded[s.Date.Unix()] = true
		}
		result.WorkoutsRecorded++
	}

	p.log.Info("alpha import complete",
		"uid", uid,
		"sessions", result.SessionsReceived,
		"recorded", result.WorkoutsRecorded,
		"skipped", result.SessionsSkipped,
		"already_imported", duplicates,
		"unmapped", len(result.UnmappedExercises))
	return result, nil
}

// recordedStarts returns the start times, in Unix seconds, of uid's existing
// entries. An invalid uid yields an empty set; RecordWorkout reports it per
// session.
func (p *Provider) recordedStarts(uid string) (map[int64]bool, error) {
	starts := make(map[int64]bool)
	entries, err := p.rec.Workouts(uid)
	if err != nil {
		var ve *models.ValidationError
		if errors.As(err, &ve) {
			return starts, nil
		}
		return nil, fmt.Errorf("listing workouts: %w", err)
	}
	for _, e := range entries {
		if !e.TS.IsZero() {
			starts[e.TS.Unix()] = true
		}
	}
	return starts, nil
}

// ToWorkout converts a parsed session into a workout submission. It also
// returns the names of exercises that mapped to no muscle group.
func ToWorkout(uid string, s Session) (models.WorkoutInput, []string) {
	var (
		names   []string
		missing []string
		seen    = make(map[models.Muscle]bool)
	)
	for _, ex := range s.Exercises {
		ms := MusclesFor(ex.Name)
		if len(ms) == 0 {
			missing = append(missing, ex.Name)
			continue
		}
		for _, m := range ms {
			if !seen[m] {
				seen[m] = true
				names = append(names, string(m))
			}
		}
	}

	effort := SessionEffort(s)
	soreness := 0
	return models.WorkoutInput{
		UID:         uid,
		Muscles:     names,
		Effort:      &effort,
		Soreness:    &soreness,
		DurationMin: s.DurationMin,
		TS:          s.Date,
	}, missing
}

// SessionEffort derives a 1..10 effort from the mean reps-in-reserve of the
// session's working sets.
func SessionEffort(s Session) int {
	var sum float64
	var n int
	for _, ex := range s.Exercises {
		for _, set := range ex.Sets {
			if set.IsWarmup || set.RIR < 0 {
				continue
			}
			sum += set.RIR
			n++
		}
	}
	if n == 0 {
		return DefaultEffort
	}
	effort := int(math.Round(10 - sum/float64(n)))
	return max(models.MinEffort, min(models.MaxEffort, effort))
}
