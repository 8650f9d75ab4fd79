// Package recovery scores how rested each muscle group is from a user's
// workout history and picks the groups that are safe to train.
//
// Everything here is a pure function of its inputs.
package recovery

import (
	"time"

	"github.com/claude/recoverycoach/internal/models"
)

const (
	// MaxScore is the score of a fully rested muscle.
	MaxScore = 100

	// RecentWindow is how long after training the recency penalty applies.
	RecentWindow = 24 * time.Hour
	// RecentPenalty is subtracted from muscles trained within RecentWindow.
	RecentPenalty = 40
	// SorenessPenalty is the penalty at maximum reported soreness; it scales
	// linearly with the highest soreness logged for the muscle.
	SorenessPenalty = 30

	// TrainableScore is the minimum score for a muscle to be recommended.
	TrainableScore = 71
	// RestWindow is how long a muscle must rest before it is recommended again.
	RestWindow = 48 * time.Hour

	// RestSentinel is returned alone when no muscle is trainable.
	RestSentinel = "Rest / Mobility"
)

// Scores maps every catalog muscle to a score in [0, MaxScore].
type Scores map[models.Muscle]int

// Report is the full recovery view for one user at one instant.
type Report struct {
	MuscleScores Scores                      `json:"muscle_scores"`
	LastTrained  map[models.Muscle]time.Time `json:"last_trained,omitempty"`
	Recommended  []string                    `json:"recommended"`
	UpdatedAt    time.Time                   `json:"updated_at"`
}

// LastTrained returns, per muscle, the latest timestamp of an entry that
// trained it. Entries without a timestamp are ignored and never-trained
// muscles are absent from the map.
func LastTrained(entries []models.WorkoutEntry) map[models.Muscle]time.Time {
	last := make(map[models.Muscle]time.Time)
	for _, e := range entries {
		if e.TS.IsZero() {
			continue
		}
		for _, m := range e.Muscles {
			if prev, ok := last[m]; !ok || e.TS.After(prev) {
				last[m] = e.TS
			}
		}
	}
	return last
}

// peakSoreness returns the highest soreness logged per muscle, including
// entries that carry no timestamp.
func peakSoreness(entries []models.WorkoutEntry) map[models.Muscle]int {
	doms := make(map[models.Muscle]int)
	for _, e := range entries {
		for _, m := range e.Muscles {
			if e.Soreness > doms[m] {
				doms[m] = e.Soreness
			}
		}
	}
	return doms
}

// Calc computes a recovery score for every catalog muscle. Order of entries
// does not matter. Muscles never trained score MaxScore.
func Calc(entries []models.WorkoutEntry, now time.Time) Scores {
	last := LastTrained(entries)
	doms := peakSoreness(entries)

	scores := make(Scores, len(models.Catalog()))
	for _, m := range models.Catalog() {
		score := MaxScore
		if lt, ok := last[m]; ok && now.Sub(lt) < RecentWindow {
			score -= RecentPenalty
		}
		score -= SorenessPenalty * doms[m] / models.MaxSoreness
		scores[m] = clamp(score, 0, MaxScore)
	}
	return scores
}

// RecommendTrainable lists, in catalog order, the muscles scoring at least
// TrainableScore that have rested longer than RestWindow (or were never
// trained). It never returns an empty list: when nothing qualifies the
// result is the single RestSentinel.
func RecommendTrainable(scores Scores, lastTrained map[models.Muscle]time.Time, now time.Time) []string {
	var out []string
	for _, m := range models.Catalog() {
		if scores[m] < TrainableScore {
			continue
		}
		if lt, ok := lastTrained[m]; ok && now.Sub(lt) <= RestWindow {
			continue
		}
		out = append(out, string(m))
	}
	if len(out) == 0 {
		return []string{RestSentinel}
	}
	return out
}

// IsRest reports whether a recommendation is the rest sentinel.
func IsRest(recommended []string) bool {
	return len(recommended) == 1 && recommended[0] == RestSentinel
}

// Build computes scores, last-trained times and recommendations in one pass
// over the same snapshot.
func Build(entries []models.WorkoutEntry, now time.Time) Report {
	last := LastTrained(entries)
	scores := Calc(entries, now)
	return Report{
		MuscleScores: scores,
		LastTrained:  last,
		Recommended:  RecommendTrainable(scores, last, now),
		UpdatedAt:    now.UTC(),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
