package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Effort and soreness bounds.
const (
	MinEffort   = 1
	MaxEffort   = 10
	MinSoreness = 0
	MaxSoreness = 10
)

// WorkoutInput is an unvalidated workout submission.
// A zero TS means "not supplied".
type WorkoutInput struct {
	UID         string    `json:"uid"`
	Muscles     []string  `json:"muscles"`
	Effort      *int      `json:"effort"`
	Soreness    *int      `json:"soreness"`
	DurationMin int       `json:"duration_min"`
	TS          time.Time `json:"ts"`
}

// WorkoutEntry is an accepted, immutable workout record.
// Muscles is de-duplicated and in catalog order.
type WorkoutEntry struct {
	ID          uuid.UUID `json:"id"`
	UID         string    `json:"uid"`
	Muscles     []Muscle  `json:"muscles"`
	Effort      int       `json:"effort"`
	Soreness    int       `json:"soreness"`
	DurationMin int       `json:"duration_min"`
	TS          time.Time `json:"ts"`
}

// Touches reports whether the entry trained m.
func (e WorkoutEntry) Touches(m Muscle) bool {
	for _, x := range e.Muscles {
		if x == m {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no memory with e.
func (e WorkoutEntry) Clone() WorkoutEntry {
	c := e
	c.Muscles = append([]Muscle(nil), e.Muscles...)
	return c
}

// ValidateWorkout checks in and converts it into a WorkoutEntry. When in.TS
// is zero the entry is stamped with now. The returned error is always a
// *ValidationError.
func ValidateWorkout(in WorkoutInput, now time.Time) (WorkoutEntry, error) {
	uid, err := ValidateUID(in.UID)
	if err != nil {
		return WorkoutEntry{}, err
	}

	muscles, err := ParseMuscles(in.Muscles)
	if err != nil {
		return WorkoutEntry{}, err
	}

	if in.Effort == nil {
		return WorkoutEntry{}, missing("effort")
	}
	if *in.Effort < MinEffort || *in.Effort > MaxEffort {
		return WorkoutEntry{}, outOfRange("effort", *in.Effort, MinEffort, MaxEffort)
	}
	if in.Soreness == nil {
		return WorkoutEntry{}, missing("soreness")
	}
	if *in.Soreness < MinSoreness || *in.Soreness > MaxSoreness {
		return WorkoutEntry{}, outOfRange("soreness", *in.Soreness, MinSoreness, MaxSoreness)
	}
	if in.DurationMin < 0 {
		return WorkoutEntry{}, belowMinimum("duration_min", in.DurationMin, 0)
	}

	ts := in.TS
	if ts.IsZero() {
		ts = now
	}

	return WorkoutEntry{
		ID:          uuid.New(),
		UID:         uid,
		Muscles:     muscles,
		Effort:      *in.Effort,
		Soreness:    *in.Soreness,
		DurationMin: in.DurationMin,
		TS:          ts.UTC(),
	}, nil
}

// ParseMuscles normalises raw names (trim, lower-case), rejects names
// outside the catalog and empty input, and returns a de-duplicated list in
// catalog order.
func ParseMuscles(raw []string) ([]Muscle, error) {
	if len(raw) == 0 {
		return nil, &ValidationError{Field: "muscles", Reason: "must name at least one muscle group"}
	}
	seen := make(map[Muscle]bool, len(raw))
	out := make([]Muscle, 0, len(raw))
	for _, name := range raw {
		m := Muscle(strings.ToLower(strings.TrimSpace(name)))
		if !m.Valid() {
			return nil, &ValidationError{Field: "muscles", Reason: "unknown muscle group " + strconv.Quote(name)}
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	SortMuscles(out)
	return out, nil
}
