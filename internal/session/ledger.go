package session

import (
	"errors"
	"fmt"

	"github.com/claude/recoverycoach/internal/models"
)

// ErrUIDMismatch is returned when an entry is appended under another user's id.
var ErrUIDMismatch = errors.New("entry belongs to a different user")

// ledger is an append-only list of accepted workouts.
type ledger struct {
	entries []models.WorkoutEntry
}

func (l *ledger) append(e models.WorkoutEntry) {
	l.entries = append(l.entries, e.Clone())
}

func (l *ledger) snapshot() []models.WorkoutEntry {
	out := make([]models.WorkoutEntry, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Clone()
	}
	return out
}

// AppendWorkout validates in and appends it to uid's ledger. A missing
// timestamp is set to the store clock. Nothing is written when validation
// fails; the error is then a *models.ValidationError.
func (s *Store) AppendWorkout(uid string, in models.WorkoutInput) (models.WorkoutEntry, error) {
	if in.UID == "" {
		in.UID = uid
	}
	entry, err := models.ValidateWorkout(in, s.now())
	if err != nil {
		return models.WorkoutEntry{}, err
	}
	if entry.UID != uid {
		return models.WorkoutEntry{}, fmt.Errorf("appending workout for %q: %w", uid, ErrUIDMismatch)
	}

	u := s.user(uid, true)
	u.mu.Lock()
	u.ledger.append(entry)
	u.mu.Unlock()
	return entry.Clone(), nil
}

// Workouts returns a copy of uid's ledger in append order. The caller may
// modify the result freely.
func (s *Store) Workouts(uid string) []models.WorkoutEntry {
	u := s.user(uid, false)
	if u == nil {
		return []models.WorkoutEntry{}
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.ledger.snapshot()
}
