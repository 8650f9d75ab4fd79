package coach

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/claude/recoverycoach/internal/models"
	"github.com/claude/recoverycoach/internal/recovery"
	"github.com/claude/recoverycoach/internal/session"
)

var t0 = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedResponder replays fixed chunks and records what it was sent.
type scriptedResponder struct {
	chunks  []string
	err     error
	system  string
	history []models.ChatTurn
}

func (r *scriptedResponder) Stream(_ context.Context, system string, history []models.ChatTurn, onDelta func(string) error) error {
	r.system = system
	r.history = history
	for _, c := range r.chunks {
		if err := onDelta(c); err != nil {
			return err
		}
	}
	return r.err
}

func newService(now *time.Time, r Responder) *Service {
	store := session.New(session.WithClock(func() time.Time { return *now }))
	return New(store, discardLogger(), WithResponder(r))
}

func intp(v int) *int { return &v }

// TestRecoveryScenarioU1 verifies the chest example end to end through the service.
func TestRecoveryScenarioU1(t *testing.T) {
	now := t0
	svc := newService(&now, nil)

	_, err := svc.RecordWorkout(models.WorkoutInput{
		UID: "u1", Muscles: []string{"chest"}, Effort: intp(8), Soreness: intp(6), DurationMin: 40, TS: t0,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	r, err := svc.Recovery("u1", t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("recovery: %v", err)
	}
	if r.MuscleScores[models.Chest] != 42 {
		t.Errorf("chest = %d, want 42", r.MuscleScores[models.Chest])
	}
	for _, m := range r.Recommended {
		if m == "chest" {
			t.Error("chest recommended")
		}
	}
}

// TestRecoveryScenarioU2 verifies a fresh user gets the whole catalog at 100.
func TestRecoveryScenarioU2(t *testing.T) {
	now := t0
	svc := newService(&now, nil)

	r, err := svc.Recovery("u2", now)
	if err != nil {
		t.Fatalf("recovery: %v", err)
	}
	if len(r.MuscleScores) != 11 || len(r.Recommended) != 11 {
		t.Fatalf("scores=%d recommended=%d, want 11/11", len(r.MuscleScores), len(r.Recommended))
	}
	for m, s := range r.MuscleScores {
		if s != 100 {
			t.Errorf("%s = %d, want 100", m, s)
		}
	}
}

// TestServiceRejectsBlankUID verifies uid-keyed operations validate the uid.
func TestServiceRejectsBlankUID(t *testing.T) {
	now := t0
	svc := newService(&now, nil)
	var ve *models.ValidationError

	if _, err := svc.Workouts(" "); !errors.As(err, &ve) {
		t.Errorf("Workouts error = %v", err)
	}
	if _, err := svc.CheckAndChargeRate(""); !errors.As(err, &ve) {
		t.Errorf("CheckAndChargeRate error = %v", err)
	}
	if err := svc.RecordChatTurn("u1", "system", "x"); !errors.As(err, &ve) || ve.Field != "role" {
		t.Errorf("RecordChatTurn error = %v, want role validation", err)
	}
}

// TestStreamChatRecordsBothTurns verifies the user message and assembled
// reply land in the chat window and the prompt carries recovery data.
func TestStreamChatRecordsBothTurns(t *testing.T) {
	now := t0
	r := &scriptedResponder{chunks: []string{"Train ", "legs ", "today."}}
	svc := newService(&now, r)

	var got strings.Builder
	err := svc.StreamChat(context.Background(), "u1", "What should I train?", func(d string) error {
		got.WriteString(d)
		return nil
	})
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	if got.String() != "Train legs today." {
		t.Errorf("emitted %q", got.String())
	}

	h, _ := svc.ChatWindow("u1")
	if len(h) != 2 || h[0].Role != models.RoleUser || h[1].Content != "Train legs today." {
		t.Errorf("history = %+v", h)
	}
	if len(r.history) != 1 || r.history[0].Content != "What should I train?" {
		t.Errorf("model saw history %+v", r.history)
	}
	if !strings.Contains(r.system, "chest 100") {
		t.Errorf("system prompt lacks recovery data: %q", r.system)
	}
}

// TestStreamChatModelError verifies a model failure is reported in-band and
// the partial reply is still recorded.
func TestStreamChatModelError(t *testing.T) {
	now := t0
	r := &scriptedResponder{chunks: []string{"Par"}, err: errors.New("upstream 500")}
	svc := newService(&now, r)

	var got strings.Builder
	if err := svc.StreamChat(context.Background(), "u1", "hi", func(d string) error {
		got.WriteString(d)
		return nil
	}); err != nil {
		t.Fatalf("stream: %v", err)
	}
	if !strings.Contains(got.String(), "[Error: upstream 500]") {
		t.Errorf("emitted %q, want error marker", got.String())
	}
	h, _ := svc.ChatWindow("u1")
	if len(h) != 2 || h[1].Content != "Par" {
		t.Errorf("history = %+v", h)
	}
}

// TestStreamChatRateLimited verifies the fourth exchange in 10s is denied
// without touching the chat window.
func TestStreamChatRateLimited(t *testing.T) {
	now := t0
	svc := newService(&now, &scriptedResponder{chunks: []string{"ok"}})
	noop := func(string) error { return nil }

	for i := 0; i < 3; i++ {
		if err := svc.StreamChat(context.Background(), "u1", "hi", noop); err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
	}
	err := svc.StreamChat(context.Background(), "u1", "hi", noop)
	var rl *RateLimitError
	if !errors.As(err, &rl) || !errors.Is(err, ErrRateLimited) {
		t.Fatalf("error = %v, want RateLimitError", err)
	}
	if rl.RetryAfter != 10*time.Second {
		t.Errorf("retry after = %v, want 10s", rl.RetryAfter)
	}
	if h, _ := svc.ChatWindow("u1"); len(h) != 6 {
		t.Errorf("history length = %d, want 6", len(h))
	}

	now = now.Add(10 * time.Second)
	if err := svc.StreamChat(context.Background(), "u1", "hi", noop); err != nil {
		t.Errorf("after decay: %v", err)
	}
}

// TestStreamChatUnavailable verifies chat fails cleanly without a responder.
func TestStreamChatUnavailable(t *testing.T) {
	now := t0
	svc := New(session.New(session.WithClock(func() time.Time { return now })), discardLogger())
	if err := svc.StreamChat(context.Background(), "u1", "hi", nil); !errors.Is(err, ErrChatUnavailable) {
		t.Errorf("error = %v, want ErrChatUnavailable", err)
	}
}

// TestBriefRest verifies the prompt brief mentions rest when nothing is trainable.
func TestBriefRest(t *testing.T) {
	b := Brief(recovery.Report{MuscleScores: recovery.Scores{}, Recommended: []string{recovery.RestSentinel}})
	if !strings.Contains(b, "rest or mobility") {
		t.Errorf("brief = %q", b)
	}
}
