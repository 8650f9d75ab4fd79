package session

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/claude/recoverycoach/internal/models"
	"github.com/sourcegraph/conc"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func intp(v int) *int { return &v }

func chestInput() models.WorkoutInput {
	return models.WorkoutInput{Muscles: []string{"chest"}, Effort: intp(8), Soreness: intp(6), DurationMin: 40}
}

// TestAppendWorkoutStampsIngestionTime verifies a missing ts takes the store clock.
func TestAppendWorkoutStampsIngestionTime(t *testing.T) {
	clock := newFakeClock()
	s := New(WithClock(clock.Now))

	e, err := s.AppendWorkout("u1", chestInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.TS.Equal(clock.Now()) {
		t.Errorf("ts = %v, want %v", e.TS, clock.Now())
	}
	if e.UID != "u1" {
		t.Errorf("uid = %q, want u1", e.UID)
	}
}

// TestAppendWorkoutRejectsWithoutWriting verifies a validation failure leaves
// the ledger untouched.
func TestAppendWorkoutRejectsWithoutWriting(t *testing.T) {
	s := New()
	in := chestInput()
	in.Effort = intp(0)

	_, err := s.AppendWorkout("u1", in)
	var ve *models.ValidationError
	if !errors.As(err, &ve) || ve.Field != "effort" {
		t.Fatalf("error = %v, want effort validation error", err)
	}
	if n := len(s.Workouts("u1")); n != 0 {
		t.Errorf("ledger length = %d, want 0", n)
	}
}

// TestAppendWorkoutUIDMismatch verifies an entry cannot be filed under another user.
func TestAppendWorkoutUIDMismatch(t *testing.T) {
	s := New()
	in := chestInput()
	in.UID = "someone-else"
	if _, err := s.AppendWorkout("u1", in); !errors.Is(err, ErrUIDMismatch) {
		t.Errorf("error = %v, want ErrUIDMismatch", err)
	}
}

// TestWorkoutsSnapshotIsolation verifies callers cannot mutate the ledger
// through a returned snapshot, and repeated reads are equal.
func TestWorkoutsSnapshotIsolation(t *testing.T) {
	s := New()
	if _, err := s.AppendWorkout("u1", chestInput()); err != nil {
		t.Fatal(err)
	}

	a := s.Workouts("u1")
	b := s.Workouts("u1")
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("snapshots differ:\n%v\n%v", a, b)
	}

	a[0].Muscles[0] = models.Back
	a[0].Soreness = 0
	a = append(a, models.WorkoutEntry{})

	c := s.Workouts("u1")
	if len(c) != 1 || c[0].Muscles[0] != models.Chest || c[0].Soreness != 6 {
		t.Errorf("ledger was mutated through snapshot: %+v", c)
	}
}

// TestUnknownUserIsEmpty verifies unseen users read as empty without error.
func TestUnknownUserIsEmpty(t *testing.T) {
	s := New()
	if w := s.Workouts("ghost"); w == nil || len(w) != 0 {
		t.Errorf("workouts = %v, want empty non-nil", w)
	}
	if h := s.ChatHistory("ghost"); h == nil || len(h) != 0 {
		t.Errorf("history = %v, want empty non-nil", h)
	}
	if n := s.InFlight("ghost"); n != 0 {
		t.Errorf("in flight = %d, want 0", n)
	}
	if s.Users() != 0 {
		t.Errorf("reads created state for %d users", s.Users())
	}
}

// TestChatWindowEvictsOldestFirst verifies the window never exceeds 40 turns
// and keeps the most recent ones in order.
func TestChatWindowEvictsOldestFirst(t *testing.T) {
	s := New()
	for i := 0; i < 100; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		s.AppendChat("u1", role, fmt.Sprintf("msg-%d", i))
		if n := len(s.ChatHistory("u1")); n > 40 {
			t.Fatalf("window holds %d turns after %d appends", n, i+1)
		}
	}

	h := s.ChatHistory("u1")
	if len(h) != 40 {
		t.Fatalf("window holds %d turns, want 40", len(h))
	}
	if h[0].Content != "msg-60" || h[39].Content != "msg-99" {
		t.Errorf("window spans %q..%q, want msg-60..msg-99", h[0].Content, h[39].Content)
	}
	if h[0].Role != models.RoleUser {
		t.Errorf("first role = %q, want user", h[0].Role)
	}
}

// TestChatWindowPartial verifies a window below capacity returns all turns.
func TestChatWindowPartial(t *testing.T) {
	s := New(WithHistoryLimit(2))
	s.AppendChat("u1", models.RoleUser, "a")
	s.AppendChat("u1", models.RoleAssistant, "b")
	s.AppendChat("u1", models.RoleUser, "c")

	h := s.ChatHistory("u1")
	want := []models.ChatTurn{{Role: models.RoleUser, Content: "a"}, {Role: models.RoleAssistant, Content: "b"}, {Role: models.RoleUser, Content: "c"}}
	if !reflect.DeepEqual(h, want) {
		t.Errorf("history = %v, want %v", h, want)
	}

	s.AppendChat("u1", models.RoleAssistant, "d")
	s.AppendChat("u1", models.RoleUser, "e")
	h = s.ChatHistory("u1")
	if len(h) != 4 || h[0].Content != "b" || h[3].Content != "e" {
		t.Errorf("history = %v, want b..e", h)
	}
}

// TestTryConsumeAllowsThreeThenDenies verifies the 3-per-10s budget and that
// denial takes no charge.
func TestTryConsumeAllowsThreeThenDenies(t *testing.T) {
	clock := newFakeClock()
	s := New(WithClock(clock.Now))

	for i := 1; i <= 3; i++ {
		d := s.TryConsume("u1")
		if !d.Allowed || d.InFlight != i {
			t.Fatalf("call %d = %+v, want allowed with %d in flight", i, d, i)
		}
		clock.Advance(time.Second)
	}

	d := s.TryConsume("u1")
	if d.Allowed {
		t.Fatal("4th call within window was allowed")
	}
	if d.InFlight != 3 {
		t.Errorf("in flight after denial = %d, want 3", d.InFlight)
	}
	// first charge at t=0 expires at t=10; now is t=3
	if d.RetryAfter != 7*time.Second {
		t.Errorf("retry after = %v, want 7s", d.RetryAfter)
	}
}

// TestTryConsumeDecay verifies each charge decays independently 10s after
// acceptance and the counter returns to zero.
func TestTryConsumeDecay(t *testing.T) {
	clock := newFakeClock()
	s := New(WithClock(clock.Now))

	s.TryConsume("u1") // t=0
	clock.Advance(4 * time.Second)
	s.TryConsume("u1") // t=4
	s.TryConsume("u1") // t=4

	clock.Advance(6 * time.Second) // t=10: first charge gone
	if n := s.InFlight("u1"); n != 2 {
		t.Errorf("in flight at t=10 = %d, want 2", n)
	}
	if d := s.TryConsume("u1"); !d.Allowed {
		t.Error("call at t=10 denied after first charge expired")
	}

	clock.Advance(10 * time.Second) // t=20: everything expired
	if n := s.InFlight("u1"); n != 0 {
		t.Errorf("in flight at t=20 = %d, want 0", n)
	}
	for i := 0; i < 3; i++ {
		if d := s.TryConsume("u1"); !d.Allowed {
			t.Fatalf("call %d after full decay denied", i+1)
		}
	}
}

// TestTryConsumePerUser verifies users do not share rate budgets.
func TestTryConsumePerUser(t *testing.T) {
	s := New(WithClock(newFakeClock().Now))
	for i := 0; i < 3; i++ {
		s.TryConsume("u1")
	}
	if d := s.TryConsume("u2"); !d.Allowed {
		t.Error("u2 denied because of u1's charges")
	}
}

// TestConcurrentAccess verifies concurrent writers lose no updates and the
// rate limiter never admits more than its limit.
func TestConcurrentAccess(t *testing.T) {
	s := New(WithClock(newFakeClock().Now), WithShards(4))

	var mu sync.Mutex
	allowed := 0

	var wg conc.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Go(func() {
			if _, err := s.AppendWorkout("u1", chestInput()); err != nil {
				t.Errorf("append: %v", err)
			}
			s.AppendChat("u1", models.RoleUser, "hi")
			if s.TryConsume("u1").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	if n := len(s.Workouts("u1")); n != 50 {
		t.Errorf("ledger length = %d, want 50", n)
	}
	if n := len(s.ChatHistory("u1")); n != 40 {
		t.Errorf("history length = %d, want 40", n)
	}
	if allowed != 3 {
		t.Errorf("allowed = %d, want 3", allowed)
	}
}
