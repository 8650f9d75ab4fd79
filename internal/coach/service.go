// Package coach is the application layer between transports (HTTP, MCP)
// and the session store and recovery engine.
package coach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/claude/recoverycoach/internal/models"
	"github.com/claude/recoverycoach/internal/recovery"
	"github.com/claude/recoverycoach/internal/session"
)

var (
	// ErrRateLimited is wrapped by RateLimitError.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrChatUnavailable means no chat model is configured.
	ErrChatUnavailable = errors.New("coach chat is not configured")
)

// RateLimitError reports a denied request and when to retry.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s, retry in %s", ErrRateLimited, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// DefaultContextTurns is how many recent turns are sent to the model.
const DefaultContextTurns = 20

// DefaultSystemPrompt frames the model as a strength coach.
const DefaultSystemPrompt = "You are a friendly, concise strength and conditioning coach. " +
	"Base training advice on the athlete's recovery data below and never recommend training a muscle group that is still recovering."

// Service implements the coach operations on top of a session store.
type Service struct {
	store        *session.Store
	responder    Responder
	systemPrompt string
	contextTurns int
	log          *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithResponder enables StreamChat.
func WithResponder(r Responder) Option {
	return func(s *Service) { s.responder = r }
}

// WithSystemPrompt replaces DefaultSystemPrompt.
func WithSystemPrompt(p string) Option {
	return func(s *Service) {
		if p != "" {
			s.systemPrompt = p
		}
	}
}

// WithContextTurns sets how many recent turns are sent to the model.
func WithContextTurns(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.contextTurns = n
		}
	}
}

// New creates a Service.
func New(store *session.Store, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:        store,
		systemPrompt: DefaultSystemPrompt,
		contextTurns: DefaultContextTurns,
		log:          log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the current time from the store clock.
func (s *Service) Now() time.Time {
	return s.store.Now()
}

// RecordWorkout validates and stores a workout.
func (s *Service) RecordWorkout(in models.WorkoutInput) (models.WorkoutEntry, error) {
	uid, err := models.ValidateUID(in.UID)
	if err != nil {
		return models.WorkoutEntry{}, err
	}
	in.UID = uid
	entry, err := s.store.AppendWorkout(uid, in)
	if err != nil {
		return models.WorkoutEntry{}, err
	}
	s.log.Info("workout recorded", "uid", uid, "muscles", len(entry.Muscles), "effort", entry.Effort, "soreness", entry.Soreness)
	return entry, nil
}

// Workouts returns a snapshot of uid's ledger.
func (s *Service) Workouts(uid string) ([]models.WorkoutEntry, error) {
	uid, err := models.ValidateUID(uid)
	if err != nil {
		return nil, err
	}
	return s.store.Workouts(uid), nil
}

// Recovery computes uid's recovery report at now.
func (s *Service) Recovery(uid string, now time.Time) (recovery.Report, error) {
	uid, err := models.ValidateUID(uid)
	if err != nil {
		return recovery.Report{}, err
	}
	return recovery.Build(s.store.Workouts(uid), now), nil
}

// RecordChatTurn appends a turn to uid's chat window.
func (s *Service) RecordChatTurn(uid, role, content string) error {
	uid, err := models.ValidateUID(uid)
	if err != nil {
		return err
	}
	r, err := models.ParseRole(role)
	if err != nil {
		return err
	}
	s.store.AppendChat(uid, r, content)
	return nil
}

// ChatWindow returns uid's recent turns, oldest first.
func (s *Service) ChatWindow(uid string) ([]models.ChatTurn, error) {
	uid, err := models.ValidateUID(uid)
	if err != nil {
		return nil, err
	}
	return s.store.ChatHistory(uid), nil
}

// CheckAndChargeRate charges one request against uid's rate budget.
func (s *Service) CheckAndChargeRate(uid string) (session.Decision, error) {
	uid, err := models.ValidateUID(uid)
	if err != nil {
		return session.Decision{}, err
	}
	d := s.store.TryConsume(uid)
	if !d.Allowed {
		s.log.Warn("rate limited", "uid", uid, "in_flight", d.InFlight, "retry_after", d.RetryAfter.String())
	}
	return d, nil
}

// StreamChat runs one coach exchange: it charges the rate limiter, records
// the user's message, streams the model reply through emit and records the
// assembled reply. A model failure is reported in-band as an error marker;
// the (possibly partial) reply is still recorded.
func (s *Service) StreamChat(ctx context.Context, uid, message string, emit func(string) error) error {
	if s.responder == nil {
		return ErrChatUnavailable
	}
	uid, err := models.ValidateUID(uid)
	if err != nil {
		return err
	}
	if strings.TrimSpace(message) == "" {
		return &models.ValidationError{Field: "message", Reason: "is required"}
	}

	d := s.store.TryConsume(uid)
	if !d.Allowed {
		return &RateLimitError{RetryAfter: d.RetryAfter}
	}

	s.store.AppendChat(uid, models.RoleUser, message)
	history := s.store.ChatHistory(uid)
	if len(history) > s.contextTurns {
		history = history[len(history)-s.contextTurns:]
	}
	report := recovery.Build(s.store.Workouts(uid), s.store.Now())
	system := s.systemPrompt + "\n\n" + Brief(report)

	var reply strings.Builder
	var emitErr error
	streamErr := s.responder.Stream(ctx, system, history, func(delta string) error {
		reply.WriteString(delta)
		if err := emit(delta); err != nil {
			emitErr = err
			return err
		}
		return nil
	})
	if streamErr != nil && emitErr == nil {
		s.log.Error("coach stream failed", "uid", uid, "error", streamErr)
		emitErr = emit("\n[Error: " + streamErr.Error() + "]")
	}

	s.store.AppendChat(uid, models.RoleAssistant, reply.String())
	return emitErr
}

// Brief renders a recovery report as plain text for a model prompt.
func Brief(r recovery.Report) string {
	var b strings.Builder
	b.WriteString("Recovery scores (0-100, higher is more rested):")
	for _, m := range models.Catalog() {
		fmt.Fprintf(&b, " %s %d;", m, r.MuscleScores[m])
	}
	if recovery.IsRest(r.Recommended) {
		b.WriteString("\nNo muscle group is ready to train: suggest rest or mobility work.")
	} else {
		b.WriteString("\nReady to train: " + strings.Join(r.Recommended, ", ") + ".")
	}
	return b.String()
}
