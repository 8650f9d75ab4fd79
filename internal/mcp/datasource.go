package mcp

import (
	"context"

	"github.com/claude/recoverycoach/internal/coach"
	"github.com/claude/recoverycoach/internal/models"
	"github.com/claude/recoverycoach/internal/recovery"
)

// DataSource abstracts the coach operations behind MCP tools. Both
// ServiceSource (in-process) and HTTPClient (remote via REST API) satisfy
// this interface.
type DataSource interface {
	Recovery(ctx context.Context, uid string) (recovery.Report, error)
	RecordWorkout(ctx context.Context, in models.WorkoutInput) (models.WorkoutEntry, error)
	Workouts(ctx context.Context, uid string) ([]models.WorkoutEntry, error)
	ChatHistory(ctx context.Context, uid string) ([]models.ChatTurn, error)
}

// ServiceSource serves MCP tools from an in-process coach service.
type ServiceSource struct {
	svc *coach.Service
}

// Compile-time check: ServiceSource satisfies DataSource.
var _ DataSource = (*ServiceSource)(nil)

// NewServiceSource wraps svc as a DataSource.
func NewServiceSource(svc *coach.Service) *ServiceSource {
	return &ServiceSource{svc: svc}
}

func (s *ServiceSource) Recovery(_ context.Context, uid string) (recovery.Report, error) {
	return s.svc.Recovery(uid, s.svc.Now())
}

func (s *ServiceSource) RecordWorkout(_ context.Context, in models.WorkoutInput) (models.WorkoutEntry, error) {
	return s.svc.RecordWorkout(in)
}

func (s *ServiceSource) Workouts(_ context.Context, uid string) ([]models.WorkoutEntry, error) {
	return s.svc.Workouts(uid)
}

func (s *ServiceSource) ChatHistory(_ context.Context, uid string) ([]models.ChatTurn, error) {
	return s.svc.ChatWindow(uid)
}
