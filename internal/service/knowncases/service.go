package knowncases

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pravoguard/court-monitor/internal/domain/errors"
	"github.com/pravoguard/court-monitor/internal/domain/values"
)

// SyncStateKey is the sync_state row updated after every successful refresh.
const SyncStateKey = "taskboard_last_sync"

// Task is one task-board task as seen by the index. Only the title matters:
// case numbers are extracted from it.
type Task struct {
	ID          string
	Name        string
	ProjectID   string
	ProjectName string
}

// TaskSource supplies the current task list. Two interchangeable transports
// exist: direct authenticated polling of the task-board API, and reading a
// pre-synced snapshot artifact published by an out-of-band job. The choice is
// made once at startup; this service never branches on it.
type TaskSource interface {
	Tasks(ctx context.Context) ([]Task, error)
}

// Repository persists known-case provenance rows.
type Repository interface {
	// Upsert stores one (case number, task id) provenance row, updating an
	// existing row for the same pair in place.
	Upsert(ctx context.Context, number values.CaseNumber, taskID, taskName, projectID, projectName string) error
	// Contains reports membership of the distinct case-number set.
	Contains(ctx context.Context, number values.CaseNumber) (bool, error)
	// All returns the distinct set of canonical case numbers.
	All(ctx context.Context) (map[string]struct{}, error)
}

// StateStore records the refresh timestamp.
type StateStore interface {
	Set(ctx context.Context, key, value string) error
}

// Service maintains the deduplicated index of case numbers already tracked on
// the external task board. A refresh is a full resync: once it returns, index
// membership reflects the board's current state.
type Service struct {
	source TaskSource
	repo   Repository
	state  StateStore
	logger *zap.Logger
}

// NewService creates the known-cases index service.
func NewService(source TaskSource, repo Repository, state StateStore, logger *zap.Logger) *Service {
	return &Service{
		source: source,
		repo:   repo,
		state:  state,
		logger: logger,
	}
}

// Refresh fetches the full task list, extracts case numbers from every task
// title and upserts one provenance row per (number, task) pair. Returns the
// number of rows touched. A failing row is logged and skipped; only a failing
// fetch aborts the refresh.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	tasks, err := s.source.Tasks(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "fetching task list")
	}

	s.logger.Info("refreshing known-cases index", zap.Int("tasks", len(tasks)))

	processed := 0
	for _, task := range tasks {
		for _, number := range values.ExtractCaseNumbers(task.Name) {
			if err := s.repo.Upsert(ctx, number, task.ID, task.Name, task.ProjectID, task.ProjectName); err != nil {
				s.logger.Error("failed to store known case",
					zap.String("case_number", number.String()),
					zap.String("task_id", task.ID),
					zap.Error(err))
				continue
			}
			processed++
		}
	}

	if err := s.state.Set(ctx, SyncStateKey, time.Now().UTC().Format(time.RFC3339)); err != nil {
		s.logger.Warn("failed to record sync timestamp", zap.Error(err))
	}

	s.logger.Info("known-cases index refreshed", zap.Int("rows", processed))
	return processed, nil
}

// Contains reports whether a canonical case number is already tracked on the
// task board.
func (s *Service) Contains(ctx context.Context, number values.CaseNumber) (bool, error) {
	return s.repo.Contains(ctx, number)
}

// All returns the distinct set of known case numbers.
func (s *Service) All(ctx context.Context) (map[string]struct{}, error) {
	return s.repo.All(ctx)
}
