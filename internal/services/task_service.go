package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/aididalam/tasktrack/internal/models"
	"github.com/aididalam/tasktrack/internal/query"
)

type taskServiceImpl struct {
	logger    zerolog.Logger
	tasks     TaskRepository
	filters   FilterStore
	publisher Publisher
}

func NewTaskService(
	logger zerolog.Logger,
	tasks TaskRepository,
	filters FilterStore,
	publisher Publisher,
) TaskService {
	return &taskServiceImpl{
		logger:    logger,
		tasks:     tasks,
		filters:   filters,
		publisher: publisher,
	}
}

func (s *taskServiceImpl) ListTasks(ctx context.Context, userID string, filter models.TaskFilter) ([]*models.Task, error) {
	// The submitted criteria replace the stored ones wholesale, even
	// when every field is empty. A store failure must surface: falling
	// back to an unfiltered listing would contradict the user's intent.
	err := s.filters.Upsert(ctx, userID, filter)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to store filter")
		return nil, err
	}
	s.logger.Debug().
		Str("user_id", userID).
		Msg("stored filter")

	tasks, err := s.tasks.ListByUserID(ctx, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to list tasks")
		return nil, err
	}

	filtered := query.Apply(tasks, filter)
	s.logger.Info().
		Str("user_id", userID).
		Int("count", len(filtered)).
		Msg("listed tasks")
	return filtered, nil
}

func (s *taskServiceImpl) CreateTask(ctx context.Context, params CreateTaskParams) ([]*models.Task, error) {
	if !models.ValidStatus(params.Status) {
		return nil, ErrInvalidTaskStatus
	}

	task := &models.Task{
		UserID:      params.UserID,
		Name:        params.Name,
		Description: params.Description,
		Status:      params.Status,
		DueDate:     params.DueDate,
	}

	err := s.tasks.Create(ctx, task)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", params.UserID).
			Msg("failed to create task")
		return nil, err
	}
	s.logger.Debug().
		Str("task_id", task.ID).
		Msg("created task")

	filtered, err := s.filteredTasks(ctx, params.UserID)
	if err != nil {
		return nil, err
	}

	s.broadcast(models.TaskEvent{Type: models.EventTaskAdded, Task: filtered})

	s.logger.Info().
		Str("task_id", task.ID).
		Str("user_id", params.UserID).
		Msg("created task")
	return filtered, nil
}

func (s *taskServiceImpl) UpdateTask(ctx context.Context, params UpdateTaskParams) (*models.Task, error) {
	task, err := s.tasks.FindByID(ctx, params.ID, params.UserID)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			s.logger.Warn().
				Str("task_id", params.ID).
				Str("user_id", params.UserID).
				Msg("task not found")
			return nil, ErrTaskNotFound
		}

		s.logger.Error().
			Err(err).
			Str("task_id", params.ID).
			Msg("failed to find task")
		return nil, err
	}

	if params.Name != nil {
		task.Name = *params.Name
	}
	if params.Description != nil {
		task.Description = *params.Description
	}
	if params.Status != nil {
		if !models.ValidStatus(*params.Status) {
			return nil, ErrInvalidTaskStatus
		}
		task.Status = *params.Status
	}
	if params.DueDate != nil {
		task.DueDate = params.DueDate
	}

	err = s.tasks.Update(ctx, task)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", task.ID).
			Msg("failed to update task")
		return nil, err
	}
	s.logger.Debug().
		Str("task_id", task.ID).
		Msg("updated task")

	s.broadcast(models.TaskEvent{Type: models.EventTaskUpdate, Task: task})

	s.logger.Info().
		Str("task_id", task.ID).
		Str("user_id", task.UserID).
		Msg("updated task")
	return task, nil
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, taskID, userID string) error {
	task, err := s.tasks.FindByID(ctx, taskID, userID)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			s.logger.Warn().
				Str("task_id", taskID).
				Str("user_id", userID).
				Msg("task not found")
			return ErrTaskNotFound
		}

		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to find task")
		return err
	}

	err = s.tasks.Delete(ctx, taskID, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to delete task")
		return err
	}
	s.logger.Debug().
		Str("task_id", taskID).
		Msg("deleted task")

	s.broadcast(models.TaskEvent{Type: models.EventTaskDelete, Task: task})

	s.logger.Info().
		Str("task_id", taskID).
		Str("user_id", userID).
		Msg("deleted task")
	return nil
}

// filteredTasks recomputes the user's listing through the stored
// filter, which is not necessarily the one from the current request.
// A user who never listed tasks has no stored row; that is the
// identity filter.
func (s *taskServiceImpl) filteredTasks(ctx context.Context, userID string) ([]*models.Task, error) {
	var filter models.TaskFilter
	stored, err := s.filters.Get(ctx, userID)
	if err != nil && !errors.Is(err, ErrFilterNotFound) {
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to get stored filter")
		return nil, err
	}
	if stored != nil {
		filter = *stored
	}

	tasks, err := s.tasks.ListByUserID(ctx, userID)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to list tasks")
		return nil, err
	}

	return query.Apply(tasks, filter), nil
}

// broadcast hands the event to the publisher on a separate goroutine
// once the durable write has committed. The request context may be
// canceled as soon as the response is written, so the publisher gets
// a detached context; delivery never gates the response.
func (s *taskServiceImpl) broadcast(event models.TaskEvent) {
	go s.publisher.Publish(context.Background(), event)
}
