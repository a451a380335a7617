package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/aididalam/tasktrack/internal/models"
	"github.com/aididalam/tasktrack/internal/services"
)

type TaskRepository struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewTaskRepository(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
) *TaskRepository {
	return &TaskRepository{
		logger: logger,
		pgPool: pgPool,
	}
}

func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	const insertTaskQuery = `
INSERT INTO tasks (user_id,
                   name,
                   description,
                   status,
                   due_date)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`
	var taskID int64
	err := r.pgPool.QueryRow(
		ctx,
		insertTaskQuery,
		task.UserID,
		task.Name,
		task.Description,
		task.Status,
		dueDateValue(task.DueDate),
	).Scan(&taskID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Msg("failed to insert task")
		return err
	}

	task.ID = strconv.FormatInt(taskID, 10)
	r.logger.Debug().
		Str("task_id", task.ID).
		Msg("inserted task")
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, taskID, userID string) (*models.Task, error) {
	task := &models.Task{
		ID:     taskID,
		UserID: userID,
	}

	const selectTaskQuery = `
SELECT name,
       description,
       status,
       due_date
FROM tasks
WHERE id = $1 AND user_id = $2
`
	var dueDate *time.Time
	err := r.pgPool.QueryRow(
		ctx,
		selectTaskQuery,
		taskID,
		userID,
	).Scan(
		&task.Name,
		&task.Description,
		&task.Status,
		&dueDate,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, services.ErrTaskNotFound
		}

		r.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to select task")
		return nil, err
	}

	task.DueDate = dateFromTime(dueDate)
	return task, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	const updateTaskQuery = `
UPDATE tasks
SET name = $1,
    description = $2,
    status = $3,
    due_date = $4
WHERE id = $5 AND user_id = $6
`
	tag, err := r.pgPool.Exec(
		ctx,
		updateTaskQuery,
		task.Name,
		task.Description,
		task.Status,
		dueDateValue(task.DueDate),
		task.ID,
		task.UserID,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("task_id", task.ID).
			Msg("failed to update task")
		return err
	}
	if tag.RowsAffected() == 0 {
		return services.ErrTaskNotFound
	}

	r.logger.Debug().
		Str("task_id", task.ID).
		Msg("updated task")
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, taskID, userID string) error {
	const deleteTaskQuery = `
DELETE FROM tasks
WHERE id = $1 AND user_id = $2
`
	tag, err := r.pgPool.Exec(
		ctx,
		deleteTaskQuery,
		taskID,
		userID,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("task_id", taskID).
			Msg("failed to delete task")
		return err
	}
	if tag.RowsAffected() == 0 {
		return services.ErrTaskNotFound
	}

	r.logger.Debug().
		Str("task_id", taskID).
		Msg("deleted task")
	return nil
}

func (r *TaskRepository) ListByUserID(ctx context.Context, userID string) ([]*models.Task, error) {
	const selectTasksByUserIDQuery = `
SELECT id,
       name,
       description,
       status,
       due_date
FROM tasks
WHERE user_id = $1
ORDER BY id
`
	rows, err := r.pgPool.Query(
		ctx,
		selectTasksByUserIDQuery,
		userID,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to select tasks by user id")
		return nil, err
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0)
	for rows.Next() {
		task := &models.Task{UserID: userID}

		var taskID int64
		var dueDate *time.Time
		err = rows.Scan(
			&taskID,
			&task.Name,
			&task.Description,
			&task.Status,
			&dueDate,
		)
		if err != nil {
			r.logger.Error().
				Err(err).
				Msg("failed to scan task")
			return nil, err
		}

		task.ID = strconv.FormatInt(taskID, 10)
		task.DueDate = dateFromTime(dueDate)
		tasks = append(tasks, task)
	}

	err = rows.Err()
	if err != nil {
		r.logger.Error().
			Err(err).
			Msg("failed to iterate over rows")
		return nil, err
	}

	r.logger.Debug().
		Int("count", len(tasks)).
		Str("user_id", userID).
		Msg("selected tasks by user id")
	return tasks, nil
}

func dueDateValue(d *models.Date) *time.Time {
	if d == nil {
		return nil
	}
	return &d.Time
}

func dateFromTime(t *time.Time) *models.Date {
	if t == nil {
		return nil
	}
	return &models.Date{Time: *t}
}
