package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/aididalam/tasktrack/internal/models"
	"github.com/aididalam/tasktrack/internal/services"
)

// FilterStore persists at most one filter row per user. Rows are keyed
// by user_id only, so concurrent users never contend; two concurrent
// upserts by the same user resolve as last writer wins.
type FilterStore struct {
	logger zerolog.Logger
	pgPool *pgxpool.Pool
}

func NewFilterStore(
	logger zerolog.Logger,
	pgPool *pgxpool.Pool,
) *FilterStore {
	return &FilterStore{
		logger: logger,
		pgPool: pgPool,
	}
}

func (s *FilterStore) Upsert(ctx context.Context, userID string, filter models.TaskFilter) error {
	const upsertFilterQuery = `
INSERT INTO task_filters (user_id,
                          search_text,
                          start_date,
                          end_date,
                          statuses,
                          updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id) DO UPDATE
SET search_text = EXCLUDED.search_text,
    start_date = EXCLUDED.start_date,
    end_date = EXCLUDED.end_date,
    statuses = EXCLUDED.statuses,
    updated_at = EXCLUDED.updated_at
`
	_, err := s.pgPool.Exec(
		ctx,
		upsertFilterQuery,
		userID,
		filter.SearchText,
		dueDateValue(filter.StartDate),
		dueDateValue(filter.EndDate),
		filter.Statuses,
		time.Now(),
	)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to upsert filter")
		return err
	}

	s.logger.Debug().
		Str("user_id", userID).
		Msg("upserted filter")
	return nil
}

func (s *FilterStore) Get(ctx context.Context, userID string) (*models.TaskFilter, error) {
	const selectFilterQuery = `
SELECT search_text,
       start_date,
       end_date,
       statuses
FROM task_filters
WHERE user_id = $1
`
	filter := &models.TaskFilter{}

	var startDate, endDate *time.Time
	err := s.pgPool.QueryRow(
		ctx,
		selectFilterQuery,
		userID,
	).Scan(
		&filter.SearchText,
		&startDate,
		&endDate,
		&filter.Statuses,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, services.ErrFilterNotFound
		}

		s.logger.Error().
			Err(err).
			Str("user_id", userID).
			Msg("failed to select filter")
		return nil, err
	}

	filter.StartDate = dateFromTime(startDate)
	filter.EndDate = dateFromTime(endDate)
	return filter, nil
}
