package repository

import (
	"context"
	"time"

	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
)

func (r *Repository) CreateOptimizationRun(run *domain.OptimizationRun) error {
	query := `
		INSERT INTO optimization_runs (id, schedule_date, requested_by, parameters, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{run.ID, run.ScheduleDate, run.RequestedBy, run.Parameters, run.Status}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&run.CreatedAt, &run.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetOptimizationRunByID(id string) (*domain.OptimizationRun, error) {
	query := `
		SELECT schedule_date, requested_by, parameters, status, result, error_message, created_at, finished_at, version
		FROM optimization_runs WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	run := &domain.OptimizationRun{
		ID: id,
	}

	dst := []any{
		&run.ScheduleDate,
		&run.RequestedBy,
		&run.Parameters,
		&run.Status,
		&run.Result,
		&run.ErrorMessage,
		&run.CreatedAt,
		&run.FinishedAt,
		&run.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return run, nil
}

func (r *Repository) GetOptimizationRunsByDate(scheduleDate string) ([]*domain.OptimizationRun, error) {
	query := `
		SELECT id, schedule_date, requested_by, parameters, status, result, error_message, created_at, finished_at, version
		FROM optimization_runs WHERE schedule_date = $1
		ORDER BY created_at DESC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, scheduleDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*domain.OptimizationRun, 0)
	for rows.Next() {
		run := &domain.OptimizationRun{}
		dst := []any{
			&run.ID,
			&run.ScheduleDate,
			&run.RequestedBy,
			&run.Parameters,
			&run.Status,
			&run.Result,
			&run.ErrorMessage,
			&run.CreatedAt,
			&run.FinishedAt,
			&run.Version,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

func (r *Repository) UpdateOptimizationRunStatus(id string, status domain.OptimizationStatus) error {
	query := `
		UPDATE optimization_runs
		SET status = $1, version = version + 1
		WHERE id = $2
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}

	return nil
}

// 运行结束时一并写入最终状态、结果和错误信息。
func (r *Repository) FinishOptimizationRun(run *domain.OptimizationRun) error {
	query := `
		UPDATE optimization_runs
		SET
			status = $1,
			result = $2,
			error_message = $3,
			finished_at = now(),
			version = version + 1
		WHERE id = $4
		RETURNING finished_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{run.Status, run.Result, run.ErrorMessage, run.ID}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&run.FinishedAt, &run.Version); err != nil {
		return err
	}

	return nil
}
