package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
)

func (r *Repository) InsertSchedule(schedule *domain.Schedule) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 先将该日期之前应用的排程删除
	query := `DELETE FROM schedules WHERE schedule_date = $1`
	if _, err := tx.ExecContext(ctx, query, schedule.ScheduleDate); err != nil {
		return err
	}

	query = `
		INSERT INTO schedules (schedule_date, optimization_id)
		VALUES ($1, $2)
		RETURNING id, created_at, version
	`
	if err := tx.QueryRowContext(ctx, query, schedule.ScheduleDate, schedule.OptimizationID).Scan(&schedule.ID, &schedule.CreatedAt, &schedule.Version); err != nil {
		return err
	}

	for _, item := range schedule.Items {
		query = `
			INSERT INTO schedule_items (schedule_id, surgery_id, room_id, surgeon_id, start_time, end_time)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		args := []any{schedule.ID, item.SurgeryID, item.RoomID, item.SurgeonID, item.StartTime, item.EndTime}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetScheduleByDate(scheduleDate string) (*domain.Schedule, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT
			s.id,
			s.optimization_id,
			s.created_at,
			s.version,
			si.surgery_id,
			si.room_id,
			si.surgeon_id,
			si.start_time,
			si.end_time
		FROM schedules s
		LEFT JOIN schedule_items si ON s.id = si.schedule_id
		WHERE s.schedule_date = $1
		ORDER BY si.start_time, si.surgery_id
	`

	rows, err := r.dbpool.QueryContext(ctx, query, scheduleDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedule := &domain.Schedule{
		ScheduleDate: scheduleDate,
		Items:        make([]domain.ScheduleItem, 0),
	}
	found := false

	for rows.Next() {
		var row struct {
			ID             int64
			OptimizationID sql.NullString
			CreatedAt      time.Time
			Version        int32

			SurgeryID sql.NullInt64
			RoomID    sql.NullInt64
			SurgeonID sql.NullInt64
			StartTime sql.NullTime
			EndTime   sql.NullTime
		}

		dst := []any{
			&row.ID,
			&row.OptimizationID,
			&row.CreatedAt,
			&row.Version,
			&row.SurgeryID,
			&row.RoomID,
			&row.SurgeonID,
			&row.StartTime,
			&row.EndTime,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		if !found {
			schedule.ID = row.ID
			schedule.CreatedAt = row.CreatedAt
			schedule.Version = row.Version
			if row.OptimizationID.Valid {
				schedule.OptimizationID = &row.OptimizationID.String
			}
			found = true
		}

		// 如果手术 id 为空，则表示这份排程不包含任何条目
		if !row.SurgeryID.Valid {
			continue
		}

		schedule.Items = append(schedule.Items, domain.ScheduleItem{
			SurgeryID: row.SurgeryID.Int64,
			RoomID:    row.RoomID.Int64,
			SurgeonID: row.SurgeonID.Int64,
			StartTime: row.StartTime.Time,
			EndTime:   row.EndTime.Time,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !found {
		return nil, sql.ErrNoRows
	}

	return schedule, nil
}
