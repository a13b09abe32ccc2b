package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
)

func (r *Repository) scanSurgeryRows(rows *sql.Rows) ([]*domain.Surgery, error) {
	surgeriesMap := make(map[int64]*domain.Surgery)
	order := make([]int64, 0)

	for rows.Next() {
		var row struct {
			ID              int64
			PatientName     string
			SurgeryType     string
			DurationMinutes int32
			Priority        domain.SurgeryPriority
			SurgeonID       int64
			ScheduleDate    string
			EarliestStart   string
			MaxWaitMinutes  int32
			CreatedAt       time.Time
			Version         int32

			EquipmentType sql.NullString
		}

		dst := []any{
			&row.ID,
			&row.PatientName,
			&row.SurgeryType,
			&row.DurationMinutes,
			&row.Priority,
			&row.SurgeonID,
			&row.ScheduleDate,
			&row.EarliestStart,
			&row.MaxWaitMinutes,
			&row.CreatedAt,
			&row.Version,
			&row.EquipmentType,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		surgery, exists := surgeriesMap[row.ID]
		if !exists {
			// 说明此时是第一次查到这台手术，需要在 map 中初始化这台手术
			surgery = &domain.Surgery{
				ID:                row.ID,
				PatientName:       row.PatientName,
				SurgeryType:       row.SurgeryType,
				DurationMinutes:   row.DurationMinutes,
				Priority:          row.Priority,
				SurgeonID:         row.SurgeonID,
				RequiredEquipment: make([]string, 0),
				ScheduleDate:      row.ScheduleDate,
				EarliestStart:     row.EarliestStart,
				MaxWaitMinutes:    row.MaxWaitMinutes,
				CreatedAt:         row.CreatedAt,
				Version:           row.Version,
			}
			surgeriesMap[row.ID] = surgery
			order = append(order, row.ID)
		}

		// 如果设备类型为空，则表示这台手术不需要任何移动设备
		if !row.EquipmentType.Valid {
			continue
		}

		surgery.RequiredEquipment = append(surgery.RequiredEquipment, row.EquipmentType.String)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	surgeries := make([]*domain.Surgery, 0, len(order))
	for _, id := range order {
		surgeries = append(surgeries, surgeriesMap[id])
	}

	return surgeries, nil
}

func (r *Repository) GetSurgeriesByDate(scheduleDate string) ([]*domain.Surgery, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT
			s.id,
			s.patient_name,
			s.surgery_type,
			s.duration_minutes,
			s.priority,
			s.surgeon_id,
			s.schedule_date,
			s.earliest_start,
			s.max_wait_minutes,
			s.created_at,
			s.version,
			sre.equipment_type
		FROM surgeries s
		LEFT JOIN surgery_required_equipment sre ON s.id = sre.surgery_id
		WHERE s.schedule_date = $1
		ORDER BY s.id
	`

	rows, err := r.dbpool.QueryContext(ctx, query, scheduleDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanSurgeryRows(rows)
}

func (r *Repository) GetSurgeryByID(id int64) (*domain.Surgery, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT
			s.id,
			s.patient_name,
			s.surgery_type,
			s.duration_minutes,
			s.priority,
			s.surgeon_id,
			s.schedule_date,
			s.earliest_start,
			s.max_wait_minutes,
			s.created_at,
			s.version,
			sre.equipment_type
		FROM surgeries s
		LEFT JOIN surgery_required_equipment sre ON s.id = sre.surgery_id
		WHERE s.id = $1
	`

	rows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	surgeries, err := r.scanSurgeryRows(rows)
	if err != nil {
		return nil, err
	}
	if len(surgeries) == 0 {
		return nil, sql.ErrNoRows
	}

	return surgeries[0], nil
}

func (r *Repository) CreateSurgery(surgery *domain.Surgery) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO surgeries (patient_name, surgery_type, duration_minutes, priority, surgeon_id, schedule_date, earliest_start, max_wait_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, version
	`

	args := []any{
		surgery.PatientName,
		surgery.SurgeryType,
		surgery.DurationMinutes,
		surgery.Priority,
		surgery.SurgeonID,
		surgery.ScheduleDate,
		surgery.EarliestStart,
		surgery.MaxWaitMinutes,
	}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&surgery.ID, &surgery.CreatedAt, &surgery.Version); err != nil {
		return err
	}

	for _, equipmentType := range surgery.RequiredEquipment {
		query = `
			INSERT INTO surgery_required_equipment (surgery_id, equipment_type)
			VALUES ($1, $2)
		`
		if _, err := tx.ExecContext(ctx, query, surgery.ID, equipmentType); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) UpdateSurgery(surgery *domain.Surgery) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		UPDATE surgeries
		SET
			patient_name = $1,
			surgery_type = $2,
			duration_minutes = $3,
			priority = $4,
			surgeon_id = $5,
			schedule_date = $6,
			earliest_start = $7,
			max_wait_minutes = $8,
			version = version + 1
		WHERE id = $9 AND version = $10
		RETURNING version
	`

	args := []any{
		surgery.PatientName,
		surgery.SurgeryType,
		surgery.DurationMinutes,
		surgery.Priority,
		surgery.SurgeonID,
		surgery.ScheduleDate,
		surgery.EarliestStart,
		surgery.MaxWaitMinutes,
		surgery.ID,
		surgery.Version,
	}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&surgery.Version); err != nil {
		return err
	}

	// 所需设备直接全量替换
	query = `DELETE FROM surgery_required_equipment WHERE surgery_id = $1`
	if _, err := tx.ExecContext(ctx, query, surgery.ID); err != nil {
		return err
	}

	for _, equipmentType := range surgery.RequiredEquipment {
		query = `
			INSERT INTO surgery_required_equipment (surgery_id, equipment_type)
			VALUES ($1, $2)
		`
		if _, err := tx.ExecContext(ctx, query, surgery.ID, equipmentType); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteSurgery(id int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		DELETE FROM surgeries WHERE id = $1
	`

	_, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return nil
}
