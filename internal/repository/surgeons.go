package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/samber/lo"
	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
)

func (r *Repository) scanSurgeonRows(rows *sql.Rows) ([]*domain.Surgeon, error) {
	surgeonsMap := make(map[int64]*domain.Surgeon)
	order := make([]int64, 0)

	for rows.Next() {
		var row struct {
			ID             int64
			UserID         sql.NullInt64
			Name           string
			RegularMinutes int32
			CreatedAt      time.Time
			Version        int32

			StartTime sql.NullString
			EndTime   sql.NullString
		}

		dst := []any{
			&row.ID,
			&row.UserID,
			&row.Name,
			&row.RegularMinutes,
			&row.CreatedAt,
			&row.Version,
			&row.StartTime,
			&row.EndTime,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		surgeon, exists := surgeonsMap[row.ID]
		if !exists {
			// 说明此时是第一次查到这位医生，需要在 map 中初始化这位医生
			surgeon = &domain.Surgeon{
				ID:               row.ID,
				Name:             row.Name,
				Specialties:      make([]string, 0),
				Windows:          make([]domain.TimeWindow, 0),
				PreferredRoomIDs: make([]int64, 0),
				RegularMinutes:   row.RegularMinutes,
				CreatedAt:        row.CreatedAt,
				Version:          row.Version,
			}
			if row.UserID.Valid {
				surgeon.UserID = &row.UserID.Int64
			}
			surgeonsMap[row.ID] = surgeon
			order = append(order, row.ID)
		}

		// 如果开始时间为空，则表示这位医生没有登记任何可用时段
		if !row.StartTime.Valid {
			continue
		}

		surgeon.Windows = append(surgeon.Windows, domain.TimeWindow{
			StartTime: row.StartTime.String,
			EndTime:   row.EndTime.String,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	surgeons := make([]*domain.Surgeon, 0, len(order))
	for _, id := range order {
		surgeons = append(surgeons, surgeonsMap[id])
	}

	return surgeons, nil
}

// 专长和偏好手术室是独立的子表,为避免笛卡尔积单独查询后合并。
func (r *Repository) loadSurgeonDetails(ctx context.Context, surgeons []*domain.Surgeon) error {
	if len(surgeons) == 0 {
		return nil
	}

	surgeonsMap := lo.KeyBy(surgeons, func(s *domain.Surgeon) int64 { return s.ID })

	query := `
		SELECT surgeon_id, specialty FROM surgeon_specialties ORDER BY surgeon_id
	`
	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var surgeonID int64
		var specialty string
		if err := rows.Scan(&surgeonID, &specialty); err != nil {
			return err
		}
		if surgeon, exists := surgeonsMap[surgeonID]; exists {
			surgeon.Specialties = append(surgeon.Specialties, specialty)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	query = `
		SELECT surgeon_id, room_id FROM surgeon_preferred_rooms ORDER BY surgeon_id, room_id
	`
	roomRows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer roomRows.Close()

	for roomRows.Next() {
		var surgeonID, roomID int64
		if err := roomRows.Scan(&surgeonID, &roomID); err != nil {
			return err
		}
		if surgeon, exists := surgeonsMap[surgeonID]; exists {
			surgeon.PreferredRoomIDs = append(surgeon.PreferredRoomIDs, roomID)
		}
	}

	return roomRows.Err()
}

func (r *Repository) GetAllSurgeons() ([]*domain.Surgeon, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT
			s.id,
			s.user_id,
			s.name,
			s.regular_minutes,
			s.created_at,
			s.version,
			sw.start_time,
			sw.end_time
		FROM surgeons s
		LEFT JOIN surgeon_windows sw ON s.id = sw.surgeon_id
		ORDER BY s.id, sw.start_time
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	surgeons, err := r.scanSurgeonRows(rows)
	if err != nil {
		return nil, err
	}

	if err := r.loadSurgeonDetails(ctx, surgeons); err != nil {
		return nil, err
	}

	return surgeons, nil
}

func (r *Repository) GetSurgeonByID(id int64) (*domain.Surgeon, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT
			s.id,
			s.user_id,
			s.name,
			s.regular_minutes,
			s.created_at,
			s.version,
			sw.start_time,
			sw.end_time
		FROM surgeons s
		LEFT JOIN surgeon_windows sw ON s.id = sw.surgeon_id
		WHERE s.id = $1
		ORDER BY sw.start_time
	`

	rows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	surgeons, err := r.scanSurgeonRows(rows)
	if err != nil {
		return nil, err
	}
	if len(surgeons) == 0 {
		return nil, sql.ErrNoRows
	}

	if err := r.loadSurgeonDetails(ctx, surgeons); err != nil {
		return nil, err
	}

	return surgeons[0], nil
}

func (r *Repository) insertSurgeonDetails(ctx context.Context, tx *sql.Tx, surgeon *domain.Surgeon) error {
	for _, w := range surgeon.Windows {
		query := `
			INSERT INTO surgeon_windows (surgeon_id, start_time, end_time)
			VALUES ($1, $2, $3)
		`
		if _, err := tx.ExecContext(ctx, query, surgeon.ID, w.StartTime, w.EndTime); err != nil {
			return err
		}
	}

	for _, specialty := range surgeon.Specialties {
		query := `
			INSERT INTO surgeon_specialties (surgeon_id, specialty)
			VALUES ($1, $2)
		`
		if _, err := tx.ExecContext(ctx, query, surgeon.ID, specialty); err != nil {
			return err
		}
	}

	for _, roomID := range surgeon.PreferredRoomIDs {
		query := `
			INSERT INTO surgeon_preferred_rooms (surgeon_id, room_id)
			VALUES ($1, $2)
		`
		if _, err := tx.ExecContext(ctx, query, surgeon.ID, roomID); err != nil {
			return err
		}
	}

	return nil
}

func (r *Repository) CreateSurgeon(surgeon *domain.Surgeon) error {
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
		INSERT INTO surgeons (user_id, name, regular_minutes)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, version
	`
	if err := tx.QueryRowContext(ctx, query, surgeon.UserID, surgeon.Name, surgeon.RegularMinutes).Scan(&surgeon.ID, &surgeon.CreatedAt, &surgeon.Version); err != nil {
		return err
	}

	if err := r.insertSurgeonDetails(ctx, tx, surgeon); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) UpdateSurgeon(surgeon *domain.Surgeon) error {
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
		UPDATE surgeons
		SET
			user_id = $1,
			name = $2,
			regular_minutes = $3,
			version = version + 1
		WHERE id = $4 AND version = $5
		RETURNING version
	`
	args := []any{surgeon.UserID, surgeon.Name, surgeon.RegularMinutes, surgeon.ID, surgeon.Version}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&surgeon.Version); err != nil {
		return err
	}

	// 可用时段、专长和偏好手术室直接全量替换
	for _, table := range []string{"surgeon_windows", "surgeon_specialties", "surgeon_preferred_rooms"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE surgeon_id = $1`, surgeon.ID); err != nil {
			return err
		}
	}

	if err := r.insertSurgeonDetails(ctx, tx, surgeon); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteSurgeon(id int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		DELETE FROM surgeons WHERE id = $1
	`

	_, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return nil
}
