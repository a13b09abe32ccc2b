package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/samber/lo"
	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
)

func (r *Repository) scanOperatingRoomRows(rows *sql.Rows) ([]*domain.OperatingRoom, error) {
	roomsMap := make(map[int64]*domain.OperatingRoom)
	order := make([]int64, 0)

	for rows.Next() {
		var row struct {
			ID         int64
			Name       string
			HourlyCost float64
			CreatedAt  time.Time
			Version    int32

			StartTime sql.NullString
			EndTime   sql.NullString
		}

		dst := []any{
			&row.ID,
			&row.Name,
			&row.HourlyCost,
			&row.CreatedAt,
			&row.Version,
			&row.StartTime,
			&row.EndTime,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		room, exists := roomsMap[row.ID]
		if !exists {
			// 说明此时是第一次查到这间手术室，需要在 map 中初始化这间手术室
			room = &domain.OperatingRoom{
				ID:         row.ID,
				Name:       row.Name,
				Windows:    make([]domain.TimeWindow, 0),
				Equipment:  make([]string, 0),
				HourlyCost: row.HourlyCost,
				CreatedAt:  row.CreatedAt,
				Version:    row.Version,
			}
			roomsMap[row.ID] = room
			order = append(order, row.ID)
		}

		// 如果开始时间为空，则表示这间手术室没有配置任何开放时段
		if !row.StartTime.Valid {
			continue
		}

		room.Windows = append(room.Windows, domain.TimeWindow{
			StartTime: row.StartTime.String,
			EndTime:   row.EndTime.String,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	rooms := make([]*domain.OperatingRoom, 0, len(order))
	for _, id := range order {
		rooms = append(rooms, roomsMap[id])
	}

	return rooms, nil
}

// 固定设备和开放时段是两张独立的子表,一条 JOIN 查询会产生笛卡尔积,
// 因此设备单独查询后再合并。
func (r *Repository) loadOperatingRoomEquipment(ctx context.Context, rooms []*domain.OperatingRoom) error {
	if len(rooms) == 0 {
		return nil
	}

	roomsMap := lo.KeyBy(rooms, func(room *domain.OperatingRoom) int64 { return room.ID })

	query := `
		SELECT room_id, equipment_type FROM operating_room_equipment ORDER BY room_id
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var roomID int64
		var equipmentType string
		if err := rows.Scan(&roomID, &equipmentType); err != nil {
			return err
		}
		if room, exists := roomsMap[roomID]; exists {
			room.Equipment = append(room.Equipment, equipmentType)
		}
	}

	return rows.Err()
}

func (r *Repository) GetAllOperatingRooms() ([]*domain.OperatingRoom, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT
			o.id,
			o.name,
			o.hourly_cost,
			o.created_at,
			o.version,
			ow.start_time,
			ow.end_time
		FROM operating_rooms o
		LEFT JOIN operating_room_windows ow ON o.id = ow.room_id
		ORDER BY o.id, ow.start_time
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms, err := r.scanOperatingRoomRows(rows)
	if err != nil {
		return nil, err
	}

	if err := r.loadOperatingRoomEquipment(ctx, rooms); err != nil {
		return nil, err
	}

	return rooms, nil
}

func (r *Repository) GetOperatingRoomByID(id int64) (*domain.OperatingRoom, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT
			o.id,
			o.name,
			o.hourly_cost,
			o.created_at,
			o.version,
			ow.start_time,
			ow.end_time
		FROM operating_rooms o
		LEFT JOIN operating_room_windows ow ON o.id = ow.room_id
		WHERE o.id = $1
		ORDER BY ow.start_time
	`

	rows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms, err := r.scanOperatingRoomRows(rows)
	if err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return nil, sql.ErrNoRows
	}

	if err := r.loadOperatingRoomEquipment(ctx, rooms); err != nil {
		return nil, err
	}

	return rooms[0], nil
}

func (r *Repository) CreateOperatingRoom(room *domain.OperatingRoom) error {
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
		INSERT INTO operating_rooms (name, hourly_cost)
		VALUES ($1, $2)
		RETURNING id, created_at, version
	`
	if err := tx.QueryRowContext(ctx, query, room.Name, room.HourlyCost).Scan(&room.ID, &room.CreatedAt, &room.Version); err != nil {
		return err
	}

	for _, w := range room.Windows {
		query = `
			INSERT INTO operating_room_windows (room_id, start_time, end_time)
			VALUES ($1, $2, $3)
		`
		if _, err := tx.ExecContext(ctx, query, room.ID, w.StartTime, w.EndTime); err != nil {
			return err
		}
	}

	for _, equipmentType := range room.Equipment {
		query = `
			INSERT INTO operating_room_equipment (room_id, equipment_type)
			VALUES ($1, $2)
		`
		if _, err := tx.ExecContext(ctx, query, room.ID, equipmentType); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) UpdateOperatingRoom(room *domain.OperatingRoom) error {
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
		UPDATE operating_rooms
		SET
			name = $1,
			hourly_cost = $2,
			version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING version
	`
	if err := tx.QueryRowContext(ctx, query, room.Name, room.HourlyCost, room.ID, room.Version).Scan(&room.Version); err != nil {
		return err
	}

	// 开放时段和固定设备直接全量替换
	query = `DELETE FROM operating_room_windows WHERE room_id = $1`
	if _, err := tx.ExecContext(ctx, query, room.ID); err != nil {
		return err
	}
	query = `DELETE FROM operating_room_equipment WHERE room_id = $1`
	if _, err := tx.ExecContext(ctx, query, room.ID); err != nil {
		return err
	}

	for _, w := range room.Windows {
		query = `
			INSERT INTO operating_room_windows (room_id, start_time, end_time)
			VALUES ($1, $2, $3)
		`
		if _, err := tx.ExecContext(ctx, query, room.ID, w.StartTime, w.EndTime); err != nil {
			return err
		}
	}

	for _, equipmentType := range room.Equipment {
		query = `
			INSERT INTO operating_room_equipment (room_id, equipment_type)
			VALUES ($1, $2)
		`
		if _, err := tx.ExecContext(ctx, query, room.ID, equipmentType); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteOperatingRoom(id int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		DELETE FROM operating_rooms WHERE id = $1
	`

	_, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return nil
}
