package repository

import (
	"context"
	"time"

	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
)

func (r *Repository) GetAllEquipmentUnits() ([]*domain.EquipmentUnit, error) {
	query := `
		SELECT id, name, equipment_type, room_id, created_at, version FROM equipment_units ORDER BY id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	units := make([]*domain.EquipmentUnit, 0)
	for rows.Next() {
		unit := &domain.EquipmentUnit{}
		dst := []any{&unit.ID, &unit.Name, &unit.EquipmentType, &unit.RoomID, &unit.CreatedAt, &unit.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		units = append(units, unit)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return units, nil
}

func (r *Repository) GetEquipmentUnitByID(id int64) (*domain.EquipmentUnit, error) {
	query := `
		SELECT name, equipment_type, room_id, created_at, version FROM equipment_units WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	unit := &domain.EquipmentUnit{
		ID: id,
	}

	dst := []any{&unit.Name, &unit.EquipmentType, &unit.RoomID, &unit.CreatedAt, &unit.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return unit, nil
}

func (r *Repository) CreateEquipmentUnit(unit *domain.EquipmentUnit) error {
	query := `
		INSERT INTO equipment_units (name, equipment_type, room_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{unit.Name, unit.EquipmentType, unit.RoomID}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&unit.ID, &unit.CreatedAt, &unit.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) UpdateEquipmentUnit(unit *domain.EquipmentUnit) error {
	query := `
		UPDATE equipment_units
		SET
			name = $1,
			equipment_type = $2,
			room_id = $3,
			version = version + 1
		WHERE id = $4 AND version = $5
		RETURNING version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{unit.Name, unit.EquipmentType, unit.RoomID, unit.ID, unit.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&unit.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteEquipmentUnit(id int64) error {
	query := `
		DELETE FROM equipment_units WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	_, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return nil
}
