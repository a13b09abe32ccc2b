package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
)

func (r *Repository) GetSetupTimeMatrix() (*domain.SetupTimeMatrix, error) {
	query := `
		SELECT from_type, to_type, minutes FROM setup_times
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matrix := domain.NewSetupTimeMatrix()
	for rows.Next() {
		var fromType sql.NullString
		var toType string
		var minutes int32
		if err := rows.Scan(&fromType, &toType, &minutes); err != nil {
			return nil, err
		}

		if fromType.Valid {
			matrix.Set(&fromType.String, toType, minutes)
		} else {
			matrix.Set(nil, toType, minutes)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return matrix, nil
}

// 切换时间矩阵整体替换,不做逐条维护。
func (r *Repository) ReplaceSetupTimes(entries []domain.SetupTimeEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `DELETE FROM setup_times`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return err
	}

	for _, entry := range entries {
		query = `
			INSERT INTO setup_times (from_type, to_type, minutes)
			VALUES ($1, $2, $3)
		`
		if _, err := tx.ExecContext(ctx, query, entry.FromType, entry.ToType, entry.Minutes); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}
