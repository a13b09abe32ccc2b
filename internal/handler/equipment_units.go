package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
)

func (h *Handler) GetAllEquipmentUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.repository.GetAllEquipmentUnits()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取设备列表成功", units)
}

func (h *Handler) CreateEquipmentUnit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          string `json:"name" validate:"required"`
		EquipmentType string `json:"equipmentType" validate:"required"`
		RoomID        *int64 `json:"roomId"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	unit := &domain.EquipmentUnit{
		Name:          req.Name,
		EquipmentType: req.EquipmentType,
		RoomID:        req.RoomID,
	}

	if err := h.repository.CreateEquipmentUnit(unit); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "equipment_units_room_id_fkey":
			h.badRequest(w, r, errors.New("手术室不存在"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "设备创建成功", unit)
}

func (h *Handler) GetEquipmentUnit(w http.ResponseWriter, r *http.Request) {
	unit := r.Context().Value(EquipmentUnitCtx).(*domain.EquipmentUnit)
	h.successResponse(w, r, "获取设备信息成功", unit)
}

func (h *Handler) UpdateEquipmentUnit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          *string `json:"name"`
		EquipmentType *string `json:"equipmentType"`
		RoomID        *int64  `json:"roomId"`
		Mobile        *bool   `json:"mobile"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	unit := r.Context().Value(EquipmentUnitCtx).(*domain.EquipmentUnit)

	if req.Name != nil {
		unit.Name = *req.Name
	}
	if req.EquipmentType != nil {
		unit.EquipmentType = *req.EquipmentType
	}
	if req.RoomID != nil {
		unit.RoomID = req.RoomID
	}
	// mobile 为 true 表示把设备改为移动设备,即解除与手术室的绑定
	if req.Mobile != nil && *req.Mobile {
		unit.RoomID = nil
	}

	if err := h.repository.UpdateEquipmentUnit(unit); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "equipment_units_room_id_fkey":
			h.badRequest(w, r, errors.New("手术室不存在"))
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新设备信息失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新设备信息成功", unit)
}

func (h *Handler) DeleteEquipmentUnit(w http.ResponseWriter, r *http.Request) {
	unit := r.Context().Value(EquipmentUnitCtx).(*domain.EquipmentUnit)

	if err := h.repository.DeleteEquipmentUnit(unit.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除设备成功", nil)
}
