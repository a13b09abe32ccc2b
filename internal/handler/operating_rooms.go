package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
	"github.com/smartsched-dev/or-scheduler/backend/internal/utils"
)

func (h *Handler) GetAllOperatingRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.repository.GetAllOperatingRooms()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取手术室列表成功", rooms)
}

func (h *Handler) CreateOperatingRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string              `json:"name" validate:"required"`
		Windows    []domain.TimeWindow `json:"windows" validate:"required,min=1"`
		Equipment  []string            `json:"equipment"`
		HourlyCost float64             `json:"hourlyCost" validate:"min=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateTimeWindows(req.Windows); err != nil {
		h.badRequest(w, r, err)
		return
	}

	room := &domain.OperatingRoom{
		Name:       req.Name,
		Windows:    req.Windows,
		Equipment:  req.Equipment,
		HourlyCost: req.HourlyCost,
	}

	if err := h.repository.CreateOperatingRoom(room); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "手术室创建成功", room)
}

func (h *Handler) GetOperatingRoom(w http.ResponseWriter, r *http.Request) {
	room := r.Context().Value(OperatingRoomCtx).(*domain.OperatingRoom)
	h.successResponse(w, r, "获取手术室信息成功", room)
}

func (h *Handler) UpdateOperatingRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       *string              `json:"name"`
		Windows    *[]domain.TimeWindow `json:"windows" validate:"omitempty,min=1"`
		Equipment  *[]string            `json:"equipment"`
		HourlyCost *float64             `json:"hourlyCost" validate:"omitempty,min=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	room := r.Context().Value(OperatingRoomCtx).(*domain.OperatingRoom)

	if req.Name != nil {
		room.Name = *req.Name
	}
	if req.Windows != nil {
		if err := utils.ValidateTimeWindows(*req.Windows); err != nil {
			h.badRequest(w, r, err)
			return
		}
		room.Windows = *req.Windows
	}
	if req.Equipment != nil {
		room.Equipment = *req.Equipment
	}
	if req.HourlyCost != nil {
		room.HourlyCost = *req.HourlyCost
	}

	if err := h.repository.UpdateOperatingRoom(room); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新手术室信息失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新手术室信息成功", room)
}

func (h *Handler) DeleteOperatingRoom(w http.ResponseWriter, r *http.Request) {
	room := r.Context().Value(OperatingRoomCtx).(*domain.OperatingRoom)

	if err := h.repository.DeleteOperatingRoom(room.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除手术室成功", nil)
}
