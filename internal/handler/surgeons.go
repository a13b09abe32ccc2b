package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
	"github.com/smartsched-dev/or-scheduler/backend/internal/utils"
)

func (h *Handler) GetAllSurgeons(w http.ResponseWriter, r *http.Request) {
	surgeons, err := h.repository.GetAllSurgeons()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取医生列表成功", surgeons)
}

func (h *Handler) CreateSurgeon(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID           *int64              `json:"userId"`
		Name             string              `json:"name" validate:"required"`
		Specialties      []string            `json:"specialties"`
		Windows          []domain.TimeWindow `json:"windows" validate:"required,min=1"`
		PreferredRoomIDs []int64             `json:"preferredRoomIds"`
		RegularMinutes   int32               `json:"regularMinutes" validate:"min=0"`
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

	surgeon := &domain.Surgeon{
		UserID:           req.UserID,
		Name:             req.Name,
		Specialties:      req.Specialties,
		Windows:          req.Windows,
		PreferredRoomIDs: req.PreferredRoomIDs,
		RegularMinutes:   req.RegularMinutes,
	}

	if err := h.repository.CreateSurgeon(surgeon); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch {
			case pgErr.ConstraintName == "surgeons_user_id_fkey":
				h.badRequest(w, r, errors.New("用户不存在"))
			case pgErr.ConstraintName == "surgeon_preferred_rooms_room_id_fkey":
				h.badRequest(w, r, errors.New("偏好手术室不存在"))
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "医生创建成功", surgeon)
}

func (h *Handler) GetSurgeon(w http.ResponseWriter, r *http.Request) {
	surgeon := r.Context().Value(SurgeonCtx).(*domain.Surgeon)
	h.successResponse(w, r, "获取医生信息成功", surgeon)
}

func (h *Handler) UpdateSurgeon(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID           *int64               `json:"userId"`
		Name             *string              `json:"name"`
		Specialties      *[]string            `json:"specialties"`
		Windows          *[]domain.TimeWindow `json:"windows" validate:"omitempty,min=1"`
		PreferredRoomIDs *[]int64             `json:"preferredRoomIds"`
		RegularMinutes   *int32               `json:"regularMinutes" validate:"omitempty,min=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	surgeon := r.Context().Value(SurgeonCtx).(*domain.Surgeon)

	if req.UserID != nil {
		surgeon.UserID = req.UserID
	}
	if req.Name != nil {
		surgeon.Name = *req.Name
	}
	if req.Specialties != nil {
		surgeon.Specialties = *req.Specialties
	}
	if req.Windows != nil {
		if err := utils.ValidateTimeWindows(*req.Windows); err != nil {
			h.badRequest(w, r, err)
			return
		}
		surgeon.Windows = *req.Windows
	}
	if req.PreferredRoomIDs != nil {
		surgeon.PreferredRoomIDs = *req.PreferredRoomIDs
	}
	if req.RegularMinutes != nil {
		surgeon.RegularMinutes = *req.RegularMinutes
	}

	if err := h.repository.UpdateSurgeon(surgeon); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "surgeon_preferred_rooms_room_id_fkey":
			h.badRequest(w, r, errors.New("偏好手术室不存在"))
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新医生信息失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新医生信息成功", surgeon)
}

func (h *Handler) DeleteSurgeon(w http.ResponseWriter, r *http.Request) {
	surgeon := r.Context().Value(SurgeonCtx).(*domain.Surgeon)

	if err := h.repository.DeleteSurgeon(surgeon.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除医生成功", nil)
}
