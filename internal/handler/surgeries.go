package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
)

func (h *Handler) GetSurgeriesByDate(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		h.errorResponse(w, r, "日期格式错误")
		return
	}

	surgeries, err := h.repository.GetSurgeriesByDate(date)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取手术列表成功", surgeries)
}

func (h *Handler) CreateSurgery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PatientName       string   `json:"patientName" validate:"required"`
		SurgeryType       string   `json:"surgeryType" validate:"required"`
		DurationMinutes   int32    `json:"durationMinutes" validate:"required,min=1"`
		Priority          string   `json:"priority" validate:"required,oneof=急诊 高 中 低"`
		SurgeonID         int64    `json:"surgeonId" validate:"required"`
		RequiredEquipment []string `json:"requiredEquipment"`
		ScheduleDate      string   `json:"scheduleDate" validate:"required,datetime=2006-01-02"`
		EarliestStart     string   `json:"earliestStart" validate:"required,datetime=15:04:05"`
		MaxWaitMinutes    int32    `json:"maxWaitMinutes" validate:"min=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	surgery := &domain.Surgery{
		PatientName:       req.PatientName,
		SurgeryType:       req.SurgeryType,
		DurationMinutes:   req.DurationMinutes,
		Priority:          domain.SurgeryPriority(req.Priority),
		SurgeonID:         req.SurgeonID,
		RequiredEquipment: req.RequiredEquipment,
		ScheduleDate:      req.ScheduleDate,
		EarliestStart:     req.EarliestStart,
		MaxWaitMinutes:    req.MaxWaitMinutes,
	}

	if err := h.repository.CreateSurgery(surgery); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "surgeries_surgeon_id_fkey":
			h.badRequest(w, r, errors.New("医生不存在"))
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "手术创建成功", surgery)
}

func (h *Handler) GetSurgery(w http.ResponseWriter, r *http.Request) {
	surgery := r.Context().Value(SurgeryCtx).(*domain.Surgery)
	h.successResponse(w, r, "获取手术信息成功", surgery)
}

func (h *Handler) UpdateSurgery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PatientName       *string   `json:"patientName"`
		SurgeryType       *string   `json:"surgeryType"`
		DurationMinutes   *int32    `json:"durationMinutes" validate:"omitempty,min=1"`
		Priority          *string   `json:"priority" validate:"omitempty,oneof=急诊 高 中 低"`
		SurgeonID         *int64    `json:"surgeonId"`
		RequiredEquipment *[]string `json:"requiredEquipment"`
		ScheduleDate      *string   `json:"scheduleDate" validate:"omitempty,datetime=2006-01-02"`
		EarliestStart     *string   `json:"earliestStart" validate:"omitempty,datetime=15:04:05"`
		MaxWaitMinutes    *int32    `json:"maxWaitMinutes" validate:"omitempty,min=0"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	surgery := r.Context().Value(SurgeryCtx).(*domain.Surgery)

	if req.PatientName != nil {
		surgery.PatientName = *req.PatientName
	}
	if req.SurgeryType != nil {
		surgery.SurgeryType = *req.SurgeryType
	}
	if req.DurationMinutes != nil {
		surgery.DurationMinutes = *req.DurationMinutes
	}
	if req.Priority != nil {
		surgery.Priority = domain.SurgeryPriority(*req.Priority)
	}
	if req.SurgeonID != nil {
		surgery.SurgeonID = *req.SurgeonID
	}
	if req.RequiredEquipment != nil {
		surgery.RequiredEquipment = *req.RequiredEquipment
	}
	if req.ScheduleDate != nil {
		surgery.ScheduleDate = *req.ScheduleDate
	}
	if req.EarliestStart != nil {
		surgery.EarliestStart = *req.EarliestStart
	}
	if req.MaxWaitMinutes != nil {
		surgery.MaxWaitMinutes = *req.MaxWaitMinutes
	}

	if err := h.repository.UpdateSurgery(surgery); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr) && pgErr.ConstraintName == "surgeries_surgeon_id_fkey":
			h.badRequest(w, r, errors.New("医生不存在"))
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "更新手术信息失败，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新手术信息成功", surgery)
}

func (h *Handler) DeleteSurgery(w http.ResponseWriter, r *http.Request) {
	surgery := r.Context().Value(SurgeryCtx).(*domain.Surgery)

	if err := h.repository.DeleteSurgery(surgery.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除手术成功", nil)
}
