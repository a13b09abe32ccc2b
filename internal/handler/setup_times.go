package handler

import (
	"net/http"

	"github.com/smartsched-dev/or-scheduler/backend/internal/domain"
)

func (h *Handler) GetSetupTimes(w http.ResponseWriter, r *http.Request) {
	matrix, err := h.repository.GetSetupTimeMatrix()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取切换时间成功", matrix.Entries())
}

func (h *Handler) ReplaceSetupTimes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Entries []struct {
			FromType *string `json:"fromType"`
			ToType   string  `json:"toType" validate:"required"`
			Minutes  int32   `json:"minutes" validate:"min=0"`
		} `json:"entries" validate:"required,dive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	entries := make([]domain.SetupTimeEntry, 0, len(req.Entries))
	for _, e := range req.Entries {
		entries = append(entries, domain.SetupTimeEntry{
			FromType: e.FromType,
			ToType:   e.ToType,
			Minutes:  e.Minutes,
		})
	}

	if err := h.repository.ReplaceSetupTimes(entries); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "切换时间更新成功", entries)
}
