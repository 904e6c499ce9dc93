package handler

import (
	"net/http"
)

func (h *Handler) GetAllPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.repository.GetAllPositions()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取岗位成功", positions)
}

func (h *Handler) GetAllStaffMembers(w http.ResponseWriter, r *http.Request) {
	staff, err := h.repository.GetAllStaffMembers()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取员工成功", staff)
}
