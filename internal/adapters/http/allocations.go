package http

import (
	"net/http"
	"strings"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
)

type apiAllocateRequest struct {
	AssetID    uint   `json:"asset_id"`
	EmployeeID uint   `json:"employee_id"`
	Condition  string `json:"condition"`
	Notes      string `json:"notes"`
	RequestID  *uint  `json:"request_id"`
}

func (req apiAllocateRequest) details() domain.AllocationDetails {
	return domain.AllocationDetails{Condition: domain.Condition(req.Condition), Notes: req.Notes, RequestID: req.RequestID}
}

func (h *Handler) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req apiAllocateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	alloc, err := h.service.Allocate(r.Context(), actorFrom(r), req.AssetID, req.EmployeeID, req.details())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, alloc)
}

func (h *Handler) handleListAllocations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.AllocationFilter{Department: strings.TrimSpace(q.Get("department")), Limit: queryLimit(r, 0)}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := domain.ParseAllocationStatus(raw)
		if err != nil {
			writeError(w, err)
			return
		}
		filter.Status = status
	}
	var err error
	if filter.AssetID, err = queryUint(r, "asset_id"); err != nil {
		writeError(w, err)
		return
	}
	if filter.EmployeeID, err = queryUint(r, "employee_id"); err != nil {
		writeError(w, err)
		return
	}
	items, err := h.service.ListAllocations(r.Context(), actorFrom(r), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleGetAllocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	alloc, err := h.service.GetAllocation(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alloc)
}

type apiReturnRequest struct {
	Condition string `json:"condition"`
	Notes     string `json:"notes"`
}

func (h *Handler) handleReturnAllocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req apiReturnRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	alloc, err := h.service.ReturnAllocation(r.Context(), actorFrom(r), id, domain.Condition(req.Condition), req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alloc)
}

func (h *Handler) handleTransferAllocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req apiAllocateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	alloc, err := h.service.TransferAllocation(r.Context(), actorFrom(r), id, req.EmployeeID, req.details())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alloc)
}
