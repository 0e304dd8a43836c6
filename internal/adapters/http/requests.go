package http

import (
	"net/http"
	"strings"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
)

type apiRequestPayload struct {
	Category         string `json:"category"`
	Quantity         int    `json:"quantity"`
	Specification    string `json:"specification"`
	Department       string `json:"department"`
	Location         string `json:"location"`
	RequestType      string `json:"request_type"`
	ExpectedDelivery string `json:"expected_delivery"`
}

func (req apiRequestPayload) payload() (domain.RequestPayload, error) {
	expected, err := parseOptionalDate("expected_delivery", req.ExpectedDelivery)
	if err != nil {
		return domain.RequestPayload{}, err
	}
	return domain.RequestPayload{
		Category:         req.Category,
		Quantity:         req.Quantity,
		Specification:    req.Specification,
		Department:       req.Department,
		Location:         req.Location,
		RequestType:      req.RequestType,
		ExpectedDelivery: expected,
	}, nil
}

func (h *Handler) handleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req apiRequestPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	payload, err := req.payload()
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := h.service.SubmitRequest(r.Context(), actorFrom(r), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.RequestFilter{Department: strings.TrimSpace(q.Get("department")), Limit: queryLimit(r, 0)}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := domain.ParseRequestStatus(raw)
		if err != nil {
			writeError(w, err)
			return
		}
		filter.Status = status
	}
	requester, err := queryUint(r, "requester_id")
	if err != nil {
		writeError(w, err)
		return
	}
	filter.RequesterID = requester
	items, err := h.service.ListRequests(r.Context(), actorFrom(r), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetRequest(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleEditRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req apiRequestPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	payload, err := req.payload()
	if err != nil {
		writeError(w, err)
		return
	}
	view, err := h.service.EditRequest(r.Context(), actorFrom(r), id, payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteRequest(r.Context(), actorFrom(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleApproveRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	view, err := h.service.ApproveRequest(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleRejectRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req apiReasonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, err := h.service.RejectRequest(r.Context(), actorFrom(r), id, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) handleStartProcurement(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	view, err := h.service.StartProcurement(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type apiFulfillRequest struct {
	AssetIDs  []uint `json:"asset_ids"`
	Condition string `json:"condition"`
}

func (h *Handler) handleFulfillRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req apiFulfillRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	view, allocations, err := h.service.FulfillRequest(r.Context(), actorFrom(r), id, req.AssetIDs, domain.Condition(req.Condition))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"request": view, "allocations": allocations})
}
