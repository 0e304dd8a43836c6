package http

import (
	"net/http"
	"strings"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
)

type apiAttachment struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type apiTicketPayload struct {
	AssetID     uint           `json:"asset_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Priority    string         `json:"priority"`
	Category    string         `json:"category"`
	Department  string         `json:"department"`
	Location    string         `json:"location"`
	Deadline    string         `json:"deadline"`
	Attachment  *apiAttachment `json:"attachment"`
}

func (req apiTicketPayload) payload() (domain.TicketPayload, error) {
	deadline, err := parseOptionalDate("deadline", req.Deadline)
	if err != nil {
		return domain.TicketPayload{}, err
	}
	p := domain.TicketPayload{
		AssetID:     req.AssetID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		Category:    req.Category,
		Department:  req.Department,
		Location:    req.Location,
		Deadline:    deadline,
	}
	if req.Attachment != nil {
		p.Attachment = &domain.Attachment{Name: req.Attachment.Name, ContentType: req.Attachment.ContentType, Size: req.Attachment.Size}
	}
	return p, nil
}

func (h *Handler) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req apiTicketPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	payload, err := req.payload()
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := h.service.CreateTicket(r.Context(), actorFrom(r), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) handleListTickets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.TicketFilter{Department: strings.TrimSpace(q.Get("department")), Limit: queryLimit(r, 0)}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := domain.ParseTicketStatus(raw)
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
	if filter.AssigneeID, err = queryUint(r, "assignee_id"); err != nil {
		writeError(w, err)
		return
	}
	items, err := h.service.ListTickets(r.Context(), actorFrom(r), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	t, err := h.service.GetTicket(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) handleEditTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req apiTicketPayload
	if !decodeJSON(w, r, &req) {
		return
	}
	payload, err := req.payload()
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := h.service.EditTicket(r.Context(), actorFrom(r), id, payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type apiTicketStatusRequest struct {
	Status string `json:"status"`
	Remark string `json:"remark"`
}

func (h *Handler) handleTicketStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req apiTicketStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	status, err := domain.ParseTicketStatus(req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	t, err := h.service.UpdateTicketStatus(r.Context(), actorFrom(r), id, status, req.Remark)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) handleCancelTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req apiReasonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.service.CancelTicket(r.Context(), actorFrom(r), id, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type apiAssignTicketRequest struct {
	AssigneeID uint `json:"assignee_id"`
}

func (h *Handler) handleAssignTicket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req apiAssignTicketRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.service.AssignTicket(r.Context(), actorFrom(r), id, req.AssigneeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}
