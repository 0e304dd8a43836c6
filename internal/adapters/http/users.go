package http

import (
	"log"
	"net/http"
	"strings"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/adapters/tabular"
	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
)

type apiCreateUserRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	Name         string `json:"name"`
	EmployeeCode string `json:"employee_code"`
	Department   string `json:"department"`
	Location     string `json:"location"`
	Role         string `json:"role"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req apiCreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.service.CreateUser(r.Context(), actorFrom(r), domain.UserInput{
		Email:        req.Email,
		Password:     req.Password,
		Name:         req.Name,
		EmployeeCode: req.EmployeeCode,
		Department:   req.Department,
		Location:     req.Location,
		Role:         req.Role,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func userFilterFrom(r *http.Request) (domain.UserFilter, error) {
	q := r.URL.Query()
	filter := domain.UserFilter{
		Query:      strings.TrimSpace(q.Get("q")),
		Department: strings.TrimSpace(q.Get("department")),
		Limit:      queryLimit(r, 0),
	}
	if raw := strings.TrimSpace(q.Get("role")); raw != "" {
		role, err := domain.ParseRole(raw)
		if err != nil {
			return domain.UserFilter{}, err
		}
		filter.Role = role
	}
	return filter, nil
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	filter, err := userFilterFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	items, err := h.service.ListUsers(r.Context(), actorFrom(r), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	u, err := h.service.GetUser(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type apiRoleRequest struct {
	Role       string `json:"role"`
	Department string `json:"department"`
}

func (h *Handler) handleUpdateUserRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req apiRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.service.UpdateUserRole(r.Context(), actorFrom(r), id, req.Role, req.Department)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) handleAssignDepartmentHead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req apiRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	u, err := h.service.AssignDepartmentHead(r.Context(), actorFrom(r), id, req.Department)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) handleImportUsers(w http.ResponseWriter, r *http.Request) {
	body, cleanup, err := uploadReader(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cleanup()
	rows, err := tabular.ReadUsers(body)
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := h.service.ImportUsers(r.Context(), actorFrom(r), rows)
	if err != nil {
		writeError(w, err)
		return
	}
	writeReport(w, report)
}

func (h *Handler) handleExportUsers(w http.ResponseWriter, r *http.Request) {
	filter, err := userFilterFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	users, err := h.service.ExportUsers(r.Context(), actorFrom(r), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCSVHeaders(w, "users")
	if err := tabular.WriteUsers(w, users); err != nil {
		logWriteError("user export", err)
	}
}

type apiNotificationSettings struct {
	Enabled       bool     `json:"enabled"`
	SenderAddress string   `json:"sender_address"`
	Events        []string `json:"events"`
}

func (h *Handler) handleGetNotificationSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.NotificationSettings(r.Context(), actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiNotificationSettings(settings))
}

func (h *Handler) handleUpdateNotificationSettings(w http.ResponseWriter, r *http.Request) {
	var req apiNotificationSettings
	if !decodeJSON(w, r, &req) {
		return
	}
	settings, err := h.service.UpdateNotificationSettings(r.Context(), actorFrom(r), domain.NotificationSettings(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiNotificationSettings(settings))
}

// logWriteError records a failure after the status line was already sent.
func logWriteError(what string, err error) {
	log.Printf("http: %s: %v", what, err)
}
