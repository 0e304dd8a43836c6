package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/adapters/notify"
	"github.com/SolidPro12/Asset-Management-System-sub000/internal/application"
	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	sessionCookieName = "ams_session"
	sessionTTL        = 12 * time.Hour
	maxJSONBody       = 1 << 20
	maxUploadBody     = 10 << 20
)

type contextKey string

const identityKey contextKey = "identity"

type Handler struct {
	service *application.Service
	hub     *notify.Hub
}

// NewRouter serves the JSON API. hub may be nil, in which case /api/events
// answers 503.
func NewRouter(service *application.Service, hub *notify.Hub) http.Handler {
	h := &Handler{service: service, hub: hub}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/login", h.handleAPILogin)

		api.Group(func(p chi.Router) {
			p.Use(h.requireAuthAPI)

			p.Get("/auth/whoami", h.handleAPIWhoAmI)
			p.Post("/auth/logout", h.handleAPILogout)
			p.Get("/events", h.handleEvents)

			p.Get("/assets", h.handleListAssets)
			p.Post("/assets", h.handleCreateAsset)
			p.Post("/assets/import", h.handleImportAssets)
			p.Get("/assets/export", h.handleExportAssets)
			p.Get("/assets/{id}", h.handleGetAsset)
			p.Post("/assets/{id}/retire", h.handleRetireAsset)
			p.Get("/assets/{id}/maintenance", h.handleListMaintenance)
			p.Post("/assets/{id}/maintenance", h.handleStartMaintenance)
			p.Post("/assets/{id}/maintenance/finish", h.handleFinishMaintenance)
			p.Get("/assets/{id}/history", h.handleSubjectHistory(domain.SubjectAsset))

			p.Get("/requests", h.handleListRequests)
			p.Post("/requests", h.handleSubmitRequest)
			p.Get("/requests/{id}", h.handleGetRequest)
			p.Put("/requests/{id}", h.handleEditRequest)
			p.Delete("/requests/{id}", h.handleDeleteRequest)
			p.Post("/requests/{id}/approve", h.handleApproveRequest)
			p.Post("/requests/{id}/reject", h.handleRejectRequest)
			p.Post("/requests/{id}/procure", h.handleStartProcurement)
			p.Post("/requests/{id}/fulfill", h.handleFulfillRequest)
			p.Get("/requests/{id}/history", h.handleSubjectHistory(domain.SubjectRequest))

			p.Get("/allocations", h.handleListAllocations)
			p.Post("/allocations", h.handleAllocate)
			p.Get("/allocations/{id}", h.handleGetAllocation)
			p.Post("/allocations/{id}/return", h.handleReturnAllocation)
			p.Post("/allocations/{id}/transfer", h.handleTransferAllocation)
			p.Get("/allocations/{id}/history", h.handleSubjectHistory(domain.SubjectAllocation))

			p.Get("/tickets", h.handleListTickets)
			p.Post("/tickets", h.handleCreateTicket)
			p.Get("/tickets/{id}", h.handleGetTicket)
			p.Put("/tickets/{id}", h.handleEditTicket)
			p.Post("/tickets/{id}/status", h.handleTicketStatus)
			p.Post("/tickets/{id}/cancel", h.handleCancelTicket)
			p.Post("/tickets/{id}/assign", h.handleAssignTicket)
			p.Get("/tickets/{id}/history", h.handleSubjectHistory(domain.SubjectTicket))

			p.Get("/history", h.handleListHistory)

			p.Get("/users", h.handleListUsers)
			p.Post("/users", h.handleCreateUser)
			p.Post("/users/import", h.handleImportUsers)
			p.Get("/users/export", h.handleExportUsers)
			p.Get("/users/{id}", h.handleGetUser)
			p.Post("/users/{id}/role", h.handleUpdateUserRole)
			p.Post("/users/{id}/department-head", h.handleAssignDepartmentHead)

			p.Get("/settings/notifications", h.handleGetNotificationSettings)
			p.Put("/settings/notifications", h.handleUpdateNotificationSettings)
			p.Get("/audit/logs", h.handleAPIListAuditLogs)
		})
	})

	return r
}

func (h *Handler) requireAuthAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := h.authenticateRequest(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized", "kind": domain.KindUnauthenticated})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	})
}

func (h *Handler) authenticateRequest(r *http.Request) (domain.Identity, bool) {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[7:])
		identity, err := h.service.AuthenticateBearerToken(r.Context(), token)
		if err == nil {
			return identity, true
		}
	}

	c, err := r.Cookie(sessionCookieName)
	if err == nil && strings.TrimSpace(c.Value) != "" {
		identity, authErr := h.service.AuthenticateSession(r.Context(), c.Value)
		if authErr == nil {
			return identity, true
		}
	}

	return domain.Identity{}, false
}

func identityFromContext(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(domain.Identity)
	return identity, ok
}

// actorFrom is only called behind requireAuthAPI.
func actorFrom(r *http.Request) domain.Actor {
	identity, _ := identityFromContext(r.Context())
	return identity.Actor()
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sessionTTL),
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

type apiLoginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Mode      string `json:"mode"`
	TokenName string `json:"token_name"`
}

func (h *Handler) handleAPILogin(w http.ResponseWriter, r *http.Request) {
	var req apiLoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = "token"
	}

	if mode == "session" {
		u, token, err := h.service.LoginWithSession(r.Context(), req.Email, req.Password, sessionTTL)
		if err != nil {
			writeError(w, err)
			return
		}
		h.setSessionCookie(w, token)
		writeJSON(w, http.StatusOK, map[string]any{"user_id": u.ID, "email": u.Email, "role": u.Role, "mode": "session"})
		return
	}

	u, token, err := h.service.LoginWithAPIToken(r.Context(), req.Email, req.Password, req.TokenName, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": u.ID, "email": u.Email, "role": u.Role, "token": token, "mode": "token"})
}

func (h *Handler) handleAPIWhoAmI(w http.ResponseWriter, r *http.Request) {
	identity, _ := identityFromContext(r.Context())
	u := identity.User
	writeJSON(w, http.StatusOK, map[string]any{
		"id":            u.ID,
		"email":         u.Email,
		"name":          u.Name,
		"employee_code": u.EmployeeCode,
		"department":    u.Department,
		"role":          u.Role,
	})
}

func (h *Handler) handleAPILogout(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(sessionCookieName)
	if err == nil && c.Value != "" {
		_ = h.service.LogoutSession(r.Context(), c.Value)
		h.clearSessionCookie(w)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		writeError(w, fmt.Errorf("%w: live notifications are disabled", domain.ErrUnavailable))
		return
	}
	identity, _ := identityFromContext(r.Context())
	h.hub.Serve(w, r, identity.User.ID)
}

func (h *Handler) handleAPIListAuditLogs(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListAuditLogs(r.Context(), actorFrom(r), queryLimit(r, 500))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleListHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.HistoryFilter{Limit: queryLimit(r, 0)}
	if raw := strings.TrimSpace(q.Get("subject_type")); raw != "" {
		subject, err := domain.ParseSubjectType(raw)
		if err != nil {
			writeError(w, err)
			return
		}
		filter.SubjectType = subject
	}
	id, err := queryUint(r, "subject_id")
	if err != nil {
		writeError(w, err)
		return
	}
	filter.SubjectID = id
	items, err := h.service.ListHistory(r.Context(), actorFrom(r), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleSubjectHistory(subject domain.SubjectType) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		items, err := h.service.ListHistory(r.Context(), actorFrom(r), domain.HistoryFilter{SubjectType: subject, SubjectID: &id})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, items)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindInvalidAttachment:
		return http.StatusUnprocessableEntity
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a service error to its status. Internal errors are logged
// and not echoed.
func writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("http: internal error: %v", err)
		msg = "internal error"
	}
	writeJSON(w, status, map[string]any{"error": msg, "kind": kind})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, out any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, fmt.Errorf("%w: invalid payload: %v", domain.ErrValidation, err))
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "id")
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		writeError(w, fmt.Errorf("%w: invalid id %q", domain.ErrValidation, raw))
		return 0, false
	}
	return uint(v), true
}

func queryUint(r *http.Request, name string) (*uint, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s", domain.ErrValidation, name)
	}
	id := uint(v)
	return &id, nil
}

func queryLimit(r *http.Request, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("limit")))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
