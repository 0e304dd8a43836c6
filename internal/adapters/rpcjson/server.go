package rpcjson

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/adapters/tabular"
	"github.com/SolidPro12/Asset-Management-System-sub000/internal/application"
	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
)

type Server struct {
	service  *application.Service
	listener net.Listener
	path     string
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// handlerFunc runs one authenticated method. params is the raw params
// object, token included.
type handlerFunc func(ctx context.Context, actor domain.Actor, params json.RawMessage) (any, error)

func Start(path string, service *application.Service) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}

	s := &Server{service: service, listener: ln, path: path}
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	err := s.listener.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			_ = enc.Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}, ID: nil})
			return
		}

		resp := s.dispatch(context.Background(), req)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32600, Message: "invalid request"}, ID: req.ID}
	}

	if req.Method == "auth.login" {
		return s.handleAuthLogin(ctx, req)
	}

	handler, ok := s.methods()[req.Method]
	if !ok {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32601, Message: "method not found"}, ID: req.ID}
	}
	identity, rpcResp, ok := s.authz(ctx, req)
	if !ok {
		return rpcResp
	}
	out, err := handler(ctx, identity.Actor(), req.Params)
	if err != nil {
		return appError(req.ID, err)
	}
	return response{JSONRPC: "2.0", Result: out, ID: req.ID}
}

func (s *Server) methods() map[string]handlerFunc {
	return map[string]handlerFunc{
		"auth.whoami": s.whoami,

		"assets.list":               s.listAssets,
		"assets.get":                s.getAsset,
		"assets.create":             s.createAsset,
		"assets.retire":             s.retireAsset,
		"assets.maintenance.start":  s.startMaintenance,
		"assets.maintenance.finish": s.finishMaintenance,
		"assets.maintenance.list":   s.listMaintenance,
		"assets.import":             s.importAssets,
		"assets.export":             s.exportAssets,

		"requests.list":    s.listRequests,
		"requests.get":     s.getRequest,
		"requests.submit":  s.submitRequest,
		"requests.edit":    s.editRequest,
		"requests.delete":  s.deleteRequest,
		"requests.approve": s.approveRequest,
		"requests.reject":  s.rejectRequest,
		"requests.procure": s.procureRequest,
		"requests.fulfill": s.fulfillRequest,

		"allocations.list":     s.listAllocations,
		"allocations.get":      s.getAllocation,
		"allocations.create":   s.allocate,
		"allocations.return":   s.returnAllocation,
		"allocations.transfer": s.transferAllocation,

		"tickets.list":   s.listTickets,
		"tickets.get":    s.getTicket,
		"tickets.create": s.createTicket,
		"tickets.edit":   s.editTicket,
		"tickets.status": s.ticketStatus,
		"tickets.cancel": s.cancelTicket,
		"tickets.assign": s.assignTicket,

		"history.list": s.listHistory,

		"users.list":            s.listUsers,
		"users.get":             s.getUser,
		"users.create":          s.createUser,
		"users.role":            s.updateUserRole,
		"users.department_head": s.assignDepartmentHead,
		"users.import":          s.importUsers,
		"users.export":          s.exportUsers,

		"settings.notifications.get": s.getNotificationSettings,
		"settings.notifications.set": s.setNotificationSettings,

		"audit.list": s.listAuditLogs,
	}
}

func (s *Server) handleAuthLogin(ctx context.Context, req request) response {
	var p struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		TokenName string `json:"token_name"`
	}
	if !decodeParams(req.Params, &p) {
		return invalidParams(req.ID)
	}
	u, token, err := s.service.LoginWithAPIToken(ctx, p.Email, p.Password, p.TokenName, nil)
	if err != nil {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: 40100, Message: "invalid credentials", Kind: string(domain.KindUnauthenticated)}, ID: req.ID}
	}
	return response{JSONRPC: "2.0", Result: map[string]any{"user_id": u.ID, "email": u.Email, "role": u.Role, "token": token}, ID: req.ID}
}

func (s *Server) authz(ctx context.Context, req request) (domain.Identity, response, bool) {
	var p struct {
		Token string `json:"token"`
	}
	if !decodeParams(req.Params, &p) {
		return domain.Identity{}, invalidParams(req.ID), false
	}
	identity, err := s.service.AuthenticateBearerToken(ctx, p.Token)
	if err != nil {
		return domain.Identity{}, response{JSONRPC: "2.0", Error: &rpcError{Code: 40100, Message: "unauthorized", Kind: string(domain.KindUnauthenticated)}, ID: req.ID}, false
	}
	return identity, response{}, true
}

func (s *Server) whoami(ctx context.Context, actor domain.Actor, _ json.RawMessage) (any, error) {
	u, err := s.service.GetUser(ctx, actor, actor.UserID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": u.ID, "email": u.Email, "name": u.Name, "department": u.Department, "role": u.Role}, nil
}

type idParams struct {
	ID uint `json:"id"`
}

type reasonParams struct {
	ID     uint   `json:"id"`
	Reason string `json:"reason"`
}

func params[P any](raw json.RawMessage) (P, error) {
	var p P
	if !decodeParams(raw, &p) {
		return p, fmt.Errorf("%w: invalid params", domain.ErrValidation)
	}
	return p, nil
}

type assetParams struct {
	ID           uint              `json:"id"`
	Tag          string            `json:"tag"`
	Name         string            `json:"name"`
	Category     string            `json:"category"`
	Department   string            `json:"department"`
	Location     string            `json:"location"`
	PurchaseDate string            `json:"purchase_date"`
	PurchaseCost json.Number       `json:"purchase_cost"`
	WarrantyEnd  string            `json:"warranty_end"`
	Specs        map[string]string `json:"specs"`
}

type assetFilterParams struct {
	Status     string `json:"status"`
	Category   string `json:"category"`
	Department string `json:"department"`
	Q          string `json:"q"`
	HolderID   *uint  `json:"holder_id"`
	Limit      int    `json:"limit"`
}

func (p assetFilterParams) filter() (domain.AssetFilter, error) {
	filter := domain.AssetFilter{Department: p.Department, Query: p.Q, HolderID: p.HolderID, Limit: p.Limit}
	if strings.TrimSpace(p.Status) != "" {
		status, err := domain.ParseAssetStatus(p.Status)
		if err != nil {
			return domain.AssetFilter{}, err
		}
		filter.Status = status
	}
	if strings.TrimSpace(p.Category) != "" {
		category, err := domain.ParseAssetCategory(p.Category)
		if err != nil {
			return domain.AssetFilter{}, err
		}
		filter.Category = category
	}
	return filter, nil
}

func (s *Server) listAssets(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[assetFilterParams](raw)
	if err != nil {
		return nil, err
	}
	filter, err := p.filter()
	if err != nil {
		return nil, err
	}
	return s.service.ListAssets(ctx, actor, filter)
}

func (s *Server) getAsset(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[idParams](raw)
	if err != nil {
		return nil, err
	}
	return s.service.GetAsset(ctx, actor, p.ID)
}

func (s *Server) createAsset(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[assetParams](raw)
	if err != nil {
		return nil, err
	}
	purchased, err := parseDate("purchase_date", p.PurchaseDate)
	if err != nil {
		return nil, err
	}
	warranty, err := parseDate("warranty_end", p.WarrantyEnd)
	if err != nil {
		return nil, err
	}
	return s.service.CreateAsset(ctx, actor, domain.AssetInput{
		Tag:          p.Tag,
		Name:         p.Name,
		Category:     p.Category,
		Department:   p.Department,
		Location:     p.Location,
		PurchaseDate: purchased,
		PurchaseCost: p.PurchaseCost.String(),
		WarrantyEnd:  warranty,
		Specs:        p.Specs,
	})
}

func (s *Server) retireAsset(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[reasonParams](raw)
	if err != nil {
		return nil, err
	}
	return s.service.RetireAsset(ctx, actor, p.ID, p.Reason)
}

func (s *Server) startMaintenance(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[reasonParams](raw)
	if err != nil {
		return nil, err
	}
	return s.service.StartMaintenance(ctx, actor, p.ID, p.Reason)
}

func (s *Server) finishMaintenance(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[struct {
		ID         uint   `json:"id"`
		Resolution string `json:"resolution"`
		Retire     bool   `json:"retire"`
	}](raw)
	if err != nil {
		return nil, err
	}
	return s.service.FinishMaintenance(ctx, actor, p.ID, p.Resolution, p.Retire)
}

func (s *Server) listMaintenance(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[struct {
		ID    uint `json:"id"`
		Limit int  `json:"limit"`
	}](raw)
	if err != nil {
		return nil, err
	}
	return s.service.ListMaintenance(ctx, actor, p.ID, p.Limit)
}

type csvParams struct {
	CSV string `json:"csv"`
}

func (s *Server) importAssets(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[csvParams](raw)
	if err != nil {
		return nil, err
	}
	rows, err := tabular.ReadAssets(strings.NewReader(p.CSV))
	if err != nil {
		return nil, err
	}
	return s.service.ImportAssets(ctx, actor, rows)
}

func (s *Server) exportAssets(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[assetFilterParams](raw)
	if err != nil {
		return nil, err
	}
	filter, err := p.filter()
	if err != nil {
		return nil, err
	}
	assets, err := s.service.ExportAssets(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tabular.WriteAssets(&buf, assets); err != nil {
		return nil, err
	}
	return csvParams{CSV: buf.String()}, nil
}

type requestParams struct {
	ID               uint   `json:"id"`
	Category         string `json:"category"`
	Quantity         int    `json:"quantity"`
	Specification    string `json:"specification"`
	Department       string `json:"department"`
	Location         string `json:"location"`
	RequestType      string `json:"request_type"`
	ExpectedDelivery string `json:"expected_delivery"`
}

func (p requestParams) payload() (domain.RequestPayload, error) {
	expected, err := parseDate("expected_delivery", p.ExpectedDelivery)
	if err != nil {
		return domain.RequestPayload{}, err
	}
	return domain.RequestPayload{
		Category:         p.Category,
		Quantity:         p.Quantity,
		Specification:    p.Specification,
		Department:       p.Department,
		Location:         p.Location,
		RequestType:      p.RequestType,
		ExpectedDelivery: expected,
	}, nil
}

func (s *Server) listRequests(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[struct {
		Status      string `json:"status"`
		Department  string `json:"department"`
		RequesterID *uint  `json:"requester_id"`
		Limit       int    `json:"limit"`
	}](raw)
	if err != nil {
		return nil, err
	}
	filter := domain.RequestFilter{RequesterID: p.RequesterID, Department: p.Department, Limit: p.Limit}
	if strings.TrimSpace(p.Status) != "" {
		if filter.Status, err = domain.ParseRequestStatus(p.Status); err != nil {
			return nil, err
		}
	}
	return s.service.ListRequests(ctx, actor, filter)
}

func (s *Server) getRequest(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[idParams](raw)
	if err != nil {
		return nil, err
	}
	return s.service.GetRequest(ctx, actor, p.ID)
}

func (s *Server) submitRequest(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[requestParams](raw)
	if err != nil {
		return nil, err
	}
	payload, err := p.payload()
	if err != nil {
		return nil, err
	}
	return s.service.SubmitRequest(ctx, actor, payload)
}

func (s *Server) editRequest(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[requestParams](raw)
	if err != nil {
		return nil, err
	}
	payload, err := p.payload()
	if err != nil {
		return nil, err
	}
	return s.service.EditRequest(ctx, actor, p.ID, payload)
}

func (s *Server) deleteRequest(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[idParams](raw)
	if err != nil {
		return nil, err
	}
	if err := s.service.DeleteRequest(ctx, actor, p.ID); err != nil {
		return nil, err
	}
	return map[string]any{"ok": true}, nil
}

func (s *Server) approveRequest(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[idParams](raw)
	if err != nil {
		return nil, err
	}
	return s.service.ApproveRequest(ctx, actor, p.ID)
}

func (s *Server) rejectRequest(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[reasonParams](raw)
	if err != nil {
		return nil, err
	}
	return s.service.RejectRequest(ctx, actor, p.ID, p.Reason)
}

func (s *Server) procureRequest(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[idParams](raw)
	if err != nil {
		return nil, err
	}
	return s.service.StartProcurement(ctx, actor, p.ID)
}

func (s *Server) fulfillRequest(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[struct {
		ID        uint   `json:"id"`
		AssetIDs  []uint `json:"asset_ids"`
		Condition string `json:"condition"`
	}](raw)
	if err != nil {
		return nil, err
	}
	view, allocations, err := s.service.FulfillRequest(ctx, actor, p.ID, p.AssetIDs, domain.Condition(p.Condition))
	if err != nil {
		return nil, err
	}
	return map[string]any{"request": view, "allocations": allocations}, nil
}

type allocateParams struct {
	ID         uint   `json:"id"`
	AssetID    uint   `json:"asset_id"`
	EmployeeID uint   `json:"employee_id"`
	Condition  string `json:"condition"`
	Notes      string `json:"notes"`
	RequestID  *uint  `json:"request_id"`
}

func (p allocateParams) details() domain.AllocationDetails {
	return domain.AllocationDetails{Condition: domain.Condition(p.Condition), Notes: p.Notes, RequestID: p.RequestID}
}

func (s *Server) listAllocations(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[struct {
		AssetID    *uint  `json:"asset_id"`
		EmployeeID *uint  `json:"employee_id"`
		Department string `json:"department"`
		Status     string `json:"status"`
		Limit      int    `json:"limit"`
	}](raw)
	if err != nil {
		return nil, err
	}
	filter := domain.AllocationFilter{AssetID: p.AssetID, EmployeeID: p.EmployeeID, Department: p.Department, Limit: p.Limit}
	if strings.TrimSpace(p.Status) != "" {
		if filter.Status, err = domain.ParseAllocationStatus(p.Status); err != nil {
			return nil, err
		}
	}
	return s.service.ListAllocations(ctx, actor, filter)
}

func (s *Server) getAllocation(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[idParams](raw)
	if err != nil {
		return nil, err
	}
	return s.service.GetAllocation(ctx, actor, p.ID)
}

func (s *Server) allocate(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[allocateParams](raw)
	if err != nil {
		return nil, err
	}
	return s.service.Allocate(ctx, actor, p.AssetID, p.EmployeeID, p.details())
}

func (s *Server) returnAllocation(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[allocateParams](raw)
	if err != nil {
		return nil, err
	}
	return s.service.ReturnAllocation(ctx, actor, p.ID, domain.Condition(p.Condition), p.Notes)
}

func (s *Server) transferAllocation(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[allocateParams](raw)
	if err != nil {
		return nil, err
	}
	return s.service.TransferAllocation(ctx, actor, p.ID, p.EmployeeID, p.details())
}

type ticketParams struct {
	ID          uint   `json:"id"`
	AssetID     uint   `json:"asset_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Category    string `json:"category"`
	Department  string `json:"department"`
	Location    string `json:"location"`
	Deadline    string `json:"deadline"`
	Attachment  *struct {
		Name        string `json:"name"`
		ContentType string `json:"content_type"`
		Size        int64  `json:"size"`
	} `json:"attachment"`
}

func (p ticketParams) payload() (domain.TicketPayload, error) {
	deadline, err := parseDate("deadline", p.Deadline)
	if err != nil {
		return domain.TicketPayload{}, err
	}
	out := domain.TicketPayload{
		AssetID:     p.AssetID,
		Title:       p.Title,
		Description: p.Description,
		Priority:    p.Priority,
		Category:    p.Category,
		Department:  p.Department,
		Location:    p.Location,
		Deadline:    deadline,
	}
	if p.Attachment != nil {
		out.Attachment = &domain.Attachment{Name: p.Attachment.Name, ContentType: p.Attachment.ContentType, Size: p.Attachment.Size}
	}
	return out, nil
}

func (s *Server) listTickets(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[struct {
		AssetID    *uint  `json:"asset_id"`
		AssigneeID *uint  `json:"assignee_id"`
		Department string `json:"department"`
		Status     string `json:"status"`
		Limit      int    `json:"limit"`
	}](raw)
	if err != nil {
		return nil, err
	}
	filter := domain.TicketFilter{AssetID: p.AssetID, AssigneeID: p.AssigneeID, Department: p.Department, Limit: p.Limit}
	if strings.TrimSpace(p.Status) != "" {
		if filter.Status, err = domain.ParseTicketStatus(p.Status); err != nil {
			return nil, err
		}
	}
	return s.service.ListTickets(ctx, actor, filter)
}

func (s *Server) getTicket(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[idParams](raw)
	if err != nil {
		return nil, err
	}
	return s.service.GetTicket(ctx, actor, p.ID)
}

func (s *Server) createTicket(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[ticketParams](raw)
	if err != nil {
		return nil, err
	}
	payload, err := p.payload()
	if err != nil {
		return nil, err
	}
	return s.service.CreateTicket(ctx, actor, payload)
}

func (s *Server) editTicket(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[ticketParams](raw)
	if err != nil {
		return nil, err
	}
	payload, err := p.payload()
	if err != nil {
		return nil, err
	}
	return s.service.EditTicket(ctx, actor, p.ID, payload)
}

func (s *Server) ticketStatus(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[struct {
		ID     uint   `json:"id"`
		Status string `json:"status"`
		Remark string `json:"remark"`
	}](raw)
	if err != nil {
		return nil, err
	}
	status, err := domain.ParseTicketStatus(p.Status)
	if err != nil {
		return nil, err
	}
	return s.service.UpdateTicketStatus(ctx, actor, p.ID, status, p.Remark)
}

func (s *Server) cancelTicket(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[reasonParams](raw)
	if err != nil {
		return nil, err
	}
	return s.service.CancelTicket(ctx, actor, p.ID, p.Reason)
}

func (s *Server) assignTicket(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[struct {
		ID         uint `json:"id"`
		AssigneeID uint `json:"assignee_id"`
	}](raw)
	if err != nil {
		return nil, err
	}
	return s.service.AssignTicket(ctx, actor, p.ID, p.AssigneeID)
}

func (s *Server) listHistory(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[struct {
		SubjectType string `json:"subject_type"`
		SubjectID   *uint  `json:"subject_id"`
		Limit       int    `json:"limit"`
	}](raw)
	if err != nil {
		return nil, err
	}
	filter := domain.HistoryFilter{SubjectID: p.SubjectID, Limit: p.Limit}
	if strings.TrimSpace(p.SubjectType) != "" {
		if filter.SubjectType, err = domain.ParseSubjectType(p.SubjectType); err != nil {
			return nil, err
		}
	}
	return s.service.ListHistory(ctx, actor, filter)
}

type userFilterParams struct {
	Q          string `json:"q"`
	Department string `json:"department"`
	Role       string `json:"role"`
	Limit      int    `json:"limit"`
}

func (p userFilterParams) filter() (domain.UserFilter, error) {
	filter := domain.UserFilter{Query: p.Q, Department: p.Department, Limit: p.Limit}
	if strings.TrimSpace(p.Role) != "" {
		role, err := domain.ParseRole(p.Role)
		if err != nil {
			return domain.UserFilter{}, err
		}
		filter.Role = role
	}
	return filter, nil
}

func (s *Server) listUsers(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[userFilterParams](raw)
	if err != nil {
		return nil, err
	}
	filter, err := p.filter()
	if err != nil {
		return nil, err
	}
	return s.service.ListUsers(ctx, actor, filter)
}

func (s *Server) getUser(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[idParams](raw)
	if err != nil {
		return nil, err
	}
	return s.service.GetUser(ctx, actor, p.ID)
}

func (s *Server) createUser(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		Name         string `json:"name"`
		EmployeeCode string `json:"employee_code"`
		Department   string `json:"department"`
		Location     string `json:"location"`
		Role         string `json:"role"`
	}](raw)
	if err != nil {
		return nil, err
	}
	return s.service.CreateUser(ctx, actor, domain.UserInput{
		Email:        p.Email,
		Password:     p.Password,
		Name:         p.Name,
		EmployeeCode: p.EmployeeCode,
		Department:   p.Department,
		Location:     p.Location,
		Role:         p.Role,
	})
}

type roleParams struct {
	ID         uint   `json:"id"`
	Role       string `json:"role"`
	Department string `json:"department"`
}

func (s *Server) updateUserRole(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[roleParams](raw)
	if err != nil {
		return nil, err
	}
	return s.service.UpdateUserRole(ctx, actor, p.ID, p.Role, p.Department)
}

func (s *Server) assignDepartmentHead(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[roleParams](raw)
	if err != nil {
		return nil, err
	}
	return s.service.AssignDepartmentHead(ctx, actor, p.ID, p.Department)
}

func (s *Server) importUsers(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[csvParams](raw)
	if err != nil {
		return nil, err
	}
	rows, err := tabular.ReadUsers(strings.NewReader(p.CSV))
	if err != nil {
		return nil, err
	}
	return s.service.ImportUsers(ctx, actor, rows)
}

func (s *Server) exportUsers(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[userFilterParams](raw)
	if err != nil {
		return nil, err
	}
	filter, err := p.filter()
	if err != nil {
		return nil, err
	}
	users, err := s.service.ExportUsers(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tabular.WriteUsers(&buf, users); err != nil {
		return nil, err
	}
	return csvParams{CSV: buf.String()}, nil
}

type notificationParams struct {
	Enabled       bool     `json:"enabled"`
	SenderAddress string   `json:"sender_address"`
	Events        []string `json:"events"`
}

func (s *Server) getNotificationSettings(ctx context.Context, actor domain.Actor, _ json.RawMessage) (any, error) {
	settings, err := s.service.NotificationSettings(ctx, actor)
	if err != nil {
		return nil, err
	}
	return notificationParams(settings), nil
}

func (s *Server) setNotificationSettings(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[notificationParams](raw)
	if err != nil {
		return nil, err
	}
	settings, err := s.service.UpdateNotificationSettings(ctx, actor, domain.NotificationSettings(p))
	if err != nil {
		return nil, err
	}
	return notificationParams(settings), nil
}

func (s *Server) listAuditLogs(ctx context.Context, actor domain.Actor, raw json.RawMessage) (any, error) {
	p, err := params[struct {
		Limit int `json:"limit"`
	}](raw)
	if err != nil {
		return nil, err
	}
	return s.service.ListAuditLogs(ctx, actor, p.Limit)
}

func decodeParams(raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func parseDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s %q is not a date", domain.ErrValidation, field, raw)
}

func invalidParams(id any) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: -32602, Message: "invalid params"}, ID: id}
}

var errorCodes = map[domain.ErrorKind]int{
	domain.KindValidation:        40000,
	domain.KindUnauthenticated:   40100,
	domain.KindForbidden:         40300,
	domain.KindNotFound:          40400,
	domain.KindConflict:          40900,
	domain.KindInvalidAttachment: 42200,
	domain.KindUnavailable:       50300,
}

func appError(id any, err error) response {
	kind := domain.KindOf(err)
	code, ok := errorCodes[kind]
	if !ok {
		log.Printf("rpc: internal error: %v", err)
		return response{JSONRPC: "2.0", Error: &rpcError{Code: 50000, Message: "internal error", Kind: string(domain.KindInternal)}, ID: id}
	}
	return response{JSONRPC: "2.0", Error: &rpcError{Code: code, Message: err.Error(), Kind: string(kind)}, ID: id}
}
