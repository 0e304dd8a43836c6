package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
)

func requestContext(req domain.AssetRequest) domain.PolicyContext {
	return domain.PolicyContext{OwnerID: req.RequesterID, Department: req.Department}
}

func (s *Service) SubmitRequest(ctx context.Context, actor domain.Actor, payload domain.RequestPayload) (domain.RequestView, error) {
	if err := authorize(actor, domain.ActionRequestCreate, domain.PolicyContext{OwnerID: actor.UserID}); err != nil {
		return domain.RequestView{}, err
	}
	req, err := payload.Validate(s.now())
	if err != nil {
		return domain.RequestView{}, err
	}
	req.RequesterID = actor.UserID

	var view domain.RequestView
	err = s.repo.Transact(ctx, func(repo domain.Repository) error {
		created, err := repo.CreateRequest(ctx, req)
		if err != nil {
			return err
		}
		remark := fmt.Sprintf("%d x %s (%s)", created.Quantity, created.Category, created.RequestType)
		if err := s.appendHistory(ctx, repo, domain.SubjectRequest, created.ID, "created", actor, remark); err != nil {
			return err
		}
		view, err = repo.GetRequestView(ctx, created.ID)
		return err
	})
	if err != nil {
		return domain.RequestView{}, err
	}
	return view, nil
}

func (s *Service) ApproveRequest(ctx context.Context, actor domain.Actor, id uint) (domain.RequestView, error) {
	var view domain.RequestView
	err := s.repo.Transact(ctx, func(repo domain.Repository) error {
		req, err := repo.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(actor, domain.ActionRequestApprove, requestContext(req)); err != nil {
			return err
		}
		if err := domain.CheckRequestTransition(req.Status, domain.RequestApproved); err != nil {
			return fmt.Errorf("request %s: %w", req.Code, err)
		}
		expected := req.Status
		now := s.now()
		req.Status = domain.RequestApproved
		req.ApprovedBy = uintPtr(actor.UserID)
		req.ApprovedAt = &now
		if err := repo.UpdateRequest(ctx, req, expected); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, repo, domain.SubjectRequest, req.ID, "approved", actor, ""); err != nil {
			return err
		}
		view, err = repo.GetRequestView(ctx, req.ID)
		return err
	})
	if err != nil {
		return domain.RequestView{}, err
	}
	s.dispatch(ctx, domain.Event{
		Type:        domain.EventRequestApproved,
		RecipientID: view.RequesterID,
		SubjectType: domain.SubjectRequest,
		SubjectID:   view.ID,
		Payload:     map[string]any{"code": view.Code, "approver": view.ApproverName},
	})
	return view, nil
}

func (s *Service) RejectRequest(ctx context.Context, actor domain.Actor, id uint, reason string) (domain.RequestView, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.RequestView{}, fmt.Errorf("%w: rejection reason is required", domain.ErrValidation)
	}

	var view domain.RequestView
	err := s.repo.Transact(ctx, func(repo domain.Repository) error {
		req, err := repo.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(actor, domain.ActionRequestReject, requestContext(req)); err != nil {
			return err
		}
		if err := domain.CheckRequestTransition(req.Status, domain.RequestRejected); err != nil {
			return fmt.Errorf("request %s: %w", req.Code, err)
		}
		expected := req.Status
		req.Status = domain.RequestRejected
		req.RejectionReason = reason
		if err := repo.UpdateRequest(ctx, req, expected); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, repo, domain.SubjectRequest, req.ID, "rejected", actor, reason); err != nil {
			return err
		}
		view, err = repo.GetRequestView(ctx, req.ID)
		return err
	})
	if err != nil {
		return domain.RequestView{}, err
	}
	s.dispatch(ctx, domain.Event{
		Type:        domain.EventRequestRejected,
		RecipientID: view.RequesterID,
		SubjectType: domain.SubjectRequest,
		SubjectID:   view.ID,
		Payload:     map[string]any{"code": view.Code, "reason": reason},
	})
	return view, nil
}

// EditRequest replaces the request fields. The requester may edit while the
// request is pending; approvers and HR also while it is in progress.
func (s *Service) EditRequest(ctx context.Context, actor domain.Actor, id uint, payload domain.RequestPayload) (domain.RequestView, error) {
	var view domain.RequestView
	err := s.repo.Transact(ctx, func(repo domain.Repository) error {
		req, err := repo.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		pc := requestContext(req)
		if err := authorize(actor, domain.ActionRequestEdit, pc); err != nil {
			return err
		}
		broad := domain.EffectFor(actor.Role, domain.ActionRequestEdit) == domain.Allow ||
			domain.Can(actor, domain.ActionRequestApprove, pc)
		editable := req.Status == domain.RequestPending || (broad && req.Status == domain.RequestInProgress)
		if !editable {
			return fmt.Errorf("%w: request %s is %s", domain.ErrInvalidState, req.Code, req.Status)
		}

		next, err := payload.Validate(s.now())
		if err != nil {
			return err
		}
		expected := req.Status
		req.Category = next.Category
		req.Quantity = next.Quantity
		req.Specification = next.Specification
		req.Department = next.Department
		req.Location = next.Location
		req.RequestType = next.RequestType
		req.ExpectedDelivery = next.ExpectedDelivery
		if err := repo.UpdateRequest(ctx, req, expected); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, repo, domain.SubjectRequest, req.ID, "updated", actor, ""); err != nil {
			return err
		}
		view, err = repo.GetRequestView(ctx, req.ID)
		return err
	})
	if err != nil {
		return domain.RequestView{}, err
	}
	return view, nil
}

// DeleteRequest removes the request together with its history. Allocations
// made from it keep existing and lose the reference.
func (s *Service) DeleteRequest(ctx context.Context, actor domain.Actor, id uint) error {
	var code string
	err := s.repo.Transact(ctx, func(repo domain.Repository) error {
		req, err := repo.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(actor, domain.ActionRequestDelete, requestContext(req)); err != nil {
			return err
		}
		code = req.Code
		if err := repo.DeleteHistory(ctx, domain.SubjectRequest, req.ID); err != nil {
			return err
		}
		return repo.DeleteRequest(ctx, req.ID)
	})
	if err != nil {
		return err
	}
	s.WriteAudit(ctx, uintPtr(actor.UserID), "request.delete", "request", &id, code)
	return nil
}

// StartProcurement moves an approved request into procurement.
func (s *Service) StartProcurement(ctx context.Context, actor domain.Actor, id uint) (domain.RequestView, error) {
	var view domain.RequestView
	err := s.repo.Transact(ctx, func(repo domain.Repository) error {
		req, err := repo.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(actor, domain.ActionRequestProgress, requestContext(req)); err != nil {
			return err
		}
		if err := domain.CheckRequestTransition(req.Status, domain.RequestInProgress); err != nil {
			return fmt.Errorf("request %s: %w", req.Code, err)
		}
		expected := req.Status
		req.Status = domain.RequestInProgress
		if err := repo.UpdateRequest(ctx, req, expected); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, repo, domain.SubjectRequest, req.ID, "in_progress", actor, ""); err != nil {
			return err
		}
		view, err = repo.GetRequestView(ctx, req.ID)
		return err
	})
	if err != nil {
		return domain.RequestView{}, err
	}
	return view, nil
}

// FulfillRequest allocates the given assets to the requester and completes
// the request, all in one transaction.
func (s *Service) FulfillRequest(ctx context.Context, actor domain.Actor, id uint, assetIDs []uint, condition domain.Condition) (domain.RequestView, []domain.Allocation, error) {
	if err := authorize(actor, domain.ActionAllocationCreate, domain.PolicyContext{}); err != nil {
		return domain.RequestView{}, nil, err
	}
	if len(assetIDs) == 0 {
		return domain.RequestView{}, nil, fmt.Errorf("%w: at least one asset is required", domain.ErrValidation)
	}
	seen := make(map[uint]struct{}, len(assetIDs))
	for _, assetID := range assetIDs {
		if _, dup := seen[assetID]; dup {
			return domain.RequestView{}, nil, fmt.Errorf("%w: asset %d listed twice", domain.ErrValidation, assetID)
		}
		seen[assetID] = struct{}{}
	}
	condition, err := normalizeCondition(condition)
	if err != nil {
		return domain.RequestView{}, nil, err
	}

	var (
		view        domain.RequestView
		allocations []domain.Allocation
	)
	err = s.repo.Transact(ctx, func(repo domain.Repository) error {
		req, err := repo.GetRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(actor, domain.ActionRequestProgress, requestContext(req)); err != nil {
			return err
		}
		if err := domain.CheckRequestTransition(req.Status, domain.RequestFulfilled); err != nil {
			return fmt.Errorf("request %s: %w", req.Code, err)
		}
		if len(assetIDs) > req.Quantity {
			return fmt.Errorf("%w: request %s asks for %d assets, got %d", domain.ErrValidation, req.Code, req.Quantity, len(assetIDs))
		}
		requester, err := repo.GetUserByID(ctx, req.RequesterID)
		if err != nil {
			return err
		}

		allocations = make([]domain.Allocation, 0, len(assetIDs))
		for _, assetID := range assetIDs {
			asset, err := repo.GetAsset(ctx, assetID)
			if err != nil {
				return err
			}
			if asset.Category != req.Category {
				return fmt.Errorf("%w: asset %s is a %s, request %s wants %s", domain.ErrValidation, asset.Tag, asset.Category, req.Code, req.Category)
			}
			alloc, err := s.allocateIn(ctx, repo, actor, asset, requester, domain.AllocationDetails{
				Condition: condition,
				Notes:     "fulfils " + req.Code,
				RequestID: uintPtr(req.ID),
			})
			if err != nil {
				return err
			}
			allocations = append(allocations, alloc)
		}

		expected := req.Status
		now := s.now()
		req.Status = domain.RequestFulfilled
		req.FulfilledAt = &now
		if err := repo.UpdateRequest(ctx, req, expected); err != nil {
			return err
		}
		remark := fmt.Sprintf("%d of %d allocated", len(allocations), req.Quantity)
		if err := s.appendHistory(ctx, repo, domain.SubjectRequest, req.ID, "fulfilled", actor, remark); err != nil {
			return err
		}
		view, err = repo.GetRequestView(ctx, req.ID)
		return err
	})
	if err != nil {
		return domain.RequestView{}, nil, err
	}
	events := make([]domain.Event, 0, len(allocations))
	for _, a := range allocations {
		events = append(events, assignedEvent(a))
	}
	s.dispatch(ctx, events...)
	return view, allocations, nil
}

func (s *Service) GetRequest(ctx context.Context, actor domain.Actor, id uint) (domain.RequestView, error) {
	view, err := s.repo.GetRequestView(ctx, id)
	if err != nil {
		return domain.RequestView{}, err
	}
	if err := authorize(actor, domain.ActionRequestView, requestContext(view.AssetRequest)); err != nil {
		return domain.RequestView{}, err
	}
	return view, nil
}

// ListRequests returns the requests visible to actor: everything, their
// department's, or only their own.
func (s *Service) ListRequests(ctx context.Context, actor domain.Actor, filter domain.RequestFilter) ([]domain.RequestView, error) {
	switch scopeFor(actor, domain.ActionRequestView) {
	case scopeAll:
	case scopeDepartment:
		filter.Department = actor.Department
	case scopeOwn:
		filter.RequesterID = uintPtr(actor.UserID)
	default:
		return nil, fmt.Errorf("%w: role %q may not list requests", domain.ErrForbidden, actor.Role)
	}
	return s.repo.ListRequestViews(ctx, filter)
}
