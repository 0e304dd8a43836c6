package application

import (
	"context"
	"fmt"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
)

// ListHistory returns the trail of one subject, or of a whole subject type
// for actors who may view everything.
func (s *Service) ListHistory(ctx context.Context, actor domain.Actor, filter domain.HistoryFilter) ([]domain.HistoryRecord, error) {
	if scopeFor(actor, domain.ActionHistoryView) == scopeAll {
		return s.repo.ListHistory(ctx, filter)
	}
	if filter.SubjectType == "" || filter.SubjectID == nil {
		return nil, fmt.Errorf("%w: role %q may only view the history of a single record", domain.ErrForbidden, actor.Role)
	}
	pc, err := s.subjectContext(ctx, filter.SubjectType, *filter.SubjectID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, domain.ActionHistoryView, pc); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, filter)
}

func (s *Service) subjectContext(ctx context.Context, subject domain.SubjectType, id uint) (domain.PolicyContext, error) {
	switch subject {
	case domain.SubjectAsset:
		asset, err := s.repo.GetAsset(ctx, id)
		if err != nil {
			return domain.PolicyContext{}, err
		}
		return s.assetContext(ctx, s.repo, asset)
	case domain.SubjectRequest:
		req, err := s.repo.GetRequest(ctx, id)
		if err != nil {
			return domain.PolicyContext{}, err
		}
		return requestContext(req), nil
	case domain.SubjectAllocation:
		alloc, err := s.repo.GetAllocation(ctx, id)
		if err != nil {
			return domain.PolicyContext{}, err
		}
		return allocationContext(alloc), nil
	case domain.SubjectTicket:
		t, err := s.repo.GetTicket(ctx, id)
		if err != nil {
			return domain.PolicyContext{}, err
		}
		return ticketContext(t), nil
	default:
		return domain.PolicyContext{}, fmt.Errorf("%w: unknown subject type %q", domain.ErrValidation, subject)
	}
}
