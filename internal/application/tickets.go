package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
	"github.com/google/uuid"
)

func ticketContext(t domain.Ticket) domain.PolicyContext {
	return domain.PolicyContext{OwnerID: t.ReporterID, Department: t.Department}
}

// CreateTicket opens a ticket against an asset the reporter currently holds.
func (s *Service) CreateTicket(ctx context.Context, actor domain.Actor, payload domain.TicketPayload) (domain.Ticket, error) {
	ticket, err := payload.Validate()
	if err != nil {
		return domain.Ticket{}, err
	}
	if ticket.Attachment != nil && ticket.Attachment.Ref == "" {
		ticket.Attachment.Ref = uuid.NewString()
	}

	var created domain.Ticket
	err = s.repo.Transact(ctx, func(repo domain.Repository) error {
		asset, err := repo.GetAsset(ctx, ticket.AssetID)
		if err != nil {
			return err
		}
		holder, err := repo.GetActiveAllocation(ctx, asset.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: asset %s is not allocated to you", domain.ErrForbidden, asset.Tag)
			}
			return err
		}
		if err := authorize(actor, domain.ActionTicketCreate, domain.PolicyContext{OwnerID: holder.EmployeeID, Department: asset.Department}); err != nil {
			return err
		}
		if holder.EmployeeID != actor.UserID {
			return fmt.Errorf("%w: asset %s is not allocated to you", domain.ErrForbidden, asset.Tag)
		}

		ticket.ReporterID = actor.UserID
		ticket.Status = domain.TicketOpen
		created, err = repo.CreateTicket(ctx, ticket)
		if err != nil {
			return err
		}
		remark := fmt.Sprintf("%s on %s (%s)", created.Category, asset.Tag, created.Priority)
		return s.appendHistory(ctx, repo, domain.SubjectTicket, created.ID, "created", actor, remark)
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	return created, nil
}

// UpdateTicketStatus moves a ticket along its workflow. Moving to resolved or
// closed stamps the completion time. Cancellation goes through CancelTicket.
func (s *Service) UpdateTicketStatus(ctx context.Context, actor domain.Actor, id uint, to domain.TicketStatus, remark string) (domain.Ticket, error) {
	if to == domain.TicketCancelled {
		return s.CancelTicket(ctx, actor, id, remark)
	}
	if err := authorize(actor, domain.ActionTicketStatus, domain.PolicyContext{}); err != nil {
		return domain.Ticket{}, err
	}
	if _, err := domain.ParseTicketStatus(string(to)); err != nil {
		return domain.Ticket{}, err
	}
	return s.transitionTicket(ctx, actor, id, to, "status_changed", remark, nil)
}

// CancelTicket lets the reporter withdraw a ticket that is still open.
func (s *Service) CancelTicket(ctx context.Context, actor domain.Actor, id uint, reason string) (domain.Ticket, error) {
	return s.transitionTicket(ctx, actor, id, domain.TicketCancelled, "cancelled", reason, func(t domain.Ticket) error {
		if err := authorize(actor, domain.ActionTicketCancel, ticketContext(t)); err != nil {
			return err
		}
		if t.Status != domain.TicketOpen {
			return fmt.Errorf("%w: ticket %s is %s", domain.ErrInvalidState, t.Code, t.Status)
		}
		if t.ReporterID != actor.UserID {
			return fmt.Errorf("%w: only the reporter may cancel ticket %s", domain.ErrForbidden, t.Code)
		}
		return nil
	})
}

func (s *Service) transitionTicket(ctx context.Context, actor domain.Actor, id uint, to domain.TicketStatus, action, remark string, check func(domain.Ticket) error) (domain.Ticket, error) {
	var updated domain.Ticket
	err := s.repo.Transact(ctx, func(repo domain.Repository) error {
		t, err := repo.GetTicket(ctx, id)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(t); err != nil {
				return err
			}
		}
		if err := domain.CheckTicketTransition(t.Status, to); err != nil {
			return fmt.Errorf("ticket %s: %w", t.Code, err)
		}
		from := t.Status
		t.Status = to
		if to.Completed() {
			now := s.now()
			t.CompletedAt = &now
		}
		if err := repo.UpdateTicket(ctx, t, from); err != nil {
			return err
		}
		line := fmt.Sprintf("%s -> %s", from, to)
		if r := strings.TrimSpace(remark); r != "" {
			line += ": " + r
		}
		if err := s.appendHistory(ctx, repo, domain.SubjectTicket, t.ID, action, actor, line); err != nil {
			return err
		}
		updated, err = repo.GetTicket(ctx, t.ID)
		return err
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	return updated, nil
}

// EditTicket replaces the descriptive fields of an open ticket.
func (s *Service) EditTicket(ctx context.Context, actor domain.Actor, id uint, payload domain.TicketPayload) (domain.Ticket, error) {
	var updated domain.Ticket
	err := s.repo.Transact(ctx, func(repo domain.Repository) error {
		t, err := repo.GetTicket(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(actor, domain.ActionTicketEdit, ticketContext(t)); err != nil {
			return err
		}
		if t.Status != domain.TicketOpen {
			return fmt.Errorf("%w: ticket %s is %s", domain.ErrInvalidState, t.Code, t.Status)
		}
		if payload.AssetID == 0 {
			payload.AssetID = t.AssetID
		}
		if payload.AssetID != t.AssetID {
			return fmt.Errorf("%w: the asset of a ticket cannot change", domain.ErrValidation)
		}
		next, err := payload.Validate()
		if err != nil {
			return err
		}
		t.Title = next.Title
		t.Description = next.Description
		t.Priority = next.Priority
		t.Category = next.Category
		t.Department = next.Department
		t.Location = next.Location
		t.Deadline = next.Deadline
		if next.Attachment != nil {
			if next.Attachment.Ref == "" {
				next.Attachment.Ref = uuid.NewString()
			}
			t.Attachment = next.Attachment
		}
		if err := repo.UpdateTicket(ctx, t, domain.TicketOpen); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, repo, domain.SubjectTicket, t.ID, "updated", actor, ""); err != nil {
			return err
		}
		updated, err = repo.GetTicket(ctx, t.ID)
		return err
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	return updated, nil
}

func (s *Service) AssignTicket(ctx context.Context, actor domain.Actor, id, assigneeID uint) (domain.Ticket, error) {
	if err := authorize(actor, domain.ActionTicketAssign, domain.PolicyContext{}); err != nil {
		return domain.Ticket{}, err
	}
	var updated domain.Ticket
	err := s.repo.Transact(ctx, func(repo domain.Repository) error {
		t, err := repo.GetTicket(ctx, id)
		if err != nil {
			return err
		}
		if t.Status.Terminal() {
			return fmt.Errorf("%w: ticket %s is %s", domain.ErrInvalidState, t.Code, t.Status)
		}
		assignee, err := repo.GetUserByID(ctx, assigneeID)
		if err != nil {
			return err
		}
		if !assignee.Active {
			return fmt.Errorf("%w: user %s is inactive", domain.ErrValidation, assignee.Email)
		}
		t.AssigneeID = uintPtr(assignee.ID)
		if err := repo.UpdateTicket(ctx, t, t.Status); err != nil {
			return err
		}
		if err := s.appendHistory(ctx, repo, domain.SubjectTicket, t.ID, "assigned", actor, assignee.Name); err != nil {
			return err
		}
		updated, err = repo.GetTicket(ctx, t.ID)
		return err
	})
	if err != nil {
		return domain.Ticket{}, err
	}
	s.dispatch(ctx, domain.Event{
		Type:        domain.EventTicketAssigned,
		RecipientID: assigneeID,
		SubjectType: domain.SubjectTicket,
		SubjectID:   updated.ID,
		Payload:     map[string]any{"code": updated.Code, "title": updated.Title, "priority": string(updated.Priority)},
	})
	return updated, nil
}

func (s *Service) GetTicket(ctx context.Context, actor domain.Actor, id uint) (domain.Ticket, error) {
	t, err := s.repo.GetTicket(ctx, id)
	if err != nil {
		return domain.Ticket{}, err
	}
	if err := authorize(actor, domain.ActionTicketView, ticketContext(t)); err != nil {
		return domain.Ticket{}, err
	}
	return t, nil
}

func (s *Service) ListTickets(ctx context.Context, actor domain.Actor, filter domain.TicketFilter) ([]domain.Ticket, error) {
	switch scopeFor(actor, domain.ActionTicketView) {
	case scopeAll:
	case scopeDepartment:
		filter.Department = actor.Department
	case scopeOwn:
		filter.ReporterID = uintPtr(actor.UserID)
	default:
		return nil, fmt.Errorf("%w: role %q may not list tickets", domain.ErrForbidden, actor.Role)
	}
	return s.repo.ListTickets(ctx, filter)
}
