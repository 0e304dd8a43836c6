package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
)

func allocationContext(a domain.Allocation) domain.PolicyContext {
	return domain.PolicyContext{OwnerID: a.EmployeeID, Department: a.EmployeeDepartment}
}

func assignedEvent(a domain.Allocation) domain.Event {
	return domain.Event{
		Type:        domain.EventAssetAssigned,
		RecipientID: a.EmployeeID,
		SubjectType: domain.SubjectAllocation,
		SubjectID:   a.ID,
		Payload:     map[string]any{"asset_id": a.AssetID, "condition": string(a.ConditionOut)},
	}
}

func normalizeCondition(c domain.Condition) (domain.Condition, error) {
	if strings.TrimSpace(string(c)) == "" {
		return domain.ConditionGood, nil
	}
	return domain.ParseCondition(string(c))
}

// Allocate hands an available asset to an employee. Two concurrent calls for
// the same asset cannot both succeed: the loser gets a conflict.
func (s *Service) Allocate(ctx context.Context, actor domain.Actor, assetID, employeeID uint, details domain.AllocationDetails) (domain.Allocation, error) {
	if err := authorize(actor, domain.ActionAllocationCreate, domain.PolicyContext{}); err != nil {
		return domain.Allocation{}, err
	}
	condition, err := normalizeCondition(details.Condition)
	if err != nil {
		return domain.Allocation{}, err
	}
	details.Condition = condition

	var alloc domain.Allocation
	err = s.repo.Transact(ctx, func(repo domain.Repository) error {
		asset, err := repo.GetAsset(ctx, assetID)
		if err != nil {
			return err
		}
		employee, err := repo.GetUserByID(ctx, employeeID)
		if err != nil {
			return err
		}
		alloc, err = s.allocateIn(ctx, repo, actor, asset, employee, details)
		return err
	})
	if err != nil {
		return domain.Allocation{}, err
	}
	s.dispatch(ctx, assignedEvent(alloc))
	return alloc, nil
}

// allocateIn assigns asset to employee inside the caller's transaction. The
// asset status compare-and-swap and the unique active allocation index both
// reject a concurrent second allocation.
func (s *Service) allocateIn(ctx context.Context, repo domain.Repository, actor domain.Actor, asset domain.Asset, employee domain.User, details domain.AllocationDetails) (domain.Allocation, error) {
	if !employee.Active {
		return domain.Allocation{}, fmt.Errorf("%w: employee %s is inactive", domain.ErrValidation, employee.Email)
	}
	if asset.Status != domain.AssetAvailable {
		return domain.Allocation{}, fmt.Errorf("%w: asset %s is %s", domain.ErrConflict, asset.Tag, asset.Status)
	}
	if err := s.updateStatus(ctx, repo, actor, asset, domain.AssetAssigned, "allocated to "+employee.Name); err != nil {
		return domain.Allocation{}, err
	}
	alloc, err := repo.CreateAllocation(ctx, domain.Allocation{
		AssetID:            asset.ID,
		EmployeeID:         employee.ID,
		EmployeeName:       employee.Name,
		EmployeeDepartment: employee.Department,
		RequestID:          details.RequestID,
		AllocatedBy:        actor.UserID,
		AllocatedAt:        s.now(),
		ConditionOut:       details.Condition,
		Notes:              strings.TrimSpace(details.Notes),
	})
	if err != nil {
		return domain.Allocation{}, err
	}
	remark := fmt.Sprintf("%s to %s (%s)", asset.Tag, employee.Name, alloc.ConditionOut)
	if err := s.appendHistory(ctx, repo, domain.SubjectAllocation, alloc.ID, "assigned", actor, remark); err != nil {
		return domain.Allocation{}, err
	}
	return alloc, nil
}

// ReturnAllocation closes an active allocation. The asset becomes available,
// or goes to maintenance when maintenance was queued while it was out.
func (s *Service) ReturnAllocation(ctx context.Context, actor domain.Actor, allocationID uint, condition domain.Condition, notes string) (domain.Allocation, error) {
	if err := authorize(actor, domain.ActionAllocationReturn, domain.PolicyContext{}); err != nil {
		return domain.Allocation{}, err
	}
	condition, err := normalizeCondition(condition)
	if err != nil {
		return domain.Allocation{}, err
	}

	var returned domain.Allocation
	err = s.repo.Transact(ctx, func(repo domain.Repository) error {
		alloc, err := repo.GetAllocation(ctx, allocationID)
		if err != nil {
			return err
		}
		if err := s.closeAllocation(ctx, repo, actor, alloc, condition, notes, "condition "+string(condition)); err != nil {
			return err
		}
		asset, err := repo.GetAsset(ctx, alloc.AssetID)
		if err != nil {
			return err
		}

		pending, err := repo.GetPendingMaintenance(ctx, asset.ID)
		switch {
		case err == nil && pending.Status == domain.MaintenanceQueued:
			if err := repo.SetMaintenanceStatus(ctx, pending.ID, domain.MaintenanceQueued, domain.MaintenanceOpen, "", s.now()); err != nil {
				return err
			}
			if err := s.updateStatus(ctx, repo, actor, asset, domain.AssetUnderMaintenance, pending.Reason); err != nil {
				return err
			}
		case err == nil || errors.Is(err, domain.ErrNotFound):
			if err := s.updateStatus(ctx, repo, actor, asset, domain.AssetAvailable, "returned"); err != nil {
				return err
			}
		default:
			return err
		}

		returned, err = repo.GetAllocation(ctx, alloc.ID)
		return err
	})
	if err != nil {
		return domain.Allocation{}, err
	}
	return returned, nil
}

func (s *Service) closeAllocation(ctx context.Context, repo domain.Repository, actor domain.Actor, alloc domain.Allocation, condition domain.Condition, notes, remark string) error {
	if alloc.Status != domain.AllocationActive {
		return fmt.Errorf("%w: allocation %d is %s", domain.ErrInvalidState, alloc.ID, alloc.Status)
	}
	if err := repo.CloseAllocation(ctx, alloc.ID, condition, notes, s.now()); err != nil {
		return err
	}
	return s.appendHistory(ctx, repo, domain.SubjectAllocation, alloc.ID, "returned", actor, remark)
}

// TransferAllocation moves an asset from its current holder to another
// employee. Both halves commit together or not at all.
func (s *Service) TransferAllocation(ctx context.Context, actor domain.Actor, allocationID, newEmployeeID uint, details domain.AllocationDetails) (domain.Allocation, error) {
	if err := authorize(actor, domain.ActionAllocationTransfer, domain.PolicyContext{}); err != nil {
		return domain.Allocation{}, err
	}
	condition, err := normalizeCondition(details.Condition)
	if err != nil {
		return domain.Allocation{}, err
	}
	details.Condition = condition

	var next domain.Allocation
	err = s.repo.Transact(ctx, func(repo domain.Repository) error {
		current, err := repo.GetAllocation(ctx, allocationID)
		if err != nil {
			return err
		}
		if current.EmployeeID == newEmployeeID {
			return fmt.Errorf("%w: asset is already held by employee %d", domain.ErrValidation, newEmployeeID)
		}
		employee, err := repo.GetUserByID(ctx, newEmployeeID)
		if err != nil {
			return err
		}
		if err := s.closeAllocation(ctx, repo, actor, current, condition, details.Notes, "transferred to "+employee.Name); err != nil {
			return err
		}
		asset, err := repo.GetAsset(ctx, current.AssetID)
		if err != nil {
			return err
		}
		if err := s.updateStatus(ctx, repo, actor, asset, domain.AssetAvailable, "transfer"); err != nil {
			return err
		}
		asset.Status = domain.AssetAvailable
		if details.RequestID == nil {
			details.RequestID = current.RequestID
		}
		next, err = s.allocateIn(ctx, repo, actor, asset, employee, details)
		return err
	})
	if err != nil {
		return domain.Allocation{}, err
	}
	s.dispatch(ctx, assignedEvent(next))
	return next, nil
}

func (s *Service) GetAllocation(ctx context.Context, actor domain.Actor, id uint) (domain.Allocation, error) {
	alloc, err := s.repo.GetAllocation(ctx, id)
	if err != nil {
		return domain.Allocation{}, err
	}
	if err := authorize(actor, domain.ActionAllocationView, allocationContext(alloc)); err != nil {
		return domain.Allocation{}, err
	}
	return alloc, nil
}

func (s *Service) ListAllocations(ctx context.Context, actor domain.Actor, filter domain.AllocationFilter) ([]domain.AllocationView, error) {
	switch scopeFor(actor, domain.ActionAllocationView) {
	case scopeAll:
	case scopeDepartment:
		filter.Department = actor.Department
	case scopeOwn:
		filter.EmployeeID = uintPtr(actor.UserID)
	default:
		return nil, fmt.Errorf("%w: role %q may not list allocations", domain.ErrForbidden, actor.Role)
	}
	return s.repo.ListAllocations(ctx, filter)
}
