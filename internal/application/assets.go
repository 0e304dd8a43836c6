package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

func (s *Service) CreateAsset(ctx context.Context, actor domain.Actor, in domain.AssetInput) (domain.Asset, error) {
	if err := authorize(actor, domain.ActionAssetCreate, domain.PolicyContext{}); err != nil {
		return domain.Asset{}, err
	}
	asset, err := in.Validate()
	if err != nil {
		return domain.Asset{}, err
	}
	return s.createAsset(ctx, actor, asset, "created")
}

func (s *Service) createAsset(ctx context.Context, actor domain.Actor, asset domain.Asset, action string) (domain.Asset, error) {
	var created domain.Asset
	err := s.repo.Transact(ctx, func(repo domain.Repository) error {
		var err error
		created, err = repo.CreateAsset(ctx, asset)
		if err != nil {
			return err
		}
		return s.appendHistory(ctx, repo, domain.SubjectAsset, created.ID, action, actor, created.Tag)
	})
	if err != nil {
		return domain.Asset{}, err
	}
	return created, nil
}

func (s *Service) GetAsset(ctx context.Context, actor domain.Actor, id uint) (domain.Asset, error) {
	asset, err := s.repo.GetAsset(ctx, id)
	if err != nil {
		return domain.Asset{}, err
	}
	pc, err := s.assetContext(ctx, s.repo, asset)
	if err != nil {
		return domain.Asset{}, err
	}
	if err := authorize(actor, domain.ActionAssetView, pc); err != nil {
		return domain.Asset{}, err
	}
	return redactCost(actor, asset), nil
}

// ListAssets returns the assets the actor may see. Purchase cost is blanked
// unless the actor may view costs.
func (s *Service) ListAssets(ctx context.Context, actor domain.Actor, filter domain.AssetFilter) ([]domain.Asset, error) {
	switch scopeFor(actor, domain.ActionAssetView) {
	case scopeAll:
	case scopeDepartment:
		filter.Department = actor.Department
	case scopeOwn:
		filter.HolderID = uintPtr(actor.UserID)
	default:
		return nil, fmt.Errorf("%w: role %q may not list assets", domain.ErrForbidden, actor.Role)
	}
	assets, err := s.repo.ListAssets(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range assets {
		assets[i] = redactCost(actor, assets[i])
	}
	return assets, nil
}

func (s *Service) RetireAsset(ctx context.Context, actor domain.Actor, id uint, reason string) (domain.Asset, error) {
	if err := authorize(actor, domain.ActionAssetRetire, domain.PolicyContext{}); err != nil {
		return domain.Asset{}, err
	}
	var retired domain.Asset
	err := s.repo.Transact(ctx, func(repo domain.Repository) error {
		asset, err := repo.GetAsset(ctx, id)
		if err != nil {
			return err
		}
		if err := s.updateStatus(ctx, repo, actor, asset, domain.AssetRetired, reason); err != nil {
			return err
		}
		// A retired asset keeps no maintenance pending against it.
		pending, err := repo.GetPendingMaintenance(ctx, asset.ID)
		switch {
		case err == nil:
			resolution := strings.TrimSpace(reason)
			if resolution == "" {
				resolution = "asset retired"
			}
			if err := repo.SetMaintenanceStatus(ctx, pending.ID, pending.Status, domain.MaintenanceClosed, resolution, s.now()); err != nil {
				return err
			}
			if err := s.appendHistory(ctx, repo, domain.SubjectAsset, asset.ID, "maintenance_closed", actor, resolution); err != nil {
				return err
			}
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		retired, err = repo.GetAsset(ctx, id)
		return err
	})
	if err != nil {
		return domain.Asset{}, err
	}
	return retired, nil
}

// updateStatus is the only path that changes a stored asset status. It runs
// inside the caller's transaction and records the change in the asset trail.
func (s *Service) updateStatus(ctx context.Context, repo domain.Repository, actor domain.Actor, asset domain.Asset, to domain.AssetStatus, reason string) error {
	if err := domain.CheckAssetTransition(asset.Status, to); err != nil {
		return fmt.Errorf("asset %s: %w", asset.Tag, err)
	}
	if err := repo.SetAssetStatus(ctx, asset.ID, asset.Status, to, s.now()); err != nil {
		return err
	}
	remark := fmt.Sprintf("%s -> %s", asset.Status, to)
	if r := strings.TrimSpace(reason); r != "" {
		remark += ": " + r
	}
	return s.appendHistory(ctx, repo, domain.SubjectAsset, asset.ID, "status_changed", actor, remark)
}

// StartMaintenance sends an available asset to maintenance right away. For an
// assigned asset the record is queued and opens when the holder returns it.
func (s *Service) StartMaintenance(ctx context.Context, actor domain.Actor, assetID uint, reason string) (domain.MaintenanceRecord, error) {
	if err := authorize(actor, domain.ActionAssetMaintain, domain.PolicyContext{}); err != nil {
		return domain.MaintenanceRecord{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.MaintenanceRecord{}, fmt.Errorf("%w: maintenance reason is required", domain.ErrValidation)
	}

	var record domain.MaintenanceRecord
	err := s.repo.Transact(ctx, func(repo domain.Repository) error {
		asset, err := repo.GetAsset(ctx, assetID)
		if err != nil {
			return err
		}
		now := s.now()
		switch asset.Status {
		case domain.AssetAvailable:
			record, err = repo.CreateMaintenance(ctx, domain.MaintenanceRecord{
				AssetID:  asset.ID,
				Status:   domain.MaintenanceOpen,
				Reason:   reason,
				OpenedBy: actor.UserID,
				OpenedAt: &now,
			})
			if err != nil {
				return err
			}
			return s.updateStatus(ctx, repo, actor, asset, domain.AssetUnderMaintenance, reason)
		case domain.AssetAssigned:
			record, err = repo.CreateMaintenance(ctx, domain.MaintenanceRecord{
				AssetID:  asset.ID,
				Status:   domain.MaintenanceQueued,
				Reason:   reason,
				OpenedBy: actor.UserID,
			})
			if err != nil {
				return err
			}
			return s.appendHistory(ctx, repo, domain.SubjectAsset, asset.ID, "maintenance_queued", actor, reason)
		default:
			return fmt.Errorf("%w: asset %s is %s", domain.ErrInvalidState, asset.Tag, asset.Status)
		}
	})
	if err != nil {
		return domain.MaintenanceRecord{}, err
	}
	return record, nil
}

// FinishMaintenance closes the pending maintenance record of an asset. An open
// record returns the asset to service, or retires it when retire is set. A
// queued record is simply withdrawn.
func (s *Service) FinishMaintenance(ctx context.Context, actor domain.Actor, assetID uint, resolution string, retire bool) (domain.MaintenanceRecord, error) {
	if err := authorize(actor, domain.ActionAssetMaintain, domain.PolicyContext{}); err != nil {
		return domain.MaintenanceRecord{}, err
	}
	if retire {
		if err := authorize(actor, domain.ActionAssetRetire, domain.PolicyContext{}); err != nil {
			return domain.MaintenanceRecord{}, err
		}
	}
	resolution = strings.TrimSpace(resolution)

	var record domain.MaintenanceRecord
	err := s.repo.Transact(ctx, func(repo domain.Repository) error {
		asset, err := repo.GetAsset(ctx, assetID)
		if err != nil {
			return err
		}
		pending, err := repo.GetPendingMaintenance(ctx, asset.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: asset %s has no pending maintenance", domain.ErrInvalidState, asset.Tag)
			}
			return err
		}
		if err := repo.SetMaintenanceStatus(ctx, pending.ID, pending.Status, domain.MaintenanceClosed, resolution, s.now()); err != nil {
			return err
		}

		if pending.Status == domain.MaintenanceQueued {
			if retire {
				return fmt.Errorf("%w: asset %s is still assigned", domain.ErrInvalidState, asset.Tag)
			}
			if err := s.appendHistory(ctx, repo, domain.SubjectAsset, asset.ID, "maintenance_withdrawn", actor, resolution); err != nil {
				return err
			}
		} else {
			to := domain.AssetAvailable
			if retire {
				to = domain.AssetRetired
			}
			if err := s.updateStatus(ctx, repo, actor, asset, to, resolution); err != nil {
				return err
			}
		}

		records, err := repo.ListMaintenance(ctx, asset.ID, 1)
		if err != nil {
			return err
		}
		if len(records) > 0 {
			record = records[0]
		}
		return nil
	})
	if err != nil {
		return domain.MaintenanceRecord{}, err
	}
	return record, nil
}

func (s *Service) ListMaintenance(ctx context.Context, actor domain.Actor, assetID uint, limit int) ([]domain.MaintenanceRecord, error) {
	if !domain.Can(actor, domain.ActionAssetMaintain, domain.PolicyContext{}) && scopeFor(actor, domain.ActionAssetView) != scopeAll {
		return nil, fmt.Errorf("%w: role %q may not view maintenance", domain.ErrForbidden, actor.Role)
	}
	return s.repo.ListMaintenance(ctx, assetID, limit)
}

// assetContext describes ownership of an asset: its current holder and its
// department.
func (s *Service) assetContext(ctx context.Context, repo domain.Repository, asset domain.Asset) (domain.PolicyContext, error) {
	pc := domain.PolicyContext{Department: asset.Department}
	if asset.Status != domain.AssetAssigned {
		return pc, nil
	}
	alloc, err := repo.GetActiveAllocation(ctx, asset.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return pc, nil
		}
		return pc, err
	}
	pc.OwnerID = alloc.EmployeeID
	return pc, nil
}

func redactCost(actor domain.Actor, asset domain.Asset) domain.Asset {
	if domain.Can(actor, domain.ActionCostView, domain.PolicyContext{}) {
		return asset
	}
	asset.PurchaseCost = decimal.Zero
	asset.CostRedacted = true
	return asset
}
