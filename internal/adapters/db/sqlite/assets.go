package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func (r *Repository) CreateAsset(ctx context.Context, value domain.Asset) (domain.Asset, error) {
	m := AssetModel{
		Tag:          value.Tag,
		Name:         value.Name,
		Category:     string(value.Category),
		Status:       string(value.Status),
		Department:   value.Department,
		Location:     value.Location,
		PurchaseDate: value.PurchaseDate,
		PurchaseCost: value.PurchaseCost,
		WarrantyEnd:  value.WarrantyEnd,
		Specs:        toJSONMap(value.Specs),
	}
	if m.Status == "" {
		m.Status = string(domain.AssetAvailable)
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Asset{}, translate(err)
	}
	return assetFromModel(m), nil
}

func (r *Repository) GetAsset(ctx context.Context, id uint) (domain.Asset, error) {
	var m AssetModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Asset{}, notFound("asset", id)
		}
		return domain.Asset{}, translate(err)
	}
	return assetFromModel(m), nil
}

func (r *Repository) GetAssetByTag(ctx context.Context, tag string) (domain.Asset, error) {
	var m AssetModel
	if err := r.db.WithContext(ctx).Where("tag = ?", strings.ToUpper(strings.TrimSpace(tag))).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Asset{}, fmt.Errorf("%w: asset tag %q", domain.ErrNotFound, tag)
		}
		return domain.Asset{}, translate(err)
	}
	return assetFromModel(m), nil
}

func (r *Repository) ListAssets(ctx context.Context, filter domain.AssetFilter) ([]domain.Asset, error) {
	q := r.db.WithContext(ctx).Model(&AssetModel{})
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Category != "" {
		q = q.Where("category = ?", string(filter.Category))
	}
	if strings.TrimSpace(filter.Department) != "" {
		q = q.Where("lower(department) = lower(?)", strings.TrimSpace(filter.Department))
	}
	if strings.TrimSpace(filter.Query) != "" {
		like := likePattern(filter.Query)
		q = q.Where("(name LIKE ? OR tag LIKE ? OR location LIKE ?)", like, like, like)
	}
	if filter.HolderID != nil {
		q = q.Where("id IN (SELECT asset_id FROM allocations WHERE employee_id = ? AND status = ?)", *filter.HolderID, string(domain.AllocationActive))
	}

	rows := make([]AssetModel, 0)
	if err := q.Order("id DESC").Limit(defaultLimit(filter.Limit, 200, 5000)).Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	result := make([]domain.Asset, 0, len(rows))
	for _, m := range rows {
		result = append(result, assetFromModel(m))
	}
	return result, nil
}

// SetAssetStatus moves the asset from one status to another only if it is
// still in the expected status.
func (r *Repository) SetAssetStatus(ctx context.Context, id uint, from, to domain.AssetStatus, at time.Time) error {
	updates := map[string]any{"status": string(to), "updated_at": at}
	if to == domain.AssetRetired {
		updates["retired_at"] = at
	}
	res := r.db.WithContext(ctx).Model(&AssetModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return lostRace("asset", id, string(from))
	}
	return nil
}

func (r *Repository) CreateMaintenance(ctx context.Context, value domain.MaintenanceRecord) (domain.MaintenanceRecord, error) {
	m := MaintenanceModel{
		AssetID:  value.AssetID,
		Status:   string(value.Status),
		Reason:   value.Reason,
		OpenedBy: value.OpenedBy,
		OpenedAt: value.OpenedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.MaintenanceRecord{}, translate(err)
	}
	return maintenanceFromModel(m), nil
}

// GetPendingMaintenance returns the queued or open record of an asset.
func (r *Repository) GetPendingMaintenance(ctx context.Context, assetID uint) (domain.MaintenanceRecord, error) {
	var m MaintenanceModel
	err := r.db.WithContext(ctx).
		Where("asset_id = ? AND status <> ?", assetID, string(domain.MaintenanceClosed)).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.MaintenanceRecord{}, fmt.Errorf("%w: no pending maintenance for asset %d", domain.ErrNotFound, assetID)
		}
		return domain.MaintenanceRecord{}, translate(err)
	}
	return maintenanceFromModel(m), nil
}

func (r *Repository) SetMaintenanceStatus(ctx context.Context, id uint, from, to domain.MaintenanceStatus, resolution string, at time.Time) error {
	updates := map[string]any{"status": string(to), "updated_at": at}
	switch to {
	case domain.MaintenanceOpen:
		updates["opened_at"] = at
	case domain.MaintenanceClosed:
		updates["closed_at"] = at
		updates["resolution"] = resolution
	}
	res := r.db.WithContext(ctx).Model(&MaintenanceModel{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return lostRace("maintenance record", id, string(from))
	}
	return nil
}

func (r *Repository) ListMaintenance(ctx context.Context, assetID uint, limit int) ([]domain.MaintenanceRecord, error) {
	q := r.db.WithContext(ctx).Model(&MaintenanceModel{})
	if assetID != 0 {
		q = q.Where("asset_id = ?", assetID)
	}
	rows := make([]MaintenanceModel, 0)
	if err := q.Order("id DESC").Limit(defaultLimit(limit, 100, 1000)).Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	result := make([]domain.MaintenanceRecord, 0, len(rows))
	for _, m := range rows {
		result = append(result, maintenanceFromModel(m))
	}
	return result, nil
}

func assetFromModel(m AssetModel) domain.Asset {
	return domain.Asset{
		ID:           m.ID,
		Tag:          m.Tag,
		Name:         m.Name,
		Category:     domain.AssetCategory(m.Category),
		Status:       domain.AssetStatus(m.Status),
		Department:   m.Department,
		Location:     m.Location,
		PurchaseDate: m.PurchaseDate,
		PurchaseCost: m.PurchaseCost,
		WarrantyEnd:  m.WarrantyEnd,
		Specs:        fromJSONMap(m.Specs),
		RetiredAt:    m.RetiredAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func maintenanceFromModel(m MaintenanceModel) domain.MaintenanceRecord {
	return domain.MaintenanceRecord{
		ID:         m.ID,
		AssetID:    m.AssetID,
		Status:     domain.MaintenanceStatus(m.Status),
		Reason:     m.Reason,
		Resolution: m.Resolution,
		OpenedBy:   m.OpenedBy,
		OpenedAt:   m.OpenedAt,
		ClosedAt:   m.ClosedAt,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func toJSONMap(specs map[string]string) datatypes.JSONMap {
	out := make(datatypes.JSONMap, len(specs))
	for k, v := range specs {
		out[k] = v
	}
	return out
}

func fromJSONMap(specs datatypes.JSONMap) map[string]string {
	out := make(map[string]string, len(specs))
	for k, v := range specs {
		out[k] = fmt.Sprint(v)
	}
	return out
}
