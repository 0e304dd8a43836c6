package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
	"gorm.io/gorm"
)

func (r *Repository) CreateAllocation(ctx context.Context, value domain.Allocation) (domain.Allocation, error) {
	m := AllocationModel{
		AssetID:            value.AssetID,
		EmployeeID:         value.EmployeeID,
		EmployeeName:       value.EmployeeName,
		EmployeeDepartment: value.EmployeeDepartment,
		RequestID:          value.RequestID,
		AllocatedBy:        value.AllocatedBy,
		AllocatedAt:        value.AllocatedAt,
		Status:             string(domain.AllocationActive),
		ConditionOut:       string(value.ConditionOut),
		Notes:              value.Notes,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.Allocation{}, translate(err)
	}
	return allocationFromModel(m), nil
}

func (r *Repository) GetAllocation(ctx context.Context, id uint) (domain.Allocation, error) {
	var m AllocationModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Allocation{}, notFound("allocation", id)
		}
		return domain.Allocation{}, translate(err)
	}
	return allocationFromModel(m), nil
}

func (r *Repository) GetActiveAllocation(ctx context.Context, assetID uint) (domain.Allocation, error) {
	var m AllocationModel
	err := r.db.WithContext(ctx).
		Where("asset_id = ? AND status = ?", assetID, string(domain.AllocationActive)).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Allocation{}, fmt.Errorf("%w: no active allocation for asset %d", domain.ErrNotFound, assetID)
		}
		return domain.Allocation{}, translate(err)
	}
	return allocationFromModel(m), nil
}

func (r *Repository) ListAllocations(ctx context.Context, filter domain.AllocationFilter) ([]domain.AllocationView, error) {
	type row struct {
		AllocationModel
		AssetTag      string
		AssetName     string
		AssetCategory string
	}

	where := make([]string, 0, 4)
	args := make([]any, 0, 5)
	if filter.AssetID != nil {
		where = append(where, "al.asset_id = ?")
		args = append(args, *filter.AssetID)
	}
	if filter.EmployeeID != nil {
		where = append(where, "al.employee_id = ?")
		args = append(args, *filter.EmployeeID)
	}
	if strings.TrimSpace(filter.Department) != "" {
		where = append(where, "lower(al.employee_department) = lower(?)")
		args = append(args, strings.TrimSpace(filter.Department))
	}
	if filter.Status != "" {
		where = append(where, "al.status = ?")
		args = append(args, string(filter.Status))
	}

	q := `
SELECT al.*,
       COALESCE(a.tag, '') AS asset_tag,
       COALESCE(a.name, '') AS asset_name,
       COALESCE(a.category, '') AS asset_category
FROM allocations al
LEFT JOIN assets a ON a.id = al.asset_id
`
	if len(where) > 0 {
		q += "WHERE " + strings.Join(where, " AND ") + "\n"
	}
	q += "ORDER BY al.id DESC\nLIMIT ?"
	args = append(args, defaultLimit(filter.Limit, 200, 2000))

	rows := make([]row, 0)
	if err := r.db.WithContext(ctx).Raw(q, args...).Scan(&rows).Error; err != nil {
		return nil, translate(err)
	}
	result := make([]domain.AllocationView, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.AllocationView{
			Allocation:    allocationFromModel(m.AllocationModel),
			AssetTag:      m.AssetTag,
			AssetName:     m.AssetName,
			AssetCategory: domain.AssetCategory(m.AssetCategory),
		})
	}
	return result, nil
}

// CloseAllocation marks an active allocation returned. A second close of the
// same allocation matches no row and reports a conflict.
func (r *Repository) CloseAllocation(ctx context.Context, id uint, condition domain.Condition, notes string, at time.Time) error {
	updates := map[string]any{
		"status":       string(domain.AllocationReturned),
		"returned_at":  at,
		"condition_in": string(condition),
		"updated_at":   at,
	}
	if strings.TrimSpace(notes) != "" {
		updates["notes"] = notes
	}
	res := r.db.WithContext(ctx).Model(&AllocationModel{}).
		Where("id = ? AND status = ?", id, string(domain.AllocationActive)).
		Updates(updates)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return lostRace("allocation", id, string(domain.AllocationActive))
	}
	return nil
}

func allocationFromModel(m AllocationModel) domain.Allocation {
	return domain.Allocation{
		ID:                 m.ID,
		AssetID:            m.AssetID,
		EmployeeID:         m.EmployeeID,
		EmployeeName:       m.EmployeeName,
		EmployeeDepartment: m.EmployeeDepartment,
		RequestID:          m.RequestID,
		AllocatedBy:        m.AllocatedBy,
		AllocatedAt:        m.AllocatedAt,
		ReturnedAt:         m.ReturnedAt,
		Status:             domain.AllocationStatus(m.Status),
		ConditionOut:       domain.Condition(m.ConditionOut),
		ConditionIn:        domain.Condition(m.ConditionIn),
		Notes:              m.Notes,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}
