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

// CreateRequest inserts the request and stamps its human readable code from
// the generated id.
func (r *Repository) CreateRequest(ctx context.Context, value domain.AssetRequest) (domain.AssetRequest, error) {
	m := RequestModel{
		RequesterID:      value.RequesterID,
		Category:         string(value.Category),
		Quantity:         value.Quantity,
		Specification:    value.Specification,
		Department:       value.Department,
		Location:         value.Location,
		RequestType:      string(value.RequestType),
		Status:           string(domain.RequestPending),
		ExpectedDelivery: value.ExpectedDelivery,
	}
	if m.RequestType == "" {
		m.RequestType = string(domain.RequestRegular)
	}
	db := r.db.WithContext(ctx)
	if err := db.Create(&m).Error; err != nil {
		return domain.AssetRequest{}, translate(err)
	}
	code := fmt.Sprintf("REQ-%06d", m.ID)
	if err := db.Model(&RequestModel{}).Where("id = ?", m.ID).Update("code", code).Error; err != nil {
		return domain.AssetRequest{}, translate(err)
	}
	m.Code = &code
	return requestFromModel(m), nil
}

func (r *Repository) GetRequest(ctx context.Context, id uint) (domain.AssetRequest, error) {
	var m RequestModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.AssetRequest{}, notFound("request", id)
		}
		return domain.AssetRequest{}, translate(err)
	}
	return requestFromModel(m), nil
}

type requestViewRow struct {
	RequestModel
	RequesterName       string
	RequesterEmail      string
	RequesterDepartment string
	ApproverName        string
}

const requestViewSelect = `
SELECT r.*,
       COALESCE(u.name, '') AS requester_name,
       COALESCE(u.email, '') AS requester_email,
       COALESCE(u.department, '') AS requester_department,
       COALESCE(a.name, '') AS approver_name
FROM asset_requests r
LEFT JOIN users u ON u.id = r.requester_id
LEFT JOIN users a ON a.id = r.approved_by
`

func (r *Repository) GetRequestView(ctx context.Context, id uint) (domain.RequestView, error) {
	rows := make([]requestViewRow, 0, 1)
	if err := r.db.WithContext(ctx).Raw(requestViewSelect+"WHERE r.id = ?", id).Scan(&rows).Error; err != nil {
		return domain.RequestView{}, translate(err)
	}
	if len(rows) == 0 {
		return domain.RequestView{}, notFound("request", id)
	}
	return rows[0].view(), nil
}

func (r *Repository) ListRequestViews(ctx context.Context, filter domain.RequestFilter) ([]domain.RequestView, error) {
	where := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if filter.RequesterID != nil {
		where = append(where, "r.requester_id = ?")
		args = append(args, *filter.RequesterID)
	}
	if strings.TrimSpace(filter.Department) != "" {
		where = append(where, "lower(r.department) = lower(?)")
		args = append(args, strings.TrimSpace(filter.Department))
	}
	if filter.Status != "" {
		where = append(where, "r.status = ?")
		args = append(args, string(filter.Status))
	}

	q := requestViewSelect
	if len(where) > 0 {
		q += "WHERE " + strings.Join(where, " AND ") + "\n"
	}
	q += "ORDER BY r.id DESC\nLIMIT ?"
	args = append(args, defaultLimit(filter.Limit, 200, 2000))

	rows := make([]requestViewRow, 0)
	if err := r.db.WithContext(ctx).Raw(q, args...).Scan(&rows).Error; err != nil {
		return nil, translate(err)
	}
	result := make([]domain.RequestView, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.view())
	}
	return result, nil
}

// UpdateRequest writes every mutable column of value, provided the stored
// request is still in the expected status.
func (r *Repository) UpdateRequest(ctx context.Context, value domain.AssetRequest, expected domain.RequestStatus) error {
	res := r.db.WithContext(ctx).Model(&RequestModel{}).
		Where("id = ? AND status = ?", value.ID, string(expected)).
		Updates(map[string]any{
			"category":          string(value.Category),
			"quantity":          value.Quantity,
			"specification":     value.Specification,
			"department":        value.Department,
			"location":          value.Location,
			"request_type":      string(value.RequestType),
			"status":            string(value.Status),
			"approved_by":       value.ApprovedBy,
			"approved_at":       value.ApprovedAt,
			"rejection_reason":  value.RejectionReason,
			"expected_delivery": value.ExpectedDelivery,
			"fulfilled_at":      value.FulfilledAt,
			"updated_at":        time.Now().UTC(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return lostRace("request", value.ID, string(expected))
	}
	return nil
}

func (r *Repository) DeleteRequest(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&RequestModel{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("request", id)
	}
	return nil
}

func (row requestViewRow) view() domain.RequestView {
	return domain.RequestView{
		AssetRequest:        requestFromModel(row.RequestModel),
		RequesterName:       row.RequesterName,
		RequesterEmail:      row.RequesterEmail,
		RequesterDepartment: row.RequesterDepartment,
		ApproverName:        row.ApproverName,
	}
}

func requestFromModel(m RequestModel) domain.AssetRequest {
	return domain.AssetRequest{
		ID:               m.ID,
		Code:             derefString(m.Code),
		RequesterID:      m.RequesterID,
		Category:         domain.AssetCategory(m.Category),
		Quantity:         m.Quantity,
		Specification:    m.Specification,
		Department:       m.Department,
		Location:         m.Location,
		RequestType:      domain.RequestType(m.RequestType),
		Status:           domain.RequestStatus(m.Status),
		ApprovedBy:       m.ApprovedBy,
		ApprovedAt:       m.ApprovedAt,
		RejectionReason:  m.RejectionReason,
		ExpectedDelivery: m.ExpectedDelivery,
		FulfilledAt:      m.FulfilledAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
