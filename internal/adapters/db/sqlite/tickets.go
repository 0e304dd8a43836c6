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

func (r *Repository) CreateTicket(ctx context.Context, value domain.Ticket) (domain.Ticket, error) {
	m := ticketToModel(value)
	m.ID = 0
	m.Code = nil
	if m.Status == "" {
		m.Status = string(domain.TicketOpen)
	}
	db := r.db.WithContext(ctx)
	if err := db.Create(&m).Error; err != nil {
		return domain.Ticket{}, translate(err)
	}
	code := fmt.Sprintf("TKT-%06d", m.ID)
	if err := db.Model(&TicketModel{}).Where("id = ?", m.ID).Update("code", code).Error; err != nil {
		return domain.Ticket{}, translate(err)
	}
	m.Code = &code
	return ticketFromModel(m), nil
}

func (r *Repository) GetTicket(ctx context.Context, id uint) (domain.Ticket, error) {
	var m TicketModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Ticket{}, notFound("ticket", id)
		}
		return domain.Ticket{}, translate(err)
	}
	return ticketFromModel(m), nil
}

func (r *Repository) ListTickets(ctx context.Context, filter domain.TicketFilter) ([]domain.Ticket, error) {
	q := r.db.WithContext(ctx).Model(&TicketModel{})
	if filter.ReporterID != nil {
		q = q.Where("reporter_id = ?", *filter.ReporterID)
	}
	if filter.AssigneeID != nil {
		q = q.Where("assignee_id = ?", *filter.AssigneeID)
	}
	if filter.AssetID != nil {
		q = q.Where("asset_id = ?", *filter.AssetID)
	}
	if strings.TrimSpace(filter.Department) != "" {
		q = q.Where("lower(department) = lower(?)", strings.TrimSpace(filter.Department))
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	rows := make([]TicketModel, 0)
	if err := q.Order("id DESC").Limit(defaultLimit(filter.Limit, 200, 2000)).Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	result := make([]domain.Ticket, 0, len(rows))
	for _, m := range rows {
		result = append(result, ticketFromModel(m))
	}
	return result, nil
}

// UpdateTicket writes the mutable columns of value if the stored ticket is
// still in the expected status.
func (r *Repository) UpdateTicket(ctx context.Context, value domain.Ticket, expected domain.TicketStatus) error {
	m := ticketToModel(value)
	res := r.db.WithContext(ctx).Model(&TicketModel{}).
		Where("id = ? AND status = ?", value.ID, string(expected)).
		Updates(map[string]any{
			"title":                   m.Title,
			"description":             m.Description,
			"priority":                m.Priority,
			"category":                m.Category,
			"department":              m.Department,
			"location":                m.Location,
			"status":                  m.Status,
			"assignee_id":             m.AssigneeID,
			"deadline":                m.Deadline,
			"completed_at":            m.CompletedAt,
			"attachment_name":         m.AttachmentName,
			"attachment_content_type": m.AttachmentContentType,
			"attachment_size":         m.AttachmentSize,
			"attachment_ref":          m.AttachmentRef,
			"updated_at":              time.Now().UTC(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return lostRace("ticket", value.ID, string(expected))
	}
	return nil
}

func ticketToModel(t domain.Ticket) TicketModel {
	m := TicketModel{
		ID:          t.ID,
		ReporterID:  t.ReporterID,
		AssetID:     t.AssetID,
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		Category:    string(t.Category),
		Department:  t.Department,
		Location:    t.Location,
		Status:      string(t.Status),
		AssigneeID:  t.AssigneeID,
		Deadline:    t.Deadline,
		CompletedAt: t.CompletedAt,
	}
	if t.Code != "" {
		m.Code = stringPtr(t.Code)
	}
	if t.Attachment != nil {
		m.AttachmentName = t.Attachment.Name
		m.AttachmentContentType = t.Attachment.ContentType
		m.AttachmentSize = t.Attachment.Size
		m.AttachmentRef = t.Attachment.Ref
	}
	return m
}

func ticketFromModel(m TicketModel) domain.Ticket {
	t := domain.Ticket{
		ID:          m.ID,
		Code:        derefString(m.Code),
		ReporterID:  m.ReporterID,
		AssetID:     m.AssetID,
		Title:       m.Title,
		Description: m.Description,
		Priority:    domain.TicketPriority(m.Priority),
		Category:    domain.TicketCategory(m.Category),
		Department:  m.Department,
		Location:    m.Location,
		Status:      domain.TicketStatus(m.Status),
		AssigneeID:  m.AssigneeID,
		Deadline:    m.Deadline,
		CompletedAt: m.CompletedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.AttachmentRef != "" || m.AttachmentName != "" {
		t.Attachment = &domain.Attachment{
			Name:        m.AttachmentName,
			ContentType: m.AttachmentContentType,
			Size:        m.AttachmentSize,
			Ref:         m.AttachmentRef,
		}
	}
	return t
}
