package sqlite

import (
	"context"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
)

func (r *Repository) AppendHistory(ctx context.Context, value domain.HistoryRecord) (domain.HistoryRecord, error) {
	m := HistoryModel{
		SubjectType: string(value.SubjectType),
		SubjectID:   value.SubjectID,
		Action:      value.Action,
		ActorID:     value.ActorID,
		Remark:      value.Remark,
		CreatedAt:   value.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.HistoryRecord{}, translate(err)
	}
	return historyFromModel(m), nil
}

// ListHistory returns records oldest first so a subject's trail reads in
// the order it happened.
func (r *Repository) ListHistory(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryRecord, error) {
	q := r.db.WithContext(ctx).Model(&HistoryModel{})
	if filter.SubjectType != "" {
		q = q.Where("subject_type = ?", string(filter.SubjectType))
	}
	if filter.SubjectID != nil {
		q = q.Where("subject_id = ?", *filter.SubjectID)
	}
	rows := make([]HistoryModel, 0)
	if err := q.Order("id ASC").Limit(defaultLimit(filter.Limit, 500, 5000)).Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	result := make([]domain.HistoryRecord, 0, len(rows))
	for _, m := range rows {
		result = append(result, historyFromModel(m))
	}
	return result, nil
}

// DeleteHistory removes the trail of one subject. It is only called when the
// subject itself is deleted.
func (r *Repository) DeleteHistory(ctx context.Context, subjectType domain.SubjectType, subjectID uint) error {
	err := r.db.WithContext(ctx).
		Where("subject_type = ? AND subject_id = ?", string(subjectType), subjectID).
		Delete(&HistoryModel{}).Error
	return translate(err)
}

func historyFromModel(m HistoryModel) domain.HistoryRecord {
	return domain.HistoryRecord{
		ID:          m.ID,
		SubjectType: domain.SubjectType(m.SubjectType),
		SubjectID:   m.SubjectID,
		Action:      m.Action,
		ActorID:     m.ActorID,
		Remark:      m.Remark,
		CreatedAt:   m.CreatedAt,
	}
}
