package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (r *Repository) CreateUser(ctx context.Context, value domain.User) (domain.User, error) {
	m := UserModel{
		Email:        strings.ToLower(strings.TrimSpace(value.Email)),
		PasswordHash: value.PasswordHash,
		Name:         value.Name,
		EmployeeCode: value.EmployeeCode,
		Department:   value.Department,
		Location:     value.Location,
		Role:         string(value.Role),
		Active:       true,
	}
	if m.Role == "" {
		m.Role = string(domain.RoleUser)
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.User{}, translate(err)
	}
	return userFromModel(m), nil
}

func (r *Repository) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&UserModel{}).Count(&count).Error; err != nil {
		return 0, translate(err)
	}
	return count, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var m UserModel
	err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, fmt.Errorf("%w: user %q", domain.ErrNotFound, email)
		}
		return domain.User{}, translate(err)
	}
	return userFromModel(m), nil
}

func (r *Repository) GetUserByID(ctx context.Context, id uint) (domain.User, error) {
	var m UserModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, notFound("user", id)
		}
		return domain.User{}, translate(err)
	}
	return userFromModel(m), nil
}

func (r *Repository) ListUsers(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	q := r.db.WithContext(ctx).Model(&UserModel{})
	if strings.TrimSpace(filter.Query) != "" {
		like := likePattern(filter.Query)
		q = q.Where("(email LIKE ? OR name LIKE ? OR employee_code LIKE ?)", like, like, like)
	}
	if strings.TrimSpace(filter.Department) != "" {
		q = q.Where("lower(department) = lower(?)", strings.TrimSpace(filter.Department))
	}
	if filter.Role != "" {
		q = q.Where("role = ?", string(filter.Role))
	}
	rows := make([]UserModel, 0)
	if err := q.Order("id DESC").Limit(defaultLimit(filter.Limit, 200, 5000)).Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	result := make([]domain.User, 0, len(rows))
	for _, m := range rows {
		result = append(result, userFromModel(m))
	}
	return result, nil
}

// UpdateUserRole sets role and department together. A second active head for
// the same department trips the partial unique index and reports a conflict.
func (r *Repository) UpdateUserRole(ctx context.Context, id uint, role domain.Role, department string) error {
	res := r.db.WithContext(ctx).Model(&UserModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"role":       string(role),
			"department": department,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("user", id)
	}
	return nil
}

func (r *Repository) FindDepartmentHead(ctx context.Context, department string) (domain.User, error) {
	var m UserModel
	err := r.db.WithContext(ctx).
		Where("role = ? AND active = ? AND lower(department) = lower(?)", string(domain.RoleDepartmentHead), true, strings.TrimSpace(department)).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, fmt.Errorf("%w: no head for department %q", domain.ErrNotFound, department)
		}
		return domain.User{}, translate(err)
	}
	return userFromModel(m), nil
}

func (r *Repository) CreateSession(ctx context.Context, value domain.AuthSession) (domain.AuthSession, error) {
	m := SessionModel{UserID: value.UserID, TokenHash: value.TokenHash, ExpiresAt: value.ExpiresAt}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.AuthSession{}, translate(err)
	}
	return domain.AuthSession{ID: m.ID, UserID: m.UserID, TokenHash: m.TokenHash, ExpiresAt: m.ExpiresAt, CreatedAt: m.CreatedAt}, nil
}

func (r *Repository) GetSessionByTokenHash(ctx context.Context, tokenHash string) (domain.AuthSession, error) {
	var m SessionModel
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&m).Error; err != nil {
		return domain.AuthSession{}, translate(err)
	}
	return domain.AuthSession{ID: m.ID, UserID: m.UserID, TokenHash: m.TokenHash, ExpiresAt: m.ExpiresAt, CreatedAt: m.CreatedAt}, nil
}

func (r *Repository) DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error {
	return translate(r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).Delete(&SessionModel{}).Error)
}

func (r *Repository) CreateAPIToken(ctx context.Context, value domain.APIToken) (domain.APIToken, error) {
	m := APITokenModel{UserID: value.UserID, Name: value.Name, TokenHash: value.TokenHash, ExpiresAt: value.ExpiresAt}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return domain.APIToken{}, translate(err)
	}
	return domain.APIToken{ID: m.ID, UserID: m.UserID, Name: m.Name, TokenHash: m.TokenHash, ExpiresAt: m.ExpiresAt, CreatedAt: m.CreatedAt}, nil
}

func (r *Repository) GetAPITokenByTokenHash(ctx context.Context, tokenHash string) (domain.APIToken, error) {
	var m APITokenModel
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&m).Error; err != nil {
		return domain.APIToken{}, translate(err)
	}
	return domain.APIToken{ID: m.ID, UserID: m.UserID, Name: m.Name, TokenHash: m.TokenHash, ExpiresAt: m.ExpiresAt, CreatedAt: m.CreatedAt}, nil
}

func (r *Repository) CreateAuditLog(ctx context.Context, value domain.AuditLog) error {
	m := AuditLogModel{ActorUserID: value.ActorUserID, Action: value.Action, TargetType: value.TargetType, TargetID: value.TargetID, Metadata: value.Metadata}
	return translate(r.db.WithContext(ctx).Create(&m).Error)
}

func (r *Repository) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditRecord, error) {
	type row struct {
		ID             uint
		ActorUserID    *uint
		ActorUserEmail string
		Action         string
		TargetType     string
		TargetID       *uint
		Metadata       string
		CreatedAt      time.Time
	}
	rows := make([]row, 0)
	err := r.db.WithContext(ctx).Raw(`
SELECT a.id,
       a.actor_user_id,
       COALESCE(u.email, '') AS actor_user_email,
       a.action,
       a.target_type,
       a.target_id,
       COALESCE(a.metadata, '') AS metadata,
       a.created_at
FROM audit_logs a
LEFT JOIN users u ON u.id = a.actor_user_id
ORDER BY a.id DESC
LIMIT ?
`, defaultLimit(limit, 100, 1000)).Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	result := make([]domain.AuditRecord, 0, len(rows))
	for _, m := range rows {
		result = append(result, domain.AuditRecord{
			ID:             m.ID,
			ActorUserID:    m.ActorUserID,
			ActorUserEmail: m.ActorUserEmail,
			Action:         m.Action,
			TargetType:     m.TargetType,
			TargetID:       m.TargetID,
			Metadata:       m.Metadata,
			CreatedAt:      m.CreatedAt,
		})
	}
	return result, nil
}

// GetSettings returns every setting whose key starts with prefix.
func (r *Repository) GetSettings(ctx context.Context, prefix string) (map[string]string, error) {
	rows := make([]SettingModel, 0)
	if err := r.db.WithContext(ctx).Where("key LIKE ?", prefix+"%").Find(&rows).Error; err != nil {
		return nil, translate(err)
	}
	out := make(map[string]string, len(rows))
	for _, m := range rows {
		out[m.Key] = m.Value
	}
	return out, nil
}

func (r *Repository) PutSetting(ctx context.Context, key, value string) error {
	m := SettingModel{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&m).Error
	return translate(err)
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Name:         m.Name,
		EmployeeCode: m.EmployeeCode,
		Department:   m.Department,
		Location:     m.Location,
		Role:         domain.Role(m.Role),
		Active:       m.Active,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
