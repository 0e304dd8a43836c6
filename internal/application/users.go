package application

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"slices"
	"strconv"
	"strings"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
)

func (s *Service) CreateUser(ctx context.Context, actor domain.Actor, in domain.UserInput) (domain.User, error) {
	if err := authorize(actor, domain.ActionUserCreate, domain.PolicyContext{}); err != nil {
		return domain.User{}, err
	}
	return s.createUser(ctx, actor, in)
}

func (s *Service) createUser(ctx context.Context, actor domain.Actor, in domain.UserInput) (domain.User, error) {
	u, err := in.Validate()
	if err != nil {
		return domain.User{}, err
	}
	if len(in.Password) < minPasswordLength {
		return domain.User{}, fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, minPasswordLength)
	}
	if u.Role != domain.RoleUser {
		// elevated roles go through UpdateUserRole so the role rules apply
		if err := authorize(actor, domain.ActionUserRoleUpdate, domain.PolicyContext{}); err != nil {
			return domain.User{}, err
		}
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	u.PasswordHash = hash

	var created domain.User
	err = s.repo.Transact(ctx, func(repo domain.Repository) error {
		if u.Role == domain.RoleDepartmentHead {
			if err := ensureNoOtherHead(ctx, repo, u.Department, 0); err != nil {
				return err
			}
		}
		var err error
		created, err = repo.CreateUser(ctx, u)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	s.WriteAudit(ctx, uintPtr(actor.UserID), "user.create", "user", &created.ID, "role="+string(created.Role))
	return created, nil
}

func (s *Service) GetUser(ctx context.Context, actor domain.Actor, id uint) (domain.User, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if err := authorize(actor, domain.ActionUserView, domain.PolicyContext{OwnerID: u.ID, Department: u.Department}); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context, actor domain.Actor, filter domain.UserFilter) ([]domain.User, error) {
	switch scopeFor(actor, domain.ActionUserView) {
	case scopeAll:
	case scopeDepartment:
		filter.Department = actor.Department
	case scopeOwn:
		u, err := s.repo.GetUserByID(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		return []domain.User{u}, nil
	default:
		return nil, fmt.Errorf("%w: role %q may not list users", domain.ErrForbidden, actor.Role)
	}
	return s.repo.ListUsers(ctx, filter)
}

// UpdateUserRole changes a user's role and, when given, their department.
// Promoting a second active head of a department is a conflict.
func (s *Service) UpdateUserRole(ctx context.Context, actor domain.Actor, userID uint, rawRole, department string) (domain.User, error) {
	if err := authorize(actor, domain.ActionUserRoleUpdate, domain.PolicyContext{}); err != nil {
		return domain.User{}, err
	}
	role, err := domain.ParseRole(rawRole)
	if err != nil {
		return domain.User{}, err
	}
	if role == domain.RoleSuperAdmin && actor.Role != domain.RoleSuperAdmin {
		return domain.User{}, fmt.Errorf("%w: only a super admin may grant super_admin", domain.ErrForbidden)
	}
	return s.setRole(ctx, actor, userID, role, department)
}

// AssignDepartmentHead makes userID the single head of department.
func (s *Service) AssignDepartmentHead(ctx context.Context, actor domain.Actor, userID uint, department string) (domain.User, error) {
	if err := authorize(actor, domain.ActionDepartmentHead, domain.PolicyContext{}); err != nil {
		return domain.User{}, err
	}
	if strings.TrimSpace(department) == "" {
		return domain.User{}, fmt.Errorf("%w: department is required", domain.ErrValidation)
	}
	return s.setRole(ctx, actor, userID, domain.RoleDepartmentHead, department)
}

func (s *Service) setRole(ctx context.Context, actor domain.Actor, userID uint, role domain.Role, department string) (domain.User, error) {
	var updated domain.User
	err := s.repo.Transact(ctx, func(repo domain.Repository) error {
		u, err := repo.GetUserByID(ctx, userID)
		if err != nil {
			return err
		}
		if u.Role == domain.RoleSuperAdmin && actor.Role != domain.RoleSuperAdmin {
			return fmt.Errorf("%w: only a super admin may change a super admin", domain.ErrForbidden)
		}
		dept := strings.TrimSpace(department)
		if dept == "" {
			dept = u.Department
		}
		if role == domain.RoleDepartmentHead {
			if dept == "" {
				return fmt.Errorf("%w: a department head needs a department", domain.ErrValidation)
			}
			if err := ensureNoOtherHead(ctx, repo, dept, u.ID); err != nil {
				return err
			}
		}
		if err := repo.UpdateUserRole(ctx, u.ID, role, dept); err != nil {
			return err
		}
		updated, err = repo.GetUserByID(ctx, u.ID)
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	s.WriteAudit(ctx, uintPtr(actor.UserID), "user.role.update", "user", &updated.ID, fmt.Sprintf("role=%s department=%s", updated.Role, updated.Department))
	return updated, nil
}

func ensureNoOtherHead(ctx context.Context, repo domain.Repository, department string, self uint) error {
	head, err := repo.FindDepartmentHead(ctx, department)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return err
	case head.ID == self:
		return nil
	default:
		return fmt.Errorf("%w: department %q already has head %s", domain.ErrConflict, department, head.Email)
	}
}

const (
	settingNotifyEnabled = "notification.enabled"
	settingNotifySender  = "notification.sender_address"
	settingNotifyEvents  = "notification.events"
)

// NotificationSettings returns the global notification configuration.
func (s *Service) NotificationSettings(ctx context.Context, actor domain.Actor) (domain.NotificationSettings, error) {
	if err := authorize(actor, domain.ActionSettingsView, domain.PolicyContext{}); err != nil {
		return domain.NotificationSettings{}, err
	}
	return s.notificationSettings(ctx)
}

// notificationSettings defaults to enabled for every event type when nothing
// was stored yet.
func (s *Service) notificationSettings(ctx context.Context) (domain.NotificationSettings, error) {
	raw, err := s.repo.GetSettings(ctx, "notification.")
	if err != nil {
		return domain.NotificationSettings{}, err
	}
	out := domain.NotificationSettings{Enabled: true}
	if v, ok := raw[settingNotifyEnabled]; ok {
		enabled, err := strconv.ParseBool(v)
		if err == nil {
			out.Enabled = enabled
		}
	}
	out.SenderAddress = raw[settingNotifySender]
	if v := strings.TrimSpace(raw[settingNotifyEvents]); v != "" {
		out.Events = strings.Split(v, ",")
	}
	return out, nil
}

func (s *Service) UpdateNotificationSettings(ctx context.Context, actor domain.Actor, in domain.NotificationSettings) (domain.NotificationSettings, error) {
	if err := authorize(actor, domain.ActionSettingsNotifyUp, domain.PolicyContext{}); err != nil {
		return domain.NotificationSettings{}, err
	}
	sender := strings.TrimSpace(in.SenderAddress)
	if sender != "" {
		if _, err := mail.ParseAddress(sender); err != nil {
			return domain.NotificationSettings{}, fmt.Errorf("%w: sender address %q is invalid", domain.ErrValidation, sender)
		}
	}
	events := make([]string, 0, len(in.Events))
	for _, e := range in.Events {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !slices.Contains(domain.EventTypes, e) {
			return domain.NotificationSettings{}, fmt.Errorf("%w: unknown event type %q", domain.ErrValidation, e)
		}
		events = append(events, e)
	}

	err := s.repo.Transact(ctx, func(repo domain.Repository) error {
		if err := repo.PutSetting(ctx, settingNotifyEnabled, strconv.FormatBool(in.Enabled)); err != nil {
			return err
		}
		if err := repo.PutSetting(ctx, settingNotifySender, sender); err != nil {
			return err
		}
		return repo.PutSetting(ctx, settingNotifyEvents, strings.Join(events, ","))
	})
	if err != nil {
		return domain.NotificationSettings{}, err
	}
	s.WriteAudit(ctx, uintPtr(actor.UserID), "settings.notification.update", "settings", nil, fmt.Sprintf("enabled=%t events=%s", in.Enabled, strings.Join(events, ",")))
	return domain.NotificationSettings{Enabled: in.Enabled, SenderAddress: sender, Events: events}, nil
}
