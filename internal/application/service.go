package application

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// Service implements every use case of the asset management core. Each
// mutating method checks the policy, re-validates state inside one
// transaction, appends history and notifies only after commit.
type Service struct {
	repo     domain.Store
	notifier domain.Notifier
	now      func() time.Time
}

type Option func(*Service)

func WithNotifier(n domain.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(repo domain.Store, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		notifier: discardNotifier{},
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, domain.Event) error { return nil }

func authorize(actor domain.Actor, action domain.Action, pc domain.PolicyContext) error {
	if domain.Can(actor, action, pc) {
		return nil
	}
	return fmt.Errorf("%w: role %q may not %s", domain.ErrForbidden, actor.Role, action)
}

// listScope is how much of a collection an actor may list.
type listScope int

const (
	scopeNone listScope = iota
	scopeAll
	scopeDepartment
	scopeOwn
)

func scopeFor(actor domain.Actor, action domain.Action) listScope {
	if actor.UserID == 0 {
		return scopeNone
	}
	switch domain.EffectFor(actor.Role, action) {
	case domain.Allow:
		return scopeAll
	case domain.AllowIfOwner:
		if actor.Role == domain.RoleDepartmentHead && strings.TrimSpace(actor.Department) != "" {
			return scopeDepartment
		}
		return scopeOwn
	default:
		return scopeNone
	}
}

func (s *Service) appendHistory(ctx context.Context, repo domain.Repository, subject domain.SubjectType, subjectID uint, action string, actor domain.Actor, remark string) error {
	_, err := repo.AppendHistory(ctx, domain.HistoryRecord{
		SubjectType: subject,
		SubjectID:   subjectID,
		Action:      action,
		ActorID:     actor.UserID,
		Remark:      remark,
		CreatedAt:   s.now(),
	})
	return err
}

// dispatch delivers events after the transition committed. Delivery failures
// are logged and never returned.
func (s *Service) dispatch(ctx context.Context, events ...domain.Event) {
	if len(events) == 0 {
		return
	}
	settings, err := s.notificationSettings(ctx)
	if err != nil {
		log.Printf("notify: load settings: %v", err)
		return
	}
	for _, ev := range events {
		if !settings.Allows(ev.Type) {
			continue
		}
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = s.now()
		}
		if err := s.notifier.Notify(ctx, ev); err != nil {
			log.Printf("notify: %s to user %d: %v", ev.Type, ev.RecipientID, err)
		}
	}
}

func (s *Service) BootstrapAdmin(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return fmt.Errorf("%w: bootstrap admin email and password are required", domain.ErrValidation)
	}

	count, err := s.repo.CountUsers(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	u, err := s.repo.CreateUser(ctx, domain.User{
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Name:         "Administrator",
		EmployeeCode: "ADMIN-0001",
		Department:   "IT",
		Role:         domain.RoleSuperAdmin,
		Active:       true,
	})
	if err != nil {
		return err
	}

	return s.repo.CreateAuditLog(ctx, domain.AuditLog{ActorUserID: &u.ID, Action: "auth.bootstrap_admin", TargetType: "user", TargetID: &u.ID, Metadata: "initial super admin created"})
}

func (s *Service) LoginWithSession(ctx context.Context, email, password string, ttl time.Duration) (domain.User, string, error) {
	u, err := s.authenticateEmailPassword(ctx, email, password)
	if err != nil {
		return domain.User{}, "", err
	}

	plain, hash, err := newTokenPair()
	if err != nil {
		return domain.User{}, "", err
	}

	_, err = s.repo.CreateSession(ctx, domain.AuthSession{
		UserID:    u.ID,
		TokenHash: hash,
		ExpiresAt: s.now().Add(ttl),
	})
	if err != nil {
		return domain.User{}, "", err
	}

	s.WriteAudit(ctx, &u.ID, "auth.login.session", "user", &u.ID, "session login")
	return u, plain, nil
}

func (s *Service) LoginWithAPIToken(ctx context.Context, email, password, tokenName string, ttl *time.Duration) (domain.User, string, error) {
	u, err := s.authenticateEmailPassword(ctx, email, password)
	if err != nil {
		return domain.User{}, "", err
	}

	plain, hash, err := newTokenPair()
	if err != nil {
		return domain.User{}, "", err
	}

	var expiresAt *time.Time
	if ttl != nil {
		t := s.now().Add(*ttl)
		expiresAt = &t
	}

	_, err = s.repo.CreateAPIToken(ctx, domain.APIToken{
		UserID:    u.ID,
		Name:      defaultString(tokenName, "cli"),
		TokenHash: hash,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return domain.User{}, "", err
	}

	s.WriteAudit(ctx, &u.ID, "auth.login.api_token", "user", &u.ID, "api token issued")
	return u, plain, nil
}

func (s *Service) AuthenticateSession(ctx context.Context, token string) (domain.Identity, error) {
	hash := hashToken(token)
	session, err := s.repo.GetSessionByTokenHash(ctx, hash)
	if err != nil {
		return domain.Identity{}, unauthenticated(err)
	}
	if session.ExpiresAt.Before(s.now()) {
		_ = s.repo.DeleteSessionByTokenHash(ctx, hash)
		return domain.Identity{}, fmt.Errorf("%w: session expired", domain.ErrUnauthenticated)
	}

	return s.identityByUserID(ctx, session.UserID)
}

func (s *Service) AuthenticateBearerToken(ctx context.Context, token string) (domain.Identity, error) {
	apit, err := s.repo.GetAPITokenByTokenHash(ctx, hashToken(token))
	if err != nil {
		return domain.Identity{}, unauthenticated(err)
	}
	if apit.ExpiresAt != nil && apit.ExpiresAt.Before(s.now()) {
		return domain.Identity{}, fmt.Errorf("%w: token expired", domain.ErrUnauthenticated)
	}

	return s.identityByUserID(ctx, apit.UserID)
}

// Authenticate accepts either a session token or an API token.
func (s *Service) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return domain.Identity{}, fmt.Errorf("%w: missing token", domain.ErrUnauthenticated)
	}
	identity, err := s.AuthenticateBearerToken(ctx, token)
	if err == nil {
		return identity, nil
	}
	if !errors.Is(err, domain.ErrUnauthenticated) {
		return domain.Identity{}, err
	}
	return s.AuthenticateSession(ctx, token)
}

func (s *Service) LogoutSession(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return s.repo.DeleteSessionByTokenHash(ctx, hashToken(token))
}

// WriteAudit records an access-layer event. Failures are logged only.
func (s *Service) WriteAudit(ctx context.Context, actorUserID *uint, action, targetType string, targetID *uint, metadata string) {
	err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ActorUserID: actorUserID,
		Action:      action,
		TargetType:  targetType,
		TargetID:    targetID,
		Metadata:    metadata,
	})
	if err != nil {
		log.Printf("audit %s: %v", action, err)
	}
}

func (s *Service) ListAuditLogs(ctx context.Context, actor domain.Actor, limit int) ([]domain.AuditRecord, error) {
	if err := authorize(actor, domain.ActionAuditView, domain.PolicyContext{}); err != nil {
		return nil, err
	}
	return s.repo.ListAuditLogs(ctx, limit)
}

func (s *Service) authenticateEmailPassword(ctx context.Context, email, password string) (domain.User, error) {
	u, err := s.repo.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthenticated)
		}
		return domain.User{}, err
	}
	if !u.Active {
		return domain.User{}, fmt.Errorf("%w: account disabled", domain.ErrUnauthenticated)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, fmt.Errorf("%w: invalid credentials", domain.ErrUnauthenticated)
	}
	return u, nil
}

func (s *Service) identityByUserID(ctx context.Context, userID uint) (domain.Identity, error) {
	u, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return domain.Identity{}, unauthenticated(err)
	}
	if !u.Active {
		return domain.Identity{}, fmt.Errorf("%w: account disabled", domain.ErrUnauthenticated)
	}
	return domain.Identity{User: u}, nil
}

// unauthenticated hides lookup misses behind the unauthenticated kind but
// lets storage outages through.
func unauthenticated(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: unknown credentials", domain.ErrUnauthenticated)
	}
	return err
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func newTokenPair() (string, string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	plain := base64.RawURLEncoding.EncodeToString(raw)
	return plain, hashToken(plain), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", sum[:])
}

func defaultString(input, fallback string) string {
	if strings.TrimSpace(input) == "" {
		return fallback
	}
	return input
}

func uintPtr(v uint) *uint {
	return &v
}
