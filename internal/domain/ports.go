package domain

import (
	"context"
	"time"
)

// Repository is the persistence port. Conditional writes report a lost race
// as ErrConflict; unknown ids as ErrNotFound.
type Repository interface {
	CreateAsset(ctx context.Context, value Asset) (Asset, error)
	GetAsset(ctx context.Context, id uint) (Asset, error)
	GetAssetByTag(ctx context.Context, tag string) (Asset, error)
	ListAssets(ctx context.Context, filter AssetFilter) ([]Asset, error)
	SetAssetStatus(ctx context.Context, id uint, from, to AssetStatus, at time.Time) error

	CreateMaintenance(ctx context.Context, value MaintenanceRecord) (MaintenanceRecord, error)
	GetPendingMaintenance(ctx context.Context, assetID uint) (MaintenanceRecord, error)
	SetMaintenanceStatus(ctx context.Context, id uint, from, to MaintenanceStatus, resolution string, at time.Time) error
	ListMaintenance(ctx context.Context, assetID uint, limit int) ([]MaintenanceRecord, error)

	CreateRequest(ctx context.Context, value AssetRequest) (AssetRequest, error)
	GetRequest(ctx context.Context, id uint) (AssetRequest, error)
	GetRequestView(ctx context.Context, id uint) (RequestView, error)
	ListRequestViews(ctx context.Context, filter RequestFilter) ([]RequestView, error)
	UpdateRequest(ctx context.Context, value AssetRequest, expected RequestStatus) error
	DeleteRequest(ctx context.Context, id uint) error

	CreateAllocation(ctx context.Context, value Allocation) (Allocation, error)
	GetAllocation(ctx context.Context, id uint) (Allocation, error)
	GetActiveAllocation(ctx context.Context, assetID uint) (Allocation, error)
	ListAllocations(ctx context.Context, filter AllocationFilter) ([]AllocationView, error)
	CloseAllocation(ctx context.Context, id uint, condition Condition, notes string, at time.Time) error

	CreateTicket(ctx context.Context, value Ticket) (Ticket, error)
	GetTicket(ctx context.Context, id uint) (Ticket, error)
	ListTickets(ctx context.Context, filter TicketFilter) ([]Ticket, error)
	UpdateTicket(ctx context.Context, value Ticket, expected TicketStatus) error

	AppendHistory(ctx context.Context, value HistoryRecord) (HistoryRecord, error)
	ListHistory(ctx context.Context, filter HistoryFilter) ([]HistoryRecord, error)
	DeleteHistory(ctx context.Context, subjectType SubjectType, subjectID uint) error

	CreateUser(ctx context.Context, value User) (User, error)
	CountUsers(ctx context.Context) (int64, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id uint) (User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]User, error)
	UpdateUserRole(ctx context.Context, id uint, role Role, department string) error
	FindDepartmentHead(ctx context.Context, department string) (User, error)

	CreateSession(ctx context.Context, value AuthSession) (AuthSession, error)
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (AuthSession, error)
	DeleteSessionByTokenHash(ctx context.Context, tokenHash string) error
	CreateAPIToken(ctx context.Context, value APIToken) (APIToken, error)
	GetAPITokenByTokenHash(ctx context.Context, tokenHash string) (APIToken, error)

	CreateAuditLog(ctx context.Context, value AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]AuditRecord, error)

	GetSettings(ctx context.Context, prefix string) (map[string]string, error)
	PutSetting(ctx context.Context, key, value string) error
}

// Store is a Repository that can run a unit of work atomically. The
// repository handed to fn is bound to the transaction; if fn returns an
// error nothing it wrote is committed.
type Store interface {
	Repository
	Transact(ctx context.Context, fn func(repo Repository) error) error
}

// Notifier is a fire-and-forget sink. Errors are reported for logging only and
// never fail the transition that produced the event.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}
