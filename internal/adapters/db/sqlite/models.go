package sqlite

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type AssetModel struct {
	ID           uint            `gorm:"primaryKey"`
	Tag          string          `gorm:"uniqueIndex;not null"`
	Name         string          `gorm:"not null"`
	Category     string          `gorm:"not null;index"`
	Status       string          `gorm:"not null;default:'available';index"`
	Department   string          `gorm:"not null;default:''"`
	Location     string          `gorm:"not null;default:''"`
	PurchaseDate *time.Time
	PurchaseCost decimal.Decimal `gorm:"type:text;not null;default:'0'"`
	WarrantyEnd  *time.Time
	Specs        datatypes.JSONMap
	RetiredAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (AssetModel) TableName() string { return "assets" }

type MaintenanceModel struct {
	ID         uint   `gorm:"primaryKey"`
	AssetID    uint   `gorm:"not null;index"`
	Status     string `gorm:"not null"`
	Reason     string `gorm:"not null"`
	Resolution string `gorm:"not null;default:''"`
	OpenedBy   uint   `gorm:"not null"`
	OpenedAt   *time.Time
	ClosedAt   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (MaintenanceModel) TableName() string { return "maintenance_records" }

type RequestModel struct {
	ID               uint    `gorm:"primaryKey"`
	Code             *string `gorm:"uniqueIndex"`
	RequesterID      uint    `gorm:"not null;index"`
	Category         string  `gorm:"not null"`
	Quantity         int     `gorm:"not null"`
	Specification    string  `gorm:"not null"`
	Department       string  `gorm:"not null;index"`
	Location         string  `gorm:"not null"`
	RequestType      string  `gorm:"not null;default:'regular'"`
	Status           string  `gorm:"not null;default:'pending';index"`
	ApprovedBy       *uint
	ApprovedAt       *time.Time
	RejectionReason  string `gorm:"not null;default:''"`
	ExpectedDelivery *time.Time
	FulfilledAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (RequestModel) TableName() string { return "asset_requests" }

type AllocationModel struct {
	ID                 uint `gorm:"primaryKey"`
	AssetID            uint `gorm:"not null;index"`
	EmployeeID         uint `gorm:"not null;index"`
	EmployeeName       string
	EmployeeDepartment string
	RequestID          *uint
	AllocatedBy        uint      `gorm:"not null"`
	AllocatedAt        time.Time `gorm:"not null"`
	ReturnedAt         *time.Time
	Status             string `gorm:"not null;default:'active'"`
	ConditionOut       string `gorm:"not null"`
	ConditionIn        string `gorm:"not null;default:''"`
	Notes              string `gorm:"not null;default:''"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (AllocationModel) TableName() string { return "allocations" }

type TicketModel struct {
	ID                    uint    `gorm:"primaryKey"`
	Code                  *string `gorm:"uniqueIndex"`
	ReporterID            uint    `gorm:"not null;index"`
	AssetID               uint    `gorm:"not null;index"`
	Title                 string  `gorm:"not null"`
	Description           string  `gorm:"not null"`
	Priority              string  `gorm:"not null"`
	Category              string  `gorm:"not null"`
	Department            string  `gorm:"not null;index"`
	Location              string  `gorm:"not null"`
	Status                string  `gorm:"not null;default:'open';index"`
	AssigneeID            *uint
	Deadline              *time.Time
	CompletedAt           *time.Time
	AttachmentName        string `gorm:"not null;default:''"`
	AttachmentContentType string `gorm:"not null;default:''"`
	AttachmentSize        int64  `gorm:"not null;default:0"`
	AttachmentRef         string `gorm:"not null;default:''"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (TicketModel) TableName() string { return "tickets" }

type HistoryModel struct {
	ID          uint   `gorm:"primaryKey"`
	SubjectType string `gorm:"not null;index:idx_history_subject"`
	SubjectID   uint   `gorm:"not null;index:idx_history_subject"`
	Action      string `gorm:"not null"`
	ActorID     uint   `gorm:"not null"`
	Remark      string `gorm:"not null;default:''"`
	CreatedAt   time.Time
}

func (HistoryModel) TableName() string { return "history_records" }

type UserModel struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"not null;uniqueIndex"`
	PasswordHash string `gorm:"not null"`
	Name         string `gorm:"not null"`
	EmployeeCode string `gorm:"not null;uniqueIndex"`
	Department   string `gorm:"not null;default:''"`
	Location     string `gorm:"not null;default:''"`
	Role         string `gorm:"not null;default:'user'"`
	Active       bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (UserModel) TableName() string { return "users" }

type SessionModel struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;index"`
	TokenHash string `gorm:"not null;uniqueIndex"`
	ExpiresAt time.Time
	CreatedAt time.Time
}

func (SessionModel) TableName() string { return "sessions" }

type APITokenModel struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;index"`
	Name      string `gorm:"not null"`
	TokenHash string `gorm:"not null;uniqueIndex"`
	ExpiresAt *time.Time
	CreatedAt time.Time
}

func (APITokenModel) TableName() string { return "api_tokens" }

type AuditLogModel struct {
	ID          uint `gorm:"primaryKey"`
	ActorUserID *uint
	Action      string `gorm:"not null;index"`
	TargetType  string `gorm:"not null;index"`
	TargetID    *uint
	Metadata    string
	CreatedAt   time.Time
}

func (AuditLogModel) TableName() string { return "audit_logs" }

type SettingModel struct {
	Key       string `gorm:"primaryKey"`
	Value     string `gorm:"not null"`
	UpdatedAt time.Time
}

func (SettingModel) TableName() string { return "settings" }
