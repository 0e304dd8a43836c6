package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Asset struct {
	ID           uint
	Tag          string
	Name         string
	Category     AssetCategory
	Status       AssetStatus
	Department   string
	Location     string
	PurchaseDate *time.Time
	PurchaseCost decimal.Decimal
	WarrantyEnd  *time.Time
	Specs        map[string]string
	RetiredAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// CostRedacted is set when PurchaseCost was blanked for the viewer.
	CostRedacted bool
}

type AssetFilter struct {
	Status     AssetStatus
	Category   AssetCategory
	Department string
	Query      string
	// HolderID limits the result to assets actively allocated to this user.
	HolderID *uint
	Limit    int
}

type MaintenanceRecord struct {
	ID         uint
	AssetID    uint
	Status     MaintenanceStatus
	Reason     string
	Resolution string
	OpenedBy   uint
	OpenedAt   *time.Time
	ClosedAt   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type AssetRequest struct {
	ID               uint
	Code             string
	RequesterID      uint
	Category         AssetCategory
	Quantity         int
	Specification    string
	Department       string
	Location         string
	RequestType      RequestType
	Status           RequestStatus
	ApprovedBy       *uint
	ApprovedAt       *time.Time
	RejectionReason  string
	ExpectedDelivery *time.Time
	FulfilledAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RequestView is an AssetRequest joined with its requester and approver.
type RequestView struct {
	AssetRequest
	RequesterName       string
	RequesterEmail      string
	RequesterDepartment string
	ApproverName        string
}

type RequestFilter struct {
	RequesterID *uint
	Department  string
	Status      RequestStatus
	Limit       int
}

type Allocation struct {
	ID                 uint
	AssetID            uint
	EmployeeID         uint
	EmployeeName       string
	EmployeeDepartment string
	RequestID          *uint
	AllocatedBy        uint
	AllocatedAt        time.Time
	ReturnedAt         *time.Time
	Status             AllocationStatus
	ConditionOut       Condition
	ConditionIn        Condition
	Notes              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// AllocationView is an Allocation joined with the asset it references.
type AllocationView struct {
	Allocation
	AssetTag      string
	AssetName     string
	AssetCategory AssetCategory
}

type AllocationFilter struct {
	AssetID    *uint
	EmployeeID *uint
	Department string
	Status     AllocationStatus
	Limit      int
}

type AllocationDetails struct {
	Condition Condition
	Notes     string
	RequestID *uint
}

type Attachment struct {
	Name        string
	ContentType string
	Size        int64
	Ref         string
}

type Ticket struct {
	ID          uint
	Code        string
	ReporterID  uint
	AssetID     uint
	Title       string
	Description string
	Priority    TicketPriority
	Category    TicketCategory
	Department  string
	Location    string
	Status      TicketStatus
	AssigneeID  *uint
	Deadline    *time.Time
	CompletedAt *time.Time
	Attachment  *Attachment
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type TicketFilter struct {
	ReporterID *uint
	AssigneeID *uint
	AssetID    *uint
	Department string
	Status     TicketStatus
	Limit      int
}

type HistoryRecord struct {
	ID          uint
	SubjectType SubjectType
	SubjectID   uint
	Action      string
	ActorID     uint
	Remark      string
	CreatedAt   time.Time
}

type HistoryFilter struct {
	SubjectType SubjectType
	SubjectID   *uint
	Limit       int
}

type User struct {
	ID           uint
	Email        string
	PasswordHash string `json:"-"`
	Name         string
	EmployeeCode string
	Department   string
	Location     string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserFilter struct {
	Query      string
	Department string
	Role       Role
	Limit      int
}

type AuthSession struct {
	ID        uint
	UserID    uint
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

type APIToken struct {
	ID        uint
	UserID    uint
	Name      string
	TokenHash string
	ExpiresAt *time.Time
	CreatedAt time.Time
}

type AuditLog struct {
	ID          uint
	ActorUserID *uint
	Action      string
	TargetType  string
	TargetID    *uint
	Metadata    string
	CreatedAt   time.Time
}

type AuditRecord struct {
	ID             uint
	ActorUserID    *uint
	ActorUserEmail string
	Action         string
	TargetType     string
	TargetID       *uint
	Metadata       string
	CreatedAt      time.Time
}

type Identity struct {
	User User
}

// Actor is the acting user for one operation.
type Actor struct {
	UserID     uint
	Role       Role
	Department string
}

func (i Identity) Actor() Actor {
	return Actor{UserID: i.User.ID, Role: i.User.Role, Department: i.User.Department}
}

type NotificationSettings struct {
	Enabled       bool
	SenderAddress string
	Events        []string
}

// Allows reports whether events of the given type should be dispatched.
// An empty event list means every event type.
func (s NotificationSettings) Allows(eventType string) bool {
	if !s.Enabled {
		return false
	}
	if len(s.Events) == 0 {
		return true
	}
	for _, e := range s.Events {
		if e == eventType {
			return true
		}
	}
	return false
}

const (
	EventRequestApproved = "request.approved"
	EventRequestRejected = "request.rejected"
	EventAssetAssigned   = "asset.assigned"
	EventTicketAssigned  = "ticket.assigned"
)

var EventTypes = []string{EventRequestApproved, EventRequestRejected, EventAssetAssigned, EventTicketAssigned}

type Event struct {
	ID          string
	Type        string
	RecipientID uint
	SubjectType SubjectType
	SubjectID   uint
	Payload     map[string]any
	CreatedAt   time.Time
}
