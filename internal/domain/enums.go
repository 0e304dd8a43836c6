package domain

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleUser           Role = "user"
	RoleHR             Role = "hr"
	RoleDepartmentHead Role = "department_head"
	RoleFinancer       Role = "financer"
	RoleAdmin          Role = "admin"
	RoleSuperAdmin     Role = "super_admin"
)

var Roles = []Role{RoleUser, RoleHR, RoleDepartmentHead, RoleFinancer, RoleAdmin, RoleSuperAdmin}

type AssetCategory string

const (
	CategoryLaptop   AssetCategory = "laptop"
	CategoryDesktop  AssetCategory = "desktop"
	CategoryMonitor  AssetCategory = "monitor"
	CategoryKeyboard AssetCategory = "keyboard"
	CategoryMouse    AssetCategory = "mouse"
	CategoryHeadset  AssetCategory = "headset"
	CategoryPrinter  AssetCategory = "printer"
	CategoryPhone    AssetCategory = "phone"
	CategoryTablet   AssetCategory = "tablet"
	CategoryOther    AssetCategory = "other"
)

var AssetCategories = []AssetCategory{
	CategoryLaptop, CategoryDesktop, CategoryMonitor, CategoryKeyboard, CategoryMouse,
	CategoryHeadset, CategoryPrinter, CategoryPhone, CategoryTablet, CategoryOther,
}

type AssetStatus string

const (
	AssetAvailable        AssetStatus = "available"
	AssetAssigned         AssetStatus = "assigned"
	AssetUnderMaintenance AssetStatus = "under_maintenance"
	AssetRetired          AssetStatus = "retired"
)

var AssetStatuses = []AssetStatus{AssetAvailable, AssetAssigned, AssetUnderMaintenance, AssetRetired}

type MaintenanceStatus string

const (
	MaintenanceQueued MaintenanceStatus = "queued"
	MaintenanceOpen   MaintenanceStatus = "open"
	MaintenanceClosed MaintenanceStatus = "closed"
)

type RequestType string

const (
	RequestRegular RequestType = "regular"
	RequestExpress RequestType = "express"
)

var RequestTypes = []RequestType{RequestRegular, RequestExpress}

type RequestStatus string

const (
	RequestPending    RequestStatus = "pending"
	RequestApproved   RequestStatus = "approved"
	RequestRejected   RequestStatus = "rejected"
	RequestInProgress RequestStatus = "in_progress"
	RequestFulfilled  RequestStatus = "fulfilled"
)

var RequestStatuses = []RequestStatus{RequestPending, RequestApproved, RequestRejected, RequestInProgress, RequestFulfilled}

type AllocationStatus string

const (
	AllocationActive   AllocationStatus = "active"
	AllocationReturned AllocationStatus = "returned"
)

var AllocationStatuses = []AllocationStatus{AllocationActive, AllocationReturned}

type Condition string

const (
	ConditionExcellent Condition = "excellent"
	ConditionGood      Condition = "good"
	ConditionFair      Condition = "fair"
	ConditionPoor      Condition = "poor"
)

var Conditions = []Condition{ConditionExcellent, ConditionGood, ConditionFair, ConditionPoor}

type TicketPriority string

const (
	PriorityLow      TicketPriority = "low"
	PriorityMedium   TicketPriority = "medium"
	PriorityHigh     TicketPriority = "high"
	PriorityCritical TicketPriority = "critical"
)

var TicketPriorities = []TicketPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

type TicketCategory string

const (
	IssueHardware TicketCategory = "hardware"
	IssueSoftware TicketCategory = "software"
	IssueNetwork  TicketCategory = "network"
	IssueAccess   TicketCategory = "access"
)

var TicketCategories = []TicketCategory{IssueHardware, IssueSoftware, IssueNetwork, IssueAccess}

type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketOnHold     TicketStatus = "on_hold"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
	TicketCancelled  TicketStatus = "cancelled"
)

var TicketStatuses = []TicketStatus{TicketOpen, TicketInProgress, TicketOnHold, TicketResolved, TicketClosed, TicketCancelled}

type SubjectType string

const (
	SubjectAsset      SubjectType = "asset"
	SubjectRequest    SubjectType = "request"
	SubjectAllocation SubjectType = "allocation"
	SubjectTicket     SubjectType = "ticket"
)

var SubjectTypes = []SubjectType{SubjectAsset, SubjectRequest, SubjectAllocation, SubjectTicket}

func ParseRole(raw string) (Role, error) { return parseEnum("role", raw, Roles) }

func ParseAssetCategory(raw string) (AssetCategory, error) {
	return parseEnum("category", raw, AssetCategories)
}

func ParseAssetStatus(raw string) (AssetStatus, error) {
	return parseEnum("asset status", raw, AssetStatuses)
}

func ParseRequestType(raw string) (RequestType, error) {
	if strings.TrimSpace(raw) == "" {
		return RequestRegular, nil
	}
	return parseEnum("request type", raw, RequestTypes)
}

func ParseRequestStatus(raw string) (RequestStatus, error) {
	return parseEnum("request status", raw, RequestStatuses)
}

func ParseAllocationStatus(raw string) (AllocationStatus, error) {
	return parseEnum("allocation status", raw, AllocationStatuses)
}

func ParseCondition(raw string) (Condition, error) {
	return parseEnum("condition", raw, Conditions)
}

func ParseTicketPriority(raw string) (TicketPriority, error) {
	return parseEnum("priority", raw, TicketPriorities)
}

func ParseTicketCategory(raw string) (TicketCategory, error) {
	return parseEnum("issue category", raw, TicketCategories)
}

func ParseTicketStatus(raw string) (TicketStatus, error) {
	return parseEnum("ticket status", raw, TicketStatuses)
}

func ParseSubjectType(raw string) (SubjectType, error) {
	return parseEnum("subject type", raw, SubjectTypes)
}

// parseEnum matches raw exactly (after trimming and lower-casing) against the
// closed set. Unknown values are rejected, never defaulted.
func parseEnum[T ~string](field, raw string, values []T) (T, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	for _, candidate := range values {
		if string(candidate) == v {
			return candidate, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: unknown %s %q", ErrValidation, field, raw)
}
