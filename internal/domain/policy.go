package domain

import "strings"

type Action string

const (
	ActionAssetView     Action = "asset.view"
	ActionAssetCreate   Action = "asset.create"
	ActionAssetRetire   Action = "asset.retire"
	ActionAssetMaintain Action = "asset.maintain"
	ActionAssetImport   Action = "asset.import"
	ActionAssetExport   Action = "asset.export"
	ActionCostView      Action = "cost.view"

	ActionRequestView     Action = "request.view"
	ActionRequestCreate   Action = "request.create"
	ActionRequestEdit     Action = "request.edit"
	ActionRequestApprove  Action = "request.approve"
	ActionRequestReject   Action = "request.reject"
	ActionRequestDelete   Action = "request.delete"
	ActionRequestProgress Action = "request.progress"

	ActionAllocationView     Action = "allocation.view"
	ActionAllocationCreate   Action = "allocation.create"
	ActionAllocationReturn   Action = "allocation.return"
	ActionAllocationTransfer Action = "allocation.transfer"

	ActionTicketView   Action = "ticket.view"
	ActionTicketCreate Action = "ticket.create"
	ActionTicketEdit   Action = "ticket.edit"
	ActionTicketCancel Action = "ticket.cancel"
	ActionTicketAssign Action = "ticket.assign"
	ActionTicketStatus Action = "ticket.status"

	ActionHistoryView Action = "history.view"

	ActionUserView         Action = "user.view"
	ActionUserCreate       Action = "user.create"
	ActionUserImport       Action = "user.import"
	ActionUserRoleUpdate   Action = "user.role.update"
	ActionDepartmentHead   Action = "department.head.assign"
	ActionAuditView        Action = "audit.view"
	ActionSettingsView     Action = "settings.view"
	ActionSettingsNotifyUp Action = "settings.notification.update"
)

type Effect int

const (
	Deny Effect = iota
	Allow
	AllowIfOwner
)

// PolicyContext carries the ownership facts of the resource being acted on.
type PolicyContext struct {
	OwnerID    uint
	Department string
}

// Owns reports whether actor owns the resource described by ctx. Department
// heads own everything scoped to their department.
func (ctx PolicyContext) Owns(actor Actor) bool {
	if ctx.OwnerID != 0 && ctx.OwnerID == actor.UserID {
		return true
	}
	if actor.Role == RoleDepartmentHead && ctx.Department != "" {
		return strings.EqualFold(strings.TrimSpace(ctx.Department), strings.TrimSpace(actor.Department))
	}
	return false
}

var ownEmployeeRules = map[Action]Effect{
	ActionAssetView:        AllowIfOwner,
	ActionRequestView:      AllowIfOwner,
	ActionRequestCreate:    Allow,
	ActionRequestEdit:      AllowIfOwner,
	ActionRequestDelete:    AllowIfOwner,
	ActionAllocationView:   AllowIfOwner,
	ActionTicketView:       AllowIfOwner,
	ActionTicketCreate:     AllowIfOwner,
	ActionTicketEdit:       AllowIfOwner,
	ActionTicketCancel:     AllowIfOwner,
	ActionHistoryView:      AllowIfOwner,
	ActionUserView:         AllowIfOwner,
	ActionSettingsView:     Deny,
	ActionSettingsNotifyUp: Deny,
}

var policyTable = map[Role]map[Action]Effect{
	RoleUser: ownEmployeeRules,
	RoleHR: merge(ownEmployeeRules, map[Action]Effect{
		ActionAssetView:      Allow,
		ActionRequestView:    Allow,
		ActionRequestEdit:    Allow,
		ActionRequestApprove: Deny,
		ActionRequestReject:  Deny,
		ActionRequestDelete:  Deny,
		ActionAllocationView: Allow,
		ActionHistoryView:    Allow,
		ActionUserView:       Allow,
		ActionUserCreate:     Allow,
		ActionUserImport:     Allow,
	}),
	RoleDepartmentHead: merge(ownEmployeeRules, map[Action]Effect{
		ActionRequestApprove: AllowIfOwner,
		ActionRequestReject:  AllowIfOwner,
		ActionUserView:       AllowIfOwner,
	}),
	RoleFinancer: merge(ownEmployeeRules, map[Action]Effect{
		ActionAssetView:      Allow,
		ActionAssetExport:    Allow,
		ActionCostView:       Allow,
		ActionRequestView:    Allow,
		ActionAllocationView: Allow,
		ActionHistoryView:    Allow,
	}),
	RoleAdmin:      allExcept(ActionSettingsNotifyUp),
	RoleSuperAdmin: allExcept(),
}

var allActions = []Action{
	ActionAssetView, ActionAssetCreate, ActionAssetRetire, ActionAssetMaintain, ActionAssetImport, ActionAssetExport, ActionCostView,
	ActionRequestView, ActionRequestCreate, ActionRequestEdit, ActionRequestApprove, ActionRequestReject, ActionRequestDelete, ActionRequestProgress,
	ActionAllocationView, ActionAllocationCreate, ActionAllocationReturn, ActionAllocationTransfer,
	ActionTicketView, ActionTicketCreate, ActionTicketEdit, ActionTicketCancel, ActionTicketAssign, ActionTicketStatus,
	ActionHistoryView,
	ActionUserView, ActionUserCreate, ActionUserImport, ActionUserRoleUpdate, ActionDepartmentHead, ActionAuditView,
	ActionSettingsView, ActionSettingsNotifyUp,
}

// Can decides whether actor may perform action on the resource described by
// ctx. It never fails; callers must branch on the result.
func Can(actor Actor, action Action, ctx PolicyContext) bool {
	rules, ok := policyTable[actor.Role]
	if !ok || actor.UserID == 0 {
		return false
	}
	switch rules[action] {
	case Allow:
		return true
	case AllowIfOwner:
		return ctx.Owns(actor)
	default:
		return false
	}
}

// EffectFor exposes the raw table entry, mainly for listing scopes.
func EffectFor(role Role, action Action) Effect {
	return policyTable[role][action]
}

func merge(base, overrides map[Action]Effect) map[Action]Effect {
	out := make(map[Action]Effect, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

func allExcept(denied ...Action) map[Action]Effect {
	out := make(map[Action]Effect, len(allActions))
	for _, a := range allActions {
		out[a] = Allow
	}
	for _, a := range denied {
		out[a] = Deny
	}
	return out
}
