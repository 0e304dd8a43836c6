package domain

import (
	"fmt"
	"slices"
)

var assetTransitions = map[AssetStatus][]AssetStatus{
	AssetAvailable:        {AssetAssigned, AssetUnderMaintenance, AssetRetired},
	AssetAssigned:         {AssetAvailable, AssetUnderMaintenance},
	AssetUnderMaintenance: {AssetAvailable, AssetRetired},
	AssetRetired:          {},
}

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:    {RequestApproved, RequestRejected},
	RequestApproved:   {RequestInProgress},
	RequestInProgress: {RequestFulfilled},
	RequestRejected:   {},
	RequestFulfilled:  {},
}

var ticketTransitions = map[TicketStatus][]TicketStatus{
	TicketOpen:       {TicketInProgress, TicketOnHold, TicketCancelled},
	TicketInProgress: {TicketOnHold, TicketResolved},
	TicketOnHold:     {TicketInProgress},
	TicketResolved:   {TicketClosed},
	TicketClosed:     {},
	TicketCancelled:  {},
}

func (s AssetStatus) CanTransitionTo(next AssetStatus) bool {
	return slices.Contains(assetTransitions[s], next)
}

func (s AssetStatus) Terminal() bool { return s == AssetRetired }

func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	return slices.Contains(requestTransitions[s], next)
}

func (s RequestStatus) Terminal() bool { return len(requestTransitions[s]) == 0 }

// Approved reports whether approved_by/approved_at must be set for s.
func (s RequestStatus) Approved() bool {
	return s == RequestApproved || s == RequestInProgress || s == RequestFulfilled
}

func (s TicketStatus) CanTransitionTo(next TicketStatus) bool {
	return slices.Contains(ticketTransitions[s], next)
}

func (s TicketStatus) Terminal() bool { return s == TicketClosed || s == TicketCancelled }

// Completed reports whether completed_at must be set for s.
func (s TicketStatus) Completed() bool { return s == TicketResolved || s == TicketClosed }

func (s TicketStatus) AllowedTransitions() []TicketStatus {
	return slices.Clone(ticketTransitions[s])
}

func CheckAssetTransition(from, to AssetStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: asset %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func CheckRequestTransition(from, to RequestStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: request %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func CheckTicketTransition(from, to TicketStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: ticket %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
