package domain

import (
	"errors"
	"testing"
)

func TestTicketTransitionTable(t *testing.T) {
	allowed := map[[2]TicketStatus]bool{
		{TicketOpen, TicketInProgress}:     true,
		{TicketOpen, TicketOnHold}:         true,
		{TicketOpen, TicketCancelled}:      true,
		{TicketInProgress, TicketOnHold}:   true,
		{TicketInProgress, TicketResolved}: true,
		{TicketOnHold, TicketInProgress}:   true,
		{TicketResolved, TicketClosed}:     true,
	}
	for _, from := range TicketStatuses {
		for _, to := range TicketStatuses {
			want := allowed[[2]TicketStatus{from, to}]
			if got := from.CanTransitionTo(to); got != want {
				t.Fatalf("%s -> %s = %v, want %v", from, to, got, want)
			}
		}
	}
	for _, terminal := range []TicketStatus{TicketClosed, TicketCancelled} {
		if !terminal.Terminal() {
			t.Fatalf("%s should be terminal", terminal)
		}
		if len(terminal.AllowedTransitions()) != 0 {
			t.Fatalf("%s should have no exits", terminal)
		}
	}
}

func TestRequestTransitionTable(t *testing.T) {
	if !RequestPending.CanTransitionTo(RequestApproved) || !RequestPending.CanTransitionTo(RequestRejected) {
		t.Fatalf("pending must reach approved and rejected")
	}
	if RequestApproved.CanTransitionTo(RequestRejected) {
		t.Fatalf("approved must not be rejectable")
	}
	if RequestApproved.CanTransitionTo(RequestFulfilled) {
		t.Fatalf("approved must pass through in_progress")
	}
	for _, s := range []RequestStatus{RequestRejected, RequestFulfilled} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range RequestStatuses {
		want := s == RequestApproved || s == RequestInProgress || s == RequestFulfilled
		if s.Approved() != want {
			t.Fatalf("%s.Approved() = %v", s, s.Approved())
		}
	}
}

func TestAssetRetiredIsTerminal(t *testing.T) {
	for _, to := range AssetStatuses {
		if AssetRetired.CanTransitionTo(to) {
			t.Fatalf("retired -> %s must be invalid", to)
		}
	}
	err := CheckAssetTransition(AssetRetired, AssetAssigned)
	if !errors.Is(err, ErrInvalidTransition) || !errors.Is(err, ErrConflict) {
		t.Fatalf("expected invalid transition conflict, got %v", err)
	}
	if KindOf(err) != KindConflict {
		t.Fatalf("expected conflict kind, got %s", KindOf(err))
	}
	if err := CheckAssetTransition(AssetAssigned, AssetRetired); err == nil {
		t.Fatalf("assigned asset must be returned before retiring")
	}
}

func TestParseEnumRejectsUnknownValues(t *testing.T) {
	if _, err := ParseRole("Admin "); err != nil {
		t.Fatalf("role parsing should normalize case and space: %v", err)
	}
	if _, err := ParseRole("administrator"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if rt, err := ParseRequestType(""); err != nil || rt != RequestRegular {
		t.Fatalf("empty request type should default to regular, got %q %v", rt, err)
	}
	if _, err := ParseRequestType("urgent"); err == nil {
		t.Fatalf("urgent is not a request type")
	}
}
