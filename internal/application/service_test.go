package application

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/adapters/db/sqlite"
	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, ev domain.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	svc      *Service
	repo     *sqlite.Repository
	notifier *recordingNotifier

	superAdmin domain.Actor
	admin      domain.Actor
	hr         domain.Actor
	financer   domain.Actor
	head       domain.Actor
	alice      domain.Actor
	bob        domain.Actor
	carol      domain.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "service_test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := sqlite.RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	repo := sqlite.NewRepository(db)
	notifier := &recordingNotifier{}
	f := &fixture{svc: NewService(repo, WithNotifier(notifier)), repo: repo, notifier: notifier}

	mk := func(email, code string, role domain.Role, department string) domain.Actor {
		u, err := repo.CreateUser(ctx, domain.User{
			Email:        email,
			PasswordHash: "unused",
			Name:         email,
			EmployeeCode: code,
			Department:   department,
			Location:     "HQ",
			Role:         role,
		})
		if err != nil {
			t.Fatalf("seed user %s: %v", email, err)
		}
		return domain.Identity{User: u}.Actor()
	}
	f.superAdmin = mk("root@example.com", "E-000", domain.RoleSuperAdmin, "IT")
	f.admin = mk("admin@example.com", "E-001", domain.RoleAdmin, "IT")
	f.hr = mk("hr@example.com", "E-002", domain.RoleHR, "People")
	f.financer = mk("fin@example.com", "E-003", domain.RoleFinancer, "Finance")
	f.head = mk("head@example.com", "E-004", domain.RoleDepartmentHead, "Engineering")
	f.alice = mk("alice@example.com", "E-005", domain.RoleUser, "Engineering")
	f.bob = mk("bob@example.com", "E-006", domain.RoleUser, "Engineering")
	f.carol = mk("carol@example.com", "E-007", domain.RoleUser, "Sales")
	return f
}

func (f *fixture) asset(t *testing.T, tag string) domain.Asset {
	t.Helper()
	a, err := f.svc.CreateAsset(context.Background(), f.admin, domain.AssetInput{
		Tag:          tag,
		Name:         "ThinkPad T14",
		Category:     "laptop",
		Department:   "Engineering",
		Location:     "HQ",
		PurchaseCost: "1299.90",
	})
	if err != nil {
		t.Fatalf("create asset %s: %v", tag, err)
	}
	return a
}

func laptopRequest() domain.RequestPayload {
	return domain.RequestPayload{
		Category:      "laptop",
		Quantity:      1,
		Specification: "Need a laptop for new hire onboarding",
		Department:    "Engineering",
		Location:      "HQ",
	}
}

func wantKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()
	if got := domain.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

func TestApproveRequestThenReapproveConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	req, err := f.svc.SubmitRequest(ctx, f.alice, laptopRequest())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if req.Status != domain.RequestPending || req.Code == "" || req.RequesterEmail != "alice@example.com" {
		t.Fatalf("unexpected request %+v", req)
	}

	approved, err := f.svc.ApproveRequest(ctx, f.admin, req.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != domain.RequestApproved || approved.ApprovedBy == nil || *approved.ApprovedBy != f.admin.UserID || approved.ApprovedAt == nil {
		t.Fatalf("unexpected approved request %+v", approved)
	}

	_, err = f.svc.ApproveRequest(ctx, f.admin, req.ID)
	wantKind(t, err, domain.KindConflict)

	if got := f.notifier.types(); len(got) != 1 || got[0] != domain.EventRequestApproved {
		t.Fatalf("expected one approval notification, got %v", got)
	}
}

func TestConcurrentAllocateHasSingleWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asset := f.asset(t, "A123")

	employees := []domain.Actor{f.alice, f.bob, f.carol, f.hr, f.financer, f.head}
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for _, e := range employees {
		wg.Add(1)
		go func(employeeID uint) {
			defer wg.Done()
			_, err := f.svc.Allocate(ctx, f.admin, asset.ID, employeeID, domain.AllocationDetails{Condition: domain.ConditionGood})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, domain.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected allocate error: %v", err)
			}
		}(e.UserID)
	}
	wg.Wait()

	if wins != 1 || conflicts != len(employees)-1 {
		t.Fatalf("expected 1 win and %d conflicts, got %d and %d", len(employees)-1, wins, conflicts)
	}
	active, err := f.svc.ListAllocations(ctx, f.admin, domain.AllocationFilter{AssetID: &asset.ID, Status: domain.AllocationActive})
	if err != nil {
		t.Fatalf("list allocations: %v", err)
	}
	if len(active) != 1 {
		t.Fatalf("expected exactly one active allocation, got %d", len(active))
	}
	got, err := f.svc.GetAsset(ctx, f.admin, asset.ID)
	if err != nil {
		t.Fatalf("get asset: %v", err)
	}
	if got.Status != domain.AssetAssigned {
		t.Fatalf("expected assigned asset, got %s", got.Status)
	}
}

func TestReturnAllocationTwiceConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asset := f.asset(t, "A124")

	alloc, err := f.svc.Allocate(ctx, f.admin, asset.ID, f.alice.UserID, domain.AllocationDetails{})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	returned, err := f.svc.ReturnAllocation(ctx, f.admin, alloc.ID, domain.ConditionGood, "")
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if returned.Status != domain.AllocationReturned || returned.ReturnedAt == nil || returned.ConditionIn != domain.ConditionGood {
		t.Fatalf("unexpected returned allocation %+v", returned)
	}
	got, _ := f.svc.GetAsset(ctx, f.admin, asset.ID)
	if got.Status != domain.AssetAvailable {
		t.Fatalf("expected available asset, got %s", got.Status)
	}

	_, err = f.svc.ReturnAllocation(ctx, f.admin, alloc.ID, domain.ConditionGood, "")
	wantKind(t, err, domain.KindConflict)
}

func TestAllocateReturnReallocateHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asset := f.asset(t, "A125")

	first, err := f.svc.Allocate(ctx, f.admin, asset.ID, f.alice.UserID, domain.AllocationDetails{})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if _, err := f.svc.ReturnAllocation(ctx, f.admin, first.ID, domain.ConditionFair, "worn keys"); err != nil {
		t.Fatalf("return: %v", err)
	}
	if _, err := f.svc.Allocate(ctx, f.admin, asset.ID, f.bob.UserID, domain.AllocationDetails{}); err != nil {
		t.Fatalf("reallocate: %v", err)
	}

	active, err := f.svc.ListAllocations(ctx, f.admin, domain.AllocationFilter{AssetID: &asset.ID, Status: domain.AllocationActive})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(active) != 1 || active[0].EmployeeID != f.bob.UserID {
		t.Fatalf("expected bob to hold the asset, got %+v", active)
	}

	trail, err := f.svc.ListHistory(ctx, f.admin, domain.HistoryFilter{SubjectType: domain.SubjectAllocation})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	want := []string{"assigned", "returned", "assigned"}
	if len(trail) != len(want) {
		t.Fatalf("expected %d allocation history entries, got %d", len(want), len(trail))
	}
	for i, rec := range trail {
		if rec.Action != want[i] {
			t.Fatalf("entry %d: expected %s, got %s", i, want[i], rec.Action)
		}
	}
}

func TestTicketLifecycleAndTerminalClosed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asset := f.asset(t, "A126")
	if _, err := f.svc.Allocate(ctx, f.admin, asset.ID, f.alice.UserID, domain.AllocationDetails{}); err != nil {
		t.Fatalf("allocate: %v", err)
	}

	ticket, err := f.svc.CreateTicket(ctx, f.alice, domain.TicketPayload{
		AssetID:     asset.ID,
		Title:       "Screen flicker",
		Description: "Display flickers after wake from sleep",
		Priority:    "high",
		Category:    "hardware",
		Department:  "Engineering",
		Location:    "HQ",
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if ticket.Status != domain.TicketOpen || ticket.Code == "" {
		t.Fatalf("unexpected ticket %+v", ticket)
	}

	for _, next := range []domain.TicketStatus{domain.TicketInProgress, domain.TicketResolved, domain.TicketClosed} {
		ticket, err = f.svc.UpdateTicketStatus(ctx, f.admin, ticket.ID, next, "")
		if err != nil {
			t.Fatalf("move to %s: %v", next, err)
		}
	}
	if ticket.CompletedAt == nil {
		t.Fatalf("closed ticket must have completed_at")
	}

	_, err = f.svc.UpdateTicketStatus(ctx, f.admin, ticket.ID, domain.TicketInProgress, "")
	wantKind(t, err, domain.KindConflict)

	_, err = f.svc.UpdateTicketStatus(ctx, f.alice, ticket.ID, domain.TicketInProgress, "")
	wantKind(t, err, domain.KindForbidden)

	_, err = f.svc.UpdateTicketStatus(ctx, f.admin, ticket.ID, domain.TicketCancelled, "too late")
	wantKind(t, err, domain.KindConflict)
	_, err = f.svc.CancelTicket(ctx, f.alice, ticket.ID, "too late")
	wantKind(t, err, domain.KindConflict)
}

func TestHRCanViewAndEditButNotApprove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req, err := f.svc.SubmitRequest(ctx, f.alice, laptopRequest())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err = f.svc.ApproveRequest(ctx, f.hr, req.ID)
	wantKind(t, err, domain.KindForbidden)
	_, err = f.svc.RejectRequest(ctx, f.hr, req.ID, "no budget")
	wantKind(t, err, domain.KindForbidden)
	wantKind(t, f.svc.DeleteRequest(ctx, f.hr, req.ID), domain.KindForbidden)

	if _, err := f.svc.GetRequest(ctx, f.hr, req.ID); err != nil {
		t.Fatalf("hr view: %v", err)
	}
	payload := laptopRequest()
	payload.Quantity = 2
	edited, err := f.svc.EditRequest(ctx, f.hr, req.ID, payload)
	if err != nil {
		t.Fatalf("hr edit: %v", err)
	}
	if edited.Quantity != 2 || edited.Status != domain.RequestPending {
		t.Fatalf("unexpected edited request %+v", edited)
	}
}

func TestRejectRequiresReasonAndFreezesRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req, err := f.svc.SubmitRequest(ctx, f.alice, laptopRequest())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err = f.svc.RejectRequest(ctx, f.admin, req.ID, "   ")
	wantKind(t, err, domain.KindValidation)

	rejected, err := f.svc.RejectRequest(ctx, f.admin, req.ID, "Budget exceeded this quarter")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != domain.RequestRejected || rejected.RejectionReason != "Budget exceeded this quarter" {
		t.Fatalf("unexpected rejected request %+v", rejected)
	}

	_, err = f.svc.EditRequest(ctx, f.alice, req.ID, laptopRequest())
	wantKind(t, err, domain.KindConflict)
	_, err = f.svc.EditRequest(ctx, f.admin, req.ID, laptopRequest())
	wantKind(t, err, domain.KindConflict)
}

func TestDepartmentHeadScopedApproval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	own, err := f.svc.SubmitRequest(ctx, f.alice, laptopRequest())
	if err != nil {
		t.Fatalf("submit engineering: %v", err)
	}
	sales := laptopRequest()
	sales.Department = "Sales"
	other, err := f.svc.SubmitRequest(ctx, f.carol, sales)
	if err != nil {
		t.Fatalf("submit sales: %v", err)
	}

	if _, err := f.svc.ApproveRequest(ctx, f.head, own.ID); err != nil {
		t.Fatalf("head approves own department: %v", err)
	}
	_, err = f.svc.ApproveRequest(ctx, f.head, other.ID)
	wantKind(t, err, domain.KindForbidden)

	list, err := f.svc.ListRequests(ctx, f.head, domain.RequestFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, r := range list {
		if r.Department != "Engineering" {
			t.Fatalf("department head saw request from %s", r.Department)
		}
	}

	_, err = f.svc.AssignDepartmentHead(ctx, f.admin, f.bob.UserID, "engineering")
	wantKind(t, err, domain.KindConflict)
	if _, err := f.svc.AssignDepartmentHead(ctx, f.admin, f.carol.UserID, "Sales"); err != nil {
		t.Fatalf("assign sales head: %v", err)
	}
	_, err = f.svc.UpdateUserRole(ctx, f.hr, f.bob.UserID, "admin", "")
	wantKind(t, err, domain.KindForbidden)
}

func TestUsersSeeOnlyTheirOwnRequests(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.svc.SubmitRequest(ctx, f.alice, laptopRequest()); err != nil {
		t.Fatalf("submit alice: %v", err)
	}
	bobs, err := f.svc.SubmitRequest(ctx, f.bob, laptopRequest())
	if err != nil {
		t.Fatalf("submit bob: %v", err)
	}

	list, err := f.svc.ListRequests(ctx, f.alice, domain.RequestFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].RequesterID != f.alice.UserID {
		t.Fatalf("alice should only see her request, got %+v", list)
	}
	_, err = f.svc.GetRequest(ctx, f.alice, bobs.ID)
	wantKind(t, err, domain.KindForbidden)
	_, err = f.svc.EditRequest(ctx, f.alice, bobs.ID, laptopRequest())
	wantKind(t, err, domain.KindForbidden)
}

func TestTransferIsAtomic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asset := f.asset(t, "A127")
	alloc, err := f.svc.Allocate(ctx, f.admin, asset.ID, f.alice.UserID, domain.AllocationDetails{})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	_, err = f.svc.TransferAllocation(ctx, f.admin, alloc.ID, 9999, domain.AllocationDetails{})
	wantKind(t, err, domain.KindNotFound)
	still, err := f.svc.GetAllocation(ctx, f.admin, alloc.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if still.Status != domain.AllocationActive {
		t.Fatalf("failed transfer must leave the allocation active, got %s", still.Status)
	}

	next, err := f.svc.TransferAllocation(ctx, f.admin, alloc.ID, f.bob.UserID, domain.AllocationDetails{Condition: domain.ConditionGood})
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if next.EmployeeID != f.bob.UserID || next.Status != domain.AllocationActive {
		t.Fatalf("unexpected new allocation %+v", next)
	}
	old, _ := f.svc.GetAllocation(ctx, f.admin, alloc.ID)
	if old.Status != domain.AllocationReturned {
		t.Fatalf("old allocation should be returned, got %s", old.Status)
	}
	got, _ := f.svc.GetAsset(ctx, f.admin, asset.ID)
	if got.Status != domain.AssetAssigned {
		t.Fatalf("asset should stay assigned, got %s", got.Status)
	}
	_, err = f.svc.TransferAllocation(ctx, f.admin, alloc.ID, f.carol.UserID, domain.AllocationDetails{})
	wantKind(t, err, domain.KindConflict)
}

func TestTicketRulesForHolderAttachmentAndCancel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asset := f.asset(t, "A128")
	if _, err := f.svc.Allocate(ctx, f.admin, asset.ID, f.alice.UserID, domain.AllocationDetails{}); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	payload := domain.TicketPayload{
		AssetID:     asset.ID,
		Title:       "Battery drains",
		Description: "Battery empties within an hour",
		Category:    "hardware",
		Department:  "Engineering",
		Location:    "HQ",
	}

	_, err := f.svc.CreateTicket(ctx, f.bob, payload)
	wantKind(t, err, domain.KindForbidden)

	withImage := payload
	withImage.Attachment = &domain.Attachment{Name: "photo.png", ContentType: "image/png", Size: 100}
	_, err = f.svc.CreateTicket(ctx, f.alice, withImage)
	wantKind(t, err, domain.KindInvalidAttachment)

	withPDF := payload
	withPDF.Attachment = &domain.Attachment{Name: "diagnostics.pdf", ContentType: "application/pdf", Size: 2048}
	ticket, err := f.svc.CreateTicket(ctx, f.alice, withPDF)
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	if ticket.Attachment == nil || ticket.Attachment.Ref == "" {
		t.Fatalf("attachment should get a server side reference, got %+v", ticket.Attachment)
	}

	_, err = f.svc.CancelTicket(ctx, f.admin, ticket.ID, "")
	wantKind(t, err, domain.KindForbidden)

	edited := payload
	edited.Title = "Battery drains fast"
	if _, err := f.svc.EditTicket(ctx, f.alice, ticket.ID, edited); err != nil {
		t.Fatalf("edit open ticket: %v", err)
	}

	if _, err := f.svc.UpdateTicketStatus(ctx, f.admin, ticket.ID, domain.TicketOnHold, "waiting for parts"); err != nil {
		t.Fatalf("hold: %v", err)
	}
	_, err = f.svc.CancelTicket(ctx, f.alice, ticket.ID, "")
	wantKind(t, err, domain.KindConflict)
	_, err = f.svc.EditTicket(ctx, f.alice, ticket.ID, edited)
	wantKind(t, err, domain.KindConflict)

	second, err := f.svc.CreateTicket(ctx, f.alice, payload)
	if err != nil {
		t.Fatalf("second ticket: %v", err)
	}
	cancelled, err := f.svc.CancelTicket(ctx, f.alice, second.ID, "fixed itself")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.TicketCancelled || cancelled.CompletedAt != nil {
		t.Fatalf("unexpected cancelled ticket %+v", cancelled)
	}
	_, err = f.svc.AssignTicket(ctx, f.admin, second.ID, f.admin.UserID)
	wantKind(t, err, domain.KindConflict)
}

func TestNotificationFailureDoesNotFailTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.notifier.err = errors.New("hub offline")
	asset := f.asset(t, "A129")
	if _, err := f.svc.Allocate(ctx, f.admin, asset.ID, f.alice.UserID, domain.AllocationDetails{}); err != nil {
		t.Fatalf("allocate must succeed despite notifier failure: %v", err)
	}
	if got := f.notifier.types(); len(got) != 1 || got[0] != domain.EventAssetAssigned {
		t.Fatalf("expected an assignment notification attempt, got %v", got)
	}
}

func TestNotificationSettingsGateDelivery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.svc.UpdateNotificationSettings(ctx, f.admin, domain.NotificationSettings{Enabled: false})
	wantKind(t, err, domain.KindForbidden)

	_, err = f.svc.UpdateNotificationSettings(ctx, f.superAdmin, domain.NotificationSettings{Enabled: true, Events: []string{"ticket.exploded"}})
	wantKind(t, err, domain.KindValidation)

	settings, err := f.svc.UpdateNotificationSettings(ctx, f.superAdmin, domain.NotificationSettings{
		Enabled:       true,
		SenderAddress: "assets@example.com",
		Events:        []string{domain.EventRequestRejected},
	})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if settings.Allows(domain.EventRequestApproved) {
		t.Fatalf("approved events should be filtered out")
	}

	req, _ := f.svc.SubmitRequest(ctx, f.alice, laptopRequest())
	if _, err := f.svc.ApproveRequest(ctx, f.admin, req.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got := f.notifier.types(); len(got) != 0 {
		t.Fatalf("filtered event was delivered: %v", got)
	}

	read, err := f.svc.NotificationSettings(ctx, f.admin)
	if err != nil {
		t.Fatalf("read settings: %v", err)
	}
	if read.SenderAddress != "assets@example.com" || len(read.Events) != 1 {
		t.Fatalf("unexpected settings %+v", read)
	}
}

func TestQueuedMaintenanceOpensOnReturn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asset := f.asset(t, "A130")
	alloc, err := f.svc.Allocate(ctx, f.admin, asset.ID, f.alice.UserID, domain.AllocationDetails{})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	record, err := f.svc.StartMaintenance(ctx, f.admin, asset.ID, "fan noise")
	if err != nil {
		t.Fatalf("start maintenance: %v", err)
	}
	if record.Status != domain.MaintenanceQueued {
		t.Fatalf("expected queued maintenance, got %s", record.Status)
	}
	_, err = f.svc.StartMaintenance(ctx, f.admin, asset.ID, "again")
	wantKind(t, err, domain.KindConflict)

	if _, err := f.svc.ReturnAllocation(ctx, f.admin, alloc.ID, domain.ConditionPoor, ""); err != nil {
		t.Fatalf("return: %v", err)
	}
	got, _ := f.svc.GetAsset(ctx, f.admin, asset.ID)
	if got.Status != domain.AssetUnderMaintenance {
		t.Fatalf("expected under maintenance, got %s", got.Status)
	}
	_, err = f.svc.Allocate(ctx, f.admin, asset.ID, f.bob.UserID, domain.AllocationDetails{})
	wantKind(t, err, domain.KindConflict)

	closed, err := f.svc.FinishMaintenance(ctx, f.admin, asset.ID, "fan replaced", false)
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	if closed.Status != domain.MaintenanceClosed || closed.Resolution != "fan replaced" {
		t.Fatalf("unexpected closed record %+v", closed)
	}
	got, _ = f.svc.GetAsset(ctx, f.admin, asset.ID)
	if got.Status != domain.AssetAvailable {
		t.Fatalf("expected available after maintenance, got %s", got.Status)
	}

	if _, err := f.svc.RetireAsset(ctx, f.admin, asset.ID, "end of life"); err != nil {
		t.Fatalf("retire: %v", err)
	}
	_, err = f.svc.Allocate(ctx, f.admin, asset.ID, f.bob.UserID, domain.AllocationDetails{})
	wantKind(t, err, domain.KindConflict)
	_, err = f.svc.StartMaintenance(ctx, f.admin, asset.ID, "late")
	wantKind(t, err, domain.KindConflict)
}

func pendingMaintenance(t *testing.T, f *fixture, assetID uint) []domain.MaintenanceRecord {
	t.Helper()
	records, err := f.svc.ListMaintenance(context.Background(), f.admin, assetID, 0)
	if err != nil {
		t.Fatalf("list maintenance: %v", err)
	}
	var pending []domain.MaintenanceRecord
	for _, r := range records {
		if r.Status != domain.MaintenanceClosed {
			pending = append(pending, r)
		}
	}
	return pending
}

func TestRetireUnderMaintenanceClosesRecord(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asset := f.asset(t, "A140")

	if _, err := f.svc.StartMaintenance(ctx, f.admin, asset.ID, "cracked hinge"); err != nil {
		t.Fatalf("start maintenance: %v", err)
	}
	retired, err := f.svc.RetireAsset(ctx, f.admin, asset.ID, "beyond repair")
	if err != nil {
		t.Fatalf("retire: %v", err)
	}
	if retired.Status != domain.AssetRetired || retired.RetiredAt == nil {
		t.Fatalf("unexpected retired asset %+v", retired)
	}
	if pending := pendingMaintenance(t, f, asset.ID); len(pending) != 0 {
		t.Fatalf("retired asset still has pending maintenance %+v", pending)
	}
	records, err := f.svc.ListMaintenance(ctx, f.admin, asset.ID, 0)
	if err != nil {
		t.Fatalf("list maintenance: %v", err)
	}
	if len(records) != 1 || records[0].Resolution != "beyond repair" || records[0].ClosedAt == nil {
		t.Fatalf("unexpected maintenance records %+v", records)
	}

	_, err = f.svc.FinishMaintenance(ctx, f.admin, asset.ID, "fixed anyway", false)
	wantKind(t, err, domain.KindConflict)
	_, err = f.svc.StartMaintenance(ctx, f.admin, asset.ID, "again")
	wantKind(t, err, domain.KindConflict)
}

func TestFinishMaintenanceWithRetire(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asset := f.asset(t, "A141")

	if _, err := f.svc.StartMaintenance(ctx, f.admin, asset.ID, "battery swelling"); err != nil {
		t.Fatalf("start maintenance: %v", err)
	}
	_, err := f.svc.FinishMaintenance(ctx, f.hr, asset.ID, "scrap", true)
	wantKind(t, err, domain.KindForbidden)

	closed, err := f.svc.FinishMaintenance(ctx, f.admin, asset.ID, "scrapped", true)
	if err != nil {
		t.Fatalf("finish with retire: %v", err)
	}
	if closed.Status != domain.MaintenanceClosed || closed.Resolution != "scrapped" {
		t.Fatalf("unexpected closed record %+v", closed)
	}
	got, err := f.svc.GetAsset(ctx, f.admin, asset.ID)
	if err != nil {
		t.Fatalf("get asset: %v", err)
	}
	if got.Status != domain.AssetRetired {
		t.Fatalf("expected retired asset, got %s", got.Status)
	}
	if pending := pendingMaintenance(t, f, asset.ID); len(pending) != 0 {
		t.Fatalf("retired asset still has pending maintenance %+v", pending)
	}

	// A queued record cannot be finished into retirement while the asset is out.
	held := f.asset(t, "A142")
	if _, err := f.svc.Allocate(ctx, f.admin, held.ID, f.alice.UserID, domain.AllocationDetails{}); err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if _, err := f.svc.StartMaintenance(ctx, f.admin, held.ID, "keyboard sticky"); err != nil {
		t.Fatalf("queue maintenance: %v", err)
	}
	_, err = f.svc.FinishMaintenance(ctx, f.admin, held.ID, "scrap", true)
	wantKind(t, err, domain.KindConflict)
	if pending := pendingMaintenance(t, f, held.ID); len(pending) != 1 || pending[0].Status != domain.MaintenanceQueued {
		t.Fatalf("queued record should survive the failed retire, got %+v", pending)
	}
}

func TestFulfillRequestAllocatesToRequester(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a1 := f.asset(t, "A131")
	a2 := f.asset(t, "A132")

	req, err := f.svc.SubmitRequest(ctx, f.alice, laptopRequest())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	_, _, err = f.svc.FulfillRequest(ctx, f.admin, req.ID, []uint{a1.ID}, "")
	wantKind(t, err, domain.KindConflict)

	if _, err := f.svc.ApproveRequest(ctx, f.admin, req.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := f.svc.StartProcurement(ctx, f.admin, req.ID); err != nil {
		t.Fatalf("start procurement: %v", err)
	}

	_, _, err = f.svc.FulfillRequest(ctx, f.admin, req.ID, []uint{a1.ID, a2.ID}, "")
	wantKind(t, err, domain.KindValidation)

	view, allocs, err := f.svc.FulfillRequest(ctx, f.admin, req.ID, []uint{a1.ID}, domain.ConditionExcellent)
	if err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	if view.Status != domain.RequestFulfilled || view.FulfilledAt == nil {
		t.Fatalf("unexpected fulfilled request %+v", view)
	}
	if len(allocs) != 1 || allocs[0].EmployeeID != f.alice.UserID || allocs[0].RequestID == nil || *allocs[0].RequestID != req.ID {
		t.Fatalf("unexpected allocations %+v", allocs)
	}
	got, _ := f.svc.GetAsset(ctx, f.admin, a2.ID)
	if got.Status != domain.AssetAvailable {
		t.Fatalf("unused asset must stay available, got %s", got.Status)
	}
}

func TestDeleteRequestRemovesHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req, err := f.svc.SubmitRequest(ctx, f.alice, laptopRequest())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	wantKind(t, f.svc.DeleteRequest(ctx, f.bob, req.ID), domain.KindForbidden)
	if err := f.svc.DeleteRequest(ctx, f.alice, req.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = f.svc.GetRequest(ctx, f.admin, req.ID)
	wantKind(t, err, domain.KindNotFound)
	trail, err := f.svc.ListHistory(ctx, f.admin, domain.HistoryFilter{SubjectType: domain.SubjectRequest, SubjectID: &req.ID})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(trail) != 0 {
		t.Fatalf("expected history gone, got %d rows", len(trail))
	}
}

func TestCostVisibleOnlyWithCostAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	asset := f.asset(t, "A133")
	if _, err := f.svc.Allocate(ctx, f.admin, asset.ID, f.alice.UserID, domain.AllocationDetails{}); err != nil {
		t.Fatalf("allocate: %v", err)
	}

	mine, err := f.svc.ListAssets(ctx, f.alice, domain.AssetFilter{})
	if err != nil {
		t.Fatalf("alice list: %v", err)
	}
	if len(mine) != 1 || !mine[0].CostRedacted || !mine[0].PurchaseCost.IsZero() {
		t.Fatalf("alice should see only her asset without cost, got %+v", mine)
	}
	if others, _ := f.svc.ListAssets(ctx, f.bob, domain.AssetFilter{}); len(others) != 0 {
		t.Fatalf("bob holds nothing, got %d assets", len(others))
	}

	all, err := f.svc.ListAssets(ctx, f.financer, domain.AssetFilter{})
	if err != nil {
		t.Fatalf("financer list: %v", err)
	}
	if len(all) != 1 || all[0].CostRedacted || !all[0].PurchaseCost.Equal(decimal.RequireFromString("1299.90")) {
		t.Fatalf("financer should see cost, got %+v", all)
	}
	_, err = f.svc.CreateAsset(ctx, f.financer, domain.AssetInput{Tag: "X1", Name: "x", Category: "mouse"})
	wantKind(t, err, domain.KindForbidden)
}

func TestBootstrapAndLogin(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "auth_test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := sqlite.RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	svc := NewService(sqlite.NewRepository(db))

	if err := svc.BootstrapAdmin(ctx, "root@example.com", "correct-horse"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if err := svc.BootstrapAdmin(ctx, "other@example.com", "ignored-pass"); err != nil {
		t.Fatalf("second bootstrap should be a no-op: %v", err)
	}

	_, _, err = svc.LoginWithSession(ctx, "root@example.com", "wrong", time.Hour)
	wantKind(t, err, domain.KindUnauthenticated)

	u, token, err := svc.LoginWithSession(ctx, "ROOT@example.com", "correct-horse", time.Hour)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if u.Role != domain.RoleSuperAdmin {
		t.Fatalf("bootstrap user should be super admin, got %s", u.Role)
	}
	identity, err := svc.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if identity.User.ID != u.ID {
		t.Fatalf("unexpected identity %+v", identity)
	}
	if err := svc.LogoutSession(ctx, token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	_, err = svc.Authenticate(ctx, token)
	wantKind(t, err, domain.KindUnauthenticated)

	_, apiToken, err := svc.LoginWithAPIToken(ctx, "root@example.com", "correct-horse", "ci", nil)
	if err != nil {
		t.Fatalf("api token: %v", err)
	}
	if _, err := svc.Authenticate(ctx, apiToken); err != nil {
		t.Fatalf("authenticate api token: %v", err)
	}

	logs, err := svc.ListAuditLogs(ctx, identity.Actor(), 10)
	if err != nil {
		t.Fatalf("audit logs: %v", err)
	}
	if len(logs) < 3 {
		t.Fatalf("expected bootstrap and login audit entries, got %d", len(logs))
	}
}

func TestExpiredCredentialsRejected(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "expiry_test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := sqlite.RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	svc := NewService(sqlite.NewRepository(db), WithClock(func() time.Time { return now }))
	if err := svc.BootstrapAdmin(ctx, "root@example.com", "correct-horse"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	_, session, err := svc.LoginWithSession(ctx, "root@example.com", "correct-horse", time.Hour)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	ttl := 2 * time.Hour
	_, apiToken, err := svc.LoginWithAPIToken(ctx, "root@example.com", "correct-horse", "ci", &ttl)
	if err != nil {
		t.Fatalf("api token: %v", err)
	}

	now = now.Add(90 * time.Minute)
	_, err = svc.Authenticate(ctx, session)
	wantKind(t, err, domain.KindUnauthenticated)
	if _, err := svc.Authenticate(ctx, apiToken); err != nil {
		t.Fatalf("api token should still be valid: %v", err)
	}

	now = now.Add(time.Hour)
	_, err = svc.Authenticate(ctx, apiToken)
	wantKind(t, err, domain.KindUnauthenticated)
}

func TestImportReportsPerRow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.asset(t, "EXISTING")

	report, err := f.svc.ImportAssets(ctx, f.admin, []AssetRow{
		{Line: 2, Input: domain.AssetInput{Tag: "N-1", Name: "Dell U2720Q", Category: "monitor"}},
		{Line: 3, Input: domain.AssetInput{Tag: "N-2", Name: "Mystery", Category: "spaceship"}},
		{Line: 4, Input: domain.AssetInput{Tag: "n-1", Name: "Duplicate", Category: "monitor"}},
		{Line: 5, Input: domain.AssetInput{Tag: "existing", Name: "Clash", Category: "mouse"}},
		{Line: 6, Err: errors.New("bad date")},
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	ok, failed := report.Counts()
	if ok != 1 || failed != 4 {
		t.Fatalf("expected 1 ok and 4 failed, got %d and %d: %+v", ok, failed, report.Rows)
	}
	if report.Rows[1].Kind != string(domain.KindValidation) || report.Rows[3].Kind != string(domain.KindConflict) {
		t.Fatalf("unexpected row kinds %+v", report.Rows)
	}

	_, err = f.svc.ImportAssets(ctx, f.hr, nil)
	wantKind(t, err, domain.KindForbidden)

	users, err := f.svc.ImportUsers(ctx, f.hr, []UserRow{
		{Line: 2, Input: domain.UserInput{Email: "dan@example.com", Password: "long-enough", Name: "Dan", EmployeeCode: "E-100", Department: "Ops"}},
		{Line: 3, Input: domain.UserInput{Email: "eve@example.com", Password: "short", Name: "Eve", EmployeeCode: "E-101", Department: "Ops"}},
		{Line: 4, Input: domain.UserInput{Email: "fay@example.com", Password: "long-enough", Name: "Fay", EmployeeCode: "E-102", Department: "Ops", Role: "admin"}},
	})
	if err != nil {
		t.Fatalf("import users: %v", err)
	}
	if ok, failed := users.Counts(); ok != 1 || failed != 2 {
		t.Fatalf("expected 1 ok and 2 failed users, got %d and %d: %+v", ok, failed, users.Rows)
	}
	if users.Rows[2].Kind != string(domain.KindForbidden) {
		t.Fatalf("hr must not import elevated roles, got %+v", users.Rows[2])
	}
}
