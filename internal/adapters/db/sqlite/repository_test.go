package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "assets_test.db")

	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewRepository(db)
}

func seedUser(t *testing.T, repo *Repository, email, code string, role domain.Role, department string) domain.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), domain.User{
		Email:        email,
		PasswordHash: "x",
		Name:         email,
		EmployeeCode: code,
		Department:   department,
		Role:         role,
	})
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func seedAsset(t *testing.T, repo *Repository, tag string) domain.Asset {
	t.Helper()
	a, err := repo.CreateAsset(context.Background(), domain.Asset{
		Tag:          tag,
		Name:         "ThinkPad T14",
		Category:     domain.CategoryLaptop,
		Status:       domain.AssetAvailable,
		PurchaseCost: decimal.RequireFromString("1299.90"),
		Specs:        map[string]string{"ram": "32GB"},
	})
	if err != nil {
		t.Fatalf("create asset %s: %v", tag, err)
	}
	return a
}

func TestSchemaVersionAfterMigrations(t *testing.T) {
	repo := openTestRepo(t)
	v, err := SchemaVersion(context.Background(), repo.db)
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if v < 1 {
		t.Fatalf("expected at least one migration applied, got %d", v)
	}
}

func TestAssetRoundTripKeepsCostAndSpecs(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	a := seedAsset(t, repo, "LT-001")

	got, err := repo.GetAssetByTag(ctx, "lt-001")
	if err != nil {
		t.Fatalf("get by tag: %v", err)
	}
	if got.ID != a.ID || !got.PurchaseCost.Equal(decimal.RequireFromString("1299.9")) {
		t.Fatalf("unexpected asset %+v", got)
	}
	if got.Specs["ram"] != "32GB" {
		t.Fatalf("specs not preserved: %+v", got.Specs)
	}

	if _, err := repo.CreateAsset(ctx, domain.Asset{Tag: "LT-001", Name: "dup", Category: domain.CategoryLaptop}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate tag should conflict, got %v", err)
	}
	if _, err := repo.GetAsset(ctx, 9999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSetAssetStatusReportsLostRace(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	a := seedAsset(t, repo, "LT-002")
	now := time.Now().UTC()

	if err := repo.SetAssetStatus(ctx, a.ID, domain.AssetAvailable, domain.AssetAssigned, now); err != nil {
		t.Fatalf("first transition: %v", err)
	}
	err := repo.SetAssetStatus(ctx, a.ID, domain.AssetAvailable, domain.AssetAssigned, now)
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on stale status, got %v", err)
	}
}

func TestOneActiveAllocationPerAsset(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	a := seedAsset(t, repo, "LT-003")
	alice := seedUser(t, repo, "alice@example.com", "E-1", domain.RoleUser, "Engineering")
	bob := seedUser(t, repo, "bob@example.com", "E-2", domain.RoleUser, "Engineering")
	now := time.Now().UTC()

	first, err := repo.CreateAllocation(ctx, domain.Allocation{AssetID: a.ID, EmployeeID: alice.ID, AllocatedBy: alice.ID, AllocatedAt: now, ConditionOut: domain.ConditionGood})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	_, err = repo.CreateAllocation(ctx, domain.Allocation{AssetID: a.ID, EmployeeID: bob.ID, AllocatedBy: bob.ID, AllocatedAt: now, ConditionOut: domain.ConditionGood})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second active allocation should conflict, got %v", err)
	}

	if err := repo.CloseAllocation(ctx, first.ID, domain.ConditionFair, "scratched lid", now); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := repo.CloseAllocation(ctx, first.ID, domain.ConditionFair, "", now); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("double close should conflict, got %v", err)
	}
	if _, err := repo.CreateAllocation(ctx, domain.Allocation{AssetID: a.ID, EmployeeID: bob.ID, AllocatedBy: bob.ID, AllocatedAt: now, ConditionOut: domain.ConditionFair}); err != nil {
		t.Fatalf("allocate after return: %v", err)
	}

	views, err := repo.ListAllocations(ctx, domain.AllocationFilter{AssetID: &a.ID})
	if err != nil {
		t.Fatalf("list allocations: %v", err)
	}
	if len(views) != 2 || views[0].AssetTag != "LT-003" {
		t.Fatalf("unexpected allocation views %+v", views)
	}
}

func TestRequestInvariantsEnforcedBySchema(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	u := seedUser(t, repo, "carol@example.com", "E-3", domain.RoleUser, "Finance")

	req, err := repo.CreateRequest(ctx, domain.AssetRequest{
		RequesterID:   u.ID,
		Category:      domain.CategoryMonitor,
		Quantity:      2,
		Specification: "Two 27 inch monitors",
		Department:    "Finance",
		Location:      "HQ",
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if req.Code != "REQ-000001" || req.Status != domain.RequestPending {
		t.Fatalf("unexpected request %+v", req)
	}

	rejected := req
	rejected.Status = domain.RequestRejected
	if err := repo.UpdateRequest(ctx, rejected, domain.RequestPending); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("rejection without reason should violate check, got %v", err)
	}

	rejected.RejectionReason = "budget frozen"
	if err := repo.UpdateRequest(ctx, rejected, domain.RequestPending); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := repo.UpdateRequest(ctx, rejected, domain.RequestPending); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("stale expected status should conflict, got %v", err)
	}

	view, err := repo.GetRequestView(ctx, req.ID)
	if err != nil {
		t.Fatalf("get view: %v", err)
	}
	if view.RequesterEmail != "carol@example.com" || view.RejectionReason != "budget frozen" {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestDeleteRequestDetachesAllocations(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	u := seedUser(t, repo, "dave@example.com", "E-4", domain.RoleUser, "Ops")
	a := seedAsset(t, repo, "LT-004")

	req, err := repo.CreateRequest(ctx, domain.AssetRequest{RequesterID: u.ID, Category: domain.CategoryLaptop, Quantity: 1, Specification: "Laptop for field work", Department: "Ops", Location: "Depot"})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	alloc, err := repo.CreateAllocation(ctx, domain.Allocation{AssetID: a.ID, EmployeeID: u.ID, RequestID: &req.ID, AllocatedBy: u.ID, AllocatedAt: time.Now().UTC(), ConditionOut: domain.ConditionExcellent})
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if _, err := repo.AppendHistory(ctx, domain.HistoryRecord{SubjectType: domain.SubjectRequest, SubjectID: req.ID, Action: "created", ActorID: u.ID}); err != nil {
		t.Fatalf("append history: %v", err)
	}

	err = repo.Transact(ctx, func(tx domain.Repository) error {
		if err := tx.DeleteHistory(ctx, domain.SubjectRequest, req.ID); err != nil {
			return err
		}
		return tx.DeleteRequest(ctx, req.ID)
	})
	if err != nil {
		t.Fatalf("delete request: %v", err)
	}

	got, err := repo.GetAllocation(ctx, alloc.ID)
	if err != nil {
		t.Fatalf("get allocation: %v", err)
	}
	if got.RequestID != nil {
		t.Fatalf("allocation should be detached from deleted request, got %v", *got.RequestID)
	}
	hist, err := repo.ListHistory(ctx, domain.HistoryFilter{SubjectType: domain.SubjectRequest, SubjectID: &req.ID})
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	if len(hist) != 0 {
		t.Fatalf("request history should be gone, got %d", len(hist))
	}
	if err := repo.DeleteRequest(ctx, req.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestHistoryIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	rec, err := repo.AppendHistory(ctx, domain.HistoryRecord{SubjectType: domain.SubjectAsset, SubjectID: 1, Action: "created", ActorID: 1})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := repo.db.Exec("UPDATE history_records SET remark = 'edited' WHERE id = ?", rec.ID).Error; err == nil {
		t.Fatalf("expected update of history to be rejected")
	}
}

func TestTransactRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	boom := errors.New("boom")

	err := repo.Transact(ctx, func(tx domain.Repository) error {
		if _, err := tx.CreateAsset(ctx, domain.Asset{Tag: "LT-RB", Name: "rollback", Category: domain.CategoryLaptop}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := repo.GetAssetByTag(ctx, "LT-RB"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("asset should have been rolled back, got %v", err)
	}
}

func TestSingleActiveDepartmentHead(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	first := seedUser(t, repo, "head1@example.com", "H-1", domain.RoleUser, "Sales")
	second := seedUser(t, repo, "head2@example.com", "H-2", domain.RoleUser, "sales")

	if err := repo.UpdateUserRole(ctx, first.ID, domain.RoleDepartmentHead, "Sales"); err != nil {
		t.Fatalf("promote first: %v", err)
	}
	if err := repo.UpdateUserRole(ctx, second.ID, domain.RoleDepartmentHead, "sales"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second head should conflict, got %v", err)
	}
	head, err := repo.FindDepartmentHead(ctx, "SALES")
	if err != nil {
		t.Fatalf("find head: %v", err)
	}
	if head.ID != first.ID {
		t.Fatalf("unexpected head %+v", head)
	}
}

func TestSettingsUpsert(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)
	if err := repo.PutSetting(ctx, "notify.enabled", "false"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := repo.PutSetting(ctx, "notify.enabled", "true"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := repo.PutSetting(ctx, "other.key", "x"); err != nil {
		t.Fatalf("put other: %v", err)
	}
	got, err := repo.GetSettings(ctx, "notify.")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 || got["notify.enabled"] != "true" {
		t.Fatalf("unexpected settings %+v", got)
	}
}
