package tabular

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/application"
	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
	"github.com/shopspring/decimal"
)

func TestReadAssetsMapsColumnsByName(t *testing.T) {
	in := strings.Join([]string{
		"Name,TAG,category,purchase_date,purchase_cost,specs,notes",
		"ThinkPad T14,lt-001,laptop,2024-03-01,1299.90,ram=32GB; cpu=i7,ignored",
		",,,,,,",
		"Dell U2720Q,mn-002,monitor,01/03/2024,300,,",
		"Headset,hs-003,headset,,,broken,",
	}, "\n")

	rows, err := ReadAssets(strings.NewReader(in))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.Err != nil || first.Line != 2 {
		t.Fatalf("unexpected first row %+v", first)
	}
	if first.Input.Tag != "lt-001" || first.Input.Name != "ThinkPad T14" || first.Input.PurchaseCost != "1299.90" {
		t.Fatalf("unexpected first input %+v", first.Input)
	}
	if first.Input.PurchaseDate == nil || !first.Input.PurchaseDate.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected purchase date %v", first.Input.PurchaseDate)
	}
	if first.Input.Specs["ram"] != "32GB" || first.Input.Specs["cpu"] != "i7" {
		t.Fatalf("unexpected specs %v", first.Input.Specs)
	}

	if rows[1].Line != 4 || domain.KindOf(rows[1].Err) != domain.KindValidation {
		t.Fatalf("bad date should be a row error on line 4, got %+v", rows[1])
	}
	if domain.KindOf(rows[2].Err) != domain.KindValidation {
		t.Fatalf("bad specs should be a row error, got %+v", rows[2])
	}
}

func TestReadAssetsRejectsMissingHeader(t *testing.T) {
	_, err := ReadAssets(strings.NewReader("tag,name\nA1,Mouse\n"))
	if domain.KindOf(err) != domain.KindValidation || !strings.Contains(err.Error(), "category") {
		t.Fatalf("expected missing category column error, got %v", err)
	}
	_, err = ReadAssets(strings.NewReader(""))
	if domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected empty file error, got %v", err)
	}
}

func TestReadUsers(t *testing.T) {
	in := "email,password,name,employee_code,department,role\n" +
		"dan@example.com,long-enough,Dan,E-100,Ops,\n" +
		"eve@example.com,long-enough,\"Eve, Jr.\",E-101,Ops,hr\n"
	rows, err := ReadUsers(strings.NewReader(in))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1].Input.Name != "Eve, Jr." || rows[1].Input.Role != "hr" || rows[1].Line != 3 {
		t.Fatalf("unexpected row %+v", rows[1])
	}
}

func TestWriteAssetsBlanksRedactedCost(t *testing.T) {
	bought := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := WriteAssets(&buf, []domain.Asset{
		{ID: 1, Tag: "LT-001", Name: "ThinkPad", Category: domain.CategoryLaptop, Status: domain.AssetAvailable, PurchaseDate: &bought, PurchaseCost: decimal.RequireFromString("1299.9"), Specs: map[string]string{"ram": "32GB", "cpu": "i7"}},
		{ID: 2, Tag: "LT-002", Name: "ThinkPad", Category: domain.CategoryLaptop, Status: domain.AssetAssigned, CostRedacted: true},
	})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got %q", buf.String())
	}
	if lines[0] != strings.Join(AssetExportHeader, ",") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != "1,LT-001,ThinkPad,laptop,available,,,2024-03-01,1299.90,,cpu=i7;ram=32GB," {
		t.Fatalf("unexpected first row %q", lines[1])
	}
	if lines[2] != "2,LT-002,ThinkPad,laptop,assigned,,,,,,," {
		t.Fatalf("unexpected redacted row %q", lines[2])
	}
}

func TestExportedAssetsReimport(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteAssets(&buf, []domain.Asset{{ID: 9, Tag: "PH-9", Name: "Pixel", Category: domain.CategoryPhone, Specs: map[string]string{"imei": "123"}}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	rows, err := ReadAssets(&buf)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(rows) != 1 || rows[0].Err != nil || rows[0].Input.Tag != "PH-9" || rows[0].Input.Specs["imei"] != "123" {
		t.Fatalf("unexpected rows %+v", rows)
	}
}

func TestWriteReportAndUsers(t *testing.T) {
	var buf bytes.Buffer
	report := application.ImportReport{Rows: []application.RowResult{
		{Line: 2, Key: "E-100", OK: true, ID: 5},
		{Line: 3, Key: "E-101", Kind: "validation", Error: "validation error: name is required"},
	}}
	if err := WriteReport(&buf, report); err != nil {
		t.Fatalf("write report: %v", err)
	}
	want := "line,key,ok,id,kind,error\n2,E-100,true,5,,\n3,E-101,false,,validation,validation error: name is required\n"
	if buf.String() != want {
		t.Fatalf("unexpected report:\n%s", buf.String())
	}

	buf.Reset()
	if err := WriteUsers(&buf, []domain.User{{ID: 1, Email: "dan@example.com", Name: "Dan", EmployeeCode: "E-100", Department: "Ops", Role: domain.RoleUser, Active: true}}); err != nil {
		t.Fatalf("write users: %v", err)
	}
	if !strings.Contains(buf.String(), "1,dan@example.com,Dan,E-100,Ops,,user,true") {
		t.Fatalf("unexpected users csv %q", buf.String())
	}
}
