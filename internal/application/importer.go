package application

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
)

// AssetRow is one parsed line of an asset import. Err carries a parse
// failure found before validation.
type AssetRow struct {
	Line  int
	Input domain.AssetInput
	Err   error
}

type UserRow struct {
	Line  int
	Input domain.UserInput
	Err   error
}

type RowResult struct {
	Line  int    `json:"line"`
	Key   string `json:"key"`
	OK    bool   `json:"ok"`
	ID    uint   `json:"id,omitempty"`
	Kind  string `json:"kind,omitempty"`
	Error string `json:"error,omitempty"`
}

// ImportReport lists the outcome of every row. Rows are applied one by one;
// a failing row does not undo the others.
type ImportReport struct {
	Rows []RowResult `json:"rows"`
}

func (r ImportReport) Counts() (ok, failed int) {
	for _, row := range r.Rows {
		if row.OK {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}

func (r *ImportReport) add(line int, key string, id uint, err error) {
	res := RowResult{Line: line, Key: key, OK: err == nil, ID: id}
	if err != nil {
		res.Kind = string(domain.KindOf(err))
		res.Error = err.Error()
	}
	r.Rows = append(r.Rows, res)
}

func (s *Service) ImportAssets(ctx context.Context, actor domain.Actor, rows []AssetRow) (ImportReport, error) {
	if err := authorize(actor, domain.ActionAssetImport, domain.PolicyContext{}); err != nil {
		return ImportReport{}, err
	}
	report := ImportReport{Rows: make([]RowResult, 0, len(rows))}
	seen := make(map[string]int, len(rows))
	for _, row := range rows {
		key := strings.ToUpper(strings.TrimSpace(row.Input.Tag))
		if row.Err != nil {
			report.add(row.Line, key, 0, row.Err)
			continue
		}
		asset, err := row.Input.Validate()
		if err != nil {
			report.add(row.Line, key, 0, err)
			continue
		}
		if first, dup := seen[asset.Tag]; dup {
			report.add(row.Line, key, 0, fmt.Errorf("%w: tag %s repeats line %d", domain.ErrConflict, asset.Tag, first))
			continue
		}
		seen[asset.Tag] = row.Line
		created, err := s.createAsset(ctx, actor, asset, "imported")
		report.add(row.Line, key, created.ID, err)
	}
	ok, failed := report.Counts()
	log.Printf("asset import by user %d: %d ok, %d failed", actor.UserID, ok, failed)
	s.WriteAudit(ctx, uintPtr(actor.UserID), "asset.import", "asset", nil, fmt.Sprintf("ok=%d failed=%d", ok, failed))
	return report, nil
}

func (s *Service) ImportUsers(ctx context.Context, actor domain.Actor, rows []UserRow) (ImportReport, error) {
	if err := authorize(actor, domain.ActionUserImport, domain.PolicyContext{}); err != nil {
		return ImportReport{}, err
	}
	report := ImportReport{Rows: make([]RowResult, 0, len(rows))}
	seenCodes := make(map[string]int, len(rows))
	seenEmails := make(map[string]int, len(rows))
	for _, row := range rows {
		key := strings.ToUpper(strings.TrimSpace(row.Input.EmployeeCode))
		if row.Err != nil {
			report.add(row.Line, key, 0, row.Err)
			continue
		}
		u, err := row.Input.Validate()
		if err != nil {
			report.add(row.Line, key, 0, err)
			continue
		}
		if first, dup := seenCodes[u.EmployeeCode]; dup {
			report.add(row.Line, key, 0, fmt.Errorf("%w: employee code %s repeats line %d", domain.ErrConflict, u.EmployeeCode, first))
			continue
		}
		if first, dup := seenEmails[u.Email]; dup {
			report.add(row.Line, key, 0, fmt.Errorf("%w: email %s repeats line %d", domain.ErrConflict, u.Email, first))
			continue
		}
		seenCodes[u.EmployeeCode] = row.Line
		seenEmails[u.Email] = row.Line
		created, err := s.createUser(ctx, actor, row.Input)
		report.add(row.Line, key, created.ID, err)
	}
	ok, failed := report.Counts()
	log.Printf("user import by user %d: %d ok, %d failed", actor.UserID, ok, failed)
	return report, nil
}

// ExportAssets returns the assets for a tabular export. Costs are blanked for
// actors without cost access.
func (s *Service) ExportAssets(ctx context.Context, actor domain.Actor, filter domain.AssetFilter) ([]domain.Asset, error) {
	if err := authorize(actor, domain.ActionAssetExport, domain.PolicyContext{}); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 {
		filter.Limit = 5000
	}
	assets, err := s.repo.ListAssets(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range assets {
		assets[i] = redactCost(actor, assets[i])
	}
	return assets, nil
}

func (s *Service) ExportUsers(ctx context.Context, actor domain.Actor, filter domain.UserFilter) ([]domain.User, error) {
	if scopeFor(actor, domain.ActionUserView) != scopeAll {
		return nil, fmt.Errorf("%w: role %q may not export users", domain.ErrForbidden, actor.Role)
	}
	if filter.Limit <= 0 {
		filter.Limit = 5000
	}
	return s.repo.ListUsers(ctx, filter)
}
