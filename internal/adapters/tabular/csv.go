// Package tabular reads and writes the CSV files used for bulk asset and user
// import and export.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/application"
	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
)

const dateLayout = "2006-01-02"

var (
	AssetImportHeader = []string{"tag", "name", "category", "department", "location", "purchase_date", "purchase_cost", "warranty_end", "specs"}
	AssetExportHeader = []string{"id", "tag", "name", "category", "status", "department", "location", "purchase_date", "purchase_cost", "warranty_end", "specs", "retired_at"}
	UserImportHeader  = []string{"email", "password", "name", "employee_code", "department", "location", "role"}
	UserExportHeader  = []string{"id", "email", "name", "employee_code", "department", "location", "role", "active"}
)

// columns maps lower-cased header names to their position. Column order in
// the file is free; unknown columns are ignored.
type columns map[string]int

func readHeader(r *csv.Reader, required ...string) (columns, error) {
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: csv file is empty", domain.ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read csv header: %v", domain.ErrValidation, err)
	}
	cols := make(columns, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if name != "" {
			cols[name] = i
		}
	}
	var missing []string
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: csv header is missing %s", domain.ErrValidation, strings.Join(missing, ", "))
	}
	return cols, nil
}

func (c columns) get(record []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func newReader(in io.Reader) *csv.Reader {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r
}

// ReadAssets parses an asset import file. A row that cannot be parsed is
// returned with Err set so the import can report it next to the others.
func ReadAssets(in io.Reader) ([]application.AssetRow, error) {
	r := newReader(in)
	cols, err := readHeader(r, "tag", "name", "category")
	if err != nil {
		return nil, err
	}

	var rows []application.AssetRow
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		line, _ := r.FieldPos(0)
		if blank(record) {
			continue
		}
		row := application.AssetRow{Line: line, Input: domain.AssetInput{
			Tag:          cols.get(record, "tag"),
			Name:         cols.get(record, "name"),
			Category:     cols.get(record, "category"),
			Department:   cols.get(record, "department"),
			Location:     cols.get(record, "location"),
			PurchaseCost: cols.get(record, "purchase_cost"),
		}}
		row.Input.PurchaseDate, row.Err = parseDate("purchase_date", cols.get(record, "purchase_date"))
		if row.Err == nil {
			row.Input.WarrantyEnd, row.Err = parseDate("warranty_end", cols.get(record, "warranty_end"))
		}
		if row.Err == nil {
			row.Input.Specs, row.Err = parseSpecs(cols.get(record, "specs"))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func ReadUsers(in io.Reader) ([]application.UserRow, error) {
	r := newReader(in)
	cols, err := readHeader(r, "email", "name", "employee_code", "department")
	if err != nil {
		return nil, err
	}

	var rows []application.UserRow
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		line, _ := r.FieldPos(0)
		if blank(record) {
			continue
		}
		rows = append(rows, application.UserRow{Line: line, Input: domain.UserInput{
			Email:        cols.get(record, "email"),
			Password:     cols.get(record, "password"),
			Name:         cols.get(record, "name"),
			EmployeeCode: cols.get(record, "employee_code"),
			Department:   cols.get(record, "department"),
			Location:     cols.get(record, "location"),
			Role:         cols.get(record, "role"),
		}})
	}
	return rows, nil
}

func WriteAssets(out io.Writer, assets []domain.Asset) error {
	w := csv.NewWriter(out)
	if err := w.Write(AssetExportHeader); err != nil {
		return err
	}
	for _, a := range assets {
		cost := a.PurchaseCost.StringFixed(2)
		if a.CostRedacted {
			cost = ""
		}
		if err := w.Write([]string{
			strconv.FormatUint(uint64(a.ID), 10),
			a.Tag,
			a.Name,
			string(a.Category),
			string(a.Status),
			a.Department,
			a.Location,
			formatDate(a.PurchaseDate),
			cost,
			formatDate(a.WarrantyEnd),
			formatSpecs(a.Specs),
			formatDate(a.RetiredAt),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func WriteUsers(out io.Writer, users []domain.User) error {
	w := csv.NewWriter(out)
	if err := w.Write(UserExportHeader); err != nil {
		return err
	}
	for _, u := range users {
		if err := w.Write([]string{
			strconv.FormatUint(uint64(u.ID), 10),
			u.Email,
			u.Name,
			u.EmployeeCode,
			u.Department,
			u.Location,
			string(u.Role),
			strconv.FormatBool(u.Active),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteReport renders an import report, one line per input row.
func WriteReport(out io.Writer, report application.ImportReport) error {
	w := csv.NewWriter(out)
	if err := w.Write([]string{"line", "key", "ok", "id", "kind", "error"}); err != nil {
		return err
	}
	for _, row := range report.Rows {
		id := ""
		if row.ID != 0 {
			id = strconv.FormatUint(uint64(row.ID), 10)
		}
		if err := w.Write([]string{strconv.Itoa(row.Line), row.Key, strconv.FormatBool(row.OK), id, row.Kind, row.Error}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseDate(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q is not a YYYY-MM-DD date", domain.ErrValidation, field, raw)
	}
	return &t, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

// parseSpecs reads "key=value;key=value".
func parseSpecs(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, nil
	}
	specs := make(map[string]string)
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("%w: spec %q must look like key=value", domain.ErrValidation, pair)
		}
		specs[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return specs, nil
}

func formatSpecs(specs map[string]string) string {
	keys := make([]string, 0, len(specs))
	for k := range specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+specs[k])
	}
	return strings.Join(parts, ";")
}
