package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/adapters/tabular"
	"github.com/SolidPro12/Asset-Management-System-sub000/internal/application"
	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
)

type apiAssetRequest struct {
	Tag          string            `json:"tag"`
	Name         string            `json:"name"`
	Category     string            `json:"category"`
	Department   string            `json:"department"`
	Location     string            `json:"location"`
	PurchaseDate string            `json:"purchase_date"`
	PurchaseCost json.Number       `json:"purchase_cost"`
	WarrantyEnd  string            `json:"warranty_end"`
	Specs        map[string]string `json:"specs"`
}

func (req apiAssetRequest) input() (domain.AssetInput, error) {
	purchased, err := parseOptionalDate("purchase_date", req.PurchaseDate)
	if err != nil {
		return domain.AssetInput{}, err
	}
	warranty, err := parseOptionalDate("warranty_end", req.WarrantyEnd)
	if err != nil {
		return domain.AssetInput{}, err
	}
	return domain.AssetInput{
		Tag:          req.Tag,
		Name:         req.Name,
		Category:     req.Category,
		Department:   req.Department,
		Location:     req.Location,
		PurchaseDate: purchased,
		PurchaseCost: req.PurchaseCost.String(),
		WarrantyEnd:  warranty,
		Specs:        req.Specs,
	}, nil
}

func (h *Handler) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var req apiAssetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, err)
		return
	}
	asset, err := h.service.CreateAsset(r.Context(), actorFrom(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

func assetFilterFrom(r *http.Request) (domain.AssetFilter, error) {
	q := r.URL.Query()
	filter := domain.AssetFilter{
		Department: strings.TrimSpace(q.Get("department")),
		Query:      strings.TrimSpace(q.Get("q")),
		Limit:      queryLimit(r, 0),
	}
	if raw := strings.TrimSpace(q.Get("status")); raw != "" {
		status, err := domain.ParseAssetStatus(raw)
		if err != nil {
			return domain.AssetFilter{}, err
		}
		filter.Status = status
	}
	if raw := strings.TrimSpace(q.Get("category")); raw != "" {
		category, err := domain.ParseAssetCategory(raw)
		if err != nil {
			return domain.AssetFilter{}, err
		}
		filter.Category = category
	}
	return filter, nil
}

func (h *Handler) handleListAssets(w http.ResponseWriter, r *http.Request) {
	filter, err := assetFilterFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	items, err := h.service.ListAssets(r.Context(), actorFrom(r), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	asset, err := h.service.GetAsset(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

type apiReasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleRetireAsset(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req apiReasonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	asset, err := h.service.RetireAsset(r.Context(), actorFrom(r), id, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (h *Handler) handleStartMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req apiReasonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	record, err := h.service.StartMaintenance(r.Context(), actorFrom(r), id, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

type apiFinishMaintenanceRequest struct {
	Resolution string `json:"resolution"`
	Retire     bool   `json:"retire"`
}

func (h *Handler) handleFinishMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req apiFinishMaintenanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	record, err := h.service.FinishMaintenance(r.Context(), actorFrom(r), id, req.Resolution, req.Retire)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) handleListMaintenance(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	items, err := h.service.ListMaintenance(r.Context(), actorFrom(r), id, queryLimit(r, 100))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) handleImportAssets(w http.ResponseWriter, r *http.Request) {
	body, cleanup, err := uploadReader(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cleanup()
	rows, err := tabular.ReadAssets(body)
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := h.service.ImportAssets(r.Context(), actorFrom(r), rows)
	if err != nil {
		writeError(w, err)
		return
	}
	writeReport(w, report)
}

func (h *Handler) handleExportAssets(w http.ResponseWriter, r *http.Request) {
	filter, err := assetFilterFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	assets, err := h.service.ExportAssets(r.Context(), actorFrom(r), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCSVHeaders(w, "assets")
	if err := tabular.WriteAssets(w, assets); err != nil {
		logWriteError("asset export", err)
	}
}

// uploadReader accepts either a raw CSV body or a multipart form with a
// "file" field.
func uploadReader(w http.ResponseWriter, r *http.Request) (io.Reader, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, nil, fmt.Errorf("%w: multipart upload needs a file field: %v", domain.ErrValidation, err)
		}
		return file, func() { _ = file.Close() }, nil
	}
	return r.Body, func() {}, nil
}

func writeReport(w http.ResponseWriter, report application.ImportReport) {
	ok, failed := report.Counts()
	writeJSON(w, http.StatusOK, map[string]any{"ok": ok, "failed": failed, "rows": report.Rows})
}

func writeCSVHeaders(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+"-"+time.Now().UTC().Format("20060102")+".csv"))
	w.WriteHeader(http.StatusOK)
}

// parseOptionalDate accepts YYYY-MM-DD or RFC 3339.
func parseOptionalDate(field, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %s %q is not a date", domain.ErrValidation, field, raw)
}
