package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/SolidPro12/Asset-Management-System-sub000/internal/application"
	"github.com/SolidPro12/Asset-Management-System-sub000/internal/domain"
)

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func formatMaybeUint(v *uint) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatUint(uint64(*v), 10)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatMaybeTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func formatCost(a domain.Asset) string {
	if a.CostRedacted {
		return "hidden"
	}
	return a.PurchaseCost.StringFixed(2)
}

func printAssets(items []domain.Asset) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			uintToString(item.ID),
			item.Tag,
			item.Name,
			string(item.Category),
			string(item.Status),
			orDash(item.Department),
			formatCost(item),
		})
	}
	printTable([]string{"ID", "TAG", "NAME", "CATEGORY", "STATUS", "DEPARTMENT", "COST"}, rows)
}

func printAsset(item domain.Asset) {
	printKV([][2]string{
		{"id", uintToString(item.ID)},
		{"tag", item.Tag},
		{"name", item.Name},
		{"category", string(item.Category)},
		{"status", string(item.Status)},
		{"department", orDash(item.Department)},
		{"location", orDash(item.Location)},
		{"cost", formatCost(item)},
		{"warranty_end", formatMaybeTime(item.WarrantyEnd)},
		{"retired_at", formatMaybeTime(item.RetiredAt)},
	})
}

func printMaintenance(items []domain.MaintenanceRecord) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			uintToString(item.ID),
			uintToString(item.AssetID),
			string(item.Status),
			item.Reason,
			orDash(item.Resolution),
			formatMaybeTime(item.OpenedAt),
			formatMaybeTime(item.ClosedAt),
		})
	}
	printTable([]string{"ID", "ASSET", "STATUS", "REASON", "RESOLUTION", "OPENED", "CLOSED"}, rows)
}

func printRequests(items []domain.RequestView) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			uintToString(item.ID),
			item.Code,
			item.RequesterName,
			string(item.Category),
			strconv.Itoa(item.Quantity),
			item.Department,
			string(item.Status),
			formatTime(item.CreatedAt),
		})
	}
	printTable([]string{"ID", "CODE", "REQUESTER", "CATEGORY", "QTY", "DEPARTMENT", "STATUS", "CREATED"}, rows)
}

func printRequest(item domain.RequestView) {
	printKV([][2]string{
		{"id", uintToString(item.ID)},
		{"code", item.Code},
		{"requester", item.RequesterName + " <" + item.RequesterEmail + ">"},
		{"category", string(item.Category)},
		{"quantity", strconv.Itoa(item.Quantity)},
		{"type", string(item.RequestType)},
		{"department", item.Department},
		{"status", string(item.Status)},
		{"approver", orDash(item.ApproverName)},
		{"rejection_reason", orDash(item.RejectionReason)},
		{"expected_delivery", formatMaybeTime(item.ExpectedDelivery)},
	})
}

func printAllocations(items []domain.AllocationView) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			uintToString(item.ID),
			item.AssetTag,
			item.EmployeeName,
			string(item.Status),
			string(item.ConditionOut),
			formatTime(item.AllocatedAt),
			formatMaybeTime(item.ReturnedAt),
		})
	}
	printTable([]string{"ID", "ASSET", "EMPLOYEE", "STATUS", "CONDITION", "ALLOCATED", "RETURNED"}, rows)
}

func printAllocation(item domain.Allocation) {
	printKV([][2]string{
		{"id", uintToString(item.ID)},
		{"asset_id", uintToString(item.AssetID)},
		{"employee", item.EmployeeName},
		{"status", string(item.Status)},
		{"condition_out", string(item.ConditionOut)},
		{"condition_in", orDash(string(item.ConditionIn))},
		{"request_id", formatMaybeUint(item.RequestID)},
		{"allocated_at", formatTime(item.AllocatedAt)},
		{"returned_at", formatMaybeTime(item.ReturnedAt)},
	})
}

func printTickets(items []domain.Ticket) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			uintToString(item.ID),
			item.Code,
			uintToString(item.AssetID),
			item.Title,
			string(item.Priority),
			string(item.Status),
			formatMaybeUint(item.AssigneeID),
		})
	}
	printTable([]string{"ID", "CODE", "ASSET", "TITLE", "PRIORITY", "STATUS", "ASSIGNEE"}, rows)
}

func printHistory(items []domain.HistoryRecord) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			formatTime(item.CreatedAt),
			string(item.SubjectType),
			uintToString(item.SubjectID),
			item.Action,
			uintToString(item.ActorID),
			orDash(item.Remark),
		})
	}
	printTable([]string{"AT", "SUBJECT", "ID", "ACTION", "ACTOR", "REMARK"}, rows)
}

func printUsers(items []domain.User) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			uintToString(item.ID),
			item.Email,
			item.Name,
			orDash(item.Department),
			string(item.Role),
			strconv.FormatBool(item.Active),
		})
	}
	printTable([]string{"ID", "EMAIL", "NAME", "DEPARTMENT", "ROLE", "ACTIVE"}, rows)
}

func printNotificationSettings(item domain.NotificationSettings) {
	printKV([][2]string{
		{"enabled", strconv.FormatBool(item.Enabled)},
		{"sender", orDash(item.SenderAddress)},
		{"events", orDash(strings.Join(item.Events, ","))},
	})
}

func printAuditRecords(items []domain.AuditRecord) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			uintToString(item.ID),
			item.Action,
			item.TargetType,
			formatMaybeUint(item.TargetID),
			item.ActorUserEmail,
			formatTime(item.CreatedAt),
		})
	}
	printTable([]string{"ID", "ACTION", "TARGET_TYPE", "TARGET_ID", "ACTOR", "AT"}, rows)
}

func printImportReport(report application.ImportReport) {
	rows := make([][]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		status := "ok"
		if !row.OK {
			status = row.Kind
		}
		id := "-"
		if row.ID != 0 {
			id = uintToString(row.ID)
		}
		rows = append(rows, []string{strconv.Itoa(row.Line), row.Key, status, id, orDash(row.Error)})
	}
	printTable([]string{"LINE", "KEY", "STATUS", "ID", "ERROR"}, rows)
	ok, failed := report.Counts()
	fmt.Printf("%d imported, %d failed\n", ok, failed)
}
