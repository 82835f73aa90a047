package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"linkedin-insights/internal/logger"
	"linkedin-insights/models"
)

// Export formats
const (
	ExportXLSX = "xlsx"
	ExportCSV  = "csv"
)

// MaxExportRows caps a single export.
const MaxExportRows = 1000

// ExportResponse is a rendered export file.
type ExportResponse struct {
	Filename    string
	ContentType string
	Data        []byte
	RecordCount int
}

// ExportService renders the filtered page list as a spreadsheet
type ExportService struct {
	pages *PageService
	now   func() time.Time
}

// NewExportService creates a new export service
func NewExportService(pages *PageService) *ExportService {
	return &ExportService{pages: pages, now: time.Now}
}

var exportHeaders = []string{
	"Page ID", "Name", "Industry", "Followers", "Employees", "Founded", "Headquarters",
	"Company Type", "Website", "URL", "Specialties", "Updated At",
}

// ExportPages lists pages with the filter and renders them in the requested format.
func (es *ExportService) ExportPages(ctx context.Context, f models.PageFilter, format string) (*ExportResponse, error) {
	if format == "" {
		format = ExportXLSX
	}
	if format != ExportXLSX && format != ExportCSV {
		return nil, fmt.Errorf("%w: unsupported export format %q", ErrInvalidFilter, format)
	}
	if f.Limit <= 0 || f.Limit > MaxExportRows {
		f.Limit = MaxExportRows
	}

	pages, err := es.pages.ListPages(ctx, f)
	if err != nil {
		return nil, err
	}

	rows := make([][]any, 0, len(pages))
	for _, p := range pages {
		rows = append(rows, exportRow(p))
	}

	stamp := es.now().UTC().Format("20060102-150405")
	var resp *ExportResponse
	if format == ExportCSV {
		resp, err = exportCSV(rows)
	} else {
		resp, err = exportExcel(rows, es.now().UTC(), f)
	}
	if err != nil {
		return nil, err
	}

	resp.Filename = fmt.Sprintf("linkedin-pages-%s.%s", stamp, format)
	resp.RecordCount = len(pages)

	logger.Info("Exported pages", "format", format, "records", resp.RecordCount, "bytes", len(resp.Data))
	return resp, nil
}

func exportRow(p models.Page) []any {
	return []any{
		safeCell(p.PageID),
		safeCell(p.Name),
		safeCell(deref(p.Industry)),
		derefInt64(p.FollowersCount),
		derefInt(p.EmployeesCount),
		derefInt(p.FoundedYear),
		safeCell(deref(p.Headquarters)),
		safeCell(deref(p.CompanyType)),
		safeCell(deref(p.Website)),
		safeCell(p.URL),
		safeCell(deref(p.Specialties)),
		p.UpdatedAt.UTC().Format("2006-01-02 15:04:05"),
	}
}

// safeCell quotes scraped text that a spreadsheet would otherwise evaluate as a formula.
func safeCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// exportExcel writes a "Pages" sheet and a "Summary" sheet describing the export
func exportExcel(rows [][]any, exportedAt time.Time, f models.PageFilter) (*ExportResponse, error) {
	file := excelize.NewFile()
	defer func() {
		if err := file.Close(); err != nil {
			logger.Warn("Error closing Excel file", "error", err)
		}
	}()

	sheetName := "Pages"
	index, err := file.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	file.SetActiveSheet(index)
	if err := file.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		file.SetCellValue(sheetName, cell, header)
	}

	headerStyle, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(exportHeaders), 1)
		file.SetCellStyle(sheetName, "A1", last, headerStyle)
	}

	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := file.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", r+2, err)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(exportHeaders))
	file.SetColWidth(sheetName, "A", lastCol, 18)

	summarySheetName := "Summary"
	if _, err := file.NewSheet(summarySheetName); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}

	summaryData := [][]any{
		{"Export Date", exportedAt.Format("2006-01-02 15:04:05")},
		{"Total Records", len(rows)},
		{"Min Followers", optionalInt64(f.MinFollowers)},
		{"Max Followers", optionalInt64(f.MaxFollowers)},
		{"Industry", safeCell(f.Industry)},
		{"Name Search", safeCell(f.NameSearch)},
	}
	for i, row := range summaryData {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := file.SetSheetRow(summarySheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	file.SetColWidth(summarySheetName, "A", "B", 20)

	var buf bytes.Buffer
	if err := file.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	return &ExportResponse{
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        buf.Bytes(),
	}, nil
}

func exportCSV(rows [][]any) (*ExportResponse, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = fmt.Sprint(v)
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}

	return &ExportResponse{
		ContentType: "text/csv; charset=utf-8",
		Data:        buf.Bytes(),
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(n *int) any {
	if n == nil {
		return ""
	}
	return *n
}

func derefInt64(n *int64) any {
	if n == nil {
		return ""
	}
	return *n
}

func optionalInt64(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}
