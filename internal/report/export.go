package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hoteldesk/internal/apperrors"
	"github.com/jung-kurt/gofpdf/v2"
	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV, FormatXLSX, FormatPDF:
		return f, nil
	case "excel":
		return FormatXLSX, nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unsupported export format %q", apperrors.ErrValidation, s)
	}
}

// Export is a rendered report file.
type Export struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Render writes the report in the requested format. CSV, XLSX and PDF share
// one flat table of section, label and value rows.
func Render(data *ReportData, name string, format Format) (*Export, error) {
	base := exportBaseName(name, data)

	switch format {
	case FormatJSON:
		content, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal report: %w", err)
		}
		return &Export{Filename: base + ".json", ContentType: "application/json", Content: content}, nil
	case FormatCSV:
		content, err := renderCSV(data)
		if err != nil {
			return nil, err
		}
		return &Export{Filename: base + ".csv", ContentType: "text/csv", Content: content}, nil
	case FormatXLSX:
		content, err := renderXLSX(data)
		if err != nil {
			return nil, err
		}
		return &Export{
			Filename:    base + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Content:     content,
		}, nil
	case FormatPDF:
		content, err := renderPDF(data)
		if err != nil {
			return nil, err
		}
		return &Export{Filename: base + ".pdf", ContentType: "application/pdf", Content: content}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported export format %q", apperrors.ErrValidation, format)
	}
}

func exportBaseName(name string, data *ReportData) string {
	if name == "" {
		name = string(data.Type)
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	return fmt.Sprintf("%s_%s_%s", name, data.StartDate.Format("20060102"), data.EndDate.Format("20060102"))
}

var tableHeader = []string{"Section", "Metric", "Value"}

func tableRows(data *ReportData) [][]string {
	rows := [][]string{
		{"Report", "Title", data.Title},
		{"Report", "Period", data.StartDate.Format(time.RFC3339) + " - " + data.EndDate.Format(time.RFC3339)},
		{"Report", "Summary", data.Summary},
	}

	if r := data.Revenue; r != nil {
		rows = append(rows,
			[]string{"Revenue", "Total revenue", formatFloat(r.TotalRevenue)},
			[]string{"Revenue", "Bookings", strconv.Itoa(r.BookingCount)},
			[]string{"Revenue", "Average revenue", formatFloat(r.AverageRevenue)},
		)
		rows = appendSeries(rows, "Daily revenue", r.DailyRevenue)
		rows = appendSeries(rows, "Revenue by room type", r.RevenueByRoomType)
	}
	if o := data.Occupancy; o != nil {
		rows = append(rows,
			[]string{"Occupancy", "Total rooms", strconv.Itoa(o.TotalRooms)},
			[]string{"Occupancy", "Average occupancy %", formatFloat(o.AverageOccupancy)},
			[]string{"Occupancy", "Peak occupancy %", formatFloat(o.PeakOccupancy)},
			[]string{"Occupancy", "Lowest occupancy %", formatFloat(o.LowestOccupancy)},
		)
		rows = appendSeries(rows, "Daily occupancy %", o.DailyOccupancy)
		rows = appendSeries(rows, "Occupancy by room type %", o.OccupancyByRoomType)
	}
	if g := data.GuestAnalytics; g != nil {
		rows = append(rows,
			[]string{"Guests", "Total bookings", strconv.Itoa(g.TotalBookings)},
			[]string{"Guests", "Unique guests", strconv.Itoa(g.UniqueGuests)},
			[]string{"Guests", "Repeat guests", strconv.Itoa(g.RepeatGuests)},
			[]string{"Guests", "Repeat guest rate %", formatFloat(g.RepeatGuestRate)},
			[]string{"Guests", "Average stay (nights)", formatFloat(g.AverageStayDuration)},
		)
		rows = appendSeries(rows, "Guests by country", g.GuestsByCountry)
	}
	return rows
}

func appendSeries(rows [][]string, section string, points []Point) [][]string {
	for _, p := range points {
		rows = append(rows, []string{section, p.Label, formatFloat(p.Value)})
	}
	return rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func renderCSV(data *ReportData) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(tableHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := w.WriteAll(tableRows(data)); err != nil {
		return nil, fmt.Errorf("failed to write csv rows: %w", err)
	}
	return buf.Bytes(), nil
}

func renderXLSX(data *ReportData) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Report"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	rows := append([][]string{tableHeader}, tableRows(data)...)
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}
	if err := f.SetCellStyle(sheet, "A1", "C1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", "B", 28); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(sheet, "C", "C", 60); err != nil {
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func renderPDF(data *ReportData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AliasNbPages("{nb}")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, data.Title, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 8, data.StartDate.Format(DateLayout)+" - "+data.EndDate.Format(DateLayout), "", 1, "C", false, 0, "")
	pdf.Ln(4)
	pdf.MultiCell(0, 6, data.Summary, "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	widths := []float64{55, 75, 50}
	for i, h := range tableHeader {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	// The summary is already printed above the table.
	for _, row := range tableRows(data)[3:] {
		for i, value := range row {
			pdf.CellFormat(widths[i], 6, value, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
