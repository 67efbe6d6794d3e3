package infra

// pdf.go: daily sales report rendered with go-pdf/fpdf:
//   - shop name and date header
//   - one row per sale (time, product, qty, employee, total, profit)
//   - bold totals line

import (
	"bytes"
	"fmt"
	"time"

	"spazatrack/internal/model"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// SalesReport is the input of GenerateSalesReportPDF.
type SalesReport struct {
	ShopName string
	DateKey  string
	Sales    []model.Sale
	Location *time.Location
}

// GenerateSalesReportPDF renders report as an A4 portrait PDF and returns the bytes.
func GenerateSalesReportPDF(report SalesReport) ([]byte, error) {
	loc := report.Location
	if loc == nil {
		loc = time.Local
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 24

	pdf.SetFont("Helvetica", "B", 15)
	pdf.CellFormat(contentW, 8, report.ShopName, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, "Sales report for "+report.DateKey, "", 1, "L", false, 0, "")
	pdf.Ln(3)

	cols := []struct {
		title string
		width float64
		align string
	}{
		{"Time", contentW * 0.10, "L"},
		{"Product", contentW * 0.32, "L"},
		{"Qty", contentW * 0.08, "R"},
		{"Employee", contentW * 0.22, "L"},
		{"Total", contentW * 0.14, "R"},
		{"Profit", contentW * 0.14, "R"},
	}

	pdf.SetFont("Helvetica", "B", 9)
	for i, c := range cols {
		ln := 0
		if i == len(cols)-1 {
			ln = 1
		}
		pdf.CellFormat(c.width, 6, c.title, "B", ln, c.align, false, 0, "")
	}

	pdf.SetFont("Helvetica", "", 9)
	revenue, profit := decimal.Zero, decimal.Zero
	units := 0
	for _, s := range report.Sales {
		row := []string{
			s.SaleDate.In(loc).Format("15:04"),
			truncate(s.ProductName, 40),
			fmt.Sprintf("%d", s.QuantitySold),
			truncate(s.EmployeeName, 28),
			s.TotalPrice.StringFixed(2),
			s.Profit.StringFixed(2),
		}
		for i, c := range cols {
			ln := 0
			if i == len(cols)-1 {
				ln = 1
			}
			pdf.CellFormat(c.width, 5, row[i], "", ln, c.align, false, 0, "")
		}
		revenue = revenue.Add(s.TotalPrice)
		profit = profit.Add(s.Profit)
		units += s.QuantitySold
	}

	pdf.Ln(2)
	pdf.Line(12, pdf.GetY(), pageW-12, pdf.GetY())
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 10)
	labelW := cols[0].width + cols[1].width
	pdf.CellFormat(labelW, 6, fmt.Sprintf("%d sales", len(report.Sales)), "", 0, "L", false, 0, "")
	pdf.CellFormat(cols[2].width, 6, fmt.Sprintf("%d", units), "", 0, "R", false, 0, "")
	pdf.CellFormat(cols[3].width, 6, "TOTAL", "", 0, "L", false, 0, "")
	pdf.CellFormat(cols[4].width, 6, revenue.StringFixed(2), "", 0, "R", false, 0, "")
	pdf.CellFormat(cols[5].width, 6, profit.StringFixed(2), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "."
}
