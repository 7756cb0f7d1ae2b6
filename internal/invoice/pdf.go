package invoice

import (
	"bytes"

	"github.com/phpdave11/gofpdf"
)

// RenderPDF builds the A4 tax-invoice PDF attached to the payment
// confirmation email.
func RenderPDF(v View) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	// Branded header
	pdf.SetFont("Helvetica", "B", 26)
	pdf.SetTextColor(249, 115, 22)
	pdf.CellFormat(0, 12, "CivDocs", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(30, 30, 30)
	pdf.CellFormat(0, 9, "Tax Invoice", "B", 1, "C", false, 0, "")
	pdf.Ln(8)

	// Invoice metadata and bill-to, side by side
	left := []struct{ label, value string }{
		{"INVOICE NUMBER", v.DisplayNumber()},
		{"INVOICE DATE", v.FormattedDate()},
		{"PAYMENT DATE", v.FormattedDate()},
	}
	right := []struct{ label, value string }{
		{"BILL TO", v.CustomerEmail},
		{"", "CivDocs Pty Ltd"},
		{"", "ABN 12 345 678 901"},
		{"", "darcy@civdocs.com.au"},
	}

	y := pdf.GetY()
	for _, row := range left {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(85, 4, row.label, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(30, 30, 30)
		pdf.CellFormat(85, 6, row.value, "", 1, "L", false, 0, "")
	}
	pdf.SetY(y)
	for _, row := range right {
		pdf.SetX(115)
		if row.label != "" {
			pdf.SetFont("Helvetica", "B", 8)
			pdf.SetTextColor(110, 110, 110)
			pdf.CellFormat(75, 4, row.label, "", 1, "R", false, 0, "")
			pdf.SetX(115)
		}
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(30, 30, 30)
		pdf.CellFormat(75, 6, row.value, "", 1, "R", false, 0, "")
	}
	pdf.Ln(10)

	// Line items
	amount := "$" + v.AmountMajor() + " AUD"
	colW := []float64{85, 20, 32, 33}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(249, 115, 22)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(colW[0], 9, "Description", "1", 0, "L", true, 0, "")
	pdf.CellFormat(colW[1], 9, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(colW[2], 9, "Unit Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(colW[3], 9, "Total", "1", 1, "R", true, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(30, 30, 30)
	pdf.CellFormat(colW[0], 9, v.Description(), "1", 0, "L", false, 0, "")
	pdf.CellFormat(colW[1], 9, "1", "1", 0, "C", false, 0, "")
	pdf.CellFormat(colW[2], 9, amount, "1", 0, "R", false, 0, "")
	pdf.CellFormat(colW[3], 9, amount, "1", 1, "R", false, 0, "")
	pdf.Ln(8)

	// Totals
	totals := []struct {
		label, value string
		grand        bool
	}{
		{"Subtotal:", amount, false},
		{"Tax (GST):", "$0.00 AUD", false},
		{"Total Paid:", amount, true},
	}
	for _, t := range totals {
		if t.grand {
			pdf.SetFont("Helvetica", "B", 12)
			pdf.SetTextColor(249, 115, 22)
		} else {
			pdf.SetFont("Helvetica", "", 10)
			pdf.SetTextColor(30, 30, 30)
		}
		pdf.SetX(95)
		pdf.CellFormat(60, 7, t.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, t.value, "", 1, "R", false, 0, "")
	}
	pdf.Ln(8)

	// Payment info box
	pdf.SetFillColor(240, 248, 255)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(30, 30, 30)
	pdf.MultiCell(0, 6,
		"Payment Status: Paid\nPayment Method: Credit Card via Stripe\nTransaction ID: "+v.ID,
		"1", "L", true)

	// Footer
	pdf.SetY(-30)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 5, "Thank you for your business with CivDocs!", "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, "CivDocs Pty Ltd | ABN 12 345 678 901 | www.civdocs.com | darcy@civdocs.com.au", "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, "This is an official tax invoice for your records.", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
