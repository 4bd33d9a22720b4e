package pdfgen

import (
	"bytes"
	"fmt"
	"image/png"
	"log"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/bher20/ubill/internal/billing"
)

// Page geometry, mm on A4. The left column starts at the page margin, the
// summary labels and right-aligned amounts hang off fixed x positions.
const (
	marginX       = 10
	summaryLabelX = 130
	summaryAmtX   = 175
	lineStep      = 5
	tableStartY   = 95
	footerY       = 280
)

// Filename is the canonical artifact name for a rendered bill.
func Filename(data billing.BillData) string {
	return fmt.Sprintf("%s-bill-%s.pdf", data.Bill.Type, data.Bill.BillNumber)
}

// Render lays the bill out as a single-pass paginated PDF and returns the
// document bytes. Output is deterministic for a frozen BillData: both PDF
// timestamps are pinned to the bill date and catalog objects are emitted in
// sorted order, so two renders of the same record are byte-identical.
func Render(data billing.BillData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.SetCatalogSort(true)
	pdf.SetCreationDate(data.Bill.BillDate)
	pdf.SetModificationDate(data.Bill.BillDate)
	pdf.AddPage()

	drawHeader(pdf, data)
	drawAddressing(pdf, data.Customer)

	cur := drawItemTable(pdf, data.Bill)

	cur = drawSummary(pdf, data.Bill, cur.Advance(2*lineStep))
	drawPaymentInfo(pdf, data, cur.Advance(3*lineStep))
	drawFooter(pdf)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render bill %s: %w", data.Bill.BillNumber, err)
	}
	return buf.Bytes(), nil
}

// drawHeader places the company logo and contact block plus the right-hand
// bill heading. A missing or undecodable logo is logged and skipped; it never
// aborts the render.
func drawHeader(pdf *gofpdf.Fpdf, data billing.BillData) {
	company := data.Company
	bill := data.Bill

	if err := placeLogo(pdf, company.Logo); err != nil {
		log.Printf("render: skipping logo for %s: %v", company.Name, err)
	}

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(70, 20, company.Name)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(70, 25, company.Address)
	pdf.Text(70, 30, "Phone: "+company.Phone)
	pdf.Text(70, 35, "Email: "+company.Email)
	pdf.Text(70, 40, "Website: "+company.Website)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(marginX, 50, strings.ToUpper(string(bill.Type))+" BILL")

	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(marginX, 60, "Bill #: "+bill.BillNumber)
	pdf.Text(marginX, 65, "Date: "+FormatDate(bill.BillDate))
	pdf.Text(marginX, 70, "Due Date: "+FormatDate(bill.DueDate))
}

func placeLogo(pdf *gofpdf.Fpdf, logo []byte) error {
	if len(logo) == 0 {
		return fmt.Errorf("no logo bytes")
	}
	// Validate before handing the bytes to gofpdf: a bad image would poison
	// the document's sticky error state.
	if _, err := png.DecodeConfig(bytes.NewReader(logo)); err != nil {
		return fmt.Errorf("decode logo: %w", err)
	}

	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("company-logo", opts, bytes.NewReader(logo))
	if !pdf.Ok() {
		err := pdf.Error()
		pdf.ClearError()
		return fmt.Errorf("register logo: %w", err)
	}
	pdf.ImageOptions("company-logo", marginX, 10, 50, 20, false, opts, 0, "")
	return nil
}

// drawAddressing places the "Bill To" customer block at fixed offsets; the
// opposite column is reserved for the sender heading already drawn above.
func drawAddressing(pdf *gofpdf.Fpdf, c billing.CustomerInfo) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(110, 60, "Bill To:")

	pdf.SetFont("Helvetica", "", 10)
	pdf.Text(110, 65, c.Name)
	pdf.Text(110, 70, c.Address)
	pdf.Text(110, 75, fmt.Sprintf("%s, %s %s", c.City, c.State, c.Zip))
	pdf.Text(110, 80, "Account #: "+c.AccountNumber)
}

type tableRow struct {
	description string
	usage       string
	unitPrice   string
	amount      string
}

// drawItemTable renders the ruled charge table and returns a cursor at the
// bottom edge of the last rendered row, read back from the layout engine.
// Row count varies with the bill's fixed-charge snapshot, so nothing below
// the table may assume a fixed height.
func drawItemTable(pdf *gofpdf.Fpdf, bill billing.BillInfo) LayoutCursor {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Text(marginX, 90, "Usage Details")

	sched := billing.Lookup(bill.Type)
	rows := []tableRow{
		{
			description: bill.Type.Label() + " Usage",
			usage:       fmt.Sprintf("%g %s", bill.UsageAmount, bill.Type.Unit()),
			unitPrice:   FormatCurrency(sched.UnitPrice),
			amount:      FormatCurrency(bill.SubTotal),
		},
	}
	for _, c := range bill.FixedCharges {
		if c.Amount == 0 {
			continue
		}
		rows = append(rows, tableRow{description: c.Name, amount: FormatCurrency(c.Amount)})
	}
	rows = append(rows,
		tableRow{description: "VAT (16%)", amount: FormatCurrency(bill.VAT)},
		tableRow{description: "Tax Levy (5%)", amount: FormatCurrency(bill.TaxLevy)},
	)

	widths := []float64{70, 35, 35, 50}
	headers := []string{"Description", "Usage", "Unit Price", "Amount"}

	// Header row, filled with the per-type brand color.
	r, g, b := headerFill(bill.Type)
	pdf.SetFillColor(r, g, b)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetXY(marginX, tableStartY)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 10)
	for _, row := range rows {
		pdf.SetX(marginX)
		pdf.CellFormat(widths[0], 7, row.description, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 7, row.usage, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 7, row.unitPrice, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 7, row.amount, "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	return LayoutCursor(pdf.GetY())
}

func headerFill(t billing.UtilityType) (r, g, b int) {
	if t == billing.Electricity {
		return 255, 165, 0
	}
	return 0, 136, 204
}

// drawSummary places the balance lines beneath the table, advancing the
// cursor one line step at a time, and returns the final cursor.
func drawSummary(pdf *gofpdf.Fpdf, bill billing.BillInfo, cur LayoutCursor) LayoutCursor {
	pdf.SetFont("Helvetica", "", 10)
	summaryLine(pdf, cur, "Previous Balance:", bill.PreviousBalance)

	cur = cur.Advance(lineStep)
	summaryLine(pdf, cur, "Current Charges:", bill.Amount)

	cur = cur.Advance(lineStep)
	pdf.SetFont("Helvetica", "B", 10)
	summaryLine(pdf, cur, "Total Amount Due:", bill.TotalDue)
	return cur
}

func summaryLine(pdf *gofpdf.Fpdf, cur LayoutCursor, label string, amount float64) {
	pdf.Text(summaryLabelX, cur.Y(), label)
	s := FormatCurrency(amount)
	pdf.Text(summaryAmtX-pdf.GetStringWidth(s), cur.Y(), s)
}

func drawPaymentInfo(pdf *gofpdf.Fpdf, data billing.BillData, cur LayoutCursor) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Text(marginX, cur.Y(), "Payment Information")

	pdf.SetFont("Helvetica", "", 9)
	cur = cur.Advance(2 * lineStep)
	pdf.Text(marginX, cur.Y(), "Please pay by "+FormatDate(data.Bill.DueDate))
	cur = cur.Advance(lineStep)
	pdf.Text(marginX, cur.Y(), "Make payments to:")
	cur = cur.Advance(lineStep)
	pdf.Text(marginX, cur.Y(), data.Company.Name)
	cur = cur.Advance(lineStep)
	pdf.Text(marginX, cur.Y(), data.Company.Address)
}

// drawFooter is fixed-position boilerplate at the bottom margin, independent
// of how far the cursor travelled.
func drawFooter(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.Text(marginX, footerY, "This is a computer generated bill and doesn't require signature.")
	pdf.Text(marginX, footerY+lineStep, "For questions about your bill, please contact customer service.")
}
