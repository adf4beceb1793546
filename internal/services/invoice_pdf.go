package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf/v2"
	"github.com/shopspring/decimal"

	"crm-backend/internal/models"
	"crm-backend/internal/timeutil"
)

// PDFService renders invoices as printable PDF documents
type PDFService struct {
	invoices    *InvoiceService
	CompanyName string
}

func NewPDFService(invoices *InvoiceService, companyName string) *PDFService {
	return &PDFService{invoices: invoices, CompanyName: companyName}
}

// GenerateInvoicePDF renders the invoice with its line items and payment
// history as a PDF document.
func (s *PDFService) GenerateInvoicePDF(ctx context.Context, invoiceID int) ([]byte, error) {
	inv, err := s.invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	payments, err := s.invoices.GetInvoicePayments(ctx, invoiceID)
	if err != nil {
		payments = nil
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, s.CompanyName, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(190, 8, fmt.Sprintf("Invoice #%s", inv.InvoiceNumber), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Status: %s", inv.Status), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Invoice info box
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Invoice Details", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, fmt.Sprintf("Issue Date: %s", inv.IssueDate.Format(timeutil.DisplayLayout)), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Due Date: %s", inv.DueDate.Format(timeutil.DisplayLayout)), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Client ID: %d", inv.ClientID), "LB", 0, "L", false, 0, "")
	if inv.ProjectID != nil {
		pdf.CellFormat(95, 7, fmt.Sprintf("Project ID: %d", *inv.ProjectID), "RB", 1, "L", false, 0, "")
	} else {
		pdf.CellFormat(95, 7, "", "RB", 1, "L", false, 0, "")
	}
	pdf.Ln(5)

	// Line items
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Line Items", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(80, 7, "Description", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Type", "1", 0, "C", true, 0, "")
	pdf.CellFormat(25, 7, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Unit Price", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 7, "Amount", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, item := range inv.Items {
		desc := item.Description
		if len(desc) > 45 {
			desc = desc[:42] + "..."
		}
		pdf.CellFormat(80, 6, desc, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, string(item.Type), "1", 0, "C", false, 0, "")
		pdf.CellFormat(25, 6, item.Quantity.String(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("$%s", item.UnitPrice.StringFixed(2)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("$%s", item.Amount.StringFixed(2)), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(5)

	// Totals
	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(190, 8, "Totals", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, "Subtotal", "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("$%s", inv.Subtotal.StringFixed(2)), "RB", 1, "R", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Tax (%s%%)", inv.TaxRate.String()), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("$%s", inv.TaxAmount.StringFixed(2)), "RB", 1, "R", false, 0, "")
	if inv.DiscountAmount.GreaterThan(decimal.Zero) {
		pdf.CellFormat(95, 7, "Discount", "LB", 0, "L", false, 0, "")
		pdf.CellFormat(95, 7, fmt.Sprintf("-$%s", inv.DiscountAmount.StringFixed(2)), "RB", 1, "R", false, 0, "")
	}
	pdf.CellFormat(95, 7, "Total", "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("$%s", inv.TotalAmount.StringFixed(2)), "RB", 1, "R", false, 0, "")
	pdf.CellFormat(95, 7, "Amount Paid", "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("$%s", inv.AmountPaid.StringFixed(2)), "RB", 1, "R", false, 0, "")

	if inv.BalanceDue.GreaterThan(decimal.Zero) {
		pdf.SetFillColor(255, 200, 200)
	} else {
		pdf.SetFillColor(200, 255, 200)
	}
	pdf.SetFont("Arial", "B", 14)
	balanceText := fmt.Sprintf("Balance Due: $%s", inv.BalanceDue.StringFixed(2))
	if inv.Status == models.StatusPaid {
		balanceText = "PAID IN FULL"
	}
	pdf.CellFormat(190, 10, balanceText, "1", 1, "C", true, 0, "")

	// Payment history
	if len(payments) > 0 {
		pdf.Ln(5)
		pdf.SetFont("Arial", "B", 12)
		pdf.SetFillColor(240, 240, 240)
		pdf.CellFormat(190, 8, "Payment History", "1", 1, "L", true, 0, "")

		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(200, 200, 200)
		pdf.CellFormat(35, 7, "Date", "1", 0, "C", true, 0, "")
		pdf.CellFormat(40, 7, "Method", "1", 0, "C", true, 0, "")
		pdf.CellFormat(45, 7, "Reference", "1", 0, "C", true, 0, "")
		pdf.CellFormat(70, 7, "Amount", "1", 1, "C", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		for _, p := range payments {
			ref := p.ReferenceNumber
			if len(ref) > 22 {
				ref = ref[:19] + "..."
			}
			pdf.CellFormat(35, 6, p.PaymentDate.Format(timeutil.DisplayLayout), "1", 0, "C", false, 0, "")
			pdf.CellFormat(40, 6, string(p.PaymentMethod), "1", 0, "C", false, 0, "")
			pdf.CellFormat(45, 6, ref, "1", 0, "L", false, 0, "")
			pdf.CellFormat(70, 6, fmt.Sprintf("$%s", p.Amount.StringFixed(2)), "1", 1, "R", false, 0, "")
		}
	}

	// Notes and terms
	if inv.Notes != "" {
		pdf.Ln(5)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(190, 7, "Notes", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(190, 5, inv.Notes, "", "L", false)
	}
	if inv.Terms != "" {
		pdf.Ln(3)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(190, 7, "Terms", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(190, 5, inv.Terms, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}
