package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"crm-backend/internal/clock"
	"crm-backend/internal/metrics"
	"crm-backend/internal/models"
	"crm-backend/internal/timeutil"
)

// DefaultTerms is used when an invoice is created without payment terms
const DefaultTerms = "Payment due within 30 days of invoice date."

// InvoiceService orchestrates invoice, line-item and payment mutations
// against the store, keeping totals and status consistent after every
// change. Email notification failures are deliberately ignored: the invoice
// mutation stands even when the email does not go out.
type InvoiceService struct {
	Store    Store
	Notifier Notifier
	Clock    clock.Clock
}

// NewInvoiceService creates a new invoice service
func NewInvoiceService(store Store, notifier Notifier, clk clock.Clock) *InvoiceService {
	return &InvoiceService{Store: store, Notifier: notifier, Clock: clk}
}

// NextInvoiceNumber generates the next invoice number in the form
// INV-YYYYMMDD-NNNN, appending a short random suffix when the number is
// already taken.
func (s *InvoiceService) NextInvoiceNumber(ctx context.Context) (string, error) {
	count, err := s.Store.CountInvoices(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to count invoices: %w", err)
	}

	number := fmt.Sprintf("INV-%s-%04d", s.Clock.Now().Format("20060102"), count+1)

	exists, err := s.Store.InvoiceNumberExists(ctx, number)
	if err != nil {
		return "", fmt.Errorf("failed to check invoice number: %w", err)
	}
	if exists {
		number = fmt.Sprintf("%s-%s", number, uuid.NewString()[:4])
	}

	return number, nil
}

// CreateInvoice persists a new Draft invoice plus any supplied line items,
// recalculates totals and returns the new invoice id.
func (s *InvoiceService) CreateInvoice(ctx context.Context, rec models.InvoiceRecord) (int, error) {
	now := s.Clock.Now()

	clientID := 0
	if rec.ClientID != nil {
		clientID = *rec.ClientID
	}

	var issueDate, dueDate time.Time
	if rec.IssueDate != nil {
		if d, err := timeutil.ParseDate(*rec.IssueDate); err == nil {
			issueDate = d
		}
	}
	if rec.DueDate != nil {
		if d, err := timeutil.ParseDate(*rec.DueDate); err == nil {
			dueDate = d
		}
	}

	inv, err := models.NewInvoice(clientID, issueDate, dueDate, now)
	if err != nil {
		return 0, err
	}
	inv.ApplyRecord(rec)

	// ApplyRecord may have overwritten the defaults with coerced values;
	// re-assert the creation-time ones.
	inv.Status = models.StatusDraft
	if inv.InvoiceNumber == "" {
		number, err := s.NextInvoiceNumber(ctx)
		if err != nil {
			return 0, err
		}
		inv.InvoiceNumber = number
	}
	if inv.Terms == "" {
		inv.Terms = DefaultTerms
	}

	id, err := s.Store.InsertInvoice(ctx, inv)
	if err != nil {
		return 0, fmt.Errorf("failed to insert invoice: %w", err)
	}
	inv.ID = id

	for i, itemRec := range rec.Items {
		item := models.ItemFromRecord(itemRec, now)
		item.InvoiceID = id
		if itemRec.SortOrder == nil {
			item.SortOrder = i
		}
		if _, err := s.Store.InsertItem(ctx, item); err != nil {
			return 0, fmt.Errorf("failed to insert invoice item: %w", err)
		}
	}

	if err := s.recalculate(ctx, inv); err != nil {
		return 0, err
	}

	metrics.InvoicesCreated.Inc()
	return id, nil
}

// GetInvoice returns an invoice with its items and payments
func (s *InvoiceService) GetInvoice(ctx context.Context, id int) (*models.Invoice, error) {
	inv, err := s.Store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// ListInvoices returns invoices matching the filter, newest issue date first
func (s *InvoiceService) ListInvoices(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, error) {
	return s.Store.ListInvoices(ctx, filter)
}

// UpdateInvoice updates only the supplied header fields. When items are
// supplied the existing item set is replaced wholesale. Totals and status
// are recalculated afterwards.
func (s *InvoiceService) UpdateInvoice(ctx context.Context, id int, rec models.InvoiceRecord) (*models.Invoice, error) {
	inv, err := s.Store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	inv.ApplyRecord(rec)

	if rec.Items != nil {
		if err := s.Store.DeleteItemsForInvoice(ctx, id); err != nil {
			return nil, fmt.Errorf("failed to delete invoice items: %w", err)
		}
		for i, itemRec := range rec.Items {
			item := models.ItemFromRecord(itemRec, now)
			item.InvoiceID = id
			if itemRec.SortOrder == nil {
				item.SortOrder = i
			}
			if _, err := s.Store.InsertItem(ctx, item); err != nil {
				return nil, fmt.Errorf("failed to insert invoice item: %w", err)
			}
		}
	}

	if err := s.recalculate(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

// DeleteInvoice removes a Draft invoice together with its items and
// payments. Any other status is rejected without mutation.
func (s *InvoiceService) DeleteInvoice(ctx context.Context, id int) error {
	inv, err := s.Store.GetInvoice(ctx, id)
	if err != nil {
		return err
	}
	if inv.Status != models.StatusDraft {
		return ErrInvoiceNotDraft
	}

	if err := s.Store.DeleteItemsForInvoice(ctx, id); err != nil {
		return fmt.Errorf("failed to delete invoice items: %w", err)
	}
	if err := s.Store.DeletePaymentsForInvoice(ctx, id); err != nil {
		return fmt.Errorf("failed to delete invoice payments: %w", err)
	}
	if err := s.Store.DeleteInvoiceRow(ctx, id); err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	return nil
}

// RecordPayment persists a payment, applies it to the invoice and
// recalculates totals. A receipt email is sent when requested; its failure
// does not undo the payment.
func (s *InvoiceService) RecordPayment(ctx context.Context, rec models.PaymentRecord) (int, error) {
	inv, err := s.Store.GetInvoice(ctx, rec.InvoiceID)
	if err != nil {
		return 0, err
	}

	now := s.Clock.Now()
	p := models.PaymentFromRecord(rec, now)
	if p.Amount.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}

	id, err := s.Store.InsertPayment(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("failed to insert payment: %w", err)
	}
	p.ID = id

	inv.AddPayment(p.Amount, now)
	if err := s.recalculate(ctx, inv); err != nil {
		return 0, err
	}

	metrics.PaymentsRecorded.Inc()
	if rec.SendReceipt && s.Notifier != nil {
		s.Notifier.SendInvoiceEmail(ctx, inv, EmailReceipt)
	}

	return id, nil
}

// DeletePayment reverses a payment's effect on its invoice and removes the
// payment row. Unlike payment addition, the resulting amount paid is clamped
// at zero.
func (s *InvoiceService) DeletePayment(ctx context.Context, paymentID int) error {
	p, err := s.Store.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	inv, err := s.Store.GetInvoice(ctx, p.InvoiceID)
	if err != nil {
		return err
	}

	inv.AmountPaid = inv.AmountPaid.Sub(p.Amount)
	if inv.AmountPaid.Sign() < 0 {
		inv.AmountPaid = decimal.Zero
	}

	if err := s.Store.DeletePaymentRow(ctx, paymentID); err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}

	return s.recalculate(ctx, inv)
}

// GetInvoicePayments returns all payments recorded against an invoice
func (s *InvoiceService) GetInvoicePayments(ctx context.Context, invoiceID int) ([]*models.Payment, error) {
	return s.Store.ListPayments(ctx, invoiceID)
}

// MarkInvoiceAsSent applies Draft -> Sent and sends the "new invoice" email.
// Any other starting status reports ErrInvalidTransition without mutation.
func (s *InvoiceService) MarkInvoiceAsSent(ctx context.Context, id int) error {
	inv, err := s.Store.GetInvoice(ctx, id)
	if err != nil {
		return err
	}

	// Only drafts move to Sent; anything else is a no-op so repeated
	// send clicks don't error or re-email the client.
	if inv.Status != models.StatusDraft {
		return nil
	}

	if err := inv.MarkSent(s.Clock.Now()); err != nil {
		return err
	}
	if err := s.Store.UpdateInvoiceRow(ctx, inv); err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}

	if s.Notifier != nil {
		s.Notifier.SendInvoiceEmail(ctx, inv, EmailNew)
	}
	return nil
}

// MarkInvoiceAsViewed records the client-viewed signal, valid only from Sent
func (s *InvoiceService) MarkInvoiceAsViewed(ctx context.Context, id int) error {
	inv, err := s.Store.GetInvoice(ctx, id)
	if err != nil {
		return err
	}

	if err := inv.MarkViewed(s.Clock.Now()); err != nil {
		return err
	}
	return s.Store.UpdateInvoiceRow(ctx, inv)
}

// MarkInvoiceAsCancelled cancels the invoice, appending an optional reason
// to its notes. Paid and already-cancelled invoices are rejected.
func (s *InvoiceService) MarkInvoiceAsCancelled(ctx context.Context, id int, reason string) error {
	inv, err := s.Store.GetInvoice(ctx, id)
	if err != nil {
		return err
	}

	if err := inv.Cancel(reason, s.Clock.Now()); err != nil {
		return err
	}
	return s.Store.UpdateInvoiceRow(ctx, inv)
}

// SendInvoiceReminder emails an overdue reminder and stamps the last
// reminder date.
func (s *InvoiceService) SendInvoiceReminder(ctx context.Context, id int) error {
	inv, err := s.Store.GetInvoice(ctx, id)
	if err != nil {
		return err
	}

	if s.Notifier != nil {
		if err := s.Notifier.SendInvoiceEmail(ctx, inv, EmailReminder); err != nil {
			return err
		}
	}

	now := s.Clock.Now()
	d := timeutil.StartOfDay(now)
	inv.LastReminderDate = &d
	inv.UpdatedAt = now
	return s.Store.UpdateInvoiceRow(ctx, inv)
}

// GetOverdueInvoices returns unpaid, uncancelled invoices past their due
// date, ordered by due date ascending.
func (s *InvoiceService) GetOverdueInvoices(ctx context.Context) ([]*models.Invoice, error) {
	return s.Store.ListOverdueInvoices(ctx, timeutil.StartOfDay(s.Clock.Now()))
}

// GetUpcomingInvoices returns unpaid, uncancelled invoices due within the
// next N days, ordered by due date ascending.
func (s *InvoiceService) GetUpcomingInvoices(ctx context.Context, days int) ([]*models.Invoice, error) {
	today := timeutil.StartOfDay(s.Clock.Now())
	return s.Store.ListUpcomingInvoices(ctx, today, today.AddDate(0, 0, days))
}

// GetInvoicesByStatus returns per-status counts and summed totals for
// dashboard aggregation.
func (s *InvoiceService) GetInvoicesByStatus(ctx context.Context) ([]models.StatusSummary, error) {
	return s.Store.StatusSummary(ctx)
}

// GetMonthlyRevenue returns payment revenue grouped by month for a year, or
// by payment method when a month is given. A zero year means the current
// year.
func (s *InvoiceService) GetMonthlyRevenue(ctx context.Context, year, month int) ([]models.MonthlyRevenue, error) {
	if year == 0 {
		year = s.Clock.Now().Year()
	}
	return s.Store.MonthlyRevenue(ctx, year, month)
}

// recalculate reloads the item set, recomputes totals and status, and
// persists the invoice row.
func (s *InvoiceService) recalculate(ctx context.Context, inv *models.Invoice) error {
	items, err := s.Store.ListItems(ctx, inv.ID)
	if err != nil {
		return fmt.Errorf("failed to load invoice items: %w", err)
	}
	if items == nil {
		items = []models.InvoiceItem{}
	}

	inv.CalculateTotals(items, s.Clock.Now())

	if err := s.Store.UpdateInvoiceRow(ctx, inv); err != nil {
		return fmt.Errorf("failed to update invoice totals: %w", err)
	}
	return nil
}
