package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"crm-backend/internal/timeutil"
)

// InvoiceStatus is an invoice lifecycle state
type InvoiceStatus string

const (
	StatusDraft         InvoiceStatus = "Draft"
	StatusSent          InvoiceStatus = "Sent"
	StatusViewed        InvoiceStatus = "Viewed"
	StatusPartiallyPaid InvoiceStatus = "Partially Paid"
	StatusPaid          InvoiceStatus = "Paid"
	StatusOverdue       InvoiceStatus = "Overdue"
	StatusCancelled     InvoiceStatus = "Cancelled"
)

var validStatuses = map[InvoiceStatus]bool{
	StatusDraft:         true,
	StatusSent:          true,
	StatusViewed:        true,
	StatusPartiallyPaid: true,
	StatusPaid:          true,
	StatusOverdue:       true,
	StatusCancelled:     true,
}

// allowedTransitions is the single source of truth for status movement.
// Both the explicit operations (send, view, cancel) and the automatic
// recalculation consult it, so the two paths cannot disagree.
var allowedTransitions = map[InvoiceStatus][]InvoiceStatus{
	StatusDraft:         {StatusSent, StatusCancelled},
	StatusSent:          {StatusViewed, StatusPartiallyPaid, StatusPaid, StatusOverdue, StatusCancelled},
	StatusViewed:        {StatusPartiallyPaid, StatusPaid, StatusOverdue, StatusCancelled},
	StatusPartiallyPaid: {StatusPaid, StatusOverdue, StatusSent, StatusCancelled},
	StatusOverdue:       {StatusPartiallyPaid, StatusPaid, StatusSent, StatusCancelled},
	StatusPaid:          {StatusPartiallyPaid, StatusOverdue, StatusSent},
	StatusCancelled:     {},
}

// IsValid returns true if the status is a known lifecycle state
func (s InvoiceStatus) IsValid() bool {
	return validStatuses[s]
}

// String returns the string representation of the status
func (s InvoiceStatus) String() string {
	return string(s)
}

// CanTransition reports whether moving from one status to another is
// permitted by the transition table.
func CanTransition(from, to InvoiceStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

var (
	// ErrInvalidTransition is reported when a status change is not permitted
	// from the current state
	ErrInvalidTransition = errors.New("invalid_status_transition")

	// ErrMissingClient is reported when an invoice is created without a client
	ErrMissingClient = errors.New("missing_client_id")
)

// Invoice is the aggregate root for billing: header fields, monetary totals,
// the status state machine and the totals recalculation algorithm. It owns
// its line items and payments exclusively.
type Invoice struct {
	ID                  int             `json:"id"`
	InvoiceNumber       string          `json:"invoice_number"`
	ClientID            int             `json:"client_id"`
	ProjectID           *int            `json:"project_id"`
	Status              InvoiceStatus   `json:"status"`
	IssueDate           time.Time       `json:"issue_date"`
	DueDate             time.Time       `json:"due_date"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	TaxRate             decimal.Decimal `json:"tax_rate"`
	TaxAmount           decimal.Decimal `json:"tax_amount"`
	DiscountAmount      decimal.Decimal `json:"discount_amount"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	AmountPaid          decimal.Decimal `json:"amount_paid"`
	BalanceDue          decimal.Decimal `json:"balance_due"`
	Notes               string          `json:"notes"`
	Terms               string          `json:"terms"`
	Footer              string          `json:"footer"`
	PaymentInstructions string          `json:"payment_instructions"`
	SentDate            *time.Time      `json:"sent_date"`
	PaidDate            *time.Time      `json:"paid_date"`
	LastReminderDate    *time.Time      `json:"last_reminder_date"`
	CreatedByID         int             `json:"created_by_id"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`

	Items []InvoiceItem `json:"items,omitempty"`
}

// NewInvoice creates a Draft invoice with zero totals. The client id is
// required; a zero due date defaults to issue date + 30 days. An explicit
// due date is taken as given, even when it precedes the issue date.
func NewInvoice(clientID int, issueDate, dueDate time.Time, now time.Time) (*Invoice, error) {
	if clientID <= 0 {
		return nil, ErrMissingClient
	}

	if issueDate.IsZero() {
		issueDate = timeutil.StartOfDay(now)
	}
	if dueDate.IsZero() {
		dueDate = issueDate.AddDate(0, 0, 30)
	}

	return &Invoice{
		ClientID:       clientID,
		Status:         StatusDraft,
		IssueDate:      issueDate,
		DueDate:        dueDate,
		Subtotal:       decimal.Zero,
		TaxRate:        decimal.Zero,
		TaxAmount:      decimal.Zero,
		DiscountAmount: decimal.Zero,
		TotalAmount:    decimal.Zero,
		AmountPaid:     decimal.Zero,
		BalanceDue:     decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// InvoiceRecord is the loosely-typed header form used by create and update
// requests. Nil fields are "not supplied" and leave the stored value alone.
type InvoiceRecord struct {
	InvoiceNumber       *string             `json:"invoice_number"`
	ClientID            *int                `json:"client_id"`
	ProjectID           *int                `json:"project_id"`
	Status              *string             `json:"status"`
	IssueDate           *string             `json:"issue_date"`
	DueDate             *string             `json:"due_date"`
	TaxRate             *float64            `json:"tax_rate"`
	DiscountAmount      *float64            `json:"discount_amount"`
	Notes               *string             `json:"notes"`
	Terms               *string             `json:"terms"`
	Footer              *string             `json:"footer"`
	PaymentInstructions *string             `json:"payment_instructions"`
	CreatedByID         *int                `json:"created_by_id"`
	Items               []InvoiceItemRecord `json:"items"`
}

// ApplyRecord copies the supplied header fields onto the invoice. Unknown
// statuses and unparseable dates are ignored rather than rejected.
func (inv *Invoice) ApplyRecord(rec InvoiceRecord) {
	if rec.InvoiceNumber != nil {
		inv.InvoiceNumber = *rec.InvoiceNumber
	}
	if rec.ClientID != nil && *rec.ClientID > 0 {
		inv.ClientID = *rec.ClientID
	}
	if rec.ProjectID != nil {
		inv.ProjectID = rec.ProjectID
	}
	if rec.Status != nil {
		if s := InvoiceStatus(*rec.Status); s.IsValid() {
			inv.Status = s
		}
	}
	if rec.IssueDate != nil {
		if d, err := timeutil.ParseDate(*rec.IssueDate); err == nil {
			inv.IssueDate = d
		}
	}
	if rec.DueDate != nil {
		if d, err := timeutil.ParseDate(*rec.DueDate); err == nil {
			inv.DueDate = d
		}
	}
	if rec.TaxRate != nil {
		inv.TaxRate = decimal.NewFromFloat(*rec.TaxRate)
	}
	if rec.DiscountAmount != nil {
		inv.DiscountAmount = decimal.NewFromFloat(*rec.DiscountAmount).Round(2)
	}
	if rec.Notes != nil {
		inv.Notes = *rec.Notes
	}
	if rec.Terms != nil {
		inv.Terms = *rec.Terms
	}
	if rec.Footer != nil {
		inv.Footer = *rec.Footer
	}
	if rec.PaymentInstructions != nil {
		inv.PaymentInstructions = *rec.PaymentInstructions
	}
	if rec.CreatedByID != nil {
		inv.CreatedByID = *rec.CreatedByID
	}
}

// CalculateTotals recomputes subtotal, tax, total and balance, then applies
// the automatic status rule. When items is non-nil it replaces the invoice's
// item set; otherwise the currently held items (or, lacking those, the
// stored subtotal) drive the calculation.
func (inv *Invoice) CalculateTotals(items []InvoiceItem, now time.Time) *Invoice {
	if items != nil {
		inv.Items = items
	}

	taxableSubtotal := inv.Subtotal
	if inv.Items != nil {
		subtotal := decimal.Zero
		taxable := decimal.Zero
		for _, item := range inv.Items {
			subtotal = subtotal.Add(item.Amount)
			if item.Taxable {
				taxable = taxable.Add(item.Amount)
			}
		}
		inv.Subtotal = subtotal
		taxableSubtotal = taxable
	}

	if inv.TaxRate.IsZero() {
		inv.TaxAmount = decimal.Zero
	} else {
		inv.TaxAmount = taxableSubtotal.Mul(inv.TaxRate).Div(decimal.NewFromInt(100)).Round(2)
	}

	inv.TotalAmount = inv.Subtotal.Add(inv.TaxAmount).Sub(inv.DiscountAmount)
	inv.BalanceDue = inv.TotalAmount.Sub(inv.AmountPaid)

	inv.applyPaymentStatus(now)
	inv.UpdatedAt = now
	return inv
}

// applyPaymentStatus is the automatic transition rule. Draft and Cancelled
// are never changed here. The fully-paid check precedes the partial-payment
// check, which precedes the overdue check: a zero balance always wins.
func (inv *Invoice) applyPaymentStatus(now time.Time) {
	if inv.Status == StatusDraft || inv.Status == StatusCancelled {
		return
	}

	switch {
	case inv.BalanceDue.Sign() <= 0:
		if inv.transition(StatusPaid) && inv.PaidDate == nil {
			d := timeutil.StartOfDay(now)
			inv.PaidDate = &d
		}
	case inv.AmountPaid.Sign() > 0:
		inv.transition(StatusPartiallyPaid)
	case timeutil.StartOfDay(now).After(timeutil.StartOfDay(inv.DueDate)):
		inv.transition(StatusOverdue)
	case inv.Status != StatusSent && inv.Status != StatusViewed:
		inv.transition(StatusSent)
	}
}

// transition moves to the next status when the table permits it. Staying in
// the current status is always allowed.
func (inv *Invoice) transition(next InvoiceStatus) bool {
	if inv.Status == next {
		return true
	}
	if !CanTransition(inv.Status, next) {
		return false
	}
	inv.Status = next
	return true
}

// MarkSent applies the Draft -> Sent transition and stamps the sent date.
// Any other starting status reports ErrInvalidTransition without mutation.
func (inv *Invoice) MarkSent(now time.Time) error {
	if inv.Status != StatusDraft || !inv.transition(StatusSent) {
		return ErrInvalidTransition
	}
	d := timeutil.StartOfDay(now)
	inv.SentDate = &d
	inv.UpdatedAt = now
	return nil
}

// MarkViewed records the external "client viewed" signal. Only valid from
// Sent.
func (inv *Invoice) MarkViewed(now time.Time) error {
	if inv.Status != StatusSent || !inv.transition(StatusViewed) {
		return ErrInvalidTransition
	}
	inv.UpdatedAt = now
	return nil
}

// Cancel moves the invoice to Cancelled, appending an optional reason to the
// notes. Paid and already-cancelled invoices cannot be cancelled.
func (inv *Invoice) Cancel(reason string, now time.Time) error {
	if inv.Status == StatusPaid || inv.Status == StatusCancelled {
		return ErrInvalidTransition
	}
	if !inv.transition(StatusCancelled) {
		return ErrInvalidTransition
	}
	if reason != "" {
		note := "Cancellation reason: " + reason
		if inv.Notes == "" {
			inv.Notes = note
		} else {
			inv.Notes = inv.Notes + "\n\n" + note
		}
	}
	inv.UpdatedAt = now
	return nil
}

// AddPayment applies a payment amount to the invoice. Non-positive amounts
// are rejected without mutation. Overpayment is permitted and leaves a
// negative balance.
func (inv *Invoice) AddPayment(amount decimal.Decimal, now time.Time) bool {
	if amount.Sign() <= 0 {
		return false
	}

	inv.AmountPaid = inv.AmountPaid.Add(amount)
	inv.BalanceDue = inv.TotalAmount.Sub(inv.AmountPaid)
	inv.applyPaymentStatus(now)
	inv.UpdatedAt = now
	return true
}

// IsOverdue reports whether the invoice carries a balance past its due date.
// This is a live recomputation, independent of the stored Overdue status.
func (inv *Invoice) IsOverdue(now time.Time) bool {
	if inv.DueDate.IsZero() {
		return false
	}
	return timeutil.StartOfDay(now).After(timeutil.StartOfDay(inv.DueDate)) && inv.BalanceDue.Sign() > 0
}

// DaysOverdue returns how many days past due the invoice is, 0 when not
// overdue.
func (inv *Invoice) DaysOverdue(now time.Time) int {
	if !inv.IsOverdue(now) {
		return 0
	}
	return timeutil.DaysBetween(inv.DueDate, now)
}

// DaysUntilDue returns how many days remain before the due date, 0 once
// overdue.
func (inv *Invoice) DaysUntilDue(now time.Time) int {
	if inv.IsOverdue(now) {
		return 0
	}
	return timeutil.DaysBetween(now, inv.DueDate)
}
