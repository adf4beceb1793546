package models

import (
	"time"

	"github.com/shopspring/decimal"

	"crm-backend/internal/timeutil"
)

// PaymentMethod identifies how a payment was made
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "Cash"
	MethodCheck        PaymentMethod = "Check"
	MethodCreditCard   PaymentMethod = "Credit Card"
	MethodBankTransfer PaymentMethod = "Bank Transfer"
	MethodPayPal       PaymentMethod = "PayPal"
	MethodOther        PaymentMethod = "Other"
)

var validPaymentMethods = map[PaymentMethod]bool{
	MethodCash:         true,
	MethodCheck:        true,
	MethodCreditCard:   true,
	MethodBankTransfer: true,
	MethodPayPal:       true,
	MethodOther:        true,
}

// IsValid returns true if the payment method is a known method
func (m PaymentMethod) IsValid() bool {
	return validPaymentMethods[m]
}

// Payment represents a single payment applied against one invoice. Payments
// are immutable once recorded; deletion reverses their effect on the parent
// invoice's amount paid.
type Payment struct {
	ID              int             `json:"id"`
	InvoiceID       int             `json:"invoice_id"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentDate     time.Time       `json:"payment_date"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	ReferenceNumber string          `json:"reference_number"`
	Notes           string          `json:"notes"`
	CreatedByID     int             `json:"created_by_id"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// PaymentRecord is the loosely-typed form a payment arrives in. Unparseable
// dates fall back to today and an unknown method becomes Check.
type PaymentRecord struct {
	ID              *int     `json:"id"`
	InvoiceID       int      `json:"invoice_id"`
	Amount          float64  `json:"amount"`
	PaymentDate     string   `json:"payment_date"`
	PaymentMethod   string   `json:"payment_method"`
	ReferenceNumber string   `json:"reference_number"`
	Notes           string   `json:"notes"`
	CreatedByID     int      `json:"created_by_id"`
	SendReceipt     bool     `json:"send_receipt"`
}

// PaymentFromRecord builds a Payment from an untrusted record, coercing
// malformed fields to their defaults. Amount validity (> 0) is enforced at
// the point the payment is applied, not here.
func PaymentFromRecord(rec PaymentRecord, now time.Time) *Payment {
	p := &Payment{
		InvoiceID:       rec.InvoiceID,
		Amount:          decimal.NewFromFloat(rec.Amount).Round(2),
		PaymentDate:     timeutil.StartOfDay(now),
		PaymentMethod:   MethodCheck,
		ReferenceNumber: rec.ReferenceNumber,
		Notes:           rec.Notes,
		CreatedByID:     rec.CreatedByID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if rec.ID != nil {
		p.ID = *rec.ID
	}
	if rec.PaymentDate != "" {
		if d, err := time.Parse(timeutil.DateLayout, rec.PaymentDate); err == nil {
			p.PaymentDate = d
		}
	}
	if m := PaymentMethod(rec.PaymentMethod); m.IsValid() {
		p.PaymentMethod = m
	}

	return p
}
