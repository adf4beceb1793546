package services

import (
	"context"
	"errors"
	"time"

	"crm-backend/internal/models"
)

var (
	ErrInvoiceNotFound = errors.New("invoice_not_found")
	ErrPaymentNotFound = errors.New("payment_not_found")
	ErrInvoiceNotDraft = errors.New("invoice_not_draft")
	ErrInvalidAmount   = errors.New("invalid_payment_amount")
)

// Store is the persistence collaborator for invoices, items and payments.
// Implementations: the Postgres repository and an in-memory store used in
// tests and when the database is unreachable.
type Store interface {
	GetInvoice(ctx context.Context, id int) (*models.Invoice, error)
	ListInvoices(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, error)
	InsertInvoice(ctx context.Context, inv *models.Invoice) (int, error)
	UpdateInvoiceRow(ctx context.Context, inv *models.Invoice) error
	DeleteInvoiceRow(ctx context.Context, id int) error
	CountInvoices(ctx context.Context) (int, error)
	InvoiceNumberExists(ctx context.Context, number string) (bool, error)

	InsertItem(ctx context.Context, item *models.InvoiceItem) (int, error)
	ListItems(ctx context.Context, invoiceID int) ([]models.InvoiceItem, error)
	DeleteItemsForInvoice(ctx context.Context, invoiceID int) error

	GetPayment(ctx context.Context, id int) (*models.Payment, error)
	ListPayments(ctx context.Context, invoiceID int) ([]*models.Payment, error)
	InsertPayment(ctx context.Context, p *models.Payment) (int, error)
	DeletePaymentRow(ctx context.Context, id int) error
	DeletePaymentsForInvoice(ctx context.Context, invoiceID int) error

	ListOverdueInvoices(ctx context.Context, today time.Time) ([]*models.Invoice, error)
	ListUpcomingInvoices(ctx context.Context, from, to time.Time) ([]*models.Invoice, error)
	StatusSummary(ctx context.Context) ([]models.StatusSummary, error)
	MonthlyRevenue(ctx context.Context, year, month int) ([]models.MonthlyRevenue, error)
}

// EmailKind selects the invoice email template
type EmailKind string

const (
	EmailNew      EmailKind = "new"
	EmailReminder EmailKind = "reminder"
	EmailReceipt  EmailKind = "receipt"
)

// Notifier sends invoice emails. A failed send never rolls back the invoice
// mutation that triggered it.
type Notifier interface {
	SendInvoiceEmail(ctx context.Context, inv *models.Invoice, kind EmailKind) error
}
