package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceFilter narrows invoice listings
type InvoiceFilter struct {
	Status    InvoiceStatus `json:"status"`
	ClientID  int           `json:"client_id"`
	ProjectID int           `json:"project_id"`
	DateFrom  *time.Time    `json:"date_from"`
	DateTo    *time.Time    `json:"date_to"`
	Limit     int           `json:"limit"`
	Offset    int           `json:"offset"`
}

// StatusSummary is one row of the per-status dashboard aggregate
type StatusSummary struct {
	Status InvoiceStatus   `json:"status"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

// MonthlyRevenue is one row of the payment revenue report: grouped by month
// across a year, or by payment method within a single month.
type MonthlyRevenue struct {
	Month         int             `json:"month,omitempty"`
	PaymentMethod PaymentMethod   `json:"payment_method,omitempty"`
	Total         decimal.Decimal `json:"total"`
}
