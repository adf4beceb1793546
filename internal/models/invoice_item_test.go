package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func fptr(v float64) *float64 { return &v }
func bptr(v bool) *bool       { return &v }

func TestItemFromRecord(t *testing.T) {
	t.Run("applies defaults for absent fields", func(t *testing.T) {
		item := ItemFromRecord(InvoiceItemRecord{Description: "Concrete pour"}, testNow)

		assert.Equal(t, "Concrete pour", item.Description)
		assert.Equal(t, "1", item.Quantity.String())
		assert.True(t, item.UnitPrice.IsZero())
		assert.True(t, item.Amount.IsZero())
		assert.Equal(t, ItemTypeService, item.Type)
		assert.True(t, item.Taxable)
		assert.Zero(t, item.ID)
	})

	t.Run("derives amount from quantity and unit price", func(t *testing.T) {
		item := ItemFromRecord(InvoiceItemRecord{
			Quantity:  fptr(3),
			UnitPrice: fptr(19.99),
		}, testNow)

		assert.Equal(t, "59.97", item.Amount.StringFixed(2))
	})

	t.Run("an explicit amount wins over the derived one", func(t *testing.T) {
		item := ItemFromRecord(InvoiceItemRecord{
			Quantity:  fptr(3),
			UnitPrice: fptr(19.99),
			Amount:    fptr(55),
		}, testNow)

		assert.Equal(t, "55.00", item.Amount.StringFixed(2))
	})

	t.Run("unknown type falls back to Service", func(t *testing.T) {
		item := ItemFromRecord(InvoiceItemRecord{Type: "Consulting"}, testNow)
		assert.Equal(t, ItemTypeService, item.Type)

		item = ItemFromRecord(InvoiceItemRecord{Type: "Labor"}, testNow)
		assert.Equal(t, ItemTypeLabor, item.Type)
	})

	t.Run("non-taxable flag is kept", func(t *testing.T) {
		item := ItemFromRecord(InvoiceItemRecord{Taxable: bptr(false)}, testNow)
		assert.False(t, item.Taxable)
	})
}

func TestCalculateAmount(t *testing.T) {
	tests := []struct {
		name      string
		quantity  float64
		unitPrice float64
		expected  string
	}{
		{"whole numbers", 4, 25, "100.00"},
		{"rounds half up", 3, 33.335, "100.01"},
		{"zero quantity", 0, 50, "0.00"},
		{"fractional quantity", 2.5, 80, "200.00"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			item := InvoiceItem{
				Quantity:  decimal.NewFromFloat(tc.quantity),
				UnitPrice: decimal.NewFromFloat(tc.unitPrice),
			}
			assert.Equal(t, tc.expected, item.CalculateAmount(testNow).StringFixed(2))
		})
	}
}

func TestPaymentFromRecord(t *testing.T) {
	t.Run("coerces malformed fields to defaults", func(t *testing.T) {
		p := PaymentFromRecord(PaymentRecord{
			InvoiceID:     4,
			Amount:        125.50,
			PaymentDate:   "not-a-date",
			PaymentMethod: "Barter",
		}, testNow)

		assert.Equal(t, 4, p.InvoiceID)
		assert.Equal(t, "125.50", p.Amount.StringFixed(2))
		assert.Equal(t, MethodCheck, p.PaymentMethod, "unknown method becomes Check")
		assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), p.PaymentDate)
	})

	t.Run("keeps a valid method and date", func(t *testing.T) {
		p := PaymentFromRecord(PaymentRecord{
			Amount:        50,
			PaymentDate:   "2024-05-02",
			PaymentMethod: "Credit Card",
		}, testNow)

		assert.Equal(t, MethodCreditCard, p.PaymentMethod)
		assert.Equal(t, "2024-05-02", p.PaymentDate.Format("2006-01-02"))
	})
}
