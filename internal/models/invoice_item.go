package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemType categorizes an invoice line item
type ItemType string

const (
	ItemTypeService   ItemType = "Service"
	ItemTypeProduct   ItemType = "Product"
	ItemTypeLabor     ItemType = "Labor"
	ItemTypeMaterial  ItemType = "Material"
	ItemTypeEquipment ItemType = "Equipment"
	ItemTypeOther     ItemType = "Other"
)

var validItemTypes = map[ItemType]bool{
	ItemTypeService:   true,
	ItemTypeProduct:   true,
	ItemTypeLabor:     true,
	ItemTypeMaterial:  true,
	ItemTypeEquipment: true,
	ItemTypeOther:     true,
}

// IsValid returns true if the item type is a known type
func (t ItemType) IsValid() bool {
	return validItemTypes[t]
}

// InvoiceItem represents a single billable line on an invoice
type InvoiceItem struct {
	ID          int             `json:"id"`
	InvoiceID   int             `json:"invoice_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
	Type        ItemType        `json:"type"`
	SortOrder   int             `json:"sort_order"`
	Taxable     bool            `json:"taxable"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// InvoiceItemRecord is the loosely-typed form an item arrives in from a
// request body or an external row. Absent fields get documented defaults:
// quantity 1, unit price 0, amount 0, type Service, taxable true.
type InvoiceItemRecord struct {
	ID          *int     `json:"id"`
	InvoiceID   *int     `json:"invoice_id"`
	Description string   `json:"description"`
	Quantity    *float64 `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price"`
	Amount      *float64 `json:"amount"`
	Type        string   `json:"type"`
	SortOrder   *int     `json:"sort_order"`
	Taxable     *bool    `json:"taxable"`
}

// ItemFromRecord builds an InvoiceItem from an untrusted record. All inputs
// are coerced, never rejected: negative or missing numbers fall back to the
// defaults, unknown types become Service. An absent id yields a
// not-yet-persisted item (ID zero).
func ItemFromRecord(rec InvoiceItemRecord, now time.Time) *InvoiceItem {
	item := &InvoiceItem{
		Description: rec.Description,
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.Zero,
		Amount:      decimal.Zero,
		Type:        ItemTypeService,
		Taxable:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if rec.ID != nil {
		item.ID = *rec.ID
	}
	if rec.InvoiceID != nil {
		item.InvoiceID = *rec.InvoiceID
	}
	if rec.Quantity != nil {
		item.Quantity = decimal.NewFromFloat(*rec.Quantity)
	}
	if rec.UnitPrice != nil {
		item.UnitPrice = decimal.NewFromFloat(*rec.UnitPrice)
	}
	if rec.Amount != nil {
		item.Amount = decimal.NewFromFloat(*rec.Amount).Round(2)
	}
	if t := ItemType(rec.Type); t.IsValid() {
		item.Type = t
	}
	if rec.SortOrder != nil {
		item.SortOrder = *rec.SortOrder
	}
	if rec.Taxable != nil {
		item.Taxable = *rec.Taxable
	}

	// Derive the amount when it was not supplied explicitly
	if item.Amount.IsZero() && !item.Quantity.IsZero() && !item.UnitPrice.IsZero() {
		item.CalculateAmount(now)
	}

	return item
}

// CalculateAmount sets amount = round(quantity * unit price, 2). A zero
// quantity or unit price simply produces a zero amount.
func (i *InvoiceItem) CalculateAmount(now time.Time) decimal.Decimal {
	i.Amount = i.Quantity.Mul(i.UnitPrice).Round(2)
	i.UpdatedAt = now
	return i.Amount
}
