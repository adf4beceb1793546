package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"

	"crm-backend/internal/models"
)

// CreateOrderResponse carries the gateway order details the frontend needs
// to open the checkout widget.
type CreateOrderResponse struct {
	OrderID   string `json:"order_id"`
	Amount    int64  `json:"amount"` // in the smallest currency unit
	Currency  string `json:"currency"`
	KeyID     string `json:"key_id"`
	InvoiceID int    `json:"invoice_id"`
}

// VerifyPaymentRequest is the checkout callback payload from the frontend
type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
	InvoiceID         int    `json:"invoice_id"`
}

// PaymentGateway creates gateway orders for outstanding invoice balances
// and turns verified checkout callbacks into recorded payments.
type PaymentGateway struct {
	invoices  *InvoiceService
	keyID     string
	keySecret string
}

func NewPaymentGateway(keyID, keySecret string, invoices *InvoiceService) *PaymentGateway {
	return &PaymentGateway{
		invoices:  invoices,
		keyID:     keyID,
		keySecret: keySecret,
	}
}

// IsEnabled reports whether gateway credentials are configured
func (g *PaymentGateway) IsEnabled() bool {
	return g.keyID != "" && g.keySecret != ""
}

func (g *PaymentGateway) client() *razorpay.Client {
	if !g.IsEnabled() {
		return nil
	}
	return razorpay.NewClient(g.keyID, g.keySecret)
}

// CreateOrder creates a gateway order for the invoice's outstanding balance.
// Paid and cancelled invoices cannot take online payments.
func (g *PaymentGateway) CreateOrder(ctx context.Context, invoiceID int) (*CreateOrderResponse, error) {
	client := g.client()
	if client == nil {
		return nil, fmt.Errorf("payment gateway not configured")
	}

	inv, err := g.invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == models.StatusCancelled || inv.Status == models.StatusPaid {
		return nil, fmt.Errorf("invoice %s has no outstanding balance", inv.InvoiceNumber)
	}
	if inv.BalanceDue.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("invoice %s has no outstanding balance", inv.InvoiceNumber)
	}

	// Gateway amounts are in the smallest currency unit
	amountMinor := inv.BalanceDue.Mul(decimal.NewFromInt(100)).Round(0).IntPart()

	orderData := map[string]interface{}{
		"amount":   amountMinor,
		"currency": "USD",
		"receipt":  fmt.Sprintf("inv_%d_%d", inv.ID, time.Now().Unix()),
		"notes": map[string]interface{}{
			"invoice_id":     inv.ID,
			"invoice_number": inv.InvoiceNumber,
			"client_id":      inv.ClientID,
		},
	}

	order, err := client.Order.Create(orderData, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create razorpay order: %w", err)
	}

	orderID, _ := order["id"].(string)

	return &CreateOrderResponse{
		OrderID:   orderID,
		Amount:    amountMinor,
		Currency:  "USD",
		KeyID:     g.keyID,
		InvoiceID: inv.ID,
	}, nil
}

// VerifyPayment checks the checkout signature and records the payment
// against the invoice. Returns the updated invoice.
func (g *PaymentGateway) VerifyPayment(ctx context.Context, req *VerifyPaymentRequest) (*models.Invoice, error) {
	if !g.verifySignature(req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		return nil, fmt.Errorf("invalid payment signature")
	}

	client := g.client()
	if client == nil {
		return nil, fmt.Errorf("payment gateway not configured")
	}

	payment, err := client.Payment.Fetch(req.RazorpayPaymentID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment: %w", err)
	}

	amountMinor, ok := payment["amount"].(float64)
	if !ok || amountMinor <= 0 {
		return nil, fmt.Errorf("razorpay payment %s has no amount", req.RazorpayPaymentID)
	}
	amount := decimal.NewFromFloat(amountMinor).Div(decimal.NewFromInt(100)).Round(2)

	method := string(models.MethodOther)
	if m, ok := payment["method"].(string); ok {
		switch m {
		case "card":
			method = string(models.MethodCreditCard)
		case "netbanking", "upi":
			method = string(models.MethodBankTransfer)
		}
	}

	amountFloat, _ := amount.Float64()
	_, err = g.invoices.RecordPayment(ctx, models.PaymentRecord{
		InvoiceID:       req.InvoiceID,
		Amount:          amountFloat,
		PaymentMethod:   method,
		ReferenceNumber: req.RazorpayPaymentID,
		Notes:           fmt.Sprintf("Online payment via Razorpay order %s", req.RazorpayOrderID),
	})
	if err != nil {
		return nil, err
	}

	inv, err := g.invoices.GetInvoice(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}

	log.Printf("[Gateway] Recorded online payment of %s against invoice %s", amount, inv.InvoiceNumber)
	return inv, nil
}

// verifySignature checks the HMAC-SHA256 checkout signature
func (g *PaymentGateway) verifySignature(orderID, paymentID, signature string) bool {
	if g.keySecret == "" {
		return false
	}
	data := orderID + "|" + paymentID
	h := hmac.New(sha256.New, []byte(g.keySecret))
	h.Write([]byte(data))
	expected := hex.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
