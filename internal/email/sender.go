package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"crm-backend/internal/clock"
	"crm-backend/internal/models"
	"crm-backend/internal/services"
)

// Sender delivers invoice emails through an HTTP mail API. The mail service
// resolves the client's address from the client id; this process only
// supplies subject, body and the invoice reference.
type Sender struct {
	APIURL      string
	APIKey      string
	CompanyName string
	Clock       clock.Clock
	HTTPClient  *http.Client
}

var _ services.Notifier = (*Sender)(nil)

// NewSender creates a new invoice email sender
func NewSender(apiURL, apiKey, companyName string, clk clock.Clock) *Sender {
	return &Sender{
		APIURL:      apiURL,
		APIKey:      apiKey,
		CompanyName: companyName,
		Clock:       clk,
		HTTPClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

type emailRequest struct {
	ClientID  int    `json:"client_id"`
	InvoiceID int    `json:"invoice_id"`
	Template  string `json:"template"`
	Subject   string `json:"subject"`
}

// SendInvoiceEmail sends a new/reminder/receipt email for the invoice
func (s *Sender) SendInvoiceEmail(ctx context.Context, inv *models.Invoice, kind services.EmailKind) error {
	if s.APIURL == "" {
		// Mail delivery not configured; invoice mutations proceed regardless
		log.Printf("[Email] Skipping %s email for invoice %s (no mail API configured)", kind, inv.InvoiceNumber)
		return nil
	}

	var subject, template string
	switch kind {
	case services.EmailReminder:
		subject = fmt.Sprintf("Reminder: Invoice #%s is %d days overdue",
			inv.InvoiceNumber, inv.DaysOverdue(s.Clock.Now()))
		template = "invoice_reminder"
	case services.EmailReceipt:
		subject = fmt.Sprintf("Payment Receipt for Invoice #%s", inv.InvoiceNumber)
		template = "invoice_receipt"
	default:
		subject = fmt.Sprintf("Invoice #%s from %s", inv.InvoiceNumber, s.CompanyName)
		template = "invoice_new"
	}

	body, err := json.Marshal(emailRequest{
		ClientID:  inv.ClientID,
		InvoiceID: inv.ID,
		Template:  template,
		Subject:   subject,
	})
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.APIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.APIKey)

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		log.Printf("[Email] Failed to send %s email for invoice %s: %v", kind, inv.InvoiceNumber, err)
		return fmt.Errorf("failed to send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("[Email] Mail API returned %d for invoice %s", resp.StatusCode, inv.InvoiceNumber)
		return fmt.Errorf("mail API returned status %d", resp.StatusCode)
	}
	return nil
}
