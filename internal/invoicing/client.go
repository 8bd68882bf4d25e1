package invoicing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"notaryorders/internal/retryhttp"
)

const apiVersion = "2021-07-28"

// Config identifies the invoicing tenant.
type Config struct {
	BaseURL     string
	AccessToken string
	LocationID  string
	UserID      string
}

// Client calls the invoicing API through the shared retrying client.
type Client struct {
	cfg    Config
	http   *retryhttp.Client
	logger *log.Logger
}

func NewClient(cfg Config, rc *retryhttp.Client, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Client{cfg: cfg, http: rc, logger: logger}
}

// Invoice is the subset of the created document this service keeps.
type Invoice struct {
	ID            string  `json:"_id"`
	InvoiceNumber string  `json:"invoiceNumber"`
	Status        string  `json:"status"`
	Total         float64 `json:"total"`
}

// Create posts the document and returns the created invoice.
func (c *Client) Create(ctx context.Context, doc Document) (*Invoice, error) {
	var inv Invoice
	if err := c.call(ctx, http.MethodPost, "/invoices/", doc, http.StatusCreated, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Send delivers the invoice to the customer by email.
func (c *Client) Send(ctx context.Context, invoiceID string) error {
	payload := map[string]interface{}{
		"altId":    c.cfg.LocationID,
		"altType":  "location",
		"userId":   c.cfg.UserID,
		"action":   "send_manually",
		"liveMode": true,
	}
	return c.call(ctx, http.MethodPost, "/invoices/"+invoiceID+"/send", payload, http.StatusOK, nil)
}

// RecordPayment marks the invoice paid out-of-band, since the money
// moved through the payment gateway rather than the invoicing system.
func (c *Client) RecordPayment(ctx context.Context, invoiceID string, amountCents int64) error {
	payload := map[string]interface{}{
		"altId":   c.cfg.LocationID,
		"altType": "location",
		"mode":    "cash",
		"notes":   "Captured through the order checkout flow",
		"amount":  float64(amountCents) / 100,
	}
	return c.call(ctx, http.MethodPost, "/invoices/"+invoiceID+"/record-payment", payload, http.StatusOK, nil)
}

func (c *Client) call(ctx context.Context, method, path string, body interface{}, wantStatus int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
