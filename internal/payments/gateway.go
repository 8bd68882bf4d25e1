package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"notaryorders/internal/domain"
	"notaryorders/internal/retryhttp"
)

// Config holds the payment gateway credentials.
type Config struct {
	BaseURL    string
	SecretKey  string
	SuccessURL string
	CancelURL  string
}

// Gateway talks to the payment gateway's form-encoded REST API.
// Sessions are created in manual-capture mode so the funds are held,
// not moved, until fulfillment completes.
type Gateway struct {
	cfg    Config
	http   *retryhttp.Client
	logger *log.Logger
}

func NewGateway(cfg Config, rc *retryhttp.Client, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Gateway{cfg: cfg, http: rc, logger: logger}
}

// SessionLine is one displayed line of the checkout page.
type SessionLine struct {
	Name        string
	Description string
	AmountCents int64
}

// Session is the gateway's checkout session, reduced to what this
// service reads back.
type Session struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentIntent string `json:"payment_intent"`
	AmountTotal   int64  `json:"amount_total"`
	PaymentStatus string `json:"payment_status"`
	Status        string `json:"status"`
}

// Intent is a payment intent, reduced to status and amounts.
type Intent struct {
	ID                 string `json:"id"`
	Status             string `json:"status"`
	Amount             int64  `json:"amount"`
	AmountCapturable   int64  `json:"amount_capturable"`
	AmountReceived     int64  `json:"amount_received"`
	LatestChargeID     string `json:"latest_charge"`
	CancellationReason string `json:"cancellation_reason"`
}

// CreateCheckoutSession opens a held-payment checkout for the order.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, order *domain.Order, lines []SessionLine) (*Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("payment_intent_data[capture_method]", "manual")
	form.Set("success_url", g.cfg.SuccessURL+"?status=success&session_id={CHECKOUT_SESSION_ID}")
	form.Set("cancel_url", g.cfg.CancelURL+"?status=cancel")
	form.Set("metadata[order_id]", order.ID)
	if order.ContactEmail != "" {
		form.Set("customer_email", order.ContactEmail)
	}
	for i, line := range lines {
		p := fmt.Sprintf("line_items[%d]", i)
		form.Set(p+"[quantity]", "1")
		form.Set(p+"[price_data][currency]", "usd")
		form.Set(p+"[price_data][unit_amount]", strconv.FormatInt(line.AmountCents, 10))
		form.Set(p+"[price_data][product_data][name]", line.Name)
		if line.Description != "" {
			form.Set(p+"[price_data][product_data][description]", line.Description)
		}
	}

	var session Session
	if err := g.call(ctx, "/v1/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// CaptureIntent captures the full held amount.
func (g *Gateway) CaptureIntent(ctx context.Context, intentID string) (*Intent, error) {
	var intent Intent
	if err := g.call(ctx, "/v1/payment_intents/"+intentID+"/capture", url.Values{}, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// CancelIntent releases the hold on an intent.
func (g *Gateway) CancelIntent(ctx context.Context, intentID string) (*Intent, error) {
	form := url.Values{}
	form.Set("cancellation_reason", "abandoned")
	var intent Intent
	if err := g.call(ctx, "/v1/payment_intents/"+intentID+"/cancel", form, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// ExpireSession expires a checkout session that never produced an
// intent, or whose intent id was lost before being recorded.
func (g *Gateway) ExpireSession(ctx context.Context, sessionID string) (*Session, error) {
	var session Session
	if err := g.call(ctx, "/v1/checkout/sessions/"+sessionID+"/expire", url.Values{}, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// PromotionCode is a promo code looked up on the gateway.
type PromotionCode struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Active bool   `json:"active"`
	Coupon struct {
		ID         string  `json:"id"`
		PercentOff float64 `json:"percent_off"`
		AmountOff  int64   `json:"amount_off"`
		Valid      bool    `json:"valid"`
	} `json:"coupon"`
}

// GetPromotionCode resolves a promo code. Returns domain.ErrNotFound
// when the gateway knows no such code.
func (g *Gateway) GetPromotionCode(ctx context.Context, code string) (*PromotionCode, error) {
	q := url.Values{}
	q.Set("code", code)
	q.Set("limit", "1")
	var list struct {
		Data []PromotionCode `json:"data"`
	}
	if err := g.get(ctx, "/v1/promotion_codes?"+q.Encode(), &list); err != nil {
		return nil, err
	}
	if len(list.Data) == 0 {
		return nil, domain.ErrNotFound
	}
	return &list.Data[0], nil
}

type gatewayError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *Gateway) call(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return g.do(req, path, out)
}

func (g *Gateway) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return g.do(req, path, out)
}

func (g *Gateway) do(req *http.Request, path string, out interface{}) error {
	req.Header.Set("Authorization", "Bearer "+g.cfg.SecretKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		var ge gatewayError
		if json.Unmarshal(raw, &ge) == nil && ge.Error.Message != "" {
			return fmt.Errorf("gateway %s: %s (%s)", path, ge.Error.Message, ge.Error.Code)
		}
		return fmt.Errorf("gateway %s: status %d: %s", path, resp.StatusCode, string(raw))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway %s: %w", path, err)
	}
	return nil
}
