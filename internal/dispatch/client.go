package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"notaryorders/internal/retryhttp"
)

// Config holds the dispatch platform credentials. The API key is fixed
// per tenant; there is no token refresh.
type Config struct {
	BaseURL  string
	APIKey   string
	ClientID int64
}

// Client calls the dispatch platform. The platform rate-limits with 429,
// which the shared retrying client absorbs.
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

// ClientRecord is a client company as the platform returns it.
type ClientRecord struct {
	ID              int64  `json:"id"`
	OwnerID         int64  `json:"owner_id"`
	ParentCompanyID *int64 `json:"parent_company_id"`
	Type            string `json:"type"`
	CompanyName     string `json:"company_name"`
	DeletedAt       string `json:"deleted_at"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
	Active          bool   `json:"active"`
}

// UserRecord is a client user as the platform returns it.
type UserRecord struct {
	ID        int64             `json:"id"`
	Email     string            `json:"email"`
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Attr      map[string]string `json:"attr"`
	Disabled  bool              `json:"disabled"`
	Type      string            `json:"type"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
}

// Page wraps one page of a list response. Next is an absolute URL or
// empty on the last page.
type Page[T any] struct {
	Data []T
	Next string
}

type listEnvelope[T any] struct {
	Data  []T `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

// ListClients fetches one page of client companies. Pass pageURL="" for
// the first page, then the returned Next until it is empty.
func (c *Client) ListClients(ctx context.Context, pageURL string) (*Page[ClientRecord], error) {
	if pageURL == "" {
		pageURL = c.cfg.BaseURL + "/v1/clients"
	}
	var env listEnvelope[ClientRecord]
	if err := c.call(ctx, http.MethodGet, pageURL, nil, http.StatusOK, &env); err != nil {
		return nil, err
	}
	return &Page[ClientRecord]{Data: env.Data, Next: env.Links.Next}, nil
}

// GetClient fetches one client company by id.
func (c *Client) GetClient(ctx context.Context, id int64) (*ClientRecord, error) {
	var env struct {
		Data ClientRecord `json:"data"`
	}
	url := c.cfg.BaseURL + "/v1/clients/" + strconv.FormatInt(id, 10)
	if err := c.call(ctx, http.MethodGet, url, nil, http.StatusOK, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// ListClientUsers fetches one page of a client's users.
func (c *Client) ListClientUsers(ctx context.Context, clientID int64, pageURL string) (*Page[UserRecord], error) {
	if pageURL == "" {
		pageURL = c.cfg.BaseURL + "/v1/clients/" + strconv.FormatInt(clientID, 10) + "/users"
	}
	var env listEnvelope[UserRecord]
	if err := c.call(ctx, http.MethodGet, pageURL, nil, http.StatusOK, &env); err != nil {
		return nil, err
	}
	return &Page[UserRecord]{Data: env.Data, Next: env.Links.Next}, nil
}

// ProductRequest prices the service on the dispatch side. ChargeAmount
// is dollars, not cents.
type ProductRequest struct {
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	ChargeAmount float64 `json:"charge_amount"`
}

type ProductRecord struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CreateProduct creates a priced product scoped to the configured client.
func (c *Client) CreateProduct(ctx context.Context, req ProductRequest) (*ProductRecord, error) {
	var env struct {
		Data ProductRecord `json:"data"`
	}
	url := c.cfg.BaseURL + "/v1/clients/" + strconv.FormatInt(c.cfg.ClientID, 10) + "/products"
	if err := c.call(ctx, http.MethodPost, url, req, http.StatusCreated, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// OrderRequest is the work order referencing a previously created product.
type OrderRequest struct {
	ClientID  int64        `json:"client_id"`
	ProductID int64        `json:"product_id"`
	Signer    Signer       `json:"signer"`
	Cosigner  *Signer      `json:"cosigner,omitempty"`
	Location  Location     `json:"location"`
	Schedule  *Appointment `json:"appointment,omitempty"`
	Notes     string       `json:"notes,omitempty"`
}

type Signer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type Location struct {
	Address1 string `json:"address_1"`
	Address2 string `json:"address_2,omitempty"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
}

type Appointment struct {
	At  string `json:"at"`
	TBD bool   `json:"tbd"`
}

type OrderRecord struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// CreateOrder creates the work order.
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*OrderRecord, error) {
	var env struct {
		Data OrderRecord `json:"data"`
	}
	if err := c.call(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/orders", req, http.StatusCreated, &env); err != nil {
		return nil, err
	}
	return &env.Data, nil
}

func (c *Client) call(ctx context.Context, method, url string, body interface{}, wantStatus int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: status %d: %s", method, url, resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, url, err)
	}
	return nil
}
