package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"notaryorders/internal/domain"
	"notaryorders/internal/retryhttp"
)

const apiVersion = "2021-07-28"

// Config identifies the CRM tenant. The access token is refreshed by an
// external collaborator; this client only attaches it.
type Config struct {
	BaseURL     string
	AccessToken string
	LocationID  string
}

// DuplicateError reports a contact-create conflict along with the id of
// the contact the CRM already holds for the email/phone.
type DuplicateError struct {
	ContactID string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("contact already exists: %s", e.ContactID)
}

// Client calls the CRM contact API through the shared retrying client.
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

// ContactInput is the create/update payload.
type ContactInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Country   string `json:"country"`
	Type      string `json:"type"`
}

type apiContact struct {
	ID          string `json:"id"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Country     string `json:"country"`
	LocationID  string `json:"locationId"`
	Type        string `json:"type"`
	DateAdded   string `json:"dateAdded"`
}

func (c apiContact) toDomain() domain.Contact {
	added, _ := time.Parse(time.RFC3339, c.DateAdded)
	return domain.Contact{
		ID:         c.ID,
		FirstName:  c.FirstName,
		LastName:   c.LastName,
		Email:      c.Email,
		Phone:      c.Phone,
		Country:    c.Country,
		LocationID: c.LocationID,
		Type:       c.Type,
		DateAdded:  added,
	}
}

type searchFilter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// Search finds contacts by case-insensitive email, optionally narrowed
// by phone. Newest first.
func (c *Client) Search(ctx context.Context, email, phone string) ([]domain.Contact, error) {
	filters := []searchFilter{{Field: "email", Operator: "eq", Value: email}}
	if phone != "" {
		filters = append(filters, searchFilter{Field: "phone", Operator: "eq", Value: phone})
	}
	body := map[string]interface{}{
		"locationId": c.cfg.LocationID,
		"page":       1,
		"pageLimit":  20,
		"filters":    filters,
		"sort": []map[string]string{
			{"field": "dateAdded", "direction": "desc"},
		},
	}

	var out struct {
		Contacts []apiContact `json:"contacts"`
	}
	if err := c.call(ctx, http.MethodPost, "/contacts/search", body, http.StatusOK, &out); err != nil {
		return nil, err
	}
	contacts := make([]domain.Contact, 0, len(out.Contacts))
	for _, ac := range out.Contacts {
		contacts = append(contacts, ac.toDomain())
	}
	return contacts, nil
}

// Create posts a new contact. A duplicate response is returned as a
// *DuplicateError carrying the existing contact id.
func (c *Client) Create(ctx context.Context, in ContactInput) (*domain.Contact, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/contacts/", in)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusCreated:
		var out struct {
			Contact apiContact `json:"contact"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return nil, fmt.Errorf("decode create contact: %w", err)
		}
		contact := out.Contact.toDomain()
		return &contact, nil
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusBadRequest:
		// The CRM reports duplicates as an error body carrying the
		// conflicting contact id.
		var errBody struct {
			Message string `json:"message"`
			Meta    struct {
				ContactID string `json:"contactId"`
			} `json:"meta"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(raw, &errBody); err == nil && errBody.Meta.ContactID != "" {
			return nil, &DuplicateError{ContactID: errBody.Meta.ContactID}
		}
		return nil, fmt.Errorf("create contact: status %d: %s", resp.StatusCode, string(raw))
	default:
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("create contact: status %d: %s", resp.StatusCode, string(raw))
	}
}

// Get fetches one contact by id.
func (c *Client) Get(ctx context.Context, id string) (*domain.Contact, error) {
	var out struct {
		Contact apiContact `json:"contact"`
	}
	if err := c.call(ctx, http.MethodGet, "/contacts/"+id, nil, http.StatusOK, &out); err != nil {
		return nil, err
	}
	contact := out.Contact.toDomain()
	return &contact, nil
}

// Update pushes custom fields to an existing contact. Best-effort side
// work; callers decide whether a failure matters.
func (c *Client) Update(ctx context.Context, id string, fields map[string]interface{}) error {
	return c.call(ctx, http.MethodPut, "/contacts/"+id, fields, http.StatusOK, nil)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *Client) call(ctx context.Context, method, path string, body interface{}, wantStatus int, out interface{}) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
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

// IsDuplicate reports whether err is a contact-create conflict.
func IsDuplicate(err error) (*DuplicateError, bool) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return dup, true
	}
	return nil, false
}
