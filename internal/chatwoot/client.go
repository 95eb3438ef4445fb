// internal/chatwoot/client.go
package chatwoot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// DirectoryContact is one entry of the Chatwoot contact directory.
type DirectoryContact struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
}

// Page is one page of the directory plus the reported total.
type Page struct {
	Contacts []DirectoryContact
	Total    int
}

type listResponse struct {
	Payload []DirectoryContact `json:"payload"`
	Meta    struct {
		Count int `json:"count"`
	} `json:"meta"`
}

// Client talks to a Chatwoot account's contact API.
type Client struct {
	BaseURL   string
	AccountID string
	Token     string
	HTTP      *http.Client
	Log       *zap.SugaredLogger
}

func NewClient(baseURL, accountID, token string, log *zap.SugaredLogger) *Client {
	return &Client{
		BaseURL:   baseURL,
		AccountID: accountID,
		Token:     token,
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		Log:       log,
	}
}

// ListContacts fetches one page of the unfiltered contact directory.
func (c *Client) ListContacts(ctx context.Context, page int) (*Page, error) {
	endpoint := fmt.Sprintf("%s/api/v1/accounts/%s/contacts?page=%d", c.BaseURL, c.AccountID, page)
	return c.fetchPage(ctx, endpoint)
}

// ListLabelContacts fetches one page of the contacts carrying a label.
func (c *Client) ListLabelContacts(ctx context.Context, label string, page int) (*Page, error) {
	endpoint := fmt.Sprintf("%s/api/v1/accounts/%s/labels/%s/contacts?page=%d",
		c.BaseURL, c.AccountID, url.PathEscape(label), page)
	return c.fetchPage(ctx, endpoint)
}

func (c *Client) fetchPage(ctx context.Context, endpoint string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("api_access_token", c.Token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chatwoot request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		c.Log.Warnw("chatwoot returned non-200", "status", resp.StatusCode, "url", endpoint)
		return nil, fmt.Errorf("chatwoot returned status %d", resp.StatusCode)
	}

	var out listResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode chatwoot response: %w", err)
	}
	return &Page{Contacts: out.Payload, Total: out.Meta.Count}, nil
}
