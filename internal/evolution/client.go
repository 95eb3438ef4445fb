// internal/evolution/client.go
package evolution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DeliveryError is a classified send failure with the provider's own
// words. The worker records it on the contact; it is never retried here.
type DeliveryError struct {
	StatusCode int
	Message    string
}

func (e *DeliveryError) Error() string {
	return e.Message
}

// ChannelContact is one WhatsApp contact known to an instance. The ID is
// a chat address like 5215551234567@s.whatsapp.net.
type ChannelContact struct {
	ID       string `json:"id"`
	PushName string `json:"pushName"`
}

// Client talks to an Evolution API server. One server hosts many named
// instances; every call names the instance it goes through.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
	Log     *zap.SugaredLogger
}

func NewClient(baseURL, apiKey string, log *zap.SugaredLogger) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: 60 * time.Second},
		Log:     log,
	}
}

// Send delivers one message. A non-empty mediaURL turns it into a
// captioned media send, with the media type classified from the URL.
func (c *Client) Send(ctx context.Context, instance, phone, text, mediaURL string) (map[string]any, error) {
	if mediaURL != "" {
		return c.SendMedia(ctx, instance, phone, mediaURL, text)
	}
	return c.SendText(ctx, instance, phone, text)
}

func (c *Client) SendText(ctx context.Context, instance, phone, text string) (map[string]any, error) {
	payload := map[string]any{
		"number": phone,
		"text":   text,
	}
	return c.post(ctx, "/message/sendText/"+instance, payload)
}

func (c *Client) SendMedia(ctx context.Context, instance, phone, mediaURL, caption string) (map[string]any, error) {
	payload := map[string]any{
		"number":    phone,
		"mediatype": ClassifyMediaType(mediaURL),
		"media":     mediaURL,
		"caption":   caption,
	}
	return c.post(ctx, "/message/sendMedia/"+instance, payload)
}

// FetchContacts lists every contact the instance knows about.
func (c *Client) FetchContacts(ctx context.Context, instance string) ([]ChannelContact, error) {
	body, status, err := c.do(ctx, "/chat/findContacts/"+instance, map[string]any{})
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("evolution returned status %d: %s", status, extractProviderMessage(body, status))
	}
	var contacts []ChannelContact
	if err := json.Unmarshal(body, &contacts); err != nil {
		return nil, fmt.Errorf("decode contacts response: %w", err)
	}
	return contacts, nil
}

func (c *Client) post(ctx context.Context, path string, payload map[string]any) (map[string]any, error) {
	body, status, err := c.do(ctx, path, payload)
	if err != nil {
		return nil, &DeliveryError{Message: err.Error()}
	}
	if status < 200 || status >= 300 {
		msg := extractProviderMessage(body, status)
		c.Log.Warnw("evolution send rejected", "path", path, "status", status, "message", msg)
		return nil, &DeliveryError{StatusCode: status, Message: msg}
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		// provider answered OK with a non-JSON body; the send still happened
		return map[string]any{"raw": string(body)}, nil
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, path string, payload map[string]any) ([]byte, int, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.APIKey)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
