package mailer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const resendEndpoint = "https://api.resend.com/emails"

// Client sends transactional email through the Resend HTTP API.
type Client struct {
	APIKey     string
	From       string
	Endpoint   string
	HTTPClient *http.Client
}

func New(apiKey, from string) *Client {
	return &Client{
		APIKey:     apiKey,
		From:       from,
		Endpoint:   resendEndpoint,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type Attachment struct {
	Filename string
	Content  []byte
}

type Message struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

type sendRequest struct {
	From        string           `json:"from"`
	To          []string         `json:"to"`
	Subject     string           `json:"subject"`
	HTML        string           `json:"html"`
	Attachments []attachmentJSON `json:"attachments,omitempty"`
}

type attachmentJSON struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Send delivers one message. Attachments are base64-encoded inline as
// the Resend API requires.
func (c *Client) Send(ctx context.Context, msg Message) error {
	payload := sendRequest{
		From:    c.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	}
	for _, att := range msg.Attachments {
		payload.Attachments = append(payload.Attachments, attachmentJSON{
			Filename: att.Filename,
			Content:  base64.StdEncoding.EncodeToString(att.Content),
		})
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return &sendError{Status: res.StatusCode, Body: string(body)}
	}

	_ = json.NewDecoder(res.Body).Decode(&map[string]any{})
	return nil
}

type sendError struct {
	Status int
	Body   string
}

func (e *sendError) Error() string {
	return fmt.Sprintf("resend send failed: status %d", e.Status)
}
