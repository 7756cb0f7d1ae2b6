package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrEmailExists is returned when the auth service already holds an
// account for the requested email.
var ErrEmailExists = errors.New("email already registered")

// Client talks to the hosted auth service's admin API using the service
// role key. Users created here are pre-confirmed; trial signup is a
// trusted first-party flow.
type Client struct {
	BaseURL    string
	ServiceKey string
	HTTPClient *http.Client
}

func New(baseURL, serviceKey string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		ServiceKey: serviceKey,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type createUserRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	EmailConfirm bool   `json:"email_confirm"`
}

type userResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Code    string `json:"error_code"`
	Message string `json:"msg"`
}

// CreateUser registers an auth user with the email pre-confirmed and
// returns the generated user id.
func (c *Client) CreateUser(ctx context.Context, email, password string) (string, error) {
	body, status, err := c.do(ctx, http.MethodPost, "/auth/v1/admin/users", createUserRequest{
		Email:        email,
		Password:     password,
		EmailConfirm: true,
	})
	if err != nil {
		return "", err
	}
	if status >= 300 {
		var apiErr errorResponse
		_ = json.Unmarshal(body, &apiErr)
		if status == http.StatusUnprocessableEntity || apiErr.Code == "email_exists" ||
			strings.Contains(strings.ToLower(apiErr.Message), "already") {
			return "", ErrEmailExists
		}
		return "", &httpError{Status: status, Body: string(body)}
	}

	var user userResponse
	if err := json.Unmarshal(body, &user); err != nil {
		return "", err
	}
	if user.ID == "" {
		return "", errors.New("auth service returned no user id")
	}
	return user.ID, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	body, status, err := c.do(ctx, http.MethodDelete, "/auth/v1/admin/users/"+id, nil)
	if err != nil {
		return err
	}
	if status >= 300 {
		return &httpError{Status: status, Body: string(body)}
	}
	return nil
}

type generateLinkRequest struct {
	Type       string `json:"type"`
	Email      string `json:"email"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

type generateLinkResponse struct {
	HashedToken string `json:"hashed_token"`
	ActionLink  string `json:"action_link"`
}

// GenerateRecoveryToken issues a password-reset token for the given
// email. The caller embeds it in the branded reset link.
func (c *Client) GenerateRecoveryToken(ctx context.Context, email, redirectTo string) (string, error) {
	body, status, err := c.do(ctx, http.MethodPost, "/auth/v1/admin/generate_link", generateLinkRequest{
		Type:       "recovery",
		Email:      email,
		RedirectTo: redirectTo,
	})
	if err != nil {
		return "", err
	}
	if status >= 300 {
		return "", &httpError{Status: status, Body: string(body)}
	}

	var link generateLinkResponse
	if err := json.Unmarshal(body, &link); err != nil {
		return "", err
	}
	if link.HashedToken == "" {
		return "", errors.New("auth service returned no recovery token")
	}
	return link.HashedToken, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, err
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("apikey", c.ServiceKey)
	req.Header.Set("Authorization", "Bearer "+c.ServiceKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	return body, res.StatusCode, nil
}

type httpError struct {
	Status int
	Body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("auth service error: status %d", e.Status)
}
