// Package rest implements [campus.AnswerService] as a client of the hosted
// answer endpoint: one JSON POST per question, one JSON answer back.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/fwojciec/campus"
)

// Interface compliance check.
var _ campus.AnswerService = (*Client)(nil)

// maxErrorBody bounds how much of an error response is quoted.
const maxErrorBody = 512

// ErrMissingResponse indicates a 2xx reply without a response field.
var ErrMissingResponse = errors.New("rest: reply has no response field")

// Client implements [campus.AnswerService] for an HTTP endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a [Client] posting to endpoint. The default HTTP client has no
// timeout; the call is bounded only by the context passed to Answer.
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type apiRequest struct {
	Message string `json:"message"`
	Year    string `json:"year"`
	Mode    string `json:"mode"`
	Token   string `json:"token"`
}

type apiResponse struct {
	Response *string `json:"response"`
}

// Answer posts q and returns the answer text.
func (c *Client) Answer(ctx context.Context, q campus.Question) (string, error) {
	body, err := json.Marshal(apiRequest{
		Message: q.Message,
		Year:    string(q.Year),
		Mode:    string(q.Persona),
		Token:   q.Token,
	})
	if err != nil {
		return "", fmt.Errorf("rest: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("rest: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("rest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", fmt.Errorf("rest: HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("rest: decode reply: %w", err)
	}
	if out.Response == nil {
		return "", ErrMissingResponse
	}
	return *out.Response, nil
}
