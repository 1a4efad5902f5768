package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fwojciec/campus"
	"google.golang.org/genai"
)

// Interface compliance check.
var _ campus.AnswerService = (*Client)(nil)

// ErrRateLimited indicates the Gemini API rejected the request with HTTP
// 429. Waiting about thirty seconds is usually enough.
var ErrRateLimited = errors.New("gemini: rate limited, wait 30 seconds and try again")

// ErrEmptyAnswer indicates the model returned no text.
var ErrEmptyAnswer = errors.New("gemini: empty answer")

// Client implements [campus.AnswerService] for the Google Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

type options struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

// Option configures a [Client].
type Option func(*options)

// WithModel sets the model ID. Default is gemini-2.0-flash.
func WithModel(model string) Option {
	return func(o *options) { o.model = model }
}

// WithBaseURL sets the API base URL. Useful for testing with httptest.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// New creates a new Gemini [Client] with the given API key and options.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	o := options{model: defaultModel}
	for _, fn := range opts {
		fn(&o)
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  o.httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: o.baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	return &Client{client: gc, model: o.model}, nil
}

// Answer asks the model q.Message with the persona's system instruction.
// q.Token is not used: the API key authorizes the request.
func (c *Client) Answer(ctx context.Context, q campus.Question) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(q.Message, genai.RoleUser),
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, buildConfig(q))
	if err != nil {
		if isRateLimited(err) {
			return "", fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return "", fmt.Errorf("gemini: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyAnswer
	}
	return text, nil
}

func buildConfig(q campus.Question) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		MaxOutputTokens: defaultMaxTokens,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: SystemInstruction(q.Persona, q.Year)}},
		},
	}
}

func isRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code == http.StatusTooManyRequests
	}
	return false
}
