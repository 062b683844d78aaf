// Package gradio calls a separately hosted conversational service that
// exposes Gradio-style "/run/{endpoint}" prediction routes.
package gradio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"campus-relay/internal/domain"
)

const defaultTimeout = 25 * time.Second

// predictRequest carries the message and an always-empty chat history.
type predictRequest struct {
	Data []any `json:"data"`
}

type predictResponse struct {
	Data []json.RawMessage `json:"data"`
}

// HTTPStatusError captures non-2xx upstream responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("gradio: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

type Client struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

// WithToken sends a bearer credential, for services behind auth.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("gradio: service address must not be empty")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("gradio: invalid service address: %w", err)
	}
	c := &Client{
		baseURL: baseURL,
		timeout: defaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c, nil
}

func endpointURL(baseURL string, endpoint domain.Selector) string {
	name := strings.Trim(string(endpoint), "/")
	return baseURL + "/run/" + url.PathEscape(name)
}

// Infer sends text with an empty history to endpoint. Failures are folded
// into the result's FailureKind.
func (c *Client) Infer(ctx context.Context, endpoint domain.Selector, text string) domain.InferenceResult {
	out, err := c.predict(ctx, endpoint, text)
	if err != nil {
		kind := domain.ClassifyFailure(err)
		c.logger.Warn("conversation service call failed", "endpoint", string(endpoint), "failure", string(kind), "err", err)
		return domain.Failed(kind)
	}
	return domain.InferenceResult{Text: out}
}

func (c *Client) predict(ctx context.Context, endpoint domain.Selector, text string) (string, error) {
	if strings.Trim(string(endpoint), "/ ") == "" {
		return "", errors.New("gradio: endpoint must not be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(predictRequest{Data: []any{text, [][]string{}}})
	if err != nil {
		return "", fmt.Errorf("gradio: marshal request: %w", err)
	}

	u := endpointURL(c.baseURL, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gradio: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gradio: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return "", &HTTPStatusError{StatusCode: res.StatusCode, URL: u, Body: string(buf)}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("gradio: read response body: %w", err)
	}
	var payload predictResponse
	if err := json.Unmarshal(buf, &payload); err != nil {
		return "", fmt.Errorf("gradio: decode response: %w", err)
	}
	return firstText(payload.Data), nil
}

// firstText returns data[0] when it is a non-empty string.
func firstText(data []json.RawMessage) string {
	if len(data) == 0 {
		return domain.EmptyReply
	}
	var s string
	if err := json.Unmarshal(data[0], &s); err != nil || strings.TrimSpace(s) == "" {
		return domain.EmptyReply
	}
	return s
}
