package huggingface

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

const (
	defaultBaseURL = "https://api-inference.huggingface.co"
	defaultTimeout = 25 * time.Second
)

// inferenceRequest is the request shape of the hosted inference API.
type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

// generation holds the text fields returned by text-generation,
// conversational and summarization pipelines.
type generation struct {
	GeneratedText string `json:"generated_text"`
	SummaryText   string `json:"summary_text"`
}

// HTTPStatusError captures non-2xx upstream responses.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("huggingface: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client calls the Hugging Face inference API. A Client without a token runs
// in degraded mode and never touches the network.
type Client struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSpace(baseURL)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout bounds each inference call.
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

// NewClient creates a Client. An empty token is allowed and puts the client
// in degraded mode.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		token:   strings.TrimSpace(token),
		timeout: defaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

// Enabled reports whether a credential is configured.
func (c *Client) Enabled() bool {
	return c.token != ""
}

func modelURL(baseURL string, model domain.Selector) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	parts := strings.Split(string(model), "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return base + "/models/" + strings.Join(parts, "/")
}

// Infer runs model on text and never returns an error: transport and
// upstream failures are folded into the result's FailureKind.
func (c *Client) Infer(ctx context.Context, model domain.Selector, text string) domain.InferenceResult {
	if !c.Enabled() {
		return domain.Failed(domain.FailureDisabled)
	}
	out, err := c.generate(ctx, model, text)
	if err != nil {
		kind := domain.ClassifyFailure(err)
		c.logger.Warn("huggingface inference failed", "model", string(model), "failure", string(kind), "err", err)
		return domain.Failed(kind)
	}
	return domain.InferenceResult{Text: out}
}

func (c *Client) generate(ctx context.Context, model domain.Selector, text string) (string, error) {
	if strings.TrimSpace(string(model)) == "" {
		return "", errors.New("huggingface: model must not be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(inferenceRequest{Inputs: text})
	if err != nil {
		return "", fmt.Errorf("huggingface: marshal request: %w", err)
	}

	u := modelURL(c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("huggingface: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	raw, err := c.doJSONRequest(req, u)
	if err != nil {
		return "", fmt.Errorf("huggingface: request failed: %w", err)
	}
	out, err := extractText(raw)
	if err != nil {
		return "", fmt.Errorf("huggingface: decode response: %w", err)
	}
	return out, nil
}

// extractText accepts either a single object or a list of objects and reads
// generated_text, then summary_text, from the first one.
func extractText(raw []byte) (string, error) {
	raw = bytes.TrimSpace(raw)
	var gen generation
	if len(raw) > 0 && raw[0] == '[' {
		var list []generation
		if err := json.Unmarshal(raw, &list); err != nil {
			return "", err
		}
		if len(list) == 0 {
			return domain.EmptyReply, nil
		}
		gen = list[0]
	} else if err := json.Unmarshal(raw, &gen); err != nil {
		return "", err
	}
	switch {
	case gen.GeneratedText != "":
		return gen.GeneratedText, nil
	case gen.SummaryText != "":
		return gen.SummaryText, nil
	default:
		return domain.EmptyReply, nil
	}
}

func (c *Client) doJSONRequest(req *http.Request, endpoint string) ([]byte, error) {
	res, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return nil, doErr
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &HTTPStatusError{
			StatusCode: res.StatusCode,
			URL:        endpoint,
			Body:       string(buf),
		}
	}

	buf, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return buf, nil
}
