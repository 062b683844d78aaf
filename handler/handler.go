package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"campus-relay/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"

	pathHealth  = "/"
	pathWebhook = "/webhook"

	healthBody = "Campus AI is live."
)

// Processor runs one webhook body to completion.
type Processor interface {
	Process(ctx context.Context, in usecase.RelayInput) usecase.RelayOutput
}

type Handler struct {
	relay  Processor
	logger *slog.Logger
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

type ackResponse struct {
	OK bool `json:"ok"`
}

func NewHandler(relay Processor, opts ...Option) (*Handler, error) {
	if relay == nil {
		return nil, errors.New("handler: relay must not be nil")
	}
	h := &Handler{relay: relay, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Handle is the API Gateway entry point. Telegram retries any non-2xx
// webhook response, so POST /webhook is acknowledged whatever happens to the
// update.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(event.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	log := h.logger.With("correlation_id", correlationID, "method", event.HTTPMethod, "path", event.Path)

	switch normalizePath(event.Path) {
	case pathHealth:
		if event.HTTPMethod != http.MethodGet && event.HTTPMethod != http.MethodHead {
			return jsonResponse(http.StatusMethodNotAllowed, ackResponse{}, correlationID), nil
		}
		return textResponse(http.StatusOK, healthBody, correlationID), nil
	case pathWebhook:
		if event.HTTPMethod != http.MethodPost {
			return jsonResponse(http.StatusMethodNotAllowed, ackResponse{}, correlationID), nil
		}
		body := []byte(event.Body)
		if event.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(event.Body)
			if err != nil {
				log.Warn("webhook body not valid base64", "err", err)
				return jsonResponse(http.StatusOK, ackResponse{OK: true}, correlationID), nil
			}
			body = decoded
		}
		h.relay.Process(ctx, usecase.RelayInput{CorrelationID: correlationID, Body: body})
		return jsonResponse(http.StatusOK, ackResponse{OK: true}, correlationID), nil
	default:
		log.Debug("route not found")
		return jsonResponse(http.StatusNotFound, ackResponse{}, correlationID), nil
	}
}

func normalizePath(p string) string {
	if p == "" {
		return pathHealth
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func textResponse(status int, body, correlationID string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "text/plain; charset=utf-8",
			correlationHeader: correlationID,
		},
		Body: body,
	}
}

func jsonResponse(status int, payload any, correlationID string) events.APIGatewayProxyResponse {
	b, err := json.Marshal(payload)
	if err != nil {
		b = []byte(`{"ok":false}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: string(b),
	}
}
