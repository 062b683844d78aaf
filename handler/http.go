package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"campus-relay/internal/usecase"
)

const maxBodyBytes = 1 << 20

// Routes serves the same endpoints as Handle for the long-running mode.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.correlate)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, ackResponse{})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, ackResponse{})
	})

	r.Get(pathHealth, h.health)
	r.Head(pathHealth, h.health)
	r.Post(pathWebhook, h.webhook)
	return r
}

// correlate copies the inbound correlation id to the response, falling back
// to a fresh uuid.
func (h *Handler) correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(correlationHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(correlationHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, healthBody)
}

func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	id := w.Header().Get(correlationHeader)
	log := h.logger.With("correlation_id", id, "request_id", middleware.GetReqID(r.Context()))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		log.Warn("webhook body rejected", "err", err)
		writeJSON(w, http.StatusOK, ackResponse{OK: true})
		return
	}
	// A caller that hangs up must not cancel the reply; the inference and
	// send timeouts bound the work instead.
	h.relay.Process(context.WithoutCancel(r.Context()), usecase.RelayInput{CorrelationID: id, Body: body})
	writeJSON(w, http.StatusOK, ackResponse{OK: true})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
