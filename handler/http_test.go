package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-relay/internal/domain"
	"campus-relay/internal/integrations/telegram"
	"campus-relay/internal/usecase"
)

func TestRoutes_Health(t *testing.T) {
	h, _ := newTestHandler(t)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Correlation-Id"))
}

func TestRoutes_Webhook(t *testing.T) {
	h, relay := newTestHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"message":{"chat":{"id":1},"text":"hi"}}`))
	req.Header.Set("X-Correlation-Id", "corr-7")

	h.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"ok":true}`, rec.Body.String())
	require.Equal(t, "corr-7", rec.Header().Get("X-Correlation-Id"))
	require.Len(t, relay.ins, 1)
	require.Equal(t, "corr-7", relay.ins[0].CorrelationID)
}

func TestRoutes_OversizedBodyAcknowledgedWithoutProcessing(t *testing.T) {
	h, relay := newTestHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(strings.Repeat("a", maxBodyBytes+1)))

	h.Routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, relay.ins)
}

func TestRoutes_NotFoundAndMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t)
	routes := h.Routes()

	rec := httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"ok":false}`, rec.Body.String())

	rec = httptest.NewRecorder()
	routes.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

type prefixBackend struct{}

func (prefixBackend) Infer(_ context.Context, _ domain.Selector, text string) domain.InferenceResult {
	return domain.InferenceResult{Text: "reply to " + text}
}

func TestRoutes_ConcurrentChatsReceiveOwnReplies(t *testing.T) {
	var mu sync.Mutex
	got := map[string][]string{}
	telegramAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseForm()) {
			return
		}
		mu.Lock()
		chat := r.PostForm.Get("chat_id")
		got[chat] = append(got[chat], r.PostForm.Get("text"))
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":1,"type":"private"}}}`))
	}))
	defer telegramAPI.Close()

	sender, err := telegram.NewSender("123:abc", telegram.WithAPIEndpoint(telegramAPI.URL+"/bot%s/%s"))
	require.NoError(t, err)
	relay, err := usecase.NewRelayService(prefixBackend{}, sender, usecase.Selectors{Conversation: "c", Summary: "s"})
	require.NoError(t, err)
	h, err := NewHandler(relay)
	require.NoError(t, err)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	const n = 25
	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			body := `{"message":{"chat":{"id":` + id + `},"text":"question ` + id + `"}}`
			resp, err := http.Post(srv.URL+"/webhook", "application/json", strings.NewReader(body))
			if !assert.NoError(t, err) {
				return
			}
			_ = resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)
		}(strconv.Itoa(i))
	}
	wg.Wait()

	require.Len(t, got, n)
	for i := 1; i <= n; i++ {
		id := strconv.Itoa(i)
		require.Equal(t, []string{"reply to question " + id}, got[id])
	}
}

type slowBackend struct {
	delay time.Duration
}

func (b slowBackend) Infer(ctx context.Context, _ domain.Selector, text string) domain.InferenceResult {
	select {
	case <-time.After(b.delay):
		return domain.InferenceResult{Text: "late reply to " + text}
	case <-ctx.Done():
		return domain.Failed(domain.ClassifyFailure(ctx.Err()))
	}
}

type chanSender struct {
	sent chan string
}

func (s chanSender) Send(ctx context.Context, _ int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.sent <- text
	return nil
}

func TestRoutes_ClientDisconnectStillReplies(t *testing.T) {
	sender := chanSender{sent: make(chan string, 1)}
	relay, err := usecase.NewRelayService(slowBackend{delay: 300 * time.Millisecond}, sender, usecase.Selectors{Conversation: "c", Summary: "s"})
	require.NoError(t, err)
	h, err := NewHandler(relay)
	require.NoError(t, err)
	srv := httptest.NewServer(h.Routes())
	defer srv.Close()

	client := &http.Client{Timeout: 50 * time.Millisecond}
	_, err = client.Post(srv.URL+"/webhook", "application/json", strings.NewReader(`{"message":{"chat":{"id":11},"text":"anyone there?"}}`))
	require.Error(t, err)

	select {
	case got := <-sender.sent:
		require.Equal(t, "late reply to anyone there?", got)
	case <-time.After(3 * time.Second):
		t.Fatal("reply was not sent after the client went away")
	}
}
