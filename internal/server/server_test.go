package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go-jobdigest/internal/browser"
	"go-jobdigest/internal/logging"
	"go-jobdigest/internal/pipeline"
	"go-jobdigest/internal/scraper"
	"go-jobdigest/internal/telegram"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRunner struct {
	result *pipeline.Result
	err    error
	calls  int
}

func (r *stubRunner) Run(ctx context.Context) (*pipeline.Result, error) {
	r.calls++
	return r.result, r.err
}

func serve(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return w, out
}

func TestHealth(t *testing.T) {
	s := New(&stubRunner{}, nil, logging.Nop())
	w, out := serve(t, s, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", out["status"])
}

func TestRun_Success(t *testing.T) {
	runner := &stubRunner{result: &pipeline.Result{
		RunID:      "abc",
		Listings:   []scraper.Listing{{Rank: 1, Label: "Job One", URL: "http://x/1"}},
		Dispatched: true,
		Duration:   2 * time.Second,
	}}
	s := New(runner, nil, logging.Nop())

	w, out := serve(t, s, http.MethodPost, "/run", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", out["run_id"])
	assert.Equal(t, true, out["dispatched"])
	assert.Len(t, out["listings"], 1)
	assert.Equal(t, 1, runner.calls)
}

func TestRun_Failures(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantKind string
	}{
		{"in progress", pipeline.ErrRunInProgress, http.StatusConflict, ""},
		{"connection", &browser.ConnectionError{Endpoint: "http://localhost:9222", Err: errors.New("refused")}, http.StatusBadGateway, "connection"},
		{"navigation", &scraper.NavigationError{URL: "http://x", Status: 404}, http.StatusBadGateway, "navigation"},
		{"extraction", &scraper.ExtractionError{Selector: "a", Err: errors.New("detached")}, http.StatusBadGateway, "extraction"},
		{"delivery", &telegram.DeliveryError{Kind: telegram.KindTransport, Err: errors.New("timeout")}, http.StatusBadGateway, "delivery"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(&stubRunner{err: tt.err}, nil, logging.Nop())
			w, out := serve(t, s, http.MethodPost, "/run", "")
			assert.Equal(t, tt.wantCode, w.Code)
			assert.NotEmpty(t, out["error"])
			if tt.wantKind != "" {
				assert.Equal(t, tt.wantKind, out["kind"])
			}
		})
	}
}

func TestWebhook_ForwardsUpdate(t *testing.T) {
	updates := make(chan tgbotapi.Update, 1)
	s := New(&stubRunner{}, updates, logging.Nop())

	body := `{"update_id":7,"message":{"message_id":3,"date":0,"chat":{"id":42,"type":"private"},"text":"hi"}}`
	w, out := serve(t, s, http.MethodPost, "/webhook/telegram", body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", out["status"])

	require.Len(t, updates, 1)
	got := <-updates
	assert.Equal(t, 7, got.UpdateID)
	require.NotNil(t, got.Message)
	assert.Equal(t, "hi", got.Message.Text)
	assert.Equal(t, int64(42), got.Message.Chat.ID)
}

func TestWebhook_BadJSON(t *testing.T) {
	updates := make(chan tgbotapi.Update, 1)
	s := New(&stubRunner{}, updates, logging.Nop())

	w, _ := serve(t, s, http.MethodPost, "/webhook/telegram", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, updates)
}

func TestWebhook_DisabledInPollingMode(t *testing.T) {
	s := New(&stubRunner{}, nil, logging.Nop())
	w, _ := serve(t, s, http.MethodPost, "/webhook/telegram", `{"update_id":1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestErrorKind_Wrapped(t *testing.T) {
	err := errors.Join(errors.New("run 1"), &scraper.NavigationError{URL: "http://x", Status: 500})
	assert.Equal(t, "navigation", ErrorKind(err))
	assert.Equal(t, "unknown", ErrorKind(errors.New("boom")))
}
