package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAppKey = "secret"

// fakeTelegram records sendMessage calls.
type fakeTelegram struct {
	mu       sync.Mutex
	messages []sendMessageRequest
	fail     bool
}

func (f *fakeTelegram) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sendMessageRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		f.mu.Lock()
		f.messages = append(f.messages, req)
		f.mu.Unlock()

		if f.fail {
			_ = json.NewEncoder(w).Encode(sendMessageResponse{OK: false, Description: "blocked"})
			return
		}
		_ = json.NewEncoder(w).Encode(sendMessageResponse{OK: true})
	}
}

func (f *fakeTelegram) sent() []sendMessageRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sendMessageRequest(nil), f.messages...)
}

func newTestNotifier(t *testing.T) (*Server, *UserStore, *fakeTelegram) {
	t.Helper()

	tg := &fakeTelegram{}
	tgServer := httptest.NewServer(tg.handler())
	t.Cleanup(tgServer.Close)

	store, err := NewUserStore(filepath.Join(t.TempDir(), "notifier.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	bot := NewBotClientWithBaseURL("test-token", tgServer.URL)
	return NewServer(":0", testAppKey, store, bot), store, tg
}

func do(t *testing.T, s *Server, method, path, appKey string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if appKey != "" {
		req.Header.Set("X-APP-KEY", appKey)
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func notifyBody(userKey, week string, total, capCents int64) map[string]any {
	return map[string]any{
		"user_key":    userKey,
		"week_start":  week,
		"total_cents": total,
		"cap_cents":   capCents,
		"pct":         total * 100 / capCents,
	}
}

func TestRequireKey(t *testing.T) {
	s, _, _ := newTestNotifier(t)

	rec := do(t, s, http.MethodPost, "/api/settings", "", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/settings", "wrong", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSaveAndGetSettings(t *testing.T) {
	s, _, _ := newTestNotifier(t)

	rec := do(t, s, http.MethodPost, "/api/settings", testAppKey, map[string]any{
		"user_key":         "maria",
		"weekly_cap_cents": 50000,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, s, http.MethodGet, "/api/settings?user_key=maria", testAppKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, float64(50000), got["weekly_cap_cents"])
	assert.Equal(t, float64(80), got["alert_pct"], "alert_pct defaults to 80")
	assert.Equal(t, false, got["linked"])
}

func TestSaveSettingsValidation(t *testing.T) {
	s, _, _ := newTestNotifier(t)

	rec := do(t, s, http.MethodPost, "/api/settings", testAppKey, map[string]any{"user_key": "maria"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing weekly_cap_cents")

	rec = do(t, s, http.MethodPost, "/api/settings", testAppKey, map[string]any{"weekly_cap_cents": 100})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing user_key")
}

func TestWebhookLinksChat(t *testing.T) {
	s, store, tg := newTestNotifier(t)

	rec := do(t, s, http.MethodPost, "/telegram/webhook", "", map[string]any{
		"message": map[string]any{
			"text": "/link maria",
			"chat": map[string]any{"id": 123456},
		},
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	u, err := store.Get(context.Background(), "maria")
	require.NoError(t, err)
	assert.Equal(t, "123456", u.ChatID)

	msgs := tg.sent()
	require.Len(t, msgs, 1)
	assert.Equal(t, "123456", msgs[0].ChatID)
	assert.Contains(t, msgs[0].Text, "Vinculado")
}

func TestWebhookIgnoresOtherMessages(t *testing.T) {
	s, _, tg := newTestNotifier(t)

	rec := do(t, s, http.MethodPost, "/telegram/webhook", "", map[string]any{
		"message": map[string]any{
			"text": "hello",
			"chat": map[string]any{"id": 99},
		},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, tg.sent())

	// malformed updates still answer 200 so Telegram stops retrying
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook", bytes.NewBufferString("{broken"))
	w := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func linkUser(t *testing.T, s *Server, userKey, chatID string) {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/telegram/webhook", "", map[string]any{
		"message": map[string]any{
			"text": "/link " + userKey,
			"chat": map[string]any{"id": json.Number(chatID)},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNotifySendsOncePerWeek(t *testing.T) {
	s, _, tg := newTestNotifier(t)
	linkUser(t, s, "maria", "555")

	rec := do(t, s, http.MethodPost, "/api/notify", testAppKey, notifyBody("maria", "2025-03-10", 42000, 50000))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["ok"])
	assert.Nil(t, resp["skipped"])

	msgs := tg.sent()
	require.Len(t, msgs, 2) // link confirmation + alert
	assert.Equal(t, "555", msgs[1].ChatID)
	assert.Contains(t, msgs[1].Text, "420.00")
	assert.Contains(t, msgs[1].Text, "500.00")
	assert.Contains(t, msgs[1].Text, "84%")

	// same week again is skipped
	rec = do(t, s, http.MethodPost, "/api/notify", testAppKey, notifyBody("maria", "2025-03-10", 49000, 50000))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["skipped"])
	assert.Len(t, tg.sent(), 2)

	// a new week alerts again
	rec = do(t, s, http.MethodPost, "/api/notify", testAppKey, notifyBody("maria", "2025-03-17", 41000, 50000))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, tg.sent(), 3)
}

func TestNotifyWithoutLinkedChat(t *testing.T) {
	s, _, _ := newTestNotifier(t)

	rec := do(t, s, http.MethodPost, "/api/notify", testAppKey, notifyBody("nobody", "2025-03-10", 100, 100))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "no chat", resp["error"])
}

func TestNotifyTelegramFailureDoesNotMarkWeek(t *testing.T) {
	s, store, tg := newTestNotifier(t)
	linkUser(t, s, "maria", "555")
	tg.fail = true

	rec := do(t, s, http.MethodPost, "/api/notify", testAppKey, notifyBody("maria", "2025-03-10", 42000, 50000))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	u, err := store.Get(context.Background(), "maria")
	require.NoError(t, err)
	assert.Empty(t, u.LastAlertWeek, "failed delivery must stay retryable")

	// retry succeeds once Telegram is back
	tg.fail = false
	rec = do(t, s, http.MethodPost, "/api/notify", testAppKey, notifyBody("maria", "2025-03-10", 42000, 50000))
	assert.Equal(t, http.StatusOK, rec.Code)

	u, err = store.Get(context.Background(), "maria")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", u.LastAlertWeek)
}
