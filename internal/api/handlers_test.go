package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/susu3304/hinkalibot/internal/infra/memory"
	"github.com/susu3304/hinkalibot/internal/order"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newTestAPI(t *testing.T) (*API, *order.Controller) {
	t.Helper()
	ctl := order.NewController(memory.NewStateRepo(),
		order.WithClock(func() time.Time { return time.Date(2024, 5, 14, 12, 0, 0, 0, time.UTC) }))
	return New("127.0.0.1:0", ctl, testSecret, zap.NewNop()), ctl
}

func getSession(t *testing.T, api *API) *httptest.ResponseRecorder {
	t.Helper()
	token, err := NewToken(testSecret, "dashboard", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	api.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	api, _ := newTestAPI(t)

	w := httptest.NewRecorder()
	api.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestSessionClosed(t *testing.T) {
	api, _ := newTestAPI(t)

	w := getSession(t, api)
	require.Equal(t, http.StatusOK, w.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, false, got["open"])
	assert.Empty(t, got["participants"])
	assert.NotContains(t, got, "session_id")
}

func TestSessionOpen(t *testing.T) {
	api, ctl := newTestAPI(t)
	_, err := ctl.Open()
	require.NoError(t, err)
	ctl.ApplyOrderDelta(order.Participant{ID: "1", Name: "ann"}, "ВК", 2)
	ctl.ApplyOrderDelta(order.Participant{ID: "2", Name: "ben"}, "ЖК", 1)
	ctl.StartPaymentCollection()
	ctl.MarkPayment("2", order.StatusPaid)

	w := getSession(t, api)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var got sessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.True(t, got.Open)
	assert.NotEmpty(t, got.SessionID)
	assert.Equal(t, 30, got.Discount)
	require.Len(t, got.Participants, 2)
	assert.Equal(t, "ann", got.Participants[0].Name)
	assert.Equal(t, "70", got.Participants[0].Cost.String())
	assert.True(t, got.Participants[1].Paid)
	assert.Equal(t, "108.5", got.Total.String())
	assert.Equal(t, map[order.ItemType]int{"ВК": 2, "ЖК": 1}, got.Totals)
	assert.Equal(t, []string{"2"}, got.Paid)
	assert.Contains(t, got.OrderReport, "Итого: 108.5 ₽")
}

func TestMountWebhook(t *testing.T) {
	api, _ := newTestAPI(t)
	called := false
	api.Mount("/webhook/secret", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	w := httptest.NewRecorder()
	api.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook/secret", nil))
	assert.True(t, called)

	w = httptest.NewRecorder()
	api.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/webhook/guess", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORS(t *testing.T) {
	api, _ := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://example.com")

	w := httptest.NewRecorder()
	api.Handler().ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSessionRequiresToken(t *testing.T) {
	api, ctl := newTestAPI(t)
	ctl.Open()
	ctl.ApplyOrderDelta(order.Participant{ID: "1", Name: "ann"}, "ВК", 2)

	sign := func(method jwt.SigningMethod, key []byte, exp time.Time) string {
		token, err := jwt.NewWithClaims(method, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}).SignedString(key)
		require.NoError(t, err)
		return token
	}
	later := time.Now().Add(time.Hour)

	tests := []struct {
		name   string
		header string
	}{
		{name: "no header"},
		{name: "not bearer", header: "Basic YW5uOnB3"},
		{name: "garbage", header: "Bearer not-a-jwt"},
		{name: "wrong key", header: "Bearer " + sign(jwt.SigningMethodHS256, []byte("another-secret-another-secret-xx"), later)},
		{name: "expired", header: "Bearer " + sign(jwt.SigningMethodHS256, testSecret, time.Now().Add(-time.Minute))},
		{name: "other algorithm", header: "Bearer " + sign(jwt.SigningMethodHS512, testSecret, later)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
			req.Header.Set("Origin", "https://evil.example")
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			api.Handler().ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.NotContains(t, w.Body.String(), "ann")
		})
	}

	assert.Equal(t, http.StatusOK, getSession(t, api).Code)
}

func TestSessionDisabledWithoutSecret(t *testing.T) {
	ctl := order.NewController(memory.NewStateRepo())
	api := New("127.0.0.1:0", ctl, nil, zap.NewNop())

	w := httptest.NewRecorder()
	api.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	api.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStartListensBeforeReturning(t *testing.T) {
	api, _ := newTestAPI(t)
	require.NoError(t, api.Start())
	defer api.Shutdown(context.Background())

	resp, err := http.Get("http://" + api.Addr() + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}
