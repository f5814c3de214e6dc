package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/ussdgw"
	"github.com/aretw0/ussdgw/automata"
	ussdhttp "github.com/aretw0/ussdgw/internal/adapters/http"
	"github.com/aretw0/ussdgw/internal/metrics"
	"github.com/aretw0/ussdgw/pkg/automaton"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHandler(t *testing.T, gw *ussdgw.Gateway, opts ...ussdhttp.Option) http.Handler {
	t.Helper()
	h, err := ussdhttp.NewHandler(context.Background(), gw, opts...)
	require.NoError(t, err)
	return h
}

func newGateway(t *testing.T, opts ...ussdgw.Option) *ussdgw.Gateway {
	t.Helper()
	gw, err := ussdgw.New(opts...)
	require.NoError(t, err)
	return gw
}

func postForm(h http.Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/ussd/callback", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestCallback(t *testing.T) {
	h := newHandler(t, newGateway(t))

	form := url.Values{
		"sessionId":   {"ATUid_1"},
		"serviceCode": {"*384*96#"},
		"phoneNumber": {"+237600000000"},
		"text":        {""},
	}
	rr := postForm(h, form)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "CON Welcome to PackND"), rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	// Aggregators resend the whole history; only the last segment counts.
	form.Set("text", "2*4")
	rr = postForm(h, form)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Body.String(), "END "), rr.Body.String())
}

func TestCallbackRejectsBadRequests(t *testing.T) {
	h := newHandler(t, newGateway(t))

	t.Run("Missing Session", func(t *testing.T) {
		rr := postForm(h, url.Values{"phoneNumber": {"+237600000000"}})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Invalid Encoding", func(t *testing.T) {
		rr := postForm(h, url.Values{
			"sessionId":   {"ATUid_2"},
			"phoneNumber": {"+237600000000"},
			"text":        {"\xff\xfe"},
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("Oversized Input", func(t *testing.T) {
		rr := postForm(h, url.Values{
			"sessionId":   {"ATUid_3"},
			"phoneNumber": {"+237600000000"},
			"text":        {strings.Repeat("a", ussdhttp.MaxInputBytes+1)},
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestJSONEndpoint(t *testing.T) {
	h := newHandler(t, newGateway(t))

	req := httptest.NewRequest(http.MethodPost, "/ussd/test",
		strings.NewReader(`{"sessionId":"test-1","phoneNumber":"+237600000000","text":""}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Body.String(), "CON "))

	req = httptest.NewRequest(http.MethodPost, "/ussd/test", strings.NewReader(`{"text":"1"}`))
	req.Header.Set("Content-Type", "application/json")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealthAndInfo(t *testing.T) {
	h := newHandler(t, newGateway(t), ussdhttp.WithVersion("1.2.3"))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ussd/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var health map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "1.2.3", health["version"])

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ussd/automaton/info", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var stats automaton.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Greater(t, stats.TotalStates, 0)
	assert.NotEmpty(t, stats.InitialState)
}

func TestReload(t *testing.T) {
	t.Run("Embedded Automaton", func(t *testing.T) {
		var observed error
		h := newHandler(t, newGateway(t), ussdhttp.WithReloadObserver(func(err error) { observed = err }))

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/ussd/automaton/reload", nil))
		assert.Equal(t, http.StatusConflict, rr.Code)
		assert.True(t, errors.Is(observed, automaton.ErrNoSource))
	})

	t.Run("From File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "delivery.yaml")
		require.NoError(t, os.WriteFile(path, automata.Delivery, 0o600))
		h := newHandler(t, newGateway(t, ussdgw.WithAutomatonFile(path)))

		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/ussd/automaton/reload", nil))
		assert.Equal(t, http.StatusOK, rr.Code)

		require.NoError(t, os.WriteFile(path, []byte("states: ["), 0o600))
		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/ussd/automaton/reload", nil))
		assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	})
}

func TestDocumentationAndMetrics(t *testing.T) {
	m := metrics.New()
	h := newHandler(t, newGateway(t), ussdhttp.WithMetricsHandler(m.Handler()))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "/ussd/callback")

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ussd_sessions_active")
}

func TestLoadSpec(t *testing.T) {
	doc, err := ussdhttp.LoadSpec(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/ussd/callback"))
}
