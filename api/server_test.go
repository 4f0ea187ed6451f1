package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gregtusar/armadex/pkg/auth"
	"github.com/gregtusar/armadex/pkg/clock"
	"github.com/gregtusar/armadex/pkg/marketdata"
	"github.com/gregtusar/armadex/pkg/random"
	"github.com/gregtusar/armadex/pkg/session"
	"github.com/gregtusar/armadex/pkg/storage"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	server   *Server
	handler  http.Handler
	clock    *clock.Manual
	sessions *session.Manager
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	clk := clock.NewManual(epoch)
	logger, _ := test.NewNullLogger()

	cfg := session.DefaultConfig()
	cfg.Wallet.ConnectDelay = 0
	cfg.Portfolio.CreationProbability = 1

	manager := session.NewManager(cfg, session.Deps{
		Clock:  clk,
		Assets: marketdata.DefaultAssets(),
		Store:  storage.NewMemory(),
		Rand:   random.New(7),
		Logger: logger,
	})
	t.Cleanup(manager.Close)

	authn, err := auth.NewAuthenticator(auth.Config{JWTSecret: "test-secret-0123456789", TokenTTL: time.Hour}, clk)
	require.NoError(t, err)

	srv := NewServer(manager, authn, clk, opts, logger)
	return &fixture{server: srv, handler: srv.Handler(), clock: clk, sessions: manager}
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) createSession(t *testing.T) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/sessions", "", nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, resp.SessionID, resp.Session.ID)
	return resp.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func toastTitle(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	msg, ok := body["toast"].(map[string]interface{})
	require.True(t, ok, "response has no toast: %v", body)
	return msg["title"].(string)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, float64(0), body["sessions"])
}

func TestRequiresToken(t *testing.T) {
	f := newFixture(t, Options{})

	rec := f.do(t, http.MethodGet, "/api/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/session", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t, Options{})
	rec := f.do(t, http.MethodDelete, "/api/health", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSessionSelection(t *testing.T) {
	f := newFixture(t, Options{})
	token := f.createSession(t)

	rec := f.do(t, http.MethodGet, "/api/session", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "BTC/USDC", decode(t, rec)["market"])

	market, perpetual := "eth/usdc", true
	rec = f.do(t, http.MethodPut, "/api/session", token, updateSessionRequest{Market: &market, Perpetual: &perpetual})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ETH/USDC", body["market"])
	assert.Equal(t, "perpetual", body["kind"])

	unknown := "DOGE/USDC"
	rec = f.do(t, http.MethodPut, "/api/session", token, updateSessionRequest{Market: &unknown})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Unknown market", toastTitle(t, decode(t, rec)))

	malformed := "BTC"
	rec = f.do(t, http.MethodPut, "/api/session", token, updateSessionRequest{Market: &malformed})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMarketViews(t *testing.T) {
	f := newFixture(t, Options{})
	token := f.createSession(t)

	rec := f.do(t, http.MethodGet, "/api/marketdata", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["loading"])

	f.clock.Advance(time.Second)

	rec = f.do(t, http.MethodGet, "/api/marketdata", token, nil)
	body := decode(t, rec)
	assert.Equal(t, false, body["loading"])
	assert.NotNil(t, body["display"])

	rec = f.do(t, http.MethodGet, "/api/orderbook", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var book orderBookView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &book))
	assert.NotEmpty(t, book.Asks)
	assert.NotEmpty(t, book.Bids)
	assert.NotEmpty(t, book.Asks[0].PriceDisplay)

	rec = f.do(t, http.MethodGet, "/api/trades", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	trades := decode(t, rec)["trades"].([]interface{})
	assert.GreaterOrEqual(t, len(trades), 20)

	rec = f.do(t, http.MethodGet, "/api/markets", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["markets"], 3)
}

func TestActionsRequireWallet(t *testing.T) {
	f := newFixture(t, Options{})
	token := f.createSession(t)

	rec := f.do(t, http.MethodPost, "/api/orders", token, map[string]string{"type": "market", "side": "buy", "amount": "1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Wallet not connected", toastTitle(t, decode(t, rec)))

	rec = f.do(t, http.MethodPost, "/api/proposals/prop-001/vote", token, voteRequest{Choice: "for"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/vaults/vault-1/follow", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestConnectedTrading(t *testing.T) {
	f := newFixture(t, Options{})
	token := f.createSession(t)

	rec := f.do(t, http.MethodPost, "/api/wallet/connect", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	wallet := decode(t, rec)
	assert.Equal(t, true, wallet["connected"])
	assert.True(t, strings.HasPrefix(wallet["address"].(string), "0x"))

	rec = f.do(t, http.MethodGet, "/api/positions", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	positions := decode(t, rec)["positions"].([]interface{})
	require.Len(t, positions, 2)
	id := positions[0].(map[string]interface{})["id"].(string)

	rec = f.do(t, http.MethodDelete, "/api/positions/"+id, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Position closed", toastTitle(t, decode(t, rec)))

	rec = f.do(t, http.MethodDelete, "/api/positions/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/orders", token, map[string]string{"type": "limit", "side": "buy", "amount": "0.5", "price": "64000"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Order placed successfully", toastTitle(t, body))
	assert.Equal(t, "32000.00", body["total"])

	rec = f.do(t, http.MethodPost, "/api/orders", token, map[string]string{"type": "limit", "side": "buy", "amount": "0.5"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid price", toastTitle(t, decode(t, rec)))

	rec = f.do(t, http.MethodGet, "/api/orders/quickfill?percent=50", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec)["amount"])

	rec = f.do(t, http.MethodGet, "/api/orders/quickfill?percent=150", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/orders/amount?total=7000&price=3500", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2.000000", decode(t, rec)["amount"])

	rec = f.do(t, http.MethodGet, "/api/orders/amount?total=7000&price=0", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/orders/amount?total=lots&price=3500", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/orders/order-missing", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/wallet/disconnect", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["connected"])

	rec = f.do(t, http.MethodGet, "/api/positions", token, nil)
	assert.Empty(t, decode(t, rec)["positions"])
}

func TestGovernanceAndVaults(t *testing.T) {
	f := newFixture(t, Options{})
	token := f.createSession(t)

	rec := f.do(t, http.MethodGet, "/api/proposals?status=active", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, p := range decode(t, rec)["proposals"].([]interface{}) {
		assert.Equal(t, "active", p.(map[string]interface{})["status"])
	}

	rec = f.do(t, http.MethodGet, "/api/proposals?status=bogus", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/proposals/prop-999", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/wallet/connect", token, nil).Code)

	rec = f.do(t, http.MethodPost, "/api/proposals/prop-001/vote", token, voteRequest{Choice: "maybe"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/proposals/prop-001/vote", token, voteRequest{Choice: "for"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "Vote cast successfully", toastTitle(t, body))
	assert.Equal(t, "for", body["proposal"].(map[string]interface{})["user_voted"])

	rec = f.do(t, http.MethodGet, "/api/vaults?sort=bogus", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/vaults/vault-1/follow", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["following"])

	rec = f.do(t, http.MethodGet, "/api/vaults?sort=following", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	followed := decode(t, rec)["vaults"].([]interface{})
	require.Len(t, followed, 1)
	assert.Equal(t, true, followed[0].(map[string]interface{})["following"])

	rec = f.do(t, http.MethodGet, "/api/vaults/vault-9", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, Options{RateLimit: RateLimit{Enabled: true, RequestsPerSecond: 1, Burst: 2}})

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/health", "", nil).Code)
	rec := f.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	f.clock.Advance(time.Second)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/health", "", nil).Code)
}

func TestLimiterSweepsIdleClients(t *testing.T) {
	clk := clock.NewManual(epoch)
	l := newLimiter(RateLimit{RequestsPerSecond: 1, Burst: 1}, clk)
	l.allow("a")
	l.allow("b")
	assert.Equal(t, 2, l.len())

	clk.Advance(10 * time.Minute)
	l.allow("c")
	assert.Equal(t, 1, l.len())
}

func TestCORS(t *testing.T) {
	f := newFixture(t, Options{AllowedOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/session", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStream(t *testing.T) {
	f := newFixture(t, Options{PingInterval: time.Minute})
	token := f.createSession(t)

	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/stream?token=" + token
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var ev session.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, session.EventSession, ev.Kind)

	// market data lands at 500ms, the book and tape tick at 2s
	f.clock.Advance(2 * time.Second)

	seen := map[session.EventKind]bool{}
	for i := 0; i < 10 && !(seen[session.EventOrderBook] && seen[session.EventMarketData]); i++ {
		var next session.Event
		require.NoError(t, conn.ReadJSON(&next))
		seen[next.Kind] = true
	}
	assert.True(t, seen[session.EventOrderBook])
	assert.True(t, seen[session.EventMarketData])
}

func TestStreamRejectsMissingToken(t *testing.T) {
	f := newFixture(t, Options{})
	ts := httptest.NewServer(f.handler)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/stream"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
