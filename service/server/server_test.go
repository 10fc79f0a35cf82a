package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brojonat/tipjar/service/db"
	natspkg "github.com/brojonat/tipjar/service/nats"
	"github.com/brojonat/tipjar/service/sponsor"
	"github.com/brojonat/tipjar/service/sui"
	"github.com/brojonat/tipjar/service/tipjar"
	"github.com/brojonat/tipjar/service/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDigest = "11111111111111111111111111111111"

type mockObjects struct {
	mu    sync.Mutex
	count int
	calls int
	err   error
}

func (m *mockObjects) GetObject(ctx context.Context, id string, opts sui.ObjectDataOptions) (*sui.ObjectData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	fields, _ := json.Marshal(map[string]any{
		"owner":               "0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef",
		"total_tips_received": "1500000000",
		"tip_count":           m.count,
	})
	return &sui.ObjectData{ObjectID: id, Content: &sui.MoveContent{DataType: "moveObject", Fields: fields}}, nil
}

func (m *mockObjects) setCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.count = n
}

func (m *mockObjects) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockCoins struct {
	coins []sui.Coin
}

func (m *mockCoins) GetCoins(ctx context.Context, owner, coinType string) ([]sui.Coin, error) {
	return m.coins, nil
}

type mockStore struct {
	mu       sync.Mutex
	receipts []*db.Receipt
	err      error
}

func (m *mockStore) CreateReceipt(ctx context.Context, p db.CreateReceiptParams) (*db.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := &db.Receipt{
		Digest:     p.Digest,
		TipJarID:   p.TipJarID,
		Sender:     p.Sender,
		Amount:     p.Amount,
		AmountMist: int64(p.AmountMist),
		SentAt:     p.SentAt,
		CreatedAt:  time.Now(),
	}
	if p.CoinID != "" {
		coin := p.CoinID
		r.CoinID = &coin
	}
	m.receipts = append(m.receipts, r)
	return r, nil
}

func (m *mockStore) GetReceipt(ctx context.Context, digest string) (*db.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, r := range m.receipts {
		if r.Digest == digest {
			return r, nil
		}
	}
	return nil, db.ErrReceiptNotFound
}

func (m *mockStore) ListReceipts(ctx context.Context, p db.ListReceiptsParams) ([]*db.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*db.Receipt, 0)
	for i := len(m.receipts) - 1; i >= 0; i-- {
		if m.receipts[i].TipJarID == p.TipJarID {
			out = append(out, m.receipts[i])
		}
	}
	return out, nil
}

func (m *mockStore) CountReceipts(ctx context.Context, tipJarID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.receipts)), nil
}

func (m *mockStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.receipts)
}

type testEnv struct {
	server    *Server
	handler   http.Handler
	objects   *mockObjects
	coins     *mockCoins
	executor  *sponsor.MockExecutor
	accounts  *wallet.Connection
	store     *mockStore
	publisher *natspkg.MockPublisher
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, settings tipjar.Settings) *testEnv {
	t.Helper()

	kp, err := wallet.KeypairFromSeed(make([]byte, 32))
	require.NoError(t, err)

	env := &testEnv{
		objects:   &mockObjects{count: 3},
		coins:     &mockCoins{coins: []sui.Coin{{CoinObjectID: "0xc01", Version: 1, Digest: testDigest, Balance: "5000000000"}}},
		executor:  sponsor.NewMockExecutor(),
		accounts:  wallet.NewConnection(kp),
		store:     &mockStore{},
		publisher: natspkg.NewMockPublisher(),
	}

	logger := testLogger()
	env.server = New(":0", Deps{
		Network:    "testnet",
		Stats:      tipjar.NewStatsReader(env.objects, settings, nil, logger),
		Sender:     tipjar.NewSender(settings, env.accounts, env.coins, env.executor, nil, logger),
		Store:      env.store,
		Publisher:  env.publisher,
		Subscriber: env.publisher,
	}, logger)
	require.NoError(t, env.server.WithTemplates())
	env.handler = env.server.Handler()
	return env
}

func configured() tipjar.Settings {
	s := tipjar.DefaultSettings()
	s.PackageID = "0x2a"
	s.TipJarID = "0x5"
	return s
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestGetTipJar(t *testing.T) {
	env := newTestEnv(t, configured())

	rec := env.do(t, "GET", "/api/v1/tipjar", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "stats unavailable", decode(t, rec)["error"])

	<-env.server.Widget().Activate(context.Background())

	rec = env.do(t, "GET", "/api/v1/tipjar", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "0x5", body["tip_jar_id"])
	assert.Equal(t, "0x123456...abcdef", body["owner_short"])
	assert.Equal(t, "1.500", body["total_tips_sui"])
	assert.Equal(t, "3", body["tip_count"])
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t, configured())
	<-env.server.Widget().Activate(context.Background())
	env.objects.setCount(4)

	rec := env.do(t, "POST", "/api/v1/tipjar/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(1), body["refresh_key"])
	stats := body["stats"].(map[string]any)
	assert.Equal(t, "4", stats["tip_count"])
	assert.Equal(t, 2, env.objects.callCount())
}

func TestSendTip(t *testing.T) {
	env := newTestEnv(t, configured())
	<-env.server.Widget().Activate(context.Background())
	env.objects.setCount(4)

	rec := env.do(t, "POST", "/api/v1/tips", `{"amount":"0.1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp sendTipResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "MockDigest1111111111111111111111", resp.Receipt.Digest)
	assert.Equal(t, uint64(100_000_000), resp.Receipt.AmountMist)
	assert.Equal(t, "Tip of 0.1 SUI sent successfully! (Gas-free transaction)", resp.Message)

	assert.Equal(t, 1, env.store.count())
	events := env.publisher.GetPublishedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "0x5", events[0].TipJarID)

	require.Eventually(t, func() bool {
		snap := env.server.Widget().Snapshot()
		return snap != nil && snap.TipCount == "4"
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "", env.server.Widget().Amount())
}

func TestSendTip_Errors(t *testing.T) {
	tests := []struct {
		name     string
		settings tipjar.Settings
		setup    func(env *testEnv)
		body     string
		status   int
		kind     string
	}{
		{name: "malformed", settings: configured(), body: `{"amount":`, status: http.StatusBadRequest},
		{name: "empty amount", settings: configured(), body: `{"amount":""}`, status: http.StatusBadRequest, kind: "validation"},
		{name: "invalid amount", settings: configured(), body: `{"amount":"-2"}`, status: http.StatusBadRequest, kind: "validation"},
		{name: "unconfigured", settings: tipjar.DefaultSettings(), body: `{"amount":"0.1"}`, status: http.StatusServiceUnavailable, kind: "configuration"},
		{
			name:     "disconnected",
			settings: configured(),
			setup:    func(env *testEnv) { env.accounts.Disconnect() },
			body:     `{"amount":"0.1"}`,
			status:   http.StatusPreconditionFailed,
			kind:     "account",
		},
		{
			name:     "insufficient",
			settings: configured(),
			body:     `{"amount":"50"}`,
			status:   http.StatusUnprocessableEntity,
			kind:     "resource",
		},
		{
			name:     "relay failure",
			settings: configured(),
			setup:    func(env *testEnv) { env.executor.SetError(errors.New("relay down")) },
			body:     `{"amount":"0.1"}`,
			status:   http.StatusBadGateway,
			kind:     "transport",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.settings)
			if tt.setup != nil {
				tt.setup(env)
			}
			rec := env.do(t, "POST", "/api/v1/tips", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			if tt.kind != "" {
				assert.Equal(t, tt.kind, decode(t, rec)["kind"])
			}
			assert.Equal(t, 0, env.store.count())
			assert.Equal(t, 0, env.publisher.GetPublishedEventCount())
		})
	}
}

func TestSendTip_Busy(t *testing.T) {
	env := newTestEnv(t, configured())
	release := env.executor.Block()

	done := make(chan int, 1)
	go func() {
		done <- env.do(t, "POST", "/api/v1/tips", `{"amount":"0.1"}`).Code
	}()
	require.Eventually(t, env.server.Widget().IsLoading, time.Second, time.Millisecond)

	rec := env.do(t, "POST", "/api/v1/tips", `{"amount":"0.2"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "busy", decode(t, rec)["kind"])

	release()
	assert.Equal(t, http.StatusOK, <-done)
	assert.Len(t, env.executor.Executed(), 1)
}

func TestListReceipts(t *testing.T) {
	env := newTestEnv(t, configured())
	require.Equal(t, http.StatusOK, env.do(t, "POST", "/api/v1/tips", `{"amount":"0.1"}`).Code)
	require.Equal(t, http.StatusOK, env.do(t, "POST", "/api/v1/tips", `{"amount":"0.2"}`).Code)

	rec := env.do(t, "GET", "/api/v1/tips?limit=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(2), body["total"])
	receipts := body["receipts"].([]any)
	require.Len(t, receipts, 2)
	assert.Equal(t, "0.2", receipts[0].(map[string]any)["amount"])
	assert.Equal(t, "0xc01", receipts[0].(map[string]any)["coin_id"])

	assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", "/api/v1/tips?limit=0", "").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", "/api/v1/tips?offset=-1", "").Code)

	env.store.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, env.do(t, "GET", "/api/v1/tips", "").Code)
}

func TestGetReceipt(t *testing.T) {
	env := newTestEnv(t, configured())
	sent := decode(t, env.do(t, "POST", "/api/v1/tips", `{"amount":"0.1"}`))
	digest := sent["receipt"].(map[string]any)["digest"].(string)

	rec := env.do(t, "GET", "/api/v1/tips/"+digest, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, digest, body["digest"])
	assert.Equal(t, "0.1", body["amount"])

	assert.Equal(t, http.StatusNotFound, env.do(t, "GET", "/api/v1/tips/unknown", "").Code)

	env.store.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, env.do(t, "GET", "/api/v1/tips/"+digest, "").Code)
}

func TestQRCode(t *testing.T) {
	env := newTestEnv(t, configured())
	rec := env.do(t, "GET", "/api/v1/tipjar/qr.png?size=128", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\x89PNG"))

	unconfigured := newTestEnv(t, tipjar.DefaultSettings())
	assert.Equal(t, http.StatusNotFound, unconfigured.do(t, "GET", "/api/v1/tipjar/qr.png", "").Code)
}

func TestExplorerURL(t *testing.T) {
	assert.Equal(t, "https://suiscan.xyz/mainnet/object/0x5", explorerURL("mainnet", "0x5"))
	assert.Equal(t, "https://suiscan.xyz/testnet/object/0x5", explorerURL("", "0x5"))
}

func TestWidgetPage(t *testing.T) {
	env := newTestEnv(t, configured())
	<-env.server.Widget().Activate(context.Background())

	rec := env.do(t, "GET", "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := rec.Body.String()
	assert.Contains(t, page, "Total Tips:</strong> 1.500 SUI")
	assert.Contains(t, page, "0x123456...abcdef")
	assert.Contains(t, page, "Send Tip (Gas-free)")
	assert.Contains(t, page, `name="send" disabled>`, "send disabled without an amount")

	form := url.Values{"amount": {"0.1"}}
	req := httptest.NewRequest("POST", "/tip", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := httptest.NewRecorder()
	env.handler.ServeHTTP(res, req)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/", res.Header().Get("Location"))

	page = env.do(t, "GET", "/", "").Body.String()
	assert.Contains(t, page, "Tip of 0.1 SUI sent successfully! (Gas-free transaction)")
	assert.Equal(t, "", env.server.Widget().Amount())
	assert.Len(t, env.executor.Executed(), 1)
}

func TestWidgetPage_SendButtonState(t *testing.T) {
	env := newTestEnv(t, configured())
	widget := env.server.Widget()

	for _, tt := range []struct {
		amount  string
		enabled bool
	}{
		{amount: "", enabled: false},
		{amount: "0", enabled: false},
		{amount: "-1", enabled: false},
		{amount: "1e5", enabled: false},
		{amount: "0.25", enabled: true},
	} {
		require.NoError(t, widget.SetAmount(tt.amount))
		page := env.do(t, "GET", "/", "").Body.String()
		if tt.enabled {
			assert.Contains(t, page, `name="send" >`, tt.amount)
		} else {
			assert.Contains(t, page, `name="send" disabled>`, tt.amount)
		}
	}
}

func TestWidgetForm_Failure(t *testing.T) {
	env := newTestEnv(t, configured())
	env.executor.SetError(errors.New("relay down"))

	form := url.Values{"amount": {"0.3"}}
	req := httptest.NewRequest("POST", "/tip", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	res := httptest.NewRecorder()
	env.handler.ServeHTTP(res, req)
	require.Equal(t, http.StatusSeeOther, res.Code)

	widget := env.server.Widget()
	assert.Equal(t, "0.3", widget.Amount())
	assert.Equal(t, tipjar.LevelError, widget.Message().Level)
	assert.Contains(t, widget.Message().Text, "Error sending tip: relay down")

	page := env.do(t, "GET", "/", "").Body.String()
	assert.Contains(t, page, `value="0.3"`)
	assert.Contains(t, page, `name="send" >`)
}

func TestWidgetPage_Disconnected(t *testing.T) {
	env := newTestEnv(t, tipjar.DefaultSettings())
	env.accounts.Disconnect()

	page := env.do(t, "GET", "/", "").Body.String()
	assert.Contains(t, page, "Please connect your wallet to send tips")
	assert.Contains(t, page, "Tip jar contract is not configured.")
	assert.NotContains(t, page, "<form")
	assert.Equal(t, 0, env.objects.callCount())
}

func TestHealthAndCORS(t *testing.T) {
	env := newTestEnv(t, configured())

	rec := env.do(t, "GET", "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = env.do(t, "OPTIONS", "/api/v1/tips", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestStreamTips(t *testing.T) {
	env := newTestEnv(t, configured())
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", ts.URL+"/api/v1/stream/tips", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)

	require.Eventually(t, func() bool { return env.publisher.SubscriberCount() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, env.publisher.PublishTip(ctx, &natspkg.TipEvent{Digest: "D9", TipJarID: "0x5"}))

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if line == "event: tip\n" {
			break
		}
	}
	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, line, `"digest":"D9"`)
}
