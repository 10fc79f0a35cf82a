package tipjar

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/brojonat/tipjar/service/sponsor"
	"github.com/brojonat/tipjar/service/sui"
	"github.com/brojonat/tipjar/service/wallet"
	"github.com/stretchr/testify/require"
)

const testDigest = "11111111111111111111111111111111"

type objectCall struct {
	data *sui.ObjectData
	err  error
	gate chan struct{}
}

// mockObjects serves queued responses in order, then repeats fallback.
type mockObjects struct {
	mu       sync.Mutex
	queue    []objectCall
	fallback objectCall
	calls    int
}

func (m *mockObjects) push(c objectCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, c)
}

func (m *mockObjects) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockObjects) GetObject(ctx context.Context, id string, opts sui.ObjectDataOptions) (*sui.ObjectData, error) {
	m.mu.Lock()
	m.calls++
	c := m.fallback
	if len(m.queue) > 0 {
		c = m.queue[0]
		m.queue = m.queue[1:]
	}
	m.mu.Unlock()

	if c.gate != nil {
		<-c.gate
	}
	return c.data, c.err
}

func jarObject(t *testing.T, fields map[string]any) *sui.ObjectData {
	t.Helper()
	raw, err := json.Marshal(fields)
	require.NoError(t, err)
	return &sui.ObjectData{
		ObjectID: "0x5",
		Version:  7,
		Digest:   testDigest,
		Owner:    &sui.Owner{Kind: sui.OwnerShared, InitialSharedVersion: 3},
		Content:  &sui.MoveContent{DataType: "moveObject", Fields: raw},
	}
}

func jarStats(t *testing.T, total, count string) objectCall {
	return objectCall{data: jarObject(t, map[string]any{
		"owner":               "0x1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef",
		"total_tips_received": total,
		"tip_count":           count,
	})}
}

type mockCoins struct {
	mu    sync.Mutex
	coins []sui.Coin
	err   error
	calls int
}

func (m *mockCoins) GetCoins(ctx context.Context, owner, coinType string) ([]sui.Coin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.coins, m.err
}

func suiCoin(id, balance string) sui.Coin {
	return sui.Coin{
		CoinType:     sui.NativeCoinType,
		CoinObjectID: id,
		Version:      1,
		Digest:       testDigest,
		Balance:      balance,
	}
}

// sharedResolver reports every object as shared.
type sharedResolver struct{}

func (sharedResolver) GetObjects(ctx context.Context, ids []string, opts sui.ObjectDataOptions) ([]sui.ObjectData, error) {
	out := make([]sui.ObjectData, len(ids))
	for i, id := range ids {
		out[i] = sui.ObjectData{ObjectID: id, Owner: &sui.Owner{Kind: sui.OwnerShared, InitialSharedVersion: 3}}
	}
	return out, nil
}

func testSettings() Settings {
	s := DefaultSettings()
	s.PackageID = "0x2a"
	s.TipJarID = "0x5"
	return s
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testKeypair(t *testing.T) *wallet.Keypair {
	t.Helper()
	kp, err := wallet.KeypairFromSeed(make([]byte, 32))
	require.NoError(t, err)
	return kp
}

type fixture struct {
	objects  *mockObjects
	coins    *mockCoins
	executor *sponsor.MockExecutor
	accounts *wallet.Connection
	settings Settings
}

func newFixture(t *testing.T) *fixture {
	return &fixture{
		objects:  &mockObjects{},
		coins:    &mockCoins{},
		executor: sponsor.NewMockExecutor(),
		accounts: wallet.NewConnection(testKeypair(t)),
		settings: testSettings(),
	}
}

func (f *fixture) sender() *Sender {
	return NewSender(f.settings, f.accounts, f.coins, f.executor, nil, testLogger())
}

func (f *fixture) widget(opts Options) *Widget {
	if opts.Logger == nil {
		opts.Logger = testLogger()
	}
	return NewWidget(NewStatsReader(f.objects, f.settings, nil, testLogger()), f.sender(), opts)
}
