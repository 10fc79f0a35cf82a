package tipjar

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/brojonat/tipjar/service/sui"
	"github.com/brojonat/tipjar/service/sui/bcs"
	"github.com/brojonat/tipjar/service/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireTipError(t *testing.T, err error, kind Kind, msg string) {
	t.Helper()
	var te *TipError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, kind, te.Kind)
	assert.Equal(t, msg, te.Message)
}

func TestSender_Checks(t *testing.T) {
	unconfigured := testSettings()
	unconfigured.PackageID = sui.PlaceholderID

	tests := []struct {
		name      string
		connected bool
		settings  Settings
		amount    string
		kind      Kind
		msg       string
	}{
		{name: "account before everything", connected: false, settings: unconfigured, amount: "", kind: KindAccount, msg: "Please connect your wallet to send tips"},
		{name: "empty amount before configuration", connected: true, settings: unconfigured, amount: "  ", kind: KindValidation, msg: "Please enter a tip amount"},
		{name: "configuration before amount parsing", connected: true, settings: unconfigured, amount: "abc", kind: KindConfiguration, msg: "Tip jar contract is not configured"},
		{name: "unparseable amount", connected: true, settings: testSettings(), amount: "abc", kind: KindValidation, msg: "Please enter a valid tip amount"},
		{name: "zero amount", connected: true, settings: testSettings(), amount: "0", kind: KindValidation, msg: "Please enter a valid tip amount"},
		{name: "below one mist", connected: true, settings: testSettings(), amount: "0.0000000001", kind: KindValidation, msg: "Please enter a valid tip amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.settings = tt.settings
			if !tt.connected {
				f.accounts.Disconnect()
			}

			_, err := f.sender().SendTip(context.Background(), tt.amount)
			requireTipError(t, err, tt.kind, tt.msg)
			assert.Equal(t, 0, f.coins.calls)
			assert.Empty(t, f.executor.Executed())
		})
	}
}

func TestSender_Success(t *testing.T) {
	f := newFixture(t)
	f.coins.coins = []sui.Coin{suiCoin("0xa", "50000000"), suiCoin("0xb", "150000000")}

	receipt, err := f.sender().SendTip(context.Background(), "0.1")
	require.NoError(t, err)

	assert.Equal(t, "MockDigest1111111111111111111111", receipt.Digest)
	assert.Equal(t, "0xb", receipt.CoinID)
	assert.Equal(t, uint64(100_000_000), receipt.AmountMist)
	assert.Equal(t, testKeypair(t).Address(), receipt.Sender)
	assert.Equal(t, "Tip of 0.1 SUI sent successfully! (Gas-free transaction)", receipt.SuccessMessage())

	executed := f.executor.Executed()
	require.Len(t, executed, 1)
	tx := executed[0]
	pkg, err := sui.NormalizeAddress("0x2a")
	require.NoError(t, err)
	assert.Equal(t, []string{pkg + "::tip_jar_contract::send_tip"}, tx.MoveCallTargets())
	assert.Equal(t, []string{
		"SplitCoins(Input(0), [Input(1)])",
		"MoveCall(" + pkg + "::tip_jar_contract::send_tip, [Input(2) NestedResult(0,0)])",
	}, tx.Commands())

	txBytes, err := tx.Build(context.Background(), sharedResolver{})
	require.NoError(t, err)
	assert.True(t, bytes.Contains(txBytes, bcs.U64Bytes(100_000_000)))
}

func TestSender_Resources(t *testing.T) {
	t.Run("no coins", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.sender().SendTip(context.Background(), "0.1")
		requireTipError(t, err, KindResource, "No SUI coins found in wallet")
		assert.Empty(t, f.executor.Executed())
	})

	t.Run("insufficient balance", func(t *testing.T) {
		f := newFixture(t)
		f.coins.coins = []sui.Coin{suiCoin("0xa", "50000000"), suiCoin("0xb", "80000000")}
		_, err := f.sender().SendTip(context.Background(), "0.1")
		requireTipError(t, err, KindResource, "Insufficient balance. Need 0.1 SUI but largest coin has 0.0800 SUI")
		assert.Empty(t, f.executor.Executed())
	})
}

func TestSender_Transport(t *testing.T) {
	t.Run("coin listing fails", func(t *testing.T) {
		f := newFixture(t)
		f.coins.err = errors.New("rpc down")
		_, err := f.sender().SendTip(context.Background(), "0.1")
		requireTipError(t, err, KindTransport, "Error creating transaction. Please try again.")
	})

	t.Run("bad balance", func(t *testing.T) {
		f := newFixture(t)
		f.coins.coins = []sui.Coin{suiCoin("0xa", "lots")}
		_, err := f.sender().SendTip(context.Background(), "0.1")
		requireTipError(t, err, KindTransport, "Error creating transaction. Please try again.")
	})

	t.Run("executor fails", func(t *testing.T) {
		f := newFixture(t)
		f.coins.coins = []sui.Coin{suiCoin("0xa", "500000000")}
		boom := errors.New("sponsor relay returned 403: forbidden")
		f.executor.SetError(boom)

		_, err := f.sender().SendTip(context.Background(), "0.1")
		requireTipError(t, err, KindTransport, "Error sending tip: sponsor relay returned 403: forbidden")
		assert.ErrorIs(t, err, boom)
		assert.Len(t, f.executor.Executed(), 1)
	})
}

func TestSender_SwitchedAccount(t *testing.T) {
	f := newFixture(t)
	f.coins.coins = []sui.Coin{suiCoin("0xa", "500000000")}
	other, err := wallet.KeypairFromSeed(bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	f.accounts.Connect(other)

	receipt, err := f.sender().SendTip(context.Background(), "0.25")
	require.NoError(t, err)
	assert.Equal(t, other.Address(), receipt.Sender)
}
