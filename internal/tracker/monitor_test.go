// File: internal/tracker/monitor_test.go
package tracker

import (
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/smartdevs17/token-sentinel/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	watchedWallet = common.HexToAddress("0x5000000000000000000000000000000000000005")
	routerAddr    = common.HexToAddress("0x7a250d5630b4cf539739df2c5dacb4c659f2488d")
	wethAddr      = common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
	memeToken     = common.HexToAddress("0x6000000000000000000000000000000000000006")
)

func newMonitor() *ActivityMonitor {
	return NewActivityMonitor([]models.WalletWatchEntry{
		{Address: watchedWallet, Label: "test", AlertOnTrade: true},
	})
}

func word(v *big.Int) []byte {
	return common.LeftPadBytes(v.Bytes(), 32)
}

func addressWord(a common.Address) []byte {
	return common.LeftPadBytes(a.Bytes(), 32)
}

// swapCalldata builds router calldata with the path at the given argument
// index, preceded by the supplied static argument words.
func swapCalldata(selector string, staticArgs []*big.Int, pathIndex int, path []common.Address) []byte {
	data := common.FromHex(selector)

	// Head: static words plus the path offset, then (to, deadline).
	headWords := pathIndex + 3
	offset := big.NewInt(int64(headWords * 32))

	static := 0
	for i := 0; i < headWords; i++ {
		switch {
		case i == pathIndex:
			data = append(data, word(offset)...)
		case static < len(staticArgs):
			data = append(data, word(staticArgs[static])...)
			static++
		default:
			data = append(data, word(big.NewInt(0))...)
		}
	}

	data = append(data, word(big.NewInt(int64(len(path))))...)
	for _, a := range path {
		data = append(data, addressWord(a)...)
	}
	return data
}

func legacyTx(nonce uint64, value *big.Int, data []byte) *types.Transaction {
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &routerAddr,
		Value:    value,
		Gas:      200000,
		GasPrice: big.NewInt(1),
		Data:     data,
	})
}

func TestObserveBuy(t *testing.T) {
	am := newMonitor()

	// swapExactETHForTokens(amountOutMin, path, to, deadline)
	data := swapCalldata("0x7ff36ab5", []*big.Int{big.NewInt(0)}, 1,
		[]common.Address{wethAddr, memeToken})
	value := new(big.Int).Mul(big.NewInt(15), big.NewInt(1e17)) // 1.5 ETH

	intent := am.Observe(watchedWallet, legacyTx(0, value, data), 100, time.Now())
	require.NotNil(t, intent)
	assert.Equal(t, models.IntentBuy, intent.Kind)
	assert.Equal(t, "swapExactETHForTokens", intent.Method)
	require.NotNil(t, intent.Token)
	assert.Equal(t, memeToken, *intent.Token)
	assert.InDelta(t, 1.5, intent.AmountBase, 1e-9)
}

func TestObserveSell(t *testing.T) {
	am := newMonitor()

	// swapExactTokensForETH(amountIn, amountOutMin, path, to, deadline)
	amountOutMin := new(big.Int).Mul(big.NewInt(2), big.NewInt(1e18))
	data := swapCalldata("0x18cbafe5", []*big.Int{big.NewInt(1000), amountOutMin}, 2,
		[]common.Address{memeToken, wethAddr})

	intent := am.Observe(watchedWallet, legacyTx(1, big.NewInt(0), data), 101, time.Now())
	require.NotNil(t, intent)
	assert.Equal(t, models.IntentSell, intent.Kind)
	require.NotNil(t, intent.Token)
	assert.Equal(t, memeToken, *intent.Token)
	assert.InDelta(t, 2.0, intent.AmountBase, 1e-9)
}

func TestObserveSwap(t *testing.T) {
	am := newMonitor()

	// swapExactTokensForTokens(amountIn, amountOutMin, path, to, deadline)
	data := swapCalldata("0x38ed1739", []*big.Int{big.NewInt(1000), big.NewInt(0)}, 2,
		[]common.Address{memeToken, wethAddr, tokenB})

	intent := am.Observe(watchedWallet, legacyTx(2, big.NewInt(0), data), 102, time.Now())
	require.NotNil(t, intent)
	assert.Equal(t, models.IntentSwap, intent.Kind)
	require.NotNil(t, intent.Token)
	assert.Equal(t, tokenB, *intent.Token)
}

func TestObserveTransferAndContractInteraction(t *testing.T) {
	am := newMonitor()

	t.Run("plain value transfer", func(t *testing.T) {
		intent := am.Observe(watchedWallet, legacyTx(3, big.NewInt(1e18), nil), 103, time.Now())
		require.NotNil(t, intent)
		assert.Equal(t, models.IntentTransfer, intent.Kind)
		assert.InDelta(t, 1.0, intent.AmountBase, 1e-9)
	})

	t.Run("unknown selector without value", func(t *testing.T) {
		intent := am.Observe(watchedWallet, legacyTx(4, big.NewInt(0), common.FromHex("0xdeadbeef")), 104, time.Now())
		require.NotNil(t, intent)
		assert.Equal(t, models.IntentContractInteraction, intent.Kind)
	})
}

func TestObserveUnwatchedSender(t *testing.T) {
	am := newMonitor()
	stranger := common.HexToAddress("0x9999999999999999999999999999999999999999")
	assert.Nil(t, am.Observe(stranger, legacyTx(0, big.NewInt(1), nil), 100, time.Now()))
}

func TestObserveDeduplicates(t *testing.T) {
	am := newMonitor()
	tx := legacyTx(5, big.NewInt(1e18), nil)

	require.NotNil(t, am.Observe(watchedWallet, tx, 100, time.Now()))
	assert.Nil(t, am.Observe(watchedWallet, tx, 100, time.Now()))

	am.ResetDedup()
	assert.NotNil(t, am.Observe(watchedWallet, tx, 100, time.Now()))
}

func TestRemoveWalletKeepsDedup(t *testing.T) {
	am := newMonitor()
	tx := legacyTx(6, big.NewInt(1e18), nil)

	require.NotNil(t, am.Observe(watchedWallet, tx, 100, time.Now()))

	entry, ok := am.Entry(watchedWallet)
	require.True(t, ok)
	am.RemoveWallet(watchedWallet)
	assert.Nil(t, am.Observe(watchedWallet, tx, 100, time.Now()))

	// Re-adding must not replay the old transaction.
	am.AddWallet(entry)
	assert.Nil(t, am.Observe(watchedWallet, tx, 100, time.Now()))
	assert.Len(t, am.Watched(), 1)
}

func TestDecodePathMalformed(t *testing.T) {
	assert.Nil(t, decodePath(common.FromHex("0x7ff36ab5"), 1))

	// Offset pointing past the calldata.
	data := append(common.FromHex("0x7ff36ab5"), word(big.NewInt(0))...)
	data = append(data, word(big.NewInt(4096))...)
	assert.Nil(t, decodePath(data, 1))
}

// Calldata comes from arbitrary external transactions; an offset word near
// 2^64 must yield nil instead of panicking on wrapped bounds arithmetic.
func TestDecodePathHostileOffset(t *testing.T) {
	maxU64 := new(big.Int).SetUint64(math.MaxUint64)
	wrapOffset := new(big.Int).Sub(maxU64, big.NewInt(31))

	// swapExactETHForTokens(amountOutMin, path, ...) with a path-offset word
	// chosen so naive start+32 arithmetic wraps past zero.
	data := append(common.FromHex("0x7ff36ab5"), word(big.NewInt(0))...)
	data = append(data, word(wrapOffset)...)
	assert.Nil(t, decodePath(data, 1))

	// The full observe path survives it: the intent decodes as a BUY with no
	// token instead of killing the pipeline.
	am := newMonitor()
	intent := am.Observe(watchedWallet, legacyTx(7, big.NewInt(1e18), data), 105, time.Now())
	require.NotNil(t, intent)
	assert.Equal(t, models.IntentBuy, intent.Kind)
	assert.Nil(t, intent.Token)
}
