// File: internal/scanner/classifier_test.go
package scanner

import (
	"bytes"
	"context"
	"errors"
	"math"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClient is an in-memory chain backend shared by the scanner tests.
type mockClient struct {
	mu       sync.Mutex
	latest   uint64
	blocks   map[uint64]*types.Block
	receipts map[common.Hash]*types.Receipt
	code     map[common.Address][]byte
	codeErr  error
	callFn   func(msg ethereum.CallMsg) ([]byte, error)
}

func newMockClient() *mockClient {
	return &mockClient{
		blocks:   make(map[uint64]*types.Block),
		receipts: make(map[common.Hash]*types.Receipt),
		code:     make(map[common.Address][]byte),
	}
}

func (mc *mockClient) LatestBlockNumber(ctx context.Context) (uint64, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.latest, nil
}

func (mc *mockClient) BlockByNumber(ctx context.Context, number uint64) (*types.Block, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	block, ok := mc.blocks[number]
	if !ok {
		return nil, errors.New("block not found")
	}
	return block, nil
}

func (mc *mockClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	receipt, ok := mc.receipts[txHash]
	if !ok {
		return nil, errors.New("receipt not found")
	}
	return receipt, nil
}

func (mc *mockClient) CodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.codeErr != nil {
		return nil, mc.codeErr
	}
	return mc.code[account], nil
}

func (mc *mockClient) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	mc.mu.Lock()
	fn := mc.callFn
	mc.mu.Unlock()
	if fn == nil {
		return nil, errors.New("execution reverted")
	}
	return fn(msg)
}

func (mc *mockClient) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (mc *mockClient) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (mc *mockClient) Close() error { return nil }

// padCode pads marker text out to a plausible bytecode length.
func padCode(markers string) []byte {
	code := []byte(markers)
	if len(code) < minBytecodeLen {
		code = append(code, bytes.Repeat([]byte{0x00}, minBytecodeLen-len(code))...)
	}
	return code
}

// abiString ABI-encodes a dynamic string return value.
func abiString(s string) []byte {
	out := common.LeftPadBytes(big.NewInt(32).Bytes(), 32)
	out = append(out, common.LeftPadBytes(big.NewInt(int64(len(s))).Bytes(), 32)...)
	padded := len(s) + (32-len(s)%32)%32
	out = append(out, common.RightPadBytes([]byte(s), padded)...)
	return out
}

func uintWord(v int64) []byte {
	return common.LeftPadBytes(big.NewInt(v).Bytes(), 32)
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeOr, mode)

	mode, err = ParseMode("AND")
	require.NoError(t, err)
	assert.Equal(t, ModeAnd, mode)

	_, err = ParseMode("xor")
	assert.Error(t, err)
}

func TestStaticMatches(t *testing.T) {
	assert.Equal(t, 0, StaticMatches([]byte{0x60, 0x80}))
	assert.Equal(t, 4, StaticMatches([]byte("totalSupply balanceOf allowance approve")))
	// transferfrom matches both itself and transfer.
	assert.Equal(t, 2, StaticMatches([]byte("transferFrom")))
	assert.Equal(t, 6, StaticMatches([]byte("totalsupply balanceof allowance approve transferfrom")))
}

func TestIsTokenShortBytecode(t *testing.T) {
	client := newMockClient()
	tokenAddr := common.HexToAddress("0x4100000000000000000000000000000000000041")
	client.code[tokenAddr] = []byte("totalsupply balanceof allowance approve")

	tc := NewTokenClassifier(client, ModeOr)
	isToken, err := tc.IsToken(context.Background(), tokenAddr)
	require.NoError(t, err)
	assert.False(t, isToken)
}

// Four static matches decide positively in OR mode even when the dynamic
// probe reverts.
func TestIsTokenStaticMatchWithFailingProbe(t *testing.T) {
	client := newMockClient()
	tokenAddr := common.HexToAddress("0x4100000000000000000000000000000000000041")
	client.code[tokenAddr] = padCode("totalsupply balanceof allowance approve")

	tc := NewTokenClassifier(client, ModeOr)
	isToken, err := tc.IsToken(context.Background(), tokenAddr)
	require.NoError(t, err)
	assert.True(t, isToken)
}

func TestIsTokenAndMode(t *testing.T) {
	tokenAddr := common.HexToAddress("0x4100000000000000000000000000000000000041")

	t.Run("static pass but probe fails", func(t *testing.T) {
		client := newMockClient()
		client.code[tokenAddr] = padCode("totalsupply balanceof allowance approve")

		tc := NewTokenClassifier(client, ModeAnd)
		isToken, err := tc.IsToken(context.Background(), tokenAddr)
		require.NoError(t, err)
		assert.False(t, isToken)
	})

	t.Run("static and probe pass", func(t *testing.T) {
		client := newMockClient()
		client.code[tokenAddr] = padCode("totalsupply balanceof allowance approve")
		client.callFn = func(msg ethereum.CallMsg) ([]byte, error) {
			return uintWord(18), nil
		}

		tc := NewTokenClassifier(client, ModeAnd)
		isToken, err := tc.IsToken(context.Background(), tokenAddr)
		require.NoError(t, err)
		assert.True(t, isToken)
	})

	t.Run("static fail short-circuits", func(t *testing.T) {
		client := newMockClient()
		client.code[tokenAddr] = padCode("nothing token-like here")
		client.callFn = func(msg ethereum.CallMsg) ([]byte, error) {
			return uintWord(18), nil
		}

		tc := NewTokenClassifier(client, ModeAnd)
		isToken, err := tc.IsToken(context.Background(), tokenAddr)
		require.NoError(t, err)
		assert.False(t, isToken)
	})
}

func TestIsTokenDynamicFallback(t *testing.T) {
	client := newMockClient()
	tokenAddr := common.HexToAddress("0x4100000000000000000000000000000000000041")
	// Obfuscated bytecode, no static matches, but probes answer.
	client.code[tokenAddr] = padCode("")
	client.callFn = func(msg ethereum.CallMsg) ([]byte, error) {
		return uintWord(1000), nil
	}

	tc := NewTokenClassifier(client, ModeOr)
	isToken, err := tc.IsToken(context.Background(), tokenAddr)
	require.NoError(t, err)
	assert.True(t, isToken)
}

func TestMetadata(t *testing.T) {
	tokenAddr := common.HexToAddress("0x4100000000000000000000000000000000000041")
	dep := Deployment{
		Address:  tokenAddr,
		Deployer: common.HexToAddress("0x4200000000000000000000000000000000000042"),
		TxHash:   common.Hash{0x01},
		Block:    123,
		Time:     time.Unix(1700000000, 0),
	}

	t.Run("full metadata", func(t *testing.T) {
		client := newMockClient()
		client.callFn = func(msg ethereum.CallMsg) ([]byte, error) {
			switch {
			case bytes.Equal(msg.Data, selName):
				return abiString("Pepe Classic"), nil
			case bytes.Equal(msg.Data, selSymbol):
				return abiString("PEPC"), nil
			case bytes.Equal(msg.Data, selDecimals):
				return uintWord(9), nil
			case bytes.Equal(msg.Data, selTotalSupply):
				return uintWord(1_000_000), nil
			}
			return nil, errors.New("execution reverted")
		}

		candidate := NewTokenClassifier(client, ModeOr).Metadata(context.Background(), dep)
		assert.Equal(t, "Pepe Classic", candidate.Name)
		assert.Equal(t, "PEPC", candidate.Symbol)
		assert.Equal(t, uint8(9), candidate.Decimals)
		assert.Equal(t, int64(1_000_000), candidate.TotalSupply.Int64())
		assert.Equal(t, dep.Deployer, candidate.Deployer)
		assert.Equal(t, uint64(123), candidate.DeployBlock)
	})

	t.Run("every probe reverts", func(t *testing.T) {
		client := newMockClient()

		candidate := NewTokenClassifier(client, ModeOr).Metadata(context.Background(), dep)
		assert.Equal(t, "Unknown", candidate.Name)
		assert.Equal(t, "???", candidate.Symbol)
		assert.Equal(t, uint8(18), candidate.Decimals)
		assert.Zero(t, candidate.TotalSupply.Sign())
	})
}

func TestDecodeString(t *testing.T) {
	assert.Equal(t, "Pepe", decodeString(abiString("Pepe")))
	assert.Equal(t, "", decodeString(abiString("")))

	// Fixed-width bytes32-style return.
	raw := common.RightPadBytes([]byte("OLD"), 32)
	assert.Equal(t, "OLD", decodeString(raw))

	// Offset past the end of the return data.
	garbage := append(uintWord(4096), uintWord(0)...)
	assert.Equal(t, "", decodeString(garbage))
}

// Return data is controlled by the probed contract; offset and length words
// near 2^64 must decode to nothing instead of panicking on wrapped bounds.
func TestDecodeStringHostileWords(t *testing.T) {
	maxU64 := new(big.Int).SetUint64(math.MaxUint64)

	// Offset word chosen so naive start+32 arithmetic wraps past zero.
	wrapOffset := common.LeftPadBytes(new(big.Int).Sub(maxU64, big.NewInt(31)).Bytes(), 32)
	assert.Equal(t, "", decodeString(append(wrapOffset, uintWord(5)...)))

	// Valid offset with a length word that wraps the end-of-data check.
	wrapLength := common.LeftPadBytes(new(big.Int).Sub(maxU64, big.NewInt(63)).Bytes(), 32)
	assert.Equal(t, "", decodeString(append(uintWord(32), wrapLength...)))

	// Offset word wider than uint64.
	huge := common.LeftPadBytes(new(big.Int).Lsh(big.NewInt(1), 80).Bytes(), 32)
	assert.Equal(t, "", decodeString(append(huge, uintWord(0)...)))
}
