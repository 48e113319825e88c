// File: internal/stream/stream_test.go
package stream

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/smartdevs17/token-sentinel/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClient struct {
	latest    uint64
	latestErr error
}

func (c *stubClient) LatestBlockNumber(ctx context.Context) (uint64, error) {
	return c.latest, c.latestErr
}

func (c *stubClient) BlockByNumber(ctx context.Context, number uint64) (*types.Block, error) {
	return nil, errors.New("not implemented")
}

func (c *stubClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return nil, errors.New("not implemented")
}

func (c *stubClient) CodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	return nil, nil
}

func (c *stubClient) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	return nil, nil
}

func (c *stubClient) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (c *stubClient) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (c *stubClient) Close() error { return nil }

type memCursorStore struct {
	mu      sync.Mutex
	cursors map[string]uint64
	getErr  error
	setErr  error
}

func newMemCursorStore() *memCursorStore {
	return &memCursorStore{cursors: make(map[string]uint64)}
}

func (s *memCursorStore) GetCursor(ctx context.Context, pipeline string) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return 0, false, s.getErr
	}
	v, ok := s.cursors[pipeline]
	return v, ok, nil
}

func (s *memCursorStore) SetCursor(ctx context.Context, pipeline string, block uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.cursors[pipeline] = block
	return nil
}

func TestPollFreshStartUsesCatchupWindow(t *testing.T) {
	client := &stubClient{latest: 1000}
	bs := NewBlockStream(client, newMemCursorStore(), "scanner", 50, 10)

	blocks, err := bs.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, blocks, 10)
	assert.Equal(t, uint64(951), blocks[0])
	assert.Equal(t, uint64(960), blocks[9])
	assert.Equal(t, uint64(950), bs.Cursor())
}

func TestPollResumesStoredCursor(t *testing.T) {
	client := &stubClient{latest: 1000}
	store := newMemCursorStore()
	store.cursors["tracker"] = 700

	bs := NewBlockStream(client, store, "tracker", 50, 5)
	blocks, err := bs.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, blocks, 5)
	assert.Equal(t, uint64(701), blocks[0])
}

func TestPollShortChain(t *testing.T) {
	client := &stubClient{latest: 8}
	bs := NewBlockStream(client, newMemCursorStore(), "scanner", 50, 100)

	blocks, err := bs.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, blocks, 8)
	assert.Equal(t, uint64(1), blocks[0])
}

func TestPollNothingNew(t *testing.T) {
	client := &stubClient{latest: 100}
	store := newMemCursorStore()
	store.cursors["scanner"] = 100

	bs := NewBlockStream(client, store, "scanner", 50, 10)
	blocks, err := bs.Poll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestPollChainErrorIsTransient(t *testing.T) {
	client := &stubClient{latestErr: errors.New("connection refused")}
	bs := NewBlockStream(client, newMemCursorStore(), "scanner", 50, 10)

	_, err := bs.Poll(context.Background())
	require.Error(t, err)
	assert.True(t, utils.IsTransient(err))
}

func TestCommitAdvancesAndPersists(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{latest: 1000}
	store := newMemCursorStore()

	bs := NewBlockStream(client, store, "scanner", 50, 10)
	_, err := bs.Poll(ctx)
	require.NoError(t, err)

	require.NoError(t, bs.Commit(ctx, 955))
	assert.Equal(t, uint64(955), bs.Cursor())
	assert.Equal(t, uint64(955), store.cursors["scanner"])

	// The cursor never rewinds.
	require.NoError(t, bs.Commit(ctx, 900))
	assert.Equal(t, uint64(955), bs.Cursor())
	assert.Equal(t, uint64(955), store.cursors["scanner"])

	// Subsequent polls start after the committed block.
	blocks, err := bs.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(956), blocks[0])
}

func TestCommitSurvivesPersistenceFailure(t *testing.T) {
	ctx := context.Background()
	client := &stubClient{latest: 1000}
	store := newMemCursorStore()

	bs := NewBlockStream(client, store, "scanner", 50, 10)
	_, err := bs.Poll(ctx)
	require.NoError(t, err)

	store.setErr = errors.New("disk full")
	require.NoError(t, bs.Commit(ctx, 955))
	assert.Equal(t, uint64(955), bs.Cursor())

	store.setErr = nil
	require.NoError(t, bs.Commit(ctx, 956))
	assert.Equal(t, uint64(956), store.cursors["scanner"])
}
