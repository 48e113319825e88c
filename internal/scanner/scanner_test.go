// File: internal/scanner/scanner_test.go
package scanner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/smartdevs17/token-sentinel/internal/analyzer"
	"github.com/smartdevs17/token-sentinel/internal/config"
	"github.com/smartdevs17/token-sentinel/internal/models"
	"github.com/smartdevs17/token-sentinel/internal/sink"
	"github.com/smartdevs17/token-sentinel/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mu             sync.Mutex
	cursors        map[string]uint64
	candidates     map[common.Address]*models.TokenCandidate
	scores         map[common.Address]*models.ConfidenceScore
	candidateSaves int
	scoreSaves     int
}

func newMockStore() *mockStore {
	return &mockStore{
		cursors:    make(map[string]uint64),
		candidates: make(map[common.Address]*models.TokenCandidate),
		scores:     make(map[common.Address]*models.ConfidenceScore),
	}
}

func (ms *mockStore) GetCursor(ctx context.Context, pipeline string) (uint64, bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	v, ok := ms.cursors[pipeline]
	return v, ok, nil
}

func (ms *mockStore) SetCursor(ctx context.Context, pipeline string, block uint64) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.cursors[pipeline] = block
	return nil
}

func (ms *mockStore) SaveTokenCandidate(ctx context.Context, candidate *models.TokenCandidate) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.candidates[candidate.Address] = candidate
	ms.candidateSaves++
	return nil
}

func (ms *mockStore) SaveTokenScore(ctx context.Context, score *models.ConfidenceScore) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.scores[score.Address] = score
	ms.scoreSaves++
	return nil
}

func newTestScanner(t *testing.T, client *mockClient, store *mockStore) *TokenScanner {
	t.Helper()

	cfg := &config.ScannerConfig{
		PollInterval:    time.Second,
		CatchupWindow:   10,
		BatchSize:       50,
		ClassifierMode:  "or",
		MinLiquidityUSD: 0,
		ScoreBelowFloor: true,
	}
	chainCfg := &config.ChainConfig{
		ChainID:       1,
		RetryDelay:    10 * time.Millisecond,
		MaxRetryDelay: 100 * time.Millisecond,
	}

	liquidity, holders, deployers := analyzer.DefaultStubSources()
	ts, err := NewTokenScanner(cfg, chainCfg, Deps{
		Client:    client,
		Store:     store,
		Sink:      sink.NewRegistry(),
		Liquidity: liquidity,
		Holders:   holders,
		Deployers: deployers,
	})
	require.NoError(t, err)
	return ts
}

func TestProcessBlockDiscoversToken(t *testing.T) {
	client := newMockClient()
	store := newMockStore()

	deployed := common.HexToAddress("0x4100000000000000000000000000000000000041")
	create := creationTx(t, 0)
	client.blocks[100] = newTestBlock(100, create)
	client.receipts[create.Hash()] = successReceipt(deployed)
	client.code[deployed] = padCode("totalsupply balanceof allowance approve transferfrom")

	ts := newTestScanner(t, client, store)
	require.NoError(t, ts.processBlock(context.Background(), 100))

	require.Contains(t, store.candidates, deployed)
	candidate := store.candidates[deployed]
	assert.Equal(t, testDeployer, candidate.Deployer)
	assert.Equal(t, uint64(100), candidate.DeployBlock)

	require.Contains(t, store.scores, deployed)
	score := store.scores[deployed]
	assert.GreaterOrEqual(t, score.Confidence, 0)
	assert.LessOrEqual(t, score.Confidence, 100)

	stats := ts.GetStats()
	assert.Equal(t, uint64(1), stats.Deployments)
	assert.Equal(t, uint64(1), stats.TokensDiscovered)
	assert.Equal(t, uint64(1), stats.TokensScored)
}

// Replaying a block must not produce a second candidate.
func TestProcessBlockIsIdempotent(t *testing.T) {
	client := newMockClient()
	store := newMockStore()

	deployed := common.HexToAddress("0x4100000000000000000000000000000000000041")
	create := creationTx(t, 0)
	client.blocks[100] = newTestBlock(100, create)
	client.receipts[create.Hash()] = successReceipt(deployed)
	client.code[deployed] = padCode("totalsupply balanceof allowance approve transferfrom")

	ts := newTestScanner(t, client, store)
	require.NoError(t, ts.processBlock(context.Background(), 100))
	require.NoError(t, ts.processBlock(context.Background(), 100))

	assert.Equal(t, 1, store.candidateSaves)
	assert.Equal(t, 1, store.scoreSaves)
	assert.Equal(t, uint64(1), ts.GetStats().Deployments)
}

// A transient RPC failure during classification must not consume the
// deployment's dedup slot: the error propagates, the cursor stays behind the
// block, and the retry discovers the token.
func TestProcessBlockRetriesTransientClassification(t *testing.T) {
	client := newMockClient()
	store := newMockStore()

	deployed := common.HexToAddress("0x4100000000000000000000000000000000000041")
	create := creationTx(t, 0)
	client.blocks[100] = newTestBlock(100, create)
	client.receipts[create.Hash()] = successReceipt(deployed)
	client.code[deployed] = padCode("totalsupply balanceof allowance approve transferfrom")
	client.codeErr = errors.New("connection reset by peer")

	ts := newTestScanner(t, client, store)
	err := ts.processBlock(context.Background(), 100)
	require.Error(t, err)
	assert.True(t, utils.IsTransient(err))
	assert.Empty(t, store.candidates)
	assert.Zero(t, ts.GetStats().Deployments)

	// Node recovers; the retried block picks the deployment back up.
	client.mu.Lock()
	client.codeErr = nil
	client.mu.Unlock()

	require.NoError(t, ts.processBlock(context.Background(), 100))
	require.Contains(t, store.candidates, deployed)
	assert.Equal(t, uint64(1), ts.GetStats().Deployments)
	assert.Equal(t, uint64(1), ts.GetStats().TokensDiscovered)
}

func TestProcessBlockSkipsNonToken(t *testing.T) {
	client := newMockClient()
	store := newMockStore()

	deployed := common.HexToAddress("0x4100000000000000000000000000000000000041")
	create := creationTx(t, 0)
	client.blocks[100] = newTestBlock(100, create)
	client.receipts[create.Hash()] = successReceipt(deployed)
	client.code[deployed] = padCode("just a multisig")

	ts := newTestScanner(t, client, store)
	require.NoError(t, ts.processBlock(context.Background(), 100))

	assert.Empty(t, store.candidates)
	assert.Equal(t, uint64(1), ts.GetStats().Deployments)
	assert.Zero(t, ts.GetStats().TokensDiscovered)
}

func TestPollOnceCommitsCursor(t *testing.T) {
	client := newMockClient()
	store := newMockStore()
	client.latest = 100
	store.cursors[models.PipelineScanner] = 98

	client.blocks[99] = newTestBlock(99)
	client.blocks[100] = newTestBlock(100)

	ts := newTestScanner(t, client, store)
	require.NoError(t, ts.pollOnce(context.Background()))

	assert.Equal(t, uint64(100), store.cursors[models.PipelineScanner])
	assert.Equal(t, uint64(2), ts.GetStats().BlocksProcessed)
}

func TestPollOnceStopsOnMissingBlock(t *testing.T) {
	client := newMockClient()
	store := newMockStore()
	client.latest = 100
	store.cursors[models.PipelineScanner] = 98

	client.blocks[99] = newTestBlock(99)
	// Block 100 is missing: the cursor must stay on the last good block.

	ts := newTestScanner(t, client, store)
	require.Error(t, ts.pollOnce(context.Background()))
	assert.Equal(t, uint64(99), store.cursors[models.PipelineScanner])
}
