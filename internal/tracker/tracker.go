// File: internal/tracker/tracker.go
package tracker

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/token-sentinel/internal/chain"
	"github.com/smartdevs17/token-sentinel/internal/config"
	"github.com/smartdevs17/token-sentinel/internal/metrics"
	"github.com/smartdevs17/token-sentinel/internal/models"
	"github.com/smartdevs17/token-sentinel/internal/sink"
	"github.com/smartdevs17/token-sentinel/internal/stream"
	"github.com/smartdevs17/token-sentinel/pkg/utils"
)

// Store is the persistence the tracking pipeline needs.
type Store interface {
	stream.CursorStore
	SaveTrade(ctx context.Context, trade *models.Trade) error
	SaveWalletStats(ctx context.Context, stats *models.WalletStats) error
}

// WalletTracker is the wallet tracking pipeline: block stream -> activity
// monitor -> trade ledger -> behavior classification. It owns its own cursor
// and dedup state, fully independent of the token scanner.
type WalletTracker struct {
	config *config.TrackerConfig

	client  chain.Client
	stream  *stream.BlockStream
	monitor *ActivityMonitor
	ledger  *TradeLedger
	signer  types.Signer

	store   Store
	sink    sink.Sink
	metrics *metrics.Manager
	backoff *chain.Backoff
	logger  *logrus.Logger

	mu       sync.RWMutex
	running  bool
	deployed map[common.Address]int
	stats    Stats

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Stats provides tracking pipeline statistics
type Stats struct {
	StartTime       time.Time `json:"start_time"`
	IsRunning       bool      `json:"is_running"`
	BlocksProcessed uint64    `json:"blocks_processed"`
	IntentsObserved uint64    `json:"intents_observed"`
	TradesRecorded  uint64    `json:"trades_recorded"`
	WalletsWatched  int       `json:"wallets_watched"`
	LastBlock       uint64    `json:"last_block"`
	ErrorCount      uint64    `json:"error_count"`
}

// Deps bundles the tracker's collaborators for construction.
type Deps struct {
	Client  chain.Client
	Store   Store
	Sink    sink.Sink
	Metrics *metrics.Manager
}

// NewWalletTracker creates the wallet tracking pipeline
func NewWalletTracker(cfg *config.TrackerConfig, chainCfg *config.ChainConfig, deps Deps) (*WalletTracker, error) {
	entries := make([]models.WalletWatchEntry, 0, len(cfg.Wallets))
	for _, w := range cfg.Wallets {
		if !common.IsHexAddress(w.Address) {
			return nil, utils.NewAppError(utils.ErrCodeConfiguration, "Invalid watch-list address", w.Address)
		}
		entries = append(entries, models.WalletWatchEntry{
			Address:      common.HexToAddress(w.Address),
			Label:        w.Label,
			CopyTrade:    w.CopyTrade,
			AlertOnTrade: w.AlertOnTrade,
		})
	}

	chainID := new(big.Int).SetUint64(chainCfg.ChainID)

	return &WalletTracker{
		config:   cfg,
		client:   deps.Client,
		stream:   stream.NewBlockStream(deps.Client, deps.Store, models.PipelineTracker, cfg.CatchupWindow, cfg.BatchSize),
		monitor:  NewActivityMonitor(entries),
		ledger:   NewTradeLedger(),
		signer:   types.LatestSignerForChainID(chainID),
		store:    deps.Store,
		sink:     deps.Sink,
		metrics:  deps.Metrics,
		backoff:  chain.NewBackoff(chainCfg.RetryDelay, chainCfg.MaxRetryDelay),
		logger:   utils.GetLogger(),
		deployed: make(map[common.Address]int),
		stopChan: make(chan struct{}),
	}, nil
}

// Start launches the polling loop
func (wt *WalletTracker) Start(ctx context.Context) error {
	wt.mu.Lock()
	defer wt.mu.Unlock()

	if wt.running {
		return utils.NewAppError(utils.ErrCodeInternal, "Tracker already running", "")
	}

	wt.running = true
	wt.stats.StartTime = time.Now()
	wt.stats.IsRunning = true
	wt.stats.WalletsWatched = len(wt.monitor.Watched())

	wt.wg.Add(1)
	go wt.loop(ctx)

	wt.logger.WithFields(logrus.Fields{
		"poll_interval": wt.config.PollInterval,
		"wallets":       wt.stats.WalletsWatched,
	}).Info("Wallet tracker started")
	return nil
}

// Stop stops the polling loop between block boundaries.
func (wt *WalletTracker) Stop() error {
	wt.mu.Lock()
	if !wt.running {
		wt.mu.Unlock()
		return nil
	}
	wt.running = false
	wt.stats.IsRunning = false
	wt.mu.Unlock()

	wt.stopOnce.Do(func() {
		close(wt.stopChan)
	})
	wt.wg.Wait()

	wt.logger.Info("Wallet tracker stopped")
	return nil
}

// IsRunning returns whether the tracker loop is active
func (wt *WalletTracker) IsRunning() bool {
	wt.mu.RLock()
	defer wt.mu.RUnlock()
	return wt.running
}

// GetStats returns a snapshot of pipeline statistics
func (wt *WalletTracker) GetStats() Stats {
	wt.mu.RLock()
	defer wt.mu.RUnlock()
	stats := wt.stats
	stats.WalletsWatched = len(wt.monitor.Watched())
	return stats
}

// Ledger exposes the trade ledger for read-only queries
func (wt *WalletTracker) Ledger() *TradeLedger {
	return wt.ledger
}

// Watch adds a wallet to the watch-list at runtime
func (wt *WalletTracker) Watch(entry models.WalletWatchEntry) {
	wt.monitor.AddWallet(entry)
	wt.logger.WithField("wallet", entry.Address.Hex()).Info("Wallet added to watch-list")
}

// Unwatch removes a wallet from the watch-list
func (wt *WalletTracker) Unwatch(address common.Address) {
	wt.monitor.RemoveWallet(address)
	wt.logger.WithField("wallet", address.Hex()).Info("Wallet removed from watch-list")
}

// Watched returns the current watch-list
func (wt *WalletTracker) Watched() []models.WalletWatchEntry {
	return wt.monitor.Watched()
}

// StatsOf returns the derived stats for one watched wallet
func (wt *WalletTracker) StatsOf(wallet common.Address) *models.WalletStats {
	wt.mu.RLock()
	deployed := wt.deployed[wallet]
	wt.mu.RUnlock()
	return wt.ledger.StatsFor(wallet, deployed)
}

// loop is the main polling loop
func (wt *WalletTracker) loop(ctx context.Context) {
	defer wt.wg.Done()

	ticker := time.NewTicker(wt.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			wt.logger.Info("Tracker loop stopped by context")
			return
		case <-wt.stopChan:
			wt.logger.Info("Tracker loop stopped by stop signal")
			return
		case <-ticker.C:
			if err := wt.pollOnce(ctx); err != nil {
				wt.recordError()
				if wt.metrics != nil {
					wt.metrics.GetPrometheusMetrics().RecordRPCError(models.PipelineTracker)
				}
				wt.logger.WithError(err).Warn("Tracker poll failed, backing off")
				if waitErr := wt.backoff.Wait(ctx); waitErr != nil {
					return
				}
				continue
			}
			wt.backoff.Reset()
		}
	}
}

// pollOnce advances the stream and processes each pending block in order.
// Cancellation is only honored between blocks.
func (wt *WalletTracker) pollOnce(ctx context.Context) error {
	blocks, err := wt.stream.Poll(ctx)
	if err != nil {
		return err
	}

	for _, number := range blocks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wt.stopChan:
			return nil
		default:
		}

		if err := wt.processBlock(ctx, number); err != nil {
			return err
		}

		if err := wt.stream.Commit(ctx, number); err != nil {
			return err
		}
	}

	return nil
}

// processBlock scans one block's transactions for watched-wallet activity.
// Only the block fetch itself can fail the block; per-transaction problems
// are skipped.
func (wt *WalletTracker) processBlock(ctx context.Context, number uint64) error {
	start := time.Now()

	block, err := wt.client.BlockByNumber(ctx, number)
	if err != nil {
		return err
	}

	blockTime := time.Unix(int64(block.Time()), 0)

	for _, tx := range block.Transactions() {
		sender, err := types.Sender(wt.signer, tx)
		if err != nil {
			wt.logger.WithError(err).WithField("tx", tx.Hash().Hex()).Debug("Failed to recover sender, skipping")
			continue
		}

		if _, watched := wt.monitor.Entry(sender); !watched {
			continue
		}

		if tx.To() == nil {
			wt.recordDeployment(ctx, sender, tx)
			continue
		}

		intent := wt.monitor.Observe(sender, tx, number, blockTime)
		if intent == nil {
			continue
		}
		wt.processIntent(ctx, intent)
	}

	wt.mu.Lock()
	wt.stats.BlocksProcessed++
	wt.stats.LastBlock = number
	wt.mu.Unlock()

	if wt.metrics != nil {
		wt.metrics.GetPrometheusMetrics().RecordBlockProcessed(models.PipelineTracker, time.Since(start), number)
	}

	return nil
}

// recordDeployment counts a successful contract creation by a watched wallet.
// Deployments drive the BUILDER label.
func (wt *WalletTracker) recordDeployment(ctx context.Context, sender common.Address, tx *types.Transaction) {
	receipt, err := wt.client.TransactionReceipt(ctx, tx.Hash())
	if err != nil {
		wt.logger.WithError(err).WithField("tx", tx.Hash().Hex()).Warn("Failed to get receipt for watched creation tx, skipping")
		return
	}
	if receipt.Status != types.ReceiptStatusSuccessful || receipt.ContractAddress == (common.Address{}) {
		return
	}

	wt.mu.Lock()
	wt.deployed[sender]++
	deployed := wt.deployed[sender]
	wt.mu.Unlock()

	wt.logger.WithFields(logrus.Fields{
		"wallet":   sender.Hex(),
		"contract": receipt.ContractAddress.Hex(),
		"deployed": deployed,
	}).Info("Watched wallet deployed a contract")

	wt.emitStats(ctx, sender)
}

// processIntent records ledger trades for BUY/SELL intents and emits events.
func (wt *WalletTracker) processIntent(ctx context.Context, intent *models.TradeIntent) {
	wt.mu.Lock()
	wt.stats.IntentsObserved++
	wt.mu.Unlock()

	if wt.metrics != nil {
		wt.metrics.GetPrometheusMetrics().WalletIntentsTotal.WithLabelValues(string(intent.Kind)).Inc()
	}

	entry, _ := wt.monitor.Entry(intent.Wallet)
	wt.sink.OnWalletTrade(&models.WalletTradeObserved{Entry: entry, Intent: intent})

	trade := tradeFromIntent(intent)
	if trade == nil {
		return
	}

	if !wt.ledger.Record(trade) {
		return
	}

	wt.mu.Lock()
	wt.stats.TradesRecorded++
	wt.mu.Unlock()
	if wt.metrics != nil {
		wt.metrics.GetPrometheusMetrics().TradesRecordedTotal.WithLabelValues(string(trade.Kind)).Inc()
	}

	if err := wt.store.SaveTrade(ctx, trade); err != nil {
		wt.logger.WithError(err).WithField("tx", trade.TxHash.Hex()).Warn("Failed to persist trade")
	}

	wt.emitStats(ctx, intent.Wallet)
}

// emitStats recomputes a wallet's derived stats and publishes them.
func (wt *WalletTracker) emitStats(ctx context.Context, wallet common.Address) {
	stats := wt.StatsOf(wallet)

	if err := wt.store.SaveWalletStats(ctx, stats); err != nil {
		wt.logger.WithError(err).WithField("wallet", wallet.Hex()).Warn("Failed to persist wallet stats")
	}

	wt.sink.OnWalletUpdated(&models.WalletUpdated{Stats: stats})
}

// tradeFromIntent converts a BUY/SELL intent into a ledger trade. Other
// intent kinds carry no trade semantics and return nil. Token amounts are
// not decodable from the router calldata for buys, so only the base-currency
// leg is tracked; the ledger's P&L math needs only that.
func tradeFromIntent(intent *models.TradeIntent) *models.Trade {
	if intent.Token == nil {
		return nil
	}

	var kind models.TradeKind
	switch intent.Kind {
	case models.IntentBuy:
		kind = models.TradeBuy
	case models.IntentSell:
		kind = models.TradeSell
	default:
		return nil
	}

	return &models.Trade{
		TxHash:     intent.TxHash,
		Wallet:     intent.Wallet,
		Token:      *intent.Token,
		Kind:       kind,
		AmountBase: intent.AmountBase,
		Timestamp:  intent.Timestamp,
	}
}

// ResetDedup clears the monitor's observed-transaction sets
func (wt *WalletTracker) ResetDedup() {
	wt.monitor.ResetDedup()
}

func (wt *WalletTracker) recordError() {
	wt.mu.Lock()
	wt.stats.ErrorCount++
	wt.mu.Unlock()
}
