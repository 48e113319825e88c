// File: internal/scanner/scanner.go
package scanner

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/token-sentinel/internal/analyzer"
	"github.com/smartdevs17/token-sentinel/internal/chain"
	"github.com/smartdevs17/token-sentinel/internal/config"
	"github.com/smartdevs17/token-sentinel/internal/metrics"
	"github.com/smartdevs17/token-sentinel/internal/models"
	"github.com/smartdevs17/token-sentinel/internal/sink"
	"github.com/smartdevs17/token-sentinel/internal/stream"
	"github.com/smartdevs17/token-sentinel/pkg/utils"
)

// Store is the persistence the discovery pipeline needs.
type Store interface {
	stream.CursorStore
	SaveTokenCandidate(ctx context.Context, candidate *models.TokenCandidate) error
	SaveTokenScore(ctx context.Context, score *models.ConfidenceScore) error
}

// TokenScanner is the token discovery pipeline: block stream -> deployment
// detection -> classification -> security analysis -> scoring. It owns its
// cursor and dedup state; nothing here is shared with the wallet tracker.
type TokenScanner struct {
	config *config.ScannerConfig

	client     chain.Client
	stream     *stream.BlockStream
	detector   *DeploymentDetector
	classifier *TokenClassifier
	engine     *analyzer.SecurityEngine
	scorer     *analyzer.Scorer

	liquidity analyzer.LiquidityOracle
	holders   analyzer.HolderSource
	deployers analyzer.DeployerHistorySource

	store   Store
	sink    sink.Sink
	metrics *metrics.Manager
	backoff *chain.Backoff
	logger  *logrus.Logger

	mu      sync.RWMutex
	running bool
	seen    map[common.Address]struct{}
	stats   Stats

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Stats provides discovery pipeline statistics
type Stats struct {
	StartTime        time.Time `json:"start_time"`
	IsRunning        bool      `json:"is_running"`
	BlocksProcessed  uint64    `json:"blocks_processed"`
	Deployments      uint64    `json:"deployments_detected"`
	TokensDiscovered uint64    `json:"tokens_discovered"`
	TokensScored     uint64    `json:"tokens_scored"`
	LastBlock        uint64    `json:"last_block"`
	ErrorCount       uint64    `json:"error_count"`
}

// Deps bundles the scanner's collaborators for construction.
type Deps struct {
	Client    chain.Client
	Store     Store
	Sink      sink.Sink
	Metrics   *metrics.Manager
	Liquidity analyzer.LiquidityOracle
	Holders   analyzer.HolderSource
	Deployers analyzer.DeployerHistorySource
}

// NewTokenScanner creates the token discovery pipeline
func NewTokenScanner(cfg *config.ScannerConfig, chainCfg *config.ChainConfig, deps Deps) (*TokenScanner, error) {
	mode, err := ParseMode(cfg.ClassifierMode)
	if err != nil {
		return nil, err
	}

	chainID := new(big.Int).SetUint64(chainCfg.ChainID)

	return &TokenScanner{
		config:     cfg,
		client:     deps.Client,
		stream:     stream.NewBlockStream(deps.Client, deps.Store, models.PipelineScanner, cfg.CatchupWindow, cfg.BatchSize),
		detector:   NewDeploymentDetector(deps.Client, chainID),
		classifier: NewTokenClassifier(deps.Client, mode),
		engine:     analyzer.NewSecurityEngine(deps.Client),
		scorer:     analyzer.NewScorer(),
		liquidity:  deps.Liquidity,
		holders:    deps.Holders,
		deployers:  deps.Deployers,
		store:      deps.Store,
		sink:       deps.Sink,
		metrics:    deps.Metrics,
		backoff:    chain.NewBackoff(chainCfg.RetryDelay, chainCfg.MaxRetryDelay),
		logger:     utils.GetLogger(),
		seen:       make(map[common.Address]struct{}),
		stopChan:   make(chan struct{}),
	}, nil
}

// Start launches the polling loop
func (ts *TokenScanner) Start(ctx context.Context) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.running {
		return utils.NewAppError(utils.ErrCodeInternal, "Scanner already running", "")
	}

	ts.running = true
	ts.stats.StartTime = time.Now()
	ts.stats.IsRunning = true

	ts.wg.Add(1)
	go ts.loop(ctx)

	ts.logger.WithField("poll_interval", ts.config.PollInterval).Info("Token scanner started")
	return nil
}

// Stop stops the polling loop. Shutdown is observed between block boundaries,
// so the cursor is always left at a resumable point.
func (ts *TokenScanner) Stop() error {
	ts.mu.Lock()
	if !ts.running {
		ts.mu.Unlock()
		return nil
	}
	ts.running = false
	ts.stats.IsRunning = false
	ts.mu.Unlock()

	ts.stopOnce.Do(func() {
		close(ts.stopChan)
	})
	ts.wg.Wait()

	ts.logger.Info("Token scanner stopped")
	return nil
}

// IsRunning returns whether the scanner loop is active
func (ts *TokenScanner) IsRunning() bool {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.running
}

// GetStats returns a snapshot of pipeline statistics
func (ts *TokenScanner) GetStats() Stats {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.stats
}

// loop is the main polling loop
func (ts *TokenScanner) loop(ctx context.Context) {
	defer ts.wg.Done()

	ticker := time.NewTicker(ts.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ts.logger.Info("Scanner loop stopped by context")
			return
		case <-ts.stopChan:
			ts.logger.Info("Scanner loop stopped by stop signal")
			return
		case <-ticker.C:
			if err := ts.pollOnce(ctx); err != nil {
				ts.recordError()
				if ts.metrics != nil {
					ts.metrics.GetPrometheusMetrics().RecordRPCError(models.PipelineScanner)
				}
				ts.logger.WithError(err).Warn("Scanner poll failed, backing off")
				if waitErr := ts.backoff.Wait(ctx); waitErr != nil {
					return
				}
				continue
			}
			ts.backoff.Reset()
		}
	}
}

// pollOnce advances the stream and processes each pending block in order.
// Cancellation is only honored between blocks.
func (ts *TokenScanner) pollOnce(ctx context.Context) error {
	blocks, err := ts.stream.Poll(ctx)
	if err != nil {
		return err
	}

	for _, number := range blocks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ts.stopChan:
			return nil
		default:
		}

		if err := ts.processBlock(ctx, number); err != nil {
			// Leave the cursor on the last good block; the next poll retries
			// this one.
			return err
		}

		if err := ts.stream.Commit(ctx, number); err != nil {
			return err
		}
	}

	return nil
}

// processBlock runs discovery on one block. Whole-block failures (the block
// fetch itself) and transient per-deployment failures propagate so the block
// is retried; a deployment is marked seen only once it has been processed to
// a terminal result, so a retried block picks up exactly the addresses that
// were lost to transient I/O.
func (ts *TokenScanner) processBlock(ctx context.Context, number uint64) error {
	start := time.Now()

	block, err := ts.client.BlockByNumber(ctx, number)
	if err != nil {
		return err
	}

	deployments := ts.detector.Detect(ctx, block)

	for _, dep := range deployments {
		ts.mu.Lock()
		_, dup := ts.seen[dep.Address]
		ts.mu.Unlock()
		if dup {
			continue
		}

		if err := ts.processDeployment(ctx, dep); err != nil {
			if utils.IsTransient(err) {
				return err
			}
			ts.logger.WithError(err).WithField("address", dep.Address.Hex()).Warn("Deployment processing failed, skipping")
		}

		ts.mu.Lock()
		ts.seen[dep.Address] = struct{}{}
		ts.stats.Deployments++
		ts.mu.Unlock()

		if ts.metrics != nil {
			ts.metrics.GetPrometheusMetrics().DeploymentsDetectedTotal.Inc()
		}
	}

	ts.mu.Lock()
	ts.stats.BlocksProcessed++
	ts.stats.LastBlock = number
	ts.mu.Unlock()

	if ts.metrics != nil {
		ts.metrics.GetPrometheusMetrics().RecordBlockProcessed(models.PipelineScanner, time.Since(start), number)
	}

	return nil
}

// processDeployment classifies, analyzes, and scores one deployment. RPC
// failures in classification and security analysis return to the caller so
// transient ones can be retried; persistence and enrichment failures degrade
// in place.
func (ts *TokenScanner) processDeployment(ctx context.Context, dep Deployment) error {
	isToken, err := ts.classifier.IsToken(ctx, dep.Address)
	if err != nil {
		return err
	}

	if ts.metrics != nil {
		ts.metrics.GetPrometheusMetrics().RecordClassification(isToken)
	}
	if !isToken {
		return nil
	}

	candidate := ts.classifier.Metadata(ctx, dep)

	if err := ts.store.SaveTokenCandidate(ctx, candidate); err != nil {
		ts.logger.WithError(err).WithField("address", dep.Address.Hex()).Warn("Failed to persist candidate")
	}

	ts.mu.Lock()
	ts.stats.TokensDiscovered++
	ts.mu.Unlock()
	if ts.metrics != nil {
		ts.metrics.GetPrometheusMetrics().TokensDiscoveredTotal.Inc()
	}

	ts.sink.OnTokenDiscovered(&models.TokenDiscovered{Candidate: candidate})

	liquidity, err := ts.liquidity.USDLiquidity(ctx, dep.Address)
	if err != nil {
		ts.logger.WithError(err).WithField("address", dep.Address.Hex()).Debug("Liquidity oracle unavailable, using zero")
		liquidity = analyzer.LiquidityInfo{}
	}

	if liquidity.USD < ts.config.MinLiquidityUSD && !ts.config.ScoreBelowFloor {
		ts.logger.WithFields(logrus.Fields{
			"address":   dep.Address.Hex(),
			"liquidity": liquidity.USD,
		}).Debug("Below liquidity floor, not scoring")
		return nil
	}

	security, err := ts.engine.Analyze(ctx, dep.Address)
	if err != nil {
		return err
	}

	holders, err := ts.holders.Distribution(ctx, dep.Address)
	if err != nil {
		holders = analyzer.HolderInfo{TopHolderPercent: 100}
	}

	history, err := ts.deployers.History(ctx, dep.Deployer)
	if err != nil {
		history = nil
	}

	score := ts.scorer.Score(dep.Address, liquidity, holders, security, history)

	if err := ts.store.SaveTokenScore(ctx, score); err != nil {
		ts.logger.WithError(err).WithField("address", dep.Address.Hex()).Warn("Failed to persist score")
	}

	ts.mu.Lock()
	ts.stats.TokensScored++
	ts.mu.Unlock()
	if ts.metrics != nil {
		ts.metrics.GetPrometheusMetrics().TokensScoredTotal.WithLabelValues(string(score.RiskTier)).Inc()
	}

	ts.sink.OnTokenScored(&models.TokenScored{
		Candidate: candidate,
		Security:  security,
		Score:     score,
	})
	return nil
}

// ResetDedup clears the seen-address set. Only an explicit reset clears it;
// it is never aged out implicitly.
func (ts *TokenScanner) ResetDedup() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.seen = make(map[common.Address]struct{})
}

func (ts *TokenScanner) recordError() {
	ts.mu.Lock()
	ts.stats.ErrorCount++
	ts.mu.Unlock()
}
