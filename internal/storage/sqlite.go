// File: internal/storage/sqlite.go
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/token-sentinel/internal/models"
	"github.com/smartdevs17/token-sentinel/pkg/utils"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db         *sql.DB
	config     *Config
	logger     *logrus.Logger
	migrations []*Migration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(config *Config) *SQLiteStore {
	return &SQLiteStore{
		config:     config,
		logger:     utils.GetLogger(),
		migrations: GetSQLiteMigrations(),
	}
}

// Connect establishes database connection
func (s *SQLiteStore) Connect() error {
	// Ensure directory exists
	dir := filepath.Dir(s.config.ConnectionString)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase, "Failed to create database directory", err.Error())
		}
	}

	db, err := sql.Open("sqlite", s.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to open SQLite database", err.Error())
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.config.MaxConnections)
	db.SetMaxIdleConns(s.config.MaxConnections / 2)
	db.SetConnMaxLifetime(s.config.MaxIdleTime)

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to enable WAL mode", err.Error())
	}

	s.db = db
	s.logger.WithField("path", s.config.ConnectionString).Info("SQLite database connected")

	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		s.logger.Info("SQLite database connection closed")
		return err
	}
	return nil
}

// Ping checks database connectivity
func (s *SQLiteStore) Ping() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	return s.db.Ping()
}

// Migrate runs database migrations
func (s *SQLiteStore) Migrate() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}

	for _, migration := range s.migrations {
		s.logger.WithFields(logrus.Fields{
			"version":     migration.Version,
			"description": migration.Description,
		}).Info("Applying migration")

		if _, err := s.db.Exec(migration.SQL); err != nil {
			return utils.NewAppError(utils.ErrCodeDatabase,
				fmt.Sprintf("Migration %s failed", migration.Version),
				err.Error())
		}
	}

	s.logger.Info("Database migrations completed")
	return nil
}

// GetCursor returns a pipeline's last committed block
func (s *SQLiteStore) GetCursor(ctx context.Context, pipeline string) (uint64, bool, error) {
	var block uint64
	err := s.db.QueryRowContext(ctx,
		"SELECT last_block FROM cursors WHERE pipeline = ?", pipeline).Scan(&block)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, utils.NewAppError(utils.ErrCodeDatabase, "Failed to load cursor", err.Error())
	}
	return block, true, nil
}

// SetCursor persists a pipeline's last committed block
func (s *SQLiteStore) SetCursor(ctx context.Context, pipeline string, block uint64) error {
	query := `
		INSERT INTO cursors (pipeline, last_block, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(pipeline) DO UPDATE SET last_block = excluded.last_block, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, pipeline, block); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save cursor", err.Error())
	}
	return nil
}

// SaveTokenCandidate inserts a candidate. Candidates are immutable once
// created, so a duplicate address is a no-op.
func (s *SQLiteStore) SaveTokenCandidate(ctx context.Context, candidate *models.TokenCandidate) error {
	query := `
		INSERT OR IGNORE INTO token_candidates
		(address, name, symbol, decimals, total_supply, deployer, deploy_block, deploy_tx_hash, discovered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		candidate.Address.Hex(), candidate.Name, candidate.Symbol, candidate.Decimals,
		bigIntString(candidate.TotalSupply), candidate.Deployer.Hex(),
		candidate.DeployBlock, candidate.DeployTxHash.Hex(), candidate.DiscoveredAt)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save token candidate", err.Error())
	}
	return nil
}

// GetTokenCandidate returns one candidate, or nil when unknown
func (s *SQLiteStore) GetTokenCandidate(ctx context.Context, address common.Address) (*models.TokenCandidate, error) {
	query := `
		SELECT address, name, symbol, decimals, total_supply, deployer, deploy_block, deploy_tx_hash, discovered_at
		FROM token_candidates WHERE address = ?
	`
	candidate, err := scanCandidate(s.db.QueryRowContext(ctx, query, address.Hex()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to load token candidate", err.Error())
	}
	return candidate, nil
}

// GetTokenCandidates returns the most recently discovered candidates
func (s *SQLiteStore) GetTokenCandidates(ctx context.Context, limit int) ([]*models.TokenCandidate, error) {
	query := `
		SELECT address, name, symbol, decimals, total_supply, deployer, deploy_block, deploy_tx_hash, discovered_at
		FROM token_candidates ORDER BY discovered_at DESC LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query token candidates", err.Error())
	}
	defer rows.Close()

	var out []*models.TokenCandidate
	for rows.Next() {
		candidate, err := scanCandidate(rows)
		if err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan token candidate", err.Error())
		}
		out = append(out, candidate)
	}
	return out, rows.Err()
}

// SaveTokenScore upserts a confidence score; a re-scan overwrites
func (s *SQLiteStore) SaveTokenScore(ctx context.Context, score *models.ConfidenceScore) error {
	query := `
		INSERT OR REPLACE INTO token_scores
		(address, liquidity_score, holder_score, contract_score, deployer_score, confidence, risk_tier, scored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`
	_, err := s.db.ExecContext(ctx, query,
		score.Address.Hex(), score.LiquidityScore, score.HolderScore,
		score.ContractScore, score.DeployerScore, score.Confidence, string(score.RiskTier))
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save token score", err.Error())
	}
	return nil
}

// GetTokenScore returns one score, or nil when the token was never scored
func (s *SQLiteStore) GetTokenScore(ctx context.Context, address common.Address) (*models.ConfidenceScore, error) {
	query := `
		SELECT address, liquidity_score, holder_score, contract_score, deployer_score, confidence, risk_tier
		FROM token_scores WHERE address = ?
	`
	score, err := scanScore(s.db.QueryRowContext(ctx, query, address.Hex()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to load token score", err.Error())
	}
	return score, nil
}

// GetTokenScores returns scores, optionally filtered by risk tier, most
// confident first.
func (s *SQLiteStore) GetTokenScores(ctx context.Context, tier models.RiskTier, limit int) ([]*models.ConfidenceScore, error) {
	query := `
		SELECT address, liquidity_score, holder_score, contract_score, deployer_score, confidence, risk_tier
		FROM token_scores
	`
	args := []interface{}{}
	if tier != "" {
		query += " WHERE risk_tier = ?"
		args = append(args, string(tier))
	}
	query += " ORDER BY confidence DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query token scores", err.Error())
	}
	defer rows.Close()

	var out []*models.ConfidenceScore
	for rows.Next() {
		score, err := scanScore(rows)
		if err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan token score", err.Error())
		}
		out = append(out, score)
	}
	return out, rows.Err()
}

// SaveTrade inserts a trade; a duplicate (wallet, tx_hash) is a no-op
func (s *SQLiteStore) SaveTrade(ctx context.Context, trade *models.Trade) error {
	query := `
		INSERT OR IGNORE INTO trades
		(tx_hash, wallet, token, kind, amount_token, amount_base, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		trade.TxHash.Hex(), trade.Wallet.Hex(), trade.Token.Hex(),
		string(trade.Kind), trade.AmountToken, trade.AmountBase, trade.Timestamp)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save trade", err.Error())
	}
	return nil
}

// GetTrades returns a wallet's trades in chronological order
func (s *SQLiteStore) GetTrades(ctx context.Context, wallet common.Address, limit int) ([]*models.Trade, error) {
	query := `
		SELECT tx_hash, wallet, token, kind, amount_token, amount_base, timestamp
		FROM trades WHERE wallet = ? ORDER BY timestamp ASC LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, wallet.Hex(), limit)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query trades", err.Error())
	}
	defer rows.Close()

	var out []*models.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan trade", err.Error())
		}
		out = append(out, trade)
	}
	return out, rows.Err()
}

// SaveWalletStats upserts a wallet's derived stats
func (s *SQLiteStore) SaveWalletStats(ctx context.Context, stats *models.WalletStats) error {
	query := `
		INSERT OR REPLACE INTO wallet_stats
		(address, label, total_trades, wins, losses, win_rate, total_invested, total_returned,
		 realized_pnl, avg_hold_hours, tokens_deployed, confidence_score, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`
	_, err := s.db.ExecContext(ctx, query,
		stats.Address.Hex(), string(stats.Label), stats.TotalTrades, stats.Wins, stats.Losses,
		stats.WinRate, stats.TotalInvested, stats.TotalReturned, stats.RealizedPnL,
		stats.AvgHoldHours, stats.TokensDeployed, stats.ConfidenceScore)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save wallet stats", err.Error())
	}
	return nil
}

// GetWalletStats returns one wallet's stats, or nil when unknown
func (s *SQLiteStore) GetWalletStats(ctx context.Context, address common.Address) (*models.WalletStats, error) {
	stats, err := scanWalletStats(s.db.QueryRowContext(ctx, walletStatsQuery+" WHERE address = ?", address.Hex()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to load wallet stats", err.Error())
	}
	return stats, nil
}

// GetAllWalletStats returns every tracked wallet's stats
func (s *SQLiteStore) GetAllWalletStats(ctx context.Context) ([]*models.WalletStats, error) {
	rows, err := s.db.QueryContext(ctx, walletStatsQuery+" ORDER BY confidence_score DESC")
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to query wallet stats", err.Error())
	}
	defer rows.Close()

	var out []*models.WalletStats
	for rows.Next() {
		stats, err := scanWalletStats(rows)
		if err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to scan wallet stats", err.Error())
		}
		out = append(out, stats)
	}
	return out, rows.Err()
}

// GetStorageStats returns storage statistics
func (s *SQLiteStore) GetStorageStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	counts := map[string]*int64{
		"token_candidates": &stats.TotalCandidates,
		"token_scores":     &stats.TotalScores,
		"trades":           &stats.TotalTrades,
		"wallet_stats":     &stats.TotalWallets,
	}
	for table, dst := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(dst); err != nil {
			return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to count "+table, err.Error())
		}
	}

	var oldest, latest sql.NullTime
	err := s.db.QueryRowContext(ctx,
		"SELECT MIN(discovered_at), MAX(discovered_at) FROM token_candidates").Scan(&oldest, &latest)
	if err == nil {
		if oldest.Valid {
			stats.OldestCandidate = &oldest.Time
		}
		if latest.Valid {
			stats.LatestCandidate = &latest.Time
		}
	}

	return stats, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCandidate(row rowScanner) (*models.TokenCandidate, error) {
	var address, name, symbol, supply, deployer, txHash string
	var decimals uint8
	var block uint64
	var discoveredAt time.Time
	if err := row.Scan(&address, &name, &symbol, &decimals, &supply, &deployer, &block, &txHash, &discoveredAt); err != nil {
		return nil, err
	}

	totalSupply, ok := new(big.Int).SetString(supply, 10)
	if !ok {
		totalSupply = big.NewInt(0)
	}

	return &models.TokenCandidate{
		Address:      common.HexToAddress(address),
		Name:         name,
		Symbol:       symbol,
		Decimals:     decimals,
		TotalSupply:  totalSupply,
		Deployer:     common.HexToAddress(deployer),
		DeployBlock:  block,
		DeployTxHash: common.HexToHash(txHash),
		DiscoveredAt: discoveredAt,
	}, nil
}

func scanScore(row rowScanner) (*models.ConfidenceScore, error) {
	var address, tier string
	var liquidity, holder, contract, deployer, combined int
	if err := row.Scan(&address, &liquidity, &holder, &contract, &deployer, &combined, &tier); err != nil {
		return nil, err
	}
	return &models.ConfidenceScore{
		Address:        common.HexToAddress(address),
		LiquidityScore: liquidity,
		HolderScore:    holder,
		ContractScore:  contract,
		DeployerScore:  deployer,
		Confidence:     combined,
		RiskTier:       models.RiskTier(tier),
	}, nil
}

func scanTrade(row rowScanner) (*models.Trade, error) {
	var txHash, wallet, token, kind string
	var amountToken, amountBase float64
	var timestamp time.Time
	if err := row.Scan(&txHash, &wallet, &token, &kind, &amountToken, &amountBase, &timestamp); err != nil {
		return nil, err
	}
	return &models.Trade{
		TxHash:      common.HexToHash(txHash),
		Wallet:      common.HexToAddress(wallet),
		Token:       common.HexToAddress(token),
		Kind:        models.TradeKind(kind),
		AmountToken: amountToken,
		AmountBase:  amountBase,
		Timestamp:   timestamp,
	}, nil
}

const walletStatsQuery = `
	SELECT address, label, total_trades, wins, losses, win_rate, total_invested, total_returned,
	       realized_pnl, avg_hold_hours, tokens_deployed, confidence_score
	FROM wallet_stats
`

func scanWalletStats(row rowScanner) (*models.WalletStats, error) {
	var address, label string
	var totalTrades, wins, losses, deployed, confidence int
	var winRate, invested, returned, pnl, holdHours float64
	err := row.Scan(&address, &label, &totalTrades, &wins, &losses, &winRate,
		&invested, &returned, &pnl, &holdHours, &deployed, &confidence)
	if err != nil {
		return nil, err
	}
	return &models.WalletStats{
		Address:         common.HexToAddress(address),
		Label:           models.WalletLabel(label),
		TotalTrades:     totalTrades,
		Wins:            wins,
		Losses:          losses,
		WinRate:         winRate,
		TotalInvested:   invested,
		TotalReturned:   returned,
		RealizedPnL:     pnl,
		AvgHoldHours:    holdHours,
		TokensDeployed:  deployed,
		ConfidenceScore: confidence,
	}, nil
}

func bigIntString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
