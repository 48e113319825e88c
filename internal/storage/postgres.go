// File: internal/storage/postgres.go
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/token-sentinel/internal/models"
	"github.com/smartdevs17/token-sentinel/pkg/utils"
)

// PostgreSQLStore implements Store using PostgreSQL
type PostgreSQLStore struct {
	db         *sql.DB
	config     *Config
	logger     *logrus.Logger
	migrations []*Migration
}

// NewPostgreSQLStore creates a new PostgreSQL store instance
func NewPostgreSQLStore(config *Config) *PostgreSQLStore {
	return &PostgreSQLStore{
		config:     config,
		logger:     utils.GetLogger(),
		migrations: GetPostgreSQLMigrations(),
	}
}

// Connect establishes database connection
func (s *PostgreSQLStore) Connect() error {
	db, err := sql.Open("postgres", s.config.ConnectionString)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to open PostgreSQL database", err.Error())
	}

	db.SetMaxOpenConns(s.config.MaxConnections)
	db.SetMaxIdleConns(s.config.MaxConnections / 2)
	db.SetConnMaxLifetime(s.config.MaxIdleTime)

	if err := db.Ping(); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to ping PostgreSQL database", err.Error())
	}

	s.db = db
	s.logger.Info("PostgreSQL database connected")

	return nil
}

// Close closes the database connection
func (s *PostgreSQLStore) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		s.logger.Info("PostgreSQL database connection closed")
		return err
	}
	return nil
}

// Ping checks database connectivity
func (s *PostgreSQLStore) Ping() error {
	if s.db == nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Database not connected", "")
	}
	return s.db.Ping()
}

// Migrate runs database migrations
func (s *PostgreSQLStore) Migrate() error {
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
func (s *PostgreSQLStore) GetCursor(ctx context.Context, pipeline string) (uint64, bool, error) {
	var block uint64
	err := s.db.QueryRowContext(ctx,
		"SELECT last_block FROM cursors WHERE pipeline = $1", pipeline).Scan(&block)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, utils.NewAppError(utils.ErrCodeDatabase, "Failed to load cursor", err.Error())
	}
	return block, true, nil
}

// SetCursor persists a pipeline's last committed block
func (s *PostgreSQLStore) SetCursor(ctx context.Context, pipeline string, block uint64) error {
	query := `
		INSERT INTO cursors (pipeline, last_block, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (pipeline) DO UPDATE SET last_block = EXCLUDED.last_block, updated_at = NOW()
	`
	if _, err := s.db.ExecContext(ctx, query, pipeline, block); err != nil {
		return utils.NewAppError(utils.ErrCodeDatabase, "Failed to save cursor", err.Error())
	}
	return nil
}

// SaveTokenCandidate inserts a candidate; a duplicate address is a no-op
func (s *PostgreSQLStore) SaveTokenCandidate(ctx context.Context, candidate *models.TokenCandidate) error {
	query := `
		INSERT INTO token_candidates
		(address, name, symbol, decimals, total_supply, deployer, deploy_block, deploy_tx_hash, discovered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (address) DO NOTHING
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
func (s *PostgreSQLStore) GetTokenCandidate(ctx context.Context, address common.Address) (*models.TokenCandidate, error) {
	query := `
		SELECT address, name, symbol, decimals, total_supply, deployer, deploy_block, deploy_tx_hash, discovered_at
		FROM token_candidates WHERE address = $1
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
func (s *PostgreSQLStore) GetTokenCandidates(ctx context.Context, limit int) ([]*models.TokenCandidate, error) {
	query := `
		SELECT address, name, symbol, decimals, total_supply, deployer, deploy_block, deploy_tx_hash, discovered_at
		FROM token_candidates ORDER BY discovered_at DESC LIMIT $1
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

// SaveTokenScore upserts a confidence score
func (s *PostgreSQLStore) SaveTokenScore(ctx context.Context, score *models.ConfidenceScore) error {
	query := `
		INSERT INTO token_scores
		(address, liquidity_score, holder_score, contract_score, deployer_score, confidence, risk_tier, scored_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (address) DO UPDATE SET
			liquidity_score = EXCLUDED.liquidity_score,
			holder_score = EXCLUDED.holder_score,
			contract_score = EXCLUDED.contract_score,
			deployer_score = EXCLUDED.deployer_score,
			confidence = EXCLUDED.confidence,
			risk_tier = EXCLUDED.risk_tier,
			scored_at = NOW()
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
func (s *PostgreSQLStore) GetTokenScore(ctx context.Context, address common.Address) (*models.ConfidenceScore, error) {
	query := `
		SELECT address, liquidity_score, holder_score, contract_score, deployer_score, confidence, risk_tier
		FROM token_scores WHERE address = $1
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

// GetTokenScores returns scores, optionally filtered by risk tier
func (s *PostgreSQLStore) GetTokenScores(ctx context.Context, tier models.RiskTier, limit int) ([]*models.ConfidenceScore, error) {
	query := `
		SELECT address, liquidity_score, holder_score, contract_score, deployer_score, confidence, risk_tier
		FROM token_scores
	`
	args := []interface{}{}
	if tier != "" {
		query += " WHERE risk_tier = $1 ORDER BY confidence DESC LIMIT $2"
		args = append(args, string(tier), limit)
	} else {
		query += " ORDER BY confidence DESC LIMIT $1"
		args = append(args, limit)
	}

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
func (s *PostgreSQLStore) SaveTrade(ctx context.Context, trade *models.Trade) error {
	query := `
		INSERT INTO trades
		(tx_hash, wallet, token, kind, amount_token, amount_base, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (wallet, tx_hash) DO NOTHING
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
func (s *PostgreSQLStore) GetTrades(ctx context.Context, wallet common.Address, limit int) ([]*models.Trade, error) {
	query := `
		SELECT tx_hash, wallet, token, kind, amount_token, amount_base, timestamp
		FROM trades WHERE wallet = $1 ORDER BY timestamp ASC LIMIT $2
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
func (s *PostgreSQLStore) SaveWalletStats(ctx context.Context, stats *models.WalletStats) error {
	query := `
		INSERT INTO wallet_stats
		(address, label, total_trades, wins, losses, win_rate, total_invested, total_returned,
		 realized_pnl, avg_hold_hours, tokens_deployed, confidence_score, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (address) DO UPDATE SET
			label = EXCLUDED.label,
			total_trades = EXCLUDED.total_trades,
			wins = EXCLUDED.wins,
			losses = EXCLUDED.losses,
			win_rate = EXCLUDED.win_rate,
			total_invested = EXCLUDED.total_invested,
			total_returned = EXCLUDED.total_returned,
			realized_pnl = EXCLUDED.realized_pnl,
			avg_hold_hours = EXCLUDED.avg_hold_hours,
			tokens_deployed = EXCLUDED.tokens_deployed,
			confidence_score = EXCLUDED.confidence_score,
			updated_at = NOW()
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
func (s *PostgreSQLStore) GetWalletStats(ctx context.Context, address common.Address) (*models.WalletStats, error) {
	stats, err := scanWalletStats(s.db.QueryRowContext(ctx, walletStatsQuery+" WHERE address = $1", address.Hex()))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeDatabase, "Failed to load wallet stats", err.Error())
	}
	return stats, nil
}

// GetAllWalletStats returns every tracked wallet's stats
func (s *PostgreSQLStore) GetAllWalletStats(ctx context.Context) ([]*models.WalletStats, error) {
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
func (s *PostgreSQLStore) GetStorageStats(ctx context.Context) (*Stats, error) {
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
