// File: internal/storage/storage.go
package storage

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/smartdevs17/token-sentinel/internal/models"
)

// Store defines the persistence operations shared by both pipelines and the
// HTTP read surface. It subsumes the narrow interfaces the scanner, tracker,
// and block stream declare for themselves.
type Store interface {
	// Connection management
	Connect() error
	Close() error
	Ping() error
	Migrate() error

	// Cursor operations
	GetCursor(ctx context.Context, pipeline string) (uint64, bool, error)
	SetCursor(ctx context.Context, pipeline string, block uint64) error

	// Token operations
	SaveTokenCandidate(ctx context.Context, candidate *models.TokenCandidate) error
	GetTokenCandidate(ctx context.Context, address common.Address) (*models.TokenCandidate, error)
	GetTokenCandidates(ctx context.Context, limit int) ([]*models.TokenCandidate, error)
	SaveTokenScore(ctx context.Context, score *models.ConfidenceScore) error
	GetTokenScore(ctx context.Context, address common.Address) (*models.ConfidenceScore, error)
	GetTokenScores(ctx context.Context, tier models.RiskTier, limit int) ([]*models.ConfidenceScore, error)

	// Trade operations
	SaveTrade(ctx context.Context, trade *models.Trade) error
	GetTrades(ctx context.Context, wallet common.Address, limit int) ([]*models.Trade, error)

	// Wallet stats operations
	SaveWalletStats(ctx context.Context, stats *models.WalletStats) error
	GetWalletStats(ctx context.Context, address common.Address) (*models.WalletStats, error)
	GetAllWalletStats(ctx context.Context) ([]*models.WalletStats, error)

	// Statistics
	GetStorageStats(ctx context.Context) (*Stats, error)
}

// Stats provides storage statistics
type Stats struct {
	TotalCandidates int64      `json:"total_candidates"`
	TotalScores     int64      `json:"total_scores"`
	TotalTrades     int64      `json:"total_trades"`
	TotalWallets    int64      `json:"total_wallets"`
	OldestCandidate *time.Time `json:"oldest_candidate,omitempty"`
	LatestCandidate *time.Time `json:"latest_candidate,omitempty"`
}

// Config holds storage configuration
type Config struct {
	Type             string        `json:"type"`
	ConnectionString string        `json:"connection_string"`
	MaxConnections   int           `json:"max_connections"`
	MaxIdleTime      time.Duration `json:"max_idle_time"`
}
