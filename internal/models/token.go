package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TokenCandidate represents a newly deployed contract that passed token
// classification. Created at most once per address and immutable afterwards.
type TokenCandidate struct {
	Address      common.Address `json:"address" db:"address"`
	Name         string         `json:"name" db:"name"`
	Symbol       string         `json:"symbol" db:"symbol"`
	Decimals     uint8          `json:"decimals" db:"decimals"`
	TotalSupply  *big.Int       `json:"total_supply" db:"total_supply"`
	Deployer     common.Address `json:"deployer" db:"deployer"`
	DeployBlock  uint64         `json:"deploy_block" db:"deploy_block"`
	DeployTxHash common.Hash    `json:"deploy_tx_hash" db:"deploy_tx_hash"`
	DiscoveredAt time.Time      `json:"discovered_at" db:"discovered_at"`
}

// SecurityProfile is the result of bytecode-level risk analysis for a contract.
type SecurityProfile struct {
	Address      common.Address  `json:"address"`
	IsProxy      bool            `json:"is_proxy"`
	HasMint      bool            `json:"has_mint"`
	HasBlacklist bool            `json:"has_blacklist"`
	IsHoneypot   bool            `json:"is_honeypot"`
	Owner        *common.Address `json:"owner,omitempty"`
	Renounced    bool            `json:"renounced"`
	Verified     bool            `json:"verified"`
	Audited      bool            `json:"audited"`
	RiskNotes    []string        `json:"risk_notes"`
	Safe         bool            `json:"safe"`
}

// RiskTier buckets a confidence score; LOW denotes least risk.
type RiskTier string

const (
	RiskLow     RiskTier = "LOW"
	RiskMedium  RiskTier = "MEDIUM"
	RiskHigh    RiskTier = "HIGH"
	RiskExtreme RiskTier = "EXTREME"
)

// TierForConfidence maps a 0-100 confidence score to its risk tier.
func TierForConfidence(confidence int) RiskTier {
	switch {
	case confidence >= 75:
		return RiskLow
	case confidence >= 50:
		return RiskMedium
	case confidence >= 25:
		return RiskHigh
	default:
		return RiskExtreme
	}
}

// ConfidenceScore is the multi-factor trust judgment for a token. It is a pure
// function of its inputs; every field is clamped to [0,100].
type ConfidenceScore struct {
	Address        common.Address `json:"address"`
	LiquidityScore int            `json:"liquidity_score"`
	HolderScore    int            `json:"holder_score"`
	ContractScore  int            `json:"contract_score"`
	DeployerScore  int            `json:"deployer_score"`
	Confidence     int            `json:"confidence"`
	RiskTier       RiskTier       `json:"risk_tier"`
}
