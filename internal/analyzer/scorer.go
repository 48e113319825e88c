// File: internal/analyzer/scorer.go
package analyzer

import (
	"math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/smartdevs17/token-sentinel/internal/models"
)

// Weights of the component scores in the final confidence value.
const (
	weightLiquidity = 0.25
	weightHolders   = 0.25
	weightContract  = 0.30
	weightDeployer  = 0.20
)

// Scorer combines a security profile with externally supplied liquidity,
// holder, and deployer data into a confidence score and risk tier. It holds
// no state and is safe to use concurrently.
type Scorer struct{}

// NewScorer creates a new token scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Score computes the confidence score for a token. Every component score and
// the final confidence are clamped to [0,100]. A nil deployer history means
// the deployer is unknown.
func (s *Scorer) Score(
	address common.Address,
	liquidity LiquidityInfo,
	holders HolderInfo,
	security *models.SecurityProfile,
	deployer *DeployerHistory,
) *models.ConfidenceScore {

	liquidityScore := LiquidityScore(liquidity)
	holderScore := HolderScore(holders)
	contractScore := ContractScore(security)
	deployerScore := DeployerScore(deployer)

	confidence := int(math.Round(
		weightLiquidity*float64(liquidityScore) +
			weightHolders*float64(holderScore) +
			weightContract*float64(contractScore) +
			weightDeployer*float64(deployerScore)))
	confidence = clamp(confidence)

	return &models.ConfidenceScore{
		Address:        address,
		LiquidityScore: liquidityScore,
		HolderScore:    holderScore,
		ContractScore:  contractScore,
		DeployerScore:  deployerScore,
		Confidence:     confidence,
		RiskTier:       models.TierForConfidence(confidence),
	}
}

// LiquidityScore maps USD liquidity depth plus a locked bonus to [0,100]
func LiquidityScore(info LiquidityInfo) int {
	score := 0

	switch {
	case info.USD >= 100000:
		score += 40
	case info.USD >= 50000:
		score += 35
	case info.USD >= 10000:
		score += 25
	case info.USD >= 5000:
		score += 15
	case info.USD >= 1000:
		score += 5
	}

	if info.Locked {
		score += 60
	}

	return clamp(score)
}

// HolderScore maps holder count and top-holder concentration to [0,100]
func HolderScore(info HolderInfo) int {
	score := 0

	switch {
	case info.Count >= 1000:
		score += 40
	case info.Count >= 500:
		score += 30
	case info.Count >= 100:
		score += 20
	case info.Count >= 50:
		score += 10
	}

	// Lower top-holder share is better
	switch {
	case info.TopHolderPercent <= 10:
		score += 60
	case info.TopHolderPercent <= 20:
		score += 45
	case info.TopHolderPercent <= 30:
		score += 30
	case info.TopHolderPercent <= 50:
		score += 15
	}

	return clamp(score)
}

// ContractScore maps the security profile to [0,100], starting from a neutral
// base of 50
func ContractScore(p *models.SecurityProfile) int {
	score := 50

	if p.IsHoneypot {
		score -= 50
	}
	if p.HasMint {
		score -= 15
	}
	if p.HasBlacklist {
		score -= 20
	}
	if p.IsProxy {
		score -= 10
	}

	if p.Renounced {
		score += 25
	}
	if p.Verified {
		score += 15
	}
	if p.Audited {
		score += 30
	}

	return clamp(score)
}

// DeployerScore maps the deployer's track record to [0,100]. An unknown
// deployer scores a fixed 30.
func DeployerScore(h *DeployerHistory) int {
	if h == nil {
		return 30
	}

	score := 50

	if h.TokenCount >= 5 && h.Rugs == 0 {
		score += 25
	} else if h.TokenCount >= 2 && h.Rugs == 0 {
		score += 15
	}

	if h.SuccessRate >= 80 {
		score += 25
	} else if h.SuccessRate >= 50 {
		score += 10
	}

	if h.Rugs > 0 {
		score -= h.Rugs * 20
	}

	return clamp(score)
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
