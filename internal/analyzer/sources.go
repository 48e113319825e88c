// File: internal/analyzer/sources.go
package analyzer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// LiquidityInfo is the shape returned by the liquidity oracle.
type LiquidityInfo struct {
	USD    float64 `json:"usd"`
	Locked bool    `json:"locked"`
}

// HolderInfo is the shape returned by the holder data source.
type HolderInfo struct {
	Count            int     `json:"count"`
	TopHolderPercent float64 `json:"top_holder_percent"`
}

// DeployerHistory is the shape returned by the deployer history source.
type DeployerHistory struct {
	TokenCount  int     `json:"token_count"`
	SuccessRate float64 `json:"success_rate"`
	Rugs        int     `json:"rugs"`
}

// LiquidityOracle supplies DEX liquidity for a token. How the value is
// computed is outside this system's scope.
type LiquidityOracle interface {
	USDLiquidity(ctx context.Context, token common.Address) (LiquidityInfo, error)
}

// HolderSource supplies holder count and distribution for a token.
type HolderSource interface {
	Distribution(ctx context.Context, token common.Address) (HolderInfo, error)
}

// DeployerHistorySource supplies a deployer's track record. A nil history
// means the deployer is unknown.
type DeployerHistorySource interface {
	History(ctx context.Context, deployer common.Address) (*DeployerHistory, error)
}

// Fixed-value implementations used until real data sources are wired in.
// They satisfy the collaborator contracts and keep the scorer exercised.

type StubLiquidityOracle struct {
	Info LiquidityInfo
}

func (s *StubLiquidityOracle) USDLiquidity(ctx context.Context, token common.Address) (LiquidityInfo, error) {
	return s.Info, nil
}

type StubHolderSource struct {
	Info HolderInfo
}

func (s *StubHolderSource) Distribution(ctx context.Context, token common.Address) (HolderInfo, error) {
	return s.Info, nil
}

type StubDeployerHistorySource struct {
	Hist *DeployerHistory
}

func (s *StubDeployerHistorySource) History(ctx context.Context, deployer common.Address) (*DeployerHistory, error) {
	return s.Hist, nil
}

// DefaultStubSources returns the placeholder collaborators with the same
// fixed values the system shipped with: thin liquidity, a small unlocked
// holder set, and no deployer history.
func DefaultStubSources() (*StubLiquidityOracle, *StubHolderSource, *StubDeployerHistorySource) {
	return &StubLiquidityOracle{Info: LiquidityInfo{USD: 10000, Locked: false}},
		&StubHolderSource{Info: HolderInfo{Count: 50, TopHolderPercent: 25}},
		&StubDeployerHistorySource{Hist: nil}
}
