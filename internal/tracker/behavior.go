// File: internal/tracker/behavior.go
package tracker

import "github.com/smartdevs17/token-sentinel/internal/models"

// Label classifies a wallet from its aggregated stats. Rules are evaluated in
// strict precedence order and the first match wins, so a wallet that deploys
// tokens is always BUILDER even when its trading pattern fits SNIPER.
func Label(stats *models.WalletStats) models.WalletLabel {
	switch {
	case stats.TokensDeployed >= 1:
		return models.LabelBuilder
	case stats.AvgHoldHours < 1 && stats.WinRate > 60 && stats.TotalTrades > 10:
		return models.LabelSniper
	case stats.TotalTrades > 50 && stats.AvgHoldHours > 24:
		return models.LabelFarmer
	case stats.TotalTrades > 20 && stats.WinRate > 50:
		return models.LabelWhale
	default:
		return models.LabelUnknown
	}
}

// Confidence scores how much signal the wallet's history carries. Trade count
// contributes up to 20 points on top of the base 50; win rate and realized
// P&L adjust up or down; BUILDER gets a small bonus. Clamped to [0,100].
func Confidence(stats *models.WalletStats, label models.WalletLabel) int {
	score := 50

	trades := stats.TotalTrades
	if trades > 20 {
		trades = 20
	}
	score += trades

	switch {
	case stats.WinRate > 70:
		score += 15
	case stats.WinRate > 50:
		score += 10
	case stats.WinRate < 30:
		score -= 10
	}

	switch {
	case stats.RealizedPnL > 10:
		score += 15
	case stats.RealizedPnL > 1:
		score += 10
	case stats.RealizedPnL < 0:
		score -= 10
	}

	if label == models.LabelBuilder {
		score += 5
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}
