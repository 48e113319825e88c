// File: internal/sink/log_sink.go
package sink

import (
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/token-sentinel/internal/models"
	"github.com/smartdevs17/token-sentinel/pkg/utils"
)

// LogSink writes every output event to the structured log. It is registered
// by default so the pipelines are observable without any external consumer.
type LogSink struct {
	logger *logrus.Entry
}

// NewLogSink creates a new logging sink
func NewLogSink() *LogSink {
	return &LogSink{
		logger: utils.GetLogger().WithField("component", "sink"),
	}
}

func (ls *LogSink) OnTokenDiscovered(e *models.TokenDiscovered) {
	ls.logger.WithFields(logrus.Fields{
		"address":  e.Candidate.Address.Hex(),
		"name":     e.Candidate.Name,
		"symbol":   e.Candidate.Symbol,
		"deployer": e.Candidate.Deployer.Hex(),
		"block":    e.Candidate.DeployBlock,
	}).Info("New token discovered")
}

func (ls *LogSink) OnTokenScored(e *models.TokenScored) {
	ls.logger.WithFields(logrus.Fields{
		"address":    e.Score.Address.Hex(),
		"confidence": e.Score.Confidence,
		"risk_tier":  e.Score.RiskTier,
		"safe":       e.Security.Safe,
		"honeypot":   e.Security.IsHoneypot,
	}).Info("Token scored")
}

func (ls *LogSink) OnWalletTrade(e *models.WalletTradeObserved) {
	ls.logger.WithFields(logrus.Fields{
		"wallet": e.Intent.Wallet.Hex(),
		"label":  e.Entry.Label,
		"kind":   e.Intent.Kind,
		"method": e.Intent.Method,
		"tx":     e.Intent.TxHash.Hex(),
	}).Info("Watched wallet activity")
}

func (ls *LogSink) OnWalletUpdated(e *models.WalletUpdated) {
	ls.logger.WithFields(logrus.Fields{
		"wallet":       e.Stats.Address.Hex(),
		"label":        e.Stats.Label,
		"total_trades": e.Stats.TotalTrades,
		"win_rate":     e.Stats.WinRate,
		"realized_pnl": e.Stats.RealizedPnL,
	}).Info("Wallet stats updated")
}
