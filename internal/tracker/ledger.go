// File: internal/tracker/ledger.go
package tracker

import (
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/smartdevs17/token-sentinel/internal/models"
)

// Position is a wallet's running exposure in one token, folded from its
// BUY/SELL history.
type Position struct {
	Token         common.Address `json:"token"`
	Amount        float64        `json:"amount"`
	TotalCost     float64        `json:"total_cost"`
	TotalReturned float64        `json:"total_returned"`
	AvgBuyPrice   float64        `json:"avg_buy_price"`
}

// TokenOutcome is the realized result of a wallet's activity in one token.
type TokenOutcome string

const (
	OutcomeProfit  TokenOutcome = "PROFIT"
	OutcomeLoss    TokenOutcome = "LOSS"
	OutcomeNeutral TokenOutcome = "NEUTRAL"
	OutcomeOpen    TokenOutcome = "OPEN"
)

// TokenPnL is the per-token view of a wallet's realized performance. A token
// is closed once it has at least one SELL.
type TokenPnL struct {
	Token       common.Address `json:"token"`
	Invested    float64        `json:"invested"`
	Returned    float64        `json:"returned"`
	RealizedPnL float64        `json:"realized_pnl"`
	Outcome     TokenOutcome   `json:"outcome"`
	HoldHours   float64        `json:"hold_hours"`
}

// PnL aggregates a wallet's realized performance across all tokens. Win rate
// is computed over closed tokens, not over trade count.
type PnL struct {
	Wallet        common.Address `json:"wallet"`
	TotalTrades   int            `json:"total_trades"`
	Wins          int            `json:"wins"`
	Losses        int            `json:"losses"`
	WinRate       float64        `json:"win_rate"`
	TotalInvested float64        `json:"total_invested"`
	TotalReturned float64        `json:"total_returned"`
	RealizedPnL   float64        `json:"realized_pnl"`
	AvgHoldHours  float64        `json:"avg_hold_hours"`
	BestTokenPnL  float64        `json:"best_token_pnl"`
	WorstTokenPnL float64        `json:"worst_token_pnl"`
	AvgTokenPnL   float64        `json:"avg_token_pnl"`
}

// TradeLedger is the append-only per-wallet trade record. Recording the same
// transaction hash twice is a no-op, so every derived view is idempotent under
// replay. Mutation is serialized per wallet; different wallets do not contend.
type TradeLedger struct {
	mu      sync.RWMutex
	wallets map[common.Address]*walletBook
}

type walletBook struct {
	mu     sync.Mutex
	trades []*models.Trade
	byHash map[common.Hash]struct{}
}

// NewTradeLedger creates an empty ledger
func NewTradeLedger() *TradeLedger {
	return &TradeLedger{
		wallets: make(map[common.Address]*walletBook),
	}
}

func (tl *TradeLedger) book(wallet common.Address) *walletBook {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	wb, ok := tl.wallets[wallet]
	if !ok {
		wb = &walletBook{byHash: make(map[common.Hash]struct{})}
		tl.wallets[wallet] = wb
	}
	return wb
}

// Record appends a trade. It reports whether the trade was new; a duplicate
// transaction hash leaves the ledger unchanged.
func (tl *TradeLedger) Record(trade *models.Trade) bool {
	wb := tl.book(trade.Wallet)

	wb.mu.Lock()
	defer wb.mu.Unlock()

	if _, dup := wb.byHash[trade.TxHash]; dup {
		return false
	}
	wb.byHash[trade.TxHash] = struct{}{}
	wb.trades = append(wb.trades, trade)
	return true
}

// TradesOf returns a copy of a wallet's trade history in recorded order
func (tl *TradeLedger) TradesOf(wallet common.Address) []*models.Trade {
	wb := tl.book(wallet)
	wb.mu.Lock()
	defer wb.mu.Unlock()
	out := make([]*models.Trade, len(wb.trades))
	copy(out, wb.trades)
	return out
}

// PositionOf folds a wallet's history in one token into its running position.
// The average buy price is advisory: router buys carry no token quantity.
func (tl *TradeLedger) PositionOf(wallet, token common.Address) Position {
	pos := Position{Token: token}
	var bought float64
	for _, t := range tl.TradesOf(wallet) {
		if t.Token != token {
			continue
		}
		switch t.Kind {
		case models.TradeBuy:
			pos.Amount += t.AmountToken
			pos.TotalCost += t.AmountBase
			bought += t.AmountToken
		case models.TradeSell:
			pos.Amount -= t.AmountToken
			pos.TotalReturned += t.AmountBase
		}
	}
	if bought > 0 {
		pos.AvgBuyPrice = pos.TotalCost / bought
	}
	return pos
}

// TokenPnLOf derives the per-token realized views for a wallet, ordered by
// invested amount descending for stable output.
func (tl *TradeLedger) TokenPnLOf(wallet common.Address) []TokenPnL {
	type tokenFold struct {
		invested float64
		returned float64
		firstBuy time.Time
		lastSell time.Time
		hasBuy   bool
		hasSell  bool
	}

	folds := make(map[common.Address]*tokenFold)
	for _, t := range tl.TradesOf(wallet) {
		f, ok := folds[t.Token]
		if !ok {
			f = &tokenFold{}
			folds[t.Token] = f
		}
		switch t.Kind {
		case models.TradeBuy:
			f.invested += t.AmountBase
			if !f.hasBuy || t.Timestamp.Before(f.firstBuy) {
				f.firstBuy = t.Timestamp
				f.hasBuy = true
			}
		case models.TradeSell:
			f.returned += t.AmountBase
			if !f.hasSell || t.Timestamp.After(f.lastSell) {
				f.lastSell = t.Timestamp
				f.hasSell = true
			}
		}
	}

	out := make([]TokenPnL, 0, len(folds))
	for token, f := range folds {
		p := TokenPnL{
			Token:       token,
			Invested:    f.invested,
			Returned:    f.returned,
			RealizedPnL: f.returned - f.invested,
		}
		switch {
		case !f.hasSell:
			p.Outcome = OutcomeOpen
		case f.returned > f.invested:
			p.Outcome = OutcomeProfit
		case f.returned < f.invested:
			p.Outcome = OutcomeLoss
		default:
			p.Outcome = OutcomeNeutral
		}
		if f.hasBuy && f.hasSell && f.lastSell.After(f.firstBuy) {
			p.HoldHours = f.lastSell.Sub(f.firstBuy).Hours()
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Invested != out[j].Invested {
			return out[i].Invested > out[j].Invested
		}
		return out[i].Token.Hex() < out[j].Token.Hex()
	})
	return out
}

// PnLOf aggregates a wallet's realized performance. A closed token counts as
// a win when it returned more than it cost and a loss when it returned less;
// break-even closes count in neither bucket.
func (tl *TradeLedger) PnLOf(wallet common.Address) PnL {
	pnl := PnL{Wallet: wallet, TotalTrades: len(tl.TradesOf(wallet))}

	var holdSum float64
	var holdCount int
	var pnlSum float64
	var closed int

	for _, p := range tl.TokenPnLOf(wallet) {
		pnl.TotalInvested += p.Invested
		pnl.TotalReturned += p.Returned

		switch p.Outcome {
		case OutcomeProfit:
			pnl.Wins++
		case OutcomeLoss:
			pnl.Losses++
		}

		if p.Outcome != OutcomeOpen {
			if closed == 0 || p.RealizedPnL > pnl.BestTokenPnL {
				pnl.BestTokenPnL = p.RealizedPnL
			}
			if closed == 0 || p.RealizedPnL < pnl.WorstTokenPnL {
				pnl.WorstTokenPnL = p.RealizedPnL
			}
			pnlSum += p.RealizedPnL
			closed++
		}

		if p.Outcome != OutcomeOpen && p.HoldHours > 0 {
			holdSum += p.HoldHours
			holdCount++
		}
	}

	pnl.RealizedPnL = pnl.TotalReturned - pnl.TotalInvested
	if winOrLoss := pnl.Wins + pnl.Losses; winOrLoss > 0 {
		pnl.WinRate = float64(pnl.Wins) / float64(winOrLoss) * 100
	}
	if closed > 0 {
		pnl.AvgTokenPnL = pnlSum / float64(closed)
	}
	if holdCount > 0 {
		pnl.AvgHoldHours = holdSum / float64(holdCount)
	}
	return pnl
}

// StatsFor builds the full derived stats for a wallet, including its
// behavioral label and confidence. tokensDeployed is supplied by the caller
// because deployments are observed on-chain, not in the ledger.
func (tl *TradeLedger) StatsFor(wallet common.Address, tokensDeployed int) *models.WalletStats {
	pnl := tl.PnLOf(wallet)

	stats := &models.WalletStats{
		Address:        wallet,
		TotalTrades:    pnl.TotalTrades,
		Wins:           pnl.Wins,
		Losses:         pnl.Losses,
		WinRate:        pnl.WinRate,
		TotalInvested:  pnl.TotalInvested,
		TotalReturned:  pnl.TotalReturned,
		RealizedPnL:    pnl.RealizedPnL,
		AvgHoldHours:   pnl.AvgHoldHours,
		TokensDeployed: tokensDeployed,
	}

	stats.Label = Label(stats)
	stats.ConfidenceScore = Confidence(stats, stats.Label)
	return stats
}
