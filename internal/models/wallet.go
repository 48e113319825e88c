package models

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// WalletWatchEntry is one configured wallet on the watch-list.
type WalletWatchEntry struct {
	Address      common.Address `json:"address"`
	Label        string         `json:"label"`
	CopyTrade    bool           `json:"copy_trade"`
	AlertOnTrade bool           `json:"alert_on_trade"`
}

// IntentKind classifies a watched wallet's transaction.
type IntentKind string

const (
	IntentBuy                 IntentKind = "BUY"
	IntentSell                IntentKind = "SELL"
	IntentSwap                IntentKind = "SWAP"
	IntentTransfer            IntentKind = "TRANSFER"
	IntentContractInteraction IntentKind = "CONTRACT_INTERACTION"
)

// TradeIntent is the decoded meaning of a watched wallet transaction. Only
// BUY and SELL intents feed the trade ledger; the rest are informational.
type TradeIntent struct {
	Wallet     common.Address  `json:"wallet"`
	TxHash     common.Hash     `json:"tx_hash"`
	Kind       IntentKind      `json:"kind"`
	Method     string          `json:"method,omitempty"`
	To         *common.Address `json:"to,omitempty"`
	Token      *common.Address `json:"token,omitempty"`
	ValueWei   *big.Int        `json:"value_wei"`
	AmountBase float64         `json:"amount_base,omitempty"`
	Block      uint64          `json:"block"`
	Timestamp  time.Time       `json:"timestamp"`
}

// TradeKind is the direction of a ledger trade.
type TradeKind string

const (
	TradeBuy  TradeKind = "BUY"
	TradeSell TradeKind = "SELL"
)

// Trade is one append-only ledger entry. TxHash is unique within a wallet;
// a second record with the same hash is a no-op.
type Trade struct {
	TxHash      common.Hash    `json:"tx_hash" db:"tx_hash"`
	Wallet      common.Address `json:"wallet" db:"wallet"`
	Token       common.Address `json:"token" db:"token"`
	Kind        TradeKind      `json:"kind" db:"kind"`
	AmountToken float64        `json:"amount_token" db:"amount_token"`
	AmountBase  float64        `json:"amount_base" db:"amount_base"`
	Timestamp   time.Time      `json:"timestamp" db:"timestamp"`
}

// WalletLabel is a behavioral classification of a wallet.
type WalletLabel string

const (
	LabelBuilder WalletLabel = "BUILDER"
	LabelSniper  WalletLabel = "SNIPER"
	LabelFarmer  WalletLabel = "FARMER"
	LabelWhale   WalletLabel = "WHALE"
	LabelUnknown WalletLabel = "UNKNOWN"
)

// WalletStats is derived from trade history and always reproducible by
// replaying it; cached values must never diverge from a recomputation.
type WalletStats struct {
	Address         common.Address `json:"address"`
	Label           WalletLabel    `json:"label"`
	TotalTrades     int            `json:"total_trades"`
	Wins            int            `json:"wins"`
	Losses          int            `json:"losses"`
	WinRate         float64        `json:"win_rate"`
	TotalInvested   float64        `json:"total_invested"`
	TotalReturned   float64        `json:"total_returned"`
	RealizedPnL     float64        `json:"realized_pnl"`
	AvgHoldHours    float64        `json:"avg_hold_hours"`
	TokensDeployed  int            `json:"tokens_deployed"`
	ConfidenceScore int            `json:"confidence_score"`
}
