package models

// Output events emitted to downstream collaborators (dashboard, alerting,
// trading). Collaborators subscribe through the sink registry; the core never
// has its methods replaced at runtime.

// TokenDiscovered fires once per address when a deployment classifies as a
// fungible token.
type TokenDiscovered struct {
	Candidate *TokenCandidate `json:"candidate"`
}

// TokenScored fires after security analysis and scoring complete for a
// discovered token.
type TokenScored struct {
	Candidate *TokenCandidate  `json:"candidate"`
	Security  *SecurityProfile `json:"security"`
	Score     *ConfidenceScore `json:"score"`
}

// WalletTradeObserved fires for every decoded intent from a watched wallet,
// including informational ones.
type WalletTradeObserved struct {
	Entry  WalletWatchEntry `json:"entry"`
	Intent *TradeIntent     `json:"intent"`
}

// WalletUpdated fires after the ledger absorbs a BUY or SELL and the wallet's
// stats are recomputed.
type WalletUpdated struct {
	Stats *WalletStats `json:"stats"`
}
