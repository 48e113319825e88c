// File: internal/tracker/monitor.go
package tracker

import (
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/token-sentinel/internal/models"
	"github.com/smartdevs17/token-sentinel/pkg/utils"
)

// Known router swap selectors. The table is fixed and versioned: additions
// bump SelectorTableVersion so decoded history can be traced to the table
// that produced it.
const SelectorTableVersion = 1

var swapSelectors = map[string]string{
	"0x7ff36ab5": "swapExactETHForTokens",
	"0x38ed1739": "swapExactTokensForTokens",
	"0x18cbafe5": "swapExactTokensForETH",
	"0xfb3bdb41": "swapETHForExactTokens",
	"0x5c11d795": "swapExactTokensForTokensSupportingFeeOnTransferTokens",
	"0x791ac947": "swapExactTokensForETHSupportingFeeOnTransferTokens",
	"0xb6f9de95": "swapExactETHForTokensSupportingFeeOnTransferTokens",
}

// ActivityMonitor filters transactions against the wallet watch-list and
// decodes known router selectors into trade intents. Dedup is per wallet by
// transaction hash and cleared only by an explicit reset.
type ActivityMonitor struct {
	mu        sync.RWMutex
	watchlist map[common.Address]models.WalletWatchEntry
	seen      map[common.Address]map[common.Hash]struct{}
	logger    *logrus.Logger
}

// NewActivityMonitor creates a monitor seeded with the configured watch-list
func NewActivityMonitor(entries []models.WalletWatchEntry) *ActivityMonitor {
	am := &ActivityMonitor{
		watchlist: make(map[common.Address]models.WalletWatchEntry),
		seen:      make(map[common.Address]map[common.Hash]struct{}),
		logger:    utils.GetLogger(),
	}
	for _, e := range entries {
		am.watchlist[e.Address] = e
	}
	return am
}

// AddWallet adds or updates a watch-list entry at runtime
func (am *ActivityMonitor) AddWallet(entry models.WalletWatchEntry) {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.watchlist[entry.Address] = entry
}

// RemoveWallet drops a wallet from the watch-list. Its dedup state is kept so
// re-adding the wallet does not replay old transactions.
func (am *ActivityMonitor) RemoveWallet(address common.Address) {
	am.mu.Lock()
	defer am.mu.Unlock()
	delete(am.watchlist, address)
}

// Watched returns a snapshot of the current watch-list
func (am *ActivityMonitor) Watched() []models.WalletWatchEntry {
	am.mu.RLock()
	defer am.mu.RUnlock()
	entries := make([]models.WalletWatchEntry, 0, len(am.watchlist))
	for _, e := range am.watchlist {
		entries = append(entries, e)
	}
	return entries
}

// Entry returns the watch-list entry for a wallet, if present
func (am *ActivityMonitor) Entry(address common.Address) (models.WalletWatchEntry, bool) {
	am.mu.RLock()
	defer am.mu.RUnlock()
	e, ok := am.watchlist[address]
	return e, ok
}

// Observe decodes one transaction sent by a watched wallet. It returns nil
// when the sender is not watched or the transaction was already observed.
func (am *ActivityMonitor) Observe(sender common.Address, tx *types.Transaction, block uint64, at time.Time) *models.TradeIntent {
	am.mu.Lock()
	if _, watched := am.watchlist[sender]; !watched {
		am.mu.Unlock()
		return nil
	}

	hashes, ok := am.seen[sender]
	if !ok {
		hashes = make(map[common.Hash]struct{})
		am.seen[sender] = hashes
	}
	if _, dup := hashes[tx.Hash()]; dup {
		am.mu.Unlock()
		return nil
	}
	hashes[tx.Hash()] = struct{}{}
	am.mu.Unlock()

	intent := &models.TradeIntent{
		Wallet:    sender,
		TxHash:    tx.Hash(),
		To:        tx.To(),
		ValueWei:  tx.Value(),
		Block:     block,
		Timestamp: at,
	}

	data := tx.Data()
	if len(data) >= 4 {
		selector := "0x" + common.Bytes2Hex(data[:4])
		if method, known := swapSelectors[selector]; known {
			am.decodeSwap(intent, method, data, tx.Value())
			return intent
		}
	}

	if tx.Value() != nil && tx.Value().Sign() > 0 {
		intent.Kind = models.IntentTransfer
		intent.AmountBase = weiToBase(tx.Value())
		return intent
	}

	intent.Kind = models.IntentContractInteraction
	return intent
}

// decodeSwap classifies a known router method and extracts the traded token
// and base-currency amount from the calldata. BUY spends the native value;
// SELL reports the minimum base-currency out the wallet accepted.
func (am *ActivityMonitor) decodeSwap(intent *models.TradeIntent, method string, data []byte, value *big.Int) {
	intent.Method = method

	switch {
	case strings.Contains(method, "ETHFor"):
		intent.Kind = models.IntentBuy
		intent.AmountBase = weiToBase(value)
		// (amountOutMin, path, to, deadline): path is argument 1.
		if path := decodePath(data, 1); len(path) > 0 {
			token := path[len(path)-1]
			intent.Token = &token
		}
	case strings.Contains(method, "ForETH"):
		intent.Kind = models.IntentSell
		// (amountIn, amountOutMin, path, to, deadline): path is argument 2.
		if out := argWord(data, 1); out != nil {
			intent.AmountBase = weiToBase(out)
		}
		if path := decodePath(data, 2); len(path) > 0 {
			token := path[0]
			intent.Token = &token
		}
	default:
		intent.Kind = models.IntentSwap
		if path := decodePath(data, 2); len(path) > 0 {
			token := path[len(path)-1]
			intent.Token = &token
		}
	}
}

// ResetDedup clears the observed-transaction sets for every wallet
func (am *ActivityMonitor) ResetDedup() {
	am.mu.Lock()
	defer am.mu.Unlock()
	am.seen = make(map[common.Address]map[common.Hash]struct{})
}

// argWord returns the index-th static argument word of the calldata
func argWord(data []byte, index int) *big.Int {
	start := 4 + index*32
	if len(data) < start+32 {
		return nil
	}
	return new(big.Int).SetBytes(data[start : start+32])
}

// decodePath decodes an address[] argument given its position in the
// argument list. Malformed calldata yields nil. The offset word is attacker
// supplied, so bounds are checked by subtraction from the calldata size;
// adding the untrusted word can wrap uint64.
func decodePath(data []byte, index int) []common.Address {
	offset := argWord(data, index)
	if offset == nil || !offset.IsUint64() {
		return nil
	}

	args := data[4:]
	total := uint64(len(args))
	start := offset.Uint64()
	if total < 32 || start > total-32 {
		return nil
	}

	length := new(big.Int).SetBytes(args[start : start+32])
	if !length.IsUint64() || length.Uint64() > 16 {
		return nil
	}
	n := length.Uint64()
	if n*32 > total-start-32 {
		return nil
	}

	path := make([]common.Address, 0, n)
	for i := uint64(0); i < n; i++ {
		word := args[start+32+i*32 : start+64+i*32]
		path = append(path, common.BytesToAddress(word[12:]))
	}
	return path
}

// weiToBase converts a wei amount to base-currency units
func weiToBase(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f := new(big.Float).SetInt(wei)
	f.Quo(f, big.NewFloat(1e18))
	v, _ := f.Float64()
	return v
}
