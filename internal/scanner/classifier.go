// File: internal/scanner/classifier.go
package scanner

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/token-sentinel/internal/chain"
	"github.com/smartdevs17/token-sentinel/internal/models"
	"github.com/smartdevs17/token-sentinel/pkg/utils"
)

// Mode selects how the static and dynamic heuristics combine. OR biases
// toward recall and matches the system's historical behavior; AND trades
// recall for precision.
type Mode string

const (
	ModeOr  Mode = "or"
	ModeAnd Mode = "and"
)

// ParseMode parses a classifier mode from config
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "or", "":
		return ModeOr, nil
	case "and":
		return ModeAnd, nil
	default:
		return "", utils.NewAppError(utils.ErrCodeConfiguration, "Unknown classifier mode", s)
	}
}

// The six canonical ERC-20 method names. The static heuristic counts how many
// appear textually in the bytecode; four or more classifies positive.
var erc20Methods = []string{
	"totalsupply",
	"balanceof",
	"transfer",
	"allowance",
	"approve",
	"transferfrom",
}

const staticMatchThreshold = 4

// Contracts with less code than this are never tokens.
const minBytecodeLen = 100

// Read-only probe selectors.
var (
	selTotalSupply = []byte{0x18, 0x16, 0x0d, 0xdd} // totalSupply()
	selDecimals    = []byte{0x31, 0x3c, 0xe5, 0x67} // decimals()
	selName        = []byte{0x06, 0xfd, 0xde, 0x03} // name()
	selSymbol      = []byte{0x95, 0xd8, 0x9b, 0x41} // symbol()
)

// TokenClassifier decides whether a deployed contract exposes the
// fungible-token capability set.
type TokenClassifier struct {
	client chain.Client
	mode   Mode
	logger *logrus.Logger
}

// NewTokenClassifier creates a classifier with the given combination mode
func NewTokenClassifier(client chain.Client, mode Mode) *TokenClassifier {
	return &TokenClassifier{
		client: client,
		mode:   mode,
		logger: utils.GetLogger(),
	}
}

// IsToken classifies the contract at address. Only the bytecode fetch can
// fail; a reverting dynamic probe is an abstention, not an error.
func (tc *TokenClassifier) IsToken(ctx context.Context, address common.Address) (bool, error) {
	code, err := tc.client.CodeAt(ctx, address)
	if err != nil {
		return false, utils.NewAppError(utils.ErrCodeBlockchain, "Failed to fetch bytecode", err.Error())
	}

	if len(code) < minBytecodeLen {
		return false, nil
	}

	static := StaticMatches(code) >= staticMatchThreshold

	// Short-circuit the RPC probes when the static result already decides.
	if tc.mode == ModeOr && static {
		return true, nil
	}
	if tc.mode == ModeAnd && !static {
		return false, nil
	}

	return tc.dynamicProbe(ctx, address), nil
}

// StaticMatches counts how many canonical ERC-20 method names appear in the
// bytecode text, case-insensitively.
func StaticMatches(code []byte) int {
	text := strings.ToLower(string(code))
	matches := 0
	for _, name := range erc20Methods {
		if strings.Contains(text, name) {
			matches++
		}
	}
	return matches
}

// dynamicProbe calls totalSupply() and decimals(); both must succeed without
// reverting. Any failure abstains.
func (tc *TokenClassifier) dynamicProbe(ctx context.Context, address common.Address) bool {
	if _, err := tc.call(ctx, address, selTotalSupply); err != nil {
		return false
	}
	if _, err := tc.call(ctx, address, selDecimals); err != nil {
		return false
	}
	return true
}

// Metadata builds a TokenCandidate for a classified deployment, probing the
// standard metadata views with per-field fallbacks so one reverting method
// never loses the candidate.
func (tc *TokenClassifier) Metadata(ctx context.Context, dep Deployment) *models.TokenCandidate {
	candidate := &models.TokenCandidate{
		Address:      dep.Address,
		Name:         "Unknown",
		Symbol:       "???",
		Decimals:     18,
		TotalSupply:  big.NewInt(0),
		Deployer:     dep.Deployer,
		DeployBlock:  dep.Block,
		DeployTxHash: dep.TxHash,
		DiscoveredAt: dep.Time,
	}

	if ret, err := tc.call(ctx, dep.Address, selName); err == nil {
		if name := decodeString(ret); name != "" {
			candidate.Name = name
		}
	}
	if ret, err := tc.call(ctx, dep.Address, selSymbol); err == nil {
		if symbol := decodeString(ret); symbol != "" {
			candidate.Symbol = symbol
		}
	}
	if ret, err := tc.call(ctx, dep.Address, selDecimals); err == nil {
		if d, ok := decodeUint8(ret); ok {
			candidate.Decimals = d
		}
	}
	if ret, err := tc.call(ctx, dep.Address, selTotalSupply); err == nil {
		if supply, ok := decodeUint256(ret); ok {
			candidate.TotalSupply = supply
		}
	}

	return candidate
}

func (tc *TokenClassifier) call(ctx context.Context, address common.Address, selector []byte) ([]byte, error) {
	return tc.client.CallContract(ctx, ethereum.CallMsg{
		To:   &address,
		Data: selector,
	})
}

// decodeString decodes an ABI-encoded dynamic string return value. Garbage
// yields the empty string so callers keep their fallback. The offset and
// length words come straight from the probed contract, so every bound is
// checked by subtraction from the known data size; adding untrusted words
// can wrap uint64.
func decodeString(ret []byte) string {
	if len(ret) < 64 {
		return strings.TrimRight(string(ret), "\x00")
	}

	total := uint64(len(ret))
	offset := new(big.Int).SetBytes(ret[:32])
	if !offset.IsUint64() || offset.Uint64() > total-32 {
		return ""
	}
	start := offset.Uint64()

	length := new(big.Int).SetBytes(ret[start : start+32])
	if !length.IsUint64() || length.Uint64() > total-start-32 {
		return ""
	}

	return strings.TrimSpace(string(ret[start+32 : start+32+length.Uint64()]))
}

// decodeUint8 decodes a uint8 return value
func decodeUint8(ret []byte) (uint8, bool) {
	v, ok := decodeUint256(ret)
	if !ok || !v.IsUint64() || v.Uint64() > 255 {
		return 0, false
	}
	return uint8(v.Uint64()), true
}

// decodeUint256 decodes a uint256 return value
func decodeUint256(ret []byte) (*big.Int, bool) {
	if len(ret) < 32 {
		return nil, false
	}
	return new(big.Int).SetBytes(ret[:32]), true
}
