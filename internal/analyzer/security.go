// File: internal/analyzer/security.go
package analyzer

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/token-sentinel/internal/chain"
	"github.com/smartdevs17/token-sentinel/internal/models"
	"github.com/smartdevs17/token-sentinel/pkg/utils"
)

// HeuristicsVersion identifies the marker tables below. Bump it whenever a
// table changes so downstream consumers can tell which rules produced a profile.
const HeuristicsVersion = 1

// Marker tables are case-insensitive substring heuristics over the contract's
// bytecode rendered as text (hex plus raw bytes). They are not a disassembler;
// false positives and negatives are expected.
var (
	proxyMarkers = []string{
		"delegatecall",
		"363d3d373d3d3d363d", // minimal-proxy (EIP-1167) prefix
	}
	mintMarkers      = []string{"mint"}
	blacklistMarkers = []string{"blacklist", "isbot"}

	// Honeypot detection counts two independent co-occurrences: a guard
	// clause referencing the caller, and a transfer path that can revert.
	honeypotPairs = [][2]string{
		{"require", "from"},
		{"transfer", "revert"},
	}
)

var ownerSelector = []byte{0x8d, 0xa5, 0xcb, 0x5b} // owner()

// SecurityEngine builds risk profiles from contract bytecode and state.
type SecurityEngine struct {
	client chain.Client
	logger *logrus.Logger
}

// NewSecurityEngine creates a new security heuristic engine
func NewSecurityEngine(client chain.Client) *SecurityEngine {
	return &SecurityEngine{
		client: client,
		logger: utils.GetLogger(),
	}
}

// Analyze fetches the contract's bytecode, probes owner(), and builds a
// security profile. A failing owner probe means "no owner exposed", not an
// error; only the bytecode fetch itself can fail.
func (se *SecurityEngine) Analyze(ctx context.Context, address common.Address) (*models.SecurityProfile, error) {
	code, err := se.client.CodeAt(ctx, address)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeBlockchain, "Failed to fetch bytecode", err.Error())
	}

	owner := se.probeOwner(ctx, address)
	return BuildProfile(address, code, owner), nil
}

// BuildProfile is the pure heuristic core: a function of bytecode bytes and
// the owner probe result only.
func BuildProfile(address common.Address, code []byte, owner *common.Address) *models.SecurityProfile {
	profile := &models.SecurityProfile{
		Address:   address,
		Owner:     owner,
		RiskNotes: []string{},
		Safe:      true,
	}

	text := bytecodeText(code)

	for _, marker := range proxyMarkers {
		if strings.Contains(text, marker) {
			profile.IsProxy = true
			profile.RiskNotes = append(profile.RiskNotes, "Proxy contract - can be upgraded")
			break
		}
	}

	for _, marker := range mintMarkers {
		if strings.Contains(text, marker) {
			profile.HasMint = true
			profile.RiskNotes = append(profile.RiskNotes, "Has mint function")
			break
		}
	}

	for _, marker := range blacklistMarkers {
		if strings.Contains(text, marker) {
			profile.HasBlacklist = true
			profile.RiskNotes = append(profile.RiskNotes, "Has blacklist function")
			profile.Safe = false
			break
		}
	}

	suspicious := 0
	for _, pair := range honeypotPairs {
		if strings.Contains(text, pair[0]) && strings.Contains(text, pair[1]) {
			suspicious++
		}
	}
	if suspicious >= len(honeypotPairs) {
		profile.IsHoneypot = true
		profile.Safe = false
		profile.RiskNotes = append(profile.RiskNotes, "Possible honeypot")
	}

	if owner != nil && *owner == (common.Address{}) {
		profile.Renounced = true
		profile.RiskNotes = append(profile.RiskNotes, "Ownership renounced")
	}

	if profile.IsHoneypot || profile.HasBlacklist || riskCount(profile) > 2 {
		profile.Safe = false
	}

	return profile
}

// riskCount counts notes that describe risks; the renounced note is positive
// and does not count against the contract.
func riskCount(p *models.SecurityProfile) int {
	n := len(p.RiskNotes)
	if p.Renounced {
		n--
	}
	return n
}

// probeOwner calls owner() and returns nil when the call reverts or the
// contract does not expose an owner.
func (se *SecurityEngine) probeOwner(ctx context.Context, address common.Address) *common.Address {
	ret, err := se.client.CallContract(ctx, ethereum.CallMsg{
		To:   &address,
		Data: ownerSelector,
	})
	if err != nil || len(ret) < 32 {
		return nil
	}

	owner := common.BytesToAddress(ret[12:32])
	return &owner
}

// bytecodeText renders bytecode for substring matching: the lowercase hex
// encoding joined with the raw bytes interpreted as text, so markers embedded
// either way are found.
func bytecodeText(code []byte) string {
	return hex.EncodeToString(code) + " " + strings.ToLower(string(code))
}
