// File: internal/analyzer/security_test.go
package analyzer

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTokenAddr = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

func TestBuildProfileCleanContract(t *testing.T) {
	profile := BuildProfile(testTokenAddr, []byte{0x60, 0x80, 0x60, 0x40}, nil)

	require.NotNil(t, profile)
	assert.False(t, profile.IsProxy)
	assert.False(t, profile.HasMint)
	assert.False(t, profile.HasBlacklist)
	assert.False(t, profile.IsHoneypot)
	assert.False(t, profile.Renounced)
	assert.True(t, profile.Safe)
	assert.Empty(t, profile.RiskNotes)
}

func TestBuildProfileProxyMarker(t *testing.T) {
	t.Run("text marker", func(t *testing.T) {
		profile := BuildProfile(testTokenAddr, []byte("uses DELEGATECALL here"), nil)
		assert.True(t, profile.IsProxy)
	})

	t.Run("minimal proxy bytecode prefix", func(t *testing.T) {
		code := common.FromHex("0x363d3d373d3d3d363d73bebebebebebebebebebebebebebebebebebebebe")
		profile := BuildProfile(testTokenAddr, code, nil)
		assert.True(t, profile.IsProxy)
	})
}

func TestBuildProfileMintAndBlacklist(t *testing.T) {
	profile := BuildProfile(testTokenAddr, []byte("function mint() onlyOwner; mapping blacklist"), nil)

	assert.True(t, profile.HasMint)
	assert.True(t, profile.HasBlacklist)
	// Blacklist alone marks the contract unsafe.
	assert.False(t, profile.Safe)
}

func TestBuildProfileHoneypot(t *testing.T) {
	t.Run("both pairs present", func(t *testing.T) {
		profile := BuildProfile(testTokenAddr, []byte("require(from) transfer revert"), nil)
		assert.True(t, profile.IsHoneypot)
		assert.False(t, profile.Safe)
	})

	t.Run("single pair is not enough", func(t *testing.T) {
		profile := BuildProfile(testTokenAddr, []byte("require something from sender"), nil)
		assert.False(t, profile.IsHoneypot)
	})
}

func TestBuildProfileRenounced(t *testing.T) {
	zero := common.Address{}
	held := common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")

	t.Run("zero owner means renounced", func(t *testing.T) {
		profile := BuildProfile(testTokenAddr, []byte{0x60}, &zero)
		assert.True(t, profile.Renounced)
		assert.True(t, profile.Safe)
	})

	t.Run("nonzero owner", func(t *testing.T) {
		profile := BuildProfile(testTokenAddr, []byte{0x60}, &held)
		assert.False(t, profile.Renounced)
	})

	t.Run("no owner probe result", func(t *testing.T) {
		profile := BuildProfile(testTokenAddr, []byte{0x60}, nil)
		assert.False(t, profile.Renounced)
	})
}

// Two risk notes keep the contract safe; a third tips it over, but the
// renounced note never counts toward that threshold.
func TestBuildProfileRiskNoteThreshold(t *testing.T) {
	zero := common.Address{}

	t.Run("two risks stay safe", func(t *testing.T) {
		profile := BuildProfile(testTokenAddr, []byte("delegatecall mint"), nil)
		assert.Len(t, profile.RiskNotes, 2)
		assert.True(t, profile.Safe)
	})

	t.Run("renounced note does not tip the threshold", func(t *testing.T) {
		profile := BuildProfile(testTokenAddr, []byte("delegatecall mint"), &zero)
		assert.Len(t, profile.RiskNotes, 3)
		assert.True(t, profile.Safe)
	})

	t.Run("three real risks are unsafe", func(t *testing.T) {
		profile := BuildProfile(testTokenAddr, []byte("delegatecall mint require from transfer revert"), nil)
		assert.False(t, profile.Safe)
	})
}
