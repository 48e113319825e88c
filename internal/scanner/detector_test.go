// File: internal/scanner/detector_test.go
package scanner

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/trie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testKey, _   = crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	testSigner   = types.LatestSignerForChainID(big.NewInt(1))
	testDeployer = crypto.PubkeyToAddress(testKey.PublicKey)
)

func creationTx(t *testing.T, nonce uint64) *types.Transaction {
	t.Helper()
	tx, err := types.SignNewTx(testKey, testSigner, &types.LegacyTx{
		Nonce:    nonce,
		Gas:      1_000_000,
		GasPrice: big.NewInt(1),
		Value:    big.NewInt(0),
		Data:     []byte{0x60, 0x80, 0x60, 0x40},
	})
	require.NoError(t, err)
	return tx
}

func transferTx(t *testing.T, nonce uint64, to common.Address) *types.Transaction {
	t.Helper()
	tx, err := types.SignNewTx(testKey, testSigner, &types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      21_000,
		GasPrice: big.NewInt(1),
		Value:    big.NewInt(1),
	})
	require.NoError(t, err)
	return tx
}

func newTestBlock(number uint64, txs ...*types.Transaction) *types.Block {
	header := &types.Header{
		Number:     new(big.Int).SetUint64(number),
		Time:       1700000000,
		Difficulty: big.NewInt(0),
	}
	return types.NewBlock(header, &types.Body{Transactions: txs}, nil, trie.NewStackTrie(nil))
}

func successReceipt(contract common.Address) *types.Receipt {
	return &types.Receipt{
		Status:          types.ReceiptStatusSuccessful,
		ContractAddress: contract,
	}
}

func TestDetectCreation(t *testing.T) {
	client := newMockClient()
	deployed := common.HexToAddress("0x4100000000000000000000000000000000000041")

	create := creationTx(t, 0)
	transfer := transferTx(t, 1, common.HexToAddress("0x4300000000000000000000000000000000000043"))
	client.receipts[create.Hash()] = successReceipt(deployed)

	dd := NewDeploymentDetector(client, big.NewInt(1))
	deployments := dd.Detect(context.Background(), newTestBlock(100, create, transfer))

	require.Len(t, deployments, 1)
	assert.Equal(t, deployed, deployments[0].Address)
	assert.Equal(t, testDeployer, deployments[0].Deployer)
	assert.Equal(t, create.Hash(), deployments[0].TxHash)
	assert.Equal(t, uint64(100), deployments[0].Block)
	assert.Equal(t, int64(1700000000), deployments[0].Time.Unix())
}

func TestDetectSkipsRevertedCreation(t *testing.T) {
	client := newMockClient()
	create := creationTx(t, 0)
	client.receipts[create.Hash()] = &types.Receipt{
		Status:          types.ReceiptStatusFailed,
		ContractAddress: common.HexToAddress("0x4100000000000000000000000000000000000041"),
	}

	dd := NewDeploymentDetector(client, big.NewInt(1))
	assert.Empty(t, dd.Detect(context.Background(), newTestBlock(100, create)))
}

// A missing receipt skips that transaction only; the rest of the block is
// still scanned.
func TestDetectSkipsMissingReceipt(t *testing.T) {
	client := newMockClient()
	deployed := common.HexToAddress("0x4100000000000000000000000000000000000041")

	orphan := creationTx(t, 0)
	create := creationTx(t, 1)
	client.receipts[create.Hash()] = successReceipt(deployed)

	dd := NewDeploymentDetector(client, big.NewInt(1))
	deployments := dd.Detect(context.Background(), newTestBlock(100, orphan, create))

	require.Len(t, deployments, 1)
	assert.Equal(t, create.Hash(), deployments[0].TxHash)
}

func TestDetectIgnoresNonCreationBlock(t *testing.T) {
	client := newMockClient()
	transfer := transferTx(t, 0, common.HexToAddress("0x4300000000000000000000000000000000000043"))

	dd := NewDeploymentDetector(client, big.NewInt(1))
	assert.Empty(t, dd.Detect(context.Background(), newTestBlock(100, transfer)))
}
