// File: internal/scanner/detector.go
package scanner

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/token-sentinel/internal/chain"
	"github.com/smartdevs17/token-sentinel/pkg/utils"
)

// Deployment is one contract creation found in a block.
type Deployment struct {
	Address  common.Address
	Deployer common.Address
	TxHash   common.Hash
	Block    uint64
	Time     time.Time
}

// DeploymentDetector extracts contract-creation transactions from blocks.
type DeploymentDetector struct {
	client chain.Client
	signer types.Signer
	logger *logrus.Logger
}

// NewDeploymentDetector creates a detector for the given chain ID
func NewDeploymentDetector(client chain.Client, chainID *big.Int) *DeploymentDetector {
	return &DeploymentDetector{
		client: client,
		signer: types.LatestSignerForChainID(chainID),
		logger: utils.GetLogger(),
	}
}

// Detect returns every contract deployed in the block. A transaction is a
// creation iff its destination is empty; the created address comes from the
// receipt. Reverted creations and failed receipt lookups skip that
// transaction and the rest of the block continues.
func (dd *DeploymentDetector) Detect(ctx context.Context, block *types.Block) []Deployment {
	var deployments []Deployment

	blockTime := time.Unix(int64(block.Time()), 0)

	for _, tx := range block.Transactions() {
		if tx.To() != nil {
			continue
		}

		receipt, err := dd.client.TransactionReceipt(ctx, tx.Hash())
		if err != nil {
			dd.logger.WithError(err).WithFields(logrus.Fields{
				"tx":    tx.Hash().Hex(),
				"block": block.NumberU64(),
			}).Warn("Failed to get receipt for creation tx, skipping")
			continue
		}

		if receipt.Status != types.ReceiptStatusSuccessful {
			continue
		}
		if receipt.ContractAddress == (common.Address{}) {
			continue
		}

		deployer, err := types.Sender(dd.signer, tx)
		if err != nil {
			dd.logger.WithError(err).WithField("tx", tx.Hash().Hex()).Warn("Failed to recover deployer")
		}

		deployments = append(deployments, Deployment{
			Address:  receipt.ContractAddress,
			Deployer: deployer,
			TxHash:   tx.Hash(),
			Block:    block.NumberU64(),
			Time:     blockTime,
		})
	}

	if len(deployments) > 0 {
		dd.logger.WithFields(logrus.Fields{
			"block":       block.NumberU64(),
			"deployments": len(deployments),
		}).Debug("Contract deployments detected")
	}

	return deployments
}
