// File: internal/chain/client.go
package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
	"github.com/smartdevs17/token-sentinel/internal/config"
	"github.com/smartdevs17/token-sentinel/pkg/utils"
)

// Client is the abstract read-only blockchain access the pipelines depend on.
// Every operation may fail with a transient error; callers retry with backoff
// and never treat such failures as fatal.
type Client interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockByNumber(ctx context.Context, number uint64) (*types.Block, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CodeAt(ctx context.Context, address common.Address) ([]byte, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error)
	ChainID(ctx context.Context) (*big.Int, error)
	Close() error
}

// Stats holds RPC client statistics
type Stats struct {
	TotalRequests   uint64    `json:"total_requests"`
	FailedRequests  uint64    `json:"failed_requests"`
	Reconnects      uint64    `json:"reconnects"`
	CurrentURL      string    `json:"current_url"`
	LastConnectedAt time.Time `json:"last_connected_at"`
	LatestBlock     uint64    `json:"latest_block"`
}

// RPCClient implements Client over ethclient with failover across the
// configured primary and backup nodes.
type RPCClient struct {
	config     *config.ChainConfig
	primaryURL string
	backupURLs []string

	mu              sync.RWMutex
	client          *ethclient.Client
	currentIndex    int
	stats           Stats
	lastHealthCheck time.Time

	logger *logrus.Logger
}

// NewRPCClient creates a new RPC client
func NewRPCClient(cfg *config.ChainConfig) *RPCClient {
	return &RPCClient{
		config:     cfg,
		primaryURL: cfg.NodeURL,
		backupURLs: cfg.BackupNodes,
		logger:     utils.GetLogger(),
		stats: Stats{
			CurrentURL: cfg.NodeURL,
		},
	}
}

// LatestBlockNumber returns the chain head block number
func (c *RPCClient) LatestBlockNumber(ctx context.Context) (uint64, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return 0, err
	}

	number, err := client.BlockNumber(ctx)
	if err != nil {
		c.recordFailure()
		return 0, utils.NewAppError(utils.ErrCodeBlockchain, "Failed to get latest block number", err.Error())
	}

	c.mu.Lock()
	c.stats.LatestBlock = number
	c.mu.Unlock()

	return number, nil
}

// BlockByNumber returns a full block including transactions
func (c *RPCClient) BlockByNumber(ctx context.Context, number uint64) (*types.Block, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	block, err := client.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		c.recordFailure()
		return nil, utils.NewAppError(utils.ErrCodeBlockchain, "Failed to get block", err.Error())
	}
	return block, nil
}

// TransactionReceipt returns the receipt for a transaction hash
func (c *RPCClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	receipt, err := client.TransactionReceipt(ctx, txHash)
	if err != nil {
		c.recordFailure()
		return nil, utils.NewAppError(utils.ErrCodeBlockchain, "Failed to get receipt", err.Error())
	}
	return receipt, nil
}

// CodeAt returns the deployed bytecode at an address
func (c *RPCClient) CodeAt(ctx context.Context, address common.Address) ([]byte, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	code, err := client.CodeAt(ctx, address, nil)
	if err != nil {
		c.recordFailure()
		return nil, utils.NewAppError(utils.ErrCodeBlockchain, "Failed to get code", err.Error())
	}
	return code, nil
}

// CallContract executes a read-only contract call. A revert is returned as an
// error; callers treat it as "value unavailable", not as a pipeline failure.
func (c *RPCClient) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	return client.CallContract(ctx, msg, nil)
}

// FilterLogs returns logs matching the query
func (c *RPCClient) FilterLogs(ctx context.Context, query ethereum.FilterQuery) ([]types.Log, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	logs, err := client.FilterLogs(ctx, query)
	if err != nil {
		c.recordFailure()
		return nil, utils.NewAppError(utils.ErrCodeBlockchain, "Failed to filter logs", err.Error())
	}
	return logs, nil
}

// ChainID returns the connected chain's ID
func (c *RPCClient) ChainID(ctx context.Context) (*big.Int, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return nil, err
	}

	id, err := client.ChainID(ctx)
	if err != nil {
		c.recordFailure()
		return nil, utils.NewAppError(utils.ErrCodeBlockchain, "Failed to get chain ID", err.Error())
	}
	return id, nil
}

// getClient returns the current connection, dialing if necessary
func (c *RPCClient) getClient(ctx context.Context) (*ethclient.Client, error) {
	c.mu.RLock()
	client := c.client
	lastCheck := c.lastHealthCheck
	c.mu.RUnlock()

	if client != nil {
		// Re-verify a stale connection before handing it out
		if time.Since(lastCheck) > time.Minute {
			if err := c.quickHealthCheck(ctx, client); err != nil {
				c.logger.WithError(err).Warn("Health check failed, reconnecting")
				return c.reconnect(ctx)
			}
			c.mu.Lock()
			c.lastHealthCheck = time.Now()
			c.mu.Unlock()
		}

		c.mu.Lock()
		c.stats.TotalRequests++
		c.mu.Unlock()
		return client, nil
	}

	return c.connect(ctx)
}

// connect establishes a new connection, trying backup nodes in order
func (c *RPCClient) connect(ctx context.Context) (*ethclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	urls := c.rotatedURLs()

	for attempt := 0; attempt < c.config.RetryAttempts; attempt++ {
		for i, url := range urls {
			c.logger.WithFields(logrus.Fields{
				"url":     url,
				"attempt": attempt + 1,
			}).Info("Attempting node connection")

			dialCtx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
			client, err := ethclient.DialContext(dialCtx, url)
			cancel()
			if err != nil {
				c.logger.WithError(err).WithField("url", url).Warn("Connection failed")
				c.stats.FailedRequests++
				continue
			}

			if err := c.quickHealthCheck(ctx, client); err != nil {
				client.Close()
				c.logger.WithError(err).WithField("url", url).Warn("Health check failed after connection")
				continue
			}

			c.client = client
			c.currentIndex = i
			c.stats.CurrentURL = url
			c.stats.LastConnectedAt = time.Now()
			c.lastHealthCheck = time.Now()

			c.logger.WithField("url", url).Info("Connected to chain node")
			return client, nil
		}

		if attempt < c.config.RetryAttempts-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.config.RetryDelay):
			}
		}
	}

	return nil, utils.NewAppError(utils.ErrCodeConnection, "Failed to connect to any chain node",
		"All connection attempts exhausted")
}

// reconnect drops the current connection and dials again
func (c *RPCClient) reconnect(ctx context.Context) (*ethclient.Client, error) {
	c.mu.Lock()
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
	c.stats.Reconnects++
	c.mu.Unlock()

	return c.connect(ctx)
}

// quickHealthCheck verifies the connection and the expected chain ID
func (c *RPCClient) quickHealthCheck(ctx context.Context, client *ethclient.Client) error {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	id, err := client.ChainID(checkCtx)
	if err != nil {
		return err
	}

	if c.config.ChainID != 0 && id.Uint64() != c.config.ChainID {
		return fmt.Errorf("chain ID mismatch: expected %d, got %d", c.config.ChainID, id.Uint64())
	}
	return nil
}

// Close closes the connection
func (c *RPCClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		c.client.Close()
		c.client = nil
	}

	c.logger.Info("Chain client closed")
	return nil
}

// Stats returns client statistics
func (c *RPCClient) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

func (c *RPCClient) recordFailure() {
	c.mu.Lock()
	c.stats.FailedRequests++
	c.mu.Unlock()
}

// rotatedURLs returns all node URLs starting from the current index
func (c *RPCClient) rotatedURLs() []string {
	urls := []string{c.primaryURL}
	urls = append(urls, c.backupURLs...)

	if c.currentIndex > 0 && c.currentIndex < len(urls) {
		rotated := make([]string, len(urls))
		copy(rotated, urls[c.currentIndex:])
		copy(rotated[len(urls)-c.currentIndex:], urls[:c.currentIndex])
		return rotated
	}

	return urls
}
