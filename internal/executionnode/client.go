// Package executionnode wraps the execution-layer JSON-RPC surface
// needed to resolve a fee recipient's identity from a block hash.
package executionnode

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

// ExecutionNode is the capability needed from the execution layer: look
// up a block's miner/fee-recipient address by hash.
type ExecutionNode interface {
	GetBlockFeeRecipient(ctx context.Context, blockHash string) (string, error)
}

// Client is the go-ethereum rpc.Client-backed ExecutionNode.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to the execution node's JSON-RPC endpoint at url.
func Dial(ctx context.Context, url string) (*Client, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, "executionnode: dial")
	}
	return &Client{rpc: c}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.rpc.Close()
}

type wireBlock struct {
	Miner common.Address `json:"miner"`
}

// GetBlockFeeRecipient returns the checksummed fee recipient address
// for the execution block identified by blockHash.
func (c *Client) GetBlockFeeRecipient(ctx context.Context, blockHash string) (string, error) {
	var block wireBlock
	if err := c.rpc.CallContext(ctx, &block, "eth_getBlockByHash", blockHash, false); err != nil {
		return "", errors.Wrap(err, "executionnode: eth_getBlockByHash")
	}
	return block.Miner.Hex(), nil
}
