package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/rpcclient"

	"github.com/blocksage/chainquery/internal/config"
)

// Client wraps a bitcoind-compatible JSON-RPC connection in HTTP POST mode.
// The node is only used as an opaque source of validated raw block bytes;
// all decoding happens locally.
type Client struct {
	rpc *rpcclient.Client
}

// Connect establishes an HTTP POST mode JSON-RPC connection to the node.
func Connect(cfg *config.NodeConfig) (*Client, error) {
	var certs []byte
	if !cfg.DisableTLS && cfg.Cert != "" {
		var err error
		certs, err = os.ReadFile(cfg.Cert)
		if err != nil {
			return nil, fmt.Errorf("failed to read certificate: %w", err)
		}
	}

	connCfg := &rpcclient.ConnConfig{
		Host:         cfg.Host,
		User:         cfg.User,
		Pass:         cfg.Pass,
		HTTPPostMode: true,
		DisableTLS:   cfg.DisableTLS,
		Certificates: certs,
	}
	client, err := rpcclient.New(connCfg, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC client: %w", err)
	}
	return &Client{rpc: client}, nil
}

// BestHeight returns the node's best-chain height.
func (c *Client) BestHeight() (int64, error) {
	return c.rpc.GetBlockCount()
}

// BlockHashAtHeight returns the hash of the node's best-chain block at the
// given height.
func (c *Client) BlockHashAtHeight(height int64) (*chainhash.Hash, error) {
	return c.rpc.GetBlockHash(height)
}

// RawBlock fetches the serialized bytes of the block with the given hash.
func (c *Client) RawBlock(hash *chainhash.Hash) ([]byte, error) {
	hashParam, err := json.Marshal(hash.String())
	if err != nil {
		return nil, err
	}
	verbosityParam, err := json.Marshal(0)
	if err != nil {
		return nil, err
	}

	// getblock with verbosity 0 returns the serialized block as hex.
	res, err := c.rpc.RawRequest("getblock", []json.RawMessage{hashParam, verbosityParam})
	if err != nil {
		return nil, fmt.Errorf("getblock %s: %w", hash, err)
	}

	var blockHex string
	if err := json.Unmarshal(res, &blockHex); err != nil {
		return nil, fmt.Errorf("unexpected getblock reply: %w", err)
	}
	return hex.DecodeString(blockHex)
}

// Shutdown tears down the RPC connection.
func (c *Client) Shutdown() {
	c.rpc.Shutdown()
}
