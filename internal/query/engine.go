package query

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/blocksage/chainquery/internal/chain"
	"github.com/blocksage/chainquery/internal/models"
	"github.com/blocksage/chainquery/internal/storage"
)

var (
	// ErrBlockNotFound is returned when no block with the given hash has
	// been ingested.
	ErrBlockNotFound = errors.New("block not found")
	// ErrTxNotFound is returned when no transaction with the given hash
	// has been ingested.
	ErrTxNotFound = errors.New("transaction not found")
	// ErrChainEmpty is returned by tip queries before any ingestion.
	ErrChainEmpty = errors.New("no blocks ingested")
)

// Engine answers the read operations against the chain index and the block
// and transaction stores. All methods are safe for concurrent use.
type Engine struct {
	chain  *chain.Index
	blocks *storage.BlockStore
	txs    *storage.TxStore
}

// NewEngine creates a new Engine.
func NewEngine(ix *chain.Index, blocks *storage.BlockStore, txs *storage.TxStore) *Engine {
	return &Engine{chain: ix, blocks: blocks, txs: txs}
}

// BlockHeader is the response record for a block's header fields.
type BlockHeader struct {
	Version    int32  `json:"version"`
	PrevBlock  string `json:"prev_block"`
	MerkleRoot string `json:"mrkl_root"`
	Time       uint32 `json:"time"`
	Bits       uint32 `json:"bits"`
	Nonce      uint32 `json:"nonce"`
}

// BlockTx is one entry of a block's transaction list: the txid and the
// transaction's total output value in satoshis.
type BlockTx struct {
	TxHash string `json:"tx_hash"`
	Value  int64  `json:"value"`
}

// BlockTransactions is the response record for a block's transaction list.
type BlockTransactions struct {
	TxCount      int       `json:"tx_count"`
	Transactions []BlockTx `json:"transactions"`
}

// TransactionInfo is the response record summarizing a transaction.
type TransactionInfo struct {
	BlockHash   string `json:"block_hash"`
	Version     int32  `json:"version"`
	InputCount  int    `json:"input_tx_count"`
	OutputCount int    `json:"output_tx_count"`
	Value       int64  `json:"value"`
	LockTime    uint32 `json:"lock_time"`
}

// TransactionInputs is the response record for a transaction's inputs.
type TransactionInputs struct {
	InputCount int          `json:"input_tx_count"`
	Inputs     []models.Vin `json:"input_transactions"`
}

// TransactionOutputs is the response record for a transaction's outputs.
type TransactionOutputs struct {
	OutputCount int           `json:"output_tx_count"`
	Outputs     []models.Vout `json:"output_transactions"`
}

// BlockHeader returns the header fields of the block with the given hash.
func (e *Engine) BlockHeader(hash chainhash.Hash) (*BlockHeader, error) {
	blk, err := e.getBlock(hash)
	if err != nil {
		return nil, err
	}
	return &BlockHeader{
		Version:    blk.Version,
		PrevBlock:  blk.PrevBlock,
		MerkleRoot: blk.MerkleRoot,
		Time:       blk.Time,
		Bits:       blk.Bits,
		Nonce:      blk.Nonce,
	}, nil
}

// BlockTransactions returns the txids and total output values of the block's
// transactions, in block order.
func (e *Engine) BlockTransactions(hash chainhash.Hash) (*BlockTransactions, error) {
	blk, err := e.getBlock(hash)
	if err != nil {
		return nil, err
	}

	entries := make([]BlockTx, 0, len(blk.TxIDs))
	for _, txid := range blk.TxIDs {
		tx, err := e.txs.Get(txid)
		if err != nil {
			return nil, err
		}
		if tx == nil {
			return nil, fmt.Errorf("transaction %s missing from index", txid)
		}
		entries = append(entries, BlockTx{TxHash: txid, Value: tx.Value})
	}
	return &BlockTransactions{TxCount: blk.TxCount, Transactions: entries}, nil
}

// BlockHeight returns the height of the block with the given hash.
func (e *Engine) BlockHeight(hash chainhash.Hash) (int64, error) {
	height, err := e.chain.HeightOf(hash)
	if errors.Is(err, chain.ErrNotFound) {
		return 0, ErrBlockNotFound
	}
	return height, err
}

// MainChain reports whether the block with the given hash lies on the main
// chain.
func (e *Engine) MainChain(hash chainhash.Hash) (bool, error) {
	on, err := e.chain.IsMainChain(hash)
	if errors.Is(err, chain.ErrNotFound) {
		return false, ErrBlockNotFound
	}
	return on, err
}

// LatestBlock returns the hash of the current main-chain tip.
func (e *Engine) LatestBlock() (string, error) {
	hash, _, err := e.chain.Latest()
	if errors.Is(err, chain.ErrChainEmpty) {
		return "", ErrChainEmpty
	}
	if err != nil {
		return "", err
	}
	return hash.String(), nil
}

// LatestHeight returns the height of the current main-chain tip.
func (e *Engine) LatestHeight() (int64, error) {
	_, height, err := e.chain.Latest()
	if errors.Is(err, chain.ErrChainEmpty) {
		return 0, ErrChainEmpty
	}
	return height, err
}

// TransactionInfo returns the summary record of the transaction with the
// given hash.
func (e *Engine) TransactionInfo(hash chainhash.Hash) (*TransactionInfo, error) {
	tx, err := e.getTx(hash)
	if err != nil {
		return nil, err
	}
	return &TransactionInfo{
		BlockHash:   tx.BlockHash,
		Version:     tx.Version,
		InputCount:  len(tx.Vins),
		OutputCount: len(tx.Vouts),
		Value:       tx.Value,
		LockTime:    tx.LockTime,
	}, nil
}

// TransactionInputs returns the inputs of the transaction with the given
// hash.
func (e *Engine) TransactionInputs(hash chainhash.Hash) (*TransactionInputs, error) {
	tx, err := e.getTx(hash)
	if err != nil {
		return nil, err
	}
	vins := tx.Vins
	if vins == nil {
		vins = []models.Vin{}
	}
	return &TransactionInputs{InputCount: len(vins), Inputs: vins}, nil
}

// TransactionOutputs returns the outputs of the transaction with the given
// hash.
func (e *Engine) TransactionOutputs(hash chainhash.Hash) (*TransactionOutputs, error) {
	tx, err := e.getTx(hash)
	if err != nil {
		return nil, err
	}
	vouts := tx.Vouts
	if vouts == nil {
		vouts = []models.Vout{}
	}
	return &TransactionOutputs{OutputCount: len(vouts), Outputs: vouts}, nil
}

func (e *Engine) getBlock(hash chainhash.Hash) (*models.Block, error) {
	blk, err := e.blocks.GetByHash(hash.String())
	if err != nil {
		return nil, err
	}
	if blk == nil {
		return nil, ErrBlockNotFound
	}
	return blk, nil
}

func (e *Engine) getTx(hash chainhash.Hash) (*models.Transaction, error) {
	tx, err := e.txs.Get(hash.String())
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, ErrTxNotFound
	}
	return tx, nil
}
