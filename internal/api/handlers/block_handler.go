package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blocksage/chainquery/internal/query"
)

// BlockHandler handles block-related API requests.
type BlockHandler struct {
	engine *query.Engine
}

// NewBlockHandler creates a new BlockHandler.
func NewBlockHandler(engine *query.Engine) *BlockHandler {
	return &BlockHandler{engine: engine}
}

// GetHeader returns the header fields of a block.
// GET /blockheader?{block_hash}
func (h *BlockHandler) GetHeader(c *gin.Context) {
	hash, ok := hashParam(c)
	if !ok {
		return
	}

	header, err := h.engine.BlockHeader(hash)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, header)
}

// GetTransactions returns the txids and values of a block's transactions.
// GET /blocktransactions?{block_hash}
func (h *BlockHandler) GetTransactions(c *gin.Context) {
	hash, ok := hashParam(c)
	if !ok {
		return
	}

	txs, err := h.engine.BlockTransactions(hash)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

// GetHeight returns the height of a block.
// GET /blockheight?{block_hash}
func (h *BlockHandler) GetHeight(c *gin.Context) {
	hash, ok := hashParam(c)
	if !ok {
		return
	}

	height, err := h.engine.BlockHeight(hash)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"height": height})
}

// GetMainChain reports whether a block lies on the main chain.
// GET /mainchain?{block_hash}
func (h *BlockHandler) GetMainChain(c *gin.Context) {
	hash, ok := hashParam(c)
	if !ok {
		return
	}

	onMain, err := h.engine.MainChain(hash)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"main_chain": onMain})
}

// GetLatestBlock returns the hash of the main-chain tip.
// GET /latestblock
func (h *BlockHandler) GetLatestBlock(c *gin.Context) {
	if !noParam(c) {
		return
	}

	hash, err := h.engine.LatestBlock()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hash": hash})
}

// GetLatestHeight returns the height of the main-chain tip.
// GET /latestheight
func (h *BlockHandler) GetLatestHeight(c *gin.Context) {
	if !noParam(c) {
		return
	}

	height, err := h.engine.LatestHeight()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"height": height})
}
