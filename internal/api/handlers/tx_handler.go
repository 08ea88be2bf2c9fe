package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/blocksage/chainquery/internal/query"
)

// TxHandler handles transaction-related API requests.
type TxHandler struct {
	engine *query.Engine
}

// NewTxHandler creates a new TxHandler.
func NewTxHandler(engine *query.Engine) *TxHandler {
	return &TxHandler{engine: engine}
}

// GetInfo returns a transaction summary.
// GET /transactioninfo?{tx_hash}
func (h *TxHandler) GetInfo(c *gin.Context) {
	hash, ok := hashParam(c)
	if !ok {
		return
	}

	info, err := h.engine.TransactionInfo(hash)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

// GetInputs returns a transaction's inputs.
// GET /transactioninputs?{tx_hash}
func (h *TxHandler) GetInputs(c *gin.Context) {
	hash, ok := hashParam(c)
	if !ok {
		return
	}

	inputs, err := h.engine.TransactionInputs(hash)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inputs)
}

// GetOutputs returns a transaction's outputs.
// GET /transactionoutputs?{tx_hash}
func (h *TxHandler) GetOutputs(c *gin.Context) {
	hash, ok := hashParam(c)
	if !ok {
		return
	}

	outputs, err := h.engine.TransactionOutputs(hash)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outputs)
}
