package handlers

import (
	"errors"
	"net/http"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/gin-gonic/gin"

	"github.com/blocksage/chainquery/internal/query"
)

// hashParam parses the 64-hex-char big-endian hash passed as the raw query
// string, e.g. GET /blockheader?000000000019d668...  On failure it writes a
// 400 response and returns false.
func hashParam(c *gin.Context) (chainhash.Hash, bool) {
	raw := c.Request.URL.RawQuery
	if len(raw) != chainhash.MaxHashStringSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Hash must be 64 hex characters"})
		return chainhash.Hash{}, false
	}
	hash, err := chainhash.NewHashFromStr(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid hash"})
		return chainhash.Hash{}, false
	}
	return *hash, true
}

// noParam rejects requests carrying a query string on endpoints that take
// none. Returns false after writing a 400 response.
func noParam(c *gin.Context) bool {
	if c.Request.URL.RawQuery != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Endpoint takes no parameter"})
		return false
	}
	return true
}

// respondError maps query-engine errors to HTTP responses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, query.ErrBlockNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Block not found"})
	case errors.Is(err, query.ErrTxNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
	case errors.Is(err, query.ErrChainEmpty):
		c.JSON(http.StatusNotFound, gin.H{"error": "No blocks ingested"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
