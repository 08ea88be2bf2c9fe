package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blocksage/chainquery/internal/api/handlers"
	"github.com/blocksage/chainquery/internal/api/middleware"
	"github.com/blocksage/chainquery/internal/query"
)

// Router wraps the Gin router with handlers.
type Router struct {
	engine       *gin.Engine
	blockHandler *handlers.BlockHandler
	txHandler    *handlers.TxHandler
}

// NewRouter creates a new Router serving the query engine.
func NewRouter(q *query.Engine) *Router {
	gin.SetMode(gin.ReleaseMode)

	r := &Router{
		engine:       gin.New(),
		blockHandler: handlers.NewBlockHandler(q),
		txHandler:    handlers.NewTxHandler(q),
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// setupMiddleware configures middleware.
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.Logger())
	r.engine.Use(middleware.CORS())
	r.engine.Use(middleware.Metrics())
}

// setupRoutes configures API routes. The query surface is fixed: hashes are
// passed as the raw query string, e.g. GET /blockheight?<64-hex-hash>.
func (r *Router) setupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.engine.GET("/blockheader", r.blockHandler.GetHeader)
	r.engine.GET("/blocktransactions", r.blockHandler.GetTransactions)
	r.engine.GET("/blockheight", r.blockHandler.GetHeight)
	r.engine.GET("/mainchain", r.blockHandler.GetMainChain)
	r.engine.GET("/latestblock", r.blockHandler.GetLatestBlock)
	r.engine.GET("/latestheight", r.blockHandler.GetLatestHeight)

	r.engine.GET("/transactioninfo", r.txHandler.GetInfo)
	r.engine.GET("/transactioninputs", r.txHandler.GetInputs)
	r.engine.GET("/transactionoutputs", r.txHandler.GetOutputs)
}

// Engine returns the underlying Gin engine.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}
