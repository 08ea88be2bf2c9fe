package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blocksage/chainquery/internal/api"
	"github.com/blocksage/chainquery/internal/chain"
	"github.com/blocksage/chainquery/internal/config"
	"github.com/blocksage/chainquery/internal/ingest"
	"github.com/blocksage/chainquery/internal/logger"
	"github.com/blocksage/chainquery/internal/query"
	"github.com/blocksage/chainquery/internal/rpc"
	"github.com/blocksage/chainquery/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(cfg.Log.Level)
	log.Info("starting chainquery server")

	log.Info("opening pebble database", "path", cfg.Pebble.Path)
	db, err := storage.NewPebbleDB(cfg.Pebble.Path)
	if err != nil {
		log.Error("failed to open pebble database", "err", err)
		os.Exit(1)
	}

	blockStore := storage.NewBlockStore(db)
	txStore := storage.NewTxStore(db)
	feedStore := storage.NewFeedStateStore(db)

	index := chain.NewIndex(cfg.Chain.MaxReorgDepth)
	pipeline := ingest.NewPipeline(index, blockStore, txStore, log)

	// Rebuild the chain index from the raw-block archive before serving.
	if err := pipeline.Replay(); err != nil {
		log.Error("failed to replay block archive", "err", err)
		db.Close()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var feed ingest.Feed
	var nodeClient *rpc.Client

	switch cfg.Ingest.Source {
	case config.SourceDir:
		log.Info("ingesting from block files", "dir", cfg.Ingest.DataDir)
		feed = ingest.NewFileFeed(cfg.Ingest.DataDir)

	case config.SourceRPC:
		log.Info("ingesting from node", "host", cfg.Node.Host)
		nodeClient, err = rpc.Connect(&cfg.Node)
		if err != nil {
			log.Error("failed to connect to node", "err", err)
			db.Close()
			os.Exit(1)
		}
		poll := time.Duration(cfg.Ingest.PollInterval) * time.Second
		feed, err = ingest.NewNodeFeed(nodeClient, feedStore, cfg.Ingest.StartHeight, poll, log)
		if err != nil {
			log.Error("failed to initialize node feed", "err", err)
			nodeClient.Shutdown()
			db.Close()
			os.Exit(1)
		}

	case config.SourceNone:
		log.Info("ingestion disabled, serving stored data only")

	default:
		log.Error("unknown ingest source", "source", cfg.Ingest.Source)
		db.Close()
		os.Exit(1)
	}

	ingestDone := make(chan struct{})
	if feed != nil {
		go func() {
			defer close(ingestDone)
			if err := pipeline.Run(ctx, feed); err != nil {
				log.Error("ingestion stopped", "err", err)
			}
		}()
	} else {
		close(ingestDone)
	}

	engine := query.NewEngine(index, blockStore, txStore)
	router := api.NewRouter(engine)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Engine(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("http server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	cancel()
	<-ingestDone

	if feed != nil {
		if err := feed.Close(); err != nil {
			log.Error("error closing feed", "err", err)
		}
	}
	if nodeClient != nil {
		nodeClient.Shutdown()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", "err", err)
	}

	if err := db.Close(); err != nil {
		log.Error("error closing database", "err", err)
	}

	log.Info("server stopped")
}
