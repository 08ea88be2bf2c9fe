package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/blocksage/chainquery/internal/storage"
)

// NodeClient is the subset of the JSON-RPC client the node feed needs.
type NodeClient interface {
	BestHeight() (int64, error)
	BlockHashAtHeight(height int64) (*chainhash.Hash, error)
	RawBlock(hash *chainhash.Hash) ([]byte, error)
}

// NodeFeed pulls raw block bytes from a full node by height, polling when
// caught up with the node's tip. The height cursor is persisted through the
// feed state store when the pipeline commits a delivered block.
type NodeFeed struct {
	client NodeClient
	state  *storage.FeedStateStore
	next   int64
	poll   time.Duration
	log    *slog.Logger
}

// NewNodeFeed creates a node-backed feed. The cursor resumes from the feed
// state store and falls back to startHeight on a fresh database.
func NewNodeFeed(client NodeClient, state *storage.FeedStateStore, startHeight int64,
	poll time.Duration, log *slog.Logger) (*NodeFeed, error) {

	next, err := state.NextHeight()
	if err != nil {
		return nil, err
	}
	if next < 0 {
		next = startHeight
	}

	return &NodeFeed{
		client: client,
		state:  state,
		next:   next,
		poll:   poll,
		log:    log,
	}, nil
}

// Next fetches the block at the cursor height, waiting out poll intervals
// while the node has nothing newer. RPC failures are retried after a poll
// interval rather than ending the feed.
func (f *NodeFeed) Next(ctx context.Context) ([]byte, error) {
	for {
		raw, err := f.fetch()
		if err == nil && raw != nil {
			f.next++
			return raw, nil
		}
		if err != nil {
			f.log.Warn("node fetch failed, retrying", "height", f.next, "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.poll):
		}
	}
}

// fetch returns (nil, nil) when the node has no block at the cursor height
// yet.
func (f *NodeFeed) fetch() ([]byte, error) {
	best, err := f.client.BestHeight()
	if err != nil {
		return nil, err
	}
	if f.next > best {
		return nil, nil
	}

	hash, err := f.client.BlockHashAtHeight(f.next)
	if err != nil {
		return nil, err
	}
	return f.client.RawBlock(hash)
}

// Commit persists the height cursor. Called by the pipeline once the last
// delivered block has been applied or conclusively rejected.
func (f *NodeFeed) Commit() error {
	return f.state.SetNextHeight(f.next)
}

// Close is a no-op; the RPC client is owned by the caller.
func (f *NodeFeed) Close() error {
	return nil
}
