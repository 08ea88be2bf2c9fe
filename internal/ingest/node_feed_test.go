package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocksage/chainquery/internal/storage"
)

// fakeNode serves canned raw blocks by height.
type fakeNode struct {
	raws     [][]byte
	failures int // BestHeight errors to return before succeeding
}

func (n *fakeNode) BestHeight() (int64, error) {
	if n.failures > 0 {
		n.failures--
		return 0, errors.New("connection refused")
	}
	return int64(len(n.raws)) - 1, nil
}

func (n *fakeNode) BlockHashAtHeight(height int64) (*chainhash.Hash, error) {
	if height < 0 || height >= int64(len(n.raws)) {
		return nil, fmt.Errorf("no block at height %d", height)
	}
	h := chainhash.Hash{byte(height + 1)}
	return &h, nil
}

func (n *fakeNode) RawBlock(hash *chainhash.Hash) ([]byte, error) {
	height := int64(hash[0]) - 1
	if height < 0 || height >= int64(len(n.raws)) {
		return nil, errors.New("block not found")
	}
	return n.raws[height], nil
}

func newFeedState(t *testing.T) *storage.FeedStateStore {
	t.Helper()
	db, err := storage.NewPebbleDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return storage.NewFeedStateStore(db)
}

func TestNodeFeedDeliversByHeight(t *testing.T) {
	node := &fakeNode{raws: [][]byte{[]byte("h0"), []byte("h1"), []byte("h2")}}
	state := newFeedState(t)

	feed, err := NewNodeFeed(node, state, 0, time.Millisecond, discardLogger())
	require.NoError(t, err)
	defer feed.Close()

	for i, want := range []string{"h0", "h1", "h2"} {
		raw, err := feed.Next(context.Background())
		require.NoError(t, err, "height %d", i)
		assert.Equal(t, want, string(raw))
	}
}

func TestNodeFeedCommitPersistsCursor(t *testing.T) {
	node := &fakeNode{raws: [][]byte{[]byte("h0"), []byte("h1")}}
	state := newFeedState(t)

	feed, err := NewNodeFeed(node, state, 0, time.Millisecond, discardLogger())
	require.NoError(t, err)

	_, err = feed.Next(context.Background())
	require.NoError(t, err)
	require.NoError(t, feed.Commit())

	height, err := state.NextHeight()
	require.NoError(t, err)
	assert.EqualValues(t, 1, height)
}

func TestNodeFeedResumesFromCursor(t *testing.T) {
	node := &fakeNode{raws: [][]byte{[]byte("h0"), []byte("h1"), []byte("h2")}}
	state := newFeedState(t)
	require.NoError(t, state.SetNextHeight(2))

	// startHeight is ignored once a cursor exists
	feed, err := NewNodeFeed(node, state, 0, time.Millisecond, discardLogger())
	require.NoError(t, err)

	raw, err := feed.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "h2", string(raw))
}

func TestNodeFeedStartHeightOnFreshState(t *testing.T) {
	node := &fakeNode{raws: [][]byte{[]byte("h0"), []byte("h1"), []byte("h2")}}
	state := newFeedState(t)

	feed, err := NewNodeFeed(node, state, 1, time.Millisecond, discardLogger())
	require.NoError(t, err)

	raw, err := feed.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "h1", string(raw))
}

func TestNodeFeedWaitsWhenCaughtUp(t *testing.T) {
	node := &fakeNode{raws: [][]byte{[]byte("h0")}}
	state := newFeedState(t)

	feed, err := NewNodeFeed(node, state, 0, time.Millisecond, discardLogger())
	require.NoError(t, err)

	_, err = feed.Next(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = feed.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNodeFeedRetriesRPCErrors(t *testing.T) {
	node := &fakeNode{raws: [][]byte{[]byte("h0")}, failures: 3}
	state := newFeedState(t)

	feed, err := NewNodeFeed(node, state, 0, time.Millisecond, discardLogger())
	require.NoError(t, err)

	raw, err := feed.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "h0", string(raw))
}
