package chain

import (
	"errors"
	"fmt"
	"maps"
	"math/big"
	"sync"
	"sync/atomic"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/blocksage/chainquery/internal/codec"
)

var (
	// ErrUnknownParent is returned when a block's prev hash is neither the
	// zero hash nor an already indexed block.
	ErrUnknownParent = errors.New("unknown parent block")
	// ErrDuplicateBlock is returned when the block hash is already indexed.
	ErrDuplicateBlock = errors.New("duplicate block")
	// ErrNotFound is returned by lookups for hashes that were never indexed.
	ErrNotFound = errors.New("block not found")
	// ErrChainEmpty is returned before any block has been indexed.
	ErrChainEmpty = errors.New("chain is empty")
	// ErrReorgTooDeep is returned when switching tips would detach more
	// main-chain blocks than the configured limit allows.
	ErrReorgTooDeep = errors.New("reorg exceeds configured depth limit")
)

// node is one block in the tree. Nodes are immutable once linked, so they can
// be shared freely between snapshots.
type node struct {
	hash    chainhash.Hash
	parent  *node
	height  int64
	workSum *big.Int
}

// snapshot is an immutable view of the index: the node arena, the set of
// hashes on the main chain, and the current tip. Readers operate on one
// snapshot for the whole query; the writer publishes a fully built
// replacement, so a reorg is observed either completely or not at all.
type snapshot struct {
	nodes map[chainhash.Hash]*node
	main  map[chainhash.Hash]struct{}
	tip   *node
}

// Index tracks every ingested block header, its height and cumulative work,
// and the main (heaviest) chain. Inserts are serialized; reads are lock-free
// against the last published snapshot and never block each other.
type Index struct {
	mu            sync.Mutex // serializes Insert
	snap          atomic.Pointer[snapshot]
	maxReorgDepth int
}

// NewIndex creates an empty index. maxReorgDepth bounds how many main-chain
// blocks a single insert may detach; 0 means unlimited.
func NewIndex(maxReorgDepth int) *Index {
	ix := &Index{maxReorgDepth: maxReorgDepth}
	ix.snap.Store(&snapshot{
		nodes: make(map[chainhash.Hash]*node),
		main:  make(map[chainhash.Hash]struct{}),
	})
	return ix
}

// InsertResult reports what an insert did to the chain.
type InsertResult struct {
	Hash       chainhash.Hash
	Height     int64
	TipChanged bool
	// ReorgDepth is the number of blocks detached from the previous main
	// chain. Zero for a plain tip extension.
	ReorgDepth int64
}

// Insert links a block header into the tree. A header whose prev hash is the
// zero hash starts at height 0 (genesis); otherwise the parent must already
// be indexed. The tip moves only when the new node's cumulative work strictly
// exceeds the current tip's, so equal-work candidates never displace the
// first-seen tip. On failure the index is left unchanged.
func (ix *Index) Insert(hdr *codec.BlockHeader) (*InsertResult, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	cur := ix.snap.Load()
	hash := hdr.BlockHash()
	if _, ok := cur.nodes[hash]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateBlock, hash)
	}

	var parent *node
	if hdr.PrevBlock != (chainhash.Hash{}) {
		p, ok := cur.nodes[hdr.PrevBlock]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownParent, hdr.PrevBlock)
		}
		parent = p
	}

	n := &node{hash: hash, parent: parent, workSum: blockchain.CalcWork(hdr.Bits)}
	if parent != nil {
		n.height = parent.height + 1
		n.workSum.Add(parent.workSum, n.workSum)
	}

	next := &snapshot{
		nodes: maps.Clone(cur.nodes),
		main:  cur.main,
		tip:   cur.tip,
	}
	next.nodes[hash] = n

	res := &InsertResult{Hash: hash, Height: n.height}
	switch {
	case cur.tip == nil:
		next.tip = n
		next.main = map[chainhash.Hash]struct{}{hash: {}}
		res.TipChanged = true
	case n.workSum.Cmp(cur.tip.workSum) > 0:
		main, depth, err := reselectMain(cur, n, ix.maxReorgDepth)
		if err != nil {
			return nil, err
		}
		next.main = main
		next.tip = n
		res.TipChanged = true
		res.ReorgDepth = depth
	}

	ix.snap.Store(next)
	return res, nil
}

// reselectMain builds the main-chain membership set for a new tip: ancestors
// of the new tip that were off the main chain are attached, and old main-chain
// blocks above the fork point are detached.
func reselectMain(cur *snapshot, newTip *node, maxDepth int) (map[chainhash.Hash]struct{}, int64, error) {
	var attach []chainhash.Hash
	var fork *node
	for n := newTip; n != nil; n = n.parent {
		if _, ok := cur.main[n.hash]; ok {
			fork = n
			break
		}
		attach = append(attach, n.hash)
	}

	var detach []chainhash.Hash
	for n := cur.tip; n != nil && n != fork; n = n.parent {
		detach = append(detach, n.hash)
	}
	depth := int64(len(detach))
	if maxDepth > 0 && depth > int64(maxDepth) {
		return nil, 0, fmt.Errorf("%w: would detach %d blocks, limit %d",
			ErrReorgTooDeep, depth, maxDepth)
	}

	main := maps.Clone(cur.main)
	for _, h := range detach {
		delete(main, h)
	}
	for _, h := range attach {
		main[h] = struct{}{}
	}
	return main, depth, nil
}

// HeightOf returns the height of the block with the given hash.
func (ix *Index) HeightOf(hash chainhash.Hash) (int64, error) {
	s := ix.snap.Load()
	n, ok := s.nodes[hash]
	if !ok {
		return 0, ErrNotFound
	}
	return n.height, nil
}

// IsMainChain reports whether the block lies on the path from genesis to the
// current tip.
func (ix *Index) IsMainChain(hash chainhash.Hash) (bool, error) {
	s := ix.snap.Load()
	if _, ok := s.nodes[hash]; !ok {
		return false, ErrNotFound
	}
	_, on := s.main[hash]
	return on, nil
}

// Latest returns the current tip's hash and height.
func (ix *Index) Latest() (chainhash.Hash, int64, error) {
	s := ix.snap.Load()
	if s.tip == nil {
		return chainhash.Hash{}, 0, ErrChainEmpty
	}
	return s.tip.hash, s.tip.height, nil
}

// Len returns the number of indexed blocks across all branches.
func (ix *Index) Len() int {
	return len(ix.snap.Load().nodes)
}
