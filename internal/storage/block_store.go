package storage

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/blocksage/chainquery/internal/models"
)

// BlockStore persists block records by hash and the raw block archive in
// arrival order.
type BlockStore struct {
	db *PebbleDB
}

// NewBlockStore creates a new BlockStore.
func NewBlockStore(db *PebbleDB) *BlockStore {
	return &BlockStore{db: db}
}

// seqKey formats an arrival sequence number so keys sort in insertion order.
func seqKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%016d", seq))
}

// Save atomically stores the block record and its raw bytes under the given
// arrival sequence.
func (s *BlockStore) Save(block *models.Block, seq uint64, raw []byte) error {
	data, err := json.Marshal(block)
	if err != nil {
		return fmt.Errorf("failed to marshal block: %w", err)
	}

	batch := s.db.NewBatch()
	defer batch.Destroy()

	batch.Put(CFBlocks, []byte(block.Hash), data)
	batch.Put(CFRawBlocks, seqKey(seq), raw)
	return batch.Commit()
}

// GetByHash retrieves a block record by its hash. A missing block yields
// (nil, nil).
func (s *BlockStore) GetByHash(hash string) (*models.Block, error) {
	data, err := s.db.Get(CFBlocks, []byte(hash))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var block models.Block
	if err := json.Unmarshal(data, &block); err != nil {
		return nil, fmt.Errorf("failed to unmarshal block: %w", err)
	}
	return &block, nil
}

// WalkRaw iterates the raw-block archive in arrival order, calling fn for
// each block. Iteration stops at the first error returned by fn.
func (s *BlockStore) WalkRaw(fn func(seq uint64, raw []byte) error) error {
	iter, err := s.db.NewIterator(CFRawBlocks)
	if err != nil {
		return err
	}
	defer iter.Close()

	for ; iter.Valid(); iter.Next() {
		seq, err := strconv.ParseUint(string(iter.Key()), 10, 64)
		if err != nil {
			return fmt.Errorf("bad raw block key %q: %w", iter.Key(), err)
		}
		// The iterator's value is reused between steps.
		raw := make([]byte, len(iter.Value()))
		copy(raw, iter.Value())
		if err := fn(seq, raw); err != nil {
			return err
		}
	}
	return nil
}
