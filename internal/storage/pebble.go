package storage

import (
	"bytes"
	"fmt"
	"os"

	"github.com/cockroachdb/pebble"
)

// Column family names.
const (
	CFRawBlocks    = "raw_blocks"   // arrival sequence -> raw block bytes
	CFBlocks       = "blocks"       // block hash -> block record
	CFTransactions = "transactions" // txid -> transaction record
	CFFeedState    = "feed_state"   // ingestion feed cursor
)

// Key prefixes simulating column families.
var cfPrefixes = map[string]string{
	CFRawBlocks:    "raw:",
	CFBlocks:       "blk:",
	CFTransactions: "txn:",
	CFFeedState:    "fst:",
}

// PebbleDB wraps the Pebble database with prefix-based column families.
type PebbleDB struct {
	db *pebble.DB
}

// NewPebbleDB opens (creating if necessary) a Pebble database at path.
func NewPebbleDB(path string) (*PebbleDB, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	opts := &pebble.Options{
		Cache:        pebble.NewCache(128 << 20),
		MaxOpenFiles: 500,
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &PebbleDB{db: db}, nil
}

// Close closes the database.
func (p *PebbleDB) Close() error {
	return p.db.Close()
}

func (p *PebbleDB) prefixKey(cf string, key []byte) ([]byte, error) {
	prefix, ok := cfPrefixes[cf]
	if !ok {
		return nil, fmt.Errorf("column family not found: %s", cf)
	}
	return append([]byte(prefix), key...), nil
}

// Put stores a key-value pair in the specified column family.
func (p *PebbleDB) Put(cf string, key, value []byte) error {
	prefixedKey, err := p.prefixKey(cf, key)
	if err != nil {
		return err
	}
	return p.db.Set(prefixedKey, value, pebble.Sync)
}

// Get retrieves a value from the specified column family. A missing key
// yields (nil, nil).
func (p *PebbleDB) Get(cf string, key []byte) ([]byte, error) {
	prefixedKey, err := p.prefixKey(cf, key)
	if err != nil {
		return nil, err
	}

	value, closer, err := p.db.Get(prefixedKey)
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	defer closer.Close()

	// The value is only valid until closer.Close().
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// Delete removes a key from the specified column family.
func (p *PebbleDB) Delete(cf string, key []byte) error {
	prefixedKey, err := p.prefixKey(cf, key)
	if err != nil {
		return err
	}
	return p.db.Delete(prefixedKey, pebble.Sync)
}

// WriteBatch collects writes for an atomic commit.
type WriteBatch struct {
	batch *pebble.Batch
	db    *PebbleDB
	err   error
}

// NewBatch creates a new write batch.
func (p *PebbleDB) NewBatch() *WriteBatch {
	return &WriteBatch{batch: p.db.NewBatch(), db: p}
}

// Put adds a put operation to the batch. Errors are remembered and surfaced
// by Commit.
func (b *WriteBatch) Put(cf string, key, value []byte) {
	if b.err != nil {
		return
	}
	prefixedKey, err := b.db.prefixKey(cf, key)
	if err != nil {
		b.err = err
		return
	}
	b.err = b.batch.Set(prefixedKey, value, nil)
}

// Commit atomically writes the batch to the database.
func (b *WriteBatch) Commit() error {
	if b.err != nil {
		return b.err
	}
	return b.batch.Commit(pebble.Sync)
}

// Destroy closes the batch and releases resources.
func (b *WriteBatch) Destroy() {
	b.batch.Close()
}

// Iterator walks a column family in key order.
type Iterator struct {
	iter     *pebble.Iterator
	cfPrefix []byte
}

// NewIterator creates an iterator over the whole column family.
func (p *PebbleDB) NewIterator(cf string) (*Iterator, error) {
	prefix, ok := cfPrefixes[cf]
	if !ok {
		return nil, fmt.Errorf("column family not found: %s", cf)
	}

	prefixBytes := []byte(prefix)
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: prefixBytes,
		UpperBound: prefixUpperBound(prefixBytes),
	})
	if err != nil {
		return nil, err
	}
	iter.First()
	return &Iterator{iter: iter, cfPrefix: prefixBytes}, nil
}

// prefixUpperBound returns the exclusive upper bound for prefix iteration.
func prefixUpperBound(prefix []byte) []byte {
	upper := make([]byte, len(prefix))
	copy(upper, prefix)
	for i := len(upper) - 1; i >= 0; i-- {
		if upper[i] < 0xff {
			upper[i]++
			return upper[:i+1]
		}
	}
	return nil
}

// Valid returns true if the iterator is positioned at a valid key.
func (i *Iterator) Valid() bool {
	return i.iter.Valid()
}

// Next advances the iterator to the next key.
func (i *Iterator) Next() bool {
	return i.iter.Next()
}

// Key returns the current key without the column family prefix.
func (i *Iterator) Key() []byte {
	key := i.iter.Key()
	if len(key) > len(i.cfPrefix) && bytes.HasPrefix(key, i.cfPrefix) {
		return key[len(i.cfPrefix):]
	}
	return key
}

// Value returns the current value. It is only valid until the next call to
// Next or Close.
func (i *Iterator) Value() []byte {
	return i.iter.Value()
}

// Close closes the iterator.
func (i *Iterator) Close() error {
	return i.iter.Close()
}
