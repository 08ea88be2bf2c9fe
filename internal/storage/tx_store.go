package storage

import (
	"encoding/json"
	"fmt"

	"github.com/blocksage/chainquery/internal/models"
)

// TxStore persists transaction records keyed by txid. The mapping is
// chain-inclusion-agnostic: entries are never removed when their containing
// block leaves the main chain, and the first-indexed record for a txid wins.
type TxStore struct {
	db *PebbleDB
}

// NewTxStore creates a new TxStore.
func NewTxStore(db *PebbleDB) *TxStore {
	return &TxStore{db: db}
}

// Get retrieves a transaction record by txid. A missing txid yields
// (nil, nil).
func (s *TxStore) Get(txid string) (*models.Transaction, error) {
	data, err := s.db.Get(CFTransactions, []byte(txid))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var tx models.Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("failed to unmarshal transaction: %w", err)
	}
	return &tx, nil
}

// SaveBatch stores a block's transactions in one atomic write. Txids that are
// already indexed are skipped, keeping the first mapping.
func (s *TxStore) SaveBatch(txs []*models.Transaction) error {
	batch := s.db.NewBatch()
	defer batch.Destroy()

	for _, tx := range txs {
		existing, err := s.db.Get(CFTransactions, []byte(tx.TxID))
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		data, err := json.Marshal(tx)
		if err != nil {
			return fmt.Errorf("failed to marshal transaction: %w", err)
		}
		batch.Put(CFTransactions, []byte(tx.TxID), data)
	}
	return batch.Commit()
}
