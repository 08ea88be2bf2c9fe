package storage

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocksage/chainquery/internal/models"
)

func testTxRecord(n int, blockHash string) *models.Transaction {
	return &models.Transaction{
		TxID:      fmt.Sprintf("%064x", n),
		BlockHash: blockHash,
		Index:     0,
		Version:   1,
		LockTime:  0,
		Value:     int64(n) * 100_000_000,
		Vins: []models.Vin{{
			PrevHash:  fmt.Sprintf("%064x", n+500),
			SigScript: "abcd",
			SeqNum:    0xffffffff,
		}},
		Vouts: []models.Vout{{
			Value:     int64(n) * 100_000_000,
			SigScript: "51",
		}},
	}
}

func TestTxStoreSaveBatchAndGet(t *testing.T) {
	store := NewTxStore(openTestDB(t))

	txs := []*models.Transaction{
		testTxRecord(1, "blockA"),
		testTxRecord(2, "blockA"),
	}
	require.NoError(t, store.SaveBatch(txs))

	for _, want := range txs {
		got, err := store.Get(want.TxID)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestTxStoreGetMissing(t *testing.T) {
	store := NewTxStore(openTestDB(t))

	got, err := store.Get(fmt.Sprintf("%064x", 42))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestTxStoreFirstMappingWins(t *testing.T) {
	store := NewTxStore(openTestDB(t))

	first := testTxRecord(1, "blockA")
	require.NoError(t, store.SaveBatch([]*models.Transaction{first}))

	// the same txid arriving in a later block must not overwrite
	second := testTxRecord(1, "blockB")
	require.NoError(t, store.SaveBatch([]*models.Transaction{second}))

	got, err := store.Get(first.TxID)
	require.NoError(t, err)
	assert.Equal(t, "blockA", got.BlockHash)
}

func TestTxStoreEmptyBatch(t *testing.T) {
	store := NewTxStore(openTestDB(t))
	assert.NoError(t, store.SaveBatch(nil))
}
