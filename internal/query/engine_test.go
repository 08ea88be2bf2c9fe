package query

import (
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blocksage/chainquery/internal/chain"
	"github.com/blocksage/chainquery/internal/codec"
	"github.com/blocksage/chainquery/internal/models"
	"github.com/blocksage/chainquery/internal/storage"
)

type fixture struct {
	engine *Engine
	chain  *chain.Index
	blocks *storage.BlockStore
	txs    *storage.TxStore

	genesis      chainhash.Hash
	child        chainhash.Hash
	coinbaseTxID string
	spendTxID    string
}

func testHeader(prev chainhash.Hash, nonce uint32) *codec.BlockHeader {
	return &codec.BlockHeader{
		Version:   1,
		PrevBlock: prev,
		Time:      1231006505 + nonce,
		Bits:      0x1d00ffff,
		Nonce:     nonce,
	}
}

func blockRecord(hdr *codec.BlockHeader, height int64, txIDs []string) *models.Block {
	return &models.Block{
		Hash:       hdr.BlockHash().String(),
		Height:     height,
		Version:    hdr.Version,
		PrevBlock:  hdr.PrevBlock.String(),
		MerkleRoot: hdr.MerkleRoot.String(),
		Time:       hdr.Time,
		Bits:       hdr.Bits,
		Nonce:      hdr.Nonce,
		TxCount:    len(txIDs),
		TxIDs:      txIDs,
	}
}

// newFixture seeds a two-block main chain. The genesis block carries a
// coinbase transaction, the child block a transaction spending it.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := storage.NewPebbleDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		chain:        chain.NewIndex(0),
		blocks:       storage.NewBlockStore(db),
		txs:          storage.NewTxStore(db),
		coinbaseTxID: "aa11223344556677889900aabbccddeeff11223344556677889900aabbccddee",
		spendTxID:    "bb11223344556677889900aabbccddeeff11223344556677889900aabbccddee",
	}

	genHdr := testHeader(chainhash.Hash{}, 0)
	res, err := f.chain.Insert(genHdr)
	require.NoError(t, err)
	f.genesis = res.Hash

	childHdr := testHeader(f.genesis, 1)
	res, err = f.chain.Insert(childHdr)
	require.NoError(t, err)
	f.child = res.Hash

	require.NoError(t, f.blocks.Save(
		blockRecord(genHdr, 0, []string{f.coinbaseTxID}), 0, []byte("raw-0")))
	require.NoError(t, f.blocks.Save(
		blockRecord(childHdr, 1, []string{f.spendTxID}), 1, []byte("raw-1")))

	require.NoError(t, f.txs.SaveBatch([]*models.Transaction{
		{
			TxID:      f.coinbaseTxID,
			BlockHash: f.genesis.String(),
			Version:   1,
			LockTime:  0,
			Value:     50_0000_0000,
			Vins: []models.Vin{{
				PrevHash:  chainhash.Hash{}.String(),
				SigScript: "0401",
				SeqNum:    0xffffffff,
			}},
			Vouts: []models.Vout{{Value: 50_0000_0000, SigScript: "51"}},
		},
		{
			TxID:      f.spendTxID,
			BlockHash: f.child.String(),
			Index:     0,
			Version:   2,
			LockTime:  500000,
			Value:     49_9999_0000,
			Vins: []models.Vin{{
				PrevHash:  f.coinbaseTxID,
				SigScript: "010203",
				SeqNum:    0xfffffffe,
			}},
			Vouts: []models.Vout{
				{Value: 30_0000_0000, SigScript: "52"},
				{Value: 19_9999_0000, SigScript: "53"},
			},
		},
	}))

	f.engine = NewEngine(f.chain, f.blocks, f.txs)
	return f
}

func mustHash(t *testing.T, s string) chainhash.Hash {
	t.Helper()
	h, err := chainhash.NewHashFromStr(s)
	require.NoError(t, err)
	return *h
}

func TestBlockHeader(t *testing.T) {
	f := newFixture(t)

	hdr, err := f.engine.BlockHeader(f.genesis)
	require.NoError(t, err)
	assert.EqualValues(t, 1, hdr.Version)
	assert.Equal(t, chainhash.Hash{}.String(), hdr.PrevBlock)
	assert.Equal(t, uint32(1231006505), hdr.Time)
	assert.Equal(t, uint32(0x1d00ffff), hdr.Bits)
	assert.Equal(t, uint32(0), hdr.Nonce)

	hdr, err = f.engine.BlockHeader(f.child)
	require.NoError(t, err)
	assert.Equal(t, f.genesis.String(), hdr.PrevBlock)
}

func TestBlockHeaderNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.BlockHeader(chainhash.Hash{0x99})
	assert.ErrorIs(t, err, ErrBlockNotFound)
}

func TestBlockTransactions(t *testing.T) {
	f := newFixture(t)

	txs, err := f.engine.BlockTransactions(f.genesis)
	require.NoError(t, err)
	assert.Equal(t, 1, txs.TxCount)
	require.Len(t, txs.Transactions, 1)
	assert.Equal(t, f.coinbaseTxID, txs.Transactions[0].TxHash)
	assert.EqualValues(t, 50_0000_0000, txs.Transactions[0].Value)
}

func TestBlockHeight(t *testing.T) {
	f := newFixture(t)

	height, err := f.engine.BlockHeight(f.genesis)
	require.NoError(t, err)
	assert.EqualValues(t, 0, height)

	height, err = f.engine.BlockHeight(f.child)
	require.NoError(t, err)
	assert.EqualValues(t, 1, height)

	_, err = f.engine.BlockHeight(chainhash.Hash{0x99})
	assert.ErrorIs(t, err, ErrBlockNotFound)
}

func TestMainChain(t *testing.T) {
	f := newFixture(t)

	on, err := f.engine.MainChain(f.child)
	require.NoError(t, err)
	assert.True(t, on)

	_, err = f.engine.MainChain(chainhash.Hash{0x99})
	assert.ErrorIs(t, err, ErrBlockNotFound)
}

func TestMainChainSideBlock(t *testing.T) {
	f := newFixture(t)

	// a competing child of genesis stays off the main chain
	sideHdr := testHeader(f.genesis, 77)
	res, err := f.chain.Insert(sideHdr)
	require.NoError(t, err)

	on, err := f.engine.MainChain(res.Hash)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestLatest(t *testing.T) {
	f := newFixture(t)

	hash, err := f.engine.LatestBlock()
	require.NoError(t, err)
	assert.Equal(t, f.child.String(), hash)

	height, err := f.engine.LatestHeight()
	require.NoError(t, err)
	assert.EqualValues(t, 1, height)
}

func TestLatestEmptyChain(t *testing.T) {
	db, err := storage.NewPebbleDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	engine := NewEngine(chain.NewIndex(0),
		storage.NewBlockStore(db), storage.NewTxStore(db))

	_, err = engine.LatestBlock()
	assert.ErrorIs(t, err, ErrChainEmpty)

	_, err = engine.LatestHeight()
	assert.ErrorIs(t, err, ErrChainEmpty)
}

func TestTransactionInfo(t *testing.T) {
	f := newFixture(t)

	info, err := f.engine.TransactionInfo(mustHash(t, f.spendTxID))
	require.NoError(t, err)
	assert.Equal(t, f.child.String(), info.BlockHash)
	assert.EqualValues(t, 2, info.Version)
	assert.Equal(t, 1, info.InputCount)
	assert.Equal(t, 2, info.OutputCount)
	assert.EqualValues(t, 49_9999_0000, info.Value)
	assert.Equal(t, uint32(500000), info.LockTime)
}

func TestTransactionInfoNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.TransactionInfo(chainhash.Hash{0x99})
	assert.ErrorIs(t, err, ErrTxNotFound)
}

func TestTransactionInputs(t *testing.T) {
	f := newFixture(t)

	inputs, err := f.engine.TransactionInputs(mustHash(t, f.spendTxID))
	require.NoError(t, err)
	assert.Equal(t, 1, inputs.InputCount)
	require.Len(t, inputs.Inputs, 1)
	assert.Equal(t, f.coinbaseTxID, inputs.Inputs[0].PrevHash)
	assert.Equal(t, "010203", inputs.Inputs[0].SigScript)
	assert.Equal(t, uint32(0xfffffffe), inputs.Inputs[0].SeqNum)
}

func TestTransactionOutputs(t *testing.T) {
	f := newFixture(t)

	outputs, err := f.engine.TransactionOutputs(mustHash(t, f.spendTxID))
	require.NoError(t, err)
	assert.Equal(t, 2, outputs.OutputCount)
	require.Len(t, outputs.Outputs, 2)
	assert.EqualValues(t, 30_0000_0000, outputs.Outputs[0].Value)
	assert.Equal(t, "52", outputs.Outputs[0].SigScript)
	assert.EqualValues(t, 19_9999_0000, outputs.Outputs[1].Value)
}

// A block demoted off the main chain stays queryable by hash, and its
// transactions stay indexed.
func TestReorgedBlockStaysQueryable(t *testing.T) {
	f := newFixture(t)

	// outwork the existing 2-block chain with a 3-block side branch
	prev := f.genesis
	for nonce := uint32(50); nonce < 53; nonce++ {
		res, err := f.chain.Insert(testHeader(prev, nonce))
		require.NoError(t, err)
		prev = res.Hash
	}

	on, err := f.engine.MainChain(f.child)
	require.NoError(t, err)
	assert.False(t, on)

	height, err := f.engine.BlockHeight(f.child)
	require.NoError(t, err)
	assert.EqualValues(t, 1, height)

	hdr, err := f.engine.BlockHeader(f.child)
	require.NoError(t, err)
	assert.Equal(t, f.genesis.String(), hdr.PrevBlock)

	info, err := f.engine.TransactionInfo(mustHash(t, f.spendTxID))
	require.NoError(t, err)
	assert.Equal(t, f.child.String(), info.BlockHash)
}
