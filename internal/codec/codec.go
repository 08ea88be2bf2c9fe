package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// ErrMalformed is returned when a raw block cannot be decoded: truncated
// bytes, a length field that exceeds the remaining buffer, trailing garbage,
// or a merkle root that does not match the transactions.
var ErrMalformed = errors.New("malformed block")

// headerSize is the fixed serialized size of a block header.
const headerSize = 80

// BlockHeader holds the six header fields of a block. A header is identified
// by the double SHA-256 of its 80 serialized bytes.
type BlockHeader struct {
	Version    int32
	PrevBlock  chainhash.Hash
	MerkleRoot chainhash.Hash
	Time       uint32
	Bits       uint32
	Nonce      uint32
}

// BlockHash computes the hash identifying this header.
func (h *BlockHeader) BlockHash() chainhash.Hash {
	var buf bytes.Buffer
	buf.Grow(headerSize)
	h.encode(&buf)
	return chainhash.DoubleHashH(buf.Bytes())
}

func (h *BlockHeader) encode(buf *bytes.Buffer) {
	var scratch [headerSize]byte
	binary.LittleEndian.PutUint32(scratch[0:4], uint32(h.Version))
	copy(scratch[4:36], h.PrevBlock[:])
	copy(scratch[36:68], h.MerkleRoot[:])
	binary.LittleEndian.PutUint32(scratch[68:72], h.Time)
	binary.LittleEndian.PutUint32(scratch[72:76], h.Bits)
	binary.LittleEndian.PutUint32(scratch[76:80], h.Nonce)
	buf.Write(scratch[:])
}

// TxIn is a transaction input: the outpoint being spent, the unlocking
// script, and the sequence number.
type TxIn struct {
	PrevTxHash  chainhash.Hash
	PrevTxIndex uint32
	SigScript   []byte
	Sequence    uint32
}

// TxOut is a transaction output: a satoshi amount and its locking script.
type TxOut struct {
	Value    btcutil.Amount
	PkScript []byte
}

// Transaction is a decoded transaction. Its hash is the double SHA-256 of
// its serialized bytes.
type Transaction struct {
	Version  int32
	Inputs   []TxIn
	Outputs  []TxOut
	LockTime uint32
}

// TxHash computes the txid of the transaction.
func (tx *Transaction) TxHash() chainhash.Hash {
	var buf bytes.Buffer
	tx.encode(&buf)
	return chainhash.DoubleHashH(buf.Bytes())
}

// TotalOutputValue sums the transaction's output values.
func (tx *Transaction) TotalOutputValue() btcutil.Amount {
	var total btcutil.Amount
	for i := range tx.Outputs {
		total += tx.Outputs[i].Value
	}
	return total
}

func (tx *Transaction) encode(buf *bytes.Buffer) {
	writeUint32(buf, uint32(tx.Version))
	writeVarInt(buf, uint64(len(tx.Inputs)))
	for i := range tx.Inputs {
		in := &tx.Inputs[i]
		buf.Write(in.PrevTxHash[:])
		writeUint32(buf, in.PrevTxIndex)
		writeVarInt(buf, uint64(len(in.SigScript)))
		buf.Write(in.SigScript)
		writeUint32(buf, in.Sequence)
	}
	writeVarInt(buf, uint64(len(tx.Outputs)))
	for i := range tx.Outputs {
		out := &tx.Outputs[i]
		writeUint64(buf, uint64(out.Value))
		writeVarInt(buf, uint64(len(out.PkScript)))
		buf.Write(out.PkScript)
	}
	writeUint32(buf, tx.LockTime)
}

// Block is a decoded block: a header and its ordered transactions. Blocks are
// never mutated once decoded.
type Block struct {
	Header       BlockHeader
	Transactions []*Transaction
}

// BlockHash computes the hash identifying this block.
func (b *Block) BlockHash() chainhash.Hash {
	return b.Header.BlockHash()
}

// DecodeBlock decodes the raw serialized bytes of a single block. Decoding is
// pure and deterministic. The whole buffer must be consumed and the header's
// merkle root must match the decoded transactions, otherwise ErrMalformed is
// returned.
func DecodeBlock(raw []byte) (*Block, error) {
	r := bytes.NewReader(raw)

	var blk Block
	if err := decodeHeader(r, &blk.Header); err != nil {
		return nil, err
	}

	txCount, err := readVarInt(r)
	if err != nil {
		return nil, err
	}
	if txCount == 0 {
		return nil, fmt.Errorf("%w: block carries no transactions", ErrMalformed)
	}
	if txCount > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: transaction count %d exceeds remaining %d bytes",
			ErrMalformed, txCount, r.Len())
	}

	blk.Transactions = make([]*Transaction, 0, txCount)
	txHashes := make([]chainhash.Hash, 0, txCount)
	for i := uint64(0); i < txCount; i++ {
		tx, err := decodeTransaction(r)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		blk.Transactions = append(blk.Transactions, tx)
		txHashes = append(txHashes, tx.TxHash())
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after last transaction",
			ErrMalformed, r.Len())
	}
	if root := MerkleRoot(txHashes); root != blk.Header.MerkleRoot {
		return nil, fmt.Errorf("%w: merkle root mismatch", ErrMalformed)
	}
	return &blk, nil
}

// EncodeBlock serializes a block back to its raw byte representation.
// DecodeBlock(EncodeBlock(b)) yields a block equal to b.
func EncodeBlock(b *Block) []byte {
	var buf bytes.Buffer
	b.Header.encode(&buf)
	writeVarInt(&buf, uint64(len(b.Transactions)))
	for _, tx := range b.Transactions {
		tx.encode(&buf)
	}
	return buf.Bytes()
}

func decodeHeader(r *bytes.Reader, h *BlockHeader) error {
	var buf [headerSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return fmt.Errorf("%w: truncated header", ErrMalformed)
	}
	h.Version = int32(binary.LittleEndian.Uint32(buf[0:4]))
	copy(h.PrevBlock[:], buf[4:36])
	copy(h.MerkleRoot[:], buf[36:68])
	h.Time = binary.LittleEndian.Uint32(buf[68:72])
	h.Bits = binary.LittleEndian.Uint32(buf[72:76])
	h.Nonce = binary.LittleEndian.Uint32(buf[76:80])
	return nil
}

func decodeTransaction(r *bytes.Reader) (*Transaction, error) {
	var tx Transaction

	version, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	tx.Version = int32(version)

	inCount, err := readVarInt(r)
	if err != nil {
		return nil, err
	}
	if inCount > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: input count %d exceeds remaining %d bytes",
			ErrMalformed, inCount, r.Len())
	}
	tx.Inputs = make([]TxIn, 0, inCount)
	for i := uint64(0); i < inCount; i++ {
		var in TxIn
		if _, err := io.ReadFull(r, in.PrevTxHash[:]); err != nil {
			return nil, fmt.Errorf("%w: truncated input outpoint", ErrMalformed)
		}
		if in.PrevTxIndex, err = readUint32(r); err != nil {
			return nil, err
		}
		if in.SigScript, err = readScript(r); err != nil {
			return nil, err
		}
		if in.Sequence, err = readUint32(r); err != nil {
			return nil, err
		}
		tx.Inputs = append(tx.Inputs, in)
	}

	outCount, err := readVarInt(r)
	if err != nil {
		return nil, err
	}
	if outCount > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: output count %d exceeds remaining %d bytes",
			ErrMalformed, outCount, r.Len())
	}
	tx.Outputs = make([]TxOut, 0, outCount)
	for i := uint64(0); i < outCount; i++ {
		var out TxOut
		value, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		out.Value = btcutil.Amount(value)
		if out.PkScript, err = readScript(r); err != nil {
			return nil, err
		}
		tx.Outputs = append(tx.Outputs, out)
	}

	lockTime, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	tx.LockTime = lockTime
	return &tx, nil
}

// readScript reads a var-length script, rejecting length fields that claim
// more bytes than the buffer holds.
func readScript(r *bytes.Reader) ([]byte, error) {
	size, err := readVarInt(r)
	if err != nil {
		return nil, err
	}
	if size > uint64(r.Len()) {
		return nil, fmt.Errorf("%w: script length %d exceeds remaining %d bytes",
			ErrMalformed, size, r.Len())
	}
	script := make([]byte, size)
	if _, err := io.ReadFull(r, script); err != nil {
		return nil, fmt.Errorf("%w: truncated script", ErrMalformed)
	}
	return script, nil
}

func readVarInt(r *bytes.Reader) (uint64, error) {
	v, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: bad compact size: %v", ErrMalformed, err)
	}
	return v, nil
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: truncated uint32 field", ErrMalformed)
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readUint64(r *bytes.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, fmt.Errorf("%w: truncated uint64 field", ErrMalformed)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func writeVarInt(buf *bytes.Buffer, v uint64) {
	// bytes.Buffer writes do not fail
	_ = wire.WriteVarInt(buf, 0, v)
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], v)
	buf.Write(scratch[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var scratch [8]byte
	binary.LittleEndian.PutUint64(scratch[:], v)
	buf.Write(scratch[:])
}
