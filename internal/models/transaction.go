package models

// Transaction is the stored record for a transaction, keyed by txid. Index is
// the transaction's position within its containing block. Value is the total
// output value in satoshis.
type Transaction struct {
	TxID      string `json:"txid"`
	BlockHash string `json:"block_hash"`
	Index     int    `json:"index"`
	Version   int32  `json:"version"`
	LockTime  uint32 `json:"lock_time"`
	Value     int64  `json:"value"`
	Vins      []Vin  `json:"vins"`
	Vouts     []Vout `json:"vouts"`
}

// Vin represents a transaction input.
type Vin struct {
	PrevHash  string `json:"prev_hash"`
	SigScript string `json:"sig_script"`
	SeqNum    uint32 `json:"seq_num"`
}

// Vout represents a transaction output. Value is in satoshis.
type Vout struct {
	Value     int64  `json:"value"`
	SigScript string `json:"sig_script"`
}
