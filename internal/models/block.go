package models

// Block is the stored record for an ingested block. Hashes are big-endian
// hex strings, the byte order they travel through the API.
type Block struct {
	Hash       string   `json:"hash"`
	Height     int64    `json:"height"`
	Version    int32    `json:"version"`
	PrevBlock  string   `json:"prev_block"`
	MerkleRoot string   `json:"mrkl_root"`
	Time       uint32   `json:"time"`
	Bits       uint32   `json:"bits"`
	Nonce      uint32   `json:"nonce"`
	TxCount    int      `json:"tx_count"`
	TxIDs      []string `json:"tx_ids"`
}
