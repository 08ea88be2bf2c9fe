package ingest

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/blocksage/chainquery/internal/chain"
	"github.com/blocksage/chainquery/internal/codec"
	"github.com/blocksage/chainquery/internal/metrics"
	"github.com/blocksage/chainquery/internal/models"
	"github.com/blocksage/chainquery/internal/storage"
)

// Pipeline applies raw blocks to the chain index and the persistent stores,
// one block at a time. Malformed and rejected blocks are logged and skipped;
// the indexes always stay in their last consistent state.
type Pipeline struct {
	chain   *chain.Index
	blocks  *storage.BlockStore
	txs     *storage.TxStore
	log     *slog.Logger
	nextSeq uint64
}

// NewPipeline creates a new Pipeline.
func NewPipeline(ix *chain.Index, blocks *storage.BlockStore, txs *storage.TxStore,
	log *slog.Logger) *Pipeline {

	return &Pipeline{chain: ix, blocks: blocks, txs: txs, log: log}
}

// Replay rebuilds the in-memory chain index from the raw-block archive in
// arrival order. Called once on startup, before the feed is consumed.
func (p *Pipeline) Replay() error {
	var count int
	err := p.blocks.WalkRaw(func(seq uint64, raw []byte) error {
		blk, err := codec.DecodeBlock(raw)
		if err != nil {
			return fmt.Errorf("archived block %d: %w", seq, err)
		}
		if _, err := p.chain.Insert(&blk.Header); err != nil {
			return fmt.Errorf("archived block %d: %w", seq, err)
		}
		if seq >= p.nextSeq {
			p.nextSeq = seq + 1
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}

	if count > 0 {
		hash, height, err := p.chain.Latest()
		if err != nil {
			return err
		}
		metrics.SetChainHeight(height)
		p.log.Info("chain index rebuilt from archive",
			"blocks", count, "tip", hash.String(), "height", height)
	}
	return nil
}

// Run consumes the feed until it is exhausted or ctx is canceled. Codec and
// ingestion errors skip the offending block; storage errors stop the run.
func (p *Pipeline) Run(ctx context.Context, feed Feed) error {
	for {
		raw, err := feed.Next(ctx)
		switch {
		case errors.Is(err, ErrEndOfFeed):
			p.log.Info("feed drained", "blocks", p.nextSeq)
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case err != nil:
			return fmt.Errorf("feed: %w", err)
		}

		if err := p.Apply(raw); err != nil {
			switch {
			case errors.Is(err, codec.ErrMalformed):
				metrics.ObserveBlock(metrics.StatusMalformed)
				p.log.Warn("skipping malformed block", "error", err)
			case errors.Is(err, chain.ErrDuplicateBlock),
				errors.Is(err, chain.ErrUnknownParent),
				errors.Is(err, chain.ErrReorgTooDeep):
				metrics.ObserveBlock(metrics.StatusRejected)
				p.log.Warn("block rejected", "error", err)
			default:
				return err
			}
		}

		if c, ok := feed.(committer); ok {
			if err := c.Commit(); err != nil {
				p.log.Warn("failed to persist feed cursor", "error", err)
			}
		}
	}
}

// Apply decodes one raw block and applies it to the chain index and the
// stores.
func (p *Pipeline) Apply(raw []byte) error {
	blk, err := codec.DecodeBlock(raw)
	if err != nil {
		return err
	}

	res, err := p.chain.Insert(&blk.Header)
	if err != nil {
		return err
	}

	rec, txRecs := buildRecords(blk, res.Height)
	if err := p.blocks.Save(rec, p.nextSeq, raw); err != nil {
		return fmt.Errorf("persist block %s: %w", rec.Hash, err)
	}
	if err := p.txs.SaveBatch(txRecs); err != nil {
		return fmt.Errorf("persist transactions of %s: %w", rec.Hash, err)
	}
	p.nextSeq++

	metrics.ObserveBlock(metrics.StatusApplied)
	if res.TipChanged {
		metrics.SetChainHeight(res.Height)
	}
	if res.ReorgDepth > 0 {
		metrics.ObserveReorg(res.ReorgDepth)
		p.log.Info("chain reorganized",
			"new_tip", rec.Hash, "height", res.Height, "detached", res.ReorgDepth)
	}
	p.log.Debug("block applied", "hash", rec.Hash, "height", res.Height, "txs", rec.TxCount)
	return nil
}

// buildRecords turns a decoded block into the stored block and transaction
// records.
func buildRecords(blk *codec.Block, height int64) (*models.Block, []*models.Transaction) {
	hash := blk.BlockHash().String()

	txIDs := make([]string, 0, len(blk.Transactions))
	txRecs := make([]*models.Transaction, 0, len(blk.Transactions))
	for i, tx := range blk.Transactions {
		txid := tx.TxHash().String()
		txIDs = append(txIDs, txid)

		vins := make([]models.Vin, 0, len(tx.Inputs))
		for j := range tx.Inputs {
			in := &tx.Inputs[j]
			vins = append(vins, models.Vin{
				PrevHash:  in.PrevTxHash.String(),
				SigScript: hex.EncodeToString(in.SigScript),
				SeqNum:    in.Sequence,
			})
		}
		vouts := make([]models.Vout, 0, len(tx.Outputs))
		for j := range tx.Outputs {
			out := &tx.Outputs[j]
			vouts = append(vouts, models.Vout{
				Value:     int64(out.Value),
				SigScript: hex.EncodeToString(out.PkScript),
			})
		}

		txRecs = append(txRecs, &models.Transaction{
			TxID:      txid,
			BlockHash: hash,
			Index:     i,
			Version:   tx.Version,
			LockTime:  tx.LockTime,
			Value:     int64(tx.TotalOutputValue()),
			Vins:      vins,
			Vouts:     vouts,
		})
	}

	hdr := &blk.Header
	rec := &models.Block{
		Hash:       hash,
		Height:     height,
		Version:    hdr.Version,
		PrevBlock:  hdr.PrevBlock.String(),
		MerkleRoot: hdr.MerkleRoot.String(),
		Time:       hdr.Time,
		Bits:       hdr.Bits,
		Nonce:      hdr.Nonce,
		TxCount:    len(blk.Transactions),
		TxIDs:      txIDs,
	}
	return rec, txRecs
}
