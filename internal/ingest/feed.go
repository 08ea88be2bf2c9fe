package ingest

import (
	"context"
	"errors"
)

// ErrEndOfFeed signals that a feed has no more blocks to deliver.
var ErrEndOfFeed = errors.New("end of feed")

// Feed supplies raw block bytes in arrival order. The pipeline is the only
// consumer; feeds do not need to be safe for concurrent use.
type Feed interface {
	// Next returns the raw bytes of the next block, ErrEndOfFeed when the
	// feed is exhausted, or the context's error when ctx is done.
	Next(ctx context.Context) ([]byte, error)
	Close() error
}

// committer is implemented by feeds that persist a cursor. The pipeline
// commits only after a delivered block has been fully applied or settled.
type committer interface {
	Commit() error
}
