package storage

import (
	"fmt"
	"strconv"
)

// feedCursorKey is the single key holding the node feed's height cursor.
const feedCursorKey = "node"

// FeedStateStore persists the ingestion feed cursor so a restart resumes
// where the previous run left off.
type FeedStateStore struct {
	db *PebbleDB
}

// NewFeedStateStore creates a new FeedStateStore.
func NewFeedStateStore(db *PebbleDB) *FeedStateStore {
	return &FeedStateStore{db: db}
}

// NextHeight returns the next block height to fetch, or -1 when no cursor
// has been stored yet.
func (s *FeedStateStore) NextHeight() (int64, error) {
	data, err := s.db.Get(CFFeedState, []byte(feedCursorKey))
	if err != nil {
		return 0, err
	}
	if data == nil {
		return -1, nil
	}

	height, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse feed cursor: %w", err)
	}
	return height, nil
}

// SetNextHeight stores the next block height to fetch.
func (s *FeedStateStore) SetNextHeight(height int64) error {
	return s.db.Put(CFFeedState, []byte(feedCursorKey), []byte(strconv.FormatInt(height, 10)))
}
