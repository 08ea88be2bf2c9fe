package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedStateStoreUnset(t *testing.T) {
	store := NewFeedStateStore(openTestDB(t))

	height, err := store.NextHeight()
	require.NoError(t, err)
	assert.EqualValues(t, -1, height)
}

func TestFeedStateStoreRoundTrip(t *testing.T) {
	store := NewFeedStateStore(openTestDB(t))

	require.NoError(t, store.SetNextHeight(812345))

	height, err := store.NextHeight()
	require.NoError(t, err)
	assert.EqualValues(t, 812345, height)

	require.NoError(t, store.SetNextHeight(812346))

	height, err = store.NextHeight()
	require.NoError(t, err)
	assert.EqualValues(t, 812346, height)
}

func TestFeedStateStoreZeroHeight(t *testing.T) {
	store := NewFeedStateStore(openTestDB(t))

	require.NoError(t, store.SetNextHeight(0))

	height, err := store.NextHeight()
	require.NoError(t, err)
	assert.EqualValues(t, 0, height)
}
