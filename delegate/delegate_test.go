package delegate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"wakichain/cache"
	"wakichain/ids"
	"wakichain/storage"
)

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	db := storage.NewMemDB()
	return NewRegistry(cache.NewLayer(cache.NewBaseStore(db)))
}

func TestMinConfirmBpCountArithmeticQuirk(t *testing.T) {
	// Preserved verbatim: n - n/3 (which equals ceil(2n/3)), not 2n/3 + 1.
	require.Equal(t, 0, MinConfirmBpCount(0))
	require.Equal(t, 1, MinConfirmBpCount(1))
	require.Equal(t, 3, MinConfirmBpCount(4))
	require.Equal(t, 5, MinConfirmBpCount(7))
	require.Equal(t, 34, MinConfirmBpCount(51))
}

func TestBpSetAtPrefersActiveWhenHeightPastUpdate(t *testing.T) {
	r := newRegistry(t)
	active := Set{Entries: []Entry{{RegId: ids.RegId{Height: 1, Index: 0}}}, UpdateHeight: 100}
	last := Set{Entries: []Entry{{RegId: ids.RegId{Height: 1, Index: 1}}}, UpdateHeight: 50}
	require.NoError(t, r.SetActive(active))
	require.NoError(t, r.SetLast(last))

	got, err := r.BpSetAt(150)
	require.NoError(t, err)
	require.Equal(t, active, got)
}

func TestBpSetAtFallsBackToLastWithinWindow(t *testing.T) {
	r := newRegistry(t)
	active := Set{Entries: []Entry{{RegId: ids.RegId{Height: 1, Index: 0}}}, UpdateHeight: 100}
	last := Set{Entries: []Entry{{RegId: ids.RegId{Height: 1, Index: 1}}}, UpdateHeight: 50}
	require.NoError(t, r.SetActive(active))
	require.NoError(t, r.SetLast(last))

	got, err := r.BpSetAt(80)
	require.NoError(t, err)
	require.Equal(t, last, got)
}

func TestBpSetAtUsesActiveWhenLastEmpty(t *testing.T) {
	r := newRegistry(t)
	active := Set{Entries: []Entry{{RegId: ids.RegId{Height: 1, Index: 0}}}, UpdateHeight: 100}
	require.NoError(t, r.SetActive(active))

	got, err := r.BpSetAt(1)
	require.NoError(t, err)
	require.Equal(t, active, got)
}

func TestBpSetByParentHashFallback(t *testing.T) {
	r := newRegistry(t)
	var hash ids.Hash256
	hash[0] = 0x01

	_, found, err := r.BpSetByParentHash(hash)
	require.NoError(t, err)
	require.False(t, found)

	set := Set{Entries: []Entry{{RegId: ids.RegId{Height: 1}}}, UpdateHeight: 10}
	require.NoError(t, r.SetSnapshotForHash(hash, set))

	got, found, err := r.BpSetByParentHash(hash)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, set, got)
}

func TestSetContainsAndQuorum(t *testing.T) {
	reg := ids.RegId{Height: 1, Index: 0}
	set := Set{Entries: []Entry{{RegId: reg}, {RegId: ids.RegId{Height: 1, Index: 1}}}}
	require.True(t, set.Contains(reg))
	require.False(t, set.Contains(ids.RegId{Height: 99}))
	require.Equal(t, 2, set.Quorum())
}
