// Package delegate implements the block-producer (delegate) registry:
// the active/last delegate snapshots, height-based lookup, the per-block-hash
// snapshot fallback carried over from the original miner list lookup, and
// the quorum arithmetic every finality round depends on.
package delegate

import (
	"encoding/json"
	"fmt"

	"wakichain/cache"
	"wakichain/ids"
)

// MinConfirmBpCount computes the minimum number of distinct delegate
// signatures required to reach quorum over n active delegates. This is
// `n - n/3`, not the more familiar `2n/3 + 1` — the arithmetic is preserved
// verbatim from the original source (see the Open Questions note in
// SPEC_FULL.md); for n a multiple of 3 the two formulas disagree by one
// signature (n=3: 2 vs 3; n=6: 4 vs 5), and this codebase intentionally keeps the original's
// rounding rather than "fixing" it.
func MinConfirmBpCount(n int) int {
	if n <= 0 {
		return 0
	}
	return n - n/3
}

// FinalBlockMinerCount is the quorum threshold for the global finality
// round. The original source computes this with the identical formula as
// MinConfirmBpCount; it is kept as a distinct name because the two rounds
// are conceptually separate quorum checks even though they share arithmetic.
func FinalBlockMinerCount(n int) int {
	return MinConfirmBpCount(n)
}

// Entry is one delegate's identity and standing within a DelegateSet.
type Entry struct {
	RegId         ids.RegId
	OwnerPubKey   ids.PubKey
	MinerPubKey   ids.PubKey
	ReceivedVotes uint64
}

// Set is a snapshot of the active block-producer list as of some height.
type Set struct {
	Entries      []Entry
	UpdateHeight uint64
}

// Contains reports whether regID is a member of the set.
func (s Set) Contains(regID ids.RegId) bool {
	_, ok := s.index()[regID]
	return ok
}

func (s Set) index() map[ids.RegId]int {
	idx := make(map[ids.RegId]int, len(s.Entries))
	for i, e := range s.Entries {
		idx[e.RegId] = i
	}
	return idx
}

// Quorum is the minimum signature count required over this set.
func (s Set) Quorum() int {
	return MinConfirmBpCount(len(s.Entries))
}

var (
	keyActive = []byte("delegate/active")
	keyLast   = []byte("delegate/last")
)

func snapshotKey(hash ids.Hash256) []byte {
	return append([]byte("delegate/snapshot/"), hash[:]...)
}

// Registry persists the active/last delegate snapshots and per-block-hash
// snapshots in the cache layer.
type Registry struct {
	layer *cache.Layer
}

func NewRegistry(layer *cache.Layer) *Registry {
	return &Registry{layer: layer}
}

func (r *Registry) SetActive(set Set) error {
	return cache.PutJSON(r.layer, keyActive, set)
}

func (r *Registry) SetLast(set Set) error {
	return cache.PutJSON(r.layer, keyLast, set)
}

func (r *Registry) Active() (Set, error) {
	var set Set
	found, err := cache.GetJSON(r.layer, keyActive, &set)
	if err != nil {
		return Set{}, err
	}
	if !found {
		return Set{}, nil
	}
	return set, nil
}

func (r *Registry) Last() (Set, error) {
	var set Set
	found, err := cache.GetJSON(r.layer, keyLast, &set)
	if err != nil {
		return Set{}, err
	}
	if !found {
		return Set{}, nil
	}
	return set, nil
}

// SetSnapshotForHash records the delegate set that produced the block
// identified by hash, enabling BpSetByParentHash's preferred lookup path.
func (r *Registry) SetSnapshotForHash(hash ids.Hash256, set Set) error {
	return cache.PutJSON(r.layer, snapshotKey(hash), set)
}

// BpSetByParentHash looks up the delegate set recorded for a specific block
// hash. This mirrors the original pbftmanager.cpp's preferred lookup over
// the height-based one: a message in flight names the block it confirms, so
// resolving the delegate set by that exact hash is more precise than height
// alone when a reorg has occurred at the same height.
func (r *Registry) BpSetByParentHash(hash ids.Hash256) (Set, bool, error) {
	var set Set
	found, err := cache.GetJSON(r.layer, snapshotKey(hash), &set)
	if err != nil {
		return Set{}, false, err
	}
	return set, found, nil
}

// BpSetAt resolves the delegate set effective at height, implementing §3's
// lookup rule: use the active set if height is past its recorded update
// height or no last set exists yet, otherwise fall back to the last set.
func (r *Registry) BpSetAt(height uint64) (Set, error) {
	active, err := r.Active()
	if err != nil {
		return Set{}, err
	}
	last, err := r.Last()
	if err != nil {
		return Set{}, err
	}
	if height > active.UpdateHeight || len(last.Entries) == 0 {
		return active, nil
	}
	return last, nil
}

// String renders a compact human-readable form of the set for logging.
func (s Set) String() string {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf("<unencodable delegate set: %v>", err)
	}
	return string(b)
}
