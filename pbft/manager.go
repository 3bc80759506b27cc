package pbft

import (
	"sync"

	"wakichain/ids"
)

// perMinerKey is the ordered-by-miner dedup key within a single block's
// aggregation bucket, mirroring the original `std::set<CBlockConfirmMessage>`
// (ordered by miner RegId) so re-delivery from the same miner for the same
// block never grows the aggregation.
type perMinerKey struct {
	blockKey
	Miner ids.RegId
}

// Manager deduplicates, aggregates, and tracks broadcast state for one PBFT
// round (Confirm or Finality). One Manager instance is created per round;
// the finality manager owns exactly two.
type Manager struct {
	mu sync.Mutex

	maxKnown int
	known    map[dedupKey]struct{}
	knownFIFO []dedupKey

	byBlock    map[blockKey][]Message
	byMinerSeen map[perMinerKey]struct{}

	broadcasted map[blockKey]struct{}
}

// NewManager constructs a Manager whose known-message set never exceeds
// maxKnown entries (PBFT_MAX_KNOWN), evicting the oldest entry once full.
func NewManager(maxKnown int) *Manager {
	if maxKnown <= 0 {
		maxKnown = 10000
	}
	return &Manager{
		maxKnown:    maxKnown,
		known:       make(map[dedupKey]struct{}),
		byBlock:     make(map[blockKey][]Message),
		byMinerSeen: make(map[perMinerKey]struct{}),
		broadcasted: make(map[blockKey]struct{}),
	}
}

// Known reports whether msg has already been recorded by AddMessage.
func (m *Manager) Known(msg Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.known[msg.dedupKey()]
	return ok
}

func (m *Manager) remember(key dedupKey) {
	if _, ok := m.known[key]; ok {
		return
	}
	if len(m.knownFIFO) >= m.maxKnown {
		oldest := m.knownFIFO[0]
		m.knownFIFO = m.knownFIFO[1:]
		delete(m.known, oldest)
	}
	m.known[key] = struct{}{}
	m.knownFIFO = append(m.knownFIFO, key)
}

// AddMessage records msg if it has not been seen before (by dedup key) and
// the same miner has not already contributed a message for this block.
// It returns added=false, with no error, for a duplicate — callers should
// treat that as a silent no-op, not a validation failure.
func (m *Manager) AddMessage(msg Message) (added bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dk := msg.dedupKey()
	if _, ok := m.known[dk]; ok {
		return false
	}
	pmk := perMinerKey{blockKey: msg.blockKey(), Miner: msg.Miner}
	if _, ok := m.byMinerSeen[pmk]; ok {
		m.remember(dk)
		return false
	}

	m.remember(dk)
	m.byMinerSeen[pmk] = struct{}{}
	m.byBlock[msg.blockKey()] = append(m.byBlock[msg.blockKey()], msg)
	return true
}

// MessagesForBlock returns every distinct-miner message recorded for the
// block (height, hash).
func (m *Manager) MessagesForBlock(height uint64, hash ids.Hash256) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.byBlock[blockKey{Height: height, BlockHash: hash}]
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// CountForBlock is the number of distinct miners who have signed for
// (height, hash) so far.
func (m *Manager) CountForBlock(height uint64, hash ids.Hash256) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byBlock[blockKey{Height: height, BlockHash: hash}])
}

// MarkBroadcasted records that this node has already broadcast its own
// message for (height, hash), so BroadcastBlockConfirm/Finality never
// re-announce the same vote.
func (m *Manager) MarkBroadcasted(height uint64, hash ids.Hash256) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcasted[blockKey{Height: height, BlockHash: hash}] = struct{}{}
}

// WasBroadcasted reports whether MarkBroadcasted has already been called for
// (height, hash).
func (m *Manager) WasBroadcasted(height uint64, hash ids.Hash256) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.broadcasted[blockKey{Height: height, BlockHash: hash}]
	return ok
}

// Forget drops the aggregated messages and the broadcast mark for
// (height, hash). The known-message set and the per-miner marks are kept, so
// a message already recorded for that block is still treated as a duplicate.
func (m *Manager) Forget(height uint64, hash ids.Hash256) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := blockKey{Height: height, BlockHash: hash}
	delete(m.byBlock, key)
	delete(m.broadcasted, key)
}
