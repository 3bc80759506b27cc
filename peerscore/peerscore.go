// Package peerscore accumulates per-peer misbehaviour scores, the Go
// counterpart of the original CNode::Misbehaving(nodeId, score) accumulator:
// PBFT message validation failures add to a peer's score, and crossing the
// threshold marks the peer for disconnection.
package peerscore

import (
	"sync"

	"golang.org/x/time/rate"
)

// PeerID identifies a connected peer; the concrete value is whatever the
// PeerBus collaborator uses (address, connection id, etc).
type PeerID string

// DefaultThreshold is the score at which a peer is disconnected, matching
// the original's default ban score.
const DefaultThreshold = 100

// DefaultMessageRate and DefaultMessageBurst bound how often a single peer's
// PBFT messages are admitted for validation, independent of the misbehaviour
// score: a peer flooding well-formed messages still costs CPU to verify.
const (
	DefaultMessageRate  = 50 // messages per second
	DefaultMessageBurst = 100
)

// Tracker accumulates misbehaviour scores per peer and rate-limits how often
// each peer's messages are admitted for validation.
type Tracker struct {
	mu        sync.Mutex
	threshold int
	scores    map[PeerID]int

	msgRate   rate.Limit
	msgBurst  int
	limiters  map[PeerID]*rate.Limiter
}

func NewTracker(threshold int) *Tracker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Tracker{
		threshold: threshold,
		scores:    make(map[PeerID]int),
		msgRate:   rate.Limit(DefaultMessageRate),
		msgBurst:  DefaultMessageBurst,
		limiters:  make(map[PeerID]*rate.Limiter),
	}
}

// Allow reports whether peer may submit another message right now, without
// touching its misbehaviour score. A caller should drop (not penalize) a
// message rejected here: a burst of valid traffic is not misbehaviour.
func (t *Tracker) Allow(peer PeerID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	lim, ok := t.limiters[peer]
	if !ok {
		lim = rate.NewLimiter(t.msgRate, t.msgBurst)
		t.limiters[peer] = lim
	}
	return lim.Allow()
}

// Misbehaving adds score to peer's running total and reports whether the
// peer has now crossed the disconnect threshold.
func (t *Tracker) Misbehaving(peer PeerID, score int) (disconnect bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scores[peer] += score
	return t.scores[peer] >= t.threshold
}

// Score returns peer's current accumulated score.
func (t *Tracker) Score(peer PeerID) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scores[peer]
}

// Reset clears peer's accumulated score and rate-limiter state, used when a
// peer reconnects.
func (t *Tracker) Reset(peer PeerID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.scores, peer)
	delete(t.limiters, peer)
}
