package finality

import (
	"time"

	"wakichain/crypto"
	"wakichain/ids"
	"wakichain/pbft"
)

// BlockIndex is the minimal view of a chain block the finality manager
// needs: its identity, its parent, and when it was produced (used by the
// confirm-broadcast age check).
type BlockIndex struct {
	Height   uint64
	Hash     ids.Hash256
	PrevHash ids.Hash256
	Time     time.Time
}

// ChainView is the external collaborator giving the finality manager
// read-only access to the canonical chain. Implementations must hold
// whatever lock the caller's chain-state guard requires ("cs_main" in §5)
// for the duration of any call; the finality manager never acquires that
// lock itself, only its own pointer-guarding lock ("cs_finblock"), and
// always after any cs_main-guarded call has returned.
type ChainView interface {
	Tip() BlockIndex
	Genesis() BlockIndex
	BlockAtHeight(height uint64) (BlockIndex, bool)
	// IsCanonical reports whether the block identified by (height, hash) is
	// still on the canonical chain as of the current tip.
	IsCanonical(height uint64, hash ids.Hash256) bool
}

// PeerBus is the external collaborator used to push PBFT messages to
// connected peers, and to relay a received message back out.
type PeerBus interface {
	PushConfirm(msg pbft.Message) error
	PushFinality(msg pbft.Message) error
	Relay(msg pbft.Message) error
}

// AccountView is the external collaborator giving the finality manager
// read-only access to registered accounts' signing keys, grounding the §4.G
// admission check ("accounts[msg.miner] exists"). This is deliberately not
// BP-set membership — that is the separate CheckPBFTMessageSigner predicate,
// used for relay-gating (quorum filtering is countInBpSet's), never for
// admission — and
// deliberately not the account package itself, keeping finality decoupled
// from the state-mutation machinery governance owns.
type AccountView interface {
	// Account returns the owner/miner public keys registered for regID, and
	// whether an account exists for it at all.
	Account(regID ids.RegId) (ownerPub, minerPub ids.PubKey, found bool)
}

// AccountKeys is one account's signing keys, as exposed through AccountView.
type AccountKeys struct {
	OwnerPub ids.PubKey
	MinerPub ids.PubKey
}

// StaticAccountView is a minimal in-memory AccountView keyed by RegId, useful
// for nodes that keep their authoritative account snapshot in the same
// process and for tests: it never needs to import the account/cache state
// machinery finality otherwise stays decoupled from.
type StaticAccountView map[ids.RegId]AccountKeys

func (v StaticAccountView) Account(regID ids.RegId) (ids.PubKey, ids.PubKey, bool) {
	k, ok := v[regID]
	if !ok {
		return nil, nil, false
	}
	return k.OwnerPub, k.MinerPub, true
}

// Signer produces the DER-encoded signature a confirm/finality broadcast
// needs, preferring the BP's owner key when the KeyStore holds it and
// falling back to the miner key otherwise (§ Supplemented Features item 4).
type Signer interface {
	// SignAsOwner signs digest with the owner key for ownerPub, returning
	// ok=false if this node does not hold that key.
	SignAsOwner(ownerPub ids.PubKey, digest []byte) (sig []byte, ok bool, err error)
	// SignAsMiner signs digest with the miner key for minerPub, returning
	// ok=false if this node does not hold that key.
	SignAsMiner(minerPub ids.PubKey, digest []byte) (sig []byte, ok bool, err error)
}

// KeyStoreSigner adapts a single in-process keypair into a Signer, for
// nodes running with one local validator identity (the common case driven
// by Config.ValidatorKey).
type KeyStoreSigner struct {
	Owner *crypto.PrivateKey
	Miner *crypto.PrivateKey
}

func (s KeyStoreSigner) SignAsOwner(ownerPub ids.PubKey, digest []byte) ([]byte, bool, error) {
	if s.Owner == nil || !pubKeyMatches(s.Owner, ownerPub) {
		return nil, false, nil
	}
	sig, err := s.Owner.SignDER(digest)
	return sig, err == nil, err
}

func (s KeyStoreSigner) SignAsMiner(minerPub ids.PubKey, digest []byte) ([]byte, bool, error) {
	if s.Miner == nil || !pubKeyMatches(s.Miner, minerPub) {
		return nil, false, nil
	}
	sig, err := s.Miner.SignDER(digest)
	return sig, err == nil, err
}

func pubKeyMatches(priv *crypto.PrivateKey, want ids.PubKey) bool {
	got := priv.PubKey().Bytes()
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// ValidationState is the result of checking an inbound PBFT message,
// mirroring CValidationState: a message is either valid, or invalid with a
// DoS score and a reject reason (§7).
type ValidationState struct {
	valid   bool
	dos     int
	reason  string
	message string
}

func Valid() *ValidationState {
	return &ValidationState{valid: true}
}

// Invalid marks the state invalid with the given DoS score and reason, and
// always returns false so call sites can `return state.Invalid(...)`.
func (v *ValidationState) Invalid(dosScore int, reason, message string) bool {
	v.valid = false
	v.dos = dosScore
	v.reason = reason
	v.message = message
	return false
}

func (v *ValidationState) IsValid() bool { return v.valid }
func (v *ValidationState) DoS() int      { return v.dos }
func (v *ValidationState) Reason() string { return v.reason }
func (v *ValidationState) Error() string {
	if v.valid {
		return ""
	}
	return v.reason + ": " + v.message
}
