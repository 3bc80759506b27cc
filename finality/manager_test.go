package finality

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wakichain/cache"
	"wakichain/crypto"
	"wakichain/delegate"
	"wakichain/ids"
	"wakichain/pbft"
	"wakichain/storage"
)

// fakeChain is a linear, reorg-free chain held entirely in memory, enough to
// exercise the window-bounded rescans and canonical-hash checks.
type fakeChain struct {
	blocks []BlockIndex
}

func newFakeChain(n int) *fakeChain {
	c := &fakeChain{}
	var prev ids.Hash256
	for i := 0; i < n; i++ {
		var hash ids.Hash256
		hash[0] = byte(i + 1)
		c.blocks = append(c.blocks, BlockIndex{
			Height:   uint64(i),
			Hash:     hash,
			PrevHash: prev,
			Time:     time.Now(),
		})
		prev = hash
	}
	return c
}

func (c *fakeChain) Tip() BlockIndex    { return c.blocks[len(c.blocks)-1] }
func (c *fakeChain) Genesis() BlockIndex { return c.blocks[0] }

func (c *fakeChain) BlockAtHeight(height uint64) (BlockIndex, bool) {
	if height >= uint64(len(c.blocks)) {
		return BlockIndex{}, false
	}
	return c.blocks[height], true
}

func (c *fakeChain) IsCanonical(height uint64, hash ids.Hash256) bool {
	b, ok := c.BlockAtHeight(height)
	return ok && b.Hash == hash
}

// recordingPeerBus captures every pushed/relayed message for assertions.
type recordingPeerBus struct {
	confirms  []pbft.Message
	finalities []pbft.Message
	relayed   []pbft.Message
}

func (p *recordingPeerBus) PushConfirm(msg pbft.Message) error {
	p.confirms = append(p.confirms, msg)
	return nil
}

func (p *recordingPeerBus) PushFinality(msg pbft.Message) error {
	p.finalities = append(p.finalities, msg)
	return nil
}

func (p *recordingPeerBus) Relay(msg pbft.Message) error {
	p.relayed = append(p.relayed, msg)
	return nil
}

type testFixture struct {
	chain    *fakeChain
	registry *delegate.Registry
	accounts StaticAccountView
	peers    *recordingPeerBus
	mgr      *Manager
	keys     []*crypto.PrivateKey
	set      delegate.Set
}

func newFixture(t *testing.T, blocks, delegates int) *testFixture {
	t.Helper()
	chain := newFakeChain(blocks)
	db := storage.NewMemDB()
	registry := delegate.NewRegistry(cache.NewLayer(cache.NewBaseStore(db)))

	var entries []delegate.Entry
	var keys []*crypto.PrivateKey
	accounts := StaticAccountView{}
	for i := 0; i < delegates; i++ {
		key, err := crypto.GeneratePrivateKey()
		require.NoError(t, err)
		keys = append(keys, key)
		regID := ids.RegId{Height: 1, Index: uint16(i)}
		entries = append(entries, delegate.Entry{
			RegId:       regID,
			OwnerPubKey: key.PubKey().Bytes(),
			MinerPubKey: key.PubKey().Bytes(),
		})
		accounts[regID] = AccountKeys{OwnerPub: key.PubKey().Bytes(), MinerPub: key.PubKey().Bytes()}
	}
	set := delegate.Set{Entries: entries, UpdateHeight: 0}
	require.NoError(t, registry.SetActive(set))
	for _, b := range chain.blocks {
		require.NoError(t, registry.SetSnapshotForHash(b.Hash, set))
	}

	peers := &recordingPeerBus{}
	signer := KeyStoreSigner{Owner: keys[0], Miner: keys[0]}
	cfg := Config{GenBlock: true, PBFTWindowLocal: 10, PBFTWindowGlobal: 50, PBFTLatestBlockCount: 200}
	self := SelfIdentity{RegId: ids.RegId{Height: 1, Index: 0}, OwnerPub: keys[0].PubKey().Bytes(), MinerPub: keys[0].PubKey().Bytes()}
	mgr := NewManager(chain, registry, accounts, peers, signer, cfg, WithSelf(self))

	return &testFixture{chain: chain, registry: registry, accounts: accounts, peers: peers, mgr: mgr, keys: keys, set: set}
}

func signedMessage(t *testing.T, key *crypto.PrivateKey, kind pbft.Kind, b BlockIndex, miner ids.RegId) pbft.Message {
	t.Helper()
	msg := pbft.Message{Type: kind, Height: b.Height, BlockHash: b.Hash, PrevBlockHash: b.PrevHash, Miner: miner}
	digest := msg.SigningDigest()
	sig, err := key.SignDER(digest[:])
	require.NoError(t, err)
	msg.Signature = sig
	return msg
}

func TestInitFinIndexStartsAtGenesis(t *testing.T) {
	f := newFixture(t, 5, 4)
	require.Equal(t, f.chain.Genesis(), f.mgr.LocalFinal())
	require.Equal(t, f.chain.Genesis(), f.mgr.GlobalFinal())
}

func TestSaveLocalFinBlockRejectsNonAdvancingHeight(t *testing.T) {
	f := newFixture(t, 5, 4)
	b1, _ := f.chain.BlockAtHeight(1)
	require.NoError(t, f.mgr.SaveLocalFinBlock(b1))
	require.ErrorIs(t, f.mgr.SaveLocalFinBlock(b1), ErrLocalPointerNotAdvancing)
}

func TestAddBlockConfirmMessageReachesQuorumAndBroadcastsFinality(t *testing.T) {
	f := newFixture(t, 5, 4) // quorum = 4 - 4/3 = 3
	target, _ := f.chain.BlockAtHeight(3)

	for i := 0; i < 3; i++ {
		miner := ids.RegId{Height: 1, Index: uint16(i)}
		msg := signedMessage(t, f.keys[i], pbft.KindConfirm, target, miner)
		require.NoError(t, f.mgr.AddBlockConfirmMessage("peer", msg))
	}

	require.Equal(t, target.Height, f.mgr.LocalFinal().Height)
	require.Len(t, f.peers.finalities, 1)
	require.Equal(t, target.Height, f.peers.finalities[0].Height)
}

func TestAddBlockConfirmMessageBelowQuorumDoesNotAdvance(t *testing.T) {
	f := newFixture(t, 5, 4)
	target, _ := f.chain.BlockAtHeight(3)

	miner := ids.RegId{Height: 1, Index: 0}
	msg := signedMessage(t, f.keys[0], pbft.KindConfirm, target, miner)
	require.NoError(t, f.mgr.AddBlockConfirmMessage("peer", msg))

	require.Equal(t, f.chain.Genesis().Height, f.mgr.LocalFinal().Height)
	require.Empty(t, f.peers.finalities)
}

func TestAddBlockFinalityMessageAdvancesGlobalAfterLocal(t *testing.T) {
	f := newFixture(t, 5, 4)
	target, _ := f.chain.BlockAtHeight(3)

	for i := 0; i < 3; i++ {
		miner := ids.RegId{Height: 1, Index: uint16(i)}
		require.NoError(t, f.mgr.AddBlockConfirmMessage("peer", signedMessage(t, f.keys[i], pbft.KindConfirm, target, miner)))
	}
	require.Equal(t, target.Height, f.mgr.LocalFinal().Height)

	for i := 0; i < 3; i++ {
		miner := ids.RegId{Height: 1, Index: uint16(i)}
		require.NoError(t, f.mgr.AddBlockFinalityMessage("peer", signedMessage(t, f.keys[i], pbft.KindFinality, target, miner)))
	}
	require.Equal(t, target.Height, f.mgr.GlobalFinal().Height)
}

func TestCheckPBFTMessageRejectsUnknownAccount(t *testing.T) {
	f := newFixture(t, 5, 4)
	target, _ := f.chain.BlockAtHeight(2)
	unknownMiner := ids.RegId{Height: 99, Index: 0}
	msg := signedMessage(t, f.keys[0], pbft.KindConfirm, target, unknownMiner)

	state := f.mgr.CheckPBFTMessage(msg, pbft.KindConfirm)
	require.False(t, state.IsValid())
	require.Equal(t, "unknown-account", state.Reason())
}

// TestCheckPBFTMessageAdmitsNonBpAccount demonstrates that admission only
// requires a registered account, not current BP standing: a message from an
// account outside the active delegate set must still validate.
func TestCheckPBFTMessageAdmitsNonBpAccount(t *testing.T) {
	f := newFixture(t, 5, 4)
	target, _ := f.chain.BlockAtHeight(2)

	nonBPKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	nonBP := ids.RegId{Height: 1, Index: 50}
	f.accounts[nonBP] = AccountKeys{OwnerPub: nonBPKey.PubKey().Bytes(), MinerPub: nonBPKey.PubKey().Bytes()}

	msg := signedMessage(t, nonBPKey, pbft.KindConfirm, target, nonBP)
	state := f.mgr.CheckPBFTMessage(msg, pbft.KindConfirm)
	require.True(t, state.IsValid())

	signer, err := f.mgr.CheckPBFTMessageSigner(msg)
	require.NoError(t, err)
	require.False(t, signer, "a registered non-BP account must not pass the signer check used for relay/quorum")
}

func TestCheckPBFTMessageRejectsBadSignature(t *testing.T) {
	f := newFixture(t, 5, 4)
	target, _ := f.chain.BlockAtHeight(2)
	miner := ids.RegId{Height: 1, Index: 0}
	msg := signedMessage(t, f.keys[1], pbft.KindConfirm, target, miner) // signed by the wrong key

	state := f.mgr.CheckPBFTMessage(msg, pbft.KindConfirm)
	require.False(t, state.IsValid())
	require.Equal(t, "bad-signature", state.Reason())
}

func TestCheckPBFTMessageRejectsNonCanonicalHash(t *testing.T) {
	f := newFixture(t, 5, 4)
	target, _ := f.chain.BlockAtHeight(2)
	target.Hash[0] = 0xFF // no longer matches the canonical hash at height 2
	miner := ids.RegId{Height: 1, Index: 0}
	msg := signedMessage(t, f.keys[0], pbft.KindConfirm, target, miner)

	state := f.mgr.CheckPBFTMessage(msg, pbft.KindConfirm)
	require.False(t, state.IsValid())
	require.Equal(t, "non-canonical-block", state.Reason())
}

func TestUpdateGlobalFinBlockRejectsPastLocalPointer(t *testing.T) {
	f := newFixture(t, 5, 4)
	err := f.mgr.UpdateGlobalFinBlock(3)
	require.ErrorIs(t, err, ErrGlobalExceedsLocal)
}

func TestSetLocalFinTimeoutResetsToGenesis(t *testing.T) {
	f := newFixture(t, 5, 4)
	b1, _ := f.chain.BlockAtHeight(1)
	require.NoError(t, f.mgr.SaveLocalFinBlock(b1))
	require.Equal(t, b1.Height, f.mgr.LocalFinal().Height)

	f.mgr.SetLocalFinTimeout()
	require.Equal(t, f.chain.Genesis(), f.mgr.LocalFinal())
}

func TestBroadcastBlockConfirmSkipsWhenGenBlockDisabled(t *testing.T) {
	f := newFixture(t, 2, 1)
	f.mgr.cfg.GenBlock = false
	tip := f.chain.Tip()
	err := f.mgr.BroadcastBlockConfirm(tip)
	require.NoError(t, err)
	require.Empty(t, f.peers.confirms)
}

func TestBroadcastBlockConfirmSkipsStaleBlock(t *testing.T) {
	f := newFixture(t, 2, 1)
	tip := f.chain.Tip()
	tip.Time = time.Now().Add(-2 * time.Minute)
	err := f.mgr.BroadcastBlockConfirm(tip)
	require.NoError(t, err)
	require.Empty(t, f.peers.confirms)
}

func TestBroadcastBlockConfirmSignsAndPushes(t *testing.T) {
	f := newFixture(t, 2, 1)
	tip := f.chain.Tip()
	err := f.mgr.BroadcastBlockConfirm(tip)
	require.NoError(t, err)
	require.Len(t, f.peers.confirms, 1)

	// a second call for the same block must not re-broadcast
	err = f.mgr.BroadcastBlockConfirm(tip)
	require.NoError(t, err)
	require.Len(t, f.peers.confirms, 1)
}

// TestAddBlockConfirmMessageAdmitsNonBpAccountButExcludesFromQuorum covers a
// committee of 4 (quorum 3) where one of three delivered confirm messages
// comes from a registered-but-non-BP account: it must be admitted (no
// validation error, no relay) yet must not count toward quorum, so the
// pointer only advances once a third BP signature arrives.
func TestAddBlockConfirmMessageAdmitsNonBpAccountButExcludesFromQuorum(t *testing.T) {
	f := newFixture(t, 5, 4)
	target, _ := f.chain.BlockAtHeight(3)

	extraKey, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	nonBP := ids.RegId{Height: 1, Index: 50}
	f.accounts[nonBP] = AccountKeys{OwnerPub: extraKey.PubKey().Bytes(), MinerPub: extraKey.PubKey().Bytes()}

	for i := 0; i < 2; i++ {
		miner := ids.RegId{Height: 1, Index: uint16(i)}
		require.NoError(t, f.mgr.AddBlockConfirmMessage("peer", signedMessage(t, f.keys[i], pbft.KindConfirm, target, miner)))
	}
	require.Len(t, f.peers.relayed, 2)

	require.NoError(t, f.mgr.AddBlockConfirmMessage("peer", signedMessage(t, extraKey, pbft.KindConfirm, target, nonBP)))
	require.Equal(t, f.chain.Genesis().Height, f.mgr.LocalFinal().Height, "non-BP account's message must not contribute to quorum")
	require.Empty(t, f.peers.finalities)
	require.Len(t, f.peers.relayed, 2, "a non-BP account's message must not be relayed")

	miner := ids.RegId{Height: 1, Index: 2}
	require.NoError(t, f.mgr.AddBlockConfirmMessage("peer", signedMessage(t, f.keys[2], pbft.KindConfirm, target, miner)))
	require.Equal(t, target.Height, f.mgr.LocalFinal().Height, "the non-BP message was recorded, and the third BP signature now reaches quorum")
}

// TestAddBlockConfirmMessageRedeliveryIsIdempotent covers re-delivering an
// already-quorate message: it must not cause any further mutation or
// broadcast.
func TestAddBlockConfirmMessageRedeliveryIsIdempotent(t *testing.T) {
	f := newFixture(t, 5, 4)
	target, _ := f.chain.BlockAtHeight(3)

	var last pbft.Message
	for i := 0; i < 3; i++ {
		miner := ids.RegId{Height: 1, Index: uint16(i)}
		last = signedMessage(t, f.keys[i], pbft.KindConfirm, target, miner)
		require.NoError(t, f.mgr.AddBlockConfirmMessage("peer", last))
	}
	require.Equal(t, target.Height, f.mgr.LocalFinal().Height)
	require.Len(t, f.peers.finalities, 1)

	require.NoError(t, f.mgr.AddBlockConfirmMessage("peer", last))
	require.Equal(t, target.Height, f.mgr.LocalFinal().Height)
	require.Len(t, f.peers.finalities, 1)
}

// TestUpdateGlobalFinBlockRefusesReorgOfCurrentPointer covers the fatal
// invariant violation: the block the global pointer already names has
// stopped being canonical (a reorg at or behind it), and UpdateGlobalFinBlock
// must refuse to move rather than silently rolling back.
func TestUpdateGlobalFinBlockRefusesReorgOfCurrentPointer(t *testing.T) {
	f := newFixture(t, 5, 4)
	b3, _ := f.chain.BlockAtHeight(3)
	require.NoError(t, f.mgr.SaveLocalFinBlock(b3))

	b2, _ := f.chain.BlockAtHeight(2)
	stale := b2
	stale.Hash[0] = 0xAA // no longer the canonical block at height 2
	f.mgr.globalFinal = stale

	err := f.mgr.UpdateGlobalFinBlock(2)
	require.ErrorIs(t, err, ErrGlobalFinalityBlockChanged)
}

// TestUpdateFromTipWindowBoundStallsPointer covers the bounded backward scan:
// a quorum exists well behind the window cut, so the pointer must not
// advance even though a qualifying block exists further back in history.
func TestUpdateFromTipWindowBoundStallsPointer(t *testing.T) {
	f := newFixture(t, 201, 4) // tip height 200, quorum 3, PBFTWindowLocal 10
	tip := f.chain.Tip()
	require.Equal(t, uint64(200), tip.Height)

	quorumBlock, ok := f.chain.BlockAtHeight(150)
	require.True(t, ok)
	for i := 0; i < 3; i++ {
		miner := ids.RegId{Height: 1, Index: uint16(i)}
		msg := signedMessage(t, f.keys[i], pbft.KindConfirm, quorumBlock, miner)
		require.True(t, f.mgr.confirm.AddMessage(msg))
	}

	require.NoError(t, f.mgr.UpdateLocalFinBlockFromTip(tip))
	require.Equal(t, f.chain.Genesis().Height, f.mgr.LocalFinal().Height, "quorum at height 150 is outside the 10-block window from tip 200")
}

func TestQuorumArithmeticMatchesDelegatePackage(t *testing.T) {
	for n := 1; n < 20; n++ {
		require.Equal(t, delegate.MinConfirmBpCount(n), delegate.Set{Entries: make([]delegate.Entry, n)}.Quorum(), fmt.Sprintf("n=%d", n))
	}
}
