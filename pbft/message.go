// Package pbft implements the PBFT message manager (component E, §4.E): the
// per-kind message type, its wire encoding, and the generic manager that
// deduplicates incoming messages, aggregates them per block, and tracks
// which blocks this node has already broadcast a message for.
package pbft

import (
	"crypto/sha256"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
	"lukechampine.com/blake3"

	"wakichain/ids"
)

// Kind discriminates the two PBFT rounds.
type Kind uint8

const (
	KindConfirm Kind = iota + 1
	KindFinality
)

func (k Kind) String() string {
	switch k {
	case KindConfirm:
		return "confirm"
	case KindFinality:
		return "finality"
	default:
		return "unknown"
	}
}

// Message is a single signed confirm or finality vote, per the wire layout
// in §6: msg_type (1 byte), height (varint), block_hash and
// prev_block_hash (32 bytes each), the signing miner's RegId, and a
// DER-encoded ECDSA signature (<=72 bytes).
type Message struct {
	Type          Kind
	Height        uint64
	BlockHash     ids.Hash256
	PrevBlockHash ids.Hash256
	Miner         ids.RegId
	Signature     []byte
}

// signingPayload is every field covered by the signature, i.e. everything
// except Signature itself.
func (m Message) signingPayload() []byte {
	buf := make([]byte, 0, 1+10+32+32+10)
	buf = append(buf, byte(m.Type))
	buf = protowire.AppendVarint(buf, m.Height)
	buf = append(buf, m.BlockHash[:]...)
	buf = append(buf, m.PrevBlockHash[:]...)
	buf = m.Miner.AppendVarint(buf)
	return buf
}

// SigningDigest is the SHA-256 digest signed and verified with DER-encoded
// ECDSA, matching the signature scheme crypto.SignDER/VerifyDER implement.
func (m Message) SigningDigest() [32]byte {
	return sha256.Sum256(m.signingPayload())
}

// Encode serializes the full wire message, signature included.
func (m Message) Encode() ([]byte, error) {
	if len(m.Signature) == 0 || len(m.Signature) > 72 {
		return nil, fmt.Errorf("pbft: signature must be 1-72 bytes, got %d", len(m.Signature))
	}
	buf := m.signingPayload()
	buf = append(buf, byte(len(m.Signature)))
	buf = append(buf, m.Signature...)
	return buf, nil
}

// Decode parses a wire message previously produced by Encode.
func Decode(buf []byte) (Message, error) {
	if len(buf) < 1 {
		return Message{}, fmt.Errorf("pbft: empty message buffer")
	}
	kind := Kind(buf[0])
	buf = buf[1:]

	height, n := protowire.ConsumeVarint(buf)
	if n < 0 {
		return Message{}, fmt.Errorf("pbft: malformed height varint")
	}
	buf = buf[n:]

	if len(buf) < 64 {
		return Message{}, fmt.Errorf("pbft: truncated block hashes")
	}
	var blockHash, prevBlockHash ids.Hash256
	copy(blockHash[:], buf[:32])
	copy(prevBlockHash[:], buf[32:64])
	buf = buf[64:]

	miner, buf, err := ids.ConsumeRegId(buf)
	if err != nil {
		return Message{}, err
	}

	if len(buf) < 1 {
		return Message{}, fmt.Errorf("pbft: truncated signature length")
	}
	sigLen := int(buf[0])
	buf = buf[1:]
	if sigLen == 0 || sigLen > 72 || len(buf) < sigLen {
		return Message{}, fmt.Errorf("pbft: invalid signature length %d", sigLen)
	}
	sig := append([]byte(nil), buf[:sigLen]...)

	return Message{
		Type:          kind,
		Height:        height,
		BlockHash:     blockHash,
		PrevBlockHash: prevBlockHash,
		Miner:         miner,
		Signature:     sig,
	}, nil
}

// dedupKey is the content-addressed key used by the manager's known-message
// set: a fast keyed hash of every field but the signature, so re-delivery of
// the identical vote (even over a different transport hop) collapses to one
// entry. A signature is deliberately excluded — two deliveries of the same
// logical vote can carry different signature encodings of the same DER
// value and must still dedup together.
type dedupKey [32]byte

func (m Message) dedupKey() dedupKey {
	return blake3.Sum256(m.signingPayload())
}

// blockKey groups messages by the block they vote on.
type blockKey struct {
	Height    uint64
	BlockHash ids.Hash256
}

func (m Message) blockKey() blockKey {
	return blockKey{Height: m.Height, BlockHash: m.BlockHash}
}
