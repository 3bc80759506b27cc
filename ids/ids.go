// Package ids defines the identifier primitives shared by every other
// component: registration ids, key ids, nick ids, public keys, block hashes,
// and token symbols, plus the varint codec they're serialized with on the
// wire.
package ids

import (
	"encoding/hex"
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// RegId identifies an on-chain registered account by the height and
// in-block index at which its registration transaction was confirmed. A
// zero RegId (height 0, index 0) is reserved and never assigned.
type RegId struct {
	Height uint64
	Index  uint16
}

func (r RegId) IsZero() bool { return r.Height == 0 && r.Index == 0 }

func (r RegId) String() string {
	return fmt.Sprintf("%d-%d", r.Height, r.Index)
}

// MarshalText renders the RegId in its "height-index" string form, letting
// it serve as a JSON object key (e.g. governance.Proposal.Approvals).
func (r RegId) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText parses the "height-index" form written by MarshalText.
func (r *RegId) UnmarshalText(text []byte) error {
	var height uint64
	var index uint16
	if _, err := fmt.Sscanf(string(text), "%d-%d", &height, &index); err != nil {
		return fmt.Errorf("ids: malformed regid %q: %w", text, err)
	}
	r.Height = height
	r.Index = index
	return nil
}

// AppendVarint encodes the RegId as height-varint followed by a 2-byte
// little-endian index, matching the miner RegId layout in §6.
func (r RegId) AppendVarint(buf []byte) []byte {
	buf = protowire.AppendVarint(buf, r.Height)
	return append(buf, byte(r.Index), byte(r.Index>>8))
}

// ConsumeRegId decodes a RegId written by AppendVarint, returning the
// remaining buffer.
func ConsumeRegId(buf []byte) (RegId, []byte, error) {
	height, n := protowire.ConsumeVarint(buf)
	if n < 0 {
		return RegId{}, nil, fmt.Errorf("ids: malformed regid height varint")
	}
	buf = buf[n:]
	if len(buf) < 2 {
		return RegId{}, nil, fmt.Errorf("ids: truncated regid index")
	}
	index := uint16(buf[0]) | uint16(buf[1])<<8
	return RegId{Height: height, Index: index}, buf[2:], nil
}

// KeyId is the 20-byte hash identifying an account's owner key, the
// fallback identifier for accounts that have not yet registered a RegId.
type KeyId [20]byte

func (k KeyId) String() string { return hex.EncodeToString(k[:]) }

func (k KeyId) IsZero() bool { return k == KeyId{} }

// NickId is a human-chosen, unique account alias.
type NickId string

func (n NickId) Valid() bool {
	trimmed := strings.TrimSpace(string(n))
	return trimmed != "" && len(trimmed) <= 32
}

// PubKey is a compressed secp256k1 public key (33 bytes).
type PubKey []byte

func (p PubKey) Valid() bool { return len(p) == 33 }

func (p PubKey) String() string { return hex.EncodeToString(p) }

// Hash256 is a 32-byte block or message digest.
type Hash256 [32]byte

func (h Hash256) String() string { return hex.EncodeToString(h[:]) }

func (h Hash256) IsZero() bool { return h == Hash256{} }

// TokenSymbol is an asset ticker of 1-8 uppercase ASCII letters and digits.
type TokenSymbol string

func (s TokenSymbol) Valid() bool {
	if len(s) == 0 || len(s) > 8 {
		return false
	}
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// UserIdKind discriminates the two ways an account can be addressed.
type UserIdKind uint8

const (
	UserIdKindRegId UserIdKind = iota
	UserIdKindKeyId
)

// UserId is the tagged union used wherever the spec refers to "an account
// identifier" without committing to whether the account has registered a
// RegId yet.
type UserId struct {
	Kind UserIdKind
	Reg  RegId
	Key  KeyId
}

func FromRegId(r RegId) UserId { return UserId{Kind: UserIdKindRegId, Reg: r} }
func FromKeyId(k KeyId) UserId { return UserId{Kind: UserIdKindKeyId, Key: k} }

func (u UserId) String() string {
	switch u.Kind {
	case UserIdKindRegId:
		return u.Reg.String()
	case UserIdKindKeyId:
		return u.Key.String()
	default:
		return "invalid-userid"
	}
}

func (u UserId) IsZero() bool {
	switch u.Kind {
	case UserIdKindRegId:
		return u.Reg.IsZero()
	case UserIdKindKeyId:
		return u.Key.IsZero()
	default:
		return true
	}
}
