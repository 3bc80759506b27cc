// Package crypto wraps secp256k1 key material for delegate identities and the
// PBFT message signatures they produce.
package crypto

import (
	stdecdsa "crypto/ecdsa"
	"crypto/rand"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	decred "github.com/decred/dcrd/dcrec/secp256k1/v4"
	decredecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix defines the different types of human-readable address prefixes.
type AddressPrefix string

const (
	DelegatePrefix AddressPrefix = "wkcd"
	AccountPrefix  AddressPrefix = "wkc"
)

// Address represents a 20-byte identity with a specific bech32 prefix.
type Address struct {
	prefix AddressPrefix
	bytes  []byte
}

func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if len(b) != 20 {
		return Address{}, fmt.Errorf("address must be 20 bytes long, got %d", len(b))
	}
	cloned := append([]byte(nil), b...)
	return Address{prefix: prefix, bytes: cloned}, nil
}

// MustNewAddress constructs an address and panics if the input is invalid.
func MustNewAddress(prefix AddressPrefix, b []byte) Address {
	addr, err := NewAddress(prefix, b)
	if err != nil {
		panic(err)
	}
	return addr
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() []byte {
	return append([]byte(nil), a.bytes...)
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	addr, err := NewAddress(AddressPrefix(prefix), conv)
	if err != nil {
		return Address{}, err
	}
	return addr, nil
}

// --- Key management ---

// PrivateKey wraps a secp256k1 key. It produces DER-encoded signatures (used
// on the PBFT message wire, §6); it has no recoverable-signature method.
type PrivateKey struct {
	*stdecdsa.PrivateKey
}

type PublicKey struct {
	*stdecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := stdecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the byte representation of the private key.
func (k *PrivateKey) Bytes() []byte {
	return crypto.FromECDSA(k.PrivateKey)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

func (k *PublicKey) Address() Address {
	addrBytes := crypto.PubkeyToAddress(*k.PublicKey).Bytes()
	return MustNewAddress(AccountPrefix, addrBytes)
}

// Bytes returns the 33-byte compressed public key encoding carried in PubKey
// identifiers on the wire.
func (k *PublicKey) Bytes() []byte {
	return crypto.CompressPubkey(k.PublicKey)
}

func PublicKeyFromBytes(b []byte) (*PublicKey, error) {
	pub, err := crypto.DecompressPubkey(b)
	if err != nil {
		return nil, err
	}
	return &PublicKey{pub}, nil
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// SignDER signs digest (a 32-byte SHA-256 hash) and returns a DER-encoded
// ECDSA signature, which the PBFT message wire format caps at 72 bytes.
func (k *PrivateKey) SignDER(digest []byte) ([]byte, error) {
	priv := decred.PrivKeyFromBytes(k.Bytes())
	sig := decredecdsa.Sign(priv, digest)
	der := sig.Serialize()
	if len(der) > 72 {
		return nil, fmt.Errorf("crypto: DER signature exceeds 72 bytes (%d)", len(der))
	}
	return der, nil
}

// VerifyDER checks a DER-encoded ECDSA signature against digest using the
// compressed public key bytes carried on the wire.
func VerifyDER(pubKeyBytes, digest, sig []byte) (bool, error) {
	pub, err := decred.ParsePubKey(pubKeyBytes)
	if err != nil {
		return false, fmt.Errorf("crypto: parse pubkey: %w", err)
	}
	parsed, err := decredecdsa.ParseDERSignature(sig)
	if err != nil {
		return false, fmt.Errorf("crypto: parse signature: %w", err)
	}
	return parsed.Verify(digest, pub), nil
}
