package crypto

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressBech32RoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	addr := key.PubKey().Address()
	decoded, err := DecodeAddress(addr.String())
	require.NoError(t, err)
	require.Equal(t, addr.Bytes(), decoded.Bytes())
	require.Equal(t, AccountPrefix, decoded.Prefix())
}

func TestDERSignatureRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("block-confirm-message"))
	sig, err := key.SignDER(digest[:])
	require.NoError(t, err)
	require.LessOrEqual(t, len(sig), 72)

	ok, err := VerifyDER(key.PubKey().Bytes(), digest[:], sig)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDERSignatureRejectsWrongDigest(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)

	digest := sha256.Sum256([]byte("original"))
	sig, err := key.SignDER(digest[:])
	require.NoError(t, err)

	tampered := sha256.Sum256([]byte("tampered"))
	ok, err := VerifyDER(key.PubKey().Bytes(), tampered[:], sig)
	require.NoError(t, err)
	require.False(t, ok)
}
