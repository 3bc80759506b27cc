package asset

import (
	"testing"

	"github.com/stretchr/testify/require"

	"wakichain/ids"
)

func TestNewAssetRejectsInvalidSymbol(t *testing.T) {
	_, err := NewAsset(ids.TokenSymbol("bad"), ids.UserId{}, KindUIA, 1000)
	require.Error(t, err)
}

func TestMintRejectedForNIA(t *testing.T) {
	a, err := NewAsset(ids.TokenSymbol("GOLD"), ids.UserId{}, KindNIA, 1000)
	require.NoError(t, err)
	require.Error(t, a.Mint(1))
}

func TestMintRespectsTotalSupply(t *testing.T) {
	a, err := NewAsset(ids.TokenSymbol("GOLD"), ids.UserId{}, KindUIA, 1000)
	require.NoError(t, err)
	require.NoError(t, a.Mint(1000))
	require.Error(t, a.Mint(1))
}

func TestCheckPermsRespectsMask(t *testing.T) {
	a, err := NewAsset(ids.TokenSymbol("GOLD"), ids.UserId{}, KindUIA, 1000)
	require.NoError(t, err)
	require.True(t, a.CheckPerms(PermMint|PermBurn))

	a.PermsSum &^= PermMint
	require.False(t, a.CheckPerms(PermMint))
	require.Error(t, a.Mint(1))
}
