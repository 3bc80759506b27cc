// Package asset implements the asset registry entity: the symbol, issuer,
// supply, and permission bitmap governing a token beyond the chain's native
// coin.
package asset

import (
	"fmt"

	"wakichain/ids"
)

// Kind classifies how an asset's supply is governed.
type Kind uint8

const (
	// KindNIA is a natively issued asset (fixed supply, set at genesis).
	KindNIA Kind = iota
	// KindDIA is a delegate-issued asset (supply changes require a
	// governance proposal).
	KindDIA
	// KindUIA is a user-issued asset (the owner account may mint/burn
	// within its own permission bounds).
	KindUIA
	// KindMPA is a market-pegged asset (supply tracks an external peg via
	// the swap/oracle subsystem, out of this module's scope).
	KindMPA
)

func (k Kind) String() string {
	switch k {
	case KindNIA:
		return "NIA"
	case KindDIA:
		return "DIA"
	case KindUIA:
		return "UIA"
	case KindMPA:
		return "MPA"
	default:
		return "UNKNOWN"
	}
}

// AssetPermFlag bitmap controls which operations an asset permits, the
// asset-scoped analogue of account.PermFlag. A zero mask is invalid (the
// original source requires `!= 0`).
type AssetPermFlag uint64

const (
	PermTransfer AssetPermFlag = 1 << iota
	PermMint
	PermBurn
	PermCdpCollateral
	PermDexQuote
	// PermPriceFeed gates whether an asset may be used as the feed_symbol
	// side of a governance FeedCoinPair (AssetPermType::PERM_PRICE_FEED).
	PermPriceFeed
)

// Asset is a registered token beyond the chain's native coin.
type Asset struct {
	Symbol      ids.TokenSymbol
	Owner       ids.UserId
	Kind        Kind
	TotalSupply uint64
	MintedSoFar uint64
	Description string
	PermsSum    AssetPermFlag
}

// NewAsset constructs an asset registry entry with every permission
// granted, mirroring the all-ones default used for accounts.
func NewAsset(symbol ids.TokenSymbol, owner ids.UserId, kind Kind, totalSupply uint64) (*Asset, error) {
	if !symbol.Valid() {
		return nil, fmt.Errorf("asset: invalid symbol %q", symbol)
	}
	return &Asset{
		Symbol:      symbol,
		Owner:       owner,
		Kind:        kind,
		TotalSupply: totalSupply,
		PermsSum:    PermTransfer | PermMint | PermBurn | PermCdpCollateral | PermDexQuote | PermPriceFeed,
	}, nil
}

// CheckPerms mirrors account.Account.CheckPerms's semantics for the asset
// permission bitmap.
func (a *Asset) CheckPerms(required AssetPermFlag) bool {
	return required == (a.PermsSum & required)
}

// Mint increases MintedSoFar. A natively issued (NIA) asset cannot be minted
// at all; any other asset needs PermMint, and the new total may not exceed
// TotalSupply.
func (a *Asset) Mint(amount uint64) error {
	if a.Kind == KindNIA {
		return fmt.Errorf("asset: %s is natively issued with fixed supply, cannot mint", a.Symbol)
	}
	if !a.CheckPerms(PermMint) {
		return fmt.Errorf("asset: %s does not permit minting", a.Symbol)
	}
	sum := a.MintedSoFar + amount
	if sum < a.MintedSoFar || sum > a.TotalSupply {
		return fmt.Errorf("asset: %s mint would exceed total supply", a.Symbol)
	}
	a.MintedSoFar = sum
	return nil
}
