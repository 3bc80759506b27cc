// Package account implements the account/asset entity model: the five-pool
// token bucket, the single OperateBalance mutator with its fixed legal
// transition table, and the account permission bitmap.
package account

import (
	"fmt"

	"wakichain/ids"
)

// PermFlag is one bit of the 12-flag account permission bitmap. All flags
// are granted by default (kAccountAllPerms in the original source).
type PermFlag uint64

const (
	PermSendCoin PermFlag = 1 << iota
	PermReceiveCoin
	PermStake
	PermUnstake
	PermVote
	PermUnvote
	PermPledge
	PermUnpledge
	PermCreateProposal
	PermOperateCdp
	PermOperateDex
	PermMinerFee
)

// AllPerms is the default permission mask granted to every new account,
// mirroring kAccountAllPerms (uint64(-1)): all 64 bits are set, covering the
// 12 defined flags and every bit above them.
const AllPerms PermFlag = ^PermFlag(0)

// BalanceOp names a legal balance transition. The numeric values mirror the
// original BalanceOpType enum so wire-compatible tooling can reuse them.
type BalanceOp uint8

const (
	OpNull BalanceOp = iota
	OpAddFree
	OpSubFree
	OpStake
	OpUnstake
	OpFreeze
	OpUnfreeze
	OpVote
	OpUnvote
	OpPledge
	OpUnpledge
)

func (op BalanceOp) String() string {
	switch op {
	case OpAddFree:
		return "ADD_FREE"
	case OpSubFree:
		return "SUB_FREE"
	case OpStake:
		return "STAKE"
	case OpUnstake:
		return "UNSTAKE"
	case OpFreeze:
		return "FREEZE"
	case OpUnfreeze:
		return "UNFREEZE"
	case OpVote:
		return "VOTE"
	case OpUnvote:
		return "UNVOTE"
	case OpPledge:
		return "PLEDGE"
	case OpUnpledge:
		return "UNPLEDGE"
	default:
		return "NULL_OP"
	}
}

// MaxMoney bounds each balance pool on every mutation, mirroring the original
// chain-wide supply cap check. The sum of the pools is not checked against it.
const MaxMoney uint64 = 9_000_000_000_00000000 // 9 billion units at 8 decimals

// TokenBucket holds the five balance pools for a single token symbol.
type TokenBucket struct {
	Free    uint64
	Frozen  uint64
	Staked  uint64
	Voted   uint64
	Pledged uint64
}

// Total sums every pool.
func (b TokenBucket) Total() uint64 {
	return b.Free + b.Frozen + b.Staked + b.Voted + b.Pledged
}

// Account is the entity each balance mutation, vote, and permission check
// operates against.
type Account struct {
	KeyId          ids.KeyId
	RegId          ids.RegId
	NickId         ids.NickId
	OwnerPubKey    ids.PubKey
	MinerPubKey    ids.PubKey
	Tokens         map[ids.TokenSymbol]*TokenBucket
	ReceivedVotes  uint64
	LastVoteHeight uint64
	LastVoteEpoch  uint64
	PermsSum       PermFlag
}

// NewAccount constructs an account with every permission granted and an
// empty token map, mirroring CAccount's zero-value defaults.
func NewAccount(keyID ids.KeyId) *Account {
	return &Account{
		KeyId:    keyID,
		Tokens:   make(map[ids.TokenSymbol]*TokenBucket),
		PermsSum: AllPerms,
	}
}

// CheckPerms reports whether every bit set in required is also set in the
// account's PermsSum, matching CAccount::CheckPerms's
// `permsSum == (perms_sum & permsSum)` test.
func (a *Account) CheckPerms(required PermFlag) bool {
	return required == (a.PermsSum & required)
}

func (a *Account) bucket(symbol ids.TokenSymbol) *TokenBucket {
	b, ok := a.Tokens[symbol]
	if !ok {
		b = &TokenBucket{}
		a.Tokens[symbol] = b
	}
	return b
}

// OperateBalance is the single mutator for every balance transition named in
// §3: it looks up the bucket for symbol, applies op atomically (no partial
// application on error), and enforces the MaxMoney cap on every pool it
// touches.
func (a *Account) OperateBalance(symbol ids.TokenSymbol, op BalanceOp, amount uint64) error {
	if !symbol.Valid() {
		return fmt.Errorf("account: invalid token symbol %q", symbol)
	}
	if amount == 0 {
		return fmt.Errorf("account: %s amount must be positive", op)
	}
	b := a.bucket(symbol)

	switch op {
	case OpAddFree:
		return addChecked(&b.Free, amount)
	case OpSubFree:
		return subChecked(&b.Free, amount, op)
	case OpStake:
		return moveChecked(&b.Free, &b.Staked, amount, op)
	case OpUnstake:
		return moveChecked(&b.Staked, &b.Free, amount, op)
	case OpFreeze:
		return moveChecked(&b.Free, &b.Frozen, amount, op)
	case OpUnfreeze:
		return moveChecked(&b.Frozen, &b.Free, amount, op)
	case OpVote:
		return moveChecked(&b.Free, &b.Voted, amount, op)
	case OpUnvote:
		return moveChecked(&b.Voted, &b.Free, amount, op)
	case OpPledge:
		return moveChecked(&b.Free, &b.Pledged, amount, op)
	case OpUnpledge:
		return moveChecked(&b.Pledged, &b.Free, amount, op)
	default:
		return fmt.Errorf("account: unsupported balance op %d", op)
	}
}

func addChecked(pool *uint64, amount uint64) error {
	sum := *pool + amount
	if sum < *pool || sum > MaxMoney {
		return fmt.Errorf("account: ADD_FREE would exceed MaxMoney")
	}
	*pool = sum
	return nil
}

func subChecked(pool *uint64, amount uint64, op BalanceOp) error {
	if *pool < amount {
		return fmt.Errorf("account: %s insufficient balance (have %d, need %d)", op, *pool, amount)
	}
	*pool -= amount
	return nil
}

// moveChecked debits from and credits to, leaving both untouched on failure.
func moveChecked(from, to *uint64, amount uint64, op BalanceOp) error {
	if *from < amount {
		return fmt.Errorf("account: %s insufficient balance (have %d, need %d)", op, *from, amount)
	}
	sum := *to + amount
	if sum < *to || sum > MaxMoney {
		return fmt.Errorf("account: %s would exceed MaxMoney", op)
	}
	*from -= amount
	*to = sum
	return nil
}

// Operate is the account-operation record a contract VM stages against the
// cache layer (CVmOperate in the original source): it is the only channel
// by which opaque contract execution can request balance mutations.
type Operate struct {
	Account ids.UserId
	Symbol  ids.TokenSymbol
	Op      BalanceOp
	Amount  uint64
}
