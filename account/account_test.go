package account

import (
	"testing"

	"github.com/stretchr/testify/require"

	"wakichain/ids"
)

const wicc = ids.TokenSymbol("WICC")

func TestOperateBalanceAddAndSubFree(t *testing.T) {
	a := NewAccount(ids.KeyId{0x01})
	require.NoError(t, a.OperateBalance(wicc, OpAddFree, 100))
	require.Equal(t, uint64(100), a.Tokens[wicc].Free)

	require.NoError(t, a.OperateBalance(wicc, OpSubFree, 40))
	require.Equal(t, uint64(60), a.Tokens[wicc].Free)

	err := a.OperateBalance(wicc, OpSubFree, 1000)
	require.Error(t, err)
	require.Equal(t, uint64(60), a.Tokens[wicc].Free, "failed op must not partially apply")
}

func TestOperateBalanceStakeUnstakeRoundTrip(t *testing.T) {
	a := NewAccount(ids.KeyId{0x02})
	require.NoError(t, a.OperateBalance(wicc, OpAddFree, 500))
	require.NoError(t, a.OperateBalance(wicc, OpStake, 200))
	require.Equal(t, uint64(300), a.Tokens[wicc].Free)
	require.Equal(t, uint64(200), a.Tokens[wicc].Staked)

	require.NoError(t, a.OperateBalance(wicc, OpUnstake, 200))
	require.Equal(t, uint64(500), a.Tokens[wicc].Free)
	require.Equal(t, uint64(0), a.Tokens[wicc].Staked)
}

func TestOperateBalanceEveryPoolRejectsInsufficientFunds(t *testing.T) {
	cases := []BalanceOp{OpStake, OpFreeze, OpVote, OpPledge}
	for _, op := range cases {
		a := NewAccount(ids.KeyId{0x03})
		err := a.OperateBalance(wicc, op, 1)
		require.Errorf(t, err, "%s should fail against an empty free pool", op)
	}
}

func TestOperateBalanceRejectsZeroAmount(t *testing.T) {
	a := NewAccount(ids.KeyId{0x04})
	require.Error(t, a.OperateBalance(wicc, OpAddFree, 0))
}

func TestOperateBalanceRejectsInvalidSymbol(t *testing.T) {
	a := NewAccount(ids.KeyId{0x05})
	require.Error(t, a.OperateBalance(ids.TokenSymbol("bad"), OpAddFree, 1))
}

func TestCheckPerms(t *testing.T) {
	a := NewAccount(ids.KeyId{0x06})
	require.True(t, a.CheckPerms(PermSendCoin|PermVote))

	a.PermsSum &^= PermVote
	require.False(t, a.CheckPerms(PermSendCoin|PermVote))
	require.True(t, a.CheckPerms(PermSendCoin))
}

func TestTokenBucketTotal(t *testing.T) {
	b := TokenBucket{Free: 1, Frozen: 2, Staked: 3, Voted: 4, Pledged: 5}
	require.Equal(t, uint64(15), b.Total())
}
