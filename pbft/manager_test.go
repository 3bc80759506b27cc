package pbft

import (
	"testing"

	"github.com/stretchr/testify/require"

	"wakichain/ids"
)

func sampleMessage(height uint64, blockByte, minerIdx byte) Message {
	var hash, prev ids.Hash256
	hash[0] = blockByte
	return Message{
		Type:          KindConfirm,
		Height:        height,
		BlockHash:     hash,
		PrevBlockHash: prev,
		Miner:         ids.RegId{Height: 1, Index: uint16(minerIdx)},
		Signature:     []byte{0x30, 0x02, 0x01, 0x01},
	}
}

func TestAddMessageDedupsIdenticalDelivery(t *testing.T) {
	m := NewManager(100)
	msg := sampleMessage(10, 0xAA, 1)

	require.True(t, m.AddMessage(msg))
	require.False(t, m.AddMessage(msg), "redelivery of the identical message must not re-add")
	require.Equal(t, 1, m.CountForBlock(10, msg.BlockHash))
}

func TestAddMessageRejectsSecondVoteFromSameMinerSameBlock(t *testing.T) {
	m := NewManager(100)
	msg1 := sampleMessage(10, 0xAA, 1)
	msg2 := msg1
	msg2.Signature = []byte{0x30, 0x02, 0x01, 0x02} // different signature bytes, same logical vote

	require.True(t, m.AddMessage(msg1))
	require.False(t, m.AddMessage(msg2))
	require.Equal(t, 1, m.CountForBlock(10, msg1.BlockHash))
}

func TestAddMessageAggregatesDistinctMiners(t *testing.T) {
	m := NewManager(100)
	require.True(t, m.AddMessage(sampleMessage(10, 0xAA, 1)))
	require.True(t, m.AddMessage(sampleMessage(10, 0xAA, 2)))
	require.True(t, m.AddMessage(sampleMessage(10, 0xAA, 3)))

	var hash ids.Hash256
	hash[0] = 0xAA
	require.Equal(t, 3, m.CountForBlock(10, hash))
}

func TestKnownSetEvictsOldestBeyondCap(t *testing.T) {
	m := NewManager(2)
	m.AddMessage(sampleMessage(1, 0x01, 1))
	m.AddMessage(sampleMessage(2, 0x02, 1))
	m.AddMessage(sampleMessage(3, 0x03, 1))

	require.False(t, m.Known(sampleMessage(1, 0x01, 1)), "oldest entry should have been evicted")
	require.True(t, m.Known(sampleMessage(3, 0x03, 1)))
}

func TestBroadcastedTracking(t *testing.T) {
	m := NewManager(100)
	var hash ids.Hash256
	hash[0] = 0xBB
	require.False(t, m.WasBroadcasted(5, hash))
	m.MarkBroadcasted(5, hash)
	require.True(t, m.WasBroadcasted(5, hash))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	msg := sampleMessage(42, 0xCC, 9)
	encoded, err := msg.Encode()
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, msg, decoded)
}

func TestEncodeRejectsOversizedSignature(t *testing.T) {
	msg := sampleMessage(1, 0x01, 1)
	msg.Signature = make([]byte, 73)
	_, err := msg.Encode()
	require.Error(t, err)
}

func TestForgetRemovesBucket(t *testing.T) {
	m := NewManager(100)
	msg := sampleMessage(10, 0xAA, 1)
	m.AddMessage(msg)
	m.MarkBroadcasted(10, msg.BlockHash)

	m.Forget(10, msg.BlockHash)
	require.Equal(t, 0, m.CountForBlock(10, msg.BlockHash))
	require.False(t, m.WasBroadcasted(10, msg.BlockHash))
}
