package governance

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"wakichain/ids"
)

func TestReceiptStoreProjectsAndQueries(t *testing.T) {
	dir := t.TempDir()
	rs, err := OpenReceiptStore(filepath.Join(dir, "receipts.sqlite"))
	require.NoError(t, err)

	from := ids.FromKeyId(ids.KeyId{1})
	to := ids.FromKeyId(ids.KeyId{2})
	proposalID := ids.Hash256{9}

	receipts := []Receipt{{From: from, To: to, Token: "WKC", Amount: 500, Code: ReceiptCodeTransferProposal}}
	require.NoError(t, rs.Project(proposalID, receipts))

	rows, err := rs.ForProposal(proposalID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, uint64(500), rows[0].Amount)

	fromRows, err := rs.ForAccount(from, 10)
	require.NoError(t, err)
	require.Len(t, fromRows, 1)

	toRows, err := rs.ForAccount(to, 10)
	require.NoError(t, err)
	require.Len(t, toRows, 1)
}

func TestReceiptStoreProjectIgnoresEmptyBatch(t *testing.T) {
	dir := t.TempDir()
	rs, err := OpenReceiptStore(filepath.Join(dir, "receipts.sqlite"))
	require.NoError(t, err)
	require.NoError(t, rs.Project(ids.Hash256{1}, nil))
}
