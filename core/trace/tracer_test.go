package trace

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"mirrorevm/core/evm"
	"mirrorevm/core/ledgertest"
	"mirrorevm/core/types"
	"mirrorevm/storage"
)

const (
	txTimestamp  = 250
	txValidStart = 1_700_000_000_000_000_123
)

var txHash = common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")

func seedCall(t *testing.T, output byte) *ledgertest.Ledger {
	t.Helper()
	l := ledgertest.New(t)
	l.Mem.PutTransaction(storage.Transaction{ConsensusTimestamp: txTimestamp, PayerAccountID: ledgertest.OwnerNum, ValidStartNs: txValidStart, EntityID: ledgertest.SlotReadNum, Result: 22})
	l.Mem.PutContractResult(storage.ContractResult{
		ConsensusTimestamp: txTimestamp,
		ContractID:         ledgertest.SlotReadNum,
		PayerAccountID:     ledgertest.OwnerNum,
		SenderID:           ledgertest.OwnerNum,
		GasLimit:           100_000,
		CallResult:         common.LeftPadBytes([]byte{output}, 32),
		TransactionHash:    txHash.Bytes(),
		TransactionResult:  22,
	})
	l.Mem.PutContractTransactionHash(storage.ContractTransactionHash{Hash: txHash.Bytes(), ConsensusTimestamp: txTimestamp, PayerAccountID: ledgertest.OwnerNum, EntityID: ledgertest.SlotReadNum, TransactionResult: 22})
	return l
}

func newTracer(l *ledgertest.Ledger) *Tracer {
	return New(l.Mem, ledgertest.Config, evm.New(evm.Config{}, nil), nil)
}

func collect(tr *Trace) []types.TraceEntry {
	var out []types.TraceEntry
	for e := range tr.Entries() {
		out = append(out, e)
	}
	return out
}

func TestTraceByHashCapturesRequestedFields(t *testing.T) {
	l := seedCall(t, 42)
	tr, err := newTracer(l).Trace(context.Background(), txHash.Hex(), types.TracerOptions{Stack: true, Storage: true})
	require.NoError(t, err)
	require.True(t, tr.Result.Success)
	require.Equal(t, uint64(1), tr.Result.Block.Number)
	require.Equal(t, l.SlotRead, *tr.Request.Receiver)

	entries := collect(tr)
	require.NotEmpty(t, entries)
	require.Equal(t, "PUSH1", entries[0].Op)
	require.Equal(t, uint64(0), entries[0].PC)
	require.Equal(t, "RETURN", entries[len(entries)-1].Op)

	var sawLoad bool
	for _, e := range entries {
		require.Nil(t, e.Memory, "memory captured although disabled")
		require.NotNil(t, e.Stack)
		if e.Op == "SLOAD" {
			sawLoad = true
			require.Equal(t, common.BigToHash(big.NewInt(42)), e.Storage[common.Hash{}])
		}
	}
	require.True(t, sawLoad)
	require.Empty(t, collect(tr), "second pass must yield nothing")
}

func TestTraceByTransactionID(t *testing.T) {
	l := seedCall(t, 42)
	for _, id := range []string{"0.0.1001-1700000000-000000123", "0.0.1001@1700000000.000000123"} {
		tr, err := newTracer(l).Trace(context.Background(), id, types.TracerOptions{Memory: true})
		require.NoError(t, err, id)
		entries := collect(tr)
		require.NotEmpty(t, entries)
		require.Nil(t, entries[0].Stack)
		require.Nil(t, entries[0].Storage)
		require.NotNil(t, entries[0].Memory)
	}
}

func TestTraceEntriesAreSingleUse(t *testing.T) {
	l := seedCall(t, 42)
	tr, err := newTracer(l).Trace(context.Background(), txHash.Hex(), types.TracerOptions{})
	require.NoError(t, err)

	var first []string
	for e := range tr.Entries() {
		first = append(first, e.Op)
		if len(first) == 2 {
			break
		}
	}
	require.Len(t, first, 2)
	require.Equal(t, "PUSH1", first[0])
	require.Greater(t, tr.Steps, 2)

	require.Empty(t, collect(tr))
	require.Nil(t, tr.entries)
}

func TestTraceNotFoundNamesIdentifier(t *testing.T) {
	l := seedCall(t, 42)
	orphan := common.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222222")
	l.Mem.PutContractTransactionHash(storage.ContractTransactionHash{Hash: orphan.Bytes(), ConsensusTimestamp: 260})

	cases := []struct {
		id   string
		kind types.NotFoundKind
		want string
	}{
		{"0x3333333333333333333333333333333333333333333333333333333333333333", types.NotFoundContractTransactionHash, "0x3333333333333333333333333333333333333333333333333333333333333333"},
		{orphan.Hex(), types.NotFoundContractResult, "260"},
		{"0.0.1001-1700000000-000000999", types.NotFoundTransaction, "0.0.1001-1700000000-000000999"},
	}
	for _, tc := range cases {
		_, err := newTracer(l).Trace(context.Background(), tc.id, types.TracerOptions{})
		var nf *types.NotFoundError
		require.True(t, errors.As(err, &nf), "%s: %v", tc.id, err)
		require.Equal(t, tc.kind, nf.Kind)
		require.Equal(t, tc.want, nf.ID)
		require.True(t, errors.Is(err, types.ErrNotFound))
	}
}

func TestTraceDetectsDivergentReplay(t *testing.T) {
	l := seedCall(t, 7)
	_, err := newTracer(l).Trace(context.Background(), txHash.Hex(), types.TracerOptions{})
	var ce *types.ConsistencyError
	require.True(t, errors.As(err, &ce), "got %v", err)
	require.True(t, errors.Is(err, types.ErrInternal))
	require.True(t, strings.Contains(ce.Detail, "recorded 0x"))
}

func TestParseTransactionRef(t *testing.T) {
	ref, err := ParseTransactionRef("0.0.1001@1700000000.5")
	require.NoError(t, err)
	require.Equal(t, int64(1_700_000_000_500_000_000), ref.ValidStartNs)
	require.Equal(t, types.NewEntityID(0, 0, 1001), ref.Payer)

	for _, bad := range []string{"", "0x1234", "0.0.1001", "0.0.1001-abc-1", "0.0.1001@1.1234567890"} {
		_, err := ParseTransactionRef(bad)
		require.Error(t, err, bad)
	}
}
