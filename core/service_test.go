package core

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"mirrorevm/core/ledgertest"
	"mirrorevm/core/types"
)

func newService(t *testing.T, workers int) (*Service, *ledgertest.Ledger) {
	t.Helper()
	l := ledgertest.New(t)
	svc, err := NewService(l.Mem, Config{State: ledgertest.Config, Workers: workers}, nil)
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	return svc, l
}

func TestServiceCallReadsPinnedBlock(t *testing.T) {
	svc, l := newService(t, 2)
	ctx := context.Background()

	latest, err := svc.Call(ctx, types.CallRequest{Sender: l.Owner, Receiver: &l.SlotRead, GasLimit: 100_000, Block: types.LatestBlock})
	require.NoError(t, err)
	require.True(t, latest.Success)
	require.Equal(t, common.BigToHash(big.NewInt(42)).Bytes(), latest.Output)

	first, err := svc.Call(ctx, types.CallRequest{Sender: l.Owner, Receiver: &l.SlotRead, GasLimit: 100_000, Block: types.BlockNumber(0)})
	require.NoError(t, err)
	require.Equal(t, common.BigToHash(big.NewInt(7)).Bytes(), first.Output)
}

func TestServiceRejectsUnknownBlock(t *testing.T) {
	svc, l := newService(t, 1)
	_, err := svc.Call(context.Background(), types.CallRequest{Sender: l.Owner, Receiver: &l.SlotRead, Block: types.BlockNumber(2)})
	require.ErrorIs(t, err, types.ErrUnknownBlock)
	var unknown *types.UnknownBlockError
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, uint64(2), unknown.Requested)
	require.Equal(t, uint64(1), unknown.Latest)
}

func TestServiceEstimateGas(t *testing.T) {
	svc, l := newService(t, 1)
	gas, err := svc.EstimateGas(context.Background(), types.CallRequest{Sender: l.Owner, Receiver: &l.Writer, Block: types.LatestBlock})
	require.NoError(t, err)
	require.Greater(t, gas, uint64(21_000))

	_, err = svc.EstimateGas(context.Background(), types.CallRequest{Sender: l.Owner, Receiver: &l.Reverter, Block: types.LatestBlock})
	var revert *types.RevertError
	require.True(t, errors.As(err, &revert), "got %v", err)
}

func TestServiceTraceNotFound(t *testing.T) {
	svc, _ := newService(t, 1)
	hash := "0x4444444444444444444444444444444444444444444444444444444444444444"
	_, err := svc.Trace(context.Background(), hash, types.TracerOptions{})
	var nf *types.NotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, types.NotFoundContractTransactionHash, nf.Kind)
	require.Equal(t, hash, nf.ID)
}

func TestServiceBlockNumberAndGasCap(t *testing.T) {
	svc, _ := newService(t, 1)
	n, err := svc.BlockNumber(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)

	limit, err := svc.GasCap(context.Background())
	require.NoError(t, err)
	require.Equal(t, ledgertest.Config.GasLimit, limit)
}

func TestServiceRunsCallsConcurrently(t *testing.T) {
	svc, l := newService(t, 2)
	want := common.BigToHash(big.NewInt(42)).Bytes()

	var wg sync.WaitGroup
	errs := make(chan error, 32)
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Call(context.Background(), types.CallRequest{Sender: l.Owner, Receiver: &l.SlotRead, GasLimit: 100_000, Block: types.LatestBlock})
			if err != nil {
				errs <- err
				return
			}
			if string(res.Output) != string(want) {
				errs <- errors.New("unexpected output")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent call: %v", err)
	}
}

func TestServiceHonoursCancellationAndClose(t *testing.T) {
	svc, l := newService(t, 1)
	req := types.CallRequest{Sender: l.Owner, Receiver: &l.SlotRead, Block: types.LatestBlock}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.Call(ctx, req)
	require.ErrorIs(t, err, context.Canceled)

	svc.Close()
	_, err = svc.Call(context.Background(), req)
	require.ErrorIs(t, err, ErrClosed)
}

func TestOutcomeLabels(t *testing.T) {
	cases := []struct {
		res  *types.CallResult
		err  error
		want string
	}{
		{&types.CallResult{Success: true}, nil, "success"},
		{&types.CallResult{RevertReason: "x"}, nil, "revert"},
		{nil, &types.RevertError{Reason: "x"}, "revert"},
		{nil, &types.UnknownBlockError{Requested: 3, Latest: 1}, "unknown_block"},
		{nil, &types.NotFoundError{Kind: types.NotFoundTransaction, ID: "x"}, "not_found"},
		{nil, &types.UnsupportedError{Operation: "claimAirdrops"}, "unsupported"},
		{nil, context.DeadlineExceeded, "canceled"},
		{nil, &types.ConsistencyError{Detail: "x"}, "error"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, outcome(tc.res, tc.err))
	}
}
