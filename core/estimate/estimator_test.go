package estimate

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"mirrorevm/core/evm"
	"mirrorevm/core/ledgertest"
	"mirrorevm/core/state"
	"mirrorevm/core/types"
)

// fakeRunner succeeds once gas reaches need and reports consumed as the
// peak gas of every run. Below revertBelow it fails with a logical revert.
type fakeRunner struct {
	cap         uint64
	need        uint64
	consumed    uint64
	revertBelow uint64
	calls       int
}

func (f *fakeRunner) GasCap(*state.View) uint64 { return f.cap }

func (f *fakeRunner) IntrinsicGas(*state.View, types.CallRequest) (uint64, error) {
	return 21_000, nil
}

func (f *fakeRunner) Execute(_ context.Context, _ *state.View, req types.CallRequest, _ evm.Options) (*types.CallResult, error) {
	f.calls++
	if !req.IsEstimate {
		return nil, errors.New("estimate flag not set")
	}
	switch {
	case req.GasLimit < f.revertBelow:
		return &types.CallResult{RevertReason: "BAD_STATE", GasConsumed: min(req.GasLimit, f.consumed)}, nil
	case req.GasLimit < f.need:
		return &types.CallResult{HaltReason: evm.ReasonInsufficientGas, OutOfGas: true, GasUsed: req.GasLimit, GasConsumed: req.GasLimit}, nil
	}
	return &types.CallResult{Success: true, GasUsed: f.consumed, GasConsumed: f.consumed}, nil
}

func TestEstimateConvergesWithinThreshold(t *testing.T) {
	runner := &fakeRunner{cap: 15_000_000, need: 120_000, consumed: 100_000}
	est := New(runner, Config{}, nil)

	got, err := est.Estimate(context.Background(), nil, types.CallRequest{})
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if got < runner.need || got >= runner.need+DefaultIterationThreshold {
		t.Fatalf("estimate = %d, want in [%d, %d)", got, runner.need, runner.need+DefaultIterationThreshold)
	}
	if runner.calls > DefaultMaxIterations+2 {
		t.Fatalf("ran %d trials", runner.calls)
	}
}

func TestEstimateAcceptsConsumedGasDirectly(t *testing.T) {
	runner := &fakeRunner{cap: 15_000_000, need: 50_000, consumed: 50_000}
	got, err := New(runner, Config{}, nil).Estimate(context.Background(), nil, types.CallRequest{})
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if got != 50_000 || runner.calls != 2 {
		t.Fatalf("estimate = %d after %d trials, want 50000 after 2", got, runner.calls)
	}
}

func TestEstimateRespectsCallerLimit(t *testing.T) {
	runner := &fakeRunner{cap: 15_000_000, need: 60_000, consumed: 60_000}
	_, err := New(runner, Config{}, nil).Estimate(context.Background(), nil, types.CallRequest{GasLimit: 59_999})
	var revert *types.RevertError
	if !errors.As(err, &revert) {
		t.Fatalf("expected revert error, got %v", err)
	}
	if revert.Reason != evm.ReasonInsufficientGas {
		t.Fatalf("reason = %q", revert.Reason)
	}

	_, err = New(runner, Config{}, nil).Estimate(context.Background(), nil, types.CallRequest{GasLimit: 20_000})
	if !errors.As(err, &revert) {
		t.Fatalf("expected revert error below intrinsic gas, got %v", err)
	}
}

func TestEstimateStopsOnLogicalRevert(t *testing.T) {
	runner := &fakeRunner{cap: 15_000_000, need: 40_000, consumed: 40_000, revertBelow: 5_000_000}
	_, err := New(runner, Config{}, nil).Estimate(context.Background(), nil, types.CallRequest{})
	var revert *types.RevertError
	if !errors.As(err, &revert) || revert.Reason != "BAD_STATE" {
		t.Fatalf("expected BAD_STATE revert, got %v", err)
	}
	if !errors.Is(err, types.ErrReverted) {
		t.Fatalf("revert error does not classify as ErrReverted")
	}
}

func TestWithinTolerance(t *testing.T) {
	cfg := Config{TolerancePercent: 10}
	cases := []struct {
		estimate, used uint64
		want           bool
	}{
		{100, 100, true},
		{110, 100, true},
		{111, 100, false},
		{99, 100, false},
	}
	for _, tc := range cases {
		if got := cfg.WithinTolerance(tc.estimate, tc.used); got != tc.want {
			t.Fatalf("WithinTolerance(%d, %d) = %v, want %v", tc.estimate, tc.used, got, tc.want)
		}
	}
}

func TestEstimateStopsInsideToleranceBand(t *testing.T) {
	loose := &fakeRunner{cap: 15_000_000, need: 120_000, consumed: 100_000}
	got, err := New(loose, Config{TolerancePercent: 50}, nil).Estimate(context.Background(), nil, types.CallRequest{})
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if got < loose.need || got > 150_000 {
		t.Fatalf("estimate = %d, want in [%d, 150000]", got, loose.need)
	}

	strict := &fakeRunner{cap: 15_000_000, need: 120_000, consumed: 100_000}
	exact, err := New(strict, Config{TolerancePercent: 1}, nil).Estimate(context.Background(), nil, types.CallRequest{})
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if exact < strict.need || exact >= strict.need+DefaultIterationThreshold {
		t.Fatalf("strict estimate = %d", exact)
	}
	if loose.calls >= strict.calls {
		t.Fatalf("tolerant search ran %d trials, strict ran %d", loose.calls, strict.calls)
	}
}

func TestEstimateAgainstInterpreter(t *testing.T) {
	l := ledgertest.New(t)
	exec := evm.New(evm.Config{}, nil)
	est := New(exec, Config{}, nil)
	getApproved := append(crypto.Keccak256([]byte("getApproved(uint256)"))[:4], common.LeftPadBytes(big.NewInt(1).Bytes(), 32)...)

	cases := map[string]types.CallRequest{
		"storage write":    {Sender: l.Owner, Receiver: &l.Writer},
		"nft getApproved":  {Sender: l.Owner, Receiver: &l.NFT, Data: getApproved},
		"storage read":     {Sender: l.Owner, Receiver: &l.SlotRead},
		"plain value send": {Sender: l.Owner, Receiver: &l.Spender, Value: big.NewInt(1)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			view := l.View(t, types.LatestBlock)
			gas, err := est.Estimate(context.Background(), view, req)
			if err != nil {
				t.Fatalf("estimate: %v", err)
			}
			res, err := exec.Execute(context.Background(), view, req.WithGas(gas), evm.Options{})
			if err != nil {
				t.Fatalf("execute at estimate: %v", err)
			}
			if !res.Success {
				t.Fatalf("call fails at estimate %d: %s", gas, res.Failure())
			}
			if !est.Config().WithinTolerance(gas, res.GasUsed) {
				t.Fatalf("estimate %d outside tolerance of used %d", gas, res.GasUsed)
			}
		})
	}
}

func TestEstimateRevertingContract(t *testing.T) {
	l := ledgertest.New(t)
	est := New(evm.New(evm.Config{}, nil), Config{}, nil)
	_, err := est.Estimate(context.Background(), l.View(t, types.LatestBlock), types.CallRequest{Sender: l.Owner, Receiver: &l.Reverter})
	var revert *types.RevertError
	if !errors.As(err, &revert) || revert.Reason != evm.ReasonContractReverted {
		t.Fatalf("expected contract revert, got %v", err)
	}
}
