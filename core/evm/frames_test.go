package evm

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"

	"mirrorevm/core/ledgertest"
	"mirrorevm/core/precompile"
	"mirrorevm/core/types"
)

func TestFrameTrackerSenderAndStatic(t *testing.T) {
	caller := common.HexToAddress("0x01")
	proxy := common.HexToAddress("0x02")
	tr := newFrameTracker(nil)

	tr.onEnter(0, byte(vm.STATICCALL), caller, proxy, nil, 0, nil)
	tr.onEnter(1, byte(vm.DELEGATECALL), proxy, precompile.TokenServiceAddress, nil, 0, nil)
	got := tr.Current()
	if got.Sender != caller {
		t.Fatalf("delegate frame sender = %s, want %s", got.Sender.Hex(), caller.Hex())
	}
	if !got.Static {
		t.Fatalf("static context not inherited")
	}
	tr.onExit(1, nil, 0, nil, false)
	tr.onExit(0, nil, 0, nil, false)
	if (tr.Current() != precompile.Frame{}) {
		t.Fatalf("stack not drained")
	}
}

func TestFrameTrackerRollsBackRevertedFrames(t *testing.T) {
	l := ledgertest.New(t)
	ledger := precompile.NewLedger(l.View(t, types.LatestBlock))
	tr := newFrameTracker(ledger)
	tokenID := types.NewEntityID(0, 0, ledgertest.FungibleNum)

	tr.onEnter(0, byte(vm.CALL), l.Owner, l.Forwarder, nil, 0, new(big.Int))
	tok, err := ledger.Token(context.Background(), tokenID)
	if err != nil || tok == nil {
		t.Fatalf("load token: %v", err)
	}
	kept := *tok
	kept.Name = "kept"
	ledger.PutToken(&kept)

	tr.onEnter(1, byte(vm.CALL), l.Forwarder, precompile.TokenServiceAddress, nil, 0, new(big.Int))
	dropped := kept
	dropped.Name = "dropped"
	ledger.PutToken(&dropped)
	tr.onExit(1, nil, 0, vm.ErrOutOfGas, true)

	tok, _ = ledger.Token(context.Background(), tokenID)
	if tok.Name != "kept" {
		t.Fatalf("token name = %q after nested revert, want kept", tok.Name)
	}
	if !tr.outOfGas {
		t.Fatalf("nested out of gas not recorded")
	}
	tr.onExit(0, nil, 0, vm.ErrExecutionReverted, true)
	if ledger.Dirty() {
		t.Fatalf("overlay still dirty after top-level revert")
	}
}
