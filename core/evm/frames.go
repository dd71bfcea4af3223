package evm

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/core/vm"

	"mirrorevm/core/precompile"
)

type frame struct {
	precompile.Frame
	checkpoint int
}

// frameTracker follows the interpreter's call stack. It tells the token
// service who it is acting for and keeps the overlay ledger in step with
// reverted frames.
type frameTracker struct {
	ledger   *precompile.Ledger
	stack    []frame
	outOfGas bool
}

func newFrameTracker(ledger *precompile.Ledger) *frameTracker {
	return &frameTracker{ledger: ledger}
}

// Current implements precompile.FrameSource.
func (t *frameTracker) Current() precompile.Frame {
	if len(t.stack) == 0 {
		return precompile.Frame{}
	}
	return t.stack[len(t.stack)-1].Frame
}

func (t *frameTracker) onEnter(_ int, typ byte, from common.Address, _ common.Address, _ []byte, _ uint64, _ *big.Int) {
	f := frame{Frame: precompile.Frame{Sender: from}}
	if n := len(t.stack); n > 0 {
		parent := t.stack[n-1]
		f.Static = parent.Static
		// The callee of a DELEGATECALL runs as its caller; for token proxies
		// that means the account that called the token.
		if vm.OpCode(typ) == vm.DELEGATECALL {
			f.Sender = parent.Sender
		}
	}
	if vm.OpCode(typ) == vm.STATICCALL {
		f.Static = true
	}
	if t.ledger != nil {
		f.checkpoint = t.ledger.Checkpoint()
	}
	t.stack = append(t.stack, f)
}

func (t *frameTracker) onExit(_ int, _ []byte, _ uint64, err error, reverted bool) {
	n := len(t.stack)
	if n == 0 {
		return
	}
	f := t.stack[n-1]
	t.stack = t.stack[:n-1]
	if isOutOfGas(err) {
		t.outOfGas = true
	}
	if reverted && t.ledger != nil {
		t.ledger.RevertTo(f.checkpoint)
	}
}

// hooks returns the tracer hooks for the tracker, chaining extra when set.
func (t *frameTracker) hooks(extra *tracing.Hooks) *tracing.Hooks {
	h := &tracing.Hooks{OnEnter: t.onEnter, OnExit: t.onExit}
	if extra == nil {
		return h
	}
	h.OnOpcode = extra.OnOpcode
	h.OnFault = extra.OnFault
	if extra.OnEnter != nil {
		h.OnEnter = func(depth int, typ byte, from, to common.Address, input []byte, gas uint64, value *big.Int) {
			t.onEnter(depth, typ, from, to, input, gas, value)
			extra.OnEnter(depth, typ, from, to, input, gas, value)
		}
	}
	if extra.OnExit != nil {
		h.OnExit = func(depth int, output []byte, gasUsed uint64, err error, reverted bool) {
			t.onExit(depth, output, gasUsed, err, reverted)
			extra.OnExit(depth, output, gasUsed, err, reverted)
		}
	}
	return h
}

func isOutOfGas(err error) bool {
	return errors.Is(err, vm.ErrOutOfGas) || errors.Is(err, vm.ErrCodeStoreOutOfGas)
}
