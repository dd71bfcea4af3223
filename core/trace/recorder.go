package trace

import (
	"maps"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/tracing"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"

	"mirrorevm/core/types"
)

// recorder turns interpreter steps into trace entries. Captures that were
// not requested stay nil.
type recorder struct {
	opts    types.TracerOptions
	state   tracing.StateDB
	storage map[common.Address]map[common.Hash]common.Hash
	entries []types.TraceEntry
}

func newRecorder(opts types.TracerOptions) *recorder {
	return &recorder{opts: opts, storage: make(map[common.Address]map[common.Hash]common.Hash)}
}

func (r *recorder) hooks() *tracing.Hooks {
	return &tracing.Hooks{
		OnTxStart: r.onTxStart,
		OnOpcode:  r.onOpcode,
		OnFault:   r.onFault,
	}
}

func (r *recorder) onTxStart(env *tracing.VMContext, _ *gethtypes.Transaction, _ common.Address) {
	if env != nil {
		r.state = env.StateDB
	}
}

func (r *recorder) onOpcode(pc uint64, op byte, gas, cost uint64, scope tracing.OpContext, _ []byte, depth int, err error) {
	entry := types.TraceEntry{
		PC:           pc,
		Op:           vm.OpCode(op).String(),
		Depth:        depth,
		RemainingGas: gas,
		GasCost:      cost,
	}
	if err != nil {
		entry.Reason = err.Error()
	}
	if r.opts.Stack {
		entry.Stack = slices.Clone(scope.StackData())
		if entry.Stack == nil {
			entry.Stack = []uint256.Int{}
		}
	}
	if r.opts.Memory {
		entry.Memory = slices.Clone(scope.MemoryData())
		if entry.Memory == nil {
			entry.Memory = []byte{}
		}
	}
	if r.opts.Storage {
		entry.Storage = r.captureStorage(vm.OpCode(op), scope)
	}
	r.entries = append(r.entries, entry)
}

// captureStorage records the slot an SLOAD or SSTORE touches and returns the
// slots of the executing contract seen so far.
func (r *recorder) captureStorage(op vm.OpCode, scope tracing.OpContext) map[common.Hash]common.Hash {
	if op != vm.SLOAD && op != vm.SSTORE {
		return nil
	}
	stack := scope.StackData()
	addr := scope.Address()
	slots, ok := r.storage[addr]
	if !ok {
		slots = make(map[common.Hash]common.Hash)
		r.storage[addr] = slots
	}
	switch {
	case op == vm.SLOAD && len(stack) >= 1:
		key := common.Hash(stack[len(stack)-1].Bytes32())
		if r.state != nil {
			slots[key] = r.state.GetState(addr, key)
		}
	case op == vm.SSTORE && len(stack) >= 2:
		key := common.Hash(stack[len(stack)-1].Bytes32())
		slots[key] = common.Hash(stack[len(stack)-2].Bytes32())
	}
	return maps.Clone(slots)
}

func (r *recorder) onFault(_ uint64, _ byte, _, _ uint64, _ tracing.OpContext, _ int, err error) {
	if n := len(r.entries); n > 0 && err != nil {
		r.entries[n-1].Reason = err.Error()
	}
}
