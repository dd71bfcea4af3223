package types

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ExecutionMode selects between the two precompile behaviour profiles. The
// modes differ only in failure surfacing (revert reason strings); the mode is
// threaded explicitly from configuration to the dispatcher.
type ExecutionMode string

const (
	ModeModularized ExecutionMode = "modularized"
	ModeLegacy      ExecutionMode = "legacy"
)

// ParseExecutionMode normalises a configured mode name.
func ParseExecutionMode(raw string) (ExecutionMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(ModeModularized):
		return ModeModularized, nil
	case string(ModeLegacy):
		return ModeLegacy, nil
	}
	return "", fmt.Errorf("unknown execution mode %q", raw)
}

// CallRequest carries everything a simulated call needs. There is no ambient
// sender or value state: the request is the only input.
type CallRequest struct {
	Sender common.Address
	// Receiver nil means contract creation with Data as init code.
	Receiver   *common.Address
	Value      *big.Int
	Data       []byte
	GasLimit   uint64
	Block      BlockTag
	IsStatic   bool
	IsEstimate bool
}

// WithGas returns a copy of the request with a different gas limit.
func (r CallRequest) WithGas(gas uint64) CallRequest {
	r.GasLimit = gas
	return r
}

// ValueOrZero returns the call value, never nil.
func (r CallRequest) ValueOrZero() *big.Int {
	if r.Value == nil {
		return new(big.Int)
	}
	return r.Value
}

// CallResult is the classified outcome of one execution.
type CallResult struct {
	Success bool
	Output  []byte
	// GasUsed is the gas charged after refunds.
	GasUsed uint64
	// GasConsumed is the peak gas consumed before refunds; no gas limit below
	// it can succeed.
	GasConsumed  uint64
	RevertReason string
	HaltReason   string
	// OutOfGas is set when the call, or a nested frame it depended on, ran
	// out of gas. More gas may turn such a failure into a success.
	OutOfGas bool
	Block    BlockContext
}

// Reverted reports whether the call ended in a revert rather than a halt.
func (r *CallResult) Reverted() bool {
	return r != nil && !r.Success && r.HaltReason == ""
}

// Failure returns the classified reason for an unsuccessful call.
func (r *CallResult) Failure() string {
	if r == nil || r.Success {
		return ""
	}
	if r.RevertReason != "" {
		return r.RevertReason
	}
	return r.HaltReason
}

// TracerOptions toggles what each trace entry captures. Disabled captures are
// left nil rather than zero-filled.
type TracerOptions struct {
	Stack   bool
	Memory  bool
	Storage bool
}

// TraceEntry is one interpreter step.
type TraceEntry struct {
	PC           uint64
	Op           string
	Depth        int
	RemainingGas uint64
	GasCost      uint64
	Stack        []uint256.Int
	Memory       []byte
	Storage      map[common.Hash]common.Hash
	Reason       string
}
