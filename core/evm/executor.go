package evm

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math/big"
	"slices"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethcore "github.com/ethereum/go-ethereum/core"
	gethstate "github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/tracing"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mirrorevm/core/precompile"
	"mirrorevm/core/state"
	"mirrorevm/core/types"
)

// Failure reasons reported in CallResult.
const (
	ReasonInsufficientGas     = "INSUFFICIENT_GAS"
	ReasonInsufficientBalance = "INSUFFICIENT_PAYER_BALANCE"
	ReasonContractReverted    = "CONTRACT_REVERT_EXECUTED"
	ReasonWriteProtection     = "write protection"
)

// Config holds the network parameters of the executor.
type Config struct {
	ChainID      uint64
	Mode         types.ExecutionMode
	MaxGasLimit  uint64
	ExchangeRate precompile.ExchangeRate
}

// Options instruments a single execution.
type Options struct {
	// Hooks receive every interpreter step and frame transition.
	Hooks *tracing.Hooks
}

// Executor runs simulated calls on the go-ethereum interpreter against a
// pinned state view. It holds no per-call state and is safe for concurrent
// use; every Execute builds its own StateDB, EVM and token-service overlay.
type Executor struct {
	cfg    Config
	chain  *params.ChainConfig
	tracer trace.Tracer
	logger *slog.Logger
}

// New returns an executor for the configured chain.
func New(cfg Config, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Mode == "" {
		cfg.Mode = types.ModeModularized
	}
	chain := *params.TestChainConfig
	if cfg.ChainID != 0 {
		chain.ChainID = new(big.Int).SetUint64(cfg.ChainID)
	}
	return &Executor{
		cfg:    cfg,
		chain:  &chain,
		tracer: otel.Tracer("mirrorevm/evm"),
		logger: logger,
	}
}

// Mode reports the execution mode threaded into the token service.
func (e *Executor) Mode() types.ExecutionMode { return e.cfg.Mode }

// GasCap is the highest gas limit a call may run with on the view's block.
func (e *Executor) GasCap(view *state.View) uint64 {
	limit := view.Block().GasLimit
	if e.cfg.MaxGasLimit != 0 && (limit == 0 || e.cfg.MaxGasLimit < limit) {
		limit = e.cfg.MaxGasLimit
	}
	return limit
}

// IntrinsicGas is the gas charged before the first opcode runs.
func (e *Executor) IntrinsicGas(view *state.View, req types.CallRequest) (uint64, error) {
	rules := e.rules(e.blockContext(context.Background(), view, nil))
	return gethcore.IntrinsicGas(req.Data, nil, nil, req.Receiver == nil, rules.IsHomestead, rules.IsIstanbul, rules.IsShanghai)
}

// Execute runs req against view. Reverts, halts and insufficient balance are
// reported in the result; the error return carries unsupported token-service
// operations and fatal conditions only.
func (e *Executor) Execute(ctx context.Context, view *state.View, req types.CallRequest, opts Options) (result *types.CallResult, err error) {
	block := view.Block()
	ctx, span := e.tracer.Start(ctx, "evm.execute", trace.WithAttributes(
		attribute.Int64("block.number", int64(block.Number)),
		attribute.Bool("call.static", req.IsStatic),
		attribute.Bool("call.estimate", req.IsEstimate),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else if result != nil {
			span.SetAttributes(attribute.Bool("call.success", result.Success), attribute.Int64("call.gas_used", int64(result.GasUsed)))
		}
		span.End()
	}()
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("interpreter panic", "panic", fmt.Sprint(r), "block", block.Number)
			result, err = nil, types.Internalf("interpreter panic: %v", r)
		}
	}()

	gas := req.GasLimit
	if limit := e.GasCap(view); gas == 0 || (limit != 0 && gas > limit) {
		gas = limit
	}

	tracker := newFrameTracker(nil)
	dispatcher := precompile.NewDispatcher(ctx, view, e.cfg.Mode, tracker, e.logger)
	tracker.ledger = dispatcher.Ledger()

	db := newDatabase(ctx, view, dispatcher.Ledger())
	statedb, err := gethstate.New(gethtypes.EmptyRootHash, db)
	if err != nil {
		return nil, fmt.Errorf("open statedb: %w", err)
	}

	var hashErr error
	blockCtx := e.blockContext(ctx, view, &hashErr)
	rules := e.rules(blockCtx)
	evm := vm.NewEVM(blockCtx, statedb, e.chain, vm.Config{
		Tracer:    tracker.hooks(opts.Hooks),
		NoBaseFee: true,
	})
	contracts := maps.Clone(vm.ActivePrecompiledContracts(rules))
	contracts[precompile.TokenServiceAddress] = dispatcher
	contracts[precompile.ExchangeRateAddress] = precompile.NewExchangeRateContract(e.cfg.ExchangeRate)
	contracts[precompile.PrngAddress] = precompile.NewPrngContract(block)
	evm.SetPrecompiles(contracts)

	dst, err := e.route(db.reader, req)
	if err != nil {
		return nil, err
	}
	msg := &gethcore.Message{
		From:      req.Sender,
		To:        dst,
		Nonce:     statedb.GetNonce(req.Sender),
		Value:     req.ValueOrZero(),
		GasLimit:  gas,
		GasPrice:  new(big.Int),
		GasFeeCap: new(big.Int),
		GasTipCap: new(big.Int),
		Data:      req.Data,
	}
	evm.SetTxContext(gethcore.NewEVMTxContext(msg))
	if h := opts.Hooks; h != nil && h.OnTxStart != nil {
		h.OnTxStart(evm.GetVMContext(), gethtypes.NewTx(&gethtypes.LegacyTx{
			Nonce:    msg.Nonce,
			GasPrice: msg.GasPrice,
			Gas:      gas,
			To:       dst,
			Value:    msg.Value,
			Data:     req.Data,
		}), req.Sender)
	}

	result = &types.CallResult{Block: block}
	intrinsic, err := gethcore.IntrinsicGas(req.Data, nil, nil, dst == nil, rules.IsHomestead, rules.IsIstanbul, rules.IsShanghai)
	if err != nil {
		return nil, fmt.Errorf("intrinsic gas: %w", err)
	}
	if gas < intrinsic {
		result.GasUsed = gas
		result.GasConsumed = intrinsic
		result.OutOfGas = true
		result.HaltReason = ReasonInsufficientGas
		return result, nil
	}

	value, overflow := uint256.FromBig(msg.Value)
	if overflow || msg.Value.Sign() < 0 || (!value.IsZero() && !blockCtx.CanTransfer(statedb, req.Sender, value)) {
		result.GasUsed = intrinsic
		result.GasConsumed = intrinsic
		result.RevertReason = ReasonInsufficientBalance
		return result, nil
	}

	precompiles := slices.Clone(vm.ActivePrecompiles(rules))
	precompiles = append(precompiles, precompile.TokenServiceAddress, precompile.ExchangeRateAddress, precompile.PrngAddress)
	statedb.Prepare(rules, req.Sender, blockCtx.Coinbase, dst, precompiles, nil)

	var (
		ret   []byte
		left  uint64
		vmErr error
	)
	available := gas - intrinsic
	switch {
	case dst == nil && req.IsStatic:
		ret, left, vmErr = nil, available, vm.ErrWriteProtection
	case dst == nil:
		ret, _, left, vmErr = evm.Create(req.Sender, req.Data, available, value)
	case req.IsStatic:
		if !value.IsZero() {
			ret, left, vmErr = nil, available, vm.ErrWriteProtection
			break
		}
		ret, left, vmErr = evm.StaticCall(req.Sender, *dst, req.Data, available)
	default:
		ret, left, vmErr = evm.Call(req.Sender, *dst, req.Data, available, value)
	}

	if err := dispatcher.Err(); err != nil {
		if !errors.Is(err, types.ErrUnsupported) {
			e.logger.Warn("token service failure", "error", err, "block", block.Number)
		}
		return nil, err
	}
	if hashErr != nil {
		return nil, hashErr
	}
	if err := statedb.Error(); err != nil {
		e.logger.Warn("state read failure", "error", err, "block", block.Number)
		return nil, fmt.Errorf("%w: %w", types.ErrInternal, err)
	}

	used := gas - left
	refund := statedb.GetRefund()
	quotient := uint64(params.RefundQuotient)
	if rules.IsLondon {
		quotient = uint64(params.RefundQuotientEIP3529)
	}
	refund = min(refund, used/quotient)
	result.GasConsumed = used
	result.GasUsed = used - refund
	classify(result, ret, vmErr, tracker.outOfGas)
	e.logger.Debug("call executed",
		"block", block.Number,
		"to", routeName(dst),
		"success", result.Success,
		"gasUsed", result.GasUsed,
		"reason", result.Failure(),
	)
	return result, nil
}

// route picks the top-level destination. A redirect addressed to a token
// goes straight to the token service instead of through the token's proxy.
func (e *Executor) route(r *reader, req types.CallRequest) (*common.Address, error) {
	if req.Receiver == nil {
		return nil, nil
	}
	dst := *req.Receiver
	if len(req.Data) < 4 || !bytes.Equal(req.Data[:4], precompile.RedirectSelector[:]) {
		return &dst, nil
	}
	res, err := r.resolve(dst)
	if err != nil {
		return nil, fmt.Errorf("resolve receiver: %w", err)
	}
	if res != nil && res.token {
		addr := precompile.TokenServiceAddress
		return &addr, nil
	}
	return &dst, nil
}

func routeName(dst *common.Address) string {
	if dst == nil {
		return "create"
	}
	return dst.Hex()
}

func (e *Executor) blockContext(ctx context.Context, view *state.View, hashErr *error) vm.BlockContext {
	block := view.Block()
	random := block.Hash
	return vm.BlockContext{
		CanTransfer: gethcore.CanTransfer,
		Transfer:    gethcore.Transfer,
		GetHash: func(n uint64) common.Hash {
			h, err := view.BlockHash(ctx, n)
			if err != nil && hashErr != nil && *hashErr == nil {
				*hashErr = err
			}
			return h
		},
		Coinbase:    common.Address{},
		GasLimit:    e.GasCap(view),
		BlockNumber: new(big.Int).SetUint64(block.Number),
		Time:        block.TimestampSeconds(),
		Difficulty:  new(big.Int),
		BaseFee:     new(big.Int),
		BlobBaseFee: big.NewInt(1),
		Random:      &random,
	}
}

func (e *Executor) rules(b vm.BlockContext) params.Rules {
	return e.chain.Rules(b.BlockNumber, b.Random != nil, b.Time)
}

// classify fills the outcome fields of result from the interpreter's return.
func classify(result *types.CallResult, ret []byte, vmErr error, nestedOutOfGas bool) {
	result.Output = ret
	switch {
	case vmErr == nil:
		result.Success = true
	case errors.Is(vmErr, vm.ErrExecutionReverted):
		result.RevertReason = revertReason(ret)
		result.OutOfGas = nestedOutOfGas
	case errors.Is(vmErr, vm.ErrWriteProtection):
		result.RevertReason = ReasonWriteProtection
	case isOutOfGas(vmErr):
		result.HaltReason = ReasonInsufficientGas
		result.OutOfGas = true
	default:
		result.HaltReason = vmErr.Error()
		result.OutOfGas = nestedOutOfGas
	}
}

// revertReason decodes Error(string) payloads and falls back to the raw
// revert data.
func revertReason(ret []byte) string {
	if len(ret) == 0 {
		return ReasonContractReverted
	}
	if reason, err := abi.UnpackRevert(ret); err == nil {
		return reason
	}
	return "0x" + hex.EncodeToString(ret)
}
