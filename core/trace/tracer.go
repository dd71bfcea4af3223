// Package trace replays recorded contract transactions with opcode-level
// instrumentation.
package trace

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"iter"
	"log/slog"
	"math/big"
	"strconv"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"

	"mirrorevm/core/evm"
	"mirrorevm/core/state"
	"mirrorevm/core/types"
	"mirrorevm/storage"
)

// resultSuccess is the ledger status code of a successful transaction.
const resultSuccess = 22

// Runner executes one call. *evm.Executor satisfies it.
type Runner interface {
	Execute(ctx context.Context, view *state.View, req types.CallRequest, opts evm.Options) (*types.CallResult, error)
}

// Tracer looks up recorded transactions and re-executes them.
type Tracer struct {
	acc    storage.Accessor
	cfg    state.Config
	runner Runner
	logger *slog.Logger
}

func New(acc storage.Accessor, cfg state.Config, runner Runner, logger *slog.Logger) *Tracer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracer{acc: acc, cfg: cfg, runner: runner, logger: logger}
}

// Trace is the outcome of one replay. The replay runs to completion and is
// checked against the recorded result before a Trace is returned, so its
// entries are held in memory until they are consumed. They can be consumed
// once.
type Trace struct {
	Request types.CallRequest
	Result  *types.CallResult
	// Steps is the number of entries recorded.
	Steps   int
	entries []types.TraceEntry
	used    atomic.Bool
}

// Entries yields the buffered steps in execution order and releases them.
// Only the first range over the sequence sees entries; later ones yield
// nothing.
func (t *Trace) Entries() iter.Seq[types.TraceEntry] {
	return func(yield func(types.TraceEntry) bool) {
		if !t.used.CompareAndSwap(false, true) {
			return
		}
		entries := t.entries
		t.entries = nil
		for _, e := range entries {
			if !yield(e) {
				return
			}
		}
	}
}

// recorded is the persisted transaction a replay is built from.
type recorded struct {
	ref       TransactionRef
	timestamp int64
	result    *storage.ContractResult
	eth       *storage.EthereumTransaction
}

// Trace replays the transaction identified by raw, a hash or transaction id,
// against the state immediately before it reached consensus.
func (t *Tracer) Trace(ctx context.Context, raw string, opts types.TracerOptions) (*Trace, error) {
	ref, err := ParseTransactionRef(raw)
	if err != nil {
		return nil, err
	}
	tx, err := t.lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	view, err := state.OpenBefore(ctx, t.acc, t.cfg, tx.timestamp)
	if err != nil {
		return nil, err
	}
	req, err := t.request(ctx, view, tx)
	if err != nil {
		return nil, err
	}

	rec := newRecorder(opts)
	res, err := t.runner.Execute(ctx, view, req, evm.Options{Hooks: rec.hooks()})
	if err != nil {
		return nil, err
	}
	if err := verify(tx, res); err != nil {
		t.logger.Warn("replay diverged from recorded result", "transaction", ref.String(), "error", err)
		return nil, err
	}
	t.logger.Debug("transaction traced", "transaction", ref.String(), "steps", len(rec.entries), "success", res.Success)
	return &Trace{Request: req, Result: res, Steps: len(rec.entries), entries: rec.entries}, nil
}

func (t *Tracer) lookup(ctx context.Context, ref TransactionRef) (*recorded, error) {
	out := &recorded{ref: ref}
	if ref.IsHash() {
		row, err := t.acc.ContractTransactionHash(ctx, ref.Hash)
		if err != nil {
			return nil, fmt.Errorf("load transaction hash %s: %w", ref, err)
		}
		if row == nil {
			return nil, &types.NotFoundError{Kind: types.NotFoundContractTransactionHash, ID: ref.String()}
		}
		out.timestamp = row.ConsensusTimestamp
	} else {
		row, err := t.acc.Transaction(ctx, ref.Payer.Encoded(), ref.ValidStartNs, ref.Nonce)
		if err != nil {
			return nil, fmt.Errorf("load transaction %s: %w", ref, err)
		}
		if row == nil {
			return nil, &types.NotFoundError{Kind: types.NotFoundTransaction, ID: ref.String()}
		}
		out.timestamp = row.ConsensusTimestamp
	}

	result, err := t.acc.ContractResult(ctx, out.timestamp)
	if err != nil {
		return nil, fmt.Errorf("load contract result %d: %w", out.timestamp, err)
	}
	if result == nil {
		return nil, &types.NotFoundError{Kind: types.NotFoundContractResult, ID: strconv.FormatInt(out.timestamp, 10)}
	}
	out.result = result
	eth, err := t.acc.EthereumTransaction(ctx, out.timestamp)
	if err != nil {
		return nil, fmt.Errorf("load ethereum transaction %d: %w", out.timestamp, err)
	}
	out.eth = eth
	return out, nil
}

// request rebuilds the original call. Fields of a wrapped ethereum
// transaction take precedence over the contract result.
func (t *Tracer) request(ctx context.Context, view *state.View, tx *recorded) (types.CallRequest, error) {
	res := tx.result
	req := types.CallRequest{
		Value:    evm.TinybarsToWeibars(big.NewInt(res.Amount)),
		Data:     res.FunctionParameters,
		GasLimit: uint64(max(res.GasLimit, 0)),
		Block:    types.BlockNumber(view.Block().Number),
	}
	resolver := view.Resolver()

	senderID := res.SenderID
	if senderID == 0 {
		senderID = res.PayerAccountID
	}
	sender, err := resolver.EVMAddressOf(ctx, types.DecodeEntityID(senderID))
	if err != nil {
		return types.CallRequest{}, fmt.Errorf("resolve sender: %w", err)
	}
	req.Sender = sender
	if res.ContractID != 0 {
		receiver, err := resolver.EVMAddressOf(ctx, types.DecodeEntityID(res.ContractID))
		if err != nil {
			return types.CallRequest{}, fmt.Errorf("resolve receiver: %w", err)
		}
		req.Receiver = &receiver
	}

	if eth := tx.eth; eth != nil {
		if len(eth.FromAddress) == common.AddressLength {
			req.Sender = common.BytesToAddress(eth.FromAddress)
		}
		if len(eth.ToAddress) == common.AddressLength {
			to := common.BytesToAddress(eth.ToAddress)
			req.Receiver = &to
		}
		if len(eth.Value) > 0 {
			req.Value = new(big.Int).SetBytes(eth.Value)
		}
		if len(eth.CallData) > 0 {
			req.Data = eth.CallData
		}
		if eth.GasLimit > 0 {
			req.GasLimit = uint64(eth.GasLimit)
		}
	}
	return req, nil
}

// verify checks a replay of a successful transaction against its recorded
// output.
func verify(tx *recorded, res *types.CallResult) error {
	want := tx.result
	if want.ErrorMessage != "" || (want.TransactionResult != 0 && want.TransactionResult != resultSuccess) {
		return nil
	}
	if !res.Success {
		return &types.ConsistencyError{Detail: fmt.Sprintf("replay of %s failed (%s) but the transaction succeeded", tx.ref, res.Failure())}
	}
	if !bytes.Equal(res.Output, want.CallResult) {
		return &types.ConsistencyError{Detail: fmt.Sprintf("replay of %s returned 0x%s, recorded 0x%s",
			tx.ref, hex.EncodeToString(res.Output), hex.EncodeToString(want.CallResult))}
	}
	return nil
}
