// Package core exposes the simulated execution API: calls, gas estimates and
// transaction traces against a historical mirror of the ledger.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/alitto/pond/v2"

	"mirrorevm/core/estimate"
	"mirrorevm/core/evm"
	"mirrorevm/core/state"
	"mirrorevm/core/trace"
	"mirrorevm/core/types"
	"mirrorevm/observability"
	"mirrorevm/storage"
)

// ErrClosed is returned for requests submitted after Close.
var ErrClosed = errors.New("core: service closed")

// Config wires the components of a Service.
type Config struct {
	State    state.Config
	EVM      evm.Config
	Estimate estimate.Config
	// Workers bounds concurrently running operations. Zero uses one worker
	// per CPU.
	Workers int
	// QueueSize bounds operations waiting for a worker. Zero leaves the
	// queue unbounded.
	QueueSize int
}

// Service runs calls, estimates and traces on a bounded worker pool. Every
// operation opens its own state view; nothing is shared between operations
// apart from the storage accessor.
type Service struct {
	acc      storage.Accessor
	cfg      Config
	executor *evm.Executor
	estimate *estimate.Estimator
	tracer   *trace.Tracer
	pool     pond.Pool
	metrics  *observability.ExecutionMetrics
	logger   *slog.Logger
	stop     sync.Once
}

func NewService(acc storage.Accessor, cfg Config, logger *slog.Logger) (*Service, error) {
	if acc == nil {
		return nil, fmt.Errorf("core: accessor required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	opts := []pond.Option{}
	if cfg.QueueSize > 0 {
		opts = append(opts, pond.WithQueueSize(cfg.QueueSize))
	}
	executor := evm.New(cfg.EVM, logger.With("component", "evm"))
	return &Service{
		acc:      acc,
		cfg:      cfg,
		executor: executor,
		estimate: estimate.New(executor, cfg.Estimate, logger.With("component", "estimate")),
		tracer:   trace.New(acc, cfg.State, executor, logger.With("component", "trace")),
		pool:     pond.NewPool(cfg.Workers, opts...),
		metrics:  observability.Execution(),
		logger:   logger,
	}, nil
}

// Close stops accepting work and waits for running operations.
func (s *Service) Close() {
	s.stop.Do(s.pool.StopAndWait)
}

// Call executes req against the requested block. Domain reverts are reported
// in the result, not as an error.
func (s *Service) Call(ctx context.Context, req types.CallRequest) (*types.CallResult, error) {
	start := time.Now()
	res, err := submit(ctx, s, func(ctx context.Context) (*types.CallResult, error) {
		view, err := state.Open(ctx, s.acc, s.cfg.State, req.Block)
		if err != nil {
			return nil, err
		}
		return s.executor.Execute(ctx, view, req, evm.Options{})
	})
	s.metrics.Observe("call", outcome(res, err), time.Since(start))
	if err != nil {
		s.logFailure("call", req.Block, err)
		return nil, err
	}
	s.metrics.ObserveGas("call", res.GasUsed)
	return res, nil
}

// EstimateGas returns the lowest gas limit, within the configured
// resolution, at which req succeeds. A call that cannot succeed at any limit
// fails with a *types.RevertError.
func (s *Service) EstimateGas(ctx context.Context, req types.CallRequest) (uint64, error) {
	start := time.Now()
	gas, err := submit(ctx, s, func(ctx context.Context) (uint64, error) {
		view, err := state.Open(ctx, s.acc, s.cfg.State, req.Block)
		if err != nil {
			return 0, err
		}
		return s.estimate.Estimate(ctx, view, req)
	})
	s.metrics.Observe("estimate", outcome(nil, err), time.Since(start))
	if err != nil {
		s.logFailure("estimate", req.Block, err)
		return 0, err
	}
	s.metrics.ObserveGas("estimate", gas)
	return gas, nil
}

// Trace replays the transaction named by id, a hash or transaction id.
func (s *Service) Trace(ctx context.Context, id string, opts types.TracerOptions) (*trace.Trace, error) {
	start := time.Now()
	tr, err := submit(ctx, s, func(ctx context.Context) (*trace.Trace, error) {
		return s.tracer.Trace(ctx, id, opts)
	})
	var res *types.CallResult
	if tr != nil {
		res = tr.Result
	}
	s.metrics.Observe("trace", outcome(res, err), time.Since(start))
	if err != nil {
		s.logger.Log(ctx, failureLevel(err), "trace failed", "transaction", id, "error", err)
		return nil, err
	}
	s.metrics.ObserveTraceSteps(tr.Steps)
	return tr, nil
}

// BlockNumber returns the newest recorded block.
func (s *Service) BlockNumber(ctx context.Context) (uint64, error) {
	row, err := s.acc.LatestRecordFile(ctx)
	if err != nil {
		return 0, fmt.Errorf("load latest block: %w", err)
	}
	if row == nil {
		return 0, &types.NotFoundError{Kind: types.NotFoundBlock, ID: "latest"}
	}
	return uint64(row.Index), nil
}

// GasCap is the highest gas limit accepted for calls on the latest block.
func (s *Service) GasCap(ctx context.Context) (uint64, error) {
	view, err := state.Open(ctx, s.acc, s.cfg.State, types.LatestBlock)
	if err != nil {
		return 0, err
	}
	return s.executor.GasCap(view), nil
}

// submit runs fn on the worker pool. The caller stops waiting when ctx is
// done; fn observes the same context and abandons its reads.
func submit[T any](ctx context.Context, s *Service, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if s.pool.Stopped() {
		return zero, ErrClosed
	}
	done := s.metrics.Track()
	defer done()

	var out T
	task := s.pool.SubmitErr(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		out, err = fn(ctx)
		return err
	})
	select {
	case <-task.Done():
		if err := task.Wait(); err != nil {
			if errors.Is(err, pond.ErrPoolStopped) {
				return zero, ErrClosed
			}
			if errors.Is(err, pond.ErrPanic) {
				return zero, types.Internalf("%v", err)
			}
			return zero, err
		}
		return out, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// outcome labels an operation for metrics.
func outcome(res *types.CallResult, err error) string {
	switch {
	case err == nil && (res == nil || res.Success):
		return "success"
	case err == nil:
		return "revert"
	case errors.Is(err, types.ErrReverted):
		return "revert"
	case errors.Is(err, types.ErrUnknownBlock), errors.Is(err, types.ErrInvalidBlockTag):
		return "unknown_block"
	case errors.Is(err, types.ErrNotFound):
		return "not_found"
	case errors.Is(err, types.ErrUnsupported):
		return "unsupported"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "error"
}

// failureLevel keeps expected control flow out of warning logs.
func failureLevel(err error) slog.Level {
	if outcome(nil, err) == "error" {
		return slog.LevelWarn
	}
	return slog.LevelDebug
}

func (s *Service) logFailure(op string, block types.BlockTag, err error) {
	s.logger.Log(context.Background(), failureLevel(err), op+" failed", "block", block.String(), "error", err)
}
