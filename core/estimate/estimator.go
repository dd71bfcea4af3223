package estimate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mirrorevm/core/evm"
	"mirrorevm/core/state"
	"mirrorevm/core/types"
)

// Defaults applied to zero-valued Config fields.
const (
	DefaultIterationThreshold uint64  = 1_000
	DefaultMaxIterations              = 20
	DefaultTolerancePercent   float64 = 20
)

var errBelowIntrinsic = errors.New("gas limit below intrinsic gas")

// Config bounds the search.
type Config struct {
	// IterationThreshold ends the search once the bracket is narrower than
	// this many gas units.
	IterationThreshold uint64
	MaxIterations      int
	// TolerancePercent is the accepted overshoot of an estimate over the gas
	// actually used when re-executed at that estimate.
	TolerancePercent float64
}

func (c Config) withDefaults() Config {
	if c.IterationThreshold == 0 {
		c.IterationThreshold = DefaultIterationThreshold
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.TolerancePercent <= 0 {
		c.TolerancePercent = DefaultTolerancePercent
	}
	return c
}

// WithinTolerance reports whether estimate covers used without overshooting
// it by more than the configured band.
func (c Config) WithinTolerance(estimate, used uint64) bool {
	c = c.withDefaults()
	if estimate < used {
		return false
	}
	return float64(estimate-used) <= float64(used)*c.TolerancePercent/100
}

// Runner executes one call. *evm.Executor satisfies it.
type Runner interface {
	Execute(ctx context.Context, view *state.View, req types.CallRequest, opts evm.Options) (*types.CallResult, error)
	GasCap(view *state.View) uint64
	IntrinsicGas(view *state.View, req types.CallRequest) (uint64, error)
}

// Estimator finds the smallest gas limit a call succeeds with by binary
// search. The search ends when the bracket narrows below the iteration
// threshold or a successful trial lands within the tolerance band of the gas
// it used. Trial executions run sequentially on the caller's goroutine.
type Estimator struct {
	runner Runner
	cfg    Config
	logger *slog.Logger
}

func New(runner Runner, cfg Config, logger *slog.Logger) *Estimator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Estimator{runner: runner, cfg: cfg.withDefaults(), logger: logger}
}

// Config returns the effective search parameters.
func (e *Estimator) Config() Config { return e.cfg }

// Estimate returns the gas limit for req. A call that fails at the upper
// bound, or reverts for any reason other than gas during the search, comes
// back as a *types.RevertError.
func (e *Estimator) Estimate(ctx context.Context, view *state.View, req types.CallRequest) (uint64, error) {
	req.IsEstimate = true
	hi := e.runner.GasCap(view)
	if req.GasLimit != 0 && req.GasLimit < hi {
		hi = req.GasLimit
	}
	floor, err := e.runner.IntrinsicGas(view, req)
	if err != nil {
		return 0, fmt.Errorf("intrinsic gas: %w", err)
	}
	if hi < floor {
		return 0, &types.RevertError{Reason: fmt.Sprintf("%s: %d < %d", errBelowIntrinsic, hi, floor)}
	}

	res, err := e.run(ctx, view, req, hi)
	if err != nil {
		return 0, err
	}
	if !res.Success {
		return 0, &types.RevertError{Reason: res.Failure(), Data: res.Output}
	}

	// No limit below the gas consumed at the cap can succeed.
	lo := max(floor, res.GasConsumed) - 1
	if lo+1 < hi {
		probe, err := e.run(ctx, view, req, lo+1)
		if err != nil {
			return 0, err
		}
		switch {
		case probe.Success:
			hi = lo + 1
		case probe.OutOfGas:
			lo++
		default:
			return 0, &types.RevertError{Reason: probe.Failure(), Data: probe.Output}
		}
	}

	for i := 0; i < e.cfg.MaxIterations && hi-lo > e.cfg.IterationThreshold; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		mid := lo + (hi-lo)/2
		trial, err := e.run(ctx, view, req, mid)
		if err != nil {
			return 0, err
		}
		switch {
		case trial.Success:
			hi = mid
		case trial.OutOfGas:
			lo = mid
		default:
			return 0, &types.RevertError{Reason: trial.Failure(), Data: trial.Output}
		}
		e.logger.Debug("estimate iteration", "iteration", i, "gas", mid, "success", trial.Success, "lo", lo, "hi", hi)
		if trial.Success && e.cfg.WithinTolerance(mid, trial.GasUsed) {
			break
		}
	}
	return hi, nil
}

func (e *Estimator) run(ctx context.Context, view *state.View, req types.CallRequest, gas uint64) (*types.CallResult, error) {
	return e.runner.Execute(ctx, view, req.WithGas(gas), evm.Options{})
}
