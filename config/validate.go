package config

import (
	"fmt"
	"strings"

	"mirrorevm/core/types"
)

// MaxTolerancePercent bounds the accepted overshoot of a gas estimate.
var MaxTolerancePercent = 100.0

// Validate rejects configurations the service cannot run with. It expects
// defaults to have been applied.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database: unsupported driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database: dsn required")
	}
	if _, err := types.ParseExecutionMode(c.EVM.Mode); err != nil {
		return fmt.Errorf("evm: %w", err)
	}
	if c.EVM.MaxGasLimit > c.EVM.BlockGasLimit {
		return fmt.Errorf("evm: max_gas_limit %d exceeds block_gas_limit %d", c.EVM.MaxGasLimit, c.EVM.BlockGasLimit)
	}
	if c.EVM.Shard < 0 || c.EVM.Realm < 0 {
		return fmt.Errorf("evm: shard and realm must be non-negative")
	}
	if c.EVM.ExchangeRate.CentEquivalent <= 0 || c.EVM.ExchangeRate.HbarEquivalent <= 0 {
		return fmt.Errorf("evm: exchange rate must be positive")
	}
	if c.Estimate.MaxIterations < 0 {
		return fmt.Errorf("estimate: max_iterations < 0")
	}
	if c.Estimate.TolerancePercent < 0 || c.Estimate.TolerancePercent > MaxTolerancePercent {
		return fmt.Errorf("estimate: tolerance_percent outside [0, %v]", MaxTolerancePercent)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: sample_ratio outside [0, 1]")
	}
	return nil
}
