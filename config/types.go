package config

import "time"

// Database selects the temporal store backing every state view.
type Database struct {
	// Driver is "postgres" or "sqlite".
	Driver       string        `toml:"Driver" yaml:"driver"`
	DSN          string        `toml:"DSN" yaml:"dsn"`
	QueryTimeout time.Duration `toml:"QueryTimeout" yaml:"queryTimeout"`
	MaxOpenConns int           `toml:"MaxOpenConns" yaml:"maxOpenConns"`
	MaxIdleConns int           `toml:"MaxIdleConns" yaml:"maxIdleConns"`
}

// EVM captures the network parameters of simulated execution.
type EVM struct {
	ChainID       uint64 `toml:"ChainID" yaml:"chainId"`
	BlockGasLimit uint64 `toml:"BlockGasLimit" yaml:"blockGasLimit"`
	MaxGasLimit   uint64 `toml:"MaxGasLimit" yaml:"maxGasLimit"`
	// Mode is "modularized" or "legacy".
	Mode     string `toml:"Mode" yaml:"mode"`
	Shard    int64  `toml:"Shard" yaml:"shard"`
	Realm    int64  `toml:"Realm" yaml:"realm"`
	LedgerID string `toml:"LedgerID" yaml:"ledgerId"`
	// ExchangeRate is served by the exchange rate system contract.
	ExchangeRate ExchangeRate `toml:"ExchangeRate" yaml:"exchangeRate"`
}

// ExchangeRate is CentEquivalent cents per HbarEquivalent hbars.
type ExchangeRate struct {
	CentEquivalent int64 `toml:"CentEquivalent" yaml:"centEquivalent"`
	HbarEquivalent int64 `toml:"HbarEquivalent" yaml:"hbarEquivalent"`
}

// Estimate bounds the gas estimation search.
type Estimate struct {
	// IterationThreshold is an absolute gas resolution.
	IterationThreshold uint64  `toml:"IterationThreshold" yaml:"iterationThreshold"`
	MaxIterations      int     `toml:"MaxIterations" yaml:"maxIterations"`
	TolerancePercent   float64 `toml:"TolerancePercent" yaml:"tolerancePercent"`
}

// RateLimit throttles the JSON-RPC endpoint per client address.
type RateLimit struct {
	RequestsPerMinute uint32 `toml:"RequestsPerMinute" yaml:"requestsPerMinute"`
	Burst             int    `toml:"Burst" yaml:"burst"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	Endpoint    string            `toml:"Endpoint" yaml:"endpoint"`
	Insecure    bool              `toml:"Insecure" yaml:"insecure"`
	Headers     map[string]string `toml:"Headers" yaml:"headers"`
	Traces      bool              `toml:"Traces" yaml:"traces"`
	Metrics     bool              `toml:"Metrics" yaml:"metrics"`
	SampleRatio float64           `toml:"SampleRatio" yaml:"sampleRatio"`
}
