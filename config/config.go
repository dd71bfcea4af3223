package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultListenAddress       = ":7546"
	DefaultQueryTimeout        = 5 * time.Second
	DefaultBlockGasLimit       = 15_000_000
	DefaultChainID             = 298
	DefaultRequestsPerMinute   = 600
	DefaultBurst               = 50
	DefaultCentEquivalent      = 12
	DefaultHbarEquivalent      = 1
	DefaultShutdownGracePeriod = 10 * time.Second
)

type Config struct {
	ListenAddress string        `toml:"ListenAddress" yaml:"listenAddress"`
	Environment   string        `toml:"Environment" yaml:"environment"`
	LogLevel      string        `toml:"LogLevel" yaml:"logLevel"`
	LogFile       string        `toml:"LogFile" yaml:"logFile"`
	Workers       int           `toml:"Workers" yaml:"workers"`
	ShutdownGrace time.Duration `toml:"ShutdownGrace" yaml:"shutdownGrace"`
	Database      Database      `toml:"Database" yaml:"database"`
	EVM           EVM           `toml:"EVM" yaml:"evm"`
	Estimate      Estimate      `toml:"Estimate" yaml:"estimate"`
	RateLimit     RateLimit     `toml:"RateLimit" yaml:"rateLimit"`
	Telemetry     Telemetry     `toml:"Telemetry" yaml:"telemetry"`
}

// Default returns a configuration serving a local sqlite mirror.
func Default() *Config {
	cfg := &Config{
		Database: Database{Driver: "sqlite", DSN: "file:mirror.db"},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads a .toml, .yaml or .yml file. A missing file is created with the
// defaults so operators have a template to edit.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := persist(path, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	cfg := &Config{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config file %s has unknown key %s", path, undecoded[0])
		}
	case ".yaml", ".yml":
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = DefaultListenAddress
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = "info"
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = DefaultShutdownGracePeriod
	}
	if c.Database.QueryTimeout <= 0 {
		c.Database.QueryTimeout = DefaultQueryTimeout
	}
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.EVM.ChainID == 0 {
		c.EVM.ChainID = DefaultChainID
	}
	if c.EVM.BlockGasLimit == 0 {
		c.EVM.BlockGasLimit = DefaultBlockGasLimit
	}
	if c.EVM.MaxGasLimit == 0 {
		c.EVM.MaxGasLimit = c.EVM.BlockGasLimit
	}
	if strings.TrimSpace(c.EVM.Mode) == "" {
		c.EVM.Mode = "modularized"
	}
	if c.EVM.ExchangeRate.CentEquivalent == 0 && c.EVM.ExchangeRate.HbarEquivalent == 0 {
		c.EVM.ExchangeRate = ExchangeRate{CentEquivalent: DefaultCentEquivalent, HbarEquivalent: DefaultHbarEquivalent}
	}
	if c.RateLimit.RequestsPerMinute == 0 {
		c.RateLimit.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = DefaultBurst
	}
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		enc := yaml.NewEncoder(f)
		defer enc.Close()
		return enc.Encode(cfg)
	default:
		return toml.NewEncoder(f).Encode(cfg)
	}
}
