package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesTOML(t *testing.T) {
	path := writeConfig(t, "mirror.toml", `ListenAddress = "127.0.0.1:9000"
Environment = "staging"
Workers = 3

[Database]
Driver = "postgres"
DSN = "host=db user=mirror dbname=mirror"
QueryTimeout = "2s"

[EVM]
ChainID = 296
BlockGasLimit = 30000000
MaxGasLimit = 15000000
Mode = "legacy"
Shard = 0
Realm = 0

[EVM.ExchangeRate]
CentEquivalent = 30
HbarEquivalent = 1

[Estimate]
IterationThreshold = 500
MaxIterations = 30
TolerancePercent = 10

[RateLimit]
RequestsPerMinute = 120
Burst = 5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddress != "127.0.0.1:9000" || cfg.Environment != "staging" || cfg.Workers != 3 {
		t.Fatalf("unexpected top-level settings: %+v", cfg)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.QueryTimeout != 2*time.Second {
		t.Fatalf("unexpected database settings: %+v", cfg.Database)
	}
	if cfg.EVM.ChainID != 296 || cfg.EVM.Mode != "legacy" || cfg.EVM.MaxGasLimit != 15_000_000 {
		t.Fatalf("unexpected evm settings: %+v", cfg.EVM)
	}
	if cfg.EVM.ExchangeRate.CentEquivalent != 30 {
		t.Fatalf("unexpected exchange rate: %+v", cfg.EVM.ExchangeRate)
	}
	if cfg.Estimate.IterationThreshold != 500 || cfg.Estimate.MaxIterations != 30 || cfg.Estimate.TolerancePercent != 10 {
		t.Fatalf("unexpected estimate settings: %+v", cfg.Estimate)
	}
	if cfg.RateLimit.RequestsPerMinute != 120 || cfg.RateLimit.Burst != 5 {
		t.Fatalf("unexpected rate limit: %+v", cfg.RateLimit)
	}
}

func TestLoadParsesYAML(t *testing.T) {
	path := writeConfig(t, "mirror.yaml", `database:
  driver: sqlite
  dsn: "file::memory:"
  queryTimeout: 750ms
evm:
  mode: modularized
  shard: 1
  realm: 2
telemetry:
  endpoint: collector:4318
  traces: true
  sampleRatio: 0.25
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Database.QueryTimeout != 750*time.Millisecond {
		t.Fatalf("query timeout = %v", cfg.Database.QueryTimeout)
	}
	if cfg.EVM.Shard != 1 || cfg.EVM.Realm != 2 {
		t.Fatalf("shard/realm = %d/%d", cfg.EVM.Shard, cfg.EVM.Realm)
	}
	if !cfg.Telemetry.Traces || cfg.Telemetry.SampleRatio != 0.25 {
		t.Fatalf("unexpected telemetry: %+v", cfg.Telemetry)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "mirror.toml", `[Database]
Driver = "SQLite"
DSN = "file:mirror.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("driver not normalised: %q", cfg.Database.Driver)
	}
	if cfg.ListenAddress != DefaultListenAddress || cfg.Database.QueryTimeout != DefaultQueryTimeout {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Workers != runtime.NumCPU() {
		t.Fatalf("workers = %d, want %d", cfg.Workers, runtime.NumCPU())
	}
	if cfg.EVM.MaxGasLimit != DefaultBlockGasLimit || cfg.EVM.Mode != "modularized" {
		t.Fatalf("unexpected evm defaults: %+v", cfg.EVM)
	}
	if cfg.RateLimit.RequestsPerMinute != DefaultRequestsPerMinute {
		t.Fatalf("rate limit default = %d", cfg.RateLimit.RequestsPerMinute)
	}
}

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "mirror.toml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not persisted: %v", err)
	}
	again, err := Load(path)
	if err != nil {
		t.Fatalf("reload persisted config: %v", err)
	}
	if again.Database != cfg.Database || again.EVM != cfg.EVM {
		t.Fatalf("persisted config differs: %+v vs %+v", again, cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"driver":    "[Database]\nDriver = \"mysql\"\nDSN = \"x\"\n",
		"dsn":       "[Database]\nDriver = \"sqlite\"\n",
		"mode":      "[Database]\nDriver = \"sqlite\"\nDSN = \"x\"\n[EVM]\nMode = \"turbo\"\n",
		"gas":       "[Database]\nDriver = \"sqlite\"\nDSN = \"x\"\n[EVM]\nBlockGasLimit = 100\nMaxGasLimit = 200\n",
		"tolerance": "[Database]\nDriver = \"sqlite\"\nDSN = \"x\"\n[Estimate]\nTolerancePercent = 250.0\n",
		"unknown":   "[Database]\nDriver = \"sqlite\"\nDSN = \"x\"\nBogus = 1\n",
	}
	for name, contents := range cases {
		path := writeConfig(t, "mirror.toml", contents)
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := Load(writeConfig(t, "mirror.json", "{}")); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Fatalf("expected unsupported format error, got %v", err)
	}
}
