package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Fuentes de datos on-chain soportadas.
const (
	SourceMock = "mock"
	SourceRPC  = "rpc"
)

// Config es la configuración completa de intuibets.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Chain   ChainConfig   `yaml:"chain"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// EngineConfig controla la liquidación.
type EngineConfig struct {
	FeeBpsDefault int64 `yaml:"fee_bps_default"` // fee fijo si fee_from_chain es false
	FeeFromChain  *bool `yaml:"fee_from_chain"`  // nil = true
	TokenDecimals int32 `yaml:"token_decimals"`
}

// ChainConfig controla de dónde se leen eventos y apuestas.
type ChainConfig struct {
	Source       string  `yaml:"source"` // mock | rpc
	RPCURL       string  `yaml:"rpc_url"`
	Contract     string  `yaml:"contract"`
	RatePerSec   float64 `yaml:"rate_per_sec"`
	FixturePath  string  `yaml:"fixture_path"`
	FetchWorkers int     `yaml:"fetch_workers"`
	FetchRetries int     `yaml:"fetch_retries"`
}

// StorageConfig controla dónde se persisten los leaderboards.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, ":memory:", o vacío = sin persistencia
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las variables de entorno sobreescriben los valores del YAML.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// UseChainFee indica si el fee se lee de la cadena.
func (c *Config) UseChainFee() bool {
	return c.Engine.FeeFromChain == nil || *c.Engine.FeeFromChain
}

func (c *Config) validate() error {
	switch c.Chain.Source {
	case SourceMock:
		if c.Chain.FixturePath == "" {
			return fmt.Errorf("chain.fixture_path is required for source %q", SourceMock)
		}
	case SourceRPC:
		if c.Chain.RPCURL == "" || c.Chain.Contract == "" {
			return fmt.Errorf("chain.rpc_url and chain.contract are required for source %q", SourceRPC)
		}
	default:
		return fmt.Errorf("chain.source %q: want %s|%s", c.Chain.Source, SourceMock, SourceRPC)
	}
	if c.Engine.FeeBpsDefault < 0 || c.Engine.FeeBpsDefault > 10_000 {
		return fmt.Errorf("engine.fee_bps_default %d out of range 0..10000", c.Engine.FeeBpsDefault)
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("CHAIN_SOURCE"); v != "" {
		cfg.Chain.Source = v
	}
	if v := os.Getenv("CHAIN_RPC_URL"); v != "" {
		cfg.Chain.RPCURL = v
	}
	if v := os.Getenv("CHAIN_CONTRACT"); v != "" {
		cfg.Chain.Contract = v
	}
	if v := os.Getenv("STORAGE_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	cfg.Chain.Source = strings.ToLower(strings.TrimSpace(cfg.Chain.Source))
	if cfg.Chain.Source == "" {
		cfg.Chain.Source = SourceMock
	}
	if cfg.Engine.TokenDecimals <= 0 {
		cfg.Engine.TokenDecimals = 18
	}
	if cfg.Chain.RatePerSec <= 0 {
		cfg.Chain.RatePerSec = 20
	}
	if cfg.Chain.FetchWorkers <= 0 {
		cfg.Chain.FetchWorkers = 8
	}
	if cfg.Chain.FetchRetries < 0 {
		cfg.Chain.FetchRetries = 0
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
