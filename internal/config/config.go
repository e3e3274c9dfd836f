// Package config loads the TOML configuration file described in spec §6
// into one typed Config that each worker reads its settings from. Loading
// mechanics are deliberately thin (spec.md names "configuration loading" as
// an out-of-scope collaborator); the shape — Load() / LoadFrom(path)
// returning one typed Config whose fields callers read directly — follows
// the teacher's configs.Config pattern, swapped from YAML to TOML. There are
// no per-component To*Config derivation methods.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is the root TOML document, matching spec §6's section list.
type Config struct {
	Database  DatabaseConfig   `toml:"database"`
	Torii     ToriiConfig      `toml:"torii"`
	Avnu      AvnuConfig       `toml:"avnu"`
	Ekubo     EkuboConfig      `toml:"ekubo"`
	Starknet  StarknetConfig   `toml:"starknet"`
	Tokens    []TokenConfig    `toml:"token"`
	Default   DefaultConfig    `toml:"default"`
	Address   string           `toml:"address"`
	Port      int              `toml:"port"`
	CORS      CORSConfig       `toml:"cors"`
	DropEmitterWallets []string `toml:"drop_emitter_wallets"`
	ProtocolFeeRateBasisPoints uint64 `toml:"protocol_fee_rate_basis_points"`
}

type DatabaseConfig struct {
	URL string `toml:"url"`
}

type ToriiConfig struct {
	ToriiURL     string `toml:"torii_url"`
	WorldAddress string `toml:"world_address"`
}

type AvnuConfig struct {
	APIURL string `toml:"api_url"`
}

type EkuboConfig struct {
	APIURL  string `toml:"api_url"`
	ChainID string `toml:"chain_id"`
}

type StarknetConfig struct {
	RPCURL string `toml:"rpc_url"`
}

type TokenConfig struct {
	Address  string `toml:"address"`
	Symbol   string `toml:"symbol"`
	Decimals int32  `toml:"decimals"`
}

type DefaultConfig struct {
	Token string `toml:"token"`
}

type CORSConfig struct {
	Origins []string `toml:"origins"`
}

// DefaultConfigPath is used when CONFIG_PATH is unset.
const DefaultConfigPath = "./config.toml"

// Load reads CONFIG_PATH (or DefaultConfigPath), applies a .env file if
// present, then lets real environment variables override file values for
// the handful of fields operators commonly override at deploy time
// (database URL, torii URL, port).
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultConfigPath
	}
	return LoadFrom(path)
}

// LoadFrom reads and parses a TOML file at path into a Config.
func LoadFrom(path string) (*Config, error) {
	_ = godotenv.Load() // best-effort; absence of a .env file is not an error

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config TOML %s: %w", path, err)
	}
	cfg.applyEnvOverrides()
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v, ok := os.LookupEnv("DATABASE_URL"); ok {
		c.Database.URL = v
	}
	if v, ok := os.LookupEnv("TORII_URL"); ok {
		c.Torii.ToriiURL = v
	}
	if v, ok := os.LookupEnv("PORT"); ok {
		if port, err := parsePort(v); err == nil {
			c.Port = port
		}
	}
}

func parsePort(s string) (int, error) {
	var port int
	_, err := fmt.Sscanf(s, "%d", &port)
	return port, err
}

// IngestPollInterval is the §4.2/§4.3 event & model ingester poll period.
const IngestPollInterval = 10 * time.Second

// PnlPollInterval is the §4.4 PnL deriver poll period.
const PnlPollInterval = 10 * time.Second

// AvnuUpdateInterval is the §4.7 Avnu updater cron period.
const AvnuUpdateInterval = 30 * time.Second

// PriceFeedRecordInterval is the §4.7 price-feed recorder cron period.
const PriceFeedRecordInterval = 60 * time.Second

// IngestSafetyBuffer is subtracted from the last-seen event timestamp before
// polling, to tolerate upstream timestamp precision loss (spec §4.2).
const IngestSafetyBuffer = 1 * time.Second

// ExternalRequestTimeout bounds calls to Torii, Avnu, Ekubo and the Starknet
// RPC endpoint (spec §5: "~20s").
const ExternalRequestTimeout = 20 * time.Second
