package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/spf13/viper"
	"github.com/stellar/go/network"
)

// Config holds application configuration.
type Config struct {
	Network NetworkConfig
	Wallet  WalletConfig
	UI      UIConfig
	Log     LogConfig
}

// NetworkConfig selects the Stellar network and the Horizon endpoint.
type NetworkConfig struct {
	Name       string // "testnet" or "public"
	HorizonURL string `mapstructure:"horizon_url"`
}

// WalletConfig selects the wallet kit used for authorization and signing.
type WalletConfig struct {
	Kit       string // "local" or "bridge"
	BridgeURL string `mapstructure:"bridge_url"`
	SeedEnv   string `mapstructure:"seed_env"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	DateFormat string `mapstructure:"date_format"`
}

// LogConfig holds log file settings. The TUI owns stdout, so logs go to a file.
type LogConfig struct {
	Path  string
	Level string
}

const (
	NetworkTestnet = "testnet"
	NetworkPublic  = "public"

	KitLocal  = "local"
	KitBridge = "bridge"

	testnetHorizonURL = "https://horizon-testnet.stellar.org"
	publicHorizonURL  = "https://horizon.stellar.org"
)

var (
	knownNetworks = []string{NetworkTestnet, NetworkPublic}
	knownKits     = []string{KitLocal, KitBridge}
)

// Load reads configuration from file and env. Env var overrides use prefix LUMEN_.
func Load() (Config, error) {
	v := viper.New()

	// default values
	v.SetDefault("network.name", NetworkTestnet)
	v.SetDefault("network.horizon_url", "")
	v.SetDefault("wallet.kit", KitLocal)
	v.SetDefault("wallet.bridge_url", "http://127.0.0.1:8417")
	v.SetDefault("wallet.seed_env", "LUMEN_SEED")
	v.SetDefault("ui.date_format", "02/01 15:04")
	v.SetDefault("log.path", filepath.Join(os.Getenv("HOME"), ".local", "state", "lumen", "lumen.log"))
	v.SetDefault("log.level", "info")

	v.SetConfigType("toml")

	cfgPath := os.Getenv("LUMEN_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "lumen"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("LUMEN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Network.Name = strings.ToLower(strings.TrimSpace(c.Network.Name))
	c.Wallet.Kit = strings.ToLower(strings.TrimSpace(c.Wallet.Kit))
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	if !contains(knownNetworks, c.Network.Name) {
		return unknownValueErr("network.name", c.Network.Name, knownNetworks)
	}
	if !contains(knownKits, c.Wallet.Kit) {
		return unknownValueErr("wallet.kit", c.Wallet.Kit, knownKits)
	}
	if c.Wallet.Kit == KitBridge && strings.TrimSpace(c.Wallet.BridgeURL) == "" {
		return fmt.Errorf("wallet.bridge_url is required when wallet.kit is %q", KitBridge)
	}
	return nil
}

// Passphrase returns the network passphrase transactions must be scoped to,
// so a testnet-built transaction cannot be signed for the public network.
func (n NetworkConfig) Passphrase() string {
	if n.Name == NetworkPublic {
		return network.PublicNetworkPassphrase
	}
	return network.TestNetworkPassphrase
}

// ResolvedHorizonURL returns the configured endpoint, defaulting per network.
func (n NetworkConfig) ResolvedHorizonURL() string {
	if u := strings.TrimSpace(n.HorizonURL); u != "" {
		return u
	}
	if n.Name == NetworkPublic {
		return publicHorizonURL
	}
	return testnetHorizonURL
}

// Save writes the provided config to disk, creating the config directory if
// needed. Used by the settings view for network/endpoint preferences.
func Save(cfg Config) error {
	path := os.Getenv("LUMEN_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "lumen", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("network.name", cfg.Network.Name)
	v.Set("network.horizon_url", cfg.Network.HorizonURL)
	v.Set("wallet.kit", cfg.Wallet.Kit)
	v.Set("wallet.bridge_url", cfg.Wallet.BridgeURL)
	v.Set("wallet.seed_env", cfg.Wallet.SeedEnv)
	v.Set("ui.date_format", cfg.UI.DateFormat)
	v.Set("log.path", cfg.Log.Path)
	v.Set("log.level", cfg.Log.Level)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// unknownValueErr builds an error for an unrecognized config value, suggesting
// the closest known option when the typo is near enough.
func unknownValueErr(key, got string, options []string) error {
	if s := closest(got, options); s != "" {
		return fmt.Errorf("unknown %s %q (did you mean %q?)", key, got, s)
	}
	return fmt.Errorf("unknown %s %q (options: %s)", key, got, strings.Join(options, ", "))
}

func closest(input string, options []string) string {
	best, bestDist := "", -1
	for _, opt := range options {
		d := levenshtein.ComputeDistance(input, opt)
		if bestDist == -1 || d < bestDist {
			best, bestDist = opt, d
		}
	}
	// only suggest when the input is plausibly a typo of the option
	if bestDist >= 0 && bestDist <= len(best)/2 {
		return best
	}
	return ""
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
