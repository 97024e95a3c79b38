package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/Mohsinsiddi/w3dash/internal/chain"
)

// ErrUnknownKey is returned by Set for keys the config does not have.
var ErrUnknownKey = errors.New("unknown config key")

// Keys lists every settable key in display order.
var Keys = []string{
	"network", "network_mode", "rpc_url", "token_address", "faucet_address",
	"variant", "connector", "default_wallet", "watch_address",
	"receipt_timeout", "log_level", "metrics_addr",
}

// DefaultDir returns $W3DASH_CONFIG_DIR or ~/.w3dash.
func DefaultDir() (string, error) {
	if dir := os.Getenv(EnvDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home dir: %w", err)
	}
	return filepath.Join(home, ".w3dash"), nil
}

// Load reads config.json from dir over the defaults and applies W3DASH_*
// environment overrides. dir defaults to DefaultDir.
func Load(dir string) (*Config, error) {
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigType("json")
	v.SetConfigFile(filepath.Join(dir, configFile))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.configDir = dir
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("network", DefaultNetwork)
	v.SetDefault("network_mode", DefaultMode)
	v.SetDefault("rpc_url", "")
	v.SetDefault("token_address", "")
	v.SetDefault("faucet_address", "")
	v.SetDefault("variant", DefaultVariant)
	v.SetDefault("connector", DefaultConnector)
	v.SetDefault("default_wallet", "")
	v.SetDefault("watch_address", "")
	v.SetDefault("receipt_timeout", DefaultReceiptTimeout)
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("metrics_addr", "")
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.configDir, configFile), data, 0o600)
}

// Get returns the string form of key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "network":
		return c.Network, nil
	case "network_mode":
		return c.NetworkMode, nil
	case "rpc_url":
		return c.RPCURL, nil
	case "token_address":
		return c.TokenAddress, nil
	case "faucet_address":
		return c.FaucetAddress, nil
	case "variant":
		return c.Variant, nil
	case "connector":
		return c.Connector, nil
	case "default_wallet":
		return c.DefaultWallet, nil
	case "watch_address":
		return c.WatchAddress, nil
	case "receipt_timeout":
		return strconv.Itoa(c.ReceiptTimeout), nil
	case "log_level":
		return c.LogLevel, nil
	case "metrics_addr":
		return c.MetricsAddr, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
}

// Set assigns key from its string form. Addresses are stored checksummed.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case "network":
		c.Network = strings.ToLower(value)
	case "network_mode":
		if value != "mainnet" && value != "testnet" {
			return fmt.Errorf("network_mode must be mainnet or testnet, got %q", value)
		}
		c.NetworkMode = value
	case "rpc_url":
		c.RPCURL = value
	case "token_address", "faucet_address", "watch_address":
		if value != "" {
			if !common.IsHexAddress(value) {
				return fmt.Errorf("%s: invalid address %q", key, value)
			}
			value = common.HexToAddress(value).Hex()
		}
		switch key {
		case "token_address":
			c.TokenAddress = value
		case "faucet_address":
			c.FaucetAddress = value
		default:
			c.WatchAddress = value
		}
	case "variant":
		c.Variant = value
	case "connector":
		c.Connector = value
	case "default_wallet":
		c.DefaultWallet = value
	case "receipt_timeout":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("receipt_timeout must be a positive number of seconds, got %q", value)
		}
		c.ReceiptTimeout = n
	case "log_level":
		c.LogLevel = value
	case "metrics_addr":
		c.MetricsAddr = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return nil
}

// AddRPC adds a custom RPC URL for a chain.
func (c *Config) AddRPC(chainName, url string) error {
	if c.CustomRPCs == nil {
		c.CustomRPCs = make(map[string][]string)
	}
	if slices.Contains(c.CustomRPCs[chainName], url) {
		return fmt.Errorf("RPC %s already exists for chain %s", url, chainName)
	}
	c.CustomRPCs[chainName] = append(c.CustomRPCs[chainName], url)
	return nil
}

// RemoveRPC removes a custom RPC URL for a chain.
func (c *Config) RemoveRPC(chainName, url string) error {
	rpcs := c.CustomRPCs[chainName]
	idx := slices.Index(rpcs, url)
	if idx == -1 {
		return fmt.Errorf("RPC %s not found for chain %s", url, chainName)
	}
	c.CustomRPCs[chainName] = slices.Delete(rpcs, idx, idx+1)
	return nil
}

// GetRPCs returns custom RPCs for a chain.
func (c *Config) GetRPCs(chainName string) []string {
	return c.CustomRPCs[chainName]
}

// ResolveRPC picks the endpoint: rpc_url, then the first custom RPC of the
// network, then the registry's default for the current mode.
func (c *Config) ResolveRPC(reg *chain.Registry) (string, *chain.Chain, error) {
	ch, err := reg.GetByName(c.Network)
	if err != nil {
		return "", nil, fmt.Errorf("network %q: %w", c.Network, err)
	}
	if c.RPCURL != "" {
		return c.RPCURL, ch, nil
	}
	if custom := c.GetRPCs(ch.Name); len(custom) > 0 {
		return custom[0], ch, nil
	}
	rpcs := ch.RPCs(c.NetworkMode)
	if len(rpcs) == 0 {
		return "", nil, fmt.Errorf("no RPC configured for %s %s", ch.Name, c.NetworkMode)
	}
	return rpcs[0], ch, nil
}

// RPCCandidates lists the endpoints worth probing when rpc_url is unset:
// the network's custom RPCs, then the registry defaults for the mode.
func (c *Config) RPCCandidates(reg *chain.Registry) ([]string, *chain.Chain, error) {
	ch, err := reg.GetByName(c.Network)
	if err != nil {
		return nil, nil, fmt.Errorf("network %q: %w", c.Network, err)
	}
	if c.RPCURL != "" {
		return []string{c.RPCURL}, ch, nil
	}
	var out []string
	for _, u := range append(slices.Clone(c.GetRPCs(ch.Name)), ch.RPCs(c.NetworkMode)...) {
		if !slices.Contains(out, u) {
			out = append(out, u)
		}
	}
	return out, ch, nil
}

// Token returns the configured token address.
func (c *Config) Token() (common.Address, error) {
	if c.TokenAddress == "" {
		return common.Address{}, errors.New("token_address is not set (w3dash config set token_address 0x...)")
	}
	if !common.IsHexAddress(c.TokenAddress) {
		return common.Address{}, fmt.Errorf("token_address: invalid address %q", c.TokenAddress)
	}
	return common.HexToAddress(c.TokenAddress), nil
}

// Faucet returns the configured faucet address, or nil when unset.
func (c *Config) Faucet() (*common.Address, error) {
	if c.FaucetAddress == "" {
		return nil, nil
	}
	if !common.IsHexAddress(c.FaucetAddress) {
		return nil, fmt.Errorf("faucet_address: invalid address %q", c.FaucetAddress)
	}
	a := common.HexToAddress(c.FaucetAddress)
	return &a, nil
}

// ReceiptWait returns receipt_timeout as a duration.
func (c *Config) ReceiptWait() time.Duration {
	if c.ReceiptTimeout <= 0 {
		return chain.DefaultReceiptTimeout
	}
	return time.Duration(c.ReceiptTimeout) * time.Second
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// WalletsPath is where the wallet store lives.
func (c *Config) WalletsPath() string {
	return filepath.Join(c.configDir, walletsFile)
}

// LogPath is where the rotating log file lives.
func (c *Config) LogPath() string {
	return filepath.Join(c.configDir, logFile)
}

// KeysDir is the file keyring fallback directory.
func (c *Config) KeysDir() string {
	return filepath.Join(c.configDir, keysDir)
}
