package config

import (
	"time"

	"github.com/Mohsinsiddi/w3dash/internal/chain"
)

// Defaults. The dashboard targets Sepolia unless told otherwise.
const (
	DefaultNetwork        = "ethereum"
	DefaultMode           = "testnet"
	DefaultVariant        = "faucet"
	DefaultConnector      = "keychain"
	DefaultLogLevel       = "info"
	DefaultReceiptTimeout = int(chain.DefaultReceiptTimeout / time.Second) // seconds

	EnvPrefix = "W3DASH"
	EnvDir    = "W3DASH_CONFIG_DIR"
)

// File names inside the config dir.
const (
	configFile  = "config.json"
	walletsFile = "wallets.json"
	logFile     = "w3dash.log"
	keysDir     = "keys"
)

// RPCSelectTimeout bounds the chain ID probe on startup.
const RPCSelectTimeout = 10 * time.Second
