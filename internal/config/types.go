package config

// Config holds all w3dash configuration.
type Config struct {
	Network        string              `json:"network"         mapstructure:"network"`
	NetworkMode    string              `json:"network_mode"    mapstructure:"network_mode"` // "mainnet" | "testnet"
	RPCURL         string              `json:"rpc_url"         mapstructure:"rpc_url"`
	TokenAddress   string              `json:"token_address"   mapstructure:"token_address"`
	FaucetAddress  string              `json:"faucet_address"  mapstructure:"faucet_address"`
	Variant        string              `json:"variant"         mapstructure:"variant"` // "sydney" | "faucet"
	Connector      string              `json:"connector"       mapstructure:"connector"`
	DefaultWallet  string              `json:"default_wallet"  mapstructure:"default_wallet"`
	WatchAddress   string              `json:"watch_address"   mapstructure:"watch_address"`
	ReceiptTimeout int                 `json:"receipt_timeout" mapstructure:"receipt_timeout"` // seconds
	LogLevel       string              `json:"log_level"       mapstructure:"log_level"`
	MetricsAddr    string              `json:"metrics_addr"    mapstructure:"metrics_addr"`
	CustomRPCs     map[string][]string `json:"custom_rpcs"     mapstructure:"custom_rpcs"`

	// internal: config dir path used for Save()
	configDir string
}
