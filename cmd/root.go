package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3dash/internal/config"
	"github.com/Mohsinsiddi/w3dash/internal/logging"
	"github.com/Mohsinsiddi/w3dash/internal/ui"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/w3dash/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir        string
	cfg           *config.Config
	logger        *logging.Logger
	verbose       bool
	testnet       bool
	mainnet       bool
	assumeYes     bool
	connectorFlag string
	variantFlag   string

	// stdin is where confirmation prompts read from.
	stdin io.Reader = os.Stdin
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "w3dash",
	Short: "Token and faucet dashboard for an ERC-20 contract",
	Long: `w3dash: connect a wallet, watch an ERC-20 token and its faucet, and run
mint, burn, transfer, approve, claim and fund operations from the terminal.

Run "w3dash dashboard" for the interactive view, or use one command per
operation. Settings live in ~/.w3dash/config.json (override with --config or
W3DASH_CONFIG_DIR) and every key can be overridden with a W3DASH_* variable.

Global flags --testnet and --mainnet override the configured network mode
for a single invocation (default: testnet, Sepolia).`,
	Version:       Version,
	Args:          cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(cmd.OutOrStdout(), ui.Banner())
		return cmd.Help()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config (skip for commands that don't need it).
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if testnet {
			cfg.NetworkMode = "testnet"
		}
		if mainnet {
			cfg.NetworkMode = "mainnet"
		}
		if connectorFlag != "" {
			cfg.Connector = connectorFlag
		}
		if variantFlag != "" {
			cfg.Variant = variantFlag
		}

		logger, err = logging.New(logging.Config{
			Path:    cfg.LogPath(),
			Level:   cfg.LogLevel,
			Verbose: verbose,
			Console: cmd.ErrOrStderr(),
		})
		if err != nil {
			return err
		}
		logger.Debug("starting", zapArgs(cmd)...)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Close() //nolint:errcheck
		}
	},
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, renderErr(err))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", "", "config directory (default: ~/.w3dash)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging, also written to stderr")
	rootCmd.PersistentFlags().BoolVar(&testnet, "testnet", false, "use testnet instead of mainnet")
	rootCmd.PersistentFlags().BoolVar(&mainnet, "mainnet", false, "use mainnet instead of testnet")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "approve signature requests without prompting")
	rootCmd.PersistentFlags().StringVar(&connectorFlag, "connector", "", "connector to use for this invocation (keychain, env, watch)")
	rootCmd.PersistentFlags().StringVar(&variantFlag, "variant", "", "dashboard variant (sydney, faucet)")
	rootCmd.MarkFlagsMutuallyExclusive("testnet", "mainnet")

	// Register all sub-commands.
	rootCmd.AddCommand(
		connectorsCmd,
		connectCmd,
		disconnectCmd,
		statusCmd,
		infoCmd,
		balanceCmd,
		allowanceCmd,
		mintCmd,
		burnCmd,
		transferCmd,
		approveCmd,
		transferFromCmd,
		renounceCmd,
		faucetCmd,
		dashboardCmd,
		walletCmd,
		configCmd,
	)
}
