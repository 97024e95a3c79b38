package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3dash/internal/chain"
	"github.com/Mohsinsiddi/w3dash/internal/config"
	"github.com/Mohsinsiddi/w3dash/internal/forms"
	"github.com/Mohsinsiddi/w3dash/internal/ui"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Read and change ~/.w3dash/config.json.

Keys: ` + strings.Join(config.Keys, ", "),
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show current configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pairs := make([][2]string, 0, len(config.Keys))
		for _, k := range config.Keys {
			v, _ := cfg.Get(k)
			if v == "" {
				v = ui.Meta("-")
			}
			pairs = append(pairs, [2]string{k, v})
		}
		names := make([]string, 0, len(cfg.CustomRPCs))
		for name := range cfg.CustomRPCs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			for _, u := range cfg.CustomRPCs[name] {
				pairs = append(pairs, [2]string{"rpc:" + name, u})
			}
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.KeyValueBlock("Current Configuration", pairs))
		fmt.Fprintln(out, ui.Meta("Config directory: "+cfg.Dir()))
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := cfg.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), v)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one configuration value",
	Example: `  w3dash config set token_address 0x5FbDB2315678afecb367f032d93F642f64180aa3
  w3dash config set faucet_address 0xe7f1725E7734CE288F8367e1Bb143E90bb3F0512
  w3dash config set variant sydney`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		switch key {
		case "variant":
			if _, err := forms.GetVariant(value); err != nil {
				return err
			}
		case "network":
			if _, err := chain.NewRegistry().GetByName(value); err != nil {
				return fmt.Errorf("network %q: %w", value, err)
			}
		}
		if err := cfg.Set(key, value); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		v, _ := cfg.Get(key)
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("%s set to %q", key, v)))
		return nil
	},
}

var configAddRPCCmd = &cobra.Command{
	Use:   "add-rpc <network> <url>",
	Short: "Add a custom RPC endpoint for a network",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, url := strings.ToLower(args[0]), args[1]
		out := cmd.OutOrStdout()
		if err := cfg.AddRPC(name, url); err != nil {
			fmt.Fprintln(out, ui.Warn(err.Error()))
			return nil
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success(fmt.Sprintf("RPC for %s added: %s", name, url)))
		return nil
	},
}

var configRemoveRPCCmd = &cobra.Command{
	Use:   "remove-rpc <network> <url>",
	Short: "Remove a custom RPC endpoint",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, url := strings.ToLower(args[0]), args[1]
		if err := cfg.RemoveRPC(name, url); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("RPC for %s removed: %s", name, url)))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configListCmd, configGetCmd, configSetCmd, configAddRPCCmd, configRemoveRPCCmd)
}
