package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3dash/internal/provider"
	"github.com/Mohsinsiddi/w3dash/internal/ui"
)

var connectorsCmd = &cobra.Command{
	Use:   "connectors",
	Short: "List the ways a wallet session can be opened",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := newWalletManager()
		p := provider.NewEVMProvider(nil, provider.Options{
			Wallets:      mgr,
			WalletName:   cfg.DefaultWallet,
			WatchAddress: cfg.WatchAddress,
		})

		t := ui.NewTable([]ui.Column{
			{Title: "ID", Width: 10},
			{Title: "Connector", Width: 18},
			{Title: "Ready", Width: 6},
			{Title: "Signs", Width: 6},
			{Title: "Detail", Width: 44},
		})
		for _, c := range p.Connectors() {
			ready := ui.StyleError.Render("✗")
			if c.Ready {
				ready = ui.StyleSuccess.Render("✓")
			}
			signs := ui.Meta("no")
			if c.CanSign {
				signs = ui.Val("yes")
			}
			row := ui.Row{ui.Val(c.ID), c.Name, ready, signs, ui.Meta(c.Detail)}
			if c.ID == cfg.Connector {
				t.AddActiveRow(row)
				continue
			}
			t.AddRow(row)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, t.Render())
		fmt.Fprintln(out, ui.Hint("Open a session with: w3dash connect <id>"))
		return nil
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect [connector]",
	Short: "Open a wallet session and remember the connector",
	Long: `Connect through one of the connectors listed by "w3dash connectors".
Signing connectors prove they hold the key before the session opens. With
no argument an interactive picker is shown.

  w3dash connect env
  w3dash connect keychain
  w3dash connect watch`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.close()

		id := ""
		if len(args) > 0 {
			id = strings.ToLower(args[0])
		} else {
			picked, err := ui.PickItem("Connect Wallet", ui.ConnectorItems(a.picker.ListConnectors()))
			if err != nil {
				return err
			}
			if picked == "" {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Meta("Cancelled."))
				return nil
			}
			id = picked
		}

		acct, err := a.picker.SelectConnector(ctx, id)
		if err != nil {
			return err
		}
		cfg.Connector = id
		if err := cfg.Save(); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.Success("Connected via "+id))
		fmt.Fprintln(out, accountBlock(a, acct))
		if !acct.CanSign {
			fmt.Fprintln(out, ui.Warn("Read-only session: write operations will be rejected."))
		}
		return nil
	},
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Close the wallet session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg.Connector == "" {
			fmt.Fprintln(out, ui.Meta("No session to close."))
			return nil
		}
		cfg.Connector = ""
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.Success("Disconnected."))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the network, contracts and wallet session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.close()

		faucet := ui.Meta("not set")
		if a.faucet != nil {
			faucet = ui.Addr(a.faucet.Hex())
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.KeyValueBlock("Status", [][2]string{
			{"Network", ui.ChainName(a.network())},
			{"RPC", ui.Meta(a.rpcURL)},
			{"Token", ui.Addr(a.token.Hex())},
			{"Faucet", faucet},
			{"Variant", a.variant.Name},
		}))

		if cfg.Connector == "" {
			fmt.Fprintln(out, ui.Info("Not connected."))
			fmt.Fprintln(out, ui.Hint("Connect with: w3dash connect"))
			return nil
		}
		acct, err := a.connect(ctx)
		if err != nil {
			fmt.Fprintln(out, ui.Err(err.Error()))
			return nil
		}
		fmt.Fprintln(out, accountBlock(a, acct))
		return nil
	},
}

func accountBlock(a *app, acct provider.Account) string {
	addr := ui.Addr(acct.Address.Hex())
	if a.variant.IsOwner(acct.Address) {
		addr += "  " + ui.OwnerBadge()
	}
	signs := "yes"
	if !acct.CanSign {
		signs = "no (read-only)"
	}
	return ui.KeyValueBlock("Session", [][2]string{
		{"Address", addr},
		{"Connector", acct.Connector},
		{"Chain ID", fmt.Sprintf("%d", acct.ChainID)},
		{"Can sign", signs},
	})
}
