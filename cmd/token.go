package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3dash/internal/txflow"
	"github.com/Mohsinsiddi/w3dash/internal/ui"
)

var mintCmd = &cobra.Command{
	Use:   "mint <to> <amount>",
	Short: "Mint new tokens to an address (owner only)",
	Example: `  w3dash mint 0x70997970C51812dc3A010C7d01b50e0d17dc79C8 100
  w3dash mint 0x70997970C51812dc3A010C7d01b50e0d17dc79C8 0.5 --yes`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(cmd, txflow.Mint, txflow.Params{
			txflow.ParamTo:     args[0],
			txflow.ParamAmount: args[1],
		})
	},
}

var burnCmd = &cobra.Command{
	Use:   "burn <amount>",
	Short: "Burn tokens from the connected account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(cmd, txflow.Burn, txflow.Params{txflow.ParamAmount: args[0]})
	},
}

var transferCmd = &cobra.Command{
	Use:   "transfer <to> <amount>",
	Short: "Send tokens from the connected account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(cmd, txflow.Transfer, txflow.Params{
			txflow.ParamTo:     args[0],
			txflow.ParamAmount: args[1],
		})
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve <spender> <amount>",
	Short: "Allow spender to transfer tokens on your behalf",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(cmd, txflow.Approve, txflow.Params{
			txflow.ParamSpender: args[0],
			txflow.ParamAmount:  args[1],
		})
	},
}

var transferFromCmd = &cobra.Command{
	Use:   "transfer-from <from> <to> <amount>",
	Short: "Move tokens out of an account that approved you",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(cmd, txflow.TransferFrom, txflow.Params{
			txflow.ParamFrom:   args[0],
			txflow.ParamTo:     args[1],
			txflow.ParamAmount: args[2],
		})
	},
}

var renounceCmd = &cobra.Command{
	Use:   "renounce",
	Short: "Give up token ownership permanently (owner only)",
	Long: `Renounce ownership of the token. Nobody can mint afterwards and this
cannot be undone.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !assumeYes && !ui.ConfirmFrom(stdin, cmd.ErrOrStderr(), "Renounce ownership permanently?") {
			fmt.Fprintln(cmd.OutOrStdout(), ui.Meta("Cancelled."))
			return nil
		}
		return runOp(cmd, txflow.Renounce, txflow.Params{})
	},
}

// runOp submits one write through the configured connector.
func runOp(cmd *cobra.Command, kind txflow.Kind, params txflow.Params) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	if !a.variant.Allows(kind) {
		return fmt.Errorf("%s is not available in the %s variant", kind, a.variant.Name)
	}
	return a.submit(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), kind, params)
}
