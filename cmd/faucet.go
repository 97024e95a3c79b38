package cmd

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3dash/internal/forms"
	"github.com/Mohsinsiddi/w3dash/internal/readcache"
	"github.com/Mohsinsiddi/w3dash/internal/txflow"
	"github.com/Mohsinsiddi/w3dash/internal/ui"
)

var errNoFaucet = errors.New("faucet_address is not set (w3dash config set faucet_address 0x...)")

var faucetCmd = &cobra.Command{
	Use:   "faucet",
	Short: "Inspect, claim from and fund the token faucet",
	Long: `Work with the faucet contract configured as faucet_address.

  w3dash faucet status          # balance, claim amount, cooldown
  w3dash faucet claim           # claim tokens once per cooldown
  w3dash faucet fund 1000       # send tokens to the faucet`,
}

var faucetStatusCmd = &cobra.Command{
	Use:   "status [address]",
	Short: "Show faucet balance, claim amount and cooldown",
	Long: `Show the faucet's state. With an address, or with a session open, also
show whether that account can claim now and when it last claimed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.close()
		if !a.cache.HasFaucet() {
			return errNoFaucet
		}

		var who *common.Address
		switch {
		case len(args) > 0:
			addr, err := forms.ParseAddress("address", args[0])
			if err != nil {
				return err
			}
			who = &addr
		case cfg.Connector != "":
			if acct, err := a.connect(ctx); err == nil {
				who = &acct.Address
			}
		}

		refs := []readcache.Ref{
			readcache.R(readcache.FaucetBalance),
			readcache.R(readcache.ClaimAmount),
			readcache.R(readcache.Cooldown),
		}
		labels := []string{"Balance", "Claim Amount", "Cooldown"}
		if who != nil {
			refs = append(refs, readcache.R(readcache.CanClaim, *who), readcache.R(readcache.LastClaimTime, *who))
			labels = append(labels, "Can Claim", "Last Claim")
		}

		spin := ui.NewSpinnerTo(cmd.ErrOrStderr(), "Reading faucet...")
		spin.Start()
		_ = a.cache.RefreshMany(ctx, refs)
		spin.Stop()

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.KeyValueBlock("Faucet · "+a.faucet.Hex(), a.fieldPairs(labels, refs)))
		if who != nil {
			fmt.Fprintln(out, ui.Meta("Account: "+who.Hex()))
		}
		return nil
	},
}

var faucetClaimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim tokens from the faucet",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.FaucetAddress == "" {
			return errNoFaucet
		}
		return runOp(cmd, txflow.Claim, txflow.Params{})
	},
}

var faucetFundCmd = &cobra.Command{
	Use:   "fund <amount>",
	Short: "Transfer tokens from the connected account to the faucet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.FaucetAddress == "" {
			return errNoFaucet
		}
		return runOp(cmd, txflow.Fund, txflow.Params{txflow.ParamAmount: args[0]})
	},
}

func init() {
	faucetCmd.AddCommand(faucetStatusCmd, faucetClaimCmd, faucetFundCmd)
}
