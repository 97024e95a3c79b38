package cmd

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/w3dash/internal/forms"
	"github.com/Mohsinsiddi/w3dash/internal/readcache"
	"github.com/Mohsinsiddi/w3dash/internal/ui"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show token details and faucet state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.close()

		refs := make([]readcache.Ref, 0, len(readcache.TokenFields)+len(readcache.FaucetFields))
		for _, f := range readcache.TokenFields {
			refs = append(refs, readcache.R(f))
		}
		if a.cache.HasFaucet() {
			for _, f := range readcache.FaucetFields {
				refs = append(refs, readcache.R(f))
			}
		}

		spin := ui.NewSpinnerTo(cmd.ErrOrStderr(), "Reading token...")
		spin.Start()
		// Failures show per field.
		_ = a.cache.RefreshMany(ctx, refs)
		spin.Stop()

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, ui.KeyValueBlock("Token", a.fieldPairs([]string{"Name", "Symbol", "Decimals", "Total Supply", "Owner"}, refs[:5])))
		if a.cache.HasFaucet() {
			fmt.Fprintln(out, ui.KeyValueBlock("Faucet", a.fieldPairs([]string{"Balance", "Claim Amount", "Cooldown"}, refs[5:])))
		}
		fmt.Fprintln(out, ui.Meta(fmt.Sprintf("%s · %s", a.network(), a.token.Hex())))
		return nil
	},
}

var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Show the token balance of an address",
	Long: `Show the token balance of an address. Without an argument the balance of
the connected account is shown.

  w3dash balance 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.close()

		var who common.Address
		if len(args) > 0 {
			if who, err = forms.ParseAddress("address", args[0]); err != nil {
				return err
			}
		} else {
			acct, err := a.connect(ctx)
			if err != nil {
				return err
			}
			who = acct.Address
		}

		f, err := a.cache.Refresh(ctx, readcache.BalanceOf, who)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Balance", [][2]string{
			{"Address", ui.Addr(who.Hex())},
			{"Balance", ui.FieldText(f, a.decimals, a.symbol)},
		}))
		return nil
	},
}

var allowanceCmd = &cobra.Command{
	Use:   "allowance <owner> <spender>",
	Short: "Show how much spender may transfer from owner",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		owner, err := forms.ParseAddress("owner", args[0])
		if err != nil {
			return err
		}
		spender, err := forms.ParseAddress("spender", args[1])
		if err != nil {
			return err
		}

		a, err := newApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.close()

		f, err := a.cache.Refresh(ctx, readcache.Allowance, owner, spender)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.KeyValueBlock("Allowance", [][2]string{
			{"Owner", ui.Addr(owner.Hex())},
			{"Spender", ui.Addr(spender.Hex())},
			{"Allowance", ui.FieldText(f, a.decimals, a.symbol)},
		}))
		return nil
	},
}

func (a *app) fieldPairs(labels []string, refs []readcache.Ref) [][2]string {
	pairs := make([][2]string, len(refs))
	for i, ref := range refs {
		pairs[i] = [2]string{labels[i], ui.FieldText(a.cache.Get(ref), a.decimals, a.symbol)}
	}
	return pairs
}
