package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/w3dash/internal/chain"
	"github.com/Mohsinsiddi/w3dash/internal/config"
	"github.com/Mohsinsiddi/w3dash/internal/errs"
	"github.com/Mohsinsiddi/w3dash/internal/forms"
	"github.com/Mohsinsiddi/w3dash/internal/metrics"
	"github.com/Mohsinsiddi/w3dash/internal/provider"
	"github.com/Mohsinsiddi/w3dash/internal/readcache"
	"github.com/Mohsinsiddi/w3dash/internal/rpc"
	"github.com/Mohsinsiddi/w3dash/internal/session"
	"github.com/Mohsinsiddi/w3dash/internal/txflow"
	"github.com/Mohsinsiddi/w3dash/internal/ui"
	"github.com/Mohsinsiddi/w3dash/internal/wallet"
)

// pollInterval is how often receipts are polled. Tests shorten it.
var pollInterval = 2 * time.Second

// app is everything one invocation needs, wired from the config.
type app struct {
	chain    *chain.Chain
	rpcURL   string
	client   *chain.EVMClient
	wallets  *wallet.Manager
	provider *provider.EVMProvider
	session  *session.Store
	picker   *session.Picker
	cache    *readcache.Cache
	flow     *txflow.Flow
	variant  forms.Variant
	builder  *forms.Builder
	token    common.Address
	faucet   *common.Address
	decimals int
	symbol   string
	log      *zap.Logger
}

type appOptions struct {
	approver provider.Approver
	registry prometheus.Registerer
}

// openKeystore opens the key store of the keychain connector.
var openKeystore = func(dir string) wallet.KeystoreBackend {
	return wallet.DefaultKeystore(dir)
}

func newWalletManager() *wallet.Manager {
	return wallet.NewManager(
		wallet.WithStore(wallet.NewJSONStore(cfg.WalletsPath())),
		wallet.WithKeystore(openKeystore(cfg.KeysDir())),
	)
}

// newApp wires the provider, session, read cache and transaction flow.
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	log := logger.Logger

	variant, err := forms.GetVariant(cfg.Variant)
	if err != nil {
		return nil, err
	}
	token, err := cfg.Token()
	if err != nil {
		return nil, err
	}
	faucet, err := cfg.Faucet()
	if err != nil {
		return nil, err
	}
	if variant.HasFaucet() && faucet == nil {
		log.Warn("variant has faucet panels but faucet_address is not set", zap.String("variant", variant.Name))
	}

	rpcURL, ch, err := selectRPC(ctx, log)
	if err != nil {
		return nil, err
	}
	client := chain.NewEVMClient(rpcURL)
	client.SetPollInterval(pollInterval)

	var m *metrics.Metrics
	if opts.registry != nil {
		if m, err = metrics.New(opts.registry); err != nil {
			return nil, err
		}
	}

	approver := opts.approver
	if approver == nil {
		approver = cliApprover()
	}

	wallets := newWalletManager()
	p := provider.NewEVMProvider(client, provider.Options{
		Wallets:        wallets,
		WalletName:     cfg.DefaultWallet,
		WatchAddress:   cfg.WatchAddress,
		Approver:       approver,
		ReceiptTimeout: cfg.ReceiptWait(),
		Logger:         log,
	})

	cacheOpts := []readcache.Option{readcache.WithLogger(log), readcache.WithMetrics(m)}
	if faucet != nil {
		cacheOpts = append(cacheOpts, readcache.WithFaucet(*faucet))
	}
	cache, err := readcache.New(client, token, cacheOpts...)
	if err != nil {
		return nil, err
	}

	a := &app{
		chain:    ch,
		rpcURL:   rpcURL,
		client:   client,
		wallets:  wallets,
		provider: p,
		session:  session.NewStore(p, log),
		picker:   session.NewPicker(p, log),
		cache:    cache,
		variant:  variant,
		token:    token,
		faucet:   faucet,
		decimals: forms.DefaultDecimals,
		log:      log,
	}
	a.loadTokenMeta(ctx)

	if a.builder, err = forms.NewBuilder(variant, token, faucet, a.decimals); err != nil {
		return nil, err
	}
	a.flow = txflow.New(p, a.session, a.builder, cache,
		txflow.WithLogger(log),
		txflow.WithMetrics(m),
		txflow.WithReceiptTimeout(cfg.ReceiptWait()),
	)
	return a, nil
}

// loadTokenMeta reads decimals and symbol. Both are best effort; amounts
// fall back to 18 decimals.
func (a *app) loadTokenMeta(ctx context.Context) {
	if f, err := a.cache.Refresh(ctx, readcache.Decimals); err == nil {
		if d, ok := f.Value.(uint8); ok {
			a.decimals = int(d)
		}
	} else {
		a.log.Warn("decimals unavailable, assuming 18", zap.Error(err))
	}
	if f, err := a.cache.Refresh(ctx, readcache.Symbol); err == nil {
		a.symbol, _ = f.Value.(string)
	}
}

// selectRPC returns rpc_url when set, otherwise the fastest healthy
// candidate on the configured chain. If none answers, the first candidate
// is used and requests fail with their own errors.
func selectRPC(ctx context.Context, log *zap.Logger) (string, *chain.Chain, error) {
	reg := chain.NewRegistry()
	urls, ch, err := cfg.RPCCandidates(reg)
	if err != nil {
		return "", nil, err
	}
	if len(urls) == 0 {
		return cfg.ResolveRPC(reg)
	}
	if len(urls) == 1 {
		return urls[0], ch, nil
	}
	pctx, cancel := context.WithTimeout(ctx, config.RPCSelectTimeout)
	defer cancel()
	url, err := rpc.Select(pctx, urls, ch.ID(cfg.NetworkMode), log)
	if err != nil {
		log.Warn("rpc selection failed, using first candidate", zap.Strings("candidates", urls), zap.Error(err))
		return urls[0], ch, nil
	}
	return url, ch, nil
}

func (a *app) close() {
	a.flow.Wait()
	a.session.Close()
}

// connect opens a session through the configured connector.
func (a *app) connect(ctx context.Context) (provider.Account, error) {
	if cfg.Connector == "" {
		return provider.Account{}, &errs.ConnectionError{Err: provider.ErrNotConnected}
	}
	return a.picker.SelectConnector(ctx, cfg.Connector)
}

func (a *app) network() string {
	return a.chain.NetworkLabel(cfg.NetworkMode)
}

func (a *app) explorerTx(hash string) string {
	base := a.chain.Explorer(cfg.NetworkMode)
	if base == "" {
		return ""
	}
	return base + "/tx/" + hash
}

// submit connects, runs one operation through the flow and waits for it to
// finish. Progress goes to errOut, the result to out.
func (a *app) submit(ctx context.Context, out, errOut io.Writer, kind txflow.Kind, params txflow.Params) error {
	if _, err := a.connect(ctx); err != nil {
		return err
	}
	panel := forms.PanelFor(kind)

	op, err := a.flow.Submit(ctx, kind, params)
	if err != nil {
		return err
	}

	spin := ui.NewSpinnerTo(errOut, fmt.Sprintf("%s  %s", forms.ButtonLabel(panel, op.Status), ui.Meta("tx "+forms.ShortHash(op.Hash))))
	spin.Start()
	op, err = a.flow.Await(ctx, kind)
	spin.Stop()
	if err != nil {
		return err
	}

	if op.Status == txflow.Failed {
		return op.Err
	}
	fmt.Fprintln(out, ui.StatusStyle(op.Status).Render(forms.StatusLine(op)))
	pairs := [][2]string{{"Hash", ui.Addr(op.Hash)}}
	if url := a.explorerTx(op.Hash); url != "" {
		pairs = append(pairs, [2]string{"Explorer", url})
	}
	fmt.Fprintln(out, ui.KeyValueBlock(panel.Title, pairs))
	return nil
}

func cliApprover() provider.Approver {
	if assumeYes {
		return provider.AutoApprove
	}
	return ui.PromptApprover(stdin, rootCmd.ErrOrStderr())
}

// renderErr formats an error for the terminal, with a hint for the common
// fixes.
func renderErr(err error) string {
	msg := ui.Err(err.Error())
	var ce *errs.ConnectionError
	switch {
	case errors.Is(err, provider.ErrNotConnected):
		msg += "\n" + ui.Hint("Connect first: w3dash connect")
	case errors.As(err, &ce):
		msg += "\n" + ui.Hint("List connectors with: w3dash connectors")
	case errors.Is(err, chain.ErrChainNotFound):
		msg += "\n" + ui.Hint("Set a supported network: w3dash config set network ethereum")
	}
	return msg
}

func zapArgs(cmd *cobra.Command) []zap.Field {
	return []zap.Field{
		zap.String("command", cmd.CommandPath()),
		zap.String("network", cfg.Network),
		zap.String("mode", cfg.NetworkMode),
		zap.String("variant", cfg.Variant),
	}
}
