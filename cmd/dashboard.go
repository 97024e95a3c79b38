package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mohsinsiddi/w3dash/internal/ui"
)

var (
	dashMetricsAddr string
	dashRefresh     time.Duration
)

var dashboardCmd = &cobra.Command{
	Use:     "dashboard",
	Aliases: []string{"ui"},
	Short:   "Open the interactive token dashboard",
	Long: `Open the full-screen dashboard: connect a wallet, watch the token and
faucet reads, and run every operation the variant offers.

Keys: ↑/↓ move · enter open/submit · tab next field · r refresh · q quit.
Signature requests are shown in an overlay unless --yes is given.

  w3dash dashboard
  w3dash dashboard --metrics-addr :9464 --refresh 30s`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())

		opts := appOptions{registry: reg}
		var approvals *ui.Approvals
		if !assumeYes {
			approvals = ui.NewApprovals()
			opts.approver = approvals.Approver()
		}
		a, err := newApp(ctx, opts)
		if err != nil {
			return err
		}
		defer a.close()

		addr := dashMetricsAddr
		if addr == "" {
			addr = cfg.MetricsAddr
		}
		if addr != "" {
			srv := serveMetrics(addr, reg, a.log)
			defer srv.Shutdown(context.Background()) //nolint:errcheck
		}

		if cfg.Connector != "" {
			go func() {
				if _, err := a.connect(ctx); err != nil {
					a.log.Warn("auto-connect failed", zap.String("connector", cfg.Connector), zap.Error(err))
				}
			}()
		}

		m := ui.NewDashboard(ctx, ui.DashboardDeps{
			Session:   a.session,
			Picker:    a.picker,
			Cache:     a.cache,
			Flow:      a.flow,
			Approvals: approvals,
			Variant:   a.variant,
			Network:   a.network(),
			Decimals:  a.decimals,
			Symbol:    a.symbol,
			Refresh:   dashRefresh,
			Log:       a.log,
		})
		return m.Run()
	},
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", zap.String("addr", addr), zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", fmt.Sprintf("http://%s/metrics", addr)))
	return srv
}

func init() {
	dashboardCmd.Flags().StringVar(&dashMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (default: metrics_addr from config)")
	dashboardCmd.Flags().DurationVar(&dashRefresh, "refresh", 0, "re-read the contracts on this interval (0 disables)")
}
