package commands

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newServeMetricsCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve-metrics",
		Short: "Serve the Prometheus metrics endpoint until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := buildApplication(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if addr == "" {
				addr = a.MetricsAddr()
			}

			reg, ok := a.Registerer.(*prometheus.Registry)
			if !ok {
				return newOperatorError(fmt.Errorf("serve-metrics: registerer is not a *prometheus.Registry"))
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

			fmt.Fprintf(cmd.OutOrStdout(), "serving metrics on %s/metrics\n", addr)
			return http.ListenAndServe(addr, mux)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address, defaults to config metrics.addr")
	return cmd
}
