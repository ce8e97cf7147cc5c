package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/neuro-risk-client/internal/api"
)

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP assessment API in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.logLevel == "" {
				a.logger.SetLevel(logrus.InfoLevel)
			}
			if port > 0 {
				a.cfg.Server.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			registry := prometheus.NewRegistry()
			stack, err := a.stackWithMetrics(ctx, registry)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "serving on %s:%d, history %s\n", a.cfg.Server.Host, a.cfg.Server.Port, a.cfg.History.Backend)
			server := api.NewServer(a.manager, stack, api.WithLogger(a.logger), api.WithGatherer(registry))
			return server.Start(ctx)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "override server.port")
	return cmd
}
