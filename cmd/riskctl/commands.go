package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/neuro-risk-client/internal/config"
	"github.com/neuro-risk-client/internal/domain"
	"github.com/neuro-risk-client/internal/history"
	"github.com/neuro-risk-client/internal/service"
)

// app carries state shared by every subcommand
type app struct {
	configFile string
	logLevel   string
	jsonOutput bool

	manager *config.Manager
	cfg     *domain.Config
	logger  *logrus.Logger
	store   history.Store
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "riskctl",
		Short:         "Assess neurological risk against the prediction servers",
		Long:          "riskctl submits clinical features for Alzheimer's, Parkinson's and epilepsy risk assessment,\nfalls back to the local heuristic when a prediction server is unreachable, and manages the\nassessment history.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "config file (default searches ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level")
	rootCmd.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "print machine-readable JSON")

	rootCmd.AddCommand(
		newAssessCmd(a),
		newLocalCmd(a),
		newHealthCmd(a),
		newHistoryCmd(a),
		newMigrateCmd(a),
		newSetupCmd(a),
		newServeCmd(a),
	)
	return rootCmd
}

// load reads configuration and builds the logger. Logs go to stderr so
// command output stays parseable.
func (a *app) load(stderr io.Writer) error {
	var opts []config.ManagerOption
	if a.configFile != "" {
		opts = append(opts, config.WithConfigFile(a.configFile))
	}

	manager, err := config.NewManager(opts...)
	if err != nil {
		return err
	}
	if err := manager.Validate(); err != nil {
		return err
	}

	cfg := manager.GetConfig()
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	} else if cfg.Logging.Level == "info" {
		cfg.Logging.Level = "warn"
	}
	cfg.Logging.Format = "text"
	cfg.Logging.Output = "stderr"

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	logger.SetOutput(stderr)

	a.manager = manager
	a.cfg = cfg
	a.logger = logger
	return nil
}

// openStore opens the configured history backend once per invocation
func (a *app) openStore(ctx context.Context) (history.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := history.Open(ctx, a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

// requireStore is openStore for commands that are meaningless without history
func (a *app) requireStore(ctx context.Context) (history.Store, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("assessment history is disabled (history.backend is %q)", a.cfg.History.Backend)
	}
	return store, nil
}

func (a *app) stack(ctx context.Context) (*service.Stack, error) {
	return a.stackWithMetrics(ctx, nil)
}

func (a *app) stackWithMetrics(ctx context.Context, reg prometheus.Registerer) (*service.Stack, error) {
	store, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	return service.NewStack(a.cfg, store, a.logger, reg)
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}
