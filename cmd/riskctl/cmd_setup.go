package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/neuro-risk-client/internal/setup"
)

func newSetupCmd(a *app) *cobra.Command {
	var clientConfig string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the MCP server with a desktop MCP client",
	}
	cmd.PersistentFlags().StringVar(&clientConfig, "client-config", "", "client config file (detected per OS by default)")

	var (
		binary  string
		dataDir string
		withURL bool
	)
	register := &cobra.Command{
		Use:   "register",
		Short: "Add or replace the neuro-risk MCP server entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := setup.Options{
				ConfigPath: clientConfig,
				BinaryPath: binary,
				DataDir:    dataDir,
			}
			if withURL {
				opts.Env = map[string]string{}
				endpoints := a.cfg.Prediction.Endpoints
				if endpoints.Alzheimer != "" {
					opts.Env["NEURO_RISK_ALZHEIMER_URL"] = endpoints.Alzheimer
				}
				if endpoints.Parkinson != "" {
					opts.Env["NEURO_RISK_PARKINSON_URL"] = endpoints.Parkinson
				}
				if endpoints.Epilepsy != "" {
					opts.Env["NEURO_RISK_EPILEPSY_URL"] = endpoints.Epilepsy
				}
			}

			path, err := setup.Register(opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s in %s\nrestart the client to load it\n", setup.ServerName, path)
			return nil
		},
	}
	register.Flags().StringVar(&binary, "binary", "", "path to "+setup.BinaryName+" (searched for by default)")
	register.Flags().StringVar(&dataDir, "data-dir", "", "data directory passed to the server")
	register.Flags().BoolVar(&withURL, "with-endpoints", false, "pass the configured prediction endpoints to the server")

	status := &cobra.Command{
		Use:   "status",
		Short: "Check the registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := setup.GetStatus(clientConfig)
			if err != nil {
				return err
			}

			p := newPrinter(cmd.OutOrStdout())
			if a.jsonOutput {
				return p.json(st)
			}
			fmt.Fprintf(p.out, "config     %s\n", st.ConfigPath)
			fmt.Fprintf(p.out, "registered %t\n", st.Registered)
			if st.BinaryPath != "" {
				fmt.Fprintf(p.out, "binary     %s\n", st.BinaryPath)
			}
			fmt.Fprintf(p.out, "data dir   %s\n", st.DataDir)
			if len(st.EnvKeys) > 0 {
				fmt.Fprintf(p.out, "env        %s\n", strings.Join(st.EnvKeys, ", "))
			}
			for _, issue := range st.Issues {
				fmt.Fprintf(p.out, "%s %s\n", p.render(styleError, "✗"), issue)
			}
			if st.OK() {
				fmt.Fprintln(p.out, p.render(styleOK, "✓ ready"))
			}
			return nil
		},
	}

	unregister := &cobra.Command{
		Use:   "unregister",
		Short: "Remove the neuro-risk MCP server entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := setup.Unregister(clientConfig)
			if err != nil {
				return err
			}
			if removed {
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", setup.ServerName)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s was not registered\n", setup.ServerName)
			}
			return nil
		},
	}

	cmd.AddCommand(register, status, unregister)
	return cmd
}
