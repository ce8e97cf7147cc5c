package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd(a *app) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe every configured prediction server",
		RunE: func(cmd *cobra.Command, args []string) error {
			stack, err := a.stack(cmd.Context())
			if err != nil {
				return err
			}

			statuses := stack.ProbeEndpoints(cmd.Context())
			p := newPrinter(cmd.OutOrStdout())
			if a.jsonOutput {
				if err := p.json(statuses); err != nil {
					return err
				}
			} else {
				p.health(statuses)
			}

			if strict {
				for _, st := range statuses {
					if !st.Healthy && a.cfg.Prediction.Endpoints.URL(st.Condition) != "" {
						return fmt.Errorf("%s prediction server is unhealthy", st.Condition.DisplayName())
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when a configured server is unhealthy")
	return cmd
}
