package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/neuro-risk-client/internal/domain"
	"github.com/neuro-risk-client/internal/history"
)

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse, export and import recorded assessments",
	}

	cmd.AddCommand(
		newHistoryListCmd(a),
		newHistoryShowCmd(a),
		newHistoryDeleteCmd(a),
		newHistoryExportCmd(a),
		newHistoryImportCmd(a),
	)
	return cmd
}

func newHistoryListCmd(a *app) *cobra.Command {
	var (
		condition string
		source    string
		since     time.Duration
		limit     int
		offset    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assessments, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := history.Filter{Limit: limit, Offset: offset}
			if condition != "" {
				kind, err := domain.ParseConditionKind(condition)
				if err != nil {
					return err
				}
				filter.Condition = kind
			}
			if source != "" {
				src := domain.ResultSource(strings.ToLower(source))
				if src != domain.SourceRemote && src != domain.SourceFallback {
					return fmt.Errorf("unknown source %q, use remote or fallback", source)
				}
				filter.Source = src
			}
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}

			store, err := a.requireStore(cmd.Context())
			if err != nil {
				return err
			}
			records, err := store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			total, err := store.Count(cmd.Context(), filter)
			if err != nil {
				return err
			}

			p := newPrinter(cmd.OutOrStdout())
			if a.jsonOutput {
				if records == nil {
					records = []*history.Record{}
				}
				return p.json(map[string]interface{}{"records": records, "total": total})
			}
			p.records(records, total)
			return nil
		},
	}

	cmd.Flags().StringVar(&condition, "condition", "", "only this condition")
	cmd.Flags().StringVar(&source, "source", "", "only remote or fallback results")
	cmd.Flags().DurationVar(&since, "since", 0, "only assessments newer than this, e.g. 72h")
	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultListLimit, "maximum rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

func newHistoryShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one assessment with its features",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.requireStore(cmd.Context())
			if err != nil {
				return err
			}
			rec, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			p := newPrinter(cmd.OutOrStdout())
			if a.jsonOutput {
				return p.json(rec)
			}
			p.result(rec.Condition, rec.ID, &rec.Result)
			fmt.Fprintln(p.out, "  "+p.render(styleMuted, "recorded "+rec.CreatedAt.Local().Format(time.RFC1123)))
			for _, key := range sortedKeys(rec.Features) {
				fmt.Fprintf(p.out, "  %-28s %g\n", key, rec.Features[key])
			}
			return nil
		},
	}
}

func newHistoryDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.requireStore(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

func newHistoryExportCmd(a *app) *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the history as JSON or an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if format != "json" && format != "xlsx" {
				return fmt.Errorf("unsupported export format %q, use json or xlsx", format)
			}
			if format == "xlsx" && output == "" {
				return fmt.Errorf("--output is required for xlsx exports")
			}

			store, err := a.requireStore(cmd.Context())
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			if format == "xlsx" {
				err = history.ExportXLSX(cmd.Context(), store, w)
			} else {
				err = history.ExportJSON(cmd.Context(), store, w)
			}
			if err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "json or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write (default stdout, json only)")
	return cmd
}

func newHistoryImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import a JSON export; records already present are skipped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.requireStore(cmd.Context())
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			imported, skipped, err := history.ImportJSON(cmd.Context(), store, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d, skipped %d\n", imported, skipped)
			return nil
		},
	}
}
