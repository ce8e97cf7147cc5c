package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/neuro-risk-client/internal/domain"
	"github.com/neuro-risk-client/internal/service"
)

func newAssessCmd(a *app) *cobra.Command {
	var (
		file        string
		batchFile   string
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "assess [condition]",
		Short: "Assess risk remotely, falling back to the local heuristic",
		Long: `Assess risk for one submission read from --file (JSON or YAML, "-" for stdin),
or for every submission in a --batch file. The result is recorded in the history.`,
		Example: `  riskctl assess parkinson --file patient.yaml
  riskctl assess --batch cohort.yaml --concurrency 4`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if batchFile != "" {
				if len(args) > 0 || file != "" {
					return fmt.Errorf("--batch cannot be combined with a condition or --file")
				}
				return runBatch(cmd, a, batchFile, concurrency)
			}
			if len(args) != 1 || file == "" {
				return fmt.Errorf("a condition and --file are required")
			}

			kind, features, err := readSubmission(cmd.InOrStdin(), args[0], file)
			if err != nil {
				return err
			}

			stack, err := a.stack(cmd.Context())
			if err != nil {
				return err
			}

			p := newPrinter(cmd.OutOrStdout())
			rec, err := stack.Recorder.AssessAndRecord(cmd.Context(), kind, features)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return p.json(rec)
			}
			p.result(kind, rec.ID, &rec.Result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "feature file (JSON or YAML, - for stdin)")
	cmd.Flags().StringVar(&batchFile, "batch", "", "file holding a list of {name, condition, features} submissions")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "maximum batch assessments in flight")
	return cmd
}

func newLocalCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "local <condition>",
		Short: "Score a submission with the offline heuristic only",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			kind, features, err := readSubmission(cmd.InOrStdin(), args[0], file)
			if err != nil {
				return err
			}

			stack, err := a.stack(cmd.Context())
			if err != nil {
				return err
			}
			result, err := stack.Client.ScoreLocally(kind, features)
			if err != nil {
				return err
			}

			p := newPrinter(cmd.OutOrStdout())
			if a.jsonOutput {
				return p.json(result)
			}
			p.result(kind, "", result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "feature file (JSON or YAML, - for stdin)")
	return cmd
}

func runBatch(cmd *cobra.Command, a *app, path string, concurrency int) error {
	data, err := readInput(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	var items []service.BatchItem
	if err := decode(path, data, &items); err != nil {
		return fmt.Errorf("parsing batch file: %w", err)
	}
	if len(items) == 0 {
		return fmt.Errorf("batch file %s holds no submissions", path)
	}
	for i := range items {
		kind, err := domain.ParseConditionKind(string(items[i].Condition))
		if err != nil {
			return fmt.Errorf("batch item %d: %w", i+1, err)
		}
		items[i].Condition = kind
		if items[i].Name == "" {
			items[i].Name = fmt.Sprintf("#%d", i+1)
		}
	}

	stack, err := a.stack(cmd.Context())
	if err != nil {
		return err
	}
	results := stack.Recorder.AssessBatch(cmd.Context(), items, concurrency)

	p := newPrinter(cmd.OutOrStdout())
	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}

	if a.jsonOutput {
		type batchOutput struct {
			Name      string               `json:"name"`
			Condition domain.ConditionKind `json:"condition"`
			Record    interface{}          `json:"record,omitempty"`
			Error     string               `json:"error,omitempty"`
		}
		out := make([]batchOutput, len(results))
		for i, res := range results {
			out[i] = batchOutput{Name: res.Item.Name, Condition: res.Item.Condition}
			if res.Err != nil {
				out[i].Error = res.Err.Error()
			} else {
				out[i].Record = res.Record
			}
		}
		if err := p.json(out); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			if res.Err != nil {
				p.failure(res.Item.Name, res.Err)
				continue
			}
			fmt.Fprintf(p.out, "%s: ", res.Item.Name)
			p.result(res.Item.Condition, res.Record.ID, &res.Record.Result)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d assessments failed", failed, len(results))
	}
	return nil
}

// readSubmission parses the condition argument and the feature file
func readSubmission(stdin io.Reader, condition, path string) (domain.ConditionKind, map[string]interface{}, error) {
	kind, err := domain.ParseConditionKind(condition)
	if err != nil {
		return "", nil, err
	}

	data, err := readInput(stdin, path)
	if err != nil {
		return "", nil, err
	}

	var features map[string]interface{}
	if err := decode(path, data, &features); err != nil {
		return "", nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(features) == 0 {
		return "", nil, fmt.Errorf("%s holds no features", path)
	}
	return kind, features, nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// decode reads JSON for .json files and YAML otherwise; YAML is a superset
// of JSON so stdin accepts either.
func decode(path string, data []byte, v interface{}) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return json.Unmarshal(data, v)
	}
	return yaml.Unmarshal(data, v)
}
