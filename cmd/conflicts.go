package main

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/reconcile-cli/internal/api"
	"github.com/sells-group/reconcile-cli/internal/conflict"
	"github.com/sells-group/reconcile-cli/internal/fixture"
	"github.com/sells-group/reconcile-cli/internal/model"
)

var conflictsOnly bool

// conflictsOutput is what the conflicts commands print.
type conflictsOutput struct {
	ApplicationID string                 `json:"applicationId,omitempty"`
	Found         bool                   `json:"found"`
	Summary       conflict.Summary       `json:"summary"`
	Columns       []model.ColumnConflict `json:"columns"`
	FailedSources []model.SourceType     `json:"failedSources,omitempty"`
}

var conflictsCmd = &cobra.Command{
	Use:   "conflicts <applicationId>",
	Short: "Show per-column conflicts for an application",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validate("store"); err != nil {
			return err
		}
		st, err := initStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return runConflicts(cmd.Context(), cmd.OutOrStdout(), newCollector(st), args[0])
	},
}

var conflictsDemoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Show conflicts for the built-in demo records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printConflicts(cmd.OutOrStdout(), conflictsOutput{Found: true}, conflict.DemoRecords())
	},
}

var conflictsFileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Show conflicts for sourced values read from a YAML, JSON or XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runConflictsFile(cmd.OutOrStdout(), args[0])
	},
}

func runConflicts(ctx context.Context, w io.Writer, c api.Collector, appID string) error {
	res, err := c.Collect(ctx, appID)
	if err != nil {
		return err
	}
	if !res.Found && !emptyOnMissing() {
		return eris.Errorf("application %q not found", appID)
	}
	return printConflicts(w, conflictsOutput{
		ApplicationID: res.ApplicationID,
		Found:         res.Found,
		FailedSources: res.FailedSources,
	}, res.Values)
}

func runConflictsFile(w io.Writer, path string) error {
	f, err := fixture.Load(path)
	if err != nil {
		return err
	}
	return printConflicts(w, conflictsOutput{Found: true}, f.Values)
}

func printConflicts(w io.Writer, out conflictsOutput, values []model.SourcedValue) error {
	cols := conflict.NewEngine(nil).BuildOrdered(values)
	out.Summary = conflict.Summarize(cols)
	if conflictsOnly {
		filtered := make([]model.ColumnConflict, 0, len(cols))
		for _, c := range cols {
			if c.Conflict {
				filtered = append(filtered, c)
			}
		}
		cols = filtered
	}
	out.Columns = cols
	return printJSON(w, out)
}

func init() {
	conflictsCmd.PersistentFlags().BoolVar(&conflictsOnly, "only-conflicts", false, "omit columns whose sources agree")
	conflictsCmd.AddCommand(conflictsDemoCmd, conflictsFileCmd)
	rootCmd.AddCommand(conflictsCmd)
}
