package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/reconcile-cli/internal/api"
	"github.com/sells-group/reconcile-cli/internal/conflict"
	"github.com/sells-group/reconcile-cli/internal/fixture"
	"github.com/sells-group/reconcile-cli/internal/model"
	"github.com/sells-group/reconcile-cli/internal/ocrinsight"
	"github.com/sells-group/reconcile-cli/internal/report"
)

var (
	reportOut  string
	reportFile string
)

var errApplicationRequired = eris.New("application id is required unless --file is set")

var reportCmd = &cobra.Command{
	Use:   "report [applicationId]",
	Short: "Write column conflicts and OCR collisions to an XLSX workbook",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var appID string
		if len(args) == 1 {
			appID = args[0]
		}
		ctx := cmd.Context()

		if reportFile != "" {
			if err := validate("offline"); err != nil {
				return err
			}
			f, err := fixture.Load(reportFile)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), appID, f.Values, f.Observations, reportOut)
		}

		if appID == "" {
			return errApplicationRequired
		}
		if err := validate("store"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		return runReport(ctx, cmd.OutOrStdout(), newCollector(st), st, appID, reportOut)
	},
}

func runReport(ctx context.Context, w io.Writer, c api.Collector, src api.ObservationSource, appID, out string) error {
	res, err := c.Collect(ctx, appID)
	if err != nil {
		return err
	}
	if !res.Found {
		return eris.Errorf("application %q not found", appID)
	}
	obs, err := readObservations(ctx, src, appID)
	if err != nil {
		return err
	}
	return writeReport(w, appID, res.Values, obs, out)
}

func writeReport(w io.Writer, appID string, values []model.SourcedValue, obs []model.OcrFieldObservation, out string) error {
	view := ocrinsight.BuildView(obs)
	r := report.Report{
		ApplicationID: appID,
		Columns:       conflict.NewEngine(nil).BuildOrdered(values),
		Collisions:    ocrinsight.ConflictList(view, newScorer()),
	}
	if err := report.Write(out, r); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote %s\n", out) //nolint:errcheck
	return nil
}

func init() {
	reportCmd.Flags().StringVar(&reportOut, "out", "reconcile-report.xlsx", "output workbook path")
	reportCmd.Flags().StringVar(&reportFile, "file", "", "read values and observations from a fixture instead of the store")
	rootCmd.AddCommand(reportCmd)
}
