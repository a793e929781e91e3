package main

import (
	"context"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/reconcile-cli/internal/api"
	"github.com/sells-group/reconcile-cli/internal/fixture"
	"github.com/sells-group/reconcile-cli/internal/model"
	"github.com/sells-group/reconcile-cli/internal/ocrinsight"
)

var ocrFile string

type ocrOutput struct {
	ApplicationID string                       `json:"applicationId,omitempty"`
	Groups        []model.OcrGroup             `json:"groups"`
	Collisions    []model.LabelCollision       `json:"collisions"`
	Conflicts     []ocrinsight.ScoredCollision `json:"conflicts"`
}

var ocrCmd = &cobra.Command{
	Use:   "ocr",
	Short: "Inspect OCR fields grouped by document type",
}

var ocrInsightsCmd = &cobra.Command{
	Use:   "insights [applicationId]",
	Short: "Show document groups, label collisions and scored conflicts",
	Long:  "Reads OCR observations for an application from the store, or from a fixture file with --file, and prints the insight view.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var appID string
		if len(args) == 1 {
			appID = args[0]
		}
		obs, err := loadObservations(cmd.Context(), appID, ocrFile)
		if err != nil {
			return err
		}
		return printInsights(cmd.OutOrStdout(), appID, obs)
	},
}

// loadObservations reads observations from path when set, otherwise from
// the configured store.
func loadObservations(ctx context.Context, appID, path string) ([]model.OcrFieldObservation, error) {
	if path != "" {
		if err := validate("offline"); err != nil {
			return nil, err
		}
		f, err := fixture.Load(path)
		if err != nil {
			return nil, err
		}
		return f.Observations, nil
	}
	if appID == "" {
		return nil, errApplicationRequired
	}
	if err := validate("store"); err != nil {
		return nil, err
	}
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck

	exists, err := st.ApplicationExists(ctx, appID)
	if err != nil {
		return nil, err
	}
	if !exists {
		if emptyOnMissing() {
			return []model.OcrFieldObservation{}, nil
		}
		return nil, eris.Errorf("application %q not found", appID)
	}
	return readObservations(ctx, st, appID)
}

func readObservations(ctx context.Context, src api.ObservationSource, appID string) ([]model.OcrFieldObservation, error) {
	return src.OcrObservations(ctx, appID)
}

func printInsights(w io.Writer, appID string, obs []model.OcrFieldObservation) error {
	view := ocrinsight.BuildView(obs)
	return printJSON(w, ocrOutput{
		ApplicationID: appID,
		Groups:        view.Groups,
		Collisions:    view.Collisions,
		Conflicts:     ocrinsight.ConflictList(view, newScorer()),
	})
}

func init() {
	ocrInsightsCmd.Flags().StringVar(&ocrFile, "file", "", "read observations from a YAML, JSON or XLSX fixture")
	ocrCmd.AddCommand(ocrInsightsCmd)
	rootCmd.AddCommand(ocrCmd)
}
