package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/reconcile-cli/internal/fixture"
	"github.com/sells-group/reconcile-cli/internal/store"
)

var seedMigrate bool

var seedCmd = &cobra.Command{
	Use:   "seed <fixture>",
	Short: "Load applications from a YAML or JSON fixture into the store",
	Long:  "Replaces every field row of each application in the fixture. Applications not in the fixture are left alone.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validate("store"); err != nil {
			return err
		}
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if seedMigrate {
			if err := st.Migrate(ctx); err != nil {
				return err
			}
		}
		return runSeed(ctx, cmd.OutOrStdout(), st, args[0])
	},
}

func runSeed(ctx context.Context, w io.Writer, st store.Store, path string) error {
	f, err := fixture.Load(path)
	if err != nil {
		return err
	}
	if len(f.Applications) == 0 {
		return eris.Errorf("seed: %s has no applications", path)
	}
	for _, app := range f.Applications {
		if err := st.Seed(ctx, app); err != nil {
			return err
		}
		zap.L().Info("seeded application",
			zap.String("application_id", app.ID),
			zap.Int("statements", len(app.Statements)),
			zap.Int("documents", len(app.Documents)),
		)
	}
	fmt.Fprintf(w, "seeded %d application(s)\n", len(f.Applications)) //nolint:errcheck
	return nil
}

func init() {
	seedCmd.Flags().BoolVar(&seedMigrate, "migrate", false, "create tables before seeding")
	rootCmd.AddCommand(seedCmd)
}
