package cmd

import (
	"context"
	"fmt"
	"io"

	"restaurant-tracker-api/catalog"
	"restaurant-tracker-api/handlers"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	backfillPickFirst bool
	backfillDryRun    bool
)

var backfillCmd = &cobra.Command{
	Use:   "backfill-geo",
	Short: "Attach coordinates to restaurants that have none",
	Long: `Searches the place API with "<name> <locationText>" for every restaurant
without a structured location. A single candidate is applied; several
candidates are listed and skipped unless --pick-first is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := backfillGeo(cmd.Context(), a.catalog, a.places, backfillOptions{
			PickFirst: backfillPickFirst,
			DryRun:    backfillDryRun,
			Out:       cmd.OutOrStdout(),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated %d, ambiguous %d, not found %d, failed %d\n",
			report.Updated, report.Ambiguous, report.NotFound, report.Failed)
		return nil
	},
}

func init() {
	backfillCmd.Flags().BoolVar(&backfillPickFirst, "pick-first", false, "apply the first candidate when several match")
	backfillCmd.Flags().BoolVar(&backfillDryRun, "dry-run", false, "report what would change without writing")
}

type backfillOptions struct {
	PickFirst bool
	DryRun    bool
	Out       io.Writer
}

type backfillReport struct {
	Updated   int
	Ambiguous int
	NotFound  int
	Failed    int
}

// backfillGeo resolves locations one restaurant at a time. Search failures
// are counted and skipped; only listing the restaurants can abort the run.
func backfillGeo(ctx context.Context, svc *catalog.Service, search handlers.PlaceSearcher, opts backfillOptions) (backfillReport, error) {
	var report backfillReport

	pending, err := svc.ListMissingGeo(ctx)
	if err != nil {
		return report, fmt.Errorf("list restaurants without location: %w", err)
	}
	logger.WithField("count", len(pending)).Info("Restaurants without location")

	for _, r := range pending {
		l := logger.WithFields(logrus.Fields{"id": r.ID, "name": r.Name})
		query := r.Name + " " + r.LocationText

		candidates, err := search.Search(ctx, query)
		if err != nil {
			l.WithError(err).Warn("Place search failed")
			report.Failed++
			continue
		}

		switch {
		case len(candidates) == 0:
			fmt.Fprintf(opts.Out, "%s: no results for %q\n", r.Name, query)
			report.NotFound++
			continue
		case len(candidates) > 1 && !opts.PickFirst:
			fmt.Fprintf(opts.Out, "%s: %d candidates, skipped\n", r.Name, len(candidates))
			for i, c := range candidates {
				fmt.Fprintf(opts.Out, "  %d: %s - %s\n", i, c.Name, c.DisplayText)
			}
			report.Ambiguous++
			continue
		}

		chosen := candidates[0]
		if opts.DryRun {
			fmt.Fprintf(opts.Out, "%s: would set %v (%s)\n", r.Name, chosen.Coordinates, chosen.DisplayText)
			report.Updated++
			continue
		}
		if _, err := svc.SetGeo(ctx, r.ID, chosen.GeoPoint()); err != nil {
			l.WithError(err).Warn("Saving location failed")
			report.Failed++
			continue
		}
		fmt.Fprintf(opts.Out, "%s: set %v (%s)\n", r.Name, chosen.Coordinates, chosen.DisplayText)
		report.Updated++
	}
	return report, nil
}
