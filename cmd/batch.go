package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kondohub/kondo-scraper/internal/scraper"
	"github.com/kondohub/kondo-scraper/internal/store"
)

var (
	batchIDs      []int64
	batchAll      bool
	batchLimit    int
	batchDryRun   bool
	batchNoMedia  bool
	batchForce    bool
	batchDetailed bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Scrape many listings sequentially",
	Long:  "Scrapes the given listing ids, or every listing with a source URL when --all is set, waiting the configured inter-request delay between listings. Failures are collected in the summary and never stop the run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "scrape")
		if err != nil {
			return err
		}
		defer env.Close()

		limit := batchLimit
		if limit == 0 {
			limit = cfg.Batch.Limit
		}
		ids, err := resolveBatchIDs(ctx, env.Store, batchIDs, batchAll, limit)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			zap.L().Info("no listings to scrape")
			return nil
		}

		zap.L().Info("processing batch", zap.Int("listings", len(ids)))
		sum := env.Scraper.Batch(ctx, ids, scraper.Options{
			DryRun:    batchDryRun,
			SkipMedia: batchNoMedia,
			Force:     batchForce,
		})
		if !batchDetailed {
			sum.Results = nil
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(sum), "write summary")
	},
}

func init() {
	batchCmd.Flags().Int64SliceVar(&batchIDs, "ids", nil, "comma-separated listing ids")
	batchCmd.Flags().BoolVar(&batchAll, "all", false, "scrape every listing with a source url")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of listings (default from config)")
	batchCmd.Flags().BoolVar(&batchDryRun, "dry-run", false, "scrape and merge without writing")
	batchCmd.Flags().BoolVar(&batchNoMedia, "skip-media", false, "leave media untouched")
	batchCmd.Flags().BoolVar(&batchForce, "force", false, "ignore the site change cache")
	batchCmd.Flags().BoolVar(&batchDetailed, "results", false, "include every per-listing result in the summary")
	rootCmd.AddCommand(batchCmd)
}

// resolveBatchIDs returns the ids to scrape: the explicit list, or every
// listing with a url when all is set. limit caps either form.
func resolveBatchIDs(ctx context.Context, st store.Store, ids []int64, all bool, limit int) ([]int64, error) {
	switch {
	case len(ids) > 0 && all:
		return nil, eris.New("use either --ids or --all, not both")
	case len(ids) > 0:
		if limit > 0 && len(ids) > limit {
			ids = ids[:limit]
		}
		return ids, nil
	case !all:
		return nil, eris.New("either --ids or --all is required")
	}

	listings, err := st.ListListings(ctx, store.ListingFilter{WithURL: true, Limit: limit})
	if err != nil {
		return nil, eris.Wrap(err, "batch: list listings")
	}
	out := make([]int64, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.ID)
	}
	return out, nil
}
