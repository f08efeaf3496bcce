package main

import (
	"encoding/json"
	"io"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/kondohub/kondo-scraper/internal/scraper"
)

var (
	scrapeID      int64
	scrapeEngine  string
	scrapeDryRun  bool
	scrapeNoMedia bool
	scrapeVerbose bool
	scrapeForce   bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape one listing and merge the result into it",
	RunE: func(cmd *cobra.Command, args []string) error {
		if scrapeID <= 0 {
			return eris.New("--id is required")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "scrape")
		if err != nil {
			return err
		}
		defer env.Close()

		res, err := env.Scraper.ScrapeListing(ctx, scrapeID, scraper.Options{
			Engine:    scrapeEngine,
			DryRun:    scrapeDryRun,
			SkipMedia: scrapeNoMedia,
			Force:     scrapeForce,
		})
		if err != nil {
			return err
		}
		if err := printResult(cmd.OutOrStdout(), res, scrapeVerbose); err != nil {
			return err
		}
		if !res.Success {
			return eris.Errorf("scrape of listing %d failed: %s", scrapeID, res.Error)
		}
		return nil
	},
}

func init() {
	scrapeCmd.Flags().Int64Var(&scrapeID, "id", 0, "listing id to scrape")
	scrapeCmd.Flags().StringVar(&scrapeEngine, "engine", "", "force an engine by name")
	scrapeCmd.Flags().BoolVar(&scrapeDryRun, "dry-run", false, "scrape and merge without writing")
	scrapeCmd.Flags().BoolVar(&scrapeNoMedia, "skip-media", false, "leave the listing's media untouched")
	scrapeCmd.Flags().BoolVarP(&scrapeVerbose, "verbose", "v", false, "include field decisions and updates in the output")
	scrapeCmd.Flags().BoolVar(&scrapeForce, "force", false, "ignore the site change cache")
	rootCmd.AddCommand(scrapeCmd)
}

// printResult writes res as indented JSON. Field decisions and updates are
// only included when verbose is set.
func printResult(w io.Writer, res *scraper.Result, verbose bool) error {
	out := *res
	if !verbose {
		out.Accepted = nil
		out.Rejected = nil
		out.Updates = nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(out), "write result")
}
