package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kondohub/kondo-scraper/internal/engine"
)

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "List registered scraping engines in match order",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := engine.NewFromConfig(cfg, nil)
		if err != nil {
			return err
		}
		formatEngines(cmd.OutOrStdout(), reg.All())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enginesCmd)
}

func formatEngines(w io.Writer, regs []*engine.Registration) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tURL PATTERNS\tSIGNATURE\tDESCRIPTION")
	for _, r := range regs {
		patterns := make([]string, 0, len(r.URLPatterns))
		for _, re := range r.URLPatterns {
			patterns = append(patterns, re.String())
		}
		pat := "-"
		if len(patterns) > 0 {
			pat = strings.Join(patterns, " ")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Name, pat, signatureSummary(r.Signature), r.Description)
	}
	_ = tw.Flush()
}

func signatureSummary(s *engine.Signature) string {
	if s == nil {
		return "-"
	}
	var parts []string
	if len(s.Frameworks) > 0 {
		parts = append(parts, "framework "+strings.Join(s.Frameworks, ","))
	}
	if len(s.Markers) > 0 {
		need := s.MinMarkers
		if need <= 0 {
			need = engine.DefaultMinMarkers
		}
		parts = append(parts, fmt.Sprintf("%d of %d markers", min(need, len(s.Markers)), len(s.Markers)))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, "; ")
}
