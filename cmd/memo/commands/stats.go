package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.trai.ch/memo/internal/core/domain"
)

func (c *CLI) newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			analysisSnap, querySnap := c.app.Statistics()

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(map[string]domain.MetricsSnapshot{
					"analysis": analysisSnap,
					"query":    querySnap,
				})
			}

			printSnapshot(out, "analysis", analysisSnap)
			printSnapshot(out, "query", querySnap)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Emit statistics as JSON")
	return cmd
}

func printSnapshot(out io.Writer, name string, snap domain.MetricsSnapshot) {
	_, _ = fmt.Fprintf(out, "%s cache:\n", name)
	_, _ = fmt.Fprintf(out, "  requests:  %d (%d hits, %d fresh, %d errors)\n",
		snap.Total, snap.Hits, snap.Fresh, snap.Errors)
	_, _ = fmt.Fprintf(out, "  hit ratio: %.1f%%\n", snap.HitRatio*100)
	_, _ = fmt.Fprintf(out, "  avg time:  %s hit, %s fresh\n", snap.AvgHitTime, snap.AvgFreshTime)
	_, _ = fmt.Fprintf(out, "  health:    %s\n", snap.Health)
}
