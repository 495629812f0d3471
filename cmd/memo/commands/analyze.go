package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/memo/internal/app"
)

func (c *CLI) newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [paths...]",
		Short: "Analyze files and cache the results",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				// Display command usage help without returning an error
				_ = cmd.Help()
				return nil
			}
			operation, _ := cmd.Flags().GetString("type")
			asJSON, _ := cmd.Flags().GetBool("json")

			results, err := c.app.Analyze(cmd.Context(), args, app.AnalyzeOptions{
				Operation: operation,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(results)
			}

			failed := 0
			for _, res := range results {
				if res.Err != nil {
					failed++
					_, _ = fmt.Fprintf(out, "%s: error: %v\n", res.Path, res.Err)
					continue
				}
				source := "fresh"
				if res.Result.Cached {
					source = "cached"
				}
				_, _ = fmt.Fprintf(out, "%s: %s (%d dependencies)\n", res.Path, source, len(res.Result.Dependencies))
			}
			_, _ = fmt.Fprintf(out, "%d analyzed, %d failed\n", len(results)-failed, failed)
			return nil
		},
	}
	cmd.Flags().StringP("type", "t", "ast", "Analysis type to run")
	cmd.Flags().Bool("json", false, "Emit results as JSON")
	return cmd
}
