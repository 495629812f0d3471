package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newInvalidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invalidate [paths...]",
		Short: "Drop cached results for files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			noCascade, _ := cmd.Flags().GetBool("no-cascade")

			dropped, err := c.app.Invalidate(cmd.Context(), args, !noCascade)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "invalidated %d file(s)\n", dropped)
			return nil
		},
	}
	cmd.Flags().Bool("no-cascade", false, "Do not invalidate dependent files")
	return cmd
}
