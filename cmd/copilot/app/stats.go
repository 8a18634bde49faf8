package app

import (
	"github.com/spf13/cobra"

	"github.com/kart-io/pm-copilot/internal/console/view"
)

func newStatsCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show knowledge-base index statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := c.client().GetStats(cmd.Context())
			if err != nil {
				return err
			}
			return c.print(view.NewStatsView(stats))
		},
	}
}
