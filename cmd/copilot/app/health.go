package app

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/kart-io/pm-copilot/internal/console/view"
	v1 "github.com/kart-io/pm-copilot/pkg/api/copilot/v1"
	"github.com/kart-io/pm-copilot/pkg/client/copilot"
)

func newHealthCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show whether the backend is reachable",
		Long: `Show whether the backend is reachable.

An unreachable backend is reported as "Disconnected" rather than as an error,
so the command exits 0 either way.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := c.client()
			r := copilot.Do(cmd.Context(), func(ctx context.Context) (*v1.HealthResponse, error) {
				return client.CheckHealth(ctx)
			})
			return c.print(view.NewHealthView(r, time.Now()))
		},
	}
}
