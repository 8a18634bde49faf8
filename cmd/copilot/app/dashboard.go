package app

import (
	"fmt"
	"time"

	"github.com/kart-io/logger"
	"github.com/spf13/cobra"

	"github.com/kart-io/pm-copilot/internal/console/dashboard"
	"github.com/kart-io/pm-copilot/internal/console/render"
	"github.com/kart-io/pm-copilot/pkg/infra/pool"
)

// clearScreen moves the cursor home and clears the terminal.
const clearScreen = "\033[H\033[2J"

func newDashboardCommand(c *cli) *cobra.Command {
	var (
		watch    bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show health, index statistics and history together",
		Long: `Show health, index statistics and history together.

The three panes are fetched concurrently; one failing pane does not hide the
others. With --watch the dashboard is refreshed every interval until
interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("interval") {
				interval = c.opts.Console.Interval
			}
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive")
			}

			printer, err := c.printer()
			if err != nil {
				return err
			}

			p, err := pool.NewPool("dashboard", pool.DefaultConfig())
			if err != nil {
				return fmt.Errorf("failed to create worker pool: %w", err)
			}
			defer p.Release()

			d := dashboard.New(c.client(), p)

			if !watch {
				return printer.Print(d.Snapshot(cmd.Context()).View())
			}

			return d.Watch(cmd.Context(), interval, func(v dashboard.View) {
				if printer.Format() == render.FormatTable {
					fmt.Fprint(c.out, clearScreen)
				}
				if err := printer.Print(v); err != nil {
					logger.Warnw("Failed to render dashboard", "error", err.Error())
				}
			})
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep refreshing until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Refresh interval in watch mode (default console.interval)")
	return cmd
}
