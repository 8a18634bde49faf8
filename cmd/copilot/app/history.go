package app

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kart-io/pm-copilot/internal/console/view"
)

func newHistoryCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the conversation history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			history, err := c.client().GetHistory(cmd.Context())
			if err != nil {
				return err
			}
			return c.print(view.NewHistoryView(history))
		},
	}

	cmd.AddCommand(newHistoryClearCommand(c))
	return cmd
}

func newHistoryClearCommand(c *cli) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the conversation history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := c.client()

			history, err := client.GetHistory(cmd.Context())
			if err != nil {
				return err
			}
			if !view.NewHistoryView(history).CanClear {
				fmt.Fprintln(c.errOut, view.EmptyHistoryText)
				return nil
			}

			if !yes && !c.confirm(view.ClearHistoryPrompt) {
				fmt.Fprintln(c.errOut, "Aborted.")
				return nil
			}

			resp, err := client.ClearHistory(cmd.Context())
			if err != nil {
				return err
			}
			return c.print(resp)
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Clear without asking for confirmation")
	return cmd
}

// confirm asks a yes/no question on stderr and reads the answer from stdin.
func (c *cli) confirm(prompt string) bool {
	fmt.Fprintf(c.errOut, "%s [y/N]: ", prompt)

	answer, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
