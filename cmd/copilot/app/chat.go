package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kart-io/logger"
	"github.com/spf13/cobra"

	"github.com/kart-io/pm-copilot/internal/console/chat"
	"github.com/kart-io/pm-copilot/pkg/validator"
)

const chatPrompt = "> "

func newChatCommand(c *cli) *cobra.Command {
	var sources bool

	cmd := &cobra.Command{
		Use:   "chat [message...]",
		Short: "Ask the agent a question",
		Long: `Ask the agent a question.

With a message, one turn is sent and the answer printed. Without one, an
interactive session starts with the existing conversation history and reads
one message per line until EOF, "exit" or "quit".`,
		Example: `  copilot chat "Draft release notes for 2.3"
  copilot chat --sources=false`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("sources") {
				sources = c.opts.Console.IncludeSources
			}

			session := chat.NewSession(c.client(),
				chat.WithIncludeSources(sources),
				chat.WithLang(c.opts.Console.Lang),
				chat.WithHistorySync(len(args) == 0),
			)

			if len(args) > 0 {
				turn, err := session.Send(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				return c.print(turn)
			}
			return c.interactive(cmd.Context(), session)
		},
	}

	cmd.Flags().BoolVar(&sources, "sources", true, "Ask the agent to cite its sources (default console.include-sources)")
	return cmd
}

// interactive runs a read-send-print loop over stdin. A failed turn is
// reported and the loop goes on.
func (c *cli) interactive(ctx context.Context, session *chat.Session) error {
	if err := session.Load(ctx); err != nil {
		logger.Warnw("Could not load conversation history", "error", err.Error())
	} else if turns := session.Transcript(); len(turns) > 0 {
		if err := c.print(turns); err != nil {
			return err
		}
	}

	lines, readErr := c.readLines(ctx)
	for {
		fmt.Fprint(c.errOut, chatPrompt)

		var raw string
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.errOut)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(c.errOut)
				return readErr()
			}
			raw = l
		}

		line := strings.TrimSpace(raw)
		switch line {
		case "exit", "quit":
			return nil
		case "":
			continue
		}

		turn, err := session.Send(ctx, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			var verrs *validator.ValidationErrors
			if errors.As(err, &verrs) {
				fmt.Fprintf(c.errOut, "Error: %s\n", verrs.First())
				continue
			}
			fmt.Fprintf(c.errOut, "Error: %v\n", err)
			continue
		}
		if err := c.print(turn); err != nil {
			return err
		}
	}
}

// readLines scans c.in on its own goroutine so that a cancelled context
// is not held up by a blocked read. The returned func reports the scan
// error once lines is closed.
func (c *cli) readLines(ctx context.Context) (<-chan string, func() error) {
	lines := make(chan string)
	var scanErr error

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr = scanner.Err()
	}()

	return lines, func() error { return scanErr }
}
