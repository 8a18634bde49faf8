// Package app provides the copilot console application.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/pm-copilot/cmd/copilot/app/options"
	"github.com/kart-io/pm-copilot/internal/console/render"
	"github.com/kart-io/pm-copilot/pkg/client/copilot"
	"github.com/kart-io/pm-copilot/pkg/infra/app"
	"github.com/kart-io/pm-copilot/pkg/infra/tracing"
	"github.com/kart-io/pm-copilot/pkg/utils/id"
)

const (
	// Name is the name of the application. It also names the config file
	// (copilot.yaml) and the environment prefix (COPILOT_).
	Name = "copilot"

	// commandDesc is the description of the command.
	commandDesc = `PM Copilot console

A terminal client for the PM Copilot knowledge-base agent.

It can:
  - Chat with the agent and show the sources it cites
  - Search the knowledge base
  - Show index statistics and backend health
  - Show or clear the conversation history`

	shutdownTimeout = 5 * time.Second
)

// cli carries what every command needs once options are loaded.
type cli struct {
	opts   *options.Options
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	// clientOpts are appended to the defaults; tests point the client at a fake backend.
	clientOpts []copilot.Option
	provider   *tracing.Provider
}

func newCLI(opts *options.Options) *cli {
	return &cli{
		opts:   opts,
		in:     os.Stdin,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
}

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	return newApp(newCLI(options.NewOptions()))
}

func newApp(c *cli) *app.App {
	return app.NewApp(
		app.WithName(Name),
		app.WithShortDescription("PM Copilot console"),
		app.WithDescription(commandDesc),
		app.WithOptions(c.opts),
		app.WithInitFunc(c.setup),
		app.WithCleanupFunc(c.cleanup),
		app.WithCommands(
			newHealthCommand(c),
			newChatCommand(c),
			newSearchCommand(c),
			newStatsCommand(c),
			newHistoryCommand(c),
			newDashboardCommand(c),
		),
	)
}

// setup configures logging and tracing from the loaded options.
func (c *cli) setup() error {
	c.opts.Log.AddInitialField("service.name", Name)
	c.opts.Log.AddInitialField("service.version", app.GetVersion())
	if err := c.opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	provider, err := tracing.NewProvider(c.opts.Trace, tracing.WithWriter(c.errOut))
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	c.provider = provider

	logger.Debugw("Console initialized",
		"output", c.opts.Console.Output,
		"tracing", provider.Enabled(),
	)
	return nil
}

// cleanup flushes spans that are still buffered.
func (c *cli) cleanup() {
	if c.provider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := c.provider.Shutdown(ctx); err != nil {
		logger.Warnw("Failed to shut down tracing", "error", err.Error())
	}
}

func (c *cli) client() *copilot.Client {
	opts := []copilot.Option{
		copilot.WithHeader("User-Agent", app.UserAgent(Name)),
	}
	if c.opts.Console.RequestID {
		opts = append(opts, copilot.WithRequestID(id.NewULIDGenerator()))
	}
	opts = append(opts, c.clientOpts...)
	return copilot.NewClient(opts...)
}

func (c *cli) printer() (*render.Printer, error) {
	format, err := render.ParseFormat(c.opts.Console.Output)
	if err != nil {
		return nil, err
	}
	return render.NewPrinter(c.out, format), nil
}

func (c *cli) print(v any) error {
	p, err := c.printer()
	if err != nil {
		return err
	}
	return p.Print(v)
}
