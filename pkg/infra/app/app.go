// Package app provides application bootstrapping with Cobra, Viper, and Pflag.
//
// An App is a root command whose options are shared by all of its
// subcommands. Before any command runs, configuration is loaded from file and
// environment, flags given on the command line win over both, and the options
// are completed and validated.
//
// Usage:
//
//	app := app.NewApp(
//	    app.WithName("myapp"),
//	    app.WithDescription("My application"),
//	    app.WithOptions(opts),
//	    app.WithInitFunc(initLogging),
//	    app.WithCommands(newStatusCommand(opts)),
//	)
//	app.Run()
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"

	"github.com/kart-io/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// App is the main application structure.
type App struct {
	name        string
	shortDesc   string
	description string
	options     CliOptions
	runFunc     RunFunc
	initFunc    InitFunc
	cleanupFunc CleanupFunc
	commands    []*cobra.Command
	cmd         *cobra.Command
	viper       *viper.Viper
	args        cobra.PositionalArgs
	silence     bool
	noVersion   bool
	noConfig    bool
}

// RunFunc is the root command's run function.
type RunFunc func(cmd *cobra.Command, args []string) error

// InitFunc runs once the options are complete and valid, before any command.
type InitFunc func() error

// CleanupFunc runs after the command finishes, whatever its outcome.
type CleanupFunc func()

// Option configures an App.
type Option func(*App)

// WithName sets the application name. It also names the config file and
// prefixes environment variables.
func WithName(name string) Option {
	return func(a *App) {
		a.name = name
	}
}

// WithShortDescription sets the short description.
func WithShortDescription(desc string) Option {
	return func(a *App) {
		a.shortDesc = desc
	}
}

// WithDescription sets the long description.
func WithDescription(desc string) Option {
	return func(a *App) {
		a.description = desc
	}
}

// WithOptions sets the CLI options.
func WithOptions(opts CliOptions) Option {
	return func(a *App) {
		a.options = opts
	}
}

// WithRunFunc sets the run function of the root command. Without one the root
// command prints its help.
func WithRunFunc(run RunFunc) Option {
	return func(a *App) {
		a.runFunc = run
	}
}

// WithInitFunc sets a hook that runs after options are loaded.
func WithInitFunc(fn InitFunc) Option {
	return func(a *App) {
		a.initFunc = fn
	}
}

// WithCleanupFunc sets a hook that Run calls after the command returns.
func WithCleanupFunc(fn CleanupFunc) Option {
	return func(a *App) {
		a.cleanupFunc = fn
	}
}

// WithCommands adds subcommands.
func WithCommands(cmds ...*cobra.Command) Option {
	return func(a *App) {
		a.commands = append(a.commands, cmds...)
	}
}

// WithArgs sets the positional args validation of the root command.
func WithArgs(args cobra.PositionalArgs) Option {
	return func(a *App) {
		a.args = args
	}
}

// WithSilence disables error printing by cobra.
func WithSilence() Option {
	return func(a *App) {
		a.silence = true
	}
}

// WithNoVersion disables version flag.
func WithNoVersion() Option {
	return func(a *App) {
		a.noVersion = true
	}
}

// WithNoConfig disables config file loading.
func WithNoConfig() Option {
	return func(a *App) {
		a.noConfig = true
	}
}

// NewApp creates a new application instance.
func NewApp(opts ...Option) *App {
	a := &App{
		name:  filepath.Base(os.Args[0]),
		viper: viper.New(),
	}

	for _, opt := range opts {
		opt(a)
	}

	a.buildCommand()
	return a
}

// buildCommand creates the cobra command tree.
func (a *App) buildCommand() {
	cmd := &cobra.Command{
		Use:               a.name,
		Short:             a.shortDesc,
		Long:              a.description,
		Args:              a.args,
		PersistentPreRunE: a.preRun,
		// Always silence usage on errors - users can use --help to see usage
		SilenceUsage: true,
	}

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if a.runFunc == nil {
			return cmd.Help()
		}
		return a.runFunc(cmd, args)
	}

	if a.silence {
		cmd.SilenceErrors = true
	}

	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)
	cmd.PersistentFlags().SortFlags = true

	a.addGlobalFlags(cmd)

	if a.options != nil {
		a.options.AddFlags(cmd.PersistentFlags())
	}

	cmd.AddCommand(a.commands...)
	a.cmd = cmd
}

// addGlobalFlags adds global flags to the command.
func (a *App) addGlobalFlags(cmd *cobra.Command) {
	if !a.noConfig {
		cmd.PersistentFlags().StringP("config", "c", "", "Path to config file")
	}

	if !a.noVersion {
		version.AddFlags(cmd.PersistentFlags())
	}
}

// preRun prepares the options for whichever command is executing.
func (a *App) preRun(cmd *cobra.Command, _ []string) error {
	if !a.noVersion {
		version.PrintAndExitIfRequested()
	}

	if !a.noConfig {
		if err := a.loadConfig(cmd); err != nil {
			return err
		}
	}

	if a.options != nil {
		if err := a.options.Complete(); err != nil {
			return err
		}
		if err := a.options.Validate(); err != nil {
			return err
		}
	}

	if a.initFunc != nil {
		return a.initFunc()
	}
	return nil
}

// loadConfig loads configuration from file, environment, and flags.
func (a *App) loadConfig(cmd *cobra.Command) error {
	v := a.viper

	configFile, _ := cmd.Flags().GetString("config")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(a.name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), "."+a.name))
		v.AddConfigPath("/etc/" + a.name)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	expandEnvVars(v)

	v.SetEnvPrefix(EnvPrefix(a.name))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if a.options == nil {
		return nil
	}

	// Every flag name is also a config key, so PREFIX_LOG_LEVEL fills log.level.
	// Flags set on the command line take precedence over file and env.
	var changed []changedFlag
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = v.BindEnv(f.Name)
		if f.Changed {
			changed = append(changed, saveFlag(f))
		}
	})

	if err := v.Unmarshal(a.options); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, cf := range changed {
		if err := cf.restore(cmd.Flags()); err != nil {
			return fmt.Errorf("failed to re-apply flag %s: %w", cf.name, err)
		}
	}

	return nil
}

// changedFlag is the command-line value of a flag, saved before config is
// unmarshalled over it.
type changedFlag struct {
	name  string
	value string
	slice []string
}

func saveFlag(f *pflag.Flag) changedFlag {
	cf := changedFlag{name: f.Name, value: f.Value.String()}
	if sv, ok := f.Value.(pflag.SliceValue); ok {
		cf.slice = append([]string{}, sv.GetSlice()...)
	}
	return cf
}

// restore writes the saved value back. Set on a slice flag that was already
// changed appends, so slices are replaced wholesale.
func (cf changedFlag) restore(fs *pflag.FlagSet) error {
	f := fs.Lookup(cf.name)
	if f == nil {
		return fmt.Errorf("unknown flag")
	}
	if sv, ok := f.Value.(pflag.SliceValue); ok {
		return sv.Replace(cf.slice)
	}
	return fs.Set(cf.name, cf.value)
}

// EnvPrefix returns the environment variable prefix for an application name.
func EnvPrefix(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandEnvVars expands ${VAR} and $VAR references in string config values.
// Unset variables are left as written.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		expanded := envPattern.ReplaceAllStringFunc(strVal, func(match string) string {
			var varName string
			if strings.HasPrefix(match, "${") {
				varName = match[2 : len(match)-1]
			} else {
				varName = match[1:]
			}
			if envVal := os.Getenv(varName); envVal != "" {
				return envVal
			}
			return match
		})
		if expanded != strVal {
			v.Set(key, expanded)
		}
	}
}

// Run executes the application and exits with status 1 on error. The command
// context is cancelled on SIGINT or SIGTERM; a second signal exits at once.
func (a *App) Run() {
	ctx, cancel := setupSignalContext()
	err := a.cmd.ExecuteContext(ctx)
	cancel()

	if a.cleanupFunc != nil {
		a.cleanupFunc()
	}

	if err != nil {
		if a.silence {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
func setupSignalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx, cancel
}

// Command returns the cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}
