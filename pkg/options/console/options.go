// Package console provides the presentation options of the copilot CLI.
package console

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// Output formats understood by the renderer.
const (
	OutputTable = "table"
	OutputJSON  = "json"
	OutputYAML  = "yaml"
)

// Defaults taken from the web console.
const (
	DefaultInterval = 30 * time.Second
	DefaultSearchK  = 10
	MaxSearchK      = 100
)

// Options contains console presentation configuration.
type Options struct {
	// Output selects how results are printed: table, json or yaml.
	Output string `json:"output" mapstructure:"output"`
	// Interval is the refresh period of health and stats in watch mode.
	Interval time.Duration `json:"interval" mapstructure:"interval"`
	// SearchK is the number of documents requested by a search.
	SearchK int `json:"search-k" mapstructure:"search-k"`
	// IncludeSources asks the agent to cite its sources in chat answers.
	IncludeSources bool `json:"include-sources" mapstructure:"include-sources"`
	// RequestID attaches a generated X-Request-ID header to every call.
	RequestID bool `json:"request-id" mapstructure:"request-id"`
	// Lang selects the language of input validation messages (en, zh).
	Lang string `json:"lang" mapstructure:"lang"`
}

// Option is a function that configures Options.
type Option func(*Options)

// NewOptions creates a new Options with default values.
func NewOptions() *Options {
	return &Options{
		Output:         OutputTable,
		Interval:       DefaultInterval,
		SearchK:        DefaultSearchK,
		IncludeSources: true,
		RequestID:      true,
		Lang:           "en",
	}
}

// AddFlags adds flags for console options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.Output, "output", "o", o.Output, "Output format (table, json, yaml)")
	fs.DurationVar(&o.Interval, "console.interval", o.Interval, "Refresh interval for health and stats in watch mode")
	fs.IntVar(&o.SearchK, "console.search-k", o.SearchK, "Default number of documents returned by search")
	fs.BoolVar(&o.IncludeSources, "console.include-sources", o.IncludeSources, "Ask for source citations in chat answers")
	fs.BoolVar(&o.RequestID, "console.request-id", o.RequestID, "Send a generated X-Request-ID header with each call")
	fs.StringVar(&o.Lang, "console.lang", o.Lang, "Language of input validation messages (en, zh)")
}

// Validate validates the console options.
func (o *Options) Validate() error {
	switch o.Output {
	case OutputTable, OutputJSON, OutputYAML:
	default:
		return fmt.Errorf("output must be one of table, json, yaml, got %q", o.Output)
	}
	if o.Interval <= 0 {
		return fmt.Errorf("console.interval must be positive")
	}
	if o.SearchK < 1 || o.SearchK > MaxSearchK {
		return fmt.Errorf("console.search-k must be between 1 and %d", MaxSearchK)
	}
	if o.Lang != "en" && o.Lang != "zh" {
		return fmt.Errorf("console.lang must be 'en' or 'zh'")
	}
	return nil
}

// Complete completes the console options with defaults.
func (o *Options) Complete() error {
	if o.Output == "" {
		o.Output = OutputTable
	}
	if o.Lang == "" {
		o.Lang = "en"
	}
	return nil
}

// WithOutput sets the output format.
func WithOutput(format string) Option {
	return func(o *Options) {
		o.Output = format
	}
}

// WithInterval sets the refresh interval.
func WithInterval(d time.Duration) Option {
	return func(o *Options) {
		o.Interval = d
	}
}

// WithSearchK sets the default search result count.
func WithSearchK(k int) Option {
	return func(o *Options) {
		o.SearchK = k
	}
}

// Apply applies opts in order.
func (o *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}
