// Package options contains flags and options for the copilot console.
package options

import (
	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	consoleopts "github.com/kart-io/pm-copilot/pkg/options/console"
	logopts "github.com/kart-io/pm-copilot/pkg/options/logger"
	tracingopts "github.com/kart-io/pm-copilot/pkg/options/tracing"
)

// Options contains the configuration shared by every copilot command.
type Options struct {
	// Log contains logger configuration.
	Log *logopts.Options `json:"log" mapstructure:"log"`

	// Trace contains OpenTelemetry tracing configuration.
	Trace *tracingopts.Options `json:"trace" mapstructure:"trace"`

	// Console contains presentation configuration.
	Console *consoleopts.Options `json:"console" mapstructure:"console"`
}

// NewOptions creates an Options instance with default values.
func NewOptions() *Options {
	return &Options{
		Log:     logopts.NewOptions(),
		Trace:   tracingopts.NewOptions(),
		Console: consoleopts.NewOptions(),
	}
}

// FlagSet is a named group of flags.
type FlagSet struct {
	Name  string
	Flags *pflag.FlagSet
}

// Flags returns the option flags grouped by section, in a stable order.
func (o *Options) Flags() []FlagSet {
	sections := []struct {
		name string
		add  func(*pflag.FlagSet)
	}{
		{"console", o.Console.AddFlags},
		{"log", o.Log.AddFlags},
		{"trace", o.Trace.AddFlags},
	}

	fss := make([]FlagSet, 0, len(sections))
	for _, s := range sections {
		fs := pflag.NewFlagSet(s.name, pflag.ContinueOnError)
		s.add(fs)
		fss = append(fss, FlagSet{Name: s.name, Flags: fs})
	}
	return fss
}

// AddFlags adds every section's flags to fs.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	for _, s := range o.Flags() {
		fs.AddFlagSet(s.Flags)
	}
}

// Complete fills in defaults left empty by config and flags.
func (o *Options) Complete() error {
	if err := o.Log.Complete(); err != nil {
		return err
	}
	if err := o.Trace.Complete(); err != nil {
		return err
	}
	return o.Console.Complete()
}

// Validate checks every section and reports all problems at once.
func (o *Options) Validate() error {
	var errs []error

	if err := o.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := o.Trace.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := o.Console.Validate(); err != nil {
		errs = append(errs, err)
	}

	return utilerrors.NewAggregate(errs)
}
