package app

import "github.com/spf13/pflag"

// CliOptions is implemented by the options struct handed to WithOptions.
type CliOptions interface {
	// AddFlags registers the options as flags shared by every command.
	AddFlags(fs *pflag.FlagSet)
	// Complete fills in defaults after flags and config are merged.
	Complete() error
	// Validate checks the merged options.
	Validate() error
}
