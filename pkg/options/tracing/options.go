// Package tracing defines the command-line options for OpenTelemetry tracing.
package tracing

import (
	"fmt"

	"github.com/spf13/pflag"
)

// SamplerType defines the type of sampler to use.
type SamplerType string

const (
	// SamplerAlwaysOn samples all traces.
	SamplerAlwaysOn SamplerType = "always_on"
	// SamplerAlwaysOff never samples traces.
	SamplerAlwaysOff SamplerType = "always_off"
	// SamplerRatio samples traces based on a ratio.
	SamplerRatio SamplerType = "ratio"
	// SamplerParentBased uses the parent span's sampling decision.
	SamplerParentBased SamplerType = "parent_based"
)

// ExporterType defines the type of exporter to use.
type ExporterType string

const (
	// ExporterStdout writes finished spans as JSON to stderr.
	ExporterStdout ExporterType = "stdout"
	// ExporterNoop does not export spans.
	ExporterNoop ExporterType = "noop"
	// ExporterOTLPHTTP exports spans via OTLP over HTTP.
	ExporterOTLPHTTP ExporterType = "otlp_http"
)

// Options defines configuration for OpenTelemetry tracing.
type Options struct {
	// Enabled enables or disables tracing.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `json:"service-name" mapstructure:"service-name"`

	// ExporterType specifies which exporter to use.
	ExporterType ExporterType `json:"exporter-type" mapstructure:"exporter-type"`

	// Endpoint is the OTLP collector address, host:port without scheme.
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`

	// Insecure sends OTLP over plain HTTP.
	Insecure bool `json:"insecure" mapstructure:"insecure"`

	// SamplerType specifies the sampling strategy.
	SamplerType SamplerType `json:"sampler-type" mapstructure:"sampler-type"`

	// SamplerRatio is the sampling ratio (0.0 to 1.0) for ratio and parent_based sampling.
	SamplerRatio float64 `json:"sampler-ratio" mapstructure:"sampler-ratio"`
}

// NewOptions creates default tracing options.
func NewOptions() *Options {
	return &Options{
		Enabled:      false,
		ServiceName:  "pm-copilot",
		ExporterType: ExporterStdout,
		Endpoint:     "localhost:4318",
		Insecure:     true,
		SamplerType:  SamplerParentBased,
		SamplerRatio: 1.0,
	}
}

// AddFlags adds flags for tracing options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.BoolVar(&o.Enabled, "trace.enabled", o.Enabled, "Enable OpenTelemetry tracing of backend calls")
	fs.StringVar(&o.ServiceName, "trace.service-name", o.ServiceName, "Service name for tracing")
	fs.StringVar((*string)(&o.ExporterType), "trace.exporter-type", string(o.ExporterType), "Exporter type (stdout, otlp_http, noop)")
	fs.StringVar(&o.Endpoint, "trace.endpoint", o.Endpoint, "OTLP collector endpoint (host:port), used by otlp_http")
	fs.BoolVar(&o.Insecure, "trace.insecure", o.Insecure, "Disable TLS for the OTLP connection")
	fs.StringVar((*string)(&o.SamplerType), "trace.sampler-type", string(o.SamplerType), "Sampler type (always_on, always_off, ratio, parent_based)")
	fs.Float64Var(&o.SamplerRatio, "trace.sampler-ratio", o.SamplerRatio, "Sampling ratio (0.0 to 1.0)")
}

// Complete fills in any missing values with defaults.
func (o *Options) Complete() error {
	if o.ServiceName == "" {
		o.ServiceName = "pm-copilot"
	}
	return nil
}

// Validate validates the tracing options.
func (o *Options) Validate() error {
	if !o.Enabled {
		return nil
	}

	if o.ServiceName == "" {
		return fmt.Errorf("tracing: service name is required when tracing is enabled")
	}

	switch o.ExporterType {
	case ExporterStdout, ExporterNoop:
	case ExporterOTLPHTTP:
		if o.Endpoint == "" {
			return fmt.Errorf("tracing: endpoint is required for exporter type %s", o.ExporterType)
		}
	default:
		return fmt.Errorf("tracing: invalid exporter type: %s", o.ExporterType)
	}

	switch o.SamplerType {
	case SamplerAlwaysOn, SamplerAlwaysOff, SamplerRatio, SamplerParentBased:
	default:
		return fmt.Errorf("tracing: invalid sampler type: %s", o.SamplerType)
	}

	if o.SamplerRatio < 0.0 || o.SamplerRatio > 1.0 {
		return fmt.Errorf("tracing: sampler ratio must be between 0.0 and 1.0, got %f", o.SamplerRatio)
	}

	return nil
}
