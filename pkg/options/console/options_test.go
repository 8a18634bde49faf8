package console

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOptions(t *testing.T) {
	opts := NewOptions()

	assert.Equal(t, OutputTable, opts.Output)
	assert.Equal(t, 30*time.Second, opts.Interval)
	assert.Equal(t, 10, opts.SearchK)
	assert.True(t, opts.IncludeSources)
	assert.NoError(t, opts.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		modify  func(*Options)
		wantErr string
	}{
		{name: "json", opts: []Option{WithOutput(OutputJSON)}},
		{name: "yaml", opts: []Option{WithOutput(OutputYAML)}},
		{name: "bad output", opts: []Option{WithOutput("xml")}, wantErr: "output must be one of"},
		{name: "zero interval", opts: []Option{WithInterval(0)}, wantErr: "console.interval"},
		{name: "k zero", opts: []Option{WithSearchK(0)}, wantErr: "console.search-k"},
		{name: "k max", opts: []Option{WithSearchK(MaxSearchK)}},
		{name: "k over max", opts: []Option{WithSearchK(MaxSearchK + 1)}, wantErr: "console.search-k"},
		{name: "bad lang", modify: func(o *Options) { o.Lang = "de" }, wantErr: "console.lang"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := NewOptions().Apply(tt.opts...)
			if tt.modify != nil {
				tt.modify(opts)
			}

			err := opts.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAddFlags(t *testing.T) {
	opts := NewOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	opts.AddFlags(fs)

	require.NoError(t, fs.Parse([]string{"-o", "yaml", "--console.interval=5s", "--console.include-sources=false"}))

	assert.Equal(t, OutputYAML, opts.Output)
	assert.Equal(t, 5*time.Second, opts.Interval)
	assert.False(t, opts.IncludeSources)
}

func TestComplete(t *testing.T) {
	opts := &Options{}
	require.NoError(t, opts.Complete())
	assert.Equal(t, OutputTable, opts.Output)
	assert.Equal(t, "en", opts.Lang)
}
