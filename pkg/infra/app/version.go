package app

import (
	"github.com/kart-io/version"
)

// GetVersion returns the version string.
func GetVersion() string {
	return version.Get().GitVersion
}

// GetVersionInfo returns the full version information.
func GetVersionInfo() version.Info {
	return version.Get()
}

// UserAgent returns the User-Agent sent by the named client.
func UserAgent(name string) string {
	return name + "/" + GetVersion()
}
