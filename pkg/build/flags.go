// SPDX-License-Identifier: MIT
//
// Package build carries build metadata (name, version, commit, timestamp)
// injected at compile time via -ldflags. The values show up in the CLI
// version output and in startup log lines.
package build

import "fmt"

type ldFlags struct {
	Name    string
	Time    string
	Commit  string
	Version string
}

// Package-level variables for build information. These are populated by
// -ldflags during compilation, e.g.:
//
//	go build -ldflags "-X specviz/pkg/build.buildName=specviz"
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildFlags   = &ldFlags{
		Name:    "specviz",
		Time:    "unknown",
		Commit:  "unknown",
		Version: "dev",
	}
)

// Initialize copies build information from the ldflags variables into the
// buildFlags struct. Call it once, early in startup. Missing flags leave the
// development defaults in place rather than failing: a plain `go build`
// binary should still run.
func Initialize() error {
	if buildName != "" {
		buildFlags.Name = buildName
	}
	if buildTime != "" {
		buildFlags.Time = buildTime
	}
	if buildCommit != "" {
		buildFlags.Commit = buildCommit
	}
	if buildVersion != "" {
		buildFlags.Version = buildVersion
	}
	return nil
}

// GetBuildFlags returns the current build information. Safe to call after
// Initialize.
func GetBuildFlags() *ldFlags {
	return buildFlags
}

// String renders the build info the way the version command prints it.
func (f *ldFlags) String() string {
	return fmt.Sprintf("%s %s (%s, built %s)", f.Name, f.Version, f.Commit, f.Time)
}
