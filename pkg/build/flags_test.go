// SPDX-License-Identifier: MIT
package build

import "testing"

func TestInitializeDefaults(t *testing.T) {
	// Without ldflags the development defaults must survive Initialize.
	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	flags := GetBuildFlags()
	if flags.Name == "" {
		t.Error("build name should never be empty")
	}
	if flags.Version == "" {
		t.Error("build version should never be empty")
	}
}

func TestInitializeOverrides(t *testing.T) {
	buildName = "testapp"
	buildVersion = "1.2.3"
	buildCommit = "abc123"
	buildTime = "2026-01-01T00:00:00Z"
	defer func() {
		buildName, buildVersion, buildCommit, buildTime = "", "", "", ""
	}()

	if err := Initialize(); err != nil {
		t.Fatalf("Initialize() returned error: %v", err)
	}

	flags := GetBuildFlags()
	if flags.Name != "testapp" {
		t.Errorf("Name = %q, want %q", flags.Name, "testapp")
	}
	if flags.Version != "1.2.3" {
		t.Errorf("Version = %q, want %q", flags.Version, "1.2.3")
	}
	if flags.Commit != "abc123" {
		t.Errorf("Commit = %q, want %q", flags.Commit, "abc123")
	}
}

func TestString(t *testing.T) {
	f := &ldFlags{Name: "specviz", Version: "0.1.0", Commit: "deadbee", Time: "now"}
	got := f.String()
	want := "specviz 0.1.0 (deadbee, built now)"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
