package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "ragline" {
		t.Errorf("Use = %q, want %q", rootCmd.Use, "ragline")
	}
	if rootCmd.Short == "" || rootCmd.Long == "" {
		t.Error("root command missing descriptions")
	}

	want := []string{"serve", "ask", "ingest", "version"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	origVersion, origBuild, origCommit := AppVersion, BuildTime, GitCommit
	defer func() {
		AppVersion, BuildTime, GitCommit = origVersion, origBuild, origCommit
	}()
	AppVersion = "1.2.3"
	BuildTime = "2026-08-28T00:00:00Z"
	GitCommit = "abc1234"

	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)

	out := buf.String()
	for _, want := range []string{"ragline 1.2.3", "2026-08-28T00:00:00Z", "abc1234", "go"} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q:\n%s", want, out)
		}
	}
}

func TestBuildLogger(t *testing.T) {
	origLevel := flagLogLevel
	defer func() { flagLogLevel = origLevel }()

	for _, level := range []string{"debug", "info", "warn", "error", "WARN"} {
		flagLogLevel = level
		if _, err := buildLogger(); err != nil {
			t.Errorf("buildLogger() with level %q = %v", level, err)
		}
	}

	flagLogLevel = "verbose"
	if _, err := buildLogger(); err == nil {
		t.Error("buildLogger() accepted unknown level")
	}
}
