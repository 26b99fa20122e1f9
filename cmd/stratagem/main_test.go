package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nugget/stratagem/internal/buildinfo"
	"github.com/nugget/stratagem/internal/config"
)

// isolate runs the test in an empty directory with no credentials in the
// environment and no config on the search path.
func isolate(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY",
		"TAVILY_API_KEY", "BRAVE_API_KEY", "SEARXNG_URL",
	} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Chdir(dir)
}

func TestRun_Usage(t *testing.T) {
	for _, args := range [][]string{nil, {"-h"}, {"--help"}} {
		var stdout, stderr bytes.Buffer
		if err := run(context.Background(), &stdout, &stderr, args); err != nil {
			t.Fatalf("run(%v): %v", args, err)
		}
		if !strings.Contains(stdout.String(), "Usage: stratagem") {
			t.Errorf("run(%v) output missing usage: %q", args, stdout.String())
		}
	}
}

func TestRun_Version(t *testing.T) {
	var stdout bytes.Buffer
	if err := run(context.Background(), &stdout, &bytes.Buffer{}, []string{"version"}); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(stdout.String(), buildinfo.Version) {
		t.Errorf("version output = %q", stdout.String())
	}
}

func TestRun_VersionJSON(t *testing.T) {
	var stdout bytes.Buffer
	if err := run(context.Background(), &stdout, &bytes.Buffer{}, []string{"-o", "json", "version"}); err != nil {
		t.Fatalf("version: %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal(stdout.Bytes(), &info); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout.String())
	}
	if info["version"] != buildinfo.Version {
		t.Errorf("version = %q, want %q", info["version"], buildinfo.Version)
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown command", []string{"launch"}, "unknown command: launch"},
		{"unknown flag", []string{"-x", "serve"}, "unknown flag: -x"},
		{"bad output format", []string{"-o", "yaml", "version"}, "unknown output format"},
		{"bad report flag", []string{"report", "-color", "red"}, "unknown report flag: -color"},
		{"report flag without value", []string{"report", "-target"}, "needs a value"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, tt.args)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestRun_ServeMissingKeys(t *testing.T) {
	isolate(t)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), &stdout, &stderr, []string{"serve"})

	var mk *config.MissingKeysError
	if !errors.As(err, &mk) {
		t.Fatalf("err = %v, want *config.MissingKeysError", err)
	}
	if !strings.HasPrefix(err.Error(), "🚨 Missing API Keys! Please check your .env file.") {
		t.Errorf("err = %q", err)
	}
	if len(mk.Missing) != 2 {
		t.Errorf("Missing = %v, want model and search keys", mk.Missing)
	}
	if strings.Contains(stdout.String(), "dashboard listening") {
		t.Error("server started despite missing keys")
	}
}

func TestRun_ReportMissingKeys(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"report", "-target", "Nvidia"})
	var mk *config.MissingKeysError
	if !errors.As(err, &mk) {
		t.Fatalf("err = %v, want *config.MissingKeysError", err)
	}
	if len(mk.Missing) != 1 || mk.Missing[0] != "TAVILY_API_KEY" {
		t.Errorf("Missing = %v", mk.Missing)
	}
}

func TestRun_ExplicitConfigMissing(t *testing.T) {
	isolate(t)
	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{"-config", "nope.yaml", "serve"})
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("err = %v", err)
	}
}
