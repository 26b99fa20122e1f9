package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/nugget/stratagem/examples"
)

// clearUmask sets the process umask to 0 so file permission assertions are
// deterministic. It restores the original umask when the test completes.
func clearUmask(t *testing.T) {
	t.Helper()
	old := syscall.Umask(0)
	t.Cleanup(func() { syscall.Umask(old) })
}

func TestRunInit_FreshDirectory(t *testing.T) {
	clearUmask(t)
	dir := filepath.Join(t.TempDir(), "work")
	var buf bytes.Buffer

	if err := runInit(&buf, dir); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	for _, tc := range []struct {
		name    string
		content []byte
	}{
		{"config.yaml", examples.ConfigYAML},
		{".env", examples.DotEnv},
	} {
		path := filepath.Join(dir, tc.name)
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("%s not created: %v", tc.name, err)
		}
		if got := info.Mode().Perm(); got != 0o600 {
			t.Errorf("%s permissions = %o, want 0600", tc.name, got)
		}
		data, _ := os.ReadFile(path)
		if !bytes.Equal(data, tc.content) {
			t.Errorf("%s content differs from embedded example", tc.name)
		}
		if !strings.Contains(buf.String(), "✓ "+path) {
			t.Errorf("output missing %s", path)
		}
	}
}

func TestRunInit_DoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	custom := []byte("model:\n  provider: gemini\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), custom, 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := runInit(&buf, dir); err != nil {
		t.Fatalf("runInit failed: %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if !bytes.Equal(data, custom) {
		t.Error("existing config.yaml was overwritten")
	}
	if !strings.Contains(buf.String(), "exists, skipped") {
		t.Errorf("output = %q", buf.String())
	}
	if _, err := os.Stat(filepath.Join(dir, ".env")); err != nil {
		t.Errorf(".env not created: %v", err)
	}
}

func TestExampleConfigLoads(t *testing.T) {
	isolate(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("TAVILY_API_KEY", "tvly-test")

	var buf bytes.Buffer
	if err := runInit(&buf, "."); err != nil {
		t.Fatal(err)
	}
	cfg, path, err := loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if path != "config.yaml" {
		t.Errorf("path = %q", path)
	}
	if cfg.Model.Name != "gpt-4o-mini" || cfg.Listen.Port != 8501 || cfg.Search.Depth != "advanced" {
		t.Errorf("cfg = %+v", cfg)
	}
}
