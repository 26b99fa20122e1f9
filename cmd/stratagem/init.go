package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nugget/stratagem/examples"
)

// runInit writes the example config.yaml and a .env credentials template
// into dir. Existing files are never overwritten.
func runInit(w io.Writer, dir string) error {
	fmt.Fprintf(w, "Initializing Stratagem in %s\n", dir)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	files := []struct {
		name    string
		content []byte
	}{
		{"config.yaml", examples.ConfigYAML},
		{".env", examples.DotEnv},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		wrote, err := writeIfMissing(path, f.content)
		if err != nil {
			return err
		}
		if wrote {
			fmt.Fprintf(w, "  ✓ %s\n", path)
		} else {
			fmt.Fprintf(w, "  - %s (exists, skipped)\n", path)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Add your model and search API keys to .env, then run: stratagem serve")
	return nil
}

// writeIfMissing writes content to path only if the file does not already
// exist. Files may hold credentials, so they are private to the owner.
func writeIfMissing(path string, content []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
