package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nugget/stratagem/internal/shell"
	"github.com/nugget/stratagem/internal/tools"
)

// reportOptions are the arguments of "stratagem report".
type reportOptions struct {
	Target    string
	Objective string
	ExportDir string
}

func parseReportArgs(args []string) (reportOptions, error) {
	var opts reportOptions
	for i := 0; i < len(args); i++ {
		var name, value string
		if k, v, ok := strings.Cut(args[i], "="); ok && strings.HasPrefix(k, "-") {
			name, value = k, v
		} else {
			name = args[i]
			if i+1 >= len(args) {
				return opts, fmt.Errorf("flag %s needs a value", name)
			}
			value = args[i+1]
			i++
		}
		switch name {
		case "-target", "--target":
			opts.Target = value
		case "-objective", "--objective":
			opts.Objective = value
		case "-export", "--export":
			opts.ExportDir = value
		default:
			return opts, fmt.Errorf("unknown report flag: %s", name)
		}
	}
	return opts, nil
}

// runReport handles "stratagem report". Logs and progress go to stderr so
// stdout carries only the report.
func runReport(ctx context.Context, stdout, stderr io.Writer, configPath, outputFmt string, opts reportOptions) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger := configuredLogger(stderr, cfg)

	sh, err := newShell(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return report(ctx, stdout, stderr, sh, outputFmt, opts)
}

// reportJSON is the -o json form of a finished report.
type reportJSON struct {
	Target       string  `json:"target"`
	Objective    string  `json:"objective"`
	Model        string  `json:"model"`
	RunID        string  `json:"run_id"`
	ToolCalls    int     `json:"tool_calls"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	ElapsedSecs  float64 `json:"elapsed_seconds"`
	Filename     string  `json:"filename"`
	Report       string  `json:"report"`
}

// report submits one run through sh and prints the outcome.
func report(ctx context.Context, stdout, stderr io.Writer, sh *shell.Shell, outputFmt string, opts reportOptions) error {
	ctx = tools.WithNotifier(ctx, tools.NotifierFunc(func(e tools.Event) {
		fmt.Fprintln(stderr, e.Message)
	}))

	out := sh.Submit(ctx, opts.Target, opts.Objective)
	switch out.State {
	case shell.Idle:
		return errors.New(out.Warning)
	case shell.Error:
		return fmt.Errorf("report: %w", out.Err)
	}

	rep := out.Report
	if outputFmt == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reportJSON{
			Target:       out.Spec.Name,
			Objective:    string(out.Spec.Objective),
			Model:        rep.Model,
			RunID:        rep.RunID,
			ToolCalls:    rep.ToolCalls,
			InputTokens:  rep.InputTokens,
			OutputTokens: rep.OutputTokens,
			ElapsedSecs:  rep.Elapsed.Seconds(),
			Filename:     out.Filename,
			Report:       rep.Text,
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(stdout, "📂 Intelligence Dossier: %s\n", strings.ToUpper(out.Spec.Name))
		fmt.Fprintf(stdout, "Objective: %s\n\n", out.Spec.Objective)
		fmt.Fprintln(stdout, rep.Text)
	}

	if opts.ExportDir != "" {
		path := filepath.Join(opts.ExportDir, out.Filename)
		if err := os.WriteFile(path, []byte(rep.Text), 0o644); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Fprintf(stderr, "  ✓ %s\n", path)
	}
	fmt.Fprintln(stderr, "✅ Analysis Complete")
	return nil
}
