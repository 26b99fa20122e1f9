// Stratagem is a market-intelligence dashboard. An operator names a
// company and an objective; a hosted language model researches it with
// web search, market quotes and page extraction, and writes a Markdown
// dossier that can be exported.
//
// Configuration is optional YAML (see [config.DefaultSearchPaths]) layered
// under the environment and a .env file in the working directory.
//
// Usage:
//
//	stratagem serve                          Start the dashboard
//	stratagem report -target <name>          Run one analysis and print it
//	stratagem init [dir]                     Write example config and .env
//	stratagem version                        Print version and build information
//	stratagem -o json version                Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nugget/stratagem/internal/agent"
	"github.com/nugget/stratagem/internal/buildinfo"
	"github.com/nugget/stratagem/internal/config"
	"github.com/nugget/stratagem/internal/fetch"
	"github.com/nugget/stratagem/internal/llm"
	"github.com/nugget/stratagem/internal/quote"
	"github.com/nugget/stratagem/internal/search"
	"github.com/nugget/stratagem/internal/shell"
	"github.com/nugget/stratagem/internal/tools"
	"github.com/nugget/stratagem/internal/web"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run], so the whole
// lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the stratagem command. Arguments are
// parsed by hand rather than with the flag package so that run holds no
// global state and can be called concurrently from tests.
//
// run returns nil on clean shutdown and a non-nil error for any failure.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case command != "":
			// Everything after the command belongs to it.
			cmdArgs = append(cmdArgs, args[i])
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-"):
			command = args[i]
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "report":
		opts, err := parseReportArgs(cmdArgs)
		if err != nil {
			return err
		}
		return runReport(ctx, stdout, stderr, configPath, outputFmt, opts)
	case "init":
		dir := "."
		if len(cmdArgs) > 0 {
			dir = cmdArgs[0]
		}
		return runInit(stdout, dir)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "edition", "git_commit", "git_branch", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Stratagem - Market Intelligence & Competitor Reconnaissance")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: stratagem [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the dashboard")
	fmt.Fprintln(w, "  report       Run one analysis: -target <name> [-objective <label>] [-export <dir>]")
	fmt.Fprintln(w, "  init [dir]   Write example config.yaml and .env (default: .)")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover, optional)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/stratagem/config.yaml, /etc/stratagem/config.yaml")
	return nil
}

// runServe handles "stratagem serve". Credentials are checked before
// anything else is constructed; the dashboard then runs until SIGINT or
// SIGTERM.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo, "text")
	logger.Info("starting Stratagem", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger = configuredLogger(stdout, cfg)
	logger.Info("config loaded",
		"path", cfgPath,
		"model_provider", cfg.Model.Provider,
		"model", cfg.Model.Name,
		"search_provider", cfg.Search.Provider,
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sh, err := newShell(ctx, cfg, logger)
	if err != nil {
		return err
	}

	ws := web.NewWebServer(web.Config{
		Shell:    sh,
		Model:    cfg.Model.Name,
		Provider: cfg.Model.Provider,
		Logger:   logger,
	})
	addr := fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port)
	return ws.Start(ctx, addr)
}

// newLogger creates a structured logger that writes to w at the given
// level and format. Format must be "text" or "json"; any other value
// defaults to text.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// configuredLogger builds the logger described by cfg. Level and format
// were checked by [config.Config.Validate].
func configuredLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	format, _ := config.ParseLogFormat(cfg.LogFormat)
	return newLogger(w, level, format)
}

// loadConfig loads .env, resolves the optional YAML file and validates
// the result. A missing credential yields [*config.MissingKeysError].
func loadConfig(explicit string) (*config.Config, string, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, "", err
	}

	cfg, cfgPath, err := config.Resolve(explicit)
	if err != nil {
		if cfgPath != "" {
			return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
		}
		return nil, "", err
	}
	if err := cfg.Validate(); err != nil {
		return nil, cfgPath, err
	}
	return cfg, cfgPath, nil
}

// newRegistry registers the three analyst tools in the order the model
// sees them.
func newRegistry(cfg *config.Config, logger *slog.Logger) *tools.Registry {
	mgr := search.NewManager(cfg.Search.Provider)
	if cfg.Search.Tavily.APIKey != "" {
		mgr.Register(search.NewTavily(cfg.Search.Tavily.APIKey))
	}
	if cfg.Search.Brave.APIKey != "" {
		mgr.Register(search.NewBrave(cfg.Search.Brave.APIKey))
	}
	if cfg.Search.SearXNG.URL != "" {
		mgr.Register(search.NewSearXNG(cfg.Search.SearXNG.URL))
	}
	logger.Debug("search providers", "primary", mgr.Primary(), "registered", mgr.Providers())

	registry := tools.NewRegistry(logger.With("component", "tools"))
	registry.Register(search.Tool(mgr, cfg.Search.Depth))
	registry.Register(quote.Tool(quote.NewYahoo(cfg.Quote.BaseURL, logger.With("component", "quote"))))
	registry.Register(fetch.Tool(fetch.New()))
	return registry
}

// newShell wires the model client, tools and agent into a Shell.
func newShell(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*shell.Shell, error) {
	client, err := llm.New(ctx, cfg.Model, logger)
	if err != nil {
		return nil, fmt.Errorf("create model client: %w", err)
	}
	inv := agent.New(client, newRegistry(cfg, logger), agent.Config{
		Model:         cfg.Model.Name,
		Temperature:   cfg.Model.Temperature,
		MaxTokens:     cfg.Model.MaxTokens,
		MaxToolRounds: cfg.Model.MaxToolRounds,
	}, logger)
	return shell.New(inv, logger), nil
}
