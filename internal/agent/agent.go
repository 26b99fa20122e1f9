// Package agent runs one intelligence session: it hands the model an
// analyst instruction and the registered tools, executes the tool calls
// the model asks for, and returns the model's final Markdown report.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nugget/stratagem/internal/llm"
	"github.com/nugget/stratagem/internal/target"
	"github.com/nugget/stratagem/internal/tools"
)

// ErrEmptyReport is returned when the model finishes without any text.
var ErrEmptyReport = errors.New("model returned an empty report")

// Config holds per-process session settings.
type Config struct {
	Model         string
	Temperature   float32
	MaxTokens     int
	MaxToolRounds int
}

// Report is the result of one completed run.
type Report struct {
	Target       target.Spec
	Text         string
	Model        string
	ToolCalls    int
	InputTokens  int
	OutputTokens int
	Elapsed      time.Duration
	RunID        string
}

// Invoker runs sessions against one model with one tool registry.
// It keeps no state between runs.
type Invoker struct {
	client llm.Client
	tools  *tools.Registry
	cfg    Config
	logger *slog.Logger
}

// New creates an Invoker. A non-positive MaxToolRounds means the model
// must answer without calling tools.
func New(client llm.Client, registry *tools.Registry, cfg Config, logger *slog.Logger) *Invoker {
	if logger == nil {
		logger = slog.Default()
	}
	if registry == nil {
		registry = tools.NewRegistry(logger)
	}
	return &Invoker{
		client: client,
		tools:  registry,
		cfg:    cfg,
		logger: logger.With("component", "agent"),
	}
}

// Model returns the configured model name.
func (inv *Invoker) Model() string { return inv.cfg.Model }

// Run executes one session to completion. Tool calls run one at a time
// in the order the model lists them. After MaxToolRounds rounds of tool
// calls the next request disables tools so the model has to answer.
//
// The run id is taken from ctx when present; otherwise one is minted and
// attached so tools can tag their progress events.
func (inv *Invoker) Run(ctx context.Context, spec target.Spec) (*Report, error) {
	runID := tools.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = tools.WithRunID(ctx, runID)
	}
	log := inv.logger.With("run_id", runID, "target", spec.Name)

	start := time.Now()
	log.Info("run started", "objective", spec.Objective, "model", inv.cfg.Model, "provider", inv.client.Provider())

	defs := inv.toolDefs()
	messages := []llm.Message{{Role: llm.RoleUser, Content: UserPrompt(spec)}}
	report := &Report{Target: spec, Model: inv.cfg.Model, RunID: runID}

	for round := 0; ; round++ {
		req := &llm.Request{
			Model:        inv.cfg.Model,
			System:       SystemPrompt(spec),
			Messages:     messages,
			Tools:        defs,
			Temperature:  inv.cfg.Temperature,
			MaxTokens:    inv.cfg.MaxTokens,
			DisableTools: round >= inv.cfg.MaxToolRounds,
		}

		resp, err := inv.client.Chat(ctx, req)
		if err != nil {
			log.Error("run failed", "round", round, "error", err)
			return nil, fmt.Errorf("agent: %w", err)
		}
		report.InputTokens += resp.InputTokens
		report.OutputTokens += resp.OutputTokens
		if resp.Model != "" {
			report.Model = resp.Model
		}

		calls := resp.Message.ToolCalls
		if len(calls) == 0 || req.DisableTools {
			text := strings.TrimSpace(resp.Message.Content)
			if text == "" {
				log.Error("run failed", "round", round, "error", ErrEmptyReport)
				return nil, fmt.Errorf("agent: %w", ErrEmptyReport)
			}
			report.Text = text
			report.Elapsed = time.Since(start)
			log.Info("run complete",
				"rounds", round,
				"tool_calls", report.ToolCalls,
				"input_tokens", report.InputTokens,
				"output_tokens", report.OutputTokens,
				"elapsed", report.Elapsed.Round(time.Millisecond),
			)
			return report, nil
		}

		log.Debug("model requested tools", "round", round, "count", len(calls))
		messages = append(messages, resp.Message)
		for _, call := range calls {
			result := inv.tools.Execute(ctx, call.Function.Name, call.Function.Arguments)
			messages = append(messages, llm.ToolResultMessage(call, result))
			report.ToolCalls++
		}
	}
}

func (inv *Invoker) toolDefs() []llm.ToolDef {
	all := inv.tools.All()
	defs := make([]llm.ToolDef, 0, len(all))
	for _, t := range all {
		defs = append(defs, llm.ToolDef{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return defs
}
