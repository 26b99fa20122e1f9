// Package shell drives one operator interaction: validate the target,
// run the agent once, and hand back either a report or an error. It
// knows nothing about how the result is rendered.
package shell

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/nugget/stratagem/internal/agent"
	"github.com/nugget/stratagem/internal/target"
)

// State is the position of the shell in its interaction cycle.
type State string

const (
	Idle       State = "idle"
	Validating State = "validating"
	Running    State = "running"
	Complete   State = "complete"
	Error      State = "error"
)

func (s State) String() string { return string(s) }

// IsTerminal reports whether s ends a submission.
func (s State) IsTerminal() bool {
	return s == Complete || s == Error
}

// busy reports whether a submission is in flight.
func (s State) busy() bool {
	return s == Validating || s == Running
}

// WarningEmptyName is shown when the operator submits without a target.
const WarningEmptyName = "⚠️ Protocol Halted: Please define a Target Asset."

// ErrBusy is returned when a submission arrives while another is running.
var ErrBusy = errors.New("shell: a run is already in progress")

// Invoker runs one agent session.
type Invoker interface {
	Run(ctx context.Context, spec target.Spec) (*agent.Report, error)
}

// Outcome is the result of one Submit.
type Outcome struct {
	State State

	// Spec is set once validation succeeds.
	Spec target.Spec

	// Warning is set when validation sent the shell back to Idle.
	Warning string

	// Report and Filename are set in Complete.
	Report   *agent.Report
	Filename string

	// Err is set in Error.
	Err error
}

// Shell serializes submissions against one Invoker.
type Shell struct {
	invoker Invoker
	logger  *slog.Logger

	mu    sync.Mutex
	state State
}

// New creates a Shell in the Idle state.
func New(inv Invoker, logger *slog.Logger) *Shell {
	if logger == nil {
		logger = slog.Default()
	}
	return &Shell{
		invoker: inv,
		logger:  logger.With("component", "shell"),
		state:   Idle,
	}
}

// State returns the current state.
func (s *Shell) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// transition moves to next, refusing to start while a submission is in
// flight.
func (s *Shell) transition(next State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next == Validating && s.state.busy() {
		return false
	}
	s.logger.Debug("state change", "from", s.state, "to", next)
	s.state = next
	return true
}

// Submit validates name and objective and, if the name is present, runs
// the invoker exactly once and blocks until it returns. An empty
// objective means [target.DefaultObjective].
func (s *Shell) Submit(ctx context.Context, name, objective string) Outcome {
	if !s.transition(Validating) {
		s.logger.Warn("submission refused", "target", name, "error", ErrBusy)
		return Outcome{State: Error, Err: ErrBusy}
	}

	spec, err := target.New(name, objective)
	if errors.Is(err, target.ErrEmptyName) {
		s.transition(Idle)
		return Outcome{State: Idle, Warning: WarningEmptyName}
	}
	if err != nil {
		s.transition(Error)
		return Outcome{State: Error, Err: err}
	}

	s.transition(Running)
	defer func() {
		// A panic below must not leave the shell stuck in Running.
		if r := recover(); r != nil {
			s.transition(Error)
			s.logger.Error("run panicked", "target", spec.Name, "panic", r)
			panic(r)
		}
	}()
	report, err := s.invoker.Run(ctx, spec)
	if err != nil {
		s.transition(Error)
		return Outcome{State: Error, Spec: spec, Err: err}
	}

	s.transition(Complete)
	return Outcome{
		State:    Complete,
		Spec:     spec,
		Report:   report,
		Filename: spec.ExportFilename(),
	}
}
