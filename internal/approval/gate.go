// Package approval gates every proposed change behind an operator decision.
package approval

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Result is the operator's answer for one field.
type Result int

const (
	// Deny leaves the field untouched.
	Deny Result = iota
	// Grant allows the update to proceed.
	Grant
	// SkipAll denies this field and every later field in the run.
	SkipAll
)

func (r Result) String() string {
	switch r {
	case Grant:
		return "GRANT"
	case SkipAll:
		return "SKIP_ALL"
	default:
		return "DENY"
	}
}

// State is the gate state after the most recent request.
type State string

// Gate states.
const (
	StateAsk        State = "ASK"
	StateGranted    State = "GRANTED"
	StateDenied     State = "DENIED"
	StateSkippedAll State = "SKIPPED_ALL"
)

// Request describes the change the operator is asked about.
type Request struct {
	RecordID    string
	RecordName  string
	Section     string
	Reason      string
	Development string
}

// Prompter asks the operator about one Request.
type Prompter interface {
	Prompt(ctx context.Context, req Request) (Result, error)
}

// Gate wraps a Prompter with run-wide skip-all semantics. Once the operator
// answers skip-all, every later Ask returns SkipAll without prompting.
type Gate struct {
	prompter Prompter

	mu    sync.Mutex
	state State
}

// NewGate creates a Gate in the ASK state.
func NewGate(p Prompter) *Gate {
	return &Gate{prompter: p, state: StateAsk}
}

// Ask returns the decision for req. Prompter errors, including an
// interrupted read, deny this field only.
func (g *Gate) Ask(ctx context.Context, req Request) Result {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == StateSkippedAll {
		return SkipAll
	}

	res, err := g.prompter.Prompt(ctx, req)
	if err != nil {
		zap.L().Warn("approval prompt interrupted, denying",
			zap.String("record", req.RecordID),
			zap.String("section", req.Section),
			zap.Error(err),
		)
		res = Deny
	}

	switch res {
	case Grant:
		g.state = StateGranted
	case SkipAll:
		g.state = StateSkippedAll
		zap.L().Info("operator skipped all remaining updates")
	default:
		g.state = StateDenied
	}
	return res
}

// State returns the current gate state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Skipped reports whether the run has been skipped.
func (g *Gate) Skipped() bool {
	return g.State() == StateSkippedAll
}
