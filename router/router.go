package router

import (
	"context"
	"errors"
	"fmt"
)

// Role is the message role in a routed conversation.
type Role string

// Roles understood by the Router's completion operation.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is the plain role/content record sent to the Router.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// OptionStop is the reserved request option key holding stop sequences.
const OptionStop = "stop"

// CompletionRequest carries the converted conversation plus passthrough
// options the Router forwards to the selected provider unmodified.
type CompletionRequest struct {
	Messages []Message
	Options  map[string]any
}

// Outcome reports how a routed completion worked out. An empty TraceID means
// the Router should attribute the outcome to its most recent completion.
type Outcome struct {
	Success bool
	Reason  string
	Score   *float64
	TraceID string
}

// Config is the construction tuple for a Router. SuccessWhen, if set, lets
// the Router auto-evaluate success from the output text.
type Config struct {
	Goal            string
	Paths           []Path
	SuccessWhen     func(output string) bool
	ExplorationRate *float64
	AutoRegister    bool
}

// Sentinel errors. Callers should use errors.Is.
var (
	ErrUnavailable     = errors.New("router: no Router implementation registered (import your kalibr client package for its side effects, or inject one with a Factory)")
	ErrMissingGoal     = errors.New("router: goal must not be empty")
	ErrNoPaths         = errors.New("router: at least one path is required")
	ErrInvalidRate     = errors.New("router: exploration rate must be in [0.0, 1.0]")
	ErrNilRouter       = errors.New("router: factory returned a nil Router")
	ErrDuplicateDriver = errors.New("router: Register called twice")
)

// Validate checks the invariants the Router relies on: a non-empty goal, at
// least one path, and an exploration rate (when set) within [0, 1].
func (c Config) Validate() error {
	if c.Goal == "" {
		return ErrMissingGoal
	}
	if len(c.Paths) == 0 {
		return ErrNoPaths
	}
	for i, p := range c.Paths {
		if p.Model == "" {
			return fmt.Errorf("%w: path %d has no model", ErrNoPaths, i)
		}
	}
	if r := c.ExplorationRate; r != nil && (*r < 0 || *r > 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidRate, *r)
	}
	return nil
}

// Router is the external adaptive-routing collaborator. Completion is the
// single model-invocation point; Report closes the feedback loop. Both block
// until done. Concurrency behavior is implementation-defined.
type Router interface {
	// Completion routes the conversation to a selected path and returns the
	// provider's completion. The adapter never retries or caches this call.
	Completion(ctx context.Context, req CompletionRequest) (*ChatCompletion, error)

	// Report forwards a task outcome so future routing can learn from it.
	Report(ctx context.Context, outcome Outcome) error

	// LastTraceID returns the trace id of the most recent completion, or ""
	// before any completion.
	LastTraceID() string

	// LastModelID returns the model selected for the most recent completion,
	// or "" before any completion.
	LastModelID() string
}
