package kalibr

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/kalibr-ai/langchain-kalibr/router"
)

// Environment variables consulted when credentials are not set explicitly.
const (
	EnvAPIKey   = "KALIBR_API_KEY"
	EnvTenantID = "KALIBR_TENANT_ID"
)

const (
	llmType               = "kalibr"
	defaultModel          = "gpt-4o"
	defaultMaxConcurrency = 4
)

// ChatKalibr is a chat model that delegates routing, model selection and
// completion to the Kalibr Router. The configuration fields are plain data,
// fixed at construction; the Router handle is runtime-only state and never
// appears in IdentifyingParams.
type ChatKalibr struct {
	goal            string
	paths           []router.Path
	apiKey          string
	tenantID        string
	successWhen     func(output string) bool
	explorationRate *float64
	autoRegister    bool
	maxConcurrency  int
	factory         router.Factory

	router router.Router
}

// New builds a ChatKalibr for the named goal. Construction is two-phase:
// the configuration is validated first, then the Router is initialized from
// it. A missing Router implementation surfaces router.ErrUnavailable; a
// Router that rejects the configuration (typically missing credentials)
// surfaces a *ConfigError wrapping the cause.
func New(goal string, opts ...Option) (*ChatKalibr, error) {
	return NewContext(context.Background(), goal, opts...)
}

// NewContext is New with a caller-supplied context for Router initialization
// (auto-registration may call out to Kalibr).
func NewContext(ctx context.Context, goal string, opts ...Option) (*ChatKalibr, error) {
	c := &ChatKalibr{
		goal:           goal,
		autoRegister:   true,
		maxConcurrency: defaultMaxConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	c.exportCredentials()

	cfg := router.Config{
		Goal:            c.goal,
		Paths:           c.paths,
		SuccessWhen:     c.successWhen,
		ExplorationRate: c.explorationRate,
		AutoRegister:    c.autoRegister,
	}
	var (
		r   router.Router
		err error
	)
	if c.factory != nil {
		r, err = router.Open(ctx, cfg, c.factory)
	} else {
		r, err = router.New(ctx, cfg)
	}
	if err != nil {
		if errors.Is(err, router.ErrUnavailable) {
			return nil, err
		}
		return nil, &ConfigError{Err: err}
	}
	c.router = r
	return c, nil
}

// validate checks the plain configuration before any side effect happens.
func (c *ChatKalibr) validate() error {
	if c.goal == "" {
		return ErrMissingGoal
	}
	if len(c.paths) == 0 {
		c.paths = router.Models(defaultModel)
	}
	if r := c.explorationRate; r != nil && (*r < 0 || *r > 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidExplorationRate, *r)
	}
	if c.maxConcurrency < 1 {
		c.maxConcurrency = 1
	}
	return nil
}

// exportCredentials writes explicit credentials into the environment for the
// Router to pick up, but never overwrites values already set there.
func (c *ChatKalibr) exportCredentials() {
	if c.apiKey != "" && os.Getenv(EnvAPIKey) == "" {
		_ = os.Setenv(EnvAPIKey, c.apiKey)
	}
	if c.tenantID != "" && os.Getenv(EnvTenantID) == "" {
		_ = os.Setenv(EnvTenantID, c.tenantID)
	}
}

// LLMType returns "kalibr".
func (c *ChatKalibr) LLMType() string { return llmType }

// IdentifyingParams returns exactly the goal and the configured paths,
// regardless of any other field.
func (c *ChatKalibr) IdentifyingParams() map[string]any {
	return map[string]any{
		"goal":  c.goal,
		"paths": c.Paths(),
	}
}

// Goal returns the configured goal.
func (c *ChatKalibr) Goal() string { return c.goal }

// Paths returns a copy of the configured paths in order.
func (c *ChatKalibr) Paths() []router.Path {
	out := make([]router.Path, len(c.paths))
	copy(out, c.paths)
	return out
}

// Generate converts the conversation, delegates one completion to the Router
// and normalizes the response. No retries, no caching, no error translation:
// whatever the Router returns as an error propagates unmodified.
func (c *ChatKalibr) Generate(ctx context.Context, messages []Message, opts ...CallOption) (*ChatResult, error) {
	if c.router == nil {
		return nil, ErrRouterNotInitialized
	}
	var co callOptions
	for _, opt := range opts {
		opt(&co)
	}
	req := router.CompletionRequest{
		Messages: make([]router.Message, len(messages)),
		Options:  co.options,
	}
	for i, m := range messages {
		req.Messages[i] = toRouterMessage(m)
	}
	if len(co.stop) > 0 {
		if req.Options == nil {
			req.Options = make(map[string]any)
		}
		req.Options[router.OptionStop] = co.stop
	}

	resp, err := c.router.Completion(ctx, req)
	if err != nil {
		return nil, err
	}
	return normalizeCompletion(resp), nil
}

// normalizeCompletion maps the Router's response envelope to a ChatResult,
// defaulting every optional field: empty content, finish reason "stop",
// zeroed token counts.
func normalizeCompletion(resp *router.ChatCompletion) *ChatResult {
	content := ""
	finishReason := "stop"
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		if fr := resp.Choices[0].FinishReason; fr != "" {
			finishReason = fr
		}
	}
	var usage router.Usage
	if resp.Usage != nil {
		usage = *resp.Usage
	}
	return &ChatResult{
		Generations: []ChatGeneration{{
			Message: AIMessage{
				Content: content,
				ResponseMetadata: ResponseMetadata{
					Model:        resp.Model,
					FinishReason: finishReason,
					TraceID:      resp.KalibrTraceID,
				},
			},
			Info: GenerationInfo{
				Model:        resp.Model,
				FinishReason: finishReason,
			},
		}},
		LLMOutput: LLMOutput{
			Model:   resp.Model,
			Usage:   usage,
			TraceID: resp.KalibrTraceID,
		},
	}
}

// Invoke wraps a single prompt as a user message and returns the generated
// assistant message.
func (c *ChatKalibr) Invoke(ctx context.Context, prompt string, opts ...CallOption) (*AIMessage, error) {
	result, err := c.Generate(ctx, []Message{HumanMessage{Content: prompt}}, opts...)
	if err != nil {
		return nil, err
	}
	msg := result.Generations[0].Message
	return &msg, nil
}

// Batch invokes every prompt with bounded concurrency (WithMaxConcurrency)
// and returns the assistant messages in input order. The first error cancels
// the remaining work. Concurrent completions against one Router are only as
// safe as the Router implementation makes them.
func (c *ChatKalibr) Batch(ctx context.Context, prompts []string, opts ...CallOption) ([]*AIMessage, error) {
	if c.router == nil {
		return nil, ErrRouterNotInitialized
	}
	out := make([]*AIMessage, len(prompts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.maxConcurrency)
	for i, prompt := range prompts {
		g.Go(func() error {
			msg, err := c.Invoke(ctx, prompt, opts...)
			if err != nil {
				return err
			}
			out[i] = msg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Report forwards a task outcome to the Router so future routing decisions
// can learn from it. Optional fields default to absent; an omitted trace id
// makes the Router attribute the outcome to its most recent completion.
// The adapter validates nothing here: reason, score and trace id pass
// through verbatim.
func (c *ChatKalibr) Report(ctx context.Context, success bool, opts ...ReportOption) error {
	if c.router == nil {
		return ErrRouterNotInitialized
	}
	outcome := router.Outcome{Success: success}
	for _, opt := range opts {
		opt(&outcome)
	}
	return c.router.Report(ctx, outcome)
}

// LastTraceID returns the trace id of the most recent completion, for
// explicit outcome reporting. Empty before any completion.
func (c *ChatKalibr) LastTraceID() string {
	if c.router == nil {
		return ""
	}
	return c.router.LastTraceID()
}

// LastModelID returns which model the Router selected for the most recent
// completion. Empty before any completion.
func (c *ChatKalibr) LastModelID() string {
	if c.router == nil {
		return ""
	}
	return c.router.LastModelID()
}

// Compile-time check that ChatKalibr implements ChatModel.
var _ ChatModel = (*ChatKalibr)(nil)
