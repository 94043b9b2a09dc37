package kalibr

import "github.com/kalibr-ai/langchain-kalibr/router"

// Option configures ChatKalibr at construction (functional options pattern).
type Option func(*ChatKalibr)

// WithPaths sets the candidate execution paths the Router chooses among.
// Order is preserved. Defaults to a single gpt-4o path when not set.
func WithPaths(paths ...router.Path) Option {
	return func(c *ChatKalibr) {
		c.paths = paths
	}
}

// WithModels is WithPaths for model-only paths given as names.
func WithModels(names ...string) Option {
	return func(c *ChatKalibr) {
		c.paths = router.Models(names...)
	}
}

// WithAPIKey sets the Kalibr API key explicitly instead of reading EnvAPIKey.
func WithAPIKey(key string) Option {
	return func(c *ChatKalibr) {
		c.apiKey = key
	}
}

// WithTenantID sets the Kalibr tenant id explicitly instead of reading EnvTenantID.
func WithTenantID(id string) Option {
	return func(c *ChatKalibr) {
		c.tenantID = id
	}
}

// WithSuccessWhen sets a predicate the Router uses to auto-evaluate success
// from the output text (e.g. func(out string) bool { return strings.Contains(out, "@") }).
func WithSuccessWhen(pred func(output string) bool) Option {
	return func(c *ChatKalibr) {
		c.successWhen = pred
	}
}

// WithExplorationRate overrides the Router's exploration rate (0.0-1.0).
// When not set, the Router decides.
func WithExplorationRate(rate float64) Option {
	return func(c *ChatKalibr) {
		c.explorationRate = &rate
	}
}

// WithAutoRegister controls whether paths are registered with Kalibr on init.
// Default is true.
func WithAutoRegister(register bool) Option {
	return func(c *ChatKalibr) {
		c.autoRegister = register
	}
}

// WithMaxConcurrency bounds Batch fan-out. Default is 4.
func WithMaxConcurrency(n int) Option {
	return func(c *ChatKalibr) {
		c.maxConcurrency = n
	}
}

// WithRouterFactory constructs the Router with f instead of the globally
// registered implementation. This is the injection point for tests and for
// embedders that manage Router instances themselves.
func WithRouterFactory(f router.Factory) Option {
	return func(c *ChatKalibr) {
		c.factory = f
	}
}

// CallOption configures a single Generate call.
type CallOption func(*callOptions)

type callOptions struct {
	stop    []string
	options map[string]any
}

// WithStop sets stop sequences for this call. They are merged into the
// passthrough options under router.OptionStop.
func WithStop(sequences ...string) CallOption {
	return func(o *callOptions) {
		o.stop = sequences
	}
}

// WithCallOption forwards an arbitrary provider option through the Router
// unmodified (e.g. "temperature", 0.2).
func WithCallOption(key string, value any) CallOption {
	return func(o *callOptions) {
		if o.options == nil {
			o.options = make(map[string]any)
		}
		o.options[key] = value
	}
}

// ReportOption attaches optional fields to an outcome report.
type ReportOption func(*router.Outcome)

// WithReason attaches a human-readable failure reason.
func WithReason(reason string) ReportOption {
	return func(o *router.Outcome) {
		o.Reason = reason
	}
}

// WithScore attaches a quality score (0.0-1.0). The adapter does not range
// check it; interpretation belongs to the Router.
func WithScore(score float64) ReportOption {
	return func(o *router.Outcome) {
		o.Score = &score
	}
}

// WithTraceID attributes the report to an explicit completion instead of the
// Router's most recent one.
func WithTraceID(traceID string) ReportOption {
	return func(o *router.Outcome) {
		o.TraceID = traceID
	}
}
