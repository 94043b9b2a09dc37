// Package routertest provides an in-memory router.Router for tests and
// local wiring. It records every completion request and outcome report,
// serves a canned response or echoes the last user message, and fabricates
// trace ids. It never performs network calls.
package routertest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/kalibr-ai/langchain-kalibr/router"
)

// Router is a recording router.Router. The zero value is not usable; create
// instances with New. Response and Err may be set between calls to script
// the next Completion.
type Router struct {
	// Response, when set, is returned by Completion as-is (trace and model
	// bookkeeping still applies). When nil, Completion echoes the last
	// user message using the first configured path's model.
	Response *router.ChatCompletion

	// Err, when set, is returned by Completion unmodified.
	Err error

	mu          sync.Mutex
	cfg         router.Config
	requests    []router.CompletionRequest
	reports     []router.Outcome
	lastTraceID string
	lastModelID string
}

// New returns a Router that behaves as if constructed with cfg.
func New(cfg router.Config) *Router {
	return &Router{cfg: cfg}
}

// Factory adapts r into a router.Factory that captures the Config it was
// constructed with, so adapter tests can inspect what reached the Router.
func (r *Router) Factory() router.Factory {
	return func(_ context.Context, cfg router.Config) (router.Router, error) {
		r.mu.Lock()
		r.cfg = cfg
		r.mu.Unlock()
		return r, nil
	}
}

// Completion records req and returns the scripted response, the scripted
// error, or an echo of the last user message.
func (r *Router) Completion(_ context.Context, req router.CompletionRequest) (*router.ChatCompletion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, req)
	if r.Err != nil {
		return nil, r.Err
	}
	resp := r.Response
	if resp == nil {
		resp = r.echo(req)
	} else {
		// Copy so stamping the trace id never mutates the caller's script
		// and repeated calls get distinct trace ids.
		scripted := *resp
		resp = &scripted
	}
	if resp.KalibrTraceID == "" {
		resp.KalibrTraceID = uuid.NewString()
	}
	r.lastTraceID = resp.KalibrTraceID
	r.lastModelID = resp.Model
	return resp, nil
}

func (r *Router) echo(req router.CompletionRequest) *router.ChatCompletion {
	content := ""
	for _, m := range req.Messages {
		if m.Role == router.RoleUser {
			content = m.Content
		}
	}
	model := ""
	if len(r.cfg.Paths) > 0 {
		model = r.cfg.Paths[0].Model
	}
	return &router.ChatCompletion{
		ID:    "chatcmpl-" + uuid.NewString(),
		Model: model,
		Choices: []router.Choice{{
			Message:      router.ChoiceMessage{Role: router.RoleAssistant, Content: content},
			FinishReason: "stop",
		}},
	}
}

// Report records the outcome, resolving an empty TraceID to the most recent
// completion's trace id the way the real Router does.
func (r *Router) Report(_ context.Context, outcome router.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if outcome.TraceID == "" {
		outcome.TraceID = r.lastTraceID
	}
	r.reports = append(r.reports, outcome)
	return nil
}

// LastTraceID implements router.Router.
func (r *Router) LastTraceID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastTraceID
}

// LastModelID implements router.Router.
func (r *Router) LastModelID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastModelID
}

// Config returns the construction Config the Router saw.
func (r *Router) Config() router.Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// Requests returns a copy of all recorded completion requests in order.
func (r *Router) Requests() []router.CompletionRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]router.CompletionRequest, len(r.requests))
	copy(out, r.requests)
	return out
}

// Reports returns a copy of all recorded outcome reports in order.
func (r *Router) Reports() []router.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]router.Outcome, len(r.reports))
	copy(out, r.reports)
	return out
}

// Compile-time check that Router implements router.Router.
var _ router.Router = (*Router)(nil)
