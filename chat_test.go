package kalibr_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	kalibr "github.com/kalibr-ai/langchain-kalibr"
	"github.com/kalibr-ai/langchain-kalibr/router"
	"github.com/kalibr-ai/langchain-kalibr/routertest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newEcho builds a ChatKalibr backed by a fresh recording router.
func newEcho(t *testing.T, goal string, opts ...kalibr.Option) (*kalibr.ChatKalibr, *routertest.Router) {
	t.Helper()
	rt := routertest.New(router.Config{})
	llm, err := kalibr.New(goal, append(opts, kalibr.WithRouterFactory(rt.Factory()))...)
	require.NoError(t, err)
	return llm, rt
}

func TestNew_MissingGoal(t *testing.T) {
	t.Parallel()
	_, err := kalibr.New("")
	require.ErrorIs(t, err, kalibr.ErrMissingGoal)
}

func TestNew_InvalidExplorationRate(t *testing.T) {
	t.Parallel()
	for _, rate := range []float64{-0.1, 1.5} {
		_, err := kalibr.New("test", kalibr.WithExplorationRate(rate))
		require.ErrorIs(t, err, kalibr.ErrInvalidExplorationRate, "rate %v", rate)
	}
}

func TestNew_NoRouterRegistered(t *testing.T) {
	t.Parallel()
	_, err := kalibr.New("test", kalibr.WithModels("gpt-4o"))
	require.ErrorIs(t, err, router.ErrUnavailable)
}

func TestNew_RouterRejectsConfig(t *testing.T) {
	t.Parallel()
	cause := errors.New("KALIBR_TENANT_ID is not set")
	factory := func(context.Context, router.Config) (router.Router, error) {
		return nil, cause
	}
	_, err := kalibr.New("test", kalibr.WithRouterFactory(factory))
	require.Error(t, err)

	var ce *kalibr.ConfigError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), kalibr.CredentialsURL)
}

func TestNew_DefaultPaths(t *testing.T) {
	t.Parallel()
	llm, rt := newEcho(t, "test")
	assert.Equal(t, []router.Path{{Model: "gpt-4o"}}, llm.Paths())
	assert.Equal(t, []router.Path{{Model: "gpt-4o"}}, rt.Config().Paths)
}

func TestNew_StructuredPathsPreserved(t *testing.T) {
	t.Parallel()
	paths := []router.Path{
		{Model: "gpt-4o", Tools: []string{"web_search"}},
		{Model: "claude-sonnet-4-20250514"},
	}
	llm, rt := newEcho(t, "research", kalibr.WithPaths(paths...))
	require.Len(t, llm.Paths(), 2)
	assert.Equal(t, paths, llm.Paths())
	assert.Equal(t, paths, rt.Config().Paths)
}

func TestNew_ConfigReachesRouter(t *testing.T) {
	t.Parallel()
	pred := func(out string) bool { return strings.Contains(out, "@") }
	llm, rt := newEcho(t, "extract_email",
		kalibr.WithModels("gpt-4o"),
		kalibr.WithSuccessWhen(pred),
		kalibr.WithExplorationRate(0.25),
		kalibr.WithAutoRegister(false),
	)
	require.NotNil(t, llm)

	cfg := rt.Config()
	assert.Equal(t, "extract_email", cfg.Goal)
	require.NotNil(t, cfg.SuccessWhen)
	assert.True(t, cfg.SuccessWhen("a@b.c"))
	assert.False(t, cfg.SuccessWhen("no at sign"))
	require.NotNil(t, cfg.ExplorationRate)
	assert.InDelta(t, 0.25, *cfg.ExplorationRate, 1e-9)
	assert.False(t, cfg.AutoRegister)
}

func TestInvoke_Echo(t *testing.T) {
	t.Parallel()
	llm, _ := newEcho(t, "test", kalibr.WithModels("gpt-4o"))
	msg, err := llm.Invoke(context.Background(), "Hello!")
	require.NoError(t, err)
	assert.Equal(t, "Hello!", msg.Content)
	assert.Equal(t, "gpt-4o", msg.ResponseMetadata.Model)
	assert.NotEmpty(t, msg.ResponseMetadata.TraceID)
}

func TestGenerate_MessageOrderPreserved(t *testing.T) {
	t.Parallel()
	llm, rt := newEcho(t, "test")
	_, err := llm.Generate(context.Background(), []kalibr.Message{
		kalibr.SystemMessage{Content: "You are helpful."},
		kalibr.HumanMessage{Content: "Hi there!"},
		kalibr.AIMessage{Content: "Hello!"},
		kalibr.ToolMessage{Content: "result"},
	})
	require.NoError(t, err)

	reqs := rt.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, []router.Message{
		{Role: router.RoleSystem, Content: "You are helpful."},
		{Role: router.RoleUser, Content: "Hi there!"},
		{Role: router.RoleAssistant, Content: "Hello!"},
		{Role: router.RoleTool, Content: "result"},
	}, reqs[0].Messages)
}

func TestGenerate_ReplyFeedsBackAsAssistant(t *testing.T) {
	t.Parallel()
	llm, rt := newEcho(t, "test")
	reply, err := llm.Invoke(context.Background(), "Hello!")
	require.NoError(t, err)

	// Multi-turn loop: the reply from Invoke goes straight back into the
	// next conversation and must keep its assistant role.
	_, err = llm.Generate(context.Background(), []kalibr.Message{
		kalibr.HumanMessage{Content: "Hello!"},
		reply,
		kalibr.HumanMessage{Content: "And again?"},
	})
	require.NoError(t, err)

	reqs := rt.Requests()
	require.Len(t, reqs, 2)
	require.Len(t, reqs[1].Messages, 3)
	assert.Equal(t, router.RoleAssistant, reqs[1].Messages[1].Role)
	assert.Equal(t, "Hello!", reqs[1].Messages[1].Content)
}

func TestGenerate_StopMergedIntoOptions(t *testing.T) {
	t.Parallel()
	llm, rt := newEcho(t, "test")
	_, err := llm.Generate(context.Background(),
		[]kalibr.Message{kalibr.HumanMessage{Content: "count to ten"}},
		kalibr.WithStop("\n\n", "END"),
		kalibr.WithCallOption("temperature", 0.2),
	)
	require.NoError(t, err)

	reqs := rt.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{"\n\n", "END"}, reqs[0].Options[router.OptionStop])
	assert.Equal(t, 0.2, reqs[0].Options["temperature"])
}

func TestGenerate_NoStopNoOptions(t *testing.T) {
	t.Parallel()
	llm, rt := newEcho(t, "test")
	_, err := llm.Generate(context.Background(), []kalibr.Message{kalibr.HumanMessage{Content: "hi"}})
	require.NoError(t, err)
	assert.Empty(t, rt.Requests()[0].Options)
}

func TestGenerate_UsageFromRouter(t *testing.T) {
	t.Parallel()
	llm, rt := newEcho(t, "test", kalibr.WithModels("gpt-4o"))
	rt.Response = &router.ChatCompletion{
		ID:    "chatcmpl-test123",
		Model: "gpt-4o",
		Choices: []router.Choice{{
			Message:      router.ChoiceMessage{Role: router.RoleAssistant, Content: "Hello!"},
			FinishReason: "stop",
		}},
		Usage:         &router.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		KalibrTraceID: "abc123",
	}

	result, err := llm.Generate(context.Background(), []kalibr.Message{kalibr.HumanMessage{Content: "Hello!"}})
	require.NoError(t, err)
	assert.Equal(t, "Hello!", result.Text())
	assert.Equal(t, "gpt-4o", result.LLMOutput.Model)
	assert.Equal(t, router.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}, result.LLMOutput.Usage)
	assert.Equal(t, "abc123", result.LLMOutput.TraceID)
	assert.Equal(t, "abc123", result.Generations[0].Message.ResponseMetadata.TraceID)
}

func TestGenerate_RouterErrorPropagatesUnmodified(t *testing.T) {
	t.Parallel()
	llm, rt := newEcho(t, "test")
	rt.Err = errors.New("rate limited")
	_, err := llm.Generate(context.Background(), []kalibr.Message{kalibr.HumanMessage{Content: "hi"}})
	require.ErrorIs(t, err, rt.Err)
	assert.Equal(t, "rate limited", err.Error())
}

func TestGenerate_NoCaching(t *testing.T) {
	t.Parallel()
	llm, rt := newEcho(t, "test")
	for range 3 {
		_, err := llm.Invoke(context.Background(), "same input")
		require.NoError(t, err)
	}
	assert.Len(t, rt.Requests(), 3)
}

func TestGenerate_NotInitialized(t *testing.T) {
	t.Parallel()
	var llm kalibr.ChatKalibr
	_, err := llm.Generate(context.Background(), []kalibr.Message{kalibr.HumanMessage{Content: "hi"}})
	require.ErrorIs(t, err, kalibr.ErrRouterNotInitialized)
}

func TestReport_FallsBackToLastTrace(t *testing.T) {
	t.Parallel()
	llm, rt := newEcho(t, "test")
	_, err := llm.Invoke(context.Background(), "Hello!")
	require.NoError(t, err)

	require.NoError(t, llm.Report(context.Background(), true))

	reports := rt.Reports()
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Success)
	assert.Empty(t, reports[0].Reason)
	assert.Nil(t, reports[0].Score)
	assert.Equal(t, llm.LastTraceID(), reports[0].TraceID)
}

func TestReport_WithReason(t *testing.T) {
	t.Parallel()
	llm, rt := newEcho(t, "test")
	_, err := llm.Invoke(context.Background(), "Hello!")
	require.NoError(t, err)

	require.NoError(t, llm.Report(context.Background(), false, kalibr.WithReason("Output was empty")))

	reports := rt.Reports()
	require.Len(t, reports, 1)
	assert.False(t, reports[0].Success)
	assert.Equal(t, "Output was empty", reports[0].Reason)
}

func TestReport_ExplicitFields(t *testing.T) {
	t.Parallel()
	llm, rt := newEcho(t, "test")
	require.NoError(t, llm.Report(context.Background(), true,
		kalibr.WithScore(0.9),
		kalibr.WithTraceID("trace-7"),
	))

	reports := rt.Reports()
	require.Len(t, reports, 1)
	require.NotNil(t, reports[0].Score)
	assert.InDelta(t, 0.9, *reports[0].Score, 1e-9)
	assert.Equal(t, "trace-7", reports[0].TraceID)
}

func TestReport_NotInitialized(t *testing.T) {
	t.Parallel()
	var llm kalibr.ChatKalibr
	err := llm.Report(context.Background(), true)
	require.ErrorIs(t, err, kalibr.ErrRouterNotInitialized)
}

func TestLastTraceAndModel(t *testing.T) {
	t.Parallel()
	llm, rt := newEcho(t, "test", kalibr.WithModels("gpt-4o"))
	assert.Empty(t, llm.LastTraceID())
	assert.Empty(t, llm.LastModelID())

	_, err := llm.Invoke(context.Background(), "Hello!")
	require.NoError(t, err)

	assert.Equal(t, rt.LastTraceID(), llm.LastTraceID())
	assert.Equal(t, rt.LastModelID(), llm.LastModelID())
	assert.Equal(t, "gpt-4o", llm.LastModelID())
}

func TestLLMType(t *testing.T) {
	t.Parallel()
	llm, _ := newEcho(t, "test")
	assert.Equal(t, "kalibr", llm.LLMType())
}

func TestIdentifyingParams(t *testing.T) {
	t.Parallel()
	paths := []router.Path{{Model: "gpt-4o"}, {Model: "claude-sonnet-4-20250514"}}
	llm, _ := newEcho(t, "summarize",
		kalibr.WithPaths(paths...),
		kalibr.WithAPIKey("explicit-key"),
		kalibr.WithExplorationRate(0.5),
	)
	params := llm.IdentifyingParams()
	assert.Equal(t, map[string]any{"goal": "summarize", "paths": paths}, params)
}

func TestBatch_PreservesOrder(t *testing.T) {
	t.Parallel()
	llm, rt := newEcho(t, "test", kalibr.WithMaxConcurrency(2))
	prompts := make([]string, 8)
	for i := range prompts {
		prompts[i] = fmt.Sprintf("prompt-%d", i)
	}
	out, err := llm.Batch(context.Background(), prompts)
	require.NoError(t, err)
	require.Len(t, out, len(prompts))
	for i, msg := range out {
		assert.Equal(t, prompts[i], msg.Content)
	}
	assert.Len(t, rt.Requests(), len(prompts))
}

func TestBatch_FirstErrorWins(t *testing.T) {
	t.Parallel()
	llm, rt := newEcho(t, "test")
	rt.Err = errors.New("router down")
	_, err := llm.Batch(context.Background(), []string{"a", "b"})
	require.ErrorIs(t, err, rt.Err)
}

func TestCredentials_ExportedWhenEnvUnset(t *testing.T) {
	t.Setenv(kalibr.EnvAPIKey, "")
	t.Setenv(kalibr.EnvTenantID, "")
	_, _ = newEchoEnv(t, kalibr.WithAPIKey("explicit-key"), kalibr.WithTenantID("explicit-tenant"))
	assert.Equal(t, "explicit-key", os.Getenv(kalibr.EnvAPIKey))
	assert.Equal(t, "explicit-tenant", os.Getenv(kalibr.EnvTenantID))
}

func TestCredentials_EnvWinsWhenAlreadySet(t *testing.T) {
	t.Setenv(kalibr.EnvAPIKey, "env-key")
	_, _ = newEchoEnv(t, kalibr.WithAPIKey("explicit-key"))
	assert.Equal(t, "env-key", os.Getenv(kalibr.EnvAPIKey))
}

// newEchoEnv is newEcho without t.Parallel-compatible isolation, for tests
// that mutate the environment via t.Setenv.
func newEchoEnv(t *testing.T, opts ...kalibr.Option) (*kalibr.ChatKalibr, *routertest.Router) {
	t.Helper()
	rt := routertest.New(router.Config{})
	llm, err := kalibr.New("test", append(opts, kalibr.WithRouterFactory(rt.Factory()))...)
	require.NoError(t, err)
	return llm, rt
}
