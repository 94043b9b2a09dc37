package kalibr

import (
	"context"

	"github.com/kalibr-ai/langchain-kalibr/router"
)

// Message is a framework-native chat message. The variant set is sealed;
// GenericMessage covers any role outside the recognized four.
type Message interface {
	chatContent() string
}

// SystemMessage sets behavior and context for the conversation.
type SystemMessage struct {
	Content string
}

func (m SystemMessage) chatContent() string { return m.Content }

// HumanMessage carries end-user input.
type HumanMessage struct {
	Content string
}

func (m HumanMessage) chatContent() string { return m.Content }

// AIMessage is a model response. ResponseMetadata is populated on messages
// returned by Generate; it is ignored on input messages.
type AIMessage struct {
	Content          string
	ResponseMetadata ResponseMetadata
}

func (m AIMessage) chatContent() string { return m.Content }

// ToolMessage carries a tool invocation result back to the model.
type ToolMessage struct {
	Content string
}

func (m ToolMessage) chatContent() string { return m.Content }

// GenericMessage is a message with an arbitrary role. The converter treats
// it as user input regardless of Role.
type GenericMessage struct {
	Role    string
	Content string
}

func (m GenericMessage) chatContent() string { return m.Content }

// ResponseMetadata identifies which path produced a response and how it
// finished. TraceID correlates the completion with a later outcome report.
type ResponseMetadata struct {
	Model        string
	FinishReason string
	TraceID      string
}

// GenerationInfo mirrors ResponseMetadata minus the trace id, matching what
// is exposed per generation.
type GenerationInfo struct {
	Model        string
	FinishReason string
}

// ChatGeneration is one generated response with its per-generation info.
type ChatGeneration struct {
	Message AIMessage
	Info    GenerationInfo
}

// LLMOutput is the aggregate metadata for one Generate call. Model, finish
// reason and trace id are duplicated between here and each generation's
// message on purpose: callers may read either level.
type LLMOutput struct {
	Model   string
	Usage   router.Usage
	TraceID string
}

// ChatResult wraps the generations plus aggregate metadata for one call.
type ChatResult struct {
	Generations []ChatGeneration
	LLMOutput   LLMOutput
}

// Text returns the first generation's content, or "" when there is none.
// It is the plain string-extraction stage for pipeline composition.
func (r *ChatResult) Text() string {
	if r == nil || len(r.Generations) == 0 {
		return ""
	}
	return r.Generations[0].Message.Content
}

// ChatModel is the chat-model plugin contract this package implements for
// its host framework: a type tag, identifying parameters, and a generation
// operation over an ordered message list.
type ChatModel interface {
	// LLMType returns the model family tag (e.g. "kalibr").
	LLMType() string

	// IdentifyingParams returns the parameters that identify this model
	// instance for caching and tracing purposes.
	IdentifyingParams() map[string]any

	// Generate produces a ChatResult for the given conversation.
	Generate(ctx context.Context, messages []Message, opts ...CallOption) (*ChatResult, error)
}

// toRouterMessage converts one framework message into the plain role/content
// record the Router consumes. Pointer and value forms of each variant are
// equivalent, so replies returned by Invoke can be fed straight back in.
// Unrecognized variants become user messages with their content verbatim.
// Pure and total.
func toRouterMessage(m Message) router.Message {
	switch msg := m.(type) {
	case SystemMessage:
		return router.Message{Role: router.RoleSystem, Content: msg.Content}
	case *SystemMessage:
		if msg == nil {
			return router.Message{Role: router.RoleSystem}
		}
		return router.Message{Role: router.RoleSystem, Content: msg.Content}
	case HumanMessage:
		return router.Message{Role: router.RoleUser, Content: msg.Content}
	case *HumanMessage:
		if msg == nil {
			return router.Message{Role: router.RoleUser}
		}
		return router.Message{Role: router.RoleUser, Content: msg.Content}
	case AIMessage:
		return router.Message{Role: router.RoleAssistant, Content: msg.Content}
	case *AIMessage:
		if msg == nil {
			return router.Message{Role: router.RoleAssistant}
		}
		return router.Message{Role: router.RoleAssistant, Content: msg.Content}
	case ToolMessage:
		return router.Message{Role: router.RoleTool, Content: msg.Content}
	case *ToolMessage:
		if msg == nil {
			return router.Message{Role: router.RoleTool}
		}
		return router.Message{Role: router.RoleTool, Content: msg.Content}
	case nil:
		return router.Message{Role: router.RoleUser}
	default:
		return router.Message{Role: router.RoleUser, Content: m.chatContent()}
	}
}
