package router

// ChatCompletion is the Router's response envelope. The shape mirrors the
// provider wire format the Router normalizes to; optional fields are pointers
// or zero values and are defaulted by the caller, not here.
type ChatCompletion struct {
	ID            string   `json:"id"`
	Model         string   `json:"model"`
	Choices       []Choice `json:"choices"`
	Usage         *Usage   `json:"usage,omitempty"`
	KalibrTraceID string   `json:"kalibr_trace_id,omitempty"`
}

// Choice is one generated alternative. FinishReason may be empty when the
// provider did not report one.
type Choice struct {
	Index        int           `json:"index"`
	Message      ChoiceMessage `json:"message"`
	FinishReason string        `json:"finish_reason,omitempty"`
}

// ChoiceMessage is the assistant message inside a Choice.
type ChoiceMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage is the token accounting for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
