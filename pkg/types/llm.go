package types

// Message represents a single message in an LLM conversation history, used
// by every Planning Graph stage that drives a completion (select_track,
// plan_transition, write_transition_script).
type Message struct {
	// Role is one of "system", "user", "assistant", or "tool".
	Role string

	// Content is the text content of the message.
	Content string

	// Name is an optional participant name (for multi-speaker contexts).
	Name string

	// ToolCalls contains any tool invocations requested by the assistant.
	ToolCalls []ToolCall

	// ToolCallID is set when Role is "tool", identifying which tool call this responds to.
	ToolCallID string
}

// ToolCall represents a tool/function invocation requested by the LLM.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON-encoded
}

// ToolDefinition describes a tool that can be offered to an LLM.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ModelCapabilities describes what an LLM model supports.
type ModelCapabilities struct {
	ContextWindow       int
	MaxOutputTokens     int
	SupportsToolCalling bool
	SupportsVision      bool
	SupportsStreaming   bool
}

// VoiceProfile identifies a TTS voice configuration for the DJ persona.
type VoiceProfile struct {
	ID       string
	Name     string
	Provider string

	// Metadata holds provider-specific voice attributes (gender, accent, ...).
	Metadata map[string]string
}
