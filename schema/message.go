// Package schema defines the conversation data model shared by the agent
// runtime: roles, tool calls, messages, and the bounded memory log. Values
// are immutable once constructed; mutation helpers return copies.
package schema

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the four recognized roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// ToolChoice is the policy governing whether the model must select tools.
type ToolChoice string

const (
	ToolChoiceNone     ToolChoice = "none"
	ToolChoiceAuto     ToolChoice = "auto"
	ToolChoiceRequired ToolChoice = "required"
)

// Valid reports whether c is a recognized tool-choice mode.
func (c ToolChoice) Valid() bool {
	switch c {
	case ToolChoiceNone, ToolChoiceAuto, ToolChoiceRequired:
		return true
	}
	return false
}

// FunctionCall carries the name and raw JSON argument text of a requested
// tool invocation. Arguments are not parsed until execution time.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is a model-initiated tool invocation.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// Message is one entry in the conversation log. Content and the optional
// fields are fixed at construction; Role never changes.
type Message struct {
	Role        Role       `json:"role"`
	Content     string     `json:"content,omitempty"`
	ToolCalls   []ToolCall `json:"tool_calls,omitempty"`
	Name        string     `json:"name,omitempty"`
	ToolCallID  string     `json:"tool_call_id,omitempty"`
	Base64Image string     `json:"base64_image,omitempty"`
}

// SystemMessage creates a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage creates a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// FromToolCalls creates an assistant message carrying both textual content
// and the tool calls the model proposed.
func FromToolCalls(content string, calls []ToolCall) Message {
	return Message{Role: RoleAssistant, Content: content, ToolCalls: calls}
}

// ToolMessage creates a tool-role message reporting the result of a tool
// invocation. name is the tool's name and toolCallID links the result back
// to the call that produced it.
func ToolMessage(content, name, toolCallID string) Message {
	return Message{Role: RoleTool, Content: content, Name: name, ToolCallID: toolCallID}
}

// WithImage returns a copy of the message with a base64 attachment set.
func (m Message) WithImage(base64Image string) Message {
	m.Base64Image = base64Image
	return m
}

// Record serializes the message to a transport-neutral map, dropping absent
// optional fields. This is the form the model gateway formats, prices, and
// hands to provider adapters.
func (m Message) Record() map[string]any {
	rec := map[string]any{"role": string(m.Role)}
	if m.Content != "" {
		rec["content"] = m.Content
	}
	if len(m.ToolCalls) > 0 {
		rec["tool_calls"] = m.ToolCalls
	}
	if m.Name != "" {
		rec["name"] = m.Name
	}
	if m.ToolCallID != "" {
		rec["tool_call_id"] = m.ToolCallID
	}
	if m.Base64Image != "" {
		rec["base64_image"] = m.Base64Image
	}
	return rec
}
