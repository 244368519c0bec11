package schema

// DefaultMaxMessages is the memory cap applied when none is configured.
const DefaultMaxMessages = 100

// Memory is a bounded ordered log of messages. Appends beyond the cap drop
// the oldest entries, so the retained window is always the most recent
// messages in their original order. Memory is owned by a single agent and is
// not safe for concurrent use.
type Memory struct {
	messages []Message
	limit    int
}

// NewMemory creates a Memory capped at maxMessages. A non-positive cap falls
// back to DefaultMaxMessages.
func NewMemory(maxMessages int) *Memory {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	return &Memory{limit: maxMessages}
}

// Add appends one message, truncating to the cap.
func (m *Memory) Add(msg Message) {
	m.messages = append(m.messages, msg)
	m.truncate()
}

// AddAll appends a batch of messages, truncating to the cap.
func (m *Memory) AddAll(msgs []Message) {
	m.messages = append(m.messages, msgs...)
	m.truncate()
}

func (m *Memory) truncate() {
	if len(m.messages) > m.limit {
		m.messages = m.messages[len(m.messages)-m.limit:]
	}
}

// Messages returns the full retained log. The returned slice is shared;
// callers must not mutate it.
func (m *Memory) Messages() []Message {
	return m.messages
}

// Len returns the number of retained messages.
func (m *Memory) Len() int {
	return len(m.messages)
}

// Recent returns the last n messages, or all of them if fewer are retained.
func (m *Memory) Recent(n int) []Message {
	if n <= 0 {
		return nil
	}
	if n > len(m.messages) {
		n = len(m.messages)
	}
	return m.messages[len(m.messages)-n:]
}

// Clear empties the log.
func (m *Memory) Clear() {
	m.messages = nil
}

// Records serializes every retained message to its transport-neutral form.
func (m *Memory) Records() []map[string]any {
	recs := make([]map[string]any, len(m.messages))
	for i, msg := range m.messages {
		recs[i] = msg.Record()
	}
	return recs
}
