package schema

import (
	"fmt"
	"testing"
)

func TestMemoryCapHolds(t *testing.T) {
	mem := NewMemory(5)
	for i := 0; i < 20; i++ {
		mem.Add(UserMessage(fmt.Sprintf("msg-%d", i)))
		if mem.Len() > 5 {
			t.Fatalf("after append %d: len %d exceeds cap", i, mem.Len())
		}
	}
	// Retained messages are exactly the most recent five, in order.
	msgs := mem.Messages()
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(msgs))
	}
	for i, msg := range msgs {
		want := fmt.Sprintf("msg-%d", 15+i)
		if msg.Content != want {
			t.Errorf("position %d: expected %q, got %q", i, want, msg.Content)
		}
	}
}

func TestMemoryAddAllTruncates(t *testing.T) {
	mem := NewMemory(3)
	batch := make([]Message, 10)
	for i := range batch {
		batch[i] = AssistantMessage(fmt.Sprintf("a-%d", i))
	}
	mem.AddAll(batch)
	if mem.Len() != 3 {
		t.Fatalf("expected 3 messages, got %d", mem.Len())
	}
	if got := mem.Messages()[0].Content; got != "a-7" {
		t.Errorf("expected oldest retained a-7, got %q", got)
	}
}

func TestMemoryRecent(t *testing.T) {
	mem := NewMemory(10)
	for i := 0; i < 4; i++ {
		mem.Add(UserMessage(fmt.Sprintf("m-%d", i)))
	}

	recent := mem.Recent(2)
	if len(recent) != 2 || recent[0].Content != "m-2" || recent[1].Content != "m-3" {
		t.Errorf("unexpected recent window: %+v", recent)
	}

	// Asking for more than retained returns everything.
	if got := mem.Recent(100); len(got) != 4 {
		t.Errorf("expected 4 messages, got %d", len(got))
	}
	if got := mem.Recent(0); got != nil {
		t.Errorf("expected nil for n=0, got %+v", got)
	}
}

func TestMemoryClear(t *testing.T) {
	mem := NewMemory(10)
	mem.Add(UserMessage("hello"))
	mem.Clear()
	if mem.Len() != 0 {
		t.Errorf("expected empty memory, got %d messages", mem.Len())
	}
}

func TestMemoryDefaultCap(t *testing.T) {
	mem := NewMemory(0)
	for i := 0; i < DefaultMaxMessages+10; i++ {
		mem.Add(UserMessage("x"))
	}
	if mem.Len() != DefaultMaxMessages {
		t.Errorf("expected default cap %d, got %d", DefaultMaxMessages, mem.Len())
	}
}

func TestMemoryRecords(t *testing.T) {
	mem := NewMemory(10)
	mem.Add(SystemMessage("be helpful"))
	mem.Add(ToolMessage("ok", "shell", "call-1"))

	recs := mem.Records()
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0]["role"] != "system" || recs[0]["content"] != "be helpful" {
		t.Errorf("unexpected system record: %v", recs[0])
	}
	if recs[1]["tool_call_id"] != "call-1" || recs[1]["name"] != "shell" {
		t.Errorf("unexpected tool record: %v", recs[1])
	}
}
