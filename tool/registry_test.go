package tool

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// fakeTool is a scriptable tool for registry tests.
type fakeTool struct {
	name    string
	result  *Result
	err     error
	calls   int
	cleaned bool
}

func (f *fakeTool) Name() string               { return f.name }
func (f *fakeTool) Description() string        { return "fake " + f.name }
func (f *fakeTool) Parameters() map[string]any { return map[string]any{"type": "object"} }
func (f *fakeTool) Cleanup() error             { f.cleaned = true; return nil }

func (f *fakeTool) Execute(ctx context.Context, input map[string]any) (*Result, error) {
	f.calls++
	return f.result, f.err
}

func TestRegistryDuplicateIsNoOp(t *testing.T) {
	first := &fakeTool{name: "echo", result: &Result{Output: "first"}}
	second := &fakeTool{name: "echo", result: &Result{Output: "second"}}
	r := NewRegistry(nil, first)
	r.Add(second)

	got, ok := r.Get("echo")
	if !ok || got != Tool(first) {
		t.Error("first registration must win")
	}
	if len(r.Names()) != 1 {
		t.Errorf("expected one tool, got %v", r.Names())
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry(nil, &fakeTool{name: "a"}, &fakeTool{name: "b"}, &fakeTool{name: "c"})
	r.Remove("b")
	names := r.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "c" {
		t.Errorf("expected [a c], got %v", names)
	}
	r.Remove("missing") // no-op
	if len(r.Names()) != 2 {
		t.Error("removing an unknown name must not change the registry")
	}
}

func TestRegistryParamsShape(t *testing.T) {
	r := NewRegistry(nil, &fakeTool{name: "echo"})
	params := r.Params()
	if len(params) != 1 {
		t.Fatalf("expected one descriptor, got %d", len(params))
	}
	d := params[0]
	if d["type"] != "function" {
		t.Errorf("descriptor type: %v", d["type"])
	}
	fn, ok := d["function"].(map[string]any)
	if !ok {
		t.Fatalf("function block missing: %v", d)
	}
	if fn["name"] != "echo" || fn["description"] == "" || fn["parameters"] == nil {
		t.Errorf("incomplete function block: %v", fn)
	}
}

func TestInvokeUnknownTool(t *testing.T) {
	r := NewRegistry(nil)
	result, err := r.Invoke(context.Background(), "ghost", nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if result.Error != "Tool ghost is invalid" {
		t.Errorf("unexpected message: %q", result.Error)
	}
}

func TestInvokeToolErrorBecomesResult(t *testing.T) {
	r := NewRegistry(nil, &fakeTool{name: "flaky", err: &Error{Message: "timed out"}})
	result, err := r.Invoke(context.Background(), "flaky", nil)
	if err != nil {
		t.Fatalf("tool.Error must not propagate: %v", err)
	}
	if result.Error != "timed out" {
		t.Errorf("unexpected error text: %q", result.Error)
	}
}

func TestInvokeDefectPropagates(t *testing.T) {
	defect := errors.New("nil pointer somewhere")
	r := NewRegistry(nil, &fakeTool{name: "broken", err: defect})
	if _, err := r.Invoke(context.Background(), "broken", nil); !errors.Is(err, defect) {
		t.Errorf("expected defect to propagate, got %v", err)
	}
}

func TestInvokeNilResultNormalized(t *testing.T) {
	r := NewRegistry(nil, &fakeTool{name: "quiet"})
	result, err := r.Invoke(context.Background(), "quiet", nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if result == nil || !result.Empty() {
		t.Errorf("expected empty non-nil result, got %v", result)
	}
}

func TestInvokeAllSkipsDefects(t *testing.T) {
	ok1 := &fakeTool{name: "one", result: &Result{Output: "1"}}
	broken := &fakeTool{name: "two", err: errors.New("defect")}
	userErr := &fakeTool{name: "three", err: &Error{Message: "refused"}}
	r := NewRegistry(nil, ok1, broken, userErr)

	results := r.InvokeAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Output != "1" || results[1].Error != "refused" {
		t.Errorf("unexpected results: %v %v", results[0], results[1])
	}
	if broken.calls != 1 {
		t.Error("broken tool should still have been attempted")
	}
}

func TestRegistryOrderPreserved(t *testing.T) {
	r := NewRegistry(nil)
	for i := 0; i < 5; i++ {
		r.Add(&fakeTool{name: fmt.Sprintf("tool-%d", i)})
	}
	for i, name := range r.Names() {
		if want := fmt.Sprintf("tool-%d", i); name != want {
			t.Errorf("position %d: expected %s, got %s", i, want, name)
		}
	}
}
