package tool

import "testing"

func TestParseArgumentsValid(t *testing.T) {
	args, err := ParseArguments(`{"command":"ls","timeout_seconds":5}`)
	if err != nil {
		t.Fatalf("ParseArguments: %v", err)
	}
	if cmd, _ := StringArg(args, "command"); cmd != "ls" {
		t.Errorf("unexpected command: %q", cmd)
	}
	if secs, ok := IntArg(args, "timeout_seconds"); !ok || secs != 5 {
		t.Errorf("unexpected timeout: %d (%v)", secs, ok)
	}
}

func TestParseArgumentsEmpty(t *testing.T) {
	args, err := ParseArguments("")
	if err != nil {
		t.Fatalf("ParseArguments: %v", err)
	}
	if len(args) != 0 {
		t.Errorf("expected empty map, got %v", args)
	}
}

func TestParseArgumentsRepairsTrailingComma(t *testing.T) {
	args, err := ParseArguments(`{"status": "success",}`)
	if err != nil {
		t.Fatalf("expected repair to recover, got %v", err)
	}
	if status, _ := StringArg(args, "status"); status != "success" {
		t.Errorf("unexpected status: %q", status)
	}
}

func TestParseArgumentsUnrecoverable(t *testing.T) {
	if _, err := ParseArguments("not json at all {{{"); err == nil {
		t.Error("expected error for unrecoverable input")
	}
}

func TestArgExtractors(t *testing.T) {
	input := map[string]any{
		"text":  "hello",
		"count": float64(3),
		"flag":  true,
	}
	if s, ok := StringArg(input, "text"); !ok || s != "hello" {
		t.Errorf("StringArg: %q %v", s, ok)
	}
	if _, ok := StringArg(input, "count"); ok {
		t.Error("StringArg must reject non-strings")
	}
	if n, ok := IntArg(input, "count"); !ok || n != 3 {
		t.Errorf("IntArg: %d %v", n, ok)
	}
	if b, ok := BoolArg(input, "flag"); !ok || !b {
		t.Errorf("BoolArg: %v %v", b, ok)
	}
	if _, ok := BoolArg(input, "missing"); ok {
		t.Error("BoolArg must miss absent keys")
	}
}

func TestTruncateObservation(t *testing.T) {
	if got := TruncateObservation("abcdef", 3); got != "abc" {
		t.Errorf("expected prefix cut, got %q", got)
	}
	if got := TruncateObservation("abc", 0); got != "abc" {
		t.Errorf("non-positive max means unlimited, got %q", got)
	}
	if got := TruncateObservation("abc", 10); got != "abc" {
		t.Errorf("short input untouched, got %q", got)
	}
}
