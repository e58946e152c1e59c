package core

import (
	"strings"
	"testing"
)

func TestParseAction_Search(t *testing.T) {
	raw := `{"thought": "need background", "tool": "search", "tool_input": "go concurrency patterns"}`
	action, err := ParseAction(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action.Tool != ToolSearch {
		t.Errorf("tool = %v, want search", action.Tool)
	}
	if action.Input != "go concurrency patterns" {
		t.Errorf("input = %q", action.Input)
	}
	if action.Thought != "need background" {
		t.Errorf("thought = %q", action.Thought)
	}
}

func TestParseAction_VisitArray(t *testing.T) {
	raw := `{"thought": "read these", "tool": "visit", "tool_input": ["https://a.com", "https://b.com"]}`
	action, err := ParseAction(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	targets := action.Targets()
	if len(targets) != 2 || targets[0] != "https://a.com" || targets[1] != "https://b.com" {
		t.Errorf("targets = %v", targets)
	}
}

func TestParseAction_VisitCommaString(t *testing.T) {
	raw := `{"tool": "visit", "tool_input": "https://a.com, https://b.com"}`
	action, err := ParseAction(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	targets := action.Targets()
	if len(targets) != 2 || targets[1] != "https://b.com" {
		t.Errorf("targets = %v", targets)
	}
}

func TestParseAction_CodeFenced(t *testing.T) {
	raw := "```json\n{\"tool\": \"finish\", \"tool_input\": \"# Report\"}\n```"
	action, err := ParseAction(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if action.Tool != ToolFinish || action.Input != "# Report" {
		t.Errorf("action = %+v", action)
	}
}

func TestParseAction_InvalidJSON(t *testing.T) {
	if _, err := ParseAction("I think I should search for more"); err == nil {
		t.Fatal("expected parse error for prose")
	}
}

func TestParseAction_MissingTool(t *testing.T) {
	if _, err := ParseAction(`{"thought": "hmm"}`); err == nil {
		t.Fatal("expected error for missing tool field")
	}
	if _, err := ParseAction(`{"thought": "hmm", "tool": ""}`); err == nil {
		t.Fatal("expected error for empty tool field")
	}
}

func TestParseAction_UnknownToolIsNotAnError(t *testing.T) {
	action, err := ParseAction(`{"tool": "summarize", "tool_input": "x"}`)
	if err != nil {
		t.Fatalf("unknown tool must not be a parse error: %v", err)
	}
	if action.Tool != ToolUnknown {
		t.Errorf("tool = %v, want unknown", action.Tool)
	}
	if action.RawTool != "summarize" {
		t.Errorf("raw tool = %q", action.RawTool)
	}
}

func TestParseAction_FinishJoinsArrayInput(t *testing.T) {
	action, err := ParseAction(`{"tool": "finish", "tool_input": ["line one", "line two"]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(action.Input, "line one") || !strings.Contains(action.Input, "line two") {
		t.Errorf("input = %q", action.Input)
	}
}

func TestStripCodeFences(t *testing.T) {
	plain := `{"tool": "search"}`
	if got := StripCodeFences(plain); got != plain {
		t.Errorf("unfenced text changed: %q", got)
	}
	fenced := "```\n" + plain + "\n```"
	if got := StripCodeFences(fenced); got != plain {
		t.Errorf("fence not stripped: %q", got)
	}
	tagged := "```json\n" + plain + "\n```"
	if got := StripCodeFences(tagged); got != plain {
		t.Errorf("tagged fence not stripped: %q", got)
	}
}
