package core

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// ToolKind enumerates the actions the model may request. Dispatch happens via
// exhaustive case analysis on this type, so adding a tool is a compile-time
// checked change rather than scattered string comparisons.
type ToolKind int

// Known tool kinds plus the explicit unknown variant for model mistakes.
const (
	ToolUnknown ToolKind = iota
	ToolSearch
	ToolVisit
	ToolFinish
)

// String returns the wire name of the tool kind.
func (k ToolKind) String() string {
	switch k {
	case ToolSearch:
		return "search"
	case ToolVisit:
		return "visit"
	case ToolFinish:
		return "finish"
	default:
		return "unknown"
	}
}

// Action is the discriminated union parsed from one model response. It is
// transient: parsed each step, dispatched, and discarded.
type Action struct {
	Thought string
	Tool    ToolKind
	// RawTool preserves the model's literal tool name for corrective feedback
	// when Tool is ToolUnknown.
	RawTool string
	// Input is the string form of tool_input (query, report text, or a single
	// resource identifier).
	Input string
	// InputList carries tool_input when the model sent a JSON array.
	InputList []string
}

// Targets returns the resource identifiers requested by a visit action,
// accepting a JSON array, a single identifier, or a comma-joined string.
func (a Action) Targets() []string {
	raw := a.InputList
	if len(raw) == 0 {
		raw = strings.Split(a.Input, ",")
	}
	targets := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			targets = append(targets, t)
		}
	}
	return targets
}

// StripCodeFences removes a surrounding markdown code fence (``` or ```json)
// from a model response, if present.
func StripCodeFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 && !strings.ContainsAny(s[:idx], "{}") {
		// Drop the language tag line (e.g. "json").
		s = s[idx+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseAction parses a complete model response into an Action. A missing or
// empty "tool" field is a parse error; an unrecognized tool name is not: it
// yields ToolUnknown so the controller can answer with a corrective turn
// instead of aborting the run.
func ParseAction(raw string) (Action, error) {
	body := StripCodeFences(raw)
	if !gjson.Valid(body) {
		return Action{}, fmt.Errorf("response is not valid JSON")
	}

	toolField := gjson.Get(body, "tool")
	if !toolField.Exists() || strings.TrimSpace(toolField.String()) == "" {
		return Action{}, fmt.Errorf("response is missing the required %q field", "tool")
	}

	action := Action{
		Thought: gjson.Get(body, "thought").String(),
		RawTool: strings.ToLower(strings.TrimSpace(toolField.String())),
	}

	input := gjson.Get(body, "tool_input")
	if input.IsArray() {
		for _, item := range input.Array() {
			action.InputList = append(action.InputList, item.String())
		}
	} else {
		action.Input = input.String()
	}

	switch action.RawTool {
	case "search":
		action.Tool = ToolSearch
	case "visit":
		action.Tool = ToolVisit
	case "finish":
		action.Tool = ToolFinish
		if action.Input == "" && len(action.InputList) > 0 {
			action.Input = strings.Join(action.InputList, "\n")
		}
	default:
		action.Tool = ToolUnknown
	}

	return action, nil
}
