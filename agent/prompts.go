package agent

import (
	"fmt"
	"strings"
)

// DefaultTopic is used when a run is started with a blank topic.
const DefaultTopic = "The current state and future of artificial intelligence"

const systemInstruction = `You are an autonomous research agent. Your job is to research a topic thoroughly and produce a long-form report.

You have exactly three tools:
- "search": run a web search. tool_input is the query string.
- "visit": fetch the content of one or more web pages. tool_input is a URL, a comma-separated list of URLs, or a JSON array of URLs. Batch 3 to 5 URLs per visit call. NEVER visit a URL you have already visited.
- "finish": end the research. tool_input is the complete final report.

Every response MUST be a single JSON object of the form:
{"thought": "<your reasoning for this step>", "tool": "<search|visit|finish>", "tool_input": <input for the tool>}

Respond with the JSON object only. No prose before or after it, no code fences.

The final report must be long-form markdown with section headers, a thorough treatment of the topic grounded in the pages you visited, and a closing "Sources" section listing the URLs you relied on.`

// topicPrompt is the opening user turn naming the research topic.
func topicPrompt(topic string) string {
	return fmt.Sprintf("Research the following topic and produce a detailed report: %s", topic)
}

// stepReminder is the transient turn prepended to each model call. It states
// the step position and the identifiers already visited so the model is
// discouraged from repeating visits.
func stepReminder(step, maxSteps int, visited []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "This is step %d of at most %d. ", step, maxSteps)
	if len(visited) == 0 {
		sb.WriteString("No URLs have been visited yet. ")
	} else {
		fmt.Fprintf(&sb, "You have already visited the following URLs, do NOT visit them again:\n%s\n", strings.Join(visited, "\n"))
	}
	sb.WriteString("Decide your next action and respond with the JSON object only.")
	return sb.String()
}

// parseCorrective answers a response that did not parse as an action.
func parseCorrective(parseErr error) string {
	return fmt.Sprintf("Your previous response could not be processed: %v. Respond with exactly one JSON object of the form {\"thought\": ..., \"tool\": \"search\"|\"visit\"|\"finish\", \"tool_input\": ...} and nothing else.", parseErr)
}

// unknownToolCorrective answers a well-formed response naming a tool that
// does not exist.
func unknownToolCorrective(rawTool string) string {
	return fmt.Sprintf("There is no tool named %q. The only valid tools are \"search\", \"visit\" and \"finish\". Respond again with one of them.", rawTool)
}

// repeatWarning is appended to a visit observation when the model requested
// identifiers it had already consumed.
func repeatWarning(repeated []string) string {
	return fmt.Sprintf("Warning: you already visited %s. Stop repeating visits; use the information you have gathered and move toward finishing the report.", strings.Join(repeated, ", "))
}

// forcedFinishPrompt is the single extra turn issued when the step budget is
// exhausted without a finish action.
const forcedFinishPrompt = `You have used all available research steps. You MUST finish now. Respond with {"thought": ..., "tool": "finish", "tool_input": "<the complete final report>"} using everything you have gathered so far. Do not call any other tool.`
