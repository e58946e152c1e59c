// Package agent implements the research loop controller.
//
// The Controller is a state machine (Idle -> Running -> Finished/Aborted)
// that drives one research run: it seeds a conversation with the research
// instructions, repeatedly calls the streaming model through the retrying
// caller, parses each complete response into an action, and dispatches to the
// search or visit executor until the model finishes or the step budget runs
// out. Malformed model output and unknown tool names are answered with
// corrective turns rather than aborting; only configuration errors and
// exhausted-retry network errors terminate a run early.
package agent
