// Package tool implements the two retrievable agent actions: search and
// visit. Executors return observation strings that the controller feeds back
// into the conversation; a tool failure is always a recoverable observation,
// never a control-flow error. All state updates go through the shared
// StateManager as atomic reducer commits.
package tool
