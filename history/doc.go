// Package history houses the run-completion sink: on every terminal run
// (finished or budget-exhausted) the controller emits exactly one Record to a
// Sink. The in-memory implementation keeps records process-local; durable
// backends can be added without changing calling code.
package history
