// Package core provides the foundational domain types and shared state used
// by the deepresearch loop. It defines:
//
//   - Messages (ordered conversation turns owned by the controller)
//   - Actions (the tagged union the model emits each step)
//   - LogEntry / SourceRecord / ResearchRunState (the observable run aggregate)
//   - StateManager (single-owner reducer application over the run state)
//   - VisitedSet (the monotonic ledger of already-retrieved resources)
//
// The package intentionally keeps orchestration and I/O concerns out of
// scope; the controller, tool executors and transport clients build on these
// small types and interfaces.
package core
