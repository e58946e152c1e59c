package core

import (
	"fmt"
	"sync"
	"testing"
)

func TestStateManager_BeginResetsState(t *testing.T) {
	m := NewStateManager()
	m.Begin("first")
	m.Commit(func(prev ResearchRunState) ResearchRunState {
		return AddSources(prev, SourceRecord{Link: "https://a.com"})
	})

	m.Begin("second")
	s := m.State()
	if s.Topic != "second" || !s.IsRunning {
		t.Fatalf("unexpected state after Begin: %+v", s)
	}
	if len(s.Sources) != 0 || len(s.Logs) != 0 {
		t.Error("Begin should reset the aggregate")
	}
}

func TestStateManager_CommitsDroppedWhenNotRunning(t *testing.T) {
	m := NewStateManager()
	// No Begin yet: manager starts frozen.
	m.Commit(func(prev ResearchRunState) ResearchRunState {
		return AppendLog(prev, NewLogEntry(LogInfo, "should be dropped", ""))
	})
	if len(m.State().Logs) != 0 {
		t.Fatal("commit before Begin must be dropped")
	}
}

func TestStateManager_FreezesAfterTerminalTransition(t *testing.T) {
	m := NewStateManager()
	m.Begin("topic")
	m.Commit(func(prev ResearchRunState) ResearchRunState {
		next := prev.Clone()
		next.Report = "final"
		next.IsRunning = false
		return next
	})

	m.Commit(func(prev ResearchRunState) ResearchRunState {
		next := prev.Clone()
		next.Report = "mutated after terminal"
		return next
	})

	if got := m.State().Report; got != "final" {
		t.Errorf("report mutated after terminal transition: %q", got)
	}
}

func TestStateManager_ObserverSeesEveryTransition(t *testing.T) {
	m := NewStateManager()
	var snapshots []ResearchRunState
	m.SetObserver(func(state ResearchRunState) {
		snapshots = append(snapshots, state)
	})

	m.Begin("topic")
	m.Commit(func(prev ResearchRunState) ResearchRunState {
		return AppendLog(prev, NewLogEntry(LogInfo, "one", ""))
	})

	if len(snapshots) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(snapshots))
	}
	if snapshots[0].Topic != "topic" || len(snapshots[1].Logs) != 1 {
		t.Errorf("unexpected snapshots: %+v", snapshots)
	}

	// Snapshots are deep copies.
	snapshots[1].Logs[0].Message = "tampered"
	if m.State().Logs[0].Message != "one" {
		t.Error("observer snapshot shares state backing array")
	}
}

func TestStateManager_ConcurrentCommitsCompose(t *testing.T) {
	m := NewStateManager()
	m.Begin("topic")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			link := fmt.Sprintf("https://site-%d.com", n%10)
			m.Commit(func(prev ResearchRunState) ResearchRunState {
				next := AddSources(prev, SourceRecord{Link: link})
				return AppendLog(next, NewLogEntry(LogAction, link, ""))
			})
		}(i)
	}
	wg.Wait()

	s := m.State()
	if len(s.Sources) != 10 {
		t.Errorf("expected 10 distinct sources, got %d", len(s.Sources))
	}
	if len(s.Logs) != 20 {
		t.Errorf("expected 20 log entries, got %d", len(s.Logs))
	}
	seen := map[string]bool{}
	for _, src := range s.Sources {
		key := NormalizeLink(src.Link)
		if seen[key] {
			t.Errorf("duplicate source %q", key)
		}
		seen[key] = true
	}
}
