package runlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/crewkit/crew/internal/event"
)

func TestWriteAndReadBack(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	records := []Record{
		{Kind: "run.started", RunID: "r1", Workflow: "release"},
		{Kind: "turn.completed", RunID: "r1", Step: "plan", Turn: 0, Actor: "alice", Text: "plan drafted"},
		{Kind: "run.completed", RunID: "r1", Workflow: "release", Outcome: OutcomeOK},
	}
	for _, r := range records {
		if err := w.Append(r); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := Read(dir)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d records, want 3", len(got))
	}
	for i, r := range got {
		if r.Kind != records[i].Kind {
			t.Errorf("record %d kind = %q, want %q (order preserved)", i, r.Kind, records[i].Kind)
		}
		if r.Time.IsZero() {
			t.Errorf("record %d has no timestamp", i)
		}
	}
	if got[1].Actor != "alice" || got[1].Text != "plan drafted" {
		t.Errorf("turn record = %+v", got[1])
	}
}

func TestAppendOnlyAcrossWriters(t *testing.T) {
	dir := t.TempDir()

	w1, err := NewWriter(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := w1.Append(Record{Kind: "run.started", RunID: "r1"}); err != nil {
		t.Fatal(err)
	}
	w1.Close()

	// Reopening must append, never truncate.
	w2, err := NewWriter(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := w2.Append(Record{Kind: "run.completed", RunID: "r1", Outcome: OutcomeOK}); err != nil {
		t.Fatal(err)
	}
	w2.Close()

	got, err := Read(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	if got[0].Kind != "run.started" || got[1].Kind != "run.completed" {
		t.Errorf("records = %v", got)
	}
}

func TestReadMissingLog(t *testing.T) {
	if _, err := Read(t.TempDir()); !os.IsNotExist(err) {
		t.Errorf("expected IsNotExist, got: %v", err)
	}
}

func TestReadSkipsBlankLines(t *testing.T) {
	dir := t.TempDir()
	content := `{"kind":"run.started","run_id":"r1"}` + "\n\n" +
		`{"kind":"run.completed","run_id":"r1","outcome":"ok"}` + "\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := Read(dir)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d records, want 2", len(got))
	}
}

func TestFromEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   event.Event
		want Record
	}{
		{
			name: "run started",
			ev:   event.NewRunStartedEvent("r1", "release", 3),
			want: Record{Kind: "run.started", RunID: "r1", Workflow: "release"},
		},
		{
			name: "run failed",
			ev:   event.NewRunCompletedEvent("r1", "release", false, 1, "boom"),
			want: Record{Kind: "run.completed", RunID: "r1", Workflow: "release", Outcome: OutcomeFailed, Error: "boom"},
		},
		{
			name: "step started",
			ev:   event.NewStepStartedEvent("r1", "plan", 0, "team", "writers"),
			want: Record{Kind: "step.started", RunID: "r1", Step: "plan", Actor: "writers"},
		},
		{
			name: "step completed",
			ev:   event.NewStepCompletedEvent("r1", "plan", 0, true, 4, ""),
			want: Record{Kind: "step.completed", RunID: "r1", Step: "plan", Turn: 4, Outcome: OutcomeOK},
		},
		{
			name: "turn completed",
			ev:   event.NewTurnCompletedEvent("r1", "plan", 2, "alice", "hello"),
			want: Record{Kind: "turn.completed", RunID: "r1", Step: "plan", Turn: 2, Actor: "alice", Text: "hello"},
		},
		{
			name: "selection failed",
			ev:   event.NewSelectionFailedEvent("r1", "plan", "writers", 2, "garbage"),
			want: Record{Kind: "selection.failed", RunID: "r1", Step: "plan", Turn: 2, Actor: "writers", Text: "garbage", Outcome: OutcomeFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FromEvent(tt.ev)
			if !ok {
				t.Fatal("FromEvent returned false")
			}
			if got.Time.IsZero() {
				t.Error("record should carry the event timestamp")
			}
			got.Time = tt.want.Time
			if got != tt.want {
				t.Errorf("FromEvent() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
