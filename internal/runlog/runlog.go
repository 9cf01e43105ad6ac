// Package runlog persists workflow run history as an append-only JSONL file,
// one self-describing record per line, in strict execution order. Records are
// immutable once written; the writer never rewrites or compacts the file.
package runlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/crewkit/crew/internal/event"
)

// FileName is the run log file inside a run directory.
const FileName = "run.jsonl"

// Record is one immutable run log entry. Kind mirrors the event type names so
// a reader can interpret entries without consulting the workflow definition.
type Record struct {
	Time     time.Time `json:"time"`
	Kind     string    `json:"kind"`
	RunID    string    `json:"run_id"`
	Workflow string    `json:"workflow,omitempty"`
	Step     string    `json:"step,omitempty"`
	Index    int       `json:"index,omitempty"`
	Turn     int       `json:"turn,omitempty"`
	Actor    string    `json:"actor,omitempty"`
	Text     string    `json:"text,omitempty"`
	Outcome  string    `json:"outcome,omitempty"` // "ok" or "failed" on completion records
	Error    string    `json:"error,omitempty"`
}

// Outcome values for completion records.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Writer appends records to a run log file. It is safe for concurrent use,
// though runs write sequentially by design.
type Writer struct {
	mu   sync.Mutex
	file *os.File
}

// NewWriter opens (creating if needed) the run log inside runDir for append.
func NewWriter(runDir string) (*Writer, error) {
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("creating run directory: %w", err)
	}
	file, err := os.OpenFile(filepath.Join(runDir, FileName),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening run log: %w", err)
	}
	return &Writer{file: file}, nil
}

// Append writes one record as a single JSON line. A record missing a
// timestamp is stamped with the current time.
func (w *Writer) Append(r Record) error {
	if r.Time.IsZero() {
		r.Time = time.Now()
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding run record: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing run record: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// Read loads all records from the run log inside runDir, in file order.
// Blank lines are skipped; a malformed line is an error, since the writer
// never produces one.
func Read(runDir string) ([]Record, error) {
	file, err := os.Open(filepath.Join(runDir, FileName))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r Record
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("decoding run record: %w", err)
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading run log: %w", err)
	}
	return records, nil
}

// FromEvent converts a published event into its run log record. It returns
// false for event types that are not persisted.
func FromEvent(e event.Event) (Record, bool) {
	switch ev := e.(type) {
	case event.RunStartedEvent:
		return Record{
			Time:     ev.Timestamp(),
			Kind:     ev.EventType(),
			RunID:    ev.RunID,
			Workflow: ev.Workflow,
		}, true
	case event.RunCompletedEvent:
		outcome := OutcomeOK
		if !ev.Success {
			outcome = OutcomeFailed
		}
		return Record{
			Time:     ev.Timestamp(),
			Kind:     ev.EventType(),
			RunID:    ev.RunID,
			Workflow: ev.Workflow,
			Outcome:  outcome,
			Error:    ev.Error,
		}, true
	case event.StepStartedEvent:
		return Record{
			Time:  ev.Timestamp(),
			Kind:  ev.EventType(),
			RunID: ev.RunID,
			Step:  ev.Step,
			Index: ev.Index,
			Actor: ev.ID,
		}, true
	case event.StepCompletedEvent:
		outcome := OutcomeOK
		if !ev.Success {
			outcome = OutcomeFailed
		}
		return Record{
			Time:    ev.Timestamp(),
			Kind:    ev.EventType(),
			RunID:   ev.RunID,
			Step:    ev.Step,
			Index:   ev.Index,
			Turn:    ev.Turns,
			Outcome: outcome,
			Error:   ev.Error,
		}, true
	case event.TurnCompletedEvent:
		return Record{
			Time:  ev.Timestamp(),
			Kind:  ev.EventType(),
			RunID: ev.RunID,
			Step:  ev.Step,
			Turn:  ev.Turn,
			Actor: ev.Speaker,
			Text:  ev.Text,
		}, true
	case event.SelectionFailedEvent:
		return Record{
			Time:    ev.Timestamp(),
			Kind:    ev.EventType(),
			RunID:   ev.RunID,
			Step:    ev.Step,
			Turn:    ev.Turn,
			Actor:   ev.Team,
			Text:    ev.Output,
			Outcome: OutcomeFailed,
		}, true
	}
	return Record{}, false
}
