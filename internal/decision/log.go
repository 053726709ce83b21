// Package decision implements the append-only audit log every pipeline
// stage writes to. The log is the canonical evidence of what happened
// during a run: entries are never edited or deleted, and a partial run
// always leaves a valid prefix on disk.
package decision

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Stage names used in decision records.
const (
	StageMatch    = "match"
	StageResolve  = "resolve"
	StageVerify   = "verify"
	StageRetrieve = "retrieve"
	StageAlign    = "align"
)

// Outcome values. These are data outcomes, not errors: the pipeline
// proceeds past any of them and records what it saw.
const (
	OutcomeMatched             = "matched"
	OutcomeUnmatched           = "unmatched"
	OutcomeUncited             = "uncited"
	OutcomeResolved            = "resolved"
	OutcomeUnresolved          = "unresolved"
	OutcomeSuperseded          = "superseded"
	OutcomeProviderUnavailable = "provider_unavailable"
	OutcomeVerified            = "verified"
	OutcomeUnavailable         = "unavailable"
	OutcomeProbeFailed         = "probe_failed"
	OutcomeGone                = "gone"
	OutcomeRetrieved           = "retrieved"
	OutcomeNotRetrievable      = "not_retrievable"
	OutcomePaired              = "paired"
	OutcomeMissing             = "missing"
)

// Record is one pipeline decision. Append-only; never mutated.
type Record struct {
	Seq        int64     `json:"seq"`
	Timestamp  time.Time `json:"ts"`
	Stage      string    `json:"stage"`
	DocumentID string    `json:"doc_id"`
	ItemID     string    `json:"item_id"` // Marker, bib entry, or record identifier
	Outcome    string    `json:"outcome"`
	Confidence float64   `json:"confidence,omitempty"`
	Rationale  string    `json:"rationale,omitempty"`
}

// Log is a mutex-serialized append-only JSONL sink. Concurrent stages
// share one Log; each Append is a single completed write so an aborted
// run never leaves a torn line.
type Log struct {
	mu   sync.Mutex
	f    *os.File
	seq  int64
	now  func() time.Time
	path string
}

// Open opens (or creates) the decision log at path for appending.
// Sequence numbering resumes after the last record already on disk; a
// log that can't be read refuses to open rather than risk duplicate
// sequence numbers.
func Open(path string) (*Log, error) {
	existing, err := ReadAll(path)
	if err != nil {
		return nil, err
	}
	var seq int64
	if len(existing) > 0 {
		seq = existing[len(existing)-1].Seq
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening decision log: %w", err)
	}
	return &Log{f: f, seq: seq, now: time.Now, path: path}, nil
}

// Path returns the log's file path.
func (l *Log) Path() string {
	return l.path
}

// Append records one decision. Sequence numbers and timestamps are
// assigned under the lock so log order matches processing order.
func (l *Log) Append(rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	rec.Seq = l.seq
	rec.Timestamp = l.now()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding decision: %w", err)
	}
	data = append(data, '\n')
	if _, err := l.f.Write(data); err != nil {
		return fmt.Errorf("writing decision: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.f.Close()
}
