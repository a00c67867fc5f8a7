// Package audit persists validation outcomes. The engine guarantees
// exactly one outcome per input record; this package owns durability: an
// append-only JSON Lines file per entity type, plus in-memory run counters
// for reporting. The dashboard reads these files, never the engine.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/emankhadim/healthcare-etl-pipeline/internal/quality"
)

// Logger writes outcomes as JSON lines, one file per entity type under the
// logs directory (<dir>/<entity>_outcomes.jsonl). Safe for concurrent use.
type Logger struct {
	dir string

	mu      sync.Mutex
	files   map[quality.EntityType]*os.File
	summary map[quality.EntityType]*EntitySummary
}

// EntitySummary counts one entity type's outcomes for a run.
type EntitySummary struct {
	Entity   quality.EntityType       `json:"entity_type"`
	Total    int                      `json:"total"`
	Accepted int                      `json:"accepted"`
	Rejected int                      `json:"rejected"`
	ByFlag   map[quality.FlagCode]int `json:"by_flag"`
}

// NewLogger creates the logs directory if needed and returns a logger
// writing into it.
func NewLogger(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}
	return &Logger{
		dir:     dir,
		files:   make(map[quality.EntityType]*os.File),
		summary: make(map[quality.EntityType]*EntitySummary),
	}, nil
}

// Log appends one outcome to its entity's log file and updates the run
// counters. Implements quality.AuditSink.
func (l *Logger) Log(_ context.Context, outcome quality.Outcome) error {
	line, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := l.file(outcome.Entity)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append outcome: %w", err)
	}

	s := l.summary[outcome.Entity]
	if s == nil {
		s = &EntitySummary{Entity: outcome.Entity, ByFlag: make(map[quality.FlagCode]int)}
		l.summary[outcome.Entity] = s
	}
	s.Total++
	if outcome.Accepted() {
		s.Accepted++
	} else {
		s.Rejected++
	}
	for _, fl := range outcome.Flags {
		s.ByFlag[fl.Code]++
	}
	return nil
}

// Summaries returns the per-entity counters in entity-name order.
func (l *Logger) Summaries() []EntitySummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]EntitySummary, 0, len(l.summary))
	for _, s := range l.summary {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Entity < out[j].Entity })
	return out
}

// Close flushes and closes all entity log files.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	for _, f := range l.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	l.files = make(map[quality.EntityType]*os.File)
	return firstErr
}

func (l *Logger) file(entity quality.EntityType) (*os.File, error) {
	if f, ok := l.files[entity]; ok {
		return f, nil
	}
	path := OutcomePath(l.dir, entity)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open outcome log %s: %w", path, err)
	}
	l.files[entity] = f
	return f, nil
}

// OutcomePath returns the outcome log location for an entity type.
func OutcomePath(dir string, entity quality.EntityType) string {
	return filepath.Join(dir, string(entity)+"_outcomes.jsonl")
}
