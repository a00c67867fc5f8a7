package quality

// engine.go orchestrates the staged pipeline: standardize and validate fan
// out across workers (both stages are pure and per-record), then dedup and
// referential checks run single-pass over the complete per-type set, then
// the aggregator routes every record into the accepted set or the rejected
// collection and emits its outcome to the audit sink. A hard barrier sits
// between entity types: the parent accepted set is frozen before any child
// record is checked against it.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// ErrInvalidShape is returned when an entity collection is structurally
// unusable: no record in it carries a required field at all. This is the
// only condition the engine treats as fatal; everything else degrades to
// rejection with flags.
var ErrInvalidShape = errors.New("input collection has invalid shape")

// AuditSink receives every outcome, accepted or rejected, exactly once.
// Implementations own durability; the engine only guarantees emission.
type AuditSink interface {
	Log(ctx context.Context, outcome Outcome) error
}

// Config tunes the engine.
type Config struct {
	// Workers bounds the parallel standardize/validate fan-out.
	// Zero or negative means 4.
	Workers int
}

// Engine runs the reconciliation pipeline over one materialized batch.
type Engine struct {
	workers int
	audit   AuditSink
	now     func() time.Time // injectable for date-logic tests
}

// NewEngine creates an engine emitting outcomes to the given sink.
func NewEngine(audit AuditSink, cfg Config) *Engine {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Engine{workers: workers, audit: audit, now: time.Now}
}

// Batch is one run's materialized input: the raw record collections per
// entity type, as handed over by extraction.
type Batch struct {
	Patients   []Record
	Encounters []Record
	Diagnoses  []Record
}

func (b Batch) forEntity(entity EntityType) []Record {
	switch entity {
	case EntityPatient:
		return b.Patients
	case EntityEncounter:
		return b.Encounters
	case EntityDiagnosis:
		return b.Diagnoses
	}
	return nil
}

// EntityResult is the complete, disjoint partition of one entity type's
// input: every record appears in exactly one outcome, and accepted
// survivors additionally populate the accepted set.
type EntityResult struct {
	Entity   EntityType
	Accepted *AcceptedSet
	Outcomes []Outcome // one per input record, input order
	Rejected []Outcome
}

// Result is the outcome of a full pipeline run.
type Result struct {
	RunID      string
	Patients   *EntityResult
	Encounters *EntityResult
	Diagnoses  *EntityResult
}

// ForEntity returns the result for one entity type.
func (r *Result) ForEntity(entity EntityType) *EntityResult {
	switch entity {
	case EntityPatient:
		return r.Patients
	case EntityEncounter:
		return r.Encounters
	case EntityDiagnosis:
		return r.Diagnoses
	}
	return nil
}

// Run processes the batch entity type by entity type in dependency order.
// It always completes for well-shaped input; per-record flaws never abort
// the run. The returned result partitions every input record.
func (e *Engine) Run(ctx context.Context, batch Batch) (*Result, error) {
	runID := uuid.New().String()
	log := slog.Default().With("run_id", runID)

	result := &Result{RunID: runID}
	accepted := make(map[EntityType]*AcceptedSet)

	for _, spec := range Specs() {
		recs := batch.forEntity(spec.Entity)
		if err := verifyShape(recs, spec); err != nil {
			return nil, err
		}

		er, err := e.runEntity(ctx, spec, recs, accepted[spec.Parent], log)
		if err != nil {
			return nil, err
		}

		er.Accepted.freeze() // barrier: read-only before the child stage
		accepted[spec.Entity] = er.Accepted

		switch spec.Entity {
		case EntityPatient:
			result.Patients = er
		case EntityEncounter:
			result.Encounters = er
		case EntityDiagnosis:
			result.Diagnoses = er
		}

		log.Info("entity stage complete",
			"entity", spec.Entity,
			"input", len(recs),
			"accepted", er.Accepted.Len(),
			"rejected", len(er.Rejected),
		)
	}

	return result, nil
}

// runEntity takes one entity type through all five stages.
func (e *Engine) runEntity(ctx context.Context, spec EntitySpec, recs []Record, parents *AcceptedSet, log *slog.Logger) (*EntityResult, error) {
	now := e.now()
	items := make([]*workItem, len(recs))

	// Standardize + validate: pure per-record work, parallel workers.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, rec := range recs {
		i, rec := i, rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			std, flags := Standardize(rec, spec)
			flags = append(flags, Validate(std, spec, now)...)
			items[i] = &workItem{rec: std, flags: flags, seq: i}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Dedup and referential checks need the complete per-type view.
	dedupe(items, spec)
	checkReferences(items, spec, parents)

	return e.route(ctx, spec, items, log)
}

// route is the aggregator: it folds each item's flags into a decision,
// partitions the records, and emits every outcome to the audit sink.
func (e *Engine) route(ctx context.Context, spec EntitySpec, items []*workItem, log *slog.Logger) (*EntityResult, error) {
	er := &EntityResult{
		Entity:   spec.Entity,
		Accepted: NewAcceptedSet(spec.Entity),
		Outcomes: make([]Outcome, 0, len(items)),
	}

	for _, it := range items {
		outcome := Outcome{
			Entity: spec.Entity,
			Key:    it.rec.Key,
			Source: it.rec.Source,
			Flags:  it.flags,
		}
		if it.duplicate {
			src := it.survivor.rec.Source
			outcome.DuplicateOf = &src
		}

		if !it.duplicate && !hasBlocking(it.flags) {
			outcome.Decision = DecisionAccepted
			if err := er.Accepted.add(it.rec); err != nil {
				// Post-dedup uniqueness is an engine invariant; a clash
				// here is a bug, not bad data.
				return nil, fmt.Errorf("route %s: %w", spec.Entity, err)
			}
		} else {
			outcome.Decision = DecisionRejected
			er.Rejected = append(er.Rejected, outcome)
		}
		er.Outcomes = append(er.Outcomes, outcome)

		if e.audit != nil {
			if err := e.audit.Log(ctx, outcome); err != nil {
				return nil, fmt.Errorf("audit %s outcome for %q: %w", spec.Entity, outcome.Key, err)
			}
		}
		if outcome.Decision == DecisionRejected {
			log.Debug("record rejected", "entity", spec.Entity, "key", outcome.Key, "flags", len(outcome.Flags))
		}
	}

	return er, nil
}

// verifyShape enforces the one fatal precondition: a non-empty collection
// in which some required field is present on no record at all cannot have
// come from a well-formed source and fails the run.
func verifyShape(recs []Record, spec EntitySpec) error {
	if len(recs) == 0 {
		return nil
	}

	var missing []string
	for _, fs := range spec.Fields {
		if !fs.Required {
			continue
		}
		found := false
		for _, rec := range recs {
			if _, ok := rec.Fields[fs.Name]; ok {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, fs.Name)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%s records carry no %v field: %w", spec.Entity, missing, ErrInvalidShape)
	}
	return nil
}
