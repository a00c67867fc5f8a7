package quality

import (
	"fmt"
	"sort"
)

// Decision is the binary accept/reject classification of a record.
type Decision string

const (
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
)

// Outcome is the immutable result for one input record: its natural key,
// provenance, final flag set and decision. Exactly one outcome is produced
// per input record; none is silently dropped.
type Outcome struct {
	Entity   EntityType `json:"entity_type"`
	Key      string     `json:"natural_key"`
	Source   SourceRef  `json:"source_ref"`
	Decision Decision   `json:"decision"`
	Flags    []QAFlag   `json:"flags"`

	// DuplicateOf points at the surviving record's provenance when this
	// record lost the survivorship tie-break.
	DuplicateOf *SourceRef `json:"duplicate_of,omitempty"`
}

// Accepted reports whether the record passed all quality gates.
func (o Outcome) Accepted() bool { return o.Decision == DecisionAccepted }

// AcceptedSet holds the single surviving, accepted record per natural key
// for one entity type. It is built once per run, frozen at the entity-stage
// barrier, and from then on only read by the referential checks of the
// dependent entity type.
type AcceptedSet struct {
	entity  EntityType
	records map[string]Record
	frozen  bool
}

// NewAcceptedSet returns an empty accepted set for the entity type.
func NewAcceptedSet(entity EntityType) *AcceptedSet {
	return &AcceptedSet{entity: entity, records: make(map[string]Record)}
}

// Entity returns the entity type the set was built for.
func (s *AcceptedSet) Entity() EntityType { return s.entity }

// add inserts an accepted record. At most one record per natural key may
// ever enter the set, and nothing may be added after Freeze.
func (s *AcceptedSet) add(rec Record) error {
	if s.frozen {
		return fmt.Errorf("accepted %s set is frozen", s.entity)
	}
	if _, exists := s.records[rec.Key]; exists {
		return fmt.Errorf("accepted %s set already holds key %q", s.entity, rec.Key)
	}
	s.records[rec.Key] = rec
	return nil
}

// freeze marks the set read-only. Called at the barrier before the next
// entity type starts its referential checks.
func (s *AcceptedSet) freeze() { s.frozen = true }

// Has reports whether a natural key is present.
func (s *AcceptedSet) Has(key string) bool {
	_, ok := s.records[key]
	return ok
}

// Get returns the surviving record for a natural key.
func (s *AcceptedSet) Get(key string) (Record, bool) {
	rec, ok := s.records[key]
	return rec, ok
}

// Len returns the number of accepted records.
func (s *AcceptedSet) Len() int { return len(s.records) }

// Keys returns all natural keys in sorted order.
func (s *AcceptedSet) Keys() []string {
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Records returns the surviving records ordered by natural key, the form
// the load collaborator persists.
func (s *AcceptedSet) Records() []Record {
	keys := s.Keys()
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.records[k])
	}
	return out
}
