// Package quality implements the data-quality reconciliation engine: it
// standardizes, validates, deduplicates and cross-references raw patient,
// encounter and diagnosis records, and classifies every record as accepted
// or rejected with a machine-readable set of QA flags.
//
// The package owns no I/O. Extraction hands it in-memory records, the load
// and audit collaborators consume its outputs.
package quality

import (
	"fmt"
	"strconv"
	"time"
)

// EntityType identifies one of the three record kinds the engine processes.
type EntityType string

const (
	EntityPatient   EntityType = "patient"
	EntityEncounter EntityType = "encounter"
	EntityDiagnosis EntityType = "diagnosis"
)

// SourceRef is the provenance of a record: originating file plus the
// 1-based row (CSV) or element (XML) index. It is retained on every
// outcome, accepted or rejected.
type SourceRef struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

func (s SourceRef) String() string {
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}

// After reports whether s is more recent than other. Later file names win,
// then later rows; used as the survivorship recency tie-break.
func (s SourceRef) After(other SourceRef) bool {
	if s.File != other.File {
		return s.File > other.File
	}
	return s.Line > other.Line
}

// ValueKind discriminates the FieldValue tagged union.
type ValueKind int

const (
	// ValueEmpty marks a field that was absent or blank at ingress.
	ValueEmpty ValueKind = iota
	// ValueRaw is an unparsed string: either a field the standardizer does
	// not touch, or one it could not parse (left for the validator to flag).
	ValueRaw
	// ValueText is a canonical string (trimmed, case-folded, mapped).
	ValueText
	ValueDate
	ValueTime
	ValueNumber
	ValueBool
)

// FieldValue is a tagged union over the loosely typed cell values arriving
// from extraction: either the raw string form, or a parsed primitive with
// the original raw form retained for audit.
type FieldValue struct {
	kind ValueKind
	raw  string
	text string
	ts   time.Time
	num  float64
	b    bool
}

// EmptyValue returns the absent/blank field value.
func EmptyValue() FieldValue { return FieldValue{} }

// RawValue wraps an unparsed string. Blank input collapses to ValueEmpty.
func RawValue(s string) FieldValue {
	if s == "" {
		return FieldValue{}
	}
	return FieldValue{kind: ValueRaw, raw: s}
}

// TextValue wraps a canonical string, keeping raw for audit.
func TextValue(canonical, raw string) FieldValue {
	if canonical == "" {
		return FieldValue{}
	}
	return FieldValue{kind: ValueText, raw: raw, text: canonical}
}

// DateValue wraps a parsed calendar date.
func DateValue(t time.Time, raw string) FieldValue {
	return FieldValue{kind: ValueDate, raw: raw, ts: t}
}

// TimeValue wraps a parsed instant (stored UTC).
func TimeValue(t time.Time, raw string) FieldValue {
	return FieldValue{kind: ValueTime, raw: raw, ts: t.UTC()}
}

// NumberValue wraps a parsed number.
func NumberValue(f float64, raw string) FieldValue {
	return FieldValue{kind: ValueNumber, raw: raw, num: f}
}

// BoolValue wraps a parsed boolean.
func BoolValue(b bool, raw string) FieldValue {
	return FieldValue{kind: ValueBool, raw: raw, b: b}
}

// Kind returns the union tag.
func (v FieldValue) Kind() ValueKind { return v.kind }

// IsEmpty reports whether the field was absent or blank.
func (v FieldValue) IsEmpty() bool { return v.kind == ValueEmpty }

// Raw returns the original textual form as extracted.
func (v FieldValue) Raw() string { return v.raw }

// Time returns the parsed instant for ValueDate/ValueTime values.
func (v FieldValue) Time() time.Time { return v.ts }

// Number returns the parsed number for ValueNumber values.
func (v FieldValue) Number() float64 { return v.num }

// Bool returns the parsed boolean for ValueBool values.
func (v FieldValue) Bool() bool { return v.b }

// String renders the canonical form: ISO dates, RFC 3339 UTC instants,
// shortest float form, true/false. Raw and empty values render as-is.
func (v FieldValue) String() string {
	switch v.kind {
	case ValueEmpty:
		return ""
	case ValueRaw:
		return v.raw
	case ValueText:
		return v.text
	case ValueDate:
		return v.ts.Format("2006-01-02")
	case ValueTime:
		return v.ts.Format("2006-01-02T15:04:05Z")
	case ValueNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.b)
	}
	return v.raw
}

// Record is one untrusted tabular row for a single entity type. Records are
// immutable once inside the engine: standardization returns a derived copy,
// never mutates Fields in place.
type Record struct {
	Entity EntityType
	Key    string // natural key used for deduplication
	Fields map[string]FieldValue
	Source SourceRef
}

// Field returns the named field, or the empty value when absent.
func (r Record) Field(name string) FieldValue {
	return r.Fields[name]
}

// withFields returns a copy of r carrying a replacement field map.
func (r Record) withFields(fields map[string]FieldValue) Record {
	r.Fields = fields
	return r
}

// cloneFields copies the field map so a derived record can be built
// without touching the original.
func (r Record) cloneFields() map[string]FieldValue {
	out := make(map[string]FieldValue, len(r.Fields))
	for k, v := range r.Fields {
		out[k] = v
	}
	return out
}
