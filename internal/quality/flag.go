package quality

// flag.go defines the QA flag taxonomy. Every quality observation about a
// record is one of these flags; blocking flags reject the record, the
// informational STANDARDIZED flag never does. A flaw in one record is never
// an error for the run.

import "fmt"

// FlagCode enumerates the quality observations a record can accumulate.
type FlagCode string

const (
	// FlagMissingField marks a required field that is absent or empty.
	FlagMissingField FlagCode = "MISSING_FIELD"
	// FlagBadFormat marks a field that is present but fails type, pattern
	// or enumeration checks.
	FlagBadFormat FlagCode = "BAD_FORMAT"
	// FlagDateLogic marks a violated chronological invariant, such as a
	// discharge before the admit or a date of birth in the future.
	FlagDateLogic FlagCode = "DATE_LOGIC_VIOLATION"
	// FlagDuplicate marks a record that lost the survivorship tie-break.
	FlagDuplicate FlagCode = "DUPLICATE"
	// FlagFKViolation marks a child record whose parent reference is not in
	// the parent entity's accepted set.
	FlagFKViolation FlagCode = "FK_VIOLATION"
	// FlagStandardized records that a value was normalized without semantic
	// ambiguity. Informational: never causes rejection.
	FlagStandardized FlagCode = "STANDARDIZED"
)

// Blocking reports whether a flag with this code rejects the record.
func (c FlagCode) Blocking() bool {
	return c != FlagStandardized
}

// QAFlag is one structured quality observation: an enumerated code plus a
// human-readable detail naming the offending field and value.
type QAFlag struct {
	Code   FlagCode `json:"code"`
	Detail string   `json:"detail"`
}

func (f QAFlag) String() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Detail)
}

// hasBlocking reports whether any flag in the list is blocking.
func hasBlocking(flags []QAFlag) bool {
	for _, f := range flags {
		if f.Code.Blocking() {
			return true
		}
	}
	return false
}

// Flag constructors keep detail strings uniform across stages.

func missingField(field string) QAFlag {
	return QAFlag{Code: FlagMissingField, Detail: fmt.Sprintf("required field %q is missing or empty", field)}
}

func badFormat(field, value, want string) QAFlag {
	return QAFlag{Code: FlagBadFormat, Detail: fmt.Sprintf("field %q has value %q: %s", field, value, want)}
}

func dateLogic(detail string) QAFlag {
	return QAFlag{Code: FlagDateLogic, Detail: detail}
}

func duplicateOf(survivor SourceRef) QAFlag {
	return QAFlag{Code: FlagDuplicate, Detail: fmt.Sprintf("lost survivorship to record from %s", survivor)}
}

func fkViolation(field, value string, parent EntityType) QAFlag {
	return QAFlag{Code: FlagFKViolation, Detail: fmt.Sprintf("%s %q not found in accepted %s records", field, value, parent)}
}

func standardizedFlag(field, from, to string) QAFlag {
	return QAFlag{Code: FlagStandardized, Detail: fmt.Sprintf("field %q normalized from %q to %q", field, from, to)}
}
