package quality

// validate.go checks a single standardized record against its entity's
// field rules. The stage is pure and stateless: no cross-record knowledge,
// no I/O, so the engine can fan records out across workers. Each violated
// rule appends exactly one blocking flag naming the offending field and
// value.

import (
	"fmt"
	"time"
)

// Validate returns the blocking flags for one standardized record: missing
// required fields, type and pattern failures, enumeration violations and
// the entity's cross-field checks. An empty result means the record is
// fully valid at field level.
func Validate(rec Record, spec EntitySpec, now time.Time) []QAFlag {
	var flags []QAFlag

	for _, fs := range spec.Fields {
		fv := rec.Field(fs.Name)

		if fv.IsEmpty() {
			if fs.Required {
				flags = append(flags, missingField(fs.Name))
			}
			continue
		}

		// A typed field still raw after standardization failed to parse.
		if fv.Kind() == ValueRaw {
			flags = append(flags, badFormat(fs.Name, fv.Raw(), typeWant(fs.Type)))
			continue
		}

		switch fs.Type {
		case FieldEnum:
			if !inEnum(fv.String(), fs.EnumValues) {
				flags = append(flags, badFormat(fs.Name, fv.String(), fmt.Sprintf("must be one of %v", fs.EnumValues)))
			}
		case FieldText:
			if fs.Pattern != nil && !fs.Pattern.MatchString(fv.String()) {
				flags = append(flags, badFormat(fs.Name, fv.String(), fs.PatternMsg))
			}
		case FieldNumber:
			if outOfRange(fv.Number(), fs.Min, fs.Max) {
				flags = append(flags, badFormat(fs.Name, fv.String(), rangeWant(fs.Min, fs.Max)))
			}
		}
	}

	if spec.Cross != nil {
		flags = append(flags, spec.Cross(rec, now)...)
	}

	return flags
}

func inEnum(v string, values []string) bool {
	for _, ev := range values {
		if v == ev {
			return true
		}
	}
	return false
}

func outOfRange(n float64, min, max *float64) bool {
	if min != nil && n < *min {
		return true
	}
	if max != nil && n > *max {
		return true
	}
	return false
}

func rangeWant(min, max *float64) string {
	switch {
	case min != nil && max != nil:
		return fmt.Sprintf("outside the plausible range %g to %g", *min, *max)
	case min != nil:
		return fmt.Sprintf("below the plausible minimum %g", *min)
	default:
		return fmt.Sprintf("above the plausible maximum %g", *max)
	}
}

func typeWant(ft FieldType) string {
	switch ft {
	case FieldDate:
		return "not a parseable date"
	case FieldTime:
		return "not a parseable timestamp"
	case FieldNumber:
		return "not a parseable number"
	case FieldBool:
		return "not a parseable boolean"
	default:
		return "unrecognized value"
	}
}
