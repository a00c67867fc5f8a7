package quality

// standardize.go rewrites field values to canonical form before validation:
// coded enumerations mapped, identifiers reformatted, dates parsed into
// typed values, units converted. Standardization never blocks and never
// drops a field — a value that cannot be parsed stays raw, and the
// validator raises BAD_FORMAT for it. The input record is not mutated; a
// derived record is returned so the original raw values survive for audit.

// Standardize returns a derived record with canonical field values and one
// informational STANDARDIZED flag per field whose rendering changed. The
// record's natural key is recomputed from the canonical key fields.
func Standardize(rec Record, spec EntitySpec) (Record, []QAFlag) {
	fields := rec.cloneFields()
	var flags []QAFlag

	for _, fs := range spec.Fields {
		fv, ok := fields[fs.Name]
		if !ok || fv.IsEmpty() {
			continue
		}

		raw := fv.Raw()
		s := raw
		if fs.Normalizer != nil {
			s = fs.Normalizer(s)
		}

		canonical := parseField(s, raw, fs.Type)
		fields[fs.Name] = canonical

		if rendered := canonical.String(); rendered != raw {
			flags = append(flags, standardizedFlag(fs.Name, raw, rendered))
		}
	}

	out := rec.withFields(fields)
	if spec.Derive != nil {
		for name, fv := range spec.Derive(out) {
			fields[name] = fv
		}
	}
	out.Key = spec.NaturalKey(out)
	return out, flags
}

// parseField parses a normalized string into a typed value. Unparseable
// input keeps the original raw form so the validator can name it.
func parseField(s, raw string, ft FieldType) FieldValue {
	switch ft {
	case FieldDate:
		if t, ok := ParseDate(s); ok {
			return DateValue(t, raw)
		}
	case FieldTime:
		if t, ok := ParseTime(s); ok {
			return TimeValue(t, raw)
		}
	case FieldNumber:
		if f, ok := ParseNumber(s); ok {
			return NumberValue(f, raw)
		}
	case FieldBool:
		if b, ok := ParseBool(s); ok {
			return BoolValue(b, raw)
		}
	default: // FieldText, FieldEnum
		return TextValue(s, raw)
	}
	return RawValue(raw)
}
