package quality

// refcheck.go validates foreign-key references against the parent entity
// type's finalized accepted set. Runs strictly after the parent stage's
// barrier; only reads the frozen set. The reason processing goes patients,
// then encounters, then diagnoses.

// checkReferences appends FK_VIOLATION to every item that is otherwise
// eligible for acceptance but references a parent key absent from the
// accepted set. Records already blocked, and duplicate losers, are left
// alone: their fate is decided.
func checkReferences(items []*workItem, spec EntitySpec, parents *AcceptedSet) {
	if spec.Parent == "" || parents == nil {
		return
	}

	for _, it := range items {
		if it.duplicate || !it.valid() {
			continue
		}
		ref := it.rec.Field(spec.ParentKey).String()
		if ref == "" {
			// Required-field validation already flagged the absence.
			continue
		}
		if !parents.Has(ref) {
			it.flags = append(it.flags, fkViolation(spec.ParentKey, ref, spec.Parent))
		}
	}
}
