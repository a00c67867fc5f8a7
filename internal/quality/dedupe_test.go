package quality

import "testing"

// item builds a pipeline work item from already-standardized fields.
func item(t *testing.T, seq int, source SourceRef, fields map[string]string) *workItem {
	t.Helper()
	spec := mustSpec(t, EntityPatient)
	rec, _ := Standardize(rawRecord(EntityPatient, source, fields), spec)
	return &workItem{
		rec:   rec,
		flags: Validate(rec, spec, validateNow),
		seq:   seq,
	}
}

func TestDedupe_ValidBeatsInvalid(t *testing.T) {
	spec := mustSpec(t, EntityPatient)

	// Same key; the second record carries an unparseable dob.
	a := item(t, 0, SourceRef{File: "patients.csv", Line: 2}, map[string]string{
		"patient_id": "P-0001",
		"given_name": "John",
	})
	b := item(t, 1, SourceRef{File: "patients.csv", Line: 9}, map[string]string{
		"patient_id": "P-0001",
		"given_name": "John",
		"dob":        "not a date",
	})

	dedupe([]*workItem{a, b}, spec)

	if a.duplicate {
		t.Error("valid record lost to invalid duplicate")
	}
	if !b.duplicate {
		t.Fatal("invalid duplicate not marked")
	}
	if b.survivor != a {
		t.Error("survivor pointer does not name the valid record")
	}
	if !hasFlag(b.flags, FlagDuplicate) {
		t.Errorf("loser missing DUPLICATE flag: %v", flagCodes(b.flags))
	}
}

func TestDedupe_CompletenessBreaksTie(t *testing.T) {
	spec := mustSpec(t, EntityPatient)

	sparse := item(t, 0, SourceRef{File: "patients.csv", Line: 2}, map[string]string{
		"patient_id": "P-0001",
	})
	full := item(t, 1, SourceRef{File: "patients.csv", Line: 3}, map[string]string{
		"patient_id":  "P-0001",
		"given_name":  "John",
		"family_name": "Doe",
		"gender":      "M",
		"dob":         "1985-03-12",
	})

	dedupe([]*workItem{sparse, full}, spec)

	if full.duplicate {
		t.Error("more complete record lost the survivorship tie")
	}
	if !sparse.duplicate {
		t.Error("less complete record not marked duplicate")
	}
}

func TestDedupe_RecencyBreaksCompletenessTie(t *testing.T) {
	spec := mustSpec(t, EntityPatient)

	early := item(t, 0, SourceRef{File: "patients.csv", Line: 2}, map[string]string{
		"patient_id": "P-0001",
		"given_name": "John",
	})
	late := item(t, 1, SourceRef{File: "patients.csv", Line: 14}, map[string]string{
		"patient_id": "P-0001",
		"given_name": "Jon",
	})

	dedupe([]*workItem{early, late}, spec)

	if late.duplicate {
		t.Error("later source reference lost the recency tie-break")
	}
	if !early.duplicate {
		t.Error("earlier source reference survived over a later one")
	}
}

func TestDedupe_FirstSeenIsFinalTieBreak(t *testing.T) {
	spec := mustSpec(t, EntityPatient)

	// Identical validity, completeness, and source.
	src := SourceRef{File: "patients.csv", Line: 2}
	first := item(t, 0, src, map[string]string{"patient_id": "P-0001", "given_name": "John"})
	second := item(t, 1, src, map[string]string{"patient_id": "P-0001", "given_name": "Jane"})

	dedupe([]*workItem{first, second}, spec)

	if first.duplicate {
		t.Error("first-seen record should survive a full tie")
	}
	if !second.duplicate {
		t.Error("second record should lose a full tie")
	}
}

func TestDedupe_Deterministic(t *testing.T) {
	spec := mustSpec(t, EntityPatient)

	build := func() []*workItem {
		return []*workItem{
			item(t, 0, SourceRef{File: "patients.csv", Line: 2}, map[string]string{"patient_id": "P-0001", "given_name": "A"}),
			item(t, 1, SourceRef{File: "patients.csv", Line: 3}, map[string]string{"patient_id": "P-0001", "given_name": "B", "family_name": "X"}),
			item(t, 2, SourceRef{File: "patients.csv", Line: 4}, map[string]string{"patient_id": "P-0002"}),
			item(t, 3, SourceRef{File: "patients.csv", Line: 5}, map[string]string{"patient_id": "P-0001", "given_name": "C", "family_name": "Y"}),
		}
	}

	for run := 0; run < 10; run++ {
		items := build()
		dedupe(items, spec)
		// Line 5 wins key P-0001: completeness ties with line 3, recency decides.
		if items[3].duplicate {
			t.Fatalf("run %d: expected the latest complete record to survive", run)
		}
		if !items[0].duplicate || !items[1].duplicate {
			t.Fatalf("run %d: expected earlier records to be duplicates", run)
		}
		if items[2].duplicate {
			t.Fatalf("run %d: singleton key marked duplicate", run)
		}
	}
}

func TestDedupe_KeylessRecordsNeverDuplicates(t *testing.T) {
	spec := mustSpec(t, EntityPatient)

	// Neither record has a patient_id, so neither has an identity to
	// collide on. They reject on MISSING_FIELD, not DUPLICATE.
	a := item(t, 0, SourceRef{File: "patients.csv", Line: 2}, map[string]string{
		"given_name": "John",
	})
	b := item(t, 1, SourceRef{File: "patients.csv", Line: 3}, map[string]string{
		"given_name": "Jane",
	})

	dedupe([]*workItem{a, b}, spec)

	if a.duplicate || b.duplicate {
		t.Fatal("keyless records must not be marked duplicates of each other")
	}
	if a.survivor != nil || b.survivor != nil {
		t.Error("keyless records must not carry survivorship lineage")
	}
	if hasFlag(a.flags, FlagDuplicate) || hasFlag(b.flags, FlagDuplicate) {
		t.Error("keyless records must not carry a DUPLICATE flag")
	}
	if !hasFlag(a.flags, FlagMissingField) {
		t.Errorf("expected MISSING_FIELD on keyless record, got %v", flagCodes(a.flags))
	}
}

func TestNaturalKey_MissingComponentMeansNoKey(t *testing.T) {
	spec := mustSpec(t, EntityDiagnosis)

	rec, _ := Standardize(rawRecord(EntityDiagnosis, SourceRef{File: "diagnoses.xml", Line: 1}, map[string]string{
		"code": "E11.9",
	}), spec)

	if rec.Key != "" {
		t.Errorf("record missing both key fields got key %q, want empty", rec.Key)
	}
}

func TestDedupe_DistinctKeysUntouched(t *testing.T) {
	spec := mustSpec(t, EntityPatient)
	a := item(t, 0, SourceRef{Line: 2}, map[string]string{"patient_id": "P-0001"})
	b := item(t, 1, SourceRef{Line: 3}, map[string]string{"patient_id": "P-0002"})

	dedupe([]*workItem{a, b}, spec)

	if a.duplicate || b.duplicate {
		t.Error("records with distinct keys must never be duplicates")
	}
}
