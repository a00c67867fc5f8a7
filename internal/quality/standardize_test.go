package quality

import (
	"testing"
)

// rawRecord builds a record the way extraction hands them over: every
// present field as a raw string value.
func rawRecord(entity EntityType, source SourceRef, fields map[string]string) Record {
	m := make(map[string]FieldValue, len(fields))
	for k, v := range fields {
		if v == "" {
			m[k] = EmptyValue()
		} else {
			m[k] = RawValue(v)
		}
	}
	return Record{Entity: entity, Fields: m, Source: source}
}

func mustSpec(t *testing.T, entity EntityType) EntitySpec {
	t.Helper()
	spec, ok := Spec(entity)
	if !ok {
		t.Fatalf("no spec for entity %q", entity)
	}
	return spec
}

func TestStandardize_Patient(t *testing.T) {
	spec := mustSpec(t, EntityPatient)
	rec := rawRecord(EntityPatient, SourceRef{File: "patients.csv", Line: 2}, map[string]string{
		"patient_id":  "P1",
		"given_name":  "john",
		"family_name": "DOE",
		"gender":      "m",
		"dob":         "03/12/1985",
		"height":      "5ft 8in",
		"weight":      "150 lbs",
	})

	out, flags := Standardize(rec, spec)

	want := map[string]string{
		"patient_id":  "P-0001",
		"given_name":  "John",
		"family_name": "Doe",
		"gender":      "MALE",
		"dob":         "1985-03-12",
		"height":      "172.7",
		"weight":      "68",
	}
	for name, w := range want {
		if got := out.Field(name).String(); got != w {
			t.Errorf("field %s = %q, want %q", name, got, w)
		}
	}

	if out.Key != "P-0001" {
		t.Errorf("Key = %q, want %q", out.Key, "P-0001")
	}

	// Every field changed its rendering, so each gets one flag.
	if len(flags) != len(want) {
		t.Errorf("got %d flags, want %d: %v", len(flags), len(want), flags)
	}
	for _, f := range flags {
		if f.Code != FlagStandardized {
			t.Errorf("flag code = %s, want %s", f.Code, FlagStandardized)
		}
		if f.Code.Blocking() {
			t.Errorf("STANDARDIZED must not block")
		}
	}
}

func TestStandardize_NoChangeNoFlags(t *testing.T) {
	spec := mustSpec(t, EntityPatient)
	rec := rawRecord(EntityPatient, SourceRef{}, map[string]string{
		"patient_id":  "P-0001",
		"given_name":  "John",
		"family_name": "Doe",
	})

	out, flags := Standardize(rec, spec)
	if len(flags) != 0 {
		t.Errorf("expected no flags for already-canonical input, got %v", flags)
	}
	if out.Key != "P-0001" {
		t.Errorf("Key = %q, want %q", out.Key, "P-0001")
	}
}

func TestStandardize_UnparseableStaysRaw(t *testing.T) {
	spec := mustSpec(t, EntityPatient)
	rec := rawRecord(EntityPatient, SourceRef{}, map[string]string{
		"patient_id": "P-0002",
		"dob":        "soon",
	})

	out, _ := Standardize(rec, spec)
	dob := out.Field("dob")
	if dob.Kind() != ValueRaw {
		t.Fatalf("dob kind = %v, want ValueRaw", dob.Kind())
	}
	if dob.Raw() != "soon" {
		t.Errorf("dob raw = %q, want %q", dob.Raw(), "soon")
	}
}

func TestStandardize_DoesNotMutateInput(t *testing.T) {
	spec := mustSpec(t, EntityPatient)
	rec := rawRecord(EntityPatient, SourceRef{}, map[string]string{
		"patient_id": "P1",
		"gender":     "f",
	})

	Standardize(rec, spec)
	if got := rec.Field("patient_id").String(); got != "P1" {
		t.Errorf("input record mutated: patient_id = %q", got)
	}
	if got := rec.Field("gender").String(); got != "f" {
		t.Errorf("input record mutated: gender = %q", got)
	}
}

func TestStandardize_EncounterStatus(t *testing.T) {
	spec := mustSpec(t, EntityEncounter)

	closed := rawRecord(EntityEncounter, SourceRef{}, map[string]string{
		"encounter_id":   "ENC1",
		"patient_id":     "P1",
		"admit_date":     "2024-03-10 08:00",
		"discharge_date": "2024-03-12 16:30",
	})
	out, _ := Standardize(closed, spec)
	if got := out.Field("status").String(); got != "CLOSED" {
		t.Errorf("status = %q, want CLOSED", got)
	}
	if out.Key != "ENC-000001" {
		t.Errorf("Key = %q, want ENC-000001", out.Key)
	}

	open := rawRecord(EntityEncounter, SourceRef{}, map[string]string{
		"encounter_id": "ENC2",
		"patient_id":   "P1",
		"admit_date":   "2024-03-10 08:00",
	})
	out, _ = Standardize(open, spec)
	if got := out.Field("status").String(); got != "OPEN" {
		t.Errorf("status = %q, want OPEN", got)
	}
}

func TestStandardize_DiagnosisKey(t *testing.T) {
	spec := mustSpec(t, EntityDiagnosis)
	rec := rawRecord(EntityDiagnosis, SourceRef{}, map[string]string{
		"diagnosis_id": "dx-1",
		"encounter_id": "enc7",
		"code":         "e11.9",
		"is_primary":   "yes",
	})

	out, _ := Standardize(rec, spec)
	if out.Key != "ENC-000007:DX-1" {
		t.Errorf("Key = %q, want %q", out.Key, "ENC-000007:DX-1")
	}
	if got := out.Field("code").String(); got != "E11.9" {
		t.Errorf("code = %q, want E11.9", got)
	}
	if !out.Field("is_primary").Bool() {
		t.Errorf("is_primary = false, want true")
	}
}
