package extract

import (
	"strings"
	"testing"

	"github.com/emankhadim/healthcare-etl-pipeline/internal/quality"
)

func TestParsePatients(t *testing.T) {
	csv := strings.Join([]string{
		"patient_id,given_name,family_name,gender,dob,height,weight",
		"P1,john,doe,M,1985-03-12,5ft 8in,150 lbs",
		",,,,,,",
		"P2,mary,smith,F,N/A,,80kg",
	}, "\n")

	recs, err := ParsePatients(strings.NewReader(csv), "patients.csv")
	if err != nil {
		t.Fatalf("ParsePatients() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}

	first := recs[0]
	if first.Entity != quality.EntityPatient {
		t.Errorf("entity = %s, want patient", first.Entity)
	}
	if first.Source.File != "patients.csv" || first.Source.Line != 2 {
		t.Errorf("source = %s, want patients.csv:2", first.Source)
	}
	if got := first.Field("patient_id").Raw(); got != "P1" {
		t.Errorf("patient_id = %q, want raw P1", got)
	}
	if got := first.Field("height").Raw(); got != "5ft 8in" {
		t.Errorf("height = %q, values must stay raw at extraction", got)
	}

	// Missing tokens collapse to the empty value, the all-blank row is skipped.
	second := recs[1]
	if second.Source.Line != 4 {
		t.Errorf("second record line = %d, want 4", second.Source.Line)
	}
	if !second.Field("dob").IsEmpty() {
		t.Errorf("dob = %q, want empty for N/A", second.Field("dob").Raw())
	}
	if !second.Field("height").IsEmpty() {
		t.Error("blank height should be empty")
	}
}

func TestParsePatients_SexHeaderAlias(t *testing.T) {
	csv := "patient_id,sex\nP1,F\n"
	recs, err := ParsePatients(strings.NewReader(csv), "patients.csv")
	if err != nil {
		t.Fatalf("ParsePatients() error = %v", err)
	}
	if got := recs[0].Field("gender").Raw(); got != "F" {
		t.Errorf("gender = %q, want F via sex alias", got)
	}
}

func TestParsePatients_AbsentColumnsStayAbsent(t *testing.T) {
	csv := "patient_id,given_name\nP1,John\n"
	recs, err := ParsePatients(strings.NewReader(csv), "patients.csv")
	if err != nil {
		t.Fatalf("ParsePatients() error = %v", err)
	}

	rec := recs[0]
	if _, ok := rec.Fields["gender"]; ok {
		t.Error("gender key should be absent when the column is not in the file")
	}
	if _, ok := rec.Fields["patient_id"]; !ok {
		t.Error("patient_id key should be present")
	}
}

func TestParsePatients_Empty(t *testing.T) {
	if _, err := ParsePatients(strings.NewReader(""), "patients.csv"); err == nil {
		t.Fatal("expected error for empty file")
	}
}
