package quality

// entities.go declares the field rules for the three entity types, the way
// the engine knows them. The set is closed and ordered: patients before
// encounters before diagnoses, because each child type's referential checks
// read the parent type's finalized accepted set.

import (
	"fmt"
	"regexp"
	"time"
)

// FieldType is the expected parsed type for a field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldDate
	FieldTime
	FieldNumber
	FieldBool
)

// FieldSpec defines the standardization and validation rules for one field.
type FieldSpec struct {
	Name       string
	Type       FieldType
	Required   bool
	EnumValues []string            // valid canonical values for FieldEnum
	Pattern    *regexp.Regexp      // format check for FieldText, e.g. ICD-10
	PatternMsg string              // human-readable pattern description
	Min, Max   *float64            // plausibility bounds for FieldNumber
	Normalizer func(string) string // canonicalization applied before parsing
}

// EntitySpec is everything the engine needs to process one entity type.
type EntitySpec struct {
	Entity    EntityType
	KeyFields []string // fields composing the natural key, in order
	Fields    []FieldSpec
	Parent    EntityType // zero for root entities
	ParentKey string     // field referencing the parent natural key

	// Cross runs the cross-field checks of a single record: chronological
	// invariants and other rules a per-field spec cannot express.
	Cross func(rec Record, now time.Time) []QAFlag

	// Derive computes fields that exist only in canonical form, such as the
	// encounter OPEN/CLOSED status. Applied after standardization.
	Derive func(rec Record) map[string]FieldValue
}

// ICD10Pattern is the canonical ICD-10 code shape: one letter, two digits,
// then an optional decimal with up to four further alphanumerics.
var ICD10Pattern = regexp.MustCompile(`^[A-Z][0-9]{2}(\.[0-9A-Z]{1,4})?$`)

func f64(v float64) *float64 { return &v }

var entitySpecs = []EntitySpec{
	{
		Entity:    EntityPatient,
		KeyFields: []string{"patient_id"},
		Fields: []FieldSpec{
			{Name: "patient_id", Type: FieldText, Required: true, Normalizer: NormalizePatientID},
			{Name: "given_name", Type: FieldText, Normalizer: NormalizeName},
			{Name: "family_name", Type: FieldText, Normalizer: NormalizeName},
			{Name: "gender", Type: FieldEnum, EnumValues: []string{"MALE", "FEMALE", "OTHER", "UNKNOWN"}, Normalizer: NormalizeGender},
			{Name: "dob", Type: FieldDate},
			{Name: "height", Type: FieldNumber, Min: f64(40), Max: f64(250), Normalizer: NormalizeHeightCm},
			{Name: "weight", Type: FieldNumber, Min: f64(3), Max: f64(300), Normalizer: NormalizeWeightKg},
		},
		Cross: patientCross,
	},
	{
		Entity:    EntityEncounter,
		KeyFields: []string{"encounter_id"},
		Parent:    EntityPatient,
		ParentKey: "patient_id",
		Fields: []FieldSpec{
			{Name: "encounter_id", Type: FieldText, Required: true, Normalizer: NormalizeEncounterID},
			{Name: "patient_id", Type: FieldText, Required: true, Normalizer: NormalizePatientID},
			{Name: "admit_date", Type: FieldTime, Required: true},
			{Name: "discharge_date", Type: FieldTime},
			{Name: "encounter_type", Type: FieldEnum, EnumValues: []string{"INPATIENT", "OUTPATIENT", "ED"}, Normalizer: NormalizeEncounterType},
		},
		Cross:  encounterCross,
		Derive: encounterDerive,
	},
	{
		Entity:    EntityDiagnosis,
		KeyFields: []string{"encounter_id", "diagnosis_id"},
		Parent:    EntityEncounter,
		ParentKey: "encounter_id",
		Fields: []FieldSpec{
			{Name: "diagnosis_id", Type: FieldText, Required: true, Normalizer: NormalizeCode},
			{Name: "encounter_id", Type: FieldText, Required: true, Normalizer: NormalizeEncounterID},
			{Name: "code", Type: FieldText, Required: true, Pattern: ICD10Pattern, PatternMsg: "not a valid ICD-10 code", Normalizer: NormalizeCode},
			{Name: "code_system", Type: FieldText, Normalizer: NormalizeCode},
			{Name: "is_primary", Type: FieldBool, Required: true},
			{Name: "recorded_at", Type: FieldTime},
		},
		Cross: diagnosisCross,
	},
}

// Specs returns the entity specifications in processing order.
func Specs() []EntitySpec {
	return entitySpecs
}

// Spec returns the specification for one entity type.
func Spec(entity EntityType) (EntitySpec, bool) {
	for _, s := range entitySpecs {
		if s.Entity == entity {
			return s, true
		}
	}
	return EntitySpec{}, false
}

// NaturalKey composes a record's natural key from its canonical key fields.
// Composite keys join with ":". A record missing any key field has no
// identity and gets the empty key.
func (s EntitySpec) NaturalKey(rec Record) string {
	key := ""
	for i, f := range s.KeyFields {
		part := rec.Field(f).String()
		if part == "" {
			return ""
		}
		if i > 0 {
			key += ":"
		}
		key += part
	}
	return key
}

// field returns the spec for a named field.
func (s EntitySpec) field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// maxPatientAgeYears caps plausible patient age.
const maxPatientAgeYears = 120

func patientCross(rec Record, now time.Time) []QAFlag {
	var flags []QAFlag
	if dob := rec.Field("dob"); dob.Kind() == ValueDate {
		switch {
		case dob.Time().After(now):
			flags = append(flags, dateLogic(fmt.Sprintf("date of birth %s is in the future", dob)))
		case now.Sub(dob.Time()).Hours() > maxPatientAgeYears*365.25*24:
			flags = append(flags, dateLogic(fmt.Sprintf("date of birth %s implies an age over %d years", dob, maxPatientAgeYears)))
		}
	}
	return flags
}

func encounterCross(rec Record, _ time.Time) []QAFlag {
	var flags []QAFlag
	admit := rec.Field("admit_date")
	discharge := rec.Field("discharge_date")
	if admit.Kind() == ValueTime && discharge.Kind() == ValueTime && discharge.Time().Before(admit.Time()) {
		flags = append(flags, dateLogic(fmt.Sprintf("discharge_date %s is before admit_date %s", discharge, admit)))
	}
	return flags
}

// encounterDerive sets the OPEN/CLOSED status: absence of a discharge date
// implies OPEN, presence implies CLOSED.
func encounterDerive(rec Record) map[string]FieldValue {
	status := "CLOSED"
	if rec.Field("discharge_date").IsEmpty() {
		status = "OPEN"
	}
	return map[string]FieldValue{"status": TextValue(status, status)}
}

func diagnosisCross(rec Record, now time.Time) []QAFlag {
	var flags []QAFlag
	if at := rec.Field("recorded_at"); at.Kind() == ValueTime && at.Time().After(now) {
		flags = append(flags, dateLogic(fmt.Sprintf("recorded_at %s is in the future", at)))
	}
	return flags
}
