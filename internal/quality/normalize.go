package quality

// normalize.go holds the string-level normalizers the standardizer applies
// before type parsing: coded enumerations mapped to their canonical form,
// identifiers reformatted, and clinical units converted. A normalizer that
// does not recognize its input returns it unchanged; rejection is the
// validator's call, never the standardizer's.

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// genderCodes maps the gender spellings seen in source extracts to the
// canonical enumeration {MALE, FEMALE, OTHER, UNKNOWN}.
var genderCodes = map[string]string{
	"m":       "MALE",
	"male":    "MALE",
	"f":       "FEMALE",
	"female":  "FEMALE",
	"o":       "OTHER",
	"other":   "OTHER",
	"u":       "UNKNOWN",
	"unknown": "UNKNOWN",
	"unk":     "UNKNOWN",
}

// encounterTypes maps source encounter type codes to the recognized set.
var encounterTypes = map[string]string{
	"ip":         "INPATIENT",
	"inpatient":  "INPATIENT",
	"op":         "OUTPATIENT",
	"outpatient": "OUTPATIENT",
	"ed":         "ED",
	"er":         "ED",
	"emergency":  "ED",
}

var (
	patientIDPattern   = regexp.MustCompile(`^P[\s\-_]*([0-9]+)$`)
	encounterIDPattern = regexp.MustCompile(`^ENC[\s\-_]*([0-9]+)$`)
	numberRuns         = regexp.MustCompile(`\d+\.?\d*`)
)

// NormalizeGender maps gender spellings to the canonical enumeration.
// Unrecognized input passes through for the validator to flag.
func NormalizeGender(s string) string {
	if mapped, ok := genderCodes[strings.ToLower(strings.TrimSpace(s))]; ok {
		return mapped
	}
	return s
}

// NormalizeEncounterType maps encounter type codes to the recognized set.
func NormalizeEncounterType(s string) string {
	key := strings.ToLower(strings.TrimSpace(s))
	if mapped, ok := encounterTypes[key]; ok {
		return mapped
	}
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizePatientID reformats patient identifiers to P-XXXX with a
// zero-padded 4-digit sequence, tolerating spaces, dashes and underscores.
func NormalizePatientID(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if m := patientIDPattern.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return fmt.Sprintf("P-%04d", n)
		}
	}
	return s
}

// NormalizeEncounterID reformats encounter identifiers to ENC-XXXXXX with a
// zero-padded 6-digit sequence.
func NormalizeEncounterID(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if m := encounterIDPattern.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return fmt.Sprintf("ENC-%06d", n)
		}
	}
	return s
}

// NormalizeName title-cases a person name.
func NormalizeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// NormalizeCode upper-cases a clinical code (ICD-10 codes are meant to be
// upper case; case alone never invalidates one).
func NormalizeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeHeightCm converts a height expressed in feet/inches ("5ft 8in")
// or inches ("68 in") to centimeters, rounded to one decimal. Plain numbers
// are taken as centimeters already.
func NormalizeHeightCm(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	nums := numberRuns.FindAllString(lower, -1)
	if len(nums) == 0 {
		return s
	}
	v, err := strconv.ParseFloat(nums[0], 64)
	if err != nil {
		return s
	}

	switch {
	case strings.Contains(lower, "ft") || strings.Contains(lower, "feet"):
		inches := 0.0
		if len(nums) > 1 {
			inches, _ = strconv.ParseFloat(nums[1], 64)
		}
		return formatRounded((v*12+inches)*2.54, 1)
	case strings.Contains(lower, "in"):
		return formatRounded(v*2.54, 1)
	case strings.Contains(lower, "cm"):
		return formatRounded(v, 1)
	default:
		return s
	}
}

// NormalizeWeightKg converts a weight in pounds to kilograms, rounded to
// one decimal. Plain numbers are taken as kilograms already.
func NormalizeWeightKg(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	nums := numberRuns.FindAllString(lower, -1)
	if len(nums) == 0 {
		return s
	}
	v, err := strconv.ParseFloat(nums[0], 64)
	if err != nil {
		return s
	}

	switch {
	case strings.Contains(lower, "lb") || strings.Contains(lower, "pound"):
		return formatRounded(v*0.453592, 1)
	case strings.Contains(lower, "kg"):
		return formatRounded(v, 1)
	default:
		return s
	}
}

func formatRounded(f float64, decimals int) string {
	return trimZeros(strconv.FormatFloat(f, 'f', decimals, 64))
}

// trimZeros drops a trailing ".0" so "172.0" renders as "172".
func trimZeros(s string) string {
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}
