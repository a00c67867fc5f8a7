package extract

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/emankhadim/healthcare-etl-pipeline/internal/quality"
)

// patientColumns are the expected columns of the patients extract.
var patientColumns = []string{
	"patient_id", "given_name", "family_name", "gender", "dob", "height", "weight",
}

// gender historically arrived under a "sex" header; accept both.
var patientAliases = map[string]string{"gender": "sex"}

// ReadPatients parses the patients CSV into raw records. The header must
// be the first non-empty row; rows are never dropped here, only blank ones
// skipped.
func ReadPatients(path string) ([]quality.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open patients file: %w", err)
	}
	defer f.Close()
	recs, err := ParsePatients(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("parse patients file %s: %w", path, err)
	}
	return recs, nil
}

// ParsePatients parses patients CSV content from a reader; sourceName goes
// into each record's SourceRef.
func ParsePatients(r io.Reader, sourceName string) ([]quality.Record, error) {
	clean, err := WrapReader(r)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(clean)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty patients file")
	}

	idx := makeHeaderIndex(rows[0])
	var out []quality.Record
	for i, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		out = append(out, patientRecord(row, idx, quality.SourceRef{File: sourceName, Line: i + 2}))
	}
	return out, nil
}

func patientRecord(row []string, idx headerIndex, src quality.SourceRef) quality.Record {
	// Only columns present in the file shape become record fields; the
	// engine's precondition check relies on absent columns staying absent.
	fields := make(map[string]quality.FieldValue, len(patientColumns))
	for _, col := range patientColumns {
		name := col
		if _, ok := idx[name]; !ok {
			if alias, aliased := patientAliases[col]; aliased {
				name = alias
			}
		}
		if _, ok := idx[name]; !ok {
			continue
		}
		fields[col] = rawField(cell(row, idx, name))
	}

	return quality.Record{
		Entity: quality.EntityPatient,
		Key:    fields["patient_id"].Raw(),
		Fields: fields,
		Source: src,
	}
}

// missingTokens are the spellings sources use for "no value".
var missingTokens = map[string]bool{
	"": true, "na": true, "n/a": true, "null": true, "none": true, "nan": true,
}

// rawField wraps a cell as a raw value, collapsing missing-value tokens to
// the empty value so the validator sees absence, not a literal "N/A".
func rawField(s string) quality.FieldValue {
	if missingTokens[strings.ToLower(strings.TrimSpace(s))] {
		return quality.EmptyValue()
	}
	return quality.RawValue(s)
}
