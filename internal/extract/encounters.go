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

// encounterColumns are the expected columns of the encounters extract.
var encounterColumns = []string{
	"encounter_id", "patient_id", "admit_date", "discharge_date", "encounter_type",
}

// Older encounter exports name the date columns admit_dt/discharge_dt.
var encounterAliases = map[string]string{
	"admit_date":     "admit_dt",
	"discharge_date": "discharge_dt",
}

// maxHeaderScan bounds how many leading rows are scanned for the header.
var maxHeaderScan = 20

// ReadEncounters parses the encounters CSV. The source is known to be
// messy: cells packed with semicolons that hide extra columns, repeated
// header rows from concatenated exports, and arbitrary junk above the real
// header. All of that is shape handling; value quality stays with the
// engine.
func ReadEncounters(path string) ([]quality.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open encounters file: %w", err)
	}
	defer f.Close()
	recs, err := ParseEncounters(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("parse encounters file %s: %w", path, err)
	}
	return recs, nil
}

// ParseEncounters parses encounters CSV content from a reader.
func ParseEncounters(r io.Reader, sourceName string) ([]quality.Record, error) {
	clean, err := WrapReader(r)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(clean)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	lines := make([]int, 0, 64) // original 1-based line per kept row
	line := 0
	for {
		row, err := cr.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if isEmptyRow(row) {
			continue
		}
		rows = append(rows, expandSemicolons(row))
		lines = append(lines, line)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty encounters file")
	}

	headerAt := -1
	for i := 0; i < len(rows) && i < maxHeaderScan; i++ {
		if looksLikeHeader(rows[i]) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return nil, fmt.Errorf("header row not found (expected columns %v)", encounterColumns)
	}

	idx := makeHeaderIndex(rows[headerAt])
	var out []quality.Record
	for i := headerAt + 1; i < len(rows); i++ {
		if looksLikeHeader(rows[i]) {
			continue // repeated header from a concatenated export
		}
		out = append(out, encounterRecord(rows[i], idx, quality.SourceRef{File: sourceName, Line: lines[i]}))
	}
	return out, nil
}

// expandSemicolons splits cells that pack several values behind
// semicolons, restoring the intended column count.
func expandSemicolons(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		c = strings.TrimSpace(c)
		if strings.Contains(c, ";") {
			for _, part := range strings.Split(c, ";") {
				out = append(out, strings.TrimSpace(part))
			}
		} else {
			out = append(out, c)
		}
	}
	return out
}

// looksLikeHeader reports whether at least three cells match known column
// names, tolerating stray leading commas.
func looksLikeHeader(row []string) bool {
	known := make(map[string]bool, 2*len(encounterColumns))
	for _, c := range encounterColumns {
		known[c] = true
		if alias, ok := encounterAliases[c]; ok {
			known[alias] = true
		}
	}

	n := 0
	for _, c := range row {
		if known[strings.TrimLeft(strings.ToLower(CleanCell(c)), ",")] {
			n++
		}
	}
	return n >= 3
}

func encounterRecord(row []string, idx headerIndex, src quality.SourceRef) quality.Record {
	fields := make(map[string]quality.FieldValue, len(encounterColumns))
	for _, col := range encounterColumns {
		name := col
		if _, ok := idx[name]; !ok {
			if alias, aliased := encounterAliases[col]; aliased {
				name = alias
			}
		}
		if _, ok := idx[name]; !ok {
			continue
		}
		fields[col] = rawField(cell(row, idx, name))
	}

	return quality.Record{
		Entity: quality.EntityEncounter,
		Key:    fields["encounter_id"].Raw(),
		Fields: fields,
		Source: src,
	}
}
