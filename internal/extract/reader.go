// Package extract parses raw source files into in-memory quality.Record
// collections: patients from plain CSV, encounters from a messy CSV with
// repeated headers and semicolon-packed cells, diagnoses from namespaced
// XML. Extraction does no validation beyond file shape; every cell value
// goes in raw and the quality engine decides its fate.
package extract

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WrapReader materializes the source, drops a UTF-8 byte order mark
// (Windows exports routinely carry one) and replaces invalid UTF-8
// sequences with the replacement character, so one mangled export does not
// poison encoding/csv or encoding/xml.
func WrapReader(r io.Reader) (io.Reader, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	return bytes.NewReader(sanitizeUTF8(data)), nil
}

func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}
	var buf bytes.Buffer
	buf.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.Write(data[:size])
			data = data[size:]
		}
	}
	return buf.Bytes()
}

// CleanCell strips the usual CSV artifacts from a cell value: surrounding
// whitespace, Excel formula prefixes and stray quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`) {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}
	return strings.Trim(s, `"'`)
}

// headerIndex maps lower-cased column names to their position in the row.
type headerIndex map[string]int

func makeHeaderIndex(header []string) headerIndex {
	idx := make(headerIndex, len(header))
	for i, h := range header {
		idx[strings.ToLower(CleanCell(h))] = i
	}
	return idx
}

// cell returns the cleaned value of a named column, or "" when the row is
// short or the column absent.
func cell(row []string, idx headerIndex, name string) string {
	pos, ok := idx[name]
	if !ok || pos >= len(row) {
		return ""
	}
	return CleanCell(row[pos])
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
