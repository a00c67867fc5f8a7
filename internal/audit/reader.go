package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/emankhadim/healthcare-etl-pipeline/internal/quality"
)

// ReadOutcomes loads the persisted outcomes for one entity type. A missing
// log file is an empty run, not an error. Lines that fail to decode are
// counted and skipped; a partially written trailing line must not take the
// dashboard down.
func ReadOutcomes(dir string, entity quality.EntityType) ([]quality.Outcome, error) {
	f, err := os.Open(OutcomePath(dir, entity))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open outcome log: %w", err)
	}
	defer f.Close()

	var out []quality.Outcome
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		var o quality.Outcome
		if err := json.Unmarshal(sc.Bytes(), &o); err != nil {
			continue
		}
		out = append(out, o)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan outcome log: %w", err)
	}
	return out, nil
}

// Summarize folds persisted outcomes into per-entity counters, the same
// shape Logger tracks live. Used by the dashboard when reading a finished
// run's files.
func Summarize(dir string) ([]EntitySummary, error) {
	var out []EntitySummary
	for _, entity := range []quality.EntityType{quality.EntityPatient, quality.EntityEncounter, quality.EntityDiagnosis} {
		outcomes, err := ReadOutcomes(dir, entity)
		if err != nil {
			return nil, err
		}
		if outcomes == nil {
			continue
		}
		s := EntitySummary{Entity: entity, ByFlag: make(map[quality.FlagCode]int)}
		for _, o := range outcomes {
			s.Total++
			if o.Accepted() {
				s.Accepted++
			} else {
				s.Rejected++
			}
			for _, fl := range o.Flags {
				s.ByFlag[fl.Code]++
			}
		}
		out = append(out, s)
	}
	return out, nil
}
