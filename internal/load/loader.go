// Package load persists accepted records into PostgreSQL. It trusts the
// quality engine's accept decision absolutely: no re-validation, only type
// coercion onto the relational schema. A run's load is one transaction —
// the snapshot either lands completely or not at all, which keeps
// reprocessing the same input idempotent.
package load

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/emankhadim/healthcare-etl-pipeline/internal/quality"
)

// DBTX is the database surface the loader needs. Satisfied by both
// *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// Loader writes accepted sets into the warehouse schema.
type Loader struct {
	pool *pgxpool.Pool
}

// New returns a loader on the given pool.
func New(pool *pgxpool.Pool) *Loader {
	return &Loader{pool: pool}
}

// Counts reports rows written per entity table.
type Counts struct {
	Patients   int64
	Encounters int64
	Diagnoses  int64
}

var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS patients (
		patient_id   text PRIMARY KEY,
		given_name   text,
		family_name  text,
		gender       text,
		dob          date,
		height_cm    double precision,
		weight_kg    double precision,
		qa_flags     text,
		source_file  text
	)`,
	`CREATE TABLE IF NOT EXISTS encounters (
		encounter_id   text PRIMARY KEY,
		patient_id     text NOT NULL REFERENCES patients(patient_id),
		admit_at       timestamptz,
		discharge_at   timestamptz,
		encounter_type text,
		status         text,
		qa_flags       text,
		source_file    text
	)`,
	`CREATE TABLE IF NOT EXISTS diagnoses (
		encounter_id text NOT NULL REFERENCES encounters(encounter_id),
		diagnosis_id text NOT NULL,
		code         text,
		code_system  text,
		is_primary   boolean,
		recorded_at  timestamptz,
		qa_flags     text,
		source_file  text,
		PRIMARY KEY (encounter_id, diagnosis_id)
	)`,
}

// EnsureSchema creates the warehouse tables when absent. No migration: an
// existing incompatible schema is the operator's problem to resolve.
func (l *Loader) EnsureSchema(ctx context.Context) error {
	for _, ddl := range schemaDDL {
		if _, err := l.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// LoadResult replaces the warehouse contents with the run's accepted sets,
// children first on delete, parents first on insert, in one transaction.
func (l *Loader) LoadResult(ctx context.Context, result *quality.Result) (Counts, error) {
	var counts Counts

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return counts, fmt.Errorf("begin load transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"diagnoses", "encounters", "patients"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return counts, fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if counts.Patients, err = copyPatients(ctx, tx, result.Patients); err != nil {
		return counts, err
	}
	if counts.Encounters, err = copyEncounters(ctx, tx, result.Encounters); err != nil {
		return counts, err
	}
	if counts.Diagnoses, err = copyDiagnoses(ctx, tx, result.Diagnoses); err != nil {
		return counts, err
	}

	if err := tx.Commit(ctx); err != nil {
		return counts, fmt.Errorf("commit load transaction: %w", err)
	}

	slog.Info("load committed",
		"patients", counts.Patients,
		"encounters", counts.Encounters,
		"diagnoses", counts.Diagnoses,
	)
	return counts, nil
}

// TableCounts returns current row counts per warehouse table.
func (l *Loader) TableCounts(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, 3)
	for _, table := range []string{"patients", "encounters", "diagnoses"} {
		var n int64
		if err := l.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		out[table] = n
	}
	return out, nil
}

func copyPatients(ctx context.Context, db DBTX, er *quality.EntityResult) (int64, error) {
	flags := infoFlags(er)
	rows := make([][]any, 0, er.Accepted.Len())
	for _, rec := range er.Accepted.Records() {
		rows = append(rows, []any{
			rec.Key,
			toPgText(rec.Field("given_name")),
			toPgText(rec.Field("family_name")),
			toPgText(rec.Field("gender")),
			toPgDate(rec.Field("dob")),
			toPgFloat8(rec.Field("height")),
			toPgFloat8(rec.Field("weight")),
			qaFlags(flags, rec.Key),
			rec.Source.File,
		})
	}

	n, err := db.CopyFrom(ctx, pgx.Identifier{"patients"},
		[]string{"patient_id", "given_name", "family_name", "gender", "dob", "height_cm", "weight_kg", "qa_flags", "source_file"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy patients: %w", err)
	}
	return n, nil
}

func copyEncounters(ctx context.Context, db DBTX, er *quality.EntityResult) (int64, error) {
	flags := infoFlags(er)
	rows := make([][]any, 0, er.Accepted.Len())
	for _, rec := range er.Accepted.Records() {
		rows = append(rows, []any{
			rec.Key,
			rec.Field("patient_id").String(),
			toPgTimestamptz(rec.Field("admit_date")),
			toPgTimestamptz(rec.Field("discharge_date")),
			toPgText(rec.Field("encounter_type")),
			toPgText(rec.Field("status")),
			qaFlags(flags, rec.Key),
			rec.Source.File,
		})
	}

	n, err := db.CopyFrom(ctx, pgx.Identifier{"encounters"},
		[]string{"encounter_id", "patient_id", "admit_at", "discharge_at", "encounter_type", "status", "qa_flags", "source_file"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy encounters: %w", err)
	}
	return n, nil
}

func copyDiagnoses(ctx context.Context, db DBTX, er *quality.EntityResult) (int64, error) {
	flags := infoFlags(er)
	rows := make([][]any, 0, er.Accepted.Len())
	for _, rec := range er.Accepted.Records() {
		rows = append(rows, []any{
			rec.Field("encounter_id").String(),
			rec.Field("diagnosis_id").String(),
			toPgText(rec.Field("code")),
			toPgText(rec.Field("code_system")),
			toPgBool(rec.Field("is_primary")),
			toPgTimestamptz(rec.Field("recorded_at")),
			qaFlags(flags, rec.Key),
			rec.Source.File,
		})
	}

	n, err := db.CopyFrom(ctx, pgx.Identifier{"diagnoses"},
		[]string{"encounter_id", "diagnosis_id", "code", "code_system", "is_primary", "recorded_at", "qa_flags", "source_file"},
		pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy diagnoses: %w", err)
	}
	return n, nil
}

// qaFlags renders the qa_flags column value, "OK" when a record carries
// no flags at all.
func qaFlags(m map[string]string, key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return "OK"
}

// infoFlags collects the informational flags accepted records carry (e.g.
// STANDARDIZED), rendered pipe-joined per natural key for the qa_flags
// column. Accepted records have no blocking flags by definition.
func infoFlags(er *quality.EntityResult) map[string]string {
	out := make(map[string]string, er.Accepted.Len())
	for _, o := range er.Outcomes {
		if !o.Accepted() || len(o.Flags) == 0 {
			continue
		}
		codes := make([]string, 0, len(o.Flags))
		for _, f := range o.Flags {
			codes = append(codes, string(f.Code))
		}
		out[o.Key] = strings.Join(codes, "|")
	}
	return out
}
