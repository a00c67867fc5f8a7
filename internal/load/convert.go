package load

// convert.go maps canonical quality.FieldValue values onto pgtype values.
// Only accepted, standardized records reach this point, so a typed field
// is either parsed or absent; anything else is NULL.

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/emankhadim/healthcare-etl-pipeline/internal/quality"
)

func toPgText(v quality.FieldValue) pgtype.Text {
	if v.IsEmpty() {
		return pgtype.Text{}
	}
	return pgtype.Text{String: v.String(), Valid: true}
}

func toPgDate(v quality.FieldValue) pgtype.Date {
	if v.Kind() != quality.ValueDate {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: v.Time(), Valid: true}
}

func toPgTimestamptz(v quality.FieldValue) pgtype.Timestamptz {
	if v.Kind() != quality.ValueTime && v.Kind() != quality.ValueDate {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: v.Time(), Valid: true}
}

func toPgFloat8(v quality.FieldValue) pgtype.Float8 {
	if v.Kind() != quality.ValueNumber {
		return pgtype.Float8{}
	}
	return pgtype.Float8{Float64: v.Number(), Valid: true}
}

func toPgBool(v quality.FieldValue) pgtype.Bool {
	if v.Kind() != quality.ValueBool {
		return pgtype.Bool{}
	}
	return pgtype.Bool{Bool: v.Bool(), Valid: true}
}
