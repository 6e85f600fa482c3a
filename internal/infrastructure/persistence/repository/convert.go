package repository

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Money is stored as TEXT so no precision is lost in SQLite's REAL type
func parseDecimal(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
