package database

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

/* ----------------------------------------
	Pgx Helpers
---------------------------------------- */

const isoDate = "2006-01-02"

func toPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func fromPgText(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return t.String
}

func toPgInt4(n *int) (pgtype.Int4, error) {
	if n == nil {
		return pgtype.Int4{Valid: false}, nil
	}
	if *n > math.MaxInt32 || *n < math.MinInt32 {
		return pgtype.Int4{}, fmt.Errorf("value %d out of int4 range", *n)
	}
	return pgtype.Int4{Int32: int32(*n), Valid: true}, nil
}

func fromPgInt4(v pgtype.Int4) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int32)
	return &n
}

// toPgDate accepts only the ISO form; callers normalize dates before they
// reach storage.
func toPgDate(s string) (pgtype.Date, error) {
	t, err := time.Parse(isoDate, strings.TrimSpace(s))
	if err != nil {
		return pgtype.Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return pgtype.Date{Time: t, Valid: true}, nil
}

func fromPgDate(d pgtype.Date) string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format(isoDate)
}

// toPgUUID parses id, generating a fresh one when id is empty.
func toPgUUID(id string) (pgtype.UUID, error) {
	if strings.TrimSpace(id) == "" {
		return pgtype.UUID{Bytes: uuid.New(), Valid: true}, nil
	}
	u, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("invalid id %q: %w", id, err)
	}
	return pgtype.UUID{Bytes: u, Valid: true}, nil
}

func pgUUIDToString(u pgtype.UUID) string {
	if !u.Valid {
		return ""
	}
	return uuid.UUID(u.Bytes).String()
}

func fromPgTimestamptz(t pgtype.Timestamptz) time.Time {
	if !t.Valid {
		return time.Time{}
	}
	return t.Time
}

// likeEscaper escapes LIKE metacharacters so search terms match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
