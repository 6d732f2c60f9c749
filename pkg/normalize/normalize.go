// Package normalize coerces raw CSV rows into typed flow records.
package normalize

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pario-ai/flowstat/pkg/ingest"
	"github.com/pario-ai/flowstat/pkg/models"
)

// ErrMissingColumn is wrapped by ParseError when the header lacks a column.
var ErrMissingColumn = errors.New("missing column")

// ParseError reports a value that could not be coerced to its column type.
type ParseError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("parse %s: %v", e.Column, e.Err)
	}
	return fmt.Sprintf("parse line %d column %s value %q: %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var categorical = []string{"flow_id", "status", "type", "region", "user_id", "org_id"}

var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z0700",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999 MST",
	"2006-01-02T15:04:05.999999999 MST",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// CheckHeader returns a ParseError naming the first expected column missing
// from header.
func CheckHeader(header []string) error {
	missing := ingest.MissingColumns(header)
	switch len(missing) {
	case 0:
		return nil
	case 1:
		return &ParseError{Column: missing[0], Err: ErrMissingColumn}
	default:
		return &ParseError{Column: missing[0], Err: fmt.Errorf("%w (also missing: %s)", ErrMissingColumn, strings.Join(missing[1:], ", "))}
	}
}

// Normalize converts raw rows into typed records. An unparseable created_at
// becomes null; an unparseable finished_at or token count aborts with a
// *ParseError.
func Normalize(rows []ingest.Row) ([]models.FlowRecord, error) {
	records := make([]models.FlowRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := Record(row)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Record converts a single row.
func Record(row ingest.Row) (models.FlowRecord, error) {
	var rec models.FlowRecord

	for _, col := range categorical {
		if _, ok := row.Get(col); !ok {
			rec.Missing = append(rec.Missing, col)
		}
	}
	rec.FlowID = row.Fields["flow_id"]
	rec.Status = row.Fields["status"]
	rec.Type = row.Fields["type"]
	rec.Region = row.Fields["region"]
	rec.UserID = row.Fields["user_id"]
	rec.OrgID = row.Fields["org_id"]

	// created_at is coerced: anything unparseable becomes null.
	if v, ok := row.Get("created_at"); ok {
		if t, err := ParseTime(v); err == nil {
			rec.CreatedAt = sql.NullTime{Time: t, Valid: true}
		}
	}

	// finished_at is strict: only an absent cell may be null.
	if v, ok := row.Get("finished_at"); ok {
		t, err := ParseTime(v)
		if err != nil {
			return models.FlowRecord{}, &ParseError{Line: row.Line, Column: "finished_at", Value: v, Err: err}
		}
		rec.FinishedAt = sql.NullTime{Time: t, Valid: true}
	}

	var err error
	if rec.TokensIn, err = intField(row, "tokens_in"); err != nil {
		return models.FlowRecord{}, err
	}
	if rec.TokensOut, err = intField(row, "tokens_out"); err != nil {
		return models.FlowRecord{}, err
	}
	if rec.LLMCalls, err = intField(row, "llm_calls"); err != nil {
		return models.FlowRecord{}, err
	}
	return rec, nil
}

// ParseTime parses s in any supported layout and returns it in UTC. Values
// without a zone are taken as UTC. A zone abbreviation unknown to the local
// time zone parses with a zero offset, as time.Parse does.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ParseInt parses an integer cell. Decimal values are truncated toward zero.
func ParseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value")
	}
	f = math.Trunc(f)
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("value out of int64 range")
	}
	return int64(f), nil
}

func intField(row ingest.Row, column string) (int64, error) {
	v, ok := row.Get(column)
	if !ok {
		return 0, nil
	}
	n, err := ParseInt(v)
	if err != nil {
		return 0, &ParseError{Line: row.Line, Column: column, Value: v, Err: err}
	}
	return n, nil
}
