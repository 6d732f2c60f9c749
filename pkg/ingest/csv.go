// Package ingest loads raw flow rows from delimited text.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Columns is the expected header of a flow export.
var Columns = []string{
	"flow_id", "created_at", "finished_at", "status", "type",
	"region", "user_id", "org_id", "tokens_in", "tokens_out", "llm_calls",
}

// InputError reports an input file that could not be opened or read.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// naValues are cell values read as missing, mirroring common dataframe
// exports.
var naValues = map[string]bool{
	"": true, "#N/A": true, "#N/A N/A": true, "#NA": true, "-NaN": true,
	"-nan": true, "<NA>": true, "N/A": true, "NA": true, "NULL": true,
	"NaN": true, "None": true, "n/a": true, "nan": true, "null": true,
}

// IsNA reports whether v is read as a missing cell.
func IsNA(v string) bool {
	return naValues[v]
}

// Row is one raw CSV record keyed by column name. Missing cells are not
// present in the map.
type Row struct {
	Line   int
	Fields map[string]string
}

// Get returns the raw value of a column and whether it was present.
func (r Row) Get(column string) (string, bool) {
	v, ok := r.Fields[column]
	return v, ok
}

// ReadFile reads every row of the CSV file at path.
func ReadFile(path string) ([]Row, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &InputError{Path: path, Err: err}
	}
	defer f.Close()

	rows, header, err := Read(f)
	if err != nil {
		var ie *InputError
		if errors.As(err, &ie) {
			ie.Path = path
			return nil, nil, ie
		}
		return nil, nil, err
	}
	return rows, header, nil
}

// Read parses CSV from r. The first record is the header. It returns the rows
// and the header as read.
func Read(r io.Reader) ([]Row, []string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil, &InputError{Err: errors.New("empty file: no header")}
	}
	if err != nil {
		return nil, nil, &InputError{Err: fmt.Errorf("read header: %w", err)}
	}
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, &InputError{Err: fmt.Errorf("read record: %w", err)}
		}
		line, _ := cr.FieldPos(0)
		fields := make(map[string]string, len(names))
		for i, v := range rec {
			if i >= len(names) || IsNA(v) {
				continue
			}
			fields[names[i]] = v
		}
		rows = append(rows, Row{Line: line, Fields: fields})
	}
	return rows, names, nil
}

// MissingColumns returns the expected columns absent from header.
func MissingColumns(header []string) []string {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	var missing []string
	for _, c := range Columns {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	return missing
}
