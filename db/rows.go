package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Temporal values are stringified before decoding so that every engine
// presents the same wire form. Values carrying a real zone keep it via
// RFC3339, naive values use the plain datetime form.
const (
	naiveDateTime = "2006-01-02 15:04:05.999999999"
	naiveDate     = "2006-01-02"
)

// RowReader gives typed access to the current row of a result set. It
// scans every column into its driver-native value first, then coerces
// on demand, so one reader works across all engines.
type RowReader struct {
	names []string
	types []*sql.ColumnType
	vals  []any
	dests []any
}

func newRowReader(rows *sql.Rows) (*RowReader, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	r := &RowReader{
		names: names,
		types: types,
		vals:  make([]any, len(names)),
		dests: make([]any, len(names)),
	}
	for i := range r.vals {
		r.dests[i] = &r.vals[i]
	}
	return r, nil
}

// Scan loads the row the result set is positioned on. rows.Next must
// have returned true.
func (r *RowReader) Scan(rows *sql.Rows) error {
	return rows.Scan(r.dests...)
}

// Columns is the number of columns in the result set.
func (r *RowReader) Columns() int {
	return len(r.names)
}

// ColumnName is the name of column i as the engine reports it.
func (r *RowReader) ColumnName(i int) string {
	return r.names[i]
}

// TypeName is the engine's name for the type of column i, such as
// VARCHAR or INT8.
func (r *RowReader) TypeName(i int) string {
	return r.types[i].DatabaseTypeName()
}

// IsNull reports whether column i holds SQL NULL in the current row.
func (r *RowReader) IsNull(i int) bool {
	return r.vals[i] == nil
}

// Bool reads column i as a bool. Engines without a boolean type report
// integers, which coerce by the usual zero test.
func (r *RowReader) Bool(i int) (bool, error) {
	switch v := r.vals[i].(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case []byte:
		return strconv.ParseBool(string(v))
	case string:
		return strconv.ParseBool(v)
	}
	return false, r.badColumn(i, "bool")
}

// Int64 reads column i as an int64.
func (r *RowReader) Int64(i int) (int64, error) {
	switch v := r.vals[i].(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	case string:
		return strconv.ParseInt(v, 10, 64)
	}
	return 0, r.badColumn(i, "int64")
}

// Float64 reads column i as a float64.
func (r *RowReader) Float64(i int) (float64, error) {
	switch v := r.vals[i].(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case []byte:
		return strconv.ParseFloat(string(v), 64)
	case string:
		return strconv.ParseFloat(v, 64)
	}
	return 0, r.badColumn(i, "float64")
}

// String reads column i as a string. Temporal values are formatted,
// numeric and boolean values are printed in their canonical form.
func (r *RowReader) String(i int) (string, error) {
	switch v := r.vals[i].(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case time.Time:
		return formatTime(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	}
	return "", r.badColumn(i, "string")
}

// JSON reads column i as a JSON document decoded into maps, slices and
// scalars.
func (r *RowReader) JSON(i int) (any, error) {
	var raw []byte
	switch v := r.vals[i].(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return nil, r.badColumn(i, "json")
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("column %q: %w", r.names[i], err)
	}
	return out, nil
}

func (r *RowReader) badColumn(i int, want string) error {
	return fmt.Errorf("column %q holds %T, not %s", r.names[i], r.vals[i], want)
}

func formatTime(t time.Time) string {
	if t.Location() == time.UTC {
		return t.Format(naiveDateTime)
	}
	return t.Format(time.RFC3339)
}
