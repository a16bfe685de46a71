package db

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"
)

func TestClassifyType(t *testing.T) {
	tests := []struct {
		name string
		want typeClass
	}{
		{name: "INT8", want: classInt},
		{name: "bigint", want: classInt},
		{name: "TINYINT(1)", want: classInt},
		{name: "VARCHAR(255)", want: classText},
		{name: "text", want: classText},
		{name: "NAME", want: classText},
		{name: "FLOAT8", want: classFloat},
		{name: "DOUBLE PRECISION", want: classFloat},
		{name: "BOOLEAN", want: classBool},
		{name: "JSONB", want: classJSON},
		{name: "TIMESTAMPTZ", want: classTemporal},
		{name: "DATETIME", want: classTemporal},
		{name: "DECIMAL(10,2)", want: classDecimal},
		{name: "NUMERIC", want: classDecimal},
		{name: "BLOB", want: classBlob},
		{name: "GEOMETRY", want: classUnknown},
		{name: "", want: classUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Check(t, cmp.Equal(classifyType(tt.name), tt.want))
		})
	}
}

func testReader(vals ...any) *RowReader {
	names := make([]string, len(vals))
	for i := range names {
		names[i] = "c"
	}
	return &RowReader{names: names, vals: vals}
}

func TestRowReader_Coercions(t *testing.T) {
	t.Run("bool", func(t *testing.T) {
		r := testReader(true, int64(1), int64(0), "true", []byte("0"), 1.5)
		for i, want := range []bool{true, true, false, true, false} {
			got, err := r.Bool(i)
			assert.NilError(t, err)
			assert.Check(t, cmp.Equal(got, want), "column %d", i)
		}
		_, err := r.Bool(5)
		assert.Check(t, cmp.ErrorContains(err, "not bool"))
	})

	t.Run("int64", func(t *testing.T) {
		r := testReader(int64(42), "43", []byte("44"), float64(45), true)
		for i, want := range []int64{42, 43, 44, 45} {
			got, err := r.Int64(i)
			assert.NilError(t, err)
			assert.Check(t, cmp.Equal(got, want), "column %d", i)
		}
		_, err := r.Int64(4)
		assert.Check(t, cmp.ErrorContains(err, "not int64"))
	})

	t.Run("float64", func(t *testing.T) {
		r := testReader(1.5, int64(2), "2.5", []byte("3.5"))
		for i, want := range []float64{1.5, 2, 2.5, 3.5} {
			got, err := r.Float64(i)
			assert.NilError(t, err)
			assert.Check(t, cmp.Equal(got, want), "column %d", i)
		}
	})

	t.Run("string", func(t *testing.T) {
		r := testReader("x", []byte("y"), int64(42), 1.5, true)
		for i, want := range []string{"x", "y", "42", "1.5", "true"} {
			got, err := r.String(i)
			assert.NilError(t, err)
			assert.Check(t, cmp.Equal(got, want), "column %d", i)
		}
	})

	t.Run("json", func(t *testing.T) {
		r := testReader(`{"a":1}`, []byte(`[1,2]`), "not json", int64(1))

		got, err := r.JSON(0)
		assert.NilError(t, err)
		assert.Check(t, cmp.DeepEqual(got, map[string]any{"a": float64(1)}))

		got, err = r.JSON(1)
		assert.NilError(t, err)
		assert.Check(t, cmp.DeepEqual(got, []any{float64(1), float64(2)}))

		_, err = r.JSON(2)
		assert.Check(t, err != nil)
		_, err = r.JSON(3)
		assert.Check(t, cmp.ErrorContains(err, "not json"))
	})

	t.Run("null", func(t *testing.T) {
		r := testReader(nil, "set")
		assert.Check(t, r.IsNull(0))
		assert.Check(t, !r.IsNull(1))
	})
}

func TestFormatTime(t *testing.T) {
	naive := time.Date(2026, 8, 25, 10, 30, 5, 0, time.UTC)
	assert.Check(t, cmp.Equal(formatTime(naive), "2026-08-25 10:30:05"))

	fractional := naive.Add(123 * time.Millisecond)
	assert.Check(t, cmp.Equal(formatTime(fractional), "2026-08-25 10:30:05.123"))

	zoned := time.Date(2026, 8, 25, 10, 30, 5, 0, time.FixedZone("CET", 3600))
	assert.Check(t, cmp.Equal(formatTime(zoned), "2026-08-25T10:30:05+01:00"))
}

type record struct {
	ID    int64           `db:"id"`
	Name  string          `db:"name"`
	Done  bool            `db:"done"`
	When  time.Time       `db:"when"`
	Price decimal.Decimal `db:"price"`
	Meta  map[string]any  `db:"meta"`
	Note  *string         `db:"note"`
	Cache string          `db:"-"`
}

func recordRow() map[string]any {
	return map[string]any{
		"id":    int64(7),
		"name":  "seven",
		"done":  int64(1),
		"when":  "2026-08-25 10:30:00",
		"price": "99.95",
		"meta":  map[string]any{"k": "v"},
		"note":  nil,
	}
}

func TestDecodeRow(t *testing.T) {
	t.Run("full row", func(t *testing.T) {
		got, err := decodeRow[record](recordRow())
		assert.NilError(t, err)

		assert.Check(t, cmp.Equal(got.ID, int64(7)))
		assert.Check(t, cmp.Equal(got.Name, "seven"))
		assert.Check(t, got.Done)
		assert.Check(t, got.When.Equal(time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)), "when: %s", got.When)
		assert.Check(t, got.Price.Equal(decimal.RequireFromString("99.95")), "price: %s", got.Price)
		assert.Check(t, cmp.DeepEqual(got.Meta, map[string]any{"k": "v"}))
		assert.Check(t, cmp.Nil(got.Note))
		assert.Check(t, cmp.Equal(got.Cache, ""))
	})

	t.Run("temporal forms", func(t *testing.T) {
		for _, s := range []string{
			"2026-08-25T10:30:00Z",
			"2026-08-25T10:30:00.25+00:00",
			"2026-08-25 10:30:00.25",
			"2026-08-25",
		} {
			m := recordRow()
			m["when"] = s
			got, err := decodeRow[record](m)
			assert.NilError(t, err, "form %q", s)
			assert.Check(t, !got.When.IsZero(), "form %q", s)
		}
	})

	t.Run("null leaves the zero value", func(t *testing.T) {
		m := recordRow()
		m["name"] = nil
		m["meta"] = nil
		got, err := decodeRow[record](m)
		assert.NilError(t, err)
		assert.Check(t, cmp.Equal(got.Name, ""))
		assert.Check(t, cmp.Nil(got.Meta))
	})

	t.Run("missing column is an error", func(t *testing.T) {
		m := recordRow()
		delete(m, "name")
		_, err := decodeRow[record](m)
		desErr := &DeserializationError{}
		assert.Assert(t, errors.As(err, &desErr), "got: %v", err)
		assert.Check(t, cmp.ErrorContains(err, "no column for field name"))
	})

	t.Run("extra columns are ignored", func(t *testing.T) {
		m := recordRow()
		m["surplus"] = int64(1)
		_, err := decodeRow[record](m)
		assert.NilError(t, err)
	})

	t.Run("impossible coercion is an error", func(t *testing.T) {
		m := recordRow()
		m["id"] = "not a number"
		_, err := decodeRow[record](m)
		desErr := &DeserializationError{}
		assert.Assert(t, errors.As(err, &desErr), "got: %v", err)
	})

	t.Run("json text decodes into maps", func(t *testing.T) {
		m := recordRow()
		m["meta"] = `{"nested":{"deep":true}}`
		got, err := decodeRow[record](m)
		assert.NilError(t, err)
		assert.Check(t, cmp.DeepEqual(got.Meta, map[string]any{"nested": map[string]any{"deep": true}}))
	})

	t.Run("text unmarshaler targets decode from text", func(t *testing.T) {
		type keyed struct {
			ID uuid.UUID `db:"id"`
		}
		id := uuid.MustParse("49d42f42-221f-42fc-8f56-f17ac0af6204")
		got, err := decodeRow[keyed](map[string]any{"id": id.String()})
		assert.NilError(t, err)
		assert.Check(t, cmp.Equal(got.ID, id))
	})
}
