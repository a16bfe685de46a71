// Package value holds the tagged value model shared by the SQL template
// engine and the database execution layer. A Value is a tree (scalars,
// lists, string-keyed maps) built from Go data with ToValue, and a Param
// is the scalar subset of Value that can be bound positionally to a query.
package value

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindFloat64
	KindString
	KindBytes
	KindDate
	KindTime
	KindDateTime
	KindDateTimeUTC
	KindDecimal
	KindList
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt16:
		return "int16"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindUint8:
		return "uint8"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindDateTime:
		return "datetime"
	case KindDateTimeUTC:
		return "datetime-utc"
	case KindDecimal:
		return "decimal"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Value is an immutable tagged union. The zero Value is Null.
type Value struct {
	kind Kind

	b    bool
	i    int64
	f    float64
	s    string
	by   []byte
	t    time.Time
	d    decimal.Decimal
	list []Value
	m    map[string]Value
}

func Null() Value                     { return Value{kind: KindNull} }
func Bool(b bool) Value               { return Value{kind: KindBool, b: b} }
func Int16(i int16) Value             { return Value{kind: KindInt16, i: int64(i)} }
func Int32(i int32) Value             { return Value{kind: KindInt32, i: int64(i)} }
func Int64(i int64) Value             { return Value{kind: KindInt64, i: i} }
func Uint8(u uint8) Value             { return Value{kind: KindUint8, i: int64(u)} }
func Float64(f float64) Value         { return Value{kind: KindFloat64, f: f} }
func Str(s string) Value              { return Value{kind: KindString, s: s} }
func Bytes(b []byte) Value            { return Value{kind: KindBytes, by: b} }
func Date(t time.Time) Value          { return Value{kind: KindDate, t: t} }
func Time(t time.Time) Value          { return Value{kind: KindTime, t: t} }
func DateTime(t time.Time) Value      { return Value{kind: KindDateTime, t: t} }
func DateTimeUTC(t time.Time) Value   { return Value{kind: KindDateTimeUTC, t: t.UTC()} }
func Decimal(d decimal.Decimal) Value { return Value{kind: KindDecimal, d: d} }
func List(vs ...Value) Value          { return Value{kind: KindList, list: vs} }

func Map(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{kind: KindMap, m: m}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Truthy reports whether the value counts as true in a template test
// expression. Null, false, empty strings and empty collections are false.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindString:
		return v.s != ""
	case KindList:
		return len(v.list) > 0
	case KindMap:
		return len(v.m) > 0
	}
	return true
}

// Get looks up a key in a Map value. The second result is false when the
// value is not a map or the key is absent.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	sub, ok := v.m[key]
	return sub, ok
}

// Index returns the i'th element of a List value.
func (v Value) Index(i int) Value {
	if v.kind != KindList || i < 0 || i >= len(v.list) {
		return Null()
	}
	return v.list[i]
}

// Len returns the element count for List and Map values, zero otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.m)
	}
	return 0
}

// Elems returns the elements of a List value. For a Map it returns the
// values in unspecified order, which is what collection iteration over a
// map means.
func (v Value) Elems() []Value {
	switch v.kind {
	case KindList:
		return v.list
	case KindMap:
		out := make([]Value, 0, len(v.m))
		for _, e := range v.m {
			out = append(out, e)
		}
		return out
	}
	return nil
}

// Interface returns the native payload: nil, bool, int64, float64, string,
// []byte, time.Time, decimal.Decimal, []Value or map[string]Value.
func (v Value) Interface() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt16, KindInt32, KindInt64, KindUint8:
		return v.i
	case KindFloat64:
		return v.f
	case KindString:
		return v.s
	case KindBytes:
		return v.by
	case KindDate, KindTime, KindDateTime, KindDateTimeUTC:
		return v.t
	case KindDecimal:
		return v.d
	case KindList:
		return v.list
	case KindMap:
		return v.m
	}
	return nil
}

// String renders a debug representation. It is not the SQL literal form.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%v", v.b)
	case KindInt16, KindInt32, KindInt64, KindUint8:
		return fmt.Sprintf("%d", v.i)
	case KindFloat64:
		return fmt.Sprintf("%v", v.f)
	case KindString:
		return v.s
	case KindBytes:
		return fmt.Sprintf("%d bytes", len(v.by))
	case KindDate:
		return v.t.Format("2006-01-02")
	case KindTime:
		return v.t.Format("15:04:05.999999999")
	case KindDateTime:
		return v.t.Format("2006-01-02 15:04:05.999999999")
	case KindDateTimeUTC:
		return v.t.Format(time.RFC3339Nano)
	case KindDecimal:
		return v.d.String()
	case KindList:
		return fmt.Sprintf("list(%d)", len(v.list))
	case KindMap:
		return fmt.Sprintf("map(%d)", len(v.m))
	}
	return "invalid"
}

// Equal reports deep equality. It makes Value friendly to go-cmp.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindInt16, KindInt32, KindInt64, KindUint8:
		return v.i == o.i
	case KindFloat64:
		return v.f == o.f
	case KindString:
		return v.s == o.s
	case KindBytes:
		return string(v.by) == string(o.by)
	case KindDate, KindTime, KindDateTime, KindDateTimeUTC:
		return v.t.Equal(o.t)
	case KindDecimal:
		return v.d.Equal(o.d)
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, e := range v.m {
			oe, ok := o.m[k]
			if !ok || !e.Equal(oe) {
				return false
			}
		}
		return true
	}
	return false
}

// Param is the scalar subset of Value, bound positionally to a query.
type Param struct {
	v Value
}

// Param converts a scalar Value into a bindable parameter. List and Map
// values cannot be bound directly; the template layer expands collections
// into one placeholder per element before binding.
func (v Value) Param() (Param, error) {
	switch v.kind {
	case KindList, KindMap:
		return Param{}, fmt.Errorf("%s value cannot be bound as a single parameter", v.kind)
	}
	return Param{v: v}, nil
}

func (p Param) Kind() Kind         { return p.v.kind }
func (p Param) Value() Value       { return p.v }
func (p Param) Interface() any     { return p.v.Interface() }
func (p Param) String() string     { return p.v.String() }
func (p Param) Equal(o Param) bool { return p.v.Equal(o.v) }
