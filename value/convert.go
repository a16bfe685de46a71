package value

import (
	"encoding"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ToValue converts arbitrary Go data into a Value tree.
//
// Scalars map by kind (unsigned integers widen into int64), []byte becomes
// Bytes, time.Time becomes DateTimeUTC when its location is UTC and
// DateTime otherwise, and decimal.Decimal becomes Decimal. Slices and
// arrays become List. Maps with string keys and structs become Map; struct
// keys come from the field's db tag when present, otherwise the lowercased
// field name, matching how sqlx names columns. Fields tagged db:"-" and
// unexported fields are skipped, and anonymous embedded structs are
// flattened. Named types implementing encoding.TextMarshaler become their
// text form, which is how enum-like types are expected to bind.
func ToValue(in any) (Value, error) {
	switch x := in.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case Param:
		return x.v, nil
	case bool:
		return Bool(x), nil
	case int8:
		return Int16(int16(x)), nil
	case int16:
		return Int16(x), nil
	case int32:
		return Int32(x), nil
	case int:
		return Int64(int64(x)), nil
	case int64:
		return Int64(x), nil
	case uint8:
		return Uint8(x), nil
	case uint16:
		return Int32(int32(x)), nil
	case uint32:
		return Int64(int64(x)), nil
	case uint:
		return Int64(int64(x)), nil
	case uint64:
		return Int64(int64(x)), nil
	case float32:
		return Float64(float64(x)), nil
	case float64:
		return Float64(x), nil
	case string:
		return Str(x), nil
	case []byte:
		return Bytes(x), nil
	case time.Time:
		if x.Location() == time.UTC {
			return DateTimeUTC(x), nil
		}
		return DateTime(x), nil
	case decimal.Decimal:
		return Decimal(x), nil
	case decimal.NullDecimal:
		if !x.Valid {
			return Null(), nil
		}
		return Decimal(x.Decimal), nil
	}
	return fromReflect(reflect.ValueOf(in))
}

func fromReflect(rv reflect.Value) (Value, error) {
	if !rv.IsValid() {
		return Null(), nil
	}

	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return ToValue(rv.Elem().Interface())
	}

	if tm, ok := rv.Interface().(encoding.TextMarshaler); ok {
		b, err := tm.MarshalText()
		if err != nil {
			return Value{}, fmt.Errorf("marshal %s: %w", rv.Type(), err)
		}
		return Str(string(b)), nil
	}

	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int8, reflect.Int16:
		return Int16(int16(rv.Int())), nil
	case reflect.Int32:
		return Int32(int32(rv.Int())), nil
	case reflect.Int, reflect.Int64:
		return Int64(rv.Int()), nil
	case reflect.Uint8:
		return Uint8(uint8(rv.Uint())), nil
	case reflect.Uint16, reflect.Uint32, reflect.Uint, reflect.Uint64:
		return Int64(int64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return Float64(rv.Float()), nil
	case reflect.String:
		return Str(rv.String()), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return Bytes(rv.Bytes()), nil
		}
		return sliceToValue(rv)
	case reflect.Array:
		return sliceToValue(rv)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("map key type %s is not a string", rv.Type().Key())
		}
		m := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			v, err := ToValue(iter.Value().Interface())
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", iter.Key().String(), err)
			}
			m[iter.Key().String()] = v
		}
		return Map(m), nil
	case reflect.Struct:
		m := map[string]Value{}
		if err := addStructFields(m, rv); err != nil {
			return Value{}, err
		}
		return Map(m), nil
	}
	return Value{}, fmt.Errorf("cannot convert %s to a sql value", rv.Type())
}

func sliceToValue(rv reflect.Value) (Value, error) {
	elems := make([]Value, rv.Len())
	for i := range elems {
		v, err := ToValue(rv.Index(i).Interface())
		if err != nil {
			return Value{}, fmt.Errorf("index %d: %w", i, err)
		}
		elems[i] = v
	}
	return List(elems...), nil
}

func addStructFields(m map[string]Value, rv reflect.Value) error {
	t := rv.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" {
			continue
		}
		if f.Anonymous && f.Tag.Get("db") == "" {
			fv := rv.Field(i)
			if fv.Kind() == reflect.Pointer {
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
			}
			if fv.Kind() == reflect.Struct {
				if err := addStructFields(m, fv); err != nil {
					return err
				}
				continue
			}
		}
		name := fieldName(f)
		if name == "-" {
			continue
		}
		v, err := ToValue(rv.Field(i).Interface())
		if err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
		m[name] = v
	}
	return nil
}

func fieldName(f reflect.StructField) string {
	tag := f.Tag.Get("db")
	if i := strings.Index(tag, ","); i >= 0 {
		tag = tag[:i]
	}
	if tag == "" {
		return strings.ToLower(f.Name)
	}
	return tag
}
