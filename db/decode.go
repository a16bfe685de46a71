package db

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
)

// typeClass groups engine type names into the handful of shapes the
// decoder distinguishes.
type typeClass int

const (
	classUnknown typeClass = iota
	classInt
	classFloat
	classBool
	classText
	classJSON
	classTemporal
	classDecimal
	classBlob
)

var typeClasses = map[string]typeClass{
	"TINYINT":  classInt,
	"SMALLINT": classInt,
	"INT":      classInt,
	"INTEGER":  classInt,
	"BIGINT":   classInt,
	"INT2":     classInt,
	"INT4":     classInt,
	"INT8":     classInt,

	"FLOAT":            classFloat,
	"DOUBLE":           classFloat,
	"DOUBLE PRECISION": classFloat,
	"REAL":             classFloat,
	"FLOAT4":           classFloat,
	"FLOAT8":           classFloat,

	"BOOLEAN": classBool,
	"BOOL":    classBool,

	"VARCHAR":  classText,
	"TEXT":     classText,
	"CHAR":     classText,
	"NAME":     classText,
	"NVARCHAR": classText,

	"JSON":  classJSON,
	"JSONB": classJSON,

	"DATE":        classTemporal,
	"DATETIME":    classTemporal,
	"TIMESTAMP":   classTemporal,
	"TIMESTAMPTZ": classTemporal,

	"DECIMAL": classDecimal,
	"NUMERIC": classDecimal,

	"BLOB": classBlob,
}

// classifyType maps an engine's reported type name onto a typeClass.
// Names are compared without length arguments, so VARCHAR(255)
// classifies as VARCHAR.
func classifyType(name string) typeClass {
	name = strings.ToUpper(strings.TrimSpace(name))
	if i := strings.IndexByte(name, '('); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	return typeClasses[name]
}

// rowToMap converts the reader's current row into a map keyed by column
// name. NULL columns are present with a nil value. BLOB columns are
// left out, as are unknown types that defy every coercion.
func rowToMap(r *RowReader, ad adapter) (map[string]any, error) {
	m := make(map[string]any, r.Columns())
	for i := 0; i < r.Columns(); i++ {
		name := r.ColumnName(i)
		if r.IsNull(i) {
			m[name] = nil
			continue
		}
		var (
			v   any
			err error
		)
		switch ad.typeClass(r.TypeName(i)) {
		case classInt:
			v, err = r.Int64(i)
		case classFloat:
			v, err = r.Float64(i)
		case classBool:
			v, err = r.Bool(i)
		case classText, classTemporal, classDecimal:
			v, err = r.String(i)
		case classJSON:
			v, err = r.JSON(i)
		case classBlob:
			continue
		default:
			var ok bool
			if v, ok = coerceUnknown(r, i); !ok {
				continue
			}
		}
		if err != nil {
			return nil, err
		}
		m[name] = v
	}
	return m, nil
}

// coerceUnknown tries the lenient ladder for a type name no engine
// claims: string first, then int64, then float64.
func coerceUnknown(r *RowReader, i int) (any, bool) {
	if s, err := r.String(i); err == nil {
		return s, true
	}
	if n, err := r.Int64(i); err == nil {
		return n, true
	}
	if f, err := r.Float64(i); err == nil {
		return f, true
	}
	return nil, false
}

// decodeRow decodes one row map into a value of type T. Struct fields
// bind by their db tag, falling back to a case-insensitive match on the
// field name, the same convention sqlx uses. A field with no matching
// column at all is an error; a NULL column leaves its field at the zero
// value. Fields tagged db:"-" are left alone, and embedded structs bind
// their fields at the top level, mirroring ToValue.
func decodeRow[T any](m map[string]any) (*T, error) {
	out := new(T)
	md := &mapstructure.Metadata{}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "db",
		Result:           out,
		Metadata:         md,
		Squash:           true,
		WeaklyTypedInput: true,
		DecodeHook:       rowDecodeHook(),
	})
	if err != nil {
		return nil, &DeserializationError{Target: typeName[T](), Err: err}
	}
	if err := dec.Decode(m); err != nil {
		return nil, &DeserializationError{Target: typeName[T](), Err: err}
	}
	if missing := missingFields(md.Unset); len(missing) > 0 {
		return nil, &DeserializationError{Target: typeName[T](), Field: strings.Join(missing, ", ")}
	}
	return out, nil
}

// missingFields drops the db:"-" fields, which mapstructure reports as
// unset under the name "-", and sorts the rest for stable errors.
func missingFields(unset []string) []string {
	missing := make([]string, 0, len(unset))
	for _, name := range unset {
		if name == "-" || strings.HasSuffix(name, ".-") {
			continue
		}
		missing = append(missing, name)
	}
	sort.Strings(missing)
	return missing
}

func typeName[T any]() string {
	var zero T
	return fmt.Sprintf("%T", zero)
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
)

// rowDecodeHook parses the stringified temporal and decimal wire forms
// back into rich types when the destination field asks for them. Other
// destination types implementing encoding.TextUnmarshaler (uuid.UUID and
// friends) also decode from their text form.
func rowDecodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		stringToTime,
		stringToDecimal,
		stringToJSON,
		mapstructure.TextUnmarshallerHookFunc(),
	)
}

func stringToTime(f, t reflect.Type, data any) (any, error) {
	if f.Kind() != reflect.String || t != timeType {
		return data, nil
	}
	s := data.(string)
	for _, layout := range []string{time.RFC3339Nano, naiveDateTime, naiveDate} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return nil, fmt.Errorf("cannot parse %q as a time", s)
}

func stringToDecimal(f, t reflect.Type, data any) (any, error) {
	if f.Kind() != reflect.String || t != decimalType {
		return data, nil
	}
	d, err := decimal.NewFromString(data.(string))
	if err != nil {
		return nil, fmt.Errorf("cannot parse %q as a decimal", data)
	}
	return d, nil
}

// stringToJSON covers engines and statements where a JSON column's type
// name is not reported, in which case the document arrives as its text
// form rather than as decoded structures.
func stringToJSON(f, t reflect.Type, data any) (any, error) {
	if f.Kind() != reflect.String {
		return data, nil
	}
	if t.Kind() != reflect.Map && t.Kind() != reflect.Slice {
		return data, nil
	}
	if t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8 {
		// byte slices take the string's bytes, not a JSON decode
		return data, nil
	}
	var out any
	if err := json.Unmarshal([]byte(data.(string)), &out); err != nil {
		return data, nil
	}
	return out, nil
}
