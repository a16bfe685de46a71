package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xo/dburl"

	"github.com/pluvio/dbx/value"
)

// Kind identifies a database engine. Unrecognized engines keep their
// scheme name; pools of such a kind only permit raw statement
// pass-through.
type Kind string

const (
	Postgres Kind = "postgres"
	MySQL    Kind = "mysql"
	SQLite   Kind = "sqlite"
)

// Recognized reports whether structured operations are supported for
// this engine.
func (k Kind) Recognized() bool {
	switch k {
	case Postgres, MySQL, SQLite:
		return true
	}
	return false
}

// adapter is the single point of engine-specific behaviour. The CRUD
// layer dispatches every engine decision through it, so adding an engine
// means adding one adapter.
type adapter interface {
	kind() Kind
	driverName() string
	// dsn derives the driver DSN from a parsed URL.
	dsn(u *dburl.URL) (string, error)
	// bindValue converts one rendered parameter into a driver argument.
	bindValue(p value.Param) (any, error)
	// rebind maps the universal ? placeholders onto the engine's form.
	rebind(query string) string
	// typeClass classifies a reported column type name for row decoding.
	typeClass(name string) typeClass
	// mapError maps driver errors onto the package taxonomy.
	mapError(err error) error
}

var adapters = map[Kind]adapter{
	Postgres: newPostgresAdapter(),
	MySQL:    mysqlAdapter{},
	SQLite:   sqliteAdapter{},
}

func kindFromDriver(driver string) Kind {
	switch driver {
	case "postgres", "pgx":
		return Postgres
	case "mysql":
		return MySQL
	case "sqlite", "sqlite3":
		return SQLite
	}
	return Kind(strings.ToLower(driver))
}

// bindNative converts the engine-independent parameter kinds. Date and
// time-of-day bind as formatted strings everywhere since drivers disagree
// on partial temporals; full timestamps stay native time.Time so drivers
// handle zones (SQLite overrides those).
func bindNative(p value.Param) (any, error) {
	switch p.Kind() {
	case value.KindNull:
		return nil, nil
	case value.KindBool, value.KindFloat64, value.KindString, value.KindBytes:
		return p.Interface(), nil
	case value.KindInt16, value.KindInt32, value.KindInt64, value.KindUint8:
		return p.Interface(), nil
	case value.KindDate:
		return p.Interface().(time.Time).Format("2006-01-02"), nil
	case value.KindTime:
		return p.Interface().(time.Time).Format("15:04:05.999999999"), nil
	case value.KindDateTime, value.KindDateTimeUTC:
		return p.Interface(), nil
	case value.KindDecimal:
		return p.Interface().(decimal.Decimal).String(), nil
	}
	return nil, fmt.Errorf("cannot bind a %s parameter", p.Kind())
}
