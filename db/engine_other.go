package db

import (
	"github.com/xo/dburl"

	"github.com/pluvio/dbx/value"
)

// otherAdapter stands in for engines outside the recognized set. Every
// structured operation fails; raw statement pass-through on a
// caller-supplied handle is the only thing such a pool can do.
type otherAdapter struct {
	name Kind
}

func (a otherAdapter) kind() Kind {
	return a.name
}

func (a otherAdapter) driverName() string {
	return string(a.name)
}

func (a otherAdapter) dsn(*dburl.URL) (string, error) {
	return "", a.unsupported()
}

func (a otherAdapter) bindValue(value.Param) (any, error) {
	return nil, a.unsupported()
}

func (a otherAdapter) rebind(query string) string {
	return query
}

func (a otherAdapter) typeClass(string) typeClass {
	return classUnknown
}

func (a otherAdapter) mapError(err error) error {
	return err
}

func (a otherAdapter) unsupported() error {
	return unsupportedKind(a.name)
}
