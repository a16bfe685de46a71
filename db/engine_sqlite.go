package db

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/xo/dburl"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/pluvio/dbx/value"
)

func init() {
	// modernc registers under "sqlite", which sqlx does not know
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

type sqliteAdapter struct{}

func (sqliteAdapter) kind() Kind {
	return SQLite
}

func (sqliteAdapter) driverName() string {
	return "sqlite"
}

func (sqliteAdapter) dsn(u *dburl.URL) (string, error) {
	dsn := u.DSN
	if dsn == ":memory:" {
		// a plain :memory: would give every pooled connection its own db
		dsn = "file::memory:?cache=shared"
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	if !strings.Contains(dsn, "busy_timeout") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		// writers back off instead of failing immediately when the file is locked
		dsn += sep + "_pragma=busy_timeout(10000)"
	}
	return dsn, nil
}

// bindValue stores timestamps as strings in SQLite's conventional text
// forms and booleans as 0/1, keeping decode behaviour predictable.
func (sqliteAdapter) bindValue(p value.Param) (any, error) {
	switch p.Kind() {
	case value.KindBool:
		if p.Interface().(bool) {
			return int64(1), nil
		}
		return int64(0), nil
	case value.KindDateTime:
		return p.Interface().(time.Time).Format("2006-01-02 15:04:05.999999999"), nil
	case value.KindDateTimeUTC:
		return p.Interface().(time.Time).UTC().Format(time.RFC3339Nano), nil
	}
	return bindNative(p)
}

func (sqliteAdapter) rebind(query string) string {
	return query
}

func (sqliteAdapter) typeClass(name string) typeClass {
	return classifyType(name)
}

func (sqliteAdapter) mapError(err error) error {
	if done, e := mapCommonError(err); done {
		return e
	}
	liteErr := &sqlite.Error{}
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %s", ErrConstrained, liteErr.Error())
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", ErrNop, liteErr.Error())
		case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_CONSTRAINT_TRIGGER:
			// RAISE(ABORT, ...) reports the trigger constraint code, or the
			// bare constraint code when extended result codes are off
			return fmt.Errorf("%w: %s", ErrException, liteErr.Error())
		case sqlite3.SQLITE_INTERRUPT:
			return fmt.Errorf("%w: %s", ErrCanceled, liteErr.Error())
		}
	}
	return err
}
