package db

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/xo/dburl"

	"github.com/pluvio/dbx/value"
)

const (
	mysqlDupEntry        = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
	mysqlSignalException = 1644
)

type mysqlAdapter struct{}

func (mysqlAdapter) kind() Kind {
	return MySQL
}

func (mysqlAdapter) driverName() string {
	return "mysql"
}

func (mysqlAdapter) dsn(u *dburl.URL) (string, error) {
	cfg, err := mysql.ParseDSN(u.DSN)
	if err != nil {
		return "", err
	}
	// temporal columns scan as time.Time rather than raw bytes
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func (mysqlAdapter) bindValue(p value.Param) (any, error) {
	return bindNative(p)
}

func (mysqlAdapter) rebind(query string) string {
	return query
}

func (mysqlAdapter) typeClass(name string) typeClass {
	return classifyType(name)
}

func (mysqlAdapter) mapError(err error) error {
	if done, e := mapCommonError(err); done {
		return e
	}
	myErr := &mysql.MySQLError{}
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlRowIsReferenced, mysqlNoReferencedRow:
			return fmt.Errorf("%w: %s", ErrConstrained, myErr.Message)
		case mysqlDupEntry:
			return fmt.Errorf("%w: %s", ErrNop, myErr.Message)
		case mysqlSignalException:
			return fmt.Errorf("%w: %s", ErrException, myErr.Message)
		}
	}
	return err
}
