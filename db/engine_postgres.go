package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib" // register the pgx driver
	"github.com/jmoiron/sqlx"
	"github.com/xo/dburl"

	"github.com/pluvio/dbx/value"
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgRaiseException      = "P0001"
	pgQueryCanceled       = "57014"
)

type postgresAdapter struct {
	rebinds *rebindCache
}

func newPostgresAdapter() postgresAdapter {
	return postgresAdapter{rebinds: newRebindCache(sqlx.DOLLAR)}
}

func (postgresAdapter) kind() Kind {
	return Postgres
}

func (postgresAdapter) driverName() string {
	return "pgx"
}

func (postgresAdapter) dsn(u *dburl.URL) (string, error) {
	// pgx parses connection URLs directly
	return u.DSN, nil
}

func (postgresAdapter) bindValue(p value.Param) (any, error) {
	return bindNative(p)
}

func (a postgresAdapter) rebind(query string) string {
	return a.rebinds.rebind(query)
}

func (postgresAdapter) typeClass(name string) typeClass {
	return classifyType(name)
}

func (postgresAdapter) mapError(err error) error {
	if done, e := mapCommonError(err); done {
		return e
	}
	pgErr := &pgconn.PgError{}
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s - %s", ErrConstrained, pgErr.Message, pgErr.Detail)
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s - %s", ErrNop, pgErr.Message, pgErr.Detail)
		case pgRaiseException:
			return fmt.Errorf("%w: %s - %s", ErrException, pgErr.Message, pgErr.Detail)
		case pgQueryCanceled:
			return fmt.Errorf("%w: %s - %s", ErrCanceled, pgErr.Message, pgErr.Detail)
		}
	}
	return err
}
