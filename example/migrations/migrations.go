// Package migrations owns the example database schema.
package migrations

import (
	"context"
	_ "embed"
	"testing"

	"github.com/pluvio/dbx/db"
	"github.com/pluvio/dbx/testing/dbfixture"
)

//go:embed schema.sql
var schema string

// Apply creates the schema on pool's database. The statements are
// written to be re-runnable, so Apply is safe on every startup.
func Apply(ctx context.Context, pool *db.Pool) error {
	_, err := db.Exec(ctx, pool, schema)
	return err
}

// SetupDB gives a test its own throwaway database with the schema
// applied.
func SetupDB(ctx context.Context, t testing.TB) *dbfixture.Fixture {
	t.Helper()
	return dbfixture.SetupDB(ctx, t, schema)
}
