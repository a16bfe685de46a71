// Package dbfixture gives each test an isolated throwaway database,
// opened and registered through the db package so stores can be
// exercised for real.
package dbfixture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gotest.tools/v3/assert"

	"github.com/pluvio/dbx/config/secret"
	"github.com/pluvio/dbx/db"
	"github.com/pluvio/dbx/o11y"
	"github.com/pluvio/dbx/testing/internal/types"
	"github.com/pluvio/dbx/testing/testrand"
)

type Fixture struct {
	// Name is the pool name the fixture is registered under.
	Name string
	// URL is the sqlite url of the backing database file.
	URL  secret.String
	Pool *db.Pool

	tables []table
}

type table struct {
	Name string `db:"name"`
}

// SetupDB creates a database in a temporary directory, applies schema
// and registers the pool under a unique name in the default registry.
// The pool is closed and the backing file removed in test cleanup.
// Set TEST_PRESERVE_DB to keep the file around for a post-mortem.
func SetupDB(ctx context.Context, t types.TestingTB, schema string) *Fixture {
	t.Helper()

	dir, err := os.MkdirTemp("", "dbfixture")
	assert.Assert(t, err)

	name := fmt.Sprintf("%s-%s", testrand.Hex(6), t.Name())
	fix := &Fixture{
		Name: name,
		URL:  secret.String("sqlite:" + filepath.Join(dir, "fixture.db")),
	}

	fix.Pool, err = db.Open(ctx, name, db.Config{URL: fix.URL})
	assert.Assert(t, err)

	t.Cleanup(func() {
		p := o11y.FromContext(ctx)
		ctx, cancel := context.WithTimeout(o11y.WithProvider(context.Background(), p), 10*time.Second)
		defer cancel()

		db.Close(ctx, name)

		if os.Getenv("TEST_PRESERVE_DB") != "" {
			t.Logf("preserving database: %s", fix.URL.Raw())
			return
		}
		_ = os.RemoveAll(dir)
	})

	o11y.Log(ctx, "dbfixture: applying schema", o11y.Field("pool", name))
	_, err = db.Exec(ctx, fix.Pool, schema)
	assert.Assert(t, err)

	fix.tables, err = db.List[table](ctx, fix.Pool,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	assert.Assert(t, err)

	return fix
}

// Reset empties every table the schema created, leaving the structure in
// place. Constraint checks are suspended so the delete order does not
// have to respect foreign keys.
func (f *Fixture) Reset(ctx context.Context) (err error) {
	ctx, span := o11y.StartSpan(ctx, "dbfixture: reset")
	defer o11y.End(span, &err)

	if _, err := db.Exec(ctx, f.Pool, `PRAGMA foreign_keys = OFF`); err != nil {
		return fmt.Errorf("could not disable constraint checks: %w", err)
	}

	for _, tbl := range f.tables {
		if _, err := db.Exec(ctx, f.Pool, fmt.Sprintf(`DELETE FROM %q`, tbl.Name)); err != nil {
			return fmt.Errorf("could not delete from table: %w", err)
		}
	}

	if _, err := db.Exec(ctx, f.Pool, `PRAGMA foreign_keys = ON`); err != nil {
		return fmt.Errorf("could not enable constraint checks: %w", err)
	}
	return nil
}
