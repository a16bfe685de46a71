package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/pluvio/dbx/config/secret"
	"github.com/pluvio/dbx/testing/testcontext"
)

func sqliteURL(t *testing.T) secret.String {
	t.Helper()
	return secret.String("sqlite:" + filepath.Join(t.TempDir(), "test.db"))
}

func TestRegistry_OpenLifecycle(t *testing.T) {
	ctx := testcontext.Background()
	r := NewRegistry()
	t.Cleanup(func() { r.CloseAll(ctx) })

	pool, err := r.Open(ctx, "default", Config{URL: sqliteURL(t)})
	assert.NilError(t, err)
	assert.Check(t, cmp.Equal(pool.Name(), "default"))
	assert.Check(t, cmp.Equal(pool.Kind(), SQLite))
	assert.Check(t, pool.DB() != nil)

	t.Run("statements run", func(t *testing.T) {
		_, err := Exec(ctx, pool, `CREATE TABLE t (id INTEGER PRIMARY KEY)`)
		assert.NilError(t, err)
	})

	t.Run("lookup and get find it", func(t *testing.T) {
		found, err := r.Lookup("default")
		assert.NilError(t, err)
		assert.Check(t, found == pool)

		got, err := r.Get()
		assert.NilError(t, err)
		assert.Check(t, got == pool)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		assert.Check(t, r.Close(ctx, "default"))
		assert.Check(t, !r.Close(ctx, "default"))

		_, err := r.Lookup("default")
		cfgErr := &ConfigurationError{}
		assert.Check(t, errors.As(err, &cfgErr))
		assert.Check(t, cmp.ErrorContains(err, `no pool named "default"`))
	})
}

func TestRegistry_DuplicateOpen(t *testing.T) {
	ctx := testcontext.Background()
	r := NewRegistry()
	t.Cleanup(func() { r.CloseAll(ctx) })

	_, err := r.Open(ctx, "main", Config{URL: sqliteURL(t)})
	assert.NilError(t, err)

	_, err = r.Open(ctx, "main", Config{URL: sqliteURL(t)})
	cfgErr := &ConfigurationError{}
	assert.Check(t, errors.As(err, &cfgErr))
	assert.Check(t, cmp.ErrorContains(err, `pool "main" already open`))
}

func TestRegistry_MemorySQLite(t *testing.T) {
	ctx := testcontext.Background()
	r := NewRegistry()
	t.Cleanup(func() { r.CloseAll(ctx) })

	pool, err := r.Open(ctx, "mem", Config{URL: "sqlite::memory:"})
	assert.NilError(t, err)

	// Two statements from the same pool must see the same database even
	// when they run on different pooled connections.
	_, err = Exec(ctx, pool, `CREATE TABLE t (id INTEGER PRIMARY KEY)`)
	assert.NilError(t, err)
	for i := 0; i < 10; i++ {
		_, err = Exec(ctx, pool, `INSERT INTO t DEFAULT VALUES`)
		assert.NilError(t, err)
	}
}

func TestRegistry_UnrecognizedScheme(t *testing.T) {
	ctx := testcontext.Background()
	r := NewRegistry()
	t.Cleanup(func() { r.CloseAll(ctx) })

	tests := []struct {
		name string
		url  string
		kind Kind
	}{
		{name: "known to dburl", url: "oracle://scott@db.internal:1521/orcl", kind: "oracle"},
		{name: "unknown everywhere", url: "weirddb://host/db", kind: "weirddb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := r.Open(ctx, tt.name, Config{URL: secret.String(tt.url)})
			assert.NilError(t, err)
			assert.Check(t, cmp.Equal(pool.Kind(), tt.kind))
			assert.Check(t, cmp.Nil(pool.DB()))

			// Placeholders reject everything, including raw statements,
			// since they hold no driver handle.
			_, err = Exec(ctx, pool, `SELECT 1`)
			cfgErr := &ConfigurationError{}
			assert.Check(t, errors.As(err, &cfgErr))

			_, err = Get[struct{}](ctx, pool, `SELECT 1`)
			assert.Check(t, errors.As(err, &cfgErr))

			err = WithScope(ctx, func(ctx context.Context) error {
				return pool.StartTransaction(ctx)
			})
			assert.Check(t, errors.As(err, &cfgErr))
		})
	}
}

func TestRegistry_BadURL(t *testing.T) {
	ctx := testcontext.Background()
	r := NewRegistry()

	_, err := r.Open(ctx, "bad", Config{URL: "://nope"})
	cfgErr := &ConfigurationError{}
	assert.Check(t, errors.As(err, &cfgErr))
	assert.Check(t, cmp.ErrorContains(err, "cannot parse database url"))
}

func TestRegistry_OpenDB(t *testing.T) {
	ctx := testcontext.Background()
	r := NewRegistry()
	t.Cleanup(func() { r.CloseAll(ctx) })

	t.Run("Bundled engine", func(t *testing.T) {
		handle, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "own.db"))
		assert.NilError(t, err)

		pool, err := r.OpenDB("own", SQLite, handle)
		assert.NilError(t, err)
		assert.Check(t, cmp.Equal(pool.Kind(), SQLite))

		_, err = Exec(ctx, pool, `CREATE TABLE t (id INTEGER PRIMARY KEY)`)
		assert.NilError(t, err)

		n, err := Exec(ctx, pool, `INSERT INTO t DEFAULT VALUES`)
		assert.NilError(t, err)
		assert.Check(t, cmp.Equal(n, int64(1)))
	})

	t.Run("Unrecognized engine with a caller handle", func(t *testing.T) {
		// The handle is real, the kind is not one of ours. Raw statements
		// pass through; anything structured still refuses.
		handle, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "exotic.db"))
		assert.NilError(t, err)

		pool, err := r.OpenDB("exotic", Kind("duckdb"), handle)
		assert.NilError(t, err)
		assert.Check(t, cmp.Equal(pool.Kind(), Kind("duckdb")))

		_, err = Exec(ctx, pool, `CREATE TABLE t (id INTEGER PRIMARY KEY)`)
		assert.NilError(t, err)

		n, err := Exec(ctx, pool, `INSERT INTO t DEFAULT VALUES`)
		assert.NilError(t, err)
		assert.Check(t, cmp.Equal(n, int64(1)))

		cfgErr := &ConfigurationError{}
		_, err = Get[struct{}](ctx, pool, `SELECT 1`)
		assert.Check(t, errors.As(err, &cfgErr))

		err = WithScope(ctx, func(ctx context.Context) error {
			return pool.StartTransaction(ctx)
		})
		assert.Check(t, errors.As(err, &cfgErr))
	})
}

func TestRegistry_Names(t *testing.T) {
	ctx := testcontext.Background()
	r := NewRegistry()
	t.Cleanup(func() { r.CloseAll(ctx) })

	_, err := r.Open(ctx, "zebra", Config{URL: sqliteURL(t)})
	assert.NilError(t, err)
	_, err = r.Open(ctx, "aardvark", Config{URL: sqliteURL(t)})
	assert.NilError(t, err)

	assert.Check(t, cmp.DeepEqual(r.Names(), []string{"aardvark", "zebra"}))
}

func TestDefaultRegistry_Delegates(t *testing.T) {
	ctx := testcontext.Background()

	pool, err := Open(ctx, "registry-test-delegate", Config{URL: sqliteURL(t)})
	assert.NilError(t, err)
	t.Cleanup(func() { Close(ctx, "registry-test-delegate") })

	found, err := Lookup("registry-test-delegate")
	assert.NilError(t, err)
	assert.Check(t, found == pool)
}
