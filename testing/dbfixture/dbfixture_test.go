package dbfixture

import (
	_ "embed"
	"testing"

	"gotest.tools/v3/assert"
	"gotest.tools/v3/assert/cmp"

	"github.com/pluvio/dbx/db"
	"github.com/pluvio/dbx/testing/testcontext"
	"github.com/pluvio/dbx/value"
)

//go:embed testdata/schema.sql
var schema string

type parent struct {
	ID   string `db:"id"`
	Name string `db:"name"`
}

func TestSetupDB_Isolation(t *testing.T) {
	ctx := testcontext.Background()
	fix1 := SetupDB(ctx, t, schema)
	fix2 := SetupDB(ctx, t, schema)

	assert.Check(t, fix1.Name != fix2.Name)

	t.Run("insert data into db1", func(t *testing.T) {
		_, err := db.Update(ctx, fix1.Pool, `INSERT INTO parents (id, name) VALUES (?, ?)`,
			params(t, value.Str("123"), value.Str("apple"))...)
		assert.Assert(t, err)
	})

	t.Run("check data is in db1", func(t *testing.T) {
		rows, err := db.List[parent](ctx, fix1.Pool, `SELECT id, name FROM parents`)
		assert.Assert(t, err)
		assert.Check(t, cmp.DeepEqual([]parent{{ID: "123", Name: "apple"}}, rows))
	})

	t.Run("check data is not in db2", func(t *testing.T) {
		rows, err := db.List[parent](ctx, fix2.Pool, `SELECT id, name FROM parents`)
		assert.Assert(t, err)
		assert.Check(t, cmp.Len(rows, 0))
	})

	t.Run("pools are registered", func(t *testing.T) {
		p, err := db.Lookup(fix1.Name)
		assert.Assert(t, err)
		assert.Check(t, p == fix1.Pool)
	})
}

func TestReset(t *testing.T) {
	ctx := testcontext.Background()
	fix := SetupDB(ctx, t, schema)

	t.Run("insert linked rows", func(t *testing.T) {
		_, err := db.Update(ctx, fix.Pool, `INSERT INTO parents (id, name) VALUES (?, ?)`,
			params(t, value.Str("123"), value.Str("apple"))...)
		assert.Assert(t, err)

		_, err = db.Update(ctx, fix.Pool, `INSERT INTO children (id, parent_id, name) VALUES (?, ?, ?)`,
			params(t, value.Str("456"), value.Str("123"), value.Str("pip"))...)
		assert.Assert(t, err)
	})

	t.Run("reset the db", func(t *testing.T) {
		assert.Assert(t, fix.Reset(ctx))
	})

	t.Run("check the tables are empty", func(t *testing.T) {
		rows, err := db.List[parent](ctx, fix.Pool, `SELECT id, name FROM parents`)
		assert.Assert(t, err)
		assert.Check(t, cmp.Len(rows, 0))

		rows, err = db.List[parent](ctx, fix.Pool, `SELECT id, name FROM children`)
		assert.Assert(t, err)
		assert.Check(t, cmp.Len(rows, 0))
	})
}

func params(t *testing.T, vs ...value.Value) []value.Param {
	t.Helper()
	out := make([]value.Param, len(vs))
	for i, v := range vs {
		p, err := v.Param()
		assert.NilError(t, err)
		out[i] = p
	}
	return out
}
