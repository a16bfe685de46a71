package notes

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pluvio/dbx/db"
	"github.com/pluvio/dbx/mapper"
	"github.com/pluvio/dbx/sqltpl"
	"github.com/pluvio/dbx/value"
)

//go:embed statements.xml
var statementsFS embed.FS

const namespace = "notes"

func (s *Store) statement(id string) mapper.Statement {
	st, ok := s.statements.Statement(namespace, id)
	if !ok {
		panic(fmt.Sprintf("notes: no statement %s.%s", namespace, id))
	}
	return st
}

// execStatement renders the named statement against param and runs it,
// returning the affected row count.
func (s *Store) execStatement(ctx context.Context, id string, param any) (int64, error) {
	st := s.statement(id)
	v, err := value.ToValue(param)
	if err != nil {
		return 0, err
	}
	q, params, err := sqltpl.Render(st.Name(), st.Content, v)
	if err != nil {
		return 0, err
	}
	return db.Update(ctx, s.pool, q, params...)
}

type insertParam struct {
	ID    uuid.UUID `db:"id"`
	Title string    `db:"title"`
	Body  string    `db:"body"`
	Now   time.Time `db:"now"`
}

func (s *Store) queryInsertNote(ctx context.Context, param insertParam) (*Note, error) {
	st := s.statement("insert")
	note, err := db.QueryOne[Note](ctx, s.pool, st.Name(), st.Content, param)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, errors.New("insert returned no row")
	}
	return note, nil
}

func (s *Store) queryNoteByID(ctx context.Context, id uuid.UUID) (*Note, error) {
	st := s.statement("by_id")
	note, err := db.QueryOne[Note](ctx, s.pool, st.Name(), st.Content, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, ErrNotFound
	}
	return note, nil
}

func (s *Store) queryListNotes(ctx context.Context, q ListQuery) ([]Note, error) {
	param := map[string]any{}
	if q.TitleContains != "" {
		param["title"] = "%" + db.EscapeLike(q.TitleContains) + "%"
	}
	st := s.statement("list")
	return db.Query[Note](ctx, s.pool, st.Name(), st.Content, param)
}

type updateParam struct {
	ID    uuid.UUID `db:"id"`
	Title string    `db:"title"`
	Body  string    `db:"body"`
	Now   time.Time `db:"now"`
}
