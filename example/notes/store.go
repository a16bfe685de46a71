// Package notes stores the example service's notes. Deletes are soft: a
// deleted note stays in the table, invisible to reads, until the purge
// worker removes it for good.
package notes

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pluvio/dbx/db"
	"github.com/pluvio/dbx/mapper"
	"github.com/pluvio/dbx/o11y"
)

var ErrNotFound = o11y.NewWarning("note not found")

type Note struct {
	ID        uuid.UUID `db:"id"`
	Title     string    `db:"title"`
	Body      string    `db:"body"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type Store struct {
	pool       *db.Pool
	statements *mapper.Set
}

// NewStore loads and validates the statement set, so a broken statement
// fails service startup rather than the first request.
func NewStore(pool *db.Pool) (*Store, error) {
	set, err := mapper.Load(statementsFS, ".")
	if err != nil {
		return nil, err
	}
	if err := set.Register(nil); err != nil {
		return nil, err
	}
	return &Store{pool: pool, statements: set}, nil
}

type ToAdd struct {
	Title string `db:"title"`
	Body  string `db:"body"`
}

func (s *Store) Add(ctx context.Context, toAdd ToAdd) (note *Note, err error) {
	ctx, span := o11y.StartSpan(ctx, "store: add")
	defer o11y.End(span, &err)
	span.AddField("title", toAdd.Title)

	param := insertParam{
		ID:    uuid.New(),
		Title: toAdd.Title,
		Body:  toAdd.Body,
		Now:   time.Now().UTC(),
	}
	err = db.WithScope(ctx, func(ctx context.Context) error {
		if err := s.pool.StartTransaction(ctx); err != nil {
			return err
		}
		note, err = s.queryInsertNote(ctx, param)
		if err != nil {
			return err
		}
		return s.pool.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

func (s *Store) ByID(ctx context.Context, id uuid.UUID) (note *Note, err error) {
	ctx, span := o11y.StartSpan(ctx, "store: by_id")
	defer o11y.End(span, &err)
	span.AddField("id", id)

	return s.queryNoteByID(ctx, id)
}

// ListQuery narrows List. The zero value lists everything.
type ListQuery struct {
	// TitleContains keeps notes whose title contains the text.
	TitleContains string
}

func (s *Store) List(ctx context.Context, q ListQuery) (notes []Note, err error) {
	ctx, span := o11y.StartSpan(ctx, "store: list")
	defer o11y.End(span, &err)

	notes, err = s.queryListNotes(ctx, q)
	span.AddField("count", len(notes))
	return notes, err
}

// ToUpdate carries the changes for Update. Nil fields keep the stored
// value.
type ToUpdate struct {
	Title *string
	Body  *string
}

// Update applies the changes and returns the updated note. The read and
// the write share one transaction, so a concurrent delete cannot slip
// between them.
func (s *Store) Update(ctx context.Context, id uuid.UUID, toUpdate ToUpdate) (note *Note, err error) {
	ctx, span := o11y.StartSpan(ctx, "store: update")
	defer o11y.End(span, &err)
	span.AddField("id", id)

	err = db.WithScope(ctx, func(ctx context.Context) error {
		if err := s.pool.StartTransaction(ctx); err != nil {
			return err
		}
		cur, err := s.queryNoteByID(ctx, id)
		if err != nil {
			return err
		}
		param := updateParam{
			ID:    id,
			Title: cur.Title,
			Body:  cur.Body,
			Now:   time.Now().UTC(),
		}
		if toUpdate.Title != nil {
			param.Title = *toUpdate.Title
		}
		if toUpdate.Body != nil {
			param.Body = *toUpdate.Body
		}
		n, err := s.execStatement(ctx, "update", param)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		note, err = s.queryNoteByID(ctx, id)
		if err != nil {
			return err
		}
		return s.pool.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// Delete soft-deletes the note.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := o11y.StartSpan(ctx, "store: delete")
	defer o11y.End(span, &err)
	span.AddField("id", id)

	return db.WithScope(ctx, func(ctx context.Context) error {
		if err := s.pool.StartTransaction(ctx); err != nil {
			return err
		}
		n, err := s.execStatement(ctx, "soft_delete", map[string]any{
			"id":  id,
			"now": time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return s.pool.Commit(ctx)
	})
}

// PurgeDeleted permanently removes notes soft-deleted before cutoff and
// reports how many went away.
func (s *Store) PurgeDeleted(ctx context.Context, cutoff time.Time) (n int64, err error) {
	ctx, span := o11y.StartSpan(ctx, "store: purge_deleted")
	defer o11y.End(span, &err)

	n, err = s.execStatement(ctx, "purge", map[string]any{
		"before": cutoff.UTC(),
	})
	span.AddField("purged", n)
	return n, err
}
