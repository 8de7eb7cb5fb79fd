package app

import (
	"context"

	"mozhi/pkg/domain"
	"mozhi/pkg/store"
)

// resource describes how one book-scoped entity is stored and checked.
type resource[T any] struct {
	name string
	repo func(store.Store) store.Repository[T]
	// keys returns pointers to the entity's id and book_id.
	keys func(*T) (id *int64, bookID *int64)
	// prepare validates references and fills defaults before a write. v has
	// its id and book_id set; id is zero on create.
	prepare func(ctx context.Context, tx store.Store, book domain.Book, v *T) error
	// beforeDelete runs inside the delete's unit of work.
	beforeDelete func(ctx context.Context, tx store.Store, v T) error
	// decorate fills derived read-only fields.
	decorate func(ctx context.Context, tx store.Store, v *T) error
}

// Scoped serves CRUD for one entity that lives under a book. Every call is
// a single unit of work and fails with 404 when the book or the entity is
// missing or the entity belongs to another book.
type Scoped[T any] struct {
	store store.Store
	res   resource[T]
}

func (s *Scoped[T]) List(ctx context.Context, bookID int64, page Page) ([]T, error) {
	var out []T
	err := s.store.WithSession(ctx, func(tx store.Store) error {
		if _, err := loadBook(ctx, tx, bookID); err != nil {
			return err
		}
		rows, err := s.res.repo(tx).List(ctx, store.ListOptions{BookID: bookID, Limit: page.Limit, Offset: page.Offset})
		if err != nil {
			return err
		}
		for i := range rows {
			if err := s.decorate(ctx, tx, &rows[i]); err != nil {
				return err
			}
		}
		out = rows
		return nil
	})
	if out == nil {
		out = []T{}
	}
	return out, err
}

// Filter lists every entity of the book that keep accepts.
func (s *Scoped[T]) Filter(ctx context.Context, bookID int64, keep func(T) bool) ([]T, error) {
	all, err := s.List(ctx, bookID, Page{})
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(all))
	for _, v := range all {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *Scoped[T]) Get(ctx context.Context, bookID, id int64) (T, error) {
	var out T
	err := s.store.WithSession(ctx, func(tx store.Store) error {
		if _, err := loadBook(ctx, tx, bookID); err != nil {
			return err
		}
		v, err := s.load(ctx, tx, bookID, id)
		if err != nil {
			return err
		}
		if err := s.decorate(ctx, tx, &v); err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (s *Scoped[T]) Create(ctx context.Context, bookID int64, v T) (T, error) {
	err := s.store.WithSession(ctx, func(tx store.Store) error {
		book, err := loadBook(ctx, tx, bookID)
		if err != nil {
			return err
		}
		id, bid := s.res.keys(&v)
		*id, *bid = 0, bookID
		if err := s.prepare(ctx, tx, book, &v); err != nil {
			return err
		}
		if err := s.res.repo(tx).Create(ctx, &v); err != nil {
			return storeError(err, s.res.name)
		}
		return s.decorate(ctx, tx, &v)
	})
	return v, err
}

// Update replaces every field of the entity with v.
func (s *Scoped[T]) Update(ctx context.Context, bookID, id int64, v T) (T, error) {
	err := s.store.WithSession(ctx, func(tx store.Store) error {
		book, err := loadBook(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if _, err := s.load(ctx, tx, bookID, id); err != nil {
			return err
		}
		vid, bid := s.res.keys(&v)
		*vid, *bid = id, bookID
		if err := s.prepare(ctx, tx, book, &v); err != nil {
			return err
		}
		if err := s.res.repo(tx).Update(ctx, &v); err != nil {
			return storeError(err, s.res.name)
		}
		return s.decorate(ctx, tx, &v)
	})
	return v, err
}

func (s *Scoped[T]) Delete(ctx context.Context, bookID, id int64) error {
	return s.store.WithSession(ctx, func(tx store.Store) error {
		if _, err := loadBook(ctx, tx, bookID); err != nil {
			return err
		}
		v, err := s.load(ctx, tx, bookID, id)
		if err != nil {
			return err
		}
		if s.res.beforeDelete != nil {
			if err := s.res.beforeDelete(ctx, tx, v); err != nil {
				return err
			}
		}
		return storeError(s.res.repo(tx).Delete(ctx, id), s.res.name)
	})
}

func (s *Scoped[T]) load(ctx context.Context, tx store.Store, bookID, id int64) (T, error) {
	v, ok, err := s.res.repo(tx).Get(ctx, id)
	if err != nil {
		return v, err
	}
	if _, bid := s.res.keys(&v); !ok || *bid != bookID {
		var zero T
		return zero, notFound(s.res.name)
	}
	return v, nil
}

func (s *Scoped[T]) prepare(ctx context.Context, tx store.Store, book domain.Book, v *T) error {
	if s.res.prepare == nil {
		return nil
	}
	return s.res.prepare(ctx, tx, book, v)
}

func (s *Scoped[T]) decorate(ctx context.Context, tx store.Store, v *T) error {
	if s.res.decorate == nil {
		return nil
	}
	return s.res.decorate(ctx, tx, v)
}

// inBook loads the row id and checks that it belongs to bookID. A missing
// row or one from another book is reported against field.
func inBook[T any](ctx context.Context, repo store.Repository[T], bookOf func(T) int64, bookID, id int64, field string) (T, error) {
	v, ok, err := repo.Get(ctx, id)
	if err != nil {
		return v, err
	}
	if !ok || bookOf(v) != bookID {
		var zero T
		return zero, badReference(field)
	}
	return v, nil
}

// optionalInBook is inBook for nullable references.
func optionalInBook[T any](ctx context.Context, repo store.Repository[T], bookOf func(T) int64, bookID int64, id *int64, field string) error {
	if id == nil {
		return nil
	}
	_, err := inBook(ctx, repo, bookOf, bookID, *id, field)
	return err
}
