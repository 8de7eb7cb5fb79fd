package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"

	"mozhi/pkg/domain"
)

// openSQLiteGormStore runs the GORM schema on a pure-Go SQLite file so the
// model tags (foreign keys, cascades, uniques, checks) are exercised without
// a database server.
func openSQLiteGormStore(t *testing.T) *GormStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "world.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	s, err := openGormStore(sqlite.Open(dsn), "sqlite", GormStoreOptions{
		PoolSize:    1,
		PoolTimeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteGormStoreRoundTrip(t *testing.T) {
	s := openSQLiteGormStore(t)
	ctx := context.Background()
	user, book := seedBook(t, s)
	seedWorld(t, s, user, book)
	assertWorldSeeded(t, s, book.ID)

	acqs, err := s.Acquisitions().List(ctx, ListOptions{BookID: book.ID})
	if err != nil {
		t.Fatalf("list acquisitions: %v", err)
	}
	kinds := map[string]bool{}
	for _, a := range acqs {
		if a.Target == nil {
			t.Fatalf("acquisition %d lost its target", a.ID)
		}
		kinds[a.Target.TargetType()] = true
	}
	if len(kinds) != 3 {
		t.Fatalf("expected all three target kinds, got %v", kinds)
	}

	chars, _ := s.Characters().List(ctx, ListOptions{BookID: book.ID, Limit: 1})
	if len(chars) != 1 {
		t.Fatalf("expected one character page, got %d", len(chars))
	}
	c := chars[0]
	age := 17
	c.Age = &age
	c.Alias = strPtr("Little Feng")
	if err := s.Characters().Update(ctx, &c); err != nil {
		t.Fatalf("update character: %v", err)
	}
	got, ok, err := s.Characters().Get(ctx, c.ID)
	if err != nil || !ok || got.Age == nil || *got.Age != 17 || got.Alias == nil {
		t.Fatalf("round trip mismatch: ok=%v err=%v %#v", ok, err, got)
	}
	got.Alias = nil
	if err := s.Characters().Update(ctx, &got); err != nil {
		t.Fatalf("clear alias: %v", err)
	}
	if again, _, _ := s.Characters().Get(ctx, c.ID); again.Alias != nil {
		t.Fatalf("full-row update should clear alias")
	}

	missing := domain.Character{ID: 9999, BookID: book.ID, Name: "ghost"}
	if err := s.Characters().Update(ctx, &missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Characters().Delete(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}
}

func TestSQLiteGormStoreConstraints(t *testing.T) {
	s := openSQLiteGormStore(t)
	ctx := context.Background()
	user, book := seedBook(t, s)

	dup := domain.Book{UserID: user.ID, Name: "Other", Slug: book.Slug}
	if err := s.Books().Create(ctx, &dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	orphan := domain.Character{BookID: book.ID + 1000, Name: "orphan"}
	if err := s.Characters().Create(ctx, &orphan); !errors.Is(err, ErrForeignKey) {
		t.Fatalf("expected ErrForeignKey, got %v", err)
	}
	kind := domain.BeastType{BookID: book.ID, Name: "Thunder Wolf"}
	if err := s.BeastTypes().Create(ctx, &kind); err != nil {
		t.Fatalf("create beast type: %v", err)
	}
	again := domain.BeastType{BookID: book.ID, Name: "Thunder Wolf"}
	if err := s.BeastTypes().Create(ctx, &again); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate beast type, got %v", err)
	}
	bad := domain.Location{BookID: book.ID, Name: "Nowhere", Level: "hamlet"}
	if err := s.Locations().Create(ctx, &bad); err == nil {
		t.Fatalf("level check should reject %q", bad.Level)
	}
}

func TestSQLiteGormStoreCascadeAndSetNull(t *testing.T) {
	s := openSQLiteGormStore(t)
	ctx := context.Background()
	user, book := seedBook(t, s)
	seedWorld(t, s, user, book)

	root := domain.Location{BookID: book.ID, Name: "A", Level: domain.LevelPlanet}
	parent := domain.Location{BookID: book.ID, Name: "P", Level: domain.LevelGalaxy}
	for _, l := range []*domain.Location{&root, &parent} {
		if err := s.Locations().Create(ctx, l); err != nil {
			t.Fatalf("create location: %v", err)
		}
	}
	child := domain.Location{BookID: book.ID, Name: "A", Level: domain.LevelPlanet, ParentID: &parent.ID}
	if err := s.Locations().Create(ctx, &child); err != nil {
		t.Fatalf("create child: %v", err)
	}
	if err := s.Locations().Delete(ctx, parent.ID); err != nil {
		t.Fatalf("delete parent with a same-named child: %v", err)
	}
	if got, _, _ := s.Locations().Get(ctx, child.ID); got.ParentID != nil {
		t.Fatalf("child should be detached, parent=%v", *got.ParentID)
	}

	chars, _ := s.Characters().List(ctx, ListOptions{BookID: book.ID})
	owner := chars[0]
	if err := s.Characters().Delete(ctx, owner.ID); err != nil {
		t.Fatalf("delete character: %v", err)
	}
	pets, _ := s.BeastPets().List(ctx, ListOptions{BookID: book.ID})
	if len(pets) != 1 || pets[0].OwnerCharacterID != nil {
		t.Fatalf("pet owner should be set null: %#v", pets)
	}
	if rels, _ := s.Relationships().List(ctx, ListOptions{BookID: book.ID}); len(rels) != 0 {
		t.Fatalf("relationships should cascade with their character, got %d", len(rels))
	}

	if err := s.Users().Delete(ctx, user.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if books, _ := s.Books().List(ctx, ListOptions{}); len(books) != 0 {
		t.Fatalf("books should cascade, got %d", len(books))
	}
	assertWorldGone(t, s, book.ID)
}

func TestSQLiteGormStoreWithSessionRollsBack(t *testing.T) {
	s := openSQLiteGormStore(t)
	ctx := context.Background()
	_, book := seedBook(t, s)

	boom := errors.New("boom")
	err := s.WithSession(ctx, func(tx Store) error {
		c := domain.Character{BookID: book.ID, Name: "Temp"}
		if err := tx.Characters().Create(ctx, &c); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if chars, _ := s.Characters().List(ctx, ListOptions{BookID: book.ID}); len(chars) != 0 {
		t.Fatalf("session should roll back, got %d", len(chars))
	}
}
