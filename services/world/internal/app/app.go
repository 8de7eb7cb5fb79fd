package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"mozhi/internal/util"
	"mozhi/pkg/domain"
	"mozhi/pkg/storage"
	"mozhi/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL   string
	StoreOptions  []store.GormStoreOption
	Store         store.Store
	Objects       storage.ObjectStore
	CoverMaxBytes int64
	PresignExpiry time.Duration
}

// App is the core application service wiring together storage and domain logic.
type App struct {
	store         store.Store
	objects       storage.ObjectStore
	coverMaxBytes int64
	presignExpiry time.Duration

	Characters     *Scoped[domain.Character]
	Relationships  *Scoped[domain.CharacterRelationship]
	Locations      *Scoped[domain.Location]
	Organizations  *Scoped[domain.Organization]
	Memberships    *Scoped[domain.Membership]
	OrgHierarchies *Scoped[domain.OrganizationHierarchy]
	ConceptItems   *Scoped[domain.ConceptItem]
	QualityDefs    *Scoped[domain.QualityDef]
	Events         *Scoped[domain.TimelineEvent]
	Participants   *Scoped[domain.EventParticipant]
	Acquisitions   *Scoped[domain.EventAcquisition]
	BeastTypes     *Scoped[domain.BeastType]
	BeastPets      *Scoped[domain.BeastPet]
}

// New constructs the application. A nil Config.Store opens a GORM store on
// Config.DatabaseURL. A nil Config.Objects disables cover storage.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		var err error
		dataStore, err = store.NewGormStore(cfg.DatabaseURL, cfg.StoreOptions...)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
	}
	coverMax := cfg.CoverMaxBytes
	if coverMax <= 0 {
		coverMax = 5 << 20
	}
	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	a := &App{
		store:         dataStore,
		objects:       cfg.Objects,
		coverMaxBytes: coverMax,
		presignExpiry: expiry,
	}
	a.registerResources()
	return a, nil
}

// Store exposes the underlying store.
func (a *App) Store() store.Store { return a.store }

// CoverStorageEnabled reports whether cover uploads can be served.
func (a *App) CoverStorageEnabled() bool { return a.objects != nil }

// CoverMaxBytes is the largest accepted cover upload.
func (a *App) CoverMaxBytes() int64 { return a.coverMaxBytes }

// Close releases the store.
func (a *App) Close() error { return a.store.Close() }

// CheckDB runs a trivial round trip against the store.
func (a *App) CheckDB(ctx context.Context) (bool, error) {
	return a.store.Check(ctx)
}

// Page bounds a list call. Zero Limit means no limit.
type Page struct {
	Limit  int
	Offset int
}

// Users

func (a *App) ListUsers(ctx context.Context, page Page) ([]domain.User, error) {
	var out []domain.User
	err := a.store.WithSession(ctx, func(tx store.Store) error {
		var err error
		out, err = tx.Users().List(ctx, store.ListOptions{Limit: page.Limit, Offset: page.Offset})
		return err
	})
	if out == nil {
		out = []domain.User{}
	}
	return out, err
}

func (a *App) GetUser(ctx context.Context, id int64) (domain.User, error) {
	var out domain.User
	err := a.store.WithSession(ctx, func(tx store.Store) error {
		var err error
		out, err = loadUser(ctx, tx, id)
		return err
	})
	return out, err
}

func (a *App) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	u.ID = 0
	err := a.store.WithSession(ctx, func(tx store.Store) error {
		return storeError(tx.Users().Create(ctx, &u), "User")
	})
	return u, err
}

func (a *App) UpdateUser(ctx context.Context, id int64, u domain.User) (domain.User, error) {
	u.ID = id
	err := a.store.WithSession(ctx, func(tx store.Store) error {
		if _, err := loadUser(ctx, tx, id); err != nil {
			return err
		}
		return storeError(tx.Users().Update(ctx, &u), "User")
	})
	return u, err
}

// DeleteUser removes a user with all their books, then drops the covers of
// those books.
func (a *App) DeleteUser(ctx context.Context, id int64) error {
	var bookIDs []int64
	err := a.store.WithSession(ctx, func(tx store.Store) error {
		if _, err := loadUser(ctx, tx, id); err != nil {
			return err
		}
		books, err := tx.Books().List(ctx, store.ListOptions{UserID: id})
		if err != nil {
			return err
		}
		for _, b := range books {
			bookIDs = append(bookIDs, b.ID)
		}
		return storeError(tx.Users().Delete(ctx, id), "User")
	})
	if err != nil {
		return err
	}
	for _, bookID := range bookIDs {
		a.removeCover(ctx, bookID)
	}
	return nil
}

func loadUser(ctx context.Context, tx store.Store, id int64) (domain.User, error) {
	u, ok, err := tx.Users().Get(ctx, id)
	if err != nil {
		return u, err
	}
	if !ok {
		return u, notFound("User")
	}
	return u, nil
}

// Books

// ListBooks lists books, narrowed to one owner when userID is positive.
func (a *App) ListBooks(ctx context.Context, userID int64, page Page) ([]domain.Book, error) {
	var out []domain.Book
	err := a.store.WithSession(ctx, func(tx store.Store) error {
		var err error
		out, err = tx.Books().List(ctx, store.ListOptions{UserID: userID, Limit: page.Limit, Offset: page.Offset})
		return err
	})
	if out == nil {
		out = []domain.Book{}
	}
	return out, err
}

func (a *App) GetBook(ctx context.Context, id int64) (domain.Book, error) {
	var out domain.Book
	err := a.store.WithSession(ctx, func(tx store.Store) error {
		var err error
		out, err = loadBook(ctx, tx, id)
		return err
	})
	return out, err
}

func (a *App) CreateBook(ctx context.Context, b domain.Book) (domain.Book, error) {
	b.ID = 0
	err := a.store.WithSession(ctx, func(tx store.Store) error {
		if err := requireUser(ctx, tx, b.UserID); err != nil {
			return err
		}
		return storeError(tx.Books().Create(ctx, &b), "Book")
	})
	return b, err
}

func (a *App) UpdateBook(ctx context.Context, id int64, b domain.Book) (domain.Book, error) {
	b.ID = id
	err := a.store.WithSession(ctx, func(tx store.Store) error {
		if _, err := loadBook(ctx, tx, id); err != nil {
			return err
		}
		if err := requireUser(ctx, tx, b.UserID); err != nil {
			return err
		}
		return storeError(tx.Books().Update(ctx, &b), "Book")
	})
	return b, err
}

// DeleteBook removes a book and everything scoped to it. The stored cover
// is removed afterwards on a best-effort basis.
func (a *App) DeleteBook(ctx context.Context, id int64) error {
	err := a.store.WithSession(ctx, func(tx store.Store) error {
		if _, err := loadBook(ctx, tx, id); err != nil {
			return err
		}
		return storeError(tx.Books().Delete(ctx, id), "Book")
	})
	if err != nil {
		return err
	}
	a.removeCover(ctx, id)
	return nil
}

// UploadCover stores a cover image for a book and points cover_url at the
// cover endpoint.
func (a *App) UploadCover(ctx context.Context, bookID int64, r io.Reader, size int64, contentType string) (domain.Book, error) {
	if a.objects == nil {
		return domain.Book{}, ErrCoverStorageDisabled
	}
	ct, ok := storage.CoverContentType(contentType)
	if !ok {
		return domain.Book{}, ErrCoverType
	}
	if size <= 0 || size > a.coverMaxBytes {
		return domain.Book{}, ErrCoverTooLarge
	}
	var out domain.Book
	err := a.store.WithSession(ctx, func(tx store.Store) error {
		book, err := loadBook(ctx, tx, bookID)
		if err != nil {
			return err
		}
		if err := a.objects.Put(ctx, storage.CoverKey(bookID), r, size, ct); err != nil {
			return err
		}
		url := fmt.Sprintf("/books/%d/cover", bookID)
		book.CoverURL = &url
		if err := tx.Books().Update(ctx, &book); err != nil {
			return storeError(err, "Book")
		}
		out = book
		return nil
	})
	return out, err
}

// CoverURL returns a short-lived download URL for a book's cover.
func (a *App) CoverURL(ctx context.Context, bookID int64) (string, error) {
	if a.objects == nil {
		return "", ErrCoverStorageDisabled
	}
	if _, err := a.GetBook(ctx, bookID); err != nil {
		return "", err
	}
	url, err := a.objects.PresignGet(ctx, storage.CoverKey(bookID), a.presignExpiry)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return "", notFound("Cover")
	}
	return url, err
}

func (a *App) removeCover(ctx context.Context, bookID int64) {
	if a.objects == nil {
		return
	}
	if err := a.objects.Delete(ctx, storage.CoverKey(bookID)); err != nil {
		util.LoggerFromContext(ctx).Warn("cover cleanup failed", "book_id", bookID, "err", err)
	}
}

func loadBook(ctx context.Context, tx store.Store, id int64) (domain.Book, error) {
	b, ok, err := tx.Books().Get(ctx, id)
	if err != nil {
		return b, err
	}
	if !ok {
		return b, notFound("Book")
	}
	return b, nil
}

func requireUser(ctx context.Context, tx store.Store, id int64) error {
	_, ok, err := tx.Users().Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return badReference("user_id")
	}
	return nil
}

// Suggestions

func (a *App) SearchSuggestions(ctx context.Context, q store.SuggestionQuery) ([]domain.CommonSuggestion, error) {
	var out []domain.CommonSuggestion
	err := a.store.WithSession(ctx, func(tx store.Store) error {
		var err error
		out, err = tx.Suggestions().Search(ctx, q)
		return err
	})
	if out == nil {
		out = []domain.CommonSuggestion{}
	}
	return out, err
}

func (a *App) GetSuggestion(ctx context.Context, id int64) (domain.CommonSuggestion, error) {
	var out domain.CommonSuggestion
	err := a.store.WithSession(ctx, func(tx store.Store) error {
		var err error
		out, err = loadSuggestion(ctx, tx, id)
		return err
	})
	return out, err
}

func (a *App) CreateSuggestion(ctx context.Context, s domain.CommonSuggestion) (domain.CommonSuggestion, error) {
	s.ID = 0
	err := a.store.WithSession(ctx, func(tx store.Store) error {
		return storeError(tx.Suggestions().Create(ctx, &s), "Suggestion")
	})
	return s, err
}

func (a *App) UpdateSuggestion(ctx context.Context, id int64, s domain.CommonSuggestion) (domain.CommonSuggestion, error) {
	s.ID = id
	err := a.store.WithSession(ctx, func(tx store.Store) error {
		if _, err := loadSuggestion(ctx, tx, id); err != nil {
			return err
		}
		return storeError(tx.Suggestions().Update(ctx, &s), "Suggestion")
	})
	return s, err
}

func (a *App) DeleteSuggestion(ctx context.Context, id int64) error {
	return a.store.WithSession(ctx, func(tx store.Store) error {
		if _, err := loadSuggestion(ctx, tx, id); err != nil {
			return err
		}
		return storeError(tx.Suggestions().Delete(ctx, id), "Suggestion")
	})
}

func loadSuggestion(ctx context.Context, tx store.Store, id int64) (domain.CommonSuggestion, error) {
	s, ok, err := tx.Suggestions().Get(ctx, id)
	if err != nil {
		return s, err
	}
	if !ok {
		return s, notFound("Suggestion")
	}
	return s, nil
}
