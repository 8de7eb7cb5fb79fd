package store

import (
	"context"
	"errors"

	"mozhi/pkg/domain"
)

var (
	// ErrNotFound is returned when a row addressed by id does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a uniqueness constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrForeignKey is returned when a write references a missing parent row.
	ErrForeignKey = errors.New("referenced record does not exist")
	// ErrCheckViolation is returned when a CHECK constraint rejects a write.
	ErrCheckViolation = errors.New("check constraint violated")
)

// ListOptions narrows a List call. Zero values mean "no filter".
type ListOptions struct {
	BookID int64
	UserID int64
	Limit  int
	Offset int
}

// SuggestionQuery filters the global suggestion dictionary.
type SuggestionQuery struct {
	Type     string
	Language string
	// NameContains matches name or alias, case-insensitively.
	NameContains string
	Limit        int
	Offset       int
}

// Repository is the persistence contract shared by every entity. Update is a
// full-row replacement keyed by the entity id.
type Repository[T any] interface {
	Create(ctx context.Context, v *T) error
	Get(ctx context.Context, id int64) (T, bool, error)
	List(ctx context.Context, opts ListOptions) ([]T, error)
	Update(ctx context.Context, v *T) error
	Delete(ctx context.Context, id int64) error
}

// SuggestionRepository adds dictionary search to the generic repository.
type SuggestionRepository interface {
	Repository[domain.CommonSuggestion]
	Search(ctx context.Context, q SuggestionQuery) ([]domain.CommonSuggestion, error)
	// Upsert inserts or replaces the entry keyed by (type, name).
	Upsert(ctx context.Context, v *domain.CommonSuggestion) error
}

// Store defines persistence for users, books and all world entities.
type Store interface {
	Users() Repository[domain.User]
	Books() Repository[domain.Book]
	Characters() Repository[domain.Character]
	Relationships() Repository[domain.CharacterRelationship]
	Locations() Repository[domain.Location]
	Organizations() Repository[domain.Organization]
	Memberships() Repository[domain.Membership]
	OrgHierarchies() Repository[domain.OrganizationHierarchy]
	ConceptItems() Repository[domain.ConceptItem]
	QualityDefs() Repository[domain.QualityDef]
	Events() Repository[domain.TimelineEvent]
	Participants() Repository[domain.EventParticipant]
	Acquisitions() Repository[domain.EventAcquisition]
	BeastTypes() Repository[domain.BeastType]
	BeastPets() Repository[domain.BeastPet]
	Suggestions() SuggestionRepository

	// WithSession runs fn as one unit of work. The Store passed to fn is
	// bound to a single pooled connection; a returned error or a panic rolls
	// the work back before the connection goes back to the pool.
	WithSession(ctx context.Context, fn func(Store) error) error
	// Check performs a trivial round-trip query and reports whether the
	// store answered as expected.
	Check(ctx context.Context) (bool, error)
	Close() error
}
