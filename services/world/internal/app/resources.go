package app

import (
	"context"

	"mozhi/pkg/domain"
	"mozhi/pkg/store"
)

func characterBook(v domain.Character) int64 { return v.BookID }
func locationBook(v domain.Location) int64 { return v.BookID }
func organizationBook(v domain.Organization) int64 { return v.BookID }
func eventBook(v domain.TimelineEvent) int64 { return v.BookID }
func conceptBook(v domain.ConceptItem) int64 { return v.BookID }
func qualityDefBook(v domain.QualityDef) int64 { return v.BookID }
func beastTypeBook(v domain.BeastType) int64 { return v.BookID }
func beastPetBook(v domain.BeastPet) int64 { return v.BookID }

func (a *App) registerResources() {
	a.Characters = &Scoped[domain.Character]{store: a.store, res: resource[domain.Character]{
		name: "Character",
		repo: store.Store.Characters,
		keys: func(v *domain.Character) (*int64, *int64) { return &v.ID, &v.BookID },
	}}
	a.Relationships = &Scoped[domain.CharacterRelationship]{store: a.store, res: resource[domain.CharacterRelationship]{
		name:    "Relationship",
		repo:    store.Store.Relationships,
		keys:    func(v *domain.CharacterRelationship) (*int64, *int64) { return &v.ID, &v.BookID },
		prepare: prepareRelationship,
	}}
	a.Locations = &Scoped[domain.Location]{store: a.store, res: resource[domain.Location]{
		name:    "Location",
		repo:    store.Store.Locations,
		keys:    func(v *domain.Location) (*int64, *int64) { return &v.ID, &v.BookID },
		prepare: prepareLocation,
	}}
	a.Organizations = &Scoped[domain.Organization]{store: a.store, res: resource[domain.Organization]{
		name: "Organization",
		repo: store.Store.Organizations,
		keys: func(v *domain.Organization) (*int64, *int64) { return &v.ID, &v.BookID },
		prepare: func(ctx context.Context, tx store.Store, book domain.Book, v *domain.Organization) error {
			return optionalInBook(ctx, tx.Locations(), locationBook, book.ID, v.LocationID, "location_id")
		},
	}}
	a.Memberships = &Scoped[domain.Membership]{store: a.store, res: resource[domain.Membership]{
		name: "Membership",
		repo: store.Store.Memberships,
		keys: func(v *domain.Membership) (*int64, *int64) { return &v.ID, &v.BookID },
		prepare: func(ctx context.Context, tx store.Store, book domain.Book, v *domain.Membership) error {
			if _, err := inBook(ctx, tx.Characters(), characterBook, book.ID, v.CharacterID, "character_id"); err != nil {
				return err
			}
			_, err := inBook(ctx, tx.Organizations(), organizationBook, book.ID, v.OrganizationID, "organization_id")
			return err
		},
	}}
	a.OrgHierarchies = &Scoped[domain.OrganizationHierarchy]{store: a.store, res: resource[domain.OrganizationHierarchy]{
		name:    "Organization hierarchy",
		repo:    store.Store.OrgHierarchies,
		keys:    func(v *domain.OrganizationHierarchy) (*int64, *int64) { return &v.ID, &v.BookID },
		prepare: prepareOrgHierarchy,
	}}
	a.ConceptItems = &Scoped[domain.ConceptItem]{store: a.store, res: resource[domain.ConceptItem]{
		name: "Concept item",
		repo: store.Store.ConceptItems,
		keys: func(v *domain.ConceptItem) (*int64, *int64) { return &v.ID, &v.BookID },
		prepare: func(ctx context.Context, tx store.Store, book domain.Book, v *domain.ConceptItem) error {
			v.EffectiveQuality = nil
			return optionalInBook(ctx, tx.QualityDefs(), qualityDefBook, book.ID, v.QualityDefID, "quality_def_id")
		},
		beforeDelete: func(ctx context.Context, tx store.Store, v domain.ConceptItem) error {
			return detachAcquisitions(ctx, tx, v.BookID, v.Name, func(t domain.AcquisitionTarget) bool {
				ref, ok := t.(domain.ConceptRef)
				return ok && ref.ConceptItemID == v.ID
			})
		},
		decorate: func(ctx context.Context, tx store.Store, v *domain.ConceptItem) error {
			q, err := effectiveQuality(ctx, tx, v.Quality, v.QualityDefID)
			v.EffectiveQuality = q
			return err
		},
	}}
	a.QualityDefs = &Scoped[domain.QualityDef]{store: a.store, res: resource[domain.QualityDef]{
		name: "Quality definition",
		repo: store.Store.QualityDefs,
		keys: func(v *domain.QualityDef) (*int64, *int64) { return &v.ID, &v.BookID },
		prepare: func(_ context.Context, _ store.Store, book domain.Book, v *domain.QualityDef) error {
			if v.UserID == 0 {
				v.UserID = book.UserID
			}
			if v.UserID != book.UserID {
				return invalidField("user_id", "must be the owner of the book", "value_error.owner")
			}
			return nil
		},
	}}
	a.Events = &Scoped[domain.TimelineEvent]{store: a.store, res: resource[domain.TimelineEvent]{
		name: "Event",
		repo: store.Store.Events,
		keys: func(v *domain.TimelineEvent) (*int64, *int64) { return &v.ID, &v.BookID },
		prepare: func(ctx context.Context, tx store.Store, book domain.Book, v *domain.TimelineEvent) error {
			return optionalInBook(ctx, tx.Locations(), locationBook, book.ID, v.LocationID, "location_id")
		},
	}}
	a.Participants = &Scoped[domain.EventParticipant]{store: a.store, res: resource[domain.EventParticipant]{
		name: "Participant",
		repo: store.Store.Participants,
		keys: func(v *domain.EventParticipant) (*int64, *int64) { return &v.ID, &v.BookID },
		prepare: func(ctx context.Context, tx store.Store, book domain.Book, v *domain.EventParticipant) error {
			if _, err := inBook(ctx, tx.Events(), eventBook, book.ID, v.EventID, "event_id"); err != nil {
				return err
			}
			_, err := inBook(ctx, tx.Characters(), characterBook, book.ID, v.CharacterID, "character_id")
			return err
		},
	}}
	a.Acquisitions = &Scoped[domain.EventAcquisition]{store: a.store, res: resource[domain.EventAcquisition]{
		name:    "Acquisition",
		repo:    store.Store.Acquisitions,
		keys:    func(v *domain.EventAcquisition) (*int64, *int64) { return &v.ID, &v.BookID },
		prepare: prepareAcquisition,
	}}
	a.BeastTypes = &Scoped[domain.BeastType]{store: a.store, res: resource[domain.BeastType]{
		name: "Beast type",
		repo: store.Store.BeastTypes,
		keys: func(v *domain.BeastType) (*int64, *int64) { return &v.ID, &v.BookID },
	}}
	a.BeastPets = &Scoped[domain.BeastPet]{store: a.store, res: resource[domain.BeastPet]{
		name: "Beast pet",
		repo: store.Store.BeastPets,
		keys: func(v *domain.BeastPet) (*int64, *int64) { return &v.ID, &v.BookID },
		prepare: func(ctx context.Context, tx store.Store, book domain.Book, v *domain.BeastPet) error {
			v.EffectiveQuality = nil
			if err := optionalInBook(ctx, tx.BeastTypes(), beastTypeBook, book.ID, v.TypeID, "type_id"); err != nil {
				return err
			}
			if err := optionalInBook(ctx, tx.QualityDefs(), qualityDefBook, book.ID, v.QualityDefID, "quality_def_id"); err != nil {
				return err
			}
			return optionalInBook(ctx, tx.Characters(), characterBook, book.ID, v.OwnerCharacterID, "owner_character_id")
		},
		beforeDelete: func(ctx context.Context, tx store.Store, v domain.BeastPet) error {
			return detachAcquisitions(ctx, tx, v.BookID, v.Name, func(t domain.AcquisitionTarget) bool {
				ref, ok := t.(domain.BeastRef)
				return ok && ref.BeastPetID == v.ID
			})
		},
		decorate: func(ctx context.Context, tx store.Store, v *domain.BeastPet) error {
			q, err := effectiveQuality(ctx, tx, v.Quality, v.QualityDefID)
			v.EffectiveQuality = q
			return err
		},
	}}
}

func prepareRelationship(ctx context.Context, tx store.Store, book domain.Book, v *domain.CharacterRelationship) error {
	if _, err := inBook(ctx, tx.Characters(), characterBook, book.ID, v.SourceID, "source_id"); err != nil {
		return err
	}
	_, err := inBook(ctx, tx.Characters(), characterBook, book.ID, v.TargetID, "target_id")
	return err
}

func prepareLocation(ctx context.Context, tx store.Store, book domain.Book, v *domain.Location) error {
	if v.ParentID == nil {
		// Unique indexes treat NULL parents as distinct, so root names are
		// checked here. Roots left by a parent delete may share a name.
		rows, err := tx.Locations().List(ctx, store.ListOptions{BookID: book.ID})
		if err != nil {
			return err
		}
		for _, l := range rows {
			if l.ID != v.ID && l.ParentID == nil && l.Name == v.Name && l.Level == v.Level {
				return conflict("Location already exists")
			}
		}
		return nil
	}
	if v.ID != 0 && *v.ParentID == v.ID {
		return invalidField("parent_id", "a location cannot be its own parent", "value_error.cycle")
	}
	parent, err := inBook(ctx, tx.Locations(), locationBook, book.ID, *v.ParentID, "parent_id")
	if err != nil {
		return err
	}
	if v.ID == 0 {
		return nil
	}
	seen := map[int64]bool{}
	for cur := parent; ; {
		if cur.ID == v.ID {
			return invalidField("parent_id", "a location cannot be its own ancestor", "value_error.cycle")
		}
		if cur.ParentID == nil || seen[cur.ID] {
			return nil
		}
		seen[cur.ID] = true
		next, ok, err := tx.Locations().Get(ctx, *cur.ParentID)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		cur = next
	}
}

func prepareOrgHierarchy(ctx context.Context, tx store.Store, book domain.Book, v *domain.OrganizationHierarchy) error {
	if _, err := inBook(ctx, tx.Organizations(), organizationBook, book.ID, v.ParentOrgID, "parent_org_id"); err != nil {
		return err
	}
	if _, err := inBook(ctx, tx.Organizations(), organizationBook, book.ID, v.ChildOrgID, "child_org_id"); err != nil {
		return err
	}
	if v.ParentOrgID == v.ChildOrgID {
		return invalidField("child_org_id", "an organization cannot contain itself", "value_error.cycle")
	}
	edges, err := tx.OrgHierarchies().List(ctx, store.ListOptions{BookID: book.ID})
	if err != nil {
		return err
	}
	children := map[int64][]int64{}
	for _, e := range edges {
		if e.ID == v.ID {
			continue
		}
		children[e.ParentOrgID] = append(children[e.ParentOrgID], e.ChildOrgID)
	}
	// The new edge closes a cycle when the parent is already reachable from
	// the child.
	seen := map[int64]bool{}
	stack := []int64{v.ChildOrgID}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == v.ParentOrgID {
			return invalidField("child_org_id", "hierarchy would contain a cycle", "value_error.cycle")
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		stack = append(stack, children[cur]...)
	}
	return nil
}

func prepareAcquisition(ctx context.Context, tx store.Store, book domain.Book, v *domain.EventAcquisition) error {
	if _, err := inBook(ctx, tx.Events(), eventBook, book.ID, v.EventID, "event_id"); err != nil {
		return err
	}
	if _, err := inBook(ctx, tx.Characters(), characterBook, book.ID, v.CharacterID, "character_id"); err != nil {
		return err
	}
	switch t := v.Target.(type) {
	case domain.ConceptRef:
		_, err := inBook(ctx, tx.ConceptItems(), conceptBook, book.ID, t.ConceptItemID, "concept_item_id")
		return err
	case domain.BeastRef:
		_, err := inBook(ctx, tx.BeastPets(), beastPetBook, book.ID, t.BeastPetID, "beast_pet_id")
		return err
	case domain.CustomName:
		if _, err := domain.NewAcquisitionTarget(nil, nil, &t.Name); err != nil {
			return invalidField("custom_name", err.Error(), "value_error.max")
		}
		return nil
	}
	return invalidField("target", domain.ErrAcquisitionTarget.Error(), "value_error.target")
}

// detachAcquisitions rewrites acquisitions whose target matches into custom
// name acquisitions carrying name, so they survive the target's deletion.
func detachAcquisitions(ctx context.Context, tx store.Store, bookID int64, name string, match func(domain.AcquisitionTarget) bool) error {
	rows, err := tx.Acquisitions().List(ctx, store.ListOptions{BookID: bookID})
	if err != nil {
		return err
	}
	for _, acq := range rows {
		if !match(acq.Target) {
			continue
		}
		acq.Target = domain.CustomName{Name: name}
		if err := tx.Acquisitions().Update(ctx, &acq); err != nil {
			return err
		}
	}
	return nil
}

func effectiveQuality(ctx context.Context, tx store.Store, system *domain.Quality, defID *int64) (*domain.ResolvedQuality, error) {
	if defID == nil {
		return domain.ResolveQuality(system, nil), nil
	}
	def, ok, err := tx.QualityDefs().Get(ctx, *defID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return domain.ResolveQuality(system, nil), nil
	}
	return domain.ResolveQuality(system, &def), nil
}

// Navigation

// LocationChildren lists the direct children of a location.
func (a *App) LocationChildren(ctx context.Context, bookID, id int64) ([]domain.Location, error) {
	if _, err := a.Locations.Get(ctx, bookID, id); err != nil {
		return nil, err
	}
	return a.Locations.Filter(ctx, bookID, func(l domain.Location) bool {
		return l.ParentID != nil && *l.ParentID == id
	})
}

// LocationAncestors lists the ancestors of a location, nearest first.
func (a *App) LocationAncestors(ctx context.Context, bookID, id int64) ([]domain.Location, error) {
	out := []domain.Location{}
	err := a.store.WithSession(ctx, func(tx store.Store) error {
		if _, err := loadBook(ctx, tx, bookID); err != nil {
			return err
		}
		cur, err := a.Locations.load(ctx, tx, bookID, id)
		if err != nil {
			return err
		}
		seen := map[int64]bool{cur.ID: true}
		for cur.ParentID != nil && !seen[*cur.ParentID] {
			parent, ok, err := tx.Locations().Get(ctx, *cur.ParentID)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			seen[parent.ID] = true
			out = append(out, parent)
			cur = parent
		}
		return nil
	})
	return out, err
}

// CharacterRelationships lists relationships where the character is either
// the source or the target.
func (a *App) CharacterRelationships(ctx context.Context, bookID, characterID int64) ([]domain.CharacterRelationship, error) {
	if _, err := a.Characters.Get(ctx, bookID, characterID); err != nil {
		return nil, err
	}
	return a.Relationships.Filter(ctx, bookID, func(r domain.CharacterRelationship) bool {
		return r.SourceID == characterID || r.TargetID == characterID
	})
}

func (a *App) EventParticipants(ctx context.Context, bookID, eventID int64) ([]domain.EventParticipant, error) {
	if _, err := a.Events.Get(ctx, bookID, eventID); err != nil {
		return nil, err
	}
	return a.Participants.Filter(ctx, bookID, func(p domain.EventParticipant) bool { return p.EventID == eventID })
}

func (a *App) EventAcquisitions(ctx context.Context, bookID, eventID int64) ([]domain.EventAcquisition, error) {
	if _, err := a.Events.Get(ctx, bookID, eventID); err != nil {
		return nil, err
	}
	return a.Acquisitions.Filter(ctx, bookID, func(acq domain.EventAcquisition) bool { return acq.EventID == eventID })
}
