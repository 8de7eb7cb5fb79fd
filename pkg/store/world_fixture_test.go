package store

import (
	"context"
	"testing"

	"mozhi/pkg/domain"
)

// seedWorld creates one row of every book-scoped entity in book, including an
// acquisition of each target kind.
func seedWorld(t *testing.T, s Store, user domain.User, book domain.Book) {
	t.Helper()
	ctx := context.Background()
	must := func(what string, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("create %s: %v", what, err)
		}
	}

	a := domain.Character{BookID: book.ID, Name: "Lin Feng"}
	must("character", s.Characters().Create(ctx, &a))
	b := domain.Character{BookID: book.ID, Name: "Su Yao"}
	must("character", s.Characters().Create(ctx, &b))
	must("relationship", s.Relationships().Create(ctx, &domain.CharacterRelationship{
		BookID: book.ID, SourceID: a.ID, TargetID: b.ID, RelationType: strPtr("rival"),
	}))

	planet := domain.Location{BookID: book.ID, Name: "Tianyuan", Level: domain.LevelPlanet}
	must("location", s.Locations().Create(ctx, &planet))
	city := domain.Location{BookID: book.ID, Name: "Qingyun", Level: domain.LevelCity, ParentID: &planet.ID}
	must("location", s.Locations().Create(ctx, &city))

	sect := domain.Organization{BookID: book.ID, Name: "Azure Cloud Sect", LocationID: &city.ID}
	must("organization", s.Organizations().Create(ctx, &sect))
	hall := domain.Organization{BookID: book.ID, Name: "Sword Hall"}
	must("organization", s.Organizations().Create(ctx, &hall))
	must("membership", s.Memberships().Create(ctx, &domain.Membership{
		BookID: book.ID, CharacterID: a.ID, OrganizationID: sect.ID,
	}))
	must("org hierarchy", s.OrgHierarchies().Create(ctx, &domain.OrganizationHierarchy{
		BookID: book.ID, ParentOrgID: sect.ID, ChildOrgID: hall.ID,
	}))

	def := domain.QualityDef{UserID: user.ID, BookID: book.ID, Code: "heaven", Name: "Heaven Grade", Rank: 7}
	must("quality def", s.QualityDefs().Create(ctx, &def))
	rare := domain.QualityRare
	item := domain.ConceptItem{BookID: book.ID, Name: "Nine Swords Art", Kind: "technique", Quality: &rare, QualityDefID: &def.ID}
	must("concept item", s.ConceptItems().Create(ctx, &item))

	event := domain.TimelineEvent{BookID: book.ID, Title: "Sect Trial", LocationID: &city.ID}
	must("event", s.Events().Create(ctx, &event))
	must("participant", s.Participants().Create(ctx, &domain.EventParticipant{
		BookID: book.ID, EventID: event.ID, CharacterID: a.ID,
	}))

	kind := domain.BeastType{BookID: book.ID, Name: "Thunder Wolf"}
	must("beast type", s.BeastTypes().Create(ctx, &kind))
	pet := domain.BeastPet{BookID: book.ID, Name: "Xiaobai", TypeID: &kind.ID, QualityDefID: &def.ID, OwnerCharacterID: &a.ID}
	must("beast pet", s.BeastPets().Create(ctx, &pet))

	targets := []domain.AcquisitionTarget{
		domain.ConceptRef{ConceptItemID: item.ID},
		domain.BeastRef{BeastPetID: pet.ID},
		domain.CustomName{Name: "Jade Slip"},
	}
	for _, target := range targets {
		must("acquisition", s.Acquisitions().Create(ctx, &domain.EventAcquisition{
			BookID: book.ID, EventID: event.ID, CharacterID: a.ID,
			Kind: domain.AcquireTreasure, Target: target,
		}))
	}
}

// bookRowCounts counts the rows of every book-scoped table in book.
func bookRowCounts(t *testing.T, s Store, bookID int64) map[string]int {
	t.Helper()
	opts := ListOptions{BookID: bookID}
	counts := map[string]int{}
	count := func(table string, n int, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("list %s: %v", table, err)
		}
		counts[table] = n
	}
	ctx := context.Background()
	chars, err := s.Characters().List(ctx, opts)
	count(tblCharacters, len(chars), err)
	rels, err := s.Relationships().List(ctx, opts)
	count(tblRelationships, len(rels), err)
	locs, err := s.Locations().List(ctx, opts)
	count(tblLocations, len(locs), err)
	orgs, err := s.Organizations().List(ctx, opts)
	count(tblOrganizations, len(orgs), err)
	members, err := s.Memberships().List(ctx, opts)
	count(tblMemberships, len(members), err)
	edges, err := s.OrgHierarchies().List(ctx, opts)
	count(tblHierarchies, len(edges), err)
	defs, err := s.QualityDefs().List(ctx, opts)
	count(tblQualityDefs, len(defs), err)
	items, err := s.ConceptItems().List(ctx, opts)
	count(tblConceptItems, len(items), err)
	events, err := s.Events().List(ctx, opts)
	count(tblEvents, len(events), err)
	parts, err := s.Participants().List(ctx, opts)
	count(tblParticipants, len(parts), err)
	kinds, err := s.BeastTypes().List(ctx, opts)
	count(tblBeastTypes, len(kinds), err)
	pets, err := s.BeastPets().List(ctx, opts)
	count(tblBeastPets, len(pets), err)
	acqs, err := s.Acquisitions().List(ctx, opts)
	count(tblAcquisitions, len(acqs), err)
	return counts
}

// assertWorldGone fails unless every book-scoped table is empty for bookID.
func assertWorldGone(t *testing.T, s Store, bookID int64) {
	t.Helper()
	for table, n := range bookRowCounts(t, s, bookID) {
		if n != 0 {
			t.Fatalf("%s should cascade, %d rows left", table, n)
		}
	}
}

func assertWorldSeeded(t *testing.T, s Store, bookID int64) {
	t.Helper()
	want := map[string]int{
		tblCharacters: 2, tblRelationships: 1, tblLocations: 2, tblOrganizations: 2,
		tblMemberships: 1, tblHierarchies: 1, tblQualityDefs: 1, tblConceptItems: 1,
		tblEvents: 1, tblParticipants: 1, tblBeastTypes: 1, tblBeastPets: 1, tblAcquisitions: 3,
	}
	got := bookRowCounts(t, s, bookID)
	for table, n := range want {
		if got[table] != n {
			t.Fatalf("%s: got %d rows, want %d", table, got[table], n)
		}
	}
}
