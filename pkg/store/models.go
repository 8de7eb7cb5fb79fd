package store

import "mozhi/pkg/domain"

// GORM models used for persistence. Association fields exist only to declare
// foreign keys and their delete behaviour; they are never loaded.

type UserModel struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"size:64;not null;index"`
}

func (UserModel) TableName() string { return "users" }

type BookModel struct {
	ID              int64      `gorm:"primaryKey;autoIncrement"`
	UserID          int64      `gorm:"not null;uniqueIndex:uq_book_user_slug,priority:1;uniqueIndex:uq_book_user_name,priority:1"`
	User            *UserModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Name            string     `gorm:"size:128;not null;uniqueIndex:uq_book_user_name,priority:2"`
	Slug            string     `gorm:"size:128;not null;uniqueIndex:uq_book_user_slug,priority:2"`
	Subtitle        *string    `gorm:"size:256"`
	ProtagonistName *string    `gorm:"size:128"`
	Description     *string    `gorm:"type:text"`
	CoverURL        *string    `gorm:"size:256"`
	Status          *string    `gorm:"size:32"`
	Tags            *string    `gorm:"size:256"`
}

func (BookModel) TableName() string { return "books" }

type CharacterModel struct {
	ID          int64      `gorm:"primaryKey;autoIncrement"`
	BookID      int64      `gorm:"not null;index"`
	Book        *BookModel `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
	Name        string     `gorm:"size:64;not null;index"`
	Alias       *string    `gorm:"size:128"`
	Gender      *string    `gorm:"size:16"`
	Age         *int
	Title       *string `gorm:"size:128"`
	Appearance  *string `gorm:"type:text"`
	Personality *string `gorm:"type:text"`
	Background  *string `gorm:"type:text"`
	Skills      *string `gorm:"type:text"`
}

func (CharacterModel) TableName() string { return "characters" }

type CharacterRelationshipModel struct {
	ID           int64           `gorm:"primaryKey;autoIncrement"`
	BookID       int64           `gorm:"not null;index"`
	Book         *BookModel      `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
	SourceID     int64           `gorm:"not null;index"`
	Source       *CharacterModel `gorm:"foreignKey:SourceID;constraint:OnDelete:CASCADE"`
	TargetID     int64           `gorm:"not null;index"`
	Target       *CharacterModel `gorm:"foreignKey:TargetID;constraint:OnDelete:CASCADE"`
	RelationType *string         `gorm:"size:64"`
	Notes        *string         `gorm:"type:text"`
}

func (CharacterRelationshipModel) TableName() string { return "character_relationships" }

// LocationModel's unique index treats NULL parents as distinct on every
// dialect, so detaching children on a parent delete never collides. Root
// names are kept unique on create and update by the app.
type LocationModel struct {
	ID        int64          `gorm:"primaryKey;autoIncrement"`
	BookID    int64          `gorm:"not null;index;uniqueIndex:uq_location_book_name_level_parent,priority:1"`
	Book      *BookModel     `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
	Name      string         `gorm:"size:128;not null;index;uniqueIndex:uq_location_book_name_level_parent,priority:2"`
	Level     string         `gorm:"size:16;not null;uniqueIndex:uq_location_book_name_level_parent,priority:3;check:chk_locations_level,level IN ('galaxy','planet','continent','domain','state','prefecture','city','town','village')"`
	LevelDesc *string        `gorm:"type:text"`
	ParentID  *int64         `gorm:"index;uniqueIndex:uq_location_book_name_level_parent,priority:4"`
	Parent    *LocationModel `gorm:"foreignKey:ParentID;constraint:OnDelete:SET NULL"`
	Territory *string        `gorm:"size:256"`
	Culture   *string        `gorm:"type:text"`
	Path      *string        `gorm:"type:text"`
}

func (LocationModel) TableName() string { return "locations" }

type OrganizationModel struct {
	ID                 int64          `gorm:"primaryKey;autoIncrement"`
	BookID             int64          `gorm:"not null;index"`
	Book               *BookModel     `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
	Name               string         `gorm:"size:128;not null;index"`
	Type               *string        `gorm:"size:64"`
	Description        *string        `gorm:"type:text"`
	LocationID         *int64         `gorm:"index"`
	Location           *LocationModel `gorm:"foreignKey:LocationID;constraint:OnDelete:SET NULL"`
	InfluenceArea      *string        `gorm:"type:text"`
	CultureCustoms     *string        `gorm:"type:text"`
	PoliticalStructure *string        `gorm:"type:text"`
	CoreMembers        *string        `gorm:"type:text"`
	ImportantBuildings *string        `gorm:"type:text"`
	EstablishedTime    *string        `gorm:"size:64"`
}

func (OrganizationModel) TableName() string { return "organizations" }

type MembershipModel struct {
	ID             int64              `gorm:"primaryKey;autoIncrement"`
	BookID         int64              `gorm:"not null;uniqueIndex:uq_character_org_book,priority:1"`
	Book           *BookModel         `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
	CharacterID    int64              `gorm:"not null;uniqueIndex:uq_character_org_book,priority:2"`
	Character      *CharacterModel    `gorm:"foreignKey:CharacterID;constraint:OnDelete:CASCADE"`
	OrganizationID int64              `gorm:"not null;uniqueIndex:uq_character_org_book,priority:3"`
	Organization   *OrganizationModel `gorm:"foreignKey:OrganizationID;constraint:OnDelete:CASCADE"`
	RoleTitle      *string            `gorm:"size:128"`
	IsSpy          bool               `gorm:"not null;default:false"`
	StartTime      *string            `gorm:"size:64"`
	EndTime        *string            `gorm:"size:64"`
	Notes          *string            `gorm:"type:text"`
}

func (MembershipModel) TableName() string { return "character_org_memberships" }

type OrganizationHierarchyModel struct {
	ID           int64              `gorm:"primaryKey;autoIncrement"`
	BookID       int64              `gorm:"not null;uniqueIndex:uq_org_hierarchy_book,priority:1"`
	Book         *BookModel         `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
	ParentOrgID  int64              `gorm:"not null;uniqueIndex:uq_org_hierarchy_book,priority:2"`
	ParentOrg    *OrganizationModel `gorm:"foreignKey:ParentOrgID;constraint:OnDelete:CASCADE"`
	ChildOrgID   int64              `gorm:"not null;uniqueIndex:uq_org_hierarchy_book,priority:3"`
	ChildOrg     *OrganizationModel `gorm:"foreignKey:ChildOrgID;constraint:OnDelete:CASCADE"`
	RelationType *string            `gorm:"size:64"`
	Notes        *string            `gorm:"type:text"`
}

func (OrganizationHierarchyModel) TableName() string { return "organization_hierarchies" }

type QualityDefModel struct {
	ID          int64      `gorm:"primaryKey;autoIncrement"`
	UserID      int64      `gorm:"not null;uniqueIndex:uq_quality_user_book_code,priority:1;uniqueIndex:uq_quality_user_book_name,priority:1"`
	User        *UserModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	BookID      int64      `gorm:"not null;uniqueIndex:uq_quality_user_book_code,priority:2;uniqueIndex:uq_quality_user_book_name,priority:2"`
	Book        *BookModel `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
	Code        string     `gorm:"size:64;not null;uniqueIndex:uq_quality_user_book_code,priority:3"`
	Name        string     `gorm:"size:64;not null;uniqueIndex:uq_quality_user_book_name,priority:3"`
	Rank        int        `gorm:"not null"`
	Color       *string    `gorm:"size:32"`
	Description *string    `gorm:"type:text"`
}

func (QualityDefModel) TableName() string { return "quality_defs" }

type ConceptItemModel struct {
	ID           int64            `gorm:"primaryKey;autoIncrement"`
	BookID       int64            `gorm:"not null;index"`
	Book         *BookModel       `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
	Name         string           `gorm:"size:128;not null;index"`
	Kind         string           `gorm:"size:32;not null"`
	Quality      *string          `gorm:"size:16;check:chk_concept_items_quality,quality IN ('common','uncommon','rare','epic','legendary','mythic')"`
	QualityDefID *int64           `gorm:"index"`
	QualityDef   *QualityDefModel `gorm:"foreignKey:QualityDefID;constraint:OnDelete:SET NULL"`
	Definition   *string          `gorm:"type:text"`
	Rules        *string          `gorm:"type:text"`
	Effects      *string          `gorm:"type:text"`
	Limitations  *string          `gorm:"type:text"`
}

func (ConceptItemModel) TableName() string { return "concept_items" }

type TimelineEventModel struct {
	ID          int64          `gorm:"primaryKey;autoIncrement"`
	BookID      int64          `gorm:"not null;index"`
	Book        *BookModel     `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
	Title       string         `gorm:"size:128;not null;index"`
	Time        *string        `gorm:"size:64"`
	LocationID  *int64         `gorm:"index"`
	Location    *LocationModel `gorm:"foreignKey:LocationID;constraint:OnDelete:SET NULL"`
	Description *string        `gorm:"type:text"`
	Impact      *string        `gorm:"type:text"`
}

func (TimelineEventModel) TableName() string { return "timeline_events" }

type EventParticipantModel struct {
	ID          int64               `gorm:"primaryKey;autoIncrement"`
	BookID      int64               `gorm:"not null;index"`
	Book        *BookModel          `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
	EventID     int64               `gorm:"not null;index"`
	Event       *TimelineEventModel `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
	CharacterID int64               `gorm:"not null;index"`
	Character   *CharacterModel     `gorm:"foreignKey:CharacterID;constraint:OnDelete:CASCADE"`
}

func (EventParticipantModel) TableName() string { return "event_participants" }

type BeastTypeModel struct {
	ID              int64      `gorm:"primaryKey;autoIncrement"`
	BookID          int64      `gorm:"not null;uniqueIndex:uq_beast_type_book_name,priority:1"`
	Book            *BookModel `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
	Name            string     `gorm:"size:128;not null;uniqueIndex:uq_beast_type_book_name,priority:2"`
	Classification  *string    `gorm:"size:64"`
	Habitat         *string    `gorm:"type:text"`
	Habits          *string    `gorm:"type:text"`
	Diet            *string    `gorm:"type:text"`
	Temperament     *string    `gorm:"type:text"`
	Weaknesses      *string    `gorm:"type:text"`
	Abilities       *string    `gorm:"type:text"`
	ElementAffinity *string    `gorm:"size:64"`
	TypicalRealm    *string    `gorm:"size:64"`
	Lifecycle       *string    `gorm:"type:text"`
	Rarity          *string    `gorm:"size:32"`
	Description     *string    `gorm:"type:text"`
}

func (BeastTypeModel) TableName() string { return "beast_types" }

type BeastPetModel struct {
	ID               int64            `gorm:"primaryKey;autoIncrement"`
	BookID           int64            `gorm:"not null;index"`
	Book             *BookModel       `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
	Name             string           `gorm:"size:128;not null;index"`
	TypeID           *int64           `gorm:"index"`
	Type             *BeastTypeModel  `gorm:"foreignKey:TypeID;constraint:OnDelete:SET NULL"`
	Realm            *string          `gorm:"size:64"`
	Quality          *string          `gorm:"size:16;check:chk_beast_pets_quality,quality IN ('common','uncommon','rare','epic','legendary','mythic')"`
	QualityDefID     *int64           `gorm:"index"`
	QualityDef       *QualityDefModel `gorm:"foreignKey:QualityDefID;constraint:OnDelete:SET NULL"`
	Abilities        *string          `gorm:"type:text"`
	OwnerCharacterID *int64           `gorm:"index"`
	OwnerCharacter   *CharacterModel  `gorm:"foreignKey:OwnerCharacterID;constraint:OnDelete:SET NULL"`
}

func (BeastPetModel) TableName() string { return "beast_pets" }

// EventAcquisitionModel stores the acquisition target as three nullable
// columns; ensureAcquisitionTargetCheck guards them on Postgres. Target rows
// cascade: the app rewrites acquisitions to custom names before deleting a
// target, and a book delete must not trip the check through a SET NULL.
type EventAcquisitionModel struct {
	ID            int64               `gorm:"primaryKey;autoIncrement"`
	BookID        int64               `gorm:"not null;index"`
	Book          *BookModel          `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE"`
	EventID       int64               `gorm:"not null;index"`
	Event         *TimelineEventModel `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
	CharacterID   int64               `gorm:"not null;index"`
	Character     *CharacterModel     `gorm:"foreignKey:CharacterID;constraint:OnDelete:CASCADE"`
	Kind          string              `gorm:"size:16;not null;check:chk_event_acq_kind,kind IN ('skill','technique','beast','treasure','material','other')"`
	ConceptItemID *int64              `gorm:"index"`
	ConceptItem   *ConceptItemModel   `gorm:"foreignKey:ConceptItemID;constraint:OnDelete:CASCADE"`
	BeastPetID    *int64              `gorm:"index"`
	BeastPet      *BeastPetModel      `gorm:"foreignKey:BeastPetID;constraint:OnDelete:CASCADE"`
	CustomName    *string             `gorm:"size:128"`
	Quantity      *int
	Notes         *string `gorm:"type:text"`
}

func (EventAcquisitionModel) TableName() string { return "event_acquisitions" }

type CommonSuggestionModel struct {
	ID          int64   `gorm:"primaryKey;autoIncrement"`
	Type        string  `gorm:"size:32;not null;uniqueIndex:uq_suggestion_type_name,priority:1"`
	Name        string  `gorm:"size:128;not null;index;uniqueIndex:uq_suggestion_type_name,priority:2"`
	Alias       *string `gorm:"size:256"`
	Description *string `gorm:"type:text"`
	Tags        *string `gorm:"size:256"`
	Examples    *string `gorm:"type:text"`
	Language    *string `gorm:"size:16"`
	Popularity  *int
}

func (CommonSuggestionModel) TableName() string { return "common_suggestions" }

// allModels is the create-if-missing set, in dependency order.
func allModels() []any {
	return []any{
		&UserModel{},
		&BookModel{},
		&CharacterModel{},
		&CharacterRelationshipModel{},
		&LocationModel{},
		&OrganizationModel{},
		&MembershipModel{},
		&OrganizationHierarchyModel{},
		&QualityDefModel{},
		&ConceptItemModel{},
		&TimelineEventModel{},
		&EventParticipantModel{},
		&BeastTypeModel{},
		&BeastPetModel{},
		&EventAcquisitionModel{},
		&CommonSuggestionModel{},
	}
}

func userToModel(u domain.User) UserModel   { return UserModel{ID: u.ID, Name: u.Name} }
func userFromModel(m UserModel) domain.User { return domain.User{ID: m.ID, Name: m.Name} }

func bookToModel(b domain.Book) BookModel {
	return BookModel{
		ID:              b.ID,
		UserID:          b.UserID,
		Name:            b.Name,
		Slug:            b.Slug,
		Subtitle:        b.Subtitle,
		ProtagonistName: b.ProtagonistName,
		Description:     b.Description,
		CoverURL:        b.CoverURL,
		Status:          b.Status,
		Tags:            b.Tags,
	}
}

func bookFromModel(m BookModel) domain.Book {
	return domain.Book{
		ID:              m.ID,
		UserID:          m.UserID,
		Name:            m.Name,
		Slug:            m.Slug,
		Subtitle:        m.Subtitle,
		ProtagonistName: m.ProtagonistName,
		Description:     m.Description,
		CoverURL:        m.CoverURL,
		Status:          m.Status,
		Tags:            m.Tags,
	}
}

func characterToModel(c domain.Character) CharacterModel {
	return CharacterModel{
		ID:          c.ID,
		BookID:      c.BookID,
		Name:        c.Name,
		Alias:       c.Alias,
		Gender:      c.Gender,
		Age:         c.Age,
		Title:       c.Title,
		Appearance:  c.Appearance,
		Personality: c.Personality,
		Background:  c.Background,
		Skills:      c.Skills,
	}
}

func characterFromModel(m CharacterModel) domain.Character {
	return domain.Character{
		ID:          m.ID,
		BookID:      m.BookID,
		Name:        m.Name,
		Alias:       m.Alias,
		Gender:      m.Gender,
		Age:         m.Age,
		Title:       m.Title,
		Appearance:  m.Appearance,
		Personality: m.Personality,
		Background:  m.Background,
		Skills:      m.Skills,
	}
}

func relationshipToModel(r domain.CharacterRelationship) CharacterRelationshipModel {
	return CharacterRelationshipModel{
		ID:           r.ID,
		BookID:       r.BookID,
		SourceID:     r.SourceID,
		TargetID:     r.TargetID,
		RelationType: r.RelationType,
		Notes:        r.Notes,
	}
}

func relationshipFromModel(m CharacterRelationshipModel) domain.CharacterRelationship {
	return domain.CharacterRelationship{
		ID:           m.ID,
		BookID:       m.BookID,
		SourceID:     m.SourceID,
		TargetID:     m.TargetID,
		RelationType: m.RelationType,
		Notes:        m.Notes,
	}
}

func locationToModel(l domain.Location) LocationModel {
	return LocationModel{
		ID:        l.ID,
		BookID:    l.BookID,
		Name:      l.Name,
		Level:     string(l.Level),
		LevelDesc: l.LevelDesc,
		ParentID:  l.ParentID,
		Territory: l.Territory,
		Culture:   l.Culture,
		Path:      l.Path,
	}
}

func locationFromModel(m LocationModel) domain.Location {
	return domain.Location{
		ID:        m.ID,
		BookID:    m.BookID,
		Name:      m.Name,
		Level:     domain.LocationLevel(m.Level),
		LevelDesc: m.LevelDesc,
		ParentID:  m.ParentID,
		Territory: m.Territory,
		Culture:   m.Culture,
		Path:      m.Path,
	}
}

func organizationToModel(o domain.Organization) OrganizationModel {
	return OrganizationModel{
		ID:                 o.ID,
		BookID:             o.BookID,
		Name:               o.Name,
		Type:               o.Type,
		Description:        o.Description,
		LocationID:         o.LocationID,
		InfluenceArea:      o.InfluenceArea,
		CultureCustoms:     o.CultureCustoms,
		PoliticalStructure: o.PoliticalStructure,
		CoreMembers:        o.CoreMembers,
		ImportantBuildings: o.ImportantBuildings,
		EstablishedTime:    o.EstablishedTime,
	}
}

func organizationFromModel(m OrganizationModel) domain.Organization {
	return domain.Organization{
		ID:                 m.ID,
		BookID:             m.BookID,
		Name:               m.Name,
		Type:               m.Type,
		Description:        m.Description,
		LocationID:         m.LocationID,
		InfluenceArea:      m.InfluenceArea,
		CultureCustoms:     m.CultureCustoms,
		PoliticalStructure: m.PoliticalStructure,
		CoreMembers:        m.CoreMembers,
		ImportantBuildings: m.ImportantBuildings,
		EstablishedTime:    m.EstablishedTime,
	}
}

func membershipToModel(m domain.Membership) MembershipModel {
	return MembershipModel{
		ID:             m.ID,
		BookID:         m.BookID,
		CharacterID:    m.CharacterID,
		OrganizationID: m.OrganizationID,
		RoleTitle:      m.RoleTitle,
		IsSpy:          m.IsSpy,
		StartTime:      m.StartTime,
		EndTime:        m.EndTime,
		Notes:          m.Notes,
	}
}

func membershipFromModel(m MembershipModel) domain.Membership {
	return domain.Membership{
		ID:             m.ID,
		BookID:         m.BookID,
		CharacterID:    m.CharacterID,
		OrganizationID: m.OrganizationID,
		RoleTitle:      m.RoleTitle,
		IsSpy:          m.IsSpy,
		StartTime:      m.StartTime,
		EndTime:        m.EndTime,
		Notes:          m.Notes,
	}
}

func hierarchyToModel(h domain.OrganizationHierarchy) OrganizationHierarchyModel {
	return OrganizationHierarchyModel{
		ID:           h.ID,
		BookID:       h.BookID,
		ParentOrgID:  h.ParentOrgID,
		ChildOrgID:   h.ChildOrgID,
		RelationType: h.RelationType,
		Notes:        h.Notes,
	}
}

func hierarchyFromModel(m OrganizationHierarchyModel) domain.OrganizationHierarchy {
	return domain.OrganizationHierarchy{
		ID:           m.ID,
		BookID:       m.BookID,
		ParentOrgID:  m.ParentOrgID,
		ChildOrgID:   m.ChildOrgID,
		RelationType: m.RelationType,
		Notes:        m.Notes,
	}
}

func qualityDefToModel(q domain.QualityDef) QualityDefModel {
	return QualityDefModel{
		ID:          q.ID,
		UserID:      q.UserID,
		BookID:      q.BookID,
		Code:        q.Code,
		Name:        q.Name,
		Rank:        q.Rank,
		Color:       q.Color,
		Description: q.Description,
	}
}

func qualityDefFromModel(m QualityDefModel) domain.QualityDef {
	return domain.QualityDef{
		ID:          m.ID,
		UserID:      m.UserID,
		BookID:      m.BookID,
		Code:        m.Code,
		Name:        m.Name,
		Rank:        m.Rank,
		Color:       m.Color,
		Description: m.Description,
	}
}

func qualityToColumn(q *domain.Quality) *string {
	if q == nil {
		return nil
	}
	s := string(*q)
	return &s
}

func qualityFromColumn(s *string) *domain.Quality {
	if s == nil {
		return nil
	}
	q := domain.Quality(*s)
	return &q
}

func conceptItemToModel(c domain.ConceptItem) ConceptItemModel {
	return ConceptItemModel{
		ID:           c.ID,
		BookID:       c.BookID,
		Name:         c.Name,
		Kind:         c.Kind,
		Quality:      qualityToColumn(c.Quality),
		QualityDefID: c.QualityDefID,
		Definition:   c.Definition,
		Rules:        c.Rules,
		Effects:      c.Effects,
		Limitations:  c.Limitations,
	}
}

func conceptItemFromModel(m ConceptItemModel) domain.ConceptItem {
	return domain.ConceptItem{
		ID:           m.ID,
		BookID:       m.BookID,
		Name:         m.Name,
		Kind:         m.Kind,
		Quality:      qualityFromColumn(m.Quality),
		QualityDefID: m.QualityDefID,
		Definition:   m.Definition,
		Rules:        m.Rules,
		Effects:      m.Effects,
		Limitations:  m.Limitations,
	}
}

func eventToModel(e domain.TimelineEvent) TimelineEventModel {
	return TimelineEventModel{
		ID:          e.ID,
		BookID:      e.BookID,
		Title:       e.Title,
		Time:        e.Time,
		LocationID:  e.LocationID,
		Description: e.Description,
		Impact:      e.Impact,
	}
}

func eventFromModel(m TimelineEventModel) domain.TimelineEvent {
	return domain.TimelineEvent{
		ID:          m.ID,
		BookID:      m.BookID,
		Title:       m.Title,
		Time:        m.Time,
		LocationID:  m.LocationID,
		Description: m.Description,
		Impact:      m.Impact,
	}
}

func participantToModel(p domain.EventParticipant) EventParticipantModel {
	return EventParticipantModel{ID: p.ID, BookID: p.BookID, EventID: p.EventID, CharacterID: p.CharacterID}
}

func participantFromModel(m EventParticipantModel) domain.EventParticipant {
	return domain.EventParticipant{ID: m.ID, BookID: m.BookID, EventID: m.EventID, CharacterID: m.CharacterID}
}

func acquisitionToModel(a domain.EventAcquisition) EventAcquisitionModel {
	conceptItemID, beastPetID, customName := domain.TargetColumns(a.Target)
	return EventAcquisitionModel{
		ID:            a.ID,
		BookID:        a.BookID,
		EventID:       a.EventID,
		CharacterID:   a.CharacterID,
		Kind:          string(a.Kind),
		ConceptItemID: conceptItemID,
		BeastPetID:    beastPetID,
		CustomName:    customName,
		Quantity:      a.Quantity,
		Notes:         a.Notes,
	}
}

// acquisitionFromModel trusts the check constraint; a row that somehow
// violates it comes back with a nil Target.
func acquisitionFromModel(m EventAcquisitionModel) domain.EventAcquisition {
	target, _ := domain.NewAcquisitionTarget(m.ConceptItemID, m.BeastPetID, m.CustomName)
	return domain.EventAcquisition{
		ID:          m.ID,
		BookID:      m.BookID,
		EventID:     m.EventID,
		CharacterID: m.CharacterID,
		Kind:        domain.AcquisitionKind(m.Kind),
		Target:      target,
		Quantity:    m.Quantity,
		Notes:       m.Notes,
	}
}

func beastTypeToModel(b domain.BeastType) BeastTypeModel {
	return BeastTypeModel{
		ID:              b.ID,
		BookID:          b.BookID,
		Name:            b.Name,
		Classification:  b.Classification,
		Habitat:         b.Habitat,
		Habits:          b.Habits,
		Diet:            b.Diet,
		Temperament:     b.Temperament,
		Weaknesses:      b.Weaknesses,
		Abilities:       b.Abilities,
		ElementAffinity: b.ElementAffinity,
		TypicalRealm:    b.TypicalRealm,
		Lifecycle:       b.Lifecycle,
		Rarity:          b.Rarity,
		Description:     b.Description,
	}
}

func beastTypeFromModel(m BeastTypeModel) domain.BeastType {
	return domain.BeastType{
		ID:              m.ID,
		BookID:          m.BookID,
		Name:            m.Name,
		Classification:  m.Classification,
		Habitat:         m.Habitat,
		Habits:          m.Habits,
		Diet:            m.Diet,
		Temperament:     m.Temperament,
		Weaknesses:      m.Weaknesses,
		Abilities:       m.Abilities,
		ElementAffinity: m.ElementAffinity,
		TypicalRealm:    m.TypicalRealm,
		Lifecycle:       m.Lifecycle,
		Rarity:          m.Rarity,
		Description:     m.Description,
	}
}

func beastPetToModel(b domain.BeastPet) BeastPetModel {
	return BeastPetModel{
		ID:               b.ID,
		BookID:           b.BookID,
		Name:             b.Name,
		TypeID:           b.TypeID,
		Realm:            b.Realm,
		Quality:          qualityToColumn(b.Quality),
		QualityDefID:     b.QualityDefID,
		Abilities:        b.Abilities,
		OwnerCharacterID: b.OwnerCharacterID,
	}
}

func beastPetFromModel(m BeastPetModel) domain.BeastPet {
	return domain.BeastPet{
		ID:               m.ID,
		BookID:           m.BookID,
		Name:             m.Name,
		TypeID:           m.TypeID,
		Realm:            m.Realm,
		Quality:          qualityFromColumn(m.Quality),
		QualityDefID:     m.QualityDefID,
		Abilities:        m.Abilities,
		OwnerCharacterID: m.OwnerCharacterID,
	}
}

func suggestionToModel(s domain.CommonSuggestion) CommonSuggestionModel {
	return CommonSuggestionModel{
		ID:          s.ID,
		Type:        s.Type,
		Name:        s.Name,
		Alias:       s.Alias,
		Description: s.Description,
		Tags:        s.Tags,
		Examples:    s.Examples,
		Language:    s.Language,
		Popularity:  s.Popularity,
	}
}

func suggestionFromModel(m CommonSuggestionModel) domain.CommonSuggestion {
	return domain.CommonSuggestion{
		ID:          m.ID,
		Type:        m.Type,
		Name:        m.Name,
		Alias:       m.Alias,
		Description: m.Description,
		Tags:        m.Tags,
		Examples:    m.Examples,
		Language:    m.Language,
		Popularity:  m.Popularity,
	}
}
