package domain

// User owns books and quality definitions.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name" validate:"required,max=64"`
}

// Book is a user's fictional-world project and scopes all world data.
type Book struct {
	ID              int64   `json:"id"`
	UserID          int64   `json:"user_id" validate:"required,gt=0"`
	Name            string  `json:"name" validate:"required,max=128"`
	Slug            string  `json:"slug" validate:"required,max=128"`
	Subtitle        *string `json:"subtitle" validate:"omitempty,max=256"`
	ProtagonistName *string `json:"protagonist_name" validate:"omitempty,max=128"`
	Description     *string `json:"description"`
	CoverURL        *string `json:"cover_url" validate:"omitempty,max=256"`
	Status          *string `json:"status" validate:"omitempty,max=32"`
	Tags            *string `json:"tags" validate:"omitempty,max=256"`
}

type Character struct {
	ID          int64   `json:"id"`
	BookID      int64   `json:"book_id"`
	Name        string  `json:"name" validate:"required,max=64"`
	Alias       *string `json:"alias" validate:"omitempty,max=128"`
	Gender      *string `json:"gender" validate:"omitempty,max=16"`
	Age         *int    `json:"age" validate:"omitempty,gte=0"`
	Title       *string `json:"title" validate:"omitempty,max=128"`
	Appearance  *string `json:"appearance"`
	Personality *string `json:"personality"`
	Background  *string `json:"background"`
	Skills      *string `json:"skills"`
}

// CharacterRelationship is a directed edge between two characters of the
// same book.
type CharacterRelationship struct {
	ID           int64   `json:"id"`
	BookID       int64   `json:"book_id"`
	SourceID     int64   `json:"source_id" validate:"required,gt=0"`
	TargetID     int64   `json:"target_id" validate:"required,gt=0"`
	RelationType *string `json:"relation_type" validate:"omitempty,max=64"`
	Notes        *string `json:"notes"`
}

// Location is a node in a book's geographic hierarchy. A nil ParentID marks
// a root.
type Location struct {
	ID        int64         `json:"id"`
	BookID    int64         `json:"book_id"`
	Name      string        `json:"name" validate:"required,max=128"`
	Level     LocationLevel `json:"level" validate:"required,oneof=galaxy planet continent domain state prefecture city town village"`
	LevelDesc *string       `json:"level_desc"`
	ParentID  *int64        `json:"parent_id" validate:"omitempty,gt=0"`
	Territory *string       `json:"territory" validate:"omitempty,max=256"`
	Culture   *string       `json:"culture"`
	Path      *string       `json:"path"`
}

// Organization covers dynasties, sects, states, guilds and the like.
type Organization struct {
	ID                 int64   `json:"id"`
	BookID             int64   `json:"book_id"`
	Name               string  `json:"name" validate:"required,max=128"`
	Type               *string `json:"type" validate:"omitempty,max=64"`
	Description        *string `json:"description"`
	LocationID         *int64  `json:"location_id" validate:"omitempty,gt=0"`
	InfluenceArea      *string `json:"influence_area"`
	CultureCustoms     *string `json:"culture_customs"`
	PoliticalStructure *string `json:"political_structure"`
	CoreMembers        *string `json:"core_members"`
	ImportantBuildings *string `json:"important_buildings"`
	EstablishedTime    *string `json:"established_time" validate:"omitempty,max=64"`
}

// Membership joins a character to an organization.
type Membership struct {
	ID             int64   `json:"id"`
	BookID         int64   `json:"book_id"`
	CharacterID    int64   `json:"character_id" validate:"required,gt=0"`
	OrganizationID int64   `json:"organization_id" validate:"required,gt=0"`
	RoleTitle      *string `json:"role_title" validate:"omitempty,max=128"`
	IsSpy          bool    `json:"is_spy"`
	StartTime      *string `json:"start_time" validate:"omitempty,max=64"`
	EndTime        *string `json:"end_time" validate:"omitempty,max=64"`
	Notes          *string `json:"notes"`
}

// OrganizationHierarchy is a parent→child edge between organizations.
type OrganizationHierarchy struct {
	ID           int64   `json:"id"`
	BookID       int64   `json:"book_id"`
	ParentOrgID  int64   `json:"parent_org_id" validate:"required,gt=0"`
	ChildOrgID   int64   `json:"child_org_id" validate:"required,gt=0"`
	RelationType *string `json:"relation_type" validate:"omitempty,max=64"`
	Notes        *string `json:"notes"`
}

// ConceptItem is a concept, artifact, technique or material of a world.
type ConceptItem struct {
	ID           int64    `json:"id"`
	BookID       int64    `json:"book_id"`
	Name         string   `json:"name" validate:"required,max=128"`
	Kind         string   `json:"kind" validate:"required,max=32"`
	Quality      *Quality `json:"quality" validate:"omitempty,oneof=common uncommon rare epic legendary mythic"`
	QualityDefID *int64   `json:"quality_def_id" validate:"omitempty,gt=0"`
	Definition   *string  `json:"definition"`
	Rules        *string  `json:"rules"`
	Effects      *string  `json:"effects"`
	Limitations  *string  `json:"limitations"`

	EffectiveQuality *ResolvedQuality `json:"effective_quality,omitempty" validate:"-"`
}

// QualityDef is a user-defined quality tier for one book. Rank orders
// custom tiers the same way Quality.Rank orders system tiers.
type QualityDef struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"user_id" validate:"omitempty,gt=0"`
	BookID      int64   `json:"book_id"`
	Code        string  `json:"code" validate:"required,max=64"`
	Name        string  `json:"name" validate:"required,max=64"`
	Rank        int     `json:"rank"`
	Color       *string `json:"color" validate:"omitempty,max=32"`
	Description *string `json:"description"`
}

type TimelineEvent struct {
	ID          int64   `json:"id"`
	BookID      int64   `json:"book_id"`
	Title       string  `json:"title" validate:"required,max=128"`
	Time        *string `json:"time" validate:"omitempty,max=64"`
	LocationID  *int64  `json:"location_id" validate:"omitempty,gt=0"`
	Description *string `json:"description"`
	Impact      *string `json:"impact"`
}

type EventParticipant struct {
	ID          int64 `json:"id"`
	BookID      int64 `json:"book_id"`
	EventID     int64 `json:"event_id" validate:"required,gt=0"`
	CharacterID int64 `json:"character_id" validate:"required,gt=0"`
}

type BeastType struct {
	ID              int64   `json:"id"`
	BookID          int64   `json:"book_id"`
	Name            string  `json:"name" validate:"required,max=128"`
	Classification  *string `json:"classification" validate:"omitempty,max=64"`
	Habitat         *string `json:"habitat"`
	Habits          *string `json:"habits"`
	Diet            *string `json:"diet"`
	Temperament     *string `json:"temperament"`
	Weaknesses      *string `json:"weaknesses"`
	Abilities       *string `json:"abilities"`
	ElementAffinity *string `json:"element_affinity" validate:"omitempty,max=64"`
	TypicalRealm    *string `json:"typical_realm" validate:"omitempty,max=64"`
	Lifecycle       *string `json:"lifecycle"`
	Rarity          *string `json:"rarity" validate:"omitempty,max=32"`
	Description     *string `json:"description"`
}

type BeastPet struct {
	ID               int64    `json:"id"`
	BookID           int64    `json:"book_id"`
	Name             string   `json:"name" validate:"required,max=128"`
	TypeID           *int64   `json:"type_id" validate:"omitempty,gt=0"`
	Realm            *string  `json:"realm" validate:"omitempty,max=64"`
	Quality          *Quality `json:"quality" validate:"omitempty,oneof=common uncommon rare epic legendary mythic"`
	QualityDefID     *int64   `json:"quality_def_id" validate:"omitempty,gt=0"`
	Abilities        *string  `json:"abilities"`
	OwnerCharacterID *int64   `json:"owner_character_id" validate:"omitempty,gt=0"`

	EffectiveQuality *ResolvedQuality `json:"effective_quality,omitempty" validate:"-"`
}

// CommonSuggestion is an entry of the global naming dictionary. It is not
// scoped to any book.
type CommonSuggestion struct {
	ID          int64   `json:"id"`
	Type        string  `json:"type" validate:"required,max=32"`
	Name        string  `json:"name" validate:"required,max=128"`
	Alias       *string `json:"alias" validate:"omitempty,max=256"`
	Description *string `json:"description"`
	Tags        *string `json:"tags" validate:"omitempty,max=256"`
	Examples    *string `json:"examples"`
	Language    *string `json:"language" validate:"omitempty,max=16"`
	Popularity  *int    `json:"popularity"`
}
