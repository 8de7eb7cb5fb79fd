package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"mozhi/pkg/domain"
)

// Table names shared with the GORM models.
const (
	tblUsers         = "users"
	tblBooks         = "books"
	tblCharacters    = "characters"
	tblRelationships = "character_relationships"
	tblLocations     = "locations"
	tblOrganizations = "organizations"
	tblMemberships   = "character_org_memberships"
	tblHierarchies   = "organization_hierarchies"
	tblQualityDefs   = "quality_defs"
	tblConceptItems  = "concept_items"
	tblEvents        = "timeline_events"
	tblParticipants  = "event_participants"
	tblBeastTypes    = "beast_types"
	tblBeastPets     = "beast_pets"
	tblAcquisitions  = "event_acquisitions"
	tblSuggestions   = "common_suggestions"
)

// MemoryStore keeps all data in-process. It enforces the same foreign keys,
// uniques and checks as the SQL schema so it can stand in for GormStore in
// tests and local runs.
type MemoryStore struct {
	mu        *sync.Mutex
	db        *memDB
	inSession bool
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mu: &sync.Mutex{}, db: newMemDB()}
}

type memTable struct {
	rows   map[int64]any
	order  []int64
	nextID int64
}

func (t *memTable) clone() *memTable {
	rows := make(map[int64]any, len(t.rows))
	for k, v := range t.rows {
		rows[k] = v
	}
	return &memTable{rows: rows, order: append([]int64(nil), t.order...), nextID: t.nextID}
}

func (t *memTable) remove(id int64) {
	delete(t.rows, id)
	filtered := t.order[:0]
	for _, item := range t.order {
		if item != id {
			filtered = append(filtered, item)
		}
	}
	t.order = filtered
}

// memRef is a foreign key from a row to a row of parent. A nil setNull means
// ON DELETE CASCADE.
type memRef struct {
	parent  string
	get     func(any) *int64
	setNull func(any) any
}

// memUnique returns the key of a row under one unique constraint. ok is false
// when the row is exempt (a NULL component that compares distinct).
type memUnique func(any) (key string, ok bool)

type memSpec struct {
	refs    []memRef
	uniques []memUnique
	check   func(any) error
}

type memDB struct {
	tables map[string]*memTable
	specs  map[string]memSpec
}

func newMemDB() *memDB {
	d := &memDB{tables: make(map[string]*memTable), specs: memSpecs()}
	for name := range d.specs {
		d.tables[name] = &memTable{rows: make(map[int64]any)}
	}
	return d
}

func (d *memDB) snapshot() map[string]*memTable {
	snap := make(map[string]*memTable, len(d.tables))
	for name, t := range d.tables {
		snap[name] = t.clone()
	}
	return snap
}

func (d *memDB) validate(table string, id int64, row any) error {
	spec := d.specs[table]
	if spec.check != nil {
		if err := spec.check(row); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCheckViolation, table, err)
		}
	}
	for _, ref := range spec.refs {
		parentID := ref.get(row)
		if parentID == nil {
			continue
		}
		if _, ok := d.tables[ref.parent].rows[*parentID]; !ok {
			return fmt.Errorf("%w: %s references missing %s %d", ErrForeignKey, table, ref.parent, *parentID)
		}
	}
	t := d.tables[table]
	for _, unique := range spec.uniques {
		key, ok := unique(row)
		if !ok {
			continue
		}
		for otherID, other := range t.rows {
			if otherID == id {
				continue
			}
			if otherKey, ok := unique(other); ok && otherKey == key {
				return fmt.Errorf("%w: %s %s", ErrDuplicate, table, key)
			}
		}
	}
	return nil
}

func (d *memDB) insert(table string, build func(id int64) any) (any, error) {
	t := d.tables[table]
	id := t.nextID + 1
	row := build(id)
	if err := d.validate(table, id, row); err != nil {
		return nil, err
	}
	t.nextID = id
	t.rows[id] = row
	t.order = append(t.order, id)
	return row, nil
}

func (d *memDB) update(table string, id int64, row any) error {
	t := d.tables[table]
	if _, ok := t.rows[id]; !ok {
		return ErrNotFound
	}
	if err := d.validate(table, id, row); err != nil {
		return err
	}
	t.rows[id] = row
	return nil
}

// delete removes a row and applies CASCADE / SET NULL to every row that
// references it, recursively. SET NULL only clears a reference, so it never
// creates a unique collision: a NULL component exempts a row from its keys.
func (d *memDB) delete(table string, id int64) bool {
	t := d.tables[table]
	if _, ok := t.rows[id]; !ok {
		return false
	}
	t.remove(id)
	children := make([]string, 0, len(d.specs))
	for name := range d.specs {
		children = append(children, name)
	}
	sort.Strings(children)
	for _, child := range children {
		for _, ref := range d.specs[child].refs {
			if ref.parent != table {
				continue
			}
			ct := d.tables[child]
			var hits []int64
			for _, rowID := range ct.order {
				if v := ref.get(ct.rows[rowID]); v != nil && *v == id {
					hits = append(hits, rowID)
				}
			}
			for _, rowID := range hits {
				row, ok := ct.rows[rowID]
				if !ok {
					continue
				}
				if ref.setNull == nil {
					d.delete(child, rowID)
				} else {
					ct.rows[rowID] = ref.setNull(row)
				}
			}
		}
	}
	return true
}

func idRef(v int64) *int64 { return &v }

func keyOf(parts ...any) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte('\x00')
		}
		fmt.Fprint(&b, p)
	}
	return b.String()
}

func bookRef[T any](book func(T) int64) memRef {
	return memRef{parent: tblBooks, get: func(v any) *int64 { return idRef(book(v.(T))) }}
}

func memSpecs() map[string]memSpec {
	return map[string]memSpec{
		tblUsers: {},
		tblBooks: {
			refs: []memRef{{parent: tblUsers, get: func(v any) *int64 { return idRef(v.(domain.Book).UserID) }}},
			uniques: []memUnique{
				func(v any) (string, bool) { b := v.(domain.Book); return keyOf(b.UserID, b.Slug), true },
				func(v any) (string, bool) { b := v.(domain.Book); return keyOf(b.UserID, b.Name), true },
			},
		},
		tblCharacters: {
			refs: []memRef{bookRef(func(c domain.Character) int64 { return c.BookID })},
		},
		tblRelationships: {
			refs: []memRef{
				bookRef(func(r domain.CharacterRelationship) int64 { return r.BookID }),
				{parent: tblCharacters, get: func(v any) *int64 { return idRef(v.(domain.CharacterRelationship).SourceID) }},
				{parent: tblCharacters, get: func(v any) *int64 { return idRef(v.(domain.CharacterRelationship).TargetID) }},
			},
		},
		tblLocations: {
			refs: []memRef{
				bookRef(func(l domain.Location) int64 { return l.BookID }),
				{
					parent: tblLocations,
					get:    func(v any) *int64 { return v.(domain.Location).ParentID },
					setNull: func(v any) any {
						l := v.(domain.Location)
						l.ParentID = nil
						return l
					},
				},
			},
			uniques: []memUnique{
				// NULL parents compare distinct, as in SQL.
				func(v any) (string, bool) {
					l := v.(domain.Location)
					if l.ParentID == nil {
						return "", false
					}
					return keyOf(l.BookID, l.Name, l.Level, *l.ParentID), true
				},
			},
			check: func(v any) error {
				if l := v.(domain.Location); !l.Level.Valid() {
					return fmt.Errorf("invalid level %q", l.Level)
				}
				return nil
			},
		},
		tblOrganizations: {
			refs: []memRef{
				bookRef(func(o domain.Organization) int64 { return o.BookID }),
				{
					parent: tblLocations,
					get:    func(v any) *int64 { return v.(domain.Organization).LocationID },
					setNull: func(v any) any {
						o := v.(domain.Organization)
						o.LocationID = nil
						return o
					},
				},
			},
		},
		tblMemberships: {
			refs: []memRef{
				bookRef(func(m domain.Membership) int64 { return m.BookID }),
				{parent: tblCharacters, get: func(v any) *int64 { return idRef(v.(domain.Membership).CharacterID) }},
				{parent: tblOrganizations, get: func(v any) *int64 { return idRef(v.(domain.Membership).OrganizationID) }},
			},
			uniques: []memUnique{
				func(v any) (string, bool) {
					m := v.(domain.Membership)
					return keyOf(m.BookID, m.CharacterID, m.OrganizationID), true
				},
			},
		},
		tblHierarchies: {
			refs: []memRef{
				bookRef(func(h domain.OrganizationHierarchy) int64 { return h.BookID }),
				{parent: tblOrganizations, get: func(v any) *int64 { return idRef(v.(domain.OrganizationHierarchy).ParentOrgID) }},
				{parent: tblOrganizations, get: func(v any) *int64 { return idRef(v.(domain.OrganizationHierarchy).ChildOrgID) }},
			},
			uniques: []memUnique{
				func(v any) (string, bool) {
					h := v.(domain.OrganizationHierarchy)
					return keyOf(h.BookID, h.ParentOrgID, h.ChildOrgID), true
				},
			},
		},
		tblQualityDefs: {
			refs: []memRef{
				{parent: tblUsers, get: func(v any) *int64 { return idRef(v.(domain.QualityDef).UserID) }},
				bookRef(func(q domain.QualityDef) int64 { return q.BookID }),
			},
			uniques: []memUnique{
				func(v any) (string, bool) { q := v.(domain.QualityDef); return keyOf(q.UserID, q.BookID, q.Code), true },
				func(v any) (string, bool) { q := v.(domain.QualityDef); return keyOf(q.UserID, q.BookID, q.Name), true },
			},
		},
		tblConceptItems: {
			refs: []memRef{
				bookRef(func(c domain.ConceptItem) int64 { return c.BookID }),
				{
					parent: tblQualityDefs,
					get:    func(v any) *int64 { return v.(domain.ConceptItem).QualityDefID },
					setNull: func(v any) any {
						c := v.(domain.ConceptItem)
						c.QualityDefID = nil
						return c
					},
				},
			},
			check: func(v any) error {
				if c := v.(domain.ConceptItem); c.Quality != nil && !c.Quality.Valid() {
					return fmt.Errorf("invalid quality %q", *c.Quality)
				}
				return nil
			},
		},
		tblEvents: {
			refs: []memRef{
				bookRef(func(e domain.TimelineEvent) int64 { return e.BookID }),
				{
					parent: tblLocations,
					get:    func(v any) *int64 { return v.(domain.TimelineEvent).LocationID },
					setNull: func(v any) any {
						e := v.(domain.TimelineEvent)
						e.LocationID = nil
						return e
					},
				},
			},
		},
		tblParticipants: {
			refs: []memRef{
				bookRef(func(p domain.EventParticipant) int64 { return p.BookID }),
				{parent: tblEvents, get: func(v any) *int64 { return idRef(v.(domain.EventParticipant).EventID) }},
				{parent: tblCharacters, get: func(v any) *int64 { return idRef(v.(domain.EventParticipant).CharacterID) }},
			},
		},
		tblBeastTypes: {
			refs: []memRef{bookRef(func(b domain.BeastType) int64 { return b.BookID })},
			uniques: []memUnique{
				func(v any) (string, bool) { b := v.(domain.BeastType); return keyOf(b.BookID, b.Name), true },
			},
		},
		tblBeastPets: {
			refs: []memRef{
				bookRef(func(b domain.BeastPet) int64 { return b.BookID }),
				{
					parent: tblBeastTypes,
					get:    func(v any) *int64 { return v.(domain.BeastPet).TypeID },
					setNull: func(v any) any {
						b := v.(domain.BeastPet)
						b.TypeID = nil
						return b
					},
				},
				{
					parent: tblQualityDefs,
					get:    func(v any) *int64 { return v.(domain.BeastPet).QualityDefID },
					setNull: func(v any) any {
						b := v.(domain.BeastPet)
						b.QualityDefID = nil
						return b
					},
				},
				{
					parent: tblCharacters,
					get:    func(v any) *int64 { return v.(domain.BeastPet).OwnerCharacterID },
					setNull: func(v any) any {
						b := v.(domain.BeastPet)
						b.OwnerCharacterID = nil
						return b
					},
				},
			},
			check: func(v any) error {
				if b := v.(domain.BeastPet); b.Quality != nil && !b.Quality.Valid() {
					return fmt.Errorf("invalid quality %q", *b.Quality)
				}
				return nil
			},
		},
		tblAcquisitions: {
			refs: []memRef{
				bookRef(func(a domain.EventAcquisition) int64 { return a.BookID }),
				{parent: tblEvents, get: func(v any) *int64 { return idRef(v.(domain.EventAcquisition).EventID) }},
				{parent: tblCharacters, get: func(v any) *int64 { return idRef(v.(domain.EventAcquisition).CharacterID) }},
				{parent: tblConceptItems, get: func(v any) *int64 {
					id, _, _ := domain.TargetColumns(v.(domain.EventAcquisition).Target)
					return id
				}},
				{parent: tblBeastPets, get: func(v any) *int64 {
					_, id, _ := domain.TargetColumns(v.(domain.EventAcquisition).Target)
					return id
				}},
			},
			check: func(v any) error {
				a := v.(domain.EventAcquisition)
				if !a.Kind.Valid() {
					return fmt.Errorf("invalid kind %q", a.Kind)
				}
				concept, pet, custom := domain.TargetColumns(a.Target)
				if _, err := domain.NewAcquisitionTarget(concept, pet, custom); err != nil {
					return err
				}
				return nil
			},
		},
		tblSuggestions: {
			uniques: []memUnique{
				func(v any) (string, bool) { s := v.(domain.CommonSuggestion); return keyOf(s.Type, s.Name), true },
			},
		},
	}
}

func (m *MemoryStore) lock() func() {
	if m.inSession {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

// WithSession serializes fn against all other store access and restores the
// previous state if fn returns an error or panics.
func (m *MemoryStore) WithSession(ctx context.Context, fn func(Store) error) error {
	if m.inSession {
		return fn(m)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.db.snapshot()
	committed := false
	defer func() {
		if !committed {
			m.db.tables = snap
		}
	}()
	if err := fn(&MemoryStore{mu: m.mu, db: m.db, inSession: true}); err != nil {
		return err
	}
	committed = true
	return nil
}

// Check always succeeds for the in-memory store.
func (m *MemoryStore) Check(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Users() Repository[domain.User] {
	return &memRepo[domain.User]{
		s: m, table: tblUsers,
		id:    func(v *domain.User) *int64 { return &v.ID },
		scope: func(domain.User, ListOptions) bool { return true },
	}
}

func (m *MemoryStore) Books() Repository[domain.Book] {
	return &memRepo[domain.Book]{
		s: m, table: tblBooks,
		id: func(v *domain.Book) *int64 { return &v.ID },
		scope: func(v domain.Book, o ListOptions) bool {
			return o.UserID <= 0 || v.UserID == o.UserID
		},
	}
}

func inBook(bookID int64, o ListOptions) bool { return o.BookID <= 0 || bookID == o.BookID }

func (m *MemoryStore) Characters() Repository[domain.Character] {
	return &memRepo[domain.Character]{
		s: m, table: tblCharacters,
		id:    func(v *domain.Character) *int64 { return &v.ID },
		scope: func(v domain.Character, o ListOptions) bool { return inBook(v.BookID, o) },
	}
}

func (m *MemoryStore) Relationships() Repository[domain.CharacterRelationship] {
	return &memRepo[domain.CharacterRelationship]{
		s: m, table: tblRelationships,
		id:    func(v *domain.CharacterRelationship) *int64 { return &v.ID },
		scope: func(v domain.CharacterRelationship, o ListOptions) bool { return inBook(v.BookID, o) },
	}
}

func (m *MemoryStore) Locations() Repository[domain.Location] {
	return &memRepo[domain.Location]{
		s: m, table: tblLocations,
		id:    func(v *domain.Location) *int64 { return &v.ID },
		scope: func(v domain.Location, o ListOptions) bool { return inBook(v.BookID, o) },
	}
}

func (m *MemoryStore) Organizations() Repository[domain.Organization] {
	return &memRepo[domain.Organization]{
		s: m, table: tblOrganizations,
		id:    func(v *domain.Organization) *int64 { return &v.ID },
		scope: func(v domain.Organization, o ListOptions) bool { return inBook(v.BookID, o) },
	}
}

func (m *MemoryStore) Memberships() Repository[domain.Membership] {
	return &memRepo[domain.Membership]{
		s: m, table: tblMemberships,
		id:    func(v *domain.Membership) *int64 { return &v.ID },
		scope: func(v domain.Membership, o ListOptions) bool { return inBook(v.BookID, o) },
	}
}

func (m *MemoryStore) OrgHierarchies() Repository[domain.OrganizationHierarchy] {
	return &memRepo[domain.OrganizationHierarchy]{
		s: m, table: tblHierarchies,
		id:    func(v *domain.OrganizationHierarchy) *int64 { return &v.ID },
		scope: func(v domain.OrganizationHierarchy, o ListOptions) bool { return inBook(v.BookID, o) },
	}
}

func (m *MemoryStore) ConceptItems() Repository[domain.ConceptItem] {
	return &memRepo[domain.ConceptItem]{
		s: m, table: tblConceptItems,
		id:    func(v *domain.ConceptItem) *int64 { return &v.ID },
		scope: func(v domain.ConceptItem, o ListOptions) bool { return inBook(v.BookID, o) },
	}
}

func (m *MemoryStore) QualityDefs() Repository[domain.QualityDef] {
	return &memRepo[domain.QualityDef]{
		s: m, table: tblQualityDefs,
		id: func(v *domain.QualityDef) *int64 { return &v.ID },
		scope: func(v domain.QualityDef, o ListOptions) bool {
			return inBook(v.BookID, o) && (o.UserID <= 0 || v.UserID == o.UserID)
		},
	}
}

func (m *MemoryStore) Events() Repository[domain.TimelineEvent] {
	return &memRepo[domain.TimelineEvent]{
		s: m, table: tblEvents,
		id:    func(v *domain.TimelineEvent) *int64 { return &v.ID },
		scope: func(v domain.TimelineEvent, o ListOptions) bool { return inBook(v.BookID, o) },
	}
}

func (m *MemoryStore) Participants() Repository[domain.EventParticipant] {
	return &memRepo[domain.EventParticipant]{
		s: m, table: tblParticipants,
		id:    func(v *domain.EventParticipant) *int64 { return &v.ID },
		scope: func(v domain.EventParticipant, o ListOptions) bool { return inBook(v.BookID, o) },
	}
}

func (m *MemoryStore) Acquisitions() Repository[domain.EventAcquisition] {
	return &memRepo[domain.EventAcquisition]{
		s: m, table: tblAcquisitions,
		id:    func(v *domain.EventAcquisition) *int64 { return &v.ID },
		scope: func(v domain.EventAcquisition, o ListOptions) bool { return inBook(v.BookID, o) },
	}
}

func (m *MemoryStore) BeastTypes() Repository[domain.BeastType] {
	return &memRepo[domain.BeastType]{
		s: m, table: tblBeastTypes,
		id:    func(v *domain.BeastType) *int64 { return &v.ID },
		scope: func(v domain.BeastType, o ListOptions) bool { return inBook(v.BookID, o) },
	}
}

func (m *MemoryStore) BeastPets() Repository[domain.BeastPet] {
	return &memRepo[domain.BeastPet]{
		s: m, table: tblBeastPets,
		id:    func(v *domain.BeastPet) *int64 { return &v.ID },
		scope: func(v domain.BeastPet, o ListOptions) bool { return inBook(v.BookID, o) },
	}
}

func (m *MemoryStore) Suggestions() SuggestionRepository {
	return &memSuggestionRepo{memRepo: memRepo[domain.CommonSuggestion]{
		s: m, table: tblSuggestions,
		id:    func(v *domain.CommonSuggestion) *int64 { return &v.ID },
		scope: func(domain.CommonSuggestion, ListOptions) bool { return true },
	}}
}

type memRepo[T any] struct {
	s     *MemoryStore
	table string
	id    func(*T) *int64
	scope func(T, ListOptions) bool
}

func (r *memRepo[T]) Create(ctx context.Context, v *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.s.lock()()
	row := *v
	stored, err := r.s.db.insert(r.table, func(id int64) any {
		*r.id(&row) = id
		return row
	})
	if err != nil {
		return err
	}
	*v = stored.(T)
	return nil
}

func (r *memRepo[T]) Get(ctx context.Context, id int64) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	defer r.s.lock()()
	row, ok := r.s.db.tables[r.table].rows[id]
	if !ok {
		return zero, false, nil
	}
	return row.(T), true, nil
}

func (r *memRepo[T]) List(ctx context.Context, opts ListOptions) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer r.s.lock()()
	t := r.s.db.tables[r.table]
	res := make([]T, 0, len(t.order))
	for _, id := range t.order {
		v := t.rows[id].(T)
		if r.scope(v, opts) {
			res = append(res, v)
		}
	}
	return page(res, opts.Limit, opts.Offset), nil
}

func (r *memRepo[T]) Update(ctx context.Context, v *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.s.lock()()
	row := *v
	id := *r.id(&row)
	if id <= 0 {
		return ErrNotFound
	}
	return r.s.db.update(r.table, id, row)
}

func (r *memRepo[T]) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.s.lock()()
	if !r.s.db.delete(r.table, id) {
		return ErrNotFound
	}
	return nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

type memSuggestionRepo struct {
	memRepo[domain.CommonSuggestion]
}

func (r *memSuggestionRepo) Search(ctx context.Context, q SuggestionQuery) ([]domain.CommonSuggestion, error) {
	all, err := r.List(ctx, ListOptions{})
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(q.NameContains))
	typ := strings.TrimSpace(q.Type)
	lang := strings.TrimSpace(q.Language)
	res := make([]domain.CommonSuggestion, 0, len(all))
	for _, s := range all {
		if typ != "" && s.Type != typ {
			continue
		}
		if lang != "" && (s.Language == nil || *s.Language != lang) {
			continue
		}
		if needle != "" {
			alias := ""
			if s.Alias != nil {
				alias = strings.ToLower(*s.Alias)
			}
			if !strings.Contains(strings.ToLower(s.Name), needle) && !strings.Contains(alias, needle) {
				continue
			}
		}
		res = append(res, s)
	}
	sort.SliceStable(res, func(i, j int) bool {
		return popularity(res[i]) > popularity(res[j])
	})
	return page(res, q.Limit, q.Offset), nil
}

func popularity(s domain.CommonSuggestion) int {
	if s.Popularity == nil {
		return 0
	}
	return *s.Popularity
}

func (r *memSuggestionRepo) Upsert(ctx context.Context, v *domain.CommonSuggestion) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer r.s.lock()()
	t := r.s.db.tables[tblSuggestions]
	for _, id := range t.order {
		existing := t.rows[id].(domain.CommonSuggestion)
		if existing.Type == v.Type && existing.Name == v.Name {
			row := *v
			row.ID = id
			if err := r.s.db.update(tblSuggestions, id, row); err != nil {
				return err
			}
			*v = row
			return nil
		}
	}
	row := *v
	stored, err := r.s.db.insert(tblSuggestions, func(id int64) any {
		row.ID = id
		return row
	})
	if err != nil {
		return err
	}
	*v = stored.(domain.CommonSuggestion)
	return nil
}
