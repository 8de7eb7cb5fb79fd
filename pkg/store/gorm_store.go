package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"mozhi/pkg/domain"
)

const (
	migrateLockID   int64 = 73217321
	migrateLockName       = "mozhi_migrate"
)

// Supported DB drivers.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

const (
	acquisitionTargetCheck     = "chk_event_acq_one_target"
	acquisitionTargetCheckExpr = "(CASE WHEN concept_item_id IS NULL THEN 0 ELSE 1 END)" +
		" + (CASE WHEN beast_pet_id IS NULL THEN 0 ELSE 1 END)" +
		" + (CASE WHEN custom_name IS NULL THEN 0 ELSE 1 END) = 1"
)

// mysqlCheckViolation is ER_CHECK_CONSTRAINT_VIOLATED, which the GORM MySQL
// dialect does not translate.
const mysqlCheckViolation = 3819

// ErrPoolTimeout is returned when no pooled connection became available
// within the configured checkout timeout.
var ErrPoolTimeout = errors.New("timed out waiting for a database connection")

type GormStoreOptions struct {
	Driver      string
	PoolSize    int
	MaxOverflow int
	PoolTimeout time.Duration
	// PoolRecycle caps connection lifetime; zero or negative disables it.
	PoolRecycle time.Duration
	PrePing     bool
	Echo        bool
	Logger      *slog.Logger
}

type GormStoreOption func(*GormStoreOptions)

// WithDriver selects the SQL dialect ("postgres" or "mysql").
func WithDriver(driver string) GormStoreOption {
	return func(opts *GormStoreOptions) {
		opts.Driver = driver
	}
}

// WithPool sets the persistent pool size and how many extra connections may
// be opened under load.
func WithPool(size, overflow int) GormStoreOption {
	return func(opts *GormStoreOptions) {
		opts.PoolSize = size
		opts.MaxOverflow = overflow
	}
}

// WithPoolTimeout bounds how long a session waits for a free connection.
func WithPoolTimeout(d time.Duration) GormStoreOption {
	return func(opts *GormStoreOptions) {
		opts.PoolTimeout = d
	}
}

// WithPoolRecycle sets the maximum connection lifetime.
func WithPoolRecycle(d time.Duration) GormStoreOption {
	return func(opts *GormStoreOptions) {
		opts.PoolRecycle = d
	}
}

// WithPrePing validates each checked-out connection before use.
func WithPrePing(enabled bool) GormStoreOption {
	return func(opts *GormStoreOptions) {
		opts.PrePing = enabled
	}
}

// WithEcho logs every SQL statement.
func WithEcho(enabled bool) GormStoreOption {
	return func(opts *GormStoreOptions) {
		opts.Echo = enabled
	}
}

// WithLogger routes GORM logs to logger instead of slog.Default().
func WithLogger(logger *slog.Logger) GormStoreOption {
	return func(opts *GormStoreOptions) {
		opts.Logger = logger
	}
}

// GormStore implements Store using GORM on Postgres or MySQL.
type GormStore struct {
	db          *gorm.DB
	driver      string
	poolTimeout time.Duration
	prePing     bool
	// inSession is set on the store handed to a WithSession callback.
	inSession bool
}

// NewGormStore opens the DB, applies pool settings and creates missing tables.
func NewGormStore(dsn string, options ...GormStoreOption) (*GormStore, error) {
	opts := GormStoreOptions{
		Driver:      DriverPostgres,
		PoolSize:    5,
		MaxOverflow: 10,
		PoolTimeout: 30 * time.Second,
		PrePing:     true,
	}
	for _, option := range options {
		if option != nil {
			option(&opts)
		}
	}
	driver := normalizeDriver(opts.Driver)
	dialector, err := openDialector(driver, dsn)
	if err != nil {
		return nil, err
	}
	return openGormStore(dialector, driver, opts)
}

func openGormStore(dialector gorm.Dialector, driver string, opts GormStoreOptions) (*GormStore, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	level := gormlogger.Warn
	if opts.Echo {
		level = gormlogger.Info
	}
	gormLog := gormlogger.New(
		slogWriter{logger: opts.Logger},
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	applyPool(sqlDB, opts)

	if err := withMigrationLock(db, driver, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(allModels()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		if err := ensureAcquisitionTargetCheck(tx, driver); err != nil {
			return fmt.Errorf("ensure acquisition target check: %w", err)
		}
		return nil
	}); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &GormStore{
		db:          db,
		driver:      driver,
		poolTimeout: opts.PoolTimeout,
		prePing:     opts.PrePing,
	}, nil
}

func normalizeDriver(driver string) string {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "postgres", "postgresql", "pgx":
		return DriverPostgres
	case "mysql", "mariadb":
		return DriverMySQL
	default:
		return strings.ToLower(strings.TrimSpace(driver))
	}
}

func openDialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case DriverPostgres:
		return postgres.Open(dsn), nil
	case DriverMySQL:
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
}

func applyPool(sqlDB *sql.DB, opts GormStoreOptions) {
	size := opts.PoolSize
	if size <= 0 {
		size = 1
	}
	overflow := opts.MaxOverflow
	if overflow < 0 {
		overflow = 0
	}
	sqlDB.SetMaxIdleConns(size)
	sqlDB.SetMaxOpenConns(size + overflow)
	if opts.PoolRecycle > 0 {
		sqlDB.SetConnMaxLifetime(opts.PoolRecycle)
	}
}

type slogWriter struct {
	logger *slog.Logger
}

func (w slogWriter) Printf(format string, args ...any) {
	w.logger.Info("gorm", "detail", strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// withMigrationLock serializes schema creation across processes on Postgres
// and MySQL. Other dialects run fn directly.
func withMigrationLock(db *gorm.DB, driver string, fn func(*gorm.DB) error) error {
	if driver != DriverPostgres && driver != DriverMySQL {
		return fn(db)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()

	lock, unlock := "SELECT pg_advisory_lock($1)", "SELECT pg_advisory_unlock($1)"
	var key any = migrateLockID
	if driver == DriverMySQL {
		lock, unlock = "SELECT GET_LOCK(?, 30)", "SELECT RELEASE_LOCK(?)"
		key = migrateLockName
	}
	if _, err := conn.ExecContext(ctx, lock, key); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(ctx, unlock, key)
	}()
	return fn(db)
}

// ensureAcquisitionTargetCheck adds the exactly-one-target CHECK on Postgres.
// MySQL refuses a CHECK on columns used by a cascading foreign key (ER 3823),
// so there the rule rests on domain.NewAcquisitionTarget, the only way to
// build a target.
func ensureAcquisitionTargetCheck(db *gorm.DB, driver string) error {
	if driver != DriverPostgres {
		return nil
	}
	if db.Migrator().HasConstraint(&EventAcquisitionModel{}, acquisitionTargetCheck) {
		return nil
	}
	return db.Exec("ALTER TABLE event_acquisitions ADD CONSTRAINT " + acquisitionTargetCheck +
		" CHECK (" + acquisitionTargetCheckExpr + ")").Error
}

// Driver reports the SQL dialect in use.
func (s *GormStore) Driver() string { return s.driver }

// WithSession checks out one connection, waiting at most the pool timeout,
// and runs fn inside a transaction on it.
func (s *GormStore) WithSession(ctx context.Context, fn func(Store) error) error {
	if s.inSession {
		return fn(s)
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := s.checkout(ctx, sqlDB)
	if err != nil {
		return err
	}
	defer conn.Close()

	tx := s.db.Session(&gorm.Session{NewDB: true, Context: ctx})
	tx.Statement.ConnPool = conn
	return tx.Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{
			db:          tx,
			driver:      s.driver,
			poolTimeout: s.poolTimeout,
			prePing:     s.prePing,
			inSession:   true,
		})
	})
}

func (s *GormStore) checkout(ctx context.Context, sqlDB *sql.DB) (*sql.Conn, error) {
	acquire := func() (*sql.Conn, error) {
		acquireCtx := ctx
		if s.poolTimeout > 0 {
			var cancel context.CancelFunc
			acquireCtx, cancel = context.WithTimeout(ctx, s.poolTimeout)
			defer cancel()
		}
		conn, err := sqlDB.Conn(acquireCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return nil, fmt.Errorf("%w: %v", ErrPoolTimeout, err)
			}
			return nil, fmt.Errorf("acquire connection: %w", err)
		}
		return conn, nil
	}
	conn, err := acquire()
	if err != nil || !s.prePing {
		return conn, err
	}
	if pingErr := conn.PingContext(ctx); pingErr == nil {
		return conn, nil
	}
	// Stale connection: drop it and try once more.
	_ = conn.Close()
	conn, err = acquire()
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping connection: %w", err)
	}
	return conn, nil
}

// Check runs SELECT 1 and reports whether the scalar came back as 1.
func (s *GormStore) Check(ctx context.Context) (bool, error) {
	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		return false, err
	}
	return one == 1, nil
}

// Close releases the connection pool.
func (s *GormStore) Close() error {
	if s.inSession {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) Users() Repository[domain.User] {
	return &gormRepo[domain.User, UserModel]{
		db: s.db, toModel: userToModel, fromModel: userFromModel,
		id: func(m *UserModel) int64 { return m.ID },
	}
}

func (s *GormStore) Books() Repository[domain.Book] {
	return &gormRepo[domain.Book, BookModel]{
		db: s.db, toModel: bookToModel, fromModel: bookFromModel,
		id:      func(m *BookModel) int64 { return m.ID },
		userCol: "user_id",
	}
}

func (s *GormStore) Characters() Repository[domain.Character] {
	return &gormRepo[domain.Character, CharacterModel]{
		db: s.db, toModel: characterToModel, fromModel: characterFromModel,
		id:      func(m *CharacterModel) int64 { return m.ID },
		bookCol: "book_id",
	}
}

func (s *GormStore) Relationships() Repository[domain.CharacterRelationship] {
	return &gormRepo[domain.CharacterRelationship, CharacterRelationshipModel]{
		db: s.db, toModel: relationshipToModel, fromModel: relationshipFromModel,
		id:      func(m *CharacterRelationshipModel) int64 { return m.ID },
		bookCol: "book_id",
	}
}

func (s *GormStore) Locations() Repository[domain.Location] {
	return &gormRepo[domain.Location, LocationModel]{
		db: s.db, toModel: locationToModel, fromModel: locationFromModel,
		id:      func(m *LocationModel) int64 { return m.ID },
		bookCol: "book_id",
	}
}

func (s *GormStore) Organizations() Repository[domain.Organization] {
	return &gormRepo[domain.Organization, OrganizationModel]{
		db: s.db, toModel: organizationToModel, fromModel: organizationFromModel,
		id:      func(m *OrganizationModel) int64 { return m.ID },
		bookCol: "book_id",
	}
}

func (s *GormStore) Memberships() Repository[domain.Membership] {
	return &gormRepo[domain.Membership, MembershipModel]{
		db: s.db, toModel: membershipToModel, fromModel: membershipFromModel,
		id:      func(m *MembershipModel) int64 { return m.ID },
		bookCol: "book_id",
	}
}

func (s *GormStore) OrgHierarchies() Repository[domain.OrganizationHierarchy] {
	return &gormRepo[domain.OrganizationHierarchy, OrganizationHierarchyModel]{
		db: s.db, toModel: hierarchyToModel, fromModel: hierarchyFromModel,
		id:      func(m *OrganizationHierarchyModel) int64 { return m.ID },
		bookCol: "book_id",
	}
}

func (s *GormStore) ConceptItems() Repository[domain.ConceptItem] {
	return &gormRepo[domain.ConceptItem, ConceptItemModel]{
		db: s.db, toModel: conceptItemToModel, fromModel: conceptItemFromModel,
		id:      func(m *ConceptItemModel) int64 { return m.ID },
		bookCol: "book_id",
	}
}

func (s *GormStore) QualityDefs() Repository[domain.QualityDef] {
	return &gormRepo[domain.QualityDef, QualityDefModel]{
		db: s.db, toModel: qualityDefToModel, fromModel: qualityDefFromModel,
		id:      func(m *QualityDefModel) int64 { return m.ID },
		bookCol: "book_id",
		userCol: "user_id",
	}
}

func (s *GormStore) Events() Repository[domain.TimelineEvent] {
	return &gormRepo[domain.TimelineEvent, TimelineEventModel]{
		db: s.db, toModel: eventToModel, fromModel: eventFromModel,
		id:      func(m *TimelineEventModel) int64 { return m.ID },
		bookCol: "book_id",
	}
}

func (s *GormStore) Participants() Repository[domain.EventParticipant] {
	return &gormRepo[domain.EventParticipant, EventParticipantModel]{
		db: s.db, toModel: participantToModel, fromModel: participantFromModel,
		id:      func(m *EventParticipantModel) int64 { return m.ID },
		bookCol: "book_id",
	}
}

func (s *GormStore) Acquisitions() Repository[domain.EventAcquisition] {
	return &gormRepo[domain.EventAcquisition, EventAcquisitionModel]{
		db: s.db, toModel: acquisitionToModel, fromModel: acquisitionFromModel,
		id:      func(m *EventAcquisitionModel) int64 { return m.ID },
		bookCol: "book_id",
	}
}

func (s *GormStore) BeastTypes() Repository[domain.BeastType] {
	return &gormRepo[domain.BeastType, BeastTypeModel]{
		db: s.db, toModel: beastTypeToModel, fromModel: beastTypeFromModel,
		id:      func(m *BeastTypeModel) int64 { return m.ID },
		bookCol: "book_id",
	}
}

func (s *GormStore) BeastPets() Repository[domain.BeastPet] {
	return &gormRepo[domain.BeastPet, BeastPetModel]{
		db: s.db, toModel: beastPetToModel, fromModel: beastPetFromModel,
		id:      func(m *BeastPetModel) int64 { return m.ID },
		bookCol: "book_id",
	}
}

func (s *GormStore) Suggestions() SuggestionRepository {
	return &gormSuggestionRepo{gormRepo: gormRepo[domain.CommonSuggestion, CommonSuggestionModel]{
		db: s.db, toModel: suggestionToModel, fromModel: suggestionFromModel,
		id: func(m *CommonSuggestionModel) int64 { return m.ID },
	}}
}

// gormRepo maps one domain type T onto one GORM model M.
type gormRepo[T any, M any] struct {
	db        *gorm.DB
	toModel   func(T) M
	fromModel func(M) T
	id        func(*M) int64
	bookCol   string
	userCol   string
}

func (r *gormRepo[T, M]) Create(ctx context.Context, v *T) error {
	model := r.toModel(*v)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&model).Error; err != nil {
		return translateError(err)
	}
	*v = r.fromModel(model)
	return nil
}

func (r *gormRepo[T, M]) Get(ctx context.Context, id int64) (T, bool, error) {
	var model M
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		var zero T
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return r.fromModel(model), true, nil
}

func (r *gormRepo[T, M]) List(ctx context.Context, opts ListOptions) ([]T, error) {
	var models []M
	tx := r.db.WithContext(ctx).Model(new(M))
	if opts.BookID > 0 && r.bookCol != "" {
		tx = tx.Where(r.bookCol+" = ?", opts.BookID)
	}
	if opts.UserID > 0 && r.userCol != "" {
		tx = tx.Where(r.userCol+" = ?", opts.UserID)
	}
	tx = tx.Order("id ASC")
	if opts.Limit > 0 {
		tx = tx.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		tx = tx.Offset(opts.Offset)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]T, 0, len(models))
	for _, m := range models {
		res = append(res, r.fromModel(m))
	}
	return res, nil
}

// Update replaces every column of the row. RowsAffected is not used for the
// existence check because MySQL reports zero for no-op updates.
func (r *gormRepo[T, M]) Update(ctx context.Context, v *T) error {
	model := r.toModel(*v)
	id := r.id(&model)
	if id <= 0 {
		return ErrNotFound
	}
	db := r.db.WithContext(ctx)
	var count int64
	if err := db.Model(new(M)).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	if err := db.Model(&model).Select("*").Omit(clause.Associations).Updates(&model).Error; err != nil {
		return translateError(err)
	}
	*v = r.fromModel(model)
	return nil
}

func (r *gormRepo[T, M]) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(new(M))
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type gormSuggestionRepo struct {
	gormRepo[domain.CommonSuggestion, CommonSuggestionModel]
}

func (r *gormSuggestionRepo) Search(ctx context.Context, q SuggestionQuery) ([]domain.CommonSuggestion, error) {
	tx := r.db.WithContext(ctx).Model(&CommonSuggestionModel{})
	if t := strings.TrimSpace(q.Type); t != "" {
		tx = tx.Where("type = ?", t)
	}
	if lang := strings.TrimSpace(q.Language); lang != "" {
		tx = tx.Where("language = ?", lang)
	}
	if needle := strings.TrimSpace(q.NameContains); needle != "" {
		pattern := "%" + escapeLike(strings.ToLower(needle)) + "%"
		tx = tx.Where("(LOWER(name) LIKE ? OR LOWER(alias) LIKE ?)", pattern, pattern)
	}
	tx = tx.Order("COALESCE(popularity, 0) DESC").Order("id ASC")
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	if q.Offset > 0 {
		tx = tx.Offset(q.Offset)
	}
	var models []CommonSuggestionModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.CommonSuggestion, 0, len(models))
	for _, m := range models {
		res = append(res, suggestionFromModel(m))
	}
	return res, nil
}

func (r *gormSuggestionRepo) Upsert(ctx context.Context, v *domain.CommonSuggestion) error {
	model := suggestionToModel(*v)
	model.ID = 0
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "type"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"alias", "description", "tags", "examples", "language", "popularity"}),
	}).Create(&model).Error; err != nil {
		return translateError(err)
	}
	// MySQL does not report the id of an updated row.
	var stored CommonSuggestionModel
	if err := db.Where("type = ? AND name = ?", model.Type, model.Name).First(&stored).Error; err != nil {
		return err
	}
	*v = suggestionFromModel(stored)
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// translateError maps dialect errors, already normalized by GORM's
// TranslateError, onto the store sentinels.
func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", ErrForeignKey, err)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return fmt.Errorf("%w: %v", ErrCheckViolation, err)
	}
	var myErr *mysqldriver.MySQLError
	switch {
	case errors.As(err, &myErr) && myErr.Number == mysqlCheckViolation:
		return fmt.Errorf("%w: %v", ErrCheckViolation, err)
	default:
		return err
	}
}
