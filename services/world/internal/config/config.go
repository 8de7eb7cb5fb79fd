package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ConfigPath is the YAML file read when no path is given. It is optional.
const ConfigPath = "config.yaml"

// EnvFile is loaded before anything else; variables already set in the
// process environment win over it.
const EnvFile = ".env"

// FileConfig represents configuration loaded from YAML, .env and the
// environment, in increasing order of precedence.
type FileConfig struct {
	Port     string `yaml:"port"`
	Env      string `yaml:"env"`
	LogLevel string `yaml:"logLevel"`
	Debug    bool   `yaml:"debug"`

	LogPath       string `yaml:"logPath"`
	LogMaxSizeMB  int    `yaml:"logMaxSizeMB"`
	LogMaxBackups int    `yaml:"logMaxBackups"`
	LogMaxAgeDays int    `yaml:"logMaxAgeDays"`
	LogCompress   bool   `yaml:"logCompress"`

	DBDriver   string `yaml:"dbDriver"`
	DBHost     string `yaml:"dbHost"`
	DBPort     int    `yaml:"dbPort"`
	DBUser     string `yaml:"dbUser"`
	DBPassword string `yaml:"dbPassword"`
	DBName     string `yaml:"dbName"`
	DBSSLMode  string `yaml:"dbSSLMode"`
	DBEcho     bool   `yaml:"dbEcho"`
	// DatabaseURLOverride, when set, is used verbatim instead of the DSN
	// derived from the DB_* fields.
	DatabaseURLOverride string `yaml:"databaseURL"`

	DBPoolSize           int   `yaml:"dbPoolSize"`
	DBMaxOverflow        *int  `yaml:"dbMaxOverflow"`
	DBPoolTimeoutSeconds int   `yaml:"dbPoolTimeoutSeconds"`
	DBPoolRecycleSeconds int   `yaml:"dbPoolRecycleSeconds"`
	DBPoolPrePing        *bool `yaml:"dbPoolPrePing"`

	RedisAddr          string   `yaml:"redisAddr"`
	RedisPassword      string   `yaml:"redisPassword"`
	RateLimitPerMinute *int     `yaml:"rateLimitPerMinute"`
	TrustedProxyCIDRs  []string `yaml:"trustedProxyCIDRs"`
	CORSAllowedOrigins []string `yaml:"corsAllowedOrigins"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`
	CoverMaxBytes  int64  `yaml:"coverMaxBytes"`
}

// Load reads config from path (defaults to config.yaml). A missing default
// file is fine; a missing explicit path is an error.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if err := godotenv.Load(EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load %s: %w", EnvFile, err)
	}
	explicit := path != ""
	if !explicit {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case explicit || !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) error {
	setString(&cfg.Port, "PORT")
	setString(&cfg.Env, "ENV")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.LogPath, "LOG_PATH")
	setString(&cfg.DBDriver, "DB_DRIVER")
	setString(&cfg.DBHost, "DB_HOST")
	setString(&cfg.DBUser, "DB_USER")
	setString(&cfg.DBPassword, "DB_PASSWORD")
	setString(&cfg.DBName, "DB_NAME")
	setString(&cfg.DBSSLMode, "DB_SSLMODE")
	setString(&cfg.DatabaseURLOverride, "DATABASE_URL")
	setString(&cfg.RedisAddr, "REDIS_ADDR")
	setString(&cfg.RedisPassword, "REDIS_PASSWORD")
	setString(&cfg.MinioEndpoint, "MINIO_ENDPOINT")
	setString(&cfg.MinioAccessKey, "MINIO_ACCESS_KEY")
	setString(&cfg.MinioSecretKey, "MINIO_SECRET_KEY")
	setString(&cfg.MinioBucket, "MINIO_BUCKET")
	if v := strings.TrimSpace(os.Getenv("TRUSTED_PROXY_CIDRS")); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	if v := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); v != "" {
		cfg.CORSAllowedOrigins = splitCSV(v)
	}

	ints := []struct {
		dst *int
		key string
	}{
		{&cfg.LogMaxSizeMB, "LOG_MAX_SIZE_MB"},
		{&cfg.LogMaxBackups, "LOG_MAX_BACKUPS"},
		{&cfg.LogMaxAgeDays, "LOG_MAX_AGE_DAYS"},
		{&cfg.DBPort, "DB_PORT"},
		{&cfg.DBPoolSize, "DB_POOL_SIZE"},
		{&cfg.DBPoolTimeoutSeconds, "DB_POOL_TIMEOUT_SECONDS"},
		{&cfg.DBPoolRecycleSeconds, "DB_POOL_RECYCLE_SECONDS"},
	}
	for _, item := range ints {
		if err := setInt(item.dst, item.key); err != nil {
			return err
		}
	}
	// Zero is meaningful for these, so unset is kept apart from 0.
	optional := []struct {
		dst **int
		key string
	}{
		{&cfg.DBMaxOverflow, "DB_MAX_OVERFLOW"},
		{&cfg.RateLimitPerMinute, "RATE_LIMIT_PER_MINUTE"},
	}
	for _, item := range optional {
		if err := setOptionalInt(item.dst, item.key); err != nil {
			return err
		}
	}
	if v := strings.TrimSpace(os.Getenv("COVER_MAX_BYTES")); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: COVER_MAX_BYTES must be an integer: %w", err)
		}
		cfg.CoverMaxBytes = n
	}

	bools := []struct {
		dst *bool
		key string
	}{
		{&cfg.Debug, "DEBUG"},
		{&cfg.LogCompress, "LOG_COMPRESS"},
		{&cfg.DBEcho, "DB_ECHO"},
		{&cfg.MinioUseSSL, "MINIO_USE_SSL"},
	}
	for _, item := range bools {
		if err := setBool(item.dst, item.key); err != nil {
			return err
		}
	}
	if v := strings.TrimSpace(os.Getenv("DB_POOL_PRE_PING")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: DB_POOL_PRE_PING must be a boolean: %w", err)
		}
		cfg.DBPoolPrePing = &b
	}
	return nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.Port == "" {
		cfg.Port = "8000"
	}
	if cfg.Env == "" {
		cfg.Env = "dev"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	if cfg.LogMaxSizeMB == 0 {
		cfg.LogMaxSizeMB = 10
	}
	if cfg.LogMaxBackups == 0 {
		cfg.LogMaxBackups = 5
	}
	if cfg.LogMaxAgeDays == 0 {
		cfg.LogMaxAgeDays = 30
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if cfg.DBDriver == "" {
		cfg.DBDriver = "postgres"
	}
	if cfg.DBHost == "" {
		cfg.DBHost = "127.0.0.1"
	}
	if cfg.DBPort == 0 {
		cfg.DBPort = 5432
		if cfg.DBDriver == "mysql" {
			cfg.DBPort = 3306
		}
	}
	if cfg.DBUser == "" {
		cfg.DBUser = "root"
	}
	if cfg.DBPassword == "" {
		cfg.DBPassword = "password"
	}
	if cfg.DBName == "" {
		cfg.DBName = "mo_zhi"
	}
	if cfg.DBSSLMode == "" {
		cfg.DBSSLMode = "disable"
	}
	if cfg.DBPoolSize == 0 {
		cfg.DBPoolSize = 5
	}
	if cfg.DBMaxOverflow == nil {
		overflow := 10
		cfg.DBMaxOverflow = &overflow
	}
	if cfg.DBPoolTimeoutSeconds == 0 {
		cfg.DBPoolTimeoutSeconds = 30
	}
	if cfg.DBPoolPrePing == nil {
		enabled := true
		cfg.DBPoolPrePing = &enabled
	}
	if cfg.RateLimitPerMinute == nil {
		limit := 120
		cfg.RateLimitPerMinute = &limit
	}
	if cfg.CoverMaxBytes == 0 {
		cfg.CoverMaxBytes = 5 << 20
	}
}

func validateConfig(cfg FileConfig) error {
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return fmt.Errorf("config: port must be numeric, got %q", cfg.Port)
	}
	switch cfg.DBDriver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("config: dbDriver must be postgres or mysql, got %q", cfg.DBDriver)
	}
	if cfg.DBPort <= 0 || cfg.DBPort > 65535 {
		return fmt.Errorf("config: dbPort out of range: %d", cfg.DBPort)
	}
	if cfg.DBPoolSize <= 0 {
		return errors.New("config: dbPoolSize must be positive")
	}
	if cfg.MaxOverflow() < 0 {
		return errors.New("config: dbMaxOverflow must not be negative")
	}
	if cfg.DBPoolTimeoutSeconds <= 0 {
		return errors.New("config: dbPoolTimeoutSeconds must be positive")
	}
	if cfg.RateLimit() < 0 {
		return errors.New("config: rateLimitPerMinute must not be negative")
	}
	if cfg.CoverMaxBytes <= 0 {
		return errors.New("config: coverMaxBytes must be positive")
	}
	if cfg.MinioEndpoint != "" && cfg.MinioBucket == "" {
		return errors.New("config: minioBucket is required when minioEndpoint is set")
	}
	return nil
}

// DatabaseURL returns the override when set, otherwise the DSN derived for
// the configured driver.
func (c FileConfig) DatabaseURL() string {
	if strings.TrimSpace(c.DatabaseURLOverride) != "" {
		return strings.TrimSpace(c.DatabaseURLOverride)
	}
	addr := net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort))
	if c.DBDriver == "mysql" {
		dsn := mysqldriver.NewConfig()
		dsn.User = c.DBUser
		dsn.Passwd = c.DBPassword
		dsn.Net = "tcp"
		dsn.Addr = addr
		dsn.DBName = c.DBName
		dsn.ParseTime = true
		dsn.Params = map[string]string{"charset": "utf8mb4"}
		return dsn.FormatDSN()
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     addr,
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.DBSSLMode}}.Encode(),
	}
	return u.String()
}

// PoolTimeout is the connection checkout timeout.
func (c FileConfig) PoolTimeout() time.Duration {
	return time.Duration(c.DBPoolTimeoutSeconds) * time.Second
}

// PoolRecycle is the maximum connection age; zero disables recycling.
func (c FileConfig) PoolRecycle() time.Duration {
	if c.DBPoolRecycleSeconds <= 0 {
		return 0
	}
	return time.Duration(c.DBPoolRecycleSeconds) * time.Second
}

// MaxOverflow is how many connections may be opened beyond the pool size.
func (c FileConfig) MaxOverflow() int {
	if c.DBMaxOverflow == nil {
		return 0
	}
	return *c.DBMaxOverflow
}

// RateLimit is the per-client request budget per minute; 0 disables limiting.
func (c FileConfig) RateLimit() int {
	if c.RateLimitPerMinute == nil {
		return 0
	}
	return *c.RateLimitPerMinute
}

// PrePing reports whether connections are probed before use.
func (c FileConfig) PrePing() bool {
	return c.DBPoolPrePing == nil || *c.DBPoolPrePing
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}

func setOptionalInt(dst **int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s must be an integer: %w", key, err)
	}
	*dst = &n
	return nil
}

func setBool(dst *bool, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("config: %s must be a boolean: %w", key, err)
	}
	*dst = b
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
