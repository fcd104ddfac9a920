package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Auth      AuthConfig
	DocStore  DocStoreConfig
	Firestore FirestoreConfig
	Cart      CartConfig
	I18n      I18nConfig
	HTTP      HTTPConfig
	RateLimit RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DocStore.validate(); err != nil {
		return nil, err
	}
	if cfg.DocStore.UsesSQL() {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	if cfg.DocStore.UsesFirestore() && cfg.Firestore.ProjectID == "" {
		return nil, fmt.Errorf("%s is required when %s=%s", EnvFirestoreProjectID, EnvDocStoreDriver, DocStoreDriverFirestore)
	}
	if err := cfg.Auth.validate(); err != nil {
		return nil, err
	}
	if cfg.Auth.UsesFirebase() && cfg.Firestore.ProjectID == "" {
		return nil, fmt.Errorf("%s is required when %s=%s", EnvFirestoreProjectID, EnvAuthProvider, AuthProviderFirebase)
	}
	if !cfg.Auth.UsesFirebase() && (cfg.JWT.Secret == "" || cfg.JWT.Issuer == "") {
		return nil, fmt.Errorf("%s and %s are required when %s=%s", EnvJWTSecret, EnvJWTIssuer, EnvAuthProvider, AuthProviderJWT)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CROPCHAIN_APP_ENV" required:"true"`
	Port         string `envconfig:"CROPCHAIN_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CROPCHAIN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CROPCHAIN_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"CROPCHAIN_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN       string `envconfig:"CROPCHAIN_DB_DSN"`
	Driver    string `envconfig:"CROPCHAIN_DB_DRIVER" default:"postgres"`
	UseSQLite bool   `envconfig:"CROPCHAIN_USE_SQLITE" default:"false"`

	LegacyHost     string `envconfig:"CROPCHAIN_DB_HOST"`
	LegacyPort     int    `envconfig:"CROPCHAIN_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CROPCHAIN_DB_USER"`
	LegacyPassword string `envconfig:"CROPCHAIN_DB_PASSWORD"`
	LegacyName     string `envconfig:"CROPCHAIN_DB_NAME"`
	LegacySSLMode  string `envconfig:"CROPCHAIN_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CROPCHAIN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CROPCHAIN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CROPCHAIN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CROPCHAIN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"CROPCHAIN_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CROPCHAIN_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CROPCHAIN_REDIS_ADDR"`
	Password     string        `envconfig:"CROPCHAIN_REDIS_PASSWORD"`
	DB           int           `envconfig:"CROPCHAIN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CROPCHAIN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CROPCHAIN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CROPCHAIN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CROPCHAIN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CROPCHAIN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CROPCHAIN_JWT_SECRET"`
	Issuer            string `envconfig:"CROPCHAIN_JWT_ISSUER"`
	ExpirationMinutes int    `envconfig:"CROPCHAIN_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AuthConfig selects how bearer tokens are verified: shared-secret JWTs or
// Firebase ID tokens for the Firestore project.
type AuthConfig struct {
	Provider string `envconfig:"CROPCHAIN_AUTH_PROVIDER" default:"jwt"`
}

func (a AuthConfig) UsesFirebase() bool {
	return strings.EqualFold(strings.TrimSpace(a.Provider), AuthProviderFirebase)
}

func (a AuthConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.Provider)) {
	case AuthProviderJWT, AuthProviderFirebase:
		return nil
	}
	return fmt.Errorf("%s must be %q or %q, got %q", EnvAuthProvider, AuthProviderJWT, AuthProviderFirebase, a.Provider)
}

// DocStoreConfig selects the document store backing orders and notifications.
type DocStoreConfig struct {
	Driver string `envconfig:"CROPCHAIN_DOCSTORE_DRIVER" default:"sql"`
}

func (d DocStoreConfig) UsesSQL() bool {
	return strings.EqualFold(strings.TrimSpace(d.Driver), DocStoreDriverSQL)
}

func (d DocStoreConfig) UsesFirestore() bool {
	return strings.EqualFold(strings.TrimSpace(d.Driver), DocStoreDriverFirestore)
}

func (d DocStoreConfig) validate() error {
	if d.UsesSQL() || d.UsesFirestore() {
		return nil
	}
	return fmt.Errorf("%s must be %q or %q, got %q", EnvDocStoreDriver, DocStoreDriverSQL, DocStoreDriverFirestore, d.Driver)
}

type FirestoreConfig struct {
	ProjectID       string `envconfig:"CROPCHAIN_FIRESTORE_PROJECT_ID"`
	CredentialsFile string `envconfig:"CROPCHAIN_FIRESTORE_CREDENTIALS_FILE"`
}

type CartConfig struct {
	// TTL of a persisted session cart; zero keeps it forever.
	TTL time.Duration `envconfig:"CROPCHAIN_CART_TTL" default:"0"`
}

type I18nConfig struct {
	DefaultLanguage string `envconfig:"CROPCHAIN_DEFAULT_LANGUAGE" default:"en"`
}

type HTTPConfig struct {
	CORSOrigins     []string      `envconfig:"CROPCHAIN_CORS_ORIGINS" default:"http://localhost:3000"`
	ReadTimeout     time.Duration `envconfig:"CROPCHAIN_HTTP_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"CROPCHAIN_HTTP_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"CROPCHAIN_HTTP_SHUTDOWN_TIMEOUT" default:"15s"`
}

// RateLimitConfig throttles checkout per buyer; a zero limit disables it.
type RateLimitConfig struct {
	CheckoutLimit  int           `envconfig:"CROPCHAIN_CHECKOUT_RATE_LIMIT" default:"10"`
	CheckoutWindow time.Duration `envconfig:"CROPCHAIN_CHECKOUT_RATE_WINDOW" default:"1m"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
