package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "NEXTBITE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	Square       SquareConfig
	SMTP         SMTPConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"NEXTBITE_APP_ENV" required:"true"`
	Port         string `envconfig:"NEXTBITE_APP_PORT" default:"8080"`
	Name         string `envconfig:"NEXTBITE_APP_NAME" default:"NextBite"`
	LogLevel     string `envconfig:"NEXTBITE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NEXTBITE_LOG_WARN_STACK" default:"false"`
	FrontendURL  string `envconfig:"NEXTBITE_FRONTEND_URL" default:"http://localhost:5173"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN string `envconfig:"NEXTBITE_DB_DSN"`

	Host     string `envconfig:"NEXTBITE_DB_HOST"`
	Port     int    `envconfig:"NEXTBITE_DB_PORT" default:"5432"`
	User     string `envconfig:"NEXTBITE_DB_USER"`
	Password string `envconfig:"NEXTBITE_DB_PASSWORD"`
	Name     string `envconfig:"NEXTBITE_DB_NAME"`
	SSLMode  string `envconfig:"NEXTBITE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NEXTBITE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NEXTBITE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NEXTBITE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NEXTBITE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NEXTBITE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"NEXTBITE_REDIS_ADDR"`
	Password     string        `envconfig:"NEXTBITE_REDIS_PASSWORD"`
	DB           int           `envconfig:"NEXTBITE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NEXTBITE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NEXTBITE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NEXTBITE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NEXTBITE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NEXTBITE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"NEXTBITE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"NEXTBITE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"NEXTBITE_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// TokenTTL returns the access token lifetime.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"NEXTBITE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"NEXTBITE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"NEXTBITE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"NEXTBITE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"NEXTBITE_ARGON_KEY_LEN" default:"32"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"NEXTBITE_SQUARE_ACCESS_TOKEN"`
	LocationID  string `envconfig:"NEXTBITE_SQUARE_LOCATION_ID"`
	Env         string `envconfig:"NEXTBITE_SQUARE_ENV" default:"sandbox"`
}

// Environment returns the normalized Square environment.
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type SMTPConfig struct {
	Host      string `envconfig:"NEXTBITE_SMTP_HOST"`
	Port      int    `envconfig:"NEXTBITE_SMTP_PORT" default:"587"`
	User      string `envconfig:"NEXTBITE_SMTP_USER"`
	Password  string `envconfig:"NEXTBITE_SMTP_PASSWORD"`
	FromEmail string `envconfig:"NEXTBITE_SMTP_FROM_EMAIL"`
	FromName  string `envconfig:"NEXTBITE_SMTP_FROM_NAME" default:"NextBite"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"NEXTBITE_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"NEXTBITE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	required := map[string]string{
		"NEXTBITE_DB_HOST": db.Host,
		"NEXTBITE_DB_USER": db.User,
		"NEXTBITE_DB_NAME": db.Name,
	}
	for _, key := range []string{"NEXTBITE_DB_HOST", "NEXTBITE_DB_USER", "NEXTBITE_DB_NAME"} {
		if required[key] == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either NEXTBITE_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
