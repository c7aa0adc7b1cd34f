package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"

	DefaultCollection    = "ai_inference_engine_execution_logs"
	DefaultPort          = "8080"
	DefaultStatsCacheTTL = 30 * time.Second
)

// Config is the runtime configuration of the service and CLI.
type Config struct {
	StoreBackend    string        `validate:"oneof=mongo postgres"`
	MongoURI        string        `validate:"required_if=StoreBackend mongo"`
	MongoDatabase   string        `validate:"required_if=StoreBackend mongo"`
	MongoCollection string        `validate:"required"`
	PostgresDSN     string        `validate:"required_if=StoreBackend postgres"`
	RedisURL        string        `validate:"omitempty,url"`
	StatsCacheTTL   time.Duration `validate:"gte=0"`

	Host               string
	Port               string `validate:"required,numeric"`
	CORSAllowedOrigins []string
	AppVersion         string

	LogLevel  string
	LogFormat string `validate:"omitempty,oneof=text json"`
}

var validate = validator.New()

// Override adjusts a loaded configuration before it is validated, e.g. from CLI flags.
type Override func(*Config)

// Load reads .env.local and .env when present, then builds the configuration from the
// environment. Variables already set in the process win over both files, and .env.local
// wins over .env.
func Load(overrides ...Override) (Config, error) {
	for _, file := range []string{".env.local", ".env"} {
		if err := godotenv.Load(file); err != nil && !os.IsNotExist(errors.Cause(err)) {
			return Config{}, errors.Wrapf(err, "load %s", file)
		}
	}
	cfg := FromEnv(os.Getenv)
	for _, o := range overrides {
		o(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds a Config from getenv without validating it.
func FromEnv(getenv func(string) string) Config {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		StoreBackend:    strings.ToLower(get("STORE_BACKEND", BackendMongo)),
		MongoURI:        get("MONGODB_URI", ""),
		MongoDatabase:   get("MONGODB_DATABASE", ""),
		MongoCollection: get("MONGODB_COLLECTION", DefaultCollection),
		PostgresDSN:     get("DATABASE_URL", ""),
		RedisURL:        get("REDIS_URL", ""),
		StatsCacheTTL:   DefaultStatsCacheTTL,
		Host:            get("HOST", ""),
		Port:            get("PORT", DefaultPort),
		AppVersion:      get("APP_VERSION", "unknown"),
		LogLevel:        get("LOG_LEVEL", "INFO"),
		LogFormat:       strings.ToLower(get("LOG_FORMAT", "text")),
	}

	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = postgresDSNFromParts(getenv)
	}
	if ttl := get("STATS_CACHE_TTL", ""); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.StatsCacheTTL = d
		} else {
			cfg.StatsCacheTTL = -1 // rejected by Validate
		}
	}
	if origins := get("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
			}
		}
	}
	return cfg
}

// postgresDSNFromParts builds a DSN from DB_USERNAME, DB_PASSWORD, DB_HOST, DB_PORT and
// DB_NAME, or returns "" when any is missing.
func postgresDSNFromParts(getenv func(string) string) string {
	user, pass, host, port, name := getenv("DB_USERNAME"), getenv("DB_PASSWORD"), getenv("DB_HOST"), getenv("DB_PORT"), getenv("DB_NAME")
	if user == "" || pass == "" || host == "" || port == "" || name == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, pass, host, port, name)
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.Wrap(err, "validate config")
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return errors.Errorf("invalid configuration: %s", strings.Join(problems, ", "))
}

// Addr is the listen address of the HTTP server.
func (c Config) Addr() string {
	return c.Host + ":" + c.Port
}
