package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var logger = logrus.WithField("context", "config")

// Store backends
const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Configuration keys, read from the environment (or a .env file)
const (
	KeyPort           = "PORT"
	KeyGinMode        = "GIN_MODE"
	KeyStoreBackend   = "STORE_BACKEND"
	KeySQLitePath     = "SQLITE_PATH"
	KeyMongoURI       = "MONGO_URI"
	KeyMongoDatabase  = "MONGO_DATABASE"
	KeyJWTSecret      = "JWT_SECRET"
	KeyTokenTTL       = "TOKEN_TTL"
	KeyCuratorEmail   = "CURATOR_EMAIL"
	KeyCoCuratorEmail = "CO_CURATOR_EMAIL"
	KeyPlacesAPIKey   = "PLACES_API_KEY"
	KeyPlacesBaseURL  = "PLACES_BASE_URL"
	KeyPlacesTimeout  = "PLACES_TIMEOUT"
	KeyCORSOrigins    = "CORS_ALLOWED_ORIGINS"
	KeyLogLevel       = "LOG_LEVEL"
	KeyLogFormat      = "LOG_FORMAT"
)

// DefaultJWTSecret is only suitable for local development
const DefaultJWTSecret = "restaurant_tracker_dev_secret"

type Config struct {
	Port    string
	GinMode string

	StoreBackend  string
	SQLitePath    string
	MongoURI      string
	MongoDatabase string

	JWTSecret []byte
	TokenTTL  time.Duration

	CuratorEmail   string
	CoCuratorEmail string

	PlacesAPIKey  string
	PlacesBaseURL string
	PlacesTimeout time.Duration

	CORSAllowedOrigins []string

	LogLevel  logrus.Level
	LogFormat string
}

// Load reads configuration from the process environment, after merging
// any variables found in the given dotenv files. Missing files are ignored.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv never overrides variables that are already set
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault(KeyPort, "8080")
	v.SetDefault(KeyGinMode, "release")
	v.SetDefault(KeyStoreBackend, BackendSQLite)
	v.SetDefault(KeySQLitePath, "restaurants.db")
	v.SetDefault(KeyMongoURI, "mongodb://localhost:27017")
	v.SetDefault(KeyMongoDatabase, "restaurants")
	v.SetDefault(KeyJWTSecret, DefaultJWTSecret)
	v.SetDefault(KeyTokenTTL, "168h")
	v.SetDefault(KeyPlacesBaseURL, "https://places.googleapis.com")
	v.SetDefault(KeyPlacesTimeout, "10s")
	v.SetDefault(KeyCORSOrigins, "*")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	level, err := logrus.ParseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyLogLevel, err)
	}

	cfg := &Config{
		Port:               v.GetString(KeyPort),
		GinMode:            strings.ToLower(v.GetString(KeyGinMode)),
		StoreBackend:       strings.ToLower(v.GetString(KeyStoreBackend)),
		SQLitePath:         v.GetString(KeySQLitePath),
		MongoURI:           v.GetString(KeyMongoURI),
		MongoDatabase:      v.GetString(KeyMongoDatabase),
		JWTSecret:          []byte(v.GetString(KeyJWTSecret)),
		TokenTTL:           v.GetDuration(KeyTokenTTL),
		CuratorEmail:       normalizeEmail(v.GetString(KeyCuratorEmail)),
		CoCuratorEmail:     normalizeEmail(v.GetString(KeyCoCuratorEmail)),
		PlacesAPIKey:       v.GetString(KeyPlacesAPIKey),
		PlacesBaseURL:      strings.TrimRight(v.GetString(KeyPlacesBaseURL), "/"),
		PlacesTimeout:      v.GetDuration(KeyPlacesTimeout),
		CORSAllowedOrigins: splitList(v.GetString(KeyCORSOrigins)),
		LogLevel:           level,
		LogFormat:          strings.ToLower(v.GetString(KeyLogFormat)),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if string(cfg.JWTSecret) == DefaultJWTSecret {
		logger.Warn("JWT_SECRET not set, using the development secret")
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreBackend {
	case BackendSQLite, BackendMongo:
	default:
		return fmt.Errorf("%s: unknown backend %q (want %s or %s)", KeyStoreBackend, c.StoreBackend, BackendSQLite, BackendMongo)
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("%s: unknown mode %q (want debug, release or test)", KeyGinMode, c.GinMode)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("%s must be a positive duration", KeyTokenTTL)
	}
	if len(c.JWTSecret) == 0 {
		return fmt.Errorf("%s must not be empty", KeyJWTSecret)
	}
	if c.CoCuratorEmail != "" && c.CuratorEmail == "" {
		return fmt.Errorf("%s requires %s", KeyCoCuratorEmail, KeyCuratorEmail)
	}
	return nil
}

// ConfigureLogging applies the level and formatter to the standard logrus logger
func (c *Config) ConfigureLogging() {
	logrus.SetLevel(c.LogLevel)
	if c.LogFormat == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// normalizeEmail matches the form accounts are stored in
func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
