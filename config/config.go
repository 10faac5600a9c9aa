package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPortraitsSubDir  = "portraits"
	DefaultThumbnailsSubDir = "thumbnails"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	defaultImageQueueSize      = 200
	defaultNumImageWorkers     = 4
	defaultThumbnailMaxSize    = 300
	defaultMaxUploadMB         = 20
	defaultJWTExpirationHours  = 24
	defaultLoginMaxAttempts    = 5
	defaultLoginCooldownMins   = 15
	defaultPasswordResetTTLMin = 60

	// only used when JWT_SECRET is unset and DEV_MODE is on
	devJWTSecret = "genealogy-dev-secret-do-not-deploy"
)

type Config struct {
	Port    string
	DevMode bool

	// database configuration
	DatabaseDriver string // sqlite or postgres
	DatabasePath   string // sqlite file
	DatabaseDSN    string // postgres connection string
	DatabaseDebug  bool

	// media storage configuration
	MediaStoragePath string // root for uploaded portraits and generated thumbnails
	PortraitsPath    string // full-calculated path for portraits
	ThumbnailsPath   string // full-calculated path for thumbnails

	ThumbnailMaxSize int
	MaxUploadBytes   int64

	// worker settings
	ImageQueueSize  int
	NumImageWorkers int

	// auth
	JWTSecret          string
	JWTExpiration      time.Duration
	LoginMaxAttempts   int
	LoginCooldown      time.Duration
	PasswordResetTTL   time.Duration
	CORSAllowedOrigins []string

	// seed data
	FormerCountriesSeedPath string
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func getEnvBool(envVar string) bool {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return false
	}
	val, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Invalid %s '%s'. Treating as false.", envVar, valStr)
		return false
	}
	return val
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SQLiteDSN appends the pragmas the schema relies on to a sqlite file path.
func SQLiteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&_foreign_keys=on"
	}
	return path + "?_foreign_keys=on"
}

func LoadConfig() (Config, error) {
	devMode := getEnvBool("DEV_MODE")

	driver := strings.ToLower(getEnvOrDefault("DATABASE_DRIVER", DriverSQLite))
	if driver != DriverSQLite && driver != DriverPostgres {
		return Config{}, fmt.Errorf("unsupported DATABASE_DRIVER '%s' (expected %s or %s)", driver, DriverSQLite, DriverPostgres)
	}

	dbPath := getEnvOrDefault("DATABASE_PATH", "genealogy.db")
	dbDSN := os.Getenv("DATABASE_DSN")
	if driver == DriverPostgres && dbDSN == "" {
		return Config{}, fmt.Errorf("DATABASE_DSN is required when DATABASE_DRIVER is %s", DriverPostgres)
	}

	mediaStorage := getEnvOrDefault("MEDIA_STORAGE_PATH", filepath.Join(".", "media_storage"))
	absMediaStorage, err := filepath.Abs(mediaStorage)
	if err != nil {
		return Config{}, fmt.Errorf("failed to get absolute path for media storage '%s': %w", mediaStorage, err)
	}

	portraitSubDir := getEnvOrDefault("PORTRAITS_SUBDIR", DefaultPortraitsSubDir)
	thumbSubDir := getEnvOrDefault("THUMBNAILS_SUBDIR", DefaultThumbnailsSubDir)

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		if !devMode {
			return Config{}, fmt.Errorf("JWT_SECRET environment variable is not set")
		}
		log.Printf("Warning: JWT_SECRET not set, using development secret")
		jwtSecret = devJWTSecret
	}

	cfg := Config{
		Port:                    getEnvOrDefault("PORT", "8080"),
		DevMode:                 devMode,
		DatabaseDriver:          driver,
		DatabasePath:            dbPath,
		DatabaseDSN:             dbDSN,
		DatabaseDebug:           getEnvBool("DATABASE_DEBUG"),
		MediaStoragePath:        absMediaStorage,
		PortraitsPath:           filepath.Join(absMediaStorage, portraitSubDir),
		ThumbnailsPath:          filepath.Join(absMediaStorage, thumbSubDir),
		ThumbnailMaxSize:        getEnvIntOrDefault("THUMBNAIL_MAX_SIZE", defaultThumbnailMaxSize),
		MaxUploadBytes:          int64(getEnvIntOrDefault("MAX_UPLOAD_MB", defaultMaxUploadMB)) << 20,
		ImageQueueSize:          getEnvIntOrDefault("IMAGE_QUEUE_SIZE", defaultImageQueueSize),
		NumImageWorkers:         getEnvIntOrDefault("NUM_IMAGE_WORKERS", defaultNumImageWorkers),
		JWTSecret:               jwtSecret,
		JWTExpiration:           time.Duration(getEnvIntOrDefault("JWT_EXPIRATION_HOURS", defaultJWTExpirationHours)) * time.Hour,
		LoginMaxAttempts:        getEnvIntOrDefault("LOGIN_MAX_ATTEMPTS", defaultLoginMaxAttempts),
		LoginCooldown:           time.Duration(getEnvIntOrDefault("LOGIN_COOLDOWN_MINUTES", defaultLoginCooldownMins)) * time.Minute,
		PasswordResetTTL:        time.Duration(getEnvIntOrDefault("PASSWORD_RESET_TTL_MINUTES", defaultPasswordResetTTLMin)) * time.Minute,
		CORSAllowedOrigins:      splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		FormerCountriesSeedPath: getEnvOrDefault("FORMER_COUNTRIES_SEED", filepath.Join("data", "former_countries.yaml")),
	}

	return cfg, nil
}

// DataSource returns the driver-specific connection string.
func (c Config) DataSource() string {
	if c.DatabaseDriver == DriverPostgres {
		return c.DatabaseDSN
	}
	return SQLiteDSN(c.DatabasePath)
}
