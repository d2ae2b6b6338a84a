package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Drive    DriveConfig
	Trash    TrashConfig
	Blob     BlobConfig
	Exports  ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// DriveConfig bounds tree operations.
type DriveConfig struct {
	MaxDepth      int
	MaxNameLength int
	PathCacheTTL  time.Duration
	CacheEnabled  bool
}

// TrashConfig governs the retention sweeper.
type TrashConfig struct {
	RetentionWindow time.Duration
	SweepInterval   time.Duration
	SweepEnabled    bool
}

// BlobConfig locates the external blob store.
type BlobConfig struct {
	StorageDir string
}

// ExportsConfig toggles the admin trash report endpoints.
type ExportsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Drive = DriveConfig{
		MaxDepth:      v.GetInt("DRIVE_MAX_DEPTH"),
		MaxNameLength: v.GetInt("DRIVE_MAX_NAME_LENGTH"),
		PathCacheTTL:  parseDuration(v.GetString("DRIVE_PATH_CACHE_TTL"), 5*time.Minute),
		CacheEnabled:  v.GetBool("DRIVE_CACHE_ENABLED"),
	}

	cfg.Trash = TrashConfig{
		RetentionWindow: parseDuration(v.GetString("TRASH_RETENTION_WINDOW"), 30*24*time.Hour),
		SweepInterval:   parseDuration(v.GetString("TRASH_SWEEP_INTERVAL"), time.Hour),
		SweepEnabled:    v.GetBool("TRASH_SWEEP_ENABLED"),
	}

	cfg.Blob = BlobConfig{
		StorageDir: v.GetString("BLOB_STORAGE_DIR"),
	}

	cfg.Exports = ExportsConfig{
		Enabled: v.GetBool("ENABLE_TRASH_EXPORTS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "student_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DRIVE_MAX_DEPTH", 1000)
	v.SetDefault("DRIVE_MAX_NAME_LENGTH", 255)
	v.SetDefault("DRIVE_PATH_CACHE_TTL", "5m")
	v.SetDefault("DRIVE_CACHE_ENABLED", false)

	v.SetDefault("TRASH_RETENTION_WINDOW", "720h")
	v.SetDefault("TRASH_SWEEP_INTERVAL", "1h")
	v.SetDefault("TRASH_SWEEP_ENABLED", true)

	v.SetDefault("BLOB_STORAGE_DIR", "./blobs")
	v.SetDefault("ENABLE_TRASH_EXPORTS", false)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
