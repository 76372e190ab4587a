package config

import (
	"log"
	"os"
	"time"

	"MediRoute/pkg/cache"
	"MediRoute/pkg/logger"
	"MediRoute/pkg/notification"
	stores "MediRoute/pkg/storage"
	"MediRoute/pkg/util"
)

type Config struct {
	DBDriver          string `env:"DB_DRIVER"`
	DSN               string `env:"DSN"`
	Log               logger.LogConfig
	Mail              notification.MailConfig
	Cache             cache.Config
	Minio             stores.MinioConfig
	Addr              string        `env:"ADDR"`
	Mode              string        `env:"MODE"`
	APIPrefix         string        `env:"API_PREFIX"`
	AdminPrefix       string        `env:"ADMIN_PREFIX"`
	AuthPrefix        string        `env:"AUTH_PREFIX"`
	MetricsPath       string        `env:"METRICS_PATH"`
	SessionSecret     string        `env:"SESSION_SECRET"`
	SessionExpireDays int           `env:"SESSION_EXPIRE_DAYS"`
	JWTSecret         string        `env:"JWT_SECRET"`
	JWTExpire         time.Duration `env:"JWT_EXPIRE"`
	HospitalCacheTTL  time.Duration `env:"HOSPITAL_CACHE_TTL"`
	DispatchRateLimit string        `env:"RATE_LIMIT_DISPATCH"`
	ResolveTx         bool          `env:"RESOLVE_TRANSACTIONAL"`
	ReconcileSchedule string        `env:"RECONCILE_SCHEDULE"`
	ReconcileStale    time.Duration `env:"RECONCILE_STALE_AFTER"`
	DefaultStaffName  string        `env:"DEFAULT_STAFF_NAME"`
	AdminEmail        string        `env:"ADMIN_EMAIL"`
	AdminPassword     string        `env:"ADMIN_PASSWORD"`
	BackupSchedule    string        `env:"BACKUP_SCHEDULE"`
	BackupPath        string        `env:"BACKUP_PATH"`
	SearchEnabled     bool          `env:"SEARCH_ENABLED"`
	SearchIndexPath   string        `env:"SEARCH_INDEX_PATH"`
}

// Load reads .env files for APP_ENV (default "development") and builds the
// configuration from the environment.
func Load() (*Config, error) {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	if err := util.LoadEnv(env); err != nil {
		log.Printf("Failed to load .env file: %v", err)
	}

	cfg := &Config{
		DBDriver:          util.GetEnvOr("DB_DRIVER", util.DriverSQLite),
		DSN:               util.GetEnvOr("DSN", "mediroute.db"),
		Addr:              util.GetEnvOr("ADDR", ":8080"),
		Mode:              util.GetEnvOr("MODE", "development"),
		APIPrefix:         util.GetEnvOr("API_PREFIX", "/api"),
		AdminPrefix:       util.GetEnvOr("ADMIN_PREFIX", "/admin"),
		AuthPrefix:        util.GetEnvOr("AUTH_PREFIX", "/auth"),
		MetricsPath:       util.GetEnvOr("METRICS_PATH", "/metrics"),
		SessionSecret:     util.GetEnvOr("SESSION_SECRET", "mediroute-dev-session"),
		SessionExpireDays: int(util.GetIntEnvOr("SESSION_EXPIRE_DAYS", 7)),
		JWTSecret:         util.GetEnvOr("JWT_SECRET", "mediroute-dev-jwt"),
		JWTExpire:         util.GetDurationEnvOr("JWT_EXPIRE", 24*time.Hour),
		HospitalCacheTTL:  util.GetDurationEnvOr("HOSPITAL_CACHE_TTL", 30*time.Second),
		DispatchRateLimit: util.GetEnvOr("RATE_LIMIT_DISPATCH", "30-M"),
		ResolveTx:         util.GetBoolEnvOr("RESOLVE_TRANSACTIONAL", true),
		ReconcileSchedule: util.GetEnvOr("RECONCILE_SCHEDULE", "@every 5m"),
		ReconcileStale:    util.GetDurationEnvOr("RECONCILE_STALE_AFTER", 10*time.Minute),
		DefaultStaffName:  util.GetEnvOr("DEFAULT_STAFF_NAME", "Duty Physician"),
		AdminEmail:        util.GetEnv("ADMIN_EMAIL"),
		AdminPassword:     util.GetEnv("ADMIN_PASSWORD"),
		BackupSchedule:    util.GetEnv("BACKUP_SCHEDULE"),
		BackupPath:        util.GetEnvOr("BACKUP_PATH", "./backups"),
		SearchEnabled:     util.GetBoolEnvOr("SEARCH_ENABLED", true),
		SearchIndexPath:   util.GetEnv("SEARCH_INDEX_PATH"),
		Minio: stores.MinioConfig{
			Endpoint:  util.GetEnv("MINIO_ENDPOINT"),
			AccessKey: util.GetEnv("MINIO_ACCESS_KEY"),
			SecretKey: util.GetEnv("MINIO_SECRET_KEY"),
			Bucket:    util.GetEnvOr("MINIO_BUCKET", "mediroute-backups"),
			UseSSL:    util.GetBoolEnv("MINIO_USE_SSL"),
		},
		Log: logger.LogConfig{
			Level:      util.GetEnvOr("LOG_LEVEL", "info"),
			Filename:   util.GetEnv("LOG_FILENAME"),
			MaxSize:    int(util.GetIntEnv("LOG_MAX_SIZE")),
			MaxAge:     int(util.GetIntEnv("LOG_MAX_AGE")),
			MaxBackups: int(util.GetIntEnv("LOG_MAX_BACKUPS")),
		},
		Mail: notification.MailConfig{
			Host:     util.GetEnv("MAIL_HOST"),
			Username: util.GetEnv("MAIL_USERNAME"),
			Password: util.GetEnv("MAIL_PASSWORD"),
			Port:     util.GetIntEnvOr("MAIL_PORT", 587),
			From:     util.GetEnv("MAIL_FROM"),
		},
		Cache: cache.Config{
			Type: util.GetEnvOr("CACHE_TYPE", "gocache"),
			Redis: cache.RedisConfig{
				Addr:         util.GetEnvOr("REDIS_ADDR", "localhost:6379"),
				Password:     util.GetEnv("REDIS_PASSWORD"),
				DB:           int(util.GetIntEnv("REDIS_DB")),
				PoolSize:     int(util.GetIntEnvOr("REDIS_POOL_SIZE", 10)),
				MinIdleConns: int(util.GetIntEnvOr("REDIS_MIN_IDLE_CONNS", 2)),
				DialTimeout:  util.GetDurationEnvOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
				ReadTimeout:  util.GetDurationEnvOr("REDIS_READ_TIMEOUT", 3*time.Second),
				WriteTimeout: util.GetDurationEnvOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
			},
			Local: cache.LocalConfig{
				MaxSize:           int(util.GetIntEnvOr("LOCAL_CACHE_MAX_SIZE", 1000)),
				DefaultExpiration: util.GetDurationEnvOr("LOCAL_CACHE_DEFAULT_EXPIRATION", 5*time.Minute),
				CleanupInterval:   util.GetDurationEnvOr("LOCAL_CACHE_CLEANUP_INTERVAL", 10*time.Minute),
			},
		},
	}
	return cfg, nil
}
