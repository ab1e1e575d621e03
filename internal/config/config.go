package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	DB       DBConfig
	JWT      JWTConfig
	S3       S3Config
	Transfer TransferConfig
	Log      LogConfig
	CORS     CORSConfig
}

// ServerConfig holds HTTP server settings. Read and write timeouts are both
// minutes-scale: part uploads stream multi-MiB bodies in and out of single
// requests. ReadHeaderTimeout stays short to bound slow-loris connections.
type ServerConfig struct {
	Port              string        `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	Environment       string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// JWTConfig holds JWT signing and expiry settings.
type JWTConfig struct {
	Secret            string        `mapstructure:"secret"`
	AccessTokenExpiry time.Duration `mapstructure:"access_expiry"`
	Issuer            string        `mapstructure:"issuer"`
}

// S3Config holds the bootstrap storage mount. Additional mounts live in the
// storage_mounts table; this one is created at startup when the table is empty.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	MountPath string `mapstructure:"mount_path"`
}

// TransferConfig holds multipart transfer tuning. The minimum part size floor
// is the S3 5 MiB constraint and applies to every part but the last.
type TransferConfig struct {
	MinPartSize     int64         `mapstructure:"min_part_size"`
	MaxPartSize     int64         `mapstructure:"max_part_size"`
	TargetPartCount int64         `mapstructure:"target_part_count"`
	PartConcurrency int           `mapstructure:"part_concurrency"`
	MaxPartAttempts int           `mapstructure:"max_part_attempts"`
	PartTimeout     time.Duration `mapstructure:"part_timeout"`
	PresignExpiry   time.Duration `mapstructure:"presign_expiry"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from environment variables with the DRIFTBOX_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DRIFTBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults. The read timeout covers the full request body, so it
	// must accommodate a part body arriving over a slow uplink; only the
	// header read stays on a short leash.
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "15m")
	v.SetDefault("server.read_header_timeout", "10s")
	v.SetDefault("server.write_timeout", "15m")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "driftbox")
	v.SetDefault("db.password", "driftbox_secret")
	v.SetDefault("db.name", "driftbox_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.access_expiry", "15m")
	v.SetDefault("jwt.issuer", "driftbox")

	// S3 bootstrap mount defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "driftbox-files")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.mount_path", "/")

	// Transfer defaults. Part uploads carry a minutes-scale timeout: large
	// binary parts over variable bandwidth are expected to be slow.
	v.SetDefault("transfer.min_part_size", int64(5*1024*1024))
	v.SetDefault("transfer.max_part_size", int64(100*1024*1024))
	v.SetDefault("transfer.target_part_count", int64(200))
	v.SetDefault("transfer.part_concurrency", 4)
	v.SetDefault("transfer.max_part_attempts", 3)
	v.SetDefault("transfer.part_timeout", "5m")
	v.SetDefault("transfer.presign_expiry", "1h")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                "DRIFTBOX_SERVER_PORT",
		"server.read_timeout":        "DRIFTBOX_SERVER_READ_TIMEOUT",
		"server.read_header_timeout": "DRIFTBOX_SERVER_READ_HEADER_TIMEOUT",
		"server.write_timeout":       "DRIFTBOX_SERVER_WRITE_TIMEOUT",
		"server.environment":         "DRIFTBOX_SERVER_ENVIRONMENT",
		"db.host":                    "DRIFTBOX_DB_HOST",
		"db.port":                    "DRIFTBOX_DB_PORT",
		"db.user":                    "DRIFTBOX_DB_USER",
		"db.password":                "DRIFTBOX_DB_PASSWORD",
		"db.name":                    "DRIFTBOX_DB_NAME",
		"db.sslmode":                 "DRIFTBOX_DB_SSLMODE",
		"db.max_open":                "DRIFTBOX_DB_MAX_OPEN",
		"db.max_idle":                "DRIFTBOX_DB_MAX_IDLE",
		"jwt.secret":                 "DRIFTBOX_JWT_SECRET",
		"jwt.access_expiry":          "DRIFTBOX_JWT_ACCESS_EXPIRY",
		"jwt.issuer":                 "DRIFTBOX_JWT_ISSUER",
		"s3.region":                  "DRIFTBOX_S3_REGION",
		"s3.bucket":                  "DRIFTBOX_S3_BUCKET",
		"s3.endpoint":                "DRIFTBOX_S3_ENDPOINT",
		"s3.access_key":              "DRIFTBOX_S3_ACCESS_KEY",
		"s3.secret_key":              "DRIFTBOX_S3_SECRET_KEY",
		"s3.mount_path":              "DRIFTBOX_S3_MOUNT_PATH",
		"transfer.min_part_size":     "DRIFTBOX_TRANSFER_MIN_PART_SIZE",
		"transfer.max_part_size":     "DRIFTBOX_TRANSFER_MAX_PART_SIZE",
		"transfer.target_part_count": "DRIFTBOX_TRANSFER_TARGET_PART_COUNT",
		"transfer.part_concurrency":  "DRIFTBOX_TRANSFER_PART_CONCURRENCY",
		"transfer.max_part_attempts": "DRIFTBOX_TRANSFER_MAX_PART_ATTEMPTS",
		"transfer.part_timeout":      "DRIFTBOX_TRANSFER_PART_TIMEOUT",
		"transfer.presign_expiry":    "DRIFTBOX_TRANSFER_PRESIGN_EXPIRY",
		"log.level":                  "DRIFTBOX_LOG_LEVEL",
		"log.format":                 "DRIFTBOX_LOG_FORMAT",
		"cors.allowed_origins":       "DRIFTBOX_CORS_ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if DRIFTBOX_SERVER_PORT
	// is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("DRIFTBOX_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:              serverPort,
		ReadTimeout:       v.GetDuration("server.read_timeout"),
		ReadHeaderTimeout: v.GetDuration("server.read_header_timeout"),
		WriteTimeout:      v.GetDuration("server.write_timeout"),
		Environment:       v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.JWT = JWTConfig{
		Secret:            v.GetString("jwt.secret"),
		AccessTokenExpiry: v.GetDuration("jwt.access_expiry"),
		Issuer:            v.GetString("jwt.issuer"),
	}
	cfg.S3 = S3Config{
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
		MountPath: v.GetString("s3.mount_path"),
	}
	cfg.Transfer = TransferConfig{
		MinPartSize:     v.GetInt64("transfer.min_part_size"),
		MaxPartSize:     v.GetInt64("transfer.max_part_size"),
		TargetPartCount: v.GetInt64("transfer.target_part_count"),
		PartConcurrency: v.GetInt("transfer.part_concurrency"),
		MaxPartAttempts: v.GetInt("transfer.max_part_attempts"),
		PartTimeout:     v.GetDuration("transfer.part_timeout"),
		PresignExpiry:   v.GetDuration("transfer.presign_expiry"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	return cfg, nil
}
