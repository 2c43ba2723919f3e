package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	JWT         JWTConfig         `mapstructure:"jwt"`
	Invitation  InvitationConfig  `mapstructure:"invitation"`
	SystemAdmin SystemAdminConfig `mapstructure:"system_admin"`
	SMTP        SMTPConfig        `mapstructure:"smtp"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Host                    string        `mapstructure:"host"`
	Port                    int           `mapstructure:"port"`
	Mode                    string        `mapstructure:"mode"`
	PortalURL               string        `mapstructure:"portal_url"`
	ReadTimeout             time.Duration `mapstructure:"read_timeout"`
	WriteTimeout            time.Duration `mapstructure:"write_timeout"`
	GracefulShutdownTimeout time.Duration `mapstructure:"graceful_shutdown_timeout"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	DB              string        `mapstructure:"db"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type CacheConfig struct {
	Backend string `mapstructure:"backend"` // "redis" | "memory"
}

type JWTConfig struct {
	AccessSecret      string        `mapstructure:"access_secret"`
	RefreshSecret     string        `mapstructure:"refresh_secret"`
	SystemAdminSecret string        `mapstructure:"system_admin_secret"`
	Issuer            string        `mapstructure:"issuer"`
	AccessTokenTTL    time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL   time.Duration `mapstructure:"refresh_token_ttl"`
}

type InvitationConfig struct {
	ExpiryHours          int    `mapstructure:"expiry_hours"`
	ResendExtensionHours int    `mapstructure:"resend_extension_hours"`
	SweepSchedule        string `mapstructure:"sweep_schedule"` // cron expression
}

type SystemAdminConfig struct {
	Email             string `mapstructure:"email"`
	PasswordHash      string `mapstructure:"password_hash"`
	Level             string `mapstructure:"level"`
	CrossSchoolAccess bool   `mapstructure:"cross_school_access"`
	TokenExpiryHours  int    `mapstructure:"token_expiry_hours"`
}

type SMTPConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	FromEmail     string `mapstructure:"from_email"`
	FromName      string `mapstructure:"from_name"`
	UseSTARTTLS   bool   `mapstructure:"use_starttls"`
	SkipTLSVerify bool   `mapstructure:"skip_tls_verify"`
}

type CORSConfig struct {
	AllowedOrigins   []string      `mapstructure:"allowed_origins"`
	AllowedMethods   []string      `mapstructure:"allowed_methods"`
	AllowedHeaders   []string      `mapstructure:"allowed_headers"`
	AllowCredentials bool          `mapstructure:"allow_credentials"`
	MaxAge           time.Duration `mapstructure:"max_age"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Load reads config.yaml, overlays environment variables, and returns Config.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Environment variable override: DATABASE_POSTGRES_HOST -> database.postgres.host
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.graceful_shutdown_timeout", 10*time.Second)

	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.postgres.max_idle_conns", 10)
	v.SetDefault("database.postgres.max_open_conns", 50)
	v.SetDefault("database.postgres.conn_max_lifetime", time.Hour)
	v.SetDefault("database.postgres.auto_migrate", true)
	v.SetDefault("database.redis.pool_size", 10)

	v.SetDefault("cache.backend", "memory")

	v.SetDefault("jwt.issuer", "schoolhub")
	v.SetDefault("jwt.access_token_ttl", time.Hour)
	v.SetDefault("jwt.refresh_token_ttl", 7*24*time.Hour)

	v.SetDefault("invitation.expiry_hours", 72)
	v.SetDefault("invitation.resend_extension_hours", 72)
	v.SetDefault("invitation.sweep_schedule", "0 * * * *")

	v.SetDefault("system_admin.level", "full")
	v.SetDefault("system_admin.cross_school_access", true)
	v.SetDefault("system_admin.token_expiry_hours", 8)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
