package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config represents the runtime configuration for the barangay backend.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Invitations InvitationConfig  `mapstructure:"invitations"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Email       EmailConfig       `mapstructure:"email"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int             `mapstructure:"port"`
	LogLevel       string          `mapstructure:"log_level"`
	Environment    string          `mapstructure:"environment"`
	StorageTimeout time.Duration   `mapstructure:"storage_timeout"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds unauthenticated endpoints that accept invitation codes.
type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// IsProduction reports whether the server runs in production mode.
func (c ServerConfig) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// AuthConfig captures all authentication-related settings.
type AuthConfig struct {
	Session SessionSettings `mapstructure:"session"`
	OIDC    OIDCSettings    `mapstructure:"oidc"`
}

// SessionSettings configures the session cookies and the token signing them.
type SessionSettings struct {
	Secret        string        `mapstructure:"secret"`
	Issuer        string        `mapstructure:"issuer"`
	TTL           time.Duration `mapstructure:"ttl"`
	SecureCookies *bool         `mapstructure:"secure_cookies"`
	CookieDomain  string        `mapstructure:"cookie_domain"`
}

// OIDCSettings configures the identity provider.
type OIDCSettings struct {
	Issuer          string        `mapstructure:"issuer"`
	ClientID        string        `mapstructure:"client_id"`
	ClientSecret    string        `mapstructure:"client_secret"`
	RedirectURL     string        `mapstructure:"redirect_url"`
	Scopes          []string      `mapstructure:"scopes"`
	StateTTL        time.Duration `mapstructure:"state_ttl"`
	SuccessRedirect string        `mapstructure:"success_redirect"`
	FailureRedirect string        `mapstructure:"failure_redirect"`
}

// InvitationConfig tunes invitation codes.
type InvitationConfig struct {
	Expiry          time.Duration `mapstructure:"expiry"`
	MaxCodeAttempts int           `mapstructure:"max_code_attempts"`
	AcceptURL       string        `mapstructure:"accept_url"`
}

// StorageConfig locates uploaded documents.
type StorageConfig struct {
	Root           string `mapstructure:"root"`
	MaxUploadBytes int64  `mapstructure:"max_upload_bytes"`
}

// CacheConfig selects where shared counters live. The database is used unless Redis is
// enabled.
type CacheConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig describes the Redis connection used for rate-limit counters.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TLS      bool          `mapstructure:"tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	SMTP SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Health     HealthConfig     `mapstructure:"health_check"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// HealthConfig toggles health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// MaintenanceConfig schedules background cleanup.
type MaintenanceConfig struct {
	Enabled               bool   `mapstructure:"enabled"`
	ActivityRetentionDays int    `mapstructure:"activity_retention_days"`
	ActivitySchedule      string `mapstructure:"activity_schedule"`
	InvitationSchedule    string `mapstructure:"invitation_schedule"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("BARANGAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	var problems []string
	if strings.TrimSpace(c.Auth.Session.Secret) == "" {
		problems = append(problems, "auth.session.secret is required")
	} else if len(c.Auth.Session.Secret) < 32 {
		problems = append(problems, "auth.session.secret must be at least 32 characters")
	}
	if strings.TrimSpace(c.Auth.OIDC.Issuer) == "" {
		problems = append(problems, "auth.oidc.issuer is required")
	}
	if strings.TrimSpace(c.Auth.OIDC.ClientID) == "" {
		problems = append(problems, "auth.oidc.client_id is required")
	}
	if strings.TrimSpace(c.Auth.OIDC.ClientSecret) == "" {
		problems = append(problems, "auth.oidc.client_secret is required")
	}
	if strings.TrimSpace(c.Auth.OIDC.RedirectURL) == "" {
		problems = append(problems, "auth.oidc.redirect_url is required")
	}
	if c.Cache.Redis.Enabled && strings.TrimSpace(c.Cache.Redis.Address) == "" {
		problems = append(problems, "cache.redis.address is required when redis is enabled")
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// SecureCookies reports whether session cookies carry the Secure attribute. It follows the
// environment unless set explicitly.
func (c *Config) SecureCookies() bool {
	if c.Auth.Session.SecureCookies != nil {
		return *c.Auth.Session.SecureCookies
	}
	return c.Server.IsProduction()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.storage_timeout", "5s")
	v.SetDefault("server.rate_limit.requests", 20)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/barangay.sqlite")

	v.SetDefault("auth.session.issuer", "barangay")
	v.SetDefault("auth.session.ttl", "168h") // 7 days
	v.SetDefault("auth.oidc.scopes", []string{"openid", "email", "profile"})
	v.SetDefault("auth.oidc.state_ttl", "10m")
	v.SetDefault("auth.oidc.success_redirect", "/dashboard")
	v.SetDefault("auth.oidc.failure_redirect", "/login")

	v.SetDefault("invitations.expiry", "168h")
	v.SetDefault("invitations.max_code_attempts", 10)

	v.SetDefault("storage.root", "./data/uploads")
	v.SetDefault("storage.max_upload_bytes", 25<<20)

	v.SetDefault("cache.redis.enabled", false)
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.timeout", "5s")

	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.host", "")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
	v.SetDefault("monitoring.health_check.enabled", true)

	v.SetDefault("maintenance.enabled", true)
	v.SetDefault("maintenance.activity_retention_days", 365)
	v.SetDefault("maintenance.activity_schedule", "@daily")
	v.SetDefault("maintenance.invitation_schedule", "@hourly")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
