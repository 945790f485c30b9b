package app

import (
	"fmt"
	"strings"

	"github.com/charlesng35/barangay/internal/auth"
	"github.com/charlesng35/barangay/internal/cache"
	"github.com/charlesng35/barangay/internal/database"
	"github.com/charlesng35/barangay/pkg/mail"
)

// TokenConfig converts the session and OIDC settings into TokenService parameters.
func (c *Config) TokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		Secret:     c.Auth.Session.Secret,
		Issuer:     c.Auth.Session.Issuer,
		SessionTTL: c.Auth.Session.TTL,
		StateTTL:   c.Auth.OIDC.StateTTL,
	}
}

// CookieSettings converts session settings into the cookie writer configuration.
func (c *Config) CookieSettings() auth.CookieSettings {
	ttl := c.Auth.Session.TTL
	if ttl <= 0 {
		ttl = auth.DefaultSessionTTL
	}
	return auth.CookieSettings{
		TTL:    ttl,
		Secure: c.SecureCookies(),
		Domain: strings.TrimSpace(c.Auth.Session.CookieDomain),
	}
}

// OIDCConfig converts OIDC settings into identity provider parameters.
func (c *Config) OIDCConfig() auth.OIDCConfig {
	return auth.OIDCConfig{
		Issuer:       c.Auth.OIDC.Issuer,
		ClientID:     c.Auth.OIDC.ClientID,
		ClientSecret: c.Auth.OIDC.ClientSecret,
		RedirectURL:  c.Auth.OIDC.RedirectURL,
		Scopes:       c.Auth.OIDC.Scopes,
	}
}

// SMTPSettings converts EmailConfig to the mail package representation.
func (c EmailConfig) SMTPSettings() mail.SMTPSettings {
	return mail.SMTPSettings{
		Enabled:  c.SMTP.Enabled,
		Host:     c.SMTP.Host,
		Port:     c.SMTP.Port,
		Username: c.SMTP.Username,
		Password: c.SMTP.Password,
		From:     c.SMTP.From,
		UseTLS:   c.SMTP.UseTLS,
		Timeout:  c.SMTP.Timeout,
	}
}

// RedisClientConfig converts RedisConfig to the cache client parameters.
func (c RedisConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Address:  strings.TrimSpace(c.Address),
		Username: c.Username,
		Password: c.Password,
		DB:       c.DB,
		TLS:      c.TLS,
		Timeout:  c.Timeout,
	}
}

// DatabaseSettings selects the connection parameters for the configured driver.
func (c DatabaseConfig) DatabaseSettings() (database.Config, error) {
	driver := strings.ToLower(strings.TrimSpace(c.Driver))
	cfg := database.Config{Driver: driver, DSN: c.DSN}

	switch driver {
	case "", "sqlite":
		cfg.Driver = "sqlite"
		cfg.Path = c.Path
	case "postgres", "postgresql":
		cfg.Driver = "postgres"
		applyAuth(&cfg, c.Postgres)
	case "mysql":
		applyAuth(&cfg, c.MySQL)
	default:
		return database.Config{}, fmt.Errorf("config: unsupported database driver %q", c.Driver)
	}
	return cfg, nil
}

func applyAuth(cfg *database.Config, auth DBAuthConfig) {
	cfg.Host = auth.Host
	cfg.Port = auth.Port
	cfg.Name = auth.Database
	cfg.User = auth.Username
	cfg.Password = auth.Password
}
