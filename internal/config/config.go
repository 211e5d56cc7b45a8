// Package config loads process configuration from QUILL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/lborres/quill/core"
)

const minSecretLength = 32

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Addr   string `env:"QUILL_ADDR" envDefault:":3000"`
	Secret string `env:"QUILL_SECRET"`

	DBDriver    string `env:"QUILL_DB_DRIVER" envDefault:"sqlite"`
	DatabaseURL string `env:"QUILL_DATABASE_URL" envDefault:"file:quill.db"`

	SessionMaxAge time.Duration `env:"QUILL_SESSION_MAX_AGE" envDefault:"24h"`
	SessionCache  bool          `env:"QUILL_SESSION_CACHE" envDefault:"false"`
	CookieSecure  bool          `env:"QUILL_COOKIE_SECURE" envDefault:"false"`

	StrictOwnership      bool `env:"QUILL_STRICT_OWNERSHIP" envDefault:"true"`
	LinkFederatedToLocal bool `env:"QUILL_FEDERATED_LINK_LOCAL" envDefault:"true"`

	StoreTimeout  time.Duration `env:"QUILL_STORE_TIMEOUT" envDefault:"5s"`
	IdPTimeout    time.Duration `env:"QUILL_IDP_TIMEOUT" envDefault:"10s"`
	SweepSchedule string        `env:"QUILL_SWEEP_SCHEDULE" envDefault:"@every 1h"`

	LogLevel  string `env:"QUILL_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"QUILL_LOG_FORMAT" envDefault:"json"`

	OIDC OIDC
}

type OIDC struct {
	Issuer       string   `env:"QUILL_OIDC_ISSUER" envDefault:"https://accounts.google.com"`
	ClientID     string   `env:"QUILL_OIDC_CLIENT_ID"`
	ClientSecret string   `env:"QUILL_OIDC_CLIENT_SECRET"`
	RedirectURL  string   `env:"QUILL_OIDC_REDIRECT_URL" envDefault:"http://localhost:3000/auth/google/posts"`
	Scopes       []string `env:"QUILL_OIDC_SCOPES" envSeparator:"," envDefault:"openid,email,profile"`
}

// Enabled reports whether federated sign-in is configured.
func (o OIDC) Enabled() bool {
	return o.ClientID != "" && o.ClientSecret != ""
}

// Load parses the environment into a Config without validating it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadFrom is Load over an explicit environment, for tests.
func LoadFrom(environment map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environment}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings that need a human to fix.
func (c Config) Validate() error {
	var errs []error
	if c.Secret == "" {
		errs = append(errs, core.ErrSecretRequired)
	} else if len(c.Secret) < minSecretLength {
		errs = append(errs, fmt.Errorf("%w: need at least %d characters", core.ErrSecretTooShort, minSecretLength))
	}
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown QUILL_DB_DRIVER %q", c.DBDriver))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, core.ErrDBAdapterRequired)
	}
	if c.SessionMaxAge <= 0 {
		errs = append(errs, errors.New("QUILL_SESSION_MAX_AGE must be positive"))
	}
	if c.OIDC.ClientID != "" && c.OIDC.ClientSecret == "" {
		errs = append(errs, errors.New("QUILL_OIDC_CLIENT_SECRET is required with QUILL_OIDC_CLIENT_ID"))
	}
	return errors.Join(errs...)
}
