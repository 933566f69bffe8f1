package config

import (
	"encoding/json"
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/ScottAgirs/keystone-nextjs-auth/internal/auth/mapper"
)

type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"3000"`

	DatabaseDSN string `env:"DATABASE_DSN,required"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	// Opaque shared secret the session tokens are signed with.
	SessionSecret string `env:"SESSION_SECRET,required"`

	ListKey           string `env:"LIST_KEY" envDefault:"User"`
	IdentityField     string `env:"IDENTITY_FIELD" envDefault:"subjectId"`
	SessionData       string `env:"SESSION_DATA" envDefault:"id"`
	AutoCreate        bool   `env:"AUTO_CREATE" envDefault:"false"`
	ProtectIdentities bool   `env:"PROTECT_IDENTITIES" envDefault:"true"`

	// JSON objects mapping internal field name -> claim key.
	UserMapJSON    string `env:"USER_MAP" envDefault:"{}"`
	AccountMapJSON string `env:"ACCOUNT_MAP" envDefault:"{}"`
	ProfileMapJSON string `env:"PROFILE_MAP" envDefault:"{}"`

	// Password sign-in; an empty secret field disables the routes.
	PasswordEmailField  string `env:"PASSWORD_EMAIL_FIELD" envDefault:"email"`
	PasswordSecretField string `env:"PASSWORD_SECRET_FIELD"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_REDIRECT_URL"`

	Auth0Issuer       string `env:"AUTH0_ISSUER"`
	Auth0ClientID     string `env:"AUTH0_CLIENT_ID"`
	Auth0ClientSecret string `env:"AUTH0_CLIENT_SECRET"`
	Auth0RedirectURL  string `env:"AUTH0_REDIRECT_URL"`
	Auth0Connection   string `env:"AUTH0_CONNECTION"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}
	return cfg, nil
}

// FieldMaps decodes the three JSON-encoded mapping tables into the
// immutable mapper configuration.
func (c Config) FieldMaps() (mapper.Config, error) {
	userMap, err := decodeMapping(c.UserMapJSON, "USER_MAP")
	if err != nil {
		return mapper.Config{}, err
	}
	accountMap, err := decodeMapping(c.AccountMapJSON, "ACCOUNT_MAP")
	if err != nil {
		return mapper.Config{}, err
	}
	profileMap, err := decodeMapping(c.ProfileMapJSON, "PROFILE_MAP")
	if err != nil {
		return mapper.Config{}, err
	}
	return mapper.Config{
		User:    userMap,
		Account: accountMap,
		Profile: profileMap,
	}, nil
}

func decodeMapping(raw, name string) (mapper.Mapping, error) {
	if raw == "" {
		return mapper.Mapping{}, nil
	}
	var m mapper.Mapping
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("config: %s is not a valid JSON mapping: %w", name, err)
	}
	return m, nil
}
