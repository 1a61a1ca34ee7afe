// Package config loads the submission backend's configuration from
// environment variables, using the teacher's config.EnvConfig helper with
// no prefix (spec.md's variable names are already the full env var names).
package config

import (
	"fmt"
	"time"

	"github.com/CSCfi/metadata-submitter-sub002/common"
	"github.com/CSCfi/metadata-submitter-sub002/config"
	"github.com/CSCfi/metadata-submitter-sub002/internal/obs"
)

// Config holds every environment-driven setting spec.md §6 names.
type Config struct {
	Port int
	Host string

	DatabaseURL string

	OIDCURL           string
	AAIClientID        string
	AAIClientSecret    string
	BaseURL            string
	RedirectURL        string
	OIDCScope          string
	OIDCSecureCookie   bool

	JWTSecret string

	DataciteAPI       string
	DataciteUser      string
	DataciteKey       string
	DataciteDOIPrefix string

	CSCPIDURL string
	CSCPIDKey string

	MetaxURL   string
	MetaxToken string

	RemsURL          string
	RemsUser         string
	RemsKey          string
	RemsDiscoveryURL string

	RorURL string

	CSCLDAPHost     string
	CSCLDAPUser     string
	CSCLDAPPassword string

	AdminAPIURL string
	KeystoneURL string

	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string

	RedisAddr string

	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration

	RateLimit float64 // requests/sec per client IP, 0 disables
}

// Load reads the configuration from the environment and fails fast at
// startup on missing required values: the panic EnvConfig.MustGetString
// raises is recovered and returned as an error.
func Load() (cfg *Config, err error) {
	defer func() {
		if r := recover(); r != nil {
			cfg = nil
			err = fmt.Errorf("config: %v", r)
		}
	}()

	env := config.NewEnvConfig("")

	cfg = &Config{
		Port: env.GetInt("PORT", 8080),
		Host: env.GetString("HOST", "0.0.0.0"),

		DatabaseURL: env.MustGetString("DATABASE_URL"),

		OIDCURL:          env.MustGetString("OIDC_URL"),
		AAIClientID:      env.MustGetString("AAI_CLIENT_ID"),
		AAIClientSecret:  env.MustGetString("AAI_CLIENT_SECRET"),
		BaseURL:          env.MustGetString("BASE_URL"),
		RedirectURL:      env.GetString("REDIRECT_URL", ""),
		OIDCScope:        env.GetString("OIDC_SCOPE", "openid profile email"),
		OIDCSecureCookie: env.GetBool("OIDC_SECURE_COOKIE", true),

		JWTSecret: env.MustGetString("JWT_SECRET"),

		DataciteAPI:       env.GetString("DATACITE_API", "https://api.test.datacite.org"),
		DataciteUser:      env.GetString("DATACITE_USER", ""),
		DataciteKey:       env.GetString("DATACITE_KEY", ""),
		DataciteDOIPrefix: env.GetString("DATACITE_DOI_PREFIX", ""),

		CSCPIDURL: env.GetString("CSC_PID_URL", ""),
		CSCPIDKey: env.GetString("CSC_PID_KEY", ""),

		MetaxURL:   env.GetString("METAX_URL", ""),
		MetaxToken: env.GetString("METAX_TOKEN", ""),

		RemsURL:          env.GetString("REMS_URL", ""),
		RemsUser:         env.GetString("REMS_USER", ""),
		RemsKey:          env.GetString("REMS_KEY", ""),
		RemsDiscoveryURL: env.GetString("REMS_DISCOVERY_URL", ""),

		RorURL: env.GetString("ROR_URL", "https://api.ror.org"),

		CSCLDAPHost:     env.GetString("CSC_LDAP_HOST", ""),
		CSCLDAPUser:     env.GetString("CSC_LDAP_USER", ""),
		CSCLDAPPassword: env.GetString("CSC_LDAP_PASSWORD", ""),

		AdminAPIURL: env.GetString("ADMIN_API_URL", ""),
		KeystoneURL: env.GetString("KEYSTONE_URL", ""),

		S3Endpoint:  env.GetString("S3_ENDPOINT", ""),
		S3Region:    env.GetString("S3_REGION", "us-east-1"),
		S3AccessKey: env.GetString("S3_ACCESS_KEY", ""),
		S3SecretKey: env.GetString("S3_SECRET_KEY", ""),
		S3Bucket:    env.GetString("S3_BUCKET", ""),

		RedisAddr: env.GetString("REDIS_ADDR", ""),

		RequestTimeout:  env.GetDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: env.GetDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		RateLimit: float64(env.GetInt("RATE_LIMIT", 0)),
	}

	if cfg.Port <= 0 {
		return nil, fmt.Errorf("config: PORT must be positive")
	}
	cfg.logStartup()
	return cfg, nil
}

// logStartup records the resolved configuration at startup, masking the
// upstream credentials (spec.md §6's DATACITE_KEY/METAX_TOKEN/REMS_KEY/
// AAI_CLIENT_SECRET/CSC_PID_KEY/CSC_LDAP_PASSWORD/S3 secret key) the same
// way the teacher masks secrets before logging them.
func (c *Config) logStartup() {
	obs.Log.WithFields(map[string]interface{}{
		"host":              c.Host,
		"port":              c.Port,
		"datacite_api":      c.DataciteAPI,
		"datacite_key":      common.MaskSecret(c.DataciteKey),
		"csc_pid_key":       common.MaskSecret(c.CSCPIDKey),
		"metax_token":       common.MaskSecret(c.MetaxToken),
		"rems_key":          common.MaskSecret(c.RemsKey),
		"aai_client_secret": common.MaskSecret(c.AAIClientSecret),
		"csc_ldap_password": common.MaskSecret(c.CSCLDAPPassword),
		"jwt_secret":        common.MaskSecret(c.JWTSecret),
		"s3_secret_key":     common.MaskSecret(c.S3SecretKey),
	}).Info("configuration loaded")
}
