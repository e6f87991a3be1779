// Package config handles configuration for the server component,
// including defaults, .env/environment overlay, JSON overlay, and
// command-line flags.
package config

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/hobbyvault/internal/server/password"
)

// Registry backends accepted by RegistryBackend.
const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// Config holds runtime settings for the HobbyVault auth server.
//
// Fields:
//   - EndpointAddrHTTP / EndpointAddrGRPC: bind addresses for the JSON and gRPC APIs.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty keeps accounts in memory.
//   - AccessSecretKey / RefreshSecretKey: HMAC secrets for the two token kinds.
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token lifetimes.
//   - RegistryBackend: where refresh tokens live, see Backend* constants.
//   - RedisAddr: host:port used when RegistryBackend is "redis".
//   - SweepSchedule: cron spec for the expired-token sweep. Empty disables it.
//   - PasswordMemoryKB / PasswordTime / PasswordParallelism: argon2id cost.
type Config struct {
	EndpointAddrHTTP             string
	EndpointAddrGRPC             string
	DatabaseDSN                  string
	AccessSecretKey              string
	RefreshSecretKey             string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	RegistryBackend              string
	RedisAddr                    string
	SweepSchedule                string
	PasswordMemoryKB             uint32
	PasswordTime                 uint32
	PasswordParallelism          uint8
}

// Placeholder signing keys. Accepted only while nothing outlives the
// process: memory accounts and memory registry.
const (
	DefaultAccessSecretKey  = "access-secret-key"
	DefaultRefreshSecretKey = "refresh-secret-key"
)

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.EndpointAddrGRPC = ":50051"
	c.DatabaseDSN = ""
	c.AccessSecretKey = DefaultAccessSecretKey
	c.RefreshSecretKey = DefaultRefreshSecretKey
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 7 * 24 * time.Hour
	c.RegistryBackend = BackendMemory
	c.RedisAddr = "127.0.0.1:6379"
	c.SweepSchedule = "@every 10m"
	c.PasswordMemoryKB = password.DefaultParams.MemoryKB
	c.PasswordTime = password.DefaultParams.Time
	c.PasswordParallelism = password.DefaultParams.Parallelism
}

// PasswordParams returns the argon2id parameters for new hashes.
func (c *Config) PasswordParams() password.Params {
	p := password.DefaultParams
	p.MemoryKB = c.PasswordMemoryKB
	p.Time = c.PasswordTime
	p.Parallelism = c.PasswordParallelism
	return p
}

// UsesDefaultSecrets reports whether either signing key is still the
// built-in placeholder.
func (c *Config) UsesDefaultSecrets() bool {
	return c.AccessSecretKey == DefaultAccessSecretKey || c.RefreshSecretKey == DefaultRefreshSecretKey
}

// persistent reports whether accounts or refresh tokens are stored outside
// the process.
func (c *Config) persistent() bool {
	return c.DatabaseDSN != "" || c.RegistryBackend != BackendMemory
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.AccessSecretKey == "" {
		errs = append(errs, errors.New("access secret key is empty"))
	}
	if c.RefreshSecretKey == "" {
		errs = append(errs, errors.New("refresh secret key is empty"))
	}
	if c.AccessSecretKey != "" && c.AccessSecretKey == c.RefreshSecretKey {
		errs = append(errs, errors.New("access and refresh secret keys must differ"))
	}
	if c.persistent() && c.UsesDefaultSecrets() {
		errs = append(errs, errors.New("default secret keys are only allowed with in-memory storage"))
	}
	if c.AccessTokenValidityDuration <= 0 || c.RefreshTokenValidityDuration <= 0 {
		errs = append(errs, errors.New("token validity durations must be positive"))
	}
	switch c.RegistryBackend {
	case BackendMemory, BackendRedis:
	case BackendPostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("postgres registry requires a database DSN"))
		}
	default:
		errs = append(errs, errors.New("unknown registry backend: "+c.RegistryBackend))
	}
	return errors.Join(errs...)
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from .env and the environment, an optional JSON file and finally
// command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg, ".env")
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
