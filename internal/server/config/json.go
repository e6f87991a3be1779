package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/hobbyvault/internal/flagx"
	"github.com/dmitrijs2005/hobbyvault/internal/timex"
)

// JsonConfig is the on-disk shape of the server configuration. Durations
// use timex.Duration so both "15m" and integer nanoseconds are accepted.
// Only keys present in the file override the current values.
type JsonConfig struct {
	EndpointAddrHTTP             *string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC             *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN                  *string         `json:"database_dsn"`
	AccessSecretKey              *string         `json:"access_secret_key"`
	RefreshSecretKey             *string         `json:"refresh_secret_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	RegistryBackend              *string         `json:"registry_backend"`
	RedisAddr                    *string         `json:"redis_addr"`
	SweepSchedule                *string         `json:"sweep_schedule"`
	PasswordMemoryKB             *uint32         `json:"password_memory_kb"`
	PasswordTime                 *uint32         `json:"password_time"`
	PasswordParallelism          *uint8          `json:"password_parallelism"`
}

// parseJson loads configuration values from the file named by -c/-config.
// Without the flag nothing is loaded. An unreadable file or invalid JSON
// panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JSONConfigPath(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.AccessSecretKey, c.AccessSecretKey)
	setString(&config.RefreshSecretKey, c.RefreshSecretKey)
	setString(&config.RegistryBackend, c.RegistryBackend)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.SweepSchedule, c.SweepSchedule)

	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration != nil {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.PasswordMemoryKB != nil {
		config.PasswordMemoryKB = *c.PasswordMemoryKB
	}
	if c.PasswordTime != nil {
		config.PasswordTime = *c.PasswordTime
	}
	if c.PasswordParallelism != nil {
		config.PasswordParallelism = *c.PasswordParallelism
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
