package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables read by parseEnv.
const (
	EnvHTTPAddr         = "HOBBYVAULT_HTTP_ADDR"
	EnvGRPCAddr         = "HOBBYVAULT_GRPC_ADDR"
	EnvDatabaseDSN      = "HOBBYVAULT_DATABASE_DSN"
	EnvAccessSecret     = "HOBBYVAULT_ACCESS_SECRET"
	EnvRefreshSecret    = "HOBBYVAULT_REFRESH_SECRET"
	EnvAccessTTL        = "HOBBYVAULT_ACCESS_TTL"
	EnvRefreshTTL       = "HOBBYVAULT_REFRESH_TTL"
	EnvRegistryBackend  = "HOBBYVAULT_REGISTRY_BACKEND"
	EnvRedisAddr        = "HOBBYVAULT_REDIS_ADDR"
	EnvSweepSchedule    = "HOBBYVAULT_SWEEP_SCHEDULE"
	EnvPasswordMemoryKB = "HOBBYVAULT_PASSWORD_MEMORY_KB"
	EnvPasswordTime     = "HOBBYVAULT_PASSWORD_TIME"
	EnvPasswordThreads  = "HOBBYVAULT_PASSWORD_PARALLELISM"
)

// parseEnv loads envFile into the process environment (existing variables
// win) and copies every set HOBBYVAULT_* variable into config. A missing
// file is fine; a malformed file or value panics, like the other loaders.
func parseEnv(config *Config, envFile string) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			panic(err)
		}
	}

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				panic(err)
			}
			*dst = d
		}
	}
	num := func(key string, bits int) (uint64, bool) {
		v, ok := os.LookupEnv(key)
		if !ok {
			return 0, false
		}
		n, err := strconv.ParseUint(v, 10, bits)
		if err != nil {
			panic(err)
		}
		return n, true
	}

	str(EnvHTTPAddr, &config.EndpointAddrHTTP)
	str(EnvGRPCAddr, &config.EndpointAddrGRPC)
	str(EnvDatabaseDSN, &config.DatabaseDSN)
	str(EnvAccessSecret, &config.AccessSecretKey)
	str(EnvRefreshSecret, &config.RefreshSecretKey)
	dur(EnvAccessTTL, &config.AccessTokenValidityDuration)
	dur(EnvRefreshTTL, &config.RefreshTokenValidityDuration)
	str(EnvRegistryBackend, &config.RegistryBackend)
	str(EnvRedisAddr, &config.RedisAddr)
	str(EnvSweepSchedule, &config.SweepSchedule)

	if n, ok := num(EnvPasswordMemoryKB, 32); ok {
		config.PasswordMemoryKB = uint32(n)
	}
	if n, ok := num(EnvPasswordTime, 32); ok {
		config.PasswordTime = uint32(n)
	}
	if n, ok := num(EnvPasswordThreads, 8); ok {
		config.PasswordParallelism = uint8(n)
	}
}
