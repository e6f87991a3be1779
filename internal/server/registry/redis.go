package registry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/hobbyvault/internal/common"
	"github.com/dmitrijs2005/hobbyvault/internal/server/models"
	"github.com/redis/go-redis/v9"
)

// Status codes returned by the Lua scripts.
const (
	scriptRejected int64 = 0
	scriptOK       int64 = 1
	scriptConflict int64 = -1
)

// Record hashes carry account_id, expires_at and created_at (unix millis) and
// expire on their own through PEXPIREAT. A per-account set lists the tokens
// for RevokeAll.
const storeScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return -1
end
redis.call("HSET", KEYS[1], "account_id", ARGV[2], "expires_at", ARGV[3], "created_at", ARGV[4])
redis.call("PEXPIREAT", KEYS[1], ARGV[3])
redis.call("SADD", KEYS[2], ARGV[1])
return 1
`

const rotateScript = `
local owner = redis.call("HGET", KEYS[1], "account_id")
if not owner or owner ~= ARGV[2] then
  return 0
end
local expires = tonumber(redis.call("HGET", KEYS[1], "expires_at"))
if not expires or expires <= tonumber(ARGV[3]) then
  redis.call("DEL", KEYS[1])
  redis.call("SREM", KEYS[3], ARGV[1])
  return 0
end
if redis.call("EXISTS", KEYS[2]) == 1 then
  return -1
end
redis.call("DEL", KEYS[1])
redis.call("SREM", KEYS[3], ARGV[1])
redis.call("HSET", KEYS[2], "account_id", ARGV[2], "expires_at", ARGV[5], "created_at", ARGV[6])
redis.call("PEXPIREAT", KEYS[2], ARGV[5])
redis.call("SADD", KEYS[3], ARGV[4])
return 1
`

const revokeScript = `
local owner = redis.call("HGET", KEYS[1], "account_id")
if not owner then
  return 0
end
redis.call("DEL", KEYS[1])
redis.call("SREM", ARGV[2] .. owner, ARGV[1])
return 1
`

const revokeAllScript = `
local tokens = redis.call("SMEMBERS", KEYS[1])
for _, t in ipairs(tokens) do
  redis.call("DEL", ARGV[1] .. t)
end
redis.call("DEL", KEYS[1])
return #tokens
`

var (
	storeLua     = redis.NewScript(storeScript)
	rotateLua    = redis.NewScript(rotateScript)
	revokeLua    = redis.NewScript(revokeScript)
	revokeAllLua = redis.NewScript(revokeAllScript)
)

// ErrRedisUnavailable wraps transport failures talking to Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// RedisRegistry keeps records in Redis. Suitable for several server
// instances sharing one registry.
type RedisRegistry struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisRegistry namespaces every key under prefix (for example "hv").
func NewRedisRegistry(rdb redis.UniversalClient, prefix string) *RedisRegistry {
	return &RedisRegistry{rdb: rdb, prefix: prefix, now: time.Now}
}

func (r *RedisRegistry) tokenPrefix() string { return r.prefix + ":rt:" }

func (r *RedisRegistry) accountPrefix() string { return r.prefix + ":acct:" }

func (r *RedisRegistry) tokenKey(token string) string { return r.tokenPrefix() + token }

func (r *RedisRegistry) accountKey(accountID string) string { return r.accountPrefix() + accountID }

func (r *RedisRegistry) Store(ctx context.Context, rec *models.RefreshToken) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}
	code, err := storeLua.Run(ctx, r.rdb,
		[]string{r.tokenKey(rec.Token), r.accountKey(rec.AccountID)},
		rec.Token,
		rec.AccountID,
		rec.ExpiresAt.UnixMilli(),
		rec.CreatedAt.UnixMilli(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if code == scriptConflict {
		return common.ErrorConflict
	}
	return nil
}

func (r *RedisRegistry) Lookup(ctx context.Context, token string) (*models.RefreshToken, error) {
	fields, err := r.rdb.HGetAll(ctx, r.tokenKey(token)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, common.ErrorNotFound
	}

	expires, err := strconv.ParseInt(fields["expires_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt registry record: %w", err)
	}
	created, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt registry record: %w", err)
	}

	return &models.RefreshToken{
		Token:     token,
		AccountID: fields["account_id"],
		ExpiresAt: time.UnixMilli(expires),
		CreatedAt: time.UnixMilli(created),
	}, nil
}

func (r *RedisRegistry) Rotate(ctx context.Context, oldToken, accountID string, next *models.RefreshToken) error {
	if next.CreatedAt.IsZero() {
		next.CreatedAt = r.now()
	}
	code, err := rotateLua.Run(ctx, r.rdb,
		[]string{r.tokenKey(oldToken), r.tokenKey(next.Token), r.accountKey(accountID)},
		oldToken,
		accountID,
		r.now().UnixMilli(),
		next.Token,
		next.ExpiresAt.UnixMilli(),
		next.CreatedAt.UnixMilli(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	switch code {
	case scriptOK:
		return nil
	case scriptConflict:
		return common.ErrorConflict
	default:
		return common.ErrorUnauthorized
	}
}

func (r *RedisRegistry) Revoke(ctx context.Context, token string) error {
	err := revokeLua.Run(ctx, r.rdb, []string{r.tokenKey(token)}, token, r.accountPrefix()).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (r *RedisRegistry) RevokeAll(ctx context.Context, accountID string) error {
	err := revokeAllLua.Run(ctx, r.rdb, []string{r.accountKey(accountID)}, r.tokenPrefix()).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// DeleteExpired only tidies the per-account sets: record keys are already
// gone once their PEXPIREAT passes. It returns the number of stale set
// members removed.
func (r *RedisRegistry) DeleteExpired(ctx context.Context, _ time.Time) (int64, error) {
	var removed int64

	iter := r.rdb.Scan(ctx, 0, r.accountPrefix()+"*", 100).Iterator()
	for iter.Next(ctx) {
		setKey := iter.Val()

		members, err := r.rdb.SMembers(ctx, setKey).Result()
		if err != nil {
			return removed, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		for _, token := range members {
			exists, err := r.rdb.Exists(ctx, r.tokenKey(token)).Result()
			if err != nil {
				return removed, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
			if exists == 1 {
				continue
			}
			n, err := r.rdb.SRem(ctx, setKey, token).Result()
			if err != nil {
				return removed, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
			removed += n
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return removed, nil
}
