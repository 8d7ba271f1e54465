package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"dissent/internal/domain"
)

// DefaultRedisPrefix namespaces dissent keys inside a shared Redis database.
const DefaultRedisPrefix = "dissent:"

// Each key is a hash {v: version, d: data}. Writes run as scripts so the
// version check, the increment and the data write land together.
const setScript = `
local v = redis.call("HINCRBY", KEYS[1], "v", 1)
redis.call("HSET", KEYS[1], "d", ARGV[1])
return v
`

const casScript = `
local cur = tonumber(redis.call("HGET", KEYS[1], "v") or "0")
if cur ~= tonumber(ARGV[1]) then
  return -1
end
local v = redis.call("HINCRBY", KEYS[1], "v", 1)
redis.call("HSET", KEYS[1], "d", ARGV[2])
return v
`

var (
	setLua = redis.NewScript(setScript)
	casLua = redis.NewScript(casScript)
)

// ErrRedisUnavailable wraps transport failures talking to Redis.
var ErrRedisUnavailable = errors.New("redis unavailable")

// RedisStore is a SecretStore backed by Redis.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRedisStore returns a RedisStore using client. An empty prefix selects
// DefaultRedisPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string { return s.prefix + k }

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
}

// Get returns the value stored under key.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, domain.Version, error) {
	vals, err := s.redis.HMGet(ctx, s.key(key), "v", "d").Result()
	if err != nil {
		return nil, 0, unavailable(err)
	}
	if len(vals) != 2 || vals[0] == nil {
		return nil, 0, domain.ErrNotFound
	}
	vs, ok := vals[0].(string)
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s: version field", domain.ErrSerialization, key)
	}
	v, err := strconv.ParseUint(vs, 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %s: version field: %v", domain.ErrSerialization, key, err)
	}
	ds, _ := vals[1].(string)
	return []byte(ds), domain.Version(v), nil
}

// Set stores value unconditionally.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte) (domain.Version, error) {
	v, err := setLua.Run(ctx, s.redis, []string{s.key(key)}, value).Int64()
	if err != nil {
		return 0, unavailable(err)
	}
	return domain.Version(v), nil
}

// CompareAndSwap stores value only if key is at the expected version.
func (s *RedisStore) CompareAndSwap(
	ctx context.Context,
	key string,
	expected domain.Version,
	value []byte,
) (domain.Version, error) {
	v, err := casLua.Run(
		ctx,
		s.redis,
		[]string{s.key(key)},
		strconv.FormatUint(uint64(expected), 10),
		value,
	).Int64()
	if err != nil {
		return 0, unavailable(err)
	}
	if v < 0 {
		return 0, domain.ErrVersionConflict
	}
	return domain.Version(v), nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, s.key(key)).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// List returns the sorted keys that start with prefix.
func (s *RedisStore) List(ctx context.Context, prefix string) ([]string, error) {
	pattern := escapeGlob(s.prefix+prefix) + "*"
	seen := make(map[string]struct{})
	var cursor uint64
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, 1000).Result()
		if err != nil {
			return nil, unavailable(err)
		}
		for _, k := range keys {
			seen[strings.TrimPrefix(k, s.prefix)] = struct{}{}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out, nil
}

// escapeGlob quotes the characters SCAN MATCH treats as wildcards.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

var _ domain.SecretStore = (*RedisStore)(nil)
