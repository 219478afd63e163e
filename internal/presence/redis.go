package presence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// compareAndDelete removes KEYS[1] only while it still holds ARGV[1], so a
// late disconnect never erases a newer connection's mapping.
var compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var compareAndExpire = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
	redis.call("PEXPIRE", KEYS[2], ARGV[2])
	return 1
end
return 0
`)

// RedisRegistry shares presence between gateway instances.
// Keys used:
//   - <prefix>:presence:<participantID> -> connID
//   - <prefix>:conn:<connID>            -> participantID
//
// Both expire after ttl unless refreshed by the connection heartbeat.
type RedisRegistry struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisRegistry(client *redis.Client, prefix string, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisRegistry) presenceKey(participantID string) string {
	return fmt.Sprintf("%s:presence:%s", r.prefix, participantID)
}

func (r *RedisRegistry) connKey(connID string) string {
	return fmt.Sprintf("%s:conn:%s", r.prefix, connID)
}

func (r *RedisRegistry) Register(ctx context.Context, participantID, connID string) (string, error) {
	previous, err := r.client.SetArgs(ctx, r.presenceKey(participantID), connID, redis.SetArgs{
		TTL: r.ttl,
		Get: true,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("register presence: %w", err)
	}

	if err := r.client.Set(ctx, r.connKey(connID), participantID, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("register connection: %w", err)
	}
	return previous, nil
}

// Unregister uses the reverse key instead of scanning every participant.
func (r *RedisRegistry) Unregister(ctx context.Context, connID string) (string, bool, error) {
	participantID, err := r.client.GetDel(ctx, r.connKey(connID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("unregister connection: %w", err)
	}

	deleted, err := compareAndDelete.Run(ctx, r.client, []string{r.presenceKey(participantID)}, connID).Int()
	if err != nil {
		return "", false, fmt.Errorf("unregister presence: %w", err)
	}
	return participantID, deleted == 1, nil
}

func (r *RedisRegistry) Lookup(ctx context.Context, participantID string) (string, bool, error) {
	connID, err := r.client.Get(ctx, r.presenceKey(participantID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup presence: %w", err)
	}
	return connID, true, nil
}

// Refresh extends both keys while connID still owns the participant.
func (r *RedisRegistry) Refresh(ctx context.Context, participantID, connID string) error {
	keys := []string{r.presenceKey(participantID), r.connKey(connID)}
	return compareAndExpire.Run(ctx, r.client, keys, connID, r.ttl.Milliseconds()).Err()
}
