package observer

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/logger"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/poll"
)

// StatusRecorder is the subset of the Redis client used to record job
// status.
type StatusRecorder interface {
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

var _ StatusRecorder = (*redis.Client)(nil)

// RedisKey returns the hash key holding the status of a job.
func RedisKey(prefix, service, jobID string) string {
	return prefix + ":" + service + ":" + jobID
}

// Redis returns an Observer recording the latest status of a job in a
// Redis hash with the fields status, attempt, terminal and updated_at.
// The key expires after ttl when ttl is positive. Failures are logged.
func Redis(ctx context.Context, rc StatusRecorder, prefix, service, jobID string,
	ttl time.Duration, l logger.Logger) poll.Observer {
	key := RedisKey(prefix, service, jobID)
	return func(status poll.Status, attempt int) {
		err := rc.HSet(ctx, key,
			"status", status.String(),
			"attempt", strconv.Itoa(attempt),
			"terminal", strconv.FormatBool(status.IsTerminal()),
			"updated_at", time.Now().UTC().Format(time.RFC3339Nano),
		).Err()
		if err != nil {
			l.Warn("Failed to record job status.", "key", key, "error", err)
			return
		}
		if ttl > 0 {
			if err := rc.Expire(ctx, key, ttl).Err(); err != nil {
				l.Warn("Failed to set job status expiry.", "key", key, "error", err)
			}
		}
	}
}

// NewRedisClient returns a Redis client for the given address.
func NewRedisClient(addr, username, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Username: username,
		Password: password,
		DB:       db,
	})
}
