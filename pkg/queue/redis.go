package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"CropVol/pkg/logger"
)

// promoteDue moves retries whose time has come back onto the work list in one
// round trip, so two replicas never deliver the same retry twice.
var promoteDue = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, m in ipairs(due) do
	redis.call('ZREM', KEYS[1], m)
	redis.call('LPUSH', KEYS[2], m)
end
return #due
`)

const (
	popTimeout    = time.Second
	promoteEvery  = 5 * time.Second
	promoteBatch  = 100
	backoffOnFail = time.Second
)

// RedisQueue keeps pending work in a list, scheduled retries in a sorted set
// scored by due time and exhausted messages in a dead-letter list. Queued
// refits survive restarts and are shared by every replica.
type RedisQueue struct {
	dispatcher
	runner
	client *redis.Client
	keys   redisKeys
}

type redisKeys struct {
	pending, retry, dead string
}

func newRedisKeys(prefix string) redisKeys {
	return redisKeys{
		pending: prefix + ":messages",
		retry:   prefix + ":retry",
		dead:    prefix + ":dlq",
	}
}

// RedisQueueOption configures RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix namespaces the queue keys.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		if prefix != "" {
			r.keys = newRedisKeys(prefix)
		}
	}
}

func NewRedisQueue(lgr *logger.Logger, config *QueueConfig, client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	rq := &RedisQueue{client: client, keys: newRedisKeys("cropvol:jobs")}
	rq.init(lgr, config)
	for _, opt := range opts {
		opt(rq)
	}
	return rq
}

// Start pings Redis, then runs the workers and the retry promoter.
func (r *RedisQueue) Start() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	loops := make([]func(context.Context), 0, r.config.Workers+1)
	for i := 0; i < r.config.Workers; i++ {
		loops = append(loops, r.work)
	}
	loops = append(loops, r.promote)
	if err := r.start(loops...); err != nil {
		return err
	}
	r.logger.Info("redis queue started",
		logger.Int("workers", r.config.Workers),
		logger.String("addr", r.client.Options().Addr),
		logger.String("list", r.keys.pending))
	return nil
}

// Stop cancels in-flight jobs and waits for the workers or ctx.
func (r *RedisQueue) Stop(ctx context.Context) error {
	if err := r.stop(ctx); err != nil {
		r.logger.Warn("redis queue stop", logger.Error(err))
		return err
	}
	return nil
}

func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error) {
	msg, err := r.prepare(msgType, payload)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}
	if err := r.client.LPush(ctx, r.keys.pending, data).Err(); err != nil {
		return "", fmt.Errorf("enqueue %s: %w", msg.ID, err)
	}
	return msg.ID, nil
}

func (r *RedisQueue) work(ctx context.Context) {
	for ctx.Err() == nil {
		res, err := r.client.BRPop(ctx, popTimeout, r.keys.pending).Result()
		switch {
		case errors.Is(err, redis.Nil), errors.Is(err, context.Canceled):
			continue
		case err != nil:
			r.logger.Error("brpop", logger.Error(err))
			sleep(ctx, backoffOnFail)
			continue
		}

		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			r.logger.Error("drop undecodable message", logger.Error(err))
			continue
		}
		switch r.dispatch(ctx, &msg) {
		case outcomeRetry:
			r.push(r.keys.retry, msg, time.Now().Add(r.config.RetryDelay))
		case outcomeDead:
			r.push(r.keys.dead, msg, time.Time{})
		}
	}
}

// push stores msg on the retry schedule when due is set, otherwise on the
// dead-letter list. It uses a fresh context so shutdown does not lose it.
func (r *RedisQueue) push(key string, msg Message, due time.Time) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("marshal message", logger.String("id", msg.ID), logger.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if due.IsZero() {
		err = r.client.LPush(ctx, key, data).Err()
	} else {
		err = r.client.ZAdd(ctx, key, redis.Z{Score: float64(due.Unix()), Member: data}).Err()
	}
	if err != nil {
		r.logger.Error("store message", logger.String("key", key), logger.String("id", msg.ID), logger.Error(err))
		return
	}
	if !due.IsZero() {
		r.logger.Info("retry scheduled",
			logger.String("id", msg.ID),
			logger.Int("attempt", msg.Attempts),
			logger.String("due", due.UTC().Format(time.RFC3339)))
	}
}

func (r *RedisQueue) promote(ctx context.Context) {
	t := time.NewTicker(promoteEvery)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		now := time.Now().Unix()
		n, err := promoteDue.Run(ctx, r.client, []string{r.keys.retry, r.keys.pending}, now, promoteBatch).Int()
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				r.logger.Error("promote retries", logger.Error(err))
			}
			continue
		}
		if n > 0 {
			r.logger.Debug("retries promoted", logger.Int("count", n))
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

var _ Queue = (*RedisQueue)(nil)
