package journal

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const (
	defaultRedisKey   = "launchseq:launches"
	defaultRedisLimit = 1000
)

// RedisOptions configures the Redis journal.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
	// MaxEntries caps the list length; older entries are trimmed.
	MaxEntries int
}

// Redis keeps entries in a capped Redis list, msgpack-encoded, newest first.
type Redis struct {
	client *redis.Client
	key    string
	max    int64
	logger *zap.SugaredLogger
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, opts RedisOptions, logger *zap.SugaredLogger) (*Redis, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if opts.Key == "" {
		opts.Key = defaultRedisKey
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = defaultRedisLimit
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}

	logger.Infow("Redis launch journal connected", "addr", opts.Addr, "key", opts.Key)
	return &Redis{
		client: client,
		key:    opts.Key,
		max:    int64(opts.MaxEntries),
		logger: logger,
	}, nil
}

func (r *Redis) Record(ctx context.Context, entry Entry) error {
	data, err := msgpack.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("failed to encode launch %s: %w", entry.LaunchID, err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.key, data)
	pipe.LTrim(ctx, r.key, 0, r.max-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record launch %s: %w", entry.LaunchID, err)
	}
	return nil
}

func (r *Redis) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	raw, err := r.client.LRange(ctx, r.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read launches: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := msgpack.Unmarshal([]byte(item), &e); err != nil {
			r.logger.Warnw("Skipping undecodable journal entry", "error", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
