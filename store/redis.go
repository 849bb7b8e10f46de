package store

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
	cfg    config
}

var _ Store = (*redisStore)(nil)

// NewRedis returns a Store backed by Redis, for kiosk deployments where
// several scanning stations share one on-site state server. The caller
// owns the redis.Client lifecycle — Close is a no-op on the client.
func NewRedis(client *redis.Client, opts ...Option) Store {
	return &redisStore{client: client, cfg: applyOptions(opts)}
}

func (c *redisStore) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, c.cfg.queryTimeout)
}

func (c *redisStore) prefixKey(key string) string {
	if c.cfg.prefix == "" {
		return key
	}
	return c.cfg.prefix + ":" + key
}

func (c *redisStore) Load(ctx context.Context, key string) ([]byte, bool, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	blob, err := c.client.Get(qctx, c.prefixKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return blob, true, nil
}

func (c *redisStore) Save(ctx context.Context, key string, blob []byte) error {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	return c.client.Set(qctx, c.prefixKey(key), blob, 0).Err()
}

func (c *redisStore) Delete(ctx context.Context, key string) (bool, error) {
	qctx, cancel := c.queryCtx(ctx)
	defer cancel()
	n, err := c.client.Del(qctx, c.prefixKey(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *redisStore) Close() error {
	return nil
}
