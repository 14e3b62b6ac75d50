package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"clinic-backend/logger"
	"clinic-backend/utils"
)

// entityCache is a read-through cache for single records. A nil client
// disables it. Cache failures are logged and never fail the operation.
type entityCache[T any] struct {
	client utils.RedisClient
	ttl    time.Duration
	prefix string
	log    *logger.Logger
}

func (c entityCache[T]) key(id uint) string {
	return fmt.Sprintf("%s:%d", c.prefix, id)
}

func (c entityCache[T]) get(ctx context.Context, id uint) (*T, bool) {
	if c.client == nil {
		return nil, false
	}
	raw, err := c.client.GetFromCache(ctx, c.key(id))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithContext(ctx).WithError(err).WithField("key", c.key(id)).Warn("cache read failed")
		}
		return nil, false
	}
	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		c.log.WithContext(ctx).WithError(err).WithField("key", c.key(id)).Warn("dropping undecodable cache entry")
		c.invalidate(ctx, id)
		return nil, false
	}
	return &v, true
}

func (c entityCache[T]) set(ctx context.Context, id uint, v *T) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		c.log.WithContext(ctx).WithError(err).WithField("key", c.key(id)).Warn("cache encode failed")
		return
	}
	if err := c.client.SetToCache(ctx, c.key(id), string(raw), c.ttl); err != nil {
		c.log.WithContext(ctx).WithError(err).WithField("key", c.key(id)).Warn("cache write failed")
	}
}

func (c entityCache[T]) invalidate(ctx context.Context, id uint) {
	if c.client == nil {
		return
	}
	if err := c.client.DeleteFromCache(ctx, c.key(id)); err != nil {
		c.log.WithContext(ctx).WithFields(logrus.Fields{"key": c.key(id)}).WithError(err).Warn("cache invalidation failed")
	}
}
