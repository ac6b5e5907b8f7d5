package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/hermes-backend/internal/platform/locks"
	"github.com/yungbote/hermes-backend/internal/platform/logger"
	"github.com/yungbote/hermes-backend/internal/platform/storage"
	"github.com/yungbote/hermes-backend/internal/realtime/bus"
	"github.com/yungbote/hermes-backend/internal/temporalx"
)

type Clients struct {
	Redis    *goredis.Client
	Bus      bus.Bus
	Locker   locks.Locker
	Bucket   storage.BucketService
	Temporal temporalsdkclient.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis
	if cfg.RedisAddr != "" {
		rdb, err := bus.NewRedisClient(ctx)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		out.Redis = rdb
		b, err := bus.NewRedisBus(log, rdb)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init redis run bus: %w", err)
		}
		out.Bus = b
		l, err := locks.NewRedisLocker(log, rdb)
		if err != nil {
			out.Close()
			return Clients{}, fmt.Errorf("init redis locker: %w", err)
		}
		out.Locker = l
	} else {
		log.Warn("REDIS_ADDR not set; using in-process run bus and collection locks")
		out.Bus = bus.NewMemoryBus()
		out.Locker = locks.NewLocalLocker()
	}

	// Object storage
	bucket, err := resolveBucketService(ctx, log, cfg)
	if err != nil {
		out.Close()
		return Clients{}, err
	}
	out.Bucket = bucket

	// Temporal
	tc, err := temporalx.NewClient(ctx, log, cfg.Temporal)
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init temporal client: %w", err)
	}
	out.Temporal = tc

	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
		c.Temporal = nil
	}
	if c.Bus != nil {
		_ = c.Bus.Close()
		c.Bus = nil
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
		c.Redis = nil
	}
}
