package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/hermes-backend/internal/platform/envutil"
	"github.com/yungbote/hermes-backend/internal/platform/logger"
	"github.com/yungbote/hermes-backend/internal/realtime"
)

var errRedisBusClosed = errors.New("redis run bus not initialized")

// redisBus fans run events out over one pub/sub channel per collection,
// "<prefix>:<collection_id>". Forwarders pattern-subscribe to all of them.
type redisBus struct {
	log    *logger.Logger
	rdb    goredis.UniversalClient
	prefix string
}

// NewRedisClient dials REDIS_ADDR and pings it.
func NewRedisClient(ctx context.Context) (*goredis.Client, error) {
	addr := envutil.String("REDIS_ADDR", "")
	if addr == "" {
		return nil, errors.New("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    envutil.String("REDIS_PASSWORD", ""),
		DB:          envutil.Int("REDIS_DB", 0),
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// NewRedisBus shares rdb with the caller; Close does not close it.
func NewRedisBus(log *logger.Logger, rdb goredis.UniversalClient) (Bus, error) {
	switch {
	case log == nil:
		return nil, errors.New("logger required")
	case rdb == nil:
		return nil, errors.New("redis client required")
	}
	return &redisBus{
		log:    log.With("service", "RedisRunBus"),
		rdb:    rdb,
		prefix: envutil.String("REDIS_CHANNEL", "hermes.runs"),
	}, nil
}

// channelFor picks the collection channel; events without one go to "<prefix>:_".
func channelFor(prefix string, ev realtime.RunEvent) string {
	key := ev.Channel
	if key == "" && ev.CollectionID != uuid.Nil {
		key = ev.CollectionID.String()
	}
	if key == "" {
		key = "_"
	}
	return prefix + ":" + key
}

func (b *redisBus) Publish(ctx context.Context, ev realtime.RunEvent) error {
	if b == nil || b.rdb == nil {
		return errRedisBusClosed
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode run event: %w", err)
	}
	return b.rdb.Publish(ctx, channelFor(b.prefix, ev), raw).Err()
}

func (b *redisBus) StartForwarder(ctx context.Context, onMsg func(m realtime.RunEvent)) error {
	if b == nil || b.rdb == nil {
		return errRedisBusClosed
	}
	if onMsg == nil {
		return errors.New("onMsg callback required")
	}
	sub := b.rdb.PSubscribe(ctx, b.prefix+":*")
	// wait for the subscription confirmation before returning
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis psubscribe %s:*: %w", b.prefix, err)
	}
	go b.forward(ctx, sub, onMsg)
	return nil
}

func (b *redisBus) forward(ctx context.Context, sub *goredis.PubSub, onMsg func(realtime.RunEvent)) {
	defer sub.Close()
	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			var ev realtime.RunEvent
			if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
				b.log.Warn("bad redis run payload", "channel", m.Channel, "error", err)
				continue
			}
			onMsg(ev)
		}
	}
}

// Close is a no-op; the client's owner closes it.
func (b *redisBus) Close() error { return nil }
