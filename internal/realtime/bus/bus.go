package bus

import (
	"context"

	"github.com/yungbote/hermes-backend/internal/realtime"
)

type Bus interface {
	Publish(ctx context.Context, msg realtime.RunEvent) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.RunEvent)) error
	Close() error
}
