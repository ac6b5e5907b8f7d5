package trait_count

import (
	"time"

	types "github.com/yungbote/hermes-backend/internal/domain/collections"
	"github.com/yungbote/hermes-backend/internal/generation"
	"github.com/yungbote/hermes-backend/internal/platform/locks"
	"github.com/yungbote/hermes-backend/internal/platform/logger"
)

type Pipeline struct {
	log     *logger.Logger
	engine  *generation.Engine
	locker  locks.Locker
	lockTTL time.Duration
}

func New(baseLog *logger.Logger, engine *generation.Engine, locker locks.Locker, lockTTL time.Duration) *Pipeline {
	return &Pipeline{
		log:     baseLog.With("job", types.JobTypeCountTrait),
		engine:  engine,
		locker:  locker,
		lockTTL: lockTTL,
	}
}

func (p *Pipeline) Type() string { return types.JobTypeCountTrait }
