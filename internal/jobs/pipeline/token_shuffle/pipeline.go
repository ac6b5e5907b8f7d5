package token_shuffle

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/hermes-backend/internal/jobs/pipeline"
	jobrt "github.com/yungbote/hermes-backend/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Run == nil {
		return nil
	}
	var assigned map[uuid.UUID]int
	err := pipeline.WithCollectionLock(jc, p.locker, p.lockTTL, func(ctx context.Context) error {
		var err error
		assigned, err = p.engine.ShuffleTokenIDs(ctx, jc.Run.CollectionID, jc)
		return err
	})
	if err != nil {
		jc.Fail("shake_token_id", err)
		return err
	}
	jc.Succeed(map[string]any{
		"shuffled": len(assigned),
		"ordinals": assigned,
	})
	return nil
}
