package trait_count

import (
	"context"

	"github.com/yungbote/hermes-backend/internal/generation"
	"github.com/yungbote/hermes-backend/internal/jobs/pipeline"
	jobrt "github.com/yungbote/hermes-backend/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Run == nil {
		return nil
	}
	var report *generation.RarityReport
	err := pipeline.WithCollectionLock(jc, p.locker, p.lockTTL, func(ctx context.Context) error {
		var err error
		report, err = p.engine.CountTraits(ctx, jc.Run.CollectionID, jc)
		return err
	})
	if err != nil {
		jc.Fail("count_trait", err)
		return err
	}
	jc.Succeed(report)
	return nil
}
