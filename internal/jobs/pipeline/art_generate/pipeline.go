package art_generate

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
	run := jc.Run
	req := generation.Request{
		CollectionID:   run.CollectionID,
		OwnerUserID:    run.OwnerUserID,
		RunID:          &run.ID,
		Amount:         jc.PayloadInt("amount", run.Amount),
		Strategy:       jc.PayloadString("generated_type", run.Strategy),
		ComponentClass: jc.PayloadString("generated_class", run.ComponentClass),
		Status:         jc,
	}

	var res *generation.Result
	err := pipeline.WithCollectionLock(jc, p.locker, p.lockTTL, func(ctx context.Context) error {
		var err error
		res, err = p.engine.Generate(ctx, req)
		return err
	})
	if err != nil {
		jc.Fail("generate", err)
		return err
	}
	if res.Produced < res.Requested {
		jc.Log.Info("generation fell short", "requested", res.Requested, "produced", res.Produced, "feasible", res.Feasible)
	}
	jc.Succeed(res)
	return nil
}
