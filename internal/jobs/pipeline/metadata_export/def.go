package metadata_export

import (
	"github.com/yungbote/hermes-backend/internal/data/repos"
	types "github.com/yungbote/hermes-backend/internal/domain/collections"
	"github.com/yungbote/hermes-backend/internal/platform/logger"
	"github.com/yungbote/hermes-backend/internal/platform/storage"
)

type Pipeline struct {
	log         *logger.Logger
	repos       repos.Repos
	bucket      storage.BucketService
	concurrency int
}

func New(baseLog *logger.Logger, r repos.Repos, bucket storage.BucketService, concurrency int) *Pipeline {
	if concurrency < 1 {
		concurrency = 4
	}
	return &Pipeline{
		log:         baseLog.With("job", types.JobTypeExportMetadata),
		repos:       r,
		bucket:      bucket,
		concurrency: concurrency,
	}
}

func (p *Pipeline) Type() string { return types.JobTypeExportMetadata }
