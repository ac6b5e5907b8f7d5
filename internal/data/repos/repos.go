package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/hermes-backend/internal/data/repos/collections"
	"github.com/yungbote/hermes-backend/internal/data/repos/jobs"
	"github.com/yungbote/hermes-backend/internal/platform/logger"
)

type CollectionRepo = collections.CollectionRepo
type LayerRepo = collections.LayerRepo
type ComponentRepo = collections.ComponentRepo
type ArtworkRepo = collections.ArtworkRepo

type GenerationRunRepo = jobs.GenerationRunRepo

type Repos struct {
	Collections CollectionRepo
	Layers      LayerRepo
	Components  ComponentRepo
	Artworks    ArtworkRepo
	Runs        GenerationRunRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Collections: collections.NewCollectionRepo(db, log),
		Layers:      collections.NewLayerRepo(db, log),
		Components:  collections.NewComponentRepo(db, log),
		Artworks:    collections.NewArtworkRepo(db, log),
		Runs:        jobs.NewGenerationRunRepo(db, log),
	}
}
