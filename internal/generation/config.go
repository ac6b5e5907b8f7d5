package generation

import (
	"github.com/yungbote/hermes-backend/internal/platform/envutil"
)

type Config struct {
	// MaxTries bounds rejection-sampling attempts for a single slot.
	MaxTries int
	// NoneFallbackPercent sizes the "none" quota of an optional layer whose
	// components already cover the whole amount.
	NoneFallbackPercent float64
	// ExtraChoiceBump counts one phantom option per live layer when computing
	// feasibility. It overstates capacity and is off by default.
	ExtraChoiceBump bool
	// MaxProductSize caps the exhaustive strategy's precomputed product.
	MaxProductSize uint64
	// FetchConcurrency limits parallel component image reads per composite.
	FetchConcurrency int
	// Seed makes sampling reproducible when non-zero.
	Seed uint64
}

func DefaultConfig() Config {
	return Config{
		MaxTries:            1000,
		NoneFallbackPercent: 20,
		MaxProductSize:      5_000_000,
		FetchConcurrency:    4,
	}
}

func ConfigFromEnv() Config {
	def := DefaultConfig()
	return Config{
		MaxTries:            envutil.Int("GENERATION_MAX_TRIES", def.MaxTries),
		NoneFallbackPercent: envutil.Float("GENERATION_NONE_FALLBACK_PERCENT", def.NoneFallbackPercent),
		ExtraChoiceBump:     envutil.Bool("GENERATION_EXTRA_CHOICE_BUMP", def.ExtraChoiceBump),
		MaxProductSize:      uint64(envutil.Int64("GENERATION_MAX_PRODUCT_SIZE", int64(def.MaxProductSize))),
		FetchConcurrency:    envutil.Int("GENERATION_FETCH_CONCURRENCY", def.FetchConcurrency),
		Seed:                uint64(envutil.Int64("GENERATION_SEED", 0)),
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.MaxTries <= 0 {
		c.MaxTries = def.MaxTries
	}
	if c.NoneFallbackPercent < 0 {
		c.NoneFallbackPercent = def.NoneFallbackPercent
	}
	if c.MaxProductSize == 0 {
		c.MaxProductSize = def.MaxProductSize
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = def.FetchConcurrency
	}
	return c
}
