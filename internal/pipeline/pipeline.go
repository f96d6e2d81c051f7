// Package pipeline orchestrates one city prospecting run: query generation,
// web discovery, scrape-and-filter validation, LLM candidate extraction,
// scoring and the persistence gate.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/confecoes-lanca/prospector/internal/model"
	"github.com/confecoes-lanca/prospector/internal/scoring"
	"github.com/confecoes-lanca/prospector/internal/scrape"
	"github.com/confecoes-lanca/prospector/internal/store"
	"github.com/confecoes-lanca/prospector/pkg/anthropic"
	"github.com/confecoes-lanca/prospector/pkg/tavily"
)

// Extractor is the scrape surface the pipeline needs. Implemented by
// *scrape.Chain.
type Extractor interface {
	Scrape(ctx context.Context, targetURL string) (*scrape.Result, error)
	ScrapeAll(ctx context.Context, urls []string, maxConcurrent int) []model.ExtractedContent
}

// Config holds the pipeline tuning knobs.
type Config struct {
	Model             string `yaml:"model" mapstructure:"model"`
	MaxQueries        int    `yaml:"max_queries" mapstructure:"max_queries"`
	MaxResults        int    `yaml:"max_results" mapstructure:"max_results"`
	ScrapeConcurrency int    `yaml:"scrape_concurrency" mapstructure:"scrape_concurrency"`
	ShortlistSize     int    `yaml:"shortlist_size" mapstructure:"shortlist_size"`
	MaxSelected       int    `yaml:"max_selected" mapstructure:"max_selected"`
	CacheMinProspects int    `yaml:"cache_min_prospects" mapstructure:"cache_min_prospects"`
}

// DefaultConfig returns the production pipeline settings.
func DefaultConfig() Config {
	return Config{
		Model:             "claude-sonnet-4-5",
		MaxQueries:        3,
		MaxResults:        30,
		ScrapeConcurrency: 5,
		ShortlistSize:     25,
		MaxSelected:       20,
		CacheMinProspects: 10,
	}
}

// Pipeline wires the providers and stores for city prospecting runs.
type Pipeline struct {
	cfg     Config
	store   store.Store
	search  tavily.Client
	scraper Extractor
	matcher scoring.Matcher
	engine  *scoring.Engine
	ai      anthropic.Client
}

// New creates a Pipeline with all dependencies.
func New(
	cfg Config,
	st store.Store,
	search tavily.Client,
	scraper Extractor,
	matcher scoring.Matcher,
	engine *scoring.Engine,
	aiClient anthropic.Client,
) *Pipeline {
	return &Pipeline{
		cfg:     cfg,
		store:   st,
		search:  search,
		scraper: scraper,
		matcher: matcher,
		engine:  engine,
		ai:      aiClient,
	}
}

// Run executes the full pipeline for a city. country may be empty (inferred
// from the city) and force bypasses the cache check. Stage degradation is
// recorded on the run rather than failing it; only stage-fatal errors
// (context cancellation, checkpoint-level failures) propagate.
func (p *Pipeline) Run(ctx context.Context, city, country string, force bool) (*Run, error) {
	run := NewRun(uuid.New().String(), city, country)
	run.Force = force

	log := zap.L().With(zap.String("run_id", run.ID), zap.String("city", run.City))
	log.Info("pipeline: starting run")

	stages := []struct {
		name string
		fn   func(context.Context, *Run) error
	}{
		{"initialize", p.Initialize},
		{"discover", p.Discover},
		{"validate", p.Validate},
		{"persist", p.Persist},
	}

	for _, stage := range stages {
		start := time.Now()
		if err := stage.fn(ctx, run); err != nil {
			log.Error("pipeline: stage failed",
				zap.String("stage", stage.name),
				zap.Duration("elapsed", time.Since(start)),
				zap.Error(err),
			)
			return run, err
		}
		log.Info("pipeline: stage complete",
			zap.String("stage", stage.name),
			zap.Duration("elapsed", time.Since(start)),
		)
		if run.Cached {
			break
		}
	}

	inserted, duplicates := run.SavedCounts()
	log.Info("pipeline: run complete",
		zap.Bool("cached", run.Cached),
		zap.Int("candidates", len(run.Candidates)),
		zap.Int("inserted", inserted),
		zap.Int("duplicates", duplicates),
	)
	return run, nil
}
