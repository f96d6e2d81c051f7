package pipeline

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/confecoes-lanca/prospector/internal/model"
)

// Persist scores every candidate, ranks them best-first and pushes them
// through the deduplication gate. One candidate failing to score or save
// never takes the others down with it.
func (p *Pipeline) Persist(ctx context.Context, run *Run) error {
	log := zap.L().With(zap.String("run_id", run.ID))

	if len(run.Candidates) == 0 {
		run.Note("Resultado final: 0 marcas encontradas")
		return nil
	}

	scored := 0
	for i := range run.Candidates {
		c := &run.Candidates[i]
		breakdown, _, err := p.engine.Score(ctx, c)
		if err != nil {
			log.Warn("pipeline: scoring failed",
				zap.String("name", c.Name),
				zap.Error(err),
			)
			continue
		}
		scored++
		c.Breakdown = breakdown
		c.MostSimilarClient = breakdown.Explanation.MostSimilarClient
		c.SimilarityExplanation = breakdown.Explanation.SimilarityText
	}
	run.Report("score", len(run.Candidates), scored)

	// Rank best-first; unscored candidates sink. Ties keep their
	// extraction order.
	sort.SliceStable(run.Candidates, func(i, j int) bool {
		return finalScore(&run.Candidates[i]) > finalScore(&run.Candidates[j])
	})

	run.Note("A guardar %d marcas na base de dados", len(run.Candidates))
	persisted := 0
	for i := range run.Candidates {
		c := &run.Candidates[i]
		if c.Breakdown == nil {
			continue
		}
		outcome, err := p.store.SaveProspect(ctx, c)
		if err != nil {
			log.Warn("pipeline: save failed",
				zap.String("name", c.Name),
				zap.Error(err),
			)
			continue
		}
		persisted++
		c.ID = outcome.ID
		run.Saved = append(run.Saved, *outcome)
	}
	run.Report("persist", len(run.Candidates), persisted)

	inserted, duplicates := run.SavedCounts()
	run.Note("Guardados: %d novos", inserted)
	if duplicates > 0 {
		run.Note("Duplicados ignorados: %d", duplicates)
	}
	run.Note("Resultado final: %d marcas encontradas", inserted)
	log.Info("pipeline: persist complete",
		zap.Int("candidates", len(run.Candidates)),
		zap.Int("inserted", inserted),
		zap.Int("duplicates", duplicates),
	)
	return nil
}

func finalScore(c *model.Prospect) float64 {
	if c.Breakdown == nil {
		return -1
	}
	return c.Breakdown.FinalScore
}
