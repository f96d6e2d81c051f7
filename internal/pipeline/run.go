package pipeline

import (
	"fmt"
	"time"

	"github.com/confecoes-lanca/prospector/internal/model"
	"github.com/confecoes-lanca/prospector/internal/store"
)

// Run is the working state of one city search. It accumulates as the stages
// execute and serializes cleanly, so a paused run can be checkpointed and
// resumed with the same object.
type Run struct {
	ID          string `json:"id"`
	City        string `json:"city"` // normalized lowercase
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
	Force       bool   `json:"force,omitempty"`

	// Cached short-circuits the run: the city already holds enough
	// prospects and no provider spend happens.
	Cached      bool `json:"cached,omitempty"`
	CachedCount int  `json:"cached_count,omitempty"`

	Queries       []string             `json:"queries,omitempty"`
	SearchResults []model.QueryResults `json:"search_results,omitempty"`
	Candidates    []model.Prospect     `json:"candidates,omitempty"`
	Saved         []store.SaveOutcome  `json:"saved,omitempty"`

	Progress []string            `json:"progress,omitempty"`
	Reports  []model.StageReport `json:"reports,omitempty"`

	StartedAt time.Time `json:"started_at"`
}

// NewRun creates a run for a city. country may be empty, in which case
// Initialize infers it from the city name.
func NewRun(id, city, country string) *Run {
	return &Run{
		ID:        id,
		City:      store.NormalizeCity(city),
		Country:   country,
		StartedAt: time.Now().UTC(),
	}
}

// Note appends a reviewer-facing progress line. Progress is shown verbatim
// in the review UI, in Portuguese.
func (r *Run) Note(format string, args ...any) {
	r.Progress = append(r.Progress, fmt.Sprintf(format, args...))
}

// Report records how a stage degraded, if at all.
func (r *Run) Report(stage string, attempted, succeeded int) {
	r.Reports = append(r.Reports, model.StageReport{
		Stage:     stage,
		Attempted: attempted,
		Succeeded: succeeded,
	})
}

// SavedCounts splits the persist outcomes into new rows and duplicates.
func (r *Run) SavedCounts() (inserted, duplicates int) {
	for _, o := range r.Saved {
		if o.Duplicate {
			duplicates++
		} else if o.Inserted {
			inserted++
		}
	}
	return inserted, duplicates
}
