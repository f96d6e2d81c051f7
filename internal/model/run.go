package model

import "time"

// RunState represents the checkpointed state of a city search run. A run
// pauses in the awaiting_* states until a reviewer resumes it with an
// approval event.
type RunState string

const (
	RunRunning                 RunState = "running"
	RunAwaitingQueryApproval   RunState = "awaiting_query_approval"
	RunAwaitingPersistApproval RunState = "awaiting_persist_approval"
	RunDone                    RunState = "done"
	RunFailed                  RunState = "failed"
)

// SearchResult is one hit returned by the search provider.
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// QueryResults groups search hits by the query that produced them.
type QueryResults struct {
	QueryIndex int            `json:"query_index"`
	Query      string         `json:"query"`
	Results    []SearchResult `json:"results"`
}

// ExtractedContent is the scraped text for one candidate URL. Content is
// empty when every extraction provider failed.
type ExtractedContent struct {
	URL     string `json:"url"`
	Content string `json:"content"`
}

// StageReport records how a pipeline stage degraded, if at all.
type StageReport struct {
	Stage     string `json:"stage"`
	Attempted int    `json:"attempted"`
	Succeeded int    `json:"succeeded"`
}

// RunCheckpoint is the persisted snapshot of an interrupted run.
type RunCheckpoint struct {
	ID        string    `json:"id"`
	City      string    `json:"city"`
	State     RunState  `json:"state"`
	Data      []byte    `json:"data"` // serialized pipeline run
	UpdatedAt time.Time `json:"updated_at"`
}

// EmailLog records one outbound email attempt for a prospect.
type EmailLog struct {
	ProspectID string    `json:"prospect_id"`
	To         string    `json:"to"`
	Status     string    `json:"status"` // "sent" or "failed"
	Error      string    `json:"error,omitempty"`
	SentAt     time.Time `json:"sent_at"`
}
