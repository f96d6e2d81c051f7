// Package store persists prospects, reference embeddings, run checkpoints
// and email logs. Postgres is the production backend; SQLite serves local
// single-user setups.
package store

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/confecoes-lanca/prospector/internal/model"
	"github.com/confecoes-lanca/prospector/internal/similarity"
)

// ProspectFilter specifies criteria for listing prospects. Zero values mean
// "no constraint"; MaxScore and MaxPrice use 0 as unset, so a caller cannot
// filter for exactly-zero scores or prices.
type ProspectFilter struct {
	City        string               `json:"city,omitempty"`
	Country     string               `json:"country,omitempty"`      // substring match, case-insensitive
	CountryCode string               `json:"country_code,omitempty"` // exact ISO code, case-insensitive
	Status      model.ProspectStatus `json:"status,omitempty"`
	MinScore    float64              `json:"min_score,omitempty"`
	MaxScore    float64              `json:"max_score,omitempty"`
	MinStores   int                  `json:"min_stores,omitempty"`
	MaxStores   int                  `json:"max_stores,omitempty"`
	MinPrice    float64              `json:"min_price,omitempty"`
	MaxPrice    float64              `json:"max_price,omitempty"`
	Limit       int                  `json:"limit,omitempty"`
	Offset      int                  `json:"offset,omitempty"`
}

// SaveOutcome reports what happened to one candidate at persist time.
type SaveOutcome struct {
	ID        string `json:"id"`
	Inserted  bool   `json:"inserted"`
	Duplicate bool   `json:"duplicate"`
}

// Store defines the persistence interface for the prospecting pipeline.
// It embeds similarity.VectorStore so the same backend holds the reference
// client embeddings next to the prospects they score.
type Store interface {
	similarity.VectorStore

	// Prospects. SaveProspect is the dedup gate: a prospect whose
	// (domain, city) pair already exists is reported as a duplicate and
	// left untouched.
	SaveProspect(ctx context.Context, p *model.Prospect) (*SaveOutcome, error)
	GetProspect(ctx context.Context, id string) (*model.Prospect, error)
	ListProspects(ctx context.Context, filter ProspectFilter) ([]model.Prospect, error)
	UpdateProspectStatus(ctx context.Context, id string, status model.ProspectStatus) error
	CityProspectCount(ctx context.Context, city string) (int, error)
	DeleteCityProspects(ctx context.Context, city string) (int64, error)

	// Suppression list: domains excluded from discovery.
	SuppressDomain(ctx context.Context, domain, reason string) error
	SuppressedDomains(ctx context.Context) ([]string, error)

	// Run checkpoints for pausable search runs.
	SaveCheckpoint(ctx context.Context, cp *model.RunCheckpoint) error
	GetCheckpoint(ctx context.Context, id string) (*model.RunCheckpoint, error)
	DeleteCheckpoint(ctx context.Context, id string) error

	// Outreach audit trail.
	LogEmail(ctx context.Context, entry model.EmailLog) error
	EmailLogs(ctx context.Context, prospectID string) ([]model.EmailLog, error)

	// Analytics for the review UI.
	Summary(ctx context.Context) (*model.AnalyticsSummary, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// NormalizeURL canonicalizes a website URL for deduplication: scheme,
// leading www., query, fragment and the trailing slash are dropped and the
// rest is lowercased.
func NormalizeURL(rawURL string) string {
	u := strings.ToLower(strings.TrimSpace(rawURL))
	for _, prefix := range []string{"https://", "http://"} {
		u = strings.TrimPrefix(u, prefix)
	}
	u = strings.TrimPrefix(u, "www.")
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return strings.TrimSuffix(u, "/")
}

// ExtractDomain returns the host part of a normalized URL.
func ExtractDomain(rawURL string) string {
	u := NormalizeURL(rawURL)
	if i := strings.Index(u, "/"); i >= 0 {
		u = u[:i]
	}
	return u
}

// NormalizeCity canonicalizes a city name for deduplication and lookups.
func NormalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

// ProspectID derives the deterministic prospect id from the normalized URL
// and city, so re-discovering the same brand in the same city always maps to
// the same row.
func ProspectID(websiteURL, city string) string {
	key := NormalizeURL(websiteURL) + "_" + NormalizeCity(city)
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])[:16]
}
