package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/confecoes-lanca/prospector/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testProspect(name, url, city string, score float64) *model.Prospect {
	return &model.Prospect{
		Name:       name,
		WebsiteURL: url,
		City:       city,
		Country:    "United Kingdom",
		StoreCount: 3,
		Breakdown:  &model.ScoreBreakdown{FinalScore: score, PassesHardFilters: true},
	}
}

func TestSQLite_SaveProspect_DedupsByDomainAndCity(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	out, err := st.SaveProspect(ctx, testProspect("Savile & Sons", "https://www.savilesons.co.uk", "London", 82))
	require.NoError(t, err)
	assert.True(t, out.Inserted)
	assert.Len(t, out.ID, 16)

	// Same domain, same city: duplicate even with a different URL shape.
	dup, err := st.SaveProspect(ctx, testProspect("Savile and Sons", "http://savilesons.co.uk/", "london", 75))
	require.NoError(t, err)
	assert.True(t, dup.Duplicate)
	assert.False(t, dup.Inserted)

	// Same domain, different city: a separate row.
	other, err := st.SaveProspect(ctx, testProspect("Savile & Sons", "https://savilesons.co.uk", "Manchester", 70))
	require.NoError(t, err)
	assert.True(t, other.Inserted)
}

func TestSQLite_GetProspect_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	p := testProspect("Bond Tailors", "https://bondtailors.com", "London", 91.5)
	p.WoolPercentage = "100% wool"
	mtm := true
	p.MadeToMeasure = &mtm

	out, err := st.SaveProspect(ctx, p)
	require.NoError(t, err)

	got, err := st.GetProspect(ctx, out.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bond Tailors", got.Name)
	assert.Equal(t, "bondtailors.com", got.Domain)
	assert.Equal(t, "london", got.City)
	assert.Equal(t, "100% wool", got.WoolPercentage)
	require.NotNil(t, got.MadeToMeasure)
	assert.True(t, *got.MadeToMeasure)
	require.NotNil(t, got.Breakdown)
	assert.Equal(t, 91.5, got.Breakdown.FinalScore)
	assert.Equal(t, model.StatusNew, got.Status)
}

func TestSQLite_GetProspect_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetProspect(context.Background(), "deadbeef00000000")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_ListProspects_BestPerDomain(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.SaveProspect(ctx, testProspect("Bond Tailors", "https://bondtailors.com", "London", 90))
	require.NoError(t, err)
	_, err = st.SaveProspect(ctx, testProspect("Bond Tailors", "https://bondtailors.com", "Manchester", 60))
	require.NoError(t, err)
	_, err = st.SaveProspect(ctx, testProspect("Madrid Sastre", "https://sastre.es", "Madrid", 75))
	require.NoError(t, err)

	all, err := st.ListProspects(ctx, ProspectFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2, "one row per domain")
	assert.Equal(t, "Bond Tailors", all[0].Name)
	assert.Equal(t, 90.0, all[0].Breakdown.FinalScore)
	assert.Equal(t, "Madrid Sastre", all[1].Name)
}

func TestSQLite_ListProspects_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.SaveProspect(ctx, testProspect("High", "https://high.com", "London", 85))
	require.NoError(t, err)
	_, err = st.SaveProspect(ctx, testProspect("Low", "https://low.com", "London", 30))
	require.NoError(t, err)
	_, err = st.SaveProspect(ctx, testProspect("Madrid", "https://madrid.es", "Madrid", 70))
	require.NoError(t, err)

	london, err := st.ListProspects(ctx, ProspectFilter{City: "London"})
	require.NoError(t, err)
	assert.Len(t, london, 2)

	scored, err := st.ListProspects(ctx, ProspectFilter{MinScore: 60})
	require.NoError(t, err)
	assert.Len(t, scored, 2)

	limited, err := st.ListProspects(ctx, ProspectFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "High", limited[0].Name)
}

func TestSQLite_ListProspects_DocumentFilters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	uk := testProspect("Bond Tailors", "https://bondtailors.com", "London", 85)
	uk.CountryCode = "GB"
	uk.StoreCount = 3
	uk.AvgPriceEUR = 450
	_, err := st.SaveProspect(ctx, uk)
	require.NoError(t, err)

	es := testProspect("Madrid Sastre", "https://sastre.es", "Madrid", 70)
	es.Country = "Spain"
	es.CountryCode = "ES"
	es.StoreCount = 12
	es.AvgPriceEUR = 180
	_, err = st.SaveProspect(ctx, es)
	require.NoError(t, err)

	// Country is a case-insensitive substring match.
	kingdom, err := st.ListProspects(ctx, ProspectFilter{Country: "kingdom"})
	require.NoError(t, err)
	require.Len(t, kingdom, 1)
	assert.Equal(t, "Bond Tailors", kingdom[0].Name)

	code, err := st.ListProspects(ctx, ProspectFilter{CountryCode: "es"})
	require.NoError(t, err)
	require.Len(t, code, 1)
	assert.Equal(t, "Madrid Sastre", code[0].Name)

	chains, err := st.ListProspects(ctx, ProspectFilter{MinStores: 5})
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.Equal(t, "Madrid Sastre", chains[0].Name)

	boutiques, err := st.ListProspects(ctx, ProspectFilter{MaxStores: 5})
	require.NoError(t, err)
	require.Len(t, boutiques, 1)
	assert.Equal(t, "Bond Tailors", boutiques[0].Name)

	premium, err := st.ListProspects(ctx, ProspectFilter{MinPrice: 300})
	require.NoError(t, err)
	require.Len(t, premium, 1)
	assert.Equal(t, "Bond Tailors", premium[0].Name)

	cheap, err := st.ListProspects(ctx, ProspectFilter{MaxPrice: 300, MaxScore: 75})
	require.NoError(t, err)
	require.Len(t, cheap, 1)
	assert.Equal(t, "Madrid Sastre", cheap[0].Name)
}

func TestSQLite_UpdateProspectStatus(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	out, err := st.SaveProspect(ctx, testProspect("Bond Tailors", "https://bondtailors.com", "London", 90))
	require.NoError(t, err)

	require.NoError(t, st.UpdateProspectStatus(ctx, out.ID, model.StatusContacted))

	got, err := st.GetProspect(ctx, out.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusContacted, got.Status)

	// contacted -> converted is allowed; converted is terminal.
	require.NoError(t, st.UpdateProspectStatus(ctx, out.ID, model.StatusConverted))
	err = st.UpdateProspectStatus(ctx, out.ID, model.StatusRejected)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status transition")
}

func TestSQLite_UpdateProspectStatus_InvalidInputs(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	err := st.UpdateProspectStatus(ctx, "missing", "bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid status")

	err = st.UpdateProspectStatus(ctx, "missing", model.StatusContacted)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_CityCountAndDelete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.SaveProspect(ctx, testProspect("A", "https://a.com", "Porto", 50))
	require.NoError(t, err)
	_, err = st.SaveProspect(ctx, testProspect("B", "https://b.com", "Porto", 60))
	require.NoError(t, err)

	n, err := st.CityProspectCount(ctx, "porto")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	deleted, err := st.DeleteCityProspects(ctx, "Porto")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	n, err = st.CityProspectCount(ctx, "porto")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLite_SuppressedDomains(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SuppressDomain(ctx, "https://www.competitor.com", "existing client"))
	require.NoError(t, st.SuppressDomain(ctx, "competitor.com", "duplicate add"))
	require.NoError(t, st.SuppressDomain(ctx, "aggregator.net", ""))

	domains, err := st.SuppressedDomains(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"aggregator.net", "competitor.com"}, domains)
}

func TestSQLite_ReferenceEmbeddings_ReplaceAndSearch(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	n, err := st.CountReferenceEmbeddings(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	refs := []model.ReferenceEmbedding{
		{ID: "client_0", Name: "Near", Country: "United Kingdom", ProfileText: "near", Vector: []float32{1, 0, 0}},
		{ID: "client_1", Name: "Far", Country: "Spain", ProfileText: "far", Vector: []float32{0, 1, 0}},
		{ID: "client_2", Name: "Mid", Country: "Ireland", ProfileText: "mid", Vector: []float32{0.7, 0.7, 0}},
	}
	require.NoError(t, st.ReplaceReferenceEmbeddings(ctx, refs))

	n, err = st.CountReferenceEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	neighbors, err := st.NearestReferenceClients(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, neighbors, 2)
	assert.Equal(t, "Near", neighbors[0].Ref.Name)
	assert.InDelta(t, 0, neighbors[0].CosineDistance, 0.001)
	assert.Equal(t, "Mid", neighbors[1].Ref.Name)

	// Replacing is wholesale, not additive.
	require.NoError(t, st.ReplaceReferenceEmbeddings(ctx, refs[:1]))
	n, err = st.CountReferenceEmbeddings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLite_Checkpoints(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	cp := &model.RunCheckpoint{
		ID:    "run-1",
		City:  "london",
		State: model.RunAwaitingQueryApproval,
		Data:  []byte(`{"queries":["a","b"]}`),
	}
	require.NoError(t, st.SaveCheckpoint(ctx, cp))

	got, err := st.GetCheckpoint(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunAwaitingQueryApproval, got.State)
	assert.JSONEq(t, `{"queries":["a","b"]}`, string(got.Data))

	// Upsert replaces the state in place.
	cp.State = model.RunDone
	require.NoError(t, st.SaveCheckpoint(ctx, cp))
	got, err = st.GetCheckpoint(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunDone, got.State)

	require.NoError(t, st.DeleteCheckpoint(ctx, "run-1"))
	_, err = st.GetCheckpoint(ctx, "run-1")
	require.Error(t, err)
}

func TestSQLite_EmailLogs(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.LogEmail(ctx, model.EmailLog{
		ProspectID: "p1",
		To:         "owner@bondtailors.com",
		Status:     "sent",
		SentAt:     time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, st.LogEmail(ctx, model.EmailLog{
		ProspectID: "p1",
		To:         "owner@bondtailors.com",
		Status:     "failed",
		Error:      "bounce",
		SentAt:     time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC),
	}))

	logs, err := st.EmailLogs(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "failed", logs[0].Status)
	assert.Equal(t, "bounce", logs[0].Error)
	assert.Equal(t, "sent", logs[1].Status)

	none, err := st.EmailLogs(ctx, "p2")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLite_Summary(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	a := testProspect("A", "https://a.com", "London", 80)
	a.LocationQuality = model.LocationPremium
	_, err := st.SaveProspect(ctx, a)
	require.NoError(t, err)
	_, err = st.SaveProspect(ctx, testProspect("B", "https://b.com", "Madrid", 40))
	require.NoError(t, err)

	sum, err := st.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.TotalProspects)
	assert.InDelta(t, 60, sum.AvgFinalScore, 0.001)
	assert.Equal(t, 1, sum.PremiumLocated)
	assert.Equal(t, 2, sum.ByStatus["new"])
	assert.Equal(t, 1, sum.ByCity["london"])
	assert.Equal(t, 1, sum.ByCity["madrid"])
}
