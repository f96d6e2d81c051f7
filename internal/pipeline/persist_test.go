package pipeline

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/confecoes-lanca/prospector/internal/model"
	"github.com/confecoes-lanca/prospector/internal/scoring"
	"github.com/confecoes-lanca/prospector/internal/similarity"
	"github.com/confecoes-lanca/prospector/internal/store"
)

func testEngine() *scoring.Engine {
	matcher := &stubMatcher{matches: []similarity.Match{{
		ID:         "client_01",
		Name:       "Carlos Nieto",
		Country:    "Spain",
		Similarity: 82.5,
		Metadata:   model.ReferenceEmbedding{Name: "Carlos Nieto", StoreCount: 3},
	}}}
	return scoring.NewEngine(matcher, nil, scoring.DefaultThresholds())
}

func candidate(name, url string, priceEUR float64) model.Prospect {
	return model.Prospect{
		Name:        name,
		WebsiteURL:  url,
		City:        "london",
		Country:     "United Kingdom",
		CountryCode: "GB",
		StoreCount:  2,
		AvgPriceEUR: priceEUR,
	}
}

func TestPersistScoresRanksAndSaves(t *testing.T) {
	st := &mockStore{}
	var savedOrder []string
	st.On("SaveProspect", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			p := args.Get(1).(*model.Prospect)
			savedOrder = append(savedOrder, p.Name)
		}).
		Return(&store.SaveOutcome{ID: "id", Inserted: true}, nil)

	p := New(DefaultConfig(), st, &mockSearcher{}, &mockExtractor{}, &stubMatcher{}, testEngine(), &mockAnthropic{})
	run := NewRun("r1", "london", "")
	run.Candidates = []model.Prospect{
		candidate("Mid", "https://mid.com", 450),
		candidate("Top", "https://top.com", 900),
	}

	require.NoError(t, p.Persist(context.Background(), run))

	// Higher price scores higher and is saved first.
	assert.Equal(t, []string{"Top", "Mid"}, savedOrder)
	require.NotNil(t, run.Candidates[0].Breakdown)
	assert.Equal(t, "Top", run.Candidates[0].Name)
	assert.Equal(t, "Carlos Nieto", run.Candidates[0].MostSimilarClient)
	assert.NotEmpty(t, run.Candidates[0].SimilarityExplanation)

	inserted, duplicates := run.SavedCounts()
	assert.Equal(t, 2, inserted)
	assert.Equal(t, 0, duplicates)
}

func TestPersistTieKeepsInputOrder(t *testing.T) {
	st := &mockStore{}
	var savedOrder []string
	st.On("SaveProspect", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			savedOrder = append(savedOrder, args.Get(1).(*model.Prospect).Name)
		}).
		Return(&store.SaveOutcome{ID: "id", Inserted: true}, nil)

	p := New(DefaultConfig(), st, &mockSearcher{}, &mockExtractor{}, &stubMatcher{}, testEngine(), &mockAnthropic{})
	run := NewRun("r1", "london", "")
	run.Candidates = []model.Prospect{
		candidate("First", "https://first.com", 900),
		candidate("Second", "https://second.com", 900),
	}

	require.NoError(t, p.Persist(context.Background(), run))
	assert.Equal(t, []string{"First", "Second"}, savedOrder)
}

func TestPersistDuplicateCounted(t *testing.T) {
	st := &mockStore{}
	st.On("SaveProspect", mock.Anything, mock.Anything).
		Return(&store.SaveOutcome{ID: "id1", Inserted: true}, nil).Once()
	st.On("SaveProspect", mock.Anything, mock.Anything).
		Return(&store.SaveOutcome{ID: "id2", Duplicate: true}, nil).Once()

	p := New(DefaultConfig(), st, &mockSearcher{}, &mockExtractor{}, &stubMatcher{}, testEngine(), &mockAnthropic{})
	run := NewRun("r1", "london", "")
	run.Candidates = []model.Prospect{
		candidate("A", "https://a.com", 900),
		candidate("B", "https://b.com", 450),
	}

	require.NoError(t, p.Persist(context.Background(), run))
	inserted, duplicates := run.SavedCounts()
	assert.Equal(t, 1, inserted)
	assert.Equal(t, 1, duplicates)
	assert.Contains(t, run.Progress, "Duplicados ignorados: 1")
}

func TestPersistSaveFailureIsolated(t *testing.T) {
	st := &mockStore{}
	st.On("SaveProspect", mock.Anything, mock.Anything).
		Return(nil, eris.New("connection reset")).Once()
	st.On("SaveProspect", mock.Anything, mock.Anything).
		Return(&store.SaveOutcome{ID: "id", Inserted: true}, nil).Once()

	p := New(DefaultConfig(), st, &mockSearcher{}, &mockExtractor{}, &stubMatcher{}, testEngine(), &mockAnthropic{})
	run := NewRun("r1", "london", "")
	run.Candidates = []model.Prospect{
		candidate("A", "https://a.com", 900),
		candidate("B", "https://b.com", 450),
	}

	require.NoError(t, p.Persist(context.Background(), run))
	assert.Len(t, run.Saved, 1)

	var persistReport *model.StageReport
	for i := range run.Reports {
		if run.Reports[i].Stage == "persist" {
			persistReport = &run.Reports[i]
		}
	}
	require.NotNil(t, persistReport)
	assert.Equal(t, 2, persistReport.Attempted)
	assert.Equal(t, 1, persistReport.Succeeded)
}

func TestPersistScoreFailureSkipsCandidates(t *testing.T) {
	st := &mockStore{}
	engine := scoring.NewEngine(&stubMatcher{err: eris.New("index down")}, nil, scoring.DefaultThresholds())

	p := New(DefaultConfig(), st, &mockSearcher{}, &mockExtractor{}, &stubMatcher{}, engine, &mockAnthropic{})
	run := NewRun("r1", "london", "")
	run.Candidates = []model.Prospect{
		candidate("A", "https://a.com", 900),
	}

	// An unscorable candidate is never saved, and the run still completes.
	require.NoError(t, p.Persist(context.Background(), run))
	assert.Empty(t, run.Saved)
	assert.Nil(t, run.Candidates[0].Breakdown)
	st.AssertNotCalled(t, "SaveProspect", mock.Anything, mock.Anything)
}

func TestPersistNoCandidates(t *testing.T) {
	st := &mockStore{}
	p := New(DefaultConfig(), st, &mockSearcher{}, &mockExtractor{}, &stubMatcher{}, testEngine(), &mockAnthropic{})
	run := NewRun("r1", "london", "")

	require.NoError(t, p.Persist(context.Background(), run))
	assert.Contains(t, run.Progress, "Resultado final: 0 marcas encontradas")
	st.AssertNotCalled(t, "SaveProspect", mock.Anything, mock.Anything)
}

func TestRunCachedCityShortCircuits(t *testing.T) {
	st := &mockStore{}
	st.On("CityProspectCount", mock.Anything, "london").Return(12, nil)

	search := &mockSearcher{}
	p := New(DefaultConfig(), st, search, &mockExtractor{}, &stubMatcher{}, testEngine(), &mockAnthropic{})

	run, err := p.Run(context.Background(), "London", "", false)
	require.NoError(t, err)
	assert.True(t, run.Cached)
	assert.Equal(t, 12, run.CachedCount)
	search.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestRunEndToEnd(t *testing.T) {
	st := &mockStore{}
	st.On("CityProspectCount", mock.Anything, "london").Return(0, nil)
	st.On("SuppressedDomains", mock.Anything).Return([]string{}, nil)
	st.On("SaveProspect", mock.Anything, mock.Anything).
		Return(&store.SaveOutcome{ID: "abc123", Inserted: true}, nil)

	search := &mockSearcher{}
	search.On("Search", mock.Anything, mock.Anything).
		Return(searchResponse("https://bondtailors.com"), nil)

	extractor := &mockExtractor{}
	extractor.On("ScrapeAll", mock.Anything, mock.Anything, 5).
		Return([]model.ExtractedContent{
			{URL: "https://bondtailors.com", Content: "Bespoke tailor, suits from €850, made to measure."},
		})

	ai := &mockAnthropic{}
	ai.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(`[{"name":"Bond Tailors","url":"https://bondtailors.com","storeCount":2,"avgPriceEur":850,"fitScore":88}]`), nil)

	matcher := &stubMatcher{matches: []similarity.Match{{Name: "Carlos Nieto", Similarity: 80}}}
	p := New(DefaultConfig(), st, search, extractor, matcher, scoring.NewEngine(matcher, nil, scoring.DefaultThresholds()), ai)

	run, err := p.Run(context.Background(), "London", "", false)
	require.NoError(t, err)

	require.Len(t, run.Candidates, 1)
	assert.Equal(t, "abc123", run.Candidates[0].ID)
	require.NotNil(t, run.Candidates[0].Breakdown)
	assert.Greater(t, run.Candidates[0].Breakdown.FinalScore, 50.0)
	inserted, _ := run.SavedCounts()
	assert.Equal(t, 1, inserted)
}
